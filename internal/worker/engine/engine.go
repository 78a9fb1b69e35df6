// Package engine hosts the stand-in transformation engines behind the
// worker service. Each engine simulates model latency and returns a
// canned result; swapping in a real model only touches this package.
package engine

import (
	"context"
	"encoding/base64"
	"errors"
	"time"
)

// dummyWAVB64 is a tiny silent WAV payload returned by every audio-producing
// engine until real models are integrated.
const dummyWAVB64 = "UklGRiQAAABXQVZFZm10IBIAAAABAAEARKwAAABAAAEBGGFjdGEBAAA="

const dummyTranscription = "This is a dummy transcription."

var dummyWAV, _ = base64.StdEncoding.DecodeString(dummyWAVB64)

var (
	ErrTextRequired  = errors.New("input text is required")
	ErrAudioRequired = errors.New("input audio is required")
)

// Request is the engine-level input, already decoded from the wire.
type Request struct {
	InputAudio []byte
	InputText  string
	ModelName  string
	Parameters map[string]any
}

// Response carries whichever outputs the capability produces.
type Response struct {
	OutputAudio []byte
	OutputText  string
	Message     string
}

type Engine interface {
	Process(ctx context.Context, req Request) (Response, error)
}

// simulate pauses for the given duration unless the context ends first.
func simulate(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// TTS converts text to speech.
type TTS struct {
	Latency time.Duration
}

func (e TTS) Process(ctx context.Context, req Request) (Response, error) {
	if req.InputText == "" {
		return Response{}, ErrTextRequired
	}
	if err := simulate(ctx, e.Latency); err != nil {
		return Response{}, err
	}
	return Response{
		OutputAudio: dummyWAV,
		Message:     "Text-to-speech completed for model " + req.ModelName,
	}, nil
}

// STT converts speech to text.
type STT struct {
	Latency time.Duration
}

func (e STT) Process(ctx context.Context, req Request) (Response, error) {
	if len(req.InputAudio) == 0 {
		return Response{}, ErrAudioRequired
	}
	if err := simulate(ctx, e.Latency); err != nil {
		return Response{}, err
	}
	return Response{
		OutputText: dummyTranscription,
		Message:    "Speech-to-text completed for model " + req.ModelName,
	}, nil
}

// NoiseRemoval cleans up an audio signal.
type NoiseRemoval struct {
	Latency time.Duration
}

func (e NoiseRemoval) Process(ctx context.Context, req Request) (Response, error) {
	if len(req.InputAudio) == 0 {
		return Response{}, ErrAudioRequired
	}
	if err := simulate(ctx, e.Latency); err != nil {
		return Response{}, err
	}
	return Response{
		OutputAudio: req.InputAudio,
		Message:     "Noise removal completed for model " + req.ModelName,
	}, nil
}
