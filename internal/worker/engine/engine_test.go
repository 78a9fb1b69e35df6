package engine

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func TestTTS_RequiresText(t *testing.T) {
	_, err := TTS{}.Process(context.Background(), Request{ModelName: "m"})
	if !errors.Is(err, ErrTextRequired) {
		t.Fatalf("expected ErrTextRequired, got %v", err)
	}
}

func TestTTS_ProducesAudio(t *testing.T) {
	out, err := TTS{}.Process(context.Background(), Request{InputText: "hello", ModelName: "tacotron2"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if len(out.OutputAudio) == 0 {
		t.Fatal("expected audio output")
	}
	// The canned payload is a WAV container.
	if string(out.OutputAudio[:4]) != "RIFF" {
		t.Fatalf("output does not look like WAV: % x", out.OutputAudio[:4])
	}
	if !strings.Contains(out.Message, "tacotron2") {
		t.Fatalf("message should reference the model: %q", out.Message)
	}
}

func TestSTT_RequiresAudio(t *testing.T) {
	_, err := STT{}.Process(context.Background(), Request{ModelName: "m"})
	if !errors.Is(err, ErrAudioRequired) {
		t.Fatalf("expected ErrAudioRequired, got %v", err)
	}
}

func TestSTT_ProducesTranscription(t *testing.T) {
	out, err := STT{}.Process(context.Background(), Request{InputAudio: []byte("wav"), ModelName: "whisper"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if out.OutputText == "" {
		t.Fatal("expected a transcription")
	}
	if len(out.OutputAudio) != 0 {
		t.Fatal("stt should not produce audio")
	}
}

func TestNoiseRemoval_EchoesInputAudio(t *testing.T) {
	in := []byte("noisy recording bytes")
	out, err := NoiseRemoval{}.Process(context.Background(), Request{InputAudio: in, ModelName: "rnnoise"})
	if err != nil {
		t.Fatalf("process: %v", err)
	}
	if string(out.OutputAudio) != string(in) {
		t.Fatal("cleaned audio should carry the input payload through")
	}
}

func TestSimulatedLatency_HonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	_, err := TTS{Latency: time.Hour}.Process(ctx, Request{InputText: "x", ModelName: "m"})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if time.Since(start) > time.Second {
		t.Fatal("cancelled process did not return promptly")
	}
}
