package worker

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/fluxaudio/fluxaudio/internal/job"
)

// Payload is the capability-tagged input forwarded to a worker.
type Payload struct {
	InputAudio []byte
	InputText  string
	ModelName  string
	Parameters map[string]any
}

// Result is a worker's typed outcome. Status "failed" is an
// application-level failure; transport errors surface as Go errors so
// the orchestrator can tell the two apart.
type Result struct {
	Status      string
	OutputAudio []byte
	OutputText  string
	Message     string
}

const (
	ResultCompleted = "completed"
	ResultFailed    = "failed"
)

type invokeReq struct {
	InputAudioB64 string         `json:"input_audio_b64,omitempty"`
	InputText     string         `json:"input_text,omitempty"`
	ModelName     string         `json:"model_name"`
	Parameters    map[string]any `json:"parameters,omitempty"`
}

type invokeResp struct {
	JobID          string `json:"job_id"`
	Status         string `json:"status"`
	OutputAudioB64 string `json:"output_audio_b64,omitempty"`
	OutputText     string `json:"output_text,omitempty"`
	Message        string `json:"message,omitempty"`
}

// Client invokes workers over HTTP. The per-call timeout comes from the
// caller's context; the embedded http.Client carries no global timeout
// because worker calls run at the minutes scale.
type Client struct {
	HTTP *http.Client
}

func NewClient() *Client {
	return &Client{HTTP: &http.Client{}}
}

// Invoke posts the payload to endpoint/<capability> and waits up to
// timeout for the typed result.
func (c *Client) Invoke(ctx context.Context, endpoint string, capability job.Capability, p Payload, timeout time.Duration) (Result, error) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body := invokeReq{
		InputText:  p.InputText,
		ModelName:  p.ModelName,
		Parameters: p.Parameters,
	}
	if len(p.InputAudio) > 0 {
		body.InputAudioB64 = base64.StdEncoding.EncodeToString(p.InputAudio)
	}

	b, err := json.Marshal(body)
	if err != nil {
		return Result{}, err
	}

	url := fmt.Sprintf("%s/%s", endpoint, capability)
	req, err := http.NewRequestWithContext(cctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		if cctx.Err() == context.DeadlineExceeded {
			return Result{}, fmt.Errorf("worker call timed out after %s: %w", timeout, err)
		}
		return Result{}, fmt.Errorf("worker communication error: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return Result{}, fmt.Errorf("worker communication error: status %d: %s", resp.StatusCode, string(msg))
	}

	var decoded invokeResp
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return Result{}, fmt.Errorf("worker response decode: %w", err)
	}

	res := Result{
		Status:     decoded.Status,
		OutputText: decoded.OutputText,
		Message:    decoded.Message,
	}
	if decoded.OutputAudioB64 != "" {
		audio, err := base64.StdEncoding.DecodeString(decoded.OutputAudioB64)
		if err != nil {
			return Result{}, fmt.Errorf("worker response audio decode: %w", err)
		}
		res.OutputAudio = audio
	}
	return res, nil
}
