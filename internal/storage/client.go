package storage

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
)

// Client is the HTTP adapter the orchestrator uses to talk to the
// storage service.
type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 30 * time.Second},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) decode(resp *http.Response, out any) error {
	defer resp.Body.Close()
	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%w: blob not found", apperr.ErrNotFound)
	}
	if resp.StatusCode == http.StatusBadRequest {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: storage rejected request: %s", apperr.ErrInvalidArgument, string(msg))
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: storage status %d: %s", apperr.ErrUpstream, resp.StatusCode, string(msg))
	}
	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("%w: storage response decode: %v", apperr.ErrUpstream, err)
	}
	if out != nil {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("%w: storage payload decode: %v", apperr.ErrUpstream, err)
		}
	}
	return nil
}

// Store persists a blob and returns its logical path.
func (c *Client) Store(ctx context.Context, owner string, data []byte, name string) (string, error) {
	body, err := json.Marshal(map[string]string{
		"user_id":   owner,
		"audio_b64": base64.StdEncoding.EncodeToString(data),
		"file_name": name,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/upload", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: storage upload: %v", apperr.ErrUpstream, err)
	}

	var out struct {
		FilePath string `json:"file_path"`
	}
	if err := c.decode(resp, &out); err != nil {
		return "", err
	}
	return out.FilePath, nil
}

// Fetch retrieves a blob by its logical path.
func (c *Client) Fetch(ctx context.Context, path, owner string) ([]byte, error) {
	q := url.Values{}
	q.Set("file_path", path)
	q.Set("user_id", owner)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/download?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: storage download: %v", apperr.ErrUpstream, err)
	}

	var out struct {
		AudioB64 string `json:"audio_b64"`
	}
	if err := c.decode(resp, &out); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(out.AudioB64)
	if err != nil {
		return nil, fmt.Errorf("%w: storage payload encoding: %v", apperr.ErrUpstream, err)
	}
	return data, nil
}
