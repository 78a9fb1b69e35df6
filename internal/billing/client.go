// Package billing holds the orchestrator's view of the accounts
// service: an account-status query and a minute debit.
package billing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
)

// ErrInsufficientFunds is the gateway-reported debit refusal, kept
// distinct from transport failures so the caller can map it to
// PaymentRequired.
var ErrInsufficientFunds = errors.New("insufficient minutes")

type AccountStatus struct {
	UserID           string `json:"user_id"`
	Paid             bool   `json:"paid_status"`
	MinutesRemaining int    `json:"minutes_remaining"`
}

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		HTTP:    &http.Client{Timeout: 15 * time.Second},
	}
}

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (c *Client) AccountStatus(ctx context.Context, userID string) (AccountStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/account-status/"+userID, nil)
	if err != nil {
		return AccountStatus{}, err
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return AccountStatus{}, fmt.Errorf("%w: account status: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return AccountStatus{}, fmt.Errorf("%w: user %s", apperr.ErrNotFound, userID)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return AccountStatus{}, fmt.Errorf("%w: account status %d: %s", apperr.ErrUpstream, resp.StatusCode, string(msg))
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return AccountStatus{}, fmt.Errorf("%w: account status decode: %v", apperr.ErrUpstream, err)
	}
	var out AccountStatus
	if err := json.Unmarshal(env.Data, &out); err != nil {
		return AccountStatus{}, fmt.Errorf("%w: account status decode: %v", apperr.ErrUpstream, err)
	}
	return out, nil
}

func (c *Client) DebitMinutes(ctx context.Context, userID string, minutes int) error {
	body, err := json.Marshal(map[string]any{
		"user_id": userID,
		"minutes": minutes,
	})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/debit-minutes", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%w: debit minutes: %v", apperr.ErrUpstream, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusPaymentRequired:
		return ErrInsufficientFunds
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: user %s", apperr.ErrNotFound, userID)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("%w: debit status %d: %s", apperr.ErrUpstream, resp.StatusCode, string(msg))
	}
	return nil
}
