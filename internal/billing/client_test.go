package billing

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/fluxaudio/fluxaudio/internal/apperr"
)

func envelopeJSON(data any) []byte {
	b, _ := json.Marshal(map[string]any{"code": 0, "message": "ok", "data": data})
	return b
}

func TestAccountStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/account-status/u1":
			w.Header().Set("Content-Type", "application/json")
			w.Write(envelopeJSON(AccountStatus{UserID: "u1", Paid: true, MinutesRemaining: 42}))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	c := NewClient(srv.URL)
	status, err := c.AccountStatus(context.Background(), "u1")
	if err != nil {
		t.Fatalf("account status: %v", err)
	}
	if !status.Paid || status.MinutesRemaining != 42 {
		t.Fatalf("unexpected status: %+v", status)
	}

	if _, err := c.AccountStatus(context.Background(), "ghost"); !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("expected NotFound, got %v", err)
	}
}

func TestDebitMinutes_StatusMapping(t *testing.T) {
	cases := []struct {
		name   string
		status int
		want   error
	}{
		{"accepted", http.StatusOK, nil},
		{"insufficient", http.StatusPaymentRequired, ErrInsufficientFunds},
		{"unknown user", http.StatusNotFound, apperr.ErrNotFound},
		{"server error", http.StatusInternalServerError, apperr.ErrUpstream},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.Method != http.MethodPost || r.URL.Path != "/debit-minutes" {
					t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
				}
				w.WriteHeader(tc.status)
				if tc.status == http.StatusOK {
					w.Write(envelopeJSON(map[string]int{"minutes_remaining": 1}))
				}
			}))
			defer srv.Close()

			err := NewClient(srv.URL).DebitMinutes(context.Background(), "u1", 1)
			if tc.want == nil {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, err)
			}
		})
	}
}

func TestClient_UnreachableServiceIsUpstream(t *testing.T) {
	c := NewClient("http://127.0.0.1:1")
	if _, err := c.AccountStatus(context.Background(), "u1"); !errors.Is(err, apperr.ErrUpstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if err := c.DebitMinutes(context.Background(), "u1", 1); !errors.Is(err, apperr.ErrUpstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
}
