// Package notify delivers user-facing messages. Delivery is always
// best-effort: callers log failures and move on, a notification never
// affects job or payment correctness.
package notify

import "context"

const (
	KindJobComplete    = "job_complete"
	KindJobFailed      = "job_failed"
	KindPaymentSuccess = "payment_success"
)

type Notification struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
	Kind    string `json:"notification_type"`
}

type Notifier interface {
	Publish(ctx context.Context, n Notification) error
}
