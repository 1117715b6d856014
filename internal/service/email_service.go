package service

import "context"

// EmailService is best-effort outbound mail. Callers dispatch sends
// fire-and-forget; a failed send is logged, never surfaced.
type EmailService interface {
	SendWelcome(ctx context.Context, to string) error
	SendVerification(ctx context.Context, to, verifyURL string) error
	SendPasswordReset(ctx context.Context, to, resetURL string) error
}
