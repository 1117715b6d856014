package impl

import (
	"context"
	"log/slog"
	"time"

	"accounts/internal/service"
)

var _ service.EmailService = (*LogEmailService)(nil)

// LogEmailService records outbound mail on the service log instead of
// sending it. Deployments plug a real sender behind the same interface.
type LogEmailService struct{}

func NewLogEmailService() *LogEmailService { return &LogEmailService{} }

func (LogEmailService) SendWelcome(_ context.Context, to string) error {
	slog.Info("email: welcome", "to", to)
	return nil
}

func (LogEmailService) SendVerification(_ context.Context, to, verifyURL string) error {
	slog.Info("email: verification", "to", to, "url", verifyURL)
	return nil
}

func (LogEmailService) SendPasswordReset(_ context.Context, to, resetURL string) error {
	slog.Info("email: password reset", "to", to, "url", resetURL)
	return nil
}

const emailSendTimeout = 10 * time.Second

// dispatchEmail runs a send in its own goroutine with its own deadline.
// Mail never blocks or fails the transition that triggered it; failures
// are logged and dropped.
func dispatchEmail(fn func(ctx context.Context) error) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), emailSendTimeout)
		defer cancel()
		if err := fn(ctx); err != nil {
			slog.Warn("email send failed", "error", err)
		}
	}()
}
