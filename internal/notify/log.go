package notify

import (
	"context"
	"log/slog"

	"jobwatch/internal/model"
)

// Ensure LogTransport implements model.Transport.
var _ model.Transport = (*LogTransport)(nil)

// LogTransport writes outbound messages to the logger instead of a real
// provider. Used as the default when Twilio is not configured.
type LogTransport struct {
	logger *slog.Logger
}

// NewLogTransport returns a transport that logs each message body.
func NewLogTransport(logger *slog.Logger) *LogTransport {
	return &LogTransport{logger: logger}
}

// Send logs the message. It never fails.
func (t *LogTransport) Send(_ context.Context, body string) error {
	t.logger.Info("notification", "body", body)
	return nil
}
