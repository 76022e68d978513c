package notify

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"jobwatch/internal/model"
)

// Ensure TwilioTransport implements model.Transport.
var _ model.Transport = (*TwilioTransport)(nil)

const twilioAPIBase = "https://api.twilio.com"

// TwilioTransport sends WhatsApp messages through the Twilio REST API.
// It talks to the Messages endpoint directly with form-encoded POSTs; no
// vendor SDK is involved.
type TwilioTransport struct {
	accountSID string
	authToken  string
	from       string // e.g. "whatsapp:+14155238886"
	to         string // e.g. "whatsapp:+447700900000"
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewTwilioTransport returns a transport for the given Twilio account and
// destination number.
func NewTwilioTransport(accountSID, authToken, from, to string, httpClient *http.Client, logger *slog.Logger) *TwilioTransport {
	return &TwilioTransport{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		to:         to,
		baseURL:    twilioAPIBase,
		httpClient: httpClient,
		logger:     logger,
	}
}

// Send posts one message body to the configured destination. Any non-2xx
// response is a send failure.
func (t *TwilioTransport) Send(ctx context.Context, body string) error {
	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", t.baseURL, t.accountSID)

	form := url.Values{}
	form.Set("To", t.to)
	form.Set("From", t.from)
	form.Set("Body", body)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	req.SetBasicAuth(t.accountSID, t.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("twilio send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("twilio send: status %d", resp.StatusCode)
	}

	t.logger.Info("whatsapp message sent", "to", t.to, "chars", len(body))
	return nil
}

// SendParts delivers a multi-part message batch, pausing between parts to
// stay under the provider's rate limits. A failure on any part fails the
// whole send; the caller must not advance its notification baseline.
func SendParts(ctx context.Context, t model.Transport, parts []string, gap time.Duration) error {
	for i, part := range parts {
		if i > 0 && gap > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(gap):
			}
		}
		if err := t.Send(ctx, part); err != nil {
			return fmt.Errorf("sending part %d/%d: %w", i+1, len(parts), err)
		}
	}
	return nil
}
