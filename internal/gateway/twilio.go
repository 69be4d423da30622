// Package gateway contains thin HTTP adapters for the external services the
// payment flow depends on: the Twilio WhatsApp messaging API and the
// Flutterwave payment-initiation API. Adapters do no business logic; they
// translate between Go types and each provider's wire contract and report
// failures as errors for the service layer to handle.
package gateway

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Messenger sends outbound chat replies. The conversation service and the
// payment reconciler depend on this interface rather than the concrete
// Twilio client so tests can capture replies in memory.
type Messenger interface {
	Send(ctx context.Context, to, body string) error
}

// TwilioClient sends WhatsApp messages through Twilio's Messages API using
// basic auth (account SID + auth token). A non-2xx response is a hard
// failure for that send attempt; there is no automatic retry.
type TwilioClient struct {
	accountSID string
	authToken  string
	from       string
	baseURL    string
	httpClient *http.Client
}

// NewTwilioClient constructs a Twilio WhatsApp client. baseURL is normally
// "https://api.twilio.com"; tests point it at a local httptest server.
func NewTwilioClient(accountSID, authToken, from, baseURL string) *TwilioClient {
	return &TwilioClient{
		accountSID: accountSID,
		authToken:  authToken,
		from:       from,
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// Send posts a form-encoded message create request. The request honors ctx
// for deadline propagation from the surrounding webhook handler.
func (c *TwilioClient) Send(ctx context.Context, to, body string) error {
	if c.accountSID == "" || c.authToken == "" || c.from == "" {
		return fmt.Errorf("twilio credentials not configured")
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.baseURL, c.accountSID)
	form := url.Values{
		"To":   {to},
		"From": {c.from},
		"Body": {body},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("build twilio request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send whatsapp message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		log.Warn().
			Int("status", resp.StatusCode).
			Str("to", to).
			Msg("twilio rejected message")
		return fmt.Errorf("twilio API error: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
