package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// PaymentLink is the result of a payment-initiation call. TxRef is always
// populated so a failed call can still be reported and reconciled; Link is
// empty when the provider rejected the request or returned a malformed body.
type PaymentLink struct {
	Link  string
	TxRef string
}

// LinkCreator creates hosted payment-page links. The conversation service
// depends on this interface; the concrete client talks to Flutterwave.
type LinkCreator interface {
	CreateLink(ctx context.Context, amount int64, phone string, meta map[string]string) (PaymentLink, error)
}

// FlutterwaveClient creates payment links via POST /v3/payments with bearer
// auth. Amounts are whole Naira (currency "NGN").
type FlutterwaveClient struct {
	secretKey   string
	baseURL     string
	redirectURL string
	httpClient  *http.Client

	// newTxRef is a seam for tests; defaults to timestamp + random suffix.
	newTxRef func() string
}

// NewFlutterwaveClient constructs a payment link client. baseURL is normally
// "https://api.flutterwave.com"; tests point it at a local httptest server.
func NewFlutterwaveClient(secretKey, baseURL, redirectURL string) *FlutterwaveClient {
	return &FlutterwaveClient{
		secretKey:   secretKey,
		baseURL:     strings.TrimRight(baseURL, "/"),
		redirectURL: redirectURL,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		newTxRef:    defaultTxRef,
	}
}

// defaultTxRef generates a reference unique enough for reconciliation:
// "tx-<unix millis>-<random>". Uniqueness is a soft requirement; the
// provider enforces its own uniqueness on tx_ref.
func defaultTxRef() string {
	return fmt.Sprintf("tx-%d-%d", time.Now().UnixMilli(), rand.Intn(1_000_000))
}

type flwPaymentRequest struct {
	TxRef       string            `json:"tx_ref"`
	Amount      int64             `json:"amount"`
	Currency    string            `json:"currency"`
	RedirectURL string            `json:"redirect_url,omitempty"`
	Customer    flwCustomer       `json:"customer"`
	Meta        map[string]string `json:"meta,omitempty"`
}

type flwCustomer struct {
	PhoneNumber string `json:"phonenumber"`
}

type flwPaymentResponse struct {
	Status string `json:"status"`
	Data   struct {
		Link string `json:"link"`
	} `json:"data"`
}

// CreateLink initiates a hosted payment page for the given amount and
// recipient metadata. On provider failure (transport error, non-2xx status,
// malformed body) it returns a PaymentLink with an empty Link and a non-nil
// error; the tx_ref is still set so the caller can report the failure
// without crashing the conversation.
func (c *FlutterwaveClient) CreateLink(ctx context.Context, amount int64, phone string, meta map[string]string) (PaymentLink, error) {
	txRef := c.newTxRef()
	out := PaymentLink{TxRef: txRef}

	payload := flwPaymentRequest{
		TxRef:       txRef,
		Amount:      amount,
		Currency:    "NGN",
		RedirectURL: c.redirectURL,
		Customer:    flwCustomer{PhoneNumber: strings.TrimPrefix(phone, "whatsapp:")},
		Meta:        meta,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return out, fmt.Errorf("encode payment request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v3/payments", bytes.NewReader(body))
	if err != nil {
		return out, fmt.Errorf("build payment request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.secretKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return out, fmt.Errorf("create payment link: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		log.Warn().
			Int("status", resp.StatusCode).
			Str("tx_ref", txRef).
			Msg("flutterwave rejected payment initiation")
		return out, fmt.Errorf("flutterwave API error: status %d", resp.StatusCode)
	}

	var parsed flwPaymentResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return out, fmt.Errorf("decode payment response: %w", err)
	}
	if parsed.Data.Link == "" {
		return out, fmt.Errorf("flutterwave response missing payment link")
	}

	out.Link = parsed.Data.Link
	return out, nil
}
