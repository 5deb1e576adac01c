package payments

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const sessionExpiry = 30 * time.Minute

// CheckoutSession is the hosted-checkout-session provider. Checkout
// creates a remote session with server-priced line items; the provider
// notifies us with a signed JSON event body, so once the signature
// verifies the payload itself is trusted.
type CheckoutSession struct {
	secretKey     string
	webhookSecret []byte
	baseURL       string
	successURL    string
	cancelURL     string
	sigTolerance  time.Duration
	httpClient    *http.Client
}

type CheckoutSessionConfig struct {
	SecretKey     string
	WebhookSecret string
	BaseURL       string // override for tests
	SuccessURL    string
	CancelURL     string
	Timeout       time.Duration
}

func NewCheckoutSession(cfg CheckoutSessionConfig) *CheckoutSession {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &CheckoutSession{
		secretKey:     cfg.SecretKey,
		webhookSecret: []byte(cfg.WebhookSecret),
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		successURL:    cfg.SuccessURL,
		cancelURL:     cfg.CancelURL,
		sigTolerance:  5 * time.Minute,
		httpClient:    &http.Client{Timeout: timeout},
	}
}

func (s *CheckoutSession) Name() string { return "checkout_session" }

type sessionResponse struct {
	ID            string `json:"id"`
	URL           string `json:"url"`
	PaymentIntent string `json:"payment_intent"`
}

func (s *CheckoutSession) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	form := url.Values{}
	form.Set("mode", "payment")
	form.Set("client_reference_id", req.ExternalReference)
	form.Set("success_url", s.successURL)
	form.Set("cancel_url", s.cancelURL)
	form.Set("expires_at", strconv.FormatInt(time.Now().Add(sessionExpiry).Unix(), 10))
	if req.Contact.Email != "" {
		form.Set("customer_email", req.Contact.Email)
	}

	for i, it := range req.Items {
		prefix := fmt.Sprintf("line_items[%d]", i)
		form.Set(prefix+"[quantity]", strconv.Itoa(it.Quantity))
		form.Set(prefix+"[price_data][currency]", strings.ToLower(it.Currency))
		form.Set(prefix+"[price_data][unit_amount]", strconv.Itoa(it.UnitPriceCents))
		form.Set(prefix+"[price_data][product_data][name]", it.Name)
		if it.ImageURL != "" {
			form.Set(prefix+"[price_data][product_data][images][0]", it.ImageURL)
		}
	}
	if req.ShippingCents > 0 {
		prefix := fmt.Sprintf("line_items[%d]", len(req.Items))
		form.Set(prefix+"[quantity]", "1")
		form.Set(prefix+"[price_data][currency]", strings.ToLower(req.Currency))
		form.Set(prefix+"[price_data][unit_amount]", strconv.Itoa(req.ShippingCents))
		form.Set(prefix+"[price_data][product_data][name]", "Shipping")
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		s.baseURL+"/v1/checkout/sessions", bytes.NewBufferString(form.Encode()))
	if err != nil {
		return Intent{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+s.secretKey)
	httpReq.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		return Intent{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Intent{}, fmt.Errorf("%w: create session returned %d: %s", ErrGatewayUnavailable, resp.StatusCode, string(b))
	}

	var sr sessionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return Intent{}, fmt.Errorf("%w: decode session: %v", ErrGatewayUnavailable, err)
	}
	return Intent{ProviderSessionID: sr.ID, RedirectURL: sr.URL}, nil
}

type sessionEvent struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Data struct {
		Object struct {
			ID                string `json:"id"`
			ClientReferenceID string `json:"client_reference_id"`
			PaymentIntent     string `json:"payment_intent"`
			AmountTotal       int    `json:"amount_total"`
			Currency          string `json:"currency"`
			PaymentStatus     string `json:"payment_status"`
			CustomerDetails   struct {
				Name  string `json:"name"`
				Email string `json:"email"`
			} `json:"customer_details"`
		} `json:"object"`
	} `json:"data"`
}

const sigHeader = "X-Signature"

func (s *CheckoutSession) ParseWebhook(ctx context.Context, req WebhookRequest) (PaymentEvent, error) {
	if err := s.verifySignature(req.Header.Get(sigHeader), req.Body); err != nil {
		return PaymentEvent{}, err
	}

	var ev sessionEvent
	if err := json.Unmarshal(req.Body, &ev); err != nil {
		return PaymentEvent{}, fmt.Errorf("%w: %v", ErrBadSignature, err)
	}

	obj := ev.Data.Object
	switch ev.Type {
	case "checkout.session.completed", "checkout.session.async_payment_succeeded":
		return PaymentEvent{
			Kind:              EventPayment,
			ExternalReference: obj.ClientReferenceID,
			ProviderPaymentID: obj.PaymentIntent,
			AmountCents:       obj.AmountTotal,
			Currency:          strings.ToUpper(obj.Currency),
			Status:            "approved",
			MethodType:        "card",
			Payer: Contact{
				Name:  obj.CustomerDetails.Name,
				Email: obj.CustomerDetails.Email,
			},
		}, nil

	case "checkout.session.expired":
		return PaymentEvent{
			Kind:              EventSessionExpired,
			ExternalReference: obj.ClientReferenceID,
		}, nil

	default:
		return PaymentEvent{}, ErrEventIgnored
	}
}

// verifySignature checks the "t=<unix>,v1=<hex hmac>" header over
// "<t>.<body>" and rejects stale timestamps to stop replay.
func (s *CheckoutSession) verifySignature(header string, body []byte) error {
	if header == "" {
		return ErrBadSignature
	}

	var ts int64
	var sig string
	for _, part := range strings.Split(header, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok {
			continue
		}
		switch k {
		case "t":
			ts, _ = strconv.ParseInt(v, 10, 64)
		case "v1":
			sig = v
		}
	}
	if ts == 0 || sig == "" {
		return ErrBadSignature
	}

	if d := time.Since(time.Unix(ts, 0)); d > s.sigTolerance || d < -s.sigTolerance {
		return ErrBadSignature
	}

	mac := hmac.New(sha256.New, s.webhookSecret)
	mac.Write([]byte(strconv.FormatInt(ts, 10)))
	mac.Write([]byte("."))
	mac.Write(body)
	expected := hex.EncodeToString(mac.Sum(nil))

	given, err := hex.DecodeString(sig)
	if err != nil {
		return ErrBadSignature
	}
	want, _ := hex.DecodeString(expected)
	if !hmac.Equal(given, want) {
		return ErrBadSignature
	}
	return nil
}
