package payments

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const mpDefaultBaseURL = "https://api.mercadopago.com"

// MercadoPago is the preference/webhook-based provider. Checkout opens a
// payment preference; the provider later notifies us with a bare
// query-string webhook (topic + payment id) whose payload carries no
// authenticated status, so the real status is always re-fetched from
// the payments query API.
type MercadoPago struct {
	accessToken string
	baseURL     string
	notifyURL   string
	backURLBase string
	httpClient  *http.Client
}

type MercadoPagoConfig struct {
	AccessToken string
	BaseURL     string // override for tests
	NotifyURL   string // our webhook endpoint
	BackURLBase string // frontend base for success/failure/pending pages
	Timeout     time.Duration
}

func NewMercadoPago(cfg MercadoPagoConfig) *MercadoPago {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = mpDefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &MercadoPago{
		accessToken: cfg.AccessToken,
		baseURL:     base,
		notifyURL:   cfg.NotifyURL,
		backURLBase: strings.TrimRight(cfg.BackURLBase, "/"),
		httpClient:  &http.Client{Timeout: timeout},
	}
}

func (m *MercadoPago) Name() string { return "mercadopago" }

type mpPreferenceItem struct {
	ID         string  `json:"id"`
	Title      string  `json:"title"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	CurrencyID string  `json:"currency_id"`
	PictureURL string  `json:"picture_url,omitempty"`
}

type mpPreferenceRequest struct {
	Items             []mpPreferenceItem `json:"items"`
	ExternalReference string             `json:"external_reference"`
	Payer             struct {
		Email string `json:"email"`
	} `json:"payer"`
	BackURLs struct {
		Success string `json:"success"`
		Failure string `json:"failure"`
		Pending string `json:"pending"`
	} `json:"back_urls"`
	AutoReturn      string `json:"auto_return"`
	NotificationURL string `json:"notification_url"`
}

type mpPreferenceResponse struct {
	ID        string `json:"id"`
	InitPoint string `json:"init_point"`
}

func (m *MercadoPago) CreateIntent(ctx context.Context, req IntentRequest) (Intent, error) {
	body := mpPreferenceRequest{
		ExternalReference: req.ExternalReference,
		AutoReturn:        "approved",
		NotificationURL:   m.notifyURL,
	}
	body.Payer.Email = req.Contact.Email
	body.BackURLs.Success = m.backURLBase + "/checkout/success"
	body.BackURLs.Failure = m.backURLBase + "/checkout/failure"
	body.BackURLs.Pending = m.backURLBase + "/checkout/pending"

	for _, it := range req.Items {
		title := it.Name
		if it.Size != "" || it.Color != "" {
			title = fmt.Sprintf("%s (%s / %s)", it.Name, orNA(it.Size), orNA(it.Color))
		}
		body.Items = append(body.Items, mpPreferenceItem{
			ID:         it.ProductID,
			Title:      title,
			Quantity:   it.Quantity,
			UnitPrice:  centsToUnits(it.UnitPriceCents),
			CurrencyID: it.Currency,
			PictureURL: it.ImageURL,
		})
	}
	if req.ShippingCents > 0 {
		body.Items = append(body.Items, mpPreferenceItem{
			ID:         "shipping-cost",
			Title:      "Shipping",
			Quantity:   1,
			UnitPrice:  centsToUnits(req.ShippingCents),
			CurrencyID: req.Currency,
		})
	}

	var resp mpPreferenceResponse
	if err := m.post(ctx, "/checkout/preferences", body, &resp); err != nil {
		return Intent{}, err
	}
	return Intent{ProviderSessionID: resp.ID, RedirectURL: resp.InitPoint}, nil
}

type mpPayment struct {
	ID                json.Number `json:"id"`
	Status            string      `json:"status"`
	TransactionAmount float64     `json:"transaction_amount"`
	CurrencyID        string      `json:"currency_id"`
	ExternalReference string      `json:"external_reference"`
	PaymentTypeID     string      `json:"payment_type_id"`
	Payer             struct {
		Email     string `json:"email"`
		FirstName string `json:"first_name"`
		LastName  string `json:"last_name"`
	} `json:"payer"`
}

func (m *MercadoPago) ParseWebhook(ctx context.Context, req WebhookRequest) (PaymentEvent, error) {
	topic := req.Query.Get("topic")
	if topic == "" {
		topic = req.Query.Get("type")
	}
	if topic != "payment" {
		// merchant_order, shipments, ... acknowledge and move on
		return PaymentEvent{}, ErrEventIgnored
	}

	paymentID := req.Query.Get("id")
	if paymentID == "" {
		paymentID = req.Query.Get("data.id")
	}
	if paymentID == "" {
		return PaymentEvent{}, ErrEventIgnored
	}

	// The notification itself is unauthenticated; only the query API is
	// trusted for status and amount.
	p, err := m.fetchPayment(ctx, paymentID)
	if err != nil {
		return PaymentEvent{}, err
	}

	name := strings.TrimSpace(p.Payer.FirstName + " " + p.Payer.LastName)
	return PaymentEvent{
		Kind:              EventPayment,
		ExternalReference: p.ExternalReference,
		ProviderPaymentID: p.ID.String(),
		AmountCents:       unitsToCents(p.TransactionAmount),
		Currency:          p.CurrencyID,
		Status:            p.Status,
		MethodType:        p.PaymentTypeID,
		Payer:             Contact{Name: name, Email: p.Payer.Email},
	}, nil
}

func (m *MercadoPago) fetchPayment(ctx context.Context, id string) (mpPayment, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, m.baseURL+"/v1/payments/"+id, nil)
	if err != nil {
		return mpPayment{}, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.accessToken)

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return mpPayment{}, fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return mpPayment{}, fmt.Errorf("%w: payments query returned %d", ErrGatewayUnavailable, resp.StatusCode)
	}

	var p mpPayment
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return mpPayment{}, fmt.Errorf("%w: decode payment: %v", ErrGatewayUnavailable, err)
	}
	return p, nil
}

func (m *MercadoPago) post(ctx context.Context, path string, in, out any) error {
	raw, err := json.Marshal(in)
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(raw))
	if err != nil {
		return err
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.accessToken)
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrGatewayUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%w: %s returned %d: %s", ErrGatewayUnavailable, path, resp.StatusCode, string(b))
	}

	return json.NewDecoder(resp.Body).Decode(out)
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func centsToUnits(cents int) float64 {
	return float64(cents) / 100
}

func unitsToCents(units float64) int {
	return int(math.Round(units * 100))
}
