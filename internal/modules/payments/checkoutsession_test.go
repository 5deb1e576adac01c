package payments_test

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/payments"
)

const testWebhookSecret = "whsec_test"

func signBody(t *testing.T, secret string, ts int64, body []byte) string {
	t.Helper()
	m := hmac.New(sha256.New, []byte(secret))
	m.Write([]byte(strconv.FormatInt(ts, 10)))
	m.Write([]byte("."))
	m.Write(body)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(m.Sum(nil)))
}

func sessionEventBody(t *testing.T, eventType, reference, intent string, amount int) []byte {
	t.Helper()
	body, err := json.Marshal(map[string]any{
		"id":   "evt_1",
		"type": eventType,
		"data": map[string]any{
			"object": map[string]any{
				"id":                  "cs_1",
				"client_reference_id": reference,
				"payment_intent":      intent,
				"payment_status":      "paid",
				"amount_total":        amount,
				"currency":            "usd",
				"customer_details": map[string]string{
					"name":  "Ana Gomez",
					"email": "ana@example.com",
				},
			},
		},
	})
	require.NoError(t, err)
	return body
}

func webhookReq(sig string, body []byte) payments.WebhookRequest {
	h := http.Header{}
	if sig != "" {
		h.Set("X-Signature", sig)
	}
	return payments.WebhookRequest{Header: h, Body: body}
}

func TestCheckoutSessionCreateIntent(t *testing.T) {
	var form url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/v1/checkout/sessions", r.URL.Path)
		require.Equal(t, "Bearer sk_test", r.Header.Get("Authorization"))
		require.NoError(t, r.ParseForm())
		form = r.PostForm
		_ = json.NewEncoder(w).Encode(map[string]string{
			"id":  "cs_123",
			"url": "https://pay.example/cs_123",
		})
	}))
	defer srv.Close()

	cs := payments.NewCheckoutSession(payments.CheckoutSessionConfig{
		SecretKey:     "sk_test",
		WebhookSecret: testWebhookSecret,
		BaseURL:       srv.URL,
		SuccessURL:    "https://shop.example/success",
		CancelURL:     "https://shop.example/cancel",
	})

	intent, err := cs.CreateIntent(context.Background(), payments.IntentRequest{
		ExternalReference: "ref-1",
		Items: []payments.LineItem{
			{ProductID: "p-1", Name: "Sneakers", Quantity: 2, UnitPriceCents: 800, Currency: "USD"},
		},
		ShippingCents: 500,
		Currency:      "USD",
		Contact:       payments.Contact{Email: "ana@example.com"},
	})
	require.NoError(t, err)
	assert.Equal(t, "cs_123", intent.ProviderSessionID)
	assert.Equal(t, "https://pay.example/cs_123", intent.RedirectURL)

	assert.Equal(t, "payment", form.Get("mode"))
	assert.Equal(t, "ref-1", form.Get("client_reference_id"))
	assert.Equal(t, "ana@example.com", form.Get("customer_email"))
	assert.Equal(t, "800", form.Get("line_items[0][price_data][unit_amount]"))
	assert.Equal(t, "usd", form.Get("line_items[0][price_data][currency]"))
	assert.Equal(t, "Shipping", form.Get("line_items[1][price_data][product_data][name]"))
	assert.Equal(t, "500", form.Get("line_items[1][price_data][unit_amount]"))
	assert.NotEmpty(t, form.Get("expires_at"))
}

func TestCheckoutSessionParseWebhookCompleted(t *testing.T) {
	cs := payments.NewCheckoutSession(payments.CheckoutSessionConfig{
		SecretKey: "sk", WebhookSecret: testWebhookSecret,
	})

	body := sessionEventBody(t, "checkout.session.completed", "ref-1", "pi_1", 2100)
	sig := signBody(t, testWebhookSecret, time.Now().Unix(), body)

	ev, err := cs.ParseWebhook(context.Background(), webhookReq(sig, body))
	require.NoError(t, err)

	assert.Equal(t, payments.EventPayment, ev.Kind)
	assert.Equal(t, "ref-1", ev.ExternalReference)
	assert.Equal(t, "pi_1", ev.ProviderPaymentID)
	assert.Equal(t, 2100, ev.AmountCents)
	assert.Equal(t, "USD", ev.Currency)
	assert.True(t, ev.Approved())
	assert.Equal(t, "ana@example.com", ev.Payer.Email)
}

func TestCheckoutSessionParseWebhookAsyncSucceeded(t *testing.T) {
	cs := payments.NewCheckoutSession(payments.CheckoutSessionConfig{
		SecretKey: "sk", WebhookSecret: testWebhookSecret,
	})

	body := sessionEventBody(t, "checkout.session.async_payment_succeeded", "ref-2", "pi_2", 900)
	sig := signBody(t, testWebhookSecret, time.Now().Unix(), body)

	ev, err := cs.ParseWebhook(context.Background(), webhookReq(sig, body))
	require.NoError(t, err)
	assert.True(t, ev.Approved())
	assert.Equal(t, "pi_2", ev.ProviderPaymentID)
}

func TestCheckoutSessionParseWebhookExpired(t *testing.T) {
	cs := payments.NewCheckoutSession(payments.CheckoutSessionConfig{
		SecretKey: "sk", WebhookSecret: testWebhookSecret,
	})

	body := sessionEventBody(t, "checkout.session.expired", "ref-3", "", 0)
	sig := signBody(t, testWebhookSecret, time.Now().Unix(), body)

	ev, err := cs.ParseWebhook(context.Background(), webhookReq(sig, body))
	require.NoError(t, err)
	assert.Equal(t, payments.EventSessionExpired, ev.Kind)
	assert.Equal(t, "ref-3", ev.ExternalReference)
}

func TestCheckoutSessionParseWebhookUnknownTypeIgnored(t *testing.T) {
	cs := payments.NewCheckoutSession(payments.CheckoutSessionConfig{
		SecretKey: "sk", WebhookSecret: testWebhookSecret,
	})

	body := sessionEventBody(t, "invoice.paid", "ref-4", "pi_4", 100)
	sig := signBody(t, testWebhookSecret, time.Now().Unix(), body)

	_, err := cs.ParseWebhook(context.Background(), webhookReq(sig, body))
	assert.ErrorIs(t, err, payments.ErrEventIgnored)
}

func TestCheckoutSessionParseWebhookSignatureRejections(t *testing.T) {
	cs := payments.NewCheckoutSession(payments.CheckoutSessionConfig{
		SecretKey: "sk", WebhookSecret: testWebhookSecret,
	})
	body := sessionEventBody(t, "checkout.session.completed", "ref-1", "pi_1", 2100)

	tests := []struct {
		name string
		sig  string
	}{
		{"missing header", ""},
		{"wrong secret", signBody(t, "whsec_other", time.Now().Unix(), body)},
		{"stale timestamp", signBody(t, testWebhookSecret, time.Now().Add(-10*time.Minute).Unix(), body)},
		{"future timestamp", signBody(t, testWebhookSecret, time.Now().Add(10*time.Minute).Unix(), body)},
		{"garbage header", "t=abc,v1="},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := cs.ParseWebhook(context.Background(), webhookReq(tt.sig, body))
			assert.ErrorIs(t, err, payments.ErrBadSignature)
		})
	}
}

func TestCheckoutSessionParseWebhookTamperedBody(t *testing.T) {
	cs := payments.NewCheckoutSession(payments.CheckoutSessionConfig{
		SecretKey: "sk", WebhookSecret: testWebhookSecret,
	})

	body := sessionEventBody(t, "checkout.session.completed", "ref-1", "pi_1", 2100)
	sig := signBody(t, testWebhookSecret, time.Now().Unix(), body)

	tampered := sessionEventBody(t, "checkout.session.completed", "ref-1", "pi_1", 1)
	_, err := cs.ParseWebhook(context.Background(), webhookReq(sig, tampered))
	assert.ErrorIs(t, err, payments.ErrBadSignature)
}
