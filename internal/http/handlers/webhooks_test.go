package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/mocks"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/payments"
)

func webhookServer(provider *mocks.MockProvider, intents *mocks.MockIntentLedger, ledger *mocks.MockOrderLedger) *gin.Engine {
	gin.SetMode(gin.TestMode)
	engine := payments.NewEngine("test", intents, ledger)
	h := NewWebhookHandlers(provider, engine, nil)

	r := gin.New()
	r.POST("/api/webhooks/payments", h.Receive)
	return r
}

func deliver(r *gin.Engine, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/webhooks/payments", strings.NewReader(body))
	r.ServeHTTP(w, req)
	return w
}

func respStatus(t *testing.T, w *httptest.ResponseRecorder) string {
	t.Helper()
	var out map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out["status"]
}

func TestWebhookStatusCodePolicy(t *testing.T) {
	approved := payments.PaymentEvent{
		Kind:              payments.EventPayment,
		ExternalReference: "ref-1",
		ProviderPaymentID: "pay-1",
		AmountCents:       1000,
		Status:            "approved",
	}

	t.Run("bad signature is 400 so the provider retries", func(t *testing.T) {
		provider := new(mocks.MockProvider)
		provider.On("Name").Return("test").Maybe()
		provider.On("ParseWebhook", mock.Anything, mock.Anything).
			Return(payments.PaymentEvent{}, payments.ErrBadSignature)

		w := deliver(webhookServer(provider, new(mocks.MockIntentLedger), new(mocks.MockOrderLedger)), "{}")
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("gateway unavailable is 502 so the provider re-delivers", func(t *testing.T) {
		provider := new(mocks.MockProvider)
		provider.On("Name").Return("test").Maybe()
		provider.On("ParseWebhook", mock.Anything, mock.Anything).
			Return(payments.PaymentEvent{}, payments.ErrGatewayUnavailable)

		w := deliver(webhookServer(provider, new(mocks.MockIntentLedger), new(mocks.MockOrderLedger)), "{}")
		assert.Equal(t, http.StatusBadGateway, w.Code)
	})

	t.Run("ignored topic is 200", func(t *testing.T) {
		provider := new(mocks.MockProvider)
		provider.On("ParseWebhook", mock.Anything, mock.Anything).
			Return(payments.PaymentEvent{}, payments.ErrEventIgnored)

		w := deliver(webhookServer(provider, new(mocks.MockIntentLedger), new(mocks.MockOrderLedger)), "{}")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "ignored", respStatus(t, w))
	})

	t.Run("non-approved payment is acknowledged with 200", func(t *testing.T) {
		pending := approved
		pending.Status = "pending"

		provider := new(mocks.MockProvider)
		provider.On("Name").Return("test").Maybe()
		provider.On("ParseWebhook", mock.Anything, mock.Anything).Return(pending, nil)

		ledger := new(mocks.MockOrderLedger)
		w := deliver(webhookServer(provider, new(mocks.MockIntentLedger), ledger), "{}")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "acknowledged", respStatus(t, w))
		ledger.AssertNotCalled(t, "FindByProviderPaymentID", mock.Anything, mock.Anything)
	})

	t.Run("approved payment reconciles to created", func(t *testing.T) {
		provider := new(mocks.MockProvider)
		provider.On("ParseWebhook", mock.Anything, mock.Anything).Return(approved, nil)

		intents := new(mocks.MockIntentLedger)
		ledger := new(mocks.MockOrderLedger)
		ledger.On("FindByProviderPaymentID", mock.Anything, "pay-1").Return(nil, nil)
		intents.On("Claim", mock.Anything, "ref-1").Return(payments.ProvisionalOrder{
			ID:                "prov-1",
			ExternalReference: "ref-1",
			TotalCents:        1000,
			Currency:          "USD",
			ContactEmail:      "ana@example.com",
		}, nil)
		ledger.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).Return(nil)

		w := deliver(webhookServer(provider, intents, ledger), "{}")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, string(payments.OutcomeCreated), respStatus(t, w))
	})

	t.Run("transient reconciliation failure still answers 200", func(t *testing.T) {
		provider := new(mocks.MockProvider)
		provider.On("ParseWebhook", mock.Anything, mock.Anything).Return(approved, nil)

		ledger := new(mocks.MockOrderLedger)
		ledger.On("FindByProviderPaymentID", mock.Anything, "pay-1").
			Return(nil, errors.New("db down"))

		w := deliver(webhookServer(provider, new(mocks.MockIntentLedger), ledger), "{}")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, string(payments.OutcomeTransientFailure), respStatus(t, w))
	})

	t.Run("expired session releases the provisional order", func(t *testing.T) {
		provider := new(mocks.MockProvider)
		provider.On("ParseWebhook", mock.Anything, mock.Anything).Return(payments.PaymentEvent{
			Kind:              payments.EventSessionExpired,
			ExternalReference: "ref-9",
		}, nil)

		intents := new(mocks.MockIntentLedger)
		intents.On("Release", mock.Anything, "ref-9").Return(nil)

		w := deliver(webhookServer(provider, intents, new(mocks.MockOrderLedger)), "{}")
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "abandoned", respStatus(t, w))
		intents.AssertExpectations(t)
	})
}
