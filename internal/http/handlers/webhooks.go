package handlers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/payments"
)

const maxWebhookBody = 1 << 20 // 1 MiB

// WebhookHandlers receives payment provider notifications.
//
// Response code policy: 4xx only for payloads the provider should stop
// retrying (bad signature, unparseable body); 502 when the provider's
// own query API is unreachable so the notification is re-delivered;
// 200 for every reconciliation outcome, including transient internal
// failures, because the durable record of the payment lives with the
// provider and a later manual replay is always possible.
type WebhookHandlers struct {
	provider payments.Provider
	engine   *payments.Engine
	logger   *slog.Logger
}

func NewWebhookHandlers(provider payments.Provider, engine *payments.Engine, logger *slog.Logger) *WebhookHandlers {
	if logger == nil {
		logger = slog.Default()
	}
	return &WebhookHandlers{provider: provider, engine: engine, logger: logger}
}

func (h *WebhookHandlers) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
		return
	}

	ev, err := h.provider.ParseWebhook(c.Request.Context(), payments.WebhookRequest{
		Query:  c.Request.URL.Query(),
		Header: c.Request.Header,
		Body:   body,
	})
	if err != nil {
		switch {
		case errors.Is(err, payments.ErrEventIgnored):
			c.JSON(http.StatusOK, gin.H{"status": "ignored"})
		case errors.Is(err, payments.ErrBadSignature):
			h.logger.WarnContext(c.Request.Context(), "webhook rejected",
				"provider", h.provider.Name(), "err", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid signature"})
		case errors.Is(err, payments.ErrGatewayUnavailable):
			h.logger.WarnContext(c.Request.Context(), "webhook deferred: gateway unavailable",
				"provider", h.provider.Name(), "err", err)
			c.JSON(http.StatusBadGateway, gin.H{"error": "gateway unavailable"})
		default:
			h.logger.WarnContext(c.Request.Context(), "webhook unparseable",
				"provider", h.provider.Name(), "err", err)
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid payload"})
		}
		return
	}

	if ev.Kind == payments.EventSessionExpired {
		if err := h.engine.Abandon(c.Request.Context(), ev.ExternalReference); err != nil {
			h.logger.WarnContext(c.Request.Context(), "session abandon failed",
				"external_reference", ev.ExternalReference, "err", err)
		}
		c.JSON(http.StatusOK, gin.H{"status": "abandoned"})
		return
	}

	if !ev.Approved() {
		h.logger.InfoContext(c.Request.Context(), "non-approved payment acknowledged",
			"provider", h.provider.Name(),
			"provider_payment_id", ev.ProviderPaymentID,
			"payment_status", ev.Status)
		c.JSON(http.StatusOK, gin.H{"status": "acknowledged"})
		return
	}

	outcome, err := h.engine.Reconcile(c.Request.Context(), ev)
	if err != nil {
		h.logger.ErrorContext(c.Request.Context(), "reconciliation error",
			"provider_payment_id", ev.ProviderPaymentID, "err", err)
	}
	c.JSON(http.StatusOK, gin.H{"status": string(outcome)})
}
