package payments

import (
	"context"
	"net/http"
	"net/url"
)

// LineItem is a priced checkout line. UnitPriceCents is always computed
// server-side from the catalog, never taken from the client.
type LineItem struct {
	ProductID      string `json:"product_id"`
	Name           string `json:"name"`
	Quantity       int    `json:"quantity"`
	UnitPriceCents int    `json:"unit_price_cents"`
	Currency       string `json:"currency"`
	Size           string `json:"size,omitempty"`
	Color          string `json:"color,omitempty"`
	ImageURL       string `json:"image_url,omitempty"`
}

// Contact is the buyer contact captured at checkout. Required for guest
// fulfillment; for authenticated checkouts it mirrors the account.
type Contact struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Address string `json:"address,omitempty"`
}

type IntentRequest struct {
	// ExternalReference correlates the provider session with our
	// provisional order; the provider echoes it back in the webhook.
	ExternalReference string
	Items             []LineItem
	ShippingCents     int
	TotalCents        int
	Currency          string
	Contact           Contact
}

type Intent struct {
	// ProviderSessionID is the provider's own handle for the attempt.
	ProviderSessionID string
	RedirectURL       string
}

const (
	// EventPayment carries a payment result for reconciliation.
	EventPayment = "payment"
	// EventSessionExpired signals an abandoned hosted-checkout session;
	// the matching provisional order can be released early.
	EventSessionExpired = "session_expired"
)

// PaymentEvent is the canonical form of a provider webhook notification.
type PaymentEvent struct {
	Kind string // EventPayment | EventSessionExpired

	ExternalReference string
	ProviderPaymentID string
	// AmountCents is the amount the provider confirms was captured. It is
	// authoritative over the provisional order's checkout-time total.
	AmountCents int
	Currency    string
	// Status is the provider's own status string ("approved", ...).
	Status     string
	MethodType string
	Payer      Contact
}

// Approved reports whether the provider settled the payment.
func (e PaymentEvent) Approved() bool { return e.Status == "approved" }

// WebhookRequest carries the raw inbound webhook in provider-neutral
// form: one provider notifies via query parameters, the other via a
// signed JSON body.
type WebhookRequest struct {
	Query  url.Values
	Header http.Header
	Body   []byte
}

// Provider hides the differences between the two payment gateways.
type Provider interface {
	Name() string

	// CreateIntent opens a remote payment session and returns the URL the
	// buyer is redirected to.
	CreateIntent(ctx context.Context, req IntentRequest) (Intent, error)

	// ParseWebhook validates and normalizes a provider notification.
	// Returns ErrEventIgnored for non-payment topics, ErrBadSignature for
	// unverifiable payloads and ErrGatewayUnavailable when the provider's
	// query API cannot confirm the payment.
	ParseWebhook(ctx context.Context, req WebhookRequest) (PaymentEvent, error)
}
