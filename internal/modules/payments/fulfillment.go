package payments

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/mailer"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/orders"
)

// Outcome of a reconciliation attempt. AlreadyFulfilled and
// NoMatchingIntent are terminal non-error outcomes; TransientFailure
// means a post-claim persist failed and needs manual recovery.
type Outcome string

const (
	OutcomeCreated          Outcome = "created"
	OutcomeAlreadyFulfilled Outcome = "already_fulfilled"
	OutcomeNoMatchingIntent Outcome = "no_matching_intent"
	OutcomeTransientFailure Outcome = "transient_failure"
)

const claimTimeout = 5 * time.Second

// IntentLedger is the provisional-order side the engine consumes from.
type IntentLedger interface {
	Claim(ctx context.Context, externalReference string) (ProvisionalOrder, error)
	Release(ctx context.Context, externalReference string) error
}

// OrderLedger is the permanent side the engine writes to.
type OrderLedger interface {
	FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*orders.Order, error)
	CreateWithItems(ctx context.Context, o *orders.Order, items []orders.OrderItem) error
}

// EventPublisher fans out order.created to downstream consumers.
type EventPublisher interface {
	Publish(ctx context.Context, routingKey string, data any) error
}

// Engine converts a confirmed PaymentEvent plus its matching provisional
// order into a permanent order exactly once, safe under concurrent and
// duplicate webhook delivery. All coordination lives in the ledger's
// atomic claim; the engine itself holds no locks.
type Engine struct {
	provider  string
	intents   IntentLedger
	orders    OrderLedger
	publisher EventPublisher // optional
	mail      mailer.Service // optional
	mailFrom  string
	logger    *slog.Logger
}

func NewEngine(provider string, intents IntentLedger, orderLedger OrderLedger) *Engine {
	return &Engine{
		provider: provider,
		intents:  intents,
		orders:   orderLedger,
		logger:   slog.Default(),
	}
}

func (e *Engine) SetLogger(l *slog.Logger)      { e.logger = l }
func (e *Engine) SetPublisher(p EventPublisher) { e.publisher = p }
func (e *Engine) SetMailer(m mailer.Service, from string) {
	e.mail = m
	e.mailFrom = from
}

// Reconcile applies the two-tier idempotency algorithm: a fast duplicate
// check by provider payment id, then an atomic claim of the provisional
// order by external reference. The provider-confirmed amount is
// authoritative over the checkout-time estimate.
func (e *Engine) Reconcile(ctx context.Context, ev PaymentEvent) (Outcome, error) {
	if ev.ProviderPaymentID == "" {
		return OutcomeTransientFailure, errors.New("payment event missing provider payment id")
	}

	// Tier 1: short-circuit provider retry storms.
	existing, err := e.orders.FindByProviderPaymentID(ctx, ev.ProviderPaymentID)
	if err != nil {
		return OutcomeTransientFailure, err
	}
	if existing != nil {
		e.logger.InfoContext(ctx, "payment already fulfilled",
			"provider_payment_id", ev.ProviderPaymentID, "order_id", existing.ID)
		return OutcomeAlreadyFulfilled, nil
	}

	// Tier 2: atomic claim. Exactly one concurrent delivery wins the row.
	claimCtx, cancel := context.WithTimeout(ctx, claimTimeout)
	defer cancel()

	claimed, err := e.intents.Claim(claimCtx, ev.ExternalReference)
	if err != nil {
		if errors.Is(err, ErrNoIntent) {
			// Consumed by a concurrent delivery, expired, or never created.
			// Retrying cannot recover lost provisional state, so this is
			// acknowledged, not retried.
			e.logger.InfoContext(ctx, "no matching provisional order",
				"external_reference", ev.ExternalReference,
				"provider_payment_id", ev.ProviderPaymentID)
			return OutcomeNoMatchingIntent, nil
		}
		return OutcomeTransientFailure, err
	}

	order, items := e.buildOrder(claimed, ev)

	if err := e.orders.CreateWithItems(ctx, order, items); err != nil {
		if orders.IsDuplicate(err) {
			// Lost the insert race to a delivery that slipped past the fast
			// check; the unique index on provider_payment_id held.
			e.logger.WarnContext(ctx, "duplicate order insert suppressed",
				"provider_payment_id", ev.ProviderPaymentID)
			return OutcomeAlreadyFulfilled, nil
		}

		// The claim already consumed the provisional order, so this write
		// failure loses data unless recovered by hand. Dump the full record
		// at error severity; re-inserting it would recreate the race window.
		raw, _ := json.Marshal(claimed)
		e.logger.ErrorContext(ctx, "order persist failed after claim; provisional order lost",
			"external_reference", ev.ExternalReference,
			"provider_payment_id", ev.ProviderPaymentID,
			"claimed_record", string(raw),
			"err", err)
		return OutcomeTransientFailure, err
	}

	e.logger.InfoContext(ctx, "order created",
		"order_id", order.ID,
		"provider_payment_id", ev.ProviderPaymentID,
		"amount_cents", order.TotalCents)

	go e.publishCreated(order)
	go e.sendConfirmation(order)

	return OutcomeCreated, nil
}

// Abandon releases the provisional order for an expired checkout
// session; no permanent order will ever exist for it.
func (e *Engine) Abandon(ctx context.Context, externalReference string) error {
	if externalReference == "" {
		return nil
	}
	if err := e.intents.Release(ctx, externalReference); err != nil {
		return err
	}
	e.logger.InfoContext(ctx, "provisional order released",
		"external_reference", externalReference)
	return nil
}

func (e *Engine) buildOrder(claimed ProvisionalOrder, ev PaymentEvent) (*orders.Order, []orders.OrderItem) {
	now := time.Now()

	contactName := claimed.ContactName
	if contactName == "" {
		contactName = ev.Payer.Name
	}
	contactEmail := claimed.ContactEmail
	if contactEmail == "" {
		contactEmail = ev.Payer.Email
	}

	currency := ev.Currency
	if currency == "" {
		currency = claimed.Currency
	}

	paymentStatus := ev.Status
	if ev.Approved() {
		paymentStatus = orders.PaymentPaid
	}

	// The provider's settled amount wins over the checkout-time total.
	totalCents := ev.AmountCents

	order := &orders.Order{
		ID:                uuid.NewString(),
		UserID:            claimed.UserID,
		ContactName:       contactName,
		ContactEmail:      contactEmail,
		AddressJSON:       claimed.AddressJSON,
		TotalCents:        totalCents,
		ShippingCents:     claimed.ShippingCents,
		Currency:          currency,
		PaymentProvider:   e.provider,
		ProviderPaymentID: ev.ProviderPaymentID,
		PaymentMethod:     ev.MethodType,
		ProviderStatus:    ev.Status,
		PaymentStatus:     paymentStatus,
		Status:            orders.StatusPlaced,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	var lines []LineItem
	_ = json.Unmarshal(claimed.ItemsJSON, &lines)

	items := make([]orders.OrderItem, 0, len(lines))
	for _, ln := range lines {
		items = append(items, orders.OrderItem{
			ID:             uuid.NewString(),
			OrderID:        order.ID,
			ProductID:      ln.ProductID,
			ProductName:    ln.Name,
			Quantity:       ln.Quantity,
			UnitPriceCents: ln.UnitPriceCents,
			Currency:       ln.Currency,
			Size:           ln.Size,
			Color:          ln.Color,
			CreatedAt:      now,
		})
	}

	return order, items
}

func (e *Engine) publishCreated(order *orders.Order) {
	if e.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	evt := map[string]any{
		"order_id":            order.ID,
		"provider":            order.PaymentProvider,
		"provider_payment_id": order.ProviderPaymentID,
		"total_cents":         order.TotalCents,
		"currency":            order.Currency,
		"created_at":          order.CreatedAt,
	}
	if err := e.publisher.Publish(ctx, "order.created", evt); err != nil {
		e.logger.Warn("failed to publish order.created", "order_id", order.ID, "err", err)
	}
}

func (e *Engine) sendConfirmation(order *orders.Order) {
	if e.mail == nil || order.ContactEmail == "" {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	msg := mailer.Email{
		From:    e.mailFrom,
		To:      []string{order.ContactEmail},
		Subject: fmt.Sprintf("Order confirmed (#%s)", order.ID),
		TextBody: fmt.Sprintf(
			"Hi %s,\n\nYour payment was received and your order %s is confirmed.\nTotal: %d.%02d %s\n\nThank you for shopping with us.",
			order.ContactName, order.ID, order.TotalCents/100, order.TotalCents%100, order.Currency),
	}
	if err := e.mail.Send(ctx, msg); err != nil {
		e.logger.Warn("failed to send order confirmation", "order_id", order.ID, "err", err)
	}
}
