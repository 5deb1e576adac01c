package payments

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"gorm.io/datatypes"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/catalog"
)

// ProductFinder is the read-only slice of the catalog the payment core
// needs: price, offer and stock truth at intent-creation time.
type ProductFinder interface {
	FindProduct(ctx context.Context, id string) (catalog.Product, error)
}

// IntentStore is the write side of the provisional ledger the checkout
// path needs.
type IntentStore interface {
	Create(ctx context.Context, p *ProvisionalOrder) error
}

// IntentService initiates checkout: it prices the cart from the catalog
// (never trusting client-supplied prices), opens a remote payment
// session and persists the provisional order the webhook will later
// claim.
type IntentService struct {
	catalog  ProductFinder
	provider Provider
	ledger   IntentStore
	logger   *slog.Logger
}

func NewIntentService(finder ProductFinder, provider Provider, ledger IntentStore) *IntentService {
	return &IntentService{
		catalog:  finder,
		provider: provider,
		ledger:   ledger,
		logger:   slog.Default(),
	}
}

func (s *IntentService) SetLogger(l *slog.Logger) { s.logger = l }

type CheckoutItem struct {
	ProductID string
	Quantity  int
	Size      string
	Color     string
}

type CreateIntentInput struct {
	Items         []CheckoutItem
	UserID        *string
	ShippingCents int
	Contact       Contact
}

type CreateIntentResult struct {
	RedirectURL       string
	ExternalReference string
	TotalCents        int
}

// CreateIntent prices every line from the catalog concurrently, creates
// the remote session and stores the provisional order. Any unknown
// product aborts before the remote call; if the provisional write fails
// after the remote call the session is orphaned and only logged; it
// will never be reconciled and expires provider-side.
func (s *IntentService) CreateIntent(ctx context.Context, in CreateIntentInput) (CreateIntentResult, error) {
	if len(in.Items) == 0 {
		return CreateIntentResult{}, catalog.ErrProductNotFound
	}

	lines := make([]LineItem, len(in.Items))
	var mu sync.Mutex
	currency := ""

	g, gctx := errgroup.WithContext(ctx)
	for i, item := range in.Items {
		i, item := i, item
		g.Go(func() error {
			p, err := s.catalog.FindProduct(gctx, item.ProductID)
			if err != nil {
				return err
			}

			qty := item.Quantity
			if qty < 1 {
				qty = 1
			}

			imageURL := ""
			if len(p.Images) > 0 {
				imageURL = p.Images[0].URL
			}

			mu.Lock()
			currency = p.Currency
			mu.Unlock()

			lines[i] = LineItem{
				ProductID:      p.ID,
				Name:           p.Name,
				Quantity:       qty,
				UnitPriceCents: p.UnitPriceCents(),
				Currency:       p.Currency,
				Size:           item.Size,
				Color:          item.Color,
				ImageURL:       imageURL,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CreateIntentResult{}, err
	}

	total := in.ShippingCents
	for _, ln := range lines {
		total += ln.UnitPriceCents * ln.Quantity
	}

	reference := uuid.NewString()

	intent, err := s.provider.CreateIntent(ctx, IntentRequest{
		ExternalReference: reference,
		Items:             lines,
		ShippingCents:     in.ShippingCents,
		TotalCents:        total,
		Currency:          currency,
		Contact:           in.Contact,
	})
	if err != nil {
		return CreateIntentResult{}, err
	}

	itemsJSON, err := json.Marshal(lines)
	if err != nil {
		return CreateIntentResult{}, err
	}
	var addrJSON datatypes.JSON
	if in.Contact.Address != "" {
		raw, _ := json.Marshal(map[string]string{"address": in.Contact.Address})
		addrJSON = raw
	}

	p := &ProvisionalOrder{
		ID:                uuid.NewString(),
		ExternalReference: reference,
		ProviderSessionID: intent.ProviderSessionID,
		Provider:          s.provider.Name(),
		UserID:            in.UserID,
		ItemsJSON:         itemsJSON,
		TotalCents:        total,
		ShippingCents:     in.ShippingCents,
		Currency:          currency,
		ContactName:       in.Contact.Name,
		ContactEmail:      in.Contact.Email,
		AddressJSON:       addrJSON,
	}
	if err := s.ledger.Create(ctx, p); err != nil {
		// The remote session now has no provisional order to reconcile
		// against; it will simply expire unclaimed.
		s.logger.WarnContext(ctx, "payment intent orphaned: provisional order persist failed",
			"external_reference", reference,
			"provider_session_id", intent.ProviderSessionID,
			"err", err)
		return CreateIntentResult{}, err
	}

	s.logger.InfoContext(ctx, "payment intent created",
		"external_reference", reference,
		"provider", s.provider.Name(),
		"total_cents", total)

	return CreateIntentResult{
		RedirectURL:       intent.RedirectURL,
		ExternalReference: reference,
		TotalCents:        total,
	}, nil
}
