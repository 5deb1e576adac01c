package payments_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/mocks"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/catalog"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/payments"
)

func TestUnitPriceCents(t *testing.T) {
	tests := []struct {
		name  string
		price int
		offer int
		want  int
	}{
		{"no offer", 1000, 0, 1000},
		{"20 percent off", 1000, 20, 800},
		{"rounds half up", 999, 15, 849}, // 999*85=84915 -> 849.15 -> 849
		{"full discount", 1000, 100, 0},
		{"offer clamped below zero", 1000, -5, 1000},
		{"offer clamped above hundred", 1000, 150, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := catalog.Product{PriceCents: tt.price, OfferPercent: tt.offer}
			assert.Equal(t, tt.want, p.UnitPriceCents())
		})
	}
}

func TestIntentServiceCreateIntentPricesFromCatalog(t *testing.T) {
	finder := new(mocks.MockProductFinder)
	provider := new(mocks.MockProvider)
	store := new(mocks.MockIntentStore)

	finder.On("FindProduct", mock.Anything, "p-1").Return(catalog.Product{
		ID: "p-1", Name: "Sneakers", PriceCents: 1000, OfferPercent: 20, Currency: "USD",
	}, nil)
	finder.On("FindProduct", mock.Anything, "p-2").Return(catalog.Product{
		ID: "p-2", Name: "Socks", PriceCents: 300, Currency: "USD",
	}, nil)

	provider.On("Name").Return("mercadopago")
	var sent payments.IntentRequest
	provider.On("CreateIntent", mock.Anything, mock.AnythingOfType("payments.IntentRequest")).
		Run(func(args mock.Arguments) {
			sent = args.Get(1).(payments.IntentRequest)
		}).
		Return(payments.Intent{ProviderSessionID: "pref-1", RedirectURL: "https://pay.example/p"}, nil)

	var stored *payments.ProvisionalOrder
	store.On("Create", mock.Anything, mock.AnythingOfType("*payments.ProvisionalOrder")).
		Run(func(args mock.Arguments) {
			stored = args.Get(1).(*payments.ProvisionalOrder)
		}).Return(nil)

	svc := payments.NewIntentService(finder, provider, store)

	res, err := svc.CreateIntent(context.Background(), payments.CreateIntentInput{
		Items: []payments.CheckoutItem{
			{ProductID: "p-1", Quantity: 2},
			{ProductID: "p-2", Quantity: 1},
		},
		ShippingCents: 500,
		Contact:       payments.Contact{Name: "Ana", Email: "ana@example.com"},
	})
	require.NoError(t, err)

	// Client never supplied prices; the catalog did.
	require.Len(t, sent.Items, 2)
	assert.Equal(t, 800, sent.Items[0].UnitPriceCents, "offer applied server-side")
	assert.Equal(t, 300, sent.Items[1].UnitPriceCents)
	assert.Equal(t, 2*800+300+500, sent.TotalCents)
	assert.Equal(t, "USD", sent.Currency)
	assert.NotEmpty(t, sent.ExternalReference)

	assert.Equal(t, "https://pay.example/p", res.RedirectURL)
	assert.Equal(t, sent.ExternalReference, res.ExternalReference)
	assert.Equal(t, sent.TotalCents, res.TotalCents)

	require.NotNil(t, stored)
	assert.Equal(t, sent.ExternalReference, stored.ExternalReference)
	assert.Equal(t, "pref-1", stored.ProviderSessionID)
	assert.Equal(t, sent.TotalCents, stored.TotalCents)
	assert.Equal(t, "ana@example.com", stored.ContactEmail)
}

func TestIntentServiceCreateIntentUnknownProductAborts(t *testing.T) {
	finder := new(mocks.MockProductFinder)
	provider := new(mocks.MockProvider)
	store := new(mocks.MockIntentStore)

	finder.On("FindProduct", mock.Anything, mock.Anything).
		Return(catalog.Product{}, catalog.ErrProductNotFound)

	svc := payments.NewIntentService(finder, provider, store)

	_, err := svc.CreateIntent(context.Background(), payments.CreateIntentInput{
		Items:   []payments.CheckoutItem{{ProductID: "missing", Quantity: 1}},
		Contact: payments.Contact{Name: "Ana", Email: "ana@example.com"},
	})

	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
	provider.AssertNotCalled(t, "CreateIntent", mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestIntentServiceCreateIntentOrphanedSession(t *testing.T) {
	finder := new(mocks.MockProductFinder)
	provider := new(mocks.MockProvider)
	store := new(mocks.MockIntentStore)

	finder.On("FindProduct", mock.Anything, "p-1").Return(catalog.Product{
		ID: "p-1", Name: "Sneakers", PriceCents: 1000, Currency: "USD",
	}, nil)
	provider.On("Name").Return("mercadopago")
	provider.On("CreateIntent", mock.Anything, mock.Anything).
		Return(payments.Intent{ProviderSessionID: "pref-1", RedirectURL: "https://pay.example/p"}, nil)

	// The remote session exists but the provisional write fails; the
	// caller must see the error so no buyer is redirected to a session
	// that can never be reconciled.
	store.On("Create", mock.Anything, mock.Anything).Return(errors.New("db down"))

	svc := payments.NewIntentService(finder, provider, store)

	_, err := svc.CreateIntent(context.Background(), payments.CreateIntentInput{
		Items:   []payments.CheckoutItem{{ProductID: "p-1", Quantity: 1}},
		Contact: payments.Contact{Name: "Ana", Email: "ana@example.com"},
	})
	assert.Error(t, err)
}

func TestIntentServiceCreateIntentEmptyItems(t *testing.T) {
	svc := payments.NewIntentService(new(mocks.MockProductFinder), new(mocks.MockProvider), new(mocks.MockIntentStore))

	_, err := svc.CreateIntent(context.Background(), payments.CreateIntentInput{})
	assert.Error(t, err)
}
