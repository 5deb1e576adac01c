// Package mocks holds hand-written testify mocks shared across test
// packages.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/catalog"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/orders"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/payments"
)

type MockIntentLedger struct {
	mock.Mock
}

func (m *MockIntentLedger) Claim(ctx context.Context, externalReference string) (payments.ProvisionalOrder, error) {
	args := m.Called(ctx, externalReference)
	return args.Get(0).(payments.ProvisionalOrder), args.Error(1)
}

func (m *MockIntentLedger) Release(ctx context.Context, externalReference string) error {
	args := m.Called(ctx, externalReference)
	return args.Error(0)
}

type MockIntentStore struct {
	mock.Mock
}

func (m *MockIntentStore) Create(ctx context.Context, p *payments.ProvisionalOrder) error {
	args := m.Called(ctx, p)
	return args.Error(0)
}

type MockOrderLedger struct {
	mock.Mock
}

func (m *MockOrderLedger) FindByProviderPaymentID(ctx context.Context, providerPaymentID string) (*orders.Order, error) {
	args := m.Called(ctx, providerPaymentID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*orders.Order), args.Error(1)
}

func (m *MockOrderLedger) CreateWithItems(ctx context.Context, o *orders.Order, items []orders.OrderItem) error {
	args := m.Called(ctx, o, items)
	return args.Error(0)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, data any) error {
	args := m.Called(ctx, routingKey, data)
	return args.Error(0)
}

type MockProvider struct {
	mock.Mock
}

func (m *MockProvider) Name() string {
	args := m.Called()
	return args.String(0)
}

func (m *MockProvider) CreateIntent(ctx context.Context, req payments.IntentRequest) (payments.Intent, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payments.Intent), args.Error(1)
}

func (m *MockProvider) ParseWebhook(ctx context.Context, req payments.WebhookRequest) (payments.PaymentEvent, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(payments.PaymentEvent), args.Error(1)
}

type MockProductFinder struct {
	mock.Mock
}

func (m *MockProductFinder) FindProduct(ctx context.Context, id string) (catalog.Product, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(catalog.Product), args.Error(1)
}
