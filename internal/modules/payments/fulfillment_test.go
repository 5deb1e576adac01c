package payments_test

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/mocks"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/orders"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/payments"
)

func approvedEvent(reference, paymentID string, amount int) payments.PaymentEvent {
	return payments.PaymentEvent{
		Kind:              payments.EventPayment,
		ExternalReference: reference,
		ProviderPaymentID: paymentID,
		AmountCents:       amount,
		Currency:          "USD",
		Status:            "approved",
		MethodType:        "credit_card",
	}
}

func provisionalFixture(reference string) payments.ProvisionalOrder {
	items, _ := json.Marshal([]payments.LineItem{
		{ProductID: "p-1", Name: "Sneakers", Quantity: 2, UnitPriceCents: 500, Currency: "USD", Size: "42"},
	})
	return payments.ProvisionalOrder{
		ID:                "prov-1",
		ExternalReference: reference,
		Provider:          "mercadopago",
		ItemsJSON:         items,
		TotalCents:        1000,
		Currency:          "USD",
		ContactName:       "Ana Gomez",
		ContactEmail:      "ana@example.com",
	}
}

func TestEngineReconcile(t *testing.T) {
	tests := []struct {
		name        string
		event       payments.PaymentEvent
		setupMocks  func(*mocks.MockIntentLedger, *mocks.MockOrderLedger)
		wantOutcome payments.Outcome
		wantErr     bool
	}{
		{
			name:  "creates order from claimed provisional order",
			event: approvedEvent("ref-1", "pay-1", 1000),
			setupMocks: func(intents *mocks.MockIntentLedger, ledger *mocks.MockOrderLedger) {
				ledger.On("FindByProviderPaymentID", mock.Anything, "pay-1").Return(nil, nil)
				intents.On("Claim", mock.Anything, "ref-1").Return(provisionalFixture("ref-1"), nil)
				ledger.On("CreateWithItems", mock.Anything, mock.AnythingOfType("*orders.Order"), mock.AnythingOfType("[]orders.OrderItem")).Return(nil)
			},
			wantOutcome: payments.OutcomeCreated,
		},
		{
			name:  "replayed delivery short-circuits on existing order",
			event: approvedEvent("ref-1", "pay-1", 1000),
			setupMocks: func(intents *mocks.MockIntentLedger, ledger *mocks.MockOrderLedger) {
				ledger.On("FindByProviderPaymentID", mock.Anything, "pay-1").Return(&orders.Order{ID: "ord-1"}, nil)
			},
			wantOutcome: payments.OutcomeAlreadyFulfilled,
		},
		{
			name:  "no provisional order is acknowledged without error",
			event: approvedEvent("ref-gone", "pay-2", 1000),
			setupMocks: func(intents *mocks.MockIntentLedger, ledger *mocks.MockOrderLedger) {
				ledger.On("FindByProviderPaymentID", mock.Anything, "pay-2").Return(nil, nil)
				intents.On("Claim", mock.Anything, "ref-gone").Return(payments.ProvisionalOrder{}, payments.ErrNoIntent)
			},
			wantOutcome: payments.OutcomeNoMatchingIntent,
		},
		{
			name:  "insert race suppressed by unique index",
			event: approvedEvent("ref-1", "pay-1", 1000),
			setupMocks: func(intents *mocks.MockIntentLedger, ledger *mocks.MockOrderLedger) {
				ledger.On("FindByProviderPaymentID", mock.Anything, "pay-1").Return(nil, nil)
				intents.On("Claim", mock.Anything, "ref-1").Return(provisionalFixture("ref-1"), nil)
				ledger.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).
					Return(&mysql.MySQLError{Number: 1062, Message: "Duplicate entry"})
			},
			wantOutcome: payments.OutcomeAlreadyFulfilled,
		},
		{
			name:  "persist failure after claim is transient",
			event: approvedEvent("ref-1", "pay-1", 1000),
			setupMocks: func(intents *mocks.MockIntentLedger, ledger *mocks.MockOrderLedger) {
				ledger.On("FindByProviderPaymentID", mock.Anything, "pay-1").Return(nil, nil)
				intents.On("Claim", mock.Anything, "ref-1").Return(provisionalFixture("ref-1"), nil)
				ledger.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).
					Return(errors.New("connection reset"))
			},
			wantOutcome: payments.OutcomeTransientFailure,
			wantErr:     true,
		},
		{
			name: "missing provider payment id is transient",
			event: payments.PaymentEvent{
				Kind:              payments.EventPayment,
				ExternalReference: "ref-1",
				Status:            "approved",
			},
			setupMocks:  func(*mocks.MockIntentLedger, *mocks.MockOrderLedger) {},
			wantOutcome: payments.OutcomeTransientFailure,
			wantErr:     true,
		},
		{
			name:  "lookup failure is transient",
			event: approvedEvent("ref-1", "pay-1", 1000),
			setupMocks: func(intents *mocks.MockIntentLedger, ledger *mocks.MockOrderLedger) {
				ledger.On("FindByProviderPaymentID", mock.Anything, "pay-1").
					Return(nil, errors.New("db down"))
			},
			wantOutcome: payments.OutcomeTransientFailure,
			wantErr:     true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			intents := new(mocks.MockIntentLedger)
			ledger := new(mocks.MockOrderLedger)
			tt.setupMocks(intents, ledger)

			engine := payments.NewEngine("mercadopago", intents, ledger)
			outcome, err := engine.Reconcile(context.Background(), tt.event)

			assert.Equal(t, tt.wantOutcome, outcome)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			intents.AssertExpectations(t)
			ledger.AssertExpectations(t)
		})
	}
}

func TestEngineReconcileProviderAmountWins(t *testing.T) {
	intents := new(mocks.MockIntentLedger)
	ledger := new(mocks.MockOrderLedger)

	// Checkout-time total was 1000, provider settled 950.
	ledger.On("FindByProviderPaymentID", mock.Anything, "pay-1").Return(nil, nil)
	intents.On("Claim", mock.Anything, "ref-1").Return(provisionalFixture("ref-1"), nil)

	var created *orders.Order
	ledger.On("CreateWithItems", mock.Anything, mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) {
			created = args.Get(1).(*orders.Order)
		}).Return(nil)

	engine := payments.NewEngine("mercadopago", intents, ledger)
	outcome, err := engine.Reconcile(context.Background(), approvedEvent("ref-1", "pay-1", 950))

	require.NoError(t, err)
	assert.Equal(t, payments.OutcomeCreated, outcome)
	require.NotNil(t, created)
	assert.Equal(t, 950, created.TotalCents)
	assert.Equal(t, orders.PaymentPaid, created.PaymentStatus)
	assert.Equal(t, "pay-1", created.ProviderPaymentID)
	assert.Equal(t, orders.StatusPlaced, created.Status)
}

// raceLedgers are in-memory fakes whose Claim is atomic under a mutex,
// mirroring the SELECT FOR UPDATE + DELETE transaction.
type raceIntentLedger struct {
	mu  sync.Mutex
	row *payments.ProvisionalOrder
}

func (l *raceIntentLedger) Claim(ctx context.Context, ref string) (payments.ProvisionalOrder, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.row == nil || l.row.ExternalReference != ref {
		return payments.ProvisionalOrder{}, payments.ErrNoIntent
	}
	row := *l.row
	l.row = nil
	// Mirrors the real ledger: a lapsed row is consumed but not handed out.
	if !row.ExpiresAt.IsZero() && !row.ExpiresAt.After(time.Now()) {
		return payments.ProvisionalOrder{}, payments.ErrNoIntent
	}
	return row, nil
}

func (l *raceIntentLedger) Release(ctx context.Context, ref string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.row = nil
	return nil
}

type raceOrderLedger struct {
	mu     sync.Mutex
	orders map[string]*orders.Order
}

func (l *raceOrderLedger) FindByProviderPaymentID(ctx context.Context, id string) (*orders.Order, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if o, ok := l.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, nil
}

func (l *raceOrderLedger) CreateWithItems(ctx context.Context, o *orders.Order, items []orders.OrderItem) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.orders[o.ProviderPaymentID]; ok {
		return &mysql.MySQLError{Number: 1062, Message: "Duplicate entry"}
	}
	l.orders[o.ProviderPaymentID] = o
	return nil
}

func TestEngineReconcileConcurrentDeliveries(t *testing.T) {
	const deliveries = 25

	row := provisionalFixture("ref-race")
	intents := &raceIntentLedger{row: &row}
	ledger := &raceOrderLedger{orders: map[string]*orders.Order{}}
	engine := payments.NewEngine("mercadopago", intents, ledger)

	ev := approvedEvent("ref-race", "pay-race", 1000)

	outcomes := make([]payments.Outcome, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			outcome, _ := engine.Reconcile(context.Background(), ev)
			outcomes[i] = outcome
		}(i)
	}
	wg.Wait()

	created := 0
	for _, o := range outcomes {
		switch o {
		case payments.OutcomeCreated:
			created++
		case payments.OutcomeAlreadyFulfilled, payments.OutcomeNoMatchingIntent:
		default:
			t.Fatalf("unexpected outcome: %s", o)
		}
	}
	assert.Equal(t, 1, created, "exactly one delivery must create the order")
	assert.Len(t, ledger.orders, 1)

	// A later replay of the same notification is a pure no-op.
	outcome, err := engine.Reconcile(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, payments.OutcomeAlreadyFulfilled, outcome)
}

func TestEngineReconcileExpiredIntent(t *testing.T) {
	row := provisionalFixture("ref-expired")
	row.ExpiresAt = time.Now().Add(-time.Minute)
	intents := &raceIntentLedger{row: &row}
	ledger := &raceOrderLedger{orders: map[string]*orders.Order{}}
	engine := payments.NewEngine("mercadopago", intents, ledger)

	ev := approvedEvent("ref-expired", "pay-exp", 1000)

	outcome, err := engine.Reconcile(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, payments.OutcomeNoMatchingIntent, outcome)
	assert.Empty(t, ledger.orders, "a lapsed intent must not become an order")
	assert.Nil(t, intents.row, "the lapsed row is consumed")

	// Redelivery keeps answering the same way.
	outcome, err = engine.Reconcile(context.Background(), ev)
	require.NoError(t, err)
	assert.Equal(t, payments.OutcomeNoMatchingIntent, outcome)
}

func TestEngineAbandon(t *testing.T) {
	intents := new(mocks.MockIntentLedger)
	ledger := new(mocks.MockOrderLedger)
	intents.On("Release", mock.Anything, "ref-1").Return(nil)

	engine := payments.NewEngine("checkout_session", intents, ledger)

	assert.NoError(t, engine.Abandon(context.Background(), "ref-1"))
	assert.NoError(t, engine.Abandon(context.Background(), ""), "blank reference is ignored")
	intents.AssertNumberOfCalls(t, "Release", 1)
}
