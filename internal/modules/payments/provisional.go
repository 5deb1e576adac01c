package payments

import (
	"context"
	"errors"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultIntentTTL is how long an unclaimed provisional order survives.
const DefaultIntentTTL = time.Hour

// ProvisionalOrder is the short-lived intent record bridging
// checkout-initiation and webhook confirmation. It is created once,
// consumed-and-deleted exactly once, never updated.
type ProvisionalOrder struct {
	ID                string  `gorm:"type:char(36);primaryKey"`
	ExternalReference string  `gorm:"type:varchar(64);not null;uniqueIndex:ux_provisional_orders_reference"`
	ProviderSessionID string  `gorm:"type:varchar(128);not null;index:ix_provisional_orders_session"`
	Provider          string  `gorm:"type:varchar(32);not null"`
	UserID            *string `gorm:"type:char(36)"`

	ItemsJSON     datatypes.JSON `gorm:"type:json;not null"`
	TotalCents    int            `gorm:"not null"`
	ShippingCents int            `gorm:"not null;default:0"`
	Currency      string         `gorm:"type:char(3);not null"`

	ContactName  string         `gorm:"type:varchar(255)"`
	ContactEmail string         `gorm:"type:varchar(255)"`
	AddressJSON  datatypes.JSON `gorm:"type:json"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	ExpiresAt time.Time `gorm:"type:datetime(3);not null;index:ix_provisional_orders_expires_at"`
}

func (ProvisionalOrder) TableName() string { return "provisional_orders" }

func (p ProvisionalOrder) expired(now time.Time) bool {
	return !p.ExpiresAt.After(now)
}

// ProvisionalLedger persists provisional orders. Claim is the
// load-bearing primitive: a row-locked select plus delete in one
// transaction, so two concurrent claims for the same reference cannot
// both win.
type ProvisionalLedger struct {
	db  *gorm.DB
	ttl time.Duration
}

func NewProvisionalLedger(db *gorm.DB, ttl time.Duration) *ProvisionalLedger {
	if ttl <= 0 {
		ttl = DefaultIntentTTL
	}
	return &ProvisionalLedger{db: db, ttl: ttl}
}

func (l *ProvisionalLedger) TTL() time.Duration { return l.ttl }

func (l *ProvisionalLedger) Create(ctx context.Context, p *ProvisionalOrder) error {
	now := time.Now()
	p.CreatedAt = now
	p.ExpiresAt = now.Add(l.ttl)
	return l.db.WithContext(ctx).Create(p).Error
}

// Claim atomically removes and returns the provisional order for the
// reference. Exactly one concurrent caller receives the record; every
// other caller (and every caller after expiry) gets ErrNoIntent.
func (l *ProvisionalLedger) Claim(ctx context.Context, externalReference string) (ProvisionalOrder, error) {
	var claimed ProvisionalOrder
	var lapsed bool
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p ProvisionalOrder
		if err := tx.
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&p, "external_reference = ?", externalReference).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNoIntent
			}
			return err
		}

		res := tx.Delete(&ProvisionalOrder{}, "id = ?", p.ID)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected != 1 {
			return ErrNoIntent
		}

		// An expired row the sweeper has not collected yet counts as
		// absent. The delete above still commits, so it is gone either way.
		if p.expired(time.Now()) {
			lapsed = true
			return nil
		}
		claimed = p
		return nil
	})
	if err != nil {
		return ProvisionalOrder{}, err
	}
	if lapsed {
		return ProvisionalOrder{}, ErrNoIntent
	}
	return claimed, nil
}

// Release drops an unclaimed provisional order (abandoned checkout
// session). Missing rows are not an error.
func (l *ProvisionalLedger) Release(ctx context.Context, externalReference string) error {
	return l.db.WithContext(ctx).
		Delete(&ProvisionalOrder{}, "external_reference = ?", externalReference).Error
}

// DeleteExpired garbage-collects expired rows; returns how many went.
func (l *ProvisionalLedger) DeleteExpired(ctx context.Context) (int64, error) {
	res := l.db.WithContext(ctx).
		Delete(&ProvisionalOrder{}, "expires_at <= ?", time.Now())
	return res.RowsAffected, res.Error
}
