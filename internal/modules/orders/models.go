package orders

import (
	"time"

	"gorm.io/datatypes"
)

// Order lifecycle. Cancel is allowed from any state before delivered.
const (
	StatusPlaced     = "placed"
	StatusAccepted   = "accepted"
	StatusProcessing = "processing"
	StatusShipped    = "shipped"
	StatusDelivered  = "delivered"
	StatusCancelled  = "cancelled"
)

const (
	PaymentPending  = "pending"
	PaymentPaid     = "paid"
	PaymentFailed   = "failed"
	PaymentRefunded = "refunded"
)

// Order is the permanent, append-only record of a fulfilled purchase.
// Line items and payment identity are frozen at creation; only the two
// status columns are ever updated afterwards.
type Order struct {
	ID     string  `gorm:"type:char(36);primaryKey"`
	UserID *string `gorm:"type:char(36);index:ix_orders_user_id"`

	ContactName  string         `gorm:"type:varchar(255);not null"`
	ContactEmail string         `gorm:"type:varchar(255);not null;index:ix_orders_contact_email"`
	AddressJSON  datatypes.JSON `gorm:"type:json"`

	TotalCents    int    `gorm:"not null"`
	ShippingCents int    `gorm:"not null;default:0"`
	Currency      string `gorm:"type:char(3);not null"`

	// At most one order may ever exist per provider payment; the unique
	// index is the storage-level backstop for the reconciliation engine.
	PaymentProvider   string `gorm:"type:varchar(32);not null"`
	ProviderPaymentID string `gorm:"type:varchar(128);not null;uniqueIndex:ux_orders_provider_payment_id"`
	PaymentMethod     string `gorm:"type:varchar(64)"`
	ProviderStatus    string `gorm:"type:varchar(32)"`
	PaymentStatus     string `gorm:"type:varchar(32);not null;default:'pending'"`

	Status string `gorm:"type:varchar(32);not null;default:'placed'"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Order) TableName() string { return "orders" }

type OrderItem struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	OrderID   string `gorm:"type:char(36);not null;index:ix_order_items_order_id"`
	ProductID string `gorm:"type:char(36);not null"`

	ProductName    string `gorm:"type:varchar(255);not null"`
	Quantity       int    `gorm:"not null"`
	UnitPriceCents int    `gorm:"not null"`
	Currency       string `gorm:"type:char(3);not null"`
	Size           string `gorm:"type:varchar(32)"`
	Color          string `gorm:"type:varchar(32)"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (OrderItem) TableName() string { return "order_items" }

// OrderEvent is the audit trail row written on every status transition.
type OrderEvent struct {
	ID          string  `gorm:"type:char(36);primaryKey"`
	OrderID     string  `gorm:"type:char(36);not null;index:ix_order_events_order_id"`
	ActorUserID string  `gorm:"type:char(36);not null"`
	Action      string  `gorm:"type:varchar(32);not null"`
	FromStatus  string  `gorm:"type:varchar(32);not null"`
	ToStatus    string  `gorm:"type:varchar(32);not null"`
	Note        *string `gorm:"type:varchar(255)"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (OrderEvent) TableName() string { return "order_events" }
