package cart

import "time"

type Cart struct {
	ID     string  `gorm:"type:char(36);primaryKey"`
	UserID *string `gorm:"type:char(36);uniqueIndex:ux_carts_user_id"`

	Items []CartItem `gorm:"foreignKey:CartID"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Cart) TableName() string { return "carts" }

type CartItem struct {
	ID        string `gorm:"type:char(36);primaryKey"`
	CartID    string `gorm:"type:char(36);not null;index:ix_cart_items_cart_id"`
	ProductID string `gorm:"type:char(36);not null"`
	Quantity  int    `gorm:"not null"`
	Size      string `gorm:"type:varchar(32)"`
	Color     string `gorm:"type:varchar(32)"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (CartItem) TableName() string { return "cart_items" }
