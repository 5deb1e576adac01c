package catalog

import (
	"time"

	"gorm.io/datatypes"
)

type Product struct {
	ID          string  `gorm:"type:char(36);primaryKey"`
	Name        string  `gorm:"type:varchar(255);not null"`
	Slug        string  `gorm:"type:varchar(255);not null;uniqueIndex:ux_products_slug"`
	Description string  `gorm:"type:text"`
	CategoryID  *string `gorm:"type:char(36);index:ix_products_category_id"`

	PriceCents   int    `gorm:"not null"`
	OfferPercent int    `gorm:"not null;default:0"` // 0..100
	Currency     string `gorm:"type:char(3);not null;default:'USD'"`
	Stock        int    `gorm:"not null;default:0"`

	Images []ProductImage `gorm:"foreignKey:ProductID"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Product) TableName() string { return "products" }

type ProductImage struct {
	ID         string    `gorm:"type:char(36);primaryKey"`
	ProductID  string    `gorm:"type:char(36);not null;index:ix_product_images_product_id"`
	StorageKey string    `gorm:"type:varchar(512);not null"`
	URL        string    `gorm:"type:varchar(512);not null"`
	Position   int       `gorm:"not null;default:0"`
	CreatedAt  time.Time `gorm:"type:datetime(3);not null"`
}

func (ProductImage) TableName() string { return "product_images" }

type Category struct {
	ID       string  `gorm:"type:char(36);primaryKey"`
	Name     string  `gorm:"type:varchar(255);not null"`
	Slug     string  `gorm:"type:varchar(255);not null;uniqueIndex:ux_categories_slug"`
	ParentID *string `gorm:"type:char(36);index:ix_categories_parent_id"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Category) TableName() string { return "categories" }

// HomeSection is a curated block on the storefront home page.
type HomeSection struct {
	ID       string `gorm:"type:char(36);primaryKey"`
	Title    string `gorm:"type:varchar(255);not null"`
	Position int    `gorm:"not null;default:0"`
	// ProductIDs is an ordered list of product ids, stored as JSON.
	ProductIDs datatypes.JSON `gorm:"type:json;not null"`

	CreatedAt time.Time `gorm:"type:datetime(3);not null"`
	UpdatedAt time.Time `gorm:"type:datetime(3);not null"`
}

func (HomeSection) TableName() string { return "home_sections" }
