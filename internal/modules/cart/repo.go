package cart

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) GetOrCreateUserCart(ctx context.Context, userID string) (Cart, error) {
	var c Cart
	err := r.db.WithContext(ctx).
		Where(Cart{UserID: &userID}).
		Attrs(Cart{ID: uuid.NewString(), CreatedAt: time.Now(), UpdatedAt: time.Now()}).
		FirstOrCreate(&c).Error
	if err != nil {
		return Cart{}, err
	}
	// FirstOrCreate does not preload; reload with the items attached.
	return r.GetCart(ctx, c.ID)
}

func (r *Repo) GetCart(ctx context.Context, cartID string) (Cart, error) {
	var c Cart
	err := r.db.WithContext(ctx).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("created_at ASC") }).
		First(&c, "id = ?", cartID).Error
	return c, err
}

// AddItem merges quantity into an existing line with the same
// product/size/color, otherwise creates a new line.
func (r *Repo) AddItem(ctx context.Context, cartID, productID string, qty int, size, color string) error {
	if qty < 1 {
		qty = 1
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing CartItem
		err := tx.First(&existing,
			"cart_id = ? AND product_id = ? AND size = ? AND color = ?",
			cartID, productID, size, color).Error
		if err == nil {
			return tx.Model(&CartItem{}).
				Where("id = ?", existing.ID).
				Updates(map[string]any{
					"quantity":   existing.Quantity + qty,
					"updated_at": time.Now(),
				}).Error
		}
		if err != gorm.ErrRecordNotFound {
			return err
		}

		item := CartItem{
			ID:        uuid.NewString(),
			CartID:    cartID,
			ProductID: productID,
			Quantity:  qty,
			Size:      size,
			Color:     color,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		return tx.Create(&item).Error
	})
}

func (r *Repo) UpdateItemQty(ctx context.Context, cartID, itemID string, qty int) error {
	if qty <= 0 {
		return r.db.WithContext(ctx).
			Where("cart_id = ? AND id = ?", cartID, itemID).
			Delete(&CartItem{}).Error
	}
	return r.db.WithContext(ctx).Model(&CartItem{}).
		Where("cart_id = ? AND id = ?", cartID, itemID).
		Updates(map[string]any{"quantity": qty, "updated_at": time.Now()}).Error
}

func (r *Repo) RemoveItem(ctx context.Context, cartID, itemID string) error {
	return r.db.WithContext(ctx).
		Where("cart_id = ? AND id = ?", cartID, itemID).
		Delete(&CartItem{}).Error
}

func (r *Repo) ClearCart(ctx context.Context, cartID string) error {
	return r.db.WithContext(ctx).Where("cart_id = ?", cartID).Delete(&CartItem{}).Error
}
