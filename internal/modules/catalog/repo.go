package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Repo struct{ db *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{db: db} }

func (r *Repo) List(ctx context.Context, categoryID string) ([]Product, error) {
	q := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		Order("updated_at DESC")
	if categoryID != "" {
		q = q.Where("category_id = ?", categoryID)
	}
	var items []Product
	err := q.Find(&items).Error
	return items, err
}

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	var p Product
	err := r.db.WithContext(ctx).
		Preload("Images", func(db *gorm.DB) *gorm.DB { return db.Order("position ASC") }).
		First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (r *Repo) CreateProduct(ctx context.Context, p Product) (Product, error) {
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now()
	p.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(&p).Error; err != nil {
		return Product{}, err
	}
	return p, nil
}

func (r *Repo) UpdateProduct(ctx context.Context, id string, updates map[string]any) error {
	updates["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&Product{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *Repo) DeleteProduct(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Delete(&ProductImage{}, "product_id = ?", id).Error; err != nil {
			return err
		}
		return tx.Delete(&Product{}, "id = ?", id).Error
	})
}

func (r *Repo) AddImage(ctx context.Context, productID, storageKey, url string, position int) (ProductImage, error) {
	im := ProductImage{
		ID:         uuid.NewString(),
		ProductID:  productID,
		StorageKey: storageKey,
		URL:        url,
		Position:   position,
		CreatedAt:  time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&im).Error; err != nil {
		return ProductImage{}, err
	}
	return im, nil
}

func (r *Repo) DeleteImage(ctx context.Context, productID, imageID string) (ProductImage, error) {
	var im ProductImage
	if err := r.db.WithContext(ctx).
		First(&im, "id = ? AND product_id = ?", imageID, productID).Error; err != nil {
		return ProductImage{}, err
	}
	err := r.db.WithContext(ctx).Delete(&ProductImage{}, "id = ?", im.ID).Error
	return im, err
}

// --- categories ---

func (r *Repo) ListCategories(ctx context.Context) ([]Category, error) {
	var items []Category
	err := r.db.WithContext(ctx).Order("name ASC").Find(&items).Error
	return items, err
}

func (r *Repo) CreateCategory(ctx context.Context, c Category) (Category, error) {
	c.ID = uuid.NewString()
	c.CreatedAt = time.Now()
	c.UpdatedAt = time.Now()
	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return Category{}, err
	}
	return c, nil
}

func (r *Repo) UpdateCategory(ctx context.Context, id string, updates map[string]any) error {
	updates["updated_at"] = time.Now()
	res := r.db.WithContext(ctx).Model(&Category{}).
		Where("id = ?", id).
		Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrCategoryNotFound
	}
	return nil
}

func (r *Repo) DeleteCategory(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&Category{}, "id = ?", id).Error
}

// --- home sections ---

func (r *Repo) ListHomeSections(ctx context.Context) ([]HomeSection, error) {
	var items []HomeSection
	err := r.db.WithContext(ctx).Order("position ASC").Find(&items).Error
	return items, err
}

func (r *Repo) CreateHomeSection(ctx context.Context, title string, position int, productIDs []byte) (HomeSection, error) {
	hs := HomeSection{
		ID:         uuid.NewString(),
		Title:      title,
		Position:   position,
		ProductIDs: datatypes.JSON(productIDs),
		CreatedAt:  time.Now(),
		UpdatedAt:  time.Now(),
	}
	if err := r.db.WithContext(ctx).Create(&hs).Error; err != nil {
		return HomeSection{}, err
	}
	return hs, nil
}

func (r *Repo) DeleteHomeSection(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Delete(&HomeSection{}, "id = ?", id).Error
}
