package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/middleware"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/validation"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/catalog"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/shared/apperr"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/shared/slug"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/storage"
)

const maxImageSize = 10 << 20 // 10 MiB

// ProductHandlers serves the public catalog plus the admin CRUD and
// image upload endpoints.
type ProductHandlers struct {
	repo    *catalog.Repo
	service *catalog.Service
	store   storage.Storage
}

func NewProductHandlers(repo *catalog.Repo, service *catalog.Service, store storage.Storage) *ProductHandlers {
	return &ProductHandlers{repo: repo, service: service, store: store}
}

func (h *ProductHandlers) List(c *gin.Context) {
	products, err := h.repo.List(c.Request.Context(), c.Query("category_id"))
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	out := make([]gin.H, 0, len(products))
	for _, p := range products {
		out = append(out, productJSON(p))
	}
	c.JSON(http.StatusOK, gin.H{"products": out})
}

func (h *ProductHandlers) Get(c *gin.Context) {
	p, err := h.service.FindProduct(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Product not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"product": productJSON(p)})
}

type createProductRequest struct {
	Name         string  `json:"name" binding:"required,min=1,max=255"`
	Description  string  `json:"description"`
	CategoryID   *string `json:"category_id"`
	PriceCents   int     `json:"price_cents" binding:"required,gt=0"`
	OfferPercent int     `json:"offer_percent" binding:"gte=0,lte=100"`
	Currency     string  `json:"currency" binding:"omitempty,len=3"`
	Stock        int     `json:"stock" binding:"gte=0"`
}

func (h *ProductHandlers) Create(c *gin.Context) {
	var req createProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid product data.", validation.FromBindError(err, &req)))
		return
	}

	currency := req.Currency
	if currency == "" {
		currency = "USD"
	}

	p, err := h.repo.CreateProduct(c.Request.Context(), catalog.Product{
		Name:         req.Name,
		Slug:         slug.FromName(req.Name),
		Description:  req.Description,
		CategoryID:   req.CategoryID,
		PriceCents:   req.PriceCents,
		OfferPercent: req.OfferPercent,
		Currency:     currency,
		Stock:        req.Stock,
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"product": productJSON(p)})
}

type updateProductRequest struct {
	Name         *string `json:"name" binding:"omitempty,min=1,max=255"`
	Description  *string `json:"description"`
	CategoryID   *string `json:"category_id"`
	PriceCents   *int    `json:"price_cents" binding:"omitempty,gt=0"`
	OfferPercent *int    `json:"offer_percent" binding:"omitempty,gte=0,lte=100"`
	Stock        *int    `json:"stock" binding:"omitempty,gte=0"`
}

func (h *ProductHandlers) Update(c *gin.Context) {
	var req updateProductRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid product data.", validation.FromBindError(err, &req)))
		return
	}

	updates := map[string]any{}
	if req.Name != nil {
		updates["name"] = *req.Name
		updates["slug"] = slug.FromName(*req.Name)
	}
	if req.Description != nil {
		updates["description"] = *req.Description
	}
	if req.CategoryID != nil {
		updates["category_id"] = *req.CategoryID
	}
	if req.PriceCents != nil {
		updates["price_cents"] = *req.PriceCents
	}
	if req.OfferPercent != nil {
		updates["offer_percent"] = *req.OfferPercent
	}
	if req.Stock != nil {
		updates["stock"] = *req.Stock
	}
	if len(updates) == 0 {
		middleware.Fail(c, apperr.InvalidErr("Nothing to update.", nil))
		return
	}

	id := c.Param("id")
	if err := h.repo.UpdateProduct(c.Request.Context(), id, updates); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Product not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	h.service.Invalidate(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *ProductHandlers) Delete(c *gin.Context) {
	id := c.Param("id")
	if err := h.repo.DeleteProduct(c.Request.Context(), id); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Product not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	h.service.Invalidate(c.Request.Context(), id)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// UploadImage accepts a multipart form with a single "image" file and
// attaches it to the product.
func (h *ProductHandlers) UploadImage(c *gin.Context) {
	productID := c.Param("id")
	if _, err := h.repo.Get(c.Request.Context(), productID); err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Product not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	fh, err := c.FormFile("image")
	if err != nil {
		middleware.Fail(c, apperr.InvalidErr("Image file required.", nil))
		return
	}
	if fh.Size > maxImageSize {
		middleware.Fail(c, apperr.InvalidErr("Image exceeds the 10MB limit.", nil))
		return
	}

	f, err := fh.Open()
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	defer f.Close()

	res, err := h.store.Put(c.Request.Context(), f, storage.PutInput{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Size:        fh.Size,
	})
	if err != nil {
		if errors.Is(err, storage.ErrUnsupportedType) {
			middleware.Fail(c, apperr.InvalidErr("Unsupported image type.", nil))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	position := 0
	img, err := h.repo.AddImage(c.Request.Context(), productID, res.Key, res.URL, position)
	if err != nil {
		_ = h.store.Delete(c.Request.Context(), res.Key)
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	h.service.Invalidate(c.Request.Context(), productID)

	c.JSON(http.StatusCreated, gin.H{"image": gin.H{
		"id":       img.ID,
		"url":      img.URL,
		"position": img.Position,
	}})
}

func (h *ProductHandlers) DeleteImage(c *gin.Context) {
	productID := c.Param("id")
	img, err := h.repo.DeleteImage(c.Request.Context(), productID, c.Param("imageID"))
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Image not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	_ = h.store.Delete(c.Request.Context(), img.StorageKey)
	h.service.Invalidate(c.Request.Context(), productID)
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func productJSON(p catalog.Product) gin.H {
	images := make([]gin.H, 0, len(p.Images))
	for _, img := range p.Images {
		images = append(images, gin.H{
			"id":       img.ID,
			"url":      img.URL,
			"position": img.Position,
		})
	}
	return gin.H{
		"id":               p.ID,
		"name":             p.Name,
		"slug":             p.Slug,
		"description":      p.Description,
		"category_id":      p.CategoryID,
		"price_cents":      p.PriceCents,
		"offer_percent":    p.OfferPercent,
		"unit_price_cents": p.UnitPriceCents(),
		"currency":         p.Currency,
		"stock":            p.Stock,
		"images":           images,
	}
}
