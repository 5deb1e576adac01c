package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/middleware"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/validation"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/cart"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/catalog"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/shared/apperr"
)

// CartHandlers serves the authenticated user's cart. Prices are never
// stored in the cart; they are resolved from the catalog on read so a
// price change is reflected immediately.
type CartHandlers struct {
	carts   *cart.Repo
	catalog *catalog.Service
}

func NewCartHandlers(carts *cart.Repo, catalogSvc *catalog.Service) *CartHandlers {
	return &CartHandlers{carts: carts, catalog: catalogSvc}
}

func (h *CartHandlers) userCart(c *gin.Context) (cart.Cart, bool) {
	cu, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Authentication required."))
		return cart.Cart{}, false
	}
	ct, err := h.carts.GetOrCreateUserCart(c.Request.Context(), cu.ID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return cart.Cart{}, false
	}
	return ct, true
}

func (h *CartHandlers) Get(c *gin.Context) {
	ct, ok := h.userCart(c)
	if !ok {
		return
	}

	items := make([]gin.H, 0, len(ct.Items))
	total := 0
	for _, it := range ct.Items {
		line := gin.H{
			"id":         it.ID,
			"product_id": it.ProductID,
			"quantity":   it.Quantity,
			"size":       it.Size,
			"color":      it.Color,
		}
		if p, err := h.catalog.FindProduct(c.Request.Context(), it.ProductID); err == nil {
			unit := p.UnitPriceCents()
			line["name"] = p.Name
			line["unit_price_cents"] = unit
			line["currency"] = p.Currency
			if len(p.Images) > 0 {
				line["image_url"] = p.Images[0].URL
			}
			total += unit * it.Quantity
		}
		items = append(items, line)
	}

	c.JSON(http.StatusOK, gin.H{
		"cart": gin.H{
			"id":          ct.ID,
			"items":       items,
			"total_cents": total,
		},
	})
}

type addItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Size      string `json:"size" binding:"max=32"`
	Color     string `json:"color" binding:"max=32"`
}

func (h *CartHandlers) AddItem(c *gin.Context) {
	var req addItemRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid cart item.", validation.FromBindError(err, &req)))
		return
	}

	if _, err := h.catalog.FindProduct(c.Request.Context(), req.ProductID); err != nil {
		middleware.Fail(c, apperr.NotFoundErr("Product not found."))
		return
	}

	ct, ok := h.userCart(c)
	if !ok {
		return
	}

	if err := h.carts.AddItem(c.Request.Context(), ct.ID, req.ProductID, req.Quantity, req.Size, req.Color); err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

type updateQtyRequest struct {
	Quantity int `json:"quantity" binding:"gte=0"`
}

func (h *CartHandlers) UpdateItem(c *gin.Context) {
	var req updateQtyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid quantity.", validation.FromBindError(err, &req)))
		return
	}

	ct, ok := h.userCart(c)
	if !ok {
		return
	}

	if err := h.carts.UpdateItemQty(c.Request.Context(), ct.ID, c.Param("itemID"), req.Quantity); err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *CartHandlers) RemoveItem(c *gin.Context) {
	ct, ok := h.userCart(c)
	if !ok {
		return
	}

	if err := h.carts.RemoveItem(c.Request.Context(), ct.ID, c.Param("itemID")); err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *CartHandlers) Clear(c *gin.Context) {
	ct, ok := h.userCart(c)
	if !ok {
		return
	}

	if err := h.carts.ClearCart(c.Request.Context(), ct.ID); err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
