package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/middleware"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/validation"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/cart"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/catalog"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/payments"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/shared/apperr"
)

// CheckoutHandlers opens payment sessions. Guests pass items in the
// request body; authenticated users with an empty items list check out
// their cart.
type CheckoutHandlers struct {
	intents       *payments.IntentService
	carts         *cart.Repo
	shippingCents int
}

func NewCheckoutHandlers(intents *payments.IntentService, carts *cart.Repo, shippingCents int) *CheckoutHandlers {
	return &CheckoutHandlers{intents: intents, carts: carts, shippingCents: shippingCents}
}

type checkoutItemRequest struct {
	ProductID string `json:"product_id" binding:"required,uuid"`
	Quantity  int    `json:"quantity" binding:"required,gt=0"`
	Size      string `json:"size" binding:"max=32"`
	Color     string `json:"color" binding:"max=32"`
}

type checkoutRequest struct {
	Items   []checkoutItemRequest `json:"items" binding:"omitempty,dive"`
	Name    string                `json:"name" binding:"required,min=1,max=255"`
	Email   string                `json:"email" binding:"required,email"`
	Address string                `json:"address" binding:"max=1000"`
}

func (h *CheckoutHandlers) Create(c *gin.Context) {
	var req checkoutRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid checkout data.", validation.FromBindError(err, &req)))
		return
	}

	var userID *string
	items := make([]payments.CheckoutItem, 0, len(req.Items))
	for _, it := range req.Items {
		items = append(items, payments.CheckoutItem{
			ProductID: it.ProductID,
			Quantity:  it.Quantity,
			Size:      it.Size,
			Color:     it.Color,
		})
	}

	if cu, ok := middleware.CurrentUser(c); ok {
		userID = &cu.ID
		if len(items) == 0 {
			ct, err := h.carts.GetOrCreateUserCart(c.Request.Context(), cu.ID)
			if err != nil {
				middleware.Fail(c, apperr.Wrap(err))
				return
			}
			for _, it := range ct.Items {
				items = append(items, payments.CheckoutItem{
					ProductID: it.ProductID,
					Quantity:  it.Quantity,
					Size:      it.Size,
					Color:     it.Color,
				})
			}
		}
	}

	if len(items) == 0 {
		middleware.Fail(c, apperr.InvalidErr("Nothing to check out.", nil))
		return
	}

	res, err := h.intents.CreateIntent(c.Request.Context(), payments.CreateIntentInput{
		Items:         items,
		UserID:        userID,
		ShippingCents: h.shippingCents,
		Contact: payments.Contact{
			Name:    req.Name,
			Email:   req.Email,
			Address: req.Address,
		},
	})
	if err != nil {
		if errors.Is(err, catalog.ErrProductNotFound) {
			middleware.Fail(c, apperr.InvalidErr("One of the products no longer exists.", nil))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"redirect_url":       res.RedirectURL,
		"external_reference": res.ExternalReference,
		"total_cents":        res.TotalCents,
	})
}
