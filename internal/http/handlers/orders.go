package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/middleware"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/validation"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/orders"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/shared/apperr"
)

// OrderHandlers covers the customer "my orders" views and the admin
// list/transition endpoints.
type OrderHandlers struct {
	repo    *orders.Repo
	service *orders.Service
}

func NewOrderHandlers(repo *orders.Repo, service *orders.Service) *OrderHandlers {
	return &OrderHandlers{repo: repo, service: service}
}

func (h *OrderHandlers) ListMine(c *gin.Context) {
	cu, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Authentication required."))
		return
	}

	res, err := h.repo.List(c.Request.Context(), orders.ListParams{
		UserID:   cu.ID,
		Page:     queryInt(c, "page", 1),
		PageSize: queryInt(c, "page_size", 30),
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, listJSON(res))
}

func (h *OrderHandlers) GetMine(c *gin.Context) {
	cu, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Authentication required."))
		return
	}

	o, items, err := h.repo.GetWithItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Order not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	if o.UserID == nil || *o.UserID != cu.ID {
		middleware.Fail(c, apperr.NotFoundErr("Order not found."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"order": orderJSON(o, items)})
}

func (h *OrderHandlers) AdminList(c *gin.Context) {
	res, err := h.repo.List(c.Request.Context(), orders.ListParams{
		Status:        c.Query("status"),
		PaymentStatus: c.Query("payment_status"),
		Page:          queryInt(c, "page", 1),
		PageSize:      queryInt(c, "page_size", 30),
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, listJSON(res))
}

func (h *OrderHandlers) AdminGet(c *gin.Context) {
	o, items, err := h.repo.GetWithItems(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, orders.ErrOrderNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Order not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	events, err := h.repo.ListEvents(c.Request.Context(), o.ID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	evts := make([]gin.H, 0, len(events))
	for _, ev := range events {
		evts = append(evts, gin.H{
			"action":     ev.Action,
			"from":       ev.FromStatus,
			"to":         ev.ToStatus,
			"actor":      ev.ActorUserID,
			"note":       ev.Note,
			"created_at": ev.CreatedAt,
		})
	}

	c.JSON(http.StatusOK, gin.H{
		"order":  orderJSON(o, items),
		"events": evts,
	})
}

type transitionRequest struct {
	Action string `json:"action" binding:"required,oneof=accept process ship deliver cancel"`
	Note   string `json:"note" binding:"max=500"`
}

func (h *OrderHandlers) AdminTransition(c *gin.Context) {
	var req transitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid transition.", validation.FromBindError(err, &req)))
		return
	}

	cu, _ := middleware.CurrentUser(c)
	to, err := h.service.Transition(c.Request.Context(), orders.TransitionInput{
		OrderID:     c.Param("id"),
		ActorUserID: cu.ID,
		Action:      req.Action,
		Note:        req.Note,
	})
	if err != nil {
		switch {
		case errors.Is(err, orders.ErrOrderNotFound):
			middleware.Fail(c, apperr.NotFoundErr("Order not found."))
		case errors.Is(err, orders.ErrInvalidTransition), errors.Is(err, orders.ErrNotActionable):
			middleware.Fail(c, apperr.ConflictErr("Transition not allowed from the current status."))
		default:
			middleware.Fail(c, apperr.Wrap(err))
		}
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": to})
}

func listJSON(res orders.ListResult) gin.H {
	out := make([]gin.H, 0, len(res.Items))
	for _, o := range res.Items {
		out = append(out, orderJSON(o, nil))
	}
	return gin.H{
		"orders": out,
		"total":  res.Total,
	}
}

func orderJSON(o orders.Order, items []orders.OrderItem) gin.H {
	h := gin.H{
		"id":                  o.ID,
		"contact_name":        o.ContactName,
		"contact_email":       o.ContactEmail,
		"total_cents":         o.TotalCents,
		"shipping_cents":      o.ShippingCents,
		"currency":            o.Currency,
		"status":              o.Status,
		"payment_status":      o.PaymentStatus,
		"payment_provider":    o.PaymentProvider,
		"payment_method":      o.PaymentMethod,
		"provider_payment_id": o.ProviderPaymentID,
		"created_at":          o.CreatedAt,
	}
	if items != nil {
		lines := make([]gin.H, 0, len(items))
		for _, it := range items {
			lines = append(lines, gin.H{
				"product_id":       it.ProductID,
				"name":             it.ProductName,
				"quantity":         it.Quantity,
				"unit_price_cents": it.UnitPriceCents,
				"currency":         it.Currency,
				"size":             it.Size,
				"color":            it.Color,
			})
		}
		h["items"] = lines
	}
	return h
}

func queryInt(c *gin.Context, key string, def int) int {
	v := c.Query(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}
