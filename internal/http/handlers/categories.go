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
)

type CategoryHandlers struct {
	repo *catalog.Repo
}

func NewCategoryHandlers(repo *catalog.Repo) *CategoryHandlers {
	return &CategoryHandlers{repo: repo}
}

func (h *CategoryHandlers) List(c *gin.Context) {
	cats, err := h.repo.ListCategories(c.Request.Context())
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	out := make([]gin.H, 0, len(cats))
	for _, cat := range cats {
		out = append(out, categoryJSON(cat))
	}
	c.JSON(http.StatusOK, gin.H{"categories": out})
}

type categoryRequest struct {
	Name     string  `json:"name" binding:"required,min=1,max=255"`
	ParentID *string `json:"parent_id"`
}

func (h *CategoryHandlers) Create(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid category data.", validation.FromBindError(err, &req)))
		return
	}

	cat, err := h.repo.CreateCategory(c.Request.Context(), catalog.Category{
		Name:     req.Name,
		Slug:     slug.FromName(req.Name),
		ParentID: req.ParentID,
	})
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"category": categoryJSON(cat)})
}

func (h *CategoryHandlers) Update(c *gin.Context) {
	var req categoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid category data.", validation.FromBindError(err, &req)))
		return
	}

	updates := map[string]any{
		"name": req.Name,
		"slug": slug.FromName(req.Name),
	}
	if req.ParentID != nil {
		updates["parent_id"] = *req.ParentID
	}

	if err := h.repo.UpdateCategory(c.Request.Context(), c.Param("id"), updates); err != nil {
		if errors.Is(err, catalog.ErrCategoryNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Category not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *CategoryHandlers) Delete(c *gin.Context) {
	if err := h.repo.DeleteCategory(c.Request.Context(), c.Param("id")); err != nil {
		if errors.Is(err, catalog.ErrCategoryNotFound) {
			middleware.Fail(c, apperr.NotFoundErr("Category not found."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func categoryJSON(cat catalog.Category) gin.H {
	return gin.H{
		"id":        cat.ID,
		"name":      cat.Name,
		"slug":      cat.Slug,
		"parent_id": cat.ParentID,
	}
}
