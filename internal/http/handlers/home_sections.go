package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/middleware"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/validation"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/catalog"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/shared/apperr"
)

// HomeSectionHandlers manages the curated storefront blocks.
type HomeSectionHandlers struct {
	repo *catalog.Repo
}

func NewHomeSectionHandlers(repo *catalog.Repo) *HomeSectionHandlers {
	return &HomeSectionHandlers{repo: repo}
}

func (h *HomeSectionHandlers) List(c *gin.Context) {
	sections, err := h.repo.ListHomeSections(c.Request.Context())
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	out := make([]gin.H, 0, len(sections))
	for _, s := range sections {
		var ids []string
		_ = json.Unmarshal(s.ProductIDs, &ids)
		out = append(out, gin.H{
			"id":          s.ID,
			"title":       s.Title,
			"position":    s.Position,
			"product_ids": ids,
		})
	}
	c.JSON(http.StatusOK, gin.H{"sections": out})
}

type homeSectionRequest struct {
	Title      string   `json:"title" binding:"required,min=1,max=255"`
	Position   int      `json:"position" binding:"gte=0"`
	ProductIDs []string `json:"product_ids" binding:"required,min=1"`
}

func (h *HomeSectionHandlers) Create(c *gin.Context) {
	var req homeSectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid section data.", validation.FromBindError(err, &req)))
		return
	}

	raw, err := json.Marshal(req.ProductIDs)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	s, err := h.repo.CreateHomeSection(c.Request.Context(), req.Title, req.Position, raw)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusCreated, gin.H{"section": gin.H{
		"id":          s.ID,
		"title":       s.Title,
		"position":    s.Position,
		"product_ids": req.ProductIDs,
	}})
}

func (h *HomeSectionHandlers) Delete(c *gin.Context) {
	if err := h.repo.DeleteHomeSection(c.Request.Context(), c.Param("id")); err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
