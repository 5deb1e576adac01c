package handlers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/middleware"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/http/validation"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/modules/users"
	"github.com/Alejandro-Bernal-M/tienda-back/internal/shared/apperr"
)

// AuthHandlers serves register/login/logout and the current-user probe.
// Sessions are opaque bearer tokens backed by the sessions table.
type AuthHandlers struct {
	users   *users.Service
	sessCfg middleware.SessionCfg
}

func NewAuthHandlers(svc *users.Service, sessCfg middleware.SessionCfg) *AuthHandlers {
	return &AuthHandlers{users: svc, sessCfg: sessCfg}
}

type registerRequest struct {
	FirstName string `json:"first_name" binding:"required,min=1,max=100"`
	LastName  string `json:"last_name" binding:"required,min=1,max=100"`
	Email     string `json:"email" binding:"required,email"`
	Password  string `json:"password" binding:"required,min=8,max=72"`
}

func (h *AuthHandlers) Register(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid registration data.", validation.FromBindError(err, &req)))
		return
	}

	u, err := h.users.Register(c.Request.Context(), users.RegisterInput{
		FirstName: strings.TrimSpace(req.FirstName),
		LastName:  strings.TrimSpace(req.LastName),
		Email:     strings.ToLower(strings.TrimSpace(req.Email)),
		Password:  req.Password,
	})
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			middleware.Fail(c, apperr.ConflictErr("Email is already registered."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	sess, err := middleware.CreateSession(h.sessCfg, u.ID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"token":      sess.ID,
		"expires_at": sess.ExpiresAt.Format(time.RFC3339),
		"user":       userJSON(u),
	})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandlers) Login(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.Fail(c, apperr.InvalidErr("Invalid credentials.", validation.FromBindError(err, &req)))
		return
	}

	u, err := h.users.Authenticate(c.Request.Context(),
		strings.ToLower(strings.TrimSpace(req.Email)), req.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			middleware.Fail(c, apperr.UnauthorizedErr("Invalid email or password."))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	sess, err := middleware.CreateSession(h.sessCfg, u.ID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":      sess.ID,
		"expires_at": sess.ExpiresAt.Format(time.RFC3339),
		"user":       userJSON(u),
	})
}

func (h *AuthHandlers) Logout(c *gin.Context) {
	if v, ok := c.Get("session"); ok {
		if sess, ok := v.(*middleware.Session); ok {
			_ = middleware.DeleteSession(h.sessCfg, sess.ID)
		}
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

func (h *AuthHandlers) Me(c *gin.Context) {
	cu, ok := middleware.CurrentUser(c)
	if !ok {
		middleware.Fail(c, apperr.UnauthorizedErr("Authentication required."))
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": gin.H{
		"id":         cu.ID,
		"email":      cu.Email,
		"role":       cu.Role,
		"first_name": cu.FirstName,
		"last_name":  cu.LastName,
	}})
}

func userJSON(u users.User) gin.H {
	return gin.H{
		"id":         u.ID,
		"email":      u.Email,
		"role":       u.Role,
		"first_name": u.FirstName,
		"last_name":  u.LastName,
	}
}
