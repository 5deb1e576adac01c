package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SessionCfg holds configuration for session middleware.
type SessionCfg struct {
	DB  *gorm.DB
	TTL time.Duration
}

// Session is a database-backed session model. Tokens are opaque UUIDs
// presented as "Authorization: Bearer <token>".
type Session struct {
	ID         string    `gorm:"primaryKey;type:char(36)"`
	UserID     string    `gorm:"type:char(36);not null;index:ix_sessions_user_id"`
	ExpiresAt  time.Time `gorm:"type:datetime(3);not null"`
	CreatedAt  time.Time `gorm:"type:datetime(3);not null"`
	LastSeenAt time.Time `gorm:"type:datetime(3);not null"`
}

func (Session) TableName() string { return "sessions" }

// SessionMiddleware resolves the bearer token to a session and puts the
// user's identity into the request context. Missing or invalid tokens are
// not an error here; RequireAuth decides whether auth is mandatory.
func SessionMiddleware(cfg SessionCfg) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.Next()
			return
		}

		var sess Session
		if err := cfg.DB.Where("id = ? AND expires_at > ?", token, time.Now()).First(&sess).Error; err != nil {
			c.Next()
			return
		}

		c.Set("session", &sess)
		c.Set("user_id", sess.UserID)

		var userEmail, userRole, firstName, lastName string
		row := cfg.DB.Table("users").
			Select("email", "role", "first_name", "last_name").
			Where("id = ?", sess.UserID).Row()
		if err := row.Scan(&userEmail, &userRole, &firstName, &lastName); err == nil {
			c.Set("user_email", userEmail)
			c.Set("user_role", userRole)
			c.Set("user_first_name", firstName)
			c.Set("user_last_name", lastName)
		}

		c.Next()
	}
}

// CreateSession creates a new session for the given user.
func CreateSession(cfg SessionCfg, userID string) (*Session, error) {
	now := time.Now()
	sess := &Session{
		ID:         uuid.NewString(),
		UserID:     userID,
		ExpiresAt:  now.Add(cfg.TTL),
		CreatedAt:  now,
		LastSeenAt: now,
	}
	if err := cfg.DB.Create(sess).Error; err != nil {
		return nil, err
	}
	return sess, nil
}

// DeleteSession removes a session by ID.
func DeleteSession(cfg SessionCfg, sessionID string) error {
	return cfg.DB.Delete(&Session{}, "id = ?", sessionID).Error
}

func bearerToken(c *gin.Context) string {
	h := c.GetHeader("Authorization")
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// ContextUser represents the authenticated user stored in request context.
type ContextUser struct {
	ID        string
	Email     string
	Role      string
	FirstName string
	LastName  string
}

// CurrentUser retrieves the authenticated user from the gin context.
func CurrentUser(c *gin.Context) (ContextUser, bool) {
	userIDVal, exists := c.Get("user_id")
	if !exists {
		return ContextUser{}, false
	}

	userID, ok := userIDVal.(string)
	if !ok || userID == "" {
		return ContextUser{}, false
	}

	u := ContextUser{ID: userID}
	if v, ok := c.Get("user_email"); ok {
		u.Email, _ = v.(string)
	}
	if v, ok := c.Get("user_role"); ok {
		u.Role, _ = v.(string)
	}
	if v, ok := c.Get("user_first_name"); ok {
		u.FirstName, _ = v.(string)
	}
	if v, ok := c.Get("user_last_name"); ok {
		u.LastName, _ = v.(string)
	}
	return u, true
}
