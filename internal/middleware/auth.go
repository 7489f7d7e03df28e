package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/pageza/larder/backend/internal/apierr"
	"github.com/pageza/larder/backend/internal/models"
	"github.com/pageza/larder/backend/internal/types"
)

const (
	ContextUserID   = "user_id"
	ContextUsername = "username"
)

// TokenValidator is an interface for validating JWT tokens
type TokenValidator interface {
	ValidateToken(token string) (*types.TokenClaims, error)
}

// UserGetter loads the account a token belongs to.
type UserGetter interface {
	Get(ctx context.Context, id uuid.UUID) (*models.User, error)
}

// Authenticator resolves "Authorization: Bearer <jwt>" (or "Token <jwt>")
// headers into a user id stored on the gin context.
type Authenticator struct {
	validator TokenValidator
	users     UserGetter
}

// NewAuthenticator returns an Authenticator. users may be nil, in which case
// a valid token is trusted without checking the account still exists.
func NewAuthenticator(validator TokenValidator, users UserGetter) *Authenticator {
	return &Authenticator{validator: validator, users: users}
}

// RequireAuth rejects requests without a valid token.
func (a *Authenticator) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			abortUnauthorized(c, "authentication credentials were not provided")
			return
		}
		if a.authenticate(c) {
			c.Next()
		}
	}
}

// OptionalAuth lets anonymous requests through but still rejects a
// malformed or invalid token.
func (a *Authenticator) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetHeader("Authorization") == "" {
			c.Next()
			return
		}
		if a.authenticate(c) {
			c.Next()
		}
	}
}

func (a *Authenticator) authenticate(c *gin.Context) bool {
	scheme, token, ok := strings.Cut(c.GetHeader("Authorization"), " ")
	if !ok || (scheme != "Bearer" && scheme != "Token") || strings.TrimSpace(token) == "" {
		abortUnauthorized(c, "invalid authorization header format")
		return false
	}

	claims, err := a.validator.ValidateToken(strings.TrimSpace(token))
	if err != nil {
		abortUnauthorized(c, "invalid or expired token")
		return false
	}

	if a.users != nil {
		user, err := a.users.Get(c.Request.Context(), claims.UserID)
		if err != nil || !user.IsActive {
			abortUnauthorized(c, "user not found or inactive")
			return false
		}
	}

	c.Set(ContextUserID, claims.UserID)
	c.Set(ContextUsername, claims.Username)
	return true
}

func abortUnauthorized(c *gin.Context, msg string) {
	c.Header("WWW-Authenticate", `Bearer realm="api"`)
	_ = c.Error(apierr.Unauthorized(msg))
	c.Abort()
}

// UserID returns the authenticated user's id, if any.
func UserID(c *gin.Context) (uuid.UUID, bool) {
	v, ok := c.Get(ContextUserID)
	if !ok {
		return uuid.Nil, false
	}
	id, ok := v.(uuid.UUID)
	return id, ok
}
