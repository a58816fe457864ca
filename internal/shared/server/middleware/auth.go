package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	sharedauth "pdfchat-backend/internal/shared/auth"
	"pdfchat-backend/internal/shared/server/respond"
)

const (
	userIDKey    = "userId"
	userEmailKey = "userEmail"
)

// Principal is the authenticated caller attached to a request.
type Principal struct {
	UserID string
	Email  string
}

// TokenResolver maps a bearer token to the user it was issued for. A token
// that is bad or names no user yields an error wrapping
// sharedauth.ErrInvalidToken; any other error is a server failure.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (Principal, error)
}

// ResolverFunc adapts a function to TokenResolver.
type ResolverFunc func(ctx context.Context, token string) (Principal, error)

func (f ResolverFunc) Resolve(ctx context.Context, token string) (Principal, error) {
	return f(ctx, token)
}

// Auth requires a valid bearer token on every path except those starting
// with one of publicPrefixes.
func Auth(resolver TokenResolver, publicPrefixes ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		for _, prefix := range publicPrefixes {
			if strings.HasPrefix(path, prefix) {
				c.Next()
				return
			}
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))
		scheme, token, ok := strings.Cut(authHeader, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			respond.Unauthorized(c, "unauthorized", "missing or invalid token")
			return
		}

		principal, err := resolver.Resolve(c.Request.Context(), strings.TrimSpace(token))
		if err != nil && !errors.Is(err, sharedauth.ErrInvalidToken) {
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to validate credentials", nil)
			return
		}
		if err != nil || principal.UserID == "" {
			respond.Unauthorized(c, "unauthorized", "could not validate credentials")
			return
		}

		c.Set(userIDKey, principal.UserID)
		c.Set(userEmailKey, principal.Email)
		c.Next()
	}
}

// UserIDFromContext fetches the user ID set by the auth middleware.
func UserIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userIDKey)
}

// UserEmailFromContext fetches the user email set by the auth middleware.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userEmailKey)
}
