package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"docmanager-backend/internal/shared/auth"
	"docmanager-backend/internal/shared/server/respond"
)

const (
	userEmailKey   = respond.UserEmailKey
	accessTokenKey = "accessToken"
)

// TokenResolver validates bearer tokens.
type TokenResolver interface {
	Resolve(ctx context.Context, token string) (auth.Claims, error)
}

// Auth requires a valid bearer token and stores the caller's email in context.
func Auth(resolver TokenResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}

		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			unauthorized(c, "Not authenticated")
			return
		}

		claims, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrTokenExpired):
				unauthorized(c, "Token has expired")
			case errors.Is(err, auth.ErrTokenRevoked), errors.Is(err, auth.ErrInvalidToken):
				unauthorized(c, "Could not validate credentials")
			default:
				respond.Internal(c, "failed to validate token", err)
			}
			return
		}

		c.Set(userEmailKey, claims.Email)
		c.Set(accessTokenKey, token)
		c.Next()
	}
}

func bearerToken(header string) (string, bool) {
	header = strings.TrimSpace(header)
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}

func unauthorized(c *gin.Context, message string) {
	c.Header("WWW-Authenticate", "Bearer")
	respond.Error(c, http.StatusUnauthorized, "unauthorized", message, nil)
}

// UserEmailFromContext fetches the caller email set by Auth.
func UserEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(userEmailKey)
}

// AccessTokenFromContext fetches the raw bearer token set by Auth.
func AccessTokenFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	return c.GetString(accessTokenKey)
}
