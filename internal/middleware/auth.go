package middleware

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/Pokatocz/quest-and-check/internal/services"
)

const (
	userIDKey = "user_id"
	tokenKey  = "token"

	// TestUserHeader names the caller directly when the server runs in test mode.
	TestUserHeader = "X-Test-User-ID"
)

type AuthMiddleware struct {
	tokenService *services.TokenService
	testMode     bool
}

func NewAuthMiddleware(tokenService *services.TokenService, testMode bool) *AuthMiddleware {
	return &AuthMiddleware{
		tokenService: tokenService,
		testMode:     testMode,
	}
}

func (m *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if m.testMode {
			if raw := c.GetHeader(TestUserHeader); raw != "" {
				id, err := strconv.ParseUint(raw, 10, 64)
				if err != nil || id == 0 {
					c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid " + TestUserHeader + " header"})
					return
				}
				c.Set(userIDKey, uint(id))
				c.Next()
				return
			}
		}

		tokenString, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authorization header required"})
			return
		}

		claims, err := m.tokenService.ValidateToken(tokenString)
		if err != nil {
			var storeErr *services.StoreError
			if errors.As(err, &storeErr) {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "storage unavailable"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired token"})
			return
		}

		c.Set(userIDKey, claims.UserID)
		c.Set(tokenKey, tokenString)
		c.Next()
	}
}

// bearerToken reads the Authorization header, falling back to the
// access_token query parameter for EventSource clients that cannot set headers.
func bearerToken(c *gin.Context) (string, bool) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		token := c.Query("access_token")
		return token, token != ""
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", false
	}
	return parts[1], true
}

func GetUserID(c *gin.Context) uint {
	userID, exists := c.Get(userIDKey)
	if !exists {
		return 0
	}
	return userID.(uint)
}

// GetToken returns the bearer token of the request, empty in test mode.
func GetToken(c *gin.Context) string {
	return c.GetString(tokenKey)
}
