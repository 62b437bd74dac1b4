package mw

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// Context keys set by Auth for downstream handlers.
const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

// RoleSectionAdmin may trigger dispatches and inspect delivery history.
const RoleSectionAdmin = "section_admin"

// Auth verifies the Bearer token on every request and stores the subject and
// role claims on the context. Token issuance belongs to the external auth
// service; this middleware only validates.
func Auth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := bearerToken(c.Request)
		if raw == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing bearer token"})
			return
		}

		token, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
			if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		sub, _ := claims["sub"].(string)
		if sub == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "token has no subject"})
			return
		}
		role, _ := claims["role"].(string)

		c.Set(CtxUserID, sub)
		c.Set(CtxRole, role)
		c.Next()
	}
}

// RequireRole rejects authenticated requests whose role claim does not match.
func RequireRole(role string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetString(CtxRole) != role {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "insufficient role"})
			return
		}
		c.Next()
	}
}

func bearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}
