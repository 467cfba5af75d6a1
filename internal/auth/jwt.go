package auth

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const creatorIDKey = "auth.creator_id"

// RequireBearer verifies an HMAC-signed bearer token and stores its subject
// as the creator id. An empty secret rejects every request.
func RequireBearer(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if secret == "" {
			abort(c, "authentication is not configured")
			return
		}
		header := c.GetHeader("Authorization")
		if header == "" || !strings.HasPrefix(header, "Bearer ") {
			abort(c, "missing authorization header")
			return
		}

		claims := jwt.RegisteredClaims{}
		token, err := jwt.ParseWithClaims(strings.TrimPrefix(header, "Bearer "), &claims, func(token *jwt.Token) (any, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, jwt.ErrSignatureInvalid
			}
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			abort(c, "invalid token")
			return
		}
		if strings.TrimSpace(claims.Subject) == "" {
			abort(c, "token has no subject")
			return
		}

		c.Set(creatorIDKey, claims.Subject)
		c.Next()
	}
}

// CreatorID returns the authenticated subject set by RequireBearer
func CreatorID(c *gin.Context) (string, bool) {
	id := c.GetString(creatorIDKey)
	return id, id != ""
}

func abort(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": msg})
}
