package middleware

import (
	"net/http"
	"strings"

	"tillpos/internal/apierror"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

const (
	ClaimsKey = "claims"
)

// JWTClaims are the custom claims embedded in every access token.
type JWTClaims struct {
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	Role     string `json:"role"`
	jwt.RegisteredClaims
}

// JWTAuth validates the Bearer token on every protected route.
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, ok := parseBearer(c, secret)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, apierror.New("authentication required"))
			return
		}
		c.Set(ClaimsKey, claims)
		c.Next()
	}
}

// OptionalJWT parses the Bearer token when present but never rejects the
// request. The report endpoint uses it: a capability token can stand in for
// a login session, so absence of claims is decided there, not here.
func OptionalJWT(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if claims, ok := parseBearer(c, secret); ok {
			c.Set(ClaimsKey, claims)
		}
		c.Next()
	}
}

func parseBearer(c *gin.Context, secret string) (*JWTClaims, bool) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return nil, false
	}
	tokenStr := strings.TrimPrefix(header, "Bearer ")
	claims := &JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return []byte(secret), nil
	})
	if err != nil || !token.Valid {
		return nil, false
	}
	return claims, true
}

// RequireRole rejects requests whose JWT role is not in the allowed list.
func RequireRole(roles ...string) gin.HandlerFunc {
	allowed := make(map[string]bool, len(roles))
	for _, r := range roles {
		allowed[r] = true
	}
	return func(c *gin.Context) {
		claims, ok := c.MustGet(ClaimsKey).(*JWTClaims)
		if !ok || !allowed[claims.Role] {
			c.AbortWithStatusJSON(http.StatusForbidden, apierror.New("insufficient permissions"))
			return
		}
		c.Next()
	}
}

// GetClaims is a helper to retrieve typed claims from the Gin context.
// Returns nil when the request carried no valid token.
func GetClaims(c *gin.Context) *JWTClaims {
	v, exists := c.Get(ClaimsKey)
	if !exists {
		return nil
	}
	claims, _ := v.(*JWTClaims)
	return claims
}
