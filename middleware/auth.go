package middleware

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/creaturebattle/server/cache"
	"github.com/kasuganosora/creaturebattle/server/config"
)

const (
	ParticipantIDKey   = "participant_id"
	ParticipantNameKey = "participant_name"
)

// SessionKey is the cache key marking a token as live.
func SessionKey(token string) string { return "session:" + token }

// BearerToken extracts the token from an Authorization header, or "".
func BearerToken(header string) string {
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimPrefix(header, "Bearer ")
}

// Authenticate parses token and checks that its session is still cached.
func Authenticate(ctx context.Context, tokenStr string, sec config.SecurityConfig, c cache.Cache) (*Claims, bool) {
	claims, err := ParseToken(tokenStr, sec.JWTSecret)
	if err != nil {
		return nil, false
	}
	cacheCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	exists, err := c.Exists(cacheCtx, SessionKey(tokenStr))
	if err != nil || !exists {
		return nil, false
	}
	return claims, true
}

// Auth validates the Bearer JWT token and checks the session cache.
func Auth(sec config.SecurityConfig, c cache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		tokenStr := BearerToken(ctx.GetHeader("Authorization"))
		if tokenStr == "" {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}
		claims, ok := Authenticate(ctx.Request.Context(), tokenStr, sec, c)
		if !ok {
			ctx.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}
		ctx.Set(ParticipantIDKey, claims.ParticipantID())
		ctx.Set(ParticipantNameKey, claims.Name)
		ctx.Next()
	}
}

// GetParticipantID retrieves the authenticated participant id from the Gin context.
func GetParticipantID(c *gin.Context) string {
	return c.GetString(ParticipantIDKey)
}

// GetParticipantName retrieves the authenticated display name.
func GetParticipantName(c *gin.Context) string {
	return c.GetString(ParticipantNameKey)
}
