package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/kasuganosora/creaturebattle/server/api/ws"
	"github.com/kasuganosora/creaturebattle/server/cache"
	"github.com/kasuganosora/creaturebattle/server/config"
	mw "github.com/kasuganosora/creaturebattle/server/middleware"
	"go.uber.org/zap"
)

// AuthHandler issues and revokes guest participant tokens.
type AuthHandler struct {
	cache  cache.Cache
	sec    config.SecurityConfig
	logger *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(c cache.Cache, sec config.SecurityConfig, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{cache: c, sec: sec, logger: logger}
}

type guestRequest struct {
	Name string `json:"name" binding:"omitempty,max=64"`
}

// GuestResponse is returned by Guest and Refresh.
type GuestResponse struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Token         string `json:"token"`
	ExpiresIn     int64  `json:"expires_in"` // seconds
}

// Guest handles POST /api/auth/guest.
// Every call mints a fresh participant id; there are no accounts.
func (h *AuthHandler) Guest(c *gin.Context) {
	var req guestRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	id := "guest-" + uuid.NewString()
	h.issue(c, id, ws.DisplayName(req.Name))
}

// Refresh handles POST /api/auth/refresh. The old token is revoked.
func (h *AuthHandler) Refresh(c *gin.Context) {
	id := mw.GetParticipantID(c)
	if id == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(mw.BearerToken(c.GetHeader("Authorization"))))
	h.issue(c, id, mw.GetParticipantName(c))
}

func (h *AuthHandler) issue(c *gin.Context, id, name string) {
	token, err := mw.GenerateToken(id, name, h.sec.JWTSecret, h.sec.JWTTTLH)
	if err != nil {
		h.logger.Error("sign token", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "token error"})
		return
	}

	// Store session in cache as a simple KV entry so Exists() works uniformly.
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	if err := h.cache.Set(ctx, mw.SessionKey(token), id, h.sec.JWTTTLH); err != nil {
		h.logger.Error("store session", zap.String("participant_id", id), zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "session store unavailable"})
		return
	}

	c.JSON(http.StatusOK, GuestResponse{
		ParticipantID: id,
		Name:          name,
		Token:         token,
		ExpiresIn:     int64(h.sec.JWTTTLH / time.Second),
	})
}

// Logout handles POST /api/auth/logout.
func (h *AuthHandler) Logout(c *gin.Context) {
	tokenStr := mw.BearerToken(c.GetHeader("Authorization"))
	if tokenStr == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "missing token"})
		return
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	_ = h.cache.Del(ctx, mw.SessionKey(tokenStr))
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"participant_id": mw.GetParticipantID(c),
		"name":           mw.GetParticipantName(c),
	})
}
