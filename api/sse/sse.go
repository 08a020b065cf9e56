// Package sse streams finished battle outcomes and operator announcements
// to spectators over server-sent events.
package sse

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/creaturebattle/server/cache"
	"github.com/kasuganosora/creaturebattle/server/config"
	"github.com/kasuganosora/creaturebattle/server/game/match"
	mw "github.com/kasuganosora/creaturebattle/server/middleware"
	"github.com/kasuganosora/creaturebattle/server/outcome"
	"go.uber.org/zap"
)

// AnnounceChannel carries free-text operator announcements.
const AnnounceChannel = "announce"

const keepalive = 30 * time.Second

// RecentSource provides the backlog sent when a stream opens.
type RecentSource interface {
	RecentOutcomes(ctx context.Context) []match.Outcome
}

// Handler handles the SSE endpoint.
type Handler struct {
	pubsub cache.PubSub
	c      cache.Cache
	recent RecentSource
	sec    config.SecurityConfig
	logger *zap.Logger
}

// NewHandler creates a new SSE Handler. recent may be nil.
func NewHandler(pubsub cache.PubSub, c cache.Cache, recent RecentSource, sec config.SecurityConfig, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{pubsub: pubsub, c: c, recent: recent, sec: sec, logger: logger}
}

// ServeOutcomes handles GET /sse/outcomes. A token is only demanded when
// security.require_token is set.
//
// Events: connected, recent (backlog array, newest first), outcome, announce.
func (h *Handler) ServeOutcomes(c *gin.Context) {
	tokenStr := c.Query("token")
	switch {
	case tokenStr != "":
		if _, ok := mw.Authenticate(c.Request.Context(), tokenStr, h.sec, h.c); !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}
	case h.sec.RequireToken:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	subCtx, subCancel := context.WithCancel(c.Request.Context())
	defer subCancel()

	msgCh, unsub, err := h.pubsub.Subscribe(subCtx, outcome.Channel, AnnounceChannel)
	if err != nil {
		h.logger.Error("sse subscribe failed", zap.Error(err))
		c.Status(http.StatusInternalServerError)
		return
	}
	defer unsub()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	writeEvent(c, "connected", "{}")
	if h.recent != nil {
		backlog, err := json.Marshal(h.recent.RecentOutcomes(subCtx))
		if err == nil {
			writeEvent(c, "recent", string(backlog))
		}
	}

	ticker := time.NewTicker(keepalive)
	defer ticker.Stop()

	for {
		select {
		case msg, ok := <-msgCh:
			if !ok {
				return
			}
			event := "outcome"
			if msg.Channel == AnnounceChannel {
				event = "announce"
			}
			writeEvent(c, event, msg.Payload)

		case <-ticker.C:
			// Keepalive comment to prevent proxy timeouts.
			fmt.Fprintf(c.Writer, ": keepalive\n\n")
			c.Writer.Flush()

		case <-c.Request.Context().Done():
			return
		}
	}
}

func writeEvent(c *gin.Context, event, data string) {
	fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
	c.Writer.Flush()
}

type announceRequest struct {
	Message string `json:"message" binding:"required,max=500"`
}

// Announce handles POST /api/admin/announce.
func (h *Handler) Announce(c *gin.Context) {
	var req announceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	payload, _ := json.Marshal(gin.H{"message": req.Message, "at": time.Now()})
	if err := h.pubsub.Publish(c.Request.Context(), AnnounceChannel, string(payload)); err != nil {
		h.logger.Error("announce failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "publish failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"ok": true})
}
