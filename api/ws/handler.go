package ws

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/kasuganosora/creaturebattle/server/cache"
	"github.com/kasuganosora/creaturebattle/server/config"
	"github.com/kasuganosora/creaturebattle/server/game/match"
	"github.com/kasuganosora/creaturebattle/server/game/player"
	mw "github.com/kasuganosora/creaturebattle/server/middleware"
	"go.uber.org/zap"
)

// EventConnected greets a freshly upgraded connection with its identity.
const EventConnected = "connected"

const (
	defaultGuestName = "Trainer"
	maxNameLen       = 24
)

// ConnectedView is the payload of the connected event.
type ConnectedView struct {
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
}

// Handler is the Gin handler for GET /ws.
type Handler struct {
	cache    cache.Cache
	sec      config.SecurityConfig
	sm       *player.SessionManager
	mgr      Submitter
	router   *Router
	logger   *zap.Logger
	upgrader websocket.Upgrader
}

// NewHandler creates a new WebSocket Handler.
// sec.AllowedOrigins controls which WebSocket origins are accepted.
// An empty slice permits all origins (development only).
func NewHandler(
	c cache.Cache,
	sec config.SecurityConfig,
	sm *player.SessionManager,
	mgr Submitter,
	router *Router,
	logger *zap.Logger,
) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	h := &Handler{
		cache:  c,
		sec:    sec,
		sm:     sm,
		mgr:    mgr,
		router: router,
		logger: logger,
	}
	allowed := sec.AllowedOrigins
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  4096,
		WriteBufferSize: 4096,
		CheckOrigin: func(r *http.Request) bool {
			if len(allowed) == 0 {
				return true // dev mode: allow all
			}
			origin := r.Header.Get("Origin")
			for _, o := range allowed {
				if o == origin {
					return true
				}
			}
			return false
		},
	}
	return h
}

// ServeWS handles GET /ws?token=<jwt> or, when tokens are optional,
// GET /ws?name=<display name> for an anonymous guest.
func (h *Handler) ServeWS(c *gin.Context) {
	tokenStr := c.Query("token")
	if tokenStr == "" {
		tokenStr = mw.BearerToken(c.GetHeader("Authorization"))
	}

	var id, name string
	switch {
	case tokenStr != "":
		if h.cache == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}
		claims, ok := mw.Authenticate(c.Request.Context(), tokenStr, h.sec, h.cache)
		if !ok {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid or expired session"})
			return
		}
		id, name = claims.ParticipantID(), claims.Name
	case h.sec.RequireToken:
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	default:
		id = "guest-" + uuid.NewString()
		name = c.Query("name")
	}
	name = DisplayName(name)

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.Error("ws upgrade failed", zap.Error(err))
		return
	}

	sess := player.NewPlayerSession(id, name, conn, h.logger)
	if old := h.sm.Register(sess); old != nil {
		old.Close()
	}
	sess.SendJSON(EventConnected, ConnectedView{ParticipantID: id, Name: name})

	// Blocks until the connection closes.
	h.readPump(sess)
}

// DisplayName cleans a requested name and falls back to a default.
func DisplayName(name string) string {
	name = cleanText(name, maxNameLen)
	if name == "" {
		return defaultGuestName
	}
	return name
}

// readPump reads messages from the WebSocket connection and dispatches them.
func (h *Handler) readPump(s *player.PlayerSession) {
	defer h.handleDisconnect(s)

	s.SetReadDeadline()
	s.Conn.SetPongHandler(func(string) error {
		s.SetReadDeadline()
		return nil
	})

	for {
		_, raw, err := s.Conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseNormalClosure,
				websocket.CloseNoStatusReceived) {
				h.logger.Warn("ws unexpected close",
					zap.String("participant_id", s.ParticipantID),
					zap.Error(err))
			}
			return
		}
		s.SetReadDeadline()
		h.router.Dispatch(s, raw)
	}
}

// handleDisconnect closes the session and tells the match manager, which
// treats it exactly like a leave.
func (h *Handler) handleDisconnect(s *player.PlayerSession) {
	s.Close()
	if h.sm.Unregister(s) {
		h.router.Forget(s.ParticipantID)
	}
	h.logger.Info("participant disconnected",
		zap.String("participant_id", s.ParticipantID),
		zap.Duration("connected_for", time.Since(s.ConnectedAt)))

	if h.mgr == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), submitTimeout)
	defer cancel()
	if err := h.mgr.Submit(ctx, match.LeaveMsg{From: s, Disconnect: true}); err != nil {
		h.logger.Warn("leave on disconnect not delivered",
			zap.String("participant_id", s.ParticipantID),
			zap.Error(err))
	}
}
