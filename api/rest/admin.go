package rest

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/creaturebattle/server/game/match"
	"github.com/kasuganosora/creaturebattle/server/game/player"
	"github.com/kasuganosora/creaturebattle/server/scheduler"
	"go.uber.org/zap"
)

// StatsSource reports the match registry; *match.Manager satisfies it.
type StatsSource interface {
	Stats(ctx context.Context) (match.Stats, error)
}

// AdminHandler handles admin-only REST endpoints.
// Routes should be protected by AdminAuth middleware.
type AdminHandler struct {
	sm      *player.SessionManager
	matches StatsSource
	sched   *scheduler.Scheduler
	started time.Time
	logger  *zap.Logger
}

// NewAdminHandler creates an AdminHandler.
func NewAdminHandler(
	sm *player.SessionManager,
	matches StatsSource,
	sched *scheduler.Scheduler,
	logger *zap.Logger,
) *AdminHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminHandler{sm: sm, matches: matches, sched: sched, started: time.Now(), logger: logger}
}

// Metrics returns server health metrics.
// GET /api/admin/metrics
func (h *AdminHandler) Metrics(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()
	st, err := h.matches.Stats(ctx)
	if err != nil {
		h.logger.Warn("match stats unavailable", zap.Error(err))
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "match manager unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected":       h.sm.Count(),
		"battles":         st.Battles,
		"ai_battles":      st.AIBattles,
		"waiting":         st.Waiting,
		"finished":        st.Finished,
		"uptime_s":        int64(time.Since(h.started) / time.Second),
		"scheduler_tasks": h.sched.ListTickers(),
	})
}

// ListParticipants returns a snapshot of all connected participants.
// GET /api/admin/participants
func (h *AdminHandler) ListParticipants(c *gin.Context) {
	sessions := h.sm.All()
	type participantInfo struct {
		ParticipantID string    `json:"participant_id"`
		Name          string    `json:"name"`
		ConnectedAt   time.Time `json:"connected_at"`
	}
	result := make([]participantInfo, 0, len(sessions))
	for _, s := range sessions {
		result = append(result, participantInfo{
			ParticipantID: s.ParticipantID,
			Name:          s.Name,
			ConnectedAt:   s.ConnectedAt,
		})
	}
	c.JSON(http.StatusOK, gin.H{"participants": result, "count": len(result)})
}

// Kick forcibly disconnects a participant. Their battle, if any, is
// forfeited like any other disconnect.
// POST /api/admin/kick/:id
func (h *AdminHandler) Kick(c *gin.Context) {
	id := c.Param("id")
	s := h.sm.Get(id)
	if s == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "participant not connected"})
		return
	}
	s.Close()
	h.logger.Info("admin kicked participant", zap.String("participant_id", id))
	c.JSON(http.StatusOK, gin.H{"ok": true})
}

// ListSchedulerTasks returns every registered ticker task with run counters.
// GET /api/admin/scheduler
func (h *AdminHandler) ListSchedulerTasks(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"tasks": h.sched.Tasks()})
}

// AdminAuth returns a middleware that checks the X-Admin-Key header.
// WARNING: if adminKey is empty all admin endpoints are disabled (503) so the
// server cannot be accidentally deployed without protection. Set a non-empty
// server.admin_key in config to enable admin routes.
func AdminAuth(adminKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if adminKey == "" {
			c.AbortWithStatusJSON(http.StatusServiceUnavailable,
				gin.H{"error": "admin endpoints disabled: set server.admin_key in config"})
			return
		}
		key := c.GetHeader("X-Admin-Key")
		if key != adminKey {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}
		c.Next()
	}
}
