package rest_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/creaturebattle/server/api/rest"
	"github.com/kasuganosora/creaturebattle/server/game/match"
	"github.com/kasuganosora/creaturebattle/server/game/player"
	"github.com/kasuganosora/creaturebattle/server/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticStats struct {
	st  match.Stats
	err error
}

func (s staticStats) Stats(context.Context) (match.Stats, error) { return s.st, s.err }

func newAdminRouter(t *testing.T, adminKey string, stats rest.StatsSource) (*gin.Engine, *player.SessionManager) {
	sm := player.NewSessionManager(nopLogger())
	sched := scheduler.New(nopLogger())
	t.Cleanup(sched.Stop)
	sched.AddTicker("idle-sweep", 1<<40, func(context.Context) error { return nil })
	h := rest.NewAdminHandler(sm, stats, sched, nopLogger())

	r := gin.New()
	admin := r.Group("/api/admin", rest.AdminAuth(adminKey))
	admin.GET("/metrics", h.Metrics)
	admin.GET("/participants", h.ListParticipants)
	admin.POST("/kick/:id", h.Kick)
	admin.GET("/scheduler", h.ListSchedulerTasks)
	return r, sm
}

func adminGet(r *gin.Engine, path, key string) *httptest.ResponseRecorder {
	return get(r, path, "X-Admin-Key", key)
}

func TestAdminAuth_NoKey_Disabled(t *testing.T) {
	r, _ := newAdminRouter(t, "", staticStats{})
	w := adminGet(r, "/api/admin/metrics", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestAdminAuth_WrongKey(t *testing.T) {
	r, _ := newAdminRouter(t, "secret", staticStats{})
	w := adminGet(r, "/api/admin/metrics", "wrong")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestMetrics(t *testing.T) {
	r, _ := newAdminRouter(t, "k", staticStats{st: match.Stats{Battles: 3, AIBattles: 1, Waiting: 1, Finished: 9}})
	w := adminGet(r, "/api/admin/metrics", "k")
	require.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(3), resp["battles"])
	assert.Equal(t, float64(1), resp["ai_battles"])
	assert.Equal(t, float64(1), resp["waiting"])
	assert.Equal(t, float64(9), resp["finished"])
	assert.Equal(t, float64(0), resp["connected"])
	assert.Equal(t, []interface{}{"idle-sweep"}, resp["scheduler_tasks"])
}

func TestMetrics_ManagerStopped(t *testing.T) {
	r, _ := newAdminRouter(t, "k", staticStats{err: errors.New("stopped")})
	w := adminGet(r, "/api/admin/metrics", "k")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}

func TestListParticipants(t *testing.T) {
	r, sm := newAdminRouter(t, "k", staticStats{})
	sm.Register(&player.PlayerSession{ParticipantID: "guest-1", Name: "Ash", Done: make(chan struct{})})

	w := adminGet(r, "/api/admin/participants", "k")
	require.Equal(t, http.StatusOK, w.Code)
	var resp struct {
		Count        int `json:"count"`
		Participants []struct {
			ParticipantID string `json:"participant_id"`
			Name          string `json:"name"`
		} `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, "guest-1", resp.Participants[0].ParticipantID)
	assert.Equal(t, "Ash", resp.Participants[0].Name)
}

func TestKick(t *testing.T) {
	r, sm := newAdminRouter(t, "k", staticStats{})
	s := &player.PlayerSession{ParticipantID: "guest-1", Done: make(chan struct{})}
	sm.Register(s)

	w := postJSON(r, "/api/admin/kick/guest-1", nil, "X-Admin-Key", "k")
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, s.IsClosed())

	w = postJSON(r, "/api/admin/kick/nobody", nil, "X-Admin-Key", "k")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestListSchedulerTasks(t *testing.T) {
	r, _ := newAdminRouter(t, "k", staticStats{})
	w := adminGet(r, "/api/admin/scheduler", "k")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Tasks []scheduler.TaskInfo `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Tasks, 1)
	assert.Equal(t, "idle-sweep", resp.Tasks[0].Name)
}

var _ rest.StatsSource = (*match.Manager)(nil)
