package rest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/kasuganosora/creaturebattle/server/cache"
	"github.com/kasuganosora/creaturebattle/server/game/match"
	"github.com/kasuganosora/creaturebattle/server/model"
	"github.com/kasuganosora/creaturebattle/server/outcome"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const rankingTop = 100

// RankingHandler serves profiles, the wins leaderboard and recent results.
type RankingHandler struct {
	db     *gorm.DB
	cache  cache.Cache
	logger *zap.Logger
}

// NewRankingHandler creates a RankingHandler.
func NewRankingHandler(db *gorm.DB, c cache.Cache, logger *zap.Logger) *RankingHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RankingHandler{db: db, cache: c, logger: logger}
}

// RankEntry is one row in the leaderboard.
type RankEntry struct {
	Rank          int    `json:"rank"`
	ParticipantID string `json:"participant_id"`
	Name          string `json:"name"`
	Wins          int    `json:"wins"`
	Battles       int    `json:"battles"`
}

// ProfileView is a profile plus derived fields.
type ProfileView struct {
	model.Profile
	WinRate float64 `json:"win_rate"`
	Online  bool    `json:"online"`
}

// Profile handles GET /api/profiles/:id.
func (h *RankingHandler) Profile(online func(string) bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		id := c.Param("id")
		var p model.Profile
		err := h.db.Where("participant = ?", id).First(&p).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "profile not found"})
			return
		}
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
			return
		}
		view := ProfileView{Profile: p, WinRate: p.WinRate()}
		if online != nil {
			view.Online = online(id)
		}
		c.JSON(http.StatusOK, view)
	}
}

// TopWins returns the participants with the most wins against other humans.
// GET /api/ranking/wins?limit=20
func (h *RankingHandler) TopWins(c *gin.Context) {
	limit := 20
	if l, err := strconv.Atoi(c.Query("limit")); err == nil && l > 0 && l <= rankingTop {
		limit = l
	}

	ctx := c.Request.Context()
	if h.cache != nil {
		members, err := h.cache.ZRevRange(ctx, outcome.RankingKey, 0, int64(limit-1))
		if err == nil && len(members) > 0 {
			entries := make([]RankEntry, 0, len(members))
			for i, m := range members {
				score, _ := h.cache.ZScore(ctx, outcome.RankingKey, m)
				entries = append(entries, RankEntry{Rank: i + 1, ParticipantID: m, Wins: int(score)})
			}
			h.enrich(entries)
			c.JSON(http.StatusOK, gin.H{"ranking": entries})
			return
		}
	}

	// Fall back to the profile table and warm the sorted set on the way.
	profiles, err := h.top(limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "db error"})
		return
	}
	entries := make([]RankEntry, len(profiles))
	for i, p := range profiles {
		entries[i] = RankEntry{
			Rank:          i + 1,
			ParticipantID: p.Participant,
			Name:          p.Name,
			Wins:          p.RankedWins,
			Battles:       p.Battles,
		}
		if h.cache != nil {
			_ = h.cache.ZAdd(ctx, outcome.RankingKey, float64(p.RankedWins), p.Participant)
		}
	}
	c.JSON(http.StatusOK, gin.H{"ranking": entries})
}

func (h *RankingHandler) top(limit int) ([]model.Profile, error) {
	var profiles []model.Profile
	err := h.db.Select("participant, name, ranked_wins, battles").
		Where("ranked_wins > 0").
		Order("ranked_wins DESC").
		Order("battles ASC").
		Limit(limit).
		Find(&profiles).Error
	return profiles, err
}

// Refresh rebuilds the ranking sorted set from the profile table. The
// scheduler calls it periodically; admins can trigger it by hand.
func (h *RankingHandler) Refresh(ctx context.Context) (int, error) {
	if h.cache == nil {
		return 0, nil
	}
	profiles, err := h.top(rankingTop)
	if err != nil {
		return 0, fmt.Errorf("load ranking: %w", err)
	}
	if err := h.cache.Del(ctx, outcome.RankingKey); err != nil {
		return 0, fmt.Errorf("reset ranking: %w", err)
	}
	for _, p := range profiles {
		if err := h.cache.ZAdd(ctx, outcome.RankingKey, float64(p.RankedWins), p.Participant); err != nil {
			return 0, fmt.Errorf("rebuild ranking: %w", err)
		}
	}
	return len(profiles), nil
}

// RefreshRanking handles POST /api/admin/ranking/refresh.
func (h *RankingHandler) RefreshRanking(c *gin.Context) {
	n, err := h.Refresh(c.Request.Context())
	if err != nil {
		h.logger.Error("ranking refresh failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "refresh failed"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"refreshed": n})
}

// Recent handles GET /api/outcomes/recent.
func (h *RankingHandler) Recent(c *gin.Context) {
	out := h.RecentOutcomes(c.Request.Context())
	c.JSON(http.StatusOK, gin.H{"outcomes": out})
}

// RecentOutcomes returns the cached recent-results feed, newest first.
func (h *RankingHandler) RecentOutcomes(ctx context.Context) []match.Outcome {
	out := make([]match.Outcome, 0)
	if h.cache == nil {
		return out
	}
	raw, err := h.cache.LRange(ctx, outcome.RecentKey, 0, outcome.RecentLimit-1)
	if err != nil {
		h.logger.Warn("read recent outcomes", zap.Error(err))
		return out
	}
	for _, r := range raw {
		var o match.Outcome
		if err := json.Unmarshal([]byte(r), &o); err != nil {
			continue
		}
		out = append(out, o)
	}
	return out
}

func (h *RankingHandler) enrich(entries []RankEntry) {
	if len(entries) == 0 {
		return
	}
	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.ParticipantID
	}
	var profiles []model.Profile
	h.db.Select("participant, name, battles").Where("participant IN ?", ids).Find(&profiles)
	byID := make(map[string]model.Profile, len(profiles))
	for _, p := range profiles {
		byID[p.Participant] = p
	}
	for i := range entries {
		if p, ok := byID[entries[i].ParticipantID]; ok {
			entries[i].Name = p.Name
			entries[i].Battles = p.Battles
		}
	}
}
