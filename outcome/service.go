// Package outcome records finished battles: profile rows, the wins
// leaderboard, a short recent-results feed and a pub/sub notification.
package outcome

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kasuganosora/creaturebattle/server/cache"
	"github.com/kasuganosora/creaturebattle/server/game/battle"
	"github.com/kasuganosora/creaturebattle/server/game/match"
	"github.com/kasuganosora/creaturebattle/server/model"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Cache keys and channels shared with the read side.
const (
	Channel     = "battle:outcome"
	RankingKey  = "ranking:wins"
	RecentKey   = "outcomes:recent"
	RecentLimit = 50

	dedupePrefix = "outcome:"
	dedupeTTL    = 24 * time.Hour
	batchSize    = 100
)

// Options tunes the worker.
type Options struct {
	FlushInterval time.Duration // default 2s
	Buffer        int           // default 1024
}

// Service applies outcomes asynchronously in batches. It implements
// match.OutcomeSink.
type Service struct {
	db     *gorm.DB
	cache  cache.Cache
	pubsub cache.PubSub
	ch     chan match.Outcome
	stopCh chan struct{}
	once   sync.Once
	wg     sync.WaitGroup
	flush  time.Duration
	logger *zap.Logger
}

// New creates a Service and starts its background worker. cache and pubsub
// may be nil.
func New(db *gorm.DB, c cache.Cache, ps cache.PubSub, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.FlushInterval <= 0 {
		opts.FlushInterval = 2 * time.Second
	}
	if opts.Buffer <= 0 {
		opts.Buffer = 1024
	}
	svc := &Service{
		db:     db,
		cache:  c,
		pubsub: ps,
		ch:     make(chan match.Outcome, opts.Buffer),
		stopCh: make(chan struct{}),
		flush:  opts.FlushInterval,
		logger: logger,
	}
	svc.wg.Add(1)
	go svc.worker()
	return svc
}

// Record enqueues o without blocking. A full queue drops the outcome.
func (svc *Service) Record(o match.Outcome) {
	select {
	case <-svc.stopCh:
		svc.logger.Warn("outcome recorder stopped, dropping", zap.String("battle_id", o.BattleID))
		return
	default:
	}
	select {
	case svc.ch <- o:
	default:
		svc.logger.Warn("outcome channel full, dropping entry",
			zap.String("battle_id", o.BattleID))
	}
}

// Stop flushes remaining outcomes and shuts down the worker.
// It blocks until the worker goroutine has finished.
func (svc *Service) Stop(_ context.Context) {
	svc.once.Do(func() { close(svc.stopCh) })
	svc.wg.Wait()
}

func (svc *Service) worker() {
	defer svc.wg.Done()
	ticker := time.NewTicker(svc.flush)
	defer ticker.Stop()

	batch := make([]match.Outcome, 0, batchSize)
	flush := func() {
		if len(batch) == 0 {
			return
		}
		if err := svc.writeProfiles(batch); err != nil {
			svc.logger.Error("outcome batch write failed", zap.Int("size", len(batch)), zap.Error(err))
		}
		batch = batch[:0]
	}
	accept := func(o match.Outcome) {
		if !svc.claim(o) {
			return
		}
		svc.announce(o)
		batch = append(batch, o)
	}

	for {
		select {
		case o := <-svc.ch:
			accept(o)
			if len(batch) >= batchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		case <-svc.stopCh:
			for {
				select {
				case o := <-svc.ch:
					accept(o)
				default:
					flush()
					return
				}
			}
		}
	}
}

// claim de-duplicates by battle id across replicas sharing a cache.
func (svc *Service) claim(o match.Outcome) bool {
	if svc.cache == nil || o.BattleID == "" {
		return true
	}
	ok, err := svc.cache.SetNX(context.Background(), dedupePrefix+o.BattleID, o.WinnerID, dedupeTTL)
	if err != nil {
		svc.logger.Warn("outcome dedupe failed", zap.String("battle_id", o.BattleID), zap.Error(err))
		return true
	}
	if !ok {
		svc.logger.Debug("duplicate outcome ignored", zap.String("battle_id", o.BattleID))
	}
	return ok
}

// announce bumps the leaderboard, pushes the recent feed and publishes.
func (svc *Service) announce(o match.Outcome) {
	ctx := context.Background()
	payload, err := json.Marshal(o)
	if err != nil {
		svc.logger.Error("marshal outcome", zap.Error(err))
		return
	}
	if svc.cache != nil {
		if !o.VsAI {
			if _, err := svc.cache.ZIncrBy(ctx, RankingKey, 1, o.WinnerID); err != nil {
				svc.logger.Warn("ranking update failed", zap.Error(err))
			}
		}
		if err := svc.cache.PushCapped(ctx, RecentKey, string(payload), RecentLimit); err != nil {
			svc.logger.Warn("recent feed update failed", zap.Error(err))
		}
	}
	if svc.pubsub != nil {
		if err := svc.pubsub.Publish(ctx, Channel, string(payload)); err != nil {
			svc.logger.Warn("outcome publish failed", zap.Error(err))
		}
	}
}

type delta struct {
	name                                           string
	wins, ranked, losses, knockouts, forfeits, all int
	last                                           time.Time
}

func (d *delta) touch(name string, at time.Time) {
	d.all++
	if name != "" {
		d.name = name
	}
	if at.After(d.last) {
		d.last = at
	}
}

// aggregate folds a batch into per-participant counters. The AI side is
// never a profile.
func aggregate(batch []match.Outcome) map[string]*delta {
	out := make(map[string]*delta)
	get := func(id string) *delta {
		d := out[id]
		if d == nil {
			d = &delta{}
			out[id] = d
		}
		return d
	}
	for _, o := range batch {
		at := o.FinishedAt
		if at.IsZero() {
			at = time.Now()
		}
		if o.WinnerID != "" && !match.IsAI(o.WinnerID) {
			w := get(o.WinnerID)
			w.touch(o.WinnerName, at)
			w.wins++
			if !o.VsAI {
				w.ranked++
			}
			if o.Reason == battle.EndKnockout {
				w.knockouts++
			}
		}
		if o.LoserID != "" && !match.IsAI(o.LoserID) {
			l := get(o.LoserID)
			l.touch(o.LoserName, at)
			l.losses++
			if o.Reason != battle.EndKnockout {
				l.forfeits++
			}
		}
	}
	return out
}

func (svc *Service) writeProfiles(batch []match.Outcome) error {
	if svc.db == nil {
		return nil
	}
	deltas := aggregate(batch)
	return svc.db.Transaction(func(tx *gorm.DB) error {
		for id, d := range deltas {
			seed := model.Profile{Participant: id, Name: d.name}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
				return err
			}
			updates := map[string]interface{}{
				"wins":           gorm.Expr("wins + ?", d.wins),
				"ranked_wins":    gorm.Expr("ranked_wins + ?", d.ranked),
				"losses":         gorm.Expr("losses + ?", d.losses),
				"knockouts":      gorm.Expr("knockouts + ?", d.knockouts),
				"forfeits":       gorm.Expr("forfeits + ?", d.forfeits),
				"battles":        gorm.Expr("battles + ?", d.all),
				"last_battle_at": d.last,
			}
			if d.name != "" {
				updates["name"] = d.name
			}
			if err := tx.Model(&model.Profile{}).Where("participant = ?", id).Updates(updates).Error; err != nil {
				return err
			}
		}
		return nil
	})
}
