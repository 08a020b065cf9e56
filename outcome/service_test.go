package outcome

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kasuganosora/creaturebattle/server/game/battle"
	"github.com/kasuganosora/creaturebattle/server/game/match"
	"github.com/kasuganosora/creaturebattle/server/model"
	"github.com/kasuganosora/creaturebattle/server/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func nop() *zap.Logger { return zap.NewNop() }

func pvp(id, winner, loser string, reason battle.EndReason) match.Outcome {
	return match.Outcome{
		BattleID:   id,
		WinnerID:   winner,
		WinnerName: "N-" + winner,
		LoserID:    loser,
		LoserName:  "N-" + loser,
		Reason:     reason,
		Turns:      4,
		FinishedAt: time.Now(),
	}
}

func profile(t *testing.T, svc *Service, id string) model.Profile {
	t.Helper()
	var p model.Profile
	require.NoError(t, svc.db.Where("participant = ?", id).First(&p).Error)
	return p
}

func TestNew_StartsWorker(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nil, nil, nil, Options{})
	require.NotNil(t, svc)
	svc.Stop(context.Background())
}

func TestRecord_FlushedOnStop(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	svc := New(db, c, nil, nop(), Options{FlushInterval: time.Hour})

	svc.Record(pvp("b1", "alice", "bob", battle.EndKnockout))
	svc.Record(pvp("b2", "bob", "alice", battle.EndForfeit))
	svc.Record(pvp("b3", "alice", "bob", battle.EndIdle))
	svc.Stop(context.Background())

	alice := profile(t, svc, "alice")
	assert.Equal(t, "N-alice", alice.Name)
	assert.Equal(t, 2, alice.Wins)
	assert.Equal(t, 2, alice.RankedWins)
	assert.Equal(t, 1, alice.Losses)
	assert.Equal(t, 1, alice.Knockouts)
	assert.Equal(t, 1, alice.Forfeits)
	assert.Equal(t, 3, alice.Battles)
	require.NotNil(t, alice.LastBattleAt)

	bob := profile(t, svc, "bob")
	assert.Equal(t, 1, bob.Wins)
	assert.Equal(t, 2, bob.Losses)
	assert.Equal(t, 1, bob.Forfeits)
	assert.Equal(t, 0, bob.Knockouts)
}

func TestRecord_AccumulatesAcrossBatches(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nil, nil, nop(), Options{FlushInterval: 20 * time.Millisecond})

	svc.Record(pvp("b1", "alice", "bob", battle.EndKnockout))
	require.Eventually(t, func() bool {
		var n int64
		db.Model(&model.Profile{}).Count(&n)
		return n == 2
	}, 2*time.Second, 10*time.Millisecond)

	svc.Record(pvp("b2", "alice", "bob", battle.EndKnockout))
	svc.Stop(context.Background())
	assert.Equal(t, 2, profile(t, svc, "alice").Wins)
	assert.Equal(t, 2, profile(t, svc, "bob").Losses)
}

func TestRecord_RankingFeedAndPublish(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c, ps := testutil.SetupTestCache(t)
	ctx := context.Background()
	sub, cancel, err := ps.Subscribe(ctx, Channel)
	require.NoError(t, err)
	defer cancel()

	svc := New(db, c, ps, nop(), Options{})
	svc.Record(pvp("b1", "alice", "bob", battle.EndKnockout))
	svc.Record(pvp("b2", "alice", "carol", battle.EndForfeit))
	svc.Record(pvp("b3", "carol", "bob", battle.EndKnockout))
	svc.Stop(ctx)

	top, err := c.ZRevRange(ctx, RankingKey, 0, -1)
	require.NoError(t, err)
	assert.Equal(t, []string{"alice", "carol"}, top)
	score, err := c.ZScore(ctx, RankingKey, "alice")
	require.NoError(t, err)
	assert.Equal(t, float64(2), score)

	recent, err := c.LRange(ctx, RecentKey, 0, -1)
	require.NoError(t, err)
	require.Len(t, recent, 3)
	var newest match.Outcome
	require.NoError(t, json.Unmarshal([]byte(recent[0]), &newest))
	assert.Equal(t, "b3", newest.BattleID)

	for _, want := range []string{"b1", "b2", "b3"} {
		select {
		case msg := <-sub:
			var o match.Outcome
			require.NoError(t, json.Unmarshal([]byte(msg.Payload), &o))
			assert.Equal(t, want, o.BattleID)
		case <-time.After(time.Second):
			t.Fatalf("no publish for %s", want)
		}
	}
}

func TestRecord_DuplicateBattleIgnored(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	svc := New(db, c, nil, nop(), Options{})
	o := pvp("same", "alice", "bob", battle.EndKnockout)
	svc.Record(o)
	svc.Record(o)
	svc.Stop(context.Background())

	assert.Equal(t, 1, profile(t, svc, "alice").Wins)
	recent, _ := c.LRange(context.Background(), RecentKey, 0, -1)
	assert.Len(t, recent, 1)
}

func TestRecord_AISideIsNotAProfile(t *testing.T) {
	db := testutil.SetupTestDB(t)
	c, _ := testutil.SetupTestCache(t)
	svc := New(db, c, nil, nop(), Options{})

	won := pvp("b1", "human", "ai:human", battle.EndKnockout)
	won.VsAI = true
	lost := pvp("b2", "ai:human", "human", battle.EndKnockout)
	lost.VsAI = true
	svc.Record(won)
	svc.Record(lost)
	svc.Stop(context.Background())

	var n int64
	db.Model(&model.Profile{}).Count(&n)
	assert.Equal(t, int64(1), n)
	h := profile(t, svc, "human")
	assert.Equal(t, 1, h.Wins)
	assert.Equal(t, 1, h.Losses)
	assert.Equal(t, 0, h.RankedWins)

	top, _ := c.ZRevRange(context.Background(), RankingKey, 0, -1)
	assert.Empty(t, top, "battles against the AI do not count toward the leaderboard")
}

func TestRecord_AfterStopDoesNotPanic(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nil, nil, nop(), Options{Buffer: 1})
	svc.Stop(context.Background())
	svc.Stop(context.Background())
	svc.Record(pvp("late", "a", "b", battle.EndKnockout))
}

func TestRecord_DropsWhenFull(t *testing.T) {
	db := testutil.SetupTestDB(t)
	svc := New(db, nil, nil, nop(), Options{Buffer: 4})
	for i := 0; i < 64; i++ {
		svc.Record(pvp("", "flood", "victim", battle.EndKnockout))
	}
	svc.Stop(context.Background())
	// only verifies the full-channel path does not block or panic
}

func TestAggregate(t *testing.T) {
	d := aggregate([]match.Outcome{
		pvp("1", "a", "b", battle.EndKnockout),
		pvp("2", "a", "b", battle.EndForfeit),
	})
	require.Contains(t, d, "a")
	assert.Equal(t, 2, d["a"].wins)
	assert.Equal(t, 2, d["a"].ranked)
	assert.Equal(t, 1, d["a"].knockouts)
	assert.Equal(t, 2, d["b"].losses)
	assert.Equal(t, 1, d["b"].forfeits)
	assert.Equal(t, 2, d["b"].all)
}
