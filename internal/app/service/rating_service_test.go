package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/testsetup"
)

func newEngine(t *testing.T, seed map[string]domain.PlayerRecord) (*RatingEngine, *testsetup.MemoryPlayerStore) {
	t.Helper()
	store := testsetup.NewMemoryPlayerStore()
	for id, p := range seed {
		store.Players[id] = p
	}
	log, _ := testsetup.NewLogger()
	return NewRatingEngine(context.Background(), store, testsetup.NewFakeClock(), log, testsetup.NewMetrics()), store
}

func TestRatingEngine_Update(t *testing.T) {
	cases := []struct {
		name        string
		start       int
		delta       int
		wantRating  int
		wantApplied int
		wantOutcome domain.Outcome
		wantWins    int
		wantLosses  int
	}{
		{"floor protected", 0, -20, 0, 0, domain.OutcomeDraw, 0, 0},
		{"win from 500", 500, 32, 532, 32, domain.OutcomeWin, 1, 0},
		{"regular loss", 500, -15, 485, -15, domain.OutcomeLoss, 0, 1},
		{"partial loss clamps at zero", 12, -18, 0, -12, domain.OutcomeLoss, 0, 1},
		{"zero delta is a draw", 300, 0, 300, 0, domain.OutcomeDraw, 0, 0},
		{"first win from zero", 0, 31, 31, 31, domain.OutcomeWin, 1, 0},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			e, store := newEngine(t, map[string]domain.PlayerRecord{"u": {UserID: "u", Rating: c.start}})

			res := e.Update(context.Background(), "u", c.delta, MatchInfo{MatchID: "m1", Map: "MIRAGE", OpponentAvg: 410})

			assert.Equal(t, c.start, res.OldRating)
			assert.Equal(t, c.wantRating, res.NewRating)
			assert.Equal(t, c.wantApplied, res.Applied)
			assert.Equal(t, c.wantOutcome, res.Outcome)

			rec := e.Get(context.Background(), "u")
			assert.Equal(t, c.wantRating, rec.Rating)
			assert.Equal(t, c.wantWins, rec.Wins)
			assert.Equal(t, c.wantLosses, rec.Losses)
			require.Len(t, rec.RecentMatches, 1)
			assert.Equal(t, c.wantApplied, rec.RecentMatches[0].Delta)
			assert.Equal(t, c.wantRating, rec.RecentMatches[0].Rating)
			assert.Equal(t, domain.MapName("MIRAGE"), rec.RecentMatches[0].Map)
			assert.Equal(t, 410, rec.RecentMatches[0].OpponentAvg)

			saved, ok := store.Get("u")
			require.True(t, ok)
			assert.Equal(t, c.wantRating, saved.Rating)
		})
	}
}

func TestRatingEngine_HistoryCappedAtTen(t *testing.T) {
	e, _ := newEngine(t, map[string]domain.PlayerRecord{"u": {UserID: "u", Rating: 500}})
	for i := 0; i < 15; i++ {
		e.Update(context.Background(), "u", 32, MatchInfo{MatchID: fmt.Sprintf("m%d", i)})
	}
	rec := e.Get(context.Background(), "u")
	require.Len(t, rec.RecentMatches, domain.HistoryLimit)
	assert.Equal(t, "m5", rec.RecentMatches[0].MatchID)
	assert.Equal(t, "m14", rec.RecentMatches[9].MatchID)
	assert.Equal(t, 15, rec.Wins)
	assert.Equal(t, 500+15*32, rec.Rating)
}

func TestRatingEngine_TracksGainedAndLostSeparately(t *testing.T) {
	e, _ := newEngine(t, nil)
	ctx := context.Background()
	e.Update(ctx, "u", 30, MatchInfo{})
	e.Update(ctx, "u", -10, MatchInfo{})
	e.Update(ctx, "u", 35, MatchInfo{})

	rec := e.Get(ctx, "u")
	assert.Equal(t, 55, rec.Rating)
	assert.Equal(t, 65, rec.TotalGained)
	assert.Equal(t, 10, rec.TotalLost)
}

func TestRatingEngine_LazyCreateAndPersistFailure(t *testing.T) {
	store := testsetup.NewMemoryPlayerStore()
	store.Fail = true
	log, hook := testsetup.NewLogger()
	m := testsetup.NewMetrics()
	e := NewRatingEngine(context.Background(), store, testsetup.NewFakeClock(), log, m)

	res := e.Update(context.Background(), "new", 32, MatchInfo{})

	// el cambio en memoria queda aunque el store falle
	assert.Equal(t, 32, res.NewRating)
	assert.Equal(t, 32, e.Rating("new"))
	assert.GreaterOrEqual(t, testsetup.Warnings(hook), 2)
	assert.GreaterOrEqual(t, m.Count("failure_player_store"), 2)
}

func TestRatingEngine_UpdateManySavesOnce(t *testing.T) {
	e, store := newEngine(t, nil)
	before := store.Saves
	res := e.UpdateMany(context.Background(), []RatingUpdate{
		{UserID: "a", Delta: 30},
		{UserID: "b", Delta: -12},
	})
	require.Len(t, res, 2)
	assert.Equal(t, domain.OutcomeWin, res[0].Outcome)
	assert.Equal(t, domain.OutcomeDraw, res[1].Outcome)
	assert.Equal(t, before+1, store.Saves)
}

func TestRatingEngine_ProfileAndLeaderboard(t *testing.T) {
	e, _ := newEngine(t, map[string]domain.PlayerRecord{
		"a": {Rating: 1400, Wins: 50},
		"b": {Rating: 700, Wins: 20},
		"c": {Rating: 700, Wins: 25},
		"d": {Rating: 700, Wins: 25},
	})

	p := e.Profile(context.Background(), "b")
	assert.Equal(t, "Tier 6", p.Tier.Label)
	require.True(t, p.HasNext)
	assert.Equal(t, "Tier 5", p.Next.Label)
	assert.Equal(t, 50, p.PointsToGo)

	top := e.Profile(context.Background(), "a")
	assert.False(t, top.HasNext)

	board := e.Leaderboard(3)
	require.Len(t, board, 3)
	assert.Equal(t, "a", board[0].Record.UserID)
	assert.Equal(t, "c", board[1].Record.UserID)
	assert.Equal(t, "d", board[2].Record.UserID)
	assert.Equal(t, 3, board[2].Position)
}

func TestRankTransition(t *testing.T) {
	cases := []struct {
		old, new int
		want     domain.EventKind
		ok       bool
	}{
		{0, 31, domain.EventRankEntered, true},
		{140, 172, domain.EventRankUp, true},
		{160, 145, domain.EventRankDown, true},
		{200, 232, "", false},
		{0, 0, "", false},
	}
	for _, c := range cases {
		got, ok := RankTransition(c.old, c.new)
		assert.Equal(t, c.ok, ok, "%d->%d", c.old, c.new)
		assert.Equal(t, c.want, got, "%d->%d", c.old, c.new)
	}
}
