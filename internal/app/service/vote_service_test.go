package service

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/testsetup"
)

func voters(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("v%d", i+1)
	}
	return out
}

type resolution struct {
	mu      sync.Mutex
	winners []domain.MapName
	reasons []string
}

func (r *resolution) record(m domain.MapName, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.winners = append(r.winners, m)
	r.reasons = append(r.reasons, reason)
}

func (r *resolution) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.winners)
}

func newVotes(seed uint64) (*VoteService, *testsetup.FakeClock) {
	clk := testsetup.NewFakeClock()
	log, _ := testsetup.NewLogger()
	return NewVoteService(clk, testsetup.NewRand(seed), log, testsetup.NewMetrics()), clk
}

func TestVote_ResolvesOnTenthVoter(t *testing.T) {
	v, clk := newVotes(1)
	var res resolution
	s := v.Open("g", "main", "m1", voters(10), 120*time.Second, res.record)

	for i, id := range voters(10) {
		done, err := s.Cast(id, "NUKE")
		require.NoError(t, err)
		assert.Equal(t, i == 9, done)
	}
	require.Equal(t, 1, res.count())
	assert.Equal(t, domain.MapName("NUKE"), res.winners[0])
	assert.Equal(t, ResolvedAllVoted, res.reasons[0])
	assert.Equal(t, 0, clk.Pending())

	// el timer ya no hace nada
	clk.Advance(5 * time.Minute)
	assert.Equal(t, 1, res.count())

	_, err := s.Cast("v1", "MIRAGE")
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
}

func TestVote_OverwriteDoesNotCountTwice(t *testing.T) {
	v, _ := newVotes(1)
	var res resolution
	s := v.Open("g", "main", "m1", voters(10), time.Minute, res.record)

	for _, id := range voters(9) {
		_, err := s.Cast(id, "MIRAGE")
		require.NoError(t, err)
		_, err = s.Cast(id, "INFERNO")
		require.NoError(t, err)
	}
	assert.Equal(t, 0, res.count())

	tally := s.Tally()
	assert.Equal(t, 9, tally.Voted)
	assert.Equal(t, 9, tally.Counts["INFERNO"])
	assert.Zero(t, tally.Counts["MIRAGE"])
}

func TestVote_Rejections(t *testing.T) {
	v, _ := newVotes(1)
	s := v.Open("g", "main", "m1", voters(10), time.Minute, nil)

	_, err := s.Cast("stranger", "MIRAGE")
	assert.ErrorIs(t, err, domain.ErrNotEligible)

	_, err = v.Cast(context.Background(), "g", "main", "v1", "cache")
	assert.ErrorIs(t, err, domain.ErrInvalidMap)

	_, err = v.Cast(context.Background(), "g", "other", "v1", "MIRAGE")
	assert.ErrorIs(t, err, domain.ErrVoteNotFound)
}

func TestVote_DeadlineResolves(t *testing.T) {
	v, clk := newVotes(3)
	var res resolution
	s := v.Open("g", "main", "m1", voters(10), 120*time.Second, res.record)

	_, err := s.Cast("v1", "ANUBIS")
	require.NoError(t, err)

	clk.Advance(119 * time.Second)
	assert.Equal(t, 0, res.count())
	clk.Advance(time.Second)
	require.Equal(t, 1, res.count())
	assert.Equal(t, domain.MapName("ANUBIS"), res.winners[0])
	assert.Equal(t, ResolvedDeadline, res.reasons[0])
	assert.True(t, s.Tally().Resolved)
}

func TestVote_NoVotesPicksFromPool(t *testing.T) {
	v, clk := newVotes(4)
	var res resolution
	v.Open("g", "main", "m1", voters(10), time.Minute, res.record)
	clk.Advance(time.Minute)
	require.Equal(t, 1, res.count())
	assert.Contains(t, domain.MapPool, res.winners[0])
}

func castTally(t *testing.T, s *MapVoteSession, tally map[domain.MapName]int) {
	t.Helper()
	i := 1
	for m, n := range tally {
		for k := 0; k < n; k++ {
			_, err := s.Cast(fmt.Sprintf("v%d", i), m)
			require.NoError(t, err)
			i++
		}
	}
}

func TestVote_UniqueMaximumIsDeterministic(t *testing.T) {
	for seed := uint64(0); seed < 50; seed++ {
		v, _ := newVotes(seed)
		var res resolution
		s := v.Open("g", "main", "m1", voters(10), time.Minute, res.record)
		castTally(t, s, map[domain.MapName]int{"MIRAGE": 6, "NUKE": 4})
		require.Equal(t, 1, res.count())
		assert.Equal(t, domain.MapName("MIRAGE"), res.winners[0])
	}
}

func TestVote_TieIsRandom(t *testing.T) {
	rnd := testsetup.NewRand(42)
	counts := map[domain.MapName]int{}
	const trials = 400
	for i := 0; i < trials; i++ {
		votes := map[string]domain.MapName{}
		for k := 1; k <= 5; k++ {
			votes[fmt.Sprintf("a%d", k)] = "MIRAGE"
			votes[fmt.Sprintf("b%d", k)] = "NUKE"
		}
		counts[pickWinner(domain.MapPool, votes, rnd)]++
	}
	assert.Equal(t, trials, counts["MIRAGE"]+counts["NUKE"])
	assert.InDelta(t, trials/2, counts["MIRAGE"], trials*0.15)
}

func TestVote_LastVoteRacingDeadlineResolvesOnce(t *testing.T) {
	for i := 0; i < 50; i++ {
		v, clk := newVotes(uint64(i))
		var n atomic.Int32
		s := v.Open("g", "main", "m1", voters(10), time.Second, func(domain.MapName, string) { n.Add(1) })
		for _, id := range voters(9) {
			_, err := s.Cast(id, "TRAIN")
			require.NoError(t, err)
		}

		var wg sync.WaitGroup
		wg.Add(2)
		go func() { defer wg.Done(); clk.Advance(time.Second) }()
		go func() { defer wg.Done(); _, _ = s.Cast("v10", "TRAIN") }()
		wg.Wait()

		assert.Equal(t, int32(1), n.Load())
	}
}

func TestVote_DropCancelsWithoutResolving(t *testing.T) {
	v, clk := newVotes(1)
	var res resolution
	s := v.Open("g", "main", "m1", voters(10), time.Minute, res.record)
	v.Drop("g", "main")

	clk.Advance(time.Hour)
	assert.Equal(t, 0, res.count())
	_, err := s.Cast("v1", "MIRAGE")
	assert.ErrorIs(t, err, domain.ErrAlreadyResolved)
	_, ok := v.Get("g", "main")
	assert.False(t, ok)
}
