package testsetup

import (
	"sync"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

// StubMetrics cuenta llamadas por nombre.
type StubMetrics struct {
	mu     sync.Mutex
	Counts map[string]int
}

func NewMetrics() *StubMetrics { return &StubMetrics{Counts: map[string]int{}} }

func (m *StubMetrics) inc(k string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Counts[k]++
}

func (m *StubMetrics) Count(k string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.Counts[k]
}

func (m *StubMetrics) LobbyCreated(string)          { m.inc("lobby_created") }
func (m *StubMetrics) LobbyClosed(_, reason string) { m.inc("lobby_closed_" + reason) }
func (m *StubMetrics) MatchStarted(_ string, fallback bool) {
	m.inc("match_started")
	if fallback {
		m.inc("balancer_fallback")
	}
}
func (m *StubMetrics) VoteCast(string)                { m.inc("vote_cast") }
func (m *StubMetrics) VoteResolved(_, reason string)  { m.inc("vote_resolved_" + reason) }
func (m *StubMetrics) RatingApplied(o domain.Outcome) { m.inc("rating_" + string(o)) }
func (m *StubMetrics) CollaboratorFailure(c string)   { m.inc("failure_" + c) }
