package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

const namespace = "cbac"

// Prom cumple service.Metrics sobre un registry propio.
type Prom struct {
	registry *prometheus.Registry

	lobbiesCreated *prometheus.CounterVec
	lobbiesClosed  *prometheus.CounterVec
	matchesStarted *prometheus.CounterVec
	votesCast      *prometheus.CounterVec
	votesResolved  *prometheus.CounterVec
	ratings        *prometheus.CounterVec
	failures       *prometheus.CounterVec
}

func New(registry *prometheus.Registry) *Prom {
	factory := promauto.With(registry)
	return &Prom{
		registry: registry,
		lobbiesCreated: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lobbies_created_total",
			Help:      "Lobbies created per guild",
		}, []string{"guild"}),
		lobbiesClosed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "lobbies_closed_total",
			Help:      "Lobbies retired per guild and reason (reported, removed)",
		}, []string{"guild", "reason"}),
		matchesStarted: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "matches_started_total",
			Help:      "Matches started; fallback=true when the balancer used a random split",
		}, []string{"guild", "fallback"}),
		votesCast: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "map_votes_cast_total",
			Help:      "Map votes accepted",
		}, []string{"guild"}),
		votesResolved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "map_votes_resolved_total",
			Help:      "Map vote sessions closed per reason",
		}, []string{"guild", "reason"}),
		ratings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rating_updates_total",
			Help:      "Rating updates per outcome",
		}, []string{"outcome"}),
		failures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "collaborator_failures_total",
			Help:      "Failed calls to stores, notifiers and capability lookups",
		}, []string{"collaborator"}),
	}
}

func (p *Prom) Registry() *prometheus.Registry { return p.registry }

func (p *Prom) LobbyCreated(guildID string) {
	p.lobbiesCreated.With(prometheus.Labels{"guild": guildID}).Inc()
}

func (p *Prom) LobbyClosed(guildID, reason string) {
	p.lobbiesClosed.With(prometheus.Labels{"guild": guildID, "reason": reason}).Inc()
}

func (p *Prom) MatchStarted(guildID string, fallback bool) {
	p.matchesStarted.With(prometheus.Labels{"guild": guildID, "fallback": strconv.FormatBool(fallback)}).Inc()
}

func (p *Prom) VoteCast(guildID string) {
	p.votesCast.With(prometheus.Labels{"guild": guildID}).Inc()
}

func (p *Prom) VoteResolved(guildID, reason string) {
	p.votesResolved.With(prometheus.Labels{"guild": guildID, "reason": reason}).Inc()
}

func (p *Prom) RatingApplied(o domain.Outcome) {
	p.ratings.With(prometheus.Labels{"outcome": string(o)}).Inc()
}

func (p *Prom) CollaboratorFailure(name string) {
	p.failures.With(prometheus.Labels{"collaborator": name}).Inc()
}
