package service

import (
	"context"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/storage"
)

// Lo implementa internal/infra/storage.PlayerRepo. SavePlayers hace upsert de lo que recibe.
type PlayerStore interface {
	LoadPlayers(ctx context.Context) (map[string]domain.PlayerRecord, error)
	SavePlayers(ctx context.Context, players map[string]domain.PlayerRecord) error
}

// Lo implementa internal/infra/storage.BlacklistRepo. SaveBlacklist reemplaza el set completo.
type BlacklistStore interface {
	LoadBlacklist(ctx context.Context) (map[string]domain.BlacklistEntry, error)
	SaveBlacklist(ctx context.Context, entries map[string]domain.BlacklistEntry) error
}

// Lo implementan el notifier de Discord y internal/adapters/redisbus.
type Notifier interface {
	Announce(ctx context.Context, ev domain.Event) error
}

// Lo implementa internal/adapters/discord.Capabilities.
type Capabilities interface {
	IsHost(ctx context.Context, guildID, userID string) (bool, error)
	IsAdmin(ctx context.Context, guildID, userID string) (bool, error)
}

// Lo cumple *rand.Rand de math/rand/v2 y clock.Rand.
type Rand interface {
	IntN(n int) int
	Shuffle(n int, swap func(i, j int))
}

// Lo implementa internal/infra/storage.PolicyRepo
type PolicyRepo interface {
	Get(ctx context.Context, guildID string) (storage.GuildPolicy, error)
	Upsert(ctx context.Context, p storage.GuildPolicy) error
}

// Lo implementa internal/infra/metrics.Prom.
type Metrics interface {
	LobbyCreated(guildID string)
	LobbyClosed(guildID, reason string)
	MatchStarted(guildID string, fallback bool)
	VoteCast(guildID string)
	VoteResolved(guildID, reason string)
	RatingApplied(outcome domain.Outcome)
	CollaboratorFailure(collaborator string)
}

type noopMetrics struct{}

func (noopMetrics) LobbyCreated(string)          {}
func (noopMetrics) LobbyClosed(string, string)   {}
func (noopMetrics) MatchStarted(string, bool)    {}
func (noopMetrics) VoteCast(string)              {}
func (noopMetrics) VoteResolved(string, string)  {}
func (noopMetrics) RatingApplied(domain.Outcome) {}
func (noopMetrics) CollaboratorFailure(string)   {}

func orNoop(m Metrics) Metrics {
	if m == nil {
		return noopMetrics{}
	}
	return m
}
