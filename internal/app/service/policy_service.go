package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/storage"
)

// PolicyService guarda los overrides por servidor de premios y duracion del voto.
type PolicyService struct {
	repo     PolicyRepo
	caps     Capabilities
	defaults domain.MatchPolicy
	log      *logrus.Entry
}

func NewPolicyService(r PolicyRepo, caps Capabilities, defaults domain.MatchPolicy, log *logrus.Entry) *PolicyService {
	return &PolicyService{repo: r, caps: caps, defaults: defaults, log: log.WithField("component", "policy")}
}

type PolicyPatch struct {
	WinMin      *int
	WinMax      *int
	LossMin     *int
	LossMax     *int
	VoteSeconds *int
}

func (p PolicyPatch) empty() bool {
	return p.WinMin == nil && p.WinMax == nil && p.LossMin == nil && p.LossMax == nil && p.VoteSeconds == nil
}

// MatchPolicy nunca falla: sin fila o con la base caida usa los defaults del env.
func (s *PolicyService) MatchPolicy(ctx context.Context, guildID string) domain.MatchPolicy {
	p, err := s.repo.Get(ctx, guildID)
	if errors.Is(err, storage.ErrNotFound) {
		return s.defaults
	}
	if err != nil {
		s.log.WithError(err).WithField("guild", guildID).Warn("load policy failed, using defaults")
		return s.defaults
	}
	return toMatchPolicy(p)
}

func (s *PolicyService) Update(ctx context.Context, guildID, actor string, patch PolicyPatch) (domain.MatchPolicy, error) {
	if err := requireAdmin(ctx, s.caps, s.log, guildID, actor); err != nil {
		return domain.MatchPolicy{}, err
	}
	cur := s.MatchPolicy(ctx, guildID)
	if patch.empty() {
		return cur, nil
	}

	if patch.WinMin != nil {
		cur.WinMin = *patch.WinMin
	}
	if patch.WinMax != nil {
		cur.WinMax = *patch.WinMax
	}
	if patch.LossMin != nil {
		cur.LossMin = *patch.LossMin
	}
	if patch.LossMax != nil {
		cur.LossMax = *patch.LossMax
	}
	if patch.VoteSeconds != nil {
		cur.VoteDuration = time.Duration(*patch.VoteSeconds) * time.Second
	}
	if err := cur.Validate(); err != nil {
		return domain.MatchPolicy{}, fmt.Errorf("%w: win %d-%d loss %d-%d vote %s", err, cur.WinMin, cur.WinMax, cur.LossMin, cur.LossMax, cur.VoteDuration)
	}

	if err := s.repo.Upsert(ctx, fromMatchPolicy(guildID, cur)); err != nil {
		return domain.MatchPolicy{}, fmt.Errorf("%w: save policy: %v", domain.ErrUnavailable, err)
	}
	s.log.WithFields(logrus.Fields{"guild": guildID, "actor": actor}).Info("policy updated")
	return cur, nil
}

func toMatchPolicy(p storage.GuildPolicy) domain.MatchPolicy {
	return domain.MatchPolicy{
		WinMin:       p.WinMin,
		WinMax:       p.WinMax,
		LossMin:      p.LossMin,
		LossMax:      p.LossMax,
		VoteDuration: time.Duration(p.VoteSeconds) * time.Second,
	}
}

func fromMatchPolicy(guildID string, p domain.MatchPolicy) storage.GuildPolicy {
	return storage.GuildPolicy{
		GuildID:     guildID,
		WinMin:      p.WinMin,
		WinMax:      p.WinMax,
		LossMin:     p.LossMin,
		LossMax:     p.LossMax,
		VoteSeconds: int(p.VoteDuration / time.Second),
	}
}
