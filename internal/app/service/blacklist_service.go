package service

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/clock"
)

// BlacklistService guarda suspensiones. Las vencidas se borran la primera vez que se consultan.
type BlacklistService struct {
	mu      sync.Mutex
	entries map[string]domain.BlacklistEntry

	store    BlacklistStore
	caps     Capabilities
	notifier Notifier
	clock    clock.Clock
	log      *logrus.Entry
	metrics  Metrics
}

func NewBlacklistService(ctx context.Context, store BlacklistStore, caps Capabilities, n Notifier, clk clock.Clock, log *logrus.Entry, m Metrics) *BlacklistService {
	s := &BlacklistService{
		entries:  map[string]domain.BlacklistEntry{},
		store:    store,
		caps:     caps,
		notifier: n,
		clock:    clk,
		log:      log.WithField("component", "blacklist"),
		metrics:  orNoop(m),
	}
	loaded, err := store.LoadBlacklist(ctx)
	if err != nil {
		s.log.WithError(err).Warn("load blacklist failed, starting empty")
		s.metrics.CollaboratorFailure("blacklist_store")
		return s
	}
	for id, e := range loaded {
		e.UserID = id
		s.entries[id] = e
	}
	return s
}

// Suspend pisa cualquier suspension previa. durationHours 0 es permanente.
func (s *BlacklistService) Suspend(ctx context.Context, guildID, actor, userID, reason string, durationHours int) (domain.BlacklistEntry, error) {
	if durationHours < 0 {
		return domain.BlacklistEntry{}, fmt.Errorf("%w: %d", domain.ErrInvalidDuration, durationHours)
	}
	if err := requireAdmin(ctx, s.caps, s.log, guildID, actor); err != nil {
		return domain.BlacklistEntry{}, err
	}

	now := s.clock.Now()
	e := domain.BlacklistEntry{
		UserID:    userID,
		Reason:    reason,
		CreatedAt: now,
		IssuedBy:  actor,
		Permanent: durationHours == 0,
	}
	if !e.Permanent {
		e.ExpiresAt = now.Add(time.Duration(durationHours) * time.Hour)
	}

	s.mu.Lock()
	s.entries[userID] = e
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"guild": guildID, "user": userID, "hours": durationHours}).Info("user suspended")
	announce(ctx, s.notifier, s.log, s.metrics, domain.Event{
		Kind:      domain.EventPlayerSuspended,
		GuildID:   guildID,
		UserID:    userID,
		At:        now,
		Reason:    reason,
		ExpiresAt: e.ExpiresAt,
		Permanent: e.Permanent,
		IssuedBy:  actor,
	})
	return e, nil
}

func (s *BlacklistService) IsSuspended(ctx context.Context, userID string) bool {
	_, ok := s.Status(ctx, userID)
	return ok
}

// Status devuelve la entrada vigente, aplicando el vencimiento perezoso.
func (s *BlacklistService) Status(ctx context.Context, userID string) (domain.BlacklistEntry, bool) {
	s.mu.Lock()
	e, ok := s.entries[userID]
	if !ok {
		s.mu.Unlock()
		return domain.BlacklistEntry{}, false
	}
	if !e.Expired(s.clock.Now()) {
		s.mu.Unlock()
		return e, true
	}
	delete(s.entries, userID)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.log.WithField("user", userID).Info("suspension expired")
	return domain.BlacklistEntry{}, false
}

// Lift borra la entrada. ErrNotSuspended si no habia nada que levantar.
func (s *BlacklistService) Lift(ctx context.Context, guildID, actor, userID string) error {
	if err := requireAdmin(ctx, s.caps, s.log, guildID, actor); err != nil {
		return err
	}

	now := s.clock.Now()
	s.mu.Lock()
	e, ok := s.entries[userID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNotSuspended, userID)
	}
	if e.Expired(now) {
		// vencida sin purgar: se limpia pero no cuenta como levantada
		delete(s.entries, userID)
		s.persistLocked(ctx)
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrNotSuspended, userID)
	}
	delete(s.entries, userID)
	s.persistLocked(ctx)
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"guild": guildID, "user": userID}).Info("suspension lifted")
	announce(ctx, s.notifier, s.log, s.metrics, domain.Event{
		Kind:     domain.EventPlayerUnsuspended,
		GuildID:  guildID,
		UserID:   userID,
		At:       now,
		IssuedBy: actor,
	})
	return nil
}

// List devuelve las suspensiones vigentes sin tocar las vencidas.
func (s *BlacklistService) List() []domain.BlacklistEntry {
	now := s.clock.Now()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]domain.BlacklistEntry, 0, len(s.entries))
	for _, e := range s.entries {
		if !e.Expired(now) {
			out = append(out, e)
		}
	}
	return out
}

// persistLocked escribe bajo el lock para que el store nunca reciba un set viejo despues de uno nuevo.
func (s *BlacklistService) persistLocked(ctx context.Context) {
	if err := s.store.SaveBlacklist(ctx, maps.Clone(s.entries)); err != nil {
		s.log.WithError(err).Warn("save blacklist failed")
		s.metrics.CollaboratorFailure("blacklist_store")
	}
}
