package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

// MultiNotifier reparte cada evento a todos; junta los errores.
type MultiNotifier []Notifier

func (m MultiNotifier) Announce(ctx context.Context, ev domain.Event) error {
	var errs []error
	for _, n := range m {
		if n == nil {
			continue
		}
		if err := n.Announce(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// announce nunca falla hacia arriba: el estado ya cambio.
func announce(ctx context.Context, n Notifier, log *logrus.Entry, m Metrics, evs ...domain.Event) {
	if n == nil {
		return
	}
	for _, ev := range evs {
		if err := n.Announce(ctx, ev); err != nil {
			log.WithError(err).WithFields(logrus.Fields{"kind": ev.Kind, "guild": ev.GuildID, "lobby": ev.Lobby}).Warn("announce failed")
			m.CollaboratorFailure("notifier")
		}
	}
}

// capability trata un lookup caido como "no tiene" y deja un warning.
func capability(ctx context.Context, caps Capabilities, log *logrus.Entry, kind, guildID, userID string) bool {
	if caps == nil || userID == "" {
		return false
	}
	var (
		ok  bool
		err error
	)
	switch kind {
	case "host":
		ok, err = caps.IsHost(ctx, guildID, userID)
	default:
		ok, err = caps.IsAdmin(ctx, guildID, userID)
	}
	if err != nil {
		log.WithError(err).WithFields(logrus.Fields{"guild": guildID, "user": userID, "capability": kind}).Warn("capability lookup failed")
		return false
	}
	return ok
}

func requireAdmin(ctx context.Context, caps Capabilities, log *logrus.Entry, guildID, userID string) error {
	if !capability(ctx, caps, log, "admin", guildID, userID) {
		return fmt.Errorf("%w: admin required", domain.ErrPermissionDenied)
	}
	return nil
}
