package discord

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/infra/clock"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/storage"
)

const (
	roomStatusStarted  = "started"
	roomStatusReported = "reported"
	roomStatusRemoved  = "removed"
)

// Lo implementa internal/infra/storage.MatchRoomsRepo.
type RoomStore interface {
	Get(ctx context.Context, matchID string) (storage.MatchRoom, error)
	Upsert(ctx context.Context, m storage.MatchRoom) error
	UpdateStatus(ctx context.Context, matchID string, status string) error
	MarkExpiring(ctx context.Context, matchID string, at time.Time) error
	ListExpired(ctx context.Context, now time.Time) ([]storage.MatchRoom, error)
	Delete(ctx context.Context, matchID string) error
}

// roomAPI es la parte de la sesion que tocan las salas.
type roomAPI interface {
	GuildChannelCreateComplex(guildID string, data discordgo.GuildChannelCreateData, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	ChannelDelete(channelID string, options ...discordgo.RequestOption) (*discordgo.Channel, error)
	GuildMemberMove(guildID string, userID string, channelID *string, options ...discordgo.RequestOption) error
}

// MatchRooms crea y limpia la categoria de cada match (texto + voz T/CT).
type MatchRooms struct {
	api     roomAPI
	inVoice func(guildID, userID string) bool
	store   RoomStore
	prefix  string
	ttl     time.Duration
	clock   clock.Clock
	log     *logrus.Entry
}

func NewMatchRooms(s *discordgo.Session, store RoomStore, prefix string, ttl time.Duration, log *logrus.Entry) *MatchRooms {
	inVoice := func(guildID, userID string) bool {
		vs, err := s.State.VoiceState(guildID, userID)
		return err == nil && vs != nil && vs.ChannelID != ""
	}
	return newMatchRooms(s, inVoice, store, prefix, ttl, clock.Real{}, log)
}

func newMatchRooms(api roomAPI, inVoice func(string, string) bool, store RoomStore, prefix string, ttl time.Duration, clk clock.Clock, log *logrus.Entry) *MatchRooms {
	if prefix == "" {
		prefix = "Match"
	}
	return &MatchRooms{api: api, inVoice: inVoice, store: store, prefix: prefix, ttl: ttl, clock: clk, log: log.WithField("part", "rooms")}
}

// Ensure crea las salas si no existen y mueve a quien ya este en voz.
func (m *MatchRooms) Ensure(ctx context.Context, guildID, lobby, matchID string, teamA, teamB []string) (storage.MatchRoom, error) {
	if room, err := m.store.Get(ctx, matchID); err == nil {
		return room, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return storage.MatchRoom{}, err
	}

	var created []string
	mk := func(name string, typ discordgo.ChannelType, parent string) (string, error) {
		ch, err := m.api.GuildChannelCreateComplex(guildID, discordgo.GuildChannelCreateData{Name: name, Type: typ, ParentID: parent})
		if err != nil {
			return "", fmt.Errorf("create channel %q: %w", name, err)
		}
		created = append(created, ch.ID)
		return ch.ID, nil
	}
	rollback := func() {
		// de atras para adelante: la categoria queda ultima
		for i := len(created) - 1; i >= 0; i-- {
			_, _ = m.api.ChannelDelete(created[i])
		}
	}

	catID, err := mk(fmt.Sprintf("%s %s #%s", m.prefix, lobby, shortID(matchID)), discordgo.ChannelTypeGuildCategory, "")
	if err != nil {
		return storage.MatchRoom{}, err
	}
	room := storage.MatchRoom{MatchID: matchID, GuildID: guildID, Lobby: lobby, CategoryID: catID}
	steps := []struct {
		name string
		typ  discordgo.ChannelType
		dst  *string
	}{
		{"partida", discordgo.ChannelTypeGuildText, &room.TextChannelID},
		{"T", discordgo.ChannelTypeGuildVoice, &room.TeamAChannelID},
		{"CT", discordgo.ChannelTypeGuildVoice, &room.TeamBChannelID},
	}
	for _, st := range steps {
		id, err := mk(st.name, st.typ, catID)
		if err != nil {
			rollback()
			return storage.MatchRoom{}, err
		}
		*st.dst = id
	}

	status := roomStatusStarted
	room.LastStatus = &status
	if err := m.store.Upsert(ctx, room); err != nil {
		rollback()
		return storage.MatchRoom{}, fmt.Errorf("save room: %w", err)
	}

	m.move(guildID, teamA, room.TeamAChannelID)
	m.move(guildID, teamB, room.TeamBChannelID)
	m.log.WithFields(logrus.Fields{"guild": guildID, "lobby": lobby, "match": matchID}).Info("match rooms created")
	return room, nil
}

// move solo mueve a los que estan conectados a voz; Discord rechaza al resto.
func (m *MatchRooms) move(guildID string, users []string, channelID string) {
	for _, uid := range users {
		if !m.inVoice(guildID, uid) {
			continue
		}
		if err := m.api.GuildMemberMove(guildID, uid, &channelID); err != nil {
			m.log.WithError(err).WithFields(logrus.Fields{"guild": guildID, "user": uid}).Warn("move member failed")
		}
	}
}

// Expire deja las salas vivas ttl mas y despues las borra.
func (m *MatchRooms) Expire(ctx context.Context, matchID, status string) {
	ctx = context.WithoutCancel(ctx)
	if err := m.store.UpdateStatus(ctx, matchID, status); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return
		}
		m.log.WithError(err).WithField("match", matchID).Warn("update room status failed")
	}
	if m.ttl <= 0 {
		m.cleanupLogged(ctx, matchID)
		return
	}
	if err := m.store.MarkExpiring(ctx, matchID, m.clock.Now().Add(m.ttl)); err != nil {
		m.log.WithError(err).WithField("match", matchID).Warn("mark room expiring failed")
	}
	m.clock.AfterFunc(m.ttl, func() { m.cleanupLogged(ctx, matchID) })
}

func (m *MatchRooms) cleanupLogged(ctx context.Context, matchID string) {
	if err := m.Cleanup(ctx, matchID); err != nil {
		m.log.WithError(err).WithField("match", matchID).Warn("room cleanup failed")
	}
}

// Cleanup borra canales y fila. Sin fila no hay nada que hacer.
func (m *MatchRooms) Cleanup(ctx context.Context, matchID string) error {
	room, err := m.store.Get(ctx, matchID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	m.deleteChannels(room)
	return m.store.Delete(ctx, matchID)
}

func (m *MatchRooms) deleteChannels(room storage.MatchRoom) {
	for _, id := range []string{room.TextChannelID, room.TeamAChannelID, room.TeamBChannelID, room.CategoryID} {
		if id == "" {
			continue
		}
		if _, err := m.api.ChannelDelete(id); err != nil {
			m.log.WithError(err).WithFields(logrus.Fields{"match": room.MatchID, "channel": id}).Debug("delete channel")
		}
	}
}

// Sweep limpia las salas vencidas que quedaron de un reinicio.
func (m *MatchRooms) Sweep(ctx context.Context) (int, error) {
	rooms, err := m.store.ListExpired(ctx, m.clock.Now())
	if err != nil {
		return 0, err
	}
	for _, room := range rooms {
		m.deleteChannels(room)
		if err := m.store.Delete(ctx, room.MatchID); err != nil {
			return 0, err
		}
	}
	return len(rooms), nil
}

func shortID(s string) string {
	if len(s) <= 6 {
		return s
	}
	return s[:6]
}
