package discord

import (
	"context"
	"sync"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/app/service"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/storage"
)

// Services son los casos de uso que el router expone como comandos y botones.
type Services struct {
	Lobbies   *service.LobbyRegistry
	Subs      *service.SubstitutionService
	Ratings   *service.RatingEngine
	Blacklist *service.BlacklistService
	Parties   *service.PartyService
	Votes     *service.VoteService
	Policies  *service.PolicyService
}

type PanelStore interface {
	Get(ctx context.Context, guildID, lobby string) (storage.LobbyPanel, error)
	Upsert(ctx context.Context, p storage.LobbyPanel) error
	Delete(ctx context.Context, guildID, lobby string) error
	PruneExcept(ctx context.Context, guildID string, alive []string) ([]storage.LobbyPanel, error)
}

type Config struct {
	GuildID             string
	RankUpChannelName   string
	MatchCategoryPrefix string
	MatchRoomTTL        time.Duration
}

type Router struct {
	s   *discordgo.Session
	cfg Config
	svc Services
	log *logrus.Entry

	panels PanelStore
	rooms  *MatchRooms
	ranks  *RankRoles

	clickLimiter *userLimiter

	refreshMu     sync.Mutex
	refreshTimers map[string]*time.Timer
}

func NewRouter(s *discordgo.Session, cfg Config, panels PanelStore, rooms RoomStore, log *logrus.Entry) *Router {
	log = log.WithField("component", "discord")
	return &Router{
		s:             s,
		cfg:           cfg,
		log:           log,
		panels:        panels,
		rooms:         NewMatchRooms(s, rooms, cfg.MatchCategoryPrefix, cfg.MatchRoomTTL, log),
		ranks:         NewRankRoles(s, cfg.RankUpChannelName, log),
		clickLimiter:  newUserLimiter(time.Second),
		refreshTimers: map[string]*time.Timer{},
	}
}

// Bind conecta los servicios; va despues de construirlos porque ellos usan al router como notifier.
func (r *Router) Bind(svc Services) { r.svc = svc }

func (r *Router) Register() error {
	// overwrite borra de paso los comandos que ya no existen
	_, err := r.s.ApplicationCommandBulkOverwrite(r.s.State.User.ID, r.cfg.GuildID, Commands)
	return err
}

func (r *Router) Handlers() {
	r.s.AddHandler(func(s *discordgo.Session, ic *discordgo.InteractionCreate) {
		if ic.Member == nil || ic.Member.User == nil {
			return
		}
		switch ic.Type {
		case discordgo.InteractionApplicationCommand:
			r.handleSlashCommand(s, ic)
		case discordgo.InteractionMessageComponent:
			r.handleMessageComponent(s, ic)
		}
	})
	r.s.AddHandler(func(s *discordgo.Session, ev *discordgo.Ready) {
		r.log.WithFields(logrus.Fields{"user": ev.User.Username, "guilds": len(ev.Guilds)}).Info("discord ready")
		for _, g := range ev.Guilds {
			go r.prunePanels(g.ID)
		}
	})
}

// SweepRooms borra las salas vencidas sin timer vivo.
func (r *Router) SweepRooms(ctx context.Context) (int, error) { return r.rooms.Sweep(ctx) }

// Close frena los refresh pendientes.
func (r *Router) Close() {
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()
	for k, t := range r.refreshTimers {
		t.Stop()
		delete(r.refreshTimers, k)
	}
}
