package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	discordrouter "github.com/jose-valero/cbac-queue-bot/internal/adapters/discord"
	"github.com/jose-valero/cbac-queue-bot/internal/adapters/httpapi"
	"github.com/jose-valero/cbac-queue-bot/internal/adapters/redisbus"
	"github.com/jose-valero/cbac-queue-bot/internal/app/service"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/clock"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/config"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/metrics"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/storage"
)

func main() {
	logger := logrus.New()
	cfg, err := config.Load()
	if err != nil {
		logger.WithError(err).Fatal("config")
	}
	setupLogger(logger, cfg)
	log := logrus.NewEntry(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, os.Interrupt)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.WithError(err).Fatal("bot stopped")
	}
	log.Info("bye")
}

func setupLogger(l *logrus.Logger, cfg config.Config) {
	if strings.EqualFold(cfg.LogFormat, "json") {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		l.SetLevel(lvl)
	}
}

func run(ctx context.Context, cfg config.Config, log *logrus.Entry) error {
	// DB
	db, err := storage.Open(ctx, cfg.DatabaseURL, storage.DefaultPool)
	if err != nil {
		return err
	}
	defer db.Close()
	if err := storage.Migrate(ctx, db); err != nil {
		return err
	}
	log.Info("db ready and migrated")

	playerRepo := storage.NewPlayerRepo(db)
	blacklistRepo := storage.NewBlacklistRepo(db)
	policyRepo := storage.NewPolicyRepo(db)
	panelRepo := storage.NewPanelRepo(db)
	roomsRepo := storage.NewMatchRoomsRepo(db)

	prom := metrics.New(prometheus.NewRegistry())
	rnd, err := clock.NewSeededRand()
	if err != nil {
		return err
	}
	clk := clock.Real{}

	// Discord session (antes de los servicios: capabilities y notifier la usan)
	auth := strings.TrimSpace(cfg.DiscordToken)
	if !strings.HasPrefix(strings.ToLower(auth), "bot ") {
		auth = "Bot " + auth
	}
	s, err := discordgo.New(auth)
	if err != nil {
		return err
	}
	s.Identify.Intents = discordgo.IntentsGuilds | discordgo.IntentsGuildVoiceStates | discordgo.IntentsGuildMembers
	s.StateEnabled = true

	router := discordrouter.NewRouter(s, discordrouter.Config{
		GuildID:             cfg.DiscordGuild,
		RankUpChannelName:   cfg.RankUpChannelName,
		MatchCategoryPrefix: cfg.MatchCategoryPrefix,
		MatchRoomTTL:        cfg.MatchRoomTTL,
	}, panelRepo, roomsRepo, log)
	caps := discordrouter.NewCapabilities(s, cfg.HostRoleName, cfg.AdminRoleIDs)

	notifier := service.MultiNotifier{router}
	if cfg.RedisAddr != "" {
		rdb, err := redisbus.Connect(ctx, cfg.RedisAddr)
		if err != nil {
			return err
		}
		defer rdb.Close()
		notifier = append(notifier, redisbus.New(rdb, cfg.RedisChannel))
		log.WithField("channel", cfg.RedisChannel).Info("event bus enabled")
	}

	// Services
	ratings := service.NewRatingEngine(ctx, playerRepo, clk, log, prom)
	blacklist := service.NewBlacklistService(ctx, blacklistRepo, caps, notifier, clk, log, prom)
	parties := service.NewPartyService(rnd, log)
	votes := service.NewVoteService(clk, rnd, log, prom)
	policies := service.NewPolicyService(policyRepo, caps, cfg.MatchPolicy(), log)
	lobbies := service.NewLobbyRegistry(service.RegistryDeps{
		Ratings:   ratings,
		Blacklist: blacklist,
		Parties:   parties,
		Votes:     votes,
		Policies:  policies,
		Caps:      caps,
		Notifier:  notifier,
		Clock:     clk,
		Rand:      rnd,
		Log:       log,
		Metrics:   prom,
	})
	subs := service.NewSubstitutionService(lobbies, caps, clk, log)

	router.Bind(discordrouter.Services{
		Lobbies:   lobbies,
		Subs:      subs,
		Ratings:   ratings,
		Blacklist: blacklist,
		Parties:   parties,
		Votes:     votes,
		Policies:  policies,
	})
	router.Handlers()
	if err := s.Open(); err != nil {
		return err
	}
	defer s.Close()
	defer router.Close()
	log.WithField("user", s.State.User.Username).Info("discord connected")
	if err := router.Register(); err != nil {
		return err
	}
	log.WithField("guild", cfg.DiscordGuild).Info("commands registered")

	srv := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: httpapi.New(httpapi.Deps{
			Ratings:  ratings,
			Lobbies:  lobbies,
			Registry: prom.Registry(),
			Ping:     func(ctx context.Context) error { return storage.Ping(ctx, db) },
			Log:      log,
		}).Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.WithField("addr", cfg.HTTPAddr).Info("http listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	// salas vencidas que quedaron de un reinicio
	g.Go(func() error {
		t := time.NewTicker(time.Minute)
		defer t.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-t.C:
				n, err := router.SweepRooms(gctx)
				if err != nil {
					log.WithError(err).Warn("sweep rooms")
					continue
				}
				if n > 0 {
					log.WithField("n", n).Info("expired rooms removed")
				}
			}
		}
	})
	return g.Wait()
}
