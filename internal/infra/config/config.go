package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

type Config struct {
	DatabaseURL  string `env:"DATABASE_URL,required"`
	DiscordToken string `env:"DISCORD_BOT_TOKEN,required"`
	DiscordGuild string `env:"DISCORD_GUILD_ID"` // vacio = registrar comandos globales
	HTTPAddr     string `env:"HTTP_ADDR" envDefault:":8080"`

	HostRoleName string   `env:"HOST_ROLE_NAME" envDefault:"Host"`
	AdminRoleIDs []string `env:"ADMIN_ROLE_IDS" envSeparator:","`

	// bus de eventos; sin REDIS_ADDR no se publica nada
	RedisAddr    string `env:"REDIS_ADDR"`
	RedisChannel string `env:"REDIS_CHANNEL" envDefault:"cbac.events"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"text"`

	VoteDuration time.Duration `env:"VOTE_DURATION" envDefault:"120s"`
	WinMin       int           `env:"WIN_MIN" envDefault:"30"`
	WinMax       int           `env:"WIN_MAX" envDefault:"35"`
	LossMin      int           `env:"LOSS_MIN" envDefault:"10"`
	LossMax      int           `env:"LOSS_MAX" envDefault:"18"`

	RankUpChannelName   string        `env:"RANKUP_CHANNEL_NAME" envDefault:"rank-ups"`
	MatchCategoryPrefix string        `env:"MATCH_CATEGORY_PREFIX" envDefault:"Match"`
	MatchRoomTTL        time.Duration `env:"MATCH_ROOM_TTL" envDefault:"10m"`
}

// Load lee .env si existe y despues el entorno.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return parse(env.Options{})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.MatchPolicy().Validate(); err != nil {
		return Config{}, fmt.Errorf("%w: win %d-%d loss %d-%d vote %s",
			err, cfg.WinMin, cfg.WinMax, cfg.LossMin, cfg.LossMax, cfg.VoteDuration)
	}
	return cfg, nil
}

// MatchPolicy son los defaults de todos los servidores sin override.
func (c Config) MatchPolicy() domain.MatchPolicy {
	return domain.MatchPolicy{
		WinMin:       c.WinMin,
		WinMax:       c.WinMax,
		LossMin:      c.LossMin,
		LossMax:      c.LossMax,
		VoteDuration: c.VoteDuration,
	}
}
