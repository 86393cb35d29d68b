package config

import (
	"testing"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

func base() map[string]string {
	return map[string]string{
		"DATABASE_URL":      "postgres://localhost/cbac",
		"DISCORD_BOT_TOKEN": "token",
	}
}

func TestParse_Defaults(t *testing.T) {
	cfg, err := parse(env.Options{Environment: base()})
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "Host", cfg.HostRoleName)
	assert.Empty(t, cfg.RedisAddr)
	assert.Equal(t, domain.DefaultMatchPolicy(), cfg.MatchPolicy())
	assert.Equal(t, 10*time.Minute, cfg.MatchRoomTTL)
}

func TestParse_Overrides(t *testing.T) {
	e := base()
	e["ADMIN_ROLE_IDS"] = "1,2,3"
	e["LOSS_MIN"] = "25"
	e["LOSS_MAX"] = "30"
	e["VOTE_DURATION"] = "45s"

	cfg, err := parse(env.Options{Environment: e})
	require.NoError(t, err)
	assert.Equal(t, []string{"1", "2", "3"}, cfg.AdminRoleIDs)
	assert.Equal(t, 25, cfg.MatchPolicy().LossMin)
	assert.Equal(t, 45*time.Second, cfg.MatchPolicy().VoteDuration)
}

func TestParse_Errors(t *testing.T) {
	_, err := parse(env.Options{Environment: map[string]string{"DISCORD_BOT_TOKEN": "t"}})
	assert.Error(t, err)

	e := base()
	e["WIN_MIN"] = "40"
	_, err = parse(env.Options{Environment: e})
	assert.ErrorIs(t, err, domain.ErrInvalidPolicy)
}
