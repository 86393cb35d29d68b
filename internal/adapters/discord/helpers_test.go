package discord

import (
	"errors"
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

func TestCmdOptions_FlattensSubcommand(t *testing.T) {
	data := discordgo.ApplicationCommandInteractionData{
		Name: "lobby",
		Options: []*discordgo.ApplicationCommandInteractionDataOption{{
			Name: "kick",
			Type: discordgo.ApplicationCommandOptionSubCommand,
			Options: []*discordgo.ApplicationCommandInteractionDataOption{
				{Name: "lobby", Type: discordgo.ApplicationCommandOptionString, Value: "main"},
				{Name: "user", Type: discordgo.ApplicationCommandOptionUser, Value: "42"},
				{Name: "hours", Type: discordgo.ApplicationCommandOptionInteger, Value: float64(3)},
			},
		}},
	}
	sub, opts := cmdOptions(data)
	assert.Equal(t, "kick", sub)
	assert.Equal(t, "main", opts.str("lobby"))
	assert.Equal(t, "42", opts.user("user"))
	h, ok := opts.int("hours")
	assert.True(t, ok)
	assert.Equal(t, 3, h)
	assert.Nil(t, opts.intPtr("missing"))
	assert.Empty(t, opts.str("user"))
}

func TestComponentID_RoundTrip(t *testing.T) {
	id := componentID("vote", "main", "NUKE")
	assert.Equal(t, "vote:main:NUKE", id)
	action, parts := parseComponentID(id)
	assert.Equal(t, "vote", action)
	assert.Equal(t, []string{"main", "NUKE"}, parts)

	action, parts = parseComponentID("ping")
	assert.Equal(t, "ping", action)
	assert.Empty(t, parts)
}

func TestErrText(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{domain.ErrFull, "⚠️ El lobby esta lleno."},
		{fmt.Errorf("%w: 9/10", domain.ErrNotEnoughPlayers), "⚠️ Faltan jugadores: hacen falta 10."},
		{domain.ErrPermissionDenied, "🔒 No tenes permisos para esta accion."},
		{errors.New("boom"), "⚠️ Ocurrio un error inesperado."},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, errText(tt.err))
	}
}

func TestMentions(t *testing.T) {
	assert.Equal(t, "—", mentions(nil))
	assert.Equal(t, "<@a>\n<@b>", mentions([]string{"a", "b"}))
}
