package discord

import (
	"fmt"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

func buttons(t *testing.T, comps []discordgo.MessageComponent) []discordgo.Button {
	t.Helper()
	var out []discordgo.Button
	for _, c := range comps {
		row, ok := c.(discordgo.ActionsRow)
		require.True(t, ok)
		for _, b := range row.Components {
			btn, ok := b.(discordgo.Button)
			require.True(t, ok)
			out = append(out, btn)
		}
	}
	return out
}

func players(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("p%d", i+1)
	}
	return out
}

func TestRenderLobby_OpenQueue(t *testing.T) {
	l := domain.Lobby{Name: "main", Host: "h", IsOpen: true, Players: players(3)}
	embed, comps := renderLobby(l, func(string) int { return 160 })

	assert.Equal(t, "Lobby main", embed.Title)
	assert.Equal(t, "3/10", embed.Fields[2].Value)
	assert.Contains(t, embed.Description, "<@p3>")
	assert.Contains(t, embed.Description, "160")

	btns := buttons(t, comps)
	require.Len(t, btns, 3)
	assert.Equal(t, "lobby_join:main", btns[0].CustomID)
	assert.False(t, btns[0].Disabled)
	assert.True(t, btns[2].Disabled, "start needs ten players")
}

func TestRenderLobby_FullAndStarted(t *testing.T) {
	full := domain.Lobby{Name: "main", IsOpen: true, Players: players(10)}
	_, comps := renderLobby(full, nil)
	btns := buttons(t, comps)
	assert.True(t, btns[0].Disabled)
	assert.False(t, btns[2].Disabled)

	started := full
	started.MatchStarted = true
	started.IsOpen = false
	started.TeamA, started.TeamB = players(10)[:5], players(10)[5:]
	embed, comps := renderLobby(started, nil)
	assert.Equal(t, "🔴 En juego", embed.Fields[0].Value)
	assert.Equal(t, "votando…", embed.Fields[len(embed.Fields)-1].Value)
	for _, b := range buttons(t, comps) {
		assert.True(t, b.Disabled, b.CustomID)
	}

	started.SelectedMap = "NUKE"
	embed, _ = renderLobby(started, nil)
	assert.Equal(t, "NUKE", embed.Fields[len(embed.Fields)-1].Value)
}

func TestVoteComponents_RowsOfFive(t *testing.T) {
	comps := voteComponents("main", domain.MapPool)
	require.Len(t, comps, 2)
	btns := buttons(t, comps)
	require.Len(t, btns, len(domain.MapPool))

	action, parts := parseComponentID(btns[0].CustomID)
	assert.Equal(t, actVote, action)
	assert.Equal(t, []string{"main", string(domain.MapPool[0])}, parts)
}

func TestResultEmbed_SplitsSides(t *testing.T) {
	res := domain.MatchResult{
		MatchID: "m1", Lobby: "main", Winner: domain.SideA, Map: "NUKE",
		Changes: []domain.RatingChange{
			{UserID: "a", Side: domain.SideA, Delta: 32, OldRating: 100, NewRating: 132},
			{UserID: "b", Side: domain.SideB, Delta: -12, OldRating: 50, NewRating: 38},
		},
		Substitutions: []domain.Substitution{{Out: "x", In: "b"}, {Out: "b", In: "x"}},
	}
	e := resultEmbed(res)
	assert.Contains(t, e.Title, "T")
	assert.Contains(t, e.Fields[0].Value, "<@a> +32 (100 → 132)")
	assert.Contains(t, e.Fields[1].Value, "<@b> -12 (50 → 38)")
	require.Len(t, e.Fields, 3)
	assert.Equal(t, "<@x> → <@b>\n<@b> → <@x>\n", e.Fields[2].Value)
	assert.Equal(t, "Mapa: **NUKE**", e.Description)
}

func TestTeamsEmbed(t *testing.T) {
	e := teamsEmbed(domain.Event{Lobby: "main", MatchID: "m1", TeamA: []string{"a"}, TeamB: []string{"b"}, Fallback: true})
	assert.Equal(t, "<@a>", e.Fields[0].Value)
	assert.Equal(t, "<@b>", e.Fields[1].Value)
	assert.NotEmpty(t, e.Description)
}
