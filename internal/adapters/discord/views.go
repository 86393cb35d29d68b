package discord

import (
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/cbac-queue-bot/internal/app/service"
	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

func voteText(t service.VoteTally) string {
	if t.Resolved {
		return fmt.Sprintf("🗳️ Voto registrado. Ganador: **%s**.", t.Winner)
	}
	return fmt.Sprintf("🗳️ Voto registrado (%d/%d). Cierra <t:%d:R>.", t.Voted, t.Eligible, t.Deadline.Unix())
}

func suspensionText(e domain.BlacklistEntry) string {
	until := "permanente"
	if !e.Permanent {
		until = fmt.Sprintf("hasta <t:%d:f>", e.ExpiresAt.Unix())
	}
	return fmt.Sprintf("%s suspendido (%s). Motivo: %s", mention(e.UserID), until, orDash(e.Reason))
}

func profileEmbed(p service.Profile) *discordgo.MessageEmbed {
	rec := p.Record
	e := &discordgo.MessageEmbed{
		Title:       fmt.Sprintf("%s %s", p.Tier.Emoji, p.Tier.Label),
		Description: mention(rec.UserID),
		Color:       0x5f3dc4,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Rating", Value: fmt.Sprint(rec.Rating), Inline: true},
			{Name: "V / D", Value: fmt.Sprintf("%d / %d", rec.Wins, rec.Losses), Inline: true},
			{Name: "Winrate", Value: fmt.Sprintf("%.1f%%", rec.WinRate()), Inline: true},
		},
	}
	if p.HasNext {
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{
			Name: "Proximo rango", Value: fmt.Sprintf("%s %s: faltan %d", p.Next.Emoji, p.Next.Label, p.PointsToGo),
		})
	}
	if len(rec.RecentMatches) > 0 {
		var b strings.Builder
		for _, m := range rec.RecentMatches {
			icon := "✅"
			if m.Outcome != domain.OutcomeWin {
				icon = "❌"
			}
			fmt.Fprintf(&b, "%s %+d → %d %s\n", icon, m.Delta, m.Rating, m.Map)
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Ultimas partidas", Value: b.String()})
	}
	return e
}

func leaderboardEmbed(top []service.LeaderboardEntry) *discordgo.MessageEmbed {
	if len(top) == 0 {
		return &discordgo.MessageEmbed{Title: "🏆 Top 10", Description: "Todavia no hay partidas."}
	}
	var b strings.Builder
	for _, it := range top {
		fmt.Fprintf(&b, "**%d.** %s %s %d pts (%.0f%% en %d)\n",
			it.Position, it.Tier.Emoji, mention(it.Record.UserID), it.Record.Rating, it.Record.WinRate(), it.Record.Played())
	}
	return &discordgo.MessageEmbed{Title: "🏆 Top 10", Description: b.String(), Color: 0xf59f00}
}

func lobbyListText(ls []domain.Lobby) string {
	if len(ls) == 0 {
		return "No hay lobbies. Un host puede crear uno con `/lobby create`."
	}
	var b strings.Builder
	for _, l := range ls {
		state := "abierto"
		switch {
		case l.MatchStarted:
			state = "en juego"
		case !l.IsOpen:
			state = "cerrado"
		}
		fmt.Fprintf(&b, "• **%s** %d/%d (%s)\n", l.Name, len(l.Players), domain.LobbySize, state)
	}
	return b.String()
}

func partyText(p domain.Party) string {
	var b strings.Builder
	fmt.Fprintf(&b, "👥 Party de %s (codigo **%s**)\n", mention(p.Leader), p.Code)
	b.WriteString(mentions(p.Members))
	if p.QueuedLobby != "" {
		fmt.Fprintf(&b, "\nEn cola: **%s**", p.QueuedLobby)
	}
	return b.String()
}

func policyText(p domain.MatchPolicy) string {
	return fmt.Sprintf("Victoria: +%d a +%d\nDerrota: -%d a -%d\nVotacion: %s",
		p.WinMin, p.WinMax, p.LossMin, p.LossMax, p.VoteDuration)
}
