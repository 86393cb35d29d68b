package discord

import (
	"context"
	"fmt"
	"strings"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

// Announce publica en Discord los eventos del core. Solo falla si no pudo
// avisar nada; lo secundario (salas, roles, refresh) se loguea.
func (r *Router) Announce(ctx context.Context, ev domain.Event) error {
	lf := logrus.Fields{"kind": ev.Kind, "guild": ev.GuildID, "lobby": ev.Lobby}
	switch ev.Kind {
	case domain.EventMatchStarted:
		go func() {
			if _, err := r.rooms.Ensure(context.WithoutCancel(ctx), ev.GuildID, ev.Lobby, ev.MatchID, ev.TeamA, ev.TeamB); err != nil {
				r.log.WithError(err).WithFields(lf).Warn("match rooms")
			}
		}()
		r.refreshLobbyPanel(ev.GuildID, ev.Lobby)
		return r.post(ctx, ev, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{teamsEmbed(ev)}})

	case domain.EventVoteOpened:
		return r.post(ctx, ev, &discordgo.MessageSend{
			Content:    fmt.Sprintf("🗺️ Votacion de mapa para **%s**: cierra <t:%d:R>.", ev.Lobby, ev.Deadline.Unix()),
			Components: voteComponents(ev.Lobby, ev.Candidate),
		})

	case domain.EventMapSelected:
		r.refreshLobbyPanel(ev.GuildID, ev.Lobby)
		how := "por votacion"
		if ev.Reason == "deadline" {
			how = "al vencer el tiempo"
		}
		return r.post(ctx, ev, &discordgo.MessageSend{Content: fmt.Sprintf("🗺️ **%s** se juega en **%s** (%s).", ev.Lobby, ev.Map, how)})

	case domain.EventPlayerReplaced:
		r.refreshLobbyPanel(ev.GuildID, ev.Lobby)
		return r.post(ctx, ev, &discordgo.MessageSend{
			Content: fmt.Sprintf("🔁 %s entra por %s en %s.", mention(ev.Replacement), mention(ev.UserID), ev.Side),
		})

	case domain.EventRankEntered, domain.EventRankUp, domain.EventRankDown:
		if err := r.ranks.Apply(ev.GuildID, ev.UserID, ev.NewTier); err != nil {
			r.log.WithError(err).WithFields(lf).WithField("user", ev.UserID).Warn("tier role")
		}
		return r.ranks.Announce(ev.GuildID, rankText(ev))

	case domain.EventPlayerSuspended:
		until := "de forma permanente"
		if !ev.Permanent {
			until = fmt.Sprintf("hasta <t:%d:f>", ev.ExpiresAt.Unix())
		}
		r.dm(ev.UserID, fmt.Sprintf("⛔ Fuiste suspendido %s. Motivo: %s", until, orDash(ev.Reason)))
		return nil

	case domain.EventPlayerUnsuspended:
		r.dm(ev.UserID, "✅ Tu suspension termino, ya podes volver a jugar.")
		return nil

	case domain.EventMatchReported:
		r.rooms.Expire(ctx, ev.MatchID, roomStatusReported)
		var err error
		if ev.Result != nil {
			err = r.post(ctx, ev, &discordgo.MessageSend{Embeds: []*discordgo.MessageEmbed{resultEmbed(*ev.Result)}})
		}
		r.closePanel(ctx, ev.GuildID, ev.Lobby)
		return err

	case domain.EventLobbyRemoved:
		if ev.MatchID != "" {
			r.rooms.Expire(ctx, ev.MatchID, roomStatusRemoved)
		}
		r.closePanel(ctx, ev.GuildID, ev.Lobby)
		return nil
	}
	return nil
}

// post escribe en el canal del panel; sin panel no hay donde anunciar.
func (r *Router) post(ctx context.Context, ev domain.Event, msg *discordgo.MessageSend) error {
	ch := r.panelChannel(ctx, ev.GuildID, ev.Lobby)
	if ch == "" {
		return nil
	}
	msg.AllowedMentions = &discordgo.MessageAllowedMentions{Parse: []discordgo.AllowedMentionType{discordgo.AllowedMentionTypeUsers}}
	_, err := r.send(ch, msg)
	return err
}

// closePanel lo posteado para un lobby retirado ya no sirve.
func (r *Router) closePanel(ctx context.Context, guildID, lobby string) {
	p, err := r.panels.Get(ctx, guildID, lobby)
	if err != nil {
		return
	}
	if err := r.dropPanel(ctx, p); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{"guild": guildID, "lobby": lobby}).Warn("drop panel")
	}
}

func teamsEmbed(ev domain.Event) *discordgo.MessageEmbed {
	e := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("⚔️ Arranca %s", ev.Lobby),
		Color: 0xc92a2a,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "T", Value: mentions(ev.TeamA), Inline: true},
			{Name: "CT", Value: mentions(ev.TeamB), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "match " + ev.MatchID},
	}
	if ev.Fallback {
		e.Description = "No se pudieron respetar todas las parties; equipos al azar."
	}
	return e
}

func resultEmbed(res domain.MatchResult) *discordgo.MessageEmbed {
	var win, lose strings.Builder
	for _, c := range res.Changes {
		line := fmt.Sprintf("%s %+d (%d → %d)\n", mention(c.UserID), c.Delta, c.OldRating, c.NewRating)
		if c.Side == res.Winner {
			win.WriteString(line)
		} else {
			lose.WriteString(line)
		}
	}
	e := &discordgo.MessageEmbed{
		Title: fmt.Sprintf("🏁 %s: gano %s", res.Lobby, res.Winner),
		Color: 0x1971c2,
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Ganadores", Value: orDash(win.String()), Inline: true},
			{Name: "Perdedores", Value: orDash(lose.String()), Inline: true},
		},
		Footer: &discordgo.MessageEmbedFooter{Text: "match " + res.MatchID},
	}
	if res.Map != "" {
		e.Description = "Mapa: **" + string(res.Map) + "**"
	}
	if len(res.Substitutions) > 0 {
		var b strings.Builder
		for _, sub := range res.Substitutions {
			fmt.Fprintf(&b, "%s → %s\n", mention(sub.Out), mention(sub.In))
		}
		e.Fields = append(e.Fields, &discordgo.MessageEmbedField{Name: "Reemplazos", Value: b.String()})
	}
	return e
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "—"
	}
	return s
}
