package discord

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/storage"
)

const (
	uiDebounce   = 80 * time.Millisecond
	ctxRenderMax = 2 * time.Second
)

const (
	actLobbyJoin  = "lobby_join"
	actLobbyLeave = "lobby_leave"
	actLobbyStart = "lobby_start"
	actVote       = "vote"
)

// publishLobbyPanel postea el panel del lobby en este canal y lo recuerda.
func (r *Router) publishLobbyPanel(ctx context.Context, l domain.Lobby, channelID string) error {
	embed, comps := renderLobby(l, r.svc.Ratings.Rating)
	msg, err := r.s.ChannelMessageSendComplex(channelID, &discordgo.MessageSend{
		Embeds:     []*discordgo.MessageEmbed{embed},
		Components: comps,
	})
	if err != nil {
		return err
	}
	return r.panels.Upsert(ctx, storage.LobbyPanel{GuildID: l.GuildID, Lobby: l.Name, ChannelID: channelID, MessageID: msg.ID})
}

// refreshLobbyPanel junta los clicks de una rafaga en un solo edit.
func (r *Router) refreshLobbyPanel(guildID, lobby string) {
	key := guildID + "/" + lobby
	r.refreshMu.Lock()
	defer r.refreshMu.Unlock()
	if t, ok := r.refreshTimers[key]; ok {
		t.Stop()
	}
	r.refreshTimers[key] = time.AfterFunc(uiDebounce, func() {
		r.refreshMu.Lock()
		delete(r.refreshTimers, key)
		r.refreshMu.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), ctxRenderMax)
		defer cancel()
		if err := r.editPanel(ctx, guildID, lobby); err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{"guild": guildID, "lobby": lobby}).Debug("panel refresh")
		}
	})
}

func (r *Router) editPanel(ctx context.Context, guildID, lobby string) error {
	p, err := r.panels.Get(ctx, guildID, lobby)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	l, err := r.svc.Lobbies.Get(guildID, lobby)
	if errors.Is(err, domain.ErrLobbyNotFound) {
		return r.dropPanel(ctx, p)
	}
	if err != nil {
		return err
	}
	embed, comps := renderLobby(l, r.svc.Ratings.Rating)
	em := []*discordgo.MessageEmbed{embed}
	_, err = r.s.ChannelMessageEditComplex(&discordgo.MessageEdit{
		Channel:    p.ChannelID,
		ID:         p.MessageID,
		Embeds:     &em,
		Components: &comps,
	})
	return err
}

// dropPanel borra el mensaje y la fila; si el mensaje ya no esta, igual borra la fila.
func (r *Router) dropPanel(ctx context.Context, p storage.LobbyPanel) error {
	if err := r.s.ChannelMessageDelete(p.ChannelID, p.MessageID); err != nil {
		r.log.WithError(err).WithFields(logrus.Fields{"guild": p.GuildID, "lobby": p.Lobby}).Debug("delete panel message")
	}
	return r.panels.Delete(ctx, p.GuildID, p.Lobby)
}

// prunePanels borra los paneles de lobbies que no sobrevivieron a un reinicio.
func (r *Router) prunePanels(guildID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	alive := make([]string, 0)
	for _, l := range r.svc.Lobbies.List(guildID) {
		alive = append(alive, l.Name)
	}
	stale, err := r.panels.PruneExcept(ctx, guildID, alive)
	if err != nil {
		r.log.WithError(err).WithField("guild", guildID).Warn("prune panels")
		return
	}
	for _, p := range stale {
		_ = r.s.ChannelMessageDelete(p.ChannelID, p.MessageID)
	}
	if len(stale) > 0 {
		r.log.WithFields(logrus.Fields{"guild": guildID, "n": len(stale)}).Info("stale panels removed")
	}
}

func (r *Router) panelChannel(ctx context.Context, guildID, lobby string) string {
	p, err := r.panels.Get(ctx, guildID, lobby)
	if err != nil {
		return ""
	}
	return p.ChannelID
}

// renderLobby arma el embed y los botones del panel. rating puede ser nil.
func renderLobby(l domain.Lobby, rating func(string) int) (*discordgo.MessageEmbed, []discordgo.MessageComponent) {
	status := "🟢 Abierto"
	switch {
	case l.MatchStarted:
		status = "🔴 En juego"
	case !l.IsOpen:
		status = "🟡 Cerrado"
	}
	host := "sin host"
	if l.Host != "" {
		host = mention(l.Host)
	}

	embed := &discordgo.MessageEmbed{
		Title:     fmt.Sprintf("Lobby %s", l.Name),
		Color:     0x2b8a3e,
		Timestamp: time.Now().Format(time.RFC3339),
		Fields: []*discordgo.MessageEmbedField{
			{Name: "Estado", Value: status, Inline: true},
			{Name: "Host", Value: host, Inline: true},
			{Name: "Jugadores", Value: fmt.Sprintf("%d/%d", len(l.Players), domain.LobbySize), Inline: true},
		},
	}

	if l.MatchStarted {
		embed.Color = 0xc92a2a
		embed.Fields = append(embed.Fields,
			&discordgo.MessageEmbedField{Name: "T", Value: playerLines(l.TeamA, rating), Inline: true},
			&discordgo.MessageEmbedField{Name: "CT", Value: playerLines(l.TeamB, rating), Inline: true},
		)
		m := "votando…"
		if l.SelectedMap != "" {
			m = string(l.SelectedMap)
		}
		embed.Fields = append(embed.Fields, &discordgo.MessageEmbedField{Name: "Mapa", Value: m})
	} else {
		embed.Description = playerLines(l.Players, rating)
	}

	row := discordgo.ActionsRow{Components: []discordgo.MessageComponent{
		discordgo.Button{
			Style:    discordgo.PrimaryButton,
			Label:    "Unirme",
			CustomID: componentID(actLobbyJoin, l.Name),
			Emoji:    &discordgo.ComponentEmoji{Name: "🎮"},
			Disabled: !l.IsOpen || l.MatchStarted || l.IsFull(),
		},
		discordgo.Button{
			Style:    discordgo.SecondaryButton,
			Label:    "Salir",
			CustomID: componentID(actLobbyLeave, l.Name),
			Emoji:    &discordgo.ComponentEmoji{Name: "👋"},
			Disabled: l.MatchStarted,
		},
		discordgo.Button{
			Style:    discordgo.SuccessButton,
			Label:    "Arrancar",
			CustomID: componentID(actLobbyStart, l.Name),
			Emoji:    &discordgo.ComponentEmoji{Name: "🚀"},
			Disabled: l.MatchStarted || !l.IsFull(),
		},
	}}
	return embed, []discordgo.MessageComponent{row}
}

func playerLines(ids []string, rating func(string) int) string {
	if len(ids) == 0 {
		return "Nadie todavia."
	}
	var b strings.Builder
	for i, id := range ids {
		fmt.Fprintf(&b, "%d) %s", i+1, mention(id))
		if rating != nil {
			pts := rating(id)
			fmt.Fprintf(&b, " %s %d", domain.TierFor(pts).Emoji, pts)
		}
		b.WriteByte('\n')
	}
	return b.String()
}

// voteComponents son los botones de mapa: 5 por fila como maximo.
func voteComponents(lobby string, candidates []domain.MapName) []discordgo.MessageComponent {
	var rows []discordgo.MessageComponent
	var cur []discordgo.MessageComponent
	for _, m := range candidates {
		cur = append(cur, discordgo.Button{
			Style:    discordgo.SecondaryButton,
			Label:    string(m),
			CustomID: componentID(actVote, lobby, string(m)),
		})
		if len(cur) == 5 {
			rows = append(rows, discordgo.ActionsRow{Components: cur})
			cur = nil
		}
	}
	if len(cur) > 0 {
		rows = append(rows, discordgo.ActionsRow{Components: cur})
	}
	return rows
}
