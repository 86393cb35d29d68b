package discord

import (
	"context"
	"fmt"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

// handleMessageComponent atiende los botones del panel y de la votacion.
func (r *Router) handleMessageComponent(_ *discordgo.Session, ic *discordgo.InteractionCreate) {
	data := ic.MessageComponentData()
	action, parts := parseComponentID(data.CustomID)
	uid := ic.Member.User.ID
	log := r.log.WithFields(logrus.Fields{"component": data.CustomID, "user": uid, "guild": ic.GuildID})

	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("panic in component")
			r.reply(ic, "❌ Ocurrio un error inesperado.")
		}
	}()
	defer step(log, "component."+action)()

	r.deferEphemeral(ic)
	if len(parts) == 0 {
		r.reply(ic, "Boton viejo; pedi que publiquen el panel de nuevo.")
		return
	}
	if !r.clickLimiter.Allow(uid) {
		r.reply(ic, "⏳ Espera un segundo…")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()

	lobby := parts[0]
	var (
		l   domain.Lobby
		err error
		msg string
	)
	switch action {
	case actLobbyJoin:
		// el lider de una party entra con todos
		if p, ok := r.svc.Parties.PartyOf(ic.GuildID, uid); ok && p.Leader == uid && len(p.Members) > 1 {
			l, err = r.svc.Lobbies.JoinAsParty(ctx, ic.GuildID, lobby, uid)
		} else {
			l, err = r.svc.Lobbies.Join(ctx, ic.GuildID, lobby, uid)
		}
		msg = fmt.Sprintf("✅ Estas en **%s** (%d/%d).", l.Name, len(l.Players), domain.LobbySize)
	case actLobbyLeave:
		l, err = r.svc.Lobbies.Leave(ctx, ic.GuildID, lobby, uid)
		msg = "👋 Saliste del lobby."
	case actLobbyStart:
		l, err = r.svc.Lobbies.Start(ctx, ic.GuildID, lobby, uid)
		msg = "🚀 Match arrancado."
	case actVote:
		if len(parts) < 2 {
			r.reply(ic, errText(domain.ErrInvalidMap))
			return
		}
		tally, err := r.svc.Votes.Cast(ctx, ic.GuildID, lobby, uid, parts[1])
		if err != nil {
			r.replyErr(ic, err)
			return
		}
		r.reply(ic, voteText(tally))
		return
	default:
		r.reply(ic, "Boton desconocido.")
		return
	}
	if err != nil {
		r.replyErr(ic, err)
		return
	}
	r.refreshLobbyPanel(ic.GuildID, l.Name)
	r.reply(ic, msg)
}
