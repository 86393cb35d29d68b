// logica de InteractionApplicationCommand: leer opciones, llamar al servicio, responder
package discord

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/bwmarrin/discordgo"
	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/app/service"
	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

func (r *Router) handleSlashCommand(s *discordgo.Session, ic *discordgo.InteractionCreate) {
	data := ic.ApplicationCommandData()
	sub, opts := cmdOptions(data)
	uid := ic.Member.User.ID
	log := r.log.WithFields(logrus.Fields{"cmd": data.Name, "sub": sub, "user": uid, "guild": ic.GuildID})
	log.Debug("command")

	defer func() {
		if rec := recover(); rec != nil {
			log.WithField("panic", rec).Error("panic in command")
			r.reply(ic, "❌ Ocurrio un error inesperado procesando el comando. Contacta con un administrador.")
		}
	}()
	defer step(log, "cmd."+data.Name)()

	r.deferEphemeral(ic)
	ctx, cancel := context.WithTimeout(context.Background(), 12*time.Second)
	defer cancel()

	switch data.Name {
	case "ping":
		r.reply(ic, "🏓 Pong!")
	case "lobby":
		r.lobbyCommand(ctx, ic, sub, opts)
	case "party":
		r.partyCommand(ctx, ic, sub, opts)
	case "vote":
		tally, err := r.svc.Votes.Cast(ctx, ic.GuildID, service.NormalizeName(opts.str("lobby")), uid, opts.str("map"))
		if err != nil {
			r.replyErr(ic, err)
			return
		}
		r.reply(ic, voteText(tally))
	case "report":
		res, err := r.svc.Lobbies.ReportResult(ctx, ic.GuildID, opts.str("lobby"), uid, opts.str("winner"))
		if err != nil {
			r.replyErr(ic, err)
			return
		}
		r.reply(ic, "✅ Resultado cargado.", resultEmbed(res))
	case "sub":
		r.subCommand(ctx, ic, sub, opts)
	case "suspend":
		hours, _ := opts.int("hours")
		e, err := r.svc.Blacklist.Suspend(ctx, ic.GuildID, uid, opts.user("user"), opts.str("reason"), hours)
		if err != nil {
			r.replyErr(ic, err)
			return
		}
		r.reply(ic, "⛔ "+suspensionText(e))
	case "unsuspend":
		if err := r.svc.Blacklist.Lift(ctx, ic.GuildID, uid, opts.user("user")); err != nil {
			r.replyErr(ic, err)
			return
		}
		r.reply(ic, fmt.Sprintf("✅ Suspension de %s levantada.", mention(opts.user("user"))))
	case "suspension":
		target := orSelf(opts.user("user"), uid)
		e, ok := r.svc.Blacklist.Status(ctx, target)
		if !ok {
			r.reply(ic, fmt.Sprintf("%s no esta suspendido.", mention(target)))
			return
		}
		r.reply(ic, suspensionText(e))
	case "profile":
		p := r.svc.Ratings.Profile(ctx, orSelf(opts.user("user"), uid))
		r.reply(ic, "", profileEmbed(p))
	case "leaderboard":
		r.reply(ic, "", leaderboardEmbed(r.svc.Ratings.Leaderboard(10)))
	case "policy":
		r.policyCommand(ctx, ic, sub, opts)
	default:
		r.reply(ic, "Comando desconocido.")
	}
}

func (r *Router) lobbyCommand(ctx context.Context, ic *discordgo.InteractionCreate, sub string, opts options) {
	uid, guild, name := ic.Member.User.ID, ic.GuildID, opts.str("lobby")

	var (
		l   domain.Lobby
		err error
		msg string
	)
	switch sub {
	case "create":
		l, err = r.svc.Lobbies.Create(ctx, guild, name, uid)
		msg = fmt.Sprintf("✅ Lobby **%s** creado. Usa `/lobby panel` para publicar los botones.", l.Name)
	case "join":
		l, err = r.svc.Lobbies.Join(ctx, guild, name, uid)
		msg = fmt.Sprintf("✅ Entraste a **%s** (%d/%d).", l.Name, len(l.Players), domain.LobbySize)
	case "leave":
		l, err = r.svc.Lobbies.Leave(ctx, guild, name, uid)
		msg = fmt.Sprintf("👋 Saliste de **%s**.", l.Name)
	case "view":
		if l, err = r.svc.Lobbies.Get(guild, name); err == nil {
			embed, _ := renderLobby(l, r.svc.Ratings.Rating)
			r.reply(ic, "", embed)
			return
		}
	case "list":
		r.reply(ic, lobbyListText(r.svc.Lobbies.List(guild)))
		return
	case "start":
		l, err = r.svc.Lobbies.Start(ctx, guild, name, uid)
		msg = fmt.Sprintf("🚀 Match de **%s** arrancado. Voten el mapa.", l.Name)
	case "open", "close":
		l, err = r.svc.Lobbies.SetOpen(ctx, guild, name, uid, sub == "open")
		msg = fmt.Sprintf("✅ **%s** ahora esta %s.", l.Name, map[bool]string{true: "abierto", false: "cerrado"}[l.IsOpen])
	case "remove":
		if err = r.svc.Lobbies.Remove(ctx, guild, name, uid); err == nil {
			r.reply(ic, fmt.Sprintf("🗑️ Lobby **%s** borrado.", service.NormalizeName(name)))
			return
		}
	case "kick":
		target := opts.user("user")
		l, err = r.svc.Lobbies.Kick(ctx, guild, name, uid, target)
		msg = fmt.Sprintf("👢 %s fuera de **%s**.", mention(target), l.Name)
	case "panel":
		if l, err = r.svc.Lobbies.Get(guild, name); err == nil {
			if err = r.publishLobbyPanel(ctx, l, ic.ChannelID); err == nil {
				r.reply(ic, "✅ Panel publicado.")
				return
			}
		}
	default:
		r.reply(ic, "Usa `/lobby create|join|leave|view|list|start|open|close|remove|kick|panel`.")
		return
	}
	if err != nil {
		r.replyErr(ic, err)
		return
	}
	r.refreshLobbyPanel(guild, l.Name)
	r.reply(ic, msg)
}

func (r *Router) partyCommand(ctx context.Context, ic *discordgo.InteractionCreate, sub string, opts options) {
	uid, guild := ic.Member.User.ID, ic.GuildID
	parties := r.svc.Parties

	switch sub {
	case "create":
		p, err := parties.Create(guild, uid)
		if err != nil {
			r.replyErr(ic, err)
			return
		}
		r.reply(ic, fmt.Sprintf("🎉 Party creada. Codigo: **%s**", p.Code))
	case "invite":
		target := opts.user("user")
		if err := parties.Invite(guild, uid, target); err != nil {
			r.replyErr(ic, err)
			return
		}
		r.dm(target, fmt.Sprintf("📨 %s te invito a su party. Usa `/party accept` en el servidor.", mention(uid)))
		r.reply(ic, fmt.Sprintf("📨 Invitacion enviada a %s.", mention(target)))
	case "accept", "join":
		var (
			p   domain.Party
			err error
		)
		if sub == "accept" {
			p, err = parties.Accept(guild, uid, opts.user("leader"))
		} else {
			p, err = parties.JoinByCode(guild, uid, strings.TrimSpace(opts.str("code")))
		}
		if err != nil {
			r.replyErr(ic, err)
			return
		}
		r.reply(ic, fmt.Sprintf("✅ Estas en la party de %s (%d/%d).", mention(p.Leader), len(p.Members), domain.PartyMaxSize))
	case "leave":
		disbanded, err := parties.Leave(guild, uid)
		if err != nil {
			r.replyErr(ic, err)
			return
		}
		if disbanded {
			r.reply(ic, "👋 Saliste y la party se disolvio.")
			return
		}
		r.reply(ic, "👋 Saliste de la party.")
	case "kick":
		target := opts.user("user")
		if err := parties.Kick(guild, uid, target); err != nil {
			r.replyErr(ic, err)
			return
		}
		r.reply(ic, fmt.Sprintf("👢 %s fuera de la party.", mention(target)))
	case "disband":
		if err := parties.Dissolve(guild, uid); err != nil {
			r.replyErr(ic, err)
			return
		}
		r.reply(ic, "💥 Party disuelta.")
	case "info":
		p, ok := parties.PartyOf(guild, uid)
		if !ok {
			r.replyErr(ic, domain.ErrPartyNotFound)
			return
		}
		r.reply(ic, partyText(p))
	case "queue", "unqueue":
		name := opts.str("lobby")
		var (
			l   domain.Lobby
			err error
		)
		if sub == "queue" {
			l, err = r.svc.Lobbies.JoinAsParty(ctx, guild, name, uid)
		} else {
			l, err = r.svc.Lobbies.LeaveAsParty(ctx, guild, name, uid)
		}
		if err != nil {
			r.replyErr(ic, err)
			return
		}
		r.refreshLobbyPanel(guild, l.Name)
		r.reply(ic, fmt.Sprintf("✅ **%s**: %d/%d.", l.Name, len(l.Players), domain.LobbySize))
	default:
		r.reply(ic, "Usa `/party create|invite|accept|join|leave|kick|disband|info|queue|unqueue`.")
	}
}

func (r *Router) subCommand(ctx context.Context, ic *discordgo.InteractionCreate, sub string, opts options) {
	uid, guild, name := ic.Member.User.ID, ic.GuildID, opts.str("lobby")
	switch sub {
	case "request":
		req, err := r.svc.Subs.RequestReplacement(ctx, guild, name, uid, orSelf(opts.user("user"), uid))
		if err != nil {
			r.replyErr(ic, err)
			return
		}
		r.reply(ic, fmt.Sprintf("🆘 Pedido de reemplazo para %s en **%s** anotado.", mention(req.Outgoing), req.Lobby))
	case "replace":
		incoming, outgoing := opts.user("incoming"), opts.user("outgoing")
		var err error
		if outgoing == "" {
			_, err = r.svc.Subs.ReplacePending(ctx, guild, name, uid, incoming)
		} else {
			_, err = r.svc.Subs.Replace(ctx, guild, name, uid, outgoing, incoming)
		}
		if err != nil {
			r.replyErr(ic, err)
			return
		}
		r.reply(ic, fmt.Sprintf("🔁 %s entro al match.", mention(incoming)))
	default:
		r.reply(ic, "Usa `/sub request` o `/sub replace`.")
	}
}

func (r *Router) policyCommand(ctx context.Context, ic *discordgo.InteractionCreate, sub string, opts options) {
	switch sub {
	case "set":
		p, err := r.svc.Policies.Update(ctx, ic.GuildID, ic.Member.User.ID, service.PolicyPatch{
			WinMin:      opts.intPtr("win_min"),
			WinMax:      opts.intPtr("win_max"),
			LossMin:     opts.intPtr("loss_min"),
			LossMax:     opts.intPtr("loss_max"),
			VoteSeconds: opts.intPtr("vote_seconds"),
		})
		if err != nil {
			r.replyErr(ic, err)
			return
		}
		r.reply(ic, "✅ Configuracion actualizada.\n"+policyText(p))
	default:
		r.reply(ic, policyText(r.svc.Policies.MatchPolicy(ctx, ic.GuildID)))
	}
}

func orSelf(target, self string) string {
	if target == "" {
		return self
	}
	return target
}
