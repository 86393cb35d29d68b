package discord

import (
	"errors"

	"github.com/bwmarrin/discordgo"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

// codigo de Discord para "Unknown Webhook": todavia no hubo respuesta al interaction
const unknownWebhook = 10015

// deferEphemeral avisa a Discord que respondemos despues (trabajos de mas de 3s).
func (r *Router) deferEphemeral(ic *discordgo.InteractionCreate) {
	err := r.s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
		Type: discordgo.InteractionResponseDeferredChannelMessageWithSource,
		Data: &discordgo.InteractionResponseData{Flags: discordgo.MessageFlagsEphemeral},
	})
	if err != nil {
		r.log.WithError(err).Debug("defer ephemeral")
	}
}

func (r *Router) reply(ic *discordgo.InteractionCreate, content string, embeds ...*discordgo.MessageEmbed) {
	r.replyWith(ic, &discordgo.WebhookParams{Content: content, Embeds: embeds})
}

func (r *Router) replyWith(ic *discordgo.InteractionCreate, params *discordgo.WebhookParams) {
	params.Flags |= discordgo.MessageFlagsEphemeral
	params.AllowedMentions = &discordgo.MessageAllowedMentions{}
	_, err := r.s.FollowupMessageCreate(ic.Interaction, true, params)
	if err == nil {
		return
	}
	var reqErr *discordgo.RESTError
	if errors.As(err, &reqErr) && reqErr.Message != nil && reqErr.Message.Code == unknownWebhook {
		_ = r.s.InteractionRespond(ic.Interaction, &discordgo.InteractionResponse{
			Type: discordgo.InteractionResponseChannelMessageWithSource,
			Data: &discordgo.InteractionResponseData{
				Content:         params.Content,
				Embeds:          params.Embeds,
				Components:      params.Components,
				Flags:           discordgo.MessageFlagsEphemeral,
				AllowedMentions: params.AllowedMentions,
			},
		})
		return
	}
	r.log.WithError(err).Warn("reply ephemeral")
}

// replyErr responde el error traducido y loguea los que no son de dominio.
func (r *Router) replyErr(ic *discordgo.InteractionCreate, err error) {
	if domain.KindOf(err) == domain.KindUnknown {
		r.log.WithError(err).WithField("user", ic.Member.User.ID).Warn("unexpected error")
	}
	r.reply(ic, errText(err))
}

func (r *Router) send(channelID string, msg *discordgo.MessageSend) (*discordgo.Message, error) {
	if channelID == "" {
		return nil, nil
	}
	return r.s.ChannelMessageSendComplex(channelID, msg)
}

// dm manda un mensaje privado; muchos usuarios los tienen cerrados, asi que solo se loguea.
func (r *Router) dm(userID, content string) {
	ch, err := r.s.UserChannelCreate(userID)
	if err == nil {
		_, err = r.s.ChannelMessageSend(ch.ID, content)
	}
	if err != nil {
		r.log.WithError(err).WithField("user", userID).Debug("dm failed")
	}
}
