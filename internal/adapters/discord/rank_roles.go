package discord

import (
	"fmt"
	"strings"
	"sync"

	"github.com/bwmarrin/discordgo"
	"github.com/elliotchance/pie/v2"
	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

type rankAPI interface {
	GuildRoles(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Role, error)
	GuildRoleCreate(guildID string, data *discordgo.RoleParams, options ...discordgo.RequestOption) (*discordgo.Role, error)
	GuildMember(guildID, userID string, options ...discordgo.RequestOption) (*discordgo.Member, error)
	GuildMemberRoleAdd(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildMemberRoleRemove(guildID, userID, roleID string, options ...discordgo.RequestOption) error
	GuildChannels(guildID string, options ...discordgo.RequestOption) ([]*discordgo.Channel, error)
	ChannelMessageSend(channelID string, content string, options ...discordgo.RequestOption) (*discordgo.Message, error)
}

// RankRoles mantiene un unico rol "Tier N" por jugador.
type RankRoles struct {
	api         rankAPI
	channelName string
	log         *logrus.Entry

	// un rol por tier; crearlo dos veces en paralelo deja duplicados
	mu sync.Mutex
}

func NewRankRoles(s *discordgo.Session, channelName string, log *logrus.Entry) *RankRoles {
	return newRankRoles(s, channelName, log)
}

func newRankRoles(api rankAPI, channelName string, log *logrus.Entry) *RankRoles {
	if channelName == "" {
		channelName = "rank-ups"
	}
	return &RankRoles{api: api, channelName: channelName, log: log.WithField("part", "ranks")}
}

// rolePlan dice que roles de tier sacar y si hay que poner el nuevo.
// roleID vacio significa que el rol del tier todavia no existe.
func rolePlan(member []string, roles []*discordgo.Role, tier string) (roleID string, remove []string) {
	byID := make(map[string]string, len(roles))
	for _, ro := range roles {
		byID[ro.ID] = ro.Name
		if ro.Name == tier && roleID == "" {
			roleID = ro.ID
		}
	}
	for _, id := range member {
		if name, ok := byID[id]; ok && domain.IsTierLabel(name) && name != tier {
			remove = append(remove, id)
		}
	}
	return roleID, remove
}

// Apply deja al jugador con el rol de su tier nuevo.
func (r *RankRoles) Apply(guildID, userID, tier string) error {
	m, err := r.api.GuildMember(guildID, userID)
	if err != nil {
		return fmt.Errorf("member %s: %w", userID, err)
	}
	roles, err := r.ensureRole(guildID, tier)
	if err != nil {
		return err
	}
	roleID, remove := rolePlan(m.Roles, roles, tier)
	for _, id := range remove {
		if err := r.api.GuildMemberRoleRemove(guildID, userID, id); err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{"guild": guildID, "user": userID, "role": id}).Warn("remove tier role failed")
		}
	}
	if pie.Contains(m.Roles, roleID) {
		return nil
	}
	return r.api.GuildMemberRoleAdd(guildID, userID, roleID)
}

// ensureRole devuelve los roles del servidor con el del tier ya creado.
func (r *RankRoles) ensureRole(guildID, tier string) ([]*discordgo.Role, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	roles, err := r.api.GuildRoles(guildID)
	if err != nil {
		return nil, fmt.Errorf("roles: %w", err)
	}
	if id, _ := rolePlan(nil, roles, tier); id != "" {
		return roles, nil
	}
	ro, err := r.api.GuildRoleCreate(guildID, &discordgo.RoleParams{Name: tier})
	if err != nil {
		return nil, fmt.Errorf("create role %q: %w", tier, err)
	}
	r.log.WithFields(logrus.Fields{"guild": guildID, "role": tier}).Info("tier role created")
	return append(roles, ro), nil
}

// Announce escribe en el canal de subidas; si no existe el canal no hace nada.
func (r *RankRoles) Announce(guildID, content string) error {
	chans, err := r.api.GuildChannels(guildID)
	if err != nil {
		return err
	}
	for _, ch := range chans {
		if ch.Type == discordgo.ChannelTypeGuildText && strings.EqualFold(ch.Name, r.channelName) {
			_, err := r.api.ChannelMessageSend(ch.ID, content)
			return err
		}
	}
	r.log.WithField("guild", guildID).Debug("rank-up channel not found")
	return nil
}

func rankText(ev domain.Event) string {
	tier := domain.TierFor(ev.NewRating)
	switch ev.Kind {
	case domain.EventRankUp:
		return fmt.Sprintf("%s %s subio a **%s** (%d pts)", tier.Emoji, mention(ev.UserID), ev.NewTier, ev.NewRating)
	case domain.EventRankDown:
		return fmt.Sprintf("📉 %s bajo a **%s** (%d pts)", mention(ev.UserID), ev.NewTier, ev.NewRating)
	default:
		return fmt.Sprintf("%s %s entro al ranking en **%s** (%d pts)", tier.Emoji, mention(ev.UserID), ev.NewTier, ev.NewRating)
	}
}
