package discord

import (
	"context"
	"strings"

	"github.com/bwmarrin/discordgo"
)

// guildDirectory es lo que Capabilities necesita de Discord.
type guildDirectory interface {
	Member(guildID, userID string) (*discordgo.Member, error)
	Roles(guildID string) ([]*discordgo.Role, error)
	OwnerID(guildID string) (string, error)
}

// Capabilities responde host/admin mirando roles del servidor.
type Capabilities struct {
	dir          guildDirectory
	hostRoleName string
	adminRoleIDs map[string]bool
}

func NewCapabilities(s *discordgo.Session, hostRoleName string, adminRoleIDs []string) *Capabilities {
	return newCapabilities(sessionDirectory{s}, hostRoleName, adminRoleIDs)
}

func newCapabilities(dir guildDirectory, hostRoleName string, adminRoleIDs []string) *Capabilities {
	ids := make(map[string]bool, len(adminRoleIDs))
	for _, id := range adminRoleIDs {
		if id = strings.TrimSpace(id); id != "" {
			ids[id] = true
		}
	}
	return &Capabilities{dir: dir, hostRoleName: hostRoleName, adminRoleIDs: ids}
}

// IsHost: tiene un rol con el nombre configurado (sin importar mayusculas).
func (c *Capabilities) IsHost(_ context.Context, guildID, userID string) (bool, error) {
	m, err := c.dir.Member(guildID, userID)
	if err != nil {
		return false, err
	}
	roles, err := c.dir.Roles(guildID)
	if err != nil {
		return false, err
	}
	for _, ro := range roles {
		if strings.EqualFold(ro.Name, c.hostRoleName) && hasRole(m, ro.ID) {
			return true, nil
		}
	}
	return false, nil
}

// IsAdmin: duenio del servidor, bit Administrator o uno de los roles configurados.
func (c *Capabilities) IsAdmin(_ context.Context, guildID, userID string) (bool, error) {
	if owner, err := c.dir.OwnerID(guildID); err == nil && owner == userID {
		return true, nil
	}
	m, err := c.dir.Member(guildID, userID)
	if err != nil {
		return false, err
	}
	for _, rid := range m.Roles {
		if c.adminRoleIDs[rid] {
			return true, nil
		}
	}
	roles, err := c.dir.Roles(guildID)
	if err != nil {
		return false, err
	}
	var perms int64
	for _, ro := range roles {
		if hasRole(m, ro.ID) {
			perms |= ro.Permissions
		}
	}
	return perms&discordgo.PermissionAdministrator != 0, nil
}

func hasRole(m *discordgo.Member, roleID string) bool {
	for _, r := range m.Roles {
		if r == roleID {
			return true
		}
	}
	return false
}

// sessionDirectory lee del state y cae a la API si no esta cacheado.
type sessionDirectory struct{ s *discordgo.Session }

func (d sessionDirectory) Member(guildID, userID string) (*discordgo.Member, error) {
	if m, err := d.s.State.Member(guildID, userID); err == nil && m != nil {
		return m, nil
	}
	m, err := d.s.GuildMember(guildID, userID)
	if err != nil {
		return nil, err
	}
	_ = d.s.State.MemberAdd(m)
	return m, nil
}

func (d sessionDirectory) Roles(guildID string) ([]*discordgo.Role, error) {
	if g, err := d.s.State.Guild(guildID); err == nil && g != nil && len(g.Roles) > 0 {
		return g.Roles, nil
	}
	return d.s.GuildRoles(guildID)
}

func (d sessionDirectory) OwnerID(guildID string) (string, error) {
	if g, err := d.s.State.Guild(guildID); err == nil && g != nil {
		return g.OwnerID, nil
	}
	g, err := d.s.Guild(guildID)
	if err != nil {
		return "", err
	}
	return g.OwnerID, nil
}
