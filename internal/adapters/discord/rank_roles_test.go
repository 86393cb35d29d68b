package discord

import (
	"fmt"
	"sync"
	"testing"

	"github.com/bwmarrin/discordgo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/testsetup"
)

type fakeRankAPI struct {
	mu       sync.Mutex
	roles    []*discordgo.Role
	member   *discordgo.Member
	channels []*discordgo.Channel
	added    []string
	removed  []string
	messages map[string][]string
}

func (f *fakeRankAPI) GuildRoles(string, ...discordgo.RequestOption) ([]*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]*discordgo.Role(nil), f.roles...), nil
}

func (f *fakeRankAPI) GuildRoleCreate(_ string, data *discordgo.RoleParams, _ ...discordgo.RequestOption) (*discordgo.Role, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ro := &discordgo.Role{ID: fmt.Sprintf("new-%d", len(f.roles)), Name: data.Name}
	f.roles = append(f.roles, ro)
	return ro, nil
}

func (f *fakeRankAPI) GuildMember(string, string, ...discordgo.RequestOption) (*discordgo.Member, error) {
	return f.member, nil
}

func (f *fakeRankAPI) GuildMemberRoleAdd(_, _, roleID string, _ ...discordgo.RequestOption) error {
	f.added = append(f.added, roleID)
	return nil
}

func (f *fakeRankAPI) GuildMemberRoleRemove(_, _, roleID string, _ ...discordgo.RequestOption) error {
	f.removed = append(f.removed, roleID)
	return nil
}

func (f *fakeRankAPI) GuildChannels(string, ...discordgo.RequestOption) ([]*discordgo.Channel, error) {
	return f.channels, nil
}

func (f *fakeRankAPI) ChannelMessageSend(channelID, content string, _ ...discordgo.RequestOption) (*discordgo.Message, error) {
	if f.messages == nil {
		f.messages = map[string][]string{}
	}
	f.messages[channelID] = append(f.messages[channelID], content)
	return &discordgo.Message{}, nil
}

func TestRolePlan(t *testing.T) {
	roles := []*discordgo.Role{
		{ID: "t9", Name: "Tier 9"},
		{ID: "t8", Name: "Tier 8"},
		{ID: "vip", Name: "VIP"},
	}
	tests := []struct {
		name       string
		member     []string
		tier       string
		wantRole   string
		wantRemove []string
	}{
		{"promotion", []string{"t9", "vip"}, "Tier 8", "t8", []string{"t9"}},
		{"already there", []string{"t8"}, "Tier 8", "t8", nil},
		{"missing role", []string{"t9"}, "Tier 7", "", []string{"t9"}},
		{"no tier yet", []string{"vip"}, "Tier 9", "t9", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			role, remove := rolePlan(tt.member, roles, tt.tier)
			assert.Equal(t, tt.wantRole, role)
			assert.Equal(t, tt.wantRemove, remove)
		})
	}
}

func TestRankRoles_ApplyCreatesMissingRole(t *testing.T) {
	api := &fakeRankAPI{
		roles:  []*discordgo.Role{{ID: "t10", Name: "Tier 10"}},
		member: &discordgo.Member{Roles: []string{"t10"}},
	}
	log, _ := testsetup.NewLogger()
	r := newRankRoles(api, "", log)

	require.NoError(t, r.Apply("g", "u1", "Tier 9"))
	require.Len(t, api.added, 1)
	assert.Equal(t, "new-1", api.added[0])
	assert.Equal(t, []string{"t10"}, api.removed)
}

func TestRankRoles_ApplyKeepsExistingRole(t *testing.T) {
	api := &fakeRankAPI{
		roles:  []*discordgo.Role{{ID: "t9", Name: "Tier 9"}},
		member: &discordgo.Member{Roles: []string{"t9"}},
	}
	log, _ := testsetup.NewLogger()
	require.NoError(t, newRankRoles(api, "", log).Apply("g", "u1", "Tier 9"))
	assert.Empty(t, api.added)
	assert.Empty(t, api.removed)
}

func TestRankRoles_AnnounceFindsChannelByName(t *testing.T) {
	api := &fakeRankAPI{channels: []*discordgo.Channel{
		{ID: "v", Name: "rank-ups", Type: discordgo.ChannelTypeGuildVoice},
		{ID: "txt", Name: "Rank-Ups", Type: discordgo.ChannelTypeGuildText},
	}}
	log, _ := testsetup.NewLogger()
	r := newRankRoles(api, "rank-ups", log)

	ev := domain.Event{Kind: domain.EventRankUp, UserID: "u1", NewRating: 160, NewTier: "Tier 9"}
	require.NoError(t, r.Announce("g", rankText(ev)))
	require.Len(t, api.messages["txt"], 1)
	assert.Contains(t, api.messages["txt"][0], "<@u1>")
	assert.Contains(t, api.messages["txt"][0], "Tier 9")

	api.channels = nil
	assert.NoError(t, r.Announce("g", "nada"))
}
