package storage

import "time"

type GuildPolicy struct {
	GuildID              string
	WinMin               int
	WinMax               int
	LossMin              int
	LossMax              int
	VoteSeconds          int
	CreatedAt, UpdatedAt time.Time
}

// LobbyPanel es el mensaje con botones de un lobby.
type LobbyPanel struct {
	GuildID   string
	Lobby     string
	ChannelID string
	MessageID string
	CreatedAt time.Time
	UpdatedAt time.Time
}

type MatchRoom struct {
	MatchID        string
	GuildID        string
	Lobby          string
	CategoryID     string
	TextChannelID  string
	TeamAChannelID string
	TeamBChannelID string
	LastStatus     *string
	CreatedAt      time.Time
	UpdatedAt      time.Time
	ExpiresAt      *time.Time
}
