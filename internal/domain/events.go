package domain

import "time"

type EventKind string

const (
	EventRankEntered       EventKind = "rankEntered"
	EventRankUp            EventKind = "rankUp"
	EventRankDown          EventKind = "rankDown"
	EventMatchStarted      EventKind = "matchStarted"
	EventVoteOpened        EventKind = "voteOpened"
	EventMapSelected       EventKind = "mapSelected"
	EventPlayerReplaced    EventKind = "playerReplaced"
	EventPlayerSuspended   EventKind = "playerSuspended"
	EventPlayerUnsuspended EventKind = "playerUnsuspended"
	EventMatchReported     EventKind = "matchReported"
	EventLobbyRemoved      EventKind = "lobbyRemoved"
)

// Event es lo que el core anuncia hacia afuera. Solo se llenan los campos del Kind.
type Event struct {
	Kind    EventKind `json:"kind"`
	GuildID string    `json:"guild_id"`
	Lobby   string    `json:"lobby,omitempty"`
	MatchID string    `json:"match_id,omitempty"`
	UserID  string    `json:"user_id,omitempty"`
	At      time.Time `json:"at"`

	// rank*
	OldRating int    `json:"old_rating,omitempty"`
	NewRating int    `json:"new_rating,omitempty"`
	OldTier   string `json:"old_tier,omitempty"`
	NewTier   string `json:"new_tier,omitempty"`

	// matchStarted / voteOpened / mapSelected
	TeamA     []string  `json:"team_a,omitempty"`
	TeamB     []string  `json:"team_b,omitempty"`
	Map       MapName   `json:"map,omitempty"`
	Votes     int       `json:"votes,omitempty"`
	Deadline  time.Time `json:"deadline,omitempty"`
	Fallback  bool      `json:"fallback,omitempty"`
	Candidate []MapName `json:"candidates,omitempty"`

	// playerReplaced
	Replacement string `json:"replacement,omitempty"`
	Side        Side   `json:"side,omitempty"`

	// playerSuspended
	Reason    string    `json:"reason,omitempty"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Permanent bool      `json:"permanent,omitempty"`
	IssuedBy  string    `json:"issued_by,omitempty"`

	Result *MatchResult `json:"result,omitempty"`
}
