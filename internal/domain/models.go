package domain

import (
	"slices"
	"time"
)

const (
	TeamSize     = 5
	LobbySize    = 2 * TeamSize
	PartyMaxSize = 5
	HistoryLimit = 10
)

// Lobby es una foto de la cola de un servidor. Los slices y mapas son copias.
type Lobby struct {
	GuildID       string         `json:"guild_id"`
	Name          string         `json:"name"`
	Players       []string       `json:"players"`
	Host          string         `json:"host,omitempty"`
	IsOpen        bool           `json:"is_open"`
	MatchStarted  bool           `json:"match_started"`
	MatchID       string         `json:"match_id,omitempty"`
	TeamA         []string       `json:"team_a,omitempty"`
	TeamB         []string       `json:"team_b,omitempty"`
	SelectedMap   MapName        `json:"selected_map,omitempty"`
	Substitutions []Substitution `json:"substitutions,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
}

// Substitution es una entrada del registro de reemplazos. Solo se agregan, en orden.
type Substitution struct {
	Out string    `json:"out"`
	In  string    `json:"in"`
	By  string    `json:"by"`
	At  time.Time `json:"at"`
}

func (l Lobby) Contains(userID string) bool { return slices.Contains(l.Players, userID) }

func (l Lobby) IsFull() bool { return len(l.Players) >= LobbySize }

// SideOf devuelve el equipo del jugador una vez iniciada la partida.
func (l Lobby) SideOf(userID string) (Side, bool) {
	switch {
	case slices.Contains(l.TeamA, userID):
		return SideA, true
	case slices.Contains(l.TeamB, userID):
		return SideB, true
	}
	return "", false
}

func (l Lobby) Team(s Side) []string {
	if s == SideA {
		return l.TeamA
	}
	return l.TeamB
}

type Party struct {
	GuildID     string          `json:"guild_id"`
	Leader      string          `json:"leader"`
	Members     []string        `json:"members"`
	Invites     map[string]bool `json:"invites,omitempty"`
	Code        string          `json:"code"`
	QueuedLobby string          `json:"queued_lobby,omitempty"`
}

func (p Party) Has(userID string) bool { return slices.Contains(p.Members, userID) }

type Outcome string

const (
	OutcomeWin  Outcome = "win"
	OutcomeLoss Outcome = "loss"
	OutcomeDraw Outcome = "draw"
)

// MatchEntry es una fila del historial corto de un jugador.
type MatchEntry struct {
	At          time.Time `json:"at"`
	MatchID     string    `json:"match_id,omitempty"`
	Delta       int       `json:"delta"`
	Rating      int       `json:"rating"`
	Map         MapName   `json:"map,omitempty"`
	OpponentAvg int       `json:"opponent_avg"`
	Outcome     Outcome   `json:"outcome"`
}

type PlayerRecord struct {
	UserID        string       `json:"user_id"`
	Rating        int          `json:"rating"`
	Wins          int          `json:"wins"`
	Losses        int          `json:"losses"`
	RecentMatches []MatchEntry `json:"recent_matches"`
	TotalGained   int          `json:"total_gained"`
	TotalLost     int          `json:"total_lost"`
}

func (p PlayerRecord) Played() int { return p.Wins + p.Losses }

// WinRate en porcentaje; 0 sin partidas.
func (p PlayerRecord) WinRate() float64 {
	if p.Played() == 0 {
		return 0
	}
	return float64(p.Wins) / float64(p.Played()) * 100
}

// BlacklistEntry con Permanent=true ignora ExpiresAt.
type BlacklistEntry struct {
	UserID    string    `json:"user_id"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at,omitempty"`
	Permanent bool      `json:"permanent"`
	IssuedBy  string    `json:"issued_by"`
}

func (b BlacklistEntry) Expired(now time.Time) bool {
	return !b.Permanent && !now.Before(b.ExpiresAt)
}

// MatchPolicy son los rangos de premio/castigo y la duracion del voto.
type MatchPolicy struct {
	WinMin       int           `json:"win_min"`
	WinMax       int           `json:"win_max"`
	LossMin      int           `json:"loss_min"`
	LossMax      int           `json:"loss_max"`
	VoteDuration time.Duration `json:"vote_duration"`
}

func DefaultMatchPolicy() MatchPolicy {
	return MatchPolicy{WinMin: 30, WinMax: 35, LossMin: 10, LossMax: 18, VoteDuration: 120 * time.Second}
}

func (p MatchPolicy) Validate() error {
	switch {
	case p.WinMin < 0 || p.LossMin < 0:
		return ErrInvalidPolicy
	case p.WinMin > p.WinMax || p.LossMin > p.LossMax:
		return ErrInvalidPolicy
	case p.VoteDuration <= 0:
		return ErrInvalidPolicy
	}
	return nil
}

type RatingChange struct {
	UserID    string  `json:"user_id"`
	Side      Side    `json:"side"`
	Delta     int     `json:"delta"`
	OldRating int     `json:"old_rating"`
	NewRating int     `json:"new_rating"`
	Outcome   Outcome `json:"outcome"`
}

// MatchResult resume un reporte para la capa de presentacion.
type MatchResult struct {
	MatchID       string         `json:"match_id"`
	GuildID       string         `json:"guild_id"`
	Lobby         string         `json:"lobby"`
	Winner        Side           `json:"winner"`
	Map           MapName        `json:"map,omitempty"`
	Changes       []RatingChange `json:"changes"`
	Substitutions []Substitution `json:"substitutions,omitempty"`
	ReportedBy    string         `json:"reported_by"`
	ReportedAt    time.Time      `json:"reported_at"`
}
