package domain

import "errors"

// Kind agrupa los errores por como debe reaccionar quien llama.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindPermission
	KindExternal
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindPermission:
		return "permission"
	case KindExternal:
		return "external"
	default:
		return "unknown"
	}
}

// Error es un error de dominio con codigo estable para logs y respuestas.
type Error struct {
	Kind    Kind
	Code    string
	Message string
}

func (e *Error) Error() string { return e.Message }

// Is compara por codigo, asi un error envuelto con fmt.Errorf sigue matcheando.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

func newErr(k Kind, code, msg string) *Error { return &Error{Kind: k, Code: code, Message: msg} }

var (
	ErrInvalidName     = newErr(KindValidation, "invalid_name", "invalid lobby name")
	ErrInvalidSide     = newErr(KindValidation, "invalid_side", "invalid side label")
	ErrInvalidMap      = newErr(KindValidation, "invalid_map", "map is not in the pool")
	ErrInvalidDuration = newErr(KindValidation, "invalid_duration", "duration must be zero or positive")
	ErrInvalidPolicy   = newErr(KindValidation, "invalid_policy", "invalid match policy")
	ErrInvalidCode     = newErr(KindValidation, "invalid_code", "unknown party code")
	ErrSelfTarget      = newErr(KindValidation, "self_target", "cannot target yourself")

	ErrAlreadyExists    = newErr(KindConflict, "already_exists", "lobby already exists")
	ErrAlreadyJoined    = newErr(KindConflict, "already_joined", "user already in lobby")
	ErrFull             = newErr(KindConflict, "full", "lobby is full")
	ErrClosed           = newErr(KindConflict, "closed", "lobby is closed")
	ErrNotInLobby       = newErr(KindConflict, "not_in_lobby", "user is not in lobby")
	ErrNoActiveMatch    = newErr(KindConflict, "no_active_match", "lobby has no active match")
	ErrMatchInProgress  = newErr(KindConflict, "match_in_progress", "lobby match already started")
	ErrAlreadyResolved  = newErr(KindConflict, "already_resolved", "vote already resolved")
	ErrVoteNotFound     = newErr(KindConflict, "vote_not_found", "no vote open for lobby")
	ErrNotEnoughPlayers = newErr(KindConflict, "not_enough_players", "lobby needs 10 players")
	ErrNoHost           = newErr(KindConflict, "no_host", "lobby has no host")
	ErrLobbyNotFound    = newErr(KindConflict, "lobby_not_found", "lobby not found")
	ErrPartyNotFound    = newErr(KindConflict, "party_not_found", "party not found")
	ErrAlreadyInParty   = newErr(KindConflict, "already_in_party", "user already belongs to a party")
	ErrPartyFull        = newErr(KindConflict, "party_full", "party is full")
	ErrNotInParty       = newErr(KindConflict, "not_in_party", "user is not in the party")
	ErrNotInvited       = newErr(KindConflict, "not_invited", "user was not invited")
	ErrPartyQueued      = newErr(KindConflict, "party_queued", "party is already queued")
	ErrPartyNotQueued   = newErr(KindConflict, "party_not_queued", "party is not queued in lobby")
	ErrNotEnoughRoom    = newErr(KindConflict, "not_enough_room", "lobby has no room for the whole party")
	ErrNotSuspended     = newErr(KindConflict, "not_suspended", "user is not suspended")
	ErrAlreadyInMatch   = newErr(KindConflict, "already_in_match", "user already plays this match")
	ErrNotInMatch       = newErr(KindConflict, "not_in_match", "user is not in match")
	ErrNoPendingRequest = newErr(KindConflict, "no_pending_request", "no replacement requested")

	ErrPermissionDenied = newErr(KindPermission, "permission_denied", "permission denied")
	ErrNotLeader        = newErr(KindPermission, "not_leader", "only the party leader can do that")
	ErrSuspended        = newErr(KindPermission, "suspended", "user is suspended")
	ErrNotEligible      = newErr(KindPermission, "not_eligible", "user cannot vote in this match")

	ErrUnavailable = newErr(KindExternal, "unavailable", "collaborator unavailable")
)

// KindOf devuelve la categoria del primer *Error en la cadena.
func KindOf(err error) Kind {
	var de *Error
	if errors.As(err, &de) {
		return de.Kind
	}
	return KindUnknown
}

// CodeOf devuelve el codigo estable, "internal" si no es de dominio.
func CodeOf(err error) string {
	var de *Error
	if errors.As(err, &de) {
		return de.Code
	}
	return "internal"
}
