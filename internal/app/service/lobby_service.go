package service

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/mitchellh/copystructure"
	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/app/balancer"
	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/clock"
)

const maxLobbyName = 32

// PolicySource da la politica de partida vigente para un servidor.
type PolicySource interface {
	MatchPolicy(ctx context.Context, guildID string) domain.MatchPolicy
}

// StaticPolicy ignora el servidor.
type StaticPolicy domain.MatchPolicy

func (p StaticPolicy) MatchPolicy(context.Context, string) domain.MatchPolicy {
	return domain.MatchPolicy(p)
}

type lobbyState struct {
	mu      sync.Mutex
	l       domain.Lobby
	retired bool
}

// RegistryDeps son los colaboradores del registry.
type RegistryDeps struct {
	Ratings   *RatingEngine
	Blacklist *BlacklistService
	Parties   *PartyService
	Votes     *VoteService
	Policies  PolicySource
	Caps      Capabilities
	Notifier  Notifier
	Clock     clock.Clock
	Rand      Rand
	Log       *logrus.Entry
	Metrics   Metrics
}

// LobbyRegistry guarda los lobbies de cada servidor.
// Orden de locks: lobby -> (parties | blacklist | ratings | votes | registry).
// r.mu nunca se sostiene mientras se toma el lock de un lobby.
type LobbyRegistry struct {
	mu     sync.Mutex
	guilds map[string]map[string]*lobbyState

	d   RegistryDeps
	log *logrus.Entry
	m   Metrics
}

func NewLobbyRegistry(d RegistryDeps) *LobbyRegistry {
	if d.Policies == nil {
		d.Policies = StaticPolicy(domain.DefaultMatchPolicy())
	}
	return &LobbyRegistry{
		guilds: map[string]map[string]*lobbyState{},
		d:      d,
		log:    d.Log.WithField("component", "lobby"),
		m:      orNoop(d.Metrics),
	}
}

// NormalizeName es la clave del lobby dentro del servidor.
func NormalizeName(name string) string { return strings.ToLower(strings.TrimSpace(name)) }

func validName(name string) bool {
	n := utf8.RuneCountInString(name)
	return n > 0 && n <= maxLobbyName && !strings.ContainsAny(name, ":/")
}

func (r *LobbyRegistry) Create(ctx context.Context, guildID, name, host string) (domain.Lobby, error) {
	name = NormalizeName(name)
	if !validName(name) {
		return domain.Lobby{}, fmt.Errorf("%w: %q", domain.ErrInvalidName, name)
	}
	if !capability(ctx, r.d.Caps, r.log, "host", guildID, host) {
		return domain.Lobby{}, fmt.Errorf("%w: host role required", domain.ErrPermissionDenied)
	}
	if r.d.Blacklist.IsSuspended(ctx, host) {
		return domain.Lobby{}, domain.ErrSuspended
	}

	r.mu.Lock()
	g, ok := r.guilds[guildID]
	if !ok {
		g = map[string]*lobbyState{}
		r.guilds[guildID] = g
	}
	if _, exists := g[name]; exists {
		r.mu.Unlock()
		return domain.Lobby{}, fmt.Errorf("%w: %s", domain.ErrAlreadyExists, name)
	}
	st := &lobbyState{l: domain.Lobby{
		GuildID:   guildID,
		Name:      name,
		Players:   []string{},
		Host:      host,
		IsOpen:    true,
		CreatedAt: r.d.Clock.Now(),
	}}
	g[name] = st
	snap := snapshot(st.l)
	r.mu.Unlock()

	r.m.LobbyCreated(guildID)
	r.log.WithFields(logrus.Fields{"guild": guildID, "lobby": name, "host": host}).Info("lobby created")
	return snap, nil
}

func (r *LobbyRegistry) lookup(guildID, name string) (*lobbyState, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st, ok := r.guilds[guildID][NormalizeName(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrLobbyNotFound, name)
	}
	return st, nil
}

// withLobby corre fn con el lobby bloqueado y anuncia los eventos ya sin lock.
func (r *LobbyRegistry) withLobby(ctx context.Context, guildID, name string, fn func(st *lobbyState) ([]domain.Event, error)) (domain.Lobby, error) {
	st, err := r.lookup(guildID, name)
	if err != nil {
		return domain.Lobby{}, err
	}
	st.mu.Lock()
	if st.retired {
		st.mu.Unlock()
		return domain.Lobby{}, fmt.Errorf("%w: %s", domain.ErrLobbyNotFound, name)
	}
	evs, err := fn(st)
	snap := snapshot(st.l)
	st.mu.Unlock()
	if err != nil {
		return domain.Lobby{}, err
	}
	announce(ctx, r.d.Notifier, r.log, r.m, evs...)
	return snap, nil
}

func (r *LobbyRegistry) Join(ctx context.Context, guildID, name, userID string) (domain.Lobby, error) {
	suspended := r.d.Blacklist.IsSuspended(ctx, userID)
	return r.withLobby(ctx, guildID, name, func(st *lobbyState) ([]domain.Event, error) {
		switch {
		case !st.l.IsOpen:
			return nil, domain.ErrClosed
		case st.l.Contains(userID):
			return nil, domain.ErrAlreadyJoined
		case st.l.IsFull():
			return nil, domain.ErrFull
		case suspended:
			return nil, domain.ErrSuspended
		}
		st.l.Players = append(st.l.Players, userID)
		return nil, nil
	})
}

// JoinAsParty mete a toda la party del lider o a nadie.
func (r *LobbyRegistry) JoinAsParty(ctx context.Context, guildID, name, leader string) (domain.Lobby, error) {
	p, ok := r.d.Parties.PartyOf(guildID, leader)
	if !ok {
		return domain.Lobby{}, domain.ErrPartyNotFound
	}
	if p.Leader != leader {
		return domain.Lobby{}, domain.ErrNotLeader
	}
	for _, m := range p.Members {
		if r.d.Blacklist.IsSuspended(ctx, m) {
			return domain.Lobby{}, fmt.Errorf("%w: %s", domain.ErrSuspended, m)
		}
	}

	return r.withLobby(ctx, guildID, name, func(st *lobbyState) ([]domain.Event, error) {
		if !st.l.IsOpen {
			return nil, domain.ErrClosed
		}
		return nil, r.d.Parties.reserve(guildID, leader, st.l.Name, func(members []string) error {
			missing := slices.DeleteFunc(members, st.l.Contains)
			if domain.LobbySize-len(st.l.Players) < len(missing) {
				return fmt.Errorf("%w: %d free, party needs %d", domain.ErrNotEnoughRoom, domain.LobbySize-len(st.l.Players), len(missing))
			}
			st.l.Players = append(st.l.Players, missing...)
			return nil
		})
	})
}

func (r *LobbyRegistry) Leave(ctx context.Context, guildID, name, userID string) (domain.Lobby, error) {
	return r.withLobby(ctx, guildID, name, func(st *lobbyState) ([]domain.Event, error) {
		if st.l.MatchStarted {
			return nil, domain.ErrMatchInProgress
		}
		if !st.l.Contains(userID) {
			return nil, domain.ErrNotInLobby
		}
		r.removePlayersLocked(st, userID)
		return nil, nil
	})
}

// LeaveAsParty saca a todos los miembros presentes y libera la party.
func (r *LobbyRegistry) LeaveAsParty(ctx context.Context, guildID, name, leader string) (domain.Lobby, error) {
	return r.withLobby(ctx, guildID, name, func(st *lobbyState) ([]domain.Event, error) {
		if st.l.MatchStarted {
			return nil, domain.ErrMatchInProgress
		}
		var members []string
		err := r.d.Parties.unreserve(guildID, leader, st.l.Name, func(m []string) { members = m })
		if err != nil {
			return nil, err
		}
		r.removePlayersLocked(st, members...)
		return nil, nil
	})
}

func (r *LobbyRegistry) Kick(ctx context.Context, guildID, name, actor, target string) (domain.Lobby, error) {
	isAdmin := capability(ctx, r.d.Caps, r.log, "admin", guildID, actor)
	return r.withLobby(ctx, guildID, name, func(st *lobbyState) ([]domain.Event, error) {
		if st.l.MatchStarted {
			return nil, domain.ErrMatchInProgress
		}
		if st.l.Host != actor && !isAdmin {
			return nil, domain.ErrPermissionDenied
		}
		if target == actor {
			return nil, domain.ErrSelfTarget
		}
		if !st.l.Contains(target) {
			return nil, domain.ErrNotInLobby
		}
		if target == st.l.Host && !isAdmin {
			return nil, fmt.Errorf("%w: only an admin can kick the host", domain.ErrPermissionDenied)
		}
		r.removePlayersLocked(st, target)
		r.log.WithFields(logrus.Fields{"guild": guildID, "lobby": st.l.Name, "actor": actor, "user": target}).Info("player kicked")
		return nil, nil
	})
}

// removePlayersLocked saca jugadores, suelta el host si se fue y limpia parties sin nadie presente.
func (r *LobbyRegistry) removePlayersLocked(st *lobbyState, ids ...string) {
	st.l.Players = slices.DeleteFunc(st.l.Players, func(p string) bool { return slices.Contains(ids, p) })
	if slices.Contains(ids, st.l.Host) {
		st.l.Host = ""
	}
	r.d.Parties.releaseAbsent(st.l.GuildID, st.l.Name, st.l.Contains)
}

// Start arma equipos, cierra el lobby y abre la votacion de mapa.
func (r *LobbyRegistry) Start(ctx context.Context, guildID, name, requester string) (domain.Lobby, error) {
	isAdmin := capability(ctx, r.d.Caps, r.log, "admin", guildID, requester)
	policy := r.d.Policies.MatchPolicy(ctx, guildID)

	return r.withLobby(ctx, guildID, name, func(st *lobbyState) ([]domain.Event, error) {
		switch {
		case st.l.MatchStarted:
			return nil, domain.ErrMatchInProgress
		case len(st.l.Players) < domain.LobbySize:
			return nil, fmt.Errorf("%w: %d/%d", domain.ErrNotEnoughPlayers, len(st.l.Players), domain.LobbySize)
		case st.l.Host == "":
			return nil, domain.ErrNoHost
		case requester != st.l.Host && !isAdmin:
			return nil, domain.ErrPermissionDenied
		}
		for _, p := range st.l.Players {
			if r.d.Blacklist.IsSuspended(ctx, p) {
				return nil, fmt.Errorf("%w: %s", domain.ErrSuspended, p)
			}
		}

		res, err := balancer.Balance(st.l.Players, r.d.Parties.queuedTo(guildID, st.l.Name), r.d.Rand)
		if err != nil {
			return nil, err
		}
		lf := logrus.Fields{"guild": guildID, "lobby": st.l.Name}
		if res.Fallback {
			r.log.WithFields(lf).Warn("team balance fell back to random split")
		}

		st.l.TeamA, st.l.TeamB = res.TeamA, res.TeamB
		st.l.MatchStarted = true
		st.l.IsOpen = false
		st.l.MatchID = uuid.NewString()

		matchID := st.l.MatchID
		sess := r.d.Votes.Open(guildID, st.l.Name, matchID, st.l.Players, policy.VoteDuration, r.onVoteResolved(ctx, guildID, st.l.Name, matchID))
		tally := sess.Tally()

		r.m.MatchStarted(guildID, res.Fallback)
		r.log.WithFields(lf).WithField("match", matchID).Info("match started")

		now := r.d.Clock.Now()
		return []domain.Event{
			{
				Kind: domain.EventMatchStarted, GuildID: guildID, Lobby: st.l.Name, MatchID: matchID, At: now,
				TeamA: slices.Clone(res.TeamA), TeamB: slices.Clone(res.TeamB), Fallback: res.Fallback,
			},
			{
				Kind: domain.EventVoteOpened, GuildID: guildID, Lobby: st.l.Name, MatchID: matchID, At: now,
				Deadline: tally.Deadline, Candidate: slices.Clone(domain.MapPool),
			},
		}, nil
	})
}

// onVoteResolved fija el mapa si el lobby sigue jugando el mismo match.
func (r *LobbyRegistry) onVoteResolved(ctx context.Context, guildID, name, matchID string) func(domain.MapName, string) {
	ctx = context.WithoutCancel(ctx)
	return func(winner domain.MapName, reason string) {
		_, err := r.withLobby(ctx, guildID, name, func(st *lobbyState) ([]domain.Event, error) {
			if st.l.MatchID != matchID {
				return nil, nil
			}
			st.l.SelectedMap = winner
			return []domain.Event{{
				Kind: domain.EventMapSelected, GuildID: guildID, Lobby: name, MatchID: matchID,
				At: r.d.Clock.Now(), Map: winner, Reason: reason,
			}}, nil
		})
		if err != nil {
			r.log.WithError(err).WithFields(logrus.Fields{"guild": guildID, "lobby": name}).Info("vote resolved for a gone lobby")
		}
	}
}

// ReportResult aplica ratings a los 10 y retira el lobby.
func (r *LobbyRegistry) ReportResult(ctx context.Context, guildID, name, actor, side string) (domain.MatchResult, error) {
	winner, err := domain.ParseSide(side)
	if err != nil {
		return domain.MatchResult{}, err
	}
	isAdmin := capability(ctx, r.d.Caps, r.log, "admin", guildID, actor)
	policy := r.d.Policies.MatchPolicy(ctx, guildID)

	var result domain.MatchResult
	_, err = r.withLobby(ctx, guildID, name, func(st *lobbyState) ([]domain.Event, error) {
		if !isAdmin {
			return nil, fmt.Errorf("%w: admin required", domain.ErrPermissionDenied)
		}
		if !st.l.MatchStarted {
			return nil, domain.ErrNoActiveMatch
		}

		winners, losers := st.l.Team(winner), st.l.Team(winner.Other())
		winAvg, loseAvg := r.d.Ratings.AverageRating(winners), r.d.Ratings.AverageRating(losers)
		updates := make([]RatingUpdate, 0, domain.LobbySize)
		for _, id := range winners {
			updates = append(updates, RatingUpdate{
				UserID: id,
				Delta:  r.between(policy.WinMin, policy.WinMax),
				Info:   MatchInfo{MatchID: st.l.MatchID, Map: st.l.SelectedMap, OpponentAvg: loseAvg},
			})
		}
		for _, id := range losers {
			updates = append(updates, RatingUpdate{
				UserID: id,
				Delta:  -r.between(policy.LossMin, policy.LossMax),
				Info:   MatchInfo{MatchID: st.l.MatchID, Map: st.l.SelectedMap, OpponentAvg: winAvg},
			})
		}
		applied := r.d.Ratings.UpdateMany(ctx, updates)

		now := r.d.Clock.Now()
		result = domain.MatchResult{
			MatchID:       st.l.MatchID,
			GuildID:       guildID,
			Lobby:         st.l.Name,
			Winner:        winner,
			Map:           st.l.SelectedMap,
			Substitutions: slices.Clone(st.l.Substitutions),
			ReportedBy:    actor,
			ReportedAt:    now,
		}
		var evs []domain.Event
		for i, a := range applied {
			s := winner
			if i >= len(winners) {
				s = winner.Other()
			}
			result.Changes = append(result.Changes, domain.RatingChange{
				UserID: a.UserID, Side: s, Delta: a.Applied, OldRating: a.OldRating, NewRating: a.NewRating, Outcome: a.Outcome,
			})
			if kind, ok := RankTransition(a.OldRating, a.NewRating); ok {
				evs = append(evs, domain.Event{
					Kind: kind, GuildID: guildID, Lobby: st.l.Name, MatchID: st.l.MatchID, UserID: a.UserID, At: now,
					OldRating: a.OldRating, NewRating: a.NewRating,
					OldTier: domain.TierFor(a.OldRating).Label, NewTier: domain.TierFor(a.NewRating).Label,
				})
			}
		}
		res := result
		evs = append(evs, domain.Event{
			Kind: domain.EventMatchReported, GuildID: guildID, Lobby: st.l.Name, MatchID: st.l.MatchID, At: now,
			TeamA: slices.Clone(st.l.TeamA), TeamB: slices.Clone(st.l.TeamB), Map: st.l.SelectedMap, Result: &res,
		})

		r.retireLocked(st)
		r.m.LobbyClosed(guildID, "reported")
		r.log.WithFields(logrus.Fields{"guild": guildID, "lobby": st.l.Name, "match": st.l.MatchID, "winner": winner}).Info("match reported")
		return evs, nil
	})
	if err != nil {
		return domain.MatchResult{}, err
	}
	return result, nil
}

// Remove borra el lobby a pedido de un admin o de alguien con rol de host.
func (r *LobbyRegistry) Remove(ctx context.Context, guildID, name, actor string) error {
	allowed := capability(ctx, r.d.Caps, r.log, "admin", guildID, actor) ||
		capability(ctx, r.d.Caps, r.log, "host", guildID, actor)
	_, err := r.withLobby(ctx, guildID, name, func(st *lobbyState) ([]domain.Event, error) {
		if !allowed {
			return nil, domain.ErrPermissionDenied
		}
		r.retireLocked(st)
		r.m.LobbyClosed(guildID, "removed")
		r.log.WithFields(logrus.Fields{"guild": guildID, "lobby": st.l.Name, "actor": actor}).Info("lobby removed")
		return []domain.Event{{
			Kind: domain.EventLobbyRemoved, GuildID: guildID, Lobby: st.l.Name, MatchID: st.l.MatchID,
			At: r.d.Clock.Now(), IssuedBy: actor, TeamA: slices.Clone(st.l.TeamA), TeamB: slices.Clone(st.l.TeamB),
		}}, nil
	})
	return err
}

// SetOpen abre o cierra la cola sin tocar a los jugadores.
func (r *LobbyRegistry) SetOpen(ctx context.Context, guildID, name, actor string, open bool) (domain.Lobby, error) {
	isAdmin := capability(ctx, r.d.Caps, r.log, "admin", guildID, actor)
	return r.withLobby(ctx, guildID, name, func(st *lobbyState) ([]domain.Event, error) {
		if st.l.Host != actor && !isAdmin {
			return nil, domain.ErrPermissionDenied
		}
		if st.l.MatchStarted {
			return nil, domain.ErrMatchInProgress
		}
		st.l.IsOpen = open
		return nil, nil
	})
}

// retireLocked saca el lobby del registry; el estado queda marcado para quien ya tenga el puntero.
func (r *LobbyRegistry) retireLocked(st *lobbyState) {
	st.retired = true
	r.mu.Lock()
	delete(r.guilds[st.l.GuildID], st.l.Name)
	r.mu.Unlock()
	r.d.Parties.releaseLobby(st.l.GuildID, st.l.Name)
	r.d.Votes.Drop(st.l.GuildID, st.l.Name)
}

func (r *LobbyRegistry) Get(guildID, name string) (domain.Lobby, error) {
	st, err := r.lookup(guildID, name)
	if err != nil {
		return domain.Lobby{}, err
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.retired {
		return domain.Lobby{}, fmt.Errorf("%w: %s", domain.ErrLobbyNotFound, name)
	}
	return snapshot(st.l), nil
}

// List devuelve los lobbies del servidor ordenados por nombre.
func (r *LobbyRegistry) List(guildID string) []domain.Lobby {
	r.mu.Lock()
	states := make([]*lobbyState, 0, len(r.guilds[guildID]))
	for _, st := range r.guilds[guildID] {
		states = append(states, st)
	}
	r.mu.Unlock()

	out := make([]domain.Lobby, 0, len(states))
	for _, st := range states {
		st.mu.Lock()
		if !st.retired {
			out = append(out, snapshot(st.l))
		}
		st.mu.Unlock()
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// substitute cambia outgoing por incoming manteniendo su lado.
func (r *LobbyRegistry) substitute(ctx context.Context, guildID, name, actor, outgoing, incoming string) (domain.Lobby, error) {
	isAdmin := capability(ctx, r.d.Caps, r.log, "admin", guildID, actor)
	suspended := r.d.Blacklist.IsSuspended(ctx, incoming)
	return r.withLobby(ctx, guildID, name, func(st *lobbyState) ([]domain.Event, error) {
		if !st.l.MatchStarted {
			return nil, domain.ErrNoActiveMatch
		}
		if st.l.Host != actor && !isAdmin {
			return nil, domain.ErrPermissionDenied
		}
		if st.l.Contains(incoming) {
			return nil, fmt.Errorf("%w: %s", domain.ErrAlreadyInMatch, incoming)
		}
		side, onTeam := st.l.SideOf(outgoing)
		if !st.l.Contains(outgoing) || !onTeam {
			return nil, fmt.Errorf("%w: %s", domain.ErrNotInMatch, outgoing)
		}
		if suspended {
			return nil, fmt.Errorf("%w: %s", domain.ErrSuspended, incoming)
		}

		swap := func(ids []string) {
			if i := slices.Index(ids, outgoing); i >= 0 {
				ids[i] = incoming
			}
		}
		swap(st.l.Players)
		swap(st.l.TeamA)
		swap(st.l.TeamB)
		now := r.d.Clock.Now()
		st.l.Substitutions = append(st.l.Substitutions, domain.Substitution{Out: outgoing, In: incoming, By: actor, At: now})
		r.d.Parties.releaseAbsent(guildID, st.l.Name, st.l.Contains)

		r.log.WithFields(logrus.Fields{"guild": guildID, "lobby": st.l.Name, "out": outgoing, "in": incoming, "side": side}).Info("player replaced")
		return []domain.Event{{
			Kind: domain.EventPlayerReplaced, GuildID: guildID, Lobby: st.l.Name, MatchID: st.l.MatchID,
			At: now, UserID: outgoing, Replacement: incoming, Side: side, IssuedBy: actor,
		}}, nil
	})
}

func (r *LobbyRegistry) between(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + r.d.Rand.IntN(hi-lo+1)
}

// lobbyKey indexa por servidor y lobby los estados que viven fuera del registro.
func lobbyKey(guildID, name string) string { return guildID + "/" + name }

// snapshot copia profunda para que nadie fuera del lock comparta slices o mapas.
func snapshot(l domain.Lobby) domain.Lobby {
	return copystructure.Must(copystructure.Copy(l)).(domain.Lobby)
}
