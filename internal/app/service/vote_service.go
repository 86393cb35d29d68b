package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/clock"
)

const (
	ResolvedAllVoted = "all_voted"
	ResolvedDeadline = "deadline"
	ResolvedCanceled = "canceled"
)

// VoteTally es la foto publica de una votacion.
type VoteTally struct {
	GuildID  string
	Lobby    string
	MatchID  string
	Counts   map[domain.MapName]int
	Voted    int
	Eligible int
	Deadline time.Time
	Resolved bool
	Winner   domain.MapName
}

// MapVoteSession se resuelve una sola vez: por el ultimo voto, por el timer o por cancelacion.
type MapVoteSession struct {
	mu         sync.Mutex
	guildID    string
	lobby      string
	matchID    string
	candidates []domain.MapName
	eligible   map[string]bool
	votes      map[string]domain.MapName
	deadline   time.Time
	resolved   bool
	winner     domain.MapName
	timer      clock.Timer

	rnd       Rand
	onResolve func(winner domain.MapName, reason string)
}

// Cast registra o pisa el voto. Devuelve true si este voto cerro la sesion.
func (s *MapVoteSession) Cast(voter string, m domain.MapName) (bool, error) {
	s.mu.Lock()
	if s.resolved {
		s.mu.Unlock()
		return false, domain.ErrAlreadyResolved
	}
	if !s.eligible[voter] {
		s.mu.Unlock()
		return false, domain.ErrNotEligible
	}
	if !validCandidate(s.candidates, m) {
		s.mu.Unlock()
		return false, fmt.Errorf("%w: %s", domain.ErrInvalidMap, m)
	}
	s.votes[voter] = m
	if len(s.votes) < len(s.eligible) {
		s.mu.Unlock()
		return false, nil
	}
	winner, ok := s.resolveLocked()
	s.mu.Unlock()

	if ok {
		s.onResolve(winner, ResolvedAllVoted)
	}
	return ok, nil
}

func (s *MapVoteSession) expire() {
	s.mu.Lock()
	winner, ok := s.resolveLocked()
	s.mu.Unlock()
	if ok {
		s.onResolve(winner, ResolvedDeadline)
	}
}

// cancel cierra sin elegir mapa ni avisar. false si ya estaba resuelta.
func (s *MapVoteSession) cancel() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved {
		return false
	}
	s.resolved = true
	if s.timer != nil {
		s.timer.Stop()
	}
	return true
}

// resolveLocked es el unico lugar que pasa resolved a true con ganador. El primero gana.
func (s *MapVoteSession) resolveLocked() (domain.MapName, bool) {
	if s.resolved {
		return "", false
	}
	s.resolved = true
	if s.timer != nil {
		s.timer.Stop()
	}
	s.winner = pickWinner(s.candidates, s.votes, s.rnd)
	return s.winner, true
}

// pickWinner sortea entre los empatados en el maximo; sin votos, entre todos.
func pickWinner(candidates []domain.MapName, votes map[string]domain.MapName, rnd Rand) domain.MapName {
	counts := make(map[domain.MapName]int, len(candidates))
	for _, m := range votes {
		counts[m]++
	}
	best := 0
	for _, c := range counts {
		best = max(best, c)
	}
	if best == 0 {
		return candidates[rnd.IntN(len(candidates))]
	}
	var tied []domain.MapName
	for _, m := range candidates {
		if counts[m] == best {
			tied = append(tied, m)
		}
	}
	return tied[rnd.IntN(len(tied))]
}

func validCandidate(candidates []domain.MapName, m domain.MapName) bool {
	for _, c := range candidates {
		if c == m {
			return true
		}
	}
	return false
}

func (s *MapVoteSession) Tally() VoteTally {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := VoteTally{
		GuildID:  s.guildID,
		Lobby:    s.lobby,
		MatchID:  s.matchID,
		Counts:   make(map[domain.MapName]int, len(s.candidates)),
		Voted:    len(s.votes),
		Eligible: len(s.eligible),
		Deadline: s.deadline,
		Resolved: s.resolved,
		Winner:   s.winner,
	}
	for _, m := range s.votes {
		t.Counts[m]++
	}
	return t
}

// VoteService indexa las sesiones por servidor y lobby.
type VoteService struct {
	mu       sync.Mutex
	sessions map[string]*MapVoteSession

	clock   clock.Clock
	rnd     Rand
	log     *logrus.Entry
	metrics Metrics
}

func NewVoteService(clk clock.Clock, rnd Rand, log *logrus.Entry, m Metrics) *VoteService {
	return &VoteService{
		sessions: map[string]*MapVoteSession{},
		clock:    clk,
		rnd:      rnd,
		log:      log.WithField("component", "vote"),
		metrics:  orNoop(m),
	}
}

// Open crea la sesion y arranca el timer. onResolve corre sin ningun lock de la sesion tomado.
func (v *VoteService) Open(guildID, lobby, matchID string, voters []string, d time.Duration, onResolve func(domain.MapName, string)) *MapVoteSession {
	s := &MapVoteSession{
		guildID:    guildID,
		lobby:      lobby,
		matchID:    matchID,
		candidates: append([]domain.MapName(nil), domain.MapPool...),
		eligible:   make(map[string]bool, len(voters)),
		votes:      make(map[string]domain.MapName, len(voters)),
		deadline:   v.clock.Now().Add(d),
		rnd:        v.rnd,
	}
	for _, id := range voters {
		s.eligible[id] = true
	}
	s.onResolve = func(winner domain.MapName, reason string) {
		v.metrics.VoteResolved(guildID, reason)
		v.log.WithFields(logrus.Fields{"guild": guildID, "lobby": lobby, "match": matchID, "map": winner, "reason": reason}).Info("map vote resolved")
		if onResolve != nil {
			onResolve(winner, reason)
		}
	}

	// el timer se arma con la sesion bloqueada para que expire no lo vea nil
	s.mu.Lock()
	s.timer = v.clock.AfterFunc(d, s.expire)
	s.mu.Unlock()

	v.mu.Lock()
	if old, ok := v.sessions[lobbyKey(guildID, lobby)]; ok {
		old.cancel()
	}
	v.sessions[lobbyKey(guildID, lobby)] = s
	v.mu.Unlock()
	return s
}

// Cast vota en la sesion abierta del lobby.
func (v *VoteService) Cast(_ context.Context, guildID, lobby, voter, mapName string) (VoteTally, error) {
	m, err := domain.ParseMap(mapName)
	if err != nil {
		return VoteTally{}, err
	}
	s, ok := v.Get(guildID, lobby)
	if !ok {
		return VoteTally{}, domain.ErrVoteNotFound
	}
	if _, err := s.Cast(voter, m); err != nil {
		return VoteTally{}, err
	}
	v.metrics.VoteCast(guildID)
	return s.Tally(), nil
}

func (v *VoteService) Get(guildID, lobby string) (*MapVoteSession, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	s, ok := v.sessions[lobbyKey(guildID, lobby)]
	return s, ok
}

// Drop cancela (si seguia abierta) y olvida la sesion del lobby.
func (v *VoteService) Drop(guildID, lobby string) {
	v.mu.Lock()
	s, ok := v.sessions[lobbyKey(guildID, lobby)]
	delete(v.sessions, lobbyKey(guildID, lobby))
	v.mu.Unlock()
	if ok && s.cancel() {
		v.metrics.VoteResolved(guildID, ResolvedCanceled)
	}
}
