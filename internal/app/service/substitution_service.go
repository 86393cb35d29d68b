package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
	"github.com/jose-valero/cbac-queue-bot/internal/infra/clock"
)

// ReplacementRequest es el pedido pendiente de un lobby. Uno por lobby.
type ReplacementRequest struct {
	GuildID     string
	Lobby       string
	MatchID     string
	Outgoing    string
	RequestedBy string
	At          time.Time
}

type SubstitutionService struct {
	mu      sync.Mutex
	pending map[string]ReplacementRequest

	lobbies *LobbyRegistry
	caps    Capabilities
	clock   clock.Clock
	log     *logrus.Entry
}

func NewSubstitutionService(lobbies *LobbyRegistry, caps Capabilities, clk clock.Clock, log *logrus.Entry) *SubstitutionService {
	return &SubstitutionService{
		pending: map[string]ReplacementRequest{},
		lobbies: lobbies,
		caps:    caps,
		clock:   clk,
		log:     log.WithField("component", "substitution"),
	}
}

// RequestReplacement anota que outgoing necesita reemplazo. Lo puede pedir
// el propio jugador, el host o un admin.
func (s *SubstitutionService) RequestReplacement(ctx context.Context, guildID, name, requester, outgoing string) (ReplacementRequest, error) {
	l, err := s.lobbies.Get(guildID, name)
	if err != nil {
		return ReplacementRequest{}, err
	}
	if !l.MatchStarted {
		return ReplacementRequest{}, domain.ErrNoActiveMatch
	}
	if !l.Contains(outgoing) {
		return ReplacementRequest{}, domain.ErrNotInMatch
	}
	if requester != outgoing && requester != l.Host && !capability(ctx, s.caps, s.log, "admin", guildID, requester) {
		return ReplacementRequest{}, domain.ErrPermissionDenied
	}

	req := ReplacementRequest{
		GuildID:     guildID,
		Lobby:       l.Name,
		MatchID:     l.MatchID,
		Outgoing:    outgoing,
		RequestedBy: requester,
		At:          s.clock.Now(),
	}
	s.mu.Lock()
	s.pending[lobbyKey(guildID, l.Name)] = req
	s.mu.Unlock()

	s.log.WithFields(logrus.Fields{"guild": guildID, "lobby": l.Name, "user": outgoing}).Info("replacement requested")
	return req, nil
}

// Pending devuelve el pedido vigente; uno de otro match no cuenta.
func (s *SubstitutionService) Pending(guildID, name string) (ReplacementRequest, bool) {
	l, err := s.lobbies.Get(guildID, name)
	if err != nil {
		return ReplacementRequest{}, false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.pending[lobbyKey(guildID, l.Name)]
	if !ok || req.MatchID != l.MatchID {
		return ReplacementRequest{}, false
	}
	return req, true
}

// Replace hace el cambio. El que entra hereda el lado del que sale.
func (s *SubstitutionService) Replace(ctx context.Context, guildID, name, actor, outgoing, incoming string) (domain.Lobby, error) {
	if outgoing == incoming {
		return domain.Lobby{}, domain.ErrSelfTarget
	}
	l, err := s.lobbies.substitute(ctx, guildID, name, actor, outgoing, incoming)
	if err != nil {
		return domain.Lobby{}, err
	}

	key := lobbyKey(guildID, l.Name)
	s.mu.Lock()
	if req, ok := s.pending[key]; ok && (req.Outgoing == outgoing || req.MatchID != l.MatchID) {
		delete(s.pending, key)
	}
	s.mu.Unlock()
	return l, nil
}

// ReplacePending usa el pedido anotado del lobby.
func (s *SubstitutionService) ReplacePending(ctx context.Context, guildID, name, actor, incoming string) (domain.Lobby, error) {
	req, ok := s.Pending(guildID, name)
	if !ok {
		return domain.Lobby{}, domain.ErrNoPendingRequest
	}
	return s.Replace(ctx, guildID, name, actor, req.Outgoing, incoming)
}
