package service

import (
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

// PartyService agrupa jugadores por servidor. Nunca toma locks de lobbies:
// el registry lo llama con el lobby ya bloqueado (orden lobby -> parties).
type PartyService struct {
	mu     sync.Mutex
	guilds map[string]*guildParties

	rnd Rand
	log *logrus.Entry
}

type guildParties struct {
	byLeader map[string]*domain.Party
	memberOf map[string]string // user -> leader
	codes    map[string]string // code -> leader
}

func NewPartyService(rnd Rand, log *logrus.Entry) *PartyService {
	return &PartyService{
		guilds: map[string]*guildParties{},
		rnd:    rnd,
		log:    log.WithField("component", "party"),
	}
}

func (s *PartyService) guildLocked(guildID string) *guildParties {
	g, ok := s.guilds[guildID]
	if !ok {
		g = &guildParties{
			byLeader: map[string]*domain.Party{},
			memberOf: map[string]string{},
			codes:    map[string]string{},
		}
		s.guilds[guildID] = g
	}
	return g
}

func (s *PartyService) Create(guildID, leader string) (domain.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.guildLocked(guildID)
	if _, in := g.memberOf[leader]; in {
		return domain.Party{}, domain.ErrAlreadyInParty
	}
	p := &domain.Party{
		GuildID: guildID,
		Leader:  leader,
		Members: []string{leader},
		Invites: map[string]bool{},
		Code:    s.newCodeLocked(g),
	}
	g.byLeader[leader] = p
	g.memberOf[leader] = leader
	g.codes[p.Code] = leader
	s.log.WithFields(logrus.Fields{"guild": guildID, "leader": leader, "code": p.Code}).Info("party created")
	return clonePartyValue(p), nil
}

// newCodeLocked saca un codigo de 4 digitos libre en el servidor.
func (s *PartyService) newCodeLocked(g *guildParties) string {
	for i := 0; i < 64; i++ {
		c := fmt.Sprintf("%04d", s.rnd.IntN(10000))
		if _, used := g.codes[c]; !used {
			return c
		}
	}
	for n := 0; n < 10000; n++ {
		c := fmt.Sprintf("%04d", n)
		if _, used := g.codes[c]; !used {
			return c
		}
	}
	// 10000 parties vivas en un servidor no pasa; el codigo repetido solo afecta JoinByCode
	return fmt.Sprintf("%04d", s.rnd.IntN(10000))
}

func (s *PartyService) Invite(guildID, leader, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.guildLocked(guildID)
	p, err := leaderPartyLocked(g, leader)
	if err != nil {
		return err
	}
	if _, in := g.memberOf[userID]; in {
		return domain.ErrAlreadyInParty
	}
	if len(p.Members) >= domain.PartyMaxSize {
		return domain.ErrPartyFull
	}
	p.Invites[userID] = true
	return nil
}

// Accept une al usuario a la party de leader si tenia invitacion.
func (s *PartyService) Accept(guildID, userID, leader string) (domain.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.guildLocked(guildID)
	p, ok := g.byLeader[leader]
	if !ok {
		return domain.Party{}, domain.ErrPartyNotFound
	}
	if !p.Invites[userID] {
		return domain.Party{}, domain.ErrNotInvited
	}
	if err := joinLocked(g, p, userID); err != nil {
		return domain.Party{}, err
	}
	return clonePartyValue(p), nil
}

func (s *PartyService) JoinByCode(guildID, userID, code string) (domain.Party, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.guildLocked(guildID)
	leader, ok := g.codes[code]
	if !ok {
		return domain.Party{}, fmt.Errorf("%w: %s", domain.ErrInvalidCode, code)
	}
	p := g.byLeader[leader]
	if err := joinLocked(g, p, userID); err != nil {
		return domain.Party{}, err
	}
	return clonePartyValue(p), nil
}

func joinLocked(g *guildParties, p *domain.Party, userID string) error {
	if _, in := g.memberOf[userID]; in {
		return domain.ErrAlreadyInParty
	}
	if len(p.Members) >= domain.PartyMaxSize {
		return domain.ErrPartyFull
	}
	// una party encolada ya reservo su lugar en el lobby
	if p.QueuedLobby != "" {
		return domain.ErrPartyQueued
	}
	p.Members = append(p.Members, userID)
	delete(p.Invites, userID)
	g.memberOf[userID] = p.Leader
	return nil
}

// Leave saca al usuario. Si es el lider la party se disuelve.
func (s *PartyService) Leave(guildID, userID string) (disbanded bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.guildLocked(guildID)
	leader, ok := g.memberOf[userID]
	if !ok {
		return false, domain.ErrPartyNotFound
	}
	if leader == userID {
		disbandLocked(g, leader)
		s.log.WithFields(logrus.Fields{"guild": guildID, "leader": leader}).Info("party disbanded")
		return true, nil
	}
	removeMemberLocked(g, g.byLeader[leader], userID)
	return false, nil
}

func (s *PartyService) Kick(guildID, leader, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.guildLocked(guildID)
	p, err := leaderPartyLocked(g, leader)
	if err != nil {
		return err
	}
	if userID == leader || !p.Has(userID) {
		return domain.ErrNotInParty
	}
	removeMemberLocked(g, p, userID)
	return nil
}

func (s *PartyService) Dissolve(guildID, leader string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.guildLocked(guildID)
	if _, err := leaderPartyLocked(g, leader); err != nil {
		return err
	}
	disbandLocked(g, leader)
	return nil
}

// PartyOf devuelve la party del usuario, sea lider o miembro.
func (s *PartyService) PartyOf(guildID, userID string) (domain.Party, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.guildLocked(guildID)
	leader, ok := g.memberOf[userID]
	if !ok {
		return domain.Party{}, false
	}
	return clonePartyValue(g.byLeader[leader]), true
}

// reserve corre fn con los miembros de la party de leader y, si fn no falla,
// deja la party encolada en lobby.
func (s *PartyService) reserve(guildID, leader, lobby string, fn func(members []string) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.guildLocked(guildID)
	p, err := leaderPartyLocked(g, leader)
	if err != nil {
		return err
	}
	if p.QueuedLobby != "" {
		return fmt.Errorf("%w: %s", domain.ErrPartyQueued, p.QueuedLobby)
	}
	if err := fn(slices.Clone(p.Members)); err != nil {
		return err
	}
	p.QueuedLobby = lobby
	return nil
}

// unreserve es el camino inverso de reserve para leaveAsParty.
func (s *PartyService) unreserve(guildID, leader, lobby string, fn func(members []string)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.guildLocked(guildID)
	p, err := leaderPartyLocked(g, leader)
	if err != nil {
		return err
	}
	if p.QueuedLobby != lobby {
		return domain.ErrPartyNotQueued
	}
	fn(slices.Clone(p.Members))
	p.QueuedLobby = ""
	return nil
}

// releaseAbsent limpia el queuedLobby de las parties sin ningun miembro presente.
func (s *PartyService) releaseAbsent(guildID, lobby string, present func(string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.guildLocked(guildID).byLeader {
		if p.QueuedLobby != lobby {
			continue
		}
		if !slices.ContainsFunc(p.Members, present) {
			p.QueuedLobby = ""
		}
	}
}

func (s *PartyService) releaseLobby(guildID, lobby string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.guildLocked(guildID).byLeader {
		if p.QueuedLobby == lobby {
			p.QueuedLobby = ""
		}
	}
}

// queuedTo devuelve los miembros de cada party encolada en lobby, en orden de lider.
func (s *PartyService) queuedTo(guildID, lobby string) [][]string {
	s.mu.Lock()
	defer s.mu.Unlock()
	g := s.guildLocked(guildID)
	leaders := slices.Sorted(maps.Keys(g.byLeader))
	var out [][]string
	for _, l := range leaders {
		p := g.byLeader[l]
		if p.QueuedLobby == lobby && len(p.Members) > 1 {
			out = append(out, slices.Clone(p.Members))
		}
	}
	return out
}

func leaderPartyLocked(g *guildParties, leader string) (*domain.Party, error) {
	if p, ok := g.byLeader[leader]; ok {
		return p, nil
	}
	if _, in := g.memberOf[leader]; in {
		return nil, domain.ErrNotLeader
	}
	return nil, domain.ErrPartyNotFound
}

func removeMemberLocked(g *guildParties, p *domain.Party, userID string) {
	p.Members = slices.DeleteFunc(p.Members, func(m string) bool { return m == userID })
	delete(g.memberOf, userID)
}

func disbandLocked(g *guildParties, leader string) {
	p := g.byLeader[leader]
	for _, m := range p.Members {
		delete(g.memberOf, m)
	}
	delete(g.codes, p.Code)
	delete(g.byLeader, leader)
}

func clonePartyValue(p *domain.Party) domain.Party {
	c := *p
	c.Members = slices.Clone(p.Members)
	c.Invites = maps.Clone(p.Invites)
	return c
}
