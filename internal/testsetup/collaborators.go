package testsetup

import (
	"context"
	"errors"
	"maps"
	"sync"

	"github.com/jose-valero/cbac-queue-bot/internal/domain"
)

var ErrUnreachable = errors.New("collaborator unreachable")

type RecordingNotifier struct {
	mu     sync.Mutex
	events []domain.Event
	Fail   bool
}

func (n *RecordingNotifier) Announce(_ context.Context, ev domain.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	if n.Fail {
		return ErrUnreachable
	}
	return nil
}

func (n *RecordingNotifier) Events() []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Event(nil), n.events...)
}

func (n *RecordingNotifier) Kinds() []domain.EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]domain.EventKind, 0, len(n.events))
	for _, e := range n.events {
		out = append(out, e.Kind)
	}
	return out
}

func (n *RecordingNotifier) OfKind(k domain.EventKind) []domain.Event {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []domain.Event
	for _, e := range n.events {
		if e.Kind == k {
			out = append(out, e)
		}
	}
	return out
}

func (n *RecordingNotifier) Reset() {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = nil
}

type MemoryPlayerStore struct {
	mu      sync.Mutex
	Players map[string]domain.PlayerRecord
	Saves   int
	Fail    bool
}

func NewMemoryPlayerStore() *MemoryPlayerStore {
	return &MemoryPlayerStore{Players: map[string]domain.PlayerRecord{}}
}

func (s *MemoryPlayerStore) LoadPlayers(context.Context) (map[string]domain.PlayerRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrUnreachable
	}
	return maps.Clone(s.Players), nil
}

func (s *MemoryPlayerStore) SavePlayers(_ context.Context, players map[string]domain.PlayerRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Saves++
	if s.Fail {
		return ErrUnreachable
	}
	for id, p := range players {
		s.Players[id] = p
	}
	return nil
}

func (s *MemoryPlayerStore) Get(id string) (domain.PlayerRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.Players[id]
	return p, ok
}

type MemoryBlacklistStore struct {
	mu      sync.Mutex
	Entries map[string]domain.BlacklistEntry
	Saves   int
	Fail    bool
}

func NewMemoryBlacklistStore() *MemoryBlacklistStore {
	return &MemoryBlacklistStore{Entries: map[string]domain.BlacklistEntry{}}
}

func (s *MemoryBlacklistStore) LoadBlacklist(context.Context) (map[string]domain.BlacklistEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Fail {
		return nil, ErrUnreachable
	}
	return maps.Clone(s.Entries), nil
}

func (s *MemoryBlacklistStore) SaveBlacklist(_ context.Context, entries map[string]domain.BlacklistEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Saves++
	if s.Fail {
		return ErrUnreachable
	}
	s.Entries = maps.Clone(entries)
	return nil
}

func (s *MemoryBlacklistStore) Has(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.Entries[id]
	return ok
}

// StaticCapabilities responde desde sets fijos; Err simula un lookup caido.
type StaticCapabilities struct {
	Hosts  map[string]bool
	Admins map[string]bool
	Err    error
}

func NewCapabilities() *StaticCapabilities {
	return &StaticCapabilities{Hosts: map[string]bool{}, Admins: map[string]bool{}}
}

func (c *StaticCapabilities) IsHost(_ context.Context, _, userID string) (bool, error) {
	if c.Err != nil {
		return false, c.Err
	}
	return c.Hosts[userID], nil
}

func (c *StaticCapabilities) IsAdmin(_ context.Context, _, userID string) (bool, error) {
	if c.Err != nil {
		return false, c.Err
	}
	return c.Admins[userID], nil
}
