package discord

import (
	"sync"
	"time"
)

// userLimiter deja pasar un click por clave cada win.
type userLimiter struct {
	mu   sync.Mutex
	next map[string]time.Time
	win  time.Duration
	now  func() time.Time
}

func newUserLimiter(window time.Duration) *userLimiter {
	return &userLimiter{next: map[string]time.Time{}, win: window, now: time.Now}
}

func (l *userLimiter) Allow(key string) bool {
	now := l.now()
	l.mu.Lock()
	defer l.mu.Unlock()
	if until, ok := l.next[key]; ok && now.Before(until) {
		return false
	}
	// sin esto el mapa crece con cada usuario que alguna vez clickeo
	if len(l.next) > 1024 {
		for k, until := range l.next {
			if !now.Before(until) {
				delete(l.next, k)
			}
		}
	}
	l.next[key] = now.Add(l.win)
	return true
}
