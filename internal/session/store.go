// Package session keeps one analysis wizard per browser session in memory.
package session

import (
	"context"
	"log"
	"sync"
	"time"

	"datapilot/domain/catalog"
	"datapilot/domain/core"
	"datapilot/domain/wizard"
)

// Factory builds a fresh wizard for a role
type Factory func(role catalog.Role) *wizard.Wizard

type entry struct {
	wizard   *wizard.Wizard
	lastSeen time.Time
}

// Store maps session ids to wizards. A session holds at most one wizard;
// opening another role replaces it.
type Store struct {
	mu       sync.Mutex
	sessions map[core.SessionID]*entry
	factory  Factory
	ttl      time.Duration
	now      func() time.Time
}

// NewStore creates a store that forgets sessions idle for longer than ttl
func NewStore(factory Factory, ttl time.Duration) *Store {
	return &Store{
		sessions: make(map[core.SessionID]*entry),
		factory:  factory,
		ttl:      ttl,
		now:      time.Now,
	}
}

// WizardFor returns the session's wizard for role, creating a new one when
// the session has none or is bound to another role
func (s *Store) WizardFor(id core.SessionID, role catalog.Role) *wizard.Wizard {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if ok && e.wizard.Role().ID == role.ID {
		e.lastSeen = s.now()
		return e.wizard
	}
	if ok {
		log.Printf("[Session] %s switched role %s -> %s, resetting wizard", id, e.wizard.Role().ID, role.ID)
	}

	w := s.factory(role)
	s.sessions[id] = &entry{wizard: w, lastSeen: s.now()}
	return w
}

// Peek returns the session's wizard without creating one
func (s *Store) Peek(id core.SessionID) (*wizard.Wizard, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	e.lastSeen = s.now()
	return e.wizard, true
}

// Len returns the number of live sessions
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}

// Sweep drops sessions idle longer than the TTL. Wizards with a handler in
// flight are kept.
func (s *Store) Sweep() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-s.ttl)
	removed := 0
	for id, e := range s.sessions {
		if e.lastSeen.Before(cutoff) && !e.wizard.Snapshot().Processing() {
			delete(s.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		log.Printf("[Session] Swept %d idle sessions (%d remaining)", removed, len(s.sessions))
	}
	return removed
}

// Run sweeps every interval until ctx is canceled
func (s *Store) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep()
		}
	}
}
