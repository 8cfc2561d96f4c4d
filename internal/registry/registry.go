// Package registry is the in-memory collection of live matches, guarded by
// a single RWMutex for concurrent-read/serialized-write access. Grounded on
// services/gamification/internal/score/manager.go's Manager pattern.
package registry

import (
	"sync"
	"time"

	"github.com/Clash-of-Prodigies/Ragnarok/internal/matchcore"
)

// Registry holds every match known to the process, keyed by match id.
type Registry struct {
	mu      sync.RWMutex
	matches map[string]*matchcore.Match
	order   []string
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{matches: make(map[string]*matchcore.Match)}
}

// Add inserts a new match, rejecting a duplicate id (spec.md §4.6).
func (r *Registry) Add(m *matchcore.Match) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.matches[m.MatchID()]; exists {
		return &matchcore.Error{Kind: matchcore.KindConflict, Message: "a match with this id already exists"}
	}
	r.matches[m.MatchID()] = m
	r.order = append(r.order, m.MatchID())
	return nil
}

// Lookup returns the match with the given id. If silent is true, a missing
// match yields (nil, nil) instead of an error (mirrors
// original_source/fimbulwinter.py:lookup_match_by_id's silent=True mode).
func (r *Registry) Lookup(matchID string, silent bool) (*matchcore.Match, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.matches[matchID]
	if !ok {
		if silent {
			return nil, nil
		}
		return nil, &matchcore.Error{Kind: matchcore.KindNotFound, Message: "no match found with this id"}
	}
	return m, nil
}

// Remove deletes a match from the registry, reporting whether it existed so
// the admin DELETE endpoint can answer with a 404 on a miss.
func (r *Registry) Remove(matchID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.matches[matchID]; !exists {
		return false
	}
	delete(r.matches, matchID)
	for i, id := range r.order {
		if id == matchID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return true
}

// Clear removes every match (admin DELETE /matches).
func (r *Registry) Clear() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.matches = make(map[string]*matchcore.Match)
	r.order = nil
}

// All returns every match in insertion order.
func (r *Registry) All() []*matchcore.Match {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*matchcore.Match, 0, len(r.order))
	for _, id := range r.order {
		if m, ok := r.matches[id]; ok {
			out = append(out, m)
		}
	}
	return out
}

// FilterByDate returns every match whose scheduled start time falls on the
// given calendar date (normalized to midnight UTC), matching
// original_source/fimbulwinter.py:filter_matches_by_date.
func (r *Registry) FilterByDate(date time.Time) []*matchcore.Match {
	day := date.UTC().Truncate(24 * time.Hour)
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*matchcore.Match
	for _, id := range r.order {
		m, ok := r.matches[id]
		if !ok {
			continue
		}
		st := m.StartTime()
		if st == nil {
			continue
		}
		if st.UTC().Truncate(24 * time.Hour).Equal(day) {
			out = append(out, m)
		}
	}
	return out
}

// Len returns the number of matches currently tracked.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.matches)
}
