// Package persistence defines the match durability boundary. The shipped
// implementation is an in-memory no-op, mirroring
// original_source/fimbulwinter.py:load_matches_from_io, which is itself a
// placeholder never backed by real storage.
package persistence

import "github.com/Clash-of-Prodigies/Ragnarok/internal/matchcore"

// Store loads and persists match snapshots across process restarts.
type Store interface {
	LoadMatches() ([]matchcore.Config, error)
	PersistMatches(snapshots []matchcore.Config) error
}

// NoOp is a Store that keeps nothing: LoadMatches always returns an empty
// set and PersistMatches is a no-op. This is the only implementation wired
// at the composition root; a durable implementation (e.g. a database- or
// file-backed Store) is a natural extension point but out of scope here.
type NoOp struct{}

// LoadMatches implements Store.
func (NoOp) LoadMatches() ([]matchcore.Config, error) {
	return nil, nil
}

// PersistMatches implements Store.
func (NoOp) PersistMatches(snapshots []matchcore.Config) error {
	return nil
}
