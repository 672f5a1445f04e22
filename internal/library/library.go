// ABOUTME: Sound record types and the persistence contract
// ABOUTME: The mixing core only consumes FilePath, StartPosition and Volume
package library

import (
	"errors"
	"sort"
	"sync"
)

// ErrNotFound is returned when a sound ID has no record
var ErrNotFound = errors.New("sound not found")

// Sound is one soundboard entry. Edits flow from the UI into the
// store; the mixing core reads records but never writes them back.
type Sound struct {
	ID            string   `json:"id"`
	Name          string   `json:"name"`
	FilePath      string   `json:"file_path"`
	Categories    []string `json:"categories,omitempty"`
	Hotkey        string   `json:"hotkey,omitempty"`
	// Volume 0 means muted. JSON records without a volume key load as 1.0.
	Volume        float32 `json:"volume"`
	StartPosition float64 `json:"start_position"`
	Duration      float64 `json:"duration,omitempty"`
}

// Store is the persistence boundary. Implementations live outside the
// mixing core; MemStore and JSONStore are the bundled defaults.
type Store interface {
	Get(id string) (Sound, error)
	List() []Sound
	Put(s Sound) error
	Delete(id string) error
}

// MemStore is an in-memory store, used by tests and as the base of
// the JSON-backed store.
type MemStore struct {
	mu     sync.RWMutex
	sounds map[string]Sound
}

// NewMemStore creates an empty in-memory store
func NewMemStore() *MemStore {
	return &MemStore{sounds: make(map[string]Sound)}
}

// Get returns the record for id
func (s *MemStore) Get(id string) (Sound, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snd, ok := s.sounds[id]
	if !ok {
		return Sound{}, ErrNotFound
	}
	return snd, nil
}

// List returns all records ordered by name
func (s *MemStore) List() []Sound {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Sound, 0, len(s.sounds))
	for _, snd := range s.sounds {
		out = append(out, snd)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Put inserts or replaces a record
func (s *MemStore) Put(snd Sound) error {
	if snd.ID == "" {
		return errors.New("sound ID must not be empty")
	}
	s.mu.Lock()
	s.sounds[snd.ID] = snd
	s.mu.Unlock()
	return nil
}

// Delete removes a record; deleting an unknown ID is a no-op
func (s *MemStore) Delete(id string) error {
	s.mu.Lock()
	delete(s.sounds, id)
	s.mu.Unlock()
	return nil
}
