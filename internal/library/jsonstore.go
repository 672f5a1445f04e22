// ABOUTME: JSON-file-backed sound store
// ABOUTME: Default persistence for the desktop soundboard
package library

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// JSONStore persists sounds to a single JSON file. Every mutation
// rewrites the file; the catalog of a soundboard is small enough that
// this stays cheap.
type JSONStore struct {
	*MemStore
	path string
}

// OpenJSONStore loads (or creates) the store file at path
func OpenJSONStore(path string) (*JSONStore, error) {
	s := &JSONStore{
		MemStore: NewMemStore(),
		path:     path,
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return s, nil
		}
		return nil, fmt.Errorf("failed to read sound library: %w", err)
	}

	// Volume decodes through a nullable field: a record written without
	// one defaults to full volume, an explicit 0 is a muted sound and
	// stays muted.
	type record struct {
		Sound
		Volume *float32 `json:"volume"`
	}
	var records []record
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("failed to parse sound library: %w", err)
	}
	for _, rec := range records {
		snd := rec.Sound
		if rec.Volume != nil {
			snd.Volume = *rec.Volume
		} else {
			snd.Volume = 1.0
		}
		if snd.ID != "" {
			s.sounds[snd.ID] = snd
		}
	}
	return s, nil
}

// Put inserts or replaces a record and persists the file
func (s *JSONStore) Put(snd Sound) error {
	if err := s.MemStore.Put(snd); err != nil {
		return err
	}
	return s.save()
}

// Delete removes a record and persists the file
func (s *JSONStore) Delete(id string) error {
	if err := s.MemStore.Delete(id); err != nil {
		return err
	}
	return s.save()
}

// save writes the catalog atomically via a temp file rename
func (s *JSONStore) save() error {
	raw, err := json.MarshalIndent(s.List(), "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode sound library: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("failed to create library directory: %w", err)
	}
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("failed to write sound library: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("failed to replace sound library: %w", err)
	}
	return nil
}
