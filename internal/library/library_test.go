// ABOUTME: Tests for sound stores
// ABOUTME: Covers record CRUD and JSON persistence round trips
package library

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestMemStoreCRUD(t *testing.T) {
	s := NewMemStore()

	if _, err := s.Get("nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get on empty store = %v, want ErrNotFound", err)
	}

	snd := Sound{ID: "airhorn", Name: "Airhorn", FilePath: "/sounds/airhorn.mp3", Volume: 0.8}
	if err := s.Put(snd); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get("airhorn")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.FilePath != snd.FilePath || got.Volume != snd.Volume {
		t.Errorf("Get returned %+v, want %+v", got, snd)
	}

	if err := s.Delete("airhorn"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := s.Get("airhorn"); !errors.Is(err, ErrNotFound) {
		t.Error("record survived Delete")
	}

	// Deleting again is a no-op
	if err := s.Delete("airhorn"); err != nil {
		t.Errorf("repeated Delete = %v, want nil", err)
	}
}

func TestMemStorePutEmptyID(t *testing.T) {
	s := NewMemStore()
	if err := s.Put(Sound{Name: "anonymous"}); err == nil {
		t.Error("Put with empty ID should fail")
	}
}

func TestMemStoreListSorted(t *testing.T) {
	s := NewMemStore()
	for _, name := range []string{"Zap", "Airhorn", "Moo"} {
		if err := s.Put(Sound{ID: name, Name: name}); err != nil {
			t.Fatal(err)
		}
	}

	list := s.List()
	if len(list) != 3 {
		t.Fatalf("List returned %d sounds, want 3", len(list))
	}
	if list[0].Name != "Airhorn" || list[1].Name != "Moo" || list[2].Name != "Zap" {
		t.Errorf("List not sorted by name: %v", list)
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")

	s, err := OpenJSONStore(path)
	if err != nil {
		t.Fatalf("OpenJSONStore failed: %v", err)
	}

	snd := Sound{
		ID:            "bruh",
		Name:          "Bruh",
		FilePath:      "/sounds/bruh.wav",
		Categories:    []string{"memes"},
		Hotkey:        "ctrl+1",
		Volume:        0.5,
		StartPosition: 1.25,
	}
	if err := s.Put(snd); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	// Reopen and verify persistence
	reopened, err := OpenJSONStore(path)
	if err != nil {
		t.Fatalf("reopen failed: %v", err)
	}
	got, err := reopened.Get("bruh")
	if err != nil {
		t.Fatalf("Get after reopen failed: %v", err)
	}
	if got.StartPosition != 1.25 || got.Hotkey != "ctrl+1" || len(got.Categories) != 1 {
		t.Errorf("reloaded record mismatch: %+v", got)
	}
}

func TestJSONStoreVolumeDefaults(t *testing.T) {
	// Records without a volume key load at full volume; an explicit 0
	// is a muted sound and must survive the load untouched.
	path := filepath.Join(t.TempDir(), "library.json")
	raw := `[
		{"id": "legacy", "name": "Legacy", "file_path": "/s/legacy.wav"},
		{"id": "hush", "name": "Hush", "file_path": "/s/hush.wav", "volume": 0},
		{"id": "half", "name": "Half", "file_path": "/s/half.wav", "volume": 0.5}
	]`
	if err := os.WriteFile(path, []byte(raw), 0o644); err != nil {
		t.Fatal(err)
	}

	s, err := OpenJSONStore(path)
	if err != nil {
		t.Fatalf("OpenJSONStore failed: %v", err)
	}

	for _, tc := range []struct {
		id   string
		want float32
	}{
		{"legacy", 1.0},
		{"hush", 0},
		{"half", 0.5},
	} {
		got, err := s.Get(tc.id)
		if err != nil {
			t.Fatalf("Get(%s) failed: %v", tc.id, err)
		}
		if got.Volume != tc.want {
			t.Errorf("%s volume = %v, want %v", tc.id, got.Volume, tc.want)
		}
	}
}

func TestJSONStoreMissingFileIsEmpty(t *testing.T) {
	s, err := OpenJSONStore(filepath.Join(t.TempDir(), "new.json"))
	if err != nil {
		t.Fatalf("OpenJSONStore failed: %v", err)
	}
	if len(s.List()) != 0 {
		t.Error("fresh store should be empty")
	}
}

func TestJSONStoreDeletePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "library.json")
	s, err := OpenJSONStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Put(Sound{ID: "a", Name: "A"}); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete("a"); err != nil {
		t.Fatal(err)
	}

	reopened, err := OpenJSONStore(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(reopened.List()) != 0 {
		t.Error("deleted record survived reopen")
	}
}
