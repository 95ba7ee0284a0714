// Package service holds the stores and the event bus behind the HTTP API.
package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/joeblew999/qgeomap/internal/entry"
)

var (
	ErrNotFound = errors.New("not found")
	ErrExists   = errors.New("already exists")
)

// EntryService manages the entries whose geometry is edited on the map.
type EntryService struct {
	dataDir string
	entries map[string]entry.Entry
	mu      sync.RWMutex
}

// NewEntryService creates a new entry service.
func NewEntryService(dataDir string) *EntryService {
	s := &EntryService{
		dataDir: dataDir,
		entries: make(map[string]entry.Entry),
	}
	s.loadFromDisk()
	return s
}

// List returns all entries ordered by ID.
func (s *EntryService) List() []entry.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]entry.Entry, 0, len(s.entries))
	for _, e := range s.entries {
		result = append(result, e)
	}
	slices.SortFunc(result, func(a, b entry.Entry) int { return strings.Compare(a.ID, b.ID) })
	return result
}

// Get returns an entry by ID.
func (s *EntryService) Get(id string) (entry.Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, ok := s.entries[id]
	return e, ok
}

// Create adds a new entry.
func (s *EntryService) Create(e entry.Entry) (entry.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if e.ID == "" {
		e.ID = generateID(e.Name)
	}
	if _, exists := s.entries[e.ID]; exists {
		return entry.Entry{}, fmt.Errorf("entry %q: %w", e.ID, ErrExists)
	}

	if err := s.commit(func(m map[string]entry.Entry) { m[e.ID] = e }); err != nil {
		return entry.Entry{}, err
	}
	return e, nil
}

// Update replaces an entry by ID.
func (s *EntryService) Update(id string, e entry.Entry) (entry.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; !exists {
		return entry.Entry{}, fmt.Errorf("entry %q: %w", id, ErrNotFound)
	}

	e.ID = id
	if err := s.commit(func(m map[string]entry.Entry) { m[id] = e }); err != nil {
		return entry.Entry{}, err
	}
	return e, nil
}

// ApplyGeometry stores the result of an editing session on the entry.
// The entry stops being a fresh draw.
func (s *EntryService) ApplyGeometry(id string, geometry json.RawMessage) (entry.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, exists := s.entries[id]
	if !exists {
		return entry.Entry{}, fmt.Errorf("entry %q: %w", id, ErrNotFound)
	}

	e.Geometry = geometry
	e.IsNew = nil
	if err := s.commit(func(m map[string]entry.Entry) { m[id] = e }); err != nil {
		return entry.Entry{}, err
	}
	return e, nil
}

// Delete removes an entry by ID.
func (s *EntryService) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.entries[id]; !exists {
		return fmt.Errorf("entry %q: %w", id, ErrNotFound)
	}

	return s.commit(func(m map[string]entry.Entry) { delete(m, id) })
}

func (s *EntryService) configFile() string {
	return filepath.Join(s.dataDir, "entries.json")
}

func (s *EntryService) loadFromDisk() {
	data, err := os.ReadFile(s.configFile())
	if err != nil {
		return // File doesn't exist yet, start empty
	}

	var entries map[string]entry.Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		slog.Warn("entries_load_failed", "file", s.configFile(), "error", err)
		return
	}
	if entries != nil {
		s.entries = entries
	}
}

// commit applies change to a copy of the entries and swaps it in only
// once the copy is on disk. Callers hold s.mu.
func (s *EntryService) commit(change func(map[string]entry.Entry)) error {
	next := maps.Clone(s.entries)
	change(next)
	if err := s.saveToDisk(next); err != nil {
		return err
	}
	s.entries = next
	return nil
}

func (s *EntryService) saveToDisk(entries map[string]entry.Entry) error {
	if err := os.MkdirAll(s.dataDir, 0755); err != nil {
		return fmt.Errorf("creating data dir: %w", err)
	}

	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(s.configFile(), data, 0644)
}

// generateID creates a URL-safe ID from a name, or a random one when the
// name has no usable characters.
func generateID(name string) string {
	id := strings.ToLower(name)
	id = strings.ReplaceAll(id, " ", "_")
	var result strings.Builder
	for _, r := range id {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '_' {
			result.WriteRune(r)
		}
	}
	if result.Len() == 0 {
		return uuid.NewString()
	}
	return result.String()
}
