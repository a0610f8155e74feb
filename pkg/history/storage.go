// Package history persists completed and failed swaps to a local JSON file.
package history

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"time"

	"ledger-swap/pkg/types"
)

const (
	DefaultStorageFileName = ".ledger-swap-history.json"

	// DefaultMaxEntries bounds the history file; the oldest entries are
	// pruned past this.
	DefaultMaxEntries = 500
)

// Kind distinguishes same-ledger swaps from cross-ledger ones.
type Kind string

const (
	KindSwap        Kind = "swap"
	KindCrossLedger Kind = "cross_ledger"
)

// Entry is one recorded swap.
type Entry struct {
	ID            string          `json:"id"` // tx hash or job id
	Kind          Kind            `json:"kind"`
	PaySymbol     string          `json:"pay_symbol"`
	PayAmount     string          `json:"pay_amount"`
	ReceiveSymbol string          `json:"receive_symbol"`
	ReceiveAmount string          `json:"receive_amount"`
	Status        types.JobStatus `json:"status"`
	FailReason    string          `json:"fail_reason,omitempty"`
	Timestamp     time.Time       `json:"timestamp"`
}

// Storage handles persistence of swap history
type Storage struct {
	filePath   string
	maxEntries int
	mu         sync.RWMutex
	entries    map[string]*Entry
}

// historyFile is the JSON structure on disk
type historyFile struct {
	Entries map[string]*Entry `json:"entries"`
}

// NewStorage creates a history store backed by the given file. An empty
// path defaults to a dotfile in the user's home directory.
func NewStorage(filePath string) (*Storage, error) {
	if filePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		filePath = filepath.Join(home, DefaultStorageFileName)
	}

	storage := &Storage{
		filePath:   filePath,
		maxEntries: DefaultMaxEntries,
		entries:    make(map[string]*Entry),
	}

	// A missing file is fine - it is created on first record.
	if err := storage.load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to load history: %w", err)
		}
	}

	return storage, nil
}

func (s *Storage) load() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.filePath)
	if err != nil {
		return err
	}

	var file historyFile
	if err := json.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("failed to unmarshal history: %w", err)
	}

	s.entries = file.Entries
	if s.entries == nil {
		s.entries = make(map[string]*Entry)
	}

	return nil
}

// save writes the history file atomically. Callers hold the write lock.
func (s *Storage) save() error {
	data, err := json.MarshalIndent(historyFile{Entries: s.entries}, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal history: %w", err)
	}

	dir := filepath.Dir(s.filePath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Write to a temporary file first, then rename for an atomic write.
	tempFile := s.filePath + ".tmp"
	if err := os.WriteFile(tempFile, data, 0600); err != nil {
		return fmt.Errorf("failed to write history: %w", err)
	}

	if err := os.Rename(tempFile, s.filePath); err != nil {
		return fmt.Errorf("failed to rename temp file: %w", err)
	}

	return nil
}

// Record inserts or updates an entry and persists the file. Updating by id
// is deliberate: a job's entry is rewritten as its status settles.
func (s *Storage) Record(entry *Entry) error {
	if entry.ID == "" {
		return fmt.Errorf("history entry has no id")
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[entry.ID] = entry
	s.pruneLocked()
	return s.save()
}

// pruneLocked drops the oldest entries past maxEntries.
func (s *Storage) pruneLocked() {
	if s.maxEntries <= 0 || len(s.entries) <= s.maxEntries {
		return
	}
	all := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		all = append(all, e)
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Timestamp.Before(all[j].Timestamp) })
	for _, e := range all[:len(all)-s.maxEntries] {
		delete(s.entries, e.ID)
	}
}

// Get retrieves an entry by id
func (s *Storage) Get(id string) (*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, exists := s.entries[id]
	if !exists {
		return nil, fmt.Errorf("history entry '%s' not found", id)
	}

	return entry, nil
}

// List returns all entries, newest first.
func (s *Storage) List() []*Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]*Entry, 0, len(s.entries))
	for _, entry := range s.entries {
		entries = append(entries, entry)
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})

	return entries
}

// ListByStatus returns entries filtered by status, newest first.
func (s *Storage) ListByStatus(status types.JobStatus) []*Entry {
	all := s.List()
	out := make([]*Entry, 0)
	for _, entry := range all {
		if entry.Status == status {
			out = append(out, entry)
		}
	}
	return out
}

// Count returns the total number of entries
func (s *Storage) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.entries)
}

// FilePath returns the storage file path
func (s *Storage) FilePath() string {
	return s.filePath
}
