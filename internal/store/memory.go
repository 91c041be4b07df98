package store

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"github.com/tuneboard/tuneboard/internal/models"
)

// Memory is the default in-process Job Store. Entries live for the process
// lifetime; handles become unrecoverable on restart, though the backend job
// itself keeps running.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]models.JobStoreEntry
}

var _ JobStore = (*Memory)(nil)

// NewMemory creates an empty in-memory Job Store.
func NewMemory() *Memory {
	return &Memory{entries: make(map[string]models.JobStoreEntry)}
}

// Put creates the entry, rejecting duplicate job IDs.
func (m *Memory) Put(_ context.Context, entry models.JobStoreEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[entry.Request.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateJob, entry.Request.ID)
	}
	m.entries[entry.Request.ID] = entry
	return nil
}

// Get returns the entry for a job ID.
func (m *Memory) Get(_ context.Context, id string) (models.JobStoreEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entry, ok := m.entries[id]
	if !ok {
		return models.JobStoreEntry{}, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	return entry, nil
}

// List returns all entries, most recently created first.
func (m *Memory) List(_ context.Context) ([]models.JobStoreEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	entries := make([]models.JobStoreEntry, 0, len(m.entries))
	for _, entry := range m.entries {
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, func(a, b models.JobStoreEntry) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	return entries, nil
}
