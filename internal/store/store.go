// Package store provides the Job Store: the mapping from job identifiers to
// their submitted request and backend-issued handle.
package store

import (
	"context"
	"errors"

	"github.com/tuneboard/tuneboard/internal/models"
)

// Sentinel errors for store operations. Check with errors.Is.
var (
	// ErrJobNotFound indicates no entry exists for the identifier. Callers
	// translate this into a dedicated not-found response, distinct from
	// job failure.
	ErrJobNotFound = errors.New("job not found")

	// ErrDuplicateJob indicates an entry already exists under the
	// identifier. Job IDs are minted fresh per submission and never reused,
	// so a duplicate means a client bug or a replayed request.
	ErrDuplicateJob = errors.New("job already exists")
)

// JobStore is the narrow repository interface over the Job Store. Entries are
// written exactly once per key and read many times; implementations never
// update or delete an entry.
type JobStore interface {
	// Put creates the entry under its request ID. Returns ErrDuplicateJob
	// if the key is taken.
	Put(ctx context.Context, entry models.JobStoreEntry) error

	// Get returns the entry for a job ID, or ErrJobNotFound.
	Get(ctx context.Context, id string) (models.JobStoreEntry, error)

	// List returns all entries, most recently created first.
	List(ctx context.Context) ([]models.JobStoreEntry, error)
}
