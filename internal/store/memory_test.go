package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuneboard/tuneboard/internal/models"
)

func testEntry(id string, createdAt time.Time) models.JobStoreEntry {
	return models.JobStoreEntry{
		Request: models.JobRequest{
			ID:       id,
			Function: "generate_secret",
			Model:    "gpt-4o-mini-2024-07-18",
			Provider: models.ProviderOpenAI,
			Variant:  "baseline",
		},
		Handle:    models.JobHandle{ProviderJobID: "ftjob-" + id},
		CreatedAt: createdAt,
	}
}

func TestMemoryPutGet(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	entry := testEntry("job-1", time.Now())
	require.NoError(t, s.Put(ctx, entry))

	got, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, entry.Handle.ProviderJobID, got.Handle.ProviderJobID)
	assert.Equal(t, entry.Request.Function, got.Request.Function)
}

func TestMemoryGetMissingIsNotFound(t *testing.T) {
	s := NewMemory()
	_, err := s.Get(context.Background(), "nope")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryPutRejectsDuplicateID(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	first := testEntry("job-1", time.Now())
	require.NoError(t, s.Put(ctx, first))

	second := testEntry("job-1", time.Now())
	second.Handle.ProviderJobID = "ftjob-other"
	err := s.Put(ctx, second)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDuplicateJob)

	// The original handle is never replaced.
	got, err := s.Get(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "ftjob-job-1", got.Handle.ProviderJobID)
}

func TestMemoryListNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := NewMemory()

	base := time.Now()
	require.NoError(t, s.Put(ctx, testEntry("job-old", base.Add(-time.Hour))))
	require.NoError(t, s.Put(ctx, testEntry("job-new", base)))

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "job-new", entries[0].Request.ID)
	assert.Equal(t, "job-old", entries[1].Request.ID)
}
