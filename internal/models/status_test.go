package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusTerminality(t *testing.T) {
	assert.False(t, IdleStatus{}.Terminal())
	assert.False(t, PendingStatus{}.Terminal())
	assert.True(t, CompletedStatus{}.Terminal())
	assert.True(t, FailedStatus{}.Terminal())
}

func TestUnmarshalStatusRejectsCompletedWithoutResult(t *testing.T) {
	_, err := UnmarshalStatus([]byte(`{"status":"completed"}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "without result")
}

func TestUnmarshalStatusRejectsUnknownKind(t *testing.T) {
	_, err := UnmarshalStatus([]byte(`{"status":"cancelled"}`))
	require.Error(t, err)
}

func TestFailedStatusKeepsBackendMessageVerbatim(t *testing.T) {
	msg := "Training data validation failed: Invalid format in line 42"
	data, err := MarshalStatus(FailedStatus{Message: msg})
	require.NoError(t, err)

	status, err := UnmarshalStatus(data)
	require.NoError(t, err)

	failed, ok := status.(FailedStatus)
	require.True(t, ok)
	assert.Equal(t, msg, failed.Message)
}

func TestPendingStatusCarriesProgressFields(t *testing.T) {
	tokens := int64(12800)
	data, err := MarshalStatus(PendingStatus{Message: "training", TrainedTokens: &tokens})
	require.NoError(t, err)

	status, err := UnmarshalStatus(data)
	require.NoError(t, err)

	pending, ok := status.(PendingStatus)
	require.True(t, ok)
	require.NotNil(t, pending.TrainedTokens)
	assert.Equal(t, tokens, *pending.TrainedTokens)
}

func TestNewJobIDsAreUniqueAndSortable(t *testing.T) {
	a, err := NewJobID()
	require.NoError(t, err)
	b, err := NewJobID()
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
	// UUIDv7 sorts by creation time lexicographically.
	assert.Less(t, a, b)
}
