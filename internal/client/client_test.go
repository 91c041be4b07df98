package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuneboard/tuneboard/internal/models"
)

func TestLaunchJob(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/api/fine-tuning/jobs", r.URL.Path)

		var req models.JobRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "generate_secret", req.Function)

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(LaunchResult{
			JobID:  req.ID,
			Handle: models.JobHandle{ProviderJobID: "ftjob-abc123"},
		})
	}))
	defer ts.Close()

	c := New(ts.URL)
	result, err := c.LaunchJob(context.Background(), models.JobRequest{
		ID:       "job-1",
		Function: "generate_secret",
	})
	require.NoError(t, err)
	assert.Equal(t, "job-1", result.JobID)
	assert.Equal(t, "ftjob-abc123", result.Handle.ProviderJobID)
}

func TestLaunchJobValidationErrorIncludesFields(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"error":"validation failed","fields":[{"field":"max_samples","message":"must be at least 10"}]}`))
	}))
	defer ts.Close()

	c := New(ts.URL)
	_, err := c.LaunchJob(context.Background(), models.JobRequest{ID: "job-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "validation failed")
	assert.Contains(t, err.Error(), "max_samples: must be at least 10")
}

func TestGetStatusDecodesEnvelope(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/fine-tuning/jobs/job-1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"pending","message":"Job is running","trained_tokens":12345}`))
	}))
	defer ts.Close()

	c := New(ts.URL)
	status, err := c.GetStatus(context.Background(), "job-1")
	require.NoError(t, err)

	pending, ok := status.(models.PendingStatus)
	require.True(t, ok)
	assert.Equal(t, "Job is running", pending.Message)
	require.NotNil(t, pending.TrainedTokens)
	assert.Equal(t, int64(12345), *pending.TrainedTokens)
}

func TestGetStatusNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"job not found"}`))
	}))
	defer ts.Close()

	c := New(ts.URL)
	_, err := c.GetStatus(context.Background(), "missing")
	require.Error(t, err)
	assert.Equal(t, "job not found", err.Error())
}

func TestCounts(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/counts", r.URL.Path)
		assert.Equal(t, "generate_secret", r.URL.Query().Get("function"))
		assert.Equal(t, "accuracy", r.URL.Query().Get("metric"))
		assert.Equal(t, "0.9", r.URL.Query().Get("threshold"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"inference_count":100,"feedback_count":50,"curated_inference_count":42}`))
	}))
	defer ts.Close()

	c := New(ts.URL)
	counts, err := c.Counts(context.Background(), "generate_secret", "accuracy", "0.9")
	require.NoError(t, err)
	assert.Equal(t, int64(42), counts.CuratedInferences)
}

func TestWatchJobDeliversUntilTerminal(t *testing.T) {
	upgrader := websocket.Upgrader{}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/api/fine-tuning/jobs/job-1/watch", r.URL.Path)
		conn, err := upgrader.Upgrade(w, r, nil)
		require.NoError(t, err)
		defer conn.Close()

		envelopes := []string{
			`{"status":"pending","message":"queued"}`,
			`{"status":"pending","message":"running"}`,
			`{"status":"completed","result":{"fine_tuned_model":"ft:m:x","serving":{"provider":"openai","timeout_seconds":60}}}`,
		}
		for _, env := range envelopes {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(env)))
		}
		conn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, "completed"))
	}))
	defer ts.Close()

	c := New(ts.URL)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var seen []models.JobStatus
	err := c.WatchJob(ctx, "job-1", func(s models.JobStatus) error {
		seen = append(seen, s)
		return nil
	})
	require.NoError(t, err)

	require.Len(t, seen, 3)
	assert.Equal(t, models.StatusPending, seen[0].Kind())
	assert.Equal(t, models.StatusCompleted, seen[2].Kind())
}

func TestWatchJobNotFound(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"error":"job not found"}`))
	}))
	defer ts.Close()

	c := New(ts.URL)
	err := c.WatchJob(context.Background(), "missing", func(models.JobStatus) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "job not found")
}
