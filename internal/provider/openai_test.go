package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tuneboard/tuneboard/internal/gateway"
	"github.com/tuneboard/tuneboard/internal/models"
)

func openaiTestServer(t *testing.T, jobStatus string, job jobResponse) *httptest.Server {
	t.Helper()
	uploads := 0
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/v1/files":
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "fine-tune", r.FormValue("purpose"))
			uploads++
			json.NewEncoder(w).Encode(fileResponse{ID: fmt.Sprintf("file-%d", uploads)})

		case r.Method == http.MethodPost && r.URL.Path == "/v1/fine_tuning/jobs":
			var req createJobRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "gpt-4o-mini-2024-07-18", req.Model)
			assert.Equal(t, "file-1", req.TrainingFile)
			assert.Equal(t, "file-2", req.ValidationFile)
			json.NewEncoder(w).Encode(jobResponse{ID: "ftjob-abc123", Status: "validating_files"})

		case r.Method == http.MethodGet && r.URL.Path == "/v1/fine_tuning/jobs/ftjob-abc123":
			job.ID = "ftjob-abc123"
			job.Status = jobStatus
			json.NewEncoder(w).Encode(job)

		default:
			http.NotFound(w, r)
		}
	}))
}

func TestOpenAILaunchUploadsFilesAndCreatesJob(t *testing.T) {
	srv := openaiTestServer(t, "running", jobResponse{})
	defer srv.Close()

	p, err := NewOpenAI("sk-test", srv.URL)
	require.NoError(t, err)

	handle, err := p.Launch(context.Background(), models.JobRequest{
		ID:       "job-1",
		Function: "generate_secret",
		Model:    "gpt-4o-mini-2024-07-18",
	}, gateway.Dataset{
		Training:   []byte(`{"messages":[]}` + "\n"),
		Validation: []byte(`{"messages":[]}` + "\n"),
	})
	require.NoError(t, err)
	assert.Equal(t, "ftjob-abc123", handle.ProviderJobID)
	assert.Equal(t, "https://platform.openai.com/finetune/ftjob-abc123", handle.HumanURL)
}

func TestOpenAIPollPending(t *testing.T) {
	tokens := int64(51200)
	srv := openaiTestServer(t, "running", jobResponse{TrainedTokens: &tokens})
	defer srv.Close()

	p, err := NewOpenAI("sk-test", srv.URL)
	require.NoError(t, err)

	status, err := p.Poll(context.Background(), models.JobHandle{ProviderJobID: "ftjob-abc123"})
	require.NoError(t, err)

	pending, ok := status.(models.PendingStatus)
	require.True(t, ok)
	require.NotNil(t, pending.TrainedTokens)
	assert.Equal(t, tokens, *pending.TrainedTokens)
}

func TestOpenAIPollSucceeded(t *testing.T) {
	srv := openaiTestServer(t, "succeeded", jobResponse{
		FineTunedModel: "ft:gpt-4o-mini-2024-07-18:org:suffix:abc123",
	})
	defer srv.Close()

	p, err := NewOpenAI("sk-test", srv.URL)
	require.NoError(t, err)

	status, err := p.Poll(context.Background(), models.JobHandle{ProviderJobID: "ftjob-abc123"})
	require.NoError(t, err)

	completed, ok := status.(models.CompletedStatus)
	require.True(t, ok)
	assert.Equal(t, "ft:gpt-4o-mini-2024-07-18:org:suffix:abc123", completed.Result.FineTunedModel)
	assert.Equal(t, models.ProviderOpenAI, completed.Result.Serving.Provider)
}

func TestOpenAIPollFailedKeepsMessage(t *testing.T) {
	srv := openaiTestServer(t, "failed", jobResponse{
		Error: &struct {
			Message string `json:"message"`
		}{Message: "Training data validation failed: Invalid format in line 42"},
	})
	defer srv.Close()

	p, err := NewOpenAI("sk-test", srv.URL)
	require.NoError(t, err)

	status, err := p.Poll(context.Background(), models.JobHandle{ProviderJobID: "ftjob-abc123"})
	require.NoError(t, err)

	failed, ok := status.(models.FailedStatus)
	require.True(t, ok)
	assert.Equal(t, "Training data validation failed: Invalid format in line 42", failed.Message)
}

func TestRegionFromARN(t *testing.T) {
	arn := "arn:aws:bedrock:us-east-1:123456789012:model-customization-job/abc"
	assert.Equal(t, "us-east-1", regionFromARN(arn))
	assert.Equal(t, "", regionFromARN("not-an-arn"))
}
