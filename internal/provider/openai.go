package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"time"

	"github.com/tuneboard/tuneboard/internal/gateway"
	"github.com/tuneboard/tuneboard/internal/models"
)

const (
	// DefaultOpenAIBaseURL is the OpenAI API endpoint.
	DefaultOpenAIBaseURL = "https://api.openai.com"

	// openaiServingTimeoutSeconds is the serving timeout written into the
	// derived model configuration for OpenAI fine-tunes.
	openaiServingTimeoutSeconds = 60
)

// OpenAI launches fine-tuning jobs through the OpenAI REST API: training
// files are uploaded first, then a fine-tuning job references them.
type OpenAI struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

var _ Provider = (*OpenAI)(nil)

// NewOpenAI creates the OpenAI provider. If baseURL is empty the public API
// endpoint is used.
func NewOpenAI(apiKey, baseURL string) (*OpenAI, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("OpenAI API key required")
	}
	if baseURL == "" {
		baseURL = DefaultOpenAIBaseURL
	}
	return &OpenAI{
		apiKey:     apiKey,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
	}, nil
}

// Name returns the provider identifier.
func (o *OpenAI) Name() string { return models.ProviderOpenAI }

// fileResponse is the response from the files endpoint.
type fileResponse struct {
	ID string `json:"id"`
}

// createJobRequest is the payload for creating a fine-tuning job.
type createJobRequest struct {
	Model          string `json:"model"`
	TrainingFile   string `json:"training_file"`
	ValidationFile string `json:"validation_file,omitempty"`
	Suffix         string `json:"suffix,omitempty"`
}

// jobResponse is the fine-tuning job resource.
type jobResponse struct {
	ID              string `json:"id"`
	Status          string `json:"status"`
	FineTunedModel  string `json:"fine_tuned_model"`
	TrainedTokens   *int64 `json:"trained_tokens"`
	EstimatedFinish *int64 `json:"estimated_finish"`
	Error           *struct {
		Message string `json:"message"`
	} `json:"error"`
}

// Launch uploads the dataset splits and creates the fine-tuning job.
func (o *OpenAI) Launch(ctx context.Context, req models.JobRequest, dataset gateway.Dataset) (models.JobHandle, error) {
	trainingID, err := o.uploadFile(ctx, fmt.Sprintf("%s-train.jsonl", req.ID), dataset.Training)
	if err != nil {
		return models.JobHandle{}, fmt.Errorf("upload training file: %w", err)
	}

	var validationID string
	if len(dataset.Validation) > 0 {
		validationID, err = o.uploadFile(ctx, fmt.Sprintf("%s-val.jsonl", req.ID), dataset.Validation)
		if err != nil {
			return models.JobHandle{}, fmt.Errorf("upload validation file: %w", err)
		}
	}

	body, err := json.Marshal(createJobRequest{
		Model:          req.Model,
		TrainingFile:   trainingID,
		ValidationFile: validationID,
		Suffix:         req.Function,
	})
	if err != nil {
		return models.JobHandle{}, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		o.baseURL+"/v1/fine_tuning/jobs", bytes.NewReader(body))
	if err != nil {
		return models.JobHandle{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var job jobResponse
	if err := o.do(httpReq, &job); err != nil {
		return models.JobHandle{}, fmt.Errorf("create fine-tuning job: %w", err)
	}

	return models.JobHandle{
		ProviderJobID: job.ID,
		HumanURL:      "https://platform.openai.com/finetune/" + job.ID,
		APIURL:        o.baseURL + "/v1/fine_tuning/jobs/" + job.ID,
	}, nil
}

// Poll fetches the job and maps OpenAI's status vocabulary onto the union.
func (o *OpenAI) Poll(ctx context.Context, handle models.JobHandle) (models.JobStatus, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		o.baseURL+"/v1/fine_tuning/jobs/"+handle.ProviderJobID, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	var job jobResponse
	if err := o.do(httpReq, &job); err != nil {
		return nil, fmt.Errorf("get fine-tuning job: %w", err)
	}

	switch job.Status {
	case "validating_files", "queued", "running":
		pending := models.PendingStatus{
			Message:       fmt.Sprintf("Job is %s", job.Status),
			TrainedTokens: job.TrainedTokens,
		}
		if job.EstimatedFinish != nil {
			eta := time.Unix(*job.EstimatedFinish, 0).UTC()
			pending.EstimatedFinish = &eta
		}
		return pending, nil

	case "succeeded":
		if job.FineTunedModel == "" {
			return nil, fmt.Errorf("job %s succeeded without a fine-tuned model", job.ID)
		}
		return models.CompletedStatus{Result: models.FineTuneResult{
			FineTunedModel: job.FineTunedModel,
			Serving: models.ServingConfig{
				Provider:       models.ProviderOpenAI,
				ModelName:      job.FineTunedModel,
				TimeoutSeconds: openaiServingTimeoutSeconds,
				Capabilities:   []string{"chat", "json_mode"},
			},
		}}, nil

	case "failed", "cancelled":
		msg := "fine-tuning job " + job.Status
		if job.Error != nil && job.Error.Message != "" {
			msg = job.Error.Message
		}
		return models.FailedStatus{Message: msg}, nil

	default:
		return nil, fmt.Errorf("unknown job status %q", job.Status)
	}
}

// uploadFile uploads JSONL content to the files endpoint with purpose
// fine-tune and returns the file ID.
func (o *OpenAI) uploadFile(ctx context.Context, name string, content []byte) (string, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	if err := mw.WriteField("purpose", "fine-tune"); err != nil {
		return "", fmt.Errorf("write purpose field: %w", err)
	}
	part, err := mw.CreateFormFile("file", name)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return "", fmt.Errorf("write file content: %w", err)
	}
	if err := mw.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.baseURL+"/v1/files", &buf)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var file fileResponse
	if err := o.do(req, &file); err != nil {
		return "", err
	}
	return file.ID, nil
}

// do executes an authenticated request and decodes the JSON response.
func (o *OpenAI) do(req *http.Request, result any) error {
	req.Header.Set("Authorization", "Bearer "+o.apiKey)

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("openai error: %s - %s", resp.Status, string(body))
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
