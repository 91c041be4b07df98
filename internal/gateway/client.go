// Package gateway provides an HTTP client for the external inference gateway.
// The gateway owns inference, feedback, and curation; this service only reads
// counts and rendered training datasets from it.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"time"

	"github.com/tuneboard/tuneboard/internal/models"
)

// Client talks to the inference gateway's internal API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a gateway client. If baseURL is empty, uses TUNEBOARD_GATEWAY_URL
// or defaults to localhost:3000. Timeout is configurable via
// TUNEBOARD_GATEWAY_TIMEOUT (default 2m; dataset rendering can be slow).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("TUNEBOARD_GATEWAY_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:3000"
	}

	timeout := 2 * time.Minute
	if t := os.Getenv("TUNEBOARD_GATEWAY_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// Counts holds the advisory numbers shown next to the submission form.
type Counts struct {
	Inferences        int64 `json:"inference_count"`
	Feedbacks         int64 `json:"feedback_count"`
	CuratedInferences int64 `json:"curated_inference_count"`
}

// CuratedCounts returns inference/feedback/curated counts for a
// function/metric pair. Threshold may be empty for boolean metrics.
func (c *Client) CuratedCounts(ctx context.Context, function, metric, threshold string) (Counts, error) {
	q := url.Values{}
	q.Set("function", function)
	q.Set("metric", metric)
	if threshold != "" {
		q.Set("threshold", threshold)
	}

	endpoint := fmt.Sprintf("%s/internal/curated_inferences/count?%s", c.baseURL, q.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Counts{}, fmt.Errorf("create request: %w", err)
	}

	var counts Counts
	if err := c.do(req, &counts); err != nil {
		return Counts{}, fmt.Errorf("curated counts: %w", err)
	}
	return counts, nil
}

// renderRequest is the payload for dataset rendering.
type renderRequest struct {
	Function               string                   `json:"function"`
	Criteria               []models.MetricCriterion `json:"criteria"`
	Combine                models.CriteriaCombine   `json:"combine,omitempty"`
	Variant                string                   `json:"variant"`
	ValidationSplitPercent int                      `json:"validation_split_percent"`
	MaxSamples             int                      `json:"max_samples"`
}

// renderResponse carries the rendered JSONL splits.
type renderResponse struct {
	Training     string `json:"training"`
	Validation   string `json:"validation"`
	CuratedCount int    `json:"curated_count"`
}

// Dataset is curated training data rendered into provider-neutral JSONL,
// already split and capped by the gateway.
type Dataset struct {
	Training     []byte
	Validation   []byte
	CuratedCount int
}

// RenderDataset asks the gateway to select curated inferences matching the
// request's criteria and render them as JSONL training data.
func (c *Client) RenderDataset(ctx context.Context, jobReq models.JobRequest) (Dataset, error) {
	body, err := json.Marshal(renderRequest{
		Function:               jobReq.Function,
		Criteria:               jobReq.Criteria,
		Combine:                jobReq.Combine,
		Variant:                jobReq.Variant,
		ValidationSplitPercent: jobReq.ValidationSplitPercent,
		MaxSamples:             jobReq.MaxSamples,
	})
	if err != nil {
		return Dataset{}, fmt.Errorf("marshal request: %w", err)
	}

	endpoint := c.baseURL + "/internal/datasets/render"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return Dataset{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	var resp renderResponse
	if err := c.do(req, &resp); err != nil {
		return Dataset{}, fmt.Errorf("render dataset: %w", err)
	}
	return Dataset{
		Training:     []byte(resp.Training),
		Validation:   []byte(resp.Validation),
		CuratedCount: resp.CuratedCount,
	}, nil
}

// do executes a request and decodes the JSON response into result.
func (c *Client) do(req *http.Request, result any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("gateway error: %s - %s", resp.Status, string(body))
	}

	if result != nil {
		if err := json.Unmarshal(body, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}
