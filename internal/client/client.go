// Package client provides an HTTP client for the tuneboard server.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tuneboard/tuneboard/internal/gateway"
	"github.com/tuneboard/tuneboard/internal/metrics"
	"github.com/tuneboard/tuneboard/internal/models"
)

// Client talks to the tuneboard server's REST API.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
}

// New creates a new API client.
// If baseURL is empty, uses TUNEBOARD_SERVER_URL env var or defaults to localhost:8585.
// Timeout can be configured via TUNEBOARD_CLIENT_TIMEOUT env var (default 2m).
func New(baseURL string) *Client {
	if baseURL == "" {
		baseURL = os.Getenv("TUNEBOARD_SERVER_URL")
	}
	if baseURL == "" {
		baseURL = "http://localhost:8585"
	}

	timeout := 2 * time.Minute
	if t := os.Getenv("TUNEBOARD_CLIENT_TIMEOUT"); t != "" {
		if d, err := time.ParseDuration(t); err == nil {
			timeout = d
		}
	}

	return &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		userAgent: os.Getenv("TUNEBOARD_USER_AGENT"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// UserAgent returns the User-Agent string sent with every request.
func (c *Client) UserAgent() string {
	return c.userAgent
}

// apiError is the server's uniform error payload.
type apiError struct {
	Error  string `json:"error"`
	Fields []struct {
		Field   string `json:"field"`
		Message string `json:"message"`
	} `json:"fields,omitempty"`
}

// do sends a request and decodes the JSON response into result.
func (c *Client) do(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			if len(apiErr.Fields) > 0 {
				msgs := make([]string, len(apiErr.Fields))
				for i, f := range apiErr.Fields {
					msgs[i] = f.Field + ": " + f.Message
				}
				return fmt.Errorf("%s (%s)", apiErr.Error, strings.Join(msgs, "; "))
			}
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("server error: %s - %s", resp.Status, string(data))
	}

	if result != nil && len(data) > 0 {
		if err := json.Unmarshal(data, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}

	return nil
}

// LaunchResult acknowledges a submitted job.
type LaunchResult struct {
	JobID  string           `json:"job_id"`
	Handle models.JobHandle `json:"handle"`
}

// LaunchJob submits a fine-tuning job.
func (c *Client) LaunchJob(ctx context.Context, req models.JobRequest) (*LaunchResult, error) {
	var result LaunchResult
	if err := c.do(ctx, http.MethodPost, "/api/fine-tuning/jobs", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetStatus fetches the current status of a job. The server polls the
// provider on demand, so this is the client-facing poll operation.
func (c *Client) GetStatus(ctx context.Context, jobID string) (models.JobStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/api/fine-tuning/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(data, &apiErr) == nil && apiErr.Error != "" {
			return nil, fmt.Errorf("%s", apiErr.Error)
		}
		return nil, fmt.Errorf("server error: %s - %s", resp.Status, string(data))
	}

	status, err := models.UnmarshalStatus(data)
	if err != nil {
		return nil, fmt.Errorf("decode status: %w", err)
	}
	return status, nil
}

// JobSummary is one row of the job listing.
type JobSummary struct {
	ID        string    `json:"id"`
	Function  string    `json:"function"`
	Variant   string    `json:"variant"`
	Model     string    `json:"model"`
	Provider  string    `json:"provider"`
	HumanURL  string    `json:"human_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// ListJobs returns all launched jobs, newest first.
func (c *Client) ListJobs(ctx context.Context) ([]JobSummary, error) {
	var jobs []JobSummary
	if err := c.do(ctx, http.MethodGet, "/api/fine-tuning/jobs", nil, &jobs); err != nil {
		return nil, err
	}
	return jobs, nil
}

// Counts returns the curated-sample counts for a function/metric pair.
func (c *Client) Counts(ctx context.Context, function, metric, threshold string) (*gateway.Counts, error) {
	q := url.Values{}
	q.Set("function", function)
	q.Set("metric", metric)
	if threshold != "" {
		q.Set("threshold", threshold)
	}

	var counts gateway.Counts
	if err := c.do(ctx, http.MethodGet, "/api/counts?"+q.Encode(), nil, &counts); err != nil {
		return nil, err
	}
	return &counts, nil
}

// CatalogFunctions lists functions with their fine-tunable variants.
type CatalogFunctions struct {
	Functions map[string]map[string]CatalogVariant `json:"functions"`
	Metrics   map[string]CatalogMetric             `json:"metrics"`
}

// CatalogVariant describes one selectable variant.
type CatalogVariant struct {
	Type   string  `json:"type"`
	Model  string  `json:"model"`
	Weight float64 `json:"weight"`
}

// CatalogMetric describes one selectable metric.
type CatalogMetric struct {
	Type     string `json:"type"`
	Optimize string `json:"optimize,omitempty"`
}

// Catalog returns the functions, variants, and metrics the server offers.
func (c *Client) Catalog(ctx context.Context) (*CatalogFunctions, error) {
	var cat CatalogFunctions
	if err := c.do(ctx, http.MethodGet, "/api/catalog", nil, &cat); err != nil {
		return nil, err
	}
	return &cat, nil
}

// Stats returns the server's in-memory operation statistics.
func (c *Client) Stats(ctx context.Context) (*metrics.Snapshot, error) {
	var snap metrics.Snapshot
	if err := c.do(ctx, http.MethodGet, "/api/stats", nil, &snap); err != nil {
		return nil, err
	}
	return &snap, nil
}

// WatchJob subscribes to the server's websocket status stream. The onStatus
// callback is invoked for each status update. Return an error from onStatus
// to abort. WatchJob returns nil after the first terminal status.
func (c *Client) WatchJob(ctx context.Context, jobID string, onStatus func(models.JobStatus) error) error {
	wsURL := c.baseURL
	wsURL = strings.Replace(wsURL, "http://", "ws://", 1)
	wsURL = strings.Replace(wsURL, "https://", "wss://", 1)
	wsURL += "/api/fine-tuning/jobs/" + url.PathEscape(jobID) + "/watch"

	dialer := websocket.Dialer{
		HandshakeTimeout: 10 * time.Second,
	}
	header := http.Header{}
	if c.userAgent != "" {
		header.Set("User-Agent", c.userAgent)
	}

	conn, resp, err := dialer.DialContext(ctx, wsURL, header)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("job not found")
		}
		return fmt.Errorf("websocket connect: %w", err)
	}
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsCloseError(err, websocket.CloseNormalClosure) {
				return nil
			}
			if ctx.Err() != nil {
				return ctx.Err()
			}
			return fmt.Errorf("read message: %w", err)
		}

		status, err := models.UnmarshalStatus(data)
		if err != nil {
			return fmt.Errorf("decode status: %w", err)
		}
		if err := onStatus(status); err != nil {
			return err
		}
		if status.Terminal() {
			return nil
		}
	}
}
