package service

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tuneboard/tuneboard/internal/catalog"
	"github.com/tuneboard/tuneboard/internal/gateway"
	"github.com/tuneboard/tuneboard/internal/metrics"
	"github.com/tuneboard/tuneboard/internal/models"
	"github.com/tuneboard/tuneboard/internal/provider"
	"github.com/tuneboard/tuneboard/internal/store"
)

// Gateway is the slice of the inference gateway client the lifecycle needs.
type Gateway interface {
	CuratedCounts(ctx context.Context, function, metric, threshold string) (gateway.Counts, error)
	RenderDataset(ctx context.Context, req models.JobRequest) (gateway.Dataset, error)
}

// Lifecycle orchestrates the fine-tuning job workflow: validate, launch,
// store, poll, derive. It is the only writer of the Job Store.
type Lifecycle struct {
	catalog   *catalog.Catalog
	store     store.JobStore
	providers provider.Registry
	gateway   Gateway
	collector *metrics.Collector
	logger    *slog.Logger

	// terminal memoizes completed/failed statuses per job. Once a job is
	// observed terminal its status never changes, so later polls are
	// answered from here without touching the provider.
	mu       sync.Mutex
	terminal map[string]models.JobStatus
}

// NewLifecycle creates the lifecycle service.
func NewLifecycle(cat *catalog.Catalog, st store.JobStore, providers provider.Registry, gw Gateway, collector *metrics.Collector, logger *slog.Logger) *Lifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	if collector == nil {
		collector = metrics.NewCollector()
	}
	return &Lifecycle{
		catalog:   cat,
		store:     st,
		providers: providers,
		gateway:   gw,
		collector: collector,
		logger:    logger,
		terminal:  make(map[string]models.JobStatus),
	}
}

// Catalog returns the read-only configuration object.
func (l *Lifecycle) Catalog() *catalog.Catalog { return l.catalog }

// Launch validates the request, renders the curated dataset, starts the
// provider job, and stores the entry. Either the entry exists and the handle
// is returned, or an error is returned and no entry was created — never both.
func (l *Lifecycle) Launch(ctx context.Context, req models.JobRequest) (models.JobHandle, error) {
	start := time.Now()
	defer func() { l.collector.RecordTiming(metrics.OpLaunch, time.Since(start)) }()

	if err := ValidateRequest(req, l.catalog); err != nil {
		return models.JobHandle{}, err
	}

	prov, ok := l.providers.Lookup(req.Provider)
	if !ok {
		return models.JobHandle{}, ValidationErrors{{
			Field:   "provider",
			Message: fmt.Sprintf("provider %q is not configured", req.Provider),
		}}
	}

	// Job IDs are never reused; reject replays before any remote work.
	if _, err := l.store.Get(ctx, req.ID); err == nil {
		return models.JobHandle{}, fmt.Errorf("%w: %s", store.ErrDuplicateJob, req.ID)
	}

	renderStart := time.Now()
	dataset, err := l.gateway.RenderDataset(ctx, req)
	l.collector.RecordTiming(metrics.OpGatewayRender, time.Since(renderStart))
	if err != nil {
		return models.JobHandle{}, fmt.Errorf("render dataset: %w", err)
	}

	launchStart := time.Now()
	handle, err := prov.Launch(ctx, req, dataset)
	l.collector.RecordTiming(metrics.OpProviderLaunch, time.Since(launchStart))
	if err != nil {
		return models.JobHandle{}, fmt.Errorf("launch job: %w", err)
	}

	entry := models.JobStoreEntry{
		Request:   req,
		Handle:    handle,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.store.Put(ctx, entry); err != nil {
		return models.JobHandle{}, fmt.Errorf("store job: %w", err)
	}

	l.logger.Info("fine-tuning job launched",
		"job_id", req.ID,
		"function", req.Function,
		"provider", req.Provider,
		"model", req.Model,
		"provider_job_id", handle.ProviderJobID,
		"curated_count", dataset.CuratedCount)
	return handle, nil
}

// Status returns the current JobStatus for a job ID. Unknown IDs yield
// store.ErrJobNotFound. Terminal statuses are memoized: once a job has
// completed or failed, every later call returns the identical status.
func (l *Lifecycle) Status(ctx context.Context, id string) (models.JobStatus, error) {
	start := time.Now()
	defer func() { l.collector.RecordTiming(metrics.OpStatusPoll, time.Since(start)) }()

	l.mu.Lock()
	if status, ok := l.terminal[id]; ok {
		l.mu.Unlock()
		return status, nil
	}
	l.mu.Unlock()

	entry, err := l.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	prov, ok := l.providers.Lookup(entry.Request.Provider)
	if !ok {
		return nil, fmt.Errorf("provider %q is not configured", entry.Request.Provider)
	}

	pollStart := time.Now()
	status, err := prov.Poll(ctx, entry.Handle)
	l.collector.RecordTiming(metrics.OpProviderPoll, time.Since(pollStart))
	if err != nil {
		return nil, fmt.Errorf("poll provider: %w", err)
	}

	if completed, ok := status.(models.CompletedStatus); ok {
		status = l.finishCompleted(entry, completed)
	}

	if status.Terminal() {
		l.mu.Lock()
		l.terminal[id] = status
		l.mu.Unlock()
		l.logger.Info("fine-tuning job reached terminal state",
			"job_id", id, "status", status.Kind())
	}
	return status, nil
}

// finishCompleted enriches a completed status with the derived configuration
// fragments. Fragment rendering failures are logged, not fatal: the result
// itself is still reportable.
func (l *Lifecycle) finishCompleted(entry models.JobStoreEntry, completed models.CompletedStatus) models.JobStatus {
	source, ok := l.catalog.Variant(entry.Request.Function, entry.Request.Variant)
	if !ok {
		l.logger.Warn("source variant missing from catalog, skipping fragment derivation",
			"job_id", entry.Request.ID, "variant", entry.Request.Variant)
		return completed
	}

	modelYAML, variantYAML, err := DeriveFragments(
		completed.Result, entry.Request.Function, entry.Request.Variant, source)
	if err != nil {
		l.logger.Warn("fragment derivation failed",
			"job_id", entry.Request.ID, "error", err)
		return completed
	}

	completed.Result.ModelFragment = modelYAML
	completed.Result.VariantFragment = variantYAML
	return completed
}

// List returns all stored jobs, most recent first.
func (l *Lifecycle) List(ctx context.Context) ([]models.JobStoreEntry, error) {
	return l.store.List(ctx)
}

// Counts proxies the gateway's advisory counts for the submission form.
func (l *Lifecycle) Counts(ctx context.Context, function, metric, threshold string) (gateway.Counts, error) {
	start := time.Now()
	defer func() { l.collector.RecordTiming(metrics.OpGatewayCounts, time.Since(start)) }()
	return l.gateway.CuratedCounts(ctx, function, metric, threshold)
}

// Stats returns the metrics snapshot.
func (l *Lifecycle) Stats() metrics.Snapshot {
	return l.collector.Snapshot()
}
