package client

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/tuneboard/tuneboard/internal/models"
)

const (
	// defaultPollInterval is the production poll cadence.
	defaultPollInterval = 10 * time.Second
	// fastPollInterval is used when the user agent carries the e2e marker,
	// so test runs observe transitions without waiting out the full cadence.
	fastPollInterval = 500 * time.Millisecond
	// e2eMarker identifies end-to-end test clients by user agent substring.
	e2eMarker = "tuneboard-e2e"
)

// StatusFetcher fetches the current status of a job. *Client satisfies it.
type StatusFetcher interface {
	GetStatus(ctx context.Context, jobID string) (models.JobStatus, error)
	UserAgent() string
}

// Poller polls a job's status on a fixed cadence until a terminal status
// arrives. Responses can return out of order when a slow request overlaps a
// later one; each request captures a generation number and a response is
// applied only if its generation is newer than the last applied one.
type Poller struct {
	fetcher  StatusFetcher
	interval time.Duration
	logger   *slog.Logger

	mu          sync.Mutex
	issuedGen   uint64
	appliedGen  uint64
	lastApplied models.JobStatus
}

// NewPoller creates a poller for the given fetcher. The cadence is the
// production interval unless the fetcher's user agent carries the e2e marker.
func NewPoller(fetcher StatusFetcher, logger *slog.Logger) *Poller {
	if logger == nil {
		logger = slog.Default()
	}

	interval := defaultPollInterval
	if strings.Contains(fetcher.UserAgent(), e2eMarker) {
		interval = fastPollInterval
	}

	return &Poller{
		fetcher:  fetcher,
		interval: interval,
		logger:   logger,
	}
}

// Interval returns the poll cadence in effect.
func (p *Poller) Interval() time.Duration {
	return p.interval
}

// apply records a response if it is newer than the last applied one.
// It reports whether the response was applied.
func (p *Poller) apply(gen uint64, status models.JobStatus) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	if gen <= p.appliedGen {
		return false
	}
	p.appliedGen = gen
	p.lastApplied = status
	return true
}

// nextGen issues a new request generation.
func (p *Poller) nextGen() uint64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.issuedGen++
	return p.issuedGen
}

// Last returns the most recently applied status, or nil before the first
// successful poll.
func (p *Poller) Last() models.JobStatus {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastApplied
}

// Run polls until a terminal status is applied or the context is cancelled.
// Each update that survives the staleness guard is delivered to onStatus.
// Transport errors are transient: they are logged and the cadence continues.
// On cancellation any outstanding response is dropped and no backend cancel
// is attempted.
func (p *Poller) Run(ctx context.Context, jobID string, onStatus func(models.JobStatus)) (models.JobStatus, error) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		gen := p.nextGen()
		status, err := p.fetcher.GetStatus(ctx, jobID)
		switch {
		case ctx.Err() != nil:
			return nil, ctx.Err()
		case err != nil:
			p.logger.Warn("poll failed", "job_id", jobID, "error", err)
		case p.apply(gen, status):
			if onStatus != nil {
				onStatus(status)
			}
			if status.Terminal() {
				return status, nil
			}
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}
