// Package provider integrates the fine-tuning backends a job can launch on.
// Each provider turns a validated JobRequest plus a rendered dataset into an
// opaque JobHandle, and maps the backend's job state onto the JobStatus union.
package provider

import (
	"context"

	"github.com/tuneboard/tuneboard/internal/gateway"
	"github.com/tuneboard/tuneboard/internal/models"
)

// Provider launches and polls fine-tuning jobs on one backend.
type Provider interface {
	// Name is the provider identifier matched against JobRequest.Provider.
	Name() string

	// Launch starts a fine-tuning job from the rendered dataset and returns
	// the backend's opaque handle. The handle is stored once and never
	// replaced; launch failures must leave no remote state worth tracking.
	Launch(ctx context.Context, req models.JobRequest, dataset gateway.Dataset) (models.JobHandle, error)

	// Poll maps the backend's current job state onto a JobStatus. Backends
	// report terminal states stably, so polling past termination returns
	// the same status.
	Poll(ctx context.Context, handle models.JobHandle) (models.JobStatus, error)
}

// Registry resolves providers by name.
type Registry map[string]Provider

// NewRegistry builds a registry from providers, keyed by Name().
func NewRegistry(providers ...Provider) Registry {
	r := make(Registry, len(providers))
	for _, p := range providers {
		r[p.Name()] = p
	}
	return r
}

// Lookup returns the provider for a name.
func (r Registry) Lookup(name string) (Provider, bool) {
	p, ok := r[name]
	return p, ok
}
