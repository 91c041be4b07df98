// Package models defines the data structures of the fine-tuning job lifecycle.
package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Provider identifiers accepted in a JobRequest.
const (
	ProviderOpenAI  = "openai"
	ProviderBedrock = "bedrock"
)

// CriteriaCombine selects how multiple metric criteria are joined.
type CriteriaCombine string

const (
	CombineAnd CriteriaCombine = "and"
	CombineOr  CriteriaCombine = "or"
)

// MetricCriterion selects curated inferences by metric name and threshold.
// Threshold stays a string until validation: whether it must parse as a real
// number depends on the metric's type in the catalog.
type MetricCriterion struct {
	Metric    string `json:"metric" yaml:"metric"`
	Threshold string `json:"threshold,omitempty" yaml:"threshold,omitempty"`
}

// ProviderLocation carries extra launch parameters some providers require.
// Only Bedrock needs a region and an output bucket; for every other provider
// the whole struct is optional.
type ProviderLocation struct {
	Region string `json:"region,omitempty" yaml:"region,omitempty"`
	Bucket string `json:"bucket,omitempty" yaml:"bucket,omitempty"`
}

// JobRequest is the full set of user-supplied fine-tuning parameters.
// It is immutable once submitted.
type JobRequest struct {
	ID                     string            `json:"id" yaml:"id"`
	Function               string            `json:"function" yaml:"function"`
	Criteria               []MetricCriterion `json:"criteria" yaml:"criteria"`
	Combine                CriteriaCombine   `json:"combine,omitempty" yaml:"combine,omitempty"`
	Model                  string            `json:"model" yaml:"model"`
	Provider               string            `json:"provider" yaml:"provider"`
	Variant                string            `json:"variant" yaml:"variant"`
	ValidationSplitPercent int               `json:"validation_split_percent" yaml:"validation_split_percent"`
	MaxSamples             int               `json:"max_samples" yaml:"max_samples"`
	Location               *ProviderLocation `json:"location,omitempty" yaml:"location,omitempty"`
}

// NewJobID mints a time-sortable unique job identifier.
// Submission retries must call this again; job IDs are never reused.
func NewJobID() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("mint job id: %w", err)
	}
	return id.String(), nil
}

// JobHandle is the opaque backend-issued reference to a running job.
// Never mutated after creation.
type JobHandle struct {
	ProviderJobID string `json:"provider_job_id" yaml:"provider_job_id"`
	HumanURL      string `json:"human_url,omitempty" yaml:"human_url,omitempty"`
	APIURL        string `json:"api_url,omitempty" yaml:"api_url,omitempty"`
	CredentialRef string `json:"credential_ref,omitempty" yaml:"credential_ref,omitempty"`
}

// JobStoreEntry pairs a JobRequest with its JobHandle, keyed by the request ID.
// Created once on successful submission, read on every poll, never deleted.
type JobStoreEntry struct {
	Request   JobRequest `json:"request" yaml:"request"`
	Handle    JobHandle  `json:"handle" yaml:"handle"`
	CreatedAt time.Time  `json:"created_at" yaml:"created_at"`
}
