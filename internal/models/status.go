package models

import (
	"encoding/json"
	"fmt"
	"time"
)

// JobStatusKind discriminates the JobStatus union on the wire.
type JobStatusKind string

const (
	StatusIdle      JobStatusKind = "idle"
	StatusPending   JobStatusKind = "pending"
	StatusCompleted JobStatusKind = "completed"
	StatusFailed    JobStatusKind = "failed"
)

// JobStatus is the time-varying state of a fine-tuning job. It is a sealed
// union over {idle, pending, completed, failed}: a status is recomputed whole
// on every poll, never partially mutated, and transitions only forward.
type JobStatus interface {
	Kind() JobStatusKind
	// Terminal reports whether no further transitions can occur.
	Terminal() bool
}

// IdleStatus means no job is addressed yet.
type IdleStatus struct{}

func (IdleStatus) Kind() JobStatusKind { return StatusIdle }
func (IdleStatus) Terminal() bool      { return false }

// PendingStatus is a job the backend has accepted but not finished.
type PendingStatus struct {
	Message         string
	EstimatedFinish *time.Time
	TrainedTokens   *int64
}

func (PendingStatus) Kind() JobStatusKind { return StatusPending }
func (PendingStatus) Terminal() bool      { return false }

// CompletedStatus carries the fine-tuning result. A completed status without
// a result is unrepresentable; decoding rejects it.
type CompletedStatus struct {
	Result FineTuneResult
}

func (CompletedStatus) Kind() JobStatusKind { return StatusCompleted }
func (CompletedStatus) Terminal() bool      { return true }

// FailedStatus carries the backend's error message verbatim.
type FailedStatus struct {
	Message string
}

func (FailedStatus) Kind() JobStatusKind { return StatusFailed }
func (FailedStatus) Terminal() bool      { return true }

// ServingConfig describes how the fine-tuned model is served.
type ServingConfig struct {
	Provider       string   `json:"provider" yaml:"provider"`
	ModelName      string   `json:"model_name,omitempty" yaml:"model_name,omitempty"`
	TimeoutSeconds int      `json:"timeout_seconds,omitempty" yaml:"timeout_seconds,omitempty"`
	Capabilities   []string `json:"capabilities,omitempty" yaml:"capabilities,omitempty"`
}

// FineTuneResult is the payload of a completed job: the new model identifier,
// its serving configuration, and the two rendered YAML fragments the operator
// copies into their own configuration by hand.
type FineTuneResult struct {
	FineTunedModel  string        `json:"fine_tuned_model" yaml:"fine_tuned_model"`
	Serving         ServingConfig `json:"serving" yaml:"serving"`
	ModelFragment   string        `json:"model_fragment,omitempty" yaml:"model_fragment,omitempty"`
	VariantFragment string        `json:"variant_fragment,omitempty" yaml:"variant_fragment,omitempty"`
}

// statusEnvelope is the wire form of JobStatus, discriminated by Status.
type statusEnvelope struct {
	Status          JobStatusKind   `json:"status"`
	Message         string          `json:"message,omitempty"`
	EstimatedFinish *time.Time      `json:"estimated_finish,omitempty"`
	TrainedTokens   *int64          `json:"trained_tokens,omitempty"`
	Result          *FineTuneResult `json:"result,omitempty"`
}

// MarshalStatus encodes a JobStatus into its JSON envelope.
func MarshalStatus(s JobStatus) ([]byte, error) {
	var env statusEnvelope
	switch v := s.(type) {
	case IdleStatus:
		env = statusEnvelope{Status: StatusIdle}
	case PendingStatus:
		env = statusEnvelope{
			Status:          StatusPending,
			Message:         v.Message,
			EstimatedFinish: v.EstimatedFinish,
			TrainedTokens:   v.TrainedTokens,
		}
	case CompletedStatus:
		result := v.Result
		env = statusEnvelope{Status: StatusCompleted, Result: &result}
	case FailedStatus:
		env = statusEnvelope{Status: StatusFailed, Message: v.Message}
	default:
		return nil, fmt.Errorf("unknown status type %T", s)
	}
	return json.Marshal(env)
}

// UnmarshalStatus decodes a JSON envelope into the matching JobStatus variant.
func UnmarshalStatus(data []byte) (JobStatus, error) {
	var env statusEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode status envelope: %w", err)
	}

	switch env.Status {
	case StatusIdle:
		return IdleStatus{}, nil
	case StatusPending:
		return PendingStatus{
			Message:         env.Message,
			EstimatedFinish: env.EstimatedFinish,
			TrainedTokens:   env.TrainedTokens,
		}, nil
	case StatusCompleted:
		if env.Result == nil {
			return nil, fmt.Errorf("completed status without result")
		}
		return CompletedStatus{Result: *env.Result}, nil
	case StatusFailed:
		return FailedStatus{Message: env.Message}, nil
	default:
		return nil, fmt.Errorf("unknown status %q", env.Status)
	}
}
