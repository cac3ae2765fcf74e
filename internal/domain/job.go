package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// JobKind identifies the pipeline a job runs
type JobKind string

const (
	JobKindIngest       JobKind = "ingest"
	JobKindPlanGenerate JobKind = "plan-generate"
)

// JobState is the state of a job. Jobs move PENDING -> STARTED -> SUCCESS|FAILURE
// and never leave a terminal state.
type JobState string

const (
	JobStatePending JobState = "PENDING"
	JobStateStarted JobState = "STARTED"
	JobStateSuccess JobState = "SUCCESS"
	JobStateFailure JobState = "FAILURE"
)

// IsTerminal reports whether no further transition is allowed from s
func (s JobState) IsTerminal() bool {
	return s == JobStateSuccess || s == JobStateFailure
}

// CanTransitionTo reports whether s -> next is a legal transition
func (s JobState) CanTransitionTo(next JobState) bool {
	switch s {
	case JobStatePending:
		return next == JobStateStarted
	case JobStateStarted:
		return next == JobStateSuccess || next == JobStateFailure
	}
	return false
}

// Job is an asynchronously executed unit of pipeline work
type Job struct {
	ID         string
	Kind       JobKind
	State      JobState
	Args       json.RawMessage
	Result     json.RawMessage
	Error      string
	CreatedAt  time.Time
	StartedAt  *time.Time
	FinishedAt *time.Time
}

// NewJob creates a PENDING job
func NewJob(id string, kind JobKind, args json.RawMessage, createdAt time.Time) *Job {
	return &Job{
		ID:        id,
		Kind:      kind,
		State:     JobStatePending,
		Args:      args,
		CreatedAt: createdAt,
	}
}

// IngestArgs are the arguments of an ingest job
type IngestArgs struct {
	DocumentID  string `json:"document_id"`
	BlobKey     string `json:"blob_key"`
	ContentType string `json:"content_type"`
	Filename    string `json:"filename"`
}

// PlanGenerateArgs are the arguments of a plan-generate job
type PlanGenerateArgs struct {
	ProjectID string `json:"project_id"`
}

// IngestResult is the result payload of a successful ingest job
type IngestResult struct {
	DocumentID string         `json:"document_id"`
	Chunks     int            `json:"chunks"`
	Status     DocumentStatus `json:"status"`
}

// PlanGenerateResult is the result payload of a successful plan-generate job.
// Plan is the stored plan object, verbatim.
type PlanGenerateResult struct {
	ProjectID      string          `json:"project_id"`
	PlanID         string          `json:"plan_id"`
	Plan           json.RawMessage `json:"plan"`
	Tests          int             `json:"tests"`
	UnknownSources int             `json:"unknown_sources"`
}

// JobSnapshot is the polling view of a job. Error is set only on FAILURE,
// Result only on SUCCESS.
type JobSnapshot struct {
	JobID  string          `json:"job_id"`
	Kind   JobKind         `json:"kind"`
	State  JobState        `json:"state"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// Snapshot builds the polling view of j
func (j *Job) Snapshot() JobSnapshot {
	snap := JobSnapshot{
		JobID: j.ID,
		Kind:  j.Kind,
		State: j.State,
	}
	switch j.State {
	case JobStateFailure:
		snap.Error = j.Error
	case JobStateSuccess:
		snap.Result = j.Result
	}
	return snap
}

// ValidateJob checks a job before it is stored or after it is read back.
func ValidateJob(j *Job) error {
	switch {
	case j == nil:
		return ErrMissingRequiredField.Wrap(errors.New("job"))
	case j.ID == "":
		return ErrMissingRequiredField.Wrap(errors.New("job id"))
	case !IsValidJobKind(j.Kind):
		return ErrInvalidJobKind.Wrap(fmt.Errorf("%q", j.Kind))
	case !IsValidJobState(j.State):
		return ErrInvalidJobState.Wrap(fmt.Errorf("%q", j.State))
	}
	return nil
}

// IsValidJobKind checks if a JobKind is valid
func IsValidJobKind(k JobKind) bool {
	switch k {
	case JobKindIngest, JobKindPlanGenerate:
		return true
	}
	return false
}

// IsValidJobState checks if a JobState is valid
func IsValidJobState(s JobState) bool {
	switch s {
	case JobStatePending, JobStateStarted, JobStateSuccess, JobStateFailure:
		return true
	}
	return false
}
