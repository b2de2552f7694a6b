package models

import "time"

// AnalysisJob is one execution of the analysis pipeline against a dataset.
// At most one non-terminal job exists per dataset at a time; terminal jobs
// are immutable.
type AnalysisJob struct {
	ID          string     `json:"id"`
	DatasetID   string     `json:"dataset_id"`
	Status      JobStatus  `json:"status"`
	Caller      string     `json:"caller,omitempty"` // opaque identity token, audit only
	Error       string     `json:"error,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

// AgentResult is the outcome of one agent invocation within a job.
// Exactly one exists per (job, kind); it is written only by the stage that
// produced it.
type AgentResult struct {
	JobID      string         `json:"job_id"`
	Kind       AgentKind      `json:"kind"`
	Status     ResultStatus   `json:"status"`
	Payload    map[string]any `json:"payload,omitempty"`
	ErrorKind  ErrorKind      `json:"error_kind,omitempty"`
	Error      string         `json:"error,omitempty"`
	ComputedAt time.Time      `json:"computed_at"`
}

// StageSummary is the per-stage view returned by job status queries.
// Failed stages are always reported, never dropped.
type StageSummary struct {
	Kind      AgentKind    `json:"kind"`
	Status    ResultStatus `json:"status"`
	ErrorKind ErrorKind    `json:"error_kind,omitempty"`
	Error     string       `json:"error,omitempty"`
}

// JobView combines a job with the summary of its stage results.
type JobView struct {
	Job    AnalysisJob    `json:"job"`
	Stages []StageSummary `json:"stages"`
}
