// Package models defines data structures shared across the IRIS analytics engine.
package models

// AgentKind identifies one analytical agent in the pipeline.
type AgentKind string

const (
	KindProfile        AgentKind = "profile"
	KindAnomaly        AgentKind = "anomaly"
	KindForecast       AgentKind = "forecast"
	KindRootCause      AgentKind = "root_cause"
	KindInsight        AgentKind = "insight"
	KindRecommendation AgentKind = "recommendation"
	KindQuery          AgentKind = "query"
)

// PipelineKinds returns the agent kinds that participate in the analysis
// pipeline, in canonical order. KindQuery is conversational only and never
// scheduled as a stage.
func PipelineKinds() []AgentKind {
	return []AgentKind{
		KindProfile,
		KindAnomaly,
		KindForecast,
		KindRootCause,
		KindInsight,
		KindRecommendation,
	}
}

// JobStatus represents the state of an analysis job.
type JobStatus string

const (
	JobQueued    JobStatus = "queued"
	JobRunning   JobStatus = "running"
	JobSucceeded JobStatus = "succeeded"
	JobPartial   JobStatus = "partial"
	JobFailed    JobStatus = "failed"
	JobCancelled JobStatus = "cancelled"
)

// Terminal reports whether the status is final. Terminal jobs are immutable.
func (s JobStatus) Terminal() bool {
	switch s {
	case JobSucceeded, JobPartial, JobFailed, JobCancelled:
		return true
	}
	return false
}

// ResultStatus represents the outcome of a single agent invocation.
type ResultStatus string

const (
	ResultSucceeded ResultStatus = "succeeded"
	ResultFailed    ResultStatus = "failed"
	ResultSkipped   ResultStatus = "skipped"
)
