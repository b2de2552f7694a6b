package models

import "errors"

// ErrorKind classifies a failure so it can travel as data on jobs and
// agent results rather than as control flow.
type ErrorKind string

const (
	// ErrorKindModelUnavailable means the backing model failed to load at
	// startup. Degraded, never fatal to the process.
	ErrorKindModelUnavailable ErrorKind = "model_unavailable"

	// ErrorKindUpstreamFailure means a prerequisite stage failed, so this
	// stage was recorded as failed without running.
	ErrorKindUpstreamFailure ErrorKind = "upstream_failure"

	// ErrorKindTimeout means the agent ran past its deadline.
	ErrorKindTimeout ErrorKind = "timeout"

	// ErrorKindDatasetValidation means the dataset was malformed, too short,
	// or otherwise incompatible with the agent.
	ErrorKindDatasetValidation ErrorKind = "dataset_validation"

	// ErrorKindNoAnalysis means a question was asked against a dataset that
	// has no terminal analysis job.
	ErrorKindNoAnalysis ErrorKind = "no_analysis_available"

	// ErrorKindStorage means the persistence collaborator failed.
	ErrorKindStorage ErrorKind = "storage_error"
)

// Sentinel errors for engine operations. Use errors.Is() in calling code.
var (
	// ErrNotFound indicates the requested record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists indicates a create collided with an existing record,
	// e.g. a second live analysis job for the same dataset.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNoAnalysis indicates no terminal analysis job exists for a dataset.
	ErrNoAnalysis = errors.New("no analysis available for dataset")

	// ErrModelUnavailable indicates the model backing an agent never loaded.
	ErrModelUnavailable = errors.New("model unavailable")

	// ErrStorage wraps persistence collaborator failures.
	ErrStorage = errors.New("storage error")

	// ErrSessionMismatch indicates a conversation session was used with a
	// dataset other than the one it was created for.
	ErrSessionMismatch = errors.New("session belongs to a different dataset")
)
