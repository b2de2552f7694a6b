// Package store persists datasets, jobs, agent results, and conversations.
// The Surreal implementation backs the running engine; the Memory
// implementation backs tests that exercise concurrency without a database.
package store

import (
	"context"

	"github.com/iris-analytics/iris/internal/models"
)

// Store is the persistence collaborator for the analytics engine. Every
// failure it returns wraps either a sentinel from models or the underlying
// storage error.
type Store interface {
	CreateDataset(ctx context.Context, ds *models.Dataset) error
	GetDataset(ctx context.Context, id string) (*models.Dataset, error)
	ListDatasets(ctx context.Context) ([]*models.Dataset, error)

	// CreateJobIfAbsent atomically claims the dataset's single live-job
	// slot and creates the job. When another non-terminal job already
	// holds the slot it returns that job's ID and models.ErrAlreadyExists.
	CreateJobIfAbsent(ctx context.Context, job *models.AnalysisJob) (string, error)

	// UpdateJobStatus transitions a job. Terminal statuses also record the
	// completion timestamp.
	UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error

	// CompleteJob transitions a job to a terminal status and releases the
	// dataset's live-job slot so a new job can be submitted.
	CompleteJob(ctx context.Context, jobID, datasetID string, status models.JobStatus, errMsg string) error

	GetJob(ctx context.Context, jobID string) (*models.AnalysisJob, error)
	ListJobs(ctx context.Context) ([]*models.AnalysisJob, error)

	// LatestAnalyzedJob returns the most recent job for the dataset that
	// finished with results (succeeded or partial).
	LatestAnalyzedJob(ctx context.Context, datasetID string) (*models.AnalysisJob, error)

	PutAgentResult(ctx context.Context, r *models.AgentResult) error
	GetAgentResult(ctx context.Context, jobID string, kind models.AgentKind) (*models.AgentResult, error)
	ListAgentResults(ctx context.Context, jobID string) ([]*models.AgentResult, error)

	CreateConversation(ctx context.Context, conv *models.Conversation) error
	GetConversation(ctx context.Context, id string) (*models.Conversation, error)
	AppendMessage(ctx context.Context, msg *models.Message) error
	ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error)
}
