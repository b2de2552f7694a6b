package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/iris-analytics/iris/internal/db"
	"github.com/iris-analytics/iris/internal/models"
)

// Surreal implements Store on top of the SurrealDB client. The at-most-one
// live job guarantee comes from the active_job table: its record ID is the
// dataset ID, so a second claim collides inside the database instead of
// racing in this process.
type Surreal struct {
	client *db.Client
}

// NewSurreal wraps an initialized database client.
func NewSurreal(client *db.Client) *Surreal {
	return &Surreal{client: client}
}

func (s *Surreal) CreateDataset(ctx context.Context, ds *models.Dataset) error {
	return s.client.CreateDataset(ctx, ds)
}

func (s *Surreal) GetDataset(ctx context.Context, id string) (*models.Dataset, error) {
	return s.client.GetDataset(ctx, id)
}

func (s *Surreal) ListDatasets(ctx context.Context) ([]*models.Dataset, error) {
	return s.client.ListDatasets(ctx)
}

func (s *Surreal) CreateJobIfAbsent(ctx context.Context, job *models.AnalysisJob) (string, error) {
	err := s.client.ClaimActiveJob(ctx, job.DatasetID, job.ID)
	if errors.Is(err, models.ErrAlreadyExists) {
		existing, lookupErr := s.client.ActiveJobID(ctx, job.DatasetID)
		if lookupErr != nil {
			// The holder completed between the collision and the lookup.
			// The caller retries; surfacing the collision is still correct.
			return "", fmt.Errorf("live job exists for dataset %s: %w", job.DatasetID, models.ErrAlreadyExists)
		}
		return existing, fmt.Errorf("live job exists for dataset %s: %w", job.DatasetID, models.ErrAlreadyExists)
	}
	if err != nil {
		return "", err
	}

	if err := s.client.CreateJob(ctx, job); err != nil {
		// Roll the claim back so the slot is not leaked.
		_ = s.client.ReleaseActiveJob(ctx, job.DatasetID)
		return "", err
	}
	return "", nil
}

func (s *Surreal) UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error {
	return s.client.UpdateJobStatus(ctx, jobID, status, errMsg)
}

func (s *Surreal) CompleteJob(ctx context.Context, jobID, datasetID string, status models.JobStatus, errMsg string) error {
	if !status.Terminal() {
		return fmt.Errorf("complete job %s: status %q is not terminal", jobID, status)
	}
	if err := s.client.UpdateJobStatus(ctx, jobID, status, errMsg); err != nil {
		return err
	}
	return s.client.ReleaseActiveJob(ctx, datasetID)
}

func (s *Surreal) GetJob(ctx context.Context, jobID string) (*models.AnalysisJob, error) {
	return s.client.GetJob(ctx, jobID)
}

func (s *Surreal) ListJobs(ctx context.Context) ([]*models.AnalysisJob, error) {
	return s.client.ListJobs(ctx)
}

func (s *Surreal) LatestAnalyzedJob(ctx context.Context, datasetID string) (*models.AnalysisJob, error) {
	job, err := s.client.LatestAnalyzedJob(ctx, datasetID)
	if errors.Is(err, models.ErrNotFound) {
		return nil, fmt.Errorf("dataset %s: %w", datasetID, models.ErrNoAnalysis)
	}
	return job, err
}

func (s *Surreal) PutAgentResult(ctx context.Context, r *models.AgentResult) error {
	return s.client.PutAgentResult(ctx, r)
}

func (s *Surreal) GetAgentResult(ctx context.Context, jobID string, kind models.AgentKind) (*models.AgentResult, error) {
	return s.client.GetAgentResult(ctx, jobID, kind)
}

func (s *Surreal) ListAgentResults(ctx context.Context, jobID string) ([]*models.AgentResult, error) {
	return s.client.ListAgentResults(ctx, jobID)
}

func (s *Surreal) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	return s.client.CreateConversation(ctx, conv)
}

func (s *Surreal) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	return s.client.GetConversation(ctx, id)
}

func (s *Surreal) AppendMessage(ctx context.Context, msg *models.Message) error {
	return s.client.AppendMessage(ctx, msg)
}

func (s *Surreal) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	return s.client.ListMessages(ctx, conversationID)
}
