// Package db provides SurrealDB query functions for analytics records.
package db

import (
	"context"
	"fmt"
	"time"

	"github.com/surrealdb/surrealdb.go"
	surrealmodels "github.com/surrealdb/surrealdb.go/pkg/models"

	"github.com/iris-analytics/iris/internal/models"
)

// RecordIDString safely extracts the string key from a SurrealDB RecordID.
func RecordIDString(id surrealmodels.RecordID) (string, error) {
	s, ok := id.ID.(string)
	if !ok {
		return "", fmt.Errorf("unexpected ID type: %T (expected string)", id.ID)
	}
	return s, nil
}

// Row types mirror the schema; converters map them onto the storage-agnostic
// structs in internal/models.

type datasetRow struct {
	ID       surrealmodels.RecordID `json:"id"`
	Name     string                 `json:"name"`
	Columns  []models.Column        `json:"columns"`
	RowCount int                    `json:"row_count"`
	Path     string                 `json:"path"`
	Created  time.Time              `json:"created"`
}

func (r datasetRow) toDataset() (*models.Dataset, error) {
	id, err := RecordIDString(r.ID)
	if err != nil {
		return nil, err
	}
	return &models.Dataset{
		ID:        id,
		Name:      r.Name,
		Columns:   r.Columns,
		RowCount:  r.RowCount,
		Path:      r.Path,
		CreatedAt: r.Created,
	}, nil
}

type jobRow struct {
	ID        surrealmodels.RecordID `json:"id"`
	DatasetID string                 `json:"dataset_id"`
	Status    string                 `json:"status"`
	Caller    *string                `json:"caller,omitempty"`
	Error     *string                `json:"error,omitempty"`
	Created   time.Time              `json:"created"`
	Completed *time.Time             `json:"completed,omitempty"`
}

func (r jobRow) toJob() (*models.AnalysisJob, error) {
	id, err := RecordIDString(r.ID)
	if err != nil {
		return nil, err
	}
	job := &models.AnalysisJob{
		ID:          id,
		DatasetID:   r.DatasetID,
		Status:      models.JobStatus(r.Status),
		CreatedAt:   r.Created,
		CompletedAt: r.Completed,
	}
	if r.Caller != nil {
		job.Caller = *r.Caller
	}
	if r.Error != nil {
		job.Error = *r.Error
	}
	return job, nil
}

type resultRow struct {
	JobID     string         `json:"job_id"`
	Kind      string         `json:"kind"`
	Status    string         `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
	ErrorKind *string        `json:"error_kind,omitempty"`
	Error     *string        `json:"error,omitempty"`
	Computed  time.Time      `json:"computed"`
}

func (r resultRow) toResult() *models.AgentResult {
	res := &models.AgentResult{
		JobID:      r.JobID,
		Kind:       models.AgentKind(r.Kind),
		Status:     models.ResultStatus(r.Status),
		Payload:    r.Payload,
		ComputedAt: r.Computed,
	}
	if r.ErrorKind != nil {
		res.ErrorKind = models.ErrorKind(*r.ErrorKind)
	}
	if r.Error != nil {
		res.Error = *r.Error
	}
	return res
}

type conversationRow struct {
	ID        surrealmodels.RecordID `json:"id"`
	DatasetID string                 `json:"dataset_id"`
	Caller    *string                `json:"caller,omitempty"`
	Created   time.Time              `json:"created"`
	Updated   time.Time              `json:"updated"`
}

type messageRow struct {
	ID             surrealmodels.RecordID `json:"id"`
	ConversationID string                 `json:"conversation_id"`
	Role           string                 `json:"role"`
	Content        string                 `json:"content"`
	Citations      []string               `json:"citations"`
	Created        time.Time              `json:"created"`
}

// one extracts the single row of the first query result, or models.ErrNotFound.
func one[T any](results *[]surrealdb.QueryResult[[]T]) (*T, error) {
	if results != nil && len(*results) > 0 && len((*results)[0].Result) > 0 {
		return &(*results)[0].Result[0], nil
	}
	return nil, models.ErrNotFound
}

func all[T any](results *[]surrealdb.QueryResult[[]T]) []T {
	if results != nil && len(*results) > 0 {
		return (*results)[0].Result
	}
	return nil
}

// CreateDataset persists a dataset record under its own id.
func (c *Client) CreateDataset(ctx context.Context, ds *models.Dataset) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE type::record("dataset", $id) CONTENT {
			name: $name, columns: $columns, row_count: $row_count, path: $path
		}
	`, map[string]any{
		"id": ds.ID, "name": ds.Name, "columns": ds.Columns,
		"row_count": ds.RowCount, "path": ds.Path,
	})
	return wrapQueryError(err)
}

// GetDataset retrieves a dataset by id.
func (c *Client) GetDataset(ctx context.Context, id string) (*models.Dataset, error) {
	results, err := surrealdb.Query[[]datasetRow](ctx, c.db, `
		SELECT * FROM type::record("dataset", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, wrapQueryError(err)
	}
	row, err := one(results)
	if err != nil {
		return nil, err
	}
	return row.toDataset()
}

// ListDatasets returns all registered datasets, most recent first.
func (c *Client) ListDatasets(ctx context.Context) ([]*models.Dataset, error) {
	results, err := surrealdb.Query[[]datasetRow](ctx, c.db, `
		SELECT * FROM dataset ORDER BY created DESC
	`, nil)
	if err != nil {
		return nil, wrapQueryError(err)
	}
	rows := all(results)
	datasets := make([]*models.Dataset, 0, len(rows))
	for _, row := range rows {
		ds, err := row.toDataset()
		if err != nil {
			return nil, err
		}
		datasets = append(datasets, ds)
	}
	return datasets, nil
}

// ClaimActiveJob atomically claims the per-dataset live-job slot. Returns
// models.ErrAlreadyExists (wrapped) when another non-terminal job holds it.
func (c *Client) ClaimActiveJob(ctx context.Context, datasetID, jobID string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE type::record("active_job", $dataset) CONTENT { job_id: $job }
	`, map[string]any{"dataset": datasetID, "job": jobID})
	return wrapQueryError(err)
}

// ActiveJobID returns the live job id for a dataset, or models.ErrNotFound.
func (c *Client) ActiveJobID(ctx context.Context, datasetID string) (string, error) {
	type activeRow struct {
		JobID string `json:"job_id"`
	}
	results, err := surrealdb.Query[[]activeRow](ctx, c.db, `
		SELECT job_id FROM type::record("active_job", $dataset)
	`, map[string]any{"dataset": datasetID})
	if err != nil {
		return "", wrapQueryError(err)
	}
	row, err := one(results)
	if err != nil {
		return "", err
	}
	return row.JobID, nil
}

// ReleaseActiveJob frees the per-dataset live-job slot.
func (c *Client) ReleaseActiveJob(ctx context.Context, datasetID string) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		DELETE type::record("active_job", $dataset)
	`, map[string]any{"dataset": datasetID})
	return wrapQueryError(err)
}

// CreateJob persists a new analysis job.
func (c *Client) CreateJob(ctx context.Context, job *models.AnalysisJob) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE type::record("analysis_job", $id) CONTENT {
			dataset_id: $dataset, status: $status, caller: $caller
		}
	`, map[string]any{
		"id": job.ID, "dataset": job.DatasetID,
		"status": string(job.Status), "caller": job.Caller,
	})
	return wrapQueryError(err)
}

// UpdateJobStatus transitions a job's status. Terminal transitions set the
// completion timestamp.
func (c *Client) UpdateJobStatus(ctx context.Context, jobID string, status models.JobStatus, errMsg string) error {
	sql := `UPDATE type::record("analysis_job", $id) SET status = $status, error = $error`
	if status.Terminal() {
		sql += `, completed = time::now()`
	}
	var errVal any
	if errMsg != "" {
		errVal = errMsg
	}
	_, err := surrealdb.Query[any](ctx, c.db, sql, map[string]any{
		"id": jobID, "status": string(status), "error": errVal,
	})
	return wrapQueryError(err)
}

// GetJob retrieves an analysis job by id.
func (c *Client) GetJob(ctx context.Context, jobID string) (*models.AnalysisJob, error) {
	results, err := surrealdb.Query[[]jobRow](ctx, c.db, `
		SELECT * FROM type::record("analysis_job", $id)
	`, map[string]any{"id": jobID})
	if err != nil {
		return nil, wrapQueryError(err)
	}
	row, err := one(results)
	if err != nil {
		return nil, err
	}
	return row.toJob()
}

// ListJobs returns all jobs, most recent first.
func (c *Client) ListJobs(ctx context.Context) ([]*models.AnalysisJob, error) {
	results, err := surrealdb.Query[[]jobRow](ctx, c.db, `
		SELECT * FROM analysis_job ORDER BY created DESC
	`, nil)
	if err != nil {
		return nil, wrapQueryError(err)
	}
	rows := all(results)
	jobs := make([]*models.AnalysisJob, 0, len(rows))
	for _, row := range rows {
		job, err := row.toJob()
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// LatestAnalyzedJob returns the most recent succeeded-or-partial job for a
// dataset. Conversational answers may only cite results from this job.
func (c *Client) LatestAnalyzedJob(ctx context.Context, datasetID string) (*models.AnalysisJob, error) {
	results, err := surrealdb.Query[[]jobRow](ctx, c.db, `
		SELECT * FROM analysis_job
		WHERE dataset_id = $dataset AND status IN ["succeeded", "partial"]
		ORDER BY created DESC LIMIT 1
	`, map[string]any{"dataset": datasetID})
	if err != nil {
		return nil, wrapQueryError(err)
	}
	row, err := one(results)
	if err != nil {
		return nil, err
	}
	return row.toJob()
}

// PutAgentResult upserts one stage result. The record id combines job id and
// kind, so distinct stages of one job never clobber each other.
func (c *Client) PutAgentResult(ctx context.Context, r *models.AgentResult) error {
	var errKind, errMsg any
	if r.ErrorKind != "" {
		errKind = string(r.ErrorKind)
	}
	if r.Error != "" {
		errMsg = r.Error
	}
	_, err := surrealdb.Query[any](ctx, c.db, `
		UPSERT type::record("agent_result", $id) CONTENT {
			job_id: $job, kind: $kind, status: $status,
			payload: $payload, error_kind: $error_kind, error: $error
		}
	`, map[string]any{
		"id":         r.JobID + "_" + string(r.Kind),
		"job":        r.JobID,
		"kind":       string(r.Kind),
		"status":     string(r.Status),
		"payload":    r.Payload,
		"error_kind": errKind,
		"error":      errMsg,
	})
	return wrapQueryError(err)
}

// GetAgentResult retrieves one stage result.
func (c *Client) GetAgentResult(ctx context.Context, jobID string, kind models.AgentKind) (*models.AgentResult, error) {
	results, err := surrealdb.Query[[]resultRow](ctx, c.db, `
		SELECT * FROM type::record("agent_result", $id)
	`, map[string]any{"id": jobID + "_" + string(kind)})
	if err != nil {
		return nil, wrapQueryError(err)
	}
	row, err := one(results)
	if err != nil {
		return nil, err
	}
	return row.toResult(), nil
}

// ListAgentResults returns all stage results for a job in canonical order.
func (c *Client) ListAgentResults(ctx context.Context, jobID string) ([]*models.AgentResult, error) {
	results, err := surrealdb.Query[[]resultRow](ctx, c.db, `
		SELECT * FROM agent_result WHERE job_id = $job
	`, map[string]any{"job": jobID})
	if err != nil {
		return nil, wrapQueryError(err)
	}
	rows := all(results)
	byKind := make(map[models.AgentKind]*models.AgentResult, len(rows))
	for _, row := range rows {
		r := row.toResult()
		byKind[r.Kind] = r
	}
	ordered := make([]*models.AgentResult, 0, len(byKind))
	for _, kind := range models.PipelineKinds() {
		if r, ok := byKind[kind]; ok {
			ordered = append(ordered, r)
		}
	}
	return ordered, nil
}

// CreateConversation persists a new conversation session.
func (c *Client) CreateConversation(ctx context.Context, conv *models.Conversation) error {
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE type::record("conversation", $id) CONTENT {
			dataset_id: $dataset, caller: $caller
		}
	`, map[string]any{"id": conv.ID, "dataset": conv.DatasetID, "caller": conv.Caller})
	return wrapQueryError(err)
}

// GetConversation retrieves a conversation by id.
func (c *Client) GetConversation(ctx context.Context, id string) (*models.Conversation, error) {
	results, err := surrealdb.Query[[]conversationRow](ctx, c.db, `
		SELECT * FROM type::record("conversation", $id)
	`, map[string]any{"id": id})
	if err != nil {
		return nil, wrapQueryError(err)
	}
	row, err := one(results)
	if err != nil {
		return nil, err
	}
	recID, err := RecordIDString(row.ID)
	if err != nil {
		return nil, err
	}
	conv := &models.Conversation{
		ID:        recID,
		DatasetID: row.DatasetID,
		CreatedAt: row.Created,
		UpdatedAt: row.Updated,
	}
	if row.Caller != nil {
		conv.Caller = *row.Caller
	}
	return conv, nil
}

// AppendMessage appends one turn to a conversation and touches its
// updated timestamp. History is append-only.
func (c *Client) AppendMessage(ctx context.Context, msg *models.Message) error {
	citations := make([]string, len(msg.Citations))
	for i, k := range msg.Citations {
		citations[i] = string(k)
	}
	_, err := surrealdb.Query[any](ctx, c.db, `
		CREATE type::record("message", $id) CONTENT {
			conversation_id: $conversation, role: $role,
			content: $content, citations: $citations
		};
		UPDATE type::record("conversation", $conversation) SET updated = time::now();
	`, map[string]any{
		"id":           msg.ID,
		"conversation": msg.ConversationID,
		"role":         msg.Role,
		"content":      msg.Content,
		"citations":    citations,
	})
	return wrapQueryError(err)
}

// ListMessages returns a conversation's history, oldest first.
func (c *Client) ListMessages(ctx context.Context, conversationID string) ([]*models.Message, error) {
	results, err := surrealdb.Query[[]messageRow](ctx, c.db, `
		SELECT * FROM message WHERE conversation_id = $conversation ORDER BY created ASC
	`, map[string]any{"conversation": conversationID})
	if err != nil {
		return nil, wrapQueryError(err)
	}
	rows := all(results)
	messages := make([]*models.Message, 0, len(rows))
	for _, row := range rows {
		recID, err := RecordIDString(row.ID)
		if err != nil {
			return nil, err
		}
		citations := make([]models.AgentKind, len(row.Citations))
		for i, s := range row.Citations {
			citations[i] = models.AgentKind(s)
		}
		messages = append(messages, &models.Message{
			ID:             recID,
			ConversationID: row.ConversationID,
			Role:           row.Role,
			Content:        row.Content,
			Citations:      citations,
			CreatedAt:      row.Created,
		})
	}
	return messages, nil
}
