package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/iris-analytics/iris/internal/models"
)

// Memory is an in-process Store used by tests and by pipeline concurrency
// checks. It mirrors the Surreal implementation's semantics, including the
// atomic live-job claim.
type Memory struct {
	mu            sync.Mutex
	datasets      map[string]*models.Dataset
	jobs          map[string]*models.AnalysisJob
	active        map[string]string // datasetID -> live job ID
	results       map[string]map[models.AgentKind]*models.AgentResult
	conversations map[string]*models.Conversation
	messages      map[string][]*models.Message
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		datasets:      make(map[string]*models.Dataset),
		jobs:          make(map[string]*models.AnalysisJob),
		active:        make(map[string]string),
		results:       make(map[string]map[models.AgentKind]*models.AgentResult),
		conversations: make(map[string]*models.Conversation),
		messages:      make(map[string][]*models.Message),
	}
}

func (m *Memory) CreateDataset(_ context.Context, ds *models.Dataset) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.datasets[ds.ID]; ok {
		return fmt.Errorf("dataset %s: %w", ds.ID, models.ErrAlreadyExists)
	}
	cp := *ds
	m.datasets[ds.ID] = &cp
	return nil
}

func (m *Memory) GetDataset(_ context.Context, id string) (*models.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ds, ok := m.datasets[id]
	if !ok {
		return nil, fmt.Errorf("dataset %s: %w", id, models.ErrNotFound)
	}
	cp := *ds
	return &cp, nil
}

func (m *Memory) ListDatasets(_ context.Context) ([]*models.Dataset, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.Dataset, 0, len(m.datasets))
	for _, ds := range m.datasets {
		cp := *ds
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) CreateJobIfAbsent(_ context.Context, job *models.AnalysisJob) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if existing, ok := m.active[job.DatasetID]; ok {
		return existing, fmt.Errorf("live job exists for dataset %s: %w", job.DatasetID, models.ErrAlreadyExists)
	}
	m.active[job.DatasetID] = job.ID
	cp := *job
	m.jobs[job.ID] = &cp
	return "", nil
}

func (m *Memory) UpdateJobStatus(_ context.Context, jobID string, status models.JobStatus, errMsg string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateJobLocked(jobID, status, errMsg)
}

func (m *Memory) updateJobLocked(jobID string, status models.JobStatus, errMsg string) error {
	job, ok := m.jobs[jobID]
	if !ok {
		return fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
	}
	job.Status = status
	job.Error = errMsg
	if status.Terminal() {
		now := time.Now()
		job.CompletedAt = &now
	}
	return nil
}

func (m *Memory) CompleteJob(_ context.Context, jobID, datasetID string, status models.JobStatus, errMsg string) error {
	if !status.Terminal() {
		return fmt.Errorf("complete job %s: status %q is not terminal", jobID, status)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.updateJobLocked(jobID, status, errMsg); err != nil {
		return err
	}
	if m.active[datasetID] == jobID {
		delete(m.active, datasetID)
	}
	return nil
}

func (m *Memory) GetJob(_ context.Context, jobID string) (*models.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[jobID]
	if !ok {
		return nil, fmt.Errorf("job %s: %w", jobID, models.ErrNotFound)
	}
	cp := *job
	return &cp, nil
}

func (m *Memory) ListJobs(_ context.Context) ([]*models.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*models.AnalysisJob, 0, len(m.jobs))
	for _, job := range m.jobs {
		cp := *job
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (m *Memory) LatestAnalyzedJob(_ context.Context, datasetID string) (*models.AnalysisJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.AnalysisJob
	for _, job := range m.jobs {
		if job.DatasetID != datasetID {
			continue
		}
		if job.Status != models.JobSucceeded && job.Status != models.JobPartial {
			continue
		}
		if latest == nil || job.CreatedAt.After(latest.CreatedAt) {
			latest = job
		}
	}
	if latest == nil {
		return nil, fmt.Errorf("dataset %s: %w", datasetID, models.ErrNoAnalysis)
	}
	cp := *latest
	return &cp, nil
}

func (m *Memory) PutAgentResult(_ context.Context, r *models.AgentResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	byKind, ok := m.results[r.JobID]
	if !ok {
		byKind = make(map[models.AgentKind]*models.AgentResult)
		m.results[r.JobID] = byKind
	}
	cp := *r
	byKind[r.Kind] = &cp
	return nil
}

func (m *Memory) GetAgentResult(_ context.Context, jobID string, kind models.AgentKind) (*models.AgentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	r, ok := m.results[jobID][kind]
	if !ok {
		return nil, fmt.Errorf("result %s/%s: %w", jobID, kind, models.ErrNotFound)
	}
	cp := *r
	return &cp, nil
}

func (m *Memory) ListAgentResults(_ context.Context, jobID string) ([]*models.AgentResult, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*models.AgentResult
	for _, kind := range models.PipelineKinds() {
		if r, ok := m.results[jobID][kind]; ok {
			cp := *r
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *Memory) CreateConversation(_ context.Context, conv *models.Conversation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.conversations[conv.ID]; ok {
		return fmt.Errorf("conversation %s: %w", conv.ID, models.ErrAlreadyExists)
	}
	cp := *conv
	m.conversations[conv.ID] = &cp
	return nil
}

func (m *Memory) GetConversation(_ context.Context, id string) (*models.Conversation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[id]
	if !ok {
		return nil, fmt.Errorf("conversation %s: %w", id, models.ErrNotFound)
	}
	cp := *conv
	return &cp, nil
}

func (m *Memory) AppendMessage(_ context.Context, msg *models.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	conv, ok := m.conversations[msg.ConversationID]
	if !ok {
		return fmt.Errorf("conversation %s: %w", msg.ConversationID, models.ErrNotFound)
	}
	cp := *msg
	m.messages[msg.ConversationID] = append(m.messages[msg.ConversationID], &cp)
	conv.UpdatedAt = time.Now()
	return nil
}

func (m *Memory) ListMessages(_ context.Context, conversationID string) ([]*models.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	msgs := m.messages[conversationID]
	out := make([]*models.Message, len(msgs))
	for i, msg := range msgs {
		cp := *msg
		out[i] = &cp
	}
	return out, nil
}
