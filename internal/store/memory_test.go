package store

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iris-analytics/iris/internal/models"
)

func newJob(id, datasetID string) *models.AnalysisJob {
	return &models.AnalysisJob{
		ID:        id,
		DatasetID: datasetID,
		Status:    models.JobQueued,
		CreatedAt: time.Now(),
	}
}

func TestMemoryCreateJobIfAbsent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	existing, err := m.CreateJobIfAbsent(ctx, newJob("job1", "ds1"))
	require.NoError(t, err)
	assert.Empty(t, existing)

	existing, err = m.CreateJobIfAbsent(ctx, newJob("job2", "ds1"))
	require.ErrorIs(t, err, models.ErrAlreadyExists)
	assert.Equal(t, "job1", existing)

	// A different dataset gets its own slot.
	_, err = m.CreateJobIfAbsent(ctx, newJob("job3", "ds2"))
	require.NoError(t, err)

	// Completing the holder frees the slot.
	require.NoError(t, m.CompleteJob(ctx, "job1", "ds1", models.JobSucceeded, ""))
	_, err = m.CreateJobIfAbsent(ctx, newJob("job4", "ds1"))
	require.NoError(t, err)
}

func TestMemoryCreateJobIfAbsentConcurrent(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	const workers = 32
	var wg sync.WaitGroup
	created := make(chan string, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := fmt.Sprintf("job%d", i)
			if _, err := m.CreateJobIfAbsent(ctx, newJob(id, "ds1")); err == nil {
				created <- id
			}
		}(i)
	}
	wg.Wait()
	close(created)

	var winners []string
	for id := range created {
		winners = append(winners, id)
	}
	require.Len(t, winners, 1, "exactly one submission must win the slot")

	// Every loser was told the winner's ID.
	existing, err := m.CreateJobIfAbsent(ctx, newJob("late", "ds1"))
	require.ErrorIs(t, err, models.ErrAlreadyExists)
	assert.Equal(t, winners[0], existing)
}

func TestMemoryCompleteJobRequiresTerminalStatus(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.CreateJobIfAbsent(ctx, newJob("job1", "ds1"))
	require.NoError(t, err)

	err = m.CompleteJob(ctx, "job1", "ds1", models.JobRunning, "")
	require.Error(t, err)

	require.NoError(t, m.CompleteJob(ctx, "job1", "ds1", models.JobFailed, "boom"))
	job, err := m.GetJob(ctx, "job1")
	require.NoError(t, err)
	assert.Equal(t, models.JobFailed, job.Status)
	assert.Equal(t, "boom", job.Error)
	require.NotNil(t, job.CompletedAt)
}

func TestMemoryLatestAnalyzedJob(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.LatestAnalyzedJob(ctx, "ds1")
	require.ErrorIs(t, err, models.ErrNoAnalysis)

	first := newJob("job1", "ds1")
	first.CreatedAt = time.Now().Add(-time.Hour)
	_, err = m.CreateJobIfAbsent(ctx, first)
	require.NoError(t, err)
	require.NoError(t, m.CompleteJob(ctx, "job1", "ds1", models.JobPartial, ""))

	second := newJob("job2", "ds1")
	_, err = m.CreateJobIfAbsent(ctx, second)
	require.NoError(t, err)

	// A running job never counts as analyzed.
	latest, err := m.LatestAnalyzedJob(ctx, "ds1")
	require.NoError(t, err)
	assert.Equal(t, "job1", latest.ID)

	require.NoError(t, m.CompleteJob(ctx, "job2", "ds1", models.JobSucceeded, ""))
	latest, err = m.LatestAnalyzedJob(ctx, "ds1")
	require.NoError(t, err)
	assert.Equal(t, "job2", latest.ID)

	// Failed jobs do not surface either.
	third := newJob("job3", "ds1")
	_, err = m.CreateJobIfAbsent(ctx, third)
	require.NoError(t, err)
	require.NoError(t, m.CompleteJob(ctx, "job3", "ds1", models.JobFailed, "boom"))
	latest, err = m.LatestAnalyzedJob(ctx, "ds1")
	require.NoError(t, err)
	assert.Equal(t, "job2", latest.ID)
}

func TestMemoryAgentResultsCanonicalOrder(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	for _, kind := range []models.AgentKind{models.KindInsight, models.KindProfile, models.KindAnomaly} {
		require.NoError(t, m.PutAgentResult(ctx, &models.AgentResult{
			JobID:  "job1",
			Kind:   kind,
			Status: models.ResultSucceeded,
		}))
	}

	results, err := m.ListAgentResults(ctx, "job1")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, models.KindProfile, results[0].Kind)
	assert.Equal(t, models.KindAnomaly, results[1].Kind)
	assert.Equal(t, models.KindInsight, results[2].Kind)

	// Overwriting a kind keeps one result per (job, kind).
	require.NoError(t, m.PutAgentResult(ctx, &models.AgentResult{
		JobID:  "job1",
		Kind:   models.KindProfile,
		Status: models.ResultFailed,
	}))
	results, err = m.ListAgentResults(ctx, "job1")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, models.ResultFailed, results[0].Status)
}

func TestMemoryConversations(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	err := m.AppendMessage(ctx, &models.Message{ConversationID: "missing", Role: "user"})
	require.ErrorIs(t, err, models.ErrNotFound)

	conv := &models.Conversation{ID: "conv1", DatasetID: "ds1", CreatedAt: time.Now()}
	require.NoError(t, m.CreateConversation(ctx, conv))
	require.ErrorIs(t, m.CreateConversation(ctx, conv), models.ErrAlreadyExists)

	require.NoError(t, m.AppendMessage(ctx, &models.Message{ConversationID: "conv1", Role: "user", Content: "hi"}))
	require.NoError(t, m.AppendMessage(ctx, &models.Message{ConversationID: "conv1", Role: "assistant", Content: "hello"}))

	msgs, err := m.ListMessages(ctx, "conv1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
	assert.Equal(t, "assistant", msgs[1].Role)
}
