// Package conversation implements dataset-scoped Q&A sessions grounded in
// stored analysis results.
package conversation

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/iris-analytics/iris/internal/agent"
	"github.com/iris-analytics/iris/internal/models"
	"github.com/iris-analytics/iris/internal/store"
)

// Answer is one assistant reply together with its provenance.
type Answer struct {
	ConversationID string             `json:"conversation_id"`
	Text           string             `json:"text"`
	Citations      []models.AgentKind `json:"citations,omitempty"`
	JobID          string             `json:"job_id"`
}

// Engine answers questions about analyzed datasets. Answers draw only on
// the latest terminal job's recorded results, never on raw data, so every
// claim traces back to a stored agent result.
type Engine struct {
	store     store.Store
	manager   *agent.Manager
	relevance Relevance
	logger    *slog.Logger
}

// NewEngine creates a conversation engine with keyword relevance routing.
func NewEngine(st store.Store, manager *agent.Manager, logger *slog.Logger) *Engine {
	return &Engine{
		store:     st,
		manager:   manager,
		relevance: KeywordRelevance{},
		logger:    logger,
	}
}

// SetRelevance swaps the result selection strategy.
func (e *Engine) SetRelevance(r Relevance) {
	e.relevance = r
}

// Ask answers a question about a dataset. An empty sessionID starts a new
// conversation; a non-empty one resumes it and must belong to the same
// dataset. Both sides of the exchange are persisted before returning.
func (e *Engine) Ask(ctx context.Context, sessionID, datasetID, question, caller string) (*Answer, error) {
	question = strings.TrimSpace(question)
	if question == "" {
		return nil, fmt.Errorf("ask: empty question")
	}
	if _, err := e.store.GetDataset(ctx, datasetID); err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	conv, err := e.resolveSession(ctx, sessionID, datasetID, caller)
	if err != nil {
		return nil, err
	}

	job, err := e.store.LatestAnalyzedJob(ctx, datasetID)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	results, err := e.store.ListAgentResults(ctx, job.ID)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}
	selected := e.relevance.Select(question, results)

	history, err := e.store.ListMessages(ctx, conv.ID)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}
	historyVals := make([]models.Message, len(history))
	for i, m := range history {
		historyVals[i] = *m
	}

	query, err := e.manager.Query()
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	text, cited, err := query.Answer(ctx, question, selected, historyVals)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}

	now := time.Now()
	userMsg := &models.Message{
		ID:             newMessageID(),
		ConversationID: conv.ID,
		Role:           "user",
		Content:        question,
		CreatedAt:      now,
	}
	if err := e.store.AppendMessage(ctx, userMsg); err != nil {
		return nil, fmt.Errorf("ask: persist question: %w", err)
	}
	assistantMsg := &models.Message{
		ID:             newMessageID(),
		ConversationID: conv.ID,
		Role:           "assistant",
		Content:        text,
		Citations:      cited,
		CreatedAt:      now,
	}
	if err := e.store.AppendMessage(ctx, assistantMsg); err != nil {
		return nil, fmt.Errorf("ask: persist answer: %w", err)
	}

	e.logger.Info("question answered",
		"conversation", conv.ID, "dataset", datasetID, "job", job.ID,
		"citations", len(cited), "caller", caller)

	return &Answer{
		ConversationID: conv.ID,
		Text:           text,
		Citations:      cited,
		JobID:          job.ID,
	}, nil
}

// History returns the full persisted transcript of a conversation.
func (e *Engine) History(ctx context.Context, sessionID string) ([]*models.Message, error) {
	if _, err := e.store.GetConversation(ctx, sessionID); err != nil {
		return nil, err
	}
	return e.store.ListMessages(ctx, sessionID)
}

func (e *Engine) resolveSession(ctx context.Context, sessionID, datasetID, caller string) (*models.Conversation, error) {
	if sessionID == "" {
		conv := &models.Conversation{
			ID:        newMessageID(),
			DatasetID: datasetID,
			Caller:    caller,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := e.store.CreateConversation(ctx, conv); err != nil {
			return nil, fmt.Errorf("ask: create session: %w", err)
		}
		e.logger.Debug("conversation started", "conversation", conv.ID, "dataset", datasetID)
		return conv, nil
	}

	conv, err := e.store.GetConversation(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("ask: %w", err)
	}
	if conv.DatasetID != datasetID {
		return nil, fmt.Errorf("ask: session %s is bound to dataset %s: %w",
			sessionID, conv.DatasetID, models.ErrSessionMismatch)
	}
	return conv, nil
}

func newMessageID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}
