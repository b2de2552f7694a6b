// Package agent implements the analytical agents and the manager that owns
// their models.
package agent

import (
	"context"
	"time"

	"github.com/iris-analytics/iris/internal/dataset"
	"github.com/iris-analytics/iris/internal/models"
)

// Agent is one pluggable unit of analysis. Run must be pure with respect to
// engine state: it produces exactly one AgentResult and never mutates the
// frame or other agents' results. Failures are encoded in the result, never
// returned as errors, so one agent's failure cannot abort its siblings.
type Agent interface {
	Kind() models.AgentKind
	Run(ctx context.Context, frame *dataset.Frame, upstream map[models.AgentKind]*models.AgentResult) *models.AgentResult
}

// Generator is the reasoning capability the LLM-backed agents consume.
// Implemented by llm.Model; stubbed in tests.
type Generator interface {
	GenerateWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Succeeded builds a successful result with a typed payload.
func Succeeded(kind models.AgentKind, payload any) *models.AgentResult {
	return &models.AgentResult{
		Kind:       kind,
		Status:     models.ResultSucceeded,
		Payload:    models.ToPayload(payload),
		ComputedAt: time.Now(),
	}
}

// Failed builds a failed result carrying an error kind from the taxonomy.
func Failed(kind models.AgentKind, errKind models.ErrorKind, msg string) *models.AgentResult {
	return &models.AgentResult{
		Kind:       kind,
		Status:     models.ResultFailed,
		ErrorKind:  errKind,
		Error:      msg,
		ComputedAt: time.Now(),
	}
}

// Skipped builds a skipped result. Used when the dataset is empty and
// downstream computation would be meaningless, as distinct from failure.
func Skipped(kind models.AgentKind) *models.AgentResult {
	return &models.AgentResult{
		Kind:       kind,
		Status:     models.ResultSkipped,
		ComputedAt: time.Now(),
	}
}
