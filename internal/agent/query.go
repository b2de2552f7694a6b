package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/iris-analytics/iris/internal/models"
)

const querySystemPrompt = `You are an analytics assistant answering questions about a dataset.
Answer ONLY from the agent results below. If the results do not contain
the information needed, say so instead of guessing. Keep answers concise
and cite concrete numbers from the results where possible.`

// maxHistoryTurns bounds how much conversation history is replayed into
// the prompt. Older turns remain persisted but are not resent.
const maxHistoryTurns = 12

// QueryAgent answers ad-hoc questions against stored analysis results. It
// participates in conversations rather than pipelines, so it does not
// implement the Agent interface.
type QueryAgent struct {
	gen Generator
}

// NewQueryAgent wires the conversational agent to a reasoning model.
func NewQueryAgent(gen Generator) *QueryAgent {
	return &QueryAgent{gen: gen}
}

func (QueryAgent) Kind() models.AgentKind { return models.KindQuery }

// Answer produces a grounded reply to question given the relevant agent
// results and the prior turns of the conversation. The returned citations
// name the result kinds the answer could draw on.
func (a *QueryAgent) Answer(ctx context.Context, question string, results []*models.AgentResult, history []models.Message) (string, []models.AgentKind, error) {
	contextJSON, cited := resultsContext(results)
	if len(cited) == 0 {
		return "", nil, fmt.Errorf("answer question: %w", models.ErrNoAnalysis)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Agent results:\n%s\n\n", contextJSON)
	if start := len(history) - maxHistoryTurns; start > 0 {
		history = history[start:]
	}
	if len(history) > 0 {
		b.WriteString("Conversation so far:\n")
		for _, m := range history {
			fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
		}
		b.WriteString("\n")
	}
	fmt.Fprintf(&b, "Question: %s\nAnswer:", question)

	text, err := a.gen.GenerateWithSystem(ctx, querySystemPrompt, b.String())
	if err != nil {
		if kind := generationErrorKind(ctx); kind == models.ErrorKindTimeout {
			return "", nil, fmt.Errorf("answer question: timed out: %w", err)
		}
		return "", nil, fmt.Errorf("answer question: %w", err)
	}

	return strings.TrimSpace(text), cited, nil
}
