package agent

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/iris-analytics/iris/internal/dataset"
	"github.com/iris-analytics/iris/internal/models"
)

const recommendationSystemPrompt = `You are an analytics advisor. Based ONLY on the agent results below,
propose prioritized actions. Output one action per line in the form
"N. action", highest priority first. Do not propose actions the results
cannot justify.`

// generationErrorKind distinguishes a timed-out reasoning call from any
// other generation failure.
func generationErrorKind(ctx context.Context) models.ErrorKind {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return models.ErrorKindTimeout
	}
	return ""
}

// recommendationAgent proposes prioritized actions strictly from the
// upstream agent results. The frame parameter is deliberately unused.
type recommendationAgent struct {
	gen Generator
}

func (recommendationAgent) Kind() models.AgentKind { return models.KindRecommendation }

func (a recommendationAgent) Run(ctx context.Context, _ *dataset.Frame, upstream map[models.AgentKind]*models.AgentResult) *models.AgentResult {
	contextJSON, cited := upstreamContext(upstream)
	if len(cited) == 0 {
		return Failed(models.KindRecommendation, models.ErrorKindUpstreamFailure, "no succeeded upstream results to recommend from")
	}

	userPrompt := fmt.Sprintf("Agent results:\n%s\n\nActions:", contextJSON)
	text, err := a.gen.GenerateWithSystem(ctx, recommendationSystemPrompt, userPrompt)
	if err != nil {
		return Failed(models.KindRecommendation, generationErrorKind(ctx), "recommendation generation failed: "+err.Error())
	}

	payload := models.RecommendationPayload{Cited: cited}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		priority := len(payload.Actions) + 1
		action := line
		if dot := strings.Index(line, ". "); dot > 0 && dot <= 3 {
			if n, err := strconv.Atoi(line[:dot]); err == nil {
				priority = n
				action = strings.TrimSpace(line[dot+2:])
			}
		}
		payload.Actions = append(payload.Actions, models.RecommendedAction{
			Priority: priority,
			Action:   action,
		})
	}

	return Succeeded(models.KindRecommendation, payload)
}
