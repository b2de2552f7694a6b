package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/iris-analytics/iris/internal/dataset"
	"github.com/iris-analytics/iris/internal/models"
)

const insightSystemPrompt = `You are an analytics insight writer. Summarize the key findings from the
agent results below. Use ONLY the provided results; do not invent numbers.
Return a short summary paragraph, then one finding per line prefixed with "- ".
Reference which agent produced each finding (profile, anomaly, forecast, root_cause).`

// insightAgent synthesizes a natural-language summary strictly from the
// upstream agent results. The frame parameter is deliberately unused.
type insightAgent struct {
	gen Generator
}

func (insightAgent) Kind() models.AgentKind { return models.KindInsight }

func (a insightAgent) Run(ctx context.Context, _ *dataset.Frame, upstream map[models.AgentKind]*models.AgentResult) *models.AgentResult {
	contextJSON, cited := upstreamContext(upstream)
	if len(cited) == 0 {
		return Failed(models.KindInsight, models.ErrorKindUpstreamFailure, "no succeeded upstream results to synthesize from")
	}

	userPrompt := fmt.Sprintf("Agent results:\n%s\n\nFindings:", contextJSON)
	text, err := a.gen.GenerateWithSystem(ctx, insightSystemPrompt, userPrompt)
	if err != nil {
		return Failed(models.KindInsight, generationErrorKind(ctx), "insight generation failed: "+err.Error())
	}

	payload := models.InsightPayload{Cited: cited}
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "- ") || strings.HasPrefix(line, "* ") {
			payload.Insights = append(payload.Insights, strings.TrimSpace(line[2:]))
		} else if payload.Summary == "" {
			payload.Summary = line
		} else {
			payload.Summary += " " + line
		}
	}
	if payload.Summary == "" && len(payload.Insights) == 0 {
		payload.Summary = strings.TrimSpace(text)
	}

	return Succeeded(models.KindInsight, payload)
}
