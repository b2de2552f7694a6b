package conversation

import (
	"strings"

	"github.com/iris-analytics/iris/internal/models"
)

// Relevance selects which agent results back an answer. Pluggable so a
// smarter strategy (embedding similarity, model-driven routing) can slot
// in later.
type Relevance interface {
	Select(question string, results []*models.AgentResult) []*models.AgentResult
}

// KeywordRelevance routes questions to result kinds by keyword. Crude but
// predictable, and it keeps the reasoning context small.
type KeywordRelevance struct{}

var keywordKinds = []struct {
	words []string
	kind  models.AgentKind
}{
	{[]string{"anomal", "outlier", "spike", "unusual"}, models.KindAnomaly},
	{[]string{"forecast", "trend", "predict", "future", "next"}, models.KindForecast},
	{[]string{"why", "cause", "reason", "driver"}, models.KindRootCause},
	{[]string{"recommend", "action", "should", "fix"}, models.KindRecommendation},
}

func (KeywordRelevance) Select(question string, results []*models.AgentResult) []*models.AgentResult {
	q := strings.ToLower(question)

	wanted := make(map[models.AgentKind]bool)
	for _, entry := range keywordKinds {
		for _, w := range entry.words {
			if strings.Contains(q, w) {
				wanted[entry.kind] = true
				break
			}
		}
	}
	if len(wanted) == 0 {
		wanted[models.KindInsight] = true
		wanted[models.KindProfile] = true
	}

	var selected []*models.AgentResult
	for _, r := range results {
		if r.Status == models.ResultSucceeded && wanted[r.Kind] {
			selected = append(selected, r)
		}
	}
	if len(selected) > 0 {
		return selected
	}

	// Nothing matched the routed kinds; fall back to everything that
	// succeeded rather than answering from nothing.
	for _, r := range results {
		if r.Status == models.ResultSucceeded {
			selected = append(selected, r)
		}
	}
	return selected
}
