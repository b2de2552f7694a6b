package agent

import (
	"encoding/json"
	"sort"

	"github.com/iris-analytics/iris/internal/models"
)

// upstreamContext serializes the succeeded upstream results into the JSON
// context handed to a reasoning agent, and reports which kinds went in.
// The reasoning agents see ONLY this context, never the raw dataset: every
// claim they make must be attributable to a recorded upstream result.
func upstreamContext(upstream map[models.AgentKind]*models.AgentResult) (string, []models.AgentKind) {
	kinds := make([]models.AgentKind, 0, len(upstream))
	for kind, r := range upstream {
		if r != nil && r.Status == models.ResultSucceeded {
			kinds = append(kinds, kind)
		}
	}
	sort.Slice(kinds, func(i, j int) bool { return kinds[i] < kinds[j] })

	payloads := make(map[models.AgentKind]map[string]any, len(kinds))
	for _, kind := range kinds {
		payloads[kind] = upstream[kind].Payload
	}

	data, err := json.MarshalIndent(payloads, "", "  ")
	if err != nil {
		return "{}", kinds
	}
	return string(data), kinds
}

// resultsContext serializes a flat result list the same way, for the
// conversational query path.
func resultsContext(results []*models.AgentResult) (string, []models.AgentKind) {
	byKind := make(map[models.AgentKind]*models.AgentResult, len(results))
	for _, r := range results {
		byKind[r.Kind] = r
	}
	return upstreamContext(byKind)
}
