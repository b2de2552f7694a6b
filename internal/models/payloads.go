package models

import (
	"encoding/json"
	"fmt"
)

// Agent payloads are persisted as flexible objects, so every payload type
// round-trips through JSON. ToPayload/DecodePayload keep that conversion in
// one place.

// ColumnProfile holds descriptive statistics for one column.
type ColumnProfile struct {
	Name     string     `json:"name"`
	Type     ColumnType `json:"type"`
	Count    int        `json:"count"`
	Distinct int        `json:"distinct"`
	Mean     float64    `json:"mean,omitempty"`
	StdDev   float64    `json:"std_dev,omitempty"`
	Min      float64    `json:"min,omitempty"`
	Max      float64    `json:"max,omitempty"`
}

// ProfilePayload is the output of the profiling stage.
type ProfilePayload struct {
	RowCount int             `json:"row_count"`
	Empty    bool            `json:"empty"`
	Columns  []ColumnProfile `json:"columns"`
}

// FlaggedRow is one row the anomaly detector marked as anomalous.
type FlaggedRow struct {
	Index  int     `json:"index"`
	Score  float64 `json:"score"`
	Column string  `json:"column"` // column that drove the score
	Value  float64 `json:"value"`
}

// AnomalyPayload is the output of the anomaly detection stage.
type AnomalyPayload struct {
	Threshold float64      `json:"threshold"`
	RowCount  int          `json:"row_count"`
	Flagged   []FlaggedRow `json:"flagged"`
}

// ForecastPoint is one step of a point forecast with its uncertainty band.
type ForecastPoint struct {
	Step  int     `json:"step"`
	Value float64 `json:"value"`
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// ForecastPayload is the output of the forecasting stage.
type ForecastPayload struct {
	Column  string          `json:"column"`
	Horizon int             `json:"horizon"`
	Points  []ForecastPoint `json:"points"`
}

// Factor is one candidate contributing factor ranked by the root-cause stage.
type Factor struct {
	Column       string  `json:"column"`
	Score        float64 `json:"score"`
	Correlation  float64 `json:"correlation"`
	Contribution float64 `json:"contribution"`
}

// RootCausePayload is the output of the root-cause analysis stage.
type RootCausePayload struct {
	Factors []Factor `json:"factors"`
}

// InsightPayload is the output of the insight synthesis stage.
type InsightPayload struct {
	Summary  string      `json:"summary"`
	Insights []string    `json:"insights"`
	Cited    []AgentKind `json:"cited"`
}

// RecommendedAction is one prioritized action.
type RecommendedAction struct {
	Priority int    `json:"priority"`
	Action   string `json:"action"`
}

// RecommendationPayload is the output of the recommendation stage.
type RecommendationPayload struct {
	Actions []RecommendedAction `json:"actions"`
	Cited   []AgentKind         `json:"cited"`
}

// ToPayload converts a typed payload into its persisted map form.
func ToPayload(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"marshal_error": err.Error()}
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return map[string]any{"unmarshal_error": err.Error()}
	}
	return m
}

// DecodePayload converts a persisted payload map back into a typed payload.
func DecodePayload(m map[string]any, out any) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode payload: %w", err)
	}
	return nil
}
