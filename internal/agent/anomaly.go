package agent

import (
	"context"
	"fmt"
	"math"

	"github.com/iris-analytics/iris/internal/dataset"
	"github.com/iris-analytics/iris/internal/models"
)

// zReference controls how a robust z-score maps onto the [0,1) continuity
// score: score = 1 - exp(-|z| / zReference). z=3 scores ~0.63, z=6 ~0.86.
const zReference = 3.0

// minScoreWindow is the number of observed points the incremental scorer
// needs before it starts scoring; earlier points score zero (warm-up).
const minScoreWindow = 8

// AnomalyModel holds the anomaly detector's configuration. Loading the
// model validates it; the detector itself is a pure function and safe for
// concurrent use.
type AnomalyModel struct {
	Threshold float64
	Window    int
}

// NewAnomalyModel validates and constructs the anomaly detector.
func NewAnomalyModel(threshold float64, window int) (*AnomalyModel, error) {
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("anomaly threshold must be in (0,1), got %v", threshold)
	}
	if window < minScoreWindow {
		return nil, fmt.Errorf("anomaly window must be at least %d, got %d", minScoreWindow, window)
	}
	return &AnomalyModel{Threshold: threshold, Window: window}, nil
}

// score maps a value onto [0,1) against a robust center/spread estimate.
func (m *AnomalyModel) score(v, med, madVal float64) float64 {
	if madVal == 0 {
		return 0
	}
	z := 0.6745 * math.Abs(v-med) / madVal
	return 1 - math.Exp(-z/zReference)
}

// anomalyAgent scores every row of a dataset. Output is deterministic for a
// given dataset: columns are visited in schema order and there is no
// randomness anywhere in the scoring.
type anomalyAgent struct {
	model *AnomalyModel
}

func (a anomalyAgent) Kind() models.AgentKind { return models.KindAnomaly }

func (a anomalyAgent) Run(_ context.Context, frame *dataset.Frame, _ map[models.AgentKind]*models.AgentResult) *models.AgentResult {
	names := frame.NumericColumnNames()
	if len(names) == 0 {
		return Failed(models.KindAnomaly, models.ErrorKindDatasetValidation, "dataset has no numeric columns")
	}

	type colStats struct {
		name   string
		values []float64
		med    float64
		mad    float64
	}

	stats := make([]colStats, 0, len(names))
	for _, name := range names {
		raw, _ := frame.NumericColumn(name)
		clean := finite(raw)
		if len(clean) == 0 {
			continue
		}
		med := median(clean)
		spread := mad(clean, med)
		if spread == 0 {
			// Degenerate spread (most values identical): fall back to a
			// stddev-derived estimate so gross outliers still register.
			spread = stdDev(clean) / 1.4826
		}
		stats = append(stats, colStats{name: name, values: raw, med: med, mad: spread})
	}

	payload := models.AnomalyPayload{
		Threshold: a.model.Threshold,
		RowCount:  frame.RowCount(),
	}

	for row := 0; row < frame.RowCount(); row++ {
		var best models.FlaggedRow
		for _, cs := range stats {
			v := cs.values[row]
			if math.IsNaN(v) {
				continue
			}
			s := a.model.score(v, cs.med, cs.mad)
			if s > best.Score {
				best = models.FlaggedRow{Index: row, Score: s, Column: cs.name, Value: v}
			}
		}
		if best.Score >= a.model.Threshold {
			payload.Flagged = append(payload.Flagged, best)
		}
	}

	return Succeeded(models.KindAnomaly, payload)
}

// Scorer scores points incrementally against a rolling window. Used by the
// realtime simulator's single-row mode. Not safe for concurrent use; each
// stream owns its own Scorer.
type Scorer struct {
	model  *AnomalyModel
	window []float64
}

// NewScorer creates an incremental scorer for one stream.
func (m *AnomalyModel) NewScorer() *Scorer {
	return &Scorer{model: m}
}

// Score scores one point against the window of previous points, then adds
// it to the window. During warm-up the score is zero.
func (s *Scorer) Score(v float64) (score float64, flagged bool) {
	if len(s.window) >= minScoreWindow {
		med := median(s.window)
		spread := mad(s.window, med)
		if spread == 0 {
			spread = stdDev(s.window) / 1.4826
		}
		score = s.model.score(v, med, spread)
		flagged = score >= s.model.Threshold
	}

	s.window = append(s.window, v)
	if len(s.window) > s.model.Window {
		s.window = s.window[1:]
	}
	return score, flagged
}
