package agent

import (
	"context"
	"sort"

	"github.com/iris-analytics/iris/internal/dataset"
	"github.com/iris-analytics/iris/internal/models"
)

// Explainability score weights: correlation with the anomaly flag vector
// versus the share of flagged rows this column drove.
const (
	correlationWeight  = 0.6
	contributionWeight = 0.4
)

// rootCauseAgent ranks candidate contributing factors from the anomaly and
// forecast outputs. Pure statistics, no backing model. Ties are broken by
// stable schema order.
type rootCauseAgent struct{}

func (rootCauseAgent) Kind() models.AgentKind { return models.KindRootCause }

func (rootCauseAgent) Run(_ context.Context, frame *dataset.Frame, upstream map[models.AgentKind]*models.AgentResult) *models.AgentResult {
	anomalyResult, ok := upstream[models.KindAnomaly]
	if !ok || anomalyResult.Status != models.ResultSucceeded {
		return Failed(models.KindRootCause, models.ErrorKindUpstreamFailure, "anomaly result unavailable")
	}

	var anomalies models.AnomalyPayload
	if err := models.DecodePayload(anomalyResult.Payload, &anomalies); err != nil {
		return Failed(models.KindRootCause, models.ErrorKindUpstreamFailure, "undecodable anomaly payload: "+err.Error())
	}

	// Flag vector: 1 for flagged rows, 0 elsewhere. Driver counts tell us
	// which column pushed each flagged row over the threshold.
	flags := make([]float64, frame.RowCount())
	drivers := make(map[string]int)
	for _, f := range anomalies.Flagged {
		if f.Index >= 0 && f.Index < len(flags) {
			flags[f.Index] = 1
		}
		drivers[f.Column]++
	}
	totalFlagged := len(anomalies.Flagged)

	payload := models.RootCausePayload{}
	for _, name := range frame.NumericColumnNames() {
		values, _ := frame.NumericColumn(name)

		factor := models.Factor{Column: name}
		factor.Correlation = pearson(values, flags)
		if totalFlagged > 0 {
			factor.Contribution = float64(drivers[name]) / float64(totalFlagged)
		}
		corr := factor.Correlation
		if corr < 0 {
			corr = -corr
		}
		factor.Score = correlationWeight*corr + contributionWeight*factor.Contribution

		payload.Factors = append(payload.Factors, factor)
	}

	// Stable: equal scores keep schema order.
	sort.SliceStable(payload.Factors, func(i, j int) bool {
		return payload.Factors[i].Score > payload.Factors[j].Score
	})

	return Succeeded(models.KindRootCause, payload)
}
