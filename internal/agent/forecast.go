package agent

import (
	"context"
	"fmt"
	"math"

	"github.com/iris-analytics/iris/internal/dataset"
	"github.com/iris-analytics/iris/internal/models"
)

// Holt smoothing coefficients. Fixed rather than fitted: forecasts must be
// deterministic across runs for the same input.
const (
	holtAlpha = 0.5
	holtBeta  = 0.3
)

// ForecastModel holds the forecaster's configuration.
type ForecastModel struct {
	Horizon   int
	MinPoints int
}

// NewForecastModel validates and constructs the forecaster.
func NewForecastModel(horizon, minPoints int) (*ForecastModel, error) {
	if horizon < 1 {
		return nil, fmt.Errorf("forecast horizon must be positive, got %d", horizon)
	}
	if minPoints < 3 {
		return nil, fmt.Errorf("forecast min points must be at least 3, got %d", minPoints)
	}
	return &ForecastModel{Horizon: horizon, MinPoints: minPoints}, nil
}

// forecastAgent produces point forecasts with an uncertainty band using
// Holt double exponential smoothing over the first eligible numeric column.
type forecastAgent struct {
	model *ForecastModel
}

func (f forecastAgent) Kind() models.AgentKind { return models.KindForecast }

func (f forecastAgent) Run(_ context.Context, frame *dataset.Frame, _ map[models.AgentKind]*models.AgentResult) *models.AgentResult {
	column, series := f.pickSeries(frame)
	if column == "" {
		return Failed(models.KindForecast, models.ErrorKindDatasetValidation,
			fmt.Sprintf("no numeric series with at least %d points", f.model.MinPoints))
	}

	level, trend, sigma := holt(series)

	payload := models.ForecastPayload{
		Column:  column,
		Horizon: f.model.Horizon,
		Points:  make([]models.ForecastPoint, 0, f.model.Horizon),
	}
	for h := 1; h <= f.model.Horizon; h++ {
		value := level + float64(h)*trend
		band := 1.96 * sigma * math.Sqrt(float64(h))
		payload.Points = append(payload.Points, models.ForecastPoint{
			Step:  h,
			Value: value,
			Lower: value - band,
			Upper: value + band,
		})
	}

	return Succeeded(models.KindForecast, payload)
}

// pickSeries returns the first numeric column (schema order) with enough
// finite values. Rows are assumed time-ordered.
func (f forecastAgent) pickSeries(frame *dataset.Frame) (string, []float64) {
	for _, name := range frame.NumericColumnNames() {
		raw, _ := frame.NumericColumn(name)
		series := finite(raw)
		if len(series) >= f.model.MinPoints {
			return name, series
		}
	}
	return "", nil
}

// holt runs double exponential smoothing and returns the final level and
// trend plus the RMS of the one-step-ahead residuals.
func holt(series []float64) (level, trend, sigma float64) {
	level = series[0]
	trend = series[1] - series[0]

	var sumSq float64
	var count int
	for t := 1; t < len(series); t++ {
		predicted := level + trend
		residual := series[t] - predicted
		sumSq += residual * residual
		count++

		prevLevel := level
		level = holtAlpha*series[t] + (1-holtAlpha)*(level+trend)
		trend = holtBeta*(level-prevLevel) + (1-holtBeta)*trend
	}

	if count > 0 {
		sigma = math.Sqrt(sumSq / float64(count))
	}
	return level, trend, sigma
}
