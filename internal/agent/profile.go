package agent

import (
	"context"
	"strings"

	"github.com/iris-analytics/iris/internal/dataset"
	"github.com/iris-analytics/iris/internal/models"
)

// profileAgent computes per-column descriptive statistics. It is the first
// and only required stage; every other stage gates on its outcome.
type profileAgent struct{}

func (profileAgent) Kind() models.AgentKind { return models.KindProfile }

func (profileAgent) Run(_ context.Context, frame *dataset.Frame, _ map[models.AgentKind]*models.AgentResult) *models.AgentResult {
	if frame == nil {
		return Failed(models.KindProfile, models.ErrorKindDatasetValidation, "dataset frame unavailable")
	}
	if len(frame.Meta.Columns) == 0 {
		return Failed(models.KindProfile, models.ErrorKindDatasetValidation, "dataset has no columns")
	}

	payload := models.ProfilePayload{
		RowCount: frame.RowCount(),
		Empty:    frame.Empty(),
		Columns:  make([]models.ColumnProfile, 0, len(frame.Meta.Columns)),
	}

	for i, col := range frame.Meta.Columns {
		prof := models.ColumnProfile{Name: col.Name, Type: col.Type}

		distinct := make(map[string]struct{})
		for r := range frame.Rows {
			val := strings.TrimSpace(frame.Cell(r, i))
			if val == "" {
				continue
			}
			prof.Count++
			distinct[val] = struct{}{}
		}
		prof.Distinct = len(distinct)

		if col.Type == models.ColumnNumber {
			if raw, ok := frame.NumericColumn(col.Name); ok {
				values := finite(raw)
				if len(values) > 0 {
					prof.Mean = mean(values)
					prof.StdDev = stdDev(values)
					prof.Min = values[0]
					prof.Max = values[0]
					for _, v := range values {
						if v < prof.Min {
							prof.Min = v
						}
						if v > prof.Max {
							prof.Max = v
						}
					}
				}
			}
		}

		payload.Columns = append(payload.Columns, prof)
	}

	return Succeeded(models.KindProfile, payload)
}
