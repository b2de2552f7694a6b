// Package dataset provides access to registered tabular datasets: CSV
// ingestion, schema inference, and in-memory frames for the agents.
package dataset

import (
	"math"

	"github.com/iris-analytics/iris/internal/models"
)

// Frame is an immutable in-memory view of one dataset. Numeric columns are
// parsed once at construction; unparseable or missing cells become NaN so
// row indexes stay aligned with the raw rows.
type Frame struct {
	Meta    *models.Dataset
	Rows    [][]string
	numeric map[string][]float64
}

// NewFrame builds a frame from dataset metadata and raw rows.
func NewFrame(meta *models.Dataset, rows [][]string) *Frame {
	f := &Frame{
		Meta:    meta,
		Rows:    rows,
		numeric: make(map[string][]float64),
	}
	for i, col := range meta.Columns {
		if col.Type != models.ColumnNumber {
			continue
		}
		values := make([]float64, len(rows))
		for r, row := range rows {
			v := math.NaN()
			if i < len(row) {
				if parsed, ok := parseNumber(row[i]); ok {
					v = parsed
				}
			}
			values[r] = v
		}
		f.numeric[col.Name] = values
	}
	return f
}

// RowCount returns the number of data rows.
func (f *Frame) RowCount() int {
	return len(f.Rows)
}

// Empty reports whether the dataset has zero rows.
func (f *Frame) Empty() bool {
	return len(f.Rows) == 0
}

// NumericColumn returns the parsed values for a numeric column.
func (f *Frame) NumericColumn(name string) ([]float64, bool) {
	values, ok := f.numeric[name]
	return values, ok
}

// NumericColumnNames returns the numeric column names in schema order.
// Schema order keeps every downstream computation deterministic.
func (f *Frame) NumericColumnNames() []string {
	var names []string
	for _, col := range f.Meta.Columns {
		if col.Type == models.ColumnNumber {
			names = append(names, col.Name)
		}
	}
	return names
}

// Cell returns the raw cell value, or "" when the row is ragged.
func (f *Frame) Cell(row, col int) string {
	if row < 0 || row >= len(f.Rows) || col < 0 || col >= len(f.Rows[row]) {
		return ""
	}
	return f.Rows[row][col]
}
