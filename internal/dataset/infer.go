package dataset

import (
	"strconv"
	"strings"
	"time"

	"github.com/iris-analytics/iris/internal/models"
)

// inferSampleSize caps how many rows are inspected per column.
const inferSampleSize = 1000

// typeThreshold is the share of non-empty sampled values that must parse as
// a candidate type before the column is classified as that type.
const typeThreshold = 0.8

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05Z07:00",
	"2006-01-02 15:04:05",
	"01/02/2006",
	"02.01.2006",
	"Jan 2006",
	"2006-01",
}

// InferColumns classifies each column by sampling values: a column becomes
// number/date/boolean when at least 80% of its non-empty sample parses as
// that type, string otherwise.
func InferColumns(headers []string, rows [][]string) []models.Column {
	columns := make([]models.Column, len(headers))
	limit := len(rows)
	if limit > inferSampleSize {
		limit = inferSampleSize
	}

	for i, header := range headers {
		var nonEmpty, numbers, dates, bools int
		for r := 0; r < limit; r++ {
			if i >= len(rows[r]) {
				continue
			}
			val := strings.TrimSpace(rows[r][i])
			if val == "" {
				continue
			}
			nonEmpty++
			if _, ok := parseNumber(val); ok {
				numbers++
			}
			if isDate(val) {
				dates++
			}
			if isBool(val) {
				bools++
			}
		}

		colType := models.ColumnString
		if nonEmpty > 0 {
			share := func(n int) float64 { return float64(n) / float64(nonEmpty) }
			switch {
			// Booleans first: "1"/"0" columns also parse as numbers.
			case share(bools) >= typeThreshold && bools > 0 && share(bools) >= share(numbers):
				colType = models.ColumnBoolean
			case share(dates) >= typeThreshold:
				colType = models.ColumnDate
			case share(numbers) >= typeThreshold:
				colType = models.ColumnNumber
			}
		}

		columns[i] = models.Column{Name: strings.TrimSpace(header), Type: colType}
	}

	return columns
}

// parseNumber parses a numeric cell, tolerating currency symbols and
// thousands separators.
func parseNumber(s string) (float64, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	s = strings.TrimLeft(s, "$€£")
	s = strings.ReplaceAll(s, ",", "")
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

func isBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "false", "yes", "no", "1", "0":
		return true
	}
	return false
}

func isDate(s string) bool {
	s = strings.TrimSpace(s)
	for _, layout := range dateLayouts {
		if _, err := time.Parse(layout, s); err == nil {
			return true
		}
	}
	return false
}
