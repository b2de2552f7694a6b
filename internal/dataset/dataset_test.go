package dataset

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iris-analytics/iris/internal/models"
)

func TestInferColumns(t *testing.T) {
	headers := []string{"date", "region", "amount", "flagged"}
	rows := [][]string{
		{"2024-01-01", "north", "$1,200.50", "true"},
		{"2024-01-02", "south", "980", "false"},
		{"2024-01-03", "north", "1100.25", "true"},
		{"2024-01-04", "", "1050", "false"},
	}

	cols := InferColumns(headers, rows)
	require.Len(t, cols, 4)
	assert.Equal(t, models.ColumnDate, cols[0].Type)
	assert.Equal(t, models.ColumnString, cols[1].Type)
	assert.Equal(t, models.ColumnNumber, cols[2].Type)
	assert.Equal(t, models.ColumnBoolean, cols[3].Type)
}

func TestInferColumnsMixedFallsBackToString(t *testing.T) {
	headers := []string{"mixed"}
	rows := [][]string{{"12"}, {"hello"}, {"2024-01-01"}, {"world"}, {"x"}}

	cols := InferColumns(headers, rows)
	assert.Equal(t, models.ColumnString, cols[0].Type)
}

func TestInferColumnsBinaryIsBoolean(t *testing.T) {
	// 1/0 cells parse as numbers too; a pure binary column wins the
	// boolean tiebreak, while any other numeric value tips it to number.
	headers := []string{"active", "retries"}
	rows := [][]string{
		{"1", "0"},
		{"0", "1"},
		{"1", "3"},
		{"0", "2"},
	}

	cols := InferColumns(headers, rows)
	require.Len(t, cols, 2)
	assert.Equal(t, models.ColumnBoolean, cols[0].Type)
	assert.Equal(t, models.ColumnNumber, cols[1].Type)
}

func TestParseNumberCurrency(t *testing.T) {
	v, ok := parseNumber("$3,500.00")
	require.True(t, ok)
	assert.Equal(t, 3500.0, v)

	_, ok = parseNumber("n/a")
	assert.False(t, ok)
}

func TestReadCSV(t *testing.T) {
	input := "a,b\n1,2\n3,4\n"
	headers, rows, err := ReadCSV(strings.NewReader(input))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, headers)
	assert.Len(t, rows, 2)
}

func TestReadCSVEmptyBody(t *testing.T) {
	headers, rows, err := ReadCSV(strings.NewReader("a,b\n"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, headers)
	assert.Empty(t, rows)
}

func TestReadCSVNoHeader(t *testing.T) {
	_, _, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)
}

func TestFrameNumericParsing(t *testing.T) {
	meta := &models.Dataset{
		ID: "f1",
		Columns: []models.Column{
			{Name: "label", Type: models.ColumnString},
			{Name: "value", Type: models.ColumnNumber},
		},
	}
	frame := NewFrame(meta, [][]string{
		{"a", "10"},
		{"b", "not-a-number"},
		{"c"}, // ragged row
		{"d", "40"},
	})

	values, ok := frame.NumericColumn("value")
	require.True(t, ok)
	require.Len(t, values, 4)
	assert.Equal(t, 10.0, values[0])
	assert.True(t, math.IsNaN(values[1]))
	assert.True(t, math.IsNaN(values[2]))
	assert.Equal(t, 40.0, values[3])

	assert.Equal(t, []string{"value"}, frame.NumericColumnNames())
	assert.Equal(t, "", frame.Cell(2, 1))
}

func TestIngest(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sales.csv")
	content := "month,revenue\n2024-01,100\n2024-02,120\n2024-03,90\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	ds, err := Ingest(path, "sales")
	require.NoError(t, err)

	assert.Equal(t, "sales", ds.Name)
	assert.Equal(t, 3, ds.RowCount)
	assert.Len(t, ds.ID, 8)
	require.Len(t, ds.Columns, 2)
	assert.Equal(t, models.ColumnNumber, ds.Columns[1].Type)
}

func TestIngestMissingFile(t *testing.T) {
	_, err := Ingest("/does/not/exist.csv", "")
	assert.Error(t, err)
}
