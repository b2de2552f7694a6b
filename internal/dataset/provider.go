package dataset

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/iris-analytics/iris/internal/models"
)

// Provider resolves a dataset id into an in-memory frame. The pipeline
// never touches raw storage directly.
type Provider interface {
	Get(ctx context.Context, datasetID string) (*Frame, error)
}

// MetaStore is the subset of the job store the provider needs.
type MetaStore interface {
	GetDataset(ctx context.Context, id string) (*models.Dataset, error)
}

// FileProvider reads registered CSV files from disk using stored metadata.
type FileProvider struct {
	datasets MetaStore
}

// NewFileProvider creates a provider backed by the dataset store.
func NewFileProvider(datasets MetaStore) *FileProvider {
	return &FileProvider{datasets: datasets}
}

// Get loads the dataset's CSV into a frame.
func (p *FileProvider) Get(ctx context.Context, datasetID string) (*Frame, error) {
	meta, err := p.datasets.GetDataset(ctx, datasetID)
	if err != nil {
		return nil, err
	}

	file, err := os.Open(meta.Path)
	if err != nil {
		return nil, fmt.Errorf("open dataset file: %w", err)
	}
	defer file.Close()

	_, rows, err := ReadCSV(file)
	if err != nil {
		return nil, fmt.Errorf("read dataset %s: %w", datasetID, err)
	}

	return NewFrame(meta, rows), nil
}

// StaticProvider serves pre-built frames. Used in tests and by the
// realtime simulator's warm-up.
type StaticProvider struct {
	Frames map[string]*Frame
}

// Get returns the stored frame or models.ErrNotFound.
func (p *StaticProvider) Get(_ context.Context, datasetID string) (*Frame, error) {
	if f, ok := p.Frames[datasetID]; ok {
		return f, nil
	}
	return nil, models.ErrNotFound
}

// ReadCSV reads a CSV document into headers and rows. Ragged rows are
// tolerated; a missing header is an error.
func ReadCSV(r io.Reader) (headers []string, rows [][]string, err error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1

	headers, err = reader.Read()
	if err == io.EOF {
		return nil, nil, fmt.Errorf("csv has no header row")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("read csv header: %w", err)
	}

	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			// Skip malformed rows rather than failing the whole dataset.
			continue
		}
		rows = append(rows, row)
	}

	return headers, rows, nil
}

// Ingest reads a CSV file, infers its schema, and builds the immutable
// dataset reference that everything downstream uses.
func Ingest(path, name string) (*models.Dataset, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	headers, rows, err := ReadCSV(file)
	if err != nil {
		return nil, err
	}

	if name == "" {
		name = path
	}

	return &models.Dataset{
		ID:        uuid.New().String()[:8],
		Name:      name,
		Columns:   InferColumns(headers, rows),
		RowCount:  len(rows),
		Path:      path,
		CreatedAt: time.Now(),
	}, nil
}
