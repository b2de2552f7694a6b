package engine

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iris-analytics/iris/internal/agent"
	"github.com/iris-analytics/iris/internal/config"
	"github.com/iris-analytics/iris/internal/dataset"
	"github.com/iris-analytics/iris/internal/models"
	"github.com/iris-analytics/iris/internal/realtime"
	"github.com/iris-analytics/iris/internal/store"
)

type stubGenerator struct {
	reply string
}

func (s *stubGenerator) GenerateWithSystem(context.Context, string, string) (string, error) {
	return s.reply, nil
}

func testConfig() config.Config {
	return config.Config{
		AnomalyThreshold:  0.8,
		AnomalyWindow:     64,
		ForecastHorizon:   12,
		ForecastMinPoints: 5,
		ModelLoadTimeout:  time.Second,
		AgentTimeout:      5 * time.Second,
		RealtimeInterval:  time.Millisecond,
	}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// newEngine builds an engine over the in-memory store with a stub reasoner.
func newEngine(t *testing.T, reply string) *Engine {
	t.Helper()
	mem := store.NewMemory()
	e, err := New(context.Background(), testConfig(), testLogger(),
		WithStore(mem, dataset.NewFileProvider(mem)),
		WithManagerOptions(agent.WithReasonerLoader(
			func(context.Context) (agent.Generator, error) {
				return &stubGenerator{reply: reply}, nil
			})))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown(context.Background()) })
	return e
}

// writeCSV writes a 100-row metrics file with one gross outlier at row 42.
func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.csv")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	_, err = f.WriteString("timestamp,latency,errors\n")
	require.NoError(t, err)
	for i := 0; i < 100; i++ {
		latency := 100 + i%7
		if i == 42 {
			latency = 5000
		}
		_, err = fmt.Fprintf(f, "2026-01-%02d,%d,%d\n", i%28+1, latency, i%3)
		require.NoError(t, err)
	}
	return path
}

func TestEngineEndToEnd(t *testing.T) {
	e := newEngine(t, "Row 42 is a clear latency outlier.\n- latency spiked to 5000")
	ctx := context.Background()

	ds, err := e.AddDataset(ctx, writeCSV(t), "metrics")
	require.NoError(t, err)
	assert.Equal(t, 100, ds.RowCount)

	latency, ok := ds.Column("latency")
	require.True(t, ok)
	assert.Equal(t, models.ColumnNumber, latency.Type)

	jobID, err := e.SubmitAnalysis(ctx, ds.ID, "e2e")
	require.NoError(t, err)

	waitCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	require.NoError(t, e.WaitForJob(waitCtx, jobID))

	view, err := e.JobStatus(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, models.JobSucceeded, view.Job.Status)
	assert.Len(t, view.Stages, len(models.PipelineKinds()))

	// The injected outlier is the only flag, on the right column.
	result, err := e.AgentResult(ctx, jobID, models.KindAnomaly)
	require.NoError(t, err)
	var anomalies models.AnomalyPayload
	require.NoError(t, models.DecodePayload(result.Payload, &anomalies))
	require.Len(t, anomalies.Flagged, 1)
	assert.Equal(t, 42, anomalies.Flagged[0].Index)
	assert.Equal(t, "latency", anomalies.Flagged[0].Column)

	// Root cause ranks latency first.
	result, err = e.AgentResult(ctx, jobID, models.KindRootCause)
	require.NoError(t, err)
	var causes models.RootCausePayload
	require.NoError(t, models.DecodePayload(result.Payload, &causes))
	require.NotEmpty(t, causes.Factors)
	assert.Equal(t, "latency", causes.Factors[0].Column)

	// A question about anomalies cites the anomaly result.
	answer, err := e.Ask(ctx, "", ds.ID, "were there any outliers?", "e2e")
	require.NoError(t, err)
	assert.Contains(t, answer.Citations, models.KindAnomaly)
	assert.Equal(t, jobID, answer.JobID)

	msgs, err := e.History(ctx, answer.ConversationID)
	require.NoError(t, err)
	assert.Len(t, msgs, 2)

	stats := e.Stats()
	assert.Equal(t, int64(1), stats.JobsSubmitted)
	require.NotNil(t, stats.Stages["anomaly"])
	assert.Equal(t, int64(1), stats.Stages["anomaly"].Succeeded)
	require.NotNil(t, stats.Questions)
}

func TestEngineAskBeforeAnalysis(t *testing.T) {
	e := newEngine(t, "x")
	ctx := context.Background()

	ds, err := e.AddDataset(ctx, writeCSV(t), "metrics")
	require.NoError(t, err)

	_, err = e.Ask(ctx, "", ds.ID, "anything?", "e2e")
	require.ErrorIs(t, err, models.ErrNoAnalysis)
}

func TestEngineInitReport(t *testing.T) {
	e := newEngine(t, "x")

	report := e.InitReport()
	assert.Len(t, report.Models, 4)
	for _, kind := range models.PipelineKinds() {
		assert.True(t, report.Agents[kind], "agent %s", kind)
		assert.True(t, e.AgentReady(kind))
	}
}

func TestEngineRealtimeStreams(t *testing.T) {
	e := newEngine(t, "x")

	ch, cancel := e.SubscribePoints(64)
	defer cancel()

	require.NoError(t, e.StartStream(realtime.StreamConfig{
		Name: "cpu", Interval: time.Millisecond, Seed: 3, Baseline: 40, Noise: 1,
	}))
	assert.Equal(t, []string{"cpu"}, e.Streams())

	select {
	case p := <-ch:
		assert.Equal(t, "cpu", p.Stream)
	case <-time.After(2 * time.Second):
		t.Fatal("no realtime point arrived")
	}

	require.NoError(t, e.StopStream("cpu"))
	assert.Empty(t, e.Streams())
}
