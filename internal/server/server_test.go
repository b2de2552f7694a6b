package server

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iris-analytics/iris/internal/agent"
	"github.com/iris-analytics/iris/internal/config"
	"github.com/iris-analytics/iris/internal/dataset"
	"github.com/iris-analytics/iris/internal/engine"
	"github.com/iris-analytics/iris/internal/models"
	"github.com/iris-analytics/iris/internal/realtime"
	"github.com/iris-analytics/iris/internal/store"
)

type stubGenerator struct{}

func (stubGenerator) GenerateWithSystem(context.Context, string, string) (string, error) {
	return "Nothing unusual.\n- all stable", nil
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	cfg := config.Config{
		AnomalyThreshold:  0.8,
		AnomalyWindow:     64,
		ForecastHorizon:   12,
		ForecastMinPoints: 5,
		ModelLoadTimeout:  time.Second,
		AgentTimeout:      5 * time.Second,
		RealtimeInterval:  time.Millisecond,
	}
	mem := store.NewMemory()
	e, err := engine.New(context.Background(), cfg, testLogger(),
		engine.WithStore(mem, dataset.NewFileProvider(mem)),
		engine.WithManagerOptions(agent.WithReasonerLoader(
			func(context.Context) (agent.Generator, error) {
				return stubGenerator{}, nil
			})))
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Shutdown(context.Background()) })
	return New(e, ":0", testLogger())
}

func writeCSV(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "metrics.csv")
	var b strings.Builder
	b.WriteString("latency,errors\n")
	for i := 0; i < 40; i++ {
		fmt.Fprintf(&b, "%d,%d\n", 100+i%5, i%3)
	}
	require.NoError(t, os.WriteFile(path, []byte(b.String()), 0o644))
	return path
}

func doJSON(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set(callerHeader, "test-suite")
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func TestHealthAndAgents(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodGet, "/health", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	health := decodeBody[map[string]any](t, rec)
	assert.Equal(t, "ok", health["status"])

	rec = doJSON(t, h, http.MethodGet, "/agents", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	report := decodeBody[agent.InitReport](t, rec)
	assert.True(t, report.Agents[models.KindAnomaly])

	rec = doJSON(t, h, http.MethodGet, "/stats", nil)
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestDatasetLifecycle(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/datasets", map[string]string{
		"path": writeCSV(t), "name": "metrics",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	ds := decodeBody[models.Dataset](t, rec)
	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, 40, ds.RowCount)

	rec = doJSON(t, h, http.MethodGet, "/datasets/"+ds.ID, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/datasets", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), ds.ID)

	rec = doJSON(t, h, http.MethodGet, "/datasets/missing", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/datasets", map[string]string{"name": "no-path"})
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAnalysisFlow(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/datasets", map[string]string{
		"path": writeCSV(t), "name": "metrics",
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	ds := decodeBody[models.Dataset](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/analyses", map[string]string{"dataset_id": ds.ID})
	require.Equal(t, http.StatusAccepted, rec.Code, rec.Body.String())
	submitted := decodeBody[map[string]string](t, rec)
	jobID := submitted["job_id"]
	require.NotEmpty(t, jobID)

	require.Eventually(t, func() bool {
		rec := doJSON(t, h, http.MethodGet, "/jobs/"+jobID, nil)
		if rec.Code != http.StatusOK {
			return false
		}
		view := decodeBody[models.JobView](t, rec)
		return view.Job.Status.Terminal()
	}, 10*time.Second, 20*time.Millisecond)

	rec = doJSON(t, h, http.MethodGet, "/jobs/"+jobID, nil)
	view := decodeBody[models.JobView](t, rec)
	assert.Equal(t, models.JobSucceeded, view.Job.Status)
	assert.Equal(t, "test-suite", view.Job.Caller)

	rec = doJSON(t, h, http.MethodGet, "/jobs/"+jobID+"/results", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/jobs/"+jobID+"/results/anomaly", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	result := decodeBody[models.AgentResult](t, rec)
	assert.Equal(t, models.KindAnomaly, result.Kind)

	rec = doJSON(t, h, http.MethodGet, "/jobs/"+jobID+"/results/nonsense", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = doJSON(t, h, http.MethodGet, "/jobs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), jobID)

	// Ask about the finished analysis.
	rec = doJSON(t, h, http.MethodPost, "/ask", map[string]string{
		"dataset_id": ds.ID, "question": "any anomalies?",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var answer struct {
		ConversationID string `json:"conversation_id"`
		Text           string `json:"text"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &answer))
	assert.NotEmpty(t, answer.ConversationID)

	rec = doJSON(t, h, http.MethodGet, "/conversations/"+answer.ConversationID, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "any anomalies?")
}

func TestAskBeforeAnalysisConflicts(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/datasets", map[string]string{
		"path": writeCSV(t), "name": "metrics",
	})
	ds := decodeBody[models.Dataset](t, rec)

	rec = doJSON(t, h, http.MethodPost, "/ask", map[string]string{
		"dataset_id": ds.ID, "question": "anything?",
	})
	require.Equal(t, http.StatusConflict, rec.Code)
	resp := decodeBody[map[string]string](t, rec)
	assert.Equal(t, string(models.ErrorKindNoAnalysis), resp["error_kind"])
}

func TestSubmitAnalysisValidation(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/analyses", map[string]string{})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodPost, "/analyses", map[string]string{"dataset_id": "missing"})
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStreamEndpoints(t *testing.T) {
	srv := newTestServer(t)
	h := srv.Handler()

	rec := doJSON(t, h, http.MethodPost, "/realtime/streams", map[string]any{
		"name": "cpu", "interval": "1ms", "seed": 5, "baseline": 50.0, "noise": 1.0,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = doJSON(t, h, http.MethodGet, "/realtime/streams", nil)
	assert.Contains(t, rec.Body.String(), "cpu")

	rec = doJSON(t, h, http.MethodPost, "/realtime/streams", map[string]any{
		"name": "cpu", "interval": "bogus",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/realtime/streams/cpu", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, h, http.MethodDelete, "/realtime/streams/cpu", nil)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRealtimeFeedWebsocket(t *testing.T) {
	srv := newTestServer(t)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	rec := doJSON(t, srv.Handler(), http.MethodPost, "/realtime/streams", map[string]any{
		"name": "cpu", "interval": "1ms", "seed": 5, "baseline": 50.0, "noise": 1.0,
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	url := "ws" + strings.TrimPrefix(ts.URL, "http") + "/realtime/feed"
	conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer resp.Body.Close()
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var point realtime.Point
	require.NoError(t, conn.ReadJSON(&point))
	assert.Equal(t, "cpu", point.Stream)
}
