// Package server exposes the analytics engine over a JSON HTTP API with a
// websocket feed for realtime points.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/iris-analytics/iris/internal/engine"
	"github.com/iris-analytics/iris/internal/models"
)

// callerHeader carries the opaque caller identity recorded on jobs and
// conversations. Audit only, never authorization.
const callerHeader = "X-Iris-Caller"

// Server wraps the engine with HTTP transport and lifecycle management.
type Server struct {
	engine  *engine.Engine
	logger  *slog.Logger
	httpSrv *http.Server
	started time.Time
}

// New creates a server listening on addr.
func New(e *engine.Engine, addr string, logger *slog.Logger) *Server {
	s := &Server{
		engine:  e,
		logger:  logger,
		started: time.Now(),
	}
	s.httpSrv = &http.Server{
		Addr:              addr,
		Handler:           LoggingMiddleware(logger)(s.routes()),
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the full handler chain, for tests.
func (s *Server) Handler() http.Handler {
	return s.httpSrv.Handler
}

// Run starts serving and blocks until the listener fails or Shutdown is
// called.
func (s *Server) Run() error {
	s.logger.Info("server listening", "addr", s.httpSrv.Addr)
	err := s.httpSrv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Shutdown drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpSrv.Shutdown(ctx)
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /agents", s.handleAgents)
	mux.HandleFunc("GET /stats", s.handleStats)

	mux.HandleFunc("POST /datasets", s.handleAddDataset)
	mux.HandleFunc("GET /datasets", s.handleListDatasets)
	mux.HandleFunc("GET /datasets/{id}", s.handleGetDataset)

	mux.HandleFunc("POST /analyses", s.handleSubmitAnalysis)
	mux.HandleFunc("GET /jobs", s.handleListJobs)
	mux.HandleFunc("GET /jobs/{id}", s.handleGetJob)
	mux.HandleFunc("DELETE /jobs/{id}", s.handleCancelJob)
	mux.HandleFunc("GET /jobs/{id}/results", s.handleListResults)
	mux.HandleFunc("GET /jobs/{id}/results/{kind}", s.handleGetResult)

	mux.HandleFunc("POST /ask", s.handleAsk)
	mux.HandleFunc("GET /conversations/{id}", s.handleHistory)

	mux.HandleFunc("POST /realtime/streams", s.handleStartStream)
	mux.HandleFunc("GET /realtime/streams", s.handleListStreams)
	mux.HandleFunc("DELETE /realtime/streams/{name}", s.handleStopStream)
	mux.HandleFunc("GET /realtime/feed", s.handleFeed)

	return mux
}

func caller(req *http.Request) string {
	return req.Header.Get(callerHeader)
}

// writeJSON writes a JSON response with the given status.
func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("response encode failed", "error", err)
	}
}

type errorResponse struct {
	Error     string           `json:"error"`
	ErrorKind models.ErrorKind `json:"error_kind,omitempty"`
}

// writeError maps engine errors onto HTTP statuses and the error kind
// taxonomy.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	var status int
	var kind models.ErrorKind
	switch {
	case errors.Is(err, models.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyExists):
		status = http.StatusConflict
	case errors.Is(err, models.ErrSessionMismatch):
		status = http.StatusConflict
	case errors.Is(err, models.ErrNoAnalysis):
		status, kind = http.StatusConflict, models.ErrorKindNoAnalysis
	case errors.Is(err, models.ErrModelUnavailable):
		status, kind = http.StatusServiceUnavailable, models.ErrorKindModelUnavailable
	case errors.Is(err, models.ErrStorage):
		status, kind = http.StatusBadGateway, models.ErrorKindStorage
	default:
		status = http.StatusInternalServerError
	}
	s.writeJSON(w, status, errorResponse{Error: err.Error(), ErrorKind: kind})
}

func (s *Server) decode(w http.ResponseWriter, req *http.Request, v any) bool {
	if err := json.NewDecoder(req.Body).Decode(v); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid request body: " + err.Error()})
		return false
	}
	return true
}
