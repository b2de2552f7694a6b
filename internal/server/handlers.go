package server

import (
	"net/http"
	"time"

	"github.com/iris-analytics/iris/internal/models"
	"github.com/iris-analytics/iris/internal/realtime"
)

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{
		"status":         "ok",
		"uptime_seconds": time.Since(s.started).Seconds(),
	})
}

func (s *Server) handleAgents(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.InitReport())
}

func (s *Server) handleStats(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, s.engine.Stats())
}

func (s *Server) handleAddDataset(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Path string `json:"path"`
		Name string `json:"name"`
	}
	if !s.decode(w, req, &body) {
		return
	}
	if body.Path == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "path required"})
		return
	}

	ds, err := s.engine.AddDataset(req.Context(), body.Path, body.Name)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ds)
}

func (s *Server) handleListDatasets(w http.ResponseWriter, req *http.Request) {
	datasets, err := s.engine.Datasets(req.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"datasets": datasets})
}

func (s *Server) handleGetDataset(w http.ResponseWriter, req *http.Request) {
	ds, err := s.engine.Dataset(req.Context(), req.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, ds)
}

func (s *Server) handleSubmitAnalysis(w http.ResponseWriter, req *http.Request) {
	var body struct {
		DatasetID string `json:"dataset_id"`
	}
	if !s.decode(w, req, &body) {
		return
	}
	if body.DatasetID == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "dataset_id required"})
		return
	}

	jobID, err := s.engine.SubmitAnalysis(req.Context(), body.DatasetID, caller(req))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"job_id": jobID})
}

func (s *Server) handleListJobs(w http.ResponseWriter, req *http.Request) {
	jobs, err := s.engine.Jobs(req.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"jobs": jobs})
}

func (s *Server) handleGetJob(w http.ResponseWriter, req *http.Request) {
	view, err := s.engine.JobStatus(req.Context(), req.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCancelJob(w http.ResponseWriter, req *http.Request) {
	if err := s.engine.CancelJob(req.PathValue("id")); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (s *Server) handleListResults(w http.ResponseWriter, req *http.Request) {
	results, err := s.engine.AgentResults(req.Context(), req.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (s *Server) handleGetResult(w http.ResponseWriter, req *http.Request) {
	kind := models.AgentKind(req.PathValue("kind"))
	result, err := s.engine.AgentResult(req.Context(), req.PathValue("id"), kind)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleAsk(w http.ResponseWriter, req *http.Request) {
	var body struct {
		SessionID string `json:"session_id"`
		DatasetID string `json:"dataset_id"`
		Question  string `json:"question"`
	}
	if !s.decode(w, req, &body) {
		return
	}
	if body.DatasetID == "" || body.Question == "" {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "dataset_id and question required"})
		return
	}

	answer, err := s.engine.Ask(req.Context(), body.SessionID, body.DatasetID, body.Question, caller(req))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, answer)
}

func (s *Server) handleHistory(w http.ResponseWriter, req *http.Request) {
	msgs, err := s.engine.History(req.Context(), req.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"messages": msgs})
}

func (s *Server) handleStartStream(w http.ResponseWriter, req *http.Request) {
	var body struct {
		Name      string  `json:"name"`
		Interval  string  `json:"interval"`
		Seed      int64   `json:"seed"`
		Baseline  float64 `json:"baseline"`
		Amplitude float64 `json:"amplitude"`
		Period    int     `json:"period"`
		Noise     float64 `json:"noise"`
		SpikeProb float64 `json:"spike_prob"`
		SpikeMag  float64 `json:"spike_mag"`
	}
	if !s.decode(w, req, &body) {
		return
	}

	cfg := realtime.StreamConfig{
		Name:      body.Name,
		Seed:      body.Seed,
		Baseline:  body.Baseline,
		Amplitude: body.Amplitude,
		Period:    body.Period,
		Noise:     body.Noise,
		SpikeProb: body.SpikeProb,
		SpikeMag:  body.SpikeMag,
	}
	if body.Interval != "" {
		d, err := time.ParseDuration(body.Interval)
		if err != nil {
			s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: "bad interval: " + err.Error()})
			return
		}
		cfg.Interval = d
	}

	if err := s.engine.StartStream(cfg); err != nil {
		s.writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"stream": cfg.Name})
}

func (s *Server) handleListStreams(w http.ResponseWriter, _ *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]any{"streams": s.engine.Streams()})
}

func (s *Server) handleStopStream(w http.ResponseWriter, req *http.Request) {
	if err := s.engine.StopStream(req.PathValue("name")); err != nil {
		s.writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error()})
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "stopped"})
}
