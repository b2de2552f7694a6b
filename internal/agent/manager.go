package agent

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/iris-analytics/iris/internal/config"
	"github.com/iris-analytics/iris/internal/llm"
	"github.com/iris-analytics/iris/internal/models"
)

// ModelKind identifies one loadable model. The statistical models are
// validated configuration; the reasoning models are remote LLM handles.
type ModelKind string

const (
	ModelAnomalyDetector ModelKind = "anomaly_detector"
	ModelForecaster      ModelKind = "forecaster"
	ModelReasoner        ModelKind = "reasoner"
	ModelConversational  ModelKind = "conversational"
)

// ModelStatus records the outcome of one model load.
type ModelStatus struct {
	Kind      ModelKind     `json:"kind"`
	Available bool          `json:"available"`
	Error     string        `json:"error,omitempty"`
	Elapsed   time.Duration `json:"elapsed"`
}

// InitReport summarizes initialization: which models loaded and which
// agents are consequently operational.
type InitReport struct {
	Models  []ModelStatus             `json:"models"`
	Agents  map[models.AgentKind]bool `json:"agents"`
	Elapsed time.Duration             `json:"elapsed"`
}

// ReasonerLoader produces the generator backing the LLM agents. Swappable
// so tests can inject a stub instead of dialing a provider.
type ReasonerLoader func(ctx context.Context) (Generator, error)

// Option configures a Manager.
type Option func(*Manager)

// WithReasonerLoader overrides how the reasoning models are obtained.
func WithReasonerLoader(load ReasonerLoader) Option {
	return func(m *Manager) { m.loadReasoner = load }
}

// Manager owns the models and hands out agents keyed by kind. All models
// load concurrently during Initialize, each bounded by the configured load
// timeout; a model that fails or times out leaves its agents in a
// fail-fast unavailable state rather than blocking the whole engine.
// After Initialize returns the Manager is read-only and safe for
// concurrent use.
type Manager struct {
	cfg    config.Config
	logger *slog.Logger

	loadReasoner ReasonerLoader

	anomalyModel *AnomalyModel
	agents       map[models.AgentKind]Agent
	query        *QueryAgent
	report       InitReport
}

// NewManager creates a Manager. Initialize must be called before agents
// are requested.
func NewManager(cfg config.Config, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:    cfg,
		logger: logger,
		agents: make(map[models.AgentKind]Agent),
	}
	m.loadReasoner = func(ctx context.Context) (Generator, error) {
		return llm.NewModel(ctx, cfg)
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Initialize loads every model concurrently and wires the agent table.
// It never returns an error for individual model failures; those are
// reported per model and surface later as model_unavailable results.
func (m *Manager) Initialize(ctx context.Context) InitReport {
	start := time.Now()

	var anomalyModel *AnomalyModel
	var forecastModel *ForecastModel
	var reasoner, conversational Generator

	// Loaded values travel through the channel so that a loader still
	// running after its deadline never touches the captured locals; a late
	// delivery just sits in the buffer and is discarded.
	type loadResult struct {
		val any
		err error
	}

	loaders := []struct {
		kind   ModelKind
		load   func(context.Context) (any, error)
		assign func(any)
	}{
		{ModelAnomalyDetector,
			func(context.Context) (any, error) {
				return NewAnomalyModel(m.cfg.AnomalyThreshold, m.cfg.AnomalyWindow)
			},
			func(v any) { anomalyModel, _ = v.(*AnomalyModel) }},
		{ModelForecaster,
			func(context.Context) (any, error) {
				return NewForecastModel(m.cfg.ForecastHorizon, m.cfg.ForecastMinPoints)
			},
			func(v any) { forecastModel, _ = v.(*ForecastModel) }},
		{ModelReasoner,
			func(ctx context.Context) (any, error) { return m.loadReasoner(ctx) },
			func(v any) { reasoner, _ = v.(Generator) }},
		{ModelConversational,
			func(ctx context.Context) (any, error) { return m.loadReasoner(ctx) },
			func(v any) { conversational, _ = v.(Generator) }},
	}

	statuses := make([]ModelStatus, len(loaders))
	var wg sync.WaitGroup
	for i, l := range loaders {
		wg.Add(1)
		go func(i int, kind ModelKind, load func(context.Context) (any, error), assign func(any)) {
			defer wg.Done()
			loadStart := time.Now()
			loadCtx, cancel := context.WithTimeout(ctx, m.cfg.ModelLoadTimeout)
			defer cancel()

			done := make(chan loadResult, 1)
			go func() {
				val, err := load(loadCtx)
				done <- loadResult{val, err}
			}()

			var err error
			select {
			case res := <-done:
				err = res.err
				if err == nil {
					assign(res.val)
				}
			case <-loadCtx.Done():
				err = fmt.Errorf("model load timed out after %s", m.cfg.ModelLoadTimeout)
			}

			status := ModelStatus{Kind: kind, Elapsed: time.Since(loadStart)}
			if err != nil {
				status.Error = err.Error()
				m.logger.Warn("model unavailable", "model", kind, "error", err)
			} else {
				status.Available = true
				m.logger.Info("model loaded", "model", kind, "elapsed", status.Elapsed)
			}
			statuses[i] = status
		}(i, l.kind, l.load, l.assign)
	}
	wg.Wait()

	available := make(map[ModelKind]ModelStatus, len(statuses))
	for _, s := range statuses {
		available[s.Kind] = s
	}
	m.anomalyModel = anomalyModel

	m.agents[models.KindProfile] = profileAgent{}
	m.agents[models.KindRootCause] = rootCauseAgent{}

	if anomalyModel != nil {
		m.agents[models.KindAnomaly] = anomalyAgent{model: anomalyModel}
	} else {
		m.agents[models.KindAnomaly] = unavailableAgent{models.KindAnomaly, available[ModelAnomalyDetector].Error}
	}
	if forecastModel != nil {
		m.agents[models.KindForecast] = forecastAgent{model: forecastModel}
	} else {
		m.agents[models.KindForecast] = unavailableAgent{models.KindForecast, available[ModelForecaster].Error}
	}
	if reasoner != nil {
		m.agents[models.KindInsight] = insightAgent{gen: reasoner}
		m.agents[models.KindRecommendation] = recommendationAgent{gen: reasoner}
	} else {
		m.agents[models.KindInsight] = unavailableAgent{models.KindInsight, available[ModelReasoner].Error}
		m.agents[models.KindRecommendation] = unavailableAgent{models.KindRecommendation, available[ModelReasoner].Error}
	}
	if conversational != nil {
		m.query = NewQueryAgent(conversational)
	}

	m.report = InitReport{
		Models:  statuses,
		Agents:  m.agentTable(),
		Elapsed: time.Since(start),
	}
	return m.report
}

func (m *Manager) agentTable() map[models.AgentKind]bool {
	table := make(map[models.AgentKind]bool, len(m.agents)+1)
	for kind, a := range m.agents {
		_, down := a.(unavailableAgent)
		table[kind] = !down
	}
	table[models.KindQuery] = m.query != nil
	return table
}

// Agent returns the agent for kind. Unavailable agents are returned too;
// they fail fast when run.
func (m *Manager) Agent(kind models.AgentKind) (Agent, bool) {
	a, ok := m.agents[kind]
	return a, ok
}

// Ready reports whether the agent for kind is backed by a loaded model.
func (m *Manager) Ready(kind models.AgentKind) bool {
	if kind == models.KindQuery {
		return m.query != nil
	}
	a, ok := m.agents[kind]
	if !ok {
		return false
	}
	_, down := a.(unavailableAgent)
	return !down
}

// Query returns the conversational agent, or an error when its model
// never loaded.
func (m *Manager) Query() (*QueryAgent, error) {
	if m.query == nil {
		return nil, fmt.Errorf("conversational model: %w", models.ErrModelUnavailable)
	}
	return m.query, nil
}

// AnomalyModel exposes the loaded detector for incremental scoring, or
// nil when it never loaded.
func (m *Manager) AnomalyModel() *AnomalyModel {
	return m.anomalyModel
}

// Report returns the most recent initialization report.
func (m *Manager) Report() InitReport {
	return m.report
}
