// Package engine assembles the analytics components behind one facade the
// server and CLI share.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/iris-analytics/iris/internal/agent"
	"github.com/iris-analytics/iris/internal/config"
	"github.com/iris-analytics/iris/internal/conversation"
	"github.com/iris-analytics/iris/internal/dataset"
	"github.com/iris-analytics/iris/internal/db"
	"github.com/iris-analytics/iris/internal/metrics"
	"github.com/iris-analytics/iris/internal/models"
	"github.com/iris-analytics/iris/internal/pipeline"
	"github.com/iris-analytics/iris/internal/realtime"
	"github.com/iris-analytics/iris/internal/store"
)

// Engine wires storage, agents, pipeline, conversations, and realtime
// simulation together.
type Engine struct {
	cfg    config.Config
	logger *slog.Logger

	dbClient  *db.Client
	store     store.Store
	manager   *agent.Manager
	pipeline  *pipeline.Pipeline
	convo     *conversation.Engine
	simulator *realtime.Simulator
	collector *metrics.Collector

	stopMetrics func()
}

// Option adjusts engine assembly, mainly for tests.
type Option func(*options)

type options struct {
	store       store.Store
	provider    dataset.Provider
	managerOpts []agent.Option
}

// WithStore runs the engine against a pre-built store and dataset
// provider instead of connecting to SurrealDB.
func WithStore(st store.Store, provider dataset.Provider) Option {
	return func(o *options) {
		o.store = st
		o.provider = provider
	}
}

// WithManagerOptions forwards options to the agent manager.
func WithManagerOptions(opts ...agent.Option) Option {
	return func(o *options) {
		o.managerOpts = append(o.managerOpts, opts...)
	}
}

// New builds and initializes an engine. Model load failures degrade the
// corresponding agents; they never fail construction.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Engine, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	e := &Engine{
		cfg:       cfg,
		logger:    logger,
		collector: metrics.NewCollector(),
	}

	if o.store != nil {
		e.store = o.store
	} else {
		client, err := db.NewClient(ctx, db.Config{
			URL:       cfg.SurrealDBURL,
			Namespace: cfg.SurrealDBNamespace,
			Database:  cfg.SurrealDBDatabase,
			Username:  cfg.SurrealDBUser,
			Password:  cfg.SurrealDBPass,
			AuthLevel: cfg.SurrealDBAuthLevel,
		}, logger)
		if err != nil {
			return nil, fmt.Errorf("connect database: %w", err)
		}
		if err := client.InitSchema(ctx); err != nil {
			_ = client.Close(ctx)
			return nil, fmt.Errorf("init schema: %w", err)
		}
		e.dbClient = client
		e.store = store.NewSurreal(client)
	}

	provider := o.provider
	if provider == nil {
		provider = dataset.NewFileProvider(e.store)
	}

	e.manager = agent.NewManager(cfg, logger, o.managerOpts...)
	report := e.manager.Initialize(ctx)
	logger.Info("agents initialized", "elapsed", report.Elapsed)

	e.pipeline = pipeline.New(e.store, e.manager, provider, logger, e.collector, cfg.AgentTimeout)
	e.convo = conversation.NewEngine(e.store, e.manager, logger)
	e.simulator = realtime.NewSimulator(realtime.NewBus(), e.manager.AnomalyModel(), logger, cfg.RealtimeInterval)

	e.watchPoints()
	return e, nil
}

// watchPoints mirrors bus traffic into the metrics collector.
func (e *Engine) watchPoints() {
	ch, cancel := e.simulator.Bus().Subscribe(256)
	e.stopMetrics = cancel
	go func() {
		for p := range ch {
			e.collector.RecordPoint(p.Flagged)
		}
	}()
}

// SubmitAnalysis starts an analysis job, or returns the live job's ID
// when one already runs for the dataset.
func (e *Engine) SubmitAnalysis(ctx context.Context, datasetID, caller string) (string, error) {
	return e.pipeline.Submit(ctx, datasetID, caller)
}

// JobStatus returns a job with its per-stage summaries.
func (e *Engine) JobStatus(ctx context.Context, jobID string) (*models.JobView, error) {
	return e.pipeline.JobView(ctx, jobID)
}

// CancelJob cooperatively cancels a running job.
func (e *Engine) CancelJob(jobID string) error {
	return e.pipeline.Cancel(jobID)
}

// WaitForJob blocks until the job finishes or ctx expires.
func (e *Engine) WaitForJob(ctx context.Context, jobID string) error {
	return e.pipeline.Wait(ctx, jobID)
}

// Jobs lists all jobs, most recent first.
func (e *Engine) Jobs(ctx context.Context) ([]*models.AnalysisJob, error) {
	return e.store.ListJobs(ctx)
}

// AgentResult returns one stage result of a job.
func (e *Engine) AgentResult(ctx context.Context, jobID string, kind models.AgentKind) (*models.AgentResult, error) {
	return e.store.GetAgentResult(ctx, jobID, kind)
}

// AgentResults returns all stage results of a job in pipeline order.
func (e *Engine) AgentResults(ctx context.Context, jobID string) ([]*models.AgentResult, error) {
	return e.store.ListAgentResults(ctx, jobID)
}

// Ask answers a question about an analyzed dataset.
func (e *Engine) Ask(ctx context.Context, sessionID, datasetID, question, caller string) (*conversation.Answer, error) {
	start := time.Now()
	answer, err := e.convo.Ask(ctx, sessionID, datasetID, question, caller)
	e.collector.RecordQuestion(time.Since(start), err == nil)
	return answer, err
}

// History returns the transcript of a conversation.
func (e *Engine) History(ctx context.Context, sessionID string) ([]*models.Message, error) {
	return e.convo.History(ctx, sessionID)
}

// AddDataset ingests a CSV file and registers it.
func (e *Engine) AddDataset(ctx context.Context, path, name string) (*models.Dataset, error) {
	ds, err := dataset.Ingest(path, name)
	if err != nil {
		return nil, err
	}
	if err := e.store.CreateDataset(ctx, ds); err != nil {
		return nil, err
	}
	e.logger.Info("dataset registered", "dataset", ds.ID, "name", ds.Name, "rows", ds.RowCount)
	return ds, nil
}

// Dataset returns one registered dataset.
func (e *Engine) Dataset(ctx context.Context, id string) (*models.Dataset, error) {
	return e.store.GetDataset(ctx, id)
}

// Datasets lists the registered datasets.
func (e *Engine) Datasets(ctx context.Context) ([]*models.Dataset, error) {
	return e.store.ListDatasets(ctx)
}

// StartStream launches a realtime stream.
func (e *Engine) StartStream(cfg realtime.StreamConfig) error {
	_, err := e.simulator.Start(cfg)
	return err
}

// StopStream halts a realtime stream, waiting for it to settle.
func (e *Engine) StopStream(name string) error {
	return e.simulator.Stop(name)
}

// Streams lists the running realtime streams.
func (e *Engine) Streams() []string {
	return e.simulator.Running()
}

// SubscribePoints taps the realtime bus. The cancel function must be
// called when done.
func (e *Engine) SubscribePoints(buffer int) (<-chan realtime.Point, func()) {
	return e.simulator.Bus().Subscribe(buffer)
}

// InitReport returns the agent initialization report.
func (e *Engine) InitReport() agent.InitReport {
	return e.manager.Report()
}

// AgentReady reports whether the agent for kind is operational.
func (e *Engine) AgentReady(kind models.AgentKind) bool {
	return e.manager.Ready(kind)
}

// Stats returns a snapshot of the runtime statistics.
func (e *Engine) Stats() metrics.Snapshot {
	return e.collector.Snapshot()
}

// Shutdown stops the streams and closes the database connection.
func (e *Engine) Shutdown(ctx context.Context) error {
	e.simulator.StopAll()
	if e.stopMetrics != nil {
		e.stopMetrics()
	}
	if e.dbClient != nil {
		if err := e.dbClient.Close(ctx); err != nil {
			return fmt.Errorf("close database: %w", err)
		}
	}
	e.logger.Info("engine shut down")
	return nil
}
