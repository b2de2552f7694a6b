// Package pipeline schedules the analysis agents over a dataset as a
// dependency-gated DAG and persists every stage outcome.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iris-analytics/iris/internal/agent"
	"github.com/iris-analytics/iris/internal/dataset"
	"github.com/iris-analytics/iris/internal/metrics"
	"github.com/iris-analytics/iris/internal/models"
	"github.com/iris-analytics/iris/internal/store"
)

// stageDeps is the prerequisite table. A stage runs only after every
// dependency has settled; gating is on recorded results, never on locks.
var stageDeps = map[models.AgentKind][]models.AgentKind{
	models.KindProfile:        nil,
	models.KindAnomaly:        {models.KindProfile},
	models.KindForecast:       {models.KindProfile},
	models.KindRootCause:      {models.KindAnomaly, models.KindForecast},
	models.KindInsight:        {models.KindRootCause},
	models.KindRecommendation: {models.KindRootCause},
}

// stageWaves groups the pipeline kinds into waves that can run
// concurrently. Derived from stageDeps by hand; the shape is small and
// fixed.
var stageWaves = [][]models.AgentKind{
	{models.KindProfile},
	{models.KindAnomaly, models.KindForecast},
	{models.KindRootCause},
	{models.KindInsight, models.KindRecommendation},
}

// run tracks one in-flight job.
type run struct {
	jobID     string
	datasetID string
	cancel    context.CancelFunc
	done      chan struct{}

	mu        sync.Mutex
	cancelled bool
}

// Pipeline owns job execution. Submissions return immediately; the stages
// run on a detached context so a disconnecting caller never aborts an
// analysis.
type Pipeline struct {
	store     store.Store
	manager   *agent.Manager
	provider  dataset.Provider
	logger    *slog.Logger
	collector *metrics.Collector
	timeout   time.Duration

	mu   sync.Mutex
	runs map[string]*run
}

// New creates a pipeline. timeout bounds each individual stage; collector
// may be nil.
func New(st store.Store, manager *agent.Manager, provider dataset.Provider, logger *slog.Logger, collector *metrics.Collector, timeout time.Duration) *Pipeline {
	return &Pipeline{
		store:     st,
		manager:   manager,
		provider:  provider,
		logger:    logger,
		collector: collector,
		timeout:   timeout,
		runs:      make(map[string]*run),
	}
}

// Submit starts an analysis job for a dataset. While a non-terminal job
// exists for the same dataset, Submit is idempotent: it returns that job's
// ID instead of creating a second one.
func (p *Pipeline) Submit(ctx context.Context, datasetID, caller string) (string, error) {
	if _, err := p.store.GetDataset(ctx, datasetID); err != nil {
		return "", fmt.Errorf("submit analysis: %w", err)
	}

	job := &models.AnalysisJob{
		ID:        strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		DatasetID: datasetID,
		Status:    models.JobQueued,
		Caller:    caller,
		CreatedAt: time.Now(),
	}

	existing, err := p.store.CreateJobIfAbsent(ctx, job)
	if errors.Is(err, models.ErrAlreadyExists) && existing != "" {
		p.logger.Debug("analysis already running", "dataset", datasetID, "job", existing)
		return existing, nil
	}
	if err != nil {
		return "", fmt.Errorf("submit analysis: %w", err)
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	r := &run{
		jobID:     job.ID,
		datasetID: datasetID,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	p.mu.Lock()
	p.runs[job.ID] = r
	p.mu.Unlock()

	go p.execute(runCtx, r)

	if p.collector != nil {
		p.collector.RecordJob()
	}
	p.logger.Info("analysis submitted", "dataset", datasetID, "job", job.ID, "caller", caller)
	return job.ID, nil
}

// Cancel requests cooperative cancellation of a running job. In-flight
// stages settle before the job transitions to cancelled; unstarted stages
// never run.
func (p *Pipeline) Cancel(jobID string) error {
	p.mu.Lock()
	r, ok := p.runs[jobID]
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("cancel job %s: %w", jobID, models.ErrNotFound)
	}
	r.mu.Lock()
	r.cancelled = true
	r.mu.Unlock()
	r.cancel()
	return nil
}

// Wait blocks until the job's run finishes or ctx expires. Jobs with no
// live run (already terminal, or unknown) return immediately.
func (p *Pipeline) Wait(ctx context.Context, jobID string) error {
	p.mu.Lock()
	r, ok := p.runs[jobID]
	p.mu.Unlock()
	if !ok {
		return nil
	}
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Running returns the job IDs with a live run, sorted.
func (p *Pipeline) Running() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ids := make([]string, 0, len(p.runs))
	for id := range p.runs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// JobView returns a job together with its per-stage summaries.
func (p *Pipeline) JobView(ctx context.Context, jobID string) (*models.JobView, error) {
	job, err := p.store.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	results, err := p.store.ListAgentResults(ctx, jobID)
	if err != nil {
		return nil, err
	}
	view := &models.JobView{Job: *job}
	for _, r := range results {
		view.Stages = append(view.Stages, models.StageSummary{
			Kind:      r.Kind,
			Status:    r.Status,
			ErrorKind: r.ErrorKind,
			Error:     r.Error,
		})
	}
	return view, nil
}

func (r *run) isCancelled() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cancelled
}

// execute drives one job through the stage waves. It always terminates the
// job and releases the dataset's live-job slot, whatever happens.
func (p *Pipeline) execute(ctx context.Context, r *run) {
	defer func() {
		p.mu.Lock()
		delete(p.runs, r.jobID)
		p.mu.Unlock()
		close(r.done)
	}()

	log := p.logger.With("job", r.jobID, "dataset", r.datasetID)
	started := time.Now()

	if err := p.store.UpdateJobStatus(ctx, r.jobID, models.JobRunning, ""); err != nil {
		log.Error("job start failed", "error", err)
		p.finish(ctx, r, models.JobFailed, "storage error: "+err.Error())
		return
	}

	frame, err := p.provider.Get(ctx, r.datasetID)
	if err != nil {
		log.Error("dataset load failed", "error", err)
		p.finish(ctx, r, models.JobFailed, "dataset load failed: "+err.Error())
		return
	}

	results := make(map[models.AgentKind]*models.AgentResult, len(stageDeps))
	for _, wave := range stageWaves {
		if r.isCancelled() {
			log.Info("job cancelled", "elapsed", time.Since(started))
			p.finish(ctx, r, models.JobCancelled, "")
			return
		}

		// Stages within a wave run concurrently against a snapshot of the
		// settled results, so no goroutine ever reads a map being written.
		upstream := make(map[models.AgentKind]*models.AgentResult, len(results))
		for k, v := range results {
			upstream[k] = v
		}

		var wg sync.WaitGroup
		waveResults := make([]*models.AgentResult, len(wave))
		for i, kind := range wave {
			wg.Add(1)
			go func(i int, kind models.AgentKind) {
				defer wg.Done()
				result := p.runStage(ctx, log, kind, frame, upstream)
				result.JobID = r.jobID
				waveResults[i] = result

				// Settled stages persist even when the job was cancelled
				// while they ran.
				if err := p.store.PutAgentResult(context.WithoutCancel(ctx), result); err != nil {
					log.Error("result persist failed", "stage", kind, "error", err)
				}
			}(i, kind)
		}
		wg.Wait()

		for _, result := range waveResults {
			results[result.Kind] = result
		}
	}

	status, errMsg := deriveStatus(results)
	if r.isCancelled() {
		status, errMsg = models.JobCancelled, ""
	}
	log.Info("job finished", "status", status, "elapsed", time.Since(started))
	p.finish(ctx, r, status, errMsg)
}

func (p *Pipeline) finish(ctx context.Context, r *run, status models.JobStatus, errMsg string) {
	// The run context may already be cancelled; the terminal transition
	// must still be persisted.
	ctx = context.WithoutCancel(ctx)
	if err := p.store.CompleteJob(ctx, r.jobID, r.datasetID, status, errMsg); err != nil {
		p.logger.Error("job completion failed", "job", r.jobID, "error", err)
	}
}

// runStage gates on prerequisites, then runs the agent bounded by the
// stage timeout. It always produces a result; agents never surface errors
// as control flow.
func (p *Pipeline) runStage(ctx context.Context, log *slog.Logger, kind models.AgentKind, frame *dataset.Frame, upstream map[models.AgentKind]*models.AgentResult) *models.AgentResult {
	for _, dep := range stageDeps[kind] {
		prereq, ok := upstream[dep]
		if !ok || prereq.Status == models.ResultFailed {
			return agent.Failed(kind, models.ErrorKindUpstreamFailure,
				fmt.Sprintf("prerequisite %s did not succeed", dep))
		}
		if prereq.Status == models.ResultSkipped {
			return agent.Skipped(kind)
		}
	}

	// An empty dataset profiles fine but makes every downstream stage
	// meaningless; record them skipped rather than failed.
	if kind != models.KindProfile && frame.Empty() {
		return agent.Skipped(kind)
	}

	a, ok := p.manager.Agent(kind)
	if !ok {
		return agent.Failed(kind, models.ErrorKindModelUnavailable, "no agent registered")
	}

	// Detached from the run context: cancellation is cooperative, so an
	// in-flight stage settles instead of being torn down mid-write. The
	// stage timeout still bounds it.
	stageCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	stageStart := time.Now()
	done := make(chan *models.AgentResult, 1)
	go func() { done <- a.Run(stageCtx, frame, upstream) }()

	var result *models.AgentResult
	select {
	case result = <-done:
		log.Debug("stage finished", "stage", kind, "status", result.Status, "elapsed", time.Since(stageStart))
	case <-stageCtx.Done():
		log.Warn("stage timed out", "stage", kind, "timeout", p.timeout)
		result = agent.Failed(kind, models.ErrorKindTimeout,
			fmt.Sprintf("stage exceeded %s", p.timeout))
	}
	if p.collector != nil {
		p.collector.RecordStage(kind, result.Status, time.Since(stageStart))
	}
	return result
}

// deriveStatus folds the stage results into the job's terminal status.
// Profiling failure fails the whole job; any other failure makes it
// partial; skipped stages never count against success.
func deriveStatus(results map[models.AgentKind]*models.AgentResult) (models.JobStatus, string) {
	if profile, ok := results[models.KindProfile]; ok && profile.Status == models.ResultFailed {
		return models.JobFailed, "profiling failed: " + profile.Error
	}

	var failed []string
	for _, kind := range models.PipelineKinds() {
		if r, ok := results[kind]; ok && r.Status == models.ResultFailed {
			failed = append(failed, string(kind))
		}
	}
	if len(failed) > 0 {
		return models.JobPartial, "failed stages: " + strings.Join(failed, ", ")
	}
	return models.JobSucceeded, ""
}
