package crawl

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/Lxr713/AO3-Crawler/pkg/checkpoint"
	"github.com/Lxr713/AO3-Crawler/pkg/config"
	"github.com/Lxr713/AO3-Crawler/pkg/metrics"
	"github.com/Lxr713/AO3-Crawler/pkg/models"
	"github.com/Lxr713/AO3-Crawler/pkg/utils"
)

// Processor handles one unit end to end: fetch, extract, emit. A nil return
// marks the unit completed; a context error marks it interrupted (still
// pending next run); any other error is a terminal failure recorded in the
// checkpoint.
type Processor interface {
	Process(ctx context.Context, id string) error
}

// State is the orchestrator's lifecycle phase, for observability only.
type State string

const (
	StateIdle       State = "idle"
	StateLoading    State = "loading"
	StateRunning    State = "running"
	StateCancelling State = "cancelling"
	StateDraining   State = "draining"
	StateDone       State = "done"
)

// Options tweak a single run.
type Options struct {
	// RetryFailed clears the checkpoint's failed set at Loading, returning
	// previously abandoned units to pending. Failed units are otherwise
	// sticky across runs.
	RetryFailed bool
}

// Orchestrator is the run engine: it derives the pending unit set from the
// checkpoint, launches one task per pending unit (in-flight HTTP bounded by
// the fetcher's limiter), drains outcomes in completion order, mutates the
// checkpoint on every terminal outcome and persists it periodically, and
// shuts down gracefully on context cancellation without corrupting state.
type Orchestrator struct {
	cfg   *config.AppConfig
	store *checkpoint.Store
	proc  Processor
	opts  Options
	runID string
	log   *logrus.Entry

	mu    sync.Mutex
	state State
}

// unitResult is one task's terminal outcome, consumed in completion order.
type unitResult struct {
	id     string
	status models.UnitStatus
	reason string
}

// New creates an Orchestrator for one run.
func New(cfg *config.AppConfig, store *checkpoint.Store, proc Processor, runID string, opts Options, log *logrus.Entry) *Orchestrator {
	return &Orchestrator{
		cfg:   cfg,
		store: store,
		proc:  proc,
		opts:  opts,
		runID: runID,
		log:   log.WithField("run_id", runID),
		state: StateIdle,
	}
}

// State returns the current lifecycle phase.
func (o *Orchestrator) State() State {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.state
}

func (o *Orchestrator) setState(s State) {
	o.mu.Lock()
	o.state = s
	o.mu.Unlock()
	o.log.WithField("state", s).Debug("State transition")
}

// Run loads the checkpoint, merges units, processes everything pending and
// blocks until the run drains. Individual unit failures never abort the run;
// only cancellation (returned as the context's error) or pending exhaustion
// ends it. The returned summary is valid in both cases.
func (o *Orchestrator) Run(ctx context.Context, units []string) (models.RunSummary, error) {
	// --- Loading ---
	o.setState(StateLoading)
	loadStatus := o.store.Load()
	o.log.WithField("load_status", loadStatus).Info("Checkpoint loaded")

	if o.opts.RetryFailed {
		if n := o.store.ClearFailed(); n > 0 {
			o.log.Infof("Cleared %d failed units for re-attempt", n)
		}
	}
	if added := o.store.MergeUnits(units); added > 0 {
		o.log.Infof("Merged %d new units", added)
	}

	pending := o.store.Pending()
	stats := o.store.Stats()
	o.log.WithFields(logrus.Fields{
		"total": stats.Total, "completed": stats.Completed,
		"failed": stats.Failed, "pending": len(pending),
	}).Info("Run starting")

	if len(pending) == 0 {
		o.log.Info("Nothing pending, all units already processed")
		o.setState(StateDone)
		return o.summary(false), nil
	}

	// --- Running ---
	o.setState(StateRunning)

	// One goroutine per pending unit; in-flight HTTP is bounded by the
	// fetcher's semaphore, not by launch throttling, so completions arrive
	// in arbitrary order.
	resultCh := make(chan unitResult)
	var wg sync.WaitGroup
	for _, id := range pending {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			resultCh <- o.processUnit(ctx, id)
		}(id)
	}
	go func() {
		wg.Wait()
		close(resultCh)
	}()

	// Log the transition to cancelling exactly once, when the signal lands.
	cancelSeen := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			o.setState(StateCancelling)
			o.log.Warn("Cancellation received, letting in-flight tasks reach their next suspension point")
		case <-cancelSeen:
		}
	}()
	defer close(cancelSeen)

	// Drain outcomes in completion order. Checkpoint mutation is the only
	// critical section and is internal to the store.
	terminal := 0
	interrupted := 0
	for res := range resultCh {
		switch res.status {
		case models.UnitStatusSuccess:
			o.store.MarkCompleted(res.id)
			metrics.UnitsCompleted.Inc()
			terminal++
			o.log.WithField("unit", res.id).Info("Unit completed")
		case models.UnitStatusFailed:
			o.store.MarkFailed(res.id, res.reason)
			metrics.UnitsFailed.Inc()
			terminal++
			o.log.WithFields(logrus.Fields{"unit": res.id, "reason": res.reason}).Error("Unit failed")
		case models.UnitStatusInterrupted:
			interrupted++
			o.log.WithField("unit", res.id).Debug("Unit interrupted, stays pending")
		}

		// Periodic flush caps crash re-work to one interval's worth of
		// units. A failed flush is reported and retried on the next one.
		if terminal > 0 && terminal%o.cfg.CheckpointInterval == 0 {
			if err := o.store.Persist(); err != nil {
				o.log.Errorf("Periodic checkpoint persist failed, continuing: %v", err)
			} else {
				s := o.store.Stats()
				o.log.WithFields(logrus.Fields{
					"completed": s.Completed, "failed": s.Failed, "pending": s.Pending,
				}).Info("Checkpoint persisted")
			}
		}
	}

	// --- Draining ---
	o.setState(StateDraining)
	if err := o.store.Persist(); err != nil {
		o.log.Errorf("Final checkpoint persist failed: %v", err)
	}

	wasCancelled := ctx.Err() != nil
	sum := o.summary(wasCancelled)
	o.log.WithFields(logrus.Fields{
		"total": sum.Total, "completed": sum.Completed, "failed": sum.Failed,
		"pending": sum.Pending, "percent_done": sum.PercentDone, "interrupted_tasks": interrupted,
	}).Info("Run drained")

	o.setState(StateDone)
	if wasCancelled {
		return sum, ctx.Err()
	}
	return sum, nil
}

// processUnit runs one task, translating its error into a UnitStatus. Units
// cancelled before or during processing stay pending; they are neither
// completed nor failed.
func (o *Orchestrator) processUnit(ctx context.Context, id string) unitResult {
	if ctx.Err() != nil {
		return unitResult{id: id, status: models.UnitStatusInterrupted}
	}

	err := o.proc.Process(ctx, id)
	switch {
	case err == nil:
		return unitResult{id: id, status: models.UnitStatusSuccess}
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		return unitResult{id: id, status: models.UnitStatusInterrupted}
	default:
		return unitResult{id: id, status: models.UnitStatusFailed, reason: failureReason(err)}
	}
}

// failureReason maps a processor error to the checkpoint's recorded reason.
// Extraction failures get a fixed marker so operators can tell "server
// problem" from "content shape changed" at a glance.
func failureReason(err error) string {
	if errors.Is(err, utils.ErrParse) {
		return "parse_failed"
	}
	return err.Error()
}

// summary builds the run summary from current checkpoint counters.
func (o *Orchestrator) summary(interrupted bool) models.RunSummary {
	s := o.store.Stats()
	pct := 0.0
	if s.Total > 0 {
		pct = float64(s.Completed) / float64(s.Total) * 100
	}
	return models.RunSummary{
		RunID:       o.runID,
		Total:       s.Total,
		Completed:   s.Completed,
		Failed:      s.Failed,
		Pending:     s.Pending,
		PercentDone: pct,
		Interrupted: interrupted,
		FinishedAt:  time.Now(),
	}
}
