package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/bobby-s-dev/calver-weather/internal/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type Refreshable interface {
	Refresh(ctx context.Context, kind models.Kind) error
}

// Refresher dispatches refresh operations on demand, one goroutine per kind,
// and tracks which kinds are in flight. With dedupe enabled a trigger for a
// kind that is still running is skipped; otherwise overlapping refreshes race
// and the last to finish wins.
type Refresher struct {
	pipeline Refreshable
	logger   *zap.Logger
	timeout  time.Duration
	dedupe   bool

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu       sync.Mutex
	stopped  bool
	inFlight map[models.Kind]int
	lastRun  time.Time
	runs     int
	skipped  int
}

// Run is the handle for one trigger.
type Run struct {
	ID        string
	Triggered []models.Kind
	Skipped   []models.Kind
	done      chan struct{}
}

func (r *Run) Done() <-chan struct{} {
	return r.done
}

// Wait blocks until every triggered operation has finished or ctx is done.
func (r *Run) Wait(ctx context.Context) error {
	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func NewRefresher(pipeline Refreshable, timeout time.Duration, dedupe bool, logger *zap.Logger) *Refresher {
	ctx, cancel := context.WithCancel(context.Background())
	return &Refresher{
		pipeline: pipeline,
		logger:   logger,
		timeout:  timeout,
		dedupe:   dedupe,
		ctx:      ctx,
		cancel:   cancel,
		inFlight: make(map[models.Kind]int),
	}
}

// ForceRun triggers the given kinds, or all kinds when none are given.
func (r *Refresher) ForceRun(kinds ...models.Kind) *Run {
	if len(kinds) == 0 {
		kinds = models.AllKinds
	}

	run := &Run{ID: uuid.NewString(), done: make(chan struct{})}

	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		run.Skipped = append(run.Skipped, kinds...)
		close(run.done)
		r.logger.Warn("Refresh requested after stop", zap.String("run_id", run.ID))
		return run
	}
	r.lastRun = time.Now()
	r.runs++
	for _, kind := range kinds {
		if r.dedupe && r.inFlight[kind] > 0 {
			run.Skipped = append(run.Skipped, kind)
			r.skipped++
			continue
		}
		r.inFlight[kind]++
		run.Triggered = append(run.Triggered, kind)
	}
	r.wg.Add(len(run.Triggered))
	r.mu.Unlock()

	r.logger.Info("Manually triggering weather refresh",
		zap.String("run_id", run.ID),
		zap.Strings("triggered", kindNames(run.Triggered)),
		zap.Strings("skipped", kindNames(run.Skipped)))

	var wg sync.WaitGroup
	wg.Add(len(run.Triggered))
	for _, kind := range run.Triggered {
		go func(kind models.Kind) {
			defer wg.Done()
			r.runKind(run.ID, kind)
		}(kind)
	}
	go func() {
		wg.Wait()
		close(run.done)
	}()

	return run
}

func (r *Refresher) runKind(runID string, kind models.Kind) {
	defer r.wg.Done()
	defer func() {
		r.mu.Lock()
		r.inFlight[kind]--
		r.mu.Unlock()
	}()

	ctx := r.ctx
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	// Failures are logged by the pipeline and never reach the caller.
	if err := r.pipeline.Refresh(ctx, kind); err != nil {
		r.logger.Debug("Refresh did not advance model",
			zap.String("run_id", runID),
			zap.String("kind", string(kind)))
	}
}

// InFlight reports how many operations of kind are running.
func (r *Refresher) InFlight(kind models.Kind) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.inFlight[kind]
}

// Stop cancels in-flight operations and waits for them to return.
func (r *Refresher) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.logger.Info("Stopping refresher")
	r.cancel()
	r.wg.Wait()
}

func (r *Refresher) GetStatus() map[string]interface{} {
	r.mu.Lock()
	defer r.mu.Unlock()

	inFlight := make(map[string]int, len(r.inFlight))
	for k, v := range r.inFlight {
		inFlight[string(k)] = v
	}

	return map[string]interface{}{
		"stopped":   r.stopped,
		"dedupe":    r.dedupe,
		"timeout":   r.timeout.String(),
		"last_run":  r.lastRun,
		"runs":      r.runs,
		"skipped":   r.skipped,
		"in_flight": inFlight,
	}
}

func kindNames(kinds []models.Kind) []string {
	out := make([]string, len(kinds))
	for i, k := range kinds {
		out[i] = string(k)
	}
	return out
}
