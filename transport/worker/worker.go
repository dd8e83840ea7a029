package worker

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"
)

// Job is one periodic task. Distinct jobs run independently of each other,
// but a single job is never invoked while its previous run is in flight; a
// tick that arrives mid-run is skipped.
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

// JobStats are the observable counters for one job, exposed through the
// status surface.
type JobStats struct {
	Name    string     `json:"name"`
	Runs    uint64     `json:"runs"`
	Errors  uint64     `json:"errors"`
	LastRun *time.Time `json:"last_run,omitempty"`
}

type jobState struct {
	job     Job
	running atomic.Bool

	mu    sync.Mutex
	stats JobStats
}

// Worker drives a small fixed set of periodic jobs. Each job gets its own
// goroutine, a randomized startup delay bounded by MaxJitter, and an
// immediate first run once the delay elapses.
type Worker struct {
	// MaxJitter bounds the random startup delay per job. Zero disables it.
	MaxJitter time.Duration

	jobs   []*jobState
	log    *slog.Logger
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

func New(log *slog.Logger, jobs ...Job) *Worker {
	w := &Worker{
		MaxJitter: 10 * time.Second,
		log:       log,
	}
	for _, job := range jobs {
		w.jobs = append(w.jobs, &jobState{job: job, stats: JobStats{Name: job.Name}})
	}
	return w
}

func (w *Worker) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)
	for _, js := range w.jobs {
		w.wg.Add(1)
		go w.loop(ctx, js)
	}
	w.log.Info("worker started", "jobs", len(w.jobs))
}

// Stop cancels future ticks and waits for in-flight cycles to run to
// completion.
func (w *Worker) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.wg.Wait()
}

func (w *Worker) loop(ctx context.Context, js *jobState) {
	defer w.wg.Done()

	if w.MaxJitter > 0 {
		jitter := time.Duration(rand.Int63n(int64(w.MaxJitter)))
		select {
		case <-ctx.Done():
			return
		case <-time.After(jitter):
		}
	}
	w.fire(ctx, js)

	ticker := time.NewTicker(js.job.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.fire(ctx, js)
		}
	}
}

// fire runs one cycle. Nothing the cycle does, error or panic, reaches the
// ticker loop; failures are counted and the next tick fires normally.
func (w *Worker) fire(ctx context.Context, js *jobState) {
	if !js.running.CompareAndSwap(false, true) {
		w.log.Warn("previous run still in progress, skipping tick", "job", js.job.Name)
		return
	}
	defer js.running.Store(false)

	err := runSafely(ctx, js.job)
	now := time.Now().UTC()
	js.mu.Lock()
	js.stats.Runs++
	js.stats.LastRun = &now
	if err != nil {
		js.stats.Errors++
	}
	js.mu.Unlock()

	if err != nil {
		w.log.Error("job cycle failed", "job", js.job.Name, "err", err)
	}
}

func runSafely(ctx context.Context, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return job.Run(ctx)
}

// JobStats returns a snapshot of every job's counters.
func (w *Worker) JobStats() []JobStats {
	out := make([]JobStats, 0, len(w.jobs))
	for _, js := range w.jobs {
		js.mu.Lock()
		s := js.stats
		if js.stats.LastRun != nil {
			t := *js.stats.LastRun
			s.LastRun = &t
		}
		js.mu.Unlock()
		out = append(out, s)
	}
	return out
}
