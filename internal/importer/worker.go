package importer

// worker.go polls for pending jobs and runs them in the background.
//
// The worker runs one poll immediately, then every interval until its
// context is cancelled. Each pending job runs in its own goroutine while
// holding a limiter slot; when no slot is free the remaining jobs wait for
// the next poll.

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// DefaultPollInterval is used when a non-positive interval is given.
const DefaultPollInterval = 30 * time.Second

// Worker runs pending jobs.
type Worker struct {
	svc      *Service
	interval time.Duration
	batch    int

	mu       sync.Mutex
	inflight map[uuid.UUID]struct{}
	wg       sync.WaitGroup
}

// NewWorker creates a worker that polls every interval.
func NewWorker(svc *Service, interval time.Duration) *Worker {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	return &Worker{
		svc:      svc,
		interval: interval,
		batch:    cap(svc.limiter.slots) * 2,
		inflight: make(map[uuid.UUID]struct{}),
	}
}

// Run polls until ctx is cancelled, then waits for started runs to return.
// Runs are not cancelled with ctx; they finish or hit their own timeout.
func (w *Worker) Run(ctx context.Context) {
	slog.Info("import worker started", "interval", w.interval)

	w.Poll(ctx)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("import worker stopping", "inflight", w.Inflight())
			w.wg.Wait()
			slog.Info("import worker stopped")
			return
		case <-ticker.C:
			w.Poll(ctx)
		}
	}
}

// Poll starts as many pending jobs as there are free slots and returns the
// number started.
func (w *Worker) Poll(ctx context.Context) int {
	jobs, err := w.svc.store.ListJobs(ctx, domain.JobPending, w.batch)
	if err != nil {
		slog.Error("list pending jobs", "error", err)
		return 0
	}

	started := 0
	for _, job := range jobs {
		if !w.claim(job.ID) {
			continue
		}
		if !w.svc.limiter.TryAcquire() {
			w.done(job.ID)
			break
		}

		w.wg.Add(1)
		go func(id uuid.UUID) {
			defer w.wg.Done()
			defer w.done(id)
			w.svc.runInBackground(slog.Default(), id)
		}(job.ID)
		started++
	}

	if started > 0 {
		slog.Debug("pending jobs started", "count", started, "pending", len(jobs))
	}
	return started
}

// Wait blocks until every run started by the worker has returned.
func (w *Worker) Wait() { w.wg.Wait() }

// Inflight returns the number of runs the worker has in progress.
func (w *Worker) Inflight() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.inflight)
}

func (w *Worker) claim(id uuid.UUID) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	if _, ok := w.inflight[id]; ok {
		return false
	}
	w.inflight[id] = struct{}{}
	return true
}

func (w *Worker) done(id uuid.UUID) {
	w.mu.Lock()
	delete(w.inflight, id)
	w.mu.Unlock()
}
