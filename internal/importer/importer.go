// Package importer drives import runs: it moves an ImportJob from pending
// through running to completed or failed, streaming its file row by row
// through mapping, validation, resolution and persistence.
//
// Rows that fail validation or resolution are written to a reject sink and
// the run continues. Any other error aborts the run and marks the job failed.
// Job counters are written once, from the run summary, after the row loop.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/JonMunkholm/allocimport/internal/domain"
	"github.com/JonMunkholm/allocimport/internal/logging"
	"github.com/JonMunkholm/allocimport/internal/mapper"
	"github.com/JonMunkholm/allocimport/internal/persist"
	"github.com/JonMunkholm/allocimport/internal/reject"
	"github.com/JonMunkholm/allocimport/internal/resolve"
	"github.com/JonMunkholm/allocimport/internal/source"
	"github.com/JonMunkholm/allocimport/internal/validate"
)

var (
	// ErrJobNotFound is returned when the job id is unknown.
	ErrJobNotFound = errors.New("import job not found")

	// ErrJobRunning is returned when the job is already being run.
	ErrJobRunning = errors.New("import job is already running")

	// ErrInvalidHospital is returned by Enqueue for a non-positive hospital id.
	ErrInvalidHospital = errors.New("invalid hospital id")
)

// contextCheckInterval is how many rows are processed between checks for
// a cancelled context.
const contextCheckInterval = 1000

// Options configures a Service.
type Options struct {
	// BaseDir is the directory uploaded files live in.
	BaseDir string
	// MaxFileSize is the largest accepted input, in bytes.
	MaxFileSize int64
	// BatchSize is the persister's flush threshold.
	BatchSize int
	// RejectKind selects the reject sink; RejectDir is the file sink's root.
	RejectKind reject.Kind
	RejectDir  string
	// Source holds the CSV dialect. Its Encoding is replaced by the job's.
	Source source.Options
	// Location is the time zone of the timestamps in input files.
	Location *time.Location
	// RunTimeout bounds a background run started with Start. Zero means no limit.
	RunTimeout time.Duration
}

// Service runs import jobs.
type Service struct {
	store     Store
	opts      Options
	validator validate.Validator
	limiter   *Limiter
	now       func() time.Time
}

// NewService creates a Service. A nil validator uses validate.Default.
func NewService(store Store, v validate.Validator, limiter *Limiter, opts Options) *Service {
	if v == nil {
		v = validate.Default()
	}
	if limiter == nil {
		limiter = NewLimiter(0, 0)
	}
	if opts.Source.Delimiter == 0 {
		opts.Source = source.DefaultOptions()
	}
	return &Service{
		store:     store,
		opts:      opts,
		validator: v,
		limiter:   limiter,
		now:       time.Now,
	}
}

// Limiter returns the limiter shared by Start and the Worker.
func (s *Service) Limiter() *Limiter { return s.limiter }

// Enqueue registers a pending job for a file below the base directory.
func (s *Service) Enqueue(ctx context.Context, hospitalID int64, path, encoding string) (*domain.ImportJob, error) {
	if hospitalID <= 0 {
		return nil, fmt.Errorf("%w: %d", ErrInvalidHospital, hospitalID)
	}
	resolved, info, err := ResolvePath(s.opts.BaseDir, path, s.opts.MaxFileSize)
	if err != nil {
		return nil, err
	}
	if encoding == "" {
		encoding = s.opts.Source.Encoding
	}

	job := domain.NewImportJob(hospitalID, resolved, filepath.Base(resolved), info.Size(), encoding)
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	logging.ForJob(ctx, job.ID).Info("job enqueued",
		"hospital_id", hospitalID,
		"file", job.FileName,
		"size", job.FileSize,
	)
	return job, nil
}

// Job loads a job by id.
func (s *Service) Job(ctx context.Context, id uuid.UUID) (*domain.ImportJob, error) {
	job, err := s.store.GetJob(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, fmt.Errorf("%w: %s", ErrJobNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load job: %w", err)
	}
	return job, nil
}

// Jobs lists jobs with the given status, oldest first.
func (s *Service) Jobs(ctx context.Context, status domain.JobStatus, limit int) ([]*domain.ImportJob, error) {
	jobs, err := s.store.ListJobs(ctx, status, limit)
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	return jobs, nil
}

// Rejects lists the rejected rows of a job's last run, from the reject file
// when the run wrote one and from the reject table otherwise.
func (s *Service) Rejects(ctx context.Context, id uuid.UUID, limit, offset int) ([]domain.RejectRecord, error) {
	job, err := s.Job(ctx, id)
	if err != nil {
		return nil, err
	}
	if job.RejectPath != nil && *job.RejectPath != "" {
		return reject.ReadFile(*job.RejectPath, limit, offset)
	}
	return s.store.ListRejects(ctx, id, limit, offset)
}

// Start runs a job in the background under the limiter. It returns once a
// slot is held and the job is known to exist and not be running.
func (s *Service) Start(ctx context.Context, id uuid.UUID) error {
	job, err := s.Job(ctx, id)
	if err != nil {
		return err
	}
	if job.Status == domain.JobRunning {
		return fmt.Errorf("%w: %s", ErrJobRunning, id)
	}

	if err := s.limiter.Acquire(ctx); err != nil {
		return err
	}
	go s.runInBackground(logging.FromContext(ctx), id)
	return nil
}

// runInBackground runs a job on its own context and releases the limiter slot.
func (s *Service) runInBackground(log *slog.Logger, id uuid.UUID) {
	defer s.limiter.Release()
	defer func() {
		if r := recover(); r != nil {
			log.Error("panic in import run", "import_id", id, "panic", r)
		}
	}()

	ctx := context.Background()
	if s.opts.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.opts.RunTimeout)
		defer cancel()
	}

	if _, err := s.Run(ctx, id); err != nil {
		log.Error("import run failed", "import_id", id, "error", err)
	}
}

// Run imports the job's file synchronously and returns the run summary.
//
// Row-scoped problems are rejected and counted. Any other error, including a
// cancelled ctx, marks the job failed and is returned along with the partial
// summary. Rows flushed before the failure stay persisted. A panic inside the
// run marks the job failed before it is re-raised.
func (s *Service) Run(ctx context.Context, id uuid.UUID) (domain.Summary, error) {
	job, err := s.Job(ctx, id)
	if err != nil {
		return domain.Summary{}, err
	}
	if job.Status == domain.JobRunning {
		return domain.Summary{}, fmt.Errorf("%w: %s", ErrJobRunning, id)
	}

	r := &run{
		svc:   s,
		job:   job,
		log:   logging.ForJob(ctx, job.ID),
		start: s.now(),
	}

	claimed, err := s.store.ClaimJob(ctx, job.ID)
	if err != nil {
		return domain.Summary{}, fmt.Errorf("claim job: %w", err)
	}
	if !claimed {
		return domain.Summary{}, fmt.Errorf("%w: %s", ErrJobRunning, id)
	}
	job.Status = domain.JobRunning

	// The job is only written after a successful claim.
	path, _, err := ResolvePath(s.opts.BaseDir, job.FilePath, s.opts.MaxFileSize)
	if err != nil {
		return domain.Summary{}, r.fail(ctx, err)
	}

	return r.execute(ctx, path)
}

// run is the state of a single import run.
type run struct {
	svc *Service
	job *domain.ImportJob
	log *slog.Logger

	start     time.Time
	summary   domain.Summary
	persister *persist.Persister
	sink      reject.Sink
}

func (r *run) execute(ctx context.Context, path string) (domain.Summary, error) {
	s := r.svc

	defer func() {
		if p := recover(); p != nil {
			r.flushBestEffort(ctx)
			_ = r.fail(ctx, fmt.Errorf("panic: %v", p))
			panic(p)
		}
	}()

	opts := s.opts.Source
	opts.Encoding = r.job.Encoding
	src, err := source.Open(path, opts)
	if err != nil {
		return r.summary, r.fail(ctx, fmt.Errorf("open source: %w", err))
	}
	defer src.Close()

	sink, err := reject.New(s.opts.RejectKind, s.opts.RejectDir, s.store)
	if err != nil {
		return r.summary, r.fail(ctx, err)
	}
	if err := sink.Start(ctx, r.job); err != nil {
		return r.summary, r.fail(ctx, fmt.Errorf("start reject sink: %w", err))
	}
	r.sink = sink
	defer func() {
		if cerr := sink.Close(); cerr != nil {
			r.log.Error("close reject sink", "error", cerr)
		}
	}()

	chain := resolve.NewChain(resolve.Config{
		References:  s.store,
		Indications: s.store,
		Location:    s.opts.Location,
	})
	if err := chain.Warm(ctx); err != nil {
		return r.summary, r.fail(ctx, err)
	}
	r.persister = persist.New(s.store, s.opts.BatchSize)

	r.log.Info("import started",
		"file", r.job.FileName,
		"encoding", src.Encoding(),
		"sink", s.opts.RejectKind,
		"columns", len(src.Header()),
	)

	if err := r.loop(ctx, src, chain); err != nil {
		r.flushBestEffort(ctx)
		return r.summary, r.fail(ctx, err)
	}
	if err := r.persister.Flush(ctx); err != nil {
		return r.summary, r.fail(ctx, err)
	}

	// Close before recording the path so the file is complete on disk.
	if err := sink.Close(); err != nil {
		return r.summary, r.fail(ctx, err)
	}
	return r.summary, r.complete(ctx)
}

// loop processes rows until the source is exhausted. It returns only
// errors that abort the run.
func (r *run) loop(ctx context.Context, src source.Source, chain *resolve.Chain) error {
	for {
		if r.summary.Total%contextCheckInterval == 0 && ctx.Err() != nil {
			return ctx.Err()
		}

		row, err := src.Next()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("read line after %d rows: %w", r.summary.Total, err)
		}
		r.summary.Total++

		rec := mapper.Map(row.Assoc())

		if violations := r.svc.validator.Validate(rec); len(violations) > 0 {
			msgs := make([]string, len(violations))
			for i, v := range violations {
				msgs[i] = v.String()
			}
			if err := r.reject(ctx, row, msgs); err != nil {
				return err
			}
			continue
		}

		alloc, err := chain.Resolve(ctx, r.job, rec)
		if err != nil {
			if !resolve.IsRowError(err) {
				return fmt.Errorf("resolve line %d: %w", row.Line, err)
			}
			if err := r.reject(ctx, row, []string{err.Error()}); err != nil {
				return err
			}
			continue
		}

		if err := r.persister.Persist(ctx, alloc); err != nil {
			return err
		}
		r.summary.OK++
	}
}

func (r *run) reject(ctx context.Context, row source.Row, msgs []string) error {
	line := row.Line
	r.log.Debug("row rejected", "line", line, "messages", msgs)
	rec := domain.RejectRecord{Line: &line, Messages: msgs, Row: domain.NewRowData(row.Header, row.Cells)}
	if err := r.sink.Write(ctx, rec); err != nil {
		return err
	}
	r.summary.Rejected++
	return nil
}

func (r *run) flushBestEffort(ctx context.Context) {
	if r.persister == nil {
		return
	}
	defer func() {
		if p := recover(); p != nil {
			r.log.Error("panic during best-effort flush", "panic", p)
		}
	}()
	if err := r.persister.Flush(context.WithoutCancel(ctx)); err != nil {
		r.log.Warn("best-effort flush failed", "error", err)
	}
}

// complete records the summary on the job and marks it completed.
func (r *run) complete(ctx context.Context) error {
	job := r.job
	job.Status = domain.JobCompleted
	job.RowsTotal = r.summary.Total
	job.RowsPassed = r.summary.OK
	job.RowsRejected = r.summary.Rejected
	job.LastError = ""
	job.RejectPath = nil
	if r.summary.Rejected > 0 {
		if p := r.sink.Path(); p != "" {
			job.RejectPath = &p
		}
	}
	r.finishRun()

	if err := r.svc.store.UpdateJob(context.WithoutCancel(ctx), job); err != nil {
		return fmt.Errorf("update job: %w", err)
	}

	r.log.Info("import completed",
		"total", r.summary.Total,
		"ok", r.summary.OK,
		"rejected", r.summary.Rejected,
		"duration_ms", job.RunTime.Milliseconds(),
	)
	return nil
}

// fail marks the job failed and returns cause, joined with any error from
// saving the job.
func (r *run) fail(ctx context.Context, cause error) error {
	job := r.job
	job.Status = domain.JobFailed
	job.LastError = cause.Error()
	r.finishRun()

	r.log.Error("import failed",
		"error", cause,
		"total", r.summary.Total,
		"ok", r.summary.OK,
		"rejected", r.summary.Rejected,
		"duration_ms", job.RunTime.Milliseconds(),
	)

	if err := r.svc.store.UpdateJob(context.WithoutCancel(ctx), job); err != nil {
		return errors.Join(cause, fmt.Errorf("update job: %w", err))
	}
	return cause
}

func (r *run) finishRun() {
	now := r.svc.now()
	r.job.RunCount++
	r.job.RunTime = now.Sub(r.start)
	r.job.UpdatedAt = now.UTC()
}
