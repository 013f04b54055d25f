package importer

import (
	"context"

	"github.com/google/uuid"

	"github.com/JonMunkholm/allocimport/internal/domain"
	"github.com/JonMunkholm/allocimport/internal/persist"
	"github.com/JonMunkholm/allocimport/internal/reject"
	"github.com/JonMunkholm/allocimport/internal/resolve"
)

// JobStore persists import jobs.
type JobStore interface {
	// GetJob returns domain.ErrNotFound when no job has the id.
	GetJob(ctx context.Context, id uuid.UUID) (*domain.ImportJob, error)
	CreateJob(ctx context.Context, job *domain.ImportJob) error
	UpdateJob(ctx context.Context, job *domain.ImportJob) error
	// ClaimJob atomically moves a job that is not running to running.
	// It reports false when the job is already running.
	ClaimJob(ctx context.Context, id uuid.UUID) (bool, error)
	// ListJobs returns jobs with the given status, oldest first.
	ListJobs(ctx context.Context, status domain.JobStatus, limit int) ([]*domain.ImportJob, error)
}

// Store is everything a run reads from and writes to.
type Store interface {
	JobStore
	resolve.ReferenceStore
	resolve.IndicationStore
	persist.AllocationWriter
	reject.RejectStore
}
