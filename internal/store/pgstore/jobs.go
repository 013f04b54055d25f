package pgstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

const jobColumns = `id, hospital_id, file_path, file_name, file_size, encoding, status,
	rows_total, rows_passed, rows_rejected, run_count, run_time_ms,
	reject_path, last_error, created_at, updated_at`

func (s *Store) CreateJob(ctx context.Context, job *domain.ImportJob) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO import_jobs (`+jobColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
		pgUUID(job.ID), job.HospitalID, job.FilePath, job.FileName, job.FileSize, job.Encoding, string(job.Status),
		job.RowsTotal, job.RowsPassed, job.RowsRejected, job.RunCount, job.RunTime.Milliseconds(),
		pgText(job.RejectPath), job.LastError, job.CreatedAt, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert import job: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*domain.ImportJob, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+jobColumns+` FROM import_jobs WHERE id = $1`, pgUUID(id))
	job, err := scanJob(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import job: %w", err)
	}
	return job, nil
}

func (s *Store) UpdateJob(ctx context.Context, job *domain.ImportJob) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_jobs SET
			status = $2, rows_total = $3, rows_passed = $4, rows_rejected = $5,
			run_count = $6, run_time_ms = $7, reject_path = $8, last_error = $9, updated_at = $10
		 WHERE id = $1`,
		pgUUID(job.ID), string(job.Status), job.RowsTotal, job.RowsPassed, job.RowsRejected,
		job.RunCount, job.RunTime.Milliseconds(), pgText(job.RejectPath), job.LastError, job.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update import job: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ClaimJob(ctx context.Context, id uuid.UUID) (bool, error) {
	tag, err := s.pool.Exec(ctx,
		`UPDATE import_jobs SET status = $2, updated_at = now()
		 WHERE id = $1 AND status <> $2`,
		pgUUID(id), string(domain.JobRunning),
	)
	if err != nil {
		return false, fmt.Errorf("claim import job: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

func (s *Store) ListJobs(ctx context.Context, status domain.JobStatus, limit int) ([]*domain.ImportJob, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT `+jobColumns+` FROM import_jobs WHERE status = $1 ORDER BY created_at LIMIT $2`,
		string(status), limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}
	defer rows.Close()

	var jobs []*domain.ImportJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan import job: %w", err)
		}
		jobs = append(jobs, job)
	}
	return jobs, rows.Err()
}

func scanJob(row pgx.Row) (*domain.ImportJob, error) {
	var (
		job        domain.ImportJob
		id         pgtype.UUID
		status     string
		runTimeMS  int64
		rejectPath pgtype.Text
	)
	err := row.Scan(
		&id, &job.HospitalID, &job.FilePath, &job.FileName, &job.FileSize, &job.Encoding, &status,
		&job.RowsTotal, &job.RowsPassed, &job.RowsRejected, &job.RunCount, &runTimeMS,
		&rejectPath, &job.LastError, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	job.ID = uuid.UUID(id.Bytes)
	job.Status = domain.JobStatus(status)
	job.RunTime = time.Duration(runTimeMS) * time.Millisecond
	job.RejectPath = textPtr(rejectPath)
	return &job, nil
}
