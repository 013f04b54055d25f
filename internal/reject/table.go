package reject

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// TableSink inserts one row per reject into the reject table.
type TableSink struct {
	store RejectStore
	job   *domain.ImportJob
	count int
}

// NewTableSink creates a sink backed by store.
func NewTableSink(store RejectStore) *TableSink {
	return &TableSink{store: store}
}

func (s *TableSink) Start(_ context.Context, job *domain.ImportJob) error {
	s.job = job
	s.count = 0
	return nil
}

func (s *TableSink) Write(ctx context.Context, rec domain.RejectRecord) error {
	if s.job == nil {
		return errors.New("reject sink not started")
	}
	if err := s.store.InsertReject(ctx, s.job.ID, rec); err != nil {
		return fmt.Errorf("insert reject: %w", err)
	}
	s.count++
	return nil
}

func (s *TableSink) Close() error { return nil }

func (s *TableSink) Count() int { return s.count }

// Path returns "": table rejects have no file.
func (s *TableSink) Path() string { return "" }
