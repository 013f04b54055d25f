package persist

import (
	"context"
	"errors"
	"testing"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

type recordingWriter struct {
	batches [][]*domain.Allocation
	err     error
}

func (w *recordingWriter) InsertAllocations(_ context.Context, batch []*domain.Allocation) (int64, error) {
	if w.err != nil {
		return 0, w.err
	}
	w.batches = append(w.batches, batch)
	return int64(len(batch)), nil
}

func TestPersister_FlushesAtBatchSize(t *testing.T) {
	w := &recordingWriter{}
	p := New(w, 2)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := p.Persist(ctx, &domain.Allocation{Age: i + 1}); err != nil {
			t.Fatalf("Persist() error = %v", err)
		}
	}

	if len(w.batches) != 2 {
		t.Fatalf("batches = %d, want 2", len(w.batches))
	}
	if p.Pending() != 1 {
		t.Errorf("Pending() = %d, want 1", p.Pending())
	}

	if err := p.Flush(ctx); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(w.batches) != 3 || len(w.batches[2]) != 1 || w.batches[2][0].Age != 5 {
		t.Errorf("final batch = %v", w.batches[len(w.batches)-1])
	}
	if p.Persisted() != 5 {
		t.Errorf("Persisted() = %d, want 5", p.Persisted())
	}
	if p.Flushes() != 3 {
		t.Errorf("Flushes() = %d, want 3", p.Flushes())
	}
}

func TestPersister_EmptyFlushIsNoop(t *testing.T) {
	w := &recordingWriter{}
	p := New(w, 0)

	if err := p.Flush(context.Background()); err != nil {
		t.Fatalf("Flush() error = %v", err)
	}
	if len(w.batches) != 0 || p.Flushes() != 0 {
		t.Errorf("batches = %d, flushes = %d, want 0/0", len(w.batches), p.Flushes())
	}
	if p.batchSize != DefaultBatchSize {
		t.Errorf("batchSize = %d, want %d", p.batchSize, DefaultBatchSize)
	}
}

func TestPersister_FlushError(t *testing.T) {
	boom := errors.New("copy failed")
	w := &recordingWriter{err: boom}
	p := New(w, 10)
	ctx := context.Background()

	_ = p.Persist(ctx, &domain.Allocation{})
	err := p.Flush(ctx)
	if !errors.Is(err, boom) {
		t.Fatalf("Flush() error = %v, want %v", err, boom)
	}
	if p.Pending() != 0 {
		t.Errorf("Pending() = %d after failed flush, want 0", p.Pending())
	}
	if p.Persisted() != 0 {
		t.Errorf("Persisted() = %d, want 0", p.Persisted())
	}
}
