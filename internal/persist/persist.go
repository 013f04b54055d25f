// Package persist buffers resolved allocations and writes them in batches.
//
// Batching is for throughput only. A batch that has been flushed stays
// written even if a later batch fails.
package persist

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// DefaultBatchSize is used when a non-positive batch size is given.
const DefaultBatchSize = 500

// AllocationWriter stores a batch of allocations.
type AllocationWriter interface {
	InsertAllocations(ctx context.Context, batch []*domain.Allocation) (int64, error)
}

// Persister buffers allocations and flushes once the batch is full.
// A Persister belongs to a single run.
type Persister struct {
	w         AllocationWriter
	batchSize int
	buf       []*domain.Allocation
	persisted int
	flushes   int
}

// New creates a Persister that flushes every batchSize allocations.
func New(w AllocationWriter, batchSize int) *Persister {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &Persister{
		w:         w,
		batchSize: batchSize,
		buf:       make([]*domain.Allocation, 0, batchSize),
	}
}

// Persist queues a for writing, flushing when the batch is full.
func (p *Persister) Persist(ctx context.Context, a *domain.Allocation) error {
	p.buf = append(p.buf, a)
	if len(p.buf) >= p.batchSize {
		return p.Flush(ctx)
	}
	return nil
}

// Flush writes everything queued. The buffer is cleared even when the write
// fails so a retry cannot write the same rows twice.
func (p *Persister) Flush(ctx context.Context) error {
	if len(p.buf) == 0 {
		return nil
	}

	batch := p.buf
	p.buf = make([]*domain.Allocation, 0, p.batchSize)
	p.flushes++

	n, err := p.w.InsertAllocations(ctx, batch)
	p.persisted += int(n)
	if err != nil {
		return fmt.Errorf("flush %d allocations: %w", len(batch), err)
	}
	return nil
}

// Pending returns the number of queued, unwritten allocations.
func (p *Persister) Pending() int { return len(p.buf) }

// Persisted returns the number of allocations written so far.
func (p *Persister) Persisted() int { return p.persisted }

// Flushes returns how many non-empty flushes have run.
func (p *Persister) Flushes() int { return p.flushes }
