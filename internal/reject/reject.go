// Package reject records rows that failed validation or resolution.
//
// Two sinks implement the same contract: FileSink writes a CSV file per run
// under a year/month directory, TableSink inserts into the reject table.
// Which one is used is a deployment choice made through New.
package reject

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// Kind names a sink implementation.
type Kind string

const (
	KindFile  Kind = "file"
	KindTable Kind = "table"
)

// ErrUnknownKind is returned by New for an unsupported sink kind.
var ErrUnknownKind = errors.New("unknown reject sink")

// MessageSeparator joins messages in the CSV error_messages column.
const MessageSeparator = " | "

// Sink receives the rejected rows of one run. Start must be called before
// Write; Close must be called on every exit path.
type Sink interface {
	Start(ctx context.Context, job *domain.ImportJob) error
	Write(ctx context.Context, rec domain.RejectRecord) error
	Close() error
	// Count returns the number of rows written since Start.
	Count() int
	// Path returns the output file, or "" when the sink has none.
	Path() string
}

// RejectStore persists rejects in the relational reject table.
type RejectStore interface {
	InsertReject(ctx context.Context, importID uuid.UUID, rec domain.RejectRecord) error
	ListRejects(ctx context.Context, importID uuid.UUID, limit, offset int) ([]domain.RejectRecord, error)
}

// New returns the sink for kind. baseDir is used by the file sink, store by
// the table sink.
func New(kind Kind, baseDir string, store RejectStore) (Sink, error) {
	switch kind {
	case KindFile, "":
		if baseDir == "" {
			return nil, errors.New("file reject sink needs a base directory")
		}
		return NewFileSink(baseDir), nil
	case KindTable:
		if store == nil {
			return nil, errors.New("table reject sink needs a store")
		}
		return NewTableSink(store), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownKind, kind)
	}
}
