// Package resolve assembles Allocations from validated RowRecords.
//
// A Chain runs a fixed, ordered list of Resolvers, each owning one concern
// (dates, reference data, enumerations, flags, indications, scalars).
// Resolvers that need lookup tables implement Warmer; the chain warms them
// once per run. A Chain and its caches belong to a single run and must not be
// shared between concurrent runs.
package resolve

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// Resolver fills part of an Allocation from a RowRecord.
type Resolver interface {
	Name() string
	Supports(a *domain.Allocation, rec *domain.RowRecord) bool
	Apply(ctx context.Context, a *domain.Allocation, rec *domain.RowRecord) error
}

// Warmer is implemented by resolvers that load lookup tables before a run.
type Warmer interface {
	Warm(ctx context.Context) error
}

// Resolver names, in the order NewChain applies them.
const (
	NameDate       = "date"
	NameReference  = "reference"
	NameEnum       = "enum"
	NameFlag       = "flag"
	NameIndication = "indication"
	NameScalar     = "scalar"
)

// DefaultOrder is the order in which NewChain applies its resolvers.
// Dates and references come first so that the cheapest row-scoped failures
// happen before an indication is created.
var DefaultOrder = []string{NameDate, NameReference, NameEnum, NameFlag, NameIndication, NameScalar}

// ReferenceStore reads dispatch areas and states.
type ReferenceStore interface {
	ListDispatchAreas(ctx context.Context) ([]domain.DispatchArea, error)
	ListStates(ctx context.Context) ([]domain.State, error)
}

// IndicationStore reads and creates raw indications.
type IndicationStore interface {
	ListIndications(ctx context.Context) ([]domain.Indication, error)
	// CreateIndication inserts ind and sets its ID. If a row with the same
	// hash already exists, that row is loaded into ind instead.
	CreateIndication(ctx context.Context, ind *domain.Indication) error
}

// Config holds what NewChain needs to build the default resolvers.
type Config struct {
	References  ReferenceStore
	Indications IndicationStore
	// Location is used to interpret timestamps; UTC when nil.
	Location *time.Location
}

// Chain applies resolvers in order.
type Chain struct {
	resolvers []Resolver
}

// NewChain builds a fresh chain with empty caches, ordered by DefaultOrder.
func NewChain(cfg Config) *Chain {
	byName := map[string]Resolver{
		NameDate:       NewDateResolver(cfg.Location),
		NameReference:  NewReferenceResolver(cfg.References),
		NameEnum:       NewEnumResolver(),
		NameFlag:       NewFlagResolver(),
		NameIndication: NewIndicationResolver(cfg.Indications),
		NameScalar:     NewScalarResolver(),
	}

	resolvers := make([]Resolver, 0, len(DefaultOrder))
	for _, name := range DefaultOrder {
		resolvers = append(resolvers, byName[name])
	}
	return New(resolvers...)
}

// New builds a chain from explicit resolvers, applied in the given order.
func New(resolvers ...Resolver) *Chain {
	return &Chain{resolvers: resolvers}
}

// Names returns the resolver names in application order.
func (c *Chain) Names() []string {
	names := make([]string, len(c.resolvers))
	for i, r := range c.resolvers {
		names[i] = r.Name()
	}
	return names
}

// Warm loads the lookup tables of every resolver that has one.
func (c *Chain) Warm(ctx context.Context) error {
	for _, r := range c.resolvers {
		w, ok := r.(Warmer)
		if !ok {
			continue
		}
		if err := w.Warm(ctx); err != nil {
			return fmt.Errorf("warm %s resolver: %w", r.Name(), err)
		}
	}
	return nil
}

// Resolve builds the allocation for rec. The first failing resolver aborts
// assembly and no allocation is returned.
func (c *Chain) Resolve(ctx context.Context, job *domain.ImportJob, rec *domain.RowRecord) (*domain.Allocation, error) {
	a := domain.NewAllocation(job)
	for _, r := range c.resolvers {
		if !r.Supports(a, rec) {
			continue
		}
		if err := r.Apply(ctx, a, rec); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// NormalizeName is the lookup key for reference names: NFC, lower-cased,
// inner whitespace collapsed to single spaces.
func NormalizeName(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(norm.NFC.String(s))), " ")
}
