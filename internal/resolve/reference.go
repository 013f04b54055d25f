package resolve

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// ReferenceResolver attaches the dispatch area and, through it, the state.
// The state is never looked up by name, so area and state always agree.
type ReferenceResolver struct {
	store ReferenceStore

	areas     map[string]int64 // normalized name -> area id
	areaState map[int64]int64  // area id -> state id
	states    map[int64]struct{}
	warmed    bool
}

// NewReferenceResolver creates a resolver backed by store.
func NewReferenceResolver(store ReferenceStore) *ReferenceResolver {
	return &ReferenceResolver{store: store}
}

func (r *ReferenceResolver) Name() string { return NameReference }

// Warm loads every dispatch area and state.
func (r *ReferenceResolver) Warm(ctx context.Context) error {
	if r.store == nil {
		return errors.New("no reference store configured")
	}

	areas, err := r.store.ListDispatchAreas(ctx)
	if err != nil {
		return fmt.Errorf("list dispatch areas: %w", err)
	}
	states, err := r.store.ListStates(ctx)
	if err != nil {
		return fmt.Errorf("list states: %w", err)
	}

	r.areas = make(map[string]int64, len(areas))
	r.areaState = make(map[int64]int64, len(areas))
	for _, a := range areas {
		r.areas[NormalizeName(a.Name)] = a.ID
		r.areaState[a.ID] = a.StateID
	}
	r.states = make(map[int64]struct{}, len(states))
	for _, s := range states {
		r.states[s.ID] = struct{}{}
	}
	r.warmed = true
	return nil
}

func (r *ReferenceResolver) Supports(*domain.Allocation, *domain.RowRecord) bool { return true }

func (r *ReferenceResolver) Apply(_ context.Context, a *domain.Allocation, rec *domain.RowRecord) error {
	if !r.warmed {
		return fmt.Errorf("%w: reference resolver used before Warm", ErrContractViolation)
	}

	var raw string
	if rec.DispatchArea != nil {
		raw = *rec.DispatchArea
	}
	areaID, ok := r.areas[NormalizeName(raw)]
	if !ok || raw == "" {
		return &ReferenceNotFoundError{Field: "dispatchArea", Raw: raw}
	}

	stateID := r.areaState[areaID]
	if _, ok := r.states[stateID]; !ok {
		return &ReferenceNotFoundError{Field: "state", Raw: raw}
	}

	a.DispatchAreaID = areaID
	a.StateID = stateID
	return nil
}
