package importer

import (
	"context"
	"errors"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// memStore is an in-memory Store for orchestrator tests.
type memStore struct {
	mu sync.Mutex

	jobs        map[uuid.UUID]domain.ImportJob
	areas       []domain.DispatchArea
	states      []domain.State
	indications []domain.Indication
	allocations []domain.Allocation
	rejects     map[uuid.UUID][]domain.RejectRecord

	insertErr    error
	insertPanic  bool
	gate         chan struct{} // when set, inserts block until closed
	beforeClaim  func(id uuid.UUID)
	indicationID int64
	batches      int
}

func newMemStore() *memStore {
	return &memStore{
		jobs:    map[uuid.UUID]domain.ImportJob{},
		rejects: map[uuid.UUID][]domain.RejectRecord{},
		areas: []domain.DispatchArea{
			{ID: 10, Name: "Nordkreis", StateID: 1},
			{ID: 11, Name: "Südkreis", StateID: 1},
		},
		states: []domain.State{{ID: 1, Name: "Hessen"}},
	}
}

func (m *memStore) GetJob(_ context.Context, id uuid.UUID) (*domain.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return &job, nil
}

func (m *memStore) CreateJob(_ context.Context, job *domain.ImportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *memStore) UpdateJob(_ context.Context, job *domain.ImportJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.jobs[job.ID]; !ok {
		return domain.ErrNotFound
	}
	m.jobs[job.ID] = *job
	return nil
}

func (m *memStore) ClaimJob(_ context.Context, id uuid.UUID) (bool, error) {
	if m.beforeClaim != nil {
		m.beforeClaim(id)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return false, domain.ErrNotFound
	}
	if job.Status == domain.JobRunning {
		return false, nil
	}
	job.Status = domain.JobRunning
	m.jobs[id] = job
	return true, nil
}

func (m *memStore) ListJobs(_ context.Context, status domain.JobStatus, limit int) ([]*domain.ImportJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.ImportJob
	for _, job := range m.jobs {
		if job.Status == status {
			j := job
			out = append(out, &j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].CreatedAt.Before(out[k].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memStore) ListDispatchAreas(context.Context) ([]domain.DispatchArea, error) {
	return m.areas, nil
}

func (m *memStore) ListStates(context.Context) ([]domain.State, error) {
	return m.states, nil
}

func (m *memStore) ListIndications(context.Context) ([]domain.Indication, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]domain.Indication(nil), m.indications...), nil
}

func (m *memStore) CreateIndication(_ context.Context, ind *domain.Indication) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.indications {
		if existing.Hash == ind.Hash {
			*ind = existing
			return nil
		}
	}
	m.indicationID++
	ind.ID = m.indicationID
	m.indications = append(m.indications, *ind)
	return nil
}

func (m *memStore) InsertAllocations(_ context.Context, batch []*domain.Allocation) (int64, error) {
	if m.gate != nil {
		<-m.gate
	}
	if m.insertPanic {
		panic("storage exploded")
	}
	if m.insertErr != nil {
		return 0, m.insertErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, a := range batch {
		m.allocations = append(m.allocations, *a)
	}
	m.batches++
	return int64(len(batch)), nil
}

func (m *memStore) InsertReject(_ context.Context, id uuid.UUID, rec domain.RejectRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rejects[id] = append(m.rejects[id], rec)
	return nil
}

func (m *memStore) ListRejects(_ context.Context, id uuid.UUID, limit, offset int) ([]domain.RejectRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows := m.rejects[id]
	if offset >= len(rows) {
		return nil, nil
	}
	rows = rows[offset:]
	if limit > 0 && len(rows) > limit {
		rows = rows[:limit]
	}
	return rows, nil
}

var errStorage = errors.New("storage unavailable")
