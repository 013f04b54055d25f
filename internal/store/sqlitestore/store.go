// Package sqlitestore implements the import stores on an embedded SQLite
// database through gorm. It serves single-host deployments and integration
// tests; the schema is created with AutoMigrate when the store is opened.
package sqlitestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/JonMunkholm/allocimport/internal/domain"
)

// insertBatchSize is the number of rows per INSERT statement in CreateInBatches.
const insertBatchSize = 200

// Store implements importer.Store.
type Store struct {
	db *gorm.DB
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	err = db.AutoMigrate(
		&jobModel{}, &stateModel{}, &dispatchAreaModel{},
		&indicationModel{}, &allocationModel{}, &rejectModel{},
	)
	if err != nil {
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// SeedReferences upserts states and dispatch areas by id.
func (s *Store) SeedReferences(ctx context.Context, states []domain.State, areas []domain.DispatchArea) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, st := range states {
			m := stateModel{ID: st.ID, Name: st.Name}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error; err != nil {
				return fmt.Errorf("seed state %d: %w", st.ID, err)
			}
		}
		for _, a := range areas {
			m := dispatchAreaModel{ID: a.ID, Name: a.Name, StateID: a.StateID}
			if err := tx.Clauses(clause.OnConflict{UpdateAll: true}).Create(&m).Error; err != nil {
				return fmt.Errorf("seed dispatch area %d: %w", a.ID, err)
			}
		}
		return nil
	})
}

// Jobs

func (s *Store) CreateJob(ctx context.Context, job *domain.ImportJob) error {
	m := toJobModel(job)
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert import job: %w", err)
	}
	return nil
}

func (s *Store) GetJob(ctx context.Context, id uuid.UUID) (*domain.ImportJob, error) {
	var m jobModel
	err := s.db.WithContext(ctx).First(&m, "id = ?", id.String()).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get import job: %w", err)
	}
	return fromJobModel(m)
}

func (s *Store) UpdateJob(ctx context.Context, job *domain.ImportJob) error {
	m := toJobModel(job)
	res := s.db.WithContext(ctx).Model(&jobModel{}).Where("id = ?", m.ID).Updates(map[string]any{
		"status":        m.Status,
		"rows_total":    m.RowsTotal,
		"rows_passed":   m.RowsPassed,
		"rows_rejected": m.RowsRejected,
		"run_count":     m.RunCount,
		"run_time_ms":   m.RunTimeMS,
		"reject_path":   m.RejectPath,
		"last_error":    m.LastError,
		"updated_at":    m.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("update import job: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func (s *Store) ClaimJob(ctx context.Context, id uuid.UUID) (bool, error) {
	res := s.db.WithContext(ctx).Model(&jobModel{}).
		Where("id = ? AND status <> ?", id.String(), string(domain.JobRunning)).
		Updates(map[string]any{"status": string(domain.JobRunning), "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return false, fmt.Errorf("claim import job: %w", res.Error)
	}
	return res.RowsAffected == 1, nil
}

func (s *Store) ListJobs(ctx context.Context, status domain.JobStatus, limit int) ([]*domain.ImportJob, error) {
	if limit <= 0 {
		limit = 100
	}
	var models []jobModel
	err := s.db.WithContext(ctx).
		Where("status = ?", string(status)).
		Order("created_at").
		Limit(limit).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list import jobs: %w", err)
	}

	jobs := make([]*domain.ImportJob, 0, len(models))
	for _, m := range models {
		job, err := fromJobModel(m)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

func toJobModel(job *domain.ImportJob) jobModel {
	return jobModel{
		ID:           job.ID.String(),
		HospitalID:   job.HospitalID,
		FilePath:     job.FilePath,
		FileName:     job.FileName,
		FileSize:     job.FileSize,
		Encoding:     job.Encoding,
		Status:       string(job.Status),
		RowsTotal:    job.RowsTotal,
		RowsPassed:   job.RowsPassed,
		RowsRejected: job.RowsRejected,
		RunCount:     job.RunCount,
		RunTimeMS:    job.RunTime.Milliseconds(),
		RejectPath:   job.RejectPath,
		LastError:    job.LastError,
		CreatedAt:    job.CreatedAt,
		UpdatedAt:    job.UpdatedAt,
	}
}

func fromJobModel(m jobModel) (*domain.ImportJob, error) {
	id, err := uuid.Parse(m.ID)
	if err != nil {
		return nil, fmt.Errorf("parse job id %q: %w", m.ID, err)
	}
	return &domain.ImportJob{
		ID:           id,
		HospitalID:   m.HospitalID,
		FilePath:     m.FilePath,
		FileName:     m.FileName,
		FileSize:     m.FileSize,
		Encoding:     m.Encoding,
		Status:       domain.JobStatus(m.Status),
		RowsTotal:    m.RowsTotal,
		RowsPassed:   m.RowsPassed,
		RowsRejected: m.RowsRejected,
		RunCount:     m.RunCount,
		RunTime:      time.Duration(m.RunTimeMS) * time.Millisecond,
		RejectPath:   m.RejectPath,
		LastError:    m.LastError,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}, nil
}

// Reference data

func (s *Store) ListDispatchAreas(ctx context.Context) ([]domain.DispatchArea, error) {
	var models []dispatchAreaModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list dispatch areas: %w", err)
	}
	out := make([]domain.DispatchArea, len(models))
	for i, m := range models {
		out[i] = domain.DispatchArea{ID: m.ID, Name: m.Name, StateID: m.StateID}
	}
	return out, nil
}

func (s *Store) ListStates(ctx context.Context) ([]domain.State, error) {
	var models []stateModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list states: %w", err)
	}
	out := make([]domain.State, len(models))
	for i, m := range models {
		out[i] = domain.State{ID: m.ID, Name: m.Name}
	}
	return out, nil
}

func (s *Store) ListIndications(ctx context.Context) ([]domain.Indication, error) {
	var models []indicationModel
	if err := s.db.WithContext(ctx).Find(&models).Error; err != nil {
		return nil, fmt.Errorf("list indications: %w", err)
	}
	out := make([]domain.Indication, len(models))
	for i, m := range models {
		out[i] = domain.Indication{ID: m.ID, Code: m.Code, Text: m.Text, Hash: m.Hash, NormalizedID: m.NormalizedID}
	}
	return out, nil
}

// CreateIndication inserts a raw indication, or loads the existing row with
// the same hash.
func (s *Store) CreateIndication(ctx context.Context, ind *domain.Indication) error {
	m := indicationModel{Code: ind.Code, Text: ind.Text, Hash: ind.Hash}
	db := s.db.WithContext(ctx)

	res := db.Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "hash"}}, DoNothing: true}).Create(&m)
	if res.Error != nil {
		return fmt.Errorf("insert indication: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		if err := db.First(&m, "hash = ?", ind.Hash).Error; err != nil {
			return fmt.Errorf("load indication %s: %w", ind.Hash, err)
		}
	}
	ind.ID = m.ID
	ind.NormalizedID = m.NormalizedID
	return nil
}

// LinkIndication sets the normalized indication of a raw indication.
func (s *Store) LinkIndication(ctx context.Context, rawID, normalizedID int64) error {
	res := s.db.WithContext(ctx).Model(&indicationModel{}).Where("id = ?", rawID).Update("normalized_id", normalizedID)
	if res.Error != nil {
		return fmt.Errorf("link indication: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Allocations

func (s *Store) InsertAllocations(ctx context.Context, batch []*domain.Allocation) (int64, error) {
	models := make([]allocationModel, len(batch))
	for i, a := range batch {
		models[i] = toAllocationModel(a)
	}
	res := s.db.WithContext(ctx).CreateInBatches(models, insertBatchSize)
	if res.Error != nil {
		return res.RowsAffected, fmt.Errorf("insert allocations: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// CountAllocations returns the number of allocations written by a job.
func (s *Store) CountAllocations(ctx context.Context, importID uuid.UUID) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&allocationModel{}).Where("import_id = ?", importID.String()).Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("count allocations: %w", err)
	}
	return n, nil
}

func toAllocationModel(a *domain.Allocation) allocationModel {
	var transport *string
	if a.TransportType != nil {
		t := string(*a.TransportType)
		transport = &t
	}
	return allocationModel{
		ImportID:               a.ImportID.String(),
		HospitalID:             a.HospitalID,
		DispatchAreaID:         a.DispatchAreaID,
		StateID:                a.StateID,
		CreatedAt:              a.CreatedAt,
		ArrivalAt:              a.ArrivalAt,
		Gender:                 string(a.Gender),
		Age:                    a.Age,
		Urgency:                int(a.Urgency),
		TransportType:          transport,
		RequiresResus:          a.RequiresResus,
		RequiresCathlab:        a.RequiresCathlab,
		IsCPR:                  a.IsCPR,
		IsVentilated:           a.IsVentilated,
		IsShock:                a.IsShock,
		IsPregnant:             a.IsPregnant,
		IsWithPhysician:        a.IsWithPhysician,
		IsInfectious:           a.IsInfectious,
		IsWorkAccident:         a.IsWorkAccident,
		Airway:                 a.Airway,
		Breathing:              a.Breathing,
		Circulation:            a.Circulation,
		Disability:             a.Disability,
		IndicationCode:         a.IndicationCode,
		IndicationRawID:        a.IndicationRawID,
		IndicationNormalizedID: a.IndicationNormalizedID,
	}
}

// Rejects

func (s *Store) InsertReject(ctx context.Context, importID uuid.UUID, rec domain.RejectRecord) error {
	messages, err := json.Marshal(rec.Messages)
	if err != nil {
		return fmt.Errorf("encode reject messages: %w", err)
	}
	row, err := json.Marshal(rec.Row)
	if err != nil {
		return fmt.Errorf("encode reject row: %w", err)
	}
	m := rejectModel{
		ImportID:   importID.String(),
		LineNumber: rec.Line,
		Messages:   string(messages),
		RowData:    string(row),
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&m).Error; err != nil {
		return fmt.Errorf("insert reject: %w", err)
	}
	return nil
}

func (s *Store) ListRejects(ctx context.Context, importID uuid.UUID, limit, offset int) ([]domain.RejectRecord, error) {
	if limit <= 0 {
		limit = 200
	}
	if offset < 0 {
		offset = 0
	}

	var models []rejectModel
	err := s.db.WithContext(ctx).
		Where("import_id = ?", importID.String()).
		Order("id").
		Limit(limit).
		Offset(offset).
		Find(&models).Error
	if err != nil {
		return nil, fmt.Errorf("list rejects: %w", err)
	}

	out := make([]domain.RejectRecord, len(models))
	for i, m := range models {
		out[i].Line = m.LineNumber
		if err := json.Unmarshal([]byte(m.Messages), &out[i].Messages); err != nil {
			return nil, fmt.Errorf("decode reject messages: %w", err)
		}
		if err := json.Unmarshal([]byte(m.RowData), &out[i].Row); err != nil {
			return nil, fmt.Errorf("decode reject row: %w", err)
		}
	}
	return out, nil
}
