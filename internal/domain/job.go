// Package domain holds the types shared by every stage of the allocation
// import pipeline: import jobs, row records, resolved allocations, reference
// data and reject records.
package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned by stores when a requested record does not exist.
var ErrNotFound = errors.New("not found")

// JobStatus is the lifecycle state of an ImportJob.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobCompleted JobStatus = "completed"
	JobFailed    JobStatus = "failed"
)

// EncodingAuto asks the row source to detect the file's charset.
const EncodingAuto = "auto"

// ImportJob is one attempt to import a single allocation file for a hospital.
//
// Counters are written from the run summary once the row loop has finished;
// they are never updated while rows are being processed.
type ImportJob struct {
	ID           uuid.UUID     `json:"id"`
	HospitalID   int64         `json:"hospitalId"`
	FilePath     string        `json:"filePath"`
	FileName     string        `json:"fileName"`
	FileSize     int64         `json:"fileSize"`
	Encoding     string        `json:"encoding"`
	Status       JobStatus     `json:"status"`
	RowsTotal    int           `json:"rowsTotal"`
	RowsPassed   int           `json:"rowsPassed"`
	RowsRejected int           `json:"rowsRejected"`
	RunCount     int           `json:"runCount"`
	RunTime      time.Duration `json:"runTime"`
	RejectPath   *string       `json:"rejectPath,omitempty"`
	LastError    string        `json:"lastError,omitempty"`
	CreatedAt    time.Time     `json:"createdAt"`
	UpdatedAt    time.Time     `json:"updatedAt"`
}

// NewImportJob creates a pending job for the given hospital and file.
func NewImportJob(hospitalID int64, filePath, fileName string, size int64, encoding string) *ImportJob {
	if encoding == "" {
		encoding = EncodingAuto
	}
	now := time.Now().UTC()
	return &ImportJob{
		ID:         uuid.New(),
		HospitalID: hospitalID,
		FilePath:   filePath,
		FileName:   fileName,
		FileSize:   size,
		Encoding:   encoding,
		Status:     JobPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Summary is the outcome of one import run.
type Summary struct {
	Total    int `json:"total"`
	OK       int `json:"ok"`
	Rejected int `json:"rejected"`
}
