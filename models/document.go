package models

import (
	"database/sql/driver"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Document represents an uploaded PDF document
type Document struct {
	ID          uuid.UUID `json:"id"`
	Filename    string    `json:"filename"`
	MimeType    string    `json:"mime_type"`
	Size        int64     `json:"size"`
	StoragePath string    `json:"storage_path"`
	CreatedAt   time.Time `json:"created_at"`
}

// ProcessingJobKind distinguishes the kinds of background work run against
// a document.
type ProcessingJobKind string

const (
	JobKindIngest    ProcessingJobKind = "ingest"
	JobKindEmissions ProcessingJobKind = "emissions"
)

// ProcessingJobStatus represents the status of a processing job
type ProcessingJobStatus string

const (
	JobStatusPending    ProcessingJobStatus = "pending"
	JobStatusInProgress ProcessingJobStatus = "in_progress"
	JobStatusCompleted  ProcessingJobStatus = "completed"
	JobStatusFailed     ProcessingJobStatus = "failed"
)

// JobResult is the JSONB result payload of a completed job.
type JobResult map[string]interface{}

// Value implements driver.Valuer for JSONB
func (r JobResult) Value() (driver.Value, error) {
	return json.Marshal(r)
}

// Scan implements sql.Scanner for JSONB
func (r *JobResult) Scan(value interface{}) error {
	if value == nil {
		*r = make(JobResult)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*r = make(JobResult)
		return nil
	}

	if len(bytes) == 0 {
		*r = make(JobResult)
		return nil
	}

	return json.Unmarshal(bytes, r)
}

// ProcessingJob represents a background document-processing job entity
type ProcessingJob struct {
	ID           uuid.UUID           `json:"id"`
	DocumentID   uuid.UUID           `json:"document_id"`
	Kind         ProcessingJobKind   `json:"kind"`
	Status       ProcessingJobStatus `json:"status"`
	Result       JobResult           `json:"result,omitempty"`
	ErrorMessage *string             `json:"error_message,omitempty"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	CompletedAt  *time.Time          `json:"completed_at,omitempty"`
}
