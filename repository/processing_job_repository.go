package repository

import (
	"context"
	"time"

	"carbonlens-backend/models"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProcessingJobRepository handles database operations for processing jobs
type ProcessingJobRepository struct {
	db *pgxpool.Pool
}

// NewProcessingJobRepository creates a new processing job repository
func NewProcessingJobRepository(db *pgxpool.Pool) *ProcessingJobRepository {
	return &ProcessingJobRepository{db: db}
}

// Create creates a new processing job
func (r *ProcessingJobRepository) Create(ctx context.Context, job *models.ProcessingJob) error {
	query := `
		INSERT INTO processing_jobs (
			document_id, kind, status, result, error_message
		) VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRow(
		ctx, query,
		job.DocumentID,
		job.Kind,
		job.Status,
		job.Result,
		job.ErrorMessage,
	).Scan(&job.ID, &job.CreatedAt, &job.UpdatedAt)

	return err
}

// GetByID retrieves a processing job by ID
func (r *ProcessingJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ProcessingJob, error) {
	job := &models.ProcessingJob{}
	query := `
		SELECT id, document_id, kind, status, result, error_message,
			created_at, updated_at, completed_at
		FROM processing_jobs
		WHERE id = $1`

	err := r.db.QueryRow(ctx, query, id).Scan(
		&job.ID,
		&job.DocumentID,
		&job.Kind,
		&job.Status,
		&job.Result,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)

	if err != nil {
		return nil, err
	}

	if job.Result == nil {
		job.Result = make(models.JobResult)
	}

	return job, nil
}

// GetLatestByDocumentID retrieves the latest processing job for a document
func (r *ProcessingJobRepository) GetLatestByDocumentID(ctx context.Context, documentID uuid.UUID) (*models.ProcessingJob, error) {
	job := &models.ProcessingJob{}
	query := `
		SELECT id, document_id, kind, status, result, error_message,
			created_at, updated_at, completed_at
		FROM processing_jobs
		WHERE document_id = $1
		ORDER BY created_at DESC
		LIMIT 1`

	err := r.db.QueryRow(ctx, query, documentID).Scan(
		&job.ID,
		&job.DocumentID,
		&job.Kind,
		&job.Status,
		&job.Result,
		&job.ErrorMessage,
		&job.CreatedAt,
		&job.UpdatedAt,
		&job.CompletedAt,
	)

	if err != nil {
		return nil, err
	}

	if job.Result == nil {
		job.Result = make(models.JobResult)
	}

	return job, nil
}

// UpdateStatus updates the status of a processing job
func (r *ProcessingJobRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status models.ProcessingJobStatus) error {
	query := `
		UPDATE processing_jobs SET
			status = $2,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, status)
	return err
}

// Complete marks a processing job as completed and stores its result
func (r *ProcessingJobRepository) Complete(ctx context.Context, id uuid.UUID, result models.JobResult) error {
	now := time.Now()
	query := `
		UPDATE processing_jobs SET
			status = $2,
			result = $3,
			completed_at = $4,
			updated_at = $4
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.JobStatusCompleted, result, now)
	return err
}

// Fail marks a processing job as failed
func (r *ProcessingJobRepository) Fail(ctx context.Context, id uuid.UUID, errorMessage string) error {
	query := `
		UPDATE processing_jobs SET
			status = $2,
			error_message = $3,
			updated_at = NOW()
		WHERE id = $1`

	_, err := r.db.Exec(ctx, query, id, models.JobStatusFailed, errorMessage)
	return err
}
