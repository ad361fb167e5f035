package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"carbonlens-backend/models"
	"carbonlens-backend/pipeline"
	"carbonlens-backend/repository"
	"carbonlens-backend/storage"

	"github.com/google/uuid"
)

// DocumentService handles business logic for documents and their
// background processing jobs
type DocumentService struct {
	docRepo   *repository.DocumentRepository
	jobRepo   *repository.ProcessingJobRepository
	store     storage.Storage
	ingestion *pipeline.IngestionPipeline
	emissions *pipeline.EmissionsPipeline
	retrieval *pipeline.RetrievalPipeline
}

// DocumentServiceOption is a functional option for DocumentService
type DocumentServiceOption func(*DocumentService)

// WithDocumentRepository sets the document repository
func WithDocumentRepository(repo *repository.DocumentRepository) DocumentServiceOption {
	return func(s *DocumentService) {
		s.docRepo = repo
	}
}

// WithProcessingJobRepository sets the processing job repository
func WithProcessingJobRepository(repo *repository.ProcessingJobRepository) DocumentServiceOption {
	return func(s *DocumentService) {
		s.jobRepo = repo
	}
}

// WithStorage sets the document storage backend
func WithStorage(store storage.Storage) DocumentServiceOption {
	return func(s *DocumentService) {
		s.store = store
	}
}

// WithIngestionPipeline sets the ingestion pipeline
func WithIngestionPipeline(p *pipeline.IngestionPipeline) DocumentServiceOption {
	return func(s *DocumentService) {
		s.ingestion = p
	}
}

// WithEmissionsPipeline sets the emissions pipeline
func WithEmissionsPipeline(p *pipeline.EmissionsPipeline) DocumentServiceOption {
	return func(s *DocumentService) {
		s.emissions = p
	}
}

// WithRetrievalPipeline sets the retrieval pipeline
func WithRetrievalPipeline(p *pipeline.RetrievalPipeline) DocumentServiceOption {
	return func(s *DocumentService) {
		s.retrieval = p
	}
}

// NewDocumentService creates a new document service
func NewDocumentService(opts ...DocumentServiceOption) *DocumentService {
	s := &DocumentService{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// UploadDocumentRequest represents a request to upload a document
type UploadDocumentRequest struct {
	Filename string
	MimeType string
	Size     int64
	Data     io.Reader
	Kind     models.ProcessingJobKind
}

// UploadDocumentResult represents the result of uploading a document
type UploadDocumentResult struct {
	Document *models.Document
	Job      *models.ProcessingJob
}

// UploadDocument stores the uploaded document and queues a processing job
// of the requested kind. The job itself runs in the background via
// ProcessJob.
func (s *DocumentService) UploadDocument(ctx context.Context, req UploadDocumentRequest) (*UploadDocumentResult, error) {
	if s.docRepo == nil {
		return nil, errors.New("document repository not set")
	}
	if s.jobRepo == nil {
		return nil, errors.New("processing job repository not set")
	}
	if s.store == nil {
		return nil, errors.New("storage not set")
	}

	docID := uuid.New()

	storagePath, err := s.store.Upload(ctx, docID, req.Filename, req.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to store document: %w", err)
	}

	doc := &models.Document{
		Filename:    req.Filename,
		MimeType:    req.MimeType,
		Size:        req.Size,
		StoragePath: storagePath,
	}
	if err := s.docRepo.Create(ctx, doc); err != nil {
		if delErr := s.store.Delete(ctx, storagePath); delErr != nil {
			log.Printf("Warning: failed to clean up stored document %s: %v", storagePath, delErr)
		}
		return nil, err
	}

	job := &models.ProcessingJob{
		DocumentID: doc.ID,
		Kind:       req.Kind,
		Status:     models.JobStatusPending,
	}
	if err := s.jobRepo.Create(ctx, job); err != nil {
		return nil, err
	}

	return &UploadDocumentResult{Document: doc, Job: job}, nil
}

// GetDocument retrieves a document by ID
func (s *DocumentService) GetDocument(ctx context.Context, id uuid.UUID) (*models.Document, error) {
	if s.docRepo == nil {
		return nil, errors.New("document repository not set")
	}
	return s.docRepo.GetByID(ctx, id)
}

// ListDocuments retrieves all documents
func (s *DocumentService) ListDocuments(ctx context.Context) ([]*models.Document, error) {
	if s.docRepo == nil {
		return nil, errors.New("document repository not set")
	}
	return s.docRepo.List(ctx)
}

// GetJob retrieves a processing job by ID
func (s *DocumentService) GetJob(ctx context.Context, id uuid.UUID) (*models.ProcessingJob, error) {
	if s.jobRepo == nil {
		return nil, errors.New("processing job repository not set")
	}
	return s.jobRepo.GetByID(ctx, id)
}

// GetLatestJob retrieves the most recent processing job for a document
func (s *DocumentService) GetLatestJob(ctx context.Context, documentID uuid.UUID) (*models.ProcessingJob, error) {
	if s.jobRepo == nil {
		return nil, errors.New("processing job repository not set")
	}
	return s.jobRepo.GetLatestByDocumentID(ctx, documentID)
}

// ProcessJob performs the actual document processing in the background.
// This method runs in a goroutine and can take minutes for large documents.
func (s *DocumentService) ProcessJob(ctx context.Context, jobID uuid.UUID) error {
	if s.jobRepo == nil {
		return errors.New("processing job repository not set")
	}
	if s.docRepo == nil {
		return errors.New("document repository not set")
	}

	job, err := s.jobRepo.GetByID(ctx, jobID)
	if err != nil {
		return fmt.Errorf("failed to load processing job: %w", err)
	}

	doc, err := s.docRepo.GetByID(ctx, job.DocumentID)
	if err != nil {
		s.markJobFailed(ctx, jobID, "failed to load document: "+err.Error())
		return err
	}

	if err := s.jobRepo.UpdateStatus(ctx, jobID, models.JobStatusInProgress); err != nil {
		return fmt.Errorf("failed to update job status: %w", err)
	}

	// The PDF renderer works on file paths, so pull the document down to a
	// temp file first.
	localPath, err := storage.DownloadToTemp(ctx, s.store, doc.StoragePath, doc.Filename)
	if err != nil {
		s.markJobFailed(ctx, jobID, "failed to fetch document: "+err.Error())
		return err
	}
	defer os.Remove(localPath)

	var result models.JobResult

	switch job.Kind {
	case models.JobKindEmissions:
		if s.emissions == nil {
			s.markJobFailed(ctx, jobID, "emissions pipeline not configured")
			return errors.New("emissions pipeline not set")
		}
		report, err := s.emissions.ProcessDocumentForEmissions(ctx, localPath)
		if err != nil {
			s.markJobFailed(ctx, jobID, err.Error())
			return err
		}
		result = models.JobResult{
			"document_path":         doc.StoragePath,
			"activities":            report.Activities,
			"emissions_calculation": report.Calculation,
		}

	default: // models.JobKindIngest
		if s.ingestion == nil {
			s.markJobFailed(ctx, jobID, "ingestion pipeline not configured")
			return errors.New("ingestion pipeline not set")
		}
		content, err := s.ingestion.ProcessDocument(ctx, localPath)
		if err != nil {
			s.markJobFailed(ctx, jobID, err.Error())
			return err
		}
		result = models.JobResult{
			"document_path": doc.StoragePath,
			"text_segments": len(content.Text),
			"tables":        len(content.Tables),
			"charts":        len(content.Charts),
		}
	}

	if err := s.jobRepo.Complete(ctx, jobID, result); err != nil {
		return fmt.Errorf("failed to complete job: %w", err)
	}
	return nil
}

// QueryDocuments answers a query over the ingested corpus
func (s *DocumentService) QueryDocuments(ctx context.Context, query string, k int) (*pipeline.QueryResponse, error) {
	if s.retrieval == nil {
		return nil, errors.New("retrieval pipeline not set")
	}
	return s.retrieval.AnswerQuery(ctx, query, k)
}

// SearchDocuments retrieves reranked hits without answer synthesis
func (s *DocumentService) SearchDocuments(ctx context.Context, query string, k int) ([]models.RetrievalHit, error) {
	if s.retrieval == nil {
		return nil, errors.New("retrieval pipeline not set")
	}
	return s.retrieval.ProcessQuery(ctx, query, k)
}

// DocumentSummaryForEmissions produces an emissions-focused summary of a
// stored document
func (s *DocumentService) DocumentSummaryForEmissions(ctx context.Context, documentID uuid.UUID) (*models.EmissionsSummary, error) {
	if s.emissions == nil {
		return nil, errors.New("emissions pipeline not set")
	}
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, err
	}

	localPath, err := storage.DownloadToTemp(ctx, s.store, doc.StoragePath, doc.Filename)
	if err != nil {
		return nil, err
	}
	defer os.Remove(localPath)

	return s.emissions.GetDocumentSummaryForEmissions(ctx, localPath)
}

func (s *DocumentService) markJobFailed(ctx context.Context, jobID uuid.UUID, message string) {
	if err := s.jobRepo.Fail(ctx, jobID, message); err != nil {
		log.Printf("Warning: failed to mark job %s as failed: %v", jobID, err)
	}
}
