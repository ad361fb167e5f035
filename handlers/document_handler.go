package handlers

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"strings"

	"carbonlens-backend/models"
	"carbonlens-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// DocumentHandler handles HTTP requests for document operations
type DocumentHandler struct {
	documents   *service.DocumentService
	maxFileSize int64
}

// NewDocumentHandler creates a new document handler
func NewDocumentHandler(documents *service.DocumentService) *DocumentHandler {
	return &DocumentHandler{
		documents:   documents,
		maxFileSize: 50 * 1024 * 1024, // 50MB
	}
}

// UploadDocument handles POST /api/documents/upload
func (h *DocumentHandler) UploadDocument(c *gin.Context) {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "MISSING_FILE",
				"message": "No file provided",
			},
		})
		return
	}

	if fileHeader.Size > h.maxFileSize {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "FILE_TOO_LARGE",
				"message": fmt.Sprintf("File exceeds maximum size of %d bytes", h.maxFileSize),
			},
		})
		return
	}

	mimeType := fileHeader.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		if strings.HasSuffix(strings.ToLower(fileHeader.Filename), ".pdf") {
			mimeType = "application/pdf"
		}
	}
	if mimeType != "application/pdf" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_FILE_TYPE",
				"message": "Only PDF documents are supported",
			},
		})
		return
	}

	kind := models.ProcessingJobKind(c.PostForm("kind"))
	switch kind {
	case models.JobKindIngest, models.JobKindEmissions:
	case "":
		kind = models.JobKindIngest
	default:
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_KIND",
				"message": "kind must be one of: ingest, emissions",
			},
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": fmt.Sprintf("Failed to read file: %v", err),
			},
		})
		return
	}
	defer file.Close()

	result, err := h.documents.UploadDocument(c.Request.Context(), service.UploadDocumentRequest{
		Filename: fileHeader.Filename,
		MimeType: mimeType,
		Size:     fileHeader.Size,
		Data:     file,
		Kind:     kind,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "UPLOAD_FAILED",
				"message": fmt.Sprintf("Failed to upload document: %v", err),
			},
		})
		return
	}

	// Kick off processing in the background; the client polls the job.
	jobID := result.Job.ID
	go func() {
		bgCtx := context.Background()
		if err := h.documents.ProcessJob(bgCtx, jobID); err != nil {
			log.Printf("Background job %s failed: %v", jobID, err)
		}
	}()

	c.JSON(http.StatusCreated, gin.H{
		"success": true,
		"data": gin.H{
			"id":         result.Document.ID,
			"filename":   result.Document.Filename,
			"mime_type":  result.Document.MimeType,
			"size":       result.Document.Size,
			"created_at": result.Document.CreatedAt,
			"job_id":     result.Job.ID,
			"job_status": result.Job.Status,
		},
	})
}

// GetDocument handles GET /api/documents/:id
func (h *DocumentHandler) GetDocument(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid document ID format",
			},
		})
		return
	}

	doc, err := h.documents.GetDocument(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DOCUMENT_NOT_FOUND",
				"message": "Document not found",
			},
		})
		return
	}

	// Best-effort: a freshly created document may have no job yet.
	var latestJob *models.ProcessingJob
	if job, err := h.documents.GetLatestJob(c.Request.Context(), id); err == nil {
		latestJob = job
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data": gin.H{
			"document":   doc,
			"latest_job": latestJob,
		},
	})
}

// ListDocuments handles GET /api/documents
func (h *DocumentHandler) ListDocuments(c *gin.Context) {
	docs, err := h.documents.ListDocuments(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": fmt.Sprintf("Failed to list documents: %v", err),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    docs,
	})
}

// GetJobStatus handles GET /api/jobs/:id
func (h *DocumentHandler) GetJobStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_ID",
				"message": "Invalid job ID format",
			},
		})
		return
	}

	job, err := h.documents.GetJob(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "JOB_NOT_FOUND",
				"message": "Processing job not found",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    job,
	})
}
