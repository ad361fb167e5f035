package handlers

import (
	"fmt"
	"net/http"

	"carbonlens-backend/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// EmissionsHandler handles HTTP requests for emissions analysis
type EmissionsHandler struct {
	documents *service.DocumentService
}

// NewEmissionsHandler creates a new emissions handler
func NewEmissionsHandler(documents *service.DocumentService) *EmissionsHandler {
	return &EmissionsHandler{documents: documents}
}

// GetEmissionsSummary handles GET /api/documents/:id/emissions-summary
func (h *EmissionsHandler) GetEmissionsSummary(c *gin.Context) {
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

	summary, err := h.documents.DocumentSummaryForEmissions(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SUMMARY_FAILED",
				"message": fmt.Sprintf("Failed to generate emissions summary: %v", err),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    summary,
	})
}
