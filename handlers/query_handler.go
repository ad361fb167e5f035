package handlers

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"carbonlens-backend/llm"
	"carbonlens-backend/service"

	"github.com/gin-gonic/gin"
)

const defaultTopK = 5

// QueryHandler handles HTTP requests for querying the document corpus
type QueryHandler struct {
	documents *service.DocumentService
	answers   *llm.AnswerGenerator
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(documents *service.DocumentService, answers *llm.AnswerGenerator) *QueryHandler {
	return &QueryHandler{documents: documents, answers: answers}
}

type queryRequest struct {
	Query string `json:"query" binding:"required"`
	K     int    `json:"k"`
}

// Query handles POST /api/query
func (h *QueryHandler) Query(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "query is required",
			},
		})
		return
	}
	if req.K <= 0 {
		req.K = defaultTopK
	}

	resp, err := h.documents.QueryDocuments(c.Request.Context(), req.Query, req.K)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "QUERY_FAILED",
				"message": fmt.Sprintf("Failed to process query: %v", err),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    resp,
	})
}

// Search handles POST /api/search (retrieval only, no answer synthesis)
func (h *QueryHandler) Search(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "query is required",
			},
		})
		return
	}
	if req.K <= 0 {
		req.K = defaultTopK
	}

	results, err := h.documents.SearchDocuments(c.Request.Context(), req.Query, req.K)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "SEARCH_FAILED",
				"message": fmt.Sprintf("Failed to search: %v", err),
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"data":    gin.H{"results": results},
	})
}

// QueryStream handles POST /api/query/stream, streaming the answer tokens
// over server-sent events after retrieval completes.
func (h *QueryHandler) QueryStream(c *gin.Context) {
	var req queryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "INVALID_REQUEST",
				"message": "query is required",
			},
		})
		return
	}
	if req.K <= 0 {
		req.K = defaultTopK
	}

	hits, err := h.documents.SearchDocuments(c.Request.Context(), req.Query, req.K)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "QUERY_FAILED",
				"message": fmt.Sprintf("Failed to process query: %v", err),
			},
		})
		return
	}

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	if len(hits) == 0 {
		c.SSEvent("answer", "No relevant documents found to answer your query.")
		c.SSEvent("done", "")
		c.Writer.Flush()
		return
	}

	stream, err := h.answers.GenerateAnswerStream(c.Request.Context(), req.Query, hits)
	if err != nil {
		c.SSEvent("error", fmt.Sprintf("Failed to generate answer: %v", err))
		c.Writer.Flush()
		return
	}
	defer stream.Close()

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			c.SSEvent("error", fmt.Sprintf("Stream error: %v", err))
			break
		}
		if len(chunk.Choices) > 0 && chunk.Choices[0].Delta.Content != "" {
			c.SSEvent("answer", chunk.Choices[0].Delta.Content)
			c.Writer.Flush()
		}
	}
	c.SSEvent("done", "")
	c.Writer.Flush()
}
