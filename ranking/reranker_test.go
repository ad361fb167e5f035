package ranking

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"carbonlens-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRerankReturnsServiceOrdering(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rerankRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "nvidia/llama-3.2-nv-rerankqa-1b-v2", req.Model)
		assert.Equal(t, "energy use", req.Query.Text)
		require.Len(t, req.Passages, 2)

		json.NewEncoder(w).Encode(map[string]interface{}{
			"passages": []map[string]interface{}{
				{"text": "doc B", "score": 0.92},
				{"text": "doc A", "score": 0.40},
			},
		})
	}))
	defer srv.Close()

	r := NewReranker(Config{Endpoint: srv.URL})

	results := r.Rerank(context.Background(), "energy use", []string{"doc A", "doc B"}, []float64{1.2, 3.4})

	assert.Equal(t, []models.RerankedResult{
		{Text: "doc B", Score: 0.92},
		{Text: "doc A", Score: 0.40},
	}, results)
}

func TestRerankFallsBackWhenServiceUnreachable(t *testing.T) {
	r := NewReranker(Config{Endpoint: "http://127.0.0.1:1"})

	documents := []string{"first", "second", "third"}
	scores := []float64{0.9, 0.5, 0.1}

	results := r.Rerank(context.Background(), "q", documents, scores)

	assert.Equal(t, []models.RerankedResult{
		{Text: "first", Score: 0.9},
		{Text: "second", Score: 0.5},
		{Text: "third", Score: 0.1},
	}, results)
}

func TestRerankFallsBackOnEmptyServiceResult(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]interface{}{"passages": []interface{}{}})
	}))
	defer srv.Close()

	r := NewReranker(Config{Endpoint: srv.URL})

	results := r.Rerank(context.Background(), "q", []string{"only doc"}, nil)

	// Missing original scores default to 0.0.
	assert.Equal(t, []models.RerankedResult{{Text: "only doc", Score: 0.0}}, results)
}

func TestRerankEmptyInput(t *testing.T) {
	r := NewReranker(Config{Endpoint: "http://127.0.0.1:1"})

	results := r.Rerank(context.Background(), "q", nil, nil)

	assert.Empty(t, results)
}
