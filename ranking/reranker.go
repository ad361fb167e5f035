package ranking

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"

	"carbonlens-backend/models"
)

const defaultModel = "nvidia/llama-3.2-nv-rerankqa-1b-v2"

// Reranker reorders retrieval candidates by relevance to the query using an
// external rerank service. It never fails past its own boundary: both an
// empty service result and a failed call fall back to the original ordering
// with the original scores.
type Reranker struct {
	endpoint string
	apiKey   string
	model    string
	client   *http.Client
}

// Config configures the rerank client.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
}

// ConfigFromEnv reads the rerank service configuration from the environment.
func ConfigFromEnv() Config {
	return Config{
		Endpoint: os.Getenv("NVIDIA_RERANK_ENDPOINT"),
		APIKey:   os.Getenv("NVIDIA_RERANK_KEY"),
	}
}

// NewReranker creates a reranker.
func NewReranker(cfg Config) *Reranker {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Reranker{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		model:    model,
		client:   &http.Client{},
	}
}

type rerankRequest struct {
	Model    string       `json:"model"`
	Query    rerankText   `json:"query"`
	Passages []rerankText `json:"passages"`
}

type rerankText struct {
	Text string `json:"text"`
}

type rerankResponse struct {
	Passages []models.RerankedResult `json:"passages"`
}

// Rerank reorders documents by relevance to query. Scores in the returned
// results are relevance scores (higher is better); on fallback they are the
// caller's original scores, or 0.0 where absent. The caller is responsible
// for re-attaching metadata and doc ids by positional index.
func (r *Reranker) Rerank(ctx context.Context, query string, documents []string, scores []float64) []models.RerankedResult {
	log.Printf("Reranking %d documents with query: '%s'", len(documents), snippet(query, 50))

	results, err := r.call(ctx, query, documents)
	if err != nil {
		log.Printf("Reranking API request failed: %v", err)
		return fallbackResults(documents, scores)
	}

	if len(results) == 0 && len(documents) > 0 {
		log.Printf("No results from reranker, falling back to original documents")
		return fallbackResults(documents, scores)
	}

	return results
}

func (r *Reranker) call(ctx context.Context, query string, documents []string) ([]models.RerankedResult, error) {
	passages := make([]rerankText, len(documents))
	for i, doc := range documents {
		passages[i] = rerankText{Text: doc}
	}

	payload := rerankRequest{
		Model:    r.model,
		Query:    rerankText{Text: query},
		Passages: passages,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal rerank request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create rerank request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	var apiResp rerankResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode rerank response: %w", err)
	}
	return apiResp.Passages, nil
}

// fallbackResults preserves the original candidate order, carrying over the
// original scores where present and 0.0 otherwise.
func fallbackResults(documents []string, scores []float64) []models.RerankedResult {
	results := make([]models.RerankedResult, len(documents))
	for i, doc := range documents {
		score := 0.0
		if i < len(scores) {
			score = scores[i]
		}
		results[i] = models.RerankedResult{Text: doc, Score: score}
	}
	return results
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
