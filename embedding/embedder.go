package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"

	"carbonlens-backend/models"
)

const (
	defaultModel = "nvidia/nv-embedqa-e5-v5"

	// Maximum tokens accepted per input by the embedding API.
	maxTokens = 512
	// Token overlap shared between consecutive chunks.
	defaultOverlap = 50
	// Inputs per embedding request, to bound the request payload size.
	batchSize = 5
)

var (
	ErrEmptyInput       = errors.New("input text must not be empty")
	ErrMetadataMismatch = errors.New("number of metadata items must match number of texts")
)

// Embedder generates embedding vectors through an OpenAI-compatible
// embeddings endpoint and handles token-aware truncation and chunking.
type Embedder struct {
	endpoint  string
	apiKey    string
	model     string
	overlap   int
	tokenizer Tokenizer
	client    *http.Client
}

// Config configures the embedder.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
}

// ConfigFromEnv reads the embedding service configuration from the
// environment.
func ConfigFromEnv() Config {
	return Config{
		Endpoint: os.Getenv("NVIDIA_EMBEDDING_ENDPOINT"),
		APIKey:   os.Getenv("NVIDIA_EMBEDDING_KEY"),
	}
}

// NewEmbedder creates an embedder using the given tokenizer.
func NewEmbedder(cfg Config, tokenizer Tokenizer) *Embedder {
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &Embedder{
		endpoint:  strings.TrimRight(cfg.Endpoint, "/"),
		apiKey:    cfg.APIKey,
		model:     model,
		overlap:   defaultOverlap,
		tokenizer: tokenizer,
		client:    &http.Client{},
	}
}

// CountTokens returns the token count of text under the reference tokenizer.
func (e *Embedder) CountTokens(text string) int {
	return len(e.tokenizer.Encode(text))
}

// truncate shortens text to at most maxTokens tokens, reporting the
// truncation. Text at or under the limit is returned unchanged.
func (e *Embedder) truncate(text string) string {
	tokens := e.tokenizer.Encode(text)
	if len(tokens) <= maxTokens {
		return text
	}
	truncated := tokens[:maxTokens]
	log.Printf("Text truncated from %d to %d tokens", len(tokens), len(truncated))
	return e.tokenizer.Decode(truncated)
}

// EmbedText generates the embedding vector for a single text, truncating it
// to the token maximum first when needed.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, ErrEmptyInput
	}

	vectors, err := e.callEmbeddings(ctx, []string{e.truncate(text)})
	if err != nil {
		return nil, fmt.Errorf("embedding API request failed: %w", err)
	}
	if len(vectors) == 0 {
		return nil, errors.New("embedding API returned no vectors")
	}
	return vectors[0], nil
}

// EmbedBatch generates embeddings for texts, preserving input order. The
// input is split into sub-batches to bound per-request payload size, and
// over-length items are truncated the same way as EmbedText.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	for _, text := range texts {
		if text == "" {
			return nil, ErrEmptyInput
		}
	}

	all := make([][]float32, 0, len(texts))
	for i := 0; i < len(texts); i += batchSize {
		end := i + batchSize
		if end > len(texts) {
			end = len(texts)
		}

		batch := make([]string, 0, end-i)
		for _, text := range texts[i:end] {
			batch = append(batch, e.truncate(text))
		}

		vectors, err := e.callEmbeddings(ctx, batch)
		if err != nil {
			return nil, fmt.Errorf("batch embedding request failed: %w", err)
		}
		if len(vectors) != len(batch) {
			return nil, fmt.Errorf("embedding API returned %d vectors for %d inputs", len(vectors), len(batch))
		}
		all = append(all, vectors...)
	}
	return all, nil
}

// ChunkText splits text into chunks of chunkSize tokens with the configured
// overlap shared between consecutive chunks. A chunkSize of 0 uses the token
// maximum.
func (e *Embedder) ChunkText(text string, chunkSize int) []string {
	if chunkSize <= 0 {
		chunkSize = maxTokens
	}

	tokens := e.tokenizer.Encode(text)
	var chunks []string

	for i := 0; i < len(tokens); i += chunkSize - e.overlap {
		end := i + chunkSize
		if end > len(tokens) {
			end = len(tokens)
		}
		chunks = append(chunks, e.tokenizer.Decode(tokens[i:end]))

		if i+chunkSize >= len(tokens) {
			break
		}
	}
	return chunks
}

// EmbedBatchWithMetadata embeds texts and pairs each with caller-supplied
// metadata (1:1) or synthesized {original_text: text} metadata when none is
// given, assigning dense sequential integer ids. Validation failures are
// reported before any network call.
func (e *Embedder) EmbedBatchWithMetadata(ctx context.Context, texts []string, metadata []models.Metadata) (*models.EmbeddingBatch, error) {
	if len(texts) == 0 {
		return nil, ErrEmptyInput
	}
	for _, text := range texts {
		if text == "" {
			return nil, ErrEmptyInput
		}
	}
	if metadata != nil && len(metadata) != len(texts) {
		return nil, ErrMetadataMismatch
	}

	embeddings, err := e.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, err
	}

	ids := make([]int, len(texts))
	for i := range ids {
		ids[i] = i
	}

	if metadata == nil {
		metadata = make([]models.Metadata, len(texts))
		for i, text := range texts {
			metadata[i] = models.Metadata{"original_text": text}
		}
	}

	return &models.EmbeddingBatch{
		IDs:        ids,
		Texts:      texts,
		Embeddings: embeddings,
		Metadata:   metadata,
	}, nil
}

type embeddingRequest struct {
	Input          []string `json:"input"`
	Model          string   `json:"model"`
	EncodingFormat string   `json:"encoding_format"`
	InputType      string   `json:"input_type"`
	Truncate       string   `json:"truncate"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

func (e *Embedder) callEmbeddings(ctx context.Context, inputs []string) ([][]float32, error) {
	reqBody := embeddingRequest{
		Input:          inputs,
		Model:          e.model,
		EncodingFormat: "float",
		InputType:      "query",
		Truncate:       "END",
	}

	data, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.endpoint+"/embeddings", bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("status %d - %s", resp.StatusCode, string(body))
	}

	var apiResp embeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	vectors := make([][]float32, 0, len(apiResp.Data))
	for _, item := range apiResp.Data {
		vectors = append(vectors, item.Embedding)
	}
	return vectors, nil
}
