package embedding

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"carbonlens-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wordTokenizer treats each whitespace-separated word as one token.
type wordTokenizer struct {
	vocab map[string]int
	words []string
}

func newWordTokenizer() *wordTokenizer {
	return &wordTokenizer{vocab: make(map[string]int)}
}

func (t *wordTokenizer) Encode(text string) []int {
	fields := strings.Fields(text)
	tokens := make([]int, 0, len(fields))
	for _, w := range fields {
		id, ok := t.vocab[w]
		if !ok {
			id = len(t.words)
			t.vocab[w] = id
			t.words = append(t.words, w)
		}
		tokens = append(tokens, id)
	}
	return tokens
}

func (t *wordTokenizer) Decode(tokens []int) string {
	words := make([]string, len(tokens))
	for i, id := range tokens {
		words[i] = t.words[id]
	}
	return strings.Join(words, " ")
}

func repeatWords(n int) string {
	words := make([]string, n)
	for i := range words {
		words[i] = fmt.Sprintf("w%d", i)
	}
	return strings.Join(words, " ")
}

// embeddingServer answers each input with a fixed-size vector and records
// every request body.
func embeddingServer(t *testing.T, requests *[]embeddingRequest) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/embeddings", r.URL.Path)

		var req embeddingRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		*requests = append(*requests, req)

		type item struct {
			Embedding []float32 `json:"embedding"`
		}
		data := make([]item, len(req.Input))
		for i := range req.Input {
			data[i] = item{Embedding: []float32{float32(i), 1.0}}
		}
		json.NewEncoder(w).Encode(map[string]interface{}{"data": data})
	}))
}

func TestEmbedTextTruncatesLongInput(t *testing.T) {
	var requests []embeddingRequest
	srv := embeddingServer(t, &requests)
	defer srv.Close()

	e := NewEmbedder(Config{Endpoint: srv.URL}, newWordTokenizer())

	_, err := e.EmbedText(context.Background(), repeatWords(600))
	require.NoError(t, err)

	require.Len(t, requests, 1)
	require.Len(t, requests[0].Input, 1)
	assert.Equal(t, maxTokens, len(strings.Fields(requests[0].Input[0])))
}

func TestEmbedTextSendsRequestExtras(t *testing.T) {
	var requests []embeddingRequest
	srv := embeddingServer(t, &requests)
	defer srv.Close()

	e := NewEmbedder(Config{Endpoint: srv.URL}, newWordTokenizer())

	_, err := e.EmbedText(context.Background(), "hello world")
	require.NoError(t, err)

	require.Len(t, requests, 1)
	assert.Equal(t, "nvidia/nv-embedqa-e5-v5", requests[0].Model)
	assert.Equal(t, "float", requests[0].EncodingFormat)
	assert.Equal(t, "query", requests[0].InputType)
	assert.Equal(t, "END", requests[0].Truncate)
}

func TestEmbedTextRejectsEmptyInput(t *testing.T) {
	e := NewEmbedder(Config{}, newWordTokenizer())

	_, err := e.EmbedText(context.Background(), "")
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedBatchSplitsIntoSubBatches(t *testing.T) {
	var requests []embeddingRequest
	srv := embeddingServer(t, &requests)
	defer srv.Close()

	e := NewEmbedder(Config{Endpoint: srv.URL}, newWordTokenizer())

	texts := make([]string, 7)
	for i := range texts {
		texts[i] = fmt.Sprintf("text number %d", i)
	}

	vectors, err := e.EmbedBatch(context.Background(), texts)
	require.NoError(t, err)

	assert.Len(t, vectors, 7)
	require.Len(t, requests, 2)
	assert.Len(t, requests[0].Input, 5)
	assert.Len(t, requests[1].Input, 2)
}

func TestChunkTextCoversAllTokensWithOverlap(t *testing.T) {
	tok := newWordTokenizer()
	e := NewEmbedder(Config{}, tok)

	text := repeatWords(120)
	chunks := e.ChunkText(text, 100)

	require.Len(t, chunks, 2)
	assert.Equal(t, 100, len(strings.Fields(chunks[0])))
	assert.Equal(t, 70, len(strings.Fields(chunks[1])))

	// Consecutive chunks share the configured overlap.
	first := strings.Fields(chunks[0])
	second := strings.Fields(chunks[1])
	assert.Equal(t, first[50:], second[:50])

	// Every token appears.
	seen := make(map[string]bool)
	for _, chunk := range chunks {
		for _, w := range strings.Fields(chunk) {
			seen[w] = true
		}
	}
	assert.Len(t, seen, 120)
}

func TestChunkTextShortInputSingleChunk(t *testing.T) {
	e := NewEmbedder(Config{}, newWordTokenizer())

	chunks := e.ChunkText("just a few words", 100)

	require.Len(t, chunks, 1)
	assert.Equal(t, "just a few words", chunks[0])
}

func TestEmbedBatchWithMetadataValidatesBeforeNetwork(t *testing.T) {
	// No server: a network call would fail loudly, so reaching the
	// validation error proves the request was never sent.
	e := NewEmbedder(Config{Endpoint: "http://127.0.0.1:1"}, newWordTokenizer())

	_, err := e.EmbedBatchWithMetadata(context.Background(),
		[]string{"a b c", "d e f"},
		[]models.Metadata{{"page_num": 1}},
	)
	assert.ErrorIs(t, err, ErrMetadataMismatch)

	_, err = e.EmbedBatchWithMetadata(context.Background(), nil, nil)
	assert.ErrorIs(t, err, ErrEmptyInput)
}

func TestEmbedBatchWithMetadataSynthesizesMetadata(t *testing.T) {
	var requests []embeddingRequest
	srv := embeddingServer(t, &requests)
	defer srv.Close()

	e := NewEmbedder(Config{Endpoint: srv.URL}, newWordTokenizer())

	batch, err := e.EmbedBatchWithMetadata(context.Background(), []string{"first text", "second text"}, nil)
	require.NoError(t, err)

	assert.Equal(t, []int{0, 1}, batch.IDs)
	require.Len(t, batch.Metadata, 2)
	assert.Equal(t, models.Metadata{"original_text": "first text"}, batch.Metadata[0])
	assert.Equal(t, models.Metadata{"original_text": "second text"}, batch.Metadata[1])
}
