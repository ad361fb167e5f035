package models

import (
	"database/sql/driver"
	"encoding/json"
)

// Metadata is free-form key/value metadata attached to embedded segments
// (page_num, document_path, position, ...).
type Metadata map[string]interface{}

// Value implements driver.Valuer for JSONB
func (m Metadata) Value() (driver.Value, error) {
	return json.Marshal(m)
}

// Scan implements sql.Scanner for JSONB
func (m *Metadata) Scan(value interface{}) error {
	if value == nil {
		*m = make(Metadata)
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		*m = make(Metadata)
		return nil
	}

	if len(bytes) == 0 {
		*m = make(Metadata)
		return nil
	}

	return json.Unmarshal(bytes, m)
}

// EmbeddingBatch holds index-aligned ids, texts, embeddings and metadata for
// a batch insert. IDs are dense sequential integers within the batch; the
// vector store derives the stored doc_id as "doc_" + id. All four slices
// must stay the same length.
type EmbeddingBatch struct {
	IDs        []int
	Texts      []string
	Embeddings [][]float32
	Metadata   []Metadata
}

// RetrievalHit is one result from the vector store or the reranker.
//
// Score semantics flip between stages: straight out of the vector store it
// is an L2 distance (lower is more similar); after reranking it is the
// rerank relevance score (higher is more relevant). Callers must not mix
// the two.
type RetrievalHit struct {
	Text     string   `json:"text"`
	Score    float64  `json:"score"`
	Metadata Metadata `json:"metadata"`
	DocID    string   `json:"doc_id"`
}

// RerankedResult is a text/score pair as returned by the rerank service.
// Score is a relevance score, higher is better.
type RerankedResult struct {
	Text  string  `json:"text"`
	Score float64 `json:"score"`
}
