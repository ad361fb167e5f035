package vectorstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"

	"carbonlens-backend/models"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
)

const (
	// DefaultCollection is the collection documents are indexed into.
	DefaultCollection = "vector_db"
	// Dimension is the embedding dimension of the collection schema.
	Dimension = 1024

	searchNprobe = 10
)

var ErrLengthMismatch = errors.New("ids, texts, embeddings and metadata must be index-aligned")

// milvusAPI is the slice of the Milvus client the store depends on.
type milvusAPI interface {
	HasCollection(ctx context.Context, collName string) (bool, error)
	LoadCollection(ctx context.Context, collName string, async bool, opts ...client.LoadCollectionOption) error
	Insert(ctx context.Context, collName string, partitionName string, columns ...entity.Column) (entity.Column, error)
	Flush(ctx context.Context, collName string, async bool, opts ...client.FlushOption) error
	Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error)
}

// Store persists embeddings with their text and metadata in a Milvus
// collection and answers top-k L2 similarity searches.
type Store struct {
	collection string
	api        milvusAPI
}

// NewStore creates a store bound to the configured collection, connecting to
// Milvus through the shared process-wide handle. A missing collection is
// reported but not fatal here; provisioning is a separate step.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	c, err := Connect(ctx, cfg)
	if err != nil {
		return nil, err
	}

	s := &Store{collection: cfg.Collection, api: c}

	exists, err := c.HasCollection(ctx, s.collection)
	if err != nil {
		log.Printf("Warning: Could not check collection %s: %v", s.collection, err)
	} else if !exists {
		log.Printf("Warning: Collection %s does not exist. Run setup-collection first.", s.collection)
	}

	s.ensureLoaded(ctx)
	return s, nil
}

// ensureLoaded asks Milvus to load the collection into memory. Loading is
// idempotent and best-effort: the collection may already be resident, so a
// failure is logged, not fatal.
func (s *Store) ensureLoaded(ctx context.Context) {
	if err := s.api.LoadCollection(ctx, s.collection, false); err != nil {
		log.Printf("Warning: Could not load collection %s: %v", s.collection, err)
	}
}

// AddDocuments inserts the batch as one unit and flushes before returning
// the inserted count. From the caller's perspective the batch either
// succeeds completely or the call errors.
func (s *Store) AddDocuments(ctx context.Context, batch *models.EmbeddingBatch) (int, error) {
	n := len(batch.IDs)
	if len(batch.Texts) != n || len(batch.Embeddings) != n || len(batch.Metadata) != n {
		return 0, ErrLengthMismatch
	}
	if n == 0 {
		return 0, nil
	}

	docIDs := make([]string, n)
	metadata := make([][]byte, n)
	for i := 0; i < n; i++ {
		docIDs[i] = fmt.Sprintf("doc_%d", batch.IDs[i])

		meta := batch.Metadata[i]
		if meta == nil {
			meta = models.Metadata{}
		}
		data, err := json.Marshal(meta)
		if err != nil {
			return 0, fmt.Errorf("failed to encode metadata for %s: %w", docIDs[i], err)
		}
		metadata[i] = data
	}

	_, err := s.api.Insert(ctx, s.collection, "",
		entity.NewColumnVarChar("doc_id", docIDs),
		entity.NewColumnVarChar("text", batch.Texts),
		entity.NewColumnFloatVector("embedding", Dimension, batch.Embeddings),
		entity.NewColumnJSONBytes("metadata", metadata),
	)
	if err != nil {
		return 0, fmt.Errorf("failed to insert into vector store: %w", err)
	}

	if err := s.api.Flush(ctx, s.collection, false); err != nil {
		return 0, fmt.Errorf("failed to flush collection %s: %w", s.collection, err)
	}

	return n, nil
}

// Search returns up to k nearest neighbors of queryEmbedding by L2 distance.
// Hit scores are distances: lower means more similar.
func (s *Store) Search(ctx context.Context, queryEmbedding []float32, k int) ([]models.RetrievalHit, error) {
	s.ensureLoaded(ctx)

	sp, err := entity.NewIndexIvfFlatSearchParam(searchNprobe)
	if err != nil {
		return nil, fmt.Errorf("failed to build search params: %w", err)
	}

	results, err := s.api.Search(ctx, s.collection, nil, "",
		[]string{"text", "metadata", "doc_id"},
		[]entity.Vector{entity.FloatVector(queryEmbedding)},
		"embedding", entity.L2, k, sp,
	)
	if err != nil {
		return nil, fmt.Errorf("vector search failed: %w", err)
	}

	var hits []models.RetrievalHit
	for _, rs := range results {
		texts := varCharData(rs.Fields.GetColumn("text"))
		docIDs := varCharData(rs.Fields.GetColumn("doc_id"))
		metas := jsonData(rs.Fields.GetColumn("metadata"))

		for i := 0; i < rs.ResultCount; i++ {
			hit := models.RetrievalHit{Score: float64(rs.Scores[i])}
			if i < len(texts) {
				hit.Text = texts[i]
			}
			if i < len(docIDs) {
				hit.DocID = docIDs[i]
			}
			if i < len(metas) {
				var meta models.Metadata
				if err := json.Unmarshal(metas[i], &meta); err != nil {
					log.Printf("Error processing hit %d: %v", i, err)
				} else {
					hit.Metadata = meta
				}
			}
			hits = append(hits, hit)
		}
	}
	return hits, nil
}

// Save is a no-op kept for interface symmetry with a local index backend;
// all state lives in the external collection.
func (s *Store) Save(path string) error {
	log.Printf("Note: collection %s is stored remotely. No local save needed.", s.collection)
	return nil
}

// Load is a no-op counterpart of Save. It still asks Milvus to (re)load the
// collection into memory, best-effort.
func (s *Store) Load(path string) error {
	log.Printf("Note: collection %s is loaded remotely. No local load needed.", s.collection)
	s.ensureLoaded(context.Background())
	return nil
}

func varCharData(col entity.Column) []string {
	if c, ok := col.(*entity.ColumnVarChar); ok {
		return c.Data()
	}
	return nil
}

func jsonData(col entity.Column) [][]byte {
	if c, ok := col.(*entity.ColumnJSONBytes); ok {
		return c.Data()
	}
	return nil
}
