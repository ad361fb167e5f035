package vectorstore

import (
	"context"
	"testing"

	"carbonlens-backend/models"

	"github.com/milvus-io/milvus-sdk-go/v2/client"
	"github.com/milvus-io/milvus-sdk-go/v2/entity"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The real client must keep satisfying the narrow interface the store uses.
var _ milvusAPI = (client.Client)(nil)

// fakeMilvus records calls and plays back canned search results.
type fakeMilvus struct {
	insertedColumns []entity.Column
	calls           []string
	searchResults   []client.SearchResult
	searchVectors   []entity.Vector
	searchTopK      int
}

func (f *fakeMilvus) HasCollection(ctx context.Context, collName string) (bool, error) {
	f.calls = append(f.calls, "has")
	return true, nil
}

func (f *fakeMilvus) LoadCollection(ctx context.Context, collName string, async bool, opts ...client.LoadCollectionOption) error {
	f.calls = append(f.calls, "load")
	return nil
}

func (f *fakeMilvus) Insert(ctx context.Context, collName string, partitionName string, columns ...entity.Column) (entity.Column, error) {
	f.calls = append(f.calls, "insert")
	f.insertedColumns = columns
	return nil, nil
}

func (f *fakeMilvus) Flush(ctx context.Context, collName string, async bool, opts ...client.FlushOption) error {
	f.calls = append(f.calls, "flush")
	return nil
}

func (f *fakeMilvus) Search(ctx context.Context, collName string, partitions []string, expr string, outputFields []string, vectors []entity.Vector, vectorField string, metricType entity.MetricType, topK int, sp entity.SearchParam, opts ...client.SearchQueryOptionFunc) ([]client.SearchResult, error) {
	f.calls = append(f.calls, "search")
	f.searchVectors = vectors
	f.searchTopK = topK
	return f.searchResults, nil
}

func testBatch(n int) *models.EmbeddingBatch {
	batch := &models.EmbeddingBatch{}
	for i := 0; i < n; i++ {
		batch.IDs = append(batch.IDs, i)
		batch.Texts = append(batch.Texts, "segment text")
		vec := make([]float32, Dimension)
		batch.Embeddings = append(batch.Embeddings, vec)
		batch.Metadata = append(batch.Metadata, models.Metadata{"page_num": i})
	}
	return batch
}

func TestAddDocumentsRejectsMisalignedBatch(t *testing.T) {
	fake := &fakeMilvus{}
	s := &Store{collection: DefaultCollection, api: fake}

	batch := testBatch(2)
	batch.Texts = batch.Texts[:1]

	_, err := s.AddDocuments(context.Background(), batch)
	assert.ErrorIs(t, err, ErrLengthMismatch)
	assert.Empty(t, fake.calls)
}

func TestAddDocumentsInsertsAndFlushes(t *testing.T) {
	fake := &fakeMilvus{}
	s := &Store{collection: DefaultCollection, api: fake}

	n, err := s.AddDocuments(context.Background(), testBatch(3))
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	assert.Equal(t, []string{"insert", "flush"}, fake.calls)

	require.Len(t, fake.insertedColumns, 4)
	docIDs, ok := fake.insertedColumns[0].(*entity.ColumnVarChar)
	require.True(t, ok)
	assert.Equal(t, "doc_id", docIDs.Name())
	assert.Equal(t, []string{"doc_0", "doc_1", "doc_2"}, docIDs.Data())

	embeddings, ok := fake.insertedColumns[2].(*entity.ColumnFloatVector)
	require.True(t, ok)
	assert.Equal(t, Dimension, embeddings.Dim())
}

func TestAddDocumentsEmptyBatch(t *testing.T) {
	fake := &fakeMilvus{}
	s := &Store{collection: DefaultCollection, api: fake}

	n, err := s.AddDocuments(context.Background(), &models.EmbeddingBatch{})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.Empty(t, fake.calls)
}

func TestSearchParsesHits(t *testing.T) {
	fake := &fakeMilvus{
		searchResults: []client.SearchResult{{
			ResultCount: 2,
			Scores:      []float32{0.12, 3.4},
			Fields: client.ResultSet{
				entity.NewColumnVarChar("text", []string{"first segment", "second segment"}),
				entity.NewColumnVarChar("doc_id", []string{"doc_0", "doc_1"}),
				entity.NewColumnJSONBytes("metadata", [][]byte{
					[]byte(`{"page_num": 1}`),
					[]byte(`{"page_num": 2}`),
				}),
			},
		}},
	}
	s := &Store{collection: DefaultCollection, api: fake}

	query := make([]float32, Dimension)
	hits, err := s.Search(context.Background(), query, 2)
	require.NoError(t, err)

	require.Len(t, hits, 2)
	assert.Equal(t, "first segment", hits[0].Text)
	assert.Equal(t, "doc_0", hits[0].DocID)
	assert.InDelta(t, 0.12, hits[0].Score, 1e-6)
	assert.Equal(t, float64(1), hits[0].Metadata["page_num"])
	assert.Equal(t, "second segment", hits[1].Text)

	// The collection is (re)loaded before searching.
	assert.Equal(t, []string{"load", "search"}, fake.calls)
	assert.Equal(t, 2, fake.searchTopK)
	require.Len(t, fake.searchVectors, 1)
}

func TestSearchSkipsMalformedMetadata(t *testing.T) {
	fake := &fakeMilvus{
		searchResults: []client.SearchResult{{
			ResultCount: 1,
			Scores:      []float32{1.0},
			Fields: client.ResultSet{
				entity.NewColumnVarChar("text", []string{"segment"}),
				entity.NewColumnVarChar("doc_id", []string{"doc_0"}),
				entity.NewColumnJSONBytes("metadata", [][]byte{[]byte(`{invalid`)}),
			},
		}},
	}
	s := &Store{collection: DefaultCollection, api: fake}

	hits, err := s.Search(context.Background(), make([]float32, Dimension), 1)
	require.NoError(t, err)

	require.Len(t, hits, 1)
	assert.Equal(t, "segment", hits[0].Text)
	assert.Nil(t, hits[0].Metadata)
}
