package pipeline

import (
	"context"
	"log"

	"carbonlens-backend/embedding"
	"carbonlens-backend/llm"
	"carbonlens-backend/models"
	"carbonlens-backend/ranking"
	"carbonlens-backend/vectorstore"
)

// noResultsAnswer is returned instead of an LLM answer when retrieval came
// back empty.
const noResultsAnswer = "No relevant documents found to answer your query."

// QueryResponse bundles the reranked hits with the generated answer.
type QueryResponse struct {
	Results []models.RetrievalHit `json:"results"`
	Answer  string                `json:"answer"`
}

// RetrievalPipeline answers queries over the ingested corpus: embed, vector
// search, rerank, then optionally synthesize an answer.
type RetrievalPipeline struct {
	embedder *embedding.Embedder
	reranker *ranking.Reranker
	answers  *llm.AnswerGenerator
	store    *vectorstore.Store
}

func NewRetrievalPipeline(embedder *embedding.Embedder, reranker *ranking.Reranker, answers *llm.AnswerGenerator, store *vectorstore.Store) *RetrievalPipeline {
	return &RetrievalPipeline{
		embedder: embedder,
		reranker: reranker,
		answers:  answers,
		store:    store,
	}
}

// ProcessQuery retrieves the k most relevant segments for query and reranks
// them. A failed query embedding is an error; a failed vector search degrades
// to an empty result set. Metadata and doc IDs are re-attached positionally
// after reranking, so they match the pre-rerank order of the hits.
func (p *RetrievalPipeline) ProcessQuery(ctx context.Context, query string, k int) ([]models.RetrievalHit, error) {
	log.Printf("=== Processing query: %q ===", query)

	queryEmbedding, err := p.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}
	log.Printf("Generated embedding of dimension: %d", len(queryEmbedding))

	hits, err := p.store.Search(ctx, queryEmbedding, k)
	if err != nil {
		log.Printf("Error during search: %v", err)
		return nil, nil
	}
	log.Printf("Search returned %d results", len(hits))

	if len(hits) == 0 {
		log.Printf("No documents found in vector database")
		return nil, nil
	}

	documents := make([]string, len(hits))
	scores := make([]float64, len(hits))
	for i, hit := range hits {
		documents[i] = hit.Text
		scores[i] = hit.Score
	}

	log.Printf("Reranking %d documents...", len(documents))
	reranked := p.reranker.Rerank(ctx, query, documents, scores)

	results := make([]models.RetrievalHit, len(reranked))
	for i, r := range reranked {
		results[i] = models.RetrievalHit{Text: r.Text, Score: r.Score}
		if i < len(hits) {
			results[i].Metadata = hits[i].Metadata
			results[i].DocID = hits[i].DocID
		}
	}
	return results, nil
}

// GenerateAnswer synthesizes an answer from already retrieved hits.
func (p *RetrievalPipeline) GenerateAnswer(ctx context.Context, query string, results []models.RetrievalHit) string {
	if len(results) == 0 {
		return noResultsAnswer
	}
	return p.answers.GenerateAnswer(ctx, query, results)
}

// AnswerQuery runs retrieval and answer generation in one step.
func (p *RetrievalPipeline) AnswerQuery(ctx context.Context, query string, k int) (*QueryResponse, error) {
	results, err := p.ProcessQuery(ctx, query, k)
	if err != nil {
		return nil, err
	}
	return &QueryResponse{
		Results: results,
		Answer:  p.GenerateAnswer(ctx, query, results),
	}, nil
}
