package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"carbonlens-backend/embedding"
	"carbonlens-backend/extraction"
	"carbonlens-backend/models"
	"carbonlens-backend/vectorstore"
)

// minSegmentLength is the shortest trimmed text segment worth embedding.
const minSegmentLength = 10

// IngestionPipeline runs a PDF through extraction, table OCR, embedding and
// vector storage.
type IngestionPipeline struct {
	extractor *extraction.Extractor
	ocr       *extraction.OCRProcessor
	embedder  *embedding.Embedder
	store     *vectorstore.Store
}

func NewIngestionPipeline(extractor *extraction.Extractor, ocr *extraction.OCRProcessor, embedder *embedding.Embedder, store *vectorstore.Store) *IngestionPipeline {
	return &IngestionPipeline{
		extractor: extractor,
		ocr:       ocr,
		embedder:  embedder,
		store:     store,
	}
}

// ProcessDocument extracts content from the PDF at pdfPath, OCRs detected
// tables, embeds the usable text segments and stores them. The extracted
// content is returned with table structured data attached.
func (p *IngestionPipeline) ProcessDocument(ctx context.Context, pdfPath string) (*models.ExtractedContent, error) {
	log.Printf("Processing document: %s", pdfPath)

	content, err := p.extractor.ExtractFromPDF(ctx, pdfPath)
	if err != nil {
		return nil, fmt.Errorf("document processing failed: %w", err)
	}
	log.Printf("Extracted %d text segments, %d tables, and %d charts",
		len(content.Text), len(content.Tables), len(content.Charts))

	for i := range content.Tables {
		structured, err := p.ocr.ProcessTable(ctx, content.Tables[i].Image)
		if err != nil {
			return nil, fmt.Errorf("document processing failed: %w", err)
		}
		content.Tables[i].StructuredData = structured
	}

	segments := segmentText(content.Text)
	texts := make([]string, 0, len(segments))
	metadata := make([]models.Metadata, 0, len(segments))
	for _, segment := range segments {
		texts = append(texts, segment.Content)
		metadata = append(metadata, models.Metadata{
			"page_num":      segment.PageNum,
			"position":      segment.Position,
			"document_path": pdfPath,
		})
	}

	if len(texts) == 0 {
		log.Printf("No valid text segments found to embed")
		return content, nil
	}

	log.Printf("Generating embeddings for %d text segments", len(texts))
	batch, err := p.embedder.EmbedBatchWithMetadata(ctx, texts, metadata)
	if err != nil {
		return nil, fmt.Errorf("document processing failed: %w", err)
	}

	inserted, err := p.store.AddDocuments(ctx, batch)
	if err != nil {
		return nil, fmt.Errorf("failed to store document in vector database: %w", err)
	}
	log.Printf("Stored %d text segments in vector database", inserted)

	return content, nil
}

// segmentText converts page text into embeddable segments, dropping any
// whose trimmed content is shorter than minSegmentLength.
func segmentText(pages []models.PageText) []models.TextSegment {
	var segments []models.TextSegment
	for _, page := range pages {
		if len(strings.TrimSpace(page.Content)) < minSegmentLength {
			continue
		}
		segments = append(segments, models.TextSegment{
			Content:  page.Content,
			PageNum:  page.PageNum,
			Position: models.Metadata{},
		})
	}
	return segments
}
