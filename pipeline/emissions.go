package pipeline

import (
	"context"
	"fmt"
	"log"
	"strings"

	"carbonlens-backend/emission"
	"carbonlens-backend/extraction"
	"carbonlens-backend/models"
)

// emissionsSummaryQuery drives the retrieval step of the emissions-focused
// document summary.
const emissionsSummaryQuery = "Extract information related to greenhouse gas emissions, energy usage, transportation, material consumption, and waste generation."

const noEmissionsActivitiesError = "No emission-relevant activities found in the document"

const noEmissionsSummary = "No emissions-relevant information could be automatically extracted."

// EmissionsPipeline combines ingestion and retrieval with the emissions
// calculator to produce document-level emissions reports.
type EmissionsPipeline struct {
	ingestion  *IngestionPipeline
	retrieval  *RetrievalPipeline
	calculator *emission.Calculator
	extractor  *extraction.Extractor
}

func NewEmissionsPipeline(ingestion *IngestionPipeline, retrieval *RetrievalPipeline, calculator *emission.Calculator, extractor *extraction.Extractor) *EmissionsPipeline {
	return &EmissionsPipeline{
		ingestion:  ingestion,
		retrieval:  retrieval,
		calculator: calculator,
		extractor:  extractor,
	}
}

// ProcessDocumentForEmissions ingests the document, then extracts
// emission-relevant activities from its full text and calculates their
// emissions. The activity extraction reads a fresh, untruncated extraction of
// the document rather than the embedded (token-truncated) segments.
func (p *EmissionsPipeline) ProcessDocumentForEmissions(ctx context.Context, documentPath string) (*models.EmissionsReport, error) {
	extractionResult, err := p.ingestion.ProcessDocument(ctx, documentPath)
	if err != nil {
		return nil, err
	}
	log.Printf("Document processed with %d text segments", len(extractionResult.Text))

	full, err := p.extractor.ExtractFromPDF(ctx, documentPath)
	if err != nil {
		return nil, err
	}

	segments := buildContentSegments(documentPath, full.Text, extractionResult)

	log.Printf("Extracting emission-relevant activities from %d content segments", len(segments))

	activities := p.calculator.ExtractActivities(ctx, segments)
	log.Printf("Extracted %d emission-relevant activities", len(activities))

	report := &models.EmissionsReport{
		DocumentPath: documentPath,
		Extraction:   extractionResult,
		Activities:   activities,
	}
	if len(activities) == 0 {
		report.Activities = []models.Activity{}
		report.Calculation = models.EmissionsResult{Error: noEmissionsActivitiesError}
		return report, nil
	}

	log.Printf("Calculating emissions for %d activities", len(activities))
	report.Calculation = p.calculator.CalculateEmissions(ctx, activities)
	return report, nil
}

// buildContentSegments assembles the LLM input: the full page text plus the
// OCR'd table data and chart data from the ingestion pass.
func buildContentSegments(documentPath string, pages []models.PageText, extracted *models.ExtractedContent) []models.DocumentSegment {
	var segments []models.DocumentSegment

	for _, page := range pages {
		if len(strings.TrimSpace(page.Content)) < minSegmentLength {
			continue
		}
		segments = append(segments, models.DocumentSegment{
			Text: page.Content,
			Metadata: models.Metadata{
				"document_path": documentPath,
				"page_num":      page.PageNum,
				"type":          "text",
			},
		})
	}

	for i, table := range extracted.Tables {
		if len(table.StructuredData) == 0 {
			continue
		}
		segments = append(segments, models.DocumentSegment{
			Text: fmt.Sprintf("Table data: %v", table.StructuredData),
			Metadata: models.Metadata{
				"document_path": documentPath,
				"type":          "table",
				"table_index":   i,
			},
		})
	}

	for i, chart := range extracted.Charts {
		if chart.Data == "" {
			continue
		}
		segments = append(segments, models.DocumentSegment{
			Text: fmt.Sprintf("Chart data: %s", chart.Data),
			Metadata: models.Metadata{
				"document_path": documentPath,
				"type":          "chart",
				"chart_index":   i,
			},
		})
	}

	return segments
}

// GetDocumentSummaryForEmissions ingests the document and produces an
// emissions-focused summary of it via the retrieval pipeline.
func (p *EmissionsPipeline) GetDocumentSummaryForEmissions(ctx context.Context, documentPath string) (*models.EmissionsSummary, error) {
	if _, err := p.ingestion.ProcessDocument(ctx, documentPath); err != nil {
		return nil, err
	}

	resp, err := p.retrieval.AnswerQuery(ctx, emissionsSummaryQuery, 5)
	if err != nil {
		return nil, err
	}

	summary := resp.Answer
	if summary == "" {
		summary = noEmissionsSummary
	}

	sections := resp.Results
	if sections == nil {
		sections = []models.RetrievalHit{}
	}

	return &models.EmissionsSummary{
		DocumentPath:     documentPath,
		Summary:          summary,
		RelevantSections: sections,
	}, nil
}
