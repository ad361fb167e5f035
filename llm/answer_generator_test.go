package llm

import (
	"context"
	"testing"

	"carbonlens-backend/models"

	"github.com/stretchr/testify/assert"
)

func TestFormatContextWithMetadata(t *testing.T) {
	out := FormatContext([]models.RetrievalHit{
		{
			Text:     "Annual electricity usage was 12,000 kWh.",
			Metadata: models.Metadata{"document_path": "bills/march.pdf", "page_num": 3},
		},
		{
			Text: "No provenance for this one.",
		},
	})

	assert.Contains(t, out, "Document 1 [Source: bills/march.pdf, Page: 3]:\nAnnual electricity usage was 12,000 kWh.")
	assert.Contains(t, out, "Document 2 :\nNo provenance for this one.")
}

func TestFormatContextMissingMetadataFields(t *testing.T) {
	out := FormatContext([]models.RetrievalHit{{
		Text:     "text",
		Metadata: models.Metadata{},
	}})

	assert.Contains(t, out, "[Source: Unknown source, Page: Unknown page]")
}

func TestFormatPageStripsFloatSuffix(t *testing.T) {
	// JSON round-trips page numbers as float64.
	assert.Equal(t, "3", formatPage(float64(3)))
	assert.Equal(t, "3.5", formatPage(3.5))
	assert.Equal(t, "7", formatPage(7))
	assert.Equal(t, "iv", formatPage("iv"))
}

func TestGenerateAnswerReturnsErrorString(t *testing.T) {
	g := NewAnswerGenerator(Config{Endpoint: "http://127.0.0.1:1/v1", APIKey: "test"})

	answer := g.GenerateAnswer(context.Background(), "what is the total?", []models.RetrievalHit{
		{Text: "some context"},
	})

	assert.Contains(t, answer, "I encountered an error while generating an answer:")
}

func TestCreatePromptShape(t *testing.T) {
	prompt := createPrompt("What was consumed?", "Document 1 :\ncontext text\n")

	assert.Contains(t, prompt, "Question: What was consumed?")
	assert.Contains(t, prompt, "Context Documents:\nDocument 1 :\ncontext text")
	assert.Contains(t, prompt, "based only on the provided context documents")
}
