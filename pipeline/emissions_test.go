package pipeline

import (
	"testing"

	"carbonlens-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildContentSegments(t *testing.T) {
	pages := []models.PageText{
		{PageNum: 0, Content: "Electricity bill for March covering 500 kWh usage."},
		{PageNum: 1, Content: "   tiny   "}, // under the minimum length, dropped
	}
	extracted := &models.ExtractedContent{
		Tables: []models.TableRegion{
			{StructuredData: [][]string{{"Usage", "500 kWh"}}},
			{}, // no OCR data, dropped
		},
		Charts: []models.ChartRegion{
			{}, // no chart data, dropped
			{Data: "monthly usage trend"},
		},
	}

	segments := buildContentSegments("bills/march.pdf", pages, extracted)

	require.Len(t, segments, 3)

	assert.Equal(t, "Electricity bill for March covering 500 kWh usage.", segments[0].Text)
	assert.Equal(t, "text", segments[0].Metadata["type"])
	assert.Equal(t, 0, segments[0].Metadata["page_num"])
	assert.Equal(t, "bills/march.pdf", segments[0].Metadata["document_path"])

	assert.Equal(t, "Table data: [[Usage 500 kWh]]", segments[1].Text)
	assert.Equal(t, "table", segments[1].Metadata["type"])
	assert.Equal(t, 0, segments[1].Metadata["table_index"])

	assert.Equal(t, "Chart data: monthly usage trend", segments[2].Text)
	assert.Equal(t, "chart", segments[2].Metadata["type"])
	assert.Equal(t, 1, segments[2].Metadata["chart_index"])
}

func TestBuildContentSegmentsEmptyDocument(t *testing.T) {
	segments := buildContentSegments("empty.pdf", nil, &models.ExtractedContent{})
	assert.Empty(t, segments)
}
