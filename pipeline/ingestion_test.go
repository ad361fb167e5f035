package pipeline

import (
	"testing"

	"carbonlens-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSegmentTextDropsShortSegments(t *testing.T) {
	pages := []models.PageText{
		{PageNum: 1, Content: "Electricity usage for March was 450 kWh."},
		{PageNum: 2, Content: "   ok   "},
		{PageNum: 3, Content: "Gas consumption totalled 120 therms this quarter."},
	}

	segments := segmentText(pages)

	require.Len(t, segments, 2)
	assert.Equal(t, 1, segments[0].PageNum)
	assert.Equal(t, "Electricity usage for March was 450 kWh.", segments[0].Content)
	assert.NotNil(t, segments[0].Position)
	assert.Equal(t, 3, segments[1].PageNum)
}

func TestSegmentTextEmptyInput(t *testing.T) {
	assert.Empty(t, segmentText(nil))
	assert.Empty(t, segmentText([]models.PageText{{PageNum: 1, Content: "tiny"}}))
}
