package extraction

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func line(text string, x, y float64) ocrTextLine {
	// Axis-aligned box with mean y equal to y.
	return ocrTextLine{
		Text: text,
		Box:  [][2]float64{{x, y - 2}, {x + 40, y - 2}, {x + 40, y + 2}, {x, y + 2}},
	}
}

func TestStructureTableDataGroupsRowsByYBucket(t *testing.T) {
	resp := &ocrResponse{Results: []ocrResult{{
		TextLines: []ocrTextLine{
			// Second row first, cells out of x order, to exercise sorting.
			line("World", 120, 25),
			line("Hello", 10, 25),
			line("B", 120, 12),
			line("A", 10, 12),
		},
	}}}

	rows := structureTableData(resp)

	assert.Equal(t, [][]string{
		{"A", "B"},
		{"Hello", "World"},
	}, rows)
}

func TestStructureTableDataSeparatesAdjacentBuckets(t *testing.T) {
	resp := &ocrResponse{Results: []ocrResult{{
		TextLines: []ocrTextLine{
			// Mean y 9 and 11 land in buckets 0 and 1, so they stay
			// separate rows even though they are only 2px apart.
			line("upper", 10, 9),
			line("lower", 10, 11),
		},
	}}}

	rows := structureTableData(resp)

	assert.Equal(t, [][]string{{"upper"}, {"lower"}}, rows)
}

func TestStructureTableDataSkipsEmptyLines(t *testing.T) {
	resp := &ocrResponse{Results: []ocrResult{{
		TextLines: []ocrTextLine{
			line("", 10, 12),
			{Text: "no box"},
			line("kept", 10, 12),
		},
	}}}

	rows := structureTableData(resp)

	assert.Equal(t, [][]string{{"kept"}}, rows)
}
