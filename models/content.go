package models

// BoundingBox is a detected region on a rendered page as [x1, y1, x2, y2]
// pixel coordinates.
type BoundingBox [4]float64

// PageText is the text layer of a single PDF page.
type PageText struct {
	PageNum int    `json:"page_num"`
	Content string `json:"content"`
}

// TableRegion is a detected table. Image holds the cropped region as PNG
// bytes; StructuredData is attached later by the OCR processor and is nil
// until then.
type TableRegion struct {
	BBox           BoundingBox `json:"bbox"`
	Image          []byte      `json:"-"`
	StructuredData [][]string  `json:"structured_data,omitempty"`
}

// ChartRegion is a detected chart with its raw data representation as
// returned by the chart-to-data service.
type ChartRegion struct {
	BBox BoundingBox `json:"bbox"`
	Data string      `json:"data"`
}

// ExtractedContent is the full output of the extraction stage for one
// document. It is produced once per document; only the OCR processor mutates
// it afterwards, to attach StructuredData to its own table entries.
type ExtractedContent struct {
	Text   []PageText    `json:"text"`
	Tables []TableRegion `json:"tables"`
	Charts []ChartRegion `json:"charts"`
}

// TextSegment is a unit of text considered for embedding. Segments whose
// trimmed content is shorter than 10 characters are excluded downstream.
type TextSegment struct {
	Content  string   `json:"content"`
	PageNum  int      `json:"page_num"`
	Position Metadata `json:"position,omitempty"`
}

// DocumentSegment pairs a piece of document text with its provenance
// metadata. It is the shape handed to the answer generator and the
// emissions calculator.
type DocumentSegment struct {
	Text     string   `json:"text"`
	Metadata Metadata `json:"metadata"`
}
