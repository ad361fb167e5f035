package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"sort"
	"strings"
)

// OCRProcessor calls the OCR service (PaddleOCR-style) and structures its
// positional output into table rows.
type OCRProcessor struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// OCRConfig configures the OCR client.
type OCRConfig struct {
	Endpoint string
	APIKey   string
}

// NewOCRProcessor creates an OCR processor.
func NewOCRProcessor(cfg OCRConfig) *OCRProcessor {
	return &OCRProcessor{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{},
	}
}

// OCRConfigFromEnv reads the OCR service configuration from the environment.
func OCRConfigFromEnv() OCRConfig {
	return OCRConfig{
		Endpoint: os.Getenv("NVIDIA_PADDLEOCR_ENDPOINT"),
		APIKey:   os.Getenv("NVIDIA_PADDLEOCR_KEY"),
	}
}

type ocrResponse struct {
	Results []ocrResult `json:"results"`
}

type ocrResult struct {
	TextLines []ocrTextLine `json:"text_lines"`
}

type ocrTextLine struct {
	Text string       `json:"text"`
	Box  [][2]float64 `json:"box"`
}

func (p *OCRProcessor) call(ctx context.Context, pngImage []byte) (*ocrResponse, error) {
	payload := detectionRequest{
		Input: []imageInput{{
			Type: "image_url",
			URL:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngImage),
		}},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal OCR request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create OCR request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("OCR API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("OCR API request failed: %d", resp.StatusCode)
	}

	var apiResp ocrResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode OCR response: %w", err)
	}
	return &apiResp, nil
}

// ProcessImage extracts free text from an image, newline-joined in service
// order.
func (p *OCRProcessor) ProcessImage(ctx context.Context, pngImage []byte) (string, error) {
	resp, err := p.call(ctx, pngImage)
	if err != nil {
		return "", err
	}

	var blocks []string
	for _, result := range resp.Results {
		for _, line := range result.TextLines {
			blocks = append(blocks, line.Text)
		}
	}
	return strings.Join(blocks, "\n"), nil
}

// ProcessTable extracts text from a table image and returns it as structured
// rows of cells.
func (p *OCRProcessor) ProcessTable(ctx context.Context, pngImage []byte) ([][]string, error) {
	resp, err := p.call(ctx, pngImage)
	if err != nil {
		return nil, err
	}
	return structureTableData(resp), nil
}

type positionedText struct {
	text string
	x    float64
	y    float64
}

// structureTableData groups OCR text lines into rows by quantizing the mean
// y-coordinate into buckets of 10 pixels, then sorts rows by bucket key and
// cells within a row by leftmost x-coordinate.
func structureTableData(resp *ocrResponse) [][]string {
	var lines []positionedText
	for _, result := range resp.Results {
		for _, tl := range result.TextLines {
			if tl.Text == "" || len(tl.Box) == 0 {
				continue
			}
			var ySum float64
			for _, point := range tl.Box {
				ySum += point[1]
			}
			lines = append(lines, positionedText{
				text: tl.Text,
				x:    tl.Box[0][0],
				y:    ySum / float64(len(tl.Box)),
			})
		}
	}

	rows := make(map[int][]positionedText)
	for _, line := range lines {
		rowKey := int(line.y / 10)
		rows[rowKey] = append(rows[rowKey], line)
	}

	keys := make([]int, 0, len(rows))
	for key := range rows {
		keys = append(keys, key)
	}
	sort.Ints(keys)

	structured := make([][]string, 0, len(keys))
	for _, key := range keys {
		row := rows[key]
		sort.Slice(row, func(i, j int) bool { return row[i].x < row[j].x })
		cells := make([]string, len(row))
		for i, cell := range row {
			cells[i] = cell.text
		}
		structured = append(structured, cells)
	}
	return structured
}
