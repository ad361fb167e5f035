package extraction

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"log"

	"carbonlens-backend/models"

	"github.com/gen2brain/go-fitz"
)

// Extractor turns a PDF into per-page text plus detected table and chart
// regions. Per-page and per-object failures are logged and skipped; the text
// layer of every page is always emitted.
type Extractor struct {
	detector *DetectionClient
	charts   *ChartClient
}

// NewExtractor creates a document extractor.
func NewExtractor(detector *DetectionClient, charts *ChartClient) *Extractor {
	return &Extractor{
		detector: detector,
		charts:   charts,
	}
}

// NewExtractorFromEnv creates a document extractor configured from the
// environment.
func NewExtractorFromEnv() *Extractor {
	return NewExtractor(
		NewDetectionClient(DetectionConfigFromEnv()),
		NewChartClient(ChartConfigFromEnv()),
	)
}

// ExtractFromPDF extracts text, tables and charts from the PDF at pdfPath.
// Detection runs per page over the rasterized image; detections below
// confidence 0.5 are discarded. A failed detection or region call degrades
// that object or page only, never the whole document.
func (e *Extractor) ExtractFromPDF(ctx context.Context, pdfPath string) (*models.ExtractedContent, error) {
	doc, err := fitz.New(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF %s: %w", pdfPath, err)
	}
	defer doc.Close()

	content := &models.ExtractedContent{
		Text:   make([]models.PageText, 0, doc.NumPage()),
		Tables: make([]models.TableRegion, 0),
		Charts: make([]models.ChartRegion, 0),
	}

	for pageNum := 0; pageNum < doc.NumPage(); pageNum++ {
		img, err := doc.Image(pageNum)
		if err != nil {
			log.Printf("Error rendering page %d: %v", pageNum, err)
		} else {
			e.processPageObjects(ctx, pageNum, img, content)
		}

		// The text layer is emitted regardless of detection outcome.
		text, err := doc.Text(pageNum)
		if err != nil {
			log.Printf("Error extracting text from page %d: %v", pageNum, err)
			text = ""
		}
		content.Text = append(content.Text, models.PageText{
			PageNum: pageNum,
			Content: text,
		})
	}

	return content, nil
}

func (e *Extractor) processPageObjects(ctx context.Context, pageNum int, img image.Image, content *models.ExtractedContent) {
	pagePNG, err := encodePNG(img)
	if err != nil {
		log.Printf("Error processing page %d: %v", pageNum, err)
		return
	}

	objects, err := e.detector.Detect(ctx, pagePNG)
	if err != nil {
		log.Printf("Error processing page %d: %v", pageNum, err)
		return
	}

	for _, obj := range objects {
		if obj.Confidence < 0.5 {
			continue
		}

		switch obj.Label {
		case "chart":
			chart, err := e.processChart(ctx, img, obj.Box)
			if err != nil {
				log.Printf("Error processing chart on page %d: %v", pageNum, err)
				continue
			}
			content.Charts = append(content.Charts, chart)

		case "table":
			table, err := processTableRegion(img, obj.Box)
			if err != nil {
				log.Printf("Error processing table on page %d: %v", pageNum, err)
				continue
			}
			content.Tables = append(content.Tables, table)
		}
	}
}

func (e *Extractor) processChart(ctx context.Context, img image.Image, box [4]float64) (models.ChartRegion, error) {
	cropped, err := cropPNG(img, box)
	if err != nil {
		return models.ChartRegion{}, err
	}

	data, err := e.charts.ExtractData(ctx, cropped)
	if err != nil {
		return models.ChartRegion{}, err
	}

	return models.ChartRegion{
		BBox: models.BoundingBox(box),
		Data: data,
	}, nil
}

// processTableRegion crops the table region and keeps the image for later
// OCR structuring.
func processTableRegion(img image.Image, box [4]float64) (models.TableRegion, error) {
	cropped, err := cropPNG(img, box)
	if err != nil {
		return models.TableRegion{}, err
	}
	return models.TableRegion{
		BBox:  models.BoundingBox(box),
		Image: cropped,
	}, nil
}

func encodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode page image: %w", err)
	}
	return buf.Bytes(), nil
}

// cropPNG crops the [x1, y1, x2, y2] region out of img and re-encodes it as
// PNG. The region is clamped to the image bounds.
func cropPNG(img image.Image, box [4]float64) ([]byte, error) {
	rect := image.Rect(int(box[0]), int(box[1]), int(box[2]), int(box[3]))
	rect = rect.Intersect(img.Bounds())
	if rect.Empty() {
		return nil, fmt.Errorf("region %v is outside the page image", box)
	}

	cropped := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(cropped, cropped.Bounds(), img, rect.Min, draw.Src)

	return encodePNG(cropped)
}
