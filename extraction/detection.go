package extraction

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
)

// Detection is one detected page element.
type Detection struct {
	Label      string
	Box        [4]float64
	Confidence float64
}

// DetectionClient calls the object-detection service (YOLOX-style) to locate
// tables and charts on a rendered page image.
type DetectionClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// DetectionConfig configures the object-detection client.
type DetectionConfig struct {
	Endpoint string
	APIKey   string
}

// NewDetectionClient creates a detection client from explicit configuration.
func NewDetectionClient(cfg DetectionConfig) *DetectionClient {
	return &DetectionClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{},
	}
}

// DetectionConfigFromEnv reads the detection service configuration from the
// environment.
func DetectionConfigFromEnv() DetectionConfig {
	return DetectionConfig{
		Endpoint: os.Getenv("NVIDIA_YOLOX_ENDPOINT"),
		APIKey:   os.Getenv("NVIDIA_YOLOX_KEY"),
	}
}

type detectionRequest struct {
	Input []imageInput `json:"input"`
}

type imageInput struct {
	Type string `json:"type"`
	URL  string `json:"url"`
}

type detectionResponse struct {
	Results []struct {
		Boxes []struct {
			Label       string     `json:"label"`
			Coordinates [4]float64 `json:"coordinates"`
			Confidence  float64    `json:"confidence"`
		} `json:"boxes"`
	} `json:"results"`
}

// Detect sends a PNG-encoded page image to the detection service and returns
// the detected elements. A non-200 response is a hard failure for this page's
// object list.
func (c *DetectionClient) Detect(ctx context.Context, pngImage []byte) ([]Detection, error) {
	payload := detectionRequest{
		Input: []imageInput{{
			Type: "image_url",
			URL:  "data:image/png;base64," + base64.StdEncoding.EncodeToString(pngImage),
		}},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal detection request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("failed to create detection request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("detection request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("detection API request failed: %d - %s", resp.StatusCode, string(body))
	}

	var apiResp detectionResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("failed to decode detection response: %w", err)
	}

	var detections []Detection
	for _, result := range apiResp.Results {
		for _, box := range result.Boxes {
			detections = append(detections, Detection{
				Label:      box.Label,
				Box:        box.Coordinates,
				Confidence: box.Confidence,
			})
		}
	}
	return detections, nil
}
