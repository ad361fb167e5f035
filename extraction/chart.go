package extraction

import (
	"bufio"
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"strings"
)

// ChartClient calls the chart-to-data service (DePlot-style) to turn a chart
// image into its underlying data table as raw text.
type ChartClient struct {
	endpoint string
	apiKey   string
	client   *http.Client
}

// ChartConfig configures the chart-to-data client.
type ChartConfig struct {
	Endpoint string
	APIKey   string
}

// NewChartClient creates a chart-to-data client.
func NewChartClient(cfg ChartConfig) *ChartClient {
	return &ChartClient{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   &http.Client{},
	}
}

// ChartConfigFromEnv reads the chart service configuration from the
// environment.
func ChartConfigFromEnv() ChartConfig {
	return ChartConfig{
		Endpoint: os.Getenv("NVIDIA_DEPLOT_ENDPOINT"),
		APIKey:   os.Getenv("NVIDIA_DEPLOT_KEY"),
	}
}

type chartRequest struct {
	Messages    []chartMessage `json:"messages"`
	MaxTokens   int            `json:"max_tokens"`
	Temperature float64        `json:"temperature"`
	TopP        float64        `json:"top_p"`
	Stream      bool           `json:"stream"`
}

type chartMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ExtractData sends the PNG-encoded chart image to the service and returns
// the newline-joined stream of response lines as the chart's raw data
// representation.
func (c *ChartClient) ExtractData(ctx context.Context, pngImage []byte) (string, error) {
	imgBase64 := base64.StdEncoding.EncodeToString(pngImage)
	payload := chartRequest{
		Messages: []chartMessage{{
			Role:    "user",
			Content: fmt.Sprintf(`Generate underlying data table of the figure below: <img src="data:image/png;base64,%s" />`, imgBase64),
		}},
		MaxTokens:   1024,
		Temperature: 0.20,
		TopP:        0.20,
		Stream:      true,
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal chart request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("failed to create chart request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("chart API request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("chart API request failed: %d", resp.StatusCode)
	}

	var lines []string
	scanner := bufio.NewScanner(resp.Body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return "", fmt.Errorf("failed to read chart response stream: %w", err)
	}

	return strings.Join(lines, "\n"), nil
}
