package llm

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"carbonlens-backend/models"

	"github.com/sashabaranov/go-openai"
)

const defaultModel = "deepseek-ai/deepseek-r1"

// systemPrompt fixes the carbon-accounting persona for answer synthesis.
const systemPrompt = `You are an advanced carbon accounting AI designed to calculate Scope 3 greenhouse gas (GHG) emissions for any user-defined activity, product, or supply chain transaction. Your outputs align with the GHG Protocol, ISO 14064, and IPCC guidelines, using regionally and industry-specific emission factors from verified databases (e.g., EPA, DEFRA, Ecoinvent, IPCC 2023).

Core Functionality:
- *Process Identification*: Break down activities into emission-generating stages.
- *Emission Factor Selection*: Prioritize region-specific, industry-specific, or global average emission factors.
- *Calculation & Validation*: Compute emissions, validate against benchmarks, and highlight uncertainties.
- *Output Requirements*: Return structured JSON with granular data and plain-language summaries.
- **only calculate for transportation emission if you are provided with the details.
- **always provide the units.
- **dont give recommendations to cut down emission your outputs will be given to another model to guide the emission mitigation.

User Interaction Guidelines:
- Ask for missing parameters (e.g., "Specify transport mode: air, road, rail?").
- Be transparent about uncertainties.
- Scale to complex supply chains.`

// AnswerGenerator produces grounded natural-language answers from retrieved
// passages through an OpenAI-compatible chat-completions service.
type AnswerGenerator struct {
	client *openai.Client
	model  string
}

// Config configures the LLM client.
type Config struct {
	Endpoint string
	APIKey   string
	Model    string
}

// ConfigFromEnv reads the LLM service configuration from the environment.
func ConfigFromEnv() Config {
	return Config{
		Endpoint: os.Getenv("NVIDIA_LLM_ENDPOINT"),
		APIKey:   os.Getenv("NVIDIA_LLM_KEY"),
	}
}

// NewAnswerGenerator creates an answer generator.
func NewAnswerGenerator(cfg Config) *AnswerGenerator {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientCfg.BaseURL = cfg.Endpoint
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	return &AnswerGenerator{
		client: openai.NewClientWithConfig(clientCfg),
		model:  model,
	}
}

// Client exposes the underlying chat client for stages sharing the same LLM
// service.
func (g *AnswerGenerator) Client() *openai.Client {
	return g.client
}

// Model returns the configured model id.
func (g *AnswerGenerator) Model() string {
	return g.model
}

// GenerateAnswer answers query from the retrieved context in blocking mode.
// A synthesis failure never aborts the surrounding query flow: it is reported
// as a user-facing error string instead.
func (g *AnswerGenerator) GenerateAnswer(ctx context.Context, query string, hits []models.RetrievalHit) string {
	log.Printf("Generating answer for query: '%s'", snippet(query, 50))

	resp, err := g.client.CreateChatCompletion(ctx, g.request(query, hits, false))
	if err != nil {
		log.Printf("Error generating answer with LLM: %v", err)
		return fmt.Sprintf("I encountered an error while generating an answer: %v", err)
	}
	if len(resp.Choices) == 0 {
		log.Printf("Error generating answer with LLM: no choices returned")
		return "I encountered an error while generating an answer: no choices returned"
	}
	return resp.Choices[0].Message.Content
}

// GenerateAnswerStream answers query in streaming mode, returning the raw
// stream handle for caller-side incremental consumption. The caller owns
// closing the stream.
func (g *AnswerGenerator) GenerateAnswerStream(ctx context.Context, query string, hits []models.RetrievalHit) (*openai.ChatCompletionStream, error) {
	log.Printf("Generating streamed answer for query: '%s'", snippet(query, 50))

	stream, err := g.client.CreateChatCompletionStream(ctx, g.request(query, hits, true))
	if err != nil {
		return nil, fmt.Errorf("failed to start answer stream: %w", err)
	}
	return stream, nil
}

func (g *AnswerGenerator) request(query string, hits []models.RetrievalHit, stream bool) openai.ChatCompletionRequest {
	return openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: createPrompt(query, FormatContext(hits))},
		},
		Temperature: 0.3,
		TopP:        0.7,
		MaxTokens:   1024,
		Stream:      stream,
	}
}

// FormatContext renders retrieved passages with inline provenance for the
// prompt.
func FormatContext(hits []models.RetrievalHit) string {
	formatted := make([]string, 0, len(hits))

	for i, hit := range hits {
		metaStr := ""
		if hit.Metadata != nil {
			source := "Unknown source"
			if v, ok := hit.Metadata["document_path"]; ok {
				source = fmt.Sprintf("%v", v)
			}
			page := "Unknown page"
			if v, ok := hit.Metadata["page_num"]; ok {
				page = formatPage(v)
			}
			metaStr = fmt.Sprintf("[Source: %s, Page: %s]", source, page)
		}
		formatted = append(formatted, fmt.Sprintf("Document %d %s:\n%s\n", i+1, metaStr, hit.Text))
	}

	return strings.Join(formatted, "\n")
}

// formatPage renders page numbers without a trailing ".0" when JSON decoding
// produced a float.
func formatPage(v interface{}) string {
	if f, ok := v.(float64); ok && f == float64(int64(f)) {
		return fmt.Sprintf("%d", int64(f))
	}
	return fmt.Sprintf("%v", v)
}

func createPrompt(query, contextBlock string) string {
	return fmt.Sprintf(`Please answer the following question based only on the provided context documents:

Question: %s

Context Documents:
%s

Answer:`, query, contextBlock)
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
