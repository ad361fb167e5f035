package emission

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strconv"
	"strings"

	openai "github.com/sashabaranov/go-openai"

	"carbonlens-backend/models"
)

var (
	// Activity extraction only trusts explicitly tagged ```json blocks; the
	// calculation step also accepts untagged fences because the model tags
	// them inconsistently there.
	fencedJSONStrict = regexp.MustCompile("```json\\s*([\\s\\S]*?)\\s*```")
	fencedJSONLoose  = regexp.MustCompile("```(?:json)?\\s*([\\s\\S]*?)\\s*```")

	activityLinePatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?:Activity|Description):\s*(.*)`),
		regexp.MustCompile(`(\d+\.\s*.*)`),
		regexp.MustCompile(`- (.*)`),
	}

	totalEmissionsPattern = regexp.MustCompile(`(?i)total.*emissions:?\s*(\d+\.?\d*)`)
	quantityUnitPattern   = regexp.MustCompile(`(\d+\.?\d*)\s*(kwh|kw|mwh|therms|liters|gallons)`)
	numericPattern        = regexp.MustCompile(`(\d+\.?\d*)`)
)

// Calculator extracts emission-relevant activities from document content and
// computes their greenhouse gas emissions with an LLM, attaching emission
// factors resolved through the factors API.
type Calculator struct {
	client  *openai.Client
	model   string
	factors *FactorClient
}

// NewCalculator creates a calculator sharing the answer generator's OpenAI
// client and model. A nil factors client gets the default one.
func NewCalculator(client *openai.Client, model string, factors *FactorClient) *Calculator {
	if factors == nil {
		factors = NewFactorClient("")
	}
	return &Calculator{client: client, model: model, factors: factors}
}

// ExtractActivities asks the LLM to identify emission-generating activities
// in the document segments. It never fails: any LLM or parse error degrades
// to text-heuristic extraction and finally to an empty list.
func (c *Calculator) ExtractActivities(ctx context.Context, segments []models.DocumentSegment) []models.Activity {
	prompt := fmt.Sprintf(activityExtractionPromptTemplate, formatDocumentContent(segments))

	log.Printf("Sending request to LLM for activity extraction...")
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: activityExtractionSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
		TopP:        0.7,
		MaxTokens:   1024,
	})
	if err != nil {
		log.Printf("Error extracting activities: %v", err)
		return nil
	}
	if len(resp.Choices) == 0 {
		log.Printf("Error extracting activities: empty completion")
		return nil
	}

	raw := resp.Choices[0].Message.Content
	log.Printf("Received LLM response for activity extraction, starts with: %s", snippet(raw, 200))

	return parseActivities(raw)
}

// parseActivities decodes the LLM response into activities, walking the
// fallback ladder: fenced JSON, bare JSON, wrapper object, bare list, line
// heuristics, empty.
func parseActivities(raw string) []models.Activity {
	payload := raw
	if m := fencedJSONStrict.FindStringSubmatch(raw); m != nil {
		payload = strings.TrimSpace(m[1])
	}

	var wrapper struct {
		Activities []models.Activity `json:"activities"`
	}
	if err := json.Unmarshal([]byte(payload), &wrapper); err == nil {
		if wrapper.Activities != nil {
			log.Printf("Successfully extracted %d activities", len(wrapper.Activities))
			return wrapper.Activities
		}
		// Valid JSON object without the expected key: no activities found.
		log.Printf("Response doesn't contain 'activities' key")
		return nil
	}

	// A bare JSON list of activities, without the wrapper object.
	var list []models.Activity
	if err := json.Unmarshal([]byte(payload), &list); err == nil {
		return list
	}

	log.Printf("Failed to parse activity extraction response as JSON, attempting text extraction...")
	activities := extractActivitiesFromText(raw)
	if len(activities) > 0 {
		log.Printf("Extracted %d activities from text response", len(activities))
	}
	return activities
}

// extractActivitiesFromText scrapes activity-looking lines out of a non-JSON
// response. All patterns are applied; very short matches are dropped.
func extractActivitiesFromText(text string) []models.Activity {
	var activities []models.Activity
	for _, pattern := range activityLinePatterns {
		for _, m := range pattern.FindAllStringSubmatch(text, -1) {
			desc := strings.TrimSpace(m[1])
			if len(desc) > 5 {
				activities = append(activities, models.Activity{
					Description: desc,
					Details:     models.ActivityDetails{"source": "text extraction fallback"},
				})
			}
		}
	}
	return activities
}

// CalculateEmissions resolves an emission factor for each activity, then asks
// the LLM for a structured Scope 1/2/3 calculation. An unparseable response
// yields an arithmetic fallback result; a failed LLM call yields a result
// whose Error field carries the cause.
func (c *Calculator) CalculateEmissions(ctx context.Context, activities []models.Activity) models.EmissionsResult {
	withFactors := make([]models.Activity, 0, len(activities))
	for _, activity := range activities {
		factor := c.factors.GetAppropriateEmissionFactor(ctx, activity.Description, activity.Details)
		activity.EmissionFactor = &factor
		withFactors = append(withFactors, activity)
	}

	prompt := fmt.Sprintf(emissionsCalculationPromptTemplate, formatActivities(withFactors))

	log.Printf("Sending request to LLM for emissions calculation...")
	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: emissionsCalculationSystemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		Temperature: 0.3,
		TopP:        0.7,
		MaxTokens:   1500,
	})
	if err != nil {
		log.Printf("Error calculating emissions: %v", err)
		return models.EmissionsResult{Error: fmt.Sprintf("Error calculating emissions: %v", err)}
	}
	if len(resp.Choices) == 0 {
		log.Printf("Error calculating emissions: empty completion")
		return models.EmissionsResult{Error: "Error calculating emissions: empty completion"}
	}

	raw := resp.Choices[0].Message.Content
	log.Printf("Received LLM response for emissions calculation, starts with: %s", snippet(raw, 200))

	payload := raw
	if m := fencedJSONLoose.FindStringSubmatch(raw); m != nil {
		payload = strings.TrimSpace(m[1])
		log.Printf("Extracted JSON from markdown code block")
	}

	var result models.EmissionsResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		log.Printf("Failed to parse emissions calculation response as JSON: %v", err)
		return fallbackEmissionsResult(raw, withFactors)
	}

	log.Printf("Successfully parsed emissions calculation result")
	return result
}

// fallbackEmissionsResult builds an arithmetic result directly from the
// resolved factors when the LLM response could not be parsed. A literal
// "total ... emissions: N" in the raw text takes precedence over the summed
// per-source total.
func fallbackEmissionsResult(raw string, activities []models.Activity) models.EmissionsResult {
	result := models.EmissionsResult{
		Error:           "Failed to parse structured calculation, showing text results",
		RawCalculation:  snippet(raw, 1000),
		EmissionSources: []models.EmissionSource{},
	}

	var literalTotal float64
	haveLiteralTotal := false
	if m := totalEmissionsPattern.FindStringSubmatch(raw); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			literalTotal = v
			haveLiteralTotal = true
		}
	}

	var summed float64
	for _, activity := range activities {
		if activity.EmissionFactor == nil {
			continue
		}
		factor := activity.EmissionFactor

		quantity := "1"
		if q, ok := activity.Details["quantity"]; ok {
			quantity = q
		}
		if m := quantityUnitPattern.FindString(strings.ToLower(activity.Description)); m != "" {
			quantity = m
		}

		quantityValue := 1.0
		if m := numericPattern.FindStringSubmatch(quantity); m != nil {
			if v, err := strconv.ParseFloat(m[1], 64); err == nil {
				quantityValue = v
			}
		}

		total := factor.Value * quantityValue
		summed += total

		result.EmissionSources = append(result.EmissionSources, models.EmissionSource{
			Source: activity.Description,
			Processes: []models.EmissionProcess{{
				Name:        factor.Description,
				Description: fmt.Sprintf("Emissions from %s", activity.Description),
				Parameters: models.ProcessParameters{
					Quantity:       quantity,
					EmissionFactor: fmt.Sprintf("%v %s", factor.Value, factor.Unit),
					Calculation:    fmt.Sprintf("%s × %v = %v kg CO2e", quantity, factor.Value, total),
					TotalEmissions: total,
				},
			}},
			TotalEmissions: total,
		})
	}

	if haveLiteralTotal {
		result.TotalScope3 = literalTotal
	} else {
		result.TotalScope3 = summed
	}
	result.DataSources = []string{"Fallback emission factors when API response could not be parsed as JSON"}

	return result
}

// formatDocumentContent renders document segments the same way the retrieval
// context formatter does, so both LLM surfaces see consistent citations.
func formatDocumentContent(segments []models.DocumentSegment) string {
	var b strings.Builder
	for i, seg := range segments {
		meta := ""
		if len(seg.Metadata) > 0 {
			source := "Unknown source"
			if s, ok := seg.Metadata["document_path"].(string); ok {
				source = s
			}
			page := "Unknown page"
			if p, ok := seg.Metadata["page_num"]; ok {
				page = fmt.Sprintf("%v", p)
			}
			meta = fmt.Sprintf("[Source: %s, Page: %s]", source, page)
		}
		fmt.Fprintf(&b, "Document %d %s:\n%s\n\n", i+1, meta, seg.Text)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func formatActivities(activities []models.Activity) string {
	var b strings.Builder
	for i, activity := range activities {
		details := ""
		for k, v := range activity.Details {
			details += fmt.Sprintf("\n    %s: %s", k, v)
		}
		if details == "" {
			details = " None provided"
		}

		factor := ""
		if activity.EmissionFactor != nil {
			f := activity.EmissionFactor
			factor = fmt.Sprintf("\nEmission Factor: %s - Value: %v %s", f.Description, f.Value, f.Unit)
		}

		fmt.Fprintf(&b, "Activity %d: %s\nDetails:%s\n%s\n\n", i+1, activity.Description, details, factor)
	}
	return b.String()
}

func snippet(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
