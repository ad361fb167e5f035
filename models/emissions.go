package models

import (
	"encoding/json"
	"fmt"
)

// ActivityDetails is the free-form key/value detail map of an activity
// (quantity, region, time_period, ...). The LLM frequently emits numeric
// values for these keys, so decoding coerces scalars to strings instead of
// failing the whole response.
type ActivityDetails map[string]string

// UnmarshalJSON coerces scalar values to their string form.
func (d *ActivityDetails) UnmarshalJSON(data []byte) error {
	var raw map[string]interface{}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(ActivityDetails, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string:
			out[k] = val
		case nil:
			out[k] = ""
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	*d = out
	return nil
}

// Activity is a described action or consumption event with emission
// potential, extracted from document text. EmissionFactor is attached by the
// calculator once a factor has been resolved; it stays nil when resolution
// was skipped.
type Activity struct {
	Description    string          `json:"description"`
	Details        ActivityDetails `json:"details,omitempty"`
	EmissionFactor *EmissionFactor `json:"emission_factor,omitempty"`
}

// EmissionFactor converts an activity quantity into CO2-equivalent mass.
type EmissionFactor struct {
	Description string  `json:"description"`
	Value       float64 `json:"value"`
	Unit        string  `json:"unit"`
}

// ProcessParameters holds the calculation detail of a single emission
// process. The LLM may emit additional keys (distance, vehicle_type, ...);
// those are dropped on decode.
type ProcessParameters struct {
	Quantity       string  `json:"quantity,omitempty"`
	EmissionFactor string  `json:"emission_factor,omitempty"`
	Calculation    string  `json:"calculation,omitempty"`
	TotalEmissions float64 `json:"total_emissions"`
}

// EmissionProcess is one emission-generating stage within a source.
type EmissionProcess struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Parameters  ProcessParameters `json:"parameters"`
}

// EmissionSource groups the processes attributed to one source (production,
// transportation, a billed activity, ...).
type EmissionSource struct {
	Source         string            `json:"source"`
	Processes      []EmissionProcess `json:"processes"`
	TotalEmissions float64           `json:"total_emissions"`
}

// EmissionsResult is the document-level calculation output. When the LLM
// response could not be parsed as JSON, Error and RawCalculation record the
// degraded path and EmissionSources holds the arithmetic fallback.
type EmissionsResult struct {
	ActivityDescription string           `json:"activity_description,omitempty"`
	EmissionSources     []EmissionSource `json:"emission_sources"`
	TotalScope3         float64          `json:"total_scope_3_emissions"`
	Assumptions         []string         `json:"assumptions,omitempty"`
	DataSources         []string         `json:"data_sources,omitempty"`
	Error               string           `json:"error,omitempty"`
	RawCalculation      string           `json:"raw_calculation,omitempty"`
}

// EmissionsReport bundles everything the emissions pipeline produced for one
// document.
type EmissionsReport struct {
	DocumentPath string            `json:"document_path"`
	Extraction   *ExtractedContent `json:"extraction_result,omitempty"`
	Activities   []Activity        `json:"activities"`
	Calculation  EmissionsResult   `json:"emissions_calculation"`
}

// EmissionsSummary is the emissions-focused document summary produced via
// the retrieval pipeline.
type EmissionsSummary struct {
	DocumentPath     string         `json:"document_path"`
	Summary          string         `json:"summary"`
	RelevantSections []RetrievalHit `json:"relevant_sections"`
}
