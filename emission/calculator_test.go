package emission

import (
	"testing"

	"carbonlens-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActivitiesFencedJSON(t *testing.T) {
	raw := "Here are the results:\n```json\n{\"activities\": [{\"description\": \"Electricity consumption\", \"details\": {\"quantity\": \"500 kWh\"}}]}\n```\nDone."

	activities := parseActivities(raw)

	require.Len(t, activities, 1)
	assert.Equal(t, "Electricity consumption", activities[0].Description)
	assert.Equal(t, "500 kWh", activities[0].Details["quantity"])
}

func TestParseActivitiesBareJSON(t *testing.T) {
	raw := `{"activities": [{"description": "Natural gas usage"}]}`

	activities := parseActivities(raw)

	require.Len(t, activities, 1)
	assert.Equal(t, "Natural gas usage", activities[0].Description)
}

func TestParseActivitiesBareList(t *testing.T) {
	raw := `[{"description": "Air travel to Boston"}]`

	activities := parseActivities(raw)

	require.Len(t, activities, 1)
	assert.Equal(t, "Air travel to Boston", activities[0].Description)
}

func TestParseActivitiesObjectWithoutKey(t *testing.T) {
	activities := parseActivities(`{"unexpected": true}`)
	assert.Empty(t, activities)
}

func TestParseActivitiesNumericDetailsCoerced(t *testing.T) {
	raw := `{"activities": [{"description": "Electricity", "details": {"quantity": 500, "bill_amount": 75.5}}]}`

	activities := parseActivities(raw)

	require.Len(t, activities, 1)
	assert.Equal(t, "500", activities[0].Details["quantity"])
	assert.Equal(t, "75.5", activities[0].Details["bill_amount"])
}

func TestExtractActivitiesFromTextFallback(t *testing.T) {
	raw := "The document mentions:\n- Electricity usage of 500 kWh\n- Gas heating during winter\n"

	activities := parseActivities(raw)

	require.NotEmpty(t, activities)
	descriptions := make([]string, len(activities))
	for i, a := range activities {
		descriptions[i] = a.Description
		assert.Equal(t, "text extraction fallback", a.Details["source"])
	}
	assert.Contains(t, descriptions, "Electricity usage of 500 kWh")
	assert.Contains(t, descriptions, "Gas heating during winter")
}

func TestExtractActivitiesFromTextDropsShortMatches(t *testing.T) {
	activities := extractActivitiesFromText("- ok\n- also too tiny? no: this one is long enough\n")

	require.Len(t, activities, 1)
	assert.Equal(t, "also too tiny? no: this one is long enough", activities[0].Description)
}

func TestFallbackEmissionsResultArithmetic(t *testing.T) {
	activities := []models.Activity{{
		Description:    "Electricity consumption of 10 kWh",
		EmissionFactor: &models.EmissionFactor{Description: "grid mix", Value: 2.0, Unit: "kg CO2e/kWh"},
	}}

	result := fallbackEmissionsResult("completely unparseable response", activities)

	assert.Equal(t, "Failed to parse structured calculation, showing text results", result.Error)
	require.Len(t, result.EmissionSources, 1)
	source := result.EmissionSources[0]
	assert.Equal(t, "Electricity consumption of 10 kWh", source.Source)
	assert.Equal(t, 20.0, source.TotalEmissions)
	require.Len(t, source.Processes, 1)
	assert.Equal(t, "10 kwh", source.Processes[0].Parameters.Quantity)
	assert.Equal(t, 20.0, source.Processes[0].Parameters.TotalEmissions)
	assert.Equal(t, 20.0, result.TotalScope3)
	assert.Equal(t, []string{"Fallback emission factors when API response could not be parsed as JSON"}, result.DataSources)
}

func TestFallbackEmissionsResultLiteralTotalWins(t *testing.T) {
	activities := []models.Activity{{
		Description:    "Electricity consumption of 10 kWh",
		EmissionFactor: &models.EmissionFactor{Description: "grid mix", Value: 2.0, Unit: "kg CO2e/kWh"},
	}}

	result := fallbackEmissionsResult("Total estimated emissions: 99.5 kg CO2e", activities)

	// The literal total in the raw text takes precedence over the summed
	// per-source total.
	assert.Equal(t, 99.5, result.TotalScope3)
	require.Len(t, result.EmissionSources, 1)
	assert.Equal(t, 20.0, result.EmissionSources[0].TotalEmissions)
}

func TestFallbackEmissionsResultDefaultQuantity(t *testing.T) {
	activities := []models.Activity{
		{
			Description:    "Fleet fuel",
			EmissionFactor: &models.EmissionFactor{Description: "fuel oil", Value: 2.68, Unit: "kg CO2e/liter"},
		},
		{Description: "No factor resolved"},
	}

	result := fallbackEmissionsResult("garbled", activities)

	// Activities without a factor are skipped; no parseable quantity
	// defaults to 1.0.
	require.Len(t, result.EmissionSources, 1)
	assert.Equal(t, 2.68, result.EmissionSources[0].TotalEmissions)
	assert.Equal(t, "1", result.EmissionSources[0].Processes[0].Parameters.Quantity)
}

func TestFallbackEmissionsResultQuantityFromDetails(t *testing.T) {
	activities := []models.Activity{{
		Description:    "Electricity consumption",
		Details:        models.ActivityDetails{"quantity": "250 kWh"},
		EmissionFactor: &models.EmissionFactor{Description: "grid mix", Value: 0.5, Unit: "kg CO2e/kWh"},
	}}

	result := fallbackEmissionsResult("garbled", activities)

	require.Len(t, result.EmissionSources, 1)
	assert.Equal(t, 125.0, result.EmissionSources[0].TotalEmissions)
}

func TestFormatActivitiesIncludesFactor(t *testing.T) {
	out := formatActivities([]models.Activity{{
		Description:    "Electricity consumption",
		Details:        models.ActivityDetails{"quantity": "500 kWh"},
		EmissionFactor: &models.EmissionFactor{Description: "grid mix", Value: 0.475, Unit: "kg CO2e/kWh"},
	}})

	assert.Contains(t, out, "Activity 1: Electricity consumption")
	assert.Contains(t, out, "quantity: 500 kWh")
	assert.Contains(t, out, "Emission Factor: grid mix - Value: 0.475 kg CO2e/kWh")
}
