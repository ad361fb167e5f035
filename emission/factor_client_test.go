package emission

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"carbonlens-backend/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchEmissionFactorsUsesAPI(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req factorSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "office electricity", req.Query)
		assert.Equal(t, 5, req.TopK)

		json.NewEncoder(w).Encode(FactorSearchResult{Results: []models.EmissionFactor{
			{Description: "Grid electricity, EU mix", Value: 0.23, Unit: "kg CO2e/kWh"},
		}})
	}))
	defer srv.Close()

	c := NewFactorClient(srv.URL)

	result, err := c.SearchEmissionFactors(context.Background(), "office electricity", 5)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, 0.23, result.Results[0].Value)
}

func TestSearchEmissionFactorsFallsBackWhenUnreachable(t *testing.T) {
	c := NewFactorClient("http://127.0.0.1:1")

	result, err := c.SearchEmissionFactors(context.Background(), "electricity bill", 5)
	require.NoError(t, err)
	require.Len(t, result.Results, 1)
	assert.Equal(t, 0.475, result.Results[0].Value)
	assert.Equal(t, "kg CO2e/kWh", result.Results[0].Unit)
}

func TestFallbackKeywordMatching(t *testing.T) {
	c := NewFactorClient("http://127.0.0.1:1")

	cases := []struct {
		query string
		value float64
	}{
		{"electricity consumption", 0.475},
		{"natural gas heating", 0.198},
		// "gasoline" contains "gas", which is matched first.
		{"gasoline purchase", 0.198},
		{"fuel oil delivery", 2.68},
		{"petrol for the fleet", 2.31},
		{"diesel truck", 2.68},
		{"flight to Berlin", 0.13},
		{"something unrecognized", 0.475},
	}

	for _, tc := range cases {
		result := c.fallbackResults(tc.query)
		require.Len(t, result.Results, 1, tc.query)
		assert.Equal(t, tc.value, result.Results[0].Value, tc.query)
	}
}

func TestGetAppropriateEmissionFactorNeverFails(t *testing.T) {
	// Server responds 500, so the search path errors; every lookup degrades
	// to the generic electricity factor regardless of the description.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewFactorClient(srv.URL)

	factor := c.GetAppropriateEmissionFactor(context.Background(), "natural gas usage", nil)
	assert.Equal(t, 0.475, factor.Value)

	factor = c.GetAppropriateEmissionFactor(context.Background(), "completely unknown activity", nil)
	assert.Equal(t, 0.475, factor.Value)
}

func TestGetAppropriateEmissionFactorEmptyResultsUsesKeywords(t *testing.T) {
	// A healthy API with no matches falls through to keyword selection.
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(FactorSearchResult{Results: []models.EmissionFactor{}})
	}))
	defer srv.Close()

	c := NewFactorClient(srv.URL)

	factor := c.GetAppropriateEmissionFactor(context.Background(), "natural gas usage", nil)
	assert.Equal(t, 0.198, factor.Value)

	factor = c.GetAppropriateEmissionFactor(context.Background(), "electricity consumption", nil)
	assert.Equal(t, 0.475, factor.Value)
}

func TestGetAppropriateEmissionFactorBuildsCompositeQuery(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req factorSearchRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		gotQuery = req.Query
		json.NewEncoder(w).Encode(FactorSearchResult{Results: []models.EmissionFactor{
			{Description: "match", Value: 1.0, Unit: "kg CO2e"},
		}})
	}))
	defer srv.Close()

	c := NewFactorClient(srv.URL)

	c.GetAppropriateEmissionFactor(context.Background(), "Electricity consumption", models.ActivityDetails{
		"region": "California",
		"type":   "grid",
	})

	assert.Contains(t, gotQuery, "Electricity consumption")
	assert.Contains(t, gotQuery, "California")
	assert.Contains(t, gotQuery, "grid")
}
