package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tripforge/internal/models/domain_models"
)

func marketplaceFixture() domain_models.Activity {
	return domain_models.Activity{
		Name:     "Alhambra Guided Visit",
		Location: "Granada, Spain",
		Rating:   4.0,
		Booking:  domain_models.BookingInfo{URL: "https://example.com/original", Method: "online"},
	}
}

func TestEnrichAppliesMatchingProduct(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "k", r.Header.Get("X-Api-Key"))
		assert.Equal(t, "Alhambra Guided Visit", r.URL.Query().Get("query"))

		json.NewEncoder(w).Encode(marketplaceSearchResponse{
			Products: []marketplaceProduct{{
				ProductCode:        "ALH-1",
				Title:              "Alhambra Guided Visit",
				Rating:             4.7,
				ReviewCount:        3100,
				BookingURL:         "https://marketplace.example.com/alh-1",
				CancellationPolicy: "Free cancellation up to 48 hours",
				Languages:          []string{"English", "Spanish"},
			}},
		})
	}))
	defer server.Close()

	m := NewMarketplaceService(server.URL, "k")
	out := m.Enrich(context.Background(), []domain_models.Activity{marketplaceFixture()})

	require.Len(t, out, 1)
	got := out[0]
	assert.True(t, got.IsVerified)
	assert.Equal(t, "verified", got.VerificationStatus)
	assert.Equal(t, "ALH-1", got.Booking.ProductCode)
	assert.Equal(t, "https://marketplace.example.com/alh-1", got.Booking.URL)
	assert.Equal(t, 4.7, got.Rating)
	assert.Equal(t, 3100, got.NumberOfReviews)
}

func TestEnrichMissKeepsActivityWithPlaceholders(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(marketplaceSearchResponse{
			Products: []marketplaceProduct{{
				ProductCode: "OTHER",
				Title:       "Completely Unrelated Cooking Class",
			}},
		})
	}))
	defer server.Close()

	m := NewMarketplaceService(server.URL, "k")
	out := m.Enrich(context.Background(), []domain_models.Activity{marketplaceFixture()})

	require.Len(t, out, 1)
	got := out[0]
	assert.False(t, got.IsVerified)
	assert.Equal(t, "unverified", got.VerificationStatus)
	assert.Equal(t, "https://example.com/original", got.Booking.URL)
	assert.Equal(t, defaultCancellationPolicy, got.Booking.CancellationPolicy)
	assert.Equal(t, []string{"English"}, got.Booking.Languages)
	assert.Equal(t, 4.0, got.Rating)
}

func TestEnrichProviderErrorIsNotFatal(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	m := NewMarketplaceService(server.URL, "k")
	out := m.Enrich(context.Background(), []domain_models.Activity{marketplaceFixture()})

	require.Len(t, out, 1)
	assert.False(t, out[0].IsVerified)
}

func TestEnrichWithoutConfigurationPassesThrough(t *testing.T) {
	m := NewMarketplaceService("", "")
	out := m.Enrich(context.Background(), []domain_models.Activity{marketplaceFixture()})

	require.Len(t, out, 1)
	assert.False(t, out[0].IsVerified)
	assert.Equal(t, []string{"English"}, out[0].Booking.Languages)
}

func TestBestProductMatchRequiresThreshold(t *testing.T) {
	products := []marketplaceProduct{
		{Title: "Alhambra Guided Visit", ProductCode: "A"},
		{Title: "Flamenco Night Show", ProductCode: "B"},
	}

	best, ok := bestProductMatch("Alhambra Guided Visit", products)
	require.True(t, ok)
	assert.Equal(t, "A", best.ProductCode)

	_, ok = bestProductMatch("Sacromonte Cave Tour", products)
	assert.False(t, ok)
}
