package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/time/rate"

	"tripforge/internal/models/domain_models"
	"tripforge/pkg/utils"
)

// MarketplaceServiceInterface enriches validated activities with verified
// product data from the activity marketplace. Enrichment is best-effort:
// a lookup miss or a provider outage never fails the pipeline, it only
// leaves the activity unverified.
type MarketplaceServiceInterface interface {
	Enrich(ctx context.Context, activities []domain_models.Activity) []domain_models.Activity
}

type MarketplaceService struct {
	client  *http.Client
	limiter *rate.Limiter
	baseURL string
	apiKey  string
}

func NewMarketplaceService(baseURL, apiKey string) MarketplaceServiceInterface {
	return &MarketplaceService{
		client:  &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(5), 10),
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

const (
	enrichMatchThreshold = 0.6

	defaultCancellationPolicy = "Free cancellation up to 24 hours before the start time"
)

type marketplaceProduct struct {
	ProductCode        string   `json:"productCode"`
	Title              string   `json:"title"`
	Rating             float64  `json:"rating"`
	ReviewCount        int      `json:"reviewCount"`
	BookingURL         string   `json:"bookingUrl"`
	CancellationPolicy string   `json:"cancellationPolicy"`
	Languages          []string `json:"languages"`
}

type marketplaceSearchResponse struct {
	Products []marketplaceProduct `json:"products"`
}

func (m *MarketplaceService) Enrich(ctx context.Context, activities []domain_models.Activity) []domain_models.Activity {
	out := make([]domain_models.Activity, 0, len(activities))
	for _, activity := range activities {
		product, found := m.lookup(ctx, activity)
		if !found {
			out = append(out, withPlaceholders(activity))
			continue
		}
		out = append(out, applyProduct(activity, product))
	}
	return out
}

func (m *MarketplaceService) lookup(ctx context.Context, activity domain_models.Activity) (marketplaceProduct, bool) {
	if m.baseURL == "" || m.apiKey == "" {
		return marketplaceProduct{}, false
	}
	if err := m.limiter.Wait(ctx); err != nil {
		return marketplaceProduct{}, false
	}

	endpoint := fmt.Sprintf("%s/products/search?%s", m.baseURL, url.Values{
		"query":    {activity.Name},
		"location": {activity.Location},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return marketplaceProduct{}, false
	}
	req.Header.Set("X-Api-Key", m.apiKey)
	req.Header.Set("Accept", "application/json")

	resp, err := m.client.Do(req)
	if err != nil {
		log.Printf("marketplace: lookup for %q failed: %v", activity.Name, err)
		return marketplaceProduct{}, false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		log.Printf("marketplace: lookup for %q returned status %d", activity.Name, resp.StatusCode)
		return marketplaceProduct{}, false
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return marketplaceProduct{}, false
	}

	var search marketplaceSearchResponse
	if err := json.Unmarshal(body, &search); err != nil {
		log.Printf("marketplace: bad response body for %q: %v", activity.Name, err)
		return marketplaceProduct{}, false
	}

	return bestProductMatch(activity.Name, search.Products)
}

// bestProductMatch picks the product whose title is most similar to the
// activity name, provided it clears the match threshold.
func bestProductMatch(name string, products []marketplaceProduct) (marketplaceProduct, bool) {
	var best marketplaceProduct
	bestScore := 0.0
	for _, p := range products {
		score := utils.CombinedTitleSimilarity(
			normalizeTitle(name), normalizeTitle(p.Title),
			domainKeywords, utils.DefaultSimilarityWeights,
		)
		if score > bestScore {
			best = p
			bestScore = score
		}
	}
	if bestScore < enrichMatchThreshold {
		return marketplaceProduct{}, false
	}
	return best, true
}

func applyProduct(activity domain_models.Activity, product marketplaceProduct) domain_models.Activity {
	activity.IsVerified = true
	activity.VerificationStatus = "verified"

	if product.BookingURL != "" {
		activity.Booking.URL = product.BookingURL
	}
	if product.ProductCode != "" {
		activity.Booking.ProductCode = product.ProductCode
	}
	if product.CancellationPolicy != "" {
		activity.Booking.CancellationPolicy = product.CancellationPolicy
	}
	if len(product.Languages) > 0 {
		activity.Booking.Languages = product.Languages
	}
	// Marketplace numbers win over LLM numbers when present.
	if product.Rating > 0 {
		activity.Rating = product.Rating
	}
	if product.ReviewCount > 0 {
		activity.NumberOfReviews = product.ReviewCount
	}
	return activity
}

func withPlaceholders(activity domain_models.Activity) domain_models.Activity {
	activity.IsVerified = false
	activity.VerificationStatus = "unverified"
	if activity.Booking.CancellationPolicy == "" {
		activity.Booking.CancellationPolicy = defaultCancellationPolicy
	}
	if len(activity.Booking.Languages) == 0 {
		activity.Booking.Languages = []string{"English"}
	}
	return activity
}
