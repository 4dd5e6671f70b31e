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

	"tripforge/internal/models/domain_models"
)

// ImageServiceInterface backfills missing activity images from a stock
// image provider. It runs on the raw batch, before validation, so an
// otherwise complete activity that arrived without pictures can be
// repaired instead of rejected. Having no result is normal and never an
// error; the activity just keeps whatever images it already had.
type ImageServiceInterface interface {
	Backfill(ctx context.Context, raws []domain_models.RawActivity) []domain_models.RawActivity
}

type ImageService struct {
	client  *http.Client
	baseURL string
	apiKey  string
}

func NewImageService(baseURL, apiKey string) ImageServiceInterface {
	return &ImageService{
		client:  &http.Client{Timeout: 8 * time.Second},
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

const maxGalleryImages = 4

type imageSearchResponse struct {
	Results []struct {
		URL string `json:"url"`
	} `json:"results"`
}

func (s *ImageService) Backfill(ctx context.Context, raws []domain_models.RawActivity) []domain_models.RawActivity {
	out := make([]domain_models.RawActivity, 0, len(raws))
	for _, raw := range raws {
		needMain := raw.Images == nil || raw.Images.Main == ""
		needGallery := raw.Images == nil || len(raw.Images.Gallery) == 0
		if needMain || needGallery {
			urls := s.search(ctx, fmt.Sprintf("%s %s", raw.Name, raw.Location))
			if len(urls) > 0 {
				images := domain_models.Images{}
				if raw.Images != nil {
					images = *raw.Images
				}
				if needMain {
					images.Main = urls[0]
					urls = urls[1:]
				}
				if needGallery && len(urls) > 0 {
					if len(urls) > maxGalleryImages {
						urls = urls[:maxGalleryImages]
					}
					images.Gallery = urls
				}
				raw.Images = &images
			}
		}
		out = append(out, raw)
	}
	return out
}

func (s *ImageService) search(ctx context.Context, query string) []string {
	if s.baseURL == "" || s.apiKey == "" {
		return nil
	}

	endpoint := fmt.Sprintf("%s/search/photos?%s", s.baseURL, url.Values{
		"query":    {query},
		"per_page": {"5"},
	}.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", "Client-ID "+s.apiKey)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Printf("images: search %q failed: %v", query, err)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil
	}

	var parsed imageSearchResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil
	}

	urls := make([]string, 0, len(parsed.Results))
	for _, r := range parsed.Results {
		if r.URL != "" {
			urls = append(urls, r.URL)
		}
	}
	return urls
}
