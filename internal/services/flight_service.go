package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"time"

	"tripforge/internal/models/domain_models"
	"tripforge/pkg/ratequeue"
	"tripforge/pkg/utils"
)

// FlightSearchRequest mirrors the fields the fare provider needs. Dates are
// ISO "2006-01-02" strings as accepted on the wire.
type FlightSearchRequest struct {
	Origin        string `json:"origin"`
	Destination   string `json:"destination"`
	DepartureDate string `json:"departureDate"`
	ReturnDate    string `json:"returnDate,omitempty"`
	Passengers    int    `json:"passengers"`
}

type FlightServiceInterface interface {
	Search(ctx context.Context, req FlightSearchRequest) ([]domain_models.FlightOffer, error)
}

// FlightService talks to the fare provider. Every outbound call goes through
// the shared admission queue so the provider's per-second, per-5-minute and
// per-hour ceilings hold across all concurrent plan requests.
type FlightService struct {
	client  *http.Client
	queue   *ratequeue.Queue
	retry   utils.RetryPolicy
	tiers   TierServiceInterface
	baseURL string
	apiKey  string
}

func NewFlightService(baseURL, apiKey string, queue *ratequeue.Queue, tiers TierServiceInterface) FlightServiceInterface {
	return &FlightService{
		client:  &http.Client{Timeout: 15 * time.Second},
		queue:   queue,
		retry:   utils.DefaultRetryPolicy(),
		tiers:   tiers,
		baseURL: baseURL,
		apiKey:  apiKey,
	}
}

type fareProviderOffer struct {
	Airline       string  `json:"airline"`
	FlightNumber  string  `json:"flightNumber"`
	CabinClass    string  `json:"cabinClass"`
	Price         float64 `json:"price"`
	Currency      string  `json:"currency"`
	DepartureTime string  `json:"departureTime"`
	ArrivalTime   string  `json:"arrivalTime"`
	Stops         int     `json:"stops"`
}

type fareProviderResponse struct {
	Offers []fareProviderOffer `json:"offers"`
}

// statusError carries the provider's HTTP status so the retry predicate can
// distinguish throttling and outages from deterministic rejections.
type statusError struct {
	status int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("fare provider returned status %d", e.status)
}

func retryableStatus(err error) bool {
	var se *statusError
	if errors.As(err, &se) {
		return se.status == http.StatusTooManyRequests || se.status >= 500
	}
	return false
}

func (f *FlightService) Search(ctx context.Context, req FlightSearchRequest) ([]domain_models.FlightOffer, error) {
	if req.Origin == "" || req.Destination == "" || req.DepartureDate == "" {
		return nil, utils.ErrInvalidInput
	}
	if req.Passengers < 1 {
		req.Passengers = 1
	}

	var offers []domain_models.FlightOffer
	err := f.retry.Do(ctx, func() error {
		var opErr error
		offers, opErr = f.searchOnce(ctx, req)
		return opErr
	}, retryableStatus)
	if err != nil {
		var se *statusError
		if errors.As(err, &se) {
			if se.status == http.StatusTooManyRequests {
				return nil, fmt.Errorf("%w: %v", utils.ErrRateLimited, err)
			}
			if se.status >= 500 {
				return nil, fmt.Errorf("%w: %v", utils.ErrProviderUnavailable, err)
			}
		}
		return nil, err
	}
	return offers, nil
}

func (f *FlightService) searchOnce(ctx context.Context, req FlightSearchRequest) ([]domain_models.FlightOffer, error) {
	// Admission slot is consumed per attempt: a retry is a new provider call.
	if err := f.queue.Acquire(ctx); err != nil {
		return nil, err
	}

	query := url.Values{
		"origin":      {req.Origin},
		"destination": {req.Destination},
		"departure":   {req.DepartureDate},
		"passengers":  {fmt.Sprintf("%d", req.Passengers)},
	}
	if req.ReturnDate != "" {
		query.Set("return", req.ReturnDate)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/fares/search?%s", f.baseURL, query.Encode()), nil)
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Authorization", "Bearer "+f.apiKey)
	httpReq.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", utils.ErrProviderUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &statusError{status: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}

	var parsed fareProviderResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("fare provider response: %w", err)
	}

	offers := make([]domain_models.FlightOffer, 0, len(parsed.Offers))
	for _, o := range parsed.Offers {
		cabin := domain_models.CabinClass(o.CabinClass)
		offer := domain_models.FlightOffer{
			Carrier:       o.Airline,
			FlightNumber:  o.FlightNumber,
			Origin:        req.Origin,
			Destination:   req.Destination,
			DepartureTime: o.DepartureTime,
			ArrivalTime:   o.ArrivalTime,
			Cabin:         cabin,
			Price:         domain_models.Price{Amount: o.Price, Currency: o.Currency},
			Tier:          f.tiers.ClassifyFlight(cabin, o.Price),
		}
		offers = append(offers, offer)
	}
	if len(offers) == 0 {
		log.Printf("flights: no offers for %s -> %s on %s", req.Origin, req.Destination, req.DepartureDate)
	}
	return offers, nil
}
