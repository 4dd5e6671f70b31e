package services

import (
	"log"
	"net/url"
	"strings"

	"tripforge/internal/models/domain_models"
)

// RejectionReason is a machine-readable code explaining why an activity
// was dropped. Rejections are observability data, never errors: the caller
// filters rejected activities out and moves on.
type RejectionReason string

const (
	ReasonAccepted              RejectionReason = ""
	ReasonMissingRequiredField  RejectionReason = "missing_required_field"
	ReasonInvalidTimeSlot       RejectionReason = "invalid_time_slot"
	ReasonInvalidTier           RejectionReason = "invalid_tier"
	ReasonPriceOutOfTierBand    RejectionReason = "price_out_of_tier_band"
	ReasonMissingBooking        RejectionReason = "missing_booking"
	ReasonMissingOperatingHours RejectionReason = "missing_operating_hours"
	ReasonMissingContact        RejectionReason = "missing_contact"
	ReasonMissingImages         RejectionReason = "missing_images"
	ReasonInsufficientDetail    RejectionReason = "insufficient_highlights"
)

type ValidatorServiceInterface interface {
	// Validate is all-or-nothing: a single failed check rejects the whole
	// activity. An empty reason means accepted.
	Validate(raw domain_models.RawActivity) (domain_models.Activity, RejectionReason)

	// ValidateBatch filters a batch, logging each rejection with its reason.
	ValidateBatch(raws []domain_models.RawActivity) []domain_models.Activity
}

type ValidatorService struct {
	tiers TierServiceInterface
}

func NewValidatorService(tiers TierServiceInterface) ValidatorServiceInterface {
	return &ValidatorService{tiers: tiers}
}

const minHighlights = 5

func (v *ValidatorService) Validate(raw domain_models.RawActivity) (domain_models.Activity, RejectionReason) {
	if strings.TrimSpace(raw.Name) == "" ||
		strings.TrimSpace(raw.Description) == "" ||
		raw.Price.Amount <= 0 ||
		strings.TrimSpace(raw.Location) == "" {
		return domain_models.Activity{}, ReasonMissingRequiredField
	}

	if raw.TimeSlot != "" && !domain_models.IsValidTimeSlot(raw.TimeSlot) {
		return domain_models.Activity{}, ReasonInvalidTimeSlot
	}

	tier := domain_models.Tier(raw.Tier)
	if raw.Tier == "" {
		var ok bool
		tier, ok = v.tiers.ClassifyStrict(raw.Price.Amount)
		if !ok {
			return domain_models.Activity{}, ReasonPriceOutOfTierBand
		}
	} else if !domain_models.IsValidTier(raw.Tier) {
		return domain_models.Activity{}, ReasonInvalidTier
	}

	// Business rule, distinct from mere classification: the declared tier's
	// strict band must actually contain the price.
	if !v.tiers.WithinStrictBand(tier, raw.Price.Amount) {
		return domain_models.Activity{}, ReasonPriceOutOfTierBand
	}

	if raw.Booking == nil ||
		strings.TrimSpace(raw.Booking.Method) == "" ||
		!isURLShaped(raw.Booking.URL) {
		return domain_models.Activity{}, ReasonMissingBooking
	}

	if raw.OperatingHours == nil ||
		strings.TrimSpace(raw.OperatingHours.Weekday) == "" ||
		strings.TrimSpace(raw.OperatingHours.Weekend) == "" {
		return domain_models.Activity{}, ReasonMissingOperatingHours
	}

	if raw.Contact == nil ||
		(strings.TrimSpace(raw.Contact.Phone) == "" && strings.TrimSpace(raw.Contact.Email) == "") {
		return domain_models.Activity{}, ReasonMissingContact
	}

	if raw.Images == nil ||
		!isURLShaped(raw.Images.Main) ||
		len(raw.Images.Gallery) == 0 {
		return domain_models.Activity{}, ReasonMissingImages
	}

	if raw.Details == nil || len(raw.Details.Highlights) < minHighlights {
		return domain_models.Activity{}, ReasonInsufficientDetail
	}

	return domain_models.Activity{
		Name:            raw.Name,
		Description:     raw.Description,
		Price:           raw.Price,
		DurationHours:   domain_models.NormalizeDurationHours(raw.Duration),
		Category:        raw.Category,
		Location:        raw.Location,
		TimeSlot:        domain_models.TimeSlot(raw.TimeSlot),
		DayNumber:       raw.DayNumber,
		Rating:          clampRating(raw.Rating),
		NumberOfReviews: maxInt(raw.NumberOfReviews, 0),
		Tier:            tier,
		Selected:        raw.Selected,
		Booking:         *raw.Booking,
		OperatingHours:  *raw.OperatingHours,
		Contact:         *raw.Contact,
		Images:          *raw.Images,
		Details:         raw.Details,
	}, ReasonAccepted
}

func (v *ValidatorService) ValidateBatch(raws []domain_models.RawActivity) []domain_models.Activity {
	accepted := make([]domain_models.Activity, 0, len(raws))
	for i, raw := range raws {
		activity, reason := v.Validate(raw)
		if reason != ReasonAccepted {
			log.Printf("validator: rejected activity %d (%q): %s", i, raw.Name, reason)
			continue
		}
		accepted = append(accepted, activity)
	}
	return accepted
}

func isURLShaped(s string) bool {
	u, err := url.Parse(strings.TrimSpace(s))
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func clampRating(r float64) float64 {
	if r < 0 {
		return 0
	}
	if r > 5 {
		return 5
	}
	return r
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
