package services

import (
	"tripforge/internal/models/domain_models"
)

// TierServiceInterface buckets prices into budget/medium/premium. Two
// tables coexist on purpose and are exposed as distinct operations so a
// call site always states which one it means:
//
//   - Classify is the general table used by scoring and allocation.
//   - ClassifyStrict / WithinStrictBand is the validation band, which also
//     bounds acceptable prices (below budget or above premium is rejected).
//
// Flights are tiered by cabin class first, price second.
type TierServiceInterface interface {
	Classify(price float64) domain_models.Tier
	ClassifyStrict(price float64) (domain_models.Tier, bool)
	WithinStrictBand(tier domain_models.Tier, price float64) bool
	ClassifyFlight(cabin domain_models.CabinClass, price float64) domain_models.Tier
}

type TierService struct{}

func NewTierService() TierServiceInterface {
	return &TierService{}
}

// General classification table. Premium starts above 100 in both tables;
// they differ in the budget ceiling and in the strict table being bounded
// on both ends.
const (
	generalBudgetMax = 50
	generalMediumMax = 100
)

// Strict validation bands.
const (
	strictBudgetMin  = 15
	strictBudgetMax  = 30
	strictMediumMax  = 100
	strictPremiumMax = 300
)

// Flight tiering constants.
const (
	flightBusinessMediumMax = 1000
	flightEconomyBudgetMax  = 200
	flightEconomyMediumMax  = 600
)

func (t *TierService) Classify(price float64) domain_models.Tier {
	switch {
	case price <= generalBudgetMax:
		return domain_models.TierBudget
	case price <= generalMediumMax:
		return domain_models.TierMedium
	default:
		return domain_models.TierPremium
	}
}

// ClassifyStrict returns the validation-band tier and whether the price
// falls inside any band at all.
func (t *TierService) ClassifyStrict(price float64) (domain_models.Tier, bool) {
	switch {
	case price < strictBudgetMin:
		return "", false
	case price <= strictBudgetMax:
		return domain_models.TierBudget, true
	case price <= strictMediumMax:
		return domain_models.TierMedium, true
	case price <= strictPremiumMax:
		return domain_models.TierPremium, true
	default:
		return "", false
	}
}

func (t *TierService) WithinStrictBand(tier domain_models.Tier, price float64) bool {
	got, ok := t.ClassifyStrict(price)
	return ok && got == tier
}

func (t *TierService) ClassifyFlight(cabin domain_models.CabinClass, price float64) domain_models.Tier {
	switch cabin {
	case domain_models.CabinFirst:
		return domain_models.TierPremium
	case domain_models.CabinBusiness:
		if price <= flightBusinessMediumMax {
			return domain_models.TierMedium
		}
		return domain_models.TierPremium
	default:
		switch {
		case price <= flightEconomyBudgetMax:
			return domain_models.TierBudget
		case price <= flightEconomyMediumMax:
			return domain_models.TierMedium
		default:
			return domain_models.TierPremium
		}
	}
}
