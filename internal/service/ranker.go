package service

import (
	"math"
	"slices"
	"sort"
	"time"

	"github.com/0verL1nk/rental-search/internal/model"
)

// Match reason constants
const (
	ReasonBedroomsMatch  = "Bedrooms match"
	ReasonBathroomsMatch = "Bathrooms match"
	ReasonTypeMatch      = "Property type match"
	ReasonPriceMatch     = "Price within budget"
	ReasonAmenitiesMatch = "Has requested amenities"
	ReasonPetsAllowed    = "Pets allowed"
	ReasonInsideArea     = "Inside search area"
	ReasonNearPlaces     = "Near requested places"
	ReasonCommuteMatch   = "Commute within limit"
	ReasonNewlyListed    = "Newly listed"
	ReasonGeneralMatch   = "General match"
)

// Ranker scores matched listings for display order. Scores never affect
// whether a listing matches.
type Ranker struct {
	weightPrice   float64
	weightRecency float64
	now           func() time.Time
}

// NewRanker creates a new ranker with specified weights
func NewRanker(weightPrice, weightRecency float64) *Ranker {
	return &Ranker{
		weightPrice:   weightPrice,
		weightRecency: weightRecency,
		now:           time.Now,
	}
}

// Score returns a 0..1 score and human-readable reasons for a matched listing.
// diagnostics are the checks that were assumed satisfied; they earn no reason.
func (r *Ranker) Score(c model.Criteria, l model.Listing, inArea bool, diagnostics []model.ConstraintKind) (float64, []string) {
	priceScore := r.calculatePriceScore(l.Price, c.PriceRange)
	recencyScore := r.calculateRecencyScore(l.ListedAt)

	total := r.weightPrice + r.weightRecency
	score := 0.0
	if total > 0 {
		score = (r.weightPrice*priceScore + r.weightRecency*recencyScore) / total
	}

	return math.Round(score*1000) / 1000, r.generateMatchedReasons(c, l, priceScore, inArea, diagnostics)
}

// Sort orders results by score descending, keeping input order for ties
func (r *Ranker) Sort(results []model.MatchResult) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
}

// calculatePriceScore calculates how well the price matches user's budget
func (r *Ranker) calculatePriceScore(price float64, pr *model.PriceRange) float64 {
	if pr == nil || (pr.Min == nil && pr.Max == nil) {
		return 1.0 // Full score if no price filter
	}

	if pr.Min != nil && pr.Max != nil {
		minPrice, maxPrice := *pr.Min, *pr.Max
		if price < minPrice || price > maxPrice {
			return 0.0
		}

		// Within range, score based on distance from midpoint
		midpoint := (minPrice + maxPrice) / 2
		priceRange := maxPrice - minPrice
		if priceRange == 0 {
			return 1.0
		}

		score := 1.0 - (math.Abs(price-midpoint) / (priceRange / 2))
		if score < 0 {
			score = 0
		}
		return score
	}

	if pr.Min != nil {
		if price < *pr.Min {
			return 0.0
		}
		return 1.0
	}

	if price > *pr.Max {
		return 0.0
	}
	if *pr.Max == 0 {
		return 1.0
	}
	// Cheaper is better when only a ceiling is given
	return 1.0 - 0.5*(price / *pr.Max)
}

// calculateRecencyScore calculates recency score based on listing date
func (r *Ranker) calculateRecencyScore(listedAt *time.Time) float64 {
	if listedAt == nil {
		return 0.5 // Neutral score if no date
	}

	daysSinceListed := r.now().Sub(*listedAt).Hours() / 24
	if daysSinceListed < 0 {
		daysSinceListed = 0
	}

	// Exponential decay: after 30 days ~0.74, after 90 days ~0.41
	return math.Exp(-0.01 * daysSinceListed)
}

// generateMatchedReasons generates human-readable reasons for why this listing matched
func (r *Ranker) generateMatchedReasons(c model.Criteria, l model.Listing, priceScore float64, inArea bool, diagnostics []model.ConstraintKind) []string {
	reasons := []string{}

	if len(c.Bedrooms) > 0 {
		reasons = append(reasons, ReasonBedroomsMatch)
	}
	if len(c.Bathrooms) > 0 {
		reasons = append(reasons, ReasonBathroomsMatch)
	}
	if len(c.PropertyTypes) > 0 {
		reasons = append(reasons, ReasonTypeMatch)
	}
	if c.PriceRange != nil && priceScore > 0.8 {
		reasons = append(reasons, ReasonPriceMatch)
	}
	if len(c.Amenities) > 0 {
		reasons = append(reasons, ReasonAmenitiesMatch)
	}
	if c.PetPolicy != nil && l.PetPolicy.Allowed {
		reasons = append(reasons, ReasonPetsAllowed)
	}
	if inArea {
		reasons = append(reasons, ReasonInsideArea)
	}
	if len(c.PointsOfInterest) > 0 && !slices.Contains(diagnostics, model.ConstraintPOIUnavailable) {
		reasons = append(reasons, ReasonNearPlaces)
	}
	if c.Commute != nil && !slices.Contains(diagnostics, model.ConstraintCommuteUnavailable) {
		reasons = append(reasons, ReasonCommuteMatch)
	}

	if l.ListedAt != nil && r.now().Sub(*l.ListedAt) < 7*24*time.Hour {
		reasons = append(reasons, ReasonNewlyListed)
	}

	if len(reasons) == 0 {
		reasons = append(reasons, ReasonGeneralMatch)
	}

	return reasons
}
