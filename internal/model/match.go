package model

// ConstraintKind names the stage that excluded a listing, or a provider
// problem that was tolerated while the listing still passed.
type ConstraintKind string

const (
	ConstraintAvailability  ConstraintKind = "availability"
	ConstraintPrice         ConstraintKind = "price"
	ConstraintBedrooms      ConstraintKind = "bedrooms"
	ConstraintBathrooms     ConstraintKind = "bathrooms"
	ConstraintPropertyType  ConstraintKind = "property_type"
	ConstraintFurnished     ConstraintKind = "furnished"
	ConstraintAmenities     ConstraintKind = "amenities"
	ConstraintParking       ConstraintKind = "parking"
	ConstraintUtilities     ConstraintKind = "utilities"
	ConstraintAccessibility ConstraintKind = "accessibility"
	ConstraintPetPolicy     ConstraintKind = "pet_policy"
	ConstraintSmokingPolicy ConstraintKind = "smoking_policy"
	ConstraintArea          ConstraintKind = "area"
	ConstraintPOI           ConstraintKind = "poi"
	ConstraintCommute       ConstraintKind = "commute"

	// Diagnostics: the constraint was assumed satisfied
	ConstraintPriceRangeInvalid  ConstraintKind = "price_range_invalid"
	ConstraintAreaMalformed      ConstraintKind = "area_malformed"
	ConstraintGeocodeUnavailable ConstraintKind = "geocode_unavailable"
	ConstraintPOIUnavailable     ConstraintKind = "poi_unavailable"
	ConstraintCommuteUnavailable ConstraintKind = "commute_unavailable"
)

// IsDiagnostic reports whether k records a tolerated failure rather than an exclusion
func (k ConstraintKind) IsDiagnostic() bool {
	switch k {
	case ConstraintPriceRangeInvalid, ConstraintAreaMalformed, ConstraintGeocodeUnavailable, ConstraintPOIUnavailable, ConstraintCommuteUnavailable:
		return true
	}
	return false
}

// MatchResult is the outcome of evaluating one listing against criteria
type MatchResult struct {
	ListingID         ListingID        `json:"listing_id"`
	Matched           bool             `json:"matched"`
	FailedConstraints []ConstraintKind `json:"failed_constraints,omitempty"`
	Score             float64          `json:"score,omitempty"`
	MatchedReasons    []string         `json:"matched_reasons,omitempty"`
}

// ExcludedBy returns the constraint that excluded the listing, or "" if it matched
func (r MatchResult) ExcludedBy() ConstraintKind {
	if r.Matched {
		return ""
	}
	for _, k := range r.FailedConstraints {
		if !k.IsDiagnostic() {
			return k
		}
	}
	return ""
}

// HasConstraint reports whether k was recorded on the result
func (r MatchResult) HasConstraint(k ConstraintKind) bool {
	for _, c := range r.FailedConstraints {
		if c == k {
			return true
		}
	}
	return false
}

// MatchedIDs collects the ids of matched results in order
func MatchedIDs(results []MatchResult) []ListingID {
	ids := make([]ListingID, 0, len(results))
	for _, r := range results {
		if r.Matched {
			ids = append(ids, r.ListingID)
		}
	}
	return ids
}
