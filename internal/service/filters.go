package service

import (
	"strings"

	"github.com/0verL1nk/rental-search/internal/model"
)

// checkAttributes applies the cheap scalar filters: price, bedrooms,
// bathrooms, property type and furnished. Criteria must be normalized.
func checkAttributes(c model.Criteria, l model.Listing) (model.ConstraintKind, bool) {
	if pr := c.PriceRange; pr != nil {
		if pr.Min != nil && l.Price < *pr.Min {
			return model.ConstraintPrice, false
		}
		if pr.Max != nil && l.Price > *pr.Max {
			return model.ConstraintPrice, false
		}
	}

	if len(c.Bedrooms) > 0 && !containsValue(c.Bedrooms, l.Bedrooms) {
		return model.ConstraintBedrooms, false
	}
	if len(c.Bathrooms) > 0 && !containsValue(c.Bathrooms, l.Bathrooms) {
		return model.ConstraintBathrooms, false
	}

	if len(c.PropertyTypes) > 0 {
		found := false
		for _, t := range c.PropertyTypes {
			if strings.EqualFold(string(t), string(l.PropertyType)) {
				found = true
				break
			}
		}
		if !found {
			return model.ConstraintPropertyType, false
		}
	}

	if c.Furnished != nil && (l.Furnished == nil || *l.Furnished != *c.Furnished) {
		return model.ConstraintFurnished, false
	}

	return "", true
}

// checkFeatures applies the tag and policy filters. Amenities need ALL
// requested tags; parking, utilities and accessibility need ANY of each
// non-empty set.
func checkFeatures(c model.Criteria, l model.Listing) (model.ConstraintKind, bool) {
	for _, a := range c.Amenities {
		if !model.HasTag(l.Amenities, a) {
			return model.ConstraintAmenities, false
		}
	}

	if !hasAny(l.Parking, c.Parking) {
		return model.ConstraintParking, false
	}
	if !hasAny(l.Utilities, c.Utilities) {
		return model.ConstraintUtilities, false
	}
	if !hasAny(l.Accessibility, c.Accessibility) {
		return model.ConstraintAccessibility, false
	}

	if pp := c.PetPolicy; pp != nil {
		if pp.Allowed && !l.PetPolicy.Allowed {
			return model.ConstraintPetPolicy, false
		}
		if len(pp.Types) > 0 {
			accepted := false
			for _, t := range pp.Types {
				if l.AcceptsPet(t) {
					accepted = true
					break
				}
			}
			if !accepted {
				return model.ConstraintPetPolicy, false
			}
		}
	}

	if c.SmokingPolicy != nil && !strings.EqualFold(string(l.SmokingPolicy), string(*c.SmokingPolicy)) {
		return model.ConstraintSmokingPolicy, false
	}

	return "", true
}

// hasAny is true when wanted is empty or have shares at least one tag with it
func hasAny(have, wanted []string) bool {
	if len(wanted) == 0 {
		return true
	}
	for _, w := range wanted {
		if model.HasTag(have, w) {
			return true
		}
	}
	return false
}

func containsValue[T comparable](set []T, v T) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
