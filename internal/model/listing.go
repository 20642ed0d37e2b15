package model

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/0verL1nk/rental-search/internal/utils"
)

// ListingID identifies a listing in the external catalog
type ListingID string

// ListingPetPolicy is what a listing accepts
type ListingPetPolicy struct {
	Allowed bool      `json:"allowed"`
	Types   []PetType `json:"types,omitempty"`
}

// Listing is the read-only catalog projection the matcher consumes
type Listing struct {
	ID            ListingID        `json:"id"`
	Coordinates   *Coordinates     `json:"coordinates,omitempty"`
	Price         float64          `json:"price"`
	Bedrooms      int              `json:"bedrooms"`
	Bathrooms     float64          `json:"bathrooms"`
	PropertyType  PropertyType     `json:"property_type"`
	Amenities     []string         `json:"amenities,omitempty"`
	Parking       []string         `json:"parking,omitempty"`
	Utilities     []string         `json:"utilities,omitempty"`
	Accessibility []string         `json:"accessibility,omitempty"`
	PetPolicy     ListingPetPolicy `json:"pet_policy"`
	SmokingPolicy SmokingPolicy    `json:"smoking_policy,omitempty"`
	Furnished     *bool            `json:"furnished,omitempty"`
	Available     bool             `json:"available"`
	ListedAt      *time.Time       `json:"listed_at,omitempty"`
}

// HasTag reports whether tags contains tag once both are canonicalised, so
// "Air Conditioning" and "air_conditioning" are the same tag
func HasTag(tags []string, tag string) bool {
	tag = utils.CanonicalTag(tag)
	if tag == "" {
		return false
	}
	for _, t := range tags {
		if utils.CanonicalTag(t) == tag {
			return true
		}
	}
	return false
}

// AcceptsPet reports whether the listing accepts the given pet type
func (l Listing) AcceptsPet(p PetType) bool {
	if !l.PetPolicy.Allowed {
		return false
	}
	for _, t := range l.PetPolicy.Types {
		if strings.EqualFold(string(t), string(p)) {
			return true
		}
	}
	return false
}

// JSONArray represents a JSON array field
type JSONArray []string

// Value implements driver.Valuer interface
func (j JSONArray) Value() (driver.Value, error) {
	if j == nil {
		return nil, nil
	}
	return json.Marshal(j)
}

// Scan implements sql.Scanner interface
func (j *JSONArray) Scan(value interface{}) error {
	if value == nil {
		*j = nil
		return nil
	}
	switch v := value.(type) {
	case []byte:
		return json.Unmarshal(v, j)
	case string:
		return json.Unmarshal([]byte(v), j)
	default:
		return fmt.Errorf("cannot scan %T into JSONArray", value)
	}
}
