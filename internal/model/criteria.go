package model

import (
	"encoding/json"
	"reflect"
	"sort"
	"strings"

	"github.com/0verL1nk/rental-search/internal/utils"
)

// PropertyType is the kind of dwelling a listing describes
type PropertyType string

const (
	PropertyApartment PropertyType = "apartment"
	PropertyHouse     PropertyType = "house"
	PropertyCondo     PropertyType = "condo"
	PropertyTownhouse PropertyType = "townhouse"
	PropertyStudio    PropertyType = "studio"
)

// PetType is a pet category a listing may accept
type PetType string

const (
	PetDogs  PetType = "dogs"
	PetCats  PetType = "cats"
	PetOther PetType = "other"
)

// SmokingPolicy is a listing's smoking rule
type SmokingPolicy string

const (
	SmokingAllowed     SmokingPolicy = "allowed"
	SmokingNotAllowed  SmokingPolicy = "not_allowed"
	SmokingOutdoorOnly SmokingPolicy = "outdoor_only"
)

// TransportMode is the travel mode used for commute estimates
type TransportMode string

const (
	TransportDriving   TransportMode = "driving"
	TransportTransit   TransportMode = "transit"
	TransportWalking   TransportMode = "walking"
	TransportBicycling TransportMode = "bicycling"
)

// Coordinates is a WGS84 point
type Coordinates struct {
	Lat float64 `json:"lat" validate:"gte=-90,lte=90"`
	Lng float64 `json:"lng" validate:"gte=-180,lte=180"`
}

// Circle is a drawn circular search area
type Circle struct {
	Center      Coordinates `json:"center"`
	RadiusMiles float64     `json:"radius_miles" validate:"gt=0"`
}

// Area is a shape drawn on the map. Exactly one of Circle or Polygon is set.
// Polygon vertices are implicitly closed.
type Area struct {
	Circle  *Circle       `json:"circle,omitempty" validate:"omitempty"`
	Polygon []Coordinates `json:"polygon,omitempty" validate:"omitempty,min=3,dive"`
}

// Location is the textual location of a search plus an optional radius or drawn area.
// A drawn Area takes precedence over RadiusMiles.
type Location struct {
	Address     string   `json:"address,omitempty"`
	RadiusMiles *float64 `json:"radius_miles,omitempty" validate:"omitempty,gt=0"`
	Area        *Area    `json:"area,omitempty" validate:"omitempty"`
}

// PriceRange bounds the monthly rent. Unset bounds are open.
type PriceRange struct {
	Min *float64 `json:"min,omitempty" validate:"omitempty,gte=0"`
	Max *float64 `json:"max,omitempty" validate:"omitempty,gte=0"`
}

// PetPolicy is the pet requirement of a search
type PetPolicy struct {
	Allowed bool      `json:"allowed"`
	Types   []PetType `json:"types,omitempty" validate:"dive,oneof=dogs cats other"`
}

// POIConstraint limits the distance to the nearest point of interest of a type
type POIConstraint struct {
	Type             string  `json:"type" validate:"required"`
	MaxDistanceMiles float64 `json:"max_distance_miles" validate:"gt=0"`
}

// CommuteDestination is where the user commutes to. Coordinates are resolved
// from Address when missing.
type CommuteDestination struct {
	Address     string       `json:"address,omitempty"`
	Coordinates *Coordinates `json:"coordinates,omitempty" validate:"omitempty"`
}

// Commute limits the travel time from a listing to a destination
type Commute struct {
	Destination    CommuteDestination `json:"destination"`
	MaxTimeMinutes float64            `json:"max_time_minutes" validate:"gt=0"`
	TransportMode  TransportMode      `json:"transport_mode" validate:"required,oneof=driving transit walking bicycling"`
}

// Criteria is the full set of constraints of one search.
//
// Criteria is a value: nil pointers and nil slices mean "any" for that
// category, so a requested count of 0 bedrooms is distinguishable from no
// bedroom filter. Callers must not mutate a Criteria after handing it to the
// matcher; Normalize returns an independent canonical copy.
type Criteria struct {
	Location         *Location       `json:"location,omitempty" validate:"omitempty"`
	PriceRange       *PriceRange     `json:"price_range,omitempty" validate:"omitempty"`
	Bedrooms         []int           `json:"bedrooms,omitempty" validate:"dive,gte=0"`
	Bathrooms        []float64       `json:"bathrooms,omitempty" validate:"dive,gte=0"`
	PropertyTypes    []PropertyType  `json:"property_types,omitempty" validate:"dive,oneof=apartment house condo townhouse studio"`
	Amenities        []string        `json:"amenities,omitempty"`
	PetPolicy        *PetPolicy      `json:"pet_policy,omitempty" validate:"omitempty"`
	Parking          []string        `json:"parking,omitempty"`
	Utilities        []string        `json:"utilities,omitempty"`
	Accessibility    []string        `json:"accessibility,omitempty"`
	SmokingPolicy    *SmokingPolicy  `json:"smoking_policy,omitempty" validate:"omitempty,oneof=allowed not_allowed outdoor_only"`
	PointsOfInterest []POIConstraint `json:"points_of_interest,omitempty" validate:"dive"`
	Commute          *Commute        `json:"commute,omitempty" validate:"omitempty"`
	Furnished        *bool           `json:"furnished,omitempty"`
}

// Normalize returns a canonical deep copy: feature tags are mapped to the
// catalog tag vocabulary, sets are deduplicated and sorted, duplicate POI types collapse to the last
// entry, and empty collections become nil.
func (c Criteria) Normalize() Criteria {
	out := Criteria{
		Bedrooms:      normalizeInts(c.Bedrooms),
		Bathrooms:     normalizeFloats(c.Bathrooms),
		PropertyTypes: normalizeEnum(c.PropertyTypes),
		Amenities:     utils.CanonicalTags(c.Amenities),
		Parking:       utils.CanonicalTags(c.Parking),
		Utilities:     utils.CanonicalTags(c.Utilities),
		Accessibility: utils.CanonicalTags(c.Accessibility),
		Furnished:     copyPtr(c.Furnished),
		SmokingPolicy: copyPtr(c.SmokingPolicy),
	}

	if c.Location != nil {
		loc := &Location{
			Address:     strings.TrimSpace(c.Location.Address),
			RadiusMiles: copyPtr(c.Location.RadiusMiles),
		}
		if c.Location.Area != nil {
			area := &Area{}
			if c.Location.Area.Circle != nil {
				circle := *c.Location.Area.Circle
				area.Circle = &circle
			}
			if len(c.Location.Area.Polygon) > 0 {
				area.Polygon = append([]Coordinates(nil), c.Location.Area.Polygon...)
			}
			loc.Area = area
		}
		out.Location = loc
	}

	if c.PriceRange != nil {
		out.PriceRange = &PriceRange{
			Min: copyPtr(c.PriceRange.Min),
			Max: copyPtr(c.PriceRange.Max),
		}
	}

	if c.PetPolicy != nil {
		out.PetPolicy = &PetPolicy{
			Allowed: c.PetPolicy.Allowed,
			Types:   normalizeEnum(c.PetPolicy.Types),
		}
	}

	if len(c.PointsOfInterest) > 0 {
		byType := make(map[string]POIConstraint, len(c.PointsOfInterest))
		for _, poi := range c.PointsOfInterest {
			poi.Type = strings.ToLower(strings.TrimSpace(poi.Type))
			byType[poi.Type] = poi
		}
		pois := make([]POIConstraint, 0, len(byType))
		for _, poi := range byType {
			pois = append(pois, poi)
		}
		sort.Slice(pois, func(i, j int) bool { return pois[i].Type < pois[j].Type })
		out.PointsOfInterest = pois
	}

	if c.Commute != nil {
		commute := *c.Commute
		commute.Destination.Address = strings.TrimSpace(commute.Destination.Address)
		commute.Destination.Coordinates = copyPtr(c.Commute.Destination.Coordinates)
		commute.TransportMode = TransportMode(strings.ToLower(strings.TrimSpace(string(commute.TransportMode))))
		out.Commute = &commute
	}

	return out
}

// Equal reports whether two criteria describe the same search
func (c Criteria) Equal(other Criteria) bool {
	return reflect.DeepEqual(c.Normalize(), other.Normalize())
}

// Key returns a canonical string form, usable as a cache or dedup key
func (c Criteria) Key() string {
	b, err := json.Marshal(c.Normalize())
	if err != nil {
		return ""
	}
	return string(b)
}

// DrawnArea returns the authoritative drawn area, if any
func (c Criteria) DrawnArea() *Area {
	if c.Location == nil || c.Location.Area == nil {
		return nil
	}
	return c.Location.Area
}

// normalizeTags trims, lower-cases, dedupes and sorts a tag set
func normalizeTags(tags []string) []string {
	if len(tags) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(tags))
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	if len(out) == 0 {
		return nil
	}
	sort.Strings(out)
	return out
}

func normalizeEnum[T ~string](values []T) []T {
	if len(values) == 0 {
		return nil
	}
	raw := make([]string, len(values))
	for i, v := range values {
		raw[i] = string(v)
	}
	tags := normalizeTags(raw)
	if tags == nil {
		return nil
	}
	out := make([]T, len(tags))
	for i, t := range tags {
		out[i] = T(t)
	}
	return out
}

func normalizeInts(values []int) []int {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[int]struct{}, len(values))
	out := make([]int, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

func normalizeFloats(values []float64) []float64 {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[float64]struct{}, len(values))
	out := make([]float64, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Float64s(out)
	return out
}

func copyPtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}
