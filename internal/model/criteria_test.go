package model

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestNormalize(t *testing.T) {
	c := Criteria{
		Bedrooms:      []int{3, 1, 3},
		Bathrooms:     []float64{2, 1.5, 2},
		PropertyTypes: []PropertyType{"Condo", "apartment", "condo"},
		Amenities:     []string{" Pool", "Air Conditioning", "swimming pool", ""},
		Parking:       []string{},
		PointsOfInterest: []POIConstraint{
			{Type: "school", MaxDistanceMiles: 1},
			{Type: "Park", MaxDistanceMiles: 0.5},
			{Type: " School ", MaxDistanceMiles: 2},
		},
		Commute: &Commute{
			Destination:    CommuteDestination{Address: "  1 Main St "},
			MaxTimeMinutes: 30,
			TransportMode:  "Transit",
		},
	}

	n := c.Normalize()
	assert.Equal(t, []int{1, 3}, n.Bedrooms)
	assert.Equal(t, []float64{1.5, 2}, n.Bathrooms)
	assert.Equal(t, []PropertyType{PropertyApartment, PropertyCondo}, n.PropertyTypes)
	assert.Equal(t, []string{"air_conditioning", "pool"}, n.Amenities)
	assert.Nil(t, n.Parking)
	assert.Equal(t, []POIConstraint{
		{Type: "park", MaxDistanceMiles: 0.5},
		{Type: "school", MaxDistanceMiles: 2},
	}, n.PointsOfInterest)
	require.NotNil(t, n.Commute)
	assert.Equal(t, "1 Main St", n.Commute.Destination.Address)
	assert.Equal(t, TransportTransit, n.Commute.TransportMode)

	// deep copy
	c.Commute.MaxTimeMinutes = 45
	c.Bedrooms[0] = 7
	assert.Equal(t, []int{1, 3}, n.Bedrooms)
	assert.Equal(t, 30.0, n.Commute.MaxTimeMinutes)
}

func TestNormalizeKeepsExplicitZero(t *testing.T) {
	n := Criteria{Bedrooms: []int{0}, Furnished: ptr(false)}.Normalize()
	assert.Equal(t, []int{0}, n.Bedrooms)
	require.NotNil(t, n.Furnished)
	assert.False(t, *n.Furnished)
}

func TestEqual(t *testing.T) {
	tests := []struct {
		name string
		a, b Criteria
		want bool
	}{
		{name: "Empty", want: true},
		{
			name: "Tag order and case",
			a:    Criteria{Amenities: []string{"Pool", "Gym"}},
			b:    Criteria{Amenities: []string{"gym", "pool", "POOL"}},
			want: true,
		},
		{
			name: "Label and canonical tag",
			a:    Criteria{Amenities: []string{"Air Conditioning"}},
			b:    Criteria{Amenities: []string{"air_conditioning"}},
			want: true,
		},
		{
			name: "Empty slice is any",
			a:    Criteria{Bedrooms: []int{}},
			b:    Criteria{},
			want: true,
		},
		{
			name: "Zero bedrooms is not any",
			a:    Criteria{Bedrooms: []int{0}},
			b:    Criteria{},
			want: false,
		},
		{
			name: "Duplicate POI collapses to the last entry",
			a: Criteria{PointsOfInterest: []POIConstraint{
				{Type: "school", MaxDistanceMiles: 1},
				{Type: "school", MaxDistanceMiles: 3},
			}},
			b:    Criteria{PointsOfInterest: []POIConstraint{{Type: "school", MaxDistanceMiles: 3}}},
			want: true,
		},
		{
			name: "Different price bounds",
			a:    Criteria{PriceRange: &PriceRange{Max: ptr(2000.0)}},
			b:    Criteria{PriceRange: &PriceRange{Max: ptr(2100.0)}},
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.a.Equal(tt.b))
			assert.Equal(t, tt.want, tt.a.Key() == tt.b.Key())
		})
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name       string
		criteria   Criteria
		wantFields []string
	}{
		{name: "Empty criteria", criteria: Criteria{}},
		{
			name:       "Inverted price range",
			criteria:   Criteria{PriceRange: &PriceRange{Min: ptr(3000.0), Max: ptr(2000.0)}},
			wantFields: []string{"price_range"},
		},
		{
			name: "Circle and polygon",
			criteria: Criteria{Location: &Location{Area: &Area{
				Circle:  &Circle{Center: Coordinates{Lat: 1, Lng: 1}, RadiusMiles: 1},
				Polygon: []Coordinates{{Lat: 0, Lng: 0}, {Lat: 0, Lng: 1}, {Lat: 1, Lng: 1}},
			}}},
			wantFields: []string{"location.area"},
		},
		{
			name: "Polygon with two vertices",
			criteria: Criteria{Location: &Location{Area: &Area{
				Polygon: []Coordinates{{Lat: 0, Lng: 0}, {Lat: 1, Lng: 1}},
			}}},
			wantFields: []string{"location.area.polygon"},
		},
		{
			name: "Commute without destination",
			criteria: Criteria{Commute: &Commute{
				MaxTimeMinutes: 30,
				TransportMode:  TransportDriving,
			}},
			wantFields: []string{"commute.destination"},
		},
		{
			name:       "Unknown property type",
			criteria:   Criteria{PropertyTypes: []PropertyType{"castle"}},
			wantFields: []string{"property_types[0]"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.criteria.Validate()
			if tt.wantFields == nil {
				assert.NoError(t, err)
				return
			}

			var invalid *InvalidCriteriaError
			require.True(t, errors.As(err, &invalid), "got %v", err)
			assert.ErrorIs(t, err, ErrInvalidCriteria)
			fields := make([]string, 0, len(invalid.Fields))
			for _, f := range invalid.Fields {
				fields = append(fields, f.Field)
			}
			assert.Equal(t, tt.wantFields, fields)
		})
	}
}

func TestNewListingIDs(t *testing.T) {
	tests := []struct {
		name     string
		current  []ListingID
		previous []ListingID
		want     []ListingID
	}{
		{name: "First run", current: []ListingID{"C", "A", "B"}, want: []ListingID{"A", "B", "C"}},
		{name: "Dropped ids are not reported", current: []ListingID{"C", "A"}, previous: []ListingID{"A", "X"}, want: []ListingID{"C"}},
		{name: "Duplicates", current: []ListingID{"B", "B", "A"}, previous: []ListingID{"A"}, want: []ListingID{"B"}},
		{name: "Nothing new", current: []ListingID{"A"}, previous: []ListingID{"A"}, want: []ListingID{}},
		{name: "Nothing matches", want: []ListingID{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewListingIDs(tt.current, tt.previous))
		})
	}
}

func TestUniqueIDs(t *testing.T) {
	assert.Equal(t, []ListingID{"A", "B"}, UniqueIDs([]ListingID{"B", "A", "B"}))
	assert.Equal(t, []ListingID{}, UniqueIDs(nil))
}
