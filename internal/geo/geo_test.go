package geo

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0verL1nk/rental-search/internal/model"
)

var houston = model.Coordinates{Lat: 29.7604, Lng: -95.3698}

// northOf returns the point the given distance due north of c
func northOf(c model.Coordinates, miles float64) model.Coordinates {
	return model.Coordinates{Lat: c.Lat + (miles/EarthRadiusMiles)*180/math.Pi, Lng: c.Lng}
}

func TestHaversineMiles(t *testing.T) {
	assert.Equal(t, 0.0, HaversineMiles(houston, houston))
	assert.InDelta(t, 1.0, HaversineMiles(houston, northOf(houston, 1)), 1e-9)

	// Houston to Dallas is roughly 225 miles
	dallas := model.Coordinates{Lat: 32.7767, Lng: -96.7970}
	assert.InDelta(t, 225, HaversineMiles(houston, dallas), 5)
	assert.InDelta(t, HaversineMiles(houston, dallas), HaversineMiles(dallas, houston), 1e-9)
}

func TestInCircle_Boundary(t *testing.T) {
	circle := model.Circle{Center: houston, RadiusMiles: 1}

	tests := []struct {
		name  string
		point model.Coordinates
		want  bool
	}{
		{name: "center", point: houston, want: true},
		{name: "inside", point: northOf(houston, 0.5), want: true},
		{name: "exactly on boundary", point: northOf(houston, 1.0), want: true},
		{name: "just outside", point: northOf(houston, 1.0001), want: false},
		{name: "far away", point: northOf(houston, 10), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InCircle(tt.point, circle))
			area := &model.Area{Circle: &circle}
			assert.Equal(t, tt.want, Contains(tt.point, area))
		})
	}
}

func TestInCircle_AgreesWithHaversine(t *testing.T) {
	circle := model.Circle{Center: houston, RadiusMiles: 2.5}
	for i := 0; i < 50; i++ {
		p := model.Coordinates{
			Lat: houston.Lat + float64(i-25)*0.003,
			Lng: houston.Lng + float64(i%7-3)*0.01,
		}
		want := HaversineMiles(p, circle.Center) <= circle.RadiusMiles
		assert.Equal(t, want, InCircle(p, circle), "point %v", p)
	}
}

func square() []model.Coordinates {
	return []model.Coordinates{
		{Lat: 29.70, Lng: -95.40},
		{Lat: 29.70, Lng: -95.30},
		{Lat: 29.80, Lng: -95.30},
		{Lat: 29.80, Lng: -95.40},
	}
}

func reversed(vs []model.Coordinates) []model.Coordinates {
	out := make([]model.Coordinates, len(vs))
	for i, v := range vs {
		out[len(vs)-1-i] = v
	}
	return out
}

func TestInPolygon(t *testing.T) {
	tests := []struct {
		name  string
		point model.Coordinates
		want  bool
	}{
		{name: "inside", point: model.Coordinates{Lat: 29.75, Lng: -95.35}, want: true},
		{name: "outside east", point: model.Coordinates{Lat: 29.75, Lng: -95.20}, want: false},
		{name: "outside north", point: model.Coordinates{Lat: 29.90, Lng: -95.35}, want: false},
		{name: "on edge", point: model.Coordinates{Lat: 29.70, Lng: -95.35}, want: true},
		{name: "on vertex", point: model.Coordinates{Lat: 29.80, Lng: -95.30}, want: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InPolygon(tt.point, square()))
			assert.Equal(t, tt.want, InPolygon(tt.point, reversed(square())), "reversed vertex order")
		})
	}
}

func TestInPolygon_Concave(t *testing.T) {
	// U shape opening north
	u := []model.Coordinates{
		{Lat: 0, Lng: 0}, {Lat: 0, Lng: 3}, {Lat: 3, Lng: 3}, {Lat: 3, Lng: 2},
		{Lat: 1, Lng: 2}, {Lat: 1, Lng: 1}, {Lat: 3, Lng: 1}, {Lat: 3, Lng: 0},
	}
	assert.True(t, InPolygon(model.Coordinates{Lat: 2, Lng: 0.5}, u))
	assert.False(t, InPolygon(model.Coordinates{Lat: 2, Lng: 1.5}, u), "inside the notch")
	assert.True(t, InPolygon(model.Coordinates{Lat: 0.5, Lng: 1.5}, u))
}

func TestInPolygon_TranslationInvariant(t *testing.T) {
	dLat, dLng := 0.25, -0.5
	shift := func(c model.Coordinates) model.Coordinates {
		return model.Coordinates{Lat: c.Lat + dLat, Lng: c.Lng + dLng}
	}

	moved := make([]model.Coordinates, 0, 4)
	for _, v := range square() {
		moved = append(moved, shift(v))
	}

	points := []model.Coordinates{
		{Lat: 29.75, Lng: -95.35},
		{Lat: 29.71, Lng: -95.39},
		{Lat: 29.65, Lng: -95.35},
		{Lat: 29.75, Lng: -95.25},
	}
	for _, p := range points {
		assert.Equal(t, InPolygon(p, square()), InPolygon(shift(p), moved), "point %v", p)
	}
}

func TestContains_Degenerate(t *testing.T) {
	far := model.Coordinates{Lat: 10, Lng: 10}

	assert.True(t, Contains(far, nil), "no area matches everything")

	twoPoints := &model.Area{Polygon: square()[:2]}
	require.ErrorIs(t, ValidateArea(twoPoints), ErrMalformedPolygon)
	assert.True(t, Contains(far, twoPoints), "malformed polygon is non-restrictive")

	empty := &model.Area{}
	require.ErrorIs(t, ValidateArea(empty), ErrEmptyArea)
	assert.True(t, Contains(far, empty))

	assert.NoError(t, ValidateArea(&model.Area{Polygon: square()}))
}
