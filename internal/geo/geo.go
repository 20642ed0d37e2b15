// Package geo implements point containment for drawn search areas.
package geo

import (
	"errors"
	"math"

	"github.com/0verL1nk/rental-search/internal/model"
)

// EarthRadiusMiles is the mean earth radius used for haversine distances
const EarthRadiusMiles = 3958.8

// boundaryEpsilon absorbs float rounding so points exactly on a circle stay inside
const boundaryEpsilon = 1e-9

// edgeEpsilon is the planar tolerance, in degrees, for a point lying on a polygon edge
const edgeEpsilon = 1e-12

var (
	// ErrMalformedPolygon is reported for polygons with fewer than 3 vertices
	ErrMalformedPolygon = errors.New("polygon needs at least 3 vertices")

	// ErrEmptyArea is reported for an area with neither a circle nor a polygon
	ErrEmptyArea = errors.New("area has no circle or polygon")
)

// HaversineMiles returns the great-circle distance between two points
func HaversineMiles(a, b model.Coordinates) float64 {
	lat1 := toRadians(a.Lat)
	lat2 := toRadians(b.Lat)
	dLat := toRadians(b.Lat - a.Lat)
	dLng := toRadians(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng

	return 2 * EarthRadiusMiles * math.Asin(math.Min(1, math.Sqrt(h)))
}

// ValidateArea reports geometry the matcher will treat as non-restrictive
func ValidateArea(area *model.Area) error {
	if area == nil {
		return nil
	}
	if area.Circle != nil {
		return nil
	}
	if len(area.Polygon) == 0 {
		return ErrEmptyArea
	}
	if len(area.Polygon) < 3 {
		return ErrMalformedPolygon
	}
	return nil
}

// Contains reports whether p lies inside area. A nil or malformed area
// contains every point. When both shapes are present the circle wins.
func Contains(p model.Coordinates, area *model.Area) bool {
	if area == nil {
		return true
	}
	if area.Circle != nil {
		return InCircle(p, *area.Circle)
	}
	if len(area.Polygon) < 3 {
		return true
	}
	return InPolygon(p, area.Polygon)
}

// InCircle reports whether p is within the circle, boundary inclusive
func InCircle(p model.Coordinates, c model.Circle) bool {
	return HaversineMiles(p, c.Center) <= c.RadiusMiles+boundaryEpsilon
}

// InPolygon applies the even-odd rule on a planar lng/lat projection.
// Points on an edge or vertex are inside. Vertex order does not matter.
func InPolygon(p model.Coordinates, vertices []model.Coordinates) bool {
	n := len(vertices)
	if n < 3 {
		return false
	}

	px, py := p.Lng, p.Lat
	inside := false
	for i, j := 0, n-1; i < n; j, i = i, i+1 {
		xi, yi := vertices[i].Lng, vertices[i].Lat
		xj, yj := vertices[j].Lng, vertices[j].Lat

		if onSegment(px, py, xi, yi, xj, yj) {
			return true
		}
		if (yi > py) != (yj > py) && px < (xj-xi)*(py-yi)/(yj-yi)+xi {
			inside = !inside
		}
	}
	return inside
}

func onSegment(px, py, ax, ay, bx, by float64) bool {
	cross := (bx-ax)*(py-ay) - (by-ay)*(px-ax)
	if math.Abs(cross) > edgeEpsilon {
		return false
	}
	return px >= math.Min(ax, bx)-edgeEpsilon && px <= math.Max(ax, bx)+edgeEpsilon &&
		py >= math.Min(ay, by)-edgeEpsilon && py <= math.Max(ay, by)+edgeEpsilon
}

func toRadians(deg float64) float64 {
	return deg * math.Pi / 180
}
