// Package provider defines the external collaborators of the search core and
// HTTP adapters for them.
package provider

import (
	"context"
	"errors"

	"github.com/0verL1nk/rental-search/internal/model"
)

// ErrNotFound is returned by a Geocoder when the address has no result
var ErrNotFound = errors.New("not found")

// CatalogProvider lists the listings currently on the market
type CatalogProvider interface {
	ListActiveListings(ctx context.Context) ([]model.Listing, error)
}

// Geocoder resolves a free-text address to coordinates
type Geocoder interface {
	Geocode(ctx context.Context, address string) (model.Coordinates, error)
}

// PlacesProvider finds the nearest point of interest of a type.
// found is false when there is no such place nearby.
type PlacesProvider interface {
	Nearest(ctx context.Context, point model.Coordinates, poiType string) (distanceMiles float64, found bool, err error)
}

// RoutingProvider estimates travel time between two points
type RoutingProvider interface {
	TravelTime(ctx context.Context, origin, destination model.Coordinates, mode model.TransportMode) (minutes float64, err error)
}

// Notifier delivers saved-search notification events
type Notifier interface {
	Send(ctx context.Context, event model.NotificationEvent) error
}
