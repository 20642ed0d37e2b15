package service

import (
	"context"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/0verL1nk/rental-search/internal/model"
	"github.com/0verL1nk/rental-search/internal/provider"
)

// DefaultProviderTimeout bounds every geocoding, places and routing call
const DefaultProviderTimeout = 4 * time.Second

// ProximityFilter checks point-of-interest distance and commute time through
// external providers.
//
// Provider failures are fail-open: when a places or routing call times out,
// errors, or the places provider has nothing nearby, that single constraint is
// treated as satisfied and a *_unavailable diagnostic is recorded. A flaky
// provider must never hide listings from a live search; the diagnostic lets
// callers tell an assumed pass from a real one.
type ProximityFilter struct {
	places  provider.PlacesProvider
	routing provider.RoutingProvider
	timeout time.Duration
	logger  arbor.ILogger
}

// NewProximityFilter creates a proximity filter. Nil providers make every
// constraint of that kind fail open.
func NewProximityFilter(places provider.PlacesProvider, routing provider.RoutingProvider, timeout time.Duration, logger arbor.ILogger) *ProximityFilter {
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &ProximityFilter{
		places:  places,
		routing: routing,
		timeout: timeout,
		logger:  logger,
	}
}

// Check evaluates every POI constraint and then the commute constraint,
// stopping at the first one that fails. It returns whether the listing passed
// and the constraint kinds to record (the failing kind and any diagnostics).
// destination is the resolved commute destination, nil if it could not be resolved.
func (f *ProximityFilter) Check(
	ctx context.Context,
	listing model.Listing,
	pois []model.POIConstraint,
	commute *model.Commute,
	destination *model.Coordinates,
) (bool, []model.ConstraintKind) {
	var kinds []model.ConstraintKind

	for _, poi := range pois {
		ok, unavailable := f.checkPOI(ctx, listing, poi)
		if unavailable {
			kinds = appendKind(kinds, model.ConstraintPOIUnavailable)
			continue
		}
		if !ok {
			return false, append(kinds, model.ConstraintPOI)
		}
	}

	if commute != nil {
		ok, unavailable := f.checkCommute(ctx, listing, commute, destination)
		if unavailable {
			kinds = appendKind(kinds, model.ConstraintCommuteUnavailable)
		} else if !ok {
			return false, append(kinds, model.ConstraintCommute)
		}
	}

	return true, kinds
}

func (f *ProximityFilter) checkPOI(ctx context.Context, listing model.Listing, poi model.POIConstraint) (ok, unavailable bool) {
	if f.places == nil || listing.Coordinates == nil {
		return true, true
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	distance, found, err := f.places.Nearest(callCtx, *listing.Coordinates, poi.Type)
	if err != nil {
		f.logger.Warn().
			Err(err).
			Str("listing_id", string(listing.ID)).
			Str("poi_type", poi.Type).
			Msg("Places lookup failed, assuming POI constraint satisfied")
		return true, true
	}
	if !found {
		return true, true
	}
	return distance <= poi.MaxDistanceMiles, false
}

func (f *ProximityFilter) checkCommute(ctx context.Context, listing model.Listing, commute *model.Commute, destination *model.Coordinates) (ok, unavailable bool) {
	if f.routing == nil || listing.Coordinates == nil || destination == nil {
		return true, true
	}

	callCtx, cancel := context.WithTimeout(ctx, f.timeout)
	defer cancel()

	minutes, err := f.routing.TravelTime(callCtx, *listing.Coordinates, *destination, commute.TransportMode)
	if err != nil {
		f.logger.Warn().
			Err(err).
			Str("listing_id", string(listing.ID)).
			Str("mode", string(commute.TransportMode)).
			Msg("Routing lookup failed, assuming commute constraint satisfied")
		return true, true
	}
	return minutes <= commute.MaxTimeMinutes, false
}

func appendKind(kinds []model.ConstraintKind, k model.ConstraintKind) []model.ConstraintKind {
	for _, existing := range kinds {
		if existing == k {
			return kinds
		}
	}
	return append(kinds, k)
}
