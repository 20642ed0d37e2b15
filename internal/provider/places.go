package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jellydator/ttlcache/v3"

	"github.com/0verL1nk/rental-search/internal/geo"
	"github.com/0verL1nk/rental-search/internal/model"
)

// GooglePlaces finds the nearest place of a type with a Nearby Search ranked
// by distance.
type GooglePlaces struct {
	client *apiClient
	cache  *ttlcache.Cache[string, placesAnswer]
}

type placesAnswer struct {
	distanceMiles float64
	found         bool
}

type nearbySearchResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Results      []struct {
		PlaceID  string         `json:"place_id"`
		Name     string         `json:"name"`
		Geometry googleGeometry `json:"geometry"`
	} `json:"results"`
}

// NewGooglePlaces creates a places provider. Call Close to stop its cache janitor.
func NewGooglePlaces(apiKey string, opts ...Option) *GooglePlaces {
	client := newAPIClient(apiKey, opts...)
	cache := ttlcache.New(
		ttlcache.WithTTL[string, placesAnswer](client.cacheTTL),
		ttlcache.WithDisableTouchOnHit[string, placesAnswer](),
	)
	go cache.Start()

	return &GooglePlaces{client: client, cache: cache}
}

// Nearest returns the straight-line distance to the closest place of poiType
func (p *GooglePlaces) Nearest(ctx context.Context, point model.Coordinates, poiType string) (float64, bool, error) {
	poiType = strings.ToLower(strings.TrimSpace(poiType))
	key := poiType + "@" + latLng(point)
	if item := p.cache.Get(key); item != nil {
		answer := item.Value()
		return answer.distanceMiles, answer.found, nil
	}

	params := url.Values{}
	params.Set("location", latLng(point))
	params.Set("rankby", "distance")
	params.Set("type", poiType)

	var resp nearbySearchResponse
	if err := p.client.getJSON(ctx, "/place/nearbysearch/json", params, &resp); err != nil {
		return 0, false, err
	}

	switch resp.Status {
	case statusOK, statusZeroResults:
	default:
		return 0, false, fmt.Errorf("%w: places status %s: %s", model.ErrProviderUnavailable, resp.Status, resp.ErrorMessage)
	}

	answer := placesAnswer{}
	for _, r := range resp.Results {
		d := geo.HaversineMiles(point, model.Coordinates{Lat: r.Geometry.Location.Lat, Lng: r.Geometry.Location.Lng})
		if !answer.found || d < answer.distanceMiles {
			answer = placesAnswer{distanceMiles: d, found: true}
		}
	}
	p.cache.Set(key, answer, ttlcache.DefaultTTL)

	return answer.distanceMiles, answer.found, nil
}

// Close stops the cache janitor
func (p *GooglePlaces) Close() {
	p.cache.Stop()
}

var _ PlacesProvider = (*GooglePlaces)(nil)
