package provider

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/jellydator/ttlcache/v3"

	"github.com/0verL1nk/rental-search/internal/model"
)

// GoogleGeocoder resolves addresses with the Geocoding API. Answers are
// cached by normalized address.
type GoogleGeocoder struct {
	client *apiClient
	cache  *ttlcache.Cache[string, model.Coordinates]
}

type geocodeResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Results      []struct {
		FormattedAddress string         `json:"formatted_address"`
		Geometry         googleGeometry `json:"geometry"`
	} `json:"results"`
}

// NewGoogleGeocoder creates a geocoder. Call Close to stop its cache janitor.
func NewGoogleGeocoder(apiKey string, opts ...Option) *GoogleGeocoder {
	client := newAPIClient(apiKey, opts...)
	cache := ttlcache.New(
		ttlcache.WithTTL[string, model.Coordinates](client.cacheTTL),
		ttlcache.WithDisableTouchOnHit[string, model.Coordinates](),
	)
	go cache.Start()

	return &GoogleGeocoder{client: client, cache: cache}
}

// Geocode returns the coordinates of the best match for address
func (g *GoogleGeocoder) Geocode(ctx context.Context, address string) (model.Coordinates, error) {
	key := strings.ToLower(strings.TrimSpace(address))
	if key == "" {
		return model.Coordinates{}, ErrNotFound
	}
	if item := g.cache.Get(key); item != nil {
		return item.Value(), nil
	}

	params := url.Values{}
	params.Set("address", address)

	var resp geocodeResponse
	if err := g.client.getJSON(ctx, "/geocode/json", params, &resp); err != nil {
		return model.Coordinates{}, err
	}

	switch resp.Status {
	case statusOK:
	case statusZeroResults:
		return model.Coordinates{}, ErrNotFound
	default:
		return model.Coordinates{}, fmt.Errorf("%w: geocode status %s: %s", model.ErrProviderUnavailable, resp.Status, resp.ErrorMessage)
	}
	if len(resp.Results) == 0 {
		return model.Coordinates{}, ErrNotFound
	}

	loc := resp.Results[0].Geometry.Location
	coords := model.Coordinates{Lat: loc.Lat, Lng: loc.Lng}
	g.cache.Set(key, coords, ttlcache.DefaultTTL)

	g.client.logger.Debug().
		Str("address", address).
		Float64("lat", coords.Lat).
		Float64("lng", coords.Lng).
		Msg("Geocoded address")

	return coords, nil
}

// Close stops the cache janitor
func (g *GoogleGeocoder) Close() {
	g.cache.Stop()
}

var _ Geocoder = (*GoogleGeocoder)(nil)
