package provider

import (
	"context"
	"fmt"
	"net/url"

	"github.com/0verL1nk/rental-search/internal/model"
)

// GoogleRouting estimates travel time with the Distance Matrix API
type GoogleRouting struct {
	client *apiClient
}

type distanceMatrixResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message,omitempty"`
	Rows         []struct {
		Elements []struct {
			Status   string `json:"status"`
			Duration struct {
				Value int64  `json:"value"` // seconds
				Text  string `json:"text"`
			} `json:"duration"`
		} `json:"elements"`
	} `json:"rows"`
}

// NewGoogleRouting creates a routing provider
func NewGoogleRouting(apiKey string, opts ...Option) *GoogleRouting {
	return &GoogleRouting{client: newAPIClient(apiKey, opts...)}
}

// TravelTime returns the travel time in minutes from origin to destination
func (r *GoogleRouting) TravelTime(ctx context.Context, origin, destination model.Coordinates, mode model.TransportMode) (float64, error) {
	params := url.Values{}
	params.Set("origins", latLng(origin))
	params.Set("destinations", latLng(destination))
	if mode != "" {
		params.Set("mode", string(mode))
	}

	var resp distanceMatrixResponse
	if err := r.client.getJSON(ctx, "/distancematrix/json", params, &resp); err != nil {
		return 0, err
	}
	if resp.Status != statusOK {
		return 0, fmt.Errorf("%w: distance matrix status %s: %s", model.ErrProviderUnavailable, resp.Status, resp.ErrorMessage)
	}
	if len(resp.Rows) == 0 || len(resp.Rows[0].Elements) == 0 {
		return 0, fmt.Errorf("%w: distance matrix returned no elements", model.ErrProviderUnavailable)
	}

	element := resp.Rows[0].Elements[0]
	if element.Status != statusOK {
		return 0, fmt.Errorf("%w: no route (%s)", model.ErrProviderUnavailable, element.Status)
	}

	return float64(element.Duration.Value) / 60, nil
}

var _ RoutingProvider = (*GoogleRouting)(nil)
