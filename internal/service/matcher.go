package service

import (
	"context"
	"fmt"
	"time"

	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/0verL1nk/rental-search/internal/geo"
	"github.com/0verL1nk/rental-search/internal/model"
	"github.com/0verL1nk/rental-search/internal/provider"
)

// DefaultMatchConcurrency bounds parallel listing evaluations in a batch
const DefaultMatchConcurrency = 8

// ListingMatcher evaluates listings against criteria. Stages run cheapest
// first and the first failing stage ends the evaluation:
// availability, attributes, features, area, proximity.
type ListingMatcher struct {
	geocoder    provider.Geocoder
	proximity   *ProximityFilter
	ranker      *Ranker
	concurrency int
	timeout     time.Duration
	logger      arbor.ILogger
}

// NewListingMatcher creates a matcher. geocoder may be nil, in which case
// address-radius searches and address-only commute destinations fail open.
func NewListingMatcher(
	geocoder provider.Geocoder,
	proximity *ProximityFilter,
	ranker *Ranker,
	concurrency int,
	timeout time.Duration,
	logger arbor.ILogger,
) *ListingMatcher {
	if concurrency <= 0 {
		concurrency = DefaultMatchConcurrency
	}
	if timeout <= 0 {
		timeout = DefaultProviderTimeout
	}
	return &ListingMatcher{
		geocoder:    geocoder,
		proximity:   proximity,
		ranker:      ranker,
		concurrency: concurrency,
		timeout:     timeout,
		logger:      logger,
	}
}

// preparedCriteria is criteria with its geometry resolved. It is computed
// once per evaluation and shared read-only by every listing in a batch.
type preparedCriteria struct {
	criteria    model.Criteria
	area        *model.Area
	destination *model.Coordinates
	diagnostics []model.ConstraintKind
}

// Evaluate matches a single listing
func (m *ListingMatcher) Evaluate(ctx context.Context, c model.Criteria, l model.Listing) model.MatchResult {
	return m.evaluate(ctx, m.prepare(ctx, c), l)
}

// EvaluateBatch matches every listing, in parallel up to the configured
// concurrency. Results keep the order of listings. The only error is
// cancellation of ctx.
func (m *ListingMatcher) EvaluateBatch(ctx context.Context, c model.Criteria, listings []model.Listing) ([]model.MatchResult, error) {
	p := m.prepare(ctx, c)
	results := make([]model.MatchResult, len(listings))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(m.concurrency)

	for i := range listings {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = m.evaluate(gctx, p, listings[i])
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("failed to evaluate listings: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("failed to evaluate listings: %w", err)
	}
	return results, nil
}

func (m *ListingMatcher) prepare(ctx context.Context, c model.Criteria) preparedCriteria {
	p := preparedCriteria{criteria: c.Normalize()}
	loc := p.criteria.Location

	if pr := p.criteria.PriceRange; pr != nil && pr.Min != nil && pr.Max != nil && *pr.Min > *pr.Max {
		m.logger.Warn().
			Float64("min", *pr.Min).
			Float64("max", *pr.Max).
			Msg("Ignoring inverted price range")
		p.criteria.PriceRange = nil
		p.diagnostics = append(p.diagnostics, model.ConstraintPriceRangeInvalid)
	}

	if drawn := p.criteria.DrawnArea(); drawn != nil {
		if err := geo.ValidateArea(drawn); err != nil {
			m.logger.Warn().Err(err).Msg("Ignoring malformed drawn area")
			p.diagnostics = append(p.diagnostics, model.ConstraintAreaMalformed)
		} else {
			p.area = drawn
		}
	} else if loc != nil && loc.RadiusMiles != nil && loc.Address != "" {
		center, err := m.geocode(ctx, loc.Address)
		if err != nil {
			m.logger.Warn().Err(err).Str("address", loc.Address).Msg("Geocoding failed, ignoring search radius")
			p.diagnostics = append(p.diagnostics, model.ConstraintGeocodeUnavailable)
		} else {
			p.area = &model.Area{Circle: &model.Circle{Center: center, RadiusMiles: *loc.RadiusMiles}}
		}
	}

	if cm := p.criteria.Commute; cm != nil {
		if cm.Destination.Coordinates != nil {
			dest := *cm.Destination.Coordinates
			p.destination = &dest
		} else if dest, err := m.geocode(ctx, cm.Destination.Address); err == nil {
			p.destination = &dest
		} else {
			m.logger.Warn().Err(err).Str("address", cm.Destination.Address).Msg("Geocoding commute destination failed")
		}
	}

	return p
}

func (m *ListingMatcher) geocode(ctx context.Context, address string) (model.Coordinates, error) {
	if m.geocoder == nil {
		return model.Coordinates{}, model.ErrProviderUnavailable
	}
	callCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()
	return m.geocoder.Geocode(callCtx, address)
}

func (m *ListingMatcher) evaluate(ctx context.Context, p preparedCriteria, l model.Listing) model.MatchResult {
	res := model.MatchResult{ListingID: l.ID}
	c := p.criteria

	// 1. availability
	if !l.Available {
		res.FailedConstraints = append(res.FailedConstraints, model.ConstraintAvailability)
		return res
	}

	// 2. scalar attributes
	if kind, ok := checkAttributes(c, l); !ok {
		res.FailedConstraints = append(res.FailedConstraints, kind)
		return res
	}

	// 3. tags and policies
	if kind, ok := checkFeatures(c, l); !ok {
		res.FailedConstraints = append(res.FailedConstraints, kind)
		return res
	}

	// 4. area
	res.FailedConstraints = append(res.FailedConstraints, p.diagnostics...)
	if p.area != nil && (l.Coordinates == nil || !geo.Contains(*l.Coordinates, p.area)) {
		res.FailedConstraints = append(res.FailedConstraints, model.ConstraintArea)
		return res
	}

	// 5. proximity, the only stage with network calls
	if len(c.PointsOfInterest) > 0 || c.Commute != nil {
		if m.proximity == nil {
			if len(c.PointsOfInterest) > 0 {
				res.FailedConstraints = append(res.FailedConstraints, model.ConstraintPOIUnavailable)
			}
			if c.Commute != nil {
				res.FailedConstraints = append(res.FailedConstraints, model.ConstraintCommuteUnavailable)
			}
		} else {
			ok, kinds := m.proximity.Check(ctx, l, c.PointsOfInterest, c.Commute, p.destination)
			res.FailedConstraints = append(res.FailedConstraints, kinds...)
			if !ok {
				return res
			}
		}
	}

	res.Matched = true
	if m.ranker != nil {
		res.Score, res.MatchedReasons = m.ranker.Score(c, l, p.area != nil, res.FailedConstraints)
	}
	return res
}
