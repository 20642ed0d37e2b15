package service

import (
	"context"
	"errors"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ternarybob/arbor"

	"github.com/0verL1nk/rental-search/internal/model"
	"github.com/0verL1nk/rental-search/internal/provider"
)

func ptr[T any](v T) *T { return &v }

func testLogger() arbor.ILogger { return arbor.NewLogger() }

// stubCatalog serves a fixed listing set
type stubCatalog struct {
	mu       sync.Mutex
	listings []model.Listing
	err      error
	calls    atomic.Int32
}

func (c *stubCatalog) ListActiveListings(ctx context.Context) ([]model.Listing, error) {
	c.calls.Add(1)
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	return append([]model.Listing(nil), c.listings...), nil
}

func (c *stubCatalog) set(listings ...model.Listing) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listings = listings
}

// stubStore is an in-memory saved search store
type stubStore struct {
	mu        sync.Mutex
	searches  map[string]model.SavedSearch
	snapshots int
}

func newStubStore(searches ...model.SavedSearch) *stubStore {
	s := &stubStore{searches: make(map[string]model.SavedSearch)}
	for _, ss := range searches {
		s.searches[ss.ID] = ss
	}
	return s
}

func (s *stubStore) Create(ctx context.Context, ss *model.SavedSearch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.searches[ss.ID]; ok {
		return errors.New("duplicate id")
	}
	s.searches[ss.ID] = *ss
	return nil
}

func (s *stubStore) Get(ctx context.Context, ownerID, id string) (*model.SavedSearch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.searches[id]
	if !ok || (ownerID != "" && ss.OwnerID != ownerID) {
		return nil, model.ErrSavedSearchNotFound
	}
	return &ss, nil
}

func (s *stubStore) List(ctx context.Context, ownerID string) ([]model.SavedSearch, error) {
	all, _ := s.ListAll(ctx)
	var out []model.SavedSearch
	for _, ss := range all {
		if ss.OwnerID == ownerID {
			out = append(out, ss)
		}
	}
	return out, nil
}

func (s *stubStore) ListAll(ctx context.Context) ([]model.SavedSearch, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.SavedSearch, 0, len(s.searches))
	for _, ss := range s.searches {
		out = append(out, ss)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *stubStore) Rename(ctx context.Context, ownerID, id, name string) error {
	return s.modify(ownerID, id, func(ss *model.SavedSearch) { ss.Name = name })
}

func (s *stubStore) UpdateCriteria(ctx context.Context, ownerID, id string, c model.Criteria) error {
	return s.modify(ownerID, id, func(ss *model.SavedSearch) { ss.Criteria = c })
}

func (s *stubStore) UpdateSnapshot(ctx context.Context, id string, ids []model.ListingID, at time.Time) error {
	err := s.modify("", id, func(ss *model.SavedSearch) {
		ss.LastResultIDs = append([]model.ListingID{}, ids...)
		ss.LastEvaluatedAt = &at
	})
	if err == nil {
		s.mu.Lock()
		s.snapshots++
		s.mu.Unlock()
	}
	return err
}

func (s *stubStore) Delete(ctx context.Context, ownerID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.searches[id]
	if !ok || (ownerID != "" && ss.OwnerID != ownerID) {
		return model.ErrSavedSearchNotFound
	}
	delete(s.searches, id)
	return nil
}

func (s *stubStore) Close() error { return nil }

func (s *stubStore) modify(ownerID, id string, fn func(*model.SavedSearch)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	ss, ok := s.searches[id]
	if !ok || (ownerID != "" && ss.OwnerID != ownerID) {
		return model.ErrSavedSearchNotFound
	}
	fn(&ss)
	s.searches[id] = ss
	return nil
}

func (s *stubStore) snapshotCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshots
}

// stubGeocoder resolves addresses from a map
type stubGeocoder struct {
	results map[string]model.Coordinates
	err     error
	calls   atomic.Int32
}

func (g *stubGeocoder) Geocode(ctx context.Context, address string) (model.Coordinates, error) {
	g.calls.Add(1)
	if g.err != nil {
		return model.Coordinates{}, g.err
	}
	c, ok := g.results[address]
	if !ok {
		return model.Coordinates{}, errors.New("not found")
	}
	return c, nil
}

// stubPlaces answers with a distance per POI type
type stubPlaces struct {
	distances map[string]float64
	err       error
	block     bool
	onCall    func()
}

func (p *stubPlaces) Nearest(ctx context.Context, point model.Coordinates, poiType string) (float64, bool, error) {
	if p.onCall != nil {
		p.onCall()
	}
	if p.block {
		<-ctx.Done()
		return 0, false, model.ErrProviderTimeout
	}
	if p.err != nil {
		return 0, false, p.err
	}
	d, ok := p.distances[poiType]
	return d, ok, nil
}

// stubRouting returns a fixed travel time
type stubRouting struct {
	minutes float64
	err     error
}

func (r *stubRouting) TravelTime(ctx context.Context, origin, destination model.Coordinates, mode model.TransportMode) (float64, error) {
	if r.err != nil {
		return 0, r.err
	}
	return r.minutes, nil
}

// stubNotifier records sent events
type stubNotifier struct {
	mu     sync.Mutex
	events []model.NotificationEvent
	err    error
}

func (n *stubNotifier) Send(ctx context.Context, event model.NotificationEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *stubNotifier) sent() []model.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]model.NotificationEvent(nil), n.events...)
}

func newTestMatcher(geocoder *stubGeocoder, places *stubPlaces, routing *stubRouting) *ListingMatcher {
	logger := testLogger()
	var (
		g  = providerGeocoder(geocoder)
		pf = NewProximityFilter(placesProvider(places), routingProvider(routing), 50*time.Millisecond, logger)
	)
	return NewListingMatcher(g, pf, NewRanker(0.6, 0.4), 4, 50*time.Millisecond, logger)
}

// nil stubs must become nil interfaces, not typed nils
func providerGeocoder(g *stubGeocoder) provider.Geocoder {
	if g == nil {
		return nil
	}
	return g
}

func placesProvider(p *stubPlaces) provider.PlacesProvider {
	if p == nil {
		return nil
	}
	return p
}

func routingProvider(r *stubRouting) provider.RoutingProvider {
	if r == nil {
		return nil
	}
	return r
}

func listing(id string, mut func(*model.Listing)) model.Listing {
	l := model.Listing{
		ID:           model.ListingID(id),
		Coordinates:  &model.Coordinates{Lat: 29.7604, Lng: -95.3698},
		Price:        1500,
		Bedrooms:     2,
		Bathrooms:    1,
		PropertyType: model.PropertyApartment,
		Available:    true,
	}
	if mut != nil {
		mut(&l)
	}
	return l
}
