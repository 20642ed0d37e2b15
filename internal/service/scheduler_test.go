package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0verL1nk/rental-search/internal/model"
)

type schedulerFixture struct {
	catalog   *stubCatalog
	store     *stubStore
	notifier  *stubNotifier
	scheduler *SearchScheduler
}

func newSchedulerFixture(places *stubPlaces, searches ...model.SavedSearch) *schedulerFixture {
	f := &schedulerFixture{
		catalog:  &stubCatalog{},
		store:    newStubStore(searches...),
		notifier: &stubNotifier{},
	}
	f.scheduler = NewSearchScheduler(f.store, f.catalog, newTestMatcher(nil, places, nil), f.notifier, 2, testLogger())
	return f
}

func twoBedroomSearch(id string, last ...model.ListingID) model.SavedSearch {
	if last == nil {
		last = []model.ListingID{}
	}
	return model.SavedSearch{
		ID:            id,
		OwnerID:       "alice",
		Name:          "two bedrooms",
		Criteria:      model.Criteria{Bedrooms: []int{2}},
		NotifyByEmail: true,
		LastResultIDs: last,
	}
}

func TestRunReportsOnlyNewListings(t *testing.T) {
	f := newSchedulerFixture(nil, twoBedroomSearch("s1", "A", "B"))
	f.catalog.set(listing("A", nil), listing("C", nil), listing("D", func(l *model.Listing) { l.Bedrooms = 1 }))

	res, err := f.scheduler.Run(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []model.ListingID{"C"}, res.NewIDs)
	assert.Equal(t, 1, res.NewCount)
	assert.True(t, res.Notified)
	assert.False(t, res.Cancelled)

	events := f.notifier.sent()
	require.Len(t, events, 1)
	assert.Equal(t, model.NotificationEvent{
		SavedSearchID: "s1",
		OwnerID:       "alice",
		NewIDs:        []model.ListingID{"C"},
		Count:         1,
	}, events[0])

	saved, err := f.store.Get(context.Background(), "", "s1")
	require.NoError(t, err)
	assert.Equal(t, []model.ListingID{"A", "C"}, saved.LastResultIDs)
	assert.NotNil(t, saved.LastEvaluatedAt)
}

func TestRunIsIdempotent(t *testing.T) {
	f := newSchedulerFixture(nil, twoBedroomSearch("s1"))
	f.catalog.set(listing("A", nil), listing("B", nil))

	first, err := f.scheduler.Run(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, []model.ListingID{"A", "B"}, first.NewIDs)

	second, err := f.scheduler.Run(context.Background(), "s1")
	require.NoError(t, err)
	assert.Empty(t, second.NewIDs)
	assert.False(t, second.Notified)
	assert.Len(t, f.notifier.sent(), 1)
	assert.Equal(t, 2, f.store.snapshotCount())
}

func TestRunPersistsSnapshotWhenNotifyFails(t *testing.T) {
	f := newSchedulerFixture(nil, twoBedroomSearch("s1", "A"))
	f.notifier.err = errors.New("smtp down")
	f.catalog.set(listing("B", nil))

	res, err := f.scheduler.Run(context.Background(), "s1")
	require.NoError(t, err)
	assert.False(t, res.Notified)
	assert.Equal(t, []model.ListingID{"B"}, res.NewIDs)

	saved, err := f.store.Get(context.Background(), "", "s1")
	require.NoError(t, err)
	assert.Equal(t, []model.ListingID{"B"}, saved.LastResultIDs)
}

func TestRunWithoutEmailPreferenceDoesNotNotify(t *testing.T) {
	search := twoBedroomSearch("s1")
	search.NotifyByEmail = false
	f := newSchedulerFixture(nil, search)
	f.catalog.set(listing("A", nil))

	res, err := f.scheduler.Run(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, res.NewCount)
	assert.False(t, res.Notified)
	assert.Empty(t, f.notifier.sent())
}

func TestRunCatalogFailureLeavesStateUntouched(t *testing.T) {
	f := newSchedulerFixture(nil, twoBedroomSearch("s1", "A", "B"))
	f.catalog.err = errors.New("connection refused")

	_, err := f.scheduler.Run(context.Background(), "s1")
	assert.ErrorIs(t, err, model.ErrCatalogUnavailable)

	saved, err := f.store.Get(context.Background(), "", "s1")
	require.NoError(t, err)
	assert.Equal(t, []model.ListingID{"A", "B"}, saved.LastResultIDs)
	assert.Nil(t, saved.LastEvaluatedAt)
	assert.Empty(t, f.notifier.sent())
	assert.Equal(t, 0, f.store.snapshotCount())
}

func TestRunUnknownSavedSearch(t *testing.T) {
	f := newSchedulerFixture(nil)
	_, err := f.scheduler.Run(context.Background(), "missing")
	assert.ErrorIs(t, err, model.ErrSavedSearchNotFound)
}

func TestRunDeletedMidFlight(t *testing.T) {
	search := twoBedroomSearch("s1")
	search.Criteria.PointsOfInterest = []model.POIConstraint{{Type: "park", MaxDistanceMiles: 1}}

	t.Run("Deleted and cancelled", func(t *testing.T) {
		places := &stubPlaces{distances: map[string]float64{"park": 0.2}}
		f := newSchedulerFixture(places, search)
		f.catalog.set(listing("A", nil))
		svc := NewSearchService(f.catalog, f.store, nil, nil, f.scheduler, testLogger())
		places.onCall = func() {
			assert.NoError(t, svc.DeleteSavedSearch(context.Background(), "alice", "s1"))
		}

		res, err := f.scheduler.Run(context.Background(), "s1")
		require.NoError(t, err)
		assert.True(t, res.Cancelled)
		assert.Empty(t, f.notifier.sent())
		assert.Equal(t, 0, f.store.snapshotCount())
	})

	t.Run("Deleted without cancel", func(t *testing.T) {
		places := &stubPlaces{distances: map[string]float64{"park": 0.2}}
		f := newSchedulerFixture(places, search)
		f.catalog.set(listing("A", nil))
		places.onCall = func() {
			assert.NoError(t, f.store.Delete(context.Background(), "alice", "s1"))
		}

		res, err := f.scheduler.Run(context.Background(), "s1")
		require.NoError(t, err)
		assert.True(t, res.Cancelled)
		assert.Empty(t, f.notifier.sent())
		assert.Equal(t, 0, f.store.snapshotCount())
	})
}

func TestRunAllListsCatalogOnce(t *testing.T) {
	f := newSchedulerFixture(nil, twoBedroomSearch("s1"), twoBedroomSearch("s2", "A"), twoBedroomSearch("s3"))
	f.catalog.set(listing("A", nil))

	results, err := f.scheduler.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, int32(1), f.catalog.calls.Load())

	assert.Equal(t, "s1", results[0].SavedSearchID)
	assert.Equal(t, 1, results[0].NewCount)
	assert.Equal(t, 0, results[1].NewCount)
	assert.Len(t, f.notifier.sent(), 2)
}

// staleListStore lists saved searches that were already deleted
type staleListStore struct {
	*stubStore
	stale []model.SavedSearch
}

func (s *staleListStore) ListAll(ctx context.Context) ([]model.SavedSearch, error) {
	all, err := s.stubStore.ListAll(ctx)
	return append(all, s.stale...), err
}

func TestRunAllSearchDeletedBeforeItsRun(t *testing.T) {
	store := &staleListStore{stubStore: newStubStore(twoBedroomSearch("s1")), stale: []model.SavedSearch{twoBedroomSearch("s2")}}
	catalog := &stubCatalog{}
	catalog.set(listing("A", nil))
	notifier := &stubNotifier{}
	scheduler := NewSearchScheduler(store, catalog, newTestMatcher(nil, nil, nil), notifier, 2, testLogger())

	results, err := scheduler.RunAll(context.Background())
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, "s1", results[0].SavedSearchID)
	assert.False(t, results[0].Cancelled)
	assert.Equal(t, model.RunResult{SavedSearchID: "s2", NewIDs: []model.ListingID{}, Cancelled: true}, results[1])
	assert.Len(t, notifier.sent(), 1)
	assert.Equal(t, 1, store.snapshotCount())
}

func TestRunAllCatalogFailure(t *testing.T) {
	f := newSchedulerFixture(nil, twoBedroomSearch("s1"))
	f.catalog.err = errors.New("timeout")

	_, err := f.scheduler.RunAll(context.Background())
	assert.ErrorIs(t, err, model.ErrCatalogUnavailable)
	assert.Equal(t, 0, f.store.snapshotCount())
}

func TestRunLockIsPerSavedSearch(t *testing.T) {
	f := newSchedulerFixture(nil)

	release, err := f.scheduler.acquire(context.Background(), "s1")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = f.scheduler.acquire(ctx, "s1")
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	other, err := f.scheduler.acquire(context.Background(), "s2")
	require.NoError(t, err)
	other()

	release()
	again, err := f.scheduler.acquire(context.Background(), "s1")
	require.NoError(t, err)
	again()

	assert.Empty(t, f.scheduler.locks)
	assert.Equal(t, RunIdle, f.scheduler.State("s1"))
}

func TestSchedulerStartStop(t *testing.T) {
	f := newSchedulerFixture(nil)

	require.NoError(t, f.scheduler.Start("@every 1h"))
	assert.Error(t, f.scheduler.Start("@every 1h"))
	f.scheduler.Stop()

	f2 := newSchedulerFixture(nil)
	assert.Error(t, f2.scheduler.Start("not a schedule"))
}
