package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/ternarybob/arbor"
	"golang.org/x/sync/errgroup"

	"github.com/0verL1nk/rental-search/internal/model"
	"github.com/0verL1nk/rental-search/internal/provider"
	"github.com/0verL1nk/rental-search/internal/repository"
)

// DefaultSchedule re-evaluates every saved search once an hour
const DefaultSchedule = "@hourly"

// RunState is the phase of a saved search evaluation
type RunState string

const (
	RunIdle       RunState = "idle"
	RunEvaluating RunState = "evaluating"
	RunDiffing    RunState = "diffing"
	RunNotifying  RunState = "notifying"
)

// runHandle tracks an in-flight run so it can be cancelled
type runHandle struct {
	cancel context.CancelFunc
	state  RunState
}

// searchLock serializes runs of one saved search
type searchLock struct {
	ch   chan struct{}
	refs int
}

// SearchScheduler periodically re-evaluates saved searches, diffs the matches
// against the stored snapshot and notifies owners about new listings.
//
// Runs of the same saved search never overlap; different saved searches are
// evaluated concurrently.
type SearchScheduler struct {
	store       repository.SavedSearchStore
	catalog     provider.CatalogProvider
	matcher     *ListingMatcher
	notifier    provider.Notifier
	concurrency int
	logger      arbor.ILogger
	now         func() time.Time

	mu    sync.Mutex
	locks map[string]*searchLock
	runs  map[string]*runHandle

	cron       *cron.Cron
	tickCtx    context.Context
	tickCancel context.CancelFunc
}

// NewSearchScheduler creates a scheduler. notifier may be nil, in which case
// runs compute and persist snapshots without sending anything.
func NewSearchScheduler(
	store repository.SavedSearchStore,
	catalog provider.CatalogProvider,
	matcher *ListingMatcher,
	notifier provider.Notifier,
	concurrency int,
	logger arbor.ILogger,
) *SearchScheduler {
	if concurrency <= 0 {
		concurrency = 4
	}
	return &SearchScheduler{
		store:       store,
		catalog:     catalog,
		matcher:     matcher,
		notifier:    notifier,
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
		locks:       make(map[string]*searchLock),
		runs:        make(map[string]*runHandle),
	}
}

// Start registers the periodic run on a cron schedule
func (s *SearchScheduler) Start(schedule string) error {
	if schedule == "" {
		schedule = DefaultSchedule
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("scheduler already running")
	}

	c := cron.New()
	if _, err := c.AddFunc(schedule, s.tick); err != nil {
		return fmt.Errorf("failed to add cron job: %w", err)
	}

	s.tickCtx, s.tickCancel = context.WithCancel(context.Background())
	s.cron = c
	c.Start()

	s.logger.Info().Str("schedule", schedule).Msg("Saved search scheduler started")
	return nil
}

// Stop cancels in-flight ticks and waits for them to return
func (s *SearchScheduler) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.tickCancel
	s.cron = nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	s.logger.Info().Msg("Saved search scheduler stopped")
}

func (s *SearchScheduler) tick() {
	s.mu.Lock()
	ctx := s.tickCtx
	s.mu.Unlock()

	start := time.Now()
	s.logger.Info().Msg("Starting scheduled saved search evaluation")

	results, err := s.RunAll(ctx)
	if err != nil {
		s.logger.Error().Err(err).Msg("Scheduled evaluation failed")
		return
	}

	notified := 0
	for _, r := range results {
		if r.Notified {
			notified++
		}
	}
	s.logger.Info().
		Int("searches", len(results)).
		Int("notified", notified).
		Dur("duration", time.Since(start)).
		Msg("Scheduled evaluation completed")
}

// RunAll evaluates every saved search against one catalog listing. A failing
// search is logged and skipped; only a catalog or store failure is returned.
func (s *SearchScheduler) RunAll(ctx context.Context) ([]model.RunResult, error) {
	searches, err := s.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	if len(searches) == 0 {
		return []model.RunResult{}, nil
	}

	listings, err := s.listCatalog(ctx)
	if err != nil {
		return nil, err
	}

	results := make([]*model.RunResult, len(searches))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i := range searches {
		id := searches[i].ID
		g.Go(func() error {
			res, err := s.runWith(ctx, id, listings)
			if err != nil {
				s.logger.Warn().Err(err).Str("saved_search_id", id).Msg("Saved search evaluation failed")
				return nil
			}
			results[i] = res
			return nil
		})
	}
	_ = g.Wait()

	out := make([]model.RunResult, 0, len(results))
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, nil
}

// Run evaluates one saved search: evaluate, diff against the snapshot,
// notify, persist. A catalog failure aborts before anything is written.
// Deleting the saved search mid-run ends it with Cancelled set and no error.
func (s *SearchScheduler) Run(ctx context.Context, id string) (*model.RunResult, error) {
	if _, err := s.store.Get(ctx, "", id); err != nil {
		return nil, err
	}

	listings, err := s.listCatalog(ctx)
	if err != nil {
		return nil, err
	}
	return s.runWith(ctx, id, listings)
}

// Cancel aborts the in-flight run of a saved search, if any
func (s *SearchScheduler) Cancel(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.runs[id]; ok {
		h.cancel()
	}
}

// State reports the phase of a saved search's current run
func (s *SearchScheduler) State(id string) RunState {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.runs[id]; ok {
		return h.state
	}
	return RunIdle
}

func (s *SearchScheduler) listCatalog(ctx context.Context) ([]model.Listing, error) {
	listings, err := s.catalog.ListActiveListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrCatalogUnavailable, err)
	}
	return listings, nil
}

func (s *SearchScheduler) runWith(ctx context.Context, id string, listings []model.Listing) (*model.RunResult, error) {
	release, err := s.acquire(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	defer release()

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.track(id, cancel)
	defer s.untrack(id)

	cancelled := &model.RunResult{SavedSearchID: id, NewIDs: []model.ListingID{}, Cancelled: true}

	saved, err := s.store.Get(runCtx, "", id)
	if err != nil {
		if errors.Is(err, model.ErrSavedSearchNotFound) {
			s.logger.Info().Str("saved_search_id", id).Msg("Saved search deleted before run")
			return cancelled, nil
		}
		return nil, err
	}

	s.setState(id, RunEvaluating)
	results, err := s.matcher.EvaluateBatch(runCtx, saved.Criteria, listings)
	if err != nil {
		if runCtx.Err() != nil {
			s.logger.Info().Str("saved_search_id", id).Msg("Saved search run cancelled during evaluation")
			return cancelled, nil
		}
		return nil, err
	}

	s.setState(id, RunDiffing)
	current := model.UniqueIDs(model.MatchedIDs(results))
	newIDs := model.NewListingIDs(current, saved.LastResultIDs)

	// the record may have been deleted while we were evaluating
	if runCtx.Err() != nil {
		return cancelled, nil
	}
	if _, err := s.store.Get(runCtx, "", id); err != nil {
		if errors.Is(err, model.ErrSavedSearchNotFound) || runCtx.Err() != nil {
			s.logger.Info().Str("saved_search_id", id).Msg("Saved search deleted during run")
			return cancelled, nil
		}
		return nil, err
	}

	s.setState(id, RunNotifying)
	res := &model.RunResult{
		SavedSearchID: id,
		NewCount:      len(newIDs),
		NewIDs:        newIDs,
	}
	if len(newIDs) > 0 && saved.NotifyByEmail && s.notifier != nil {
		event := model.NotificationEvent{
			SavedSearchID: id,
			OwnerID:       saved.OwnerID,
			NewIDs:        newIDs,
			Count:         len(newIDs),
		}
		if err := s.notifier.Send(runCtx, event); err != nil {
			s.logger.Warn().Err(err).Str("saved_search_id", id).Int("new", len(newIDs)).Msg("Failed to send notification")
		} else {
			res.Notified = true
		}
	}

	// persisted even if the run is cancelled now, the event may already be out
	if err := s.store.UpdateSnapshot(context.WithoutCancel(runCtx), id, current, s.now()); err != nil {
		if errors.Is(err, model.ErrSavedSearchNotFound) {
			res.Cancelled = true
			return res, nil
		}
		return nil, fmt.Errorf("failed to persist snapshot: %w", err)
	}

	s.logger.Debug().
		Str("saved_search_id", id).
		Int("matched", len(current)).
		Int("new", len(newIDs)).
		Bool("notified", res.Notified).
		Msg("Saved search evaluated")

	return res, nil
}

// acquire blocks until no other run of id is in flight
func (s *SearchScheduler) acquire(ctx context.Context, id string) (func(), error) {
	s.mu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &searchLock{ch: make(chan struct{}, 1)}
		s.locks[id] = l
	}
	l.refs++
	s.mu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return func() {
			<-l.ch
			s.unref(id, l)
		}, nil
	case <-ctx.Done():
		s.unref(id, l)
		return nil, ctx.Err()
	}
}

func (s *SearchScheduler) unref(id string, l *searchLock) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
}

func (s *SearchScheduler) track(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs[id] = &runHandle{cancel: cancel, state: RunIdle}
}

func (s *SearchScheduler) untrack(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.runs, id)
}

func (s *SearchScheduler) setState(id string, state RunState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if h, ok := s.runs[id]; ok {
		h.state = state
	}
}
