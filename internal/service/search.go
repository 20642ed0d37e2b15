package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/ternarybob/arbor"

	"github.com/0verL1nk/rental-search/internal/model"
	"github.com/0verL1nk/rental-search/internal/provider"
	"github.com/0verL1nk/rental-search/internal/repository"
)

// DefaultPageSize is used when a search request does not set top_k
const DefaultPageSize = 20

// SearchService handles search business logic
type SearchService struct {
	catalog   provider.CatalogProvider
	store     repository.SavedSearchStore
	matcher   *ListingMatcher
	ranker    *Ranker
	scheduler *SearchScheduler
	logger    arbor.ILogger
	now       func() time.Time
}

// NewSearchService creates a new search service
func NewSearchService(
	catalog provider.CatalogProvider,
	store repository.SavedSearchStore,
	matcher *ListingMatcher,
	ranker *Ranker,
	scheduler *SearchScheduler,
	logger arbor.ILogger,
) *SearchService {
	return &SearchService{
		catalog:   catalog,
		store:     store,
		matcher:   matcher,
		ranker:    ranker,
		scheduler: scheduler,
		logger:    logger,
		now:       time.Now,
	}
}

// SearchEventCallback is called for streaming search events
type SearchEventCallback func(event string, data any) error

// Match evaluates criteria against the whole active catalog and returns one
// result per listing, in catalog order.
func (s *SearchService) Match(ctx context.Context, c model.Criteria) ([]model.MatchResult, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}

	listings, err := s.catalog.ListActiveListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrCatalogUnavailable, err)
	}

	return s.matcher.EvaluateBatch(ctx, c, listings)
}

// Search runs a live search and returns a page of matches, best first
func (s *SearchService) Search(ctx context.Context, req *model.SearchRequest) (*model.SearchResponse, error) {
	startTime := time.Now()

	results, err := s.Match(ctx, req.Criteria)
	if err != nil {
		return nil, err
	}

	resp := s.buildResponse(results, req.Options)
	resp.Took = time.Since(startTime).Milliseconds()
	return resp, nil
}

// SearchStream performs a search, reporting progress through callback
func (s *SearchService) SearchStream(ctx context.Context, req *model.SearchRequest, callback SearchEventCallback) (*model.SearchResponse, error) {
	startTime := time.Now()

	if err := req.Criteria.Validate(); err != nil {
		return nil, err
	}

	listings, err := s.catalog.ListActiveListings(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", model.ErrCatalogUnavailable, err)
	}

	// Send evaluating event
	if err := callback("evaluating", map[string]any{
		"status":   "Evaluating listings...",
		"listings": len(listings),
	}); err != nil {
		return nil, err
	}

	results, err := s.matcher.EvaluateBatch(ctx, req.Criteria, listings)
	if err != nil {
		return nil, err
	}

	resp := s.buildResponse(results, req.Options)
	resp.Took = time.Since(startTime).Milliseconds()

	if err := callback("results", resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// buildResponse filters, orders and paginates evaluation results
func (s *SearchService) buildResponse(results []model.MatchResult, options *model.SearchOptions) *model.SearchResponse {
	if options == nil {
		options = &model.SearchOptions{TopK: DefaultPageSize}
	}
	pageSize := options.TopK
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	offset := options.Offset
	if offset < 0 {
		offset = 0
	}

	var matched, excluded []model.MatchResult
	for _, r := range results {
		if r.Matched {
			matched = append(matched, r)
		} else if options.IncludeExcluded {
			excluded = append(excluded, r)
		}
	}
	if s.ranker != nil {
		s.ranker.Sort(matched)
	}
	all := append(matched, excluded...)

	total := len(all)
	end := offset + pageSize
	if offset > total {
		offset = total
	}
	if end > total {
		end = total
	}

	page := make([]model.MatchResult, end-offset)
	copy(page, all[offset:end])

	return &model.SearchResponse{
		Results:    page,
		Total:      total,
		Page:       offset/pageSize + 1,
		PageSize:   pageSize,
		TotalPages: (total + pageSize - 1) / pageSize,
		HasMore:    end < total,
	}
}

// SaveSearch persists criteria under a name with an empty snapshot
func (s *SearchService) SaveSearch(ctx context.Context, ownerID string, req *model.SaveSearchRequest) (string, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return "", &model.InvalidCriteriaError{Fields: []model.FieldError{{Field: "name", Message: "is required"}}}
	}
	if err := req.Criteria.Validate(); err != nil {
		return "", err
	}

	now := s.now().UTC()
	saved := &model.SavedSearch{
		ID:            uuid.NewString(),
		OwnerID:       ownerID,
		Name:          name,
		Criteria:      req.Criteria.Normalize(),
		NotifyByEmail: req.NotifyByEmail,
		CreatedAt:     now,
		UpdatedAt:     now,
		LastResultIDs: []model.ListingID{},
	}
	if err := s.store.Create(ctx, saved); err != nil {
		return "", err
	}

	s.logger.Info().Str("saved_search_id", saved.ID).Str("owner_id", ownerID).Msg("Saved search created")
	return saved.ID, nil
}

// GetSavedSearch returns one of the owner's saved searches
func (s *SearchService) GetSavedSearch(ctx context.Context, ownerID, id string) (*model.SavedSearch, error) {
	return s.store.Get(ctx, ownerID, id)
}

// ListSavedSearches returns the owner's saved searches, oldest first
func (s *SearchService) ListSavedSearches(ctx context.Context, ownerID string) ([]model.SavedSearch, error) {
	return s.store.List(ctx, ownerID)
}

// RenameSavedSearch changes the display name of a saved search
func (s *SearchService) RenameSavedSearch(ctx context.Context, ownerID, id, name string) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return &model.InvalidCriteriaError{Fields: []model.FieldError{{Field: "name", Message: "is required"}}}
	}
	return s.store.Rename(ctx, ownerID, id, name)
}

// UpdateSavedSearchCriteria replaces the criteria. The snapshot is kept, so
// the next run only reports listings not already matched before the edit.
func (s *SearchService) UpdateSavedSearchCriteria(ctx context.Context, ownerID, id string, c model.Criteria) error {
	if err := c.Validate(); err != nil {
		return err
	}
	return s.store.UpdateCriteria(ctx, ownerID, id, c.Normalize())
}

// DeleteSavedSearch removes a saved search and cancels its in-flight run
func (s *SearchService) DeleteSavedSearch(ctx context.Context, ownerID, id string) error {
	if err := s.store.Delete(ctx, ownerID, id); err != nil {
		return err
	}
	if s.scheduler != nil {
		s.scheduler.Cancel(id)
	}
	s.logger.Info().Str("saved_search_id", id).Msg("Saved search deleted")
	return nil
}

// RunScheduledEvaluation evaluates a saved search now. ownerID scopes the
// lookup; an empty ownerID is an internal call.
func (s *SearchService) RunScheduledEvaluation(ctx context.Context, ownerID, id string) (*model.RunResult, error) {
	if _, err := s.store.Get(ctx, ownerID, id); err != nil {
		return nil, err
	}
	if s.scheduler == nil {
		return nil, fmt.Errorf("scheduler not configured")
	}
	return s.scheduler.Run(ctx, id)
}
