package model

// SearchRequest represents a live search request
type SearchRequest struct {
	Criteria Criteria       `json:"criteria"`
	Options  *SearchOptions `json:"options,omitempty"`
}

// SearchOptions represents search options
type SearchOptions struct {
	TopK            int  `json:"top_k"`
	Offset          int  `json:"offset"`
	IncludeExcluded bool `json:"include_excluded"` // Return non-matching results with their failed constraints
}

// SearchResponse represents a search result response
type SearchResponse struct {
	Results    []MatchResult `json:"results"`
	Total      int           `json:"total"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalPages int           `json:"total_pages"`
	HasMore    bool          `json:"has_more"`
	Took       int64         `json:"took_ms"` // Response time in milliseconds
}

// SaveSearchRequest represents a "save this search" action
type SaveSearchRequest struct {
	Name          string   `json:"name" binding:"required"`
	Criteria      Criteria `json:"criteria"`
	NotifyByEmail bool     `json:"notify_by_email"`
}

// SaveSearchResponse returns the id of a newly saved search
type SaveSearchResponse struct {
	ID string `json:"id"`
}

// RenameSavedSearchRequest renames a saved search
type RenameSavedSearchRequest struct {
	Name string `json:"name" binding:"required"`
}

// UpdateCriteriaRequest replaces the criteria of a saved search
type UpdateCriteriaRequest struct {
	Criteria Criteria `json:"criteria"`
}

// RunResult is the outcome of one scheduled evaluation of a saved search
type RunResult struct {
	SavedSearchID string      `json:"saved_search_id"`
	NewCount      int         `json:"new_count"`
	NewIDs        []ListingID `json:"new_ids"`
	Notified      bool        `json:"notified"`
	Cancelled     bool        `json:"cancelled,omitempty"` // Saved search was deleted mid-run
}
