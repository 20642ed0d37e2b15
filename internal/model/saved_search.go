package model

import (
	"sort"
	"time"
)

// SavedSearch is a user's named criteria plus the snapshot of the last evaluation
type SavedSearch struct {
	ID              string      `json:"id"`
	OwnerID         string      `json:"owner_id" badgerhold:"index"`
	Name            string      `json:"name"`
	Criteria        Criteria    `json:"criteria"`
	NotifyByEmail   bool        `json:"notify_by_email"`
	CreatedAt       time.Time   `json:"created_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	LastEvaluatedAt *time.Time  `json:"last_evaluated_at,omitempty"`
	LastResultIDs   []ListingID `json:"last_result_ids"`
}

// NotificationEvent announces listings that newly match a saved search
type NotificationEvent struct {
	SavedSearchID string      `json:"saved_search_id"`
	OwnerID       string      `json:"owner_id"`
	NewIDs        []ListingID `json:"new_ids"`
	Count         int         `json:"count"`
}

// NewListingIDs returns current − previous, sorted. Ids present only in
// previous are dropped without being reported.
func NewListingIDs(current, previous []ListingID) []ListingID {
	seen := make(map[ListingID]struct{}, len(previous))
	for _, id := range previous {
		seen[id] = struct{}{}
	}
	out := []ListingID{}
	for _, id := range UniqueIDs(current) {
		if _, ok := seen[id]; !ok {
			out = append(out, id)
		}
	}
	return out
}

// UniqueIDs dedupes and sorts listing ids
func UniqueIDs(ids []ListingID) []ListingID {
	seen := make(map[ListingID]struct{}, len(ids))
	out := make([]ListingID, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
