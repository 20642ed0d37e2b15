package repository

import (
	"context"
	"time"

	"github.com/0verL1nk/rental-search/internal/model"
)

// SavedSearchStore persists saved searches.
//
// Methods taking an ownerID report a record owned by someone else as
// model.ErrSavedSearchNotFound. Get with an empty ownerID is an internal read
// that skips the owner check. Only the scheduler calls UpdateSnapshot.
type SavedSearchStore interface {
	Create(ctx context.Context, s *model.SavedSearch) error
	Get(ctx context.Context, ownerID, id string) (*model.SavedSearch, error)
	List(ctx context.Context, ownerID string) ([]model.SavedSearch, error)
	ListAll(ctx context.Context) ([]model.SavedSearch, error)
	Rename(ctx context.Context, ownerID, id, name string) error
	UpdateCriteria(ctx context.Context, ownerID, id string, c model.Criteria) error
	UpdateSnapshot(ctx context.Context, id string, ids []model.ListingID, at time.Time) error
	Delete(ctx context.Context, ownerID, id string) error
	Close() error
}

func ownedBy(s *model.SavedSearch, ownerID string) bool {
	return ownerID == "" || s.OwnerID == ownerID
}
