package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"

	"github.com/0verL1nk/rental-search/internal/model"
)

// BadgerStore keeps saved searches in an embedded Badger database
type BadgerStore struct {
	store  *badgerhold.Store
	logger arbor.ILogger

	// badgerhold has no compare-and-swap, so read-modify-write is serialized
	mu sync.Mutex
}

// NewBadgerStore opens (or creates) the database at path
func NewBadgerStore(path string, logger arbor.ILogger) (*BadgerStore, error) {
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	logger.Debug().Str("path", path).Msg("Opening Badger database connection")

	options := badgerhold.DefaultOptions
	options.Dir = path
	options.ValueDir = path
	options.Logger = nil // Disable default badger logger to use arbor
	// gob drops zero values behind pointers, which would turn furnished=false into "any"
	options.Encoder = json.Marshal
	options.Decoder = json.Unmarshal

	store, err := badgerhold.Open(options)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger database: %w", err)
	}

	return &BadgerStore{store: store, logger: logger}, nil
}

// Close closes the database
func (b *BadgerStore) Close() error {
	if b.store != nil {
		return b.store.Close()
	}
	return nil
}

func (b *BadgerStore) Create(ctx context.Context, s *model.SavedSearch) error {
	if s.ID == "" {
		return fmt.Errorf("saved search ID is required")
	}
	if err := b.store.Insert(s.ID, s); err != nil {
		return fmt.Errorf("failed to create saved search: %w", err)
	}
	return nil
}

func (b *BadgerStore) Get(ctx context.Context, ownerID, id string) (*model.SavedSearch, error) {
	s, err := b.get(id)
	if err != nil {
		return nil, err
	}
	if !ownedBy(s, ownerID) {
		return nil, model.ErrSavedSearchNotFound
	}
	return s, nil
}

func (b *BadgerStore) get(id string) (*model.SavedSearch, error) {
	var s model.SavedSearch
	if err := b.store.Get(id, &s); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, model.ErrSavedSearchNotFound
		}
		return nil, fmt.Errorf("failed to get saved search: %w", err)
	}
	return &s, nil
}

func (b *BadgerStore) List(ctx context.Context, ownerID string) ([]model.SavedSearch, error) {
	var out []model.SavedSearch
	if err := b.store.Find(&out, badgerhold.Where("OwnerID").Eq(ownerID).Index("OwnerID").SortBy("CreatedAt", "ID")); err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	return out, nil
}

func (b *BadgerStore) ListAll(ctx context.Context) ([]model.SavedSearch, error) {
	var out []model.SavedSearch
	if err := b.store.Find(&out, badgerhold.Where("ID").Ne("").SortBy("CreatedAt", "ID")); err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	return out, nil
}

func (b *BadgerStore) Rename(ctx context.Context, ownerID, id, name string) error {
	return b.modify(ownerID, id, func(s *model.SavedSearch) {
		s.Name = name
		s.UpdatedAt = time.Now().UTC()
	})
}

func (b *BadgerStore) UpdateCriteria(ctx context.Context, ownerID, id string, c model.Criteria) error {
	return b.modify(ownerID, id, func(s *model.SavedSearch) {
		s.Criteria = c
		s.UpdatedAt = time.Now().UTC()
	})
}

func (b *BadgerStore) UpdateSnapshot(ctx context.Context, id string, ids []model.ListingID, at time.Time) error {
	return b.modify("", id, func(s *model.SavedSearch) {
		s.LastResultIDs = append([]model.ListingID{}, ids...)
		evaluated := at.UTC()
		s.LastEvaluatedAt = &evaluated
	})
}

func (b *BadgerStore) Delete(ctx context.Context, ownerID, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.Get(ctx, ownerID, id); err != nil {
		return err
	}
	if err := b.store.Delete(id, &model.SavedSearch{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return model.ErrSavedSearchNotFound
		}
		return fmt.Errorf("failed to delete saved search: %w", err)
	}
	return nil
}

func (b *BadgerStore) modify(ownerID, id string, fn func(*model.SavedSearch)) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	s, err := b.get(id)
	if err != nil {
		return err
	}
	if !ownedBy(s, ownerID) {
		return model.ErrSavedSearchNotFound
	}

	fn(s)
	if err := b.store.Update(id, s); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return model.ErrSavedSearchNotFound
		}
		return fmt.Errorf("failed to update saved search: %w", err)
	}
	return nil
}
