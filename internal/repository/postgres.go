package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/0verL1nk/rental-search/internal/model"
	"github.com/0verL1nk/rental-search/internal/utils"
)

// catalogPageSize is the keyset page size used when listing the catalog
const catalogPageSize = 500

const savedSearchSchema = `
CREATE TABLE IF NOT EXISTS saved_searches (
	id                TEXT PRIMARY KEY,
	owner_id          TEXT NOT NULL,
	name              TEXT NOT NULL,
	criteria          JSONB NOT NULL,
	notify_by_email   BOOLEAN NOT NULL DEFAULT false,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL,
	last_evaluated_at TIMESTAMPTZ,
	last_result_ids   TEXT[] NOT NULL DEFAULT '{}'
);
CREATE INDEX IF NOT EXISTS idx_saved_searches_owner ON saved_searches (owner_id);
`

// PostgresRepository handles database operations. It serves both the
// listing catalog and the saved search store.
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(dsn string, maxConn, maxIdleConn int) (*PostgresRepository, error) {
	db, err := sqlx.Connect("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	db.SetMaxOpenConns(maxConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(5 * time.Minute) // Shorter lifetime to avoid stale connections
	db.SetConnMaxIdleTime(2 * time.Minute) // Close idle connections sooner

	// Test connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{db: db}, nil
}

// NewPostgresRepositoryFromDB wraps an existing connection
func NewPostgresRepositoryFromDB(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Close closes the database connection
func (r *PostgresRepository) Close() error {
	return r.db.Close()
}

// EnsureSchema creates the saved search table if missing. The listing
// catalog is owned by the crawler and is never created here.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, savedSearchSchema); err != nil {
		return fmt.Errorf("failed to create saved search schema: %w", err)
	}
	return nil
}

// listingRow is a rental_listings row
type listingRow struct {
	ListingID     string          `db:"listing_id"`
	Latitude      sql.NullFloat64 `db:"latitude"`
	Longitude     sql.NullFloat64 `db:"longitude"`
	Price         float64         `db:"price"`
	Bedrooms      int             `db:"bedrooms"`
	Bathrooms     float64         `db:"bathrooms"`
	PropertyType  string          `db:"property_type"`
	Amenities     model.JSONArray `db:"amenities"`
	Parking       model.JSONArray `db:"parking"`
	Utilities     model.JSONArray `db:"utilities"`
	Accessibility model.JSONArray `db:"accessibility"`
	PetsAllowed   bool            `db:"pets_allowed"`
	PetTypes      model.JSONArray `db:"pet_types"`
	SmokingPolicy sql.NullString  `db:"smoking_policy"`
	Furnished     sql.NullBool    `db:"furnished"`
	IsAvailable   bool            `db:"is_available"`
	ListedDate    sql.NullTime    `db:"listed_date"`
}

func (row listingRow) toListing() model.Listing {
	l := model.Listing{
		ID:            model.ListingID(row.ListingID),
		Price:         row.Price,
		Bedrooms:      row.Bedrooms,
		Bathrooms:     row.Bathrooms,
		PropertyType:  model.PropertyType(utils.CanonicalTag(row.PropertyType)),
		Amenities:     utils.CanonicalTags(row.Amenities),
		Parking:       utils.CanonicalTags(row.Parking),
		Utilities:     utils.CanonicalTags(row.Utilities),
		Accessibility: utils.CanonicalTags(row.Accessibility),
		PetPolicy:     model.ListingPetPolicy{Allowed: row.PetsAllowed},
		Available:     row.IsAvailable,
	}

	if row.Latitude.Valid && row.Longitude.Valid {
		l.Coordinates = &model.Coordinates{Lat: row.Latitude.Float64, Lng: row.Longitude.Float64}
	}
	for _, t := range utils.CanonicalTags(row.PetTypes) {
		l.PetPolicy.Types = append(l.PetPolicy.Types, model.PetType(t))
	}
	if row.SmokingPolicy.Valid {
		l.SmokingPolicy = model.SmokingPolicy(utils.CanonicalTag(row.SmokingPolicy.String))
	}
	if row.Furnished.Valid {
		furnished := row.Furnished.Bool
		l.Furnished = &furnished
	}
	if row.ListedDate.Valid {
		listed := row.ListedDate.Time
		l.ListedAt = &listed
	}
	return l
}

// ListActiveListings returns every available listing, paging by listing_id
func (r *PostgresRepository) ListActiveListings(ctx context.Context) ([]model.Listing, error) {
	query := `
		SELECT
			listing_id, latitude, longitude, price, bedrooms, bathrooms,
			property_type, amenities, parking, utilities, accessibility,
			pets_allowed, pet_types, smoking_policy, furnished, is_available,
			listed_date
		FROM rental_listings
		WHERE is_available = true AND listing_id > $1
		ORDER BY listing_id
		LIMIT $2
	`

	var listings []model.Listing
	cursor := ""
	for {
		var rows []listingRow
		if err := r.db.SelectContext(ctx, &rows, query, cursor, catalogPageSize); err != nil {
			return nil, fmt.Errorf("failed to fetch listings: %w", err)
		}
		for _, row := range rows {
			listings = append(listings, row.toListing())
		}
		if len(rows) < catalogPageSize {
			return listings, nil
		}
		cursor = rows[len(rows)-1].ListingID
	}
}

// savedSearchRow is a saved_searches row
type savedSearchRow struct {
	ID              string         `db:"id"`
	OwnerID         string         `db:"owner_id"`
	Name            string         `db:"name"`
	Criteria        []byte         `db:"criteria"`
	NotifyByEmail   bool           `db:"notify_by_email"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
	LastEvaluatedAt sql.NullTime   `db:"last_evaluated_at"`
	LastResultIDs   pq.StringArray `db:"last_result_ids"`
}

func (row savedSearchRow) toSavedSearch() (*model.SavedSearch, error) {
	s := &model.SavedSearch{
		ID:            row.ID,
		OwnerID:       row.OwnerID,
		Name:          row.Name,
		NotifyByEmail: row.NotifyByEmail,
		CreatedAt:     row.CreatedAt,
		UpdatedAt:     row.UpdatedAt,
		LastResultIDs: make([]model.ListingID, 0, len(row.LastResultIDs)),
	}
	if err := json.Unmarshal(row.Criteria, &s.Criteria); err != nil {
		return nil, fmt.Errorf("failed to decode criteria of saved search %s: %w", row.ID, err)
	}
	if row.LastEvaluatedAt.Valid {
		at := row.LastEvaluatedAt.Time
		s.LastEvaluatedAt = &at
	}
	for _, id := range row.LastResultIDs {
		s.LastResultIDs = append(s.LastResultIDs, model.ListingID(id))
	}
	return s, nil
}

func listingIDStrings(ids []model.ListingID) pq.StringArray {
	out := make(pq.StringArray, len(ids))
	for i, id := range ids {
		out[i] = string(id)
	}
	return out
}

const savedSearchColumns = `id, owner_id, name, criteria, notify_by_email, created_at, updated_at, last_evaluated_at, last_result_ids`

func (r *PostgresRepository) Create(ctx context.Context, s *model.SavedSearch) error {
	criteria, err := json.Marshal(s.Criteria)
	if err != nil {
		return fmt.Errorf("failed to encode criteria: %w", err)
	}

	query := `
		INSERT INTO saved_searches (` + savedSearchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	var evaluated sql.NullTime
	if s.LastEvaluatedAt != nil {
		evaluated = sql.NullTime{Time: *s.LastEvaluatedAt, Valid: true}
	}
	_, err = r.db.ExecContext(ctx, query,
		s.ID, s.OwnerID, s.Name, criteria, s.NotifyByEmail,
		s.CreatedAt, s.UpdatedAt, evaluated, listingIDStrings(s.LastResultIDs),
	)
	if err != nil {
		return fmt.Errorf("failed to create saved search: %w", err)
	}
	return nil
}

func (r *PostgresRepository) Get(ctx context.Context, ownerID, id string) (*model.SavedSearch, error) {
	var row savedSearchRow
	query := `SELECT ` + savedSearchColumns + ` FROM saved_searches WHERE id = $1 AND ($2 = '' OR owner_id = $2)`
	if err := r.db.GetContext(ctx, &row, query, id, ownerID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, model.ErrSavedSearchNotFound
		}
		return nil, fmt.Errorf("failed to get saved search: %w", err)
	}
	return row.toSavedSearch()
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string) ([]model.SavedSearch, error) {
	query := `SELECT ` + savedSearchColumns + ` FROM saved_searches WHERE owner_id = $1 ORDER BY created_at, id`
	return r.selectSavedSearches(ctx, query, ownerID)
}

func (r *PostgresRepository) ListAll(ctx context.Context) ([]model.SavedSearch, error) {
	query := `SELECT ` + savedSearchColumns + ` FROM saved_searches ORDER BY created_at, id`
	return r.selectSavedSearches(ctx, query)
}

func (r *PostgresRepository) selectSavedSearches(ctx context.Context, query string, args ...interface{}) ([]model.SavedSearch, error) {
	var rows []savedSearchRow
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list saved searches: %w", err)
	}
	out := make([]model.SavedSearch, 0, len(rows))
	for _, row := range rows {
		s, err := row.toSavedSearch()
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, nil
}

func (r *PostgresRepository) Rename(ctx context.Context, ownerID, id, name string) error {
	query := `UPDATE saved_searches SET name = $3, updated_at = NOW() WHERE id = $1 AND owner_id = $2`
	return r.execOne(ctx, "rename saved search", query, id, ownerID, name)
}

func (r *PostgresRepository) UpdateCriteria(ctx context.Context, ownerID, id string, c model.Criteria) error {
	criteria, err := json.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to encode criteria: %w", err)
	}
	query := `UPDATE saved_searches SET criteria = $3, updated_at = NOW() WHERE id = $1 AND owner_id = $2`
	return r.execOne(ctx, "update criteria", query, id, ownerID, criteria)
}

func (r *PostgresRepository) UpdateSnapshot(ctx context.Context, id string, ids []model.ListingID, at time.Time) error {
	query := `UPDATE saved_searches SET last_result_ids = $2, last_evaluated_at = $3 WHERE id = $1`
	return r.execOne(ctx, "update snapshot", query, id, listingIDStrings(ids), at)
}

func (r *PostgresRepository) Delete(ctx context.Context, ownerID, id string) error {
	query := `DELETE FROM saved_searches WHERE id = $1 AND owner_id = $2`
	return r.execOne(ctx, "delete saved search", query, id, ownerID)
}

// execOne runs a statement that must touch exactly one saved search
func (r *PostgresRepository) execOne(ctx context.Context, action, query string, args ...interface{}) error {
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to %s: %w", action, err)
	}
	if n == 0 {
		return model.ErrSavedSearchNotFound
	}
	return nil
}
