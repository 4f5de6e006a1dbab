package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// LocationService manages location master data and owns the capacity ledger:
// per-location current capacity, kept equal to the sum of stock record
// quantities at the location and never outside [0, max].
type LocationService interface {
	CreateLocation(ctx context.Context, companyID int, code, name string, category LocationCategory, maxCapacity decimal.Decimal) (*Location, error)
	GetLocation(ctx context.Context, companyID, locationID int) (*Location, error)
	GetLocations(ctx context.Context, companyID int) ([]Location, error)
	SetLocationActive(ctx context.Context, companyID, locationID int, active bool) error
}

type locationService struct {
	pool *pgxpool.Pool
}

func NewLocationService(pool *pgxpool.Pool) LocationService {
	return &locationService{pool: pool}
}

func (s *locationService) CreateLocation(ctx context.Context, companyID int, code, name string, category LocationCategory, maxCapacity decimal.Decimal) (*Location, error) {
	if category != CategoryStorage && category != CategoryOther {
		return nil, fmt.Errorf("unknown location category %q", category)
	}
	if maxCapacity.IsNegative() {
		return nil, fmt.Errorf("max capacity cannot be negative, got %s", maxCapacity)
	}

	var loc Location
	err := s.pool.QueryRow(ctx, `
		INSERT INTO locations (company_id, code, name, category, max_capacity, current_capacity, is_full, is_active)
		VALUES ($1, $2, $3, $4, $5, 0, $5 <= 0, true)
		RETURNING id, company_id, code, name, category, max_capacity, current_capacity, is_full, is_active, created_at
	`, companyID, code, name, string(category), maxCapacity).Scan(
		&loc.ID, &loc.CompanyID, &loc.Code, &loc.Name, &loc.Category,
		&loc.MaxCapacity, &loc.CurrentCapacity, &loc.IsFull, &loc.IsActive, &loc.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create location: %w", err)
	}
	return &loc, nil
}

func (s *locationService) GetLocation(ctx context.Context, companyID, locationID int) (*Location, error) {
	var loc Location
	err := s.pool.QueryRow(ctx, `
		SELECT id, company_id, code, name, category, max_capacity, current_capacity, is_full, is_active, created_at
		FROM locations
		WHERE company_id = $1 AND id = $2
	`, companyID, locationID).Scan(
		&loc.ID, &loc.CompanyID, &loc.Code, &loc.Name, &loc.Category,
		&loc.MaxCapacity, &loc.CurrentCapacity, &loc.IsFull, &loc.IsActive, &loc.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("location %d not found", locationID)
		}
		return nil, fmt.Errorf("failed to fetch location %d: %w", locationID, err)
	}
	return &loc, nil
}

func (s *locationService) GetLocations(ctx context.Context, companyID int) ([]Location, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, company_id, code, name, category, max_capacity, current_capacity, is_full, is_active, created_at
		FROM locations
		WHERE company_id = $1
		ORDER BY code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query locations: %w", err)
	}
	defer rows.Close()

	var locations []Location
	for rows.Next() {
		var loc Location
		if err := rows.Scan(
			&loc.ID, &loc.CompanyID, &loc.Code, &loc.Name, &loc.Category,
			&loc.MaxCapacity, &loc.CurrentCapacity, &loc.IsFull, &loc.IsActive, &loc.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan location: %w", err)
		}
		locations = append(locations, loc)
	}
	return locations, nil
}

func (s *locationService) SetLocationActive(ctx context.Context, companyID, locationID int, active bool) error {
	tag, err := s.pool.Exec(ctx,
		"UPDATE locations SET is_active = $1 WHERE company_id = $2 AND id = $3",
		active, companyID, locationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update location %d: %w", locationID, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("location %d not found", locationID)
	}
	return nil
}

// ── Capacity ledger (tx-scoped) ──────────────────────────────────────────────

// lockedLocation carries the authoritative row values read under FOR UPDATE.
// Transfers act only on these, never on values loaded before the transaction
// began.
type lockedLocation struct {
	ID              int
	Code            string
	Category        LocationCategory
	MaxCapacity     decimal.Decimal
	CurrentCapacity decimal.Decimal
	IsActive        bool
}

// lockLocationsTx re-reads and row-locks the given locations inside tx, in
// ascending-ID order so that two transfers touching the same pair of
// locations in opposite directions serialize instead of deadlocking.
func lockLocationsTx(ctx context.Context, tx pgx.Tx, companyID int, ids ...int) (map[int]*lockedLocation, error) {
	sorted := append([]int(nil), ids...)
	sort.Ints(sorted)

	locked := make(map[int]*lockedLocation, len(sorted))
	for _, id := range sorted {
		if _, ok := locked[id]; ok {
			continue
		}
		var loc lockedLocation
		err := tx.QueryRow(ctx, `
			SELECT id, code, category, max_capacity, current_capacity, is_active
			FROM locations
			WHERE company_id = $1 AND id = $2
			FOR UPDATE
		`, companyID, id).Scan(
			&loc.ID, &loc.Code, &loc.Category, &loc.MaxCapacity, &loc.CurrentCapacity, &loc.IsActive,
		)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("location %d not found", id)
			}
			return nil, fmt.Errorf("failed to lock location %d: %w", id, err)
		}
		locked[id] = &loc
	}
	return locked, nil
}

// reserveCapacityTx applies a capacity delta to a location whose row is
// already locked in this transaction. Positive delta is incoming stock and
// fails with CapacityExceededError when it would push current past max;
// negative delta is outgoing stock and must never take current below zero
// (stock validation runs first, so hitting that is a storage-level fault).
// On success the in-memory locked row is updated alongside the database row.
func reserveCapacityTx(ctx context.Context, tx pgx.Tx, loc *lockedLocation, delta decimal.Decimal) error {
	next := loc.CurrentCapacity.Add(delta)
	if delta.IsPositive() && next.GreaterThan(loc.MaxCapacity) {
		return &CapacityExceededError{
			Available: loc.MaxCapacity.Sub(loc.CurrentCapacity),
			Required:  delta,
		}
	}
	if next.IsNegative() {
		return fmt.Errorf("capacity ledger underflow at location %s: %s%s", loc.Code, loc.CurrentCapacity, delta)
	}

	isFull := next.GreaterThanOrEqual(loc.MaxCapacity)
	_, err := tx.Exec(ctx,
		"UPDATE locations SET current_capacity = $1, is_full = $2 WHERE id = $3",
		next, isFull, loc.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update capacity for location %s: %w", loc.Code, err)
	}
	loc.CurrentCapacity = next
	return nil
}

// requireCategory fails with LocationCategoryMismatchError unless the locked
// location has the expected category.
func requireCategory(loc *lockedLocation, expected LocationCategory) error {
	if loc.Category != expected {
		return &LocationCategoryMismatchError{Expected: expected, Actual: loc.Category}
	}
	return nil
}

// requireActive fails with LocationInactiveError unless the locked location
// is active.
func requireActive(loc *lockedLocation) error {
	if !loc.IsActive {
		return &LocationInactiveError{LocationID: loc.ID, Code: loc.Code}
	}
	return nil
}
