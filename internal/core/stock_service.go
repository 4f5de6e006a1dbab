package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// StockService owns stock records and performs validated, atomic quantity
// transfers between locations. A transfer either fully commits — both stock
// records plus both capacity ledger entries — or leaves no trace.
type StockService interface {
	// Standalone queries.
	GetStockLevels(ctx context.Context, companyID int) ([]StockLevel, error)
	GetMovements(ctx context.Context, companyID int, itemID *int) ([]StockMovement, error)
	// AvailableQuantity sums AVAILABLE stock of the item across locations of
	// the given category.
	AvailableQuantity(ctx context.Context, companyID, itemID int, category LocationCategory) (decimal.Decimal, error)
	// SuggestPickingLocations lists storage locations holding available stock
	// of the item, oldest stock first (FIFO).
	SuggestPickingLocations(ctx context.Context, companyID, itemID int) ([]PickSuggestion, error)

	// Transfer runs one movement in its own transaction.
	Transfer(ctx context.Context, companyID int, req TransferRequest) error

	// TX-scoped operations, used by the document services to keep stock
	// mutations atomic with document state transitions.
	TransferTx(ctx context.Context, tx pgx.Tx, companyID int, req TransferRequest) error
	RequireAvailableTx(ctx context.Context, tx pgx.Tx, companyID, itemID int, category LocationCategory, required decimal.Decimal) error
}

type stockService struct {
	pool *pgxpool.Pool
}

func NewStockService(pool *pgxpool.Pool) StockService {
	return &stockService{pool: pool}
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *stockService) GetStockLevels(ctx context.Context, companyID int) ([]StockLevel, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT i.code, i.name, l.code, l.category, sr.quantity, sr.status, sr.last_cost_price
		FROM stock_records sr
		JOIN items i     ON i.id = sr.item_id
		JOIN locations l ON l.id = sr.location_id
		WHERE sr.company_id = $1
		ORDER BY i.code, l.code
	`, companyID)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock levels: %w", err)
	}
	defer rows.Close()

	var levels []StockLevel
	for rows.Next() {
		var sl StockLevel
		if err := rows.Scan(
			&sl.ItemCode, &sl.ItemName, &sl.LocationCode, &sl.Category,
			&sl.Quantity, &sl.Status, &sl.LastCostPrice,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stock level: %w", err)
		}
		levels = append(levels, sl)
	}
	return levels, nil
}

func (s *stockService) GetMovements(ctx context.Context, companyID int, itemID *int) ([]StockMovement, error) {
	query := `
		SELECT id, company_id, movement_type, item_id, source_location_id, destination_location_id,
		       quantity, unit_cost, reference, movement_key, created_at
		FROM stock_movements
		WHERE company_id = $1
	`
	args := []any{companyID}
	if itemID != nil {
		query += " AND item_id = $2"
		args = append(args, *itemID)
	}
	query += " ORDER BY id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query stock movements: %w", err)
	}
	defer rows.Close()

	var movements []StockMovement
	for rows.Next() {
		var m StockMovement
		if err := rows.Scan(
			&m.ID, &m.CompanyID, &m.MovementType, &m.ItemID, &m.SourceLocationID, &m.DestinationLocationID,
			&m.Quantity, &m.UnitCost, &m.Reference, &m.MovementKey, &m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan stock movement: %w", err)
		}
		movements = append(movements, m)
	}
	return movements, nil
}

const availableQuantityQuery = `
	SELECT COALESCE(SUM(sr.quantity), 0)
	FROM stock_records sr
	JOIN locations l ON l.id = sr.location_id
	WHERE sr.company_id = $1
	  AND sr.item_id = $2
	  AND sr.status = 'AVAILABLE'
	  AND sr.quantity > 0
	  AND l.category = $3
	  AND l.is_active = true
`

func (s *stockService) AvailableQuantity(ctx context.Context, companyID, itemID int, category LocationCategory) (decimal.Decimal, error) {
	var available decimal.Decimal
	err := s.pool.QueryRow(ctx, availableQuantityQuery, companyID, itemID, string(category)).Scan(&available)
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to sum available stock for item %d: %w", itemID, err)
	}
	return available, nil
}

// RequireAvailableTx re-runs the availability sum inside the caller's
// transaction and fails with InsufficientStockError when the item cannot
// cover the required quantity in locations of the category.
func (s *stockService) RequireAvailableTx(ctx context.Context, tx pgx.Tx, companyID, itemID int, category LocationCategory, required decimal.Decimal) error {
	var available decimal.Decimal
	err := tx.QueryRow(ctx, availableQuantityQuery, companyID, itemID, string(category)).Scan(&available)
	if err != nil {
		return fmt.Errorf("failed to sum available stock for item %d: %w", itemID, err)
	}
	if available.LessThan(required) {
		return &InsufficientStockError{Available: available, Required: required}
	}
	return nil
}

func (s *stockService) SuggestPickingLocations(ctx context.Context, companyID, itemID int) ([]PickSuggestion, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT l.id, l.code, sr.quantity, sr.last_updated
		FROM stock_records sr
		JOIN locations l ON l.id = sr.location_id
		WHERE sr.company_id = $1
		  AND sr.item_id = $2
		  AND sr.status = 'AVAILABLE'
		  AND sr.quantity > 0
		  AND l.category = 'STORAGE'
		  AND l.is_active = true
		ORDER BY sr.last_updated ASC, l.id ASC
	`, companyID, itemID)
	if err != nil {
		return nil, fmt.Errorf("failed to query picking suggestions for item %d: %w", itemID, err)
	}
	defer rows.Close()

	var suggestions []PickSuggestion
	for rows.Next() {
		var p PickSuggestion
		if err := rows.Scan(&p.LocationID, &p.LocationCode, &p.Available, &p.LastUpdated); err != nil {
			return nil, fmt.Errorf("failed to scan picking suggestion: %w", err)
		}
		suggestions = append(suggestions, p)
	}
	return suggestions, nil
}

// ── Transfer operator ────────────────────────────────────────────────────────

func (s *stockService) Transfer(ctx context.Context, companyID int, req TransferRequest) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := s.TransferTx(ctx, tx, companyID, req); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transfer: %w", err)
	}
	return nil
}

// TransferTx moves req.Quantity of the item between locations inside the
// caller's transaction. All validation runs against rows re-read and locked
// here — never against values loaded before the transaction began — so a
// concurrent request can never feed this transfer stale state. Validation
// failures leave every row untouched.
func (s *stockService) TransferTx(ctx context.Context, tx pgx.Tx, companyID int, req TransferRequest) error {
	if !req.Quantity.IsPositive() {
		return &QuantityMismatchError{Requested: req.Quantity, Remaining: decimal.Zero}
	}
	if req.SourceLocationID == nil && req.DestinationLocationID == nil {
		return fmt.Errorf("transfer needs a source or a destination location")
	}
	if req.SourceLocationID != nil && req.DestinationLocationID != nil &&
		*req.SourceLocationID == *req.DestinationLocationID {
		return ErrSameLocationTransfer
	}

	var ids []int
	if req.SourceLocationID != nil {
		ids = append(ids, *req.SourceLocationID)
	}
	if req.DestinationLocationID != nil {
		ids = append(ids, *req.DestinationLocationID)
	}
	locked, err := lockLocationsTx(ctx, tx, companyID, ids...)
	if err != nil {
		return err
	}
	for _, loc := range locked {
		if err := requireActive(loc); err != nil {
			return err
		}
	}

	// Destination capacity is checked before any mutation so a failing
	// transfer cannot leave a half-applied source decrement.
	if req.DestinationLocationID != nil {
		dest := locked[*req.DestinationLocationID]
		if dest.CurrentCapacity.Add(req.Quantity).GreaterThan(dest.MaxCapacity) {
			return &CapacityExceededError{
				Available: dest.MaxCapacity.Sub(dest.CurrentCapacity),
				Required:  req.Quantity,
			}
		}
	}

	if req.SourceLocationID != nil {
		if err := s.debitSourceTx(ctx, tx, companyID, req, locked[*req.SourceLocationID]); err != nil {
			return err
		}
	}
	if req.DestinationLocationID != nil {
		if err := s.creditDestinationTx(ctx, tx, companyID, req, locked[*req.DestinationLocationID]); err != nil {
			return err
		}
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO stock_movements (company_id, movement_type, item_id, source_location_id,
		                             destination_location_id, quantity, unit_cost, reference, movement_key)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, companyID, string(req.MovementType), req.ItemID, req.SourceLocationID, req.DestinationLocationID,
		req.Quantity, req.UnitCost, req.Reference, uuid.NewString(),
	)
	if err != nil {
		return fmt.Errorf("failed to record stock movement: %w", err)
	}
	return nil
}

// debitSourceTx locks the source stock record, validates it can cover the
// quantity, decrements it (EMPTY at zero) and books the outgoing capacity.
func (s *stockService) debitSourceTx(ctx context.Context, tx pgx.Tx, companyID int, req TransferRequest, src *lockedLocation) error {
	var recordID int
	var quantity decimal.Decimal
	var status StockStatus
	err := tx.QueryRow(ctx, `
		SELECT id, quantity, status
		FROM stock_records
		WHERE company_id = $1 AND item_id = $2 AND location_id = $3
		FOR UPDATE
	`, companyID, req.ItemID, src.ID).Scan(&recordID, &quantity, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &InsufficientStockError{Available: decimal.Zero, Required: req.Quantity}
		}
		return fmt.Errorf("failed to lock source stock record: %w", err)
	}

	// Non-available stock (damaged, blocked, …) contributes nothing.
	if status != StockAvailable {
		return &InsufficientStockError{Available: decimal.Zero, Required: req.Quantity}
	}
	if quantity.LessThan(req.Quantity) {
		return &InsufficientStockError{Available: quantity, Required: req.Quantity}
	}

	remaining := quantity.Sub(req.Quantity)
	newStatus := StockAvailable
	if remaining.IsZero() {
		newStatus = StockEmpty
	}
	_, err = tx.Exec(ctx, `
		UPDATE stock_records
		SET quantity = $1, status = $2, last_updated = NOW()
		WHERE id = $3
	`, remaining, string(newStatus), recordID)
	if err != nil {
		return fmt.Errorf("failed to decrement source stock record: %w", err)
	}

	return reserveCapacityTx(ctx, tx, src, req.Quantity.Neg())
}

// creditDestinationTx upserts the destination stock record and books the
// incoming capacity. An existing AVAILABLE record keeps its cost price
// (carry-forward); a fresh or EMPTY record takes the incoming cost and
// source reference together.
func (s *stockService) creditDestinationTx(ctx context.Context, tx pgx.Tx, companyID int, req TransferRequest, dest *lockedLocation) error {
	// Insert-then-lock: the ON CONFLICT no-op ensures the row exists, the
	// FOR UPDATE read returns its authoritative state.
	var recordID int
	var quantity decimal.Decimal
	var status StockStatus
	_, err := tx.Exec(ctx, `
		INSERT INTO stock_records (company_id, item_id, location_id, quantity, status, last_cost_price, source_reference)
		VALUES ($1, $2, $3, 0, 'EMPTY', $4, $5)
		ON CONFLICT (company_id, item_id, location_id) DO NOTHING
	`, companyID, req.ItemID, dest.ID, req.UnitCost, req.Reference)
	if err != nil {
		return fmt.Errorf("failed to upsert destination stock record: %w", err)
	}
	err = tx.QueryRow(ctx, `
		SELECT id, quantity, status
		FROM stock_records
		WHERE company_id = $1 AND item_id = $2 AND location_id = $3
		FOR UPDATE
	`, companyID, req.ItemID, dest.ID).Scan(&recordID, &quantity, &status)
	if err != nil {
		return fmt.Errorf("failed to lock destination stock record: %w", err)
	}

	switch status {
	case StockAvailable:
		// Merge: add quantity, carry the existing cost forward.
		_, err = tx.Exec(ctx, `
			UPDATE stock_records
			SET quantity = quantity + $1, last_updated = NOW()
			WHERE id = $2
		`, req.Quantity, recordID)
	case StockEmpty:
		// Refill: cost and source reference are rewritten together so the
		// record cannot resurrect stale values from before the stock-out.
		_, err = tx.Exec(ctx, `
			UPDATE stock_records
			SET quantity = quantity + $1, status = 'AVAILABLE', last_cost_price = $2,
			    source_reference = $3, last_updated = NOW()
			WHERE id = $4
		`, req.Quantity, req.UnitCost, req.Reference, recordID)
	default:
		return fmt.Errorf("destination stock record at %s has status %s and cannot receive stock", dest.Code, status)
	}
	if err != nil {
		return fmt.Errorf("failed to credit destination stock record: %w", err)
	}

	return reserveCapacityTx(ctx, tx, dest, req.Quantity)
}
