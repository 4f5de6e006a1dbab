package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PickingService manages pick lists. A picking stages the stock for one sales
// order: each processed line moves goods from a storage location into the
// order's holding location. Completing the last line marks the order PICKED.
type PickingService interface {
	// CreatePicking opens a pick list against a PENDING sales order and moves
	// the order to IN_PROGRESS.
	CreatePicking(ctx context.Context, companyID, soID int, lines []PickingLineInput) (*Picking, error)
	// AssignSource sets or replaces the storage location a line will pick from.
	AssignSource(ctx context.Context, companyID, pickingDetailID, sourceLocationID int) (*Picking, error)
	// ProcessPicking picks quantity on one line. sourceLocationID must equal
	// the source recorded on the line; a stale value fails the pick. When
	// every line reaches its required quantity the picking completes and the
	// sales order flips to PICKED.
	ProcessPicking(ctx context.Context, companyID, pickingDetailID int, quantity decimal.Decimal, sourceLocationID int) (*Picking, error)
	// CancelPicking cancels the pick list and its parent sales order together.
	// Stock already picked stays in the holding location.
	CancelPicking(ctx context.Context, companyID, pickingID int, reason string) (*Picking, error)

	GetPicking(ctx context.Context, companyID, pickingID int) (*Picking, error)
	GetPickings(ctx context.Context, companyID int, status *string) ([]Picking, error)
}

type pickingService struct {
	pool      *pgxpool.Pool
	stock     StockService
	numbering NumberingService
}

func NewPickingService(pool *pgxpool.Pool, stock StockService, numbering NumberingService) PickingService {
	return &pickingService{pool: pool, stock: stock, numbering: numbering}
}

func (s *pickingService) CreatePicking(ctx context.Context, companyID, soID int, lines []PickingLineInput) (*Picking, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("picking must have at least one line")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	soStatus, _, _, err := lockSOTx(ctx, tx, companyID, soID)
	if err != nil {
		return nil, err
	}
	if soStatus != SOPending {
		return nil, &InvalidTransitionError{DocType: "sales order", Current: string(soStatus), Requested: string(SOInProgress)}
	}

	// Each line must reference a line of this order and stay within its
	// ordered quantity.
	type resolvedLine struct {
		soDetailID int
		itemID     int
		required   decimal.Decimal
		sourceID   *int
	}
	var resolved []resolvedLine
	for i, input := range lines {
		if !input.QuantityRequired.IsPositive() {
			return nil, fmt.Errorf("line %d: required quantity must be positive, got %s", i+1, input.QuantityRequired)
		}
		var itemID int
		var ordered decimal.Decimal
		err := tx.QueryRow(ctx,
			"SELECT item_id, ordered_quantity FROM sales_order_details WHERE id = $1 AND sales_order_id = $2",
			input.SalesOrderDetailID, soID,
		).Scan(&itemID, &ordered)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("line %d: sales order line %d not found on order %d", i+1, input.SalesOrderDetailID, soID)
			}
			return nil, fmt.Errorf("line %d: failed to resolve sales order line: %w", i+1, err)
		}
		if input.QuantityRequired.GreaterThan(ordered) {
			return nil, &QuantityMismatchError{Requested: input.QuantityRequired, Remaining: ordered}
		}
		if input.SourceLocationID != nil {
			if err := s.requireStorageLocation(ctx, tx, companyID, *input.SourceLocationID); err != nil {
				return nil, fmt.Errorf("line %d: %w", i+1, err)
			}
		}
		resolved = append(resolved, resolvedLine{
			soDetailID: input.SalesOrderDetailID,
			itemID:     itemID,
			required:   input.QuantityRequired,
			sourceID:   input.SourceLocationID,
		})
	}

	number, err := s.numbering.NextDocumentNumberTx(ctx, tx, companyID, DocTypePicking)
	if err != nil {
		return nil, err
	}

	var pickingID int
	err = tx.QueryRow(ctx, `
		INSERT INTO pickings (company_id, number, sales_order_id, status)
		VALUES ($1, $2, $3, 'PENDING')
		RETURNING id
	`, companyID, number, soID).Scan(&pickingID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert picking: %w", err)
	}

	for i, rl := range resolved {
		_, err = tx.Exec(ctx, `
			INSERT INTO picking_details (picking_id, sales_order_detail_id, item_id, quantity_required, quantity_picked, source_location_id)
			VALUES ($1, $2, $3, $4, 0, $5)
		`, pickingID, rl.soDetailID, rl.itemID, rl.required, rl.sourceID)
		if err != nil {
			return nil, fmt.Errorf("failed to insert picking line %d: %w", i+1, err)
		}
	}

	if err := markSOInProgressTx(ctx, tx, soID, soStatus); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit picking creation: %w", err)
	}
	return s.GetPicking(ctx, companyID, pickingID)
}

func (s *pickingService) AssignSource(ctx context.Context, companyID, pickingDetailID, sourceLocationID int) (*Picking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var pickingID int
	var status PickingStatus
	err = tx.QueryRow(ctx, `
		SELECT p.id, p.status
		FROM picking_details pd
		JOIN pickings p ON p.id = pd.picking_id
		WHERE pd.id = $1 AND p.company_id = $2
		FOR UPDATE OF pd, p
	`, pickingDetailID, companyID).Scan(&pickingID, &status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("picking line %d not found", pickingDetailID)
		}
		return nil, fmt.Errorf("failed to lock picking line %d: %w", pickingDetailID, err)
	}
	if status != PickingPending && status != PickingInProgress {
		return nil, &InvalidTransitionError{DocType: "picking", Current: string(status), Requested: string(PickingInProgress)}
	}

	if err := s.requireStorageLocation(ctx, tx, companyID, sourceLocationID); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		"UPDATE picking_details SET source_location_id = $1 WHERE id = $2",
		sourceLocationID, pickingDetailID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to assign source to picking line %d: %w", pickingDetailID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit source assignment: %w", err)
	}
	return s.GetPicking(ctx, companyID, pickingID)
}

func (s *pickingService) ProcessPicking(ctx context.Context, companyID, pickingDetailID int, quantity decimal.Decimal, sourceLocationID int) (*Picking, error) {
	if !quantity.IsPositive() {
		return nil, &QuantityMismatchError{Requested: quantity, Remaining: decimal.Zero}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var pickingID, itemID, soID int
	var number string
	var status PickingStatus
	var required, picked decimal.Decimal
	var recordedSource *int
	err = tx.QueryRow(ctx, `
		SELECT p.id, p.number, p.status, p.sales_order_id, pd.item_id,
		       pd.quantity_required, pd.quantity_picked, pd.source_location_id
		FROM picking_details pd
		JOIN pickings p ON p.id = pd.picking_id
		WHERE pd.id = $1 AND p.company_id = $2
		FOR UPDATE OF pd, p
	`, pickingDetailID, companyID).Scan(
		&pickingID, &number, &status, &soID, &itemID, &required, &picked, &recordedSource,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("picking line %d not found", pickingDetailID)
		}
		return nil, fmt.Errorf("failed to lock picking line %d: %w", pickingDetailID, err)
	}

	if status != PickingPending && status != PickingInProgress {
		return nil, &InvalidTransitionError{DocType: "picking", Current: string(status), Requested: string(PickingInProgress)}
	}
	if recordedSource == nil {
		return nil, ErrMissingSourceLocation
	}
	// The caller names the source it intends to pick from; the line's recorded
	// source is authoritative. A mismatch means the assignment changed under
	// the caller, who must re-read the line before picking.
	if sourceLocationID != *recordedSource {
		return nil, &SourceLocationMismatchError{Requested: sourceLocationID, Recorded: *recordedSource}
	}
	remaining := required.Sub(picked)
	if quantity.GreaterThan(remaining) {
		return nil, &QuantityMismatchError{Requested: quantity, Remaining: remaining}
	}

	soStatus, holdingLocationID, _, err := lockSOTx(ctx, tx, companyID, soID)
	if err != nil {
		return nil, err
	}

	// The pick carries the source record's cost into the holding location. A
	// missing record reads as zero here and fails inside the transfer.
	var unitCost decimal.Decimal
	err = tx.QueryRow(ctx,
		"SELECT last_cost_price FROM stock_records WHERE company_id = $1 AND item_id = $2 AND location_id = $3",
		companyID, itemID, sourceLocationID,
	).Scan(&unitCost)
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("failed to read source stock cost: %w", err)
	}

	src, dst := sourceLocationID, holdingLocationID
	err = s.stock.TransferTx(ctx, tx, companyID, TransferRequest{
		ItemID:                itemID,
		SourceLocationID:      &src,
		DestinationLocationID: &dst,
		Quantity:              quantity,
		UnitCost:              unitCost,
		MovementType:          MovementPick,
		Reference:             number,
	})
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		"UPDATE picking_details SET quantity_picked = quantity_picked + $1 WHERE id = $2",
		quantity, pickingDetailID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update picking line %d: %w", pickingDetailID, err)
	}

	if status == PickingPending {
		if err := checkTransition("picking", pickingTransitions, string(status), string(PickingInProgress)); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, "UPDATE pickings SET status = 'IN_PROGRESS' WHERE id = $1", pickingID); err != nil {
			return nil, fmt.Errorf("failed to mark picking %d in progress: %w", pickingID, err)
		}
		status = PickingInProgress
	}

	var open int
	err = tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM picking_details WHERE picking_id = $1 AND quantity_picked < quantity_required",
		pickingID,
	).Scan(&open)
	if err != nil {
		return nil, fmt.Errorf("failed to count open picking lines: %w", err)
	}
	if open == 0 {
		if err := checkTransition("picking", pickingTransitions, string(status), string(PickingCompleted)); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, "UPDATE pickings SET status = 'COMPLETED' WHERE id = $1", pickingID); err != nil {
			return nil, fmt.Errorf("failed to mark picking %d completed: %w", pickingID, err)
		}
		if err := markSOPickedTx(ctx, tx, soID, soStatus); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit pick: %w", err)
	}
	return s.GetPicking(ctx, companyID, pickingID)
}

func (s *pickingService) CancelPicking(ctx context.Context, companyID, pickingID int, reason string) (*Picking, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var status PickingStatus
	var soID int
	err = tx.QueryRow(ctx,
		"SELECT status, sales_order_id FROM pickings WHERE company_id = $1 AND id = $2 FOR UPDATE",
		companyID, pickingID,
	).Scan(&status, &soID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("picking %d not found", pickingID)
		}
		return nil, fmt.Errorf("failed to fetch picking %d: %w", pickingID, err)
	}
	if err := checkTransition("picking", pickingTransitions, string(status), string(PickingCancelled)); err != nil {
		return nil, err
	}

	// Picking and order fall together. The order must still be cancellable;
	// an order past IN_PROGRESS cannot shed its picking anymore.
	soStatus, _, _, err := lockSOTx(ctx, tx, companyID, soID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition("sales order", soTransitions, string(soStatus), string(SOCancelled)); err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		"UPDATE pickings SET status = 'CANCELLED', cancelled_at = NOW(), cancel_reason = $1 WHERE id = $2",
		reason, pickingID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel picking %d: %w", pickingID, err)
	}
	_, err = tx.Exec(ctx,
		"UPDATE sales_orders SET status = 'CANCELLED', cancelled_at = NOW(), cancel_reason = $1 WHERE id = $2",
		reason, soID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel sales order %d: %w", soID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit picking cancellation: %w", err)
	}
	return s.GetPicking(ctx, companyID, pickingID)
}

// requireStorageLocation checks that the location exists, is active and is a
// storage location. Picks never source from holding areas.
func (s *pickingService) requireStorageLocation(ctx context.Context, tx pgx.Tx, companyID, locationID int) error {
	var category LocationCategory
	var isActive bool
	err := tx.QueryRow(ctx,
		"SELECT category, is_active FROM locations WHERE company_id = $1 AND id = $2",
		companyID, locationID,
	).Scan(&category, &isActive)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("location %d not found", locationID)
		}
		return fmt.Errorf("failed to fetch location %d: %w", locationID, err)
	}
	if !isActive {
		return &LocationInactiveError{LocationID: locationID}
	}
	if category != CategoryStorage {
		return &LocationCategoryMismatchError{Expected: CategoryStorage, Actual: category}
	}
	return nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *pickingService) GetPicking(ctx context.Context, companyID, pickingID int) (*Picking, error) {
	var p Picking
	var cancelReason *string
	err := s.pool.QueryRow(ctx, `
		SELECT p.id, p.company_id, p.number, p.sales_order_id, so.number, so.holding_location_id,
		       p.status, p.created_at, p.cancelled_at, p.cancel_reason
		FROM pickings p
		JOIN sales_orders so ON so.id = p.sales_order_id
		WHERE p.company_id = $1 AND p.id = $2
	`, companyID, pickingID).Scan(
		&p.ID, &p.CompanyID, &p.Number, &p.SalesOrderID, &p.SalesOrderNumber, &p.HoldingLocationID,
		&p.Status, &p.CreatedAt, &p.CancelledAt, &cancelReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("picking %d not found", pickingID)
		}
		return nil, fmt.Errorf("failed to fetch picking %d: %w", pickingID, err)
	}
	if cancelReason != nil {
		p.CancelReason = *cancelReason
	}

	rows, err := s.pool.Query(ctx, `
		SELECT pd.id, pd.picking_id, pd.sales_order_detail_id, pd.item_id, i.code,
		       pd.quantity_required, pd.quantity_picked, pd.source_location_id
		FROM picking_details pd
		JOIN items i ON i.id = pd.item_id
		WHERE pd.picking_id = $1
		ORDER BY pd.id
	`, pickingID)
	if err != nil {
		return nil, fmt.Errorf("failed to query picking lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d PickingDetail
		if err := rows.Scan(
			&d.ID, &d.PickingID, &d.SalesOrderDetailID, &d.ItemID, &d.ItemCode,
			&d.QuantityRequired, &d.QuantityPicked, &d.SourceLocationID,
		); err != nil {
			return nil, fmt.Errorf("failed to scan picking line: %w", err)
		}
		p.Details = append(p.Details, d)
	}
	return &p, nil
}

func (s *pickingService) GetPickings(ctx context.Context, companyID int, status *string) ([]Picking, error) {
	query := `
		SELECT p.id, p.company_id, p.number, p.sales_order_id, so.number, so.holding_location_id,
		       p.status, p.created_at, p.cancelled_at
		FROM pickings p
		JOIN sales_orders so ON so.id = p.sales_order_id
		WHERE p.company_id = $1
	`
	args := []any{companyID}
	if status != nil {
		query += " AND p.status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY p.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query pickings: %w", err)
	}
	defer rows.Close()

	var pickings []Picking
	for rows.Next() {
		var p Picking
		if err := rows.Scan(
			&p.ID, &p.CompanyID, &p.Number, &p.SalesOrderID, &p.SalesOrderNumber, &p.HoldingLocationID,
			&p.Status, &p.CreatedAt, &p.CancelledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan picking: %w", err)
		}
		pickings = append(pickings, p)
	}
	return pickings, nil
}
