package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// SalesOrderService manages the shipping flow: PENDING → IN_PROGRESS (picking
// started) → PICKED (all lines staged in holding) → SHIPPED (holding drained).
type SalesOrderService interface {
	// CreateSalesOrder validates every line against current storage
	// availability inside the creation transaction; an order that cannot be
	// covered is rejected outright.
	CreateSalesOrder(ctx context.Context, companyID, customerID, holdingLocationID int, lines []SOLineInput, notes string) (*SalesOrder, error)
	// Ship drains the holding location for every line, all-or-nothing, and
	// transitions PICKED → SHIPPED.
	Ship(ctx context.Context, companyID, soID int) (*SalesOrder, error)
	CancelSalesOrder(ctx context.Context, companyID, soID int, reason string) (*SalesOrder, error)

	GetSalesOrder(ctx context.Context, companyID, soID int) (*SalesOrder, error)
	GetSalesOrders(ctx context.Context, companyID int, status *string) ([]SalesOrder, error)
}

type salesOrderService struct {
	pool      *pgxpool.Pool
	stock     StockService
	numbering NumberingService
}

func NewSalesOrderService(pool *pgxpool.Pool, stock StockService, numbering NumberingService) SalesOrderService {
	return &salesOrderService{pool: pool, stock: stock, numbering: numbering}
}

func (s *salesOrderService) CreateSalesOrder(ctx context.Context, companyID, customerID, holdingLocationID int, lines []SOLineInput, notes string) (*SalesOrder, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("sales order must have at least one line")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var customerExists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM customers WHERE id = $1 AND company_id = $2 AND is_active = true)",
		customerID, companyID,
	).Scan(&customerExists); err != nil {
		return nil, fmt.Errorf("failed to validate customer: %w", err)
	}
	if !customerExists {
		return nil, fmt.Errorf("customer %d not found for company %d", customerID, companyID)
	}

	locked, err := lockLocationsTx(ctx, tx, companyID, holdingLocationID)
	if err != nil {
		return nil, err
	}
	holding := locked[holdingLocationID]
	if err := requireActive(holding); err != nil {
		return nil, err
	}
	if err := requireCategory(holding, CategoryOther); err != nil {
		return nil, err
	}

	type resolvedLine struct {
		itemID    int
		quantity  decimal.Decimal
		unitPrice decimal.Decimal
	}
	var resolved []resolvedLine
	for i, input := range lines {
		if !input.Quantity.IsPositive() {
			return nil, fmt.Errorf("line %d: quantity must be positive, got %s", i+1, input.Quantity)
		}
		var itemID int
		var salePrice decimal.Decimal
		err := tx.QueryRow(ctx,
			"SELECT id, sale_price FROM items WHERE company_id = $1 AND code = $2 AND is_active = true",
			companyID, input.ItemCode,
		).Scan(&itemID, &salePrice)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("line %d: item %q not found", i+1, input.ItemCode)
			}
			return nil, fmt.Errorf("line %d: failed to resolve item: %w", i+1, err)
		}

		// Availability is re-checked in this transaction, not taken from any
		// earlier read, so two orders racing for the same stock cannot both
		// pass on the same units they later fight over.
		if err := s.stock.RequireAvailableTx(ctx, tx, companyID, itemID, CategoryStorage, input.Quantity); err != nil {
			return nil, fmt.Errorf("line %d (%s): %w", i+1, input.ItemCode, err)
		}

		price := input.UnitPrice
		if price.IsZero() {
			price = salePrice
		}
		resolved = append(resolved, resolvedLine{itemID: itemID, quantity: input.Quantity, unitPrice: price})
	}

	number, err := s.numbering.NextDocumentNumberTx(ctx, tx, companyID, DocTypeSO)
	if err != nil {
		return nil, err
	}

	var soID int
	err = tx.QueryRow(ctx, `
		INSERT INTO sales_orders (company_id, number, customer_id, holding_location_id, status, notes)
		VALUES ($1, $2, $3, $4, 'PENDING', $5)
		RETURNING id
	`, companyID, number, customerID, holdingLocationID, notes).Scan(&soID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert sales order: %w", err)
	}

	for i, rl := range resolved {
		_, err = tx.Exec(ctx, `
			INSERT INTO sales_order_details (sales_order_id, item_id, ordered_quantity, unit_price)
			VALUES ($1, $2, $3, $4)
		`, soID, rl.itemID, rl.quantity, rl.unitPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to insert sales order line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sales order creation: %w", err)
	}
	return s.GetSalesOrder(ctx, companyID, soID)
}

func (s *salesOrderService) Ship(ctx context.Context, companyID, soID int) (*SalesOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, holdingLocationID, number, err := lockSOTx(ctx, tx, companyID, soID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition("sales order", soTransitions, string(status), string(SOShipped)); err != nil {
		return nil, err
	}

	rows, err := tx.Query(ctx, `
		SELECT item_id, ordered_quantity, unit_price
		FROM sales_order_details
		WHERE sales_order_id = $1
		ORDER BY id
	`, soID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales order lines: %w", err)
	}
	type shipLine struct {
		itemID    int
		quantity  decimal.Decimal
		unitPrice decimal.Decimal
	}
	var shipLines []shipLine
	for rows.Next() {
		var sl shipLine
		if err := rows.Scan(&sl.itemID, &sl.quantity, &sl.unitPrice); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan sales order line: %w", err)
		}
		shipLines = append(shipLines, sl)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read sales order lines: %w", err)
	}

	// One nil-destination transfer per line drains the holding location. Any
	// shortfall fails the whole transaction; nothing partially ships.
	for _, sl := range shipLines {
		src := holdingLocationID
		err := s.stock.TransferTx(ctx, tx, companyID, TransferRequest{
			ItemID:           sl.itemID,
			SourceLocationID: &src,
			Quantity:         sl.quantity,
			UnitCost:         sl.unitPrice,
			MovementType:     MovementShipment,
			Reference:        number,
		})
		if err != nil {
			return nil, err
		}
	}

	_, err = tx.Exec(ctx,
		"UPDATE sales_orders SET status = 'SHIPPED', shipped_at = NOW() WHERE id = $1", soID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to mark sales order %d shipped: %w", soID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit shipment: %w", err)
	}
	return s.GetSalesOrder(ctx, companyID, soID)
}

func (s *salesOrderService) CancelSalesOrder(ctx context.Context, companyID, soID int, reason string) (*SalesOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, _, _, err := lockSOTx(ctx, tx, companyID, soID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition("sales order", soTransitions, string(status), string(SOCancelled)); err != nil {
		return nil, err
	}

	// Active pickings for the order are cancelled with it. Stock already
	// picked stays in the holding location for manual putaway; it is not
	// returned automatically.
	_, err = tx.Exec(ctx, `
		UPDATE pickings
		SET status = 'CANCELLED', cancelled_at = NOW(), cancel_reason = $1
		WHERE sales_order_id = $2 AND status IN ('PENDING', 'IN_PROGRESS')
	`, reason, soID)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel pickings for sales order %d: %w", soID, err)
	}

	_, err = tx.Exec(ctx,
		"UPDATE sales_orders SET status = 'CANCELLED', cancelled_at = NOW(), cancel_reason = $1 WHERE id = $2",
		reason, soID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel sales order %d: %w", soID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit sales order cancellation: %w", err)
	}
	return s.GetSalesOrder(ctx, companyID, soID)
}

// ── TX helpers shared with the picking service ───────────────────────────────

// lockSOTx locks the sales order row and returns its status, holding location
// and number.
func lockSOTx(ctx context.Context, tx pgx.Tx, companyID, soID int) (SOStatus, int, string, error) {
	var status SOStatus
	var holdingLocationID int
	var number string
	err := tx.QueryRow(ctx,
		"SELECT status, holding_location_id, number FROM sales_orders WHERE company_id = $1 AND id = $2 FOR UPDATE",
		companyID, soID,
	).Scan(&status, &holdingLocationID, &number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, "", fmt.Errorf("sales order %d not found", soID)
		}
		return "", 0, "", fmt.Errorf("failed to fetch sales order %d: %w", soID, err)
	}
	return status, holdingLocationID, number, nil
}

// markSOInProgressTx flips a PENDING order to IN_PROGRESS when picking starts.
// An order already IN_PROGRESS is left as is. The caller holds the row lock.
func markSOInProgressTx(ctx context.Context, tx pgx.Tx, soID int, current SOStatus) error {
	if current == SOInProgress {
		return nil
	}
	if err := checkTransition("sales order", soTransitions, string(current), string(SOInProgress)); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE sales_orders SET status = 'IN_PROGRESS' WHERE id = $1", soID,
	); err != nil {
		return fmt.Errorf("failed to mark sales order %d in progress: %w", soID, err)
	}
	return nil
}

// markSOPickedTx flips an IN_PROGRESS order to PICKED once its picking
// completes. The caller holds the row lock.
func markSOPickedTx(ctx context.Context, tx pgx.Tx, soID int, current SOStatus) error {
	if err := checkTransition("sales order", soTransitions, string(current), string(SOPicked)); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE sales_orders SET status = 'PICKED' WHERE id = $1", soID,
	); err != nil {
		return fmt.Errorf("failed to mark sales order %d picked: %w", soID, err)
	}
	return nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *salesOrderService) GetSalesOrder(ctx context.Context, companyID, soID int) (*SalesOrder, error) {
	var so SalesOrder
	var cancelReason *string
	err := s.pool.QueryRow(ctx, `
		SELECT so.id, so.company_id, so.number, so.customer_id, c.code, c.name,
		       so.holding_location_id, so.status, COALESCE(so.notes, ''),
		       so.created_at, so.shipped_at, so.cancelled_at, so.cancel_reason
		FROM sales_orders so
		JOIN customers c ON c.id = so.customer_id
		WHERE so.company_id = $1 AND so.id = $2
	`, companyID, soID).Scan(
		&so.ID, &so.CompanyID, &so.Number, &so.CustomerID, &so.CustomerCode, &so.CustomerName,
		&so.HoldingLocationID, &so.Status, &so.Notes,
		&so.CreatedAt, &so.ShippedAt, &so.CancelledAt, &cancelReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sales order %d not found", soID)
		}
		return nil, fmt.Errorf("failed to fetch sales order %d: %w", soID, err)
	}
	if cancelReason != nil {
		so.CancelReason = *cancelReason
	}

	rows, err := s.pool.Query(ctx, `
		SELECT sod.id, sod.sales_order_id, sod.item_id, i.code, i.name, sod.ordered_quantity, sod.unit_price
		FROM sales_order_details sod
		JOIN items i ON i.id = sod.item_id
		WHERE sod.sales_order_id = $1
		ORDER BY sod.id
	`, soID)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d SalesOrderDetail
		if err := rows.Scan(
			&d.ID, &d.SalesOrderID, &d.ItemID, &d.ItemCode, &d.ItemName, &d.OrderedQuantity, &d.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sales order line: %w", err)
		}
		so.Details = append(so.Details, d)
	}
	return &so, nil
}

func (s *salesOrderService) GetSalesOrders(ctx context.Context, companyID int, status *string) ([]SalesOrder, error) {
	query := `
		SELECT so.id, so.company_id, so.number, so.customer_id, c.code, c.name,
		       so.holding_location_id, so.status, COALESCE(so.notes, ''),
		       so.created_at, so.shipped_at, so.cancelled_at
		FROM sales_orders so
		JOIN customers c ON c.id = so.customer_id
		WHERE so.company_id = $1
	`
	args := []any{companyID}
	if status != nil {
		query += " AND so.status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY so.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query sales orders: %w", err)
	}
	defer rows.Close()

	var orders []SalesOrder
	for rows.Next() {
		var so SalesOrder
		if err := rows.Scan(
			&so.ID, &so.CompanyID, &so.Number, &so.CustomerID, &so.CustomerCode, &so.CustomerName,
			&so.HoldingLocationID, &so.Status, &so.Notes,
			&so.CreatedAt, &so.ShippedAt, &so.CancelledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan sales order: %w", err)
		}
		orders = append(orders, so)
	}
	return orders, nil
}
