package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// PurchaseOrderService manages the purchase order lifecycle:
// DRAFT → SENT → RECEIVED, with cancellation from DRAFT or from SENT while no
// active ASN references the order.
type PurchaseOrderService interface {
	CreatePO(ctx context.Context, companyID, supplierID int, lines []POLineInput, notes string) (*PurchaseOrder, error)
	// SendPO transitions DRAFT → SENT and assigns the gapless PO number.
	SendPO(ctx context.Context, companyID, poID int) (*PurchaseOrder, error)
	CancelPO(ctx context.Context, companyID, poID int, reason string) (*PurchaseOrder, error)

	GetPO(ctx context.Context, companyID, poID int) (*PurchaseOrder, error)
	GetPOs(ctx context.Context, companyID int, status *string) ([]PurchaseOrder, error)
}

type purchaseOrderService struct {
	pool      *pgxpool.Pool
	numbering NumberingService
}

func NewPurchaseOrderService(pool *pgxpool.Pool, numbering NumberingService) PurchaseOrderService {
	return &purchaseOrderService{pool: pool, numbering: numbering}
}

func (s *purchaseOrderService) CreatePO(ctx context.Context, companyID, supplierID int, lines []POLineInput, notes string) (*PurchaseOrder, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("purchase order must have at least one line")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var supplierExists bool
	if err := tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM suppliers WHERE id = $1 AND company_id = $2 AND is_active = true)",
		supplierID, companyID,
	).Scan(&supplierExists); err != nil {
		return nil, fmt.Errorf("failed to validate supplier: %w", err)
	}
	if !supplierExists {
		return nil, fmt.Errorf("supplier %d not found for company %d", supplierID, companyID)
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
		var purchasePrice decimal.Decimal
		err := tx.QueryRow(ctx,
			"SELECT id, purchase_price FROM items WHERE company_id = $1 AND code = $2 AND is_active = true",
			companyID, input.ItemCode,
		).Scan(&itemID, &purchasePrice)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("line %d: item %q not found", i+1, input.ItemCode)
			}
			return nil, fmt.Errorf("line %d: failed to resolve item: %w", i+1, err)
		}
		price := input.UnitPrice
		if price.IsZero() {
			price = purchasePrice
		}
		resolved = append(resolved, resolvedLine{itemID: itemID, quantity: input.Quantity, unitPrice: price})
	}

	var poID int
	err = tx.QueryRow(ctx, `
		INSERT INTO purchase_orders (company_id, supplier_id, status, notes)
		VALUES ($1, $2, 'DRAFT', $3)
		RETURNING id
	`, companyID, supplierID, notes).Scan(&poID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert purchase order: %w", err)
	}

	for i, rl := range resolved {
		_, err = tx.Exec(ctx, `
			INSERT INTO purchase_order_details (purchase_order_id, item_id, ordered_quantity, unit_price)
			VALUES ($1, $2, $3, $4)
		`, poID, rl.itemID, rl.quantity, rl.unitPrice)
		if err != nil {
			return nil, fmt.Errorf("failed to insert purchase order line %d: %w", i+1, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit purchase order creation: %w", err)
	}
	return s.GetPO(ctx, companyID, poID)
}

func (s *purchaseOrderService) SendPO(ctx context.Context, companyID, poID int) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockPOStatusTx(ctx, tx, companyID, poID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition("purchase order", poTransitions, string(status), string(POSent)); err != nil {
		return nil, err
	}

	number, err := s.numbering.NextDocumentNumberTx(ctx, tx, companyID, DocTypePO)
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		"UPDATE purchase_orders SET status = 'SENT', number = $1, sent_at = NOW() WHERE id = $2",
		number, poID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to send purchase order %d: %w", poID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit send purchase order: %w", err)
	}
	return s.GetPO(ctx, companyID, poID)
}

func (s *purchaseOrderService) CancelPO(ctx context.Context, companyID, poID int, reason string) (*PurchaseOrder, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	status, err := lockPOStatusTx(ctx, tx, companyID, poID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition("purchase order", poTransitions, string(status), string(POCancelled)); err != nil {
		return nil, err
	}

	// A SENT order with active ASNs is already in the receiving flow; those
	// ASNs must be cancelled first.
	var activeASNs int
	err = tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM asns WHERE purchase_order_id = $1 AND status <> 'CANCELLED'",
		poID,
	).Scan(&activeASNs)
	if err != nil {
		return nil, fmt.Errorf("failed to count active ASNs for purchase order %d: %w", poID, err)
	}
	if activeASNs > 0 {
		return nil, &InvalidTransitionError{DocType: "purchase order", Current: string(status), Requested: string(POCancelled)}
	}

	_, err = tx.Exec(ctx,
		"UPDATE purchase_orders SET status = 'CANCELLED', cancelled_at = NOW(), cancel_reason = $1 WHERE id = $2",
		reason, poID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel purchase order %d: %w", poID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit cancel purchase order: %w", err)
	}
	return s.GetPO(ctx, companyID, poID)
}

// ── TX helpers shared with the ASN service ───────────────────────────────────

// lockPOStatusTx locks the purchase order row and returns its current status.
func lockPOStatusTx(ctx context.Context, tx pgx.Tx, companyID, poID int) (POStatus, error) {
	var status POStatus
	err := tx.QueryRow(ctx,
		"SELECT status FROM purchase_orders WHERE company_id = $1 AND id = $2 FOR UPDATE",
		companyID, poID,
	).Scan(&status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", fmt.Errorf("purchase order %d not found", poID)
		}
		return "", fmt.Errorf("failed to fetch purchase order %d: %w", poID, err)
	}
	return status, nil
}

// markPOReceivedTx flips a SENT purchase order to RECEIVED when an ASN is
// created against it. An order that is already RECEIVED (a second ASN) is
// left as is. The caller holds the row lock.
func markPOReceivedTx(ctx context.Context, tx pgx.Tx, poID int, current POStatus) error {
	if current == POReceived {
		return nil
	}
	if err := checkTransition("purchase order", poTransitions, string(current), string(POReceived)); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE purchase_orders SET status = 'RECEIVED' WHERE id = $1", poID,
	); err != nil {
		return fmt.Errorf("failed to mark purchase order %d received: %w", poID, err)
	}
	return nil
}

// rollbackPOReceivedTx rolls a RECEIVED purchase order back to SENT after its
// last active ASN is cancelled. The caller holds the row lock.
func rollbackPOReceivedTx(ctx context.Context, tx pgx.Tx, poID int, current POStatus) error {
	if err := checkTransition("purchase order", poTransitions, string(current), string(POSent)); err != nil {
		return err
	}
	if _, err := tx.Exec(ctx,
		"UPDATE purchase_orders SET status = 'SENT' WHERE id = $1", poID,
	); err != nil {
		return fmt.Errorf("failed to roll purchase order %d back to sent: %w", poID, err)
	}
	return nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *purchaseOrderService) GetPO(ctx context.Context, companyID, poID int) (*PurchaseOrder, error) {
	var po PurchaseOrder
	var cancelReason *string
	err := s.pool.QueryRow(ctx, `
		SELECT po.id, po.company_id, COALESCE(po.number, ''), po.supplier_id, sp.code, sp.name,
		       po.status, COALESCE(po.notes, ''), po.created_at, po.sent_at, po.cancelled_at, po.cancel_reason
		FROM purchase_orders po
		JOIN suppliers sp ON sp.id = po.supplier_id
		WHERE po.company_id = $1 AND po.id = $2
	`, companyID, poID).Scan(
		&po.ID, &po.CompanyID, &po.Number, &po.SupplierID, &po.SupplierCode, &po.SupplierName,
		&po.Status, &po.Notes, &po.CreatedAt, &po.SentAt, &po.CancelledAt, &cancelReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("purchase order %d not found", poID)
		}
		return nil, fmt.Errorf("failed to fetch purchase order %d: %w", poID, err)
	}
	if cancelReason != nil {
		po.CancelReason = *cancelReason
	}

	rows, err := s.pool.Query(ctx, `
		SELECT pod.id, pod.purchase_order_id, pod.item_id, i.code, i.name, pod.ordered_quantity, pod.unit_price
		FROM purchase_order_details pod
		JOIN items i ON i.id = pod.item_id
		WHERE pod.purchase_order_id = $1
		ORDER BY pod.id
	`, poID)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase order lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d PurchaseOrderDetail
		if err := rows.Scan(
			&d.ID, &d.PurchaseOrderID, &d.ItemID, &d.ItemCode, &d.ItemName, &d.OrderedQuantity, &d.UnitPrice,
		); err != nil {
			return nil, fmt.Errorf("failed to scan purchase order line: %w", err)
		}
		po.Details = append(po.Details, d)
	}
	return &po, nil
}

func (s *purchaseOrderService) GetPOs(ctx context.Context, companyID int, status *string) ([]PurchaseOrder, error) {
	query := `
		SELECT po.id, po.company_id, COALESCE(po.number, ''), po.supplier_id, sp.code, sp.name,
		       po.status, COALESCE(po.notes, ''), po.created_at, po.sent_at, po.cancelled_at
		FROM purchase_orders po
		JOIN suppliers sp ON sp.id = po.supplier_id
		WHERE po.company_id = $1
	`
	args := []any{companyID}
	if status != nil {
		query += " AND po.status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY po.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query purchase orders: %w", err)
	}
	defer rows.Close()

	var orders []PurchaseOrder
	for rows.Next() {
		var po PurchaseOrder
		if err := rows.Scan(
			&po.ID, &po.CompanyID, &po.Number, &po.SupplierID, &po.SupplierCode, &po.SupplierName,
			&po.Status, &po.Notes, &po.CreatedAt, &po.SentAt, &po.CancelledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan purchase order: %w", err)
		}
		orders = append(orders, po)
	}
	return orders, nil
}
