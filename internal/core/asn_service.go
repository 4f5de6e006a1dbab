package core

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

// ASNService manages advanced shipping notices and the receiving flow:
// PENDING → ON_DELIVERY → ARRIVED (stock enters the holding location) →
// PROCESSED (every line fully put away into storage).
type ASNService interface {
	CreateASN(ctx context.Context, companyID, poID, holdingLocationID int, lines []ASNLineInput, expectedArrival *string) (*ASN, error)
	UpdateASNStatus(ctx context.Context, companyID, asnID int, requested ASNStatus) (*ASN, error)
	// ProcessPutaway moves quantity of one ASN line from the holding location
	// into a storage location. When every line reaches its shipped quantity the
	// ASN flips to PROCESSED.
	ProcessPutaway(ctx context.Context, companyID, asnDetailID int, quantity decimal.Decimal, targetLocationID int) (*ASN, error)
	CancelASN(ctx context.Context, companyID, asnID int, reason string) (*ASN, error)

	GetASN(ctx context.Context, companyID, asnID int) (*ASN, error)
	GetASNs(ctx context.Context, companyID int, status *string) ([]ASN, error)
}

type asnService struct {
	pool      *pgxpool.Pool
	stock     StockService
	numbering NumberingService
}

func NewASNService(pool *pgxpool.Pool, stock StockService, numbering NumberingService) ASNService {
	return &asnService{pool: pool, stock: stock, numbering: numbering}
}

func (s *asnService) CreateASN(ctx context.Context, companyID, poID, holdingLocationID int, lines []ASNLineInput, expectedArrival *string) (*ASN, error) {
	if len(lines) == 0 {
		return nil, fmt.Errorf("shipping notice must have at least one line")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	poStatus, err := lockPOStatusTx(ctx, tx, companyID, poID)
	if err != nil {
		return nil, err
	}
	// Notices can only be raised against an order that is out with the
	// supplier (or already partially received).
	if poStatus != POSent && poStatus != POReceived {
		return nil, &InvalidTransitionError{DocType: "purchase order", Current: string(poStatus), Requested: string(POReceived)}
	}

	// Resolve lines against the order: every announced item must be on it.
	type resolvedLine struct {
		itemID   int
		quantity decimal.Decimal
	}
	var resolved []resolvedLine
	var total decimal.Decimal
	for i, input := range lines {
		if !input.ShippedQuantity.IsPositive() {
			return nil, fmt.Errorf("line %d: shipped quantity must be positive, got %s", i+1, input.ShippedQuantity)
		}
		var itemID int
		err := tx.QueryRow(ctx, `
			SELECT i.id
			FROM purchase_order_details pod
			JOIN items i ON i.id = pod.item_id
			WHERE pod.purchase_order_id = $1 AND i.code = $2
		`, poID, input.ItemCode).Scan(&itemID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("line %d: item %q is not on purchase order %d", i+1, input.ItemCode, poID)
			}
			return nil, fmt.Errorf("line %d: failed to resolve item: %w", i+1, err)
		}
		resolved = append(resolved, resolvedLine{itemID: itemID, quantity: input.ShippedQuantity})
		total = total.Add(input.ShippedQuantity)
	}

	// The holding location must be able to take the whole notice once it
	// arrives. This is a creation-time check, not a reservation; capacity is
	// booked at arrival.
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
	if holding.CurrentCapacity.Add(total).GreaterThan(holding.MaxCapacity) {
		return nil, &CapacityExceededError{
			Available: holding.MaxCapacity.Sub(holding.CurrentCapacity),
			Required:  total,
		}
	}

	number, err := s.numbering.NextDocumentNumberTx(ctx, tx, companyID, DocTypeASN)
	if err != nil {
		return nil, err
	}

	var asnID int
	err = tx.QueryRow(ctx, `
		INSERT INTO asns (company_id, number, purchase_order_id, holding_location_id, status, expected_arrival_date)
		VALUES ($1, $2, $3, $4, 'PENDING', $5::date)
		RETURNING id
	`, companyID, number, poID, holdingLocationID, expectedArrival).Scan(&asnID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert shipping notice: %w", err)
	}

	for i, rl := range resolved {
		_, err = tx.Exec(ctx, `
			INSERT INTO asn_details (asn_id, item_id, shipped_quantity, already_put_away_quantity)
			VALUES ($1, $2, $3, 0)
		`, asnID, rl.itemID, rl.quantity)
		if err != nil {
			return nil, fmt.Errorf("failed to insert shipping notice line %d: %w", i+1, err)
		}
	}

	if err := markPOReceivedTx(ctx, tx, poID, poStatus); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit shipping notice creation: %w", err)
	}
	return s.GetASN(ctx, companyID, asnID)
}

func (s *asnService) UpdateASNStatus(ctx context.Context, companyID, asnID int, requested ASNStatus) (*ASN, error) {
	if requested == ASNCancelled {
		return nil, fmt.Errorf("use the cancel operation to cancel a shipping notice")
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, holdingLocationID, number, err := lockASNTx(ctx, tx, companyID, asnID)
	if err != nil {
		return nil, err
	}
	if err := checkTransition("shipping notice", asnTransitions, string(current), string(requested)); err != nil {
		return nil, err
	}

	switch requested {
	case ASNArrived:
		// Arrival turns every announced line into net-new stock in the
		// holding location, in the same transaction as the status flip.
		if err := s.receiveArrivalTx(ctx, tx, companyID, asnID, number, holdingLocationID); err != nil {
			return nil, err
		}
		_, err = tx.Exec(ctx,
			"UPDATE asns SET status = $1, actual_arrival_date = NOW() WHERE id = $2",
			string(requested), asnID,
		)
	default:
		_, err = tx.Exec(ctx, "UPDATE asns SET status = $1 WHERE id = $2", string(requested), asnID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update shipping notice %d: %w", asnID, err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit shipping notice update: %w", err)
	}
	return s.GetASN(ctx, companyID, asnID)
}

// receiveArrivalTx books one nil-source transfer per line into the holding
// location. The unit cost comes from the purchase order line, falling back to
// the item's purchase price for items priced at zero.
func (s *asnService) receiveArrivalTx(ctx context.Context, tx pgx.Tx, companyID, asnID int, number string, holdingLocationID int) error {
	rows, err := tx.Query(ctx, `
		SELECT ad.item_id, ad.shipped_quantity,
		       COALESCE(NULLIF(pod.unit_price, 0), i.purchase_price)
		FROM asn_details ad
		JOIN asns a ON a.id = ad.asn_id
		JOIN items i ON i.id = ad.item_id
		LEFT JOIN purchase_order_details pod
		       ON pod.purchase_order_id = a.purchase_order_id AND pod.item_id = ad.item_id
		WHERE ad.asn_id = $1
		ORDER BY ad.id
	`, asnID)
	if err != nil {
		return fmt.Errorf("failed to query shipping notice lines: %w", err)
	}
	type arrival struct {
		itemID   int
		quantity decimal.Decimal
		unitCost decimal.Decimal
	}
	var arrivals []arrival
	for rows.Next() {
		var a arrival
		if err := rows.Scan(&a.itemID, &a.quantity, &a.unitCost); err != nil {
			rows.Close()
			return fmt.Errorf("failed to scan shipping notice line: %w", err)
		}
		arrivals = append(arrivals, a)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read shipping notice lines: %w", err)
	}

	for _, a := range arrivals {
		dest := holdingLocationID
		err := s.stock.TransferTx(ctx, tx, companyID, TransferRequest{
			ItemID:                a.itemID,
			DestinationLocationID: &dest,
			Quantity:              a.quantity,
			UnitCost:              a.unitCost,
			MovementType:          MovementArrival,
			Reference:             number,
		})
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *asnService) ProcessPutaway(ctx context.Context, companyID, asnDetailID int, quantity decimal.Decimal, targetLocationID int) (*ASN, error) {
	if !quantity.IsPositive() {
		return nil, &QuantityMismatchError{Requested: quantity, Remaining: decimal.Zero}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var asnID, itemID, holdingLocationID int
	var number string
	var status ASNStatus
	var shipped, putAway, unitCost decimal.Decimal
	err = tx.QueryRow(ctx, `
		SELECT a.id, a.number, a.status, a.holding_location_id, ad.item_id,
		       ad.shipped_quantity, ad.already_put_away_quantity,
		       COALESCE(NULLIF(pod.unit_price, 0), i.purchase_price)
		FROM asn_details ad
		JOIN asns a ON a.id = ad.asn_id
		JOIN items i ON i.id = ad.item_id
		LEFT JOIN purchase_order_details pod
		       ON pod.purchase_order_id = a.purchase_order_id AND pod.item_id = ad.item_id
		WHERE ad.id = $1 AND a.company_id = $2
		FOR UPDATE OF ad, a
	`, asnDetailID, companyID).Scan(
		&asnID, &number, &status, &holdingLocationID, &itemID, &shipped, &putAway, &unitCost,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("shipping notice line %d not found", asnDetailID)
		}
		return nil, fmt.Errorf("failed to lock shipping notice line %d: %w", asnDetailID, err)
	}

	if status != ASNArrived {
		return nil, &InvalidTransitionError{DocType: "shipping notice", Current: string(status), Requested: string(ASNProcessed)}
	}
	remaining := shipped.Sub(putAway)
	if quantity.GreaterThan(remaining) {
		return nil, &QuantityMismatchError{Requested: quantity, Remaining: remaining}
	}

	// Putaway targets storage only. The row lock comes later inside the
	// transfer; this category read is stable because categories never change.
	var targetCategory LocationCategory
	err = tx.QueryRow(ctx,
		"SELECT category FROM locations WHERE company_id = $1 AND id = $2",
		companyID, targetLocationID,
	).Scan(&targetCategory)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("location %d not found", targetLocationID)
		}
		return nil, fmt.Errorf("failed to fetch location %d: %w", targetLocationID, err)
	}
	if targetCategory != CategoryStorage {
		return nil, &LocationCategoryMismatchError{Expected: CategoryStorage, Actual: targetCategory}
	}

	src, dst := holdingLocationID, targetLocationID
	err = s.stock.TransferTx(ctx, tx, companyID, TransferRequest{
		ItemID:                itemID,
		SourceLocationID:      &src,
		DestinationLocationID: &dst,
		Quantity:              quantity,
		UnitCost:              unitCost,
		MovementType:          MovementPutaway,
		Reference:             number,
	})
	if err != nil {
		return nil, err
	}

	_, err = tx.Exec(ctx,
		"UPDATE asn_details SET already_put_away_quantity = already_put_away_quantity + $1 WHERE id = $2",
		quantity, asnDetailID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to update shipping notice line %d: %w", asnDetailID, err)
	}

	var open int
	err = tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM asn_details WHERE asn_id = $1 AND already_put_away_quantity < shipped_quantity",
		asnID,
	).Scan(&open)
	if err != nil {
		return nil, fmt.Errorf("failed to count open shipping notice lines: %w", err)
	}
	if open == 0 {
		if err := checkTransition("shipping notice", asnTransitions, string(ASNArrived), string(ASNProcessed)); err != nil {
			return nil, err
		}
		if _, err := tx.Exec(ctx, "UPDATE asns SET status = 'PROCESSED' WHERE id = $1", asnID); err != nil {
			return nil, fmt.Errorf("failed to mark shipping notice %d processed: %w", asnID, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit putaway: %w", err)
	}
	return s.GetASN(ctx, companyID, asnID)
}

func (s *asnService) CancelASN(ctx context.Context, companyID, asnID int, reason string) (*ASN, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	current, _, _, err := lockASNTx(ctx, tx, companyID, asnID)
	if err != nil {
		return nil, err
	}
	// Only a notice whose goods never moved can be cancelled. Anything at or
	// past ON_DELIVERY has to run through arrival instead.
	if err := checkTransition("shipping notice", asnTransitions, string(current), string(ASNCancelled)); err != nil {
		return nil, err
	}

	var poID int
	if err := tx.QueryRow(ctx, "SELECT purchase_order_id FROM asns WHERE id = $1", asnID).Scan(&poID); err != nil {
		return nil, fmt.Errorf("failed to fetch parent purchase order: %w", err)
	}

	_, err = tx.Exec(ctx,
		"UPDATE asns SET status = 'CANCELLED', cancelled_at = NOW(), cancel_reason = $1 WHERE id = $2",
		reason, asnID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to cancel shipping notice %d: %w", asnID, err)
	}

	// When this was the last active notice, the parent order goes back to
	// SENT so a replacement notice can be raised.
	var remaining int
	err = tx.QueryRow(ctx,
		"SELECT COUNT(*) FROM asns WHERE purchase_order_id = $1 AND status <> 'CANCELLED'",
		poID,
	).Scan(&remaining)
	if err != nil {
		return nil, fmt.Errorf("failed to count active notices for purchase order %d: %w", poID, err)
	}
	if remaining == 0 {
		poStatus, err := lockPOStatusTx(ctx, tx, companyID, poID)
		if err != nil {
			return nil, err
		}
		if poStatus == POReceived {
			if err := rollbackPOReceivedTx(ctx, tx, poID, poStatus); err != nil {
				return nil, err
			}
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit shipping notice cancellation: %w", err)
	}
	return s.GetASN(ctx, companyID, asnID)
}

// lockASNTx locks the ASN row and returns its status, holding location and number.
func lockASNTx(ctx context.Context, tx pgx.Tx, companyID, asnID int) (ASNStatus, int, string, error) {
	var status ASNStatus
	var holdingLocationID int
	var number string
	err := tx.QueryRow(ctx,
		"SELECT status, holding_location_id, number FROM asns WHERE company_id = $1 AND id = $2 FOR UPDATE",
		companyID, asnID,
	).Scan(&status, &holdingLocationID, &number)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", 0, "", fmt.Errorf("shipping notice %d not found", asnID)
		}
		return "", 0, "", fmt.Errorf("failed to fetch shipping notice %d: %w", asnID, err)
	}
	return status, holdingLocationID, number, nil
}

// ── Queries ──────────────────────────────────────────────────────────────────

func (s *asnService) GetASN(ctx context.Context, companyID, asnID int) (*ASN, error) {
	var asn ASN
	var cancelReason *string
	err := s.pool.QueryRow(ctx, `
		SELECT a.id, a.company_id, a.number, a.purchase_order_id, COALESCE(po.number, ''),
		       a.holding_location_id, a.status, a.expected_arrival_date, a.actual_arrival_date,
		       a.created_at, a.cancelled_at, a.cancel_reason
		FROM asns a
		JOIN purchase_orders po ON po.id = a.purchase_order_id
		WHERE a.company_id = $1 AND a.id = $2
	`, companyID, asnID).Scan(
		&asn.ID, &asn.CompanyID, &asn.Number, &asn.PurchaseOrderID, &asn.PurchaseOrderNumber,
		&asn.HoldingLocationID, &asn.Status, &asn.ExpectedArrivalDate, &asn.ActualArrivalDate,
		&asn.CreatedAt, &asn.CancelledAt, &cancelReason,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("shipping notice %d not found", asnID)
		}
		return nil, fmt.Errorf("failed to fetch shipping notice %d: %w", asnID, err)
	}
	if cancelReason != nil {
		asn.CancelReason = *cancelReason
	}

	rows, err := s.pool.Query(ctx, `
		SELECT ad.id, ad.asn_id, ad.item_id, i.code, i.name,
		       ad.shipped_quantity, ad.already_put_away_quantity,
		       COALESCE(NULLIF(pod.unit_price, 0), i.purchase_price)
		FROM asn_details ad
		JOIN asns a ON a.id = ad.asn_id
		JOIN items i ON i.id = ad.item_id
		LEFT JOIN purchase_order_details pod
		       ON pod.purchase_order_id = a.purchase_order_id AND pod.item_id = ad.item_id
		WHERE ad.asn_id = $1
		ORDER BY ad.id
	`, asnID)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipping notice lines: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d ASNDetail
		if err := rows.Scan(
			&d.ID, &d.ASNID, &d.ItemID, &d.ItemCode, &d.ItemName,
			&d.ShippedQuantity, &d.AlreadyPutAwayQuantity, &d.UnitCost,
		); err != nil {
			return nil, fmt.Errorf("failed to scan shipping notice line: %w", err)
		}
		d.RemainingQuantity = d.ShippedQuantity.Sub(d.AlreadyPutAwayQuantity)
		asn.Details = append(asn.Details, d)
	}
	return &asn, nil
}

func (s *asnService) GetASNs(ctx context.Context, companyID int, status *string) ([]ASN, error) {
	query := `
		SELECT a.id, a.company_id, a.number, a.purchase_order_id, COALESCE(po.number, ''),
		       a.holding_location_id, a.status, a.expected_arrival_date, a.actual_arrival_date,
		       a.created_at, a.cancelled_at
		FROM asns a
		JOIN purchase_orders po ON po.id = a.purchase_order_id
		WHERE a.company_id = $1
	`
	args := []any{companyID}
	if status != nil {
		query += " AND a.status = $2"
		args = append(args, *status)
	}
	query += " ORDER BY a.id DESC"

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query shipping notices: %w", err)
	}
	defer rows.Close()

	var notices []ASN
	for rows.Next() {
		var asn ASN
		if err := rows.Scan(
			&asn.ID, &asn.CompanyID, &asn.Number, &asn.PurchaseOrderID, &asn.PurchaseOrderNumber,
			&asn.HoldingLocationID, &asn.Status, &asn.ExpectedArrivalDate, &asn.ActualArrivalDate,
			&asn.CreatedAt, &asn.CancelledAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan shipping notice: %w", err)
		}
		notices = append(notices, asn)
	}
	return notices, nil
}
