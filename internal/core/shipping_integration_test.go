package core_test

import (
	"context"
	"errors"
	"testing"

	"warehouse-engine/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

func newShippingServices(pool *pgxpool.Pool) (core.SalesOrderService, core.PickingService, core.StockService) {
	stock := core.NewStockService(pool)
	numbering := core.NewNumberingService(pool)
	so := core.NewSalesOrderService(pool, stock, numbering)
	picking := core.NewPickingService(pool, stock, numbering)
	return so, picking, stock
}

func TestSalesOrder_CreationChecksStorageAvailability(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	soSvc, _, _ := newShippingServices(pool)
	seedStock(t, pool, itemWidgetA, locStorage1, 30, 4.50, "ASN-00001")

	// 30 available in storage cannot cover 50.
	_, err := soSvc.CreateSalesOrder(ctx, testCompanyID, 1, locShipping, []core.SOLineInput{
		{ItemCode: "WID-A", Quantity: decimal.NewFromInt(50)},
	}, "")
	var insufficient *core.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	if !insufficient.Available.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected available 30 in error, got %s", insufficient.Available)
	}

	// Holding-area stock does not count towards availability.
	seedStock(t, pool, itemWidgetA, locReceiving, 500, 4.50, "ASN-00002")
	_, err = soSvc.CreateSalesOrder(ctx, testCompanyID, 1, locShipping, []core.SOLineInput{
		{ItemCode: "WID-A", Quantity: decimal.NewFromInt(50)},
	}, "")
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientStockError despite holding stock, got %v", err)
	}

	so, err := soSvc.CreateSalesOrder(ctx, testCompanyID, 1, locShipping, []core.SOLineInput{
		{ItemCode: "WID-A", Quantity: decimal.NewFromInt(30)},
	}, "covered order")
	if err != nil {
		t.Fatalf("CreateSalesOrder failed: %v", err)
	}
	if so.Status != core.SOPending {
		t.Errorf("Expected status PENDING, got %s", so.Status)
	}
	if so.Number != "SO-00001" {
		t.Errorf("Expected number SO-00001, got %q", so.Number)
	}
	// A zero line price falls back to the item's sale price.
	if !so.Details[0].UnitPrice.Equal(decimal.NewFromFloat(9.00)) {
		t.Errorf("Expected defaulted unit price 9.00, got %s", so.Details[0].UnitPrice)
	}
}

func TestSalesOrder_RejectsStorageHoldingLocation(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	soSvc, _, _ := newShippingServices(pool)
	seedStock(t, pool, itemWidgetA, locStorage1, 30, 4.50, "ASN-00001")

	_, err := soSvc.CreateSalesOrder(ctx, testCompanyID, 1, locStorage2, []core.SOLineInput{
		{ItemCode: "WID-A", Quantity: decimal.NewFromInt(10)},
	}, "")
	var category *core.LocationCategoryMismatchError
	if !errors.As(err, &category) {
		t.Fatalf("Expected LocationCategoryMismatchError, got %v", err)
	}
}

func TestPicking_FullFlowToShipment(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	soSvc, pickSvc, _ := newShippingServices(pool)
	seedStock(t, pool, itemWidgetA, locStorage1, 60, 4.50, "ASN-00001")
	seedStock(t, pool, itemWidgetB, locStorage2, 20, 7.00, "ASN-00002")

	so, err := soSvc.CreateSalesOrder(ctx, testCompanyID, 1, locShipping, []core.SOLineInput{
		{ItemCode: "WID-A", Quantity: decimal.NewFromInt(50)},
		{ItemCode: "WID-B", Quantity: decimal.NewFromInt(20)},
	}, "")
	if err != nil {
		t.Fatalf("CreateSalesOrder failed: %v", err)
	}

	// Shipping before picking is rejected.
	if _, err := soSvc.Ship(ctx, testCompanyID, so.ID); err == nil {
		t.Fatal("Expected shipping a PENDING order to fail")
	}

	picking, err := pickSvc.CreatePicking(ctx, testCompanyID, so.ID, []core.PickingLineInput{
		{SalesOrderDetailID: so.Details[0].ID, QuantityRequired: decimal.NewFromInt(50)},
		{SalesOrderDetailID: so.Details[1].ID, QuantityRequired: decimal.NewFromInt(20), SourceLocationID: intPtr(locStorage2)},
	})
	if err != nil {
		t.Fatalf("CreatePicking failed: %v", err)
	}
	if picking.Number != "PK-00001" {
		t.Errorf("Expected number PK-00001, got %q", picking.Number)
	}

	so, err = soSvc.GetSalesOrder(ctx, testCompanyID, so.ID)
	if err != nil {
		t.Fatalf("GetSalesOrder failed: %v", err)
	}
	if so.Status != core.SOInProgress {
		t.Errorf("Expected order IN_PROGRESS after picking creation, got %s", so.Status)
	}

	// The first line has no source assigned yet; picking it must fail and
	// never fall back to a default location, whatever the caller names.
	_, err = pickSvc.ProcessPicking(ctx, testCompanyID, picking.Details[0].ID, decimal.NewFromInt(50), locStorage1)
	if !errors.Is(err, core.ErrMissingSourceLocation) {
		t.Fatalf("Expected ErrMissingSourceLocation, got %v", err)
	}

	picking, err = pickSvc.AssignSource(ctx, testCompanyID, picking.Details[0].ID, locStorage1)
	if err != nil {
		t.Fatalf("AssignSource failed: %v", err)
	}

	// Over-picking a line is rejected.
	_, err = pickSvc.ProcessPicking(ctx, testCompanyID, picking.Details[0].ID, decimal.NewFromInt(60), locStorage1)
	var mismatch *core.QuantityMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected QuantityMismatchError, got %v", err)
	}

	picking, err = pickSvc.ProcessPicking(ctx, testCompanyID, picking.Details[0].ID, decimal.NewFromInt(50), locStorage1)
	if err != nil {
		t.Fatalf("ProcessPicking line 1 failed: %v", err)
	}
	if picking.Status != core.PickingInProgress {
		t.Errorf("Expected picking IN_PROGRESS, got %s", picking.Status)
	}

	picking, err = pickSvc.ProcessPicking(ctx, testCompanyID, picking.Details[1].ID, decimal.NewFromInt(20), locStorage2)
	if err != nil {
		t.Fatalf("ProcessPicking line 2 failed: %v", err)
	}
	if picking.Status != core.PickingCompleted {
		t.Errorf("Expected picking COMPLETED, got %s", picking.Status)
	}

	so, err = soSvc.GetSalesOrder(ctx, testCompanyID, so.ID)
	if err != nil {
		t.Fatalf("GetSalesOrder failed: %v", err)
	}
	if so.Status != core.SOPicked {
		t.Errorf("Expected order PICKED, got %s", so.Status)
	}
	if c := getCapacity(t, pool, locShipping); !c.Equal(decimal.NewFromInt(70)) {
		t.Errorf("Expected 70 staged in holding, got %s", c)
	}

	// Shipment drains the holding location completely.
	so, err = soSvc.Ship(ctx, testCompanyID, so.ID)
	if err != nil {
		t.Fatalf("Ship failed: %v", err)
	}
	if so.Status != core.SOShipped {
		t.Errorf("Expected order SHIPPED, got %s", so.Status)
	}
	if so.ShippedAt == nil {
		t.Error("Expected shipped_at to be set")
	}
	if c := getCapacity(t, pool, locShipping); !c.IsZero() {
		t.Errorf("Expected empty holding after shipment, got %s", c)
	}

	var shipments int
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM stock_movements WHERE movement_type = 'SHIPMENT'",
	).Scan(&shipments); err != nil {
		t.Fatalf("Failed to count shipment movements: %v", err)
	}
	if shipments != 2 {
		t.Errorf("Expected 2 shipment movements, got %d", shipments)
	}
	assertLedgerConsistent(t, pool)
}

func TestPicking_RequiredCannotExceedOrdered(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	soSvc, pickSvc, _ := newShippingServices(pool)
	seedStock(t, pool, itemWidgetA, locStorage1, 100, 4.50, "ASN-00001")

	so, err := soSvc.CreateSalesOrder(ctx, testCompanyID, 1, locShipping, []core.SOLineInput{
		{ItemCode: "WID-A", Quantity: decimal.NewFromInt(30)},
	}, "")
	if err != nil {
		t.Fatalf("CreateSalesOrder failed: %v", err)
	}

	_, err = pickSvc.CreatePicking(ctx, testCompanyID, so.ID, []core.PickingLineInput{
		{SalesOrderDetailID: so.Details[0].ID, QuantityRequired: decimal.NewFromInt(40)},
	})
	var mismatch *core.QuantityMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("Expected QuantityMismatchError, got %v", err)
	}
}

func TestPicking_StaleSourceAssignmentRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	soSvc, pickSvc, _ := newShippingServices(pool)
	seedStock(t, pool, itemWidgetA, locStorage1, 50, 4.50, "ASN-00001")
	seedStock(t, pool, itemWidgetA, locStorage2, 50, 4.50, "ASN-00002")

	so, err := soSvc.CreateSalesOrder(ctx, testCompanyID, 1, locShipping, []core.SOLineInput{
		{ItemCode: "WID-A", Quantity: decimal.NewFromInt(30)},
	}, "")
	if err != nil {
		t.Fatalf("CreateSalesOrder failed: %v", err)
	}
	picking, err := pickSvc.CreatePicking(ctx, testCompanyID, so.ID, []core.PickingLineInput{
		{SalesOrderDetailID: so.Details[0].ID, QuantityRequired: decimal.NewFromInt(30), SourceLocationID: intPtr(locStorage1)},
	})
	if err != nil {
		t.Fatalf("CreatePicking failed: %v", err)
	}

	// The line is re-assigned to a different storage location, as a second
	// request would do. A pick still naming the old source must fail instead
	// of draining whatever the line now points at.
	if _, err := pickSvc.AssignSource(ctx, testCompanyID, picking.Details[0].ID, locStorage2); err != nil {
		t.Fatalf("AssignSource failed: %v", err)
	}
	_, err = pickSvc.ProcessPicking(ctx, testCompanyID, picking.Details[0].ID, decimal.NewFromInt(30), locStorage1)
	var stale *core.SourceLocationMismatchError
	if !errors.As(err, &stale) {
		t.Fatalf("Expected SourceLocationMismatchError, got %v", err)
	}
	if stale.Requested != locStorage1 || stale.Recorded != locStorage2 {
		t.Errorf("Expected mismatch %d vs %d, got %d vs %d",
			locStorage1, locStorage2, stale.Requested, stale.Recorded)
	}

	// Neither storage location lost stock on the rejected pick.
	if q := getRecord(t, pool, itemWidgetA, locStorage1).Quantity; !q.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Old source quantity changed after rejected pick: %s", q)
	}
	if q := getRecord(t, pool, itemWidgetA, locStorage2).Quantity; !q.Equal(decimal.NewFromInt(50)) {
		t.Errorf("Recorded source quantity changed after rejected pick: %s", q)
	}

	// Naming the recorded source succeeds.
	picking, err = pickSvc.ProcessPicking(ctx, testCompanyID, picking.Details[0].ID, decimal.NewFromInt(30), locStorage2)
	if err != nil {
		t.Fatalf("ProcessPicking with recorded source failed: %v", err)
	}
	if picking.Status != core.PickingCompleted {
		t.Errorf("Expected picking COMPLETED, got %s", picking.Status)
	}
	if q := getRecord(t, pool, itemWidgetA, locStorage2).Quantity; !q.Equal(decimal.NewFromInt(20)) {
		t.Errorf("Expected 20 remaining at recorded source, got %s", q)
	}
	assertLedgerConsistent(t, pool)
}

func TestSalesOrder_CancelCascadesToPicking(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	soSvc, pickSvc, _ := newShippingServices(pool)
	seedStock(t, pool, itemWidgetA, locStorage1, 100, 4.50, "ASN-00001")

	so, err := soSvc.CreateSalesOrder(ctx, testCompanyID, 1, locShipping, []core.SOLineInput{
		{ItemCode: "WID-A", Quantity: decimal.NewFromInt(40)},
	}, "")
	if err != nil {
		t.Fatalf("CreateSalesOrder failed: %v", err)
	}
	picking, err := pickSvc.CreatePicking(ctx, testCompanyID, so.ID, []core.PickingLineInput{
		{SalesOrderDetailID: so.Details[0].ID, QuantityRequired: decimal.NewFromInt(40), SourceLocationID: intPtr(locStorage1)},
	})
	if err != nil {
		t.Fatalf("CreatePicking failed: %v", err)
	}
	// Pick part of the line so stock sits in holding when the order dies.
	if _, err := pickSvc.ProcessPicking(ctx, testCompanyID, picking.Details[0].ID, decimal.NewFromInt(15), locStorage1); err != nil {
		t.Fatalf("ProcessPicking failed: %v", err)
	}

	so, err = soSvc.CancelSalesOrder(ctx, testCompanyID, so.ID, "customer withdrew")
	if err != nil {
		t.Fatalf("CancelSalesOrder failed: %v", err)
	}
	if so.Status != core.SOCancelled {
		t.Errorf("Expected order CANCELLED, got %s", so.Status)
	}

	picking, err = pickSvc.GetPicking(ctx, testCompanyID, picking.ID)
	if err != nil {
		t.Fatalf("GetPicking failed: %v", err)
	}
	if picking.Status != core.PickingCancelled {
		t.Errorf("Expected picking CANCELLED with its order, got %s", picking.Status)
	}

	// Picked stock stays staged in the holding location; cancellation does
	// not move it back.
	if c := getCapacity(t, pool, locShipping); !c.Equal(decimal.NewFromInt(15)) {
		t.Errorf("Expected 15 still staged in holding, got %s", c)
	}
	assertLedgerConsistent(t, pool)
}

func TestPicking_CancelTakesOrderWithIt(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	soSvc, pickSvc, _ := newShippingServices(pool)
	seedStock(t, pool, itemWidgetA, locStorage1, 100, 4.50, "ASN-00001")

	so, err := soSvc.CreateSalesOrder(ctx, testCompanyID, 1, locShipping, []core.SOLineInput{
		{ItemCode: "WID-A", Quantity: decimal.NewFromInt(40)},
	}, "")
	if err != nil {
		t.Fatalf("CreateSalesOrder failed: %v", err)
	}
	picking, err := pickSvc.CreatePicking(ctx, testCompanyID, so.ID, []core.PickingLineInput{
		{SalesOrderDetailID: so.Details[0].ID, QuantityRequired: decimal.NewFromInt(40), SourceLocationID: intPtr(locStorage1)},
	})
	if err != nil {
		t.Fatalf("CreatePicking failed: %v", err)
	}

	picking, err = pickSvc.CancelPicking(ctx, testCompanyID, picking.ID, "mispick")
	if err != nil {
		t.Fatalf("CancelPicking failed: %v", err)
	}
	if picking.Status != core.PickingCancelled {
		t.Errorf("Expected picking CANCELLED, got %s", picking.Status)
	}

	so, err = soSvc.GetSalesOrder(ctx, testCompanyID, so.ID)
	if err != nil {
		t.Fatalf("GetSalesOrder failed: %v", err)
	}
	if so.Status != core.SOCancelled {
		t.Errorf("Expected order cancelled together with its picking, got %s", so.Status)
	}
}

func TestPicking_ConcurrentOrdersRaceForSameStock(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	soSvc, pickSvc, _ := newShippingServices(pool)
	// 100 units; two orders of 60 each can both be created only while stock
	// lasts, but picking serializes on the stock rows.
	seedStock(t, pool, itemWidgetA, locStorage1, 100, 4.50, "ASN-00001")

	so1, err := soSvc.CreateSalesOrder(ctx, testCompanyID, 1, locShipping, []core.SOLineInput{
		{ItemCode: "WID-A", Quantity: decimal.NewFromInt(60)},
	}, "")
	if err != nil {
		t.Fatalf("CreateSalesOrder 1 failed: %v", err)
	}
	so2, err := soSvc.CreateSalesOrder(ctx, testCompanyID, 1, locShipping, []core.SOLineInput{
		{ItemCode: "WID-A", Quantity: decimal.NewFromInt(60)},
	}, "")
	if err != nil {
		t.Fatalf("CreateSalesOrder 2 failed: %v", err)
	}

	p1, err := pickSvc.CreatePicking(ctx, testCompanyID, so1.ID, []core.PickingLineInput{
		{SalesOrderDetailID: so1.Details[0].ID, QuantityRequired: decimal.NewFromInt(60), SourceLocationID: intPtr(locStorage1)},
	})
	if err != nil {
		t.Fatalf("CreatePicking 1 failed: %v", err)
	}
	p2, err := pickSvc.CreatePicking(ctx, testCompanyID, so2.ID, []core.PickingLineInput{
		{SalesOrderDetailID: so2.Details[0].ID, QuantityRequired: decimal.NewFromInt(60), SourceLocationID: intPtr(locStorage1)},
	})
	if err != nil {
		t.Fatalf("CreatePicking 2 failed: %v", err)
	}

	_, err1 := pickSvc.ProcessPicking(ctx, testCompanyID, p1.Details[0].ID, decimal.NewFromInt(60), locStorage1)
	_, err2 := pickSvc.ProcessPicking(ctx, testCompanyID, p2.Details[0].ID, decimal.NewFromInt(60), locStorage1)

	// The first pick drains 60 of 100; the second must fail on the remaining 40.
	if err1 != nil {
		t.Fatalf("First pick failed: %v", err1)
	}
	var insufficient *core.InsufficientStockError
	if !errors.As(err2, &insufficient) {
		t.Fatalf("Expected InsufficientStockError on second pick, got %v", err2)
	}
	if !insufficient.Available.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected 40 available in error, got %s", insufficient.Available)
	}

	src := getRecord(t, pool, itemWidgetA, locStorage1)
	if !src.Quantity.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected 40 remaining at source, got %s", src.Quantity)
	}
	assertLedgerConsistent(t, pool)
}
