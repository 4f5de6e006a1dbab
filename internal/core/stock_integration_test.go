package core_test

import (
	"context"
	"errors"
	"os"
	"sync"
	"testing"

	"warehouse-engine/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Fixed IDs seeded by setupTestDB.
const (
	testCompanyID = 1
	itemWidgetA   = 1
	itemWidgetB   = 2
	locStorage1   = 1
	locStorage2   = 2
	locReceiving  = 3
	locShipping   = 4
	locSmall      = 5 // storage with max capacity 50
)

func setupTestDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	_ = godotenv.Load("../../.env")

	// Use a dedicated TEST database to avoid wiping the live app database.
	// Set TEST_DATABASE_URL in your .env or environment to run integration tests.
	dbURL := os.Getenv("TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("TEST_DATABASE_URL not set — skipping integration test to protect live database")
	}

	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("Failed to connect to test database: %v", err)
	}

	_, err = pool.Exec(ctx, `
		TRUNCATE TABLE picking_details, pickings, sales_order_details, sales_orders,
			asn_details, asns, purchase_order_details, purchase_orders,
			stock_movements, stock_records, document_sequences,
			locations, customers, suppliers, items, companies
		RESTART IDENTITY CASCADE;

		INSERT INTO companies (id, company_code, name) VALUES (1, '1000', 'Test Warehouse');

		INSERT INTO items (id, company_id, code, name, unit, purchase_price, sale_price) VALUES
		(1, 1, 'WID-A', 'Widget A', 'pcs', 4.50, 9.00),
		(2, 1, 'WID-B', 'Widget B', 'pcs', 7.00, 14.00);

		INSERT INTO locations (id, company_id, code, name, category, max_capacity) VALUES
		(1, 1, 'STO-01', 'Storage 1',        'STORAGE', 1000),
		(2, 1, 'STO-02', 'Storage 2',        'STORAGE', 1000),
		(3, 1, 'REC-01', 'Receiving Dock',   'OTHER',   1000),
		(4, 1, 'SHP-01', 'Shipping Staging', 'OTHER',   1000),
		(5, 1, 'STO-SM', 'Small Storage',    'STORAGE', 50);

		INSERT INTO suppliers (id, company_id, code, name) VALUES (1, 1, 'SUP-001', 'Test Supplier');
		INSERT INTO customers (id, company_id, code, name) VALUES (1, 1, 'CUS-001', 'Test Customer');

		SELECT setval('items_id_seq', 10);
		SELECT setval('locations_id_seq', 10);
		SELECT setval('suppliers_id_seq', 10);
		SELECT setval('customers_id_seq', 10);
	`)
	if err != nil {
		t.Fatalf("Failed to seed test database: %v", err)
	}

	return pool
}

// seedStock inserts an AVAILABLE stock record and books its quantity on the
// location's capacity ledger, bypassing the transfer path.
func seedStock(t *testing.T, pool *pgxpool.Pool, itemID, locationID int, qty, cost float64, ref string) {
	t.Helper()
	ctx := context.Background()
	_, err := pool.Exec(ctx, `
		INSERT INTO stock_records (company_id, item_id, location_id, quantity, status, last_cost_price, source_reference)
		VALUES (1, $1, $2, $3, 'AVAILABLE', $4, $5)
	`, itemID, locationID, qty, cost, ref)
	if err != nil {
		t.Fatalf("Failed to seed stock record: %v", err)
	}
	_, err = pool.Exec(ctx, `
		UPDATE locations
		SET current_capacity = current_capacity + $1,
		    is_full = current_capacity + $1 >= max_capacity
		WHERE id = $2
	`, qty, locationID)
	if err != nil {
		t.Fatalf("Failed to book seeded capacity: %v", err)
	}
}

type recordState struct {
	Quantity  decimal.Decimal
	Status    core.StockStatus
	Cost      decimal.Decimal
	Reference string
}

func getRecord(t *testing.T, pool *pgxpool.Pool, itemID, locationID int) recordState {
	t.Helper()
	var rs recordState
	err := pool.QueryRow(context.Background(), `
		SELECT quantity, status, last_cost_price, source_reference
		FROM stock_records
		WHERE company_id = 1 AND item_id = $1 AND location_id = $2
	`, itemID, locationID).Scan(&rs.Quantity, &rs.Status, &rs.Cost, &rs.Reference)
	if err != nil {
		t.Fatalf("Failed to fetch stock record (item %d, location %d): %v", itemID, locationID, err)
	}
	return rs
}

func getCapacity(t *testing.T, pool *pgxpool.Pool, locationID int) decimal.Decimal {
	t.Helper()
	var c decimal.Decimal
	err := pool.QueryRow(context.Background(),
		"SELECT current_capacity FROM locations WHERE id = $1", locationID,
	).Scan(&c)
	if err != nil {
		t.Fatalf("Failed to fetch capacity for location %d: %v", locationID, err)
	}
	return c
}

// assertLedgerConsistent verifies every location's capacity ledger equals the
// sum of its stock record quantities.
func assertLedgerConsistent(t *testing.T, pool *pgxpool.Pool) {
	t.Helper()
	var violations int
	err := pool.QueryRow(context.Background(), `
		SELECT COUNT(*) FROM (
			SELECT l.id
			FROM locations l
			LEFT JOIN stock_records sr ON sr.location_id = l.id
			GROUP BY l.id, l.current_capacity
			HAVING l.current_capacity <> COALESCE(SUM(sr.quantity), 0)
		) AS drift
	`).Scan(&violations)
	if err != nil {
		t.Fatalf("Failed to check ledger consistency: %v", err)
	}
	if violations > 0 {
		t.Errorf("capacity ledger out of sync with stock sums at %d location(s)", violations)
	}
}

func intPtr(v int) *int { return &v }

// ── Transfer operator ────────────────────────────────────────────────────────

func TestTransfer_MovesStockBetweenLocations(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	seedStock(t, pool, itemWidgetA, locReceiving, 100, 4.50, "ASN-00001")
	stock := core.NewStockService(pool)

	err := stock.Transfer(ctx, testCompanyID, core.TransferRequest{
		ItemID:                itemWidgetA,
		SourceLocationID:      intPtr(locReceiving),
		DestinationLocationID: intPtr(locStorage1),
		Quantity:              decimal.NewFromInt(60),
		UnitCost:              decimal.NewFromFloat(4.50),
		MovementType:          core.MovementPutaway,
		Reference:             "ASN-00001",
	})
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	src := getRecord(t, pool, itemWidgetA, locReceiving)
	if !src.Quantity.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected source quantity 40, got %s", src.Quantity)
	}
	dst := getRecord(t, pool, itemWidgetA, locStorage1)
	if !dst.Quantity.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Expected destination quantity 60, got %s", dst.Quantity)
	}
	if dst.Status != core.StockAvailable {
		t.Errorf("Expected destination status AVAILABLE, got %s", dst.Status)
	}

	if c := getCapacity(t, pool, locReceiving); !c.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected receiving capacity 40, got %s", c)
	}
	if c := getCapacity(t, pool, locStorage1); !c.Equal(decimal.NewFromInt(60)) {
		t.Errorf("Expected storage capacity 60, got %s", c)
	}

	var movements int
	if err := pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM stock_movements WHERE company_id = 1 AND movement_type = 'PUTAWAY'",
	).Scan(&movements); err != nil {
		t.Fatalf("Failed to count movements: %v", err)
	}
	if movements != 1 {
		t.Errorf("Expected 1 putaway movement, got %d", movements)
	}
	assertLedgerConsistent(t, pool)
}

func TestTransfer_InsufficientStockLeavesStateUntouched(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	seedStock(t, pool, itemWidgetA, locStorage1, 30, 4.50, "ASN-00001")
	stock := core.NewStockService(pool)

	err := stock.Transfer(ctx, testCompanyID, core.TransferRequest{
		ItemID:                itemWidgetA,
		SourceLocationID:      intPtr(locStorage1),
		DestinationLocationID: intPtr(locStorage2),
		Quantity:              decimal.NewFromInt(50),
		MovementType:          core.MovementPick,
	})
	var insufficient *core.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientStockError, got %v", err)
	}
	if !insufficient.Available.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Expected available 30 in error, got %s", insufficient.Available)
	}

	src := getRecord(t, pool, itemWidgetA, locStorage1)
	if !src.Quantity.Equal(decimal.NewFromInt(30)) {
		t.Errorf("Source quantity changed after rejected transfer: %s", src.Quantity)
	}
	if c := getCapacity(t, pool, locStorage2); !c.IsZero() {
		t.Errorf("Destination capacity changed after rejected transfer: %s", c)
	}
	var destRecords int
	_ = pool.QueryRow(ctx,
		"SELECT COUNT(*) FROM stock_records WHERE location_id = $1 AND quantity > 0", locStorage2,
	).Scan(&destRecords)
	if destRecords != 0 {
		t.Errorf("Destination gained stock from a rejected transfer")
	}
	assertLedgerConsistent(t, pool)
}

func TestTransfer_CapacityExceededLeavesStateUntouched(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	seedStock(t, pool, itemWidgetA, locStorage1, 100, 4.50, "ASN-00001")
	seedStock(t, pool, itemWidgetB, locSmall, 45, 7.00, "ASN-00002")
	stock := core.NewStockService(pool)

	// locSmall has max 50 and holds 45; 10 more cannot fit.
	err := stock.Transfer(ctx, testCompanyID, core.TransferRequest{
		ItemID:                itemWidgetA,
		SourceLocationID:      intPtr(locStorage1),
		DestinationLocationID: intPtr(locSmall),
		Quantity:              decimal.NewFromInt(10),
		MovementType:          core.MovementPick,
	})
	var capacity *core.CapacityExceededError
	if !errors.As(err, &capacity) {
		t.Fatalf("Expected CapacityExceededError, got %v", err)
	}
	if !capacity.Available.Equal(decimal.NewFromInt(5)) {
		t.Errorf("Expected available capacity 5 in error, got %s", capacity.Available)
	}

	src := getRecord(t, pool, itemWidgetA, locStorage1)
	if !src.Quantity.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Source quantity changed after rejected transfer: %s", src.Quantity)
	}
	if c := getCapacity(t, pool, locSmall); !c.Equal(decimal.NewFromInt(45)) {
		t.Errorf("Destination capacity changed after rejected transfer: %s", c)
	}
	assertLedgerConsistent(t, pool)
}

func TestTransfer_SameLocationRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()

	seedStock(t, pool, itemWidgetA, locStorage1, 10, 4.50, "ASN-00001")
	stock := core.NewStockService(pool)

	err := stock.Transfer(context.Background(), testCompanyID, core.TransferRequest{
		ItemID:                itemWidgetA,
		SourceLocationID:      intPtr(locStorage1),
		DestinationLocationID: intPtr(locStorage1),
		Quantity:              decimal.NewFromInt(5),
		MovementType:          core.MovementPick,
	})
	if !errors.Is(err, core.ErrSameLocationTransfer) {
		t.Fatalf("Expected ErrSameLocationTransfer, got %v", err)
	}
}

func TestTransfer_EmptyRecordRefillRewritesCostAndReference(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	seedStock(t, pool, itemWidgetA, locStorage1, 20, 4.50, "ASN-00001")
	stock := core.NewStockService(pool)

	// Drain storage 1 completely; the record stays as EMPTY.
	err := stock.Transfer(ctx, testCompanyID, core.TransferRequest{
		ItemID:           itemWidgetA,
		SourceLocationID: intPtr(locStorage1),
		Quantity:         decimal.NewFromInt(20),
		MovementType:     core.MovementShipment,
		Reference:        "SO-00001",
	})
	if err != nil {
		t.Fatalf("Drain transfer failed: %v", err)
	}
	empty := getRecord(t, pool, itemWidgetA, locStorage1)
	if empty.Status != core.StockEmpty || !empty.Quantity.IsZero() {
		t.Fatalf("Expected EMPTY record with zero quantity, got %s %s", empty.Status, empty.Quantity)
	}

	// Refill from the receiving dock with a different cost. Cost and source
	// reference must both be rewritten.
	seedStock(t, pool, itemWidgetA, locReceiving, 30, 6.00, "ASN-00009")
	err = stock.Transfer(ctx, testCompanyID, core.TransferRequest{
		ItemID:                itemWidgetA,
		SourceLocationID:      intPtr(locReceiving),
		DestinationLocationID: intPtr(locStorage1),
		Quantity:              decimal.NewFromInt(30),
		UnitCost:              decimal.NewFromFloat(6.00),
		MovementType:          core.MovementPutaway,
		Reference:             "ASN-00009",
	})
	if err != nil {
		t.Fatalf("Refill transfer failed: %v", err)
	}

	refilled := getRecord(t, pool, itemWidgetA, locStorage1)
	if refilled.Status != core.StockAvailable {
		t.Errorf("Expected refilled status AVAILABLE, got %s", refilled.Status)
	}
	if !refilled.Cost.Equal(decimal.NewFromFloat(6.00)) {
		t.Errorf("Expected refilled cost 6.00, got %s", refilled.Cost)
	}
	if refilled.Reference != "ASN-00009" {
		t.Errorf("Expected refilled reference ASN-00009, got %s", refilled.Reference)
	}
	assertLedgerConsistent(t, pool)
}

func TestTransfer_MergeCarriesExistingCostForward(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	seedStock(t, pool, itemWidgetA, locStorage1, 50, 4.00, "ASN-00001")
	seedStock(t, pool, itemWidgetA, locReceiving, 50, 9.00, "ASN-00002")
	stock := core.NewStockService(pool)

	err := stock.Transfer(ctx, testCompanyID, core.TransferRequest{
		ItemID:                itemWidgetA,
		SourceLocationID:      intPtr(locReceiving),
		DestinationLocationID: intPtr(locStorage1),
		Quantity:              decimal.NewFromInt(50),
		UnitCost:              decimal.NewFromFloat(9.00),
		MovementType:          core.MovementPutaway,
		Reference:             "ASN-00002",
	})
	if err != nil {
		t.Fatalf("Transfer failed: %v", err)
	}

	merged := getRecord(t, pool, itemWidgetA, locStorage1)
	if !merged.Quantity.Equal(decimal.NewFromInt(100)) {
		t.Errorf("Expected merged quantity 100, got %s", merged.Quantity)
	}
	// An AVAILABLE record keeps its cost; the incoming cost does not blend.
	if !merged.Cost.Equal(decimal.NewFromFloat(4.00)) {
		t.Errorf("Expected carried-forward cost 4.00, got %s", merged.Cost)
	}
	if merged.Reference != "ASN-00001" {
		t.Errorf("Expected original reference ASN-00001, got %s", merged.Reference)
	}
}

func TestTransfer_NonAvailableSourceRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	seedStock(t, pool, itemWidgetA, locStorage1, 40, 4.50, "ASN-00001")
	_, err := pool.Exec(ctx,
		"UPDATE stock_records SET status = 'DAMAGED' WHERE item_id = $1 AND location_id = $2",
		itemWidgetA, locStorage1,
	)
	if err != nil {
		t.Fatalf("Failed to mark stock damaged: %v", err)
	}

	stock := core.NewStockService(pool)
	err = stock.Transfer(ctx, testCompanyID, core.TransferRequest{
		ItemID:                itemWidgetA,
		SourceLocationID:      intPtr(locStorage1),
		DestinationLocationID: intPtr(locStorage2),
		Quantity:              decimal.NewFromInt(10),
		MovementType:          core.MovementPick,
	})
	var insufficient *core.InsufficientStockError
	if !errors.As(err, &insufficient) {
		t.Fatalf("Expected InsufficientStockError for damaged stock, got %v", err)
	}
	if !insufficient.Available.IsZero() {
		t.Errorf("Damaged stock must count as zero available, got %s", insufficient.Available)
	}
}

func TestTransfer_InactiveLocationRejected(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	seedStock(t, pool, itemWidgetA, locStorage1, 40, 4.50, "ASN-00001")
	locations := core.NewLocationService(pool)
	if err := locations.SetLocationActive(ctx, testCompanyID, locStorage2, false); err != nil {
		t.Fatalf("Failed to deactivate location: %v", err)
	}

	stock := core.NewStockService(pool)
	err := stock.Transfer(ctx, testCompanyID, core.TransferRequest{
		ItemID:                itemWidgetA,
		SourceLocationID:      intPtr(locStorage1),
		DestinationLocationID: intPtr(locStorage2),
		Quantity:              decimal.NewFromInt(10),
		MovementType:          core.MovementPick,
	})
	var inactive *core.LocationInactiveError
	if !errors.As(err, &inactive) {
		t.Fatalf("Expected LocationInactiveError, got %v", err)
	}
}

func TestSuggestPickingLocations_OldestStockFirst(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	seedStock(t, pool, itemWidgetA, locStorage1, 30, 4.50, "ASN-00001")
	seedStock(t, pool, itemWidgetA, locStorage2, 70, 4.50, "ASN-00002")
	// Make storage 2 the older stock.
	_, err := pool.Exec(ctx, `
		UPDATE stock_records SET last_updated = now() - interval '2 days'
		WHERE item_id = $1 AND location_id = $2
	`, itemWidgetA, locStorage2)
	if err != nil {
		t.Fatalf("Failed to age stock record: %v", err)
	}
	// Holding-area stock must never be suggested.
	seedStock(t, pool, itemWidgetA, locReceiving, 500, 4.50, "ASN-00003")

	stock := core.NewStockService(pool)
	suggestions, err := stock.SuggestPickingLocations(ctx, testCompanyID, itemWidgetA)
	if err != nil {
		t.Fatalf("SuggestPickingLocations failed: %v", err)
	}
	if len(suggestions) != 2 {
		t.Fatalf("Expected 2 suggestions, got %d", len(suggestions))
	}
	if suggestions[0].LocationID != locStorage2 {
		t.Errorf("Expected oldest stock (location %d) first, got %d", locStorage2, suggestions[0].LocationID)
	}
	if !suggestions[0].Available.Equal(decimal.NewFromInt(70)) {
		t.Errorf("Expected 70 available at first suggestion, got %s", suggestions[0].Available)
	}
}

func TestTransfer_ConcurrentDrainSerializes(t *testing.T) {
	pool := setupTestDB(t)
	defer pool.Close()
	ctx := context.Background()

	seedStock(t, pool, itemWidgetA, locStorage1, 100, 4.50, "ASN-00001")
	stock := core.NewStockService(pool)

	// Two transfers race for the same 100 units, each taking 60. Row locking
	// must serialize them so exactly one succeeds.
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i := 0; i < 2; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			dest := locStorage2
			if i == 1 {
				dest = locShipping
			}
			results[i] = stock.Transfer(ctx, testCompanyID, core.TransferRequest{
				ItemID:                itemWidgetA,
				SourceLocationID:      intPtr(locStorage1),
				DestinationLocationID: intPtr(dest),
				Quantity:              decimal.NewFromInt(60),
				MovementType:          core.MovementPick,
			})
		}()
	}
	wg.Wait()

	var failures int
	for _, err := range results {
		if err != nil {
			var insufficient *core.InsufficientStockError
			if !errors.As(err, &insufficient) {
				t.Fatalf("Expected InsufficientStockError from losing transfer, got %v", err)
			}
			failures++
		}
	}
	if failures != 1 {
		t.Fatalf("Expected exactly 1 of 2 racing transfers to fail, got %d failures", failures)
	}

	src := getRecord(t, pool, itemWidgetA, locStorage1)
	if !src.Quantity.Equal(decimal.NewFromInt(40)) {
		t.Errorf("Expected 40 remaining at source, got %s", src.Quantity)
	}
	assertLedgerConsistent(t, pool)
}
