package main

import (
	"context"
	"log"
	"os"

	"warehouse-engine/internal/db"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

// Cross-checks the invariants the engine maintains: the capacity ledger must
// equal the stock record sums per location, flags and bounds must hold, and
// document lines must stay within their announced quantities. Exits non-zero
// when any check fails.
func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	failures := 0
	failures += checkCapacityLedger(ctx, pool)
	failures += checkCapacityBounds(ctx, pool)
	failures += checkFullFlags(ctx, pool)
	failures += checkStockQuantities(ctx, pool)
	failures += checkEmptyStatus(ctx, pool)
	failures += checkPutawayBounds(ctx, pool)
	failures += checkPickBounds(ctx, pool)

	if failures > 0 {
		log.Printf("[FAIL] %d check(s) failed", failures)
		os.Exit(1)
	}
	log.Println("[OK] all consistency checks passed")
}

// checkCapacityLedger verifies current_capacity equals the sum of stock
// record quantities at every location.
func checkCapacityLedger(ctx context.Context, pool *pgxpool.Pool) int {
	rows, err := pool.Query(ctx, `
		SELECT l.id, l.code, l.current_capacity, COALESCE(SUM(sr.quantity), 0)
		FROM locations l
		LEFT JOIN stock_records sr ON sr.location_id = l.id
		GROUP BY l.id, l.code, l.current_capacity
		HAVING l.current_capacity <> COALESCE(SUM(sr.quantity), 0)
	`)
	if err != nil {
		log.Fatalf("[ERROR] capacity ledger query: %v", err)
	}
	defer rows.Close()

	failures := 0
	for rows.Next() {
		var id int
		var code, ledger, actual string
		if err := rows.Scan(&id, &code, &ledger, &actual); err != nil {
			log.Fatalf("[ERROR] capacity ledger scan: %v", err)
		}
		log.Printf("[FAIL] location %s (id %d): ledger %s, stock sum %s", code, id, ledger, actual)
		failures++
	}
	if failures == 0 {
		log.Println("[OK] capacity ledger matches stock sums")
	}
	return failures
}

// checkCapacityBounds verifies 0 <= current_capacity <= max_capacity.
func checkCapacityBounds(ctx context.Context, pool *pgxpool.Pool) int {
	return countCheck(ctx, pool, "capacity bounds", `
		SELECT COUNT(*)
		FROM locations
		WHERE current_capacity < 0 OR current_capacity > max_capacity
	`)
}

// checkFullFlags verifies is_full mirrors current_capacity >= max_capacity.
func checkFullFlags(ctx context.Context, pool *pgxpool.Pool) int {
	return countCheck(ctx, pool, "is_full flags", `
		SELECT COUNT(*)
		FROM locations
		WHERE is_full <> (current_capacity >= max_capacity)
	`)
}

// checkStockQuantities verifies no stock record is negative.
func checkStockQuantities(ctx context.Context, pool *pgxpool.Pool) int {
	return countCheck(ctx, pool, "stock quantities", `
		SELECT COUNT(*)
		FROM stock_records
		WHERE quantity < 0
	`)
}

// checkEmptyStatus verifies EMPTY records hold zero and AVAILABLE records
// hold a positive quantity.
func checkEmptyStatus(ctx context.Context, pool *pgxpool.Pool) int {
	return countCheck(ctx, pool, "empty/available status", `
		SELECT COUNT(*)
		FROM stock_records
		WHERE (status = 'EMPTY' AND quantity <> 0)
		   OR (status = 'AVAILABLE' AND quantity <= 0)
	`)
}

// checkPutawayBounds verifies no ASN line was put away beyond its shipped
// quantity.
func checkPutawayBounds(ctx context.Context, pool *pgxpool.Pool) int {
	return countCheck(ctx, pool, "putaway bounds", `
		SELECT COUNT(*)
		FROM asn_details
		WHERE already_put_away_quantity > shipped_quantity
		   OR already_put_away_quantity < 0
	`)
}

// checkPickBounds verifies no picking line was picked beyond its requirement.
func checkPickBounds(ctx context.Context, pool *pgxpool.Pool) int {
	return countCheck(ctx, pool, "pick bounds", `
		SELECT COUNT(*)
		FROM picking_details
		WHERE quantity_picked > quantity_required
		   OR quantity_picked < 0
	`)
}

func countCheck(ctx context.Context, pool *pgxpool.Pool, name, query string) int {
	var count int
	if err := pool.QueryRow(ctx, query).Scan(&count); err != nil {
		log.Fatalf("[ERROR] %s query: %v", name, err)
	}
	if count > 0 {
		log.Printf("[FAIL] %s: %d violating row(s)", name, count)
		return 1
	}
	log.Printf("[OK] %s", name)
	return 0
}
