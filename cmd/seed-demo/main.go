package main

import (
	"context"
	"log"

	"warehouse-engine/internal/core"
	"warehouse-engine/internal/db"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Seeds a demo company with items, locations and partners so the server can
// be exercised right after migrations. Safe to run once on an empty database;
// it refuses to touch a database that already has a company.
func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	pool, err := db.NewPool(ctx)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer pool.Close()

	var companies int
	if err := pool.QueryRow(ctx, "SELECT COUNT(*) FROM companies").Scan(&companies); err != nil {
		log.Fatalf("count companies: %v", err)
	}
	if companies > 0 {
		log.Fatal("database already seeded; refusing to seed again")
	}

	var companyID int
	err = pool.QueryRow(ctx,
		"INSERT INTO companies (company_code, name) VALUES ('1000', 'Demo Warehouse GmbH') RETURNING id",
	).Scan(&companyID)
	if err != nil {
		log.Fatalf("insert company: %v", err)
	}
	log.Printf("company 1000 created (id %d)", companyID)

	items := core.NewItemService(pool)
	locations := core.NewLocationService(pool)
	partners := core.NewPartnerService(pool)

	type itemSeed struct {
		code, name, unit string
		purchase, sale   float64
	}
	for _, it := range []itemSeed{
		{"WIDGET-A", "Widget Type A", "pcs", 4.50, 9.90},
		{"WIDGET-B", "Widget Type B", "pcs", 7.25, 14.50},
		{"GEAR-10", "Gear 10mm", "pcs", 1.10, 2.80},
		{"PLATE-XL", "Steel Plate XL", "pcs", 22.00, 39.00},
	} {
		if _, err := items.CreateItem(ctx, companyID, it.code, it.name, it.unit,
			decimal.NewFromFloat(it.purchase), decimal.NewFromFloat(it.sale)); err != nil {
			log.Fatalf("insert item %s: %v", it.code, err)
		}
		log.Printf("item %s created", it.code)
	}

	type locationSeed struct {
		code, name string
		category   core.LocationCategory
		capacity   int64
	}
	for _, ls := range []locationSeed{
		{"STO-01", "Storage Aisle 1", core.CategoryStorage, 500},
		{"STO-02", "Storage Aisle 2", core.CategoryStorage, 500},
		{"STO-03", "Storage Aisle 3", core.CategoryStorage, 250},
		{"REC-01", "Receiving Dock", core.CategoryOther, 1000},
		{"SHP-01", "Shipping Staging", core.CategoryOther, 1000},
	} {
		if _, err := locations.CreateLocation(ctx, companyID, ls.code, ls.name, ls.category,
			decimal.NewFromInt(ls.capacity)); err != nil {
			log.Fatalf("insert location %s: %v", ls.code, err)
		}
		log.Printf("location %s created", ls.code)
	}

	if _, err := partners.CreateSupplier(ctx, companyID,
		"SUP-001", "Acme Components Ltd", "sales@acme.example", "+49 30 1234567", "Industriestr. 1, Berlin"); err != nil {
		log.Fatalf("insert supplier: %v", err)
	}
	log.Println("supplier SUP-001 created")

	if _, err := partners.CreateCustomer(ctx, companyID,
		"CUS-001", "Nordsee Retail AG", "orders@nordsee.example", "+49 40 7654321", "Hafenweg 12, Hamburg"); err != nil {
		log.Fatalf("insert customer: %v", err)
	}
	log.Println("customer CUS-001 created")

	log.Println("demo seed complete")
}
