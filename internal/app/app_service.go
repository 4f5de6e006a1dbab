package app

import (
	"context"
	"fmt"
	"os"

	"warehouse-engine/internal/core"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type appService struct {
	pool       *pgxpool.Pool
	items      core.ItemService
	locations  core.LocationService
	partners   core.PartnerService
	stock      core.StockService
	purchasing core.PurchaseOrderService
	receiving  core.ASNService
	sales      core.SalesOrderService
	picking    core.PickingService
}

// NewAppService constructs an appService that satisfies ApplicationService.
func NewAppService(
	pool *pgxpool.Pool,
	items core.ItemService,
	locations core.LocationService,
	partners core.PartnerService,
	stock core.StockService,
	purchasing core.PurchaseOrderService,
	receiving core.ASNService,
	sales core.SalesOrderService,
	picking core.PickingService,
) ApplicationService {
	return &appService{
		pool:       pool,
		items:      items,
		locations:  locations,
		partners:   partners,
		stock:      stock,
		purchasing: purchasing,
		receiving:  receiving,
		sales:      sales,
		picking:    picking,
	}
}

func (s *appService) companyID(ctx context.Context, companyCode string) (int, error) {
	return core.ResolveCompany(ctx, s.pool, companyCode)
}

// ── Master data ──────────────────────────────────────────────────────────────

func (s *appService) ListItems(ctx context.Context, companyCode string) (*ItemListResult, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	items, err := s.items.GetItems(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return &ItemListResult{CompanyCode: companyCode, Items: items}, nil
}

func (s *appService) CreateItem(ctx context.Context, req CreateItemRequest) (*core.Item, error) {
	companyID, err := s.companyID(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	return s.items.CreateItem(ctx, companyID, req.Code, req.Name, req.Unit, req.PurchasePrice, req.SalePrice)
}

func (s *appService) ListLocations(ctx context.Context, companyCode string) (*LocationListResult, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	locations, err := s.locations.GetLocations(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return &LocationListResult{CompanyCode: companyCode, Locations: locations}, nil
}

func (s *appService) CreateLocation(ctx context.Context, req CreateLocationRequest) (*core.Location, error) {
	companyID, err := s.companyID(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	return s.locations.CreateLocation(ctx, companyID, req.Code, req.Name, req.Category, req.MaxCapacity)
}

func (s *appService) SetLocationActive(ctx context.Context, companyCode string, locationID int, active bool) error {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return err
	}
	return s.locations.SetLocationActive(ctx, companyID, locationID, active)
}

func (s *appService) ListSuppliers(ctx context.Context, companyCode string) (*SupplierListResult, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	suppliers, err := s.partners.GetSuppliers(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return &SupplierListResult{Suppliers: suppliers}, nil
}

func (s *appService) CreateSupplier(ctx context.Context, req CreatePartnerRequest) (*core.Supplier, error) {
	companyID, err := s.companyID(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	return s.partners.CreateSupplier(ctx, companyID, req.Code, req.Name, req.Email, req.Phone, req.Address)
}

func (s *appService) ListCustomers(ctx context.Context, companyCode string) (*CustomerListResult, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	customers, err := s.partners.GetCustomers(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return &CustomerListResult{Customers: customers}, nil
}

func (s *appService) CreateCustomer(ctx context.Context, req CreatePartnerRequest) (*core.Customer, error) {
	companyID, err := s.companyID(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	return s.partners.CreateCustomer(ctx, companyID, req.Code, req.Name, req.Email, req.Phone, req.Address)
}

// ── Inventory ────────────────────────────────────────────────────────────────

func (s *appService) GetStockLevels(ctx context.Context, companyCode string) (*StockResult, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	levels, err := s.stock.GetStockLevels(ctx, companyID)
	if err != nil {
		return nil, err
	}
	return &StockResult{CompanyCode: companyCode, Levels: levels}, nil
}

func (s *appService) GetMovements(ctx context.Context, companyCode string, itemID *int) (*MovementListResult, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	movements, err := s.stock.GetMovements(ctx, companyID, itemID)
	if err != nil {
		return nil, err
	}
	return &MovementListResult{CompanyCode: companyCode, Movements: movements}, nil
}

func (s *appService) SuggestPickingLocations(ctx context.Context, companyCode string, itemID int) ([]core.PickSuggestion, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.stock.SuggestPickingLocations(ctx, companyID, itemID)
}

// ── Receiving ────────────────────────────────────────────────────────────────

func (s *appService) CreatePurchaseOrder(ctx context.Context, req CreatePORequest) (*core.PurchaseOrder, error) {
	companyID, err := s.companyID(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	return s.purchasing.CreatePO(ctx, companyID, req.SupplierID, req.Lines, req.Notes)
}

func (s *appService) SendPurchaseOrder(ctx context.Context, companyCode string, poID int) (*core.PurchaseOrder, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.purchasing.SendPO(ctx, companyID, poID)
}

func (s *appService) CancelPurchaseOrder(ctx context.Context, companyCode string, poID int, reason string) (*core.PurchaseOrder, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.purchasing.CancelPO(ctx, companyID, poID, reason)
}

func (s *appService) GetPurchaseOrder(ctx context.Context, companyCode string, poID int) (*core.PurchaseOrder, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.purchasing.GetPO(ctx, companyID, poID)
}

func (s *appService) ListPurchaseOrders(ctx context.Context, companyCode string, status *string) ([]core.PurchaseOrder, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.purchasing.GetPOs(ctx, companyID, status)
}

func (s *appService) CreateASN(ctx context.Context, req CreateASNRequest) (*core.ASN, error) {
	companyID, err := s.companyID(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	var expected *string
	if req.ExpectedArrival != "" {
		expected = &req.ExpectedArrival
	}
	return s.receiving.CreateASN(ctx, companyID, req.PurchaseOrderID, req.HoldingLocationID, req.Lines, expected)
}

func (s *appService) UpdateASNStatus(ctx context.Context, companyCode string, asnID int, status core.ASNStatus) (*core.ASN, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.receiving.UpdateASNStatus(ctx, companyID, asnID, status)
}

func (s *appService) ProcessPutaway(ctx context.Context, companyCode string, asnDetailID int, quantity decimal.Decimal, targetLocationID int) (*core.ASN, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.receiving.ProcessPutaway(ctx, companyID, asnDetailID, quantity, targetLocationID)
}

func (s *appService) CancelASN(ctx context.Context, companyCode string, asnID int, reason string) (*core.ASN, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.receiving.CancelASN(ctx, companyID, asnID, reason)
}

func (s *appService) GetASN(ctx context.Context, companyCode string, asnID int) (*core.ASN, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.receiving.GetASN(ctx, companyID, asnID)
}

func (s *appService) ListASNs(ctx context.Context, companyCode string, status *string) ([]core.ASN, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.receiving.GetASNs(ctx, companyID, status)
}

// ── Shipping ─────────────────────────────────────────────────────────────────

func (s *appService) CreateSalesOrder(ctx context.Context, req CreateSORequest) (*core.SalesOrder, error) {
	companyID, err := s.companyID(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	return s.sales.CreateSalesOrder(ctx, companyID, req.CustomerID, req.HoldingLocationID, req.Lines, req.Notes)
}

func (s *appService) ShipSalesOrder(ctx context.Context, companyCode string, soID int) (*core.SalesOrder, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.sales.Ship(ctx, companyID, soID)
}

func (s *appService) CancelSalesOrder(ctx context.Context, companyCode string, soID int, reason string) (*core.SalesOrder, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.sales.CancelSalesOrder(ctx, companyID, soID, reason)
}

func (s *appService) GetSalesOrder(ctx context.Context, companyCode string, soID int) (*core.SalesOrder, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.sales.GetSalesOrder(ctx, companyID, soID)
}

func (s *appService) ListSalesOrders(ctx context.Context, companyCode string, status *string) ([]core.SalesOrder, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.sales.GetSalesOrders(ctx, companyID, status)
}

func (s *appService) CreatePicking(ctx context.Context, req CreatePickingRequest) (*core.Picking, error) {
	companyID, err := s.companyID(ctx, req.CompanyCode)
	if err != nil {
		return nil, err
	}
	return s.picking.CreatePicking(ctx, companyID, req.SalesOrderID, req.Lines)
}

func (s *appService) AssignPickingSource(ctx context.Context, companyCode string, pickingDetailID, sourceLocationID int) (*core.Picking, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.picking.AssignSource(ctx, companyID, pickingDetailID, sourceLocationID)
}

func (s *appService) ProcessPicking(ctx context.Context, companyCode string, pickingDetailID int, quantity decimal.Decimal, sourceLocationID int) (*core.Picking, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.picking.ProcessPicking(ctx, companyID, pickingDetailID, quantity, sourceLocationID)
}

func (s *appService) CancelPicking(ctx context.Context, companyCode string, pickingID int, reason string) (*core.Picking, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.picking.CancelPicking(ctx, companyID, pickingID, reason)
}

func (s *appService) GetPicking(ctx context.Context, companyCode string, pickingID int) (*core.Picking, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.picking.GetPicking(ctx, companyID, pickingID)
}

func (s *appService) ListPickings(ctx context.Context, companyCode string, status *string) ([]core.Picking, error) {
	companyID, err := s.companyID(ctx, companyCode)
	if err != nil {
		return nil, err
	}
	return s.picking.GetPickings(ctx, companyID, status)
}

// LoadDefaultCompany loads the active company, using COMPANY_CODE env var if set.
func (s *appService) LoadDefaultCompany(ctx context.Context) (*core.Company, error) {
	if code := os.Getenv("COMPANY_CODE"); code != "" {
		c := &core.Company{}
		err := s.pool.QueryRow(ctx,
			"SELECT id, company_code, name FROM companies WHERE company_code = $1", code,
		).Scan(&c.ID, &c.CompanyCode, &c.Name)
		if err != nil {
			return nil, fmt.Errorf("company %s not found: %w", code, err)
		}
		return c, nil
	}

	var count int
	if err := s.pool.QueryRow(ctx, "SELECT COUNT(*) FROM companies").Scan(&count); err != nil {
		return nil, fmt.Errorf("failed to count companies: %w", err)
	}
	if count > 1 {
		return nil, fmt.Errorf("multiple companies found; set COMPANY_CODE env var (e.g. COMPANY_CODE=1000)")
	}

	c := &core.Company{}
	if err := s.pool.QueryRow(ctx,
		"SELECT id, company_code, name FROM companies LIMIT 1",
	).Scan(&c.ID, &c.CompanyCode, &c.Name); err != nil {
		return nil, fmt.Errorf("no default company found, have migrations run?: %w", err)
	}
	return c, nil
}
