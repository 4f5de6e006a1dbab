package app

import (
	"context"

	"warehouse-engine/internal/core"

	"github.com/shopspring/decimal"
)

// ApplicationService is the single interface all adapters (HTTP, CLI tools)
// call. It decouples presentation from the engine: callers pass company codes
// and plain inputs, implementations resolve them and run the core services.
type ApplicationService interface {
	// ── Master data ──────────────────────────────────────────────────────────

	// ListItems returns all active items for a company.
	ListItems(ctx context.Context, companyCode string) (*ItemListResult, error)

	// CreateItem creates a new item.
	CreateItem(ctx context.Context, req CreateItemRequest) (*core.Item, error)

	// ListLocations returns all locations for a company, with capacity state.
	ListLocations(ctx context.Context, companyCode string) (*LocationListResult, error)

	// CreateLocation creates a new location with the given category and capacity.
	CreateLocation(ctx context.Context, req CreateLocationRequest) (*core.Location, error)

	// SetLocationActive activates or deactivates a location.
	SetLocationActive(ctx context.Context, companyCode string, locationID int, active bool) error

	// ListSuppliers returns all active suppliers for a company.
	ListSuppliers(ctx context.Context, companyCode string) (*SupplierListResult, error)

	// CreateSupplier creates a new supplier.
	CreateSupplier(ctx context.Context, req CreatePartnerRequest) (*core.Supplier, error)

	// ListCustomers returns all active customers for a company.
	ListCustomers(ctx context.Context, companyCode string) (*CustomerListResult, error)

	// CreateCustomer creates a new customer.
	CreateCustomer(ctx context.Context, req CreatePartnerRequest) (*core.Customer, error)

	// ── Inventory ────────────────────────────────────────────────────────────

	// GetStockLevels returns the current stock records joined with item and
	// location data.
	GetStockLevels(ctx context.Context, companyCode string) (*StockResult, error)

	// GetMovements returns the movement journal, optionally filtered by item.
	GetMovements(ctx context.Context, companyCode string, itemID *int) (*MovementListResult, error)

	// SuggestPickingLocations lists storage locations able to serve the item,
	// oldest stock first.
	SuggestPickingLocations(ctx context.Context, companyCode string, itemID int) ([]core.PickSuggestion, error)

	// ── Receiving: PO → ASN → putaway ────────────────────────────────────────

	// CreatePurchaseOrder creates a new DRAFT purchase order.
	CreatePurchaseOrder(ctx context.Context, req CreatePORequest) (*core.PurchaseOrder, error)

	// SendPurchaseOrder transitions a DRAFT PO to SENT, assigning its number.
	SendPurchaseOrder(ctx context.Context, companyCode string, poID int) (*core.PurchaseOrder, error)

	// CancelPurchaseOrder cancels a DRAFT or SENT purchase order.
	CancelPurchaseOrder(ctx context.Context, companyCode string, poID int, reason string) (*core.PurchaseOrder, error)

	// GetPurchaseOrder returns one purchase order with its lines.
	GetPurchaseOrder(ctx context.Context, companyCode string, poID int) (*core.PurchaseOrder, error)

	// ListPurchaseOrders returns purchase orders, optionally filtered by status.
	ListPurchaseOrders(ctx context.Context, companyCode string, status *string) ([]core.PurchaseOrder, error)

	// CreateASN raises a shipping notice against a sent purchase order.
	CreateASN(ctx context.Context, req CreateASNRequest) (*core.ASN, error)

	// UpdateASNStatus advances a shipping notice (ON_DELIVERY, ARRIVED).
	// Arrival books the announced stock into the holding location.
	UpdateASNStatus(ctx context.Context, companyCode string, asnID int, status core.ASNStatus) (*core.ASN, error)

	// ProcessPutaway moves quantity of one ASN line from holding into storage.
	ProcessPutaway(ctx context.Context, companyCode string, asnDetailID int, quantity decimal.Decimal, targetLocationID int) (*core.ASN, error)

	// CancelASN cancels a PENDING shipping notice.
	CancelASN(ctx context.Context, companyCode string, asnID int, reason string) (*core.ASN, error)

	// GetASN returns one shipping notice with its lines.
	GetASN(ctx context.Context, companyCode string, asnID int) (*core.ASN, error)

	// ListASNs returns shipping notices, optionally filtered by status.
	ListASNs(ctx context.Context, companyCode string, status *string) ([]core.ASN, error)

	// ── Shipping: SO → picking → shipment ────────────────────────────────────

	// CreateSalesOrder creates a PENDING sales order after checking storage
	// availability for every line.
	CreateSalesOrder(ctx context.Context, req CreateSORequest) (*core.SalesOrder, error)

	// ShipSalesOrder drains the holding location and marks the order SHIPPED.
	ShipSalesOrder(ctx context.Context, companyCode string, soID int) (*core.SalesOrder, error)

	// CancelSalesOrder cancels the order and any active pickings with it.
	CancelSalesOrder(ctx context.Context, companyCode string, soID int, reason string) (*core.SalesOrder, error)

	// GetSalesOrder returns one sales order with its lines.
	GetSalesOrder(ctx context.Context, companyCode string, soID int) (*core.SalesOrder, error)

	// ListSalesOrders returns sales orders, optionally filtered by status.
	ListSalesOrders(ctx context.Context, companyCode string, status *string) ([]core.SalesOrder, error)

	// CreatePicking opens a pick list against a PENDING sales order.
	CreatePicking(ctx context.Context, req CreatePickingRequest) (*core.Picking, error)

	// AssignPickingSource sets the storage location a picking line picks from.
	AssignPickingSource(ctx context.Context, companyCode string, pickingDetailID, sourceLocationID int) (*core.Picking, error)

	// ProcessPicking picks quantity on one line into the holding location.
	// sourceLocationID must match the source recorded on the line.
	ProcessPicking(ctx context.Context, companyCode string, pickingDetailID int, quantity decimal.Decimal, sourceLocationID int) (*core.Picking, error)

	// CancelPicking cancels the pick list together with its sales order.
	CancelPicking(ctx context.Context, companyCode string, pickingID int, reason string) (*core.Picking, error)

	// GetPicking returns one picking with its lines.
	GetPicking(ctx context.Context, companyCode string, pickingID int) (*core.Picking, error)

	// ListPickings returns pickings, optionally filtered by status.
	ListPickings(ctx context.Context, companyCode string, status *string) ([]core.Picking, error)

	// LoadDefaultCompany loads the active company. Uses COMPANY_CODE env var if
	// set; otherwise expects exactly one company in the database.
	LoadDefaultCompany(ctx context.Context) (*core.Company, error)
}
