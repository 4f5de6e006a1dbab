package app

import (
	"github.com/shopspring/decimal"

	"warehouse-engine/internal/core"
)

// CreateItemRequest is the input for creating a new item.
type CreateItemRequest struct {
	CompanyCode   string
	Code          string
	Name          string
	Unit          string
	PurchasePrice decimal.Decimal
	SalePrice     decimal.Decimal
}

// CreateLocationRequest is the input for creating a new location.
type CreateLocationRequest struct {
	CompanyCode string
	Code        string
	Name        string
	Category    core.LocationCategory
	MaxCapacity decimal.Decimal
}

// CreatePartnerRequest is the input for creating a supplier or a customer.
type CreatePartnerRequest struct {
	CompanyCode string
	Code        string
	Name        string
	Email       string
	Phone       string
	Address     string
}

// CreatePORequest is the input for creating a new purchase order.
type CreatePORequest struct {
	CompanyCode string
	SupplierID  int
	Notes       string
	Lines       []core.POLineInput
}

// CreateASNRequest is the input for raising a shipping notice against a PO.
type CreateASNRequest struct {
	CompanyCode       string
	PurchaseOrderID   int
	HoldingLocationID int
	ExpectedArrival   string // YYYY-MM-DD, optional
	Lines             []core.ASNLineInput
}

// CreateSORequest is the input for creating a new sales order.
type CreateSORequest struct {
	CompanyCode       string
	CustomerID        int
	HoldingLocationID int
	Notes             string
	Lines             []core.SOLineInput
}

// CreatePickingRequest is the input for opening a pick list on a sales order.
type CreatePickingRequest struct {
	CompanyCode  string
	SalesOrderID int
	Lines        []core.PickingLineInput
}
