package app

import "warehouse-engine/internal/core"

// ItemListResult wraps the item list for a company.
type ItemListResult struct {
	CompanyCode string      `json:"company_code"`
	Items       []core.Item `json:"items"`
}

// LocationListResult wraps the location list for a company.
type LocationListResult struct {
	CompanyCode string          `json:"company_code"`
	Locations   []core.Location `json:"locations"`
}

// SupplierListResult wraps the supplier list for a company.
type SupplierListResult struct {
	Suppliers []core.Supplier `json:"suppliers"`
}

// CustomerListResult wraps the customer list for a company.
type CustomerListResult struct {
	Customers []core.Customer `json:"customers"`
}

// StockResult wraps the current stock levels for a company.
type StockResult struct {
	CompanyCode string            `json:"company_code"`
	Levels      []core.StockLevel `json:"levels"`
}

// MovementListResult wraps the movement journal for a company.
type MovementListResult struct {
	CompanyCode string               `json:"company_code"`
	Movements   []core.StockMovement `json:"movements"`
}
