package core

import (
	"time"

	"github.com/shopspring/decimal"
)

type Company struct {
	ID          int    `json:"id"`
	CompanyCode string `json:"company_code"`
	Name        string `json:"name"`
}

// Item is warehouse master data. Items are immutable during a transfer; the
// engine only ever reads them.
type Item struct {
	ID            int             `json:"id"`
	CompanyID     int             `json:"company_id"`
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Unit          string          `json:"unit"`
	PurchasePrice decimal.Decimal `json:"purchase_price"`
	SalePrice     decimal.Decimal `json:"sale_price"`
	IsActive      bool            `json:"is_active"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Supplier is the party a purchase order is placed with.
type Supplier struct {
	ID        int       `json:"id"`
	CompanyID int       `json:"company_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Customer is the party a sales order is shipped to.
type Customer struct {
	ID        int       `json:"id"`
	CompanyID int       `json:"company_id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// LocationCategory splits the warehouse into Storage locations (eligible to
// back sales availability) and Other locations (holding areas for goods in
// transit between documents: receiving, shipping).
type LocationCategory string

const (
	CategoryStorage LocationCategory = "STORAGE"
	CategoryOther   LocationCategory = "OTHER"
)

// Location is a capacity-bounded place stock can sit. CurrentCapacity is
// derived: it always equals the sum of stock record quantities at the
// location, and the capacity ledger keeps it inside [0, MaxCapacity].
type Location struct {
	ID              int              `json:"id"`
	CompanyID       int              `json:"company_id"`
	Code            string           `json:"code"`
	Name            string           `json:"name"`
	Category        LocationCategory `json:"category"`
	MaxCapacity     decimal.Decimal  `json:"max_capacity"`
	CurrentCapacity decimal.Decimal  `json:"current_capacity"`
	IsFull          bool             `json:"is_full"`
	IsActive        bool             `json:"is_active"`
	CreatedAt       time.Time        `json:"created_at"`
}
