package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// PurchaseOrder is an order placed with a supplier. It has no stock effect of
// its own; stock enters the warehouse through ASNs raised against it.
type PurchaseOrder struct {
	ID           int        `json:"id"`
	CompanyID    int        `json:"company_id"`
	Number       string     `json:"number"` // empty until the order is sent
	SupplierID   int        `json:"supplier_id"`
	SupplierCode string     `json:"supplier_code"`
	SupplierName string     `json:"supplier_name"`
	Status       POStatus   `json:"status"`
	Notes        string     `json:"notes"`
	CreatedAt    time.Time  `json:"created_at"`
	SentAt       *time.Time `json:"sent_at,omitempty"`
	CancelledAt  *time.Time `json:"cancelled_at,omitempty"`
	CancelReason string     `json:"cancel_reason,omitempty"`

	Details []PurchaseOrderDetail `json:"details"`
}

type PurchaseOrderDetail struct {
	ID              int             `json:"id"`
	PurchaseOrderID int             `json:"purchase_order_id"`
	ItemID          int             `json:"item_id"`
	ItemCode        string          `json:"item_code"`
	ItemName        string          `json:"item_name"`
	OrderedQuantity decimal.Decimal `json:"ordered_quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
}

// POLineInput is one requested line on a new purchase order. A zero unit
// price falls back to the item's purchase price.
type POLineInput struct {
	ItemCode  string          `json:"item_code"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
