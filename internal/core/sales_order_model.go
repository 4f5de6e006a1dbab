package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// SalesOrder is an order to ship goods to a customer. Creation is gated on
// storage availability per line; shipment drains the order's holding location
// all-or-nothing.
type SalesOrder struct {
	ID                int        `json:"id"`
	CompanyID         int        `json:"company_id"`
	Number            string     `json:"number"`
	CustomerID        int        `json:"customer_id"`
	CustomerCode      string     `json:"customer_code"`
	CustomerName      string     `json:"customer_name"`
	HoldingLocationID int        `json:"holding_location_id"`
	Status            SOStatus   `json:"status"`
	Notes             string     `json:"notes"`
	CreatedAt         time.Time  `json:"created_at"`
	ShippedAt         *time.Time `json:"shipped_at,omitempty"`
	CancelledAt       *time.Time `json:"cancelled_at,omitempty"`
	CancelReason      string     `json:"cancel_reason,omitempty"`

	Details []SalesOrderDetail `json:"details"`
}

type SalesOrderDetail struct {
	ID              int             `json:"id"`
	SalesOrderID    int             `json:"sales_order_id"`
	ItemID          int             `json:"item_id"`
	ItemCode        string          `json:"item_code"`
	ItemName        string          `json:"item_name"`
	OrderedQuantity decimal.Decimal `json:"ordered_quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
}

// SOLineInput is one requested line on a new sales order. A zero unit price
// falls back to the item's sale price.
type SOLineInput struct {
	ItemCode  string          `json:"item_code"`
	Quantity  decimal.Decimal `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}
