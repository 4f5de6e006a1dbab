package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// Picking collects the stock for one sales order: each line moves goods from
// a storage location into the order's holding location.
type Picking struct {
	ID                int           `json:"id"`
	CompanyID         int           `json:"company_id"`
	Number            string        `json:"number"`
	SalesOrderID      int           `json:"sales_order_id"`
	SalesOrderNumber  string        `json:"sales_order_number"`
	HoldingLocationID int           `json:"holding_location_id"`
	Status            PickingStatus `json:"status"`
	CreatedAt         time.Time     `json:"created_at"`
	CancelledAt       *time.Time    `json:"cancelled_at,omitempty"`
	CancelReason      string        `json:"cancel_reason,omitempty"`

	Details []PickingDetail `json:"details"`
}

type PickingDetail struct {
	ID                 int             `json:"id"`
	PickingID          int             `json:"picking_id"`
	SalesOrderDetailID int             `json:"sales_order_detail_id"`
	ItemID             int             `json:"item_id"`
	ItemCode           string          `json:"item_code"`
	QuantityRequired   decimal.Decimal `json:"quantity_required"`
	QuantityPicked     decimal.Decimal `json:"quantity_picked"`
	// SourceLocationID is nil until a storage location is assigned to the
	// line. A line with no source can never transfer; there is no default.
	SourceLocationID *int `json:"source_location_id,omitempty"`
}

// PickingLineInput is one line on a new picking. SourceLocationID may be set
// up front or assigned later from a picking suggestion.
type PickingLineInput struct {
	SalesOrderDetailID int             `json:"sales_order_detail_id"`
	QuantityRequired   decimal.Decimal `json:"quantity_required"`
	SourceLocationID   *int            `json:"source_location_id,omitempty"`
}
