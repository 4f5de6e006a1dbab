package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// ASN (advanced shipping notice) announces goods in transit against a
// purchase order. On arrival its lines become net-new stock in the holding
// location; putaway then drains each line into storage.
type ASN struct {
	ID                  int        `json:"id"`
	CompanyID           int        `json:"company_id"`
	Number              string     `json:"number"`
	PurchaseOrderID     int        `json:"purchase_order_id"`
	PurchaseOrderNumber string     `json:"purchase_order_number"`
	HoldingLocationID   int        `json:"holding_location_id"`
	Status              ASNStatus  `json:"status"`
	ExpectedArrivalDate *time.Time `json:"expected_arrival_date,omitempty"`
	ActualArrivalDate   *time.Time `json:"actual_arrival_date,omitempty"`
	CreatedAt           time.Time  `json:"created_at"`
	CancelledAt         *time.Time `json:"cancelled_at,omitempty"`
	CancelReason        string     `json:"cancel_reason,omitempty"`

	Details []ASNDetail `json:"details"`
}

type ASNDetail struct {
	ID                     int             `json:"id"`
	ASNID                  int             `json:"asn_id"`
	ItemID                 int             `json:"item_id"`
	ItemCode               string          `json:"item_code"`
	ItemName               string          `json:"item_name"`
	ShippedQuantity        decimal.Decimal `json:"shipped_quantity"`
	AlreadyPutAwayQuantity decimal.Decimal `json:"already_put_away_quantity"`
	// RemainingQuantity = ShippedQuantity − AlreadyPutAwayQuantity, recomputed
	// on every read, never stored and never negative.
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	UnitCost          decimal.Decimal `json:"unit_cost"`
}

// ASNLineInput is one announced line on a new ASN.
type ASNLineInput struct {
	ItemCode        string          `json:"item_code"`
	ShippedQuantity decimal.Decimal `json:"shipped_quantity"`
}
