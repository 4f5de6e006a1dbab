package core

import (
	"time"

	"github.com/shopspring/decimal"
)

// StockStatus describes the disposition of a stock record. Only AVAILABLE
// stock participates in transfers and availability sums.
type StockStatus string

const (
	StockAvailable  StockStatus = "AVAILABLE"
	StockReserved   StockStatus = "RESERVED"
	StockDamaged    StockStatus = "DAMAGED"
	StockQuarantine StockStatus = "QUARANTINE"
	StockBlocked    StockStatus = "BLOCKED"
	StockEmpty      StockStatus = "EMPTY"
)

// StockRecord is the atomic unit the engine mutates: the quantity of one item
// at one location. A record whose quantity reaches zero is retained with
// status EMPTY; its cost and source reference are overwritten together on the
// next arrival so stale data never resurrects.
type StockRecord struct {
	ID              int             `json:"id"`
	CompanyID       int             `json:"company_id"`
	ItemID          int             `json:"item_id"`
	LocationID      int             `json:"location_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	Status          StockStatus     `json:"status"`
	LastCostPrice   decimal.Decimal `json:"last_cost_price"`
	SourceReference string          `json:"source_reference"`
	LastUpdated     time.Time       `json:"last_updated"`
}

// StockLevel is a read view of a stock record joined with item and location info.
type StockLevel struct {
	ItemCode      string           `json:"item_code"`
	ItemName      string           `json:"item_name"`
	LocationCode  string           `json:"location_code"`
	Category      LocationCategory `json:"category"`
	Quantity      decimal.Decimal  `json:"quantity"`
	Status        StockStatus      `json:"status"`
	LastCostPrice decimal.Decimal  `json:"last_cost_price"`
}

// MovementType tags a stock movement journal row with the operation that
// produced it.
type MovementType string

const (
	MovementArrival  MovementType = "ARRIVAL"  // ASN arrived: net-new stock into holding
	MovementPutaway  MovementType = "PUTAWAY"  // holding → storage
	MovementPick     MovementType = "PICK"     // storage → holding
	MovementShipment MovementType = "SHIPMENT" // holding → out of the system
)

// StockMovement is one row of the append-only movement journal, written in
// the same transaction as the transfer it records.
type StockMovement struct {
	ID                    int             `json:"id"`
	CompanyID             int             `json:"company_id"`
	MovementType          MovementType    `json:"movement_type"`
	ItemID                int             `json:"item_id"`
	SourceLocationID      *int            `json:"source_location_id,omitempty"`
	DestinationLocationID *int            `json:"destination_location_id,omitempty"`
	Quantity              decimal.Decimal `json:"quantity"`
	UnitCost              decimal.Decimal `json:"unit_cost"`
	Reference             string          `json:"reference"`
	MovementKey           string          `json:"movement_key"`
	CreatedAt             time.Time       `json:"created_at"`
}

// PickSuggestion is one storage location able to serve a picking line,
// ordered oldest stock first so callers drain stock FIFO.
type PickSuggestion struct {
	LocationID   int             `json:"location_id"`
	LocationCode string          `json:"location_code"`
	Available    decimal.Decimal `json:"available"`
	LastUpdated  time.Time       `json:"last_updated"`
}

// TransferRequest describes one quantity movement. A nil SourceLocationID
// means net-new stock entering the warehouse (ASN arrival); a nil
// DestinationLocationID means stock leaving the system (shipment). At least
// one side must be set.
type TransferRequest struct {
	ItemID                int
	SourceLocationID      *int
	DestinationLocationID *int
	Quantity              decimal.Decimal
	UnitCost              decimal.Decimal // applied to the destination record when it is created or refilled from EMPTY
	MovementType          MovementType
	Reference             string // document number of the triggering document
}
