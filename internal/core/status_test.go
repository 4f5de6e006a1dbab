package core_test

import (
	"errors"
	"fmt"
	"testing"

	"warehouse-engine/internal/core"

	"github.com/shopspring/decimal"
)

func TestPurchaseOrderTransitions(t *testing.T) {
	cases := []struct {
		current, requested core.POStatus
		allowed            bool
	}{
		{core.PODraft, core.POSent, true},
		{core.PODraft, core.POCancelled, true},
		{core.PODraft, core.POReceived, false},
		{core.POSent, core.POReceived, true},
		{core.POSent, core.POCancelled, true},
		{core.POSent, core.PODraft, false},
		// Cancelling the last active shipment rolls the order back.
		{core.POReceived, core.POSent, true},
		{core.POReceived, core.POCancelled, false},
		// CANCELLED is terminal.
		{core.POCancelled, core.PODraft, false},
		{core.POCancelled, core.POSent, false},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%s_to_%s", c.current, c.requested), func(t *testing.T) {
			if got := core.CanTransitionPO(c.current, c.requested); got != c.allowed {
				t.Errorf("CanTransitionPO(%s, %s) = %v, want %v", c.current, c.requested, got, c.allowed)
			}
		})
	}
}

func TestASNTransitions(t *testing.T) {
	cases := []struct {
		current, requested core.ASNStatus
		allowed            bool
	}{
		{core.ASNPending, core.ASNOnDelivery, true},
		{core.ASNPending, core.ASNCancelled, true},
		// Skipping straight to arrival is not allowed.
		{core.ASNPending, core.ASNArrived, false},
		{core.ASNOnDelivery, core.ASNArrived, true},
		// Goods on a truck cannot be cancelled.
		{core.ASNOnDelivery, core.ASNCancelled, false},
		{core.ASNArrived, core.ASNProcessed, true},
		{core.ASNArrived, core.ASNCancelled, false},
		{core.ASNProcessed, core.ASNArrived, false},
		{core.ASNCancelled, core.ASNPending, false},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%s_to_%s", c.current, c.requested), func(t *testing.T) {
			if got := core.CanTransitionASN(c.current, c.requested); got != c.allowed {
				t.Errorf("CanTransitionASN(%s, %s) = %v, want %v", c.current, c.requested, got, c.allowed)
			}
		})
	}
}

func TestSalesOrderTransitions(t *testing.T) {
	cases := []struct {
		current, requested core.SOStatus
		allowed            bool
	}{
		{core.SOPending, core.SOInProgress, true},
		{core.SOPending, core.SOCancelled, true},
		{core.SOPending, core.SOPicked, false},
		{core.SOInProgress, core.SOPicked, true},
		{core.SOInProgress, core.SOCancelled, true},
		{core.SOPicked, core.SOShipped, true},
		// A fully picked order is committed; cancel before picking completes.
		{core.SOPicked, core.SOCancelled, false},
		{core.SOShipped, core.SOCancelled, false},
		{core.SOShipped, core.SOPending, false},
		{core.SOCancelled, core.SOPending, false},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%s_to_%s", c.current, c.requested), func(t *testing.T) {
			if got := core.CanTransitionSO(c.current, c.requested); got != c.allowed {
				t.Errorf("CanTransitionSO(%s, %s) = %v, want %v", c.current, c.requested, got, c.allowed)
			}
		})
	}
}

func TestPickingTransitions(t *testing.T) {
	cases := []struct {
		current, requested core.PickingStatus
		allowed            bool
	}{
		{core.PickingPending, core.PickingInProgress, true},
		{core.PickingPending, core.PickingCancelled, true},
		{core.PickingPending, core.PickingCompleted, false},
		{core.PickingInProgress, core.PickingCompleted, true},
		{core.PickingInProgress, core.PickingCancelled, true},
		{core.PickingCompleted, core.PickingCancelled, false},
		{core.PickingCancelled, core.PickingPending, false},
	}
	for _, c := range cases {
		t.Run(fmt.Sprintf("%s_to_%s", c.current, c.requested), func(t *testing.T) {
			if got := core.CanTransitionPicking(c.current, c.requested); got != c.allowed {
				t.Errorf("CanTransitionPicking(%s, %s) = %v, want %v", c.current, c.requested, got, c.allowed)
			}
		})
	}
}

func TestIsValidationError(t *testing.T) {
	validation := []error{
		core.ErrMissingSourceLocation,
		core.ErrSameLocationTransfer,
		&core.InvalidTransitionError{DocType: "purchase order", Current: "DRAFT", Requested: "RECEIVED"},
		&core.InsufficientStockError{Available: decimal.NewFromInt(3), Required: decimal.NewFromInt(5)},
		&core.CapacityExceededError{Available: decimal.NewFromInt(5), Required: decimal.NewFromInt(10)},
		&core.LocationCategoryMismatchError{Expected: core.CategoryOther, Actual: core.CategoryStorage},
		&core.LocationInactiveError{LocationID: 7, Code: "STO-07"},
		&core.SourceLocationMismatchError{Requested: 1, Recorded: 2},
		&core.QuantityMismatchError{Requested: decimal.NewFromInt(9), Remaining: decimal.NewFromInt(4)},
	}
	for _, err := range validation {
		if !core.IsValidationError(err) {
			t.Errorf("IsValidationError(%T) = false, want true", err)
		}
		// Wrapping must not hide the kind.
		if !core.IsValidationError(fmt.Errorf("while picking: %w", err)) {
			t.Errorf("IsValidationError(wrapped %T) = false, want true", err)
		}
	}

	if core.IsValidationError(errors.New("connection refused")) {
		t.Error("IsValidationError treated a plain error as a validation kind")
	}
	if core.IsValidationError(nil) {
		t.Error("IsValidationError(nil) = true, want false")
	}
}

func TestErrorMessages(t *testing.T) {
	it := &core.InvalidTransitionError{DocType: "ASN", Current: "PENDING", Requested: "ARRIVED"}
	if got, want := it.Error(), "ASN cannot move from PENDING to ARRIVED"; got != want {
		t.Errorf("InvalidTransitionError message = %q, want %q", got, want)
	}

	is := &core.InsufficientStockError{Available: decimal.NewFromInt(30), Required: decimal.NewFromInt(50)}
	if got, want := is.Error(), "insufficient stock: available 30, required 50"; got != want {
		t.Errorf("InsufficientStockError message = %q, want %q", got, want)
	}

	qm := &core.QuantityMismatchError{Requested: decimal.NewFromInt(60), Remaining: decimal.NewFromInt(40)}
	if got, want := qm.Error(), "requested quantity 60 exceeds remaining quantity 40"; got != want {
		t.Errorf("QuantityMismatchError message = %q, want %q", got, want)
	}
}
