package core

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// The engine reports every recoverable failure as one of the typed errors
// below. Callers branch with errors.As / errors.Is; anything that is not one
// of these kinds is a storage failure and aborts the operation unchanged.

// ErrMissingSourceLocation is returned when a line attempts a transfer with
// no source location recorded. The engine never defaults a missing location.
var ErrMissingSourceLocation = errors.New("no source location recorded for this line")

// ErrSameLocationTransfer rejects transfers where source and destination are
// the same location. Use a direct adjustment instead.
var ErrSameLocationTransfer = errors.New("source and destination are the same location")

// InvalidTransitionError reports a document status change that is not in the
// document type's transition table. Nothing is mutated.
type InvalidTransitionError struct {
	DocType   string
	Current   string
	Requested string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("%s cannot move from %s to %s", e.DocType, e.Current, e.Requested)
}

// InsufficientStockError reports that the available quantity cannot cover the
// requested quantity.
type InsufficientStockError struct {
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock: available %s, required %s",
		e.Available.String(), e.Required.String())
}

// CapacityExceededError reports that a location cannot absorb the incoming
// quantity. Available is the remaining free capacity.
type CapacityExceededError struct {
	Available decimal.Decimal
	Required  decimal.Decimal
}

func (e *CapacityExceededError) Error() string {
	return fmt.Sprintf("location capacity exceeded: available %s, required %s",
		e.Available.String(), e.Required.String())
}

// LocationCategoryMismatchError reports a location used for a purpose its
// category does not allow (e.g. a Storage location as an ASN holding area).
type LocationCategoryMismatchError struct {
	Expected LocationCategory
	Actual   LocationCategory
}

func (e *LocationCategoryMismatchError) Error() string {
	return fmt.Sprintf("location category mismatch: expected %s, got %s", e.Expected, e.Actual)
}

// LocationInactiveError reports an operation against a deactivated location.
type LocationInactiveError struct {
	LocationID int
	Code       string
}

func (e *LocationInactiveError) Error() string {
	return fmt.Sprintf("location %s (id %d) is inactive", e.Code, e.LocationID)
}

// SourceLocationMismatchError reports a pick request naming a source location
// other than the one recorded on the line. The recorded value is the only
// valid source; a caller holding a stale assignment must re-read the line.
type SourceLocationMismatchError struct {
	Requested int
	Recorded  int
}

func (e *SourceLocationMismatchError) Error() string {
	return fmt.Sprintf("requested source location %d does not match recorded source location %d",
		e.Requested, e.Recorded)
}

// QuantityMismatchError reports a requested quantity that exceeds what the
// line still has open (remaining to put away, remaining to pick, ordered).
type QuantityMismatchError struct {
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *QuantityMismatchError) Error() string {
	return fmt.Sprintf("requested quantity %s exceeds remaining quantity %s",
		e.Requested.String(), e.Remaining.String())
}

// IsValidationError reports whether err is one of the engine's recoverable
// validation kinds, as opposed to an unexpected storage failure.
func IsValidationError(err error) bool {
	var (
		it *InvalidTransitionError
		is *InsufficientStockError
		ce *CapacityExceededError
		cm *LocationCategoryMismatchError
		li *LocationInactiveError
		sm *SourceLocationMismatchError
		qm *QuantityMismatchError
	)
	return errors.Is(err, ErrMissingSourceLocation) ||
		errors.Is(err, ErrSameLocationTransfer) ||
		errors.As(err, &it) || errors.As(err, &is) || errors.As(err, &ce) ||
		errors.As(err, &cm) || errors.As(err, &li) || errors.As(err, &sm) ||
		errors.As(err, &qm)
}
