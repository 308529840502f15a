package book

import "errors"

// Book operations are total: valid inputs never panic, and invalid inputs
// return one of these sentinel errors rather than raising. Cancel of an
// unknown id is explicitly not an error (see Cancel's return value).
var (
	// ErrInvalidOrder is returned when quantity <= 0, or a Limit order is
	// submitted without a price tick (PriceTick == 0).
	ErrInvalidOrder = errors.New("book: invalid order")

	// ErrInvariantViolation is only ever returned from the debug-mode
	// consistency check; in validated builds it is treated as fatal by the
	// caller (writer task aborts, process exits non-zero).
	ErrInvariantViolation = errors.New("book: invariant violation")
)
