package metrics

import "errors"

var (
	// ErrInvalidOptions is returned by Options.Verify and Calculate for
	// self-contradictory strategy options.
	ErrInvalidOptions = errors.New("invalid strategy options")

	// ErrInsufficientCashFlowData is returned when the cash flow look-back
	// window starts before the first year of the store. It fails the whole
	// calculation.
	ErrInsufficientCashFlowData = errors.New("insufficient data to calculate cash flow history")

	// ErrUnknownField is returned by ParseField.
	ErrUnknownField = errors.New("unknown metric field")
)
