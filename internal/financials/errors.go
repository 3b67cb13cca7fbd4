package financials

import "errors"

var (
	// ErrInvalidOptions is returned when loader ranges are inverted.
	ErrInvalidOptions = errors.New("invalid loader options")

	// ErrMissingYear is returned when a year inside the requested range has
	// no table in the storage representation.
	ErrMissingYear = errors.New("missing year")

	// ErrOutOfRangeYear is returned for year lookups outside the store.
	ErrOutOfRangeYear = errors.New("year out of range")

	// ErrOutOfRangeDate is returned for date lookups outside the store.
	ErrOutOfRangeDate = errors.New("date out of range")

	// ErrUnknownCompany is returned for symbols absent from the company index.
	ErrUnknownCompany = errors.New("unknown company")

	// ErrInvalidCompanies is returned when company ids are not dense.
	ErrInvalidCompanies = errors.New("invalid company index")

	// ErrShapeMismatch is returned when a per-year table has the wrong length.
	ErrShapeMismatch = errors.New("table shape mismatch")
)
