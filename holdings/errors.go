package holdings

import (
	"errors"
	"fmt"

	"github.com/warp/holdings-engine/fifo"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrMissingField is returned when a required request field is empty.
	ErrMissingField = errors.New("missing required field")

	// ErrInvalidSplit is returned for a split with non-positive ratios or a
	// bad issue date.
	ErrInvalidSplit = errors.New("invalid split")

	// ErrInvalidAsOnDate is returned when the as-on filter is not a date.
	ErrInvalidAsOnDate = errors.New("invalid as-on date")

	// ErrDuplicateRecord is returned when a row ID is already stored.
	ErrDuplicateRecord = errors.New("duplicate record")
)

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// FieldError names the missing field.
type FieldError struct {
	Field string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("%s is required", e.Field)
}

func (e *FieldError) Unwrap() error {
	return ErrMissingField
}

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrMissingField) ||
		errors.Is(err, ErrInvalidSplit) ||
		errors.Is(err, ErrInvalidAsOnDate) ||
		errors.Is(err, ErrDuplicateRecord)
}

// IsInvalidData returns true if stored rows could not be replayed.
func IsInvalidData(err error) bool {
	return errors.Is(err, fifo.ErrInvalidDate)
}
