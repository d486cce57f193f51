package fifo

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

// ErrInvalidDate is returned when an input row has a missing or unparseable
// date. The whole replay fails: an undated event has no place in the order.
var ErrInvalidDate = errors.New("invalid event date")

// =============================================================================
// STRUCTURED ERRORS
// =============================================================================

// InvalidDateError identifies the offending input row.
type InvalidDateError struct {
	Source EventKind // which input collection
	Index  int       // position in that collection
	Raw    string
	Err    error // parse failure, nil when the date was missing
}

func (e *InvalidDateError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s #%d: missing date", e.Source, e.Index)
	}
	return fmt.Sprintf("%s #%d: %v", e.Source, e.Index, e.Err)
}

func (e *InvalidDateError) Unwrap() error {
	return ErrInvalidDate
}
