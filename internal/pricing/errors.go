package pricing

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidQuantity    = errors.New("invalid quantity")
	ErrInvalidPrice       = errors.New("invalid unit price")
	ErrInvalidLineKind    = errors.New("invalid line kind")
	ErrInvalidCoefficient = errors.New("invalid coefficient")
	ErrAmountOverflow     = errors.New("amount is out of range")

	ErrMissingBlockID = errors.New("block id is required")
	ErrDuplicateBlock = errors.New("duplicate block id")
	ErrUnknownBlock   = errors.New("unknown block")
	ErrUnknownParent  = errors.New("unknown parent block")
	ErrBlockCycle     = errors.New("block would become its own ancestor")
)

// LineError reports a single line item rejected by validation.
type LineError struct {
	LineID string
	Field  string
	Value  float64
	Err    error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %s: %s=%v: %v", e.LineID, e.Field, e.Value, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}
