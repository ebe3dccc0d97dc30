package collection

import (
	"errors"
	"fmt"

	"github.com/pdeschain/unichrome/hnsw"
)

var (
	// ErrNotFound is returned when a requested document ID is absent.
	ErrNotFound = errors.New("collection: not found")

	// ErrInvalidFilter is returned for an unrecognised metadata filter
	// operator.
	ErrInvalidFilter = errors.New("collection: invalid filter")
)

// ErrDimensionMismatch indicates an inserted or queried vector's length
// differs from the collection's established dimensionality.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
	cause    error
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("collection: dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}

func (e *ErrDimensionMismatch) Unwrap() error { return e.cause }

// ErrIO wraps a persistence read/write failure.
type ErrIO struct {
	Op    string
	cause error
}

func (e *ErrIO) Error() string {
	return fmt.Sprintf("collection: io error during %s: %v", e.Op, e.cause)
}

func (e *ErrIO) Unwrap() error { return e.cause }

func wrapIO(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ErrIO{Op: op, cause: err}
}

// translateGraphError maps an hnsw-level error onto the collection's public
// surface. hnsw.ErrGraphChanged normally never reaches here, since
// Graph.KNearest retries it internally; if those retries are exhausted it
// is passed through unchanged like any other non-dimension error.
func translateGraphError(err error) error {
	if err == nil {
		return nil
	}
	var dm *hnsw.ErrDimensionMismatch
	if errors.As(err, &dm) {
		return &ErrDimensionMismatch{Expected: dm.Expected, Actual: dm.Actual, cause: err}
	}
	return err
}
