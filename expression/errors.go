package expression

import (
	"errors"
	"fmt"
)

var (
	// ErrConfiguration is returned for unsupported construction arguments,
	// such as an explicit dtype that cannot hold the input data or an
	// invalid axis passed to a scale operation.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrOrientation is returned when an axis-broadcast scale is requested
	// against an incompatible sparse storage orientation. Row-major (CSR)
	// storage broadcasts along samples, column-major (CSC) along genes.
	ErrOrientation = errors.New("incompatible sparse orientation")
)

// AlignmentError indicates that two matrices which must correspond disagree
// in label order or membership on one axis.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type AlignmentError struct {
	Axis   string
	Detail string
	cause  error
}

func (e *AlignmentError) Error() string {
	return fmt.Sprintf("%s labels are not aligned: %s", e.Axis, e.Detail)
}

func (e *AlignmentError) Unwrap() error { return e.cause }

// EmptyResultError indicates that gene trimming removed every gene. It
// reports how many genes each criterion removed so the caller can tell an
// over-restrictive allow list apart from constant-variance filtering.
type EmptyResultError struct {
	ListRemoved     int
	ConstantRemoved int
}

func (e *EmptyResultError) Error() string {
	return fmt.Sprintf("no genes remain after trimming (%d removed to match list, %d removed as constant)",
		e.ListRemoved, e.ConstantRemoved)
}

// ErrDimensionMismatch indicates incompatible operand shapes in a numeric
// product.
type ErrDimensionMismatch struct {
	Expected int
	Actual   int
}

func (e *ErrDimensionMismatch) Error() string {
	return fmt.Sprintf("dimension mismatch: expected %d, got %d", e.Expected, e.Actual)
}
