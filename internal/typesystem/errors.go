package typesystem

import (
	"errors"
	"fmt"
)

// ErrBoundsViolation is matched by errors.Is on every bounds failure.
var ErrBoundsViolation = errors.New("bounds violation")

// InferenceErrorKind classifies inference failures.
type InferenceErrorKind uint8

const (
	BoundsViolation InferenceErrorKind = iota + 1
	ArityMismatch
)

func (k InferenceErrorKind) String() string {
	switch k {
	case BoundsViolation:
		return "bounds violation"
	case ArityMismatch:
		return "arity mismatch"
	}
	return "unknown"
}

// InferenceError reports a type parameter that could not be solved.
type InferenceError struct {
	Kind      InferenceErrorKind
	Param     string
	Candidate string
	Bound     string
}

func (e *InferenceError) Error() string {
	switch e.Kind {
	case BoundsViolation:
		return fmt.Sprintf("type parameter %s: %s does not satisfy %s", e.Param, e.Candidate, e.Bound)
	case ArityMismatch:
		return fmt.Sprintf("arity mismatch: %s", e.Candidate)
	}
	return "inference failed"
}

func (e *InferenceError) Unwrap() error {
	if e.Kind == BoundsViolation {
		return ErrBoundsViolation
	}
	return nil
}

func NewBoundsViolationError(param, candidate, bound string) *InferenceError {
	return &InferenceError{Kind: BoundsViolation, Param: param, Candidate: candidate, Bound: bound}
}

func NewArityMismatchError(msg string) *InferenceError {
	return &InferenceError{Kind: ArityMismatch, Candidate: msg}
}

func errInferContext(ctx string, err error) error {
	return fmt.Errorf("inferring %s: %w", ctx, err)
}
