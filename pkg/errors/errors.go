// Package errors provides the error taxonomy shared by the dose analysis packages.
//
// Callers match categories with the standard library:
//
//	if errors.Is(err, doseerrors.ErrDomain) { ... }
package errors

import (
	"errors"
	"fmt"
)

// Error categories
var (
	ErrInvalidArgument        = errors.New("dosekit: invalid argument")
	ErrDomain                 = errors.New("dosekit: value outside interpolation range")
	ErrUnsupportedOrientation = errors.New("dosekit: unsupported image orientation")
	ErrGeometryMismatch       = errors.New("dosekit: geometry mismatch")
)

// DomainError reports a query value that lies outside the range an
// interpolant or axis can serve.
type DomainError struct {
	Op    string
	Value float64
	Min   float64
	Max   float64
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("%s: %g outside [%g, %g]", e.Op, e.Value, e.Min, e.Max)
}

// Unwrap lets errors.Is match ErrDomain.
func (e *DomainError) Unwrap() error {
	return ErrDomain
}

// NewDomainError creates a new domain error
func NewDomainError(op string, value, min, max float64) *DomainError {
	return &DomainError{
		Op:    op,
		Value: value,
		Min:   min,
		Max:   max,
	}
}

// InvalidArgument wraps ErrInvalidArgument with a formatted message.
func InvalidArgument(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// GeometryMismatch wraps ErrGeometryMismatch with a formatted message.
func GeometryMismatch(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrGeometryMismatch, fmt.Sprintf(format, args...))
}

// UnsupportedOrientation reports orientation cosines that match none of the
// known patient positions.
func UnsupportedOrientation(cosines []float64) error {
	return fmt.Errorf("%w: %v", ErrUnsupportedOrientation, cosines)
}
