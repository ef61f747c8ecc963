package errors

import (
	"errors"
	"fmt"
	"testing"
)

func TestDomainError(t *testing.T) {
	err := NewDomainError("find dose", 12.5, -10, 10)

	if !errors.Is(err, ErrDomain) {
		t.Errorf("errors.Is(err, ErrDomain) = false, want true")
	}
	if errors.Is(err, ErrInvalidArgument) {
		t.Errorf("errors.Is(err, ErrInvalidArgument) = true, want false")
	}

	wrapped := fmt.Errorf("normalize: %w", err)
	var de *DomainError
	if !errors.As(wrapped, &de) {
		t.Fatal("errors.As failed on wrapped DomainError")
	}
	if de.Value != 12.5 || de.Min != -10 || de.Max != 10 {
		t.Errorf("DomainError = %+v, want value 12.5 in [-10, 10]", de)
	}

	if err.Error() == "" {
		t.Error("Error message should not be empty")
	}
}

func TestCategoryHelpers(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"InvalidArgument", InvalidArgument("step %g must be positive", -1.0), ErrInvalidArgument},
		{"GeometryMismatch", GeometryMismatch("no frame at z=%g", 3.0), ErrGeometryMismatch},
		{"UnsupportedOrientation", UnsupportedOrientation([]float64{0, 0, 0, 0, 0, 0}), ErrUnsupportedOrientation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if !errors.Is(tt.err, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", tt.err, tt.want)
			}
			if errors.Is(tt.err, ErrDomain) {
				t.Errorf("%v unexpectedly matches ErrDomain", tt.err)
			}
		})
	}
}
