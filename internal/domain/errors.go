package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrNoData is returned when a single-symbol view has nothing to work on.
	ErrNoData = errors.New("no data")
	// ErrInsufficientHistory means the series is shorter than the view's window.
	ErrInsufficientHistory = errors.New("insufficient history")
	// ErrBenchmarkMissing is informational: the benchmark row was left out.
	ErrBenchmarkMissing = errors.New("benchmark missing")
)

// StructuralError reports a frame that lacks an expected column.
type StructuralError struct {
	Want     string
	Observed []string
}

func (e *StructuralError) Error() string {
	return fmt.Sprintf("frame has no %q column (observed: %s)", e.Want, strings.Join(e.Observed, ", "))
}

// ValidationError reports input that does not have the expected shape.
type ValidationError struct {
	Source string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Source == "" {
		return "validation: " + e.Reason
	}
	return fmt.Sprintf("validation: %s: %s", e.Source, e.Reason)
}

// IsStructural reports whether err wraps a StructuralError.
func IsStructural(err error) bool {
	var se *StructuralError
	return errors.As(err, &se)
}

// IsValidation reports whether err wraps a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
