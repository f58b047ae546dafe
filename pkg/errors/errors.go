// Package errors provides the sentinel and classified errors used across tlr.
//
// Sentinel errors describe domain conditions and are checked with errors.Is.
// StageError wraps a failure of one processing stage with a stable code.
//
// Usage:
//
//	import tlerrors "github.com/otherjamesbrown/penf-tracelink/pkg/errors"
//
//	return fmt.Errorf("%w: threshold %v outside [0,1]", tlerrors.ErrInvalidConfig, v)
//
//	if tlerrors.IsInvalidConfig(err) {
//	    // configuration problem, fail fast
//	}
package errors

import "errors"

// Domain errors.
var (
	// ErrNotFound indicates a referenced element does not exist.
	ErrNotFound = errors.New("not found")

	// ErrValidation indicates invalid input data.
	ErrValidation = errors.New("validation error")

	// ErrInvalidConfig indicates a configuration value is out of range or malformed.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrUnknownMeasure indicates a similarity measure name has no registered factory.
	ErrUnknownMeasure = errors.New("unknown similarity measure")
)

// IsNotFound reports whether any error in err's chain is ErrNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsValidation reports whether any error in err's chain is ErrValidation.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsInvalidConfig reports whether err is a configuration error. An unknown
// measure is a configuration error too.
func IsInvalidConfig(err error) bool {
	return errors.Is(err, ErrInvalidConfig) || errors.Is(err, ErrUnknownMeasure)
}

// IsUnknownMeasure reports whether any error in err's chain is ErrUnknownMeasure.
func IsUnknownMeasure(err error) bool {
	return errors.Is(err, ErrUnknownMeasure)
}
