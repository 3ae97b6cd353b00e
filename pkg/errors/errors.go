// Package errors provides the typed errors used across newsclf.
//
// The error types mirror the failure categories of scikit-learn style estimators:
//
//   - NotFittedError: an estimator was used before Fit
//   - DimensionError: row or column counts do not agree
//   - ValueError: an argument has an invalid value
//   - ValidationError: a named parameter or input failed validation
//   - ModelError: an operation failed, wrapping a root cause such as ErrEmptyData
//   - ConvergenceWarning: an iterative solver stopped before converging
//
// Construction and wrapping helpers are re-exported from github.com/cockroachdb/errors so that
// callers get stack traces with %+v while keeping errors.Is / errors.As semantics.
package errors

import (
	"fmt"
	"math"

	"github.com/cockroachdb/errors"
)

const prefix = "newsclf"

// Sentinel errors.
var (
	ErrEmptyData = errors.New("empty data")
	ErrNumerical = errors.New("numerical instability")
)

// Re-exported helpers from cockroachdb/errors.
var (
	New    = errors.New
	Newf   = errors.Newf
	Wrap   = errors.Wrap
	Wrapf  = errors.Wrapf
	Is     = errors.Is
	As     = errors.As
	Unwrap = errors.Unwrap
)

// NotFittedError is returned when a model is used before it has been fitted.
type NotFittedError struct {
	ModelName string
	Method    string
}

// NewNotFittedError creates a NotFittedError.
func NewNotFittedError(modelName, method string) error {
	return &NotFittedError{ModelName: modelName, Method: method}
}

func (e *NotFittedError) Error() string {
	return fmt.Sprintf("%s: %s: this instance is not fitted yet; call Fit before %s",
		prefix, e.ModelName, e.Method)
}

// DimensionError reports a size mismatch along Axis (0 for rows, 1 for columns).
type DimensionError struct {
	Op       string
	Expected int
	Got      int
	Axis     int
}

// NewDimensionError creates a DimensionError.
func NewDimensionError(op string, expected, got, axis int) error {
	return &DimensionError{Op: op, Expected: expected, Got: got, Axis: axis}
}

func (e *DimensionError) Error() string {
	axis := "rows"
	if e.Axis == 1 {
		axis = "columns"
	}
	return fmt.Sprintf("%s: %s: dimension mismatch in %s: expected %d, got %d",
		prefix, e.Op, axis, e.Expected, e.Got)
}

// ValueError reports an invalid argument value.
type ValueError struct {
	Op      string
	Message string
}

// NewValueError creates a ValueError.
func NewValueError(op, message string) error {
	return &ValueError{Op: op, Message: message}
}

func (e *ValueError) Error() string {
	return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Message)
}

// ValidationError reports that a named parameter or input failed validation.
type ValidationError struct {
	ParamName string
	Reason    string
	Value     interface{}
}

// NewValidationError creates a ValidationError.
func NewValidationError(paramName, reason string, value interface{}) error {
	return &ValidationError{ParamName: paramName, Reason: reason, Value: value}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: invalid %s: %s (value: %v)", prefix, e.ParamName, e.Reason, e.Value)
}

// ModelError is a failure inside an operation, wrapping its root cause.
type ModelError struct {
	Op   string
	Kind string
	Err  error
}

// NewModelError creates a ModelError.
func NewModelError(op, kind string, err error) error {
	return &ModelError{Op: op, Kind: kind, Err: err}
}

func (e *ModelError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s: %s", prefix, e.Op, e.Kind)
	}
	return fmt.Sprintf("%s: %s: %s: %v", prefix, e.Op, e.Kind, e.Err)
}

func (e *ModelError) Unwrap() error {
	return e.Err
}

// ConvergenceWarning signals that an iterative algorithm hit its iteration limit.
type ConvergenceWarning struct {
	Algorithm  string
	Iterations int
	Message    string
}

// NewConvergenceWarning creates a ConvergenceWarning.
func NewConvergenceWarning(algorithm string, iterations int, message string) *ConvergenceWarning {
	return &ConvergenceWarning{Algorithm: algorithm, Iterations: iterations, Message: message}
}

func (w *ConvergenceWarning) Error() string {
	return fmt.Sprintf("%s: %s failed to converge after %d iterations: %s",
		prefix, w.Algorithm, w.Iterations, w.Message)
}

// CheckScalar returns an error wrapping ErrNumerical when v is NaN or infinite.
func CheckScalar(name string, v float64, iteration int) error {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NewModelError(fmt.Sprintf("%s (iteration %d)", name, iteration),
			fmt.Sprintf("non-finite value %v", v), ErrNumerical)
	}
	return nil
}

// Recover converts a panic into an error assigned to *err. Use with defer.
func Recover(err *error, op string) {
	if r := recover(); r != nil {
		if e, ok := r.(error); ok {
			*err = errors.Wrapf(e, "%s: panic", op)
			return
		}
		*err = errors.Newf("%s: panic: %v", op, r)
	}
}
