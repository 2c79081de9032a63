package facet

import (
	"errors"
	"fmt"
	"reflect"
)

// Sentinel errors for programmatic error handling.
// Use errors.Is() to check for these error types.
var (
	// ErrIndexedProperty indicates a property that needs arguments to be
	// read and so cannot be addressed by a single column name.
	ErrIndexedProperty = errors.New("indexed property")

	// ErrInvalidTag indicates a role annotation has an invalid format or value.
	ErrInvalidTag = errors.New("invalid tag")

	// ErrUnknownProperty indicates a name that does not resolve to a property.
	ErrUnknownProperty = errors.New("unknown property")

	// ErrConversion indicates a value could not be converted to a target type.
	ErrConversion = errors.New("conversion failed")

	// ErrUnsupportedValue indicates a value with no Value representation.
	ErrUnsupportedValue = errors.New("unsupported value")

	// ErrUnsupportedShape indicates an operation not defined for a shape.
	ErrUnsupportedShape = errors.New("unsupported shape")
)

// ShapeError represents a failure while building a type's property catalog
// or descriptor. It is not retryable: a type's shape is static.
type ShapeError struct {
	Err      error  // Underlying sentinel error (ErrIndexedProperty, etc.)
	Type     string // Type name being described
	Property string // Offending property, if any
	Detail   string // Extra context
}

func (e *ShapeError) Error() string {
	msg := e.Err.Error()
	if e.Detail != "" {
		msg += ": " + e.Detail
	}
	switch {
	case e.Type != "" && e.Property != "":
		return fmt.Sprintf("%s (%s.%s)", msg, e.Type, e.Property)
	case e.Property != "":
		return fmt.Sprintf("%s (property %s)", msg, e.Property)
	case e.Type != "":
		return fmt.Sprintf("%s (type %s)", msg, e.Type)
	}
	return msg
}

func (e *ShapeError) Unwrap() error {
	return e.Err
}

// ConversionError represents a value that could not be coerced to a
// target type while moving it between a row and a role.
type ConversionError struct {
	Value    any          // Source value
	From     reflect.Type // Runtime type of Value, nil for untyped nil
	To       reflect.Type // Target underlying type
	Property string       // Property being written, if known
	Cause    error        // Original error from the converter
}

func (e *ConversionError) Error() string {
	msg := fmt.Sprintf("%s: %v (%s) to %s", ErrConversion.Error(), e.Value, typeString(e.From), typeString(e.To))
	if e.Property != "" {
		msg += fmt.Sprintf(" (property %s)", e.Property)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ConversionError) Unwrap() error {
	return ErrConversion
}

// newShapeError creates a ShapeError for catalog and descriptor failures.
func newShapeError(sentinel error, typeName, property, detail string) error {
	return &ShapeError{
		Err:      sentinel,
		Type:     typeName,
		Property: property,
		Detail:   detail,
	}
}

// newConversionError creates a ConversionError for a failed coercion.
func newConversionError(value any, to reflect.Type, cause error) *ConversionError {
	return &ConversionError{
		Value: value,
		From:  reflect.TypeOf(value),
		To:    to,
		Cause: cause,
	}
}

func typeString(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return t.String()
}
