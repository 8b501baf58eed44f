package dynafield

import (
	"errors"
	"fmt"
)

var (
	// ErrItemNotFound is returned when an item is not found in DynamoDB operations.
	ErrItemNotFound = errors.New("item not found")

	// ErrInvalidKey is returned when a dictionary key is not a string, is empty,
	// or starts with [ReservedPrefix].
	ErrInvalidKey = errors.New("invalid dictionary key")

	// ErrKeyNotFound is returned when reading or deleting a dictionary key that
	// is not present on the record.
	ErrKeyNotFound = errors.New("dictionary key not found")

	// ErrUnsupportedFilter is the target of every [BadFilterError].
	ErrUnsupportedFilter = errors.New("unsupported filter")

	// ErrMalformedJSON is returned when a compact JSON value cannot be decoded.
	ErrMalformedJSON = errors.New("malformed json")

	// ErrReservedAttribute is returned when an entity declares a top level
	// attribute that collides with the envelope attributes.
	ErrReservedAttribute = errors.New("reserved attribute name")
)

// BadFilterError reports a filter that cannot be built, either because the
// operator is not allowed on the field or because the expression builder
// rejected it. It always matches [ErrUnsupportedFilter] with errors.Is.
type BadFilterError struct {
	Field  string // document path the filter was built on
	Op     string // operator, if any
	Reason string // human readable cause
	Err    error  // underlying builder error, if any
}

func (e *BadFilterError) Error() string {
	msg := "bad filter"
	if e.Field != "" {
		msg += " on " + e.Field
	}
	if e.Op != "" {
		msg += " (" + e.Op + ")"
	}
	if e.Reason != "" {
		msg += ": " + e.Reason
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BadFilterError) Is(target error) bool {
	return target == ErrUnsupportedFilter
}

func (e *BadFilterError) Unwrap() error {
	return e.Err
}

func keyError(sentinel error, key any) error {
	return fmt.Errorf("%w: %#v", sentinel, key)
}
