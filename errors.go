package ragfmt

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedInput is returned when an input sequence holds an element that is not a map.
	ErrMalformedInput = errors.New("malformed input")

	// ErrDecode is returned when a raw result document cannot be decoded.
	ErrDecode = errors.New("decode raw result")
)

// MalformedInputError reports the first non-map element found in an input sequence.
//
// It satisfies errors.Is(err, ErrMalformedInput).
type MalformedInputError struct {
	// Section names the input sequence ("entities", "relations", "chunks", "references" or "batch").
	Section string
	// Index is the position of the offending element.
	Index int
	// Type is the Go type of the offending element.
	Type string
}

func (e *MalformedInputError) Error() string {
	return fmt.Sprintf("malformed input: %s[%d] is %s, want a map", e.Section, e.Index, e.Type)
}

func (e *MalformedInputError) Unwrap() error { return ErrMalformedInput }
