package pds

import (
	"errors"
	"fmt"
)

var (
	// ErrUnsupported is matched by every *UnsupportedError.
	ErrUnsupported = errors.New("pds: unsupported accessor")
	// ErrMixedList is returned when a list holds items of different variants.
	ErrMixedList = errors.New("pds: list items do not share one tag")
	// ErrTooDeep is returned when decoding nests deeper than MaxDepth.
	ErrTooDeep = errors.New("pds: nesting too deep")
	// ErrMissing is returned by typed compound getters for absent keys.
	ErrMissing = errors.New("pds: missing key")
	// ErrNilItem is returned when asked to write a nil item.
	ErrNilItem = errors.New("pds: nil item")
)

// UnsupportedError reports an accessor the variant does not implement.
type UnsupportedError struct {
	Variant Tag
	Kind    string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("pds: %q does not contain %q", e.Variant.String(), e.Kind)
}

func (e *UnsupportedError) Is(target error) bool { return target == ErrUnsupported }

// UnknownTagError reports a tag byte outside the registry.
type UnknownTagError struct {
	Tag Tag
}

func (e *UnknownTagError) Error() string {
	return fmt.Sprintf("pds: unknown tag %d", uint8(e.Tag))
}

// LengthError reports a string or array that cannot be length-prefixed, or a
// prefix read from a stream that is out of range.
type LengthError struct {
	Variant Tag
	Length  int
	Max     int
}

func (e *LengthError) Error() string {
	return fmt.Sprintf("pds: %s length %d exceeds %d", e.Variant, e.Length, e.Max)
}

func unsupported(it Item, kind string) error {
	return &UnsupportedError{Variant: it.Tag(), Kind: kind}
}
