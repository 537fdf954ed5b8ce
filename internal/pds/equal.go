package pds

import (
	"bytes"
	"math"
)

// Equal reports whether a and b hold the same variant and payload. Floats
// compare by bit pattern, so a NaN equals itself after a round trip. Lists and
// compounds compare element by element, in order.
func Equal(a, b Item) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.Tag() != b.Tag() {
		return false
	}
	switch x := a.(type) {
	case *Byte:
		return x.Value == b.(*Byte).Value
	case *Short:
		return x.Value == b.(*Short).Value
	case *Int:
		return x.Value == b.(*Int).Value
	case *Long:
		return x.Value == b.(*Long).Value
	case *Float:
		return math.Float32bits(x.Value) == math.Float32bits(b.(*Float).Value)
	case *Double:
		return math.Float64bits(x.Value) == math.Float64bits(b.(*Double).Value)
	case *ByteArray:
		return bytes.Equal(x.Value, b.(*ByteArray).Value)
	case *String:
		return x.Value == b.(*String).Value
	case *List:
		y := b.(*List)
		if len(x.Items) != len(y.Items) {
			return false
		}
		for i := range x.Items {
			if !Equal(x.Items[i], y.Items[i]) {
				return false
			}
		}
		return true
	case *Compound:
		y := b.(*Compound)
		if len(x.keys) != len(y.keys) {
			return false
		}
		for i, k := range x.keys {
			if y.keys[i] != k || !Equal(x.items[k], y.items[k]) {
				return false
			}
		}
		return true
	}
	return false
}
