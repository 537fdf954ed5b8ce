package pds

import (
	"math"
	"strconv"
)

// Accessor kinds, as reported by UnsupportedError.
const (
	KindByte   = "byte"
	KindShort  = "short"
	KindInt    = "int"
	KindLong   = "long"
	KindFloat  = "float"
	KindDouble = "double"
	KindString = "String"
	KindBytes  = "byte[]"
)

// The numeric accessors narrow integers by keeping the low bits. Float to
// integer truncates toward zero and saturates: NaN is 0, out of range values
// clamp to the int32 (byte, short, int) or int64 (long) limits, and byte and
// short then keep the low bits of the clamped int32. Only Byte, Short, Int,
// Long, Float and Double implement them.

func floatToInt32(f float64) int32 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt32:
		return math.MaxInt32
	case f <= math.MinInt32:
		return math.MinInt32
	}
	return int32(f)
}

func floatToInt64(f float64) int64 {
	switch {
	case math.IsNaN(f):
		return 0
	case f >= math.MaxInt64:
		return math.MaxInt64
	case f <= math.MinInt64:
		return math.MinInt64
	}
	return int64(f)
}

func AsByte(it Item) (int8, error) {
	switch v := it.(type) {
	case *Byte:
		return v.Value, nil
	case *Short:
		return int8(v.Value), nil
	case *Int:
		return int8(v.Value), nil
	case *Long:
		return int8(v.Value), nil
	case *Float:
		return int8(floatToInt32(float64(v.Value))), nil
	case *Double:
		return int8(floatToInt32(v.Value)), nil
	}
	return 0, unsupportedOrNil(it, KindByte)
}

func AsShort(it Item) (int16, error) {
	switch v := it.(type) {
	case *Byte:
		return int16(v.Value), nil
	case *Short:
		return v.Value, nil
	case *Int:
		return int16(v.Value), nil
	case *Long:
		return int16(v.Value), nil
	case *Float:
		return int16(floatToInt32(float64(v.Value))), nil
	case *Double:
		return int16(floatToInt32(v.Value)), nil
	}
	return 0, unsupportedOrNil(it, KindShort)
}

func AsInt(it Item) (int32, error) {
	switch v := it.(type) {
	case *Byte:
		return int32(v.Value), nil
	case *Short:
		return int32(v.Value), nil
	case *Int:
		return v.Value, nil
	case *Long:
		return int32(v.Value), nil
	case *Float:
		return floatToInt32(float64(v.Value)), nil
	case *Double:
		return floatToInt32(v.Value), nil
	}
	return 0, unsupportedOrNil(it, KindInt)
}

func AsLong(it Item) (int64, error) {
	switch v := it.(type) {
	case *Byte:
		return int64(v.Value), nil
	case *Short:
		return int64(v.Value), nil
	case *Int:
		return int64(v.Value), nil
	case *Long:
		return v.Value, nil
	case *Float:
		return floatToInt64(float64(v.Value)), nil
	case *Double:
		return floatToInt64(v.Value), nil
	}
	return 0, unsupportedOrNil(it, KindLong)
}

func AsFloat(it Item) (float32, error) {
	switch v := it.(type) {
	case *Byte:
		return float32(v.Value), nil
	case *Short:
		return float32(v.Value), nil
	case *Int:
		return float32(v.Value), nil
	case *Long:
		return float32(v.Value), nil
	case *Float:
		return v.Value, nil
	case *Double:
		return float32(v.Value), nil
	}
	return 0, unsupportedOrNil(it, KindFloat)
}

func AsDouble(it Item) (float64, error) {
	switch v := it.(type) {
	case *Byte:
		return float64(v.Value), nil
	case *Short:
		return float64(v.Value), nil
	case *Int:
		return float64(v.Value), nil
	case *Long:
		return float64(v.Value), nil
	case *Float:
		return float64(v.Value), nil
	case *Double:
		return v.Value, nil
	}
	return 0, unsupportedOrNil(it, KindDouble)
}

// AsString is implemented by String and by the floating point variants, which
// render their shortest decimal form.
func AsString(it Item) (string, error) {
	switch v := it.(type) {
	case *String:
		return v.Value, nil
	case *Float:
		return strconv.FormatFloat(float64(v.Value), 'g', -1, 32), nil
	case *Double:
		return strconv.FormatFloat(v.Value, 'g', -1, 64), nil
	}
	return "", unsupportedOrNil(it, KindString)
}

func AsBytes(it Item) ([]byte, error) {
	if v, ok := it.(*ByteArray); ok {
		return v.Value, nil
	}
	return nil, unsupportedOrNil(it, KindBytes)
}

// AsBool is AsByte() != 0.
func AsBool(it Item) (bool, error) {
	b, err := AsByte(it)
	return b != 0, err
}

// The unsigned views reinterpret the signed payload; the stored bits are the
// same.

func AsUnsignedByte(it Item) (uint8, error) {
	v, err := AsByte(it)
	return uint8(v), err
}

func AsUnsignedShort(it Item) (uint16, error) {
	v, err := AsShort(it)
	return uint16(v), err
}

func AsUnsignedInt(it Item) (uint32, error) {
	v, err := AsInt(it)
	return uint32(v), err
}

func unsupportedOrNil(it Item, kind string) error {
	if it == nil {
		return ErrNilItem
	}
	return unsupported(it, kind)
}
