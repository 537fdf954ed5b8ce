package pds

import (
	"errors"
	"math"
	"strings"
	"testing"
)

func TestUnsignedViews(t *testing.T) {
	b := NewByte(-1)
	if v, err := AsByte(b); err != nil || v != -1 {
		t.Fatalf("AsByte=%d,%v want -1", v, err)
	}
	if v, err := AsUnsignedByte(b); err != nil || v != 255 {
		t.Fatalf("AsUnsignedByte=%d,%v want 255", v, err)
	}

	// The bytes on the wire do not depend on the view.
	raw, err := Marshal(b)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if raw[1] != 0xFF {
		t.Fatalf("payload=%x want ff", raw[1])
	}

	if v, _ := AsUnsignedShort(NewShort(-1)); v != 0xFFFF {
		t.Fatalf("AsUnsignedShort=%d want 65535", v)
	}
	if v, _ := AsUnsignedInt(NewInt(-1)); v != 0xFFFFFFFF {
		t.Fatalf("AsUnsignedInt=%d want 4294967295", v)
	}
	// Unsigned byte of a wider value views its low byte.
	if v, _ := AsUnsignedByte(NewInt(0x1FF)); v != 0xFF {
		t.Fatalf("AsUnsignedByte(Int 0x1FF)=%d want 255", v)
	}
}

func TestUnsupportedAccessor(t *testing.T) {
	_, err := AsString(NewInt(5))
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err=%v want ErrUnsupported", err)
	}
	var ue *UnsupportedError
	if !errors.As(err, &ue) {
		t.Fatalf("err=%T want *UnsupportedError", err)
	}
	if ue.Variant != TagInt || ue.Kind != KindString {
		t.Fatalf("got variant=%s kind=%s", ue.Variant, ue.Kind)
	}
	if msg := err.Error(); !strings.Contains(msg, "Int") || !strings.Contains(msg, "String") {
		t.Fatalf("message %q should name Int and String", msg)
	}

	cases := []struct {
		name string
		call func() error
	}{
		{"string as int", func() error { _, err := AsInt(NewString("1")); return err }},
		{"bytes as long", func() error { _, err := AsLong(NewByteArray([]byte{1})); return err }},
		{"list as byte", func() error { _, err := AsByte(NewList(TagEnd)); return err }},
		{"compound as string", func() error { _, err := AsString(NewCompound()); return err }},
		{"int as bytes", func() error { _, err := AsBytes(NewInt(1)); return err }},
		{"string as bool", func() error { _, err := AsBool(NewString("true")); return err }},
	}
	for _, tc := range cases {
		if err := tc.call(); !errors.Is(err, ErrUnsupported) {
			t.Fatalf("%s: err=%v want ErrUnsupported", tc.name, err)
		}
	}
}

func TestNumericConversions(t *testing.T) {
	f := NewFloat(3.75)
	if v, err := AsInt(f); err != nil || v != 3 {
		t.Fatalf("AsInt(3.75)=%d,%v want 3", v, err)
	}
	if v, err := AsByte(NewFloat(-2.9)); err != nil || v != -2 {
		t.Fatalf("AsByte(-2.9)=%d,%v want -2", v, err)
	}
	if v, err := AsDouble(f); err != nil || v != 3.75 {
		t.Fatalf("AsDouble=%v,%v want 3.75", v, err)
	}
	if s, err := AsString(f); err != nil || s != "3.75" {
		t.Fatalf("AsString=%q,%v want 3.75", s, err)
	}
	if s, err := AsString(NewDouble(0.1)); err != nil || s != "0.1" {
		t.Fatalf("AsString(double)=%q,%v want 0.1", s, err)
	}
	if v, _ := AsShort(NewInt(0x12345)); v != 0x2345 {
		t.Fatalf("AsShort narrowing=%#x want 0x2345", v)
	}
	if v, _ := AsLong(NewByte(-5)); v != -5 {
		t.Fatalf("AsLong(byte -5)=%d", v)
	}
	if v, _ := AsBool(NewByte(2)); !v {
		t.Fatalf("AsBool(2)=false")
	}
	if v, _ := AsBool(NewBool(false)); v {
		t.Fatalf("AsBool(false)=true")
	}
}

func TestNumericConversions_FloatSaturates(t *testing.T) {
	nan := float32(math.NaN())
	inf := float32(math.Inf(1))
	cases := []struct {
		name string
		it   Item
		i32  int32
		i64  int64
		i8   int8
		i16  int16
	}{
		{"1e20", NewFloat(1e20), math.MaxInt32, math.MaxInt64, -1, -1},
		{"-1e20", NewFloat(-1e20), math.MinInt32, math.MinInt64, 0, 0},
		{"NaN", NewFloat(nan), 0, 0, 0, 0},
		{"+Inf", NewFloat(inf), math.MaxInt32, math.MaxInt64, -1, -1},
		{"-Inf", NewFloat(-inf), math.MinInt32, math.MinInt64, 0, 0},
		{"double 1e300", NewDouble(1e300), math.MaxInt32, math.MaxInt64, -1, -1},
		{"double NaN", NewDouble(math.NaN()), 0, 0, 0, 0},
		{"300.5", NewFloat(300.5), 300, 300, 44, 300},
		{"3e9", NewDouble(3e9), math.MaxInt32, 3000000000, -1, -1},
	}
	for _, tc := range cases {
		if v, err := AsInt(tc.it); err != nil || v != tc.i32 {
			t.Fatalf("%s: AsInt=%d,%v want %d", tc.name, v, err, tc.i32)
		}
		if v, err := AsLong(tc.it); err != nil || v != tc.i64 {
			t.Fatalf("%s: AsLong=%d,%v want %d", tc.name, v, err, tc.i64)
		}
		if v, err := AsByte(tc.it); err != nil || v != tc.i8 {
			t.Fatalf("%s: AsByte=%d,%v want %d", tc.name, v, err, tc.i8)
		}
		if v, err := AsShort(tc.it); err != nil || v != tc.i16 {
			t.Fatalf("%s: AsShort=%d,%v want %d", tc.name, v, err, tc.i16)
		}
	}
}

func TestCompoundHelpers(t *testing.T) {
	c := NewCompound().Set("x", NewInt(1)).Set("y", NewInt(2)).Set("z", NewInt(3))
	c.Set("x", NewInt(10))
	if got := strings.Join(c.Keys(), ""); got != "xyz" {
		t.Fatalf("keys=%s want xyz", got)
	}
	if v, _ := c.GetInt("x"); v != 10 {
		t.Fatalf("x=%d want 10", v)
	}
	c.Delete("y")
	if got := strings.Join(c.Keys(), ""); got != "xz" {
		t.Fatalf("keys after delete=%s want xz", got)
	}
	if _, err := c.GetInt("y"); !errors.Is(err, ErrMissing) {
		t.Fatalf("err=%v want ErrMissing", err)
	}
	if _, err := c.GetString("x"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err=%v want ErrUnsupported", err)
	}
	if _, err := c.GetCompound("z"); !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err=%v want ErrUnsupported", err)
	}
}

func TestFormat(t *testing.T) {
	c := NewCompound().
		Set("name", NewString("w")).
		Set("ids", NewList(TagInt, NewInt(1), NewInt(2)))
	out := Format(c)
	for _, want := range []string{`Compound (2 entries) {`, `"name": String "w"`, `"ids": List<Int> (2 entries) [`, `Int 2`} {
		if !strings.Contains(out, want) {
			t.Fatalf("Format output missing %q:\n%s", want, out)
		}
	}
}
