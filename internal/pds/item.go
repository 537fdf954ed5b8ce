package pds

import (
	"fmt"
	"strconv"
)

// Item is one node of a serialized tree. The set of implementations is closed;
// they are the ten variants registered in tag.go.
type Item interface {
	Tag() Tag
	String() string

	encode(e *encoder) error
	decode(d *decoder) error
}

type Byte struct{ Value int8 }
type Short struct{ Value int16 }
type Int struct{ Value int32 }
type Long struct{ Value int64 }
type Float struct{ Value float32 }
type Double struct{ Value float64 }

// ByteArray is written as a u32 length followed by the raw bytes.
type ByteArray struct{ Value []byte }

// String is written as a u16 byte length followed by UTF-8, so at most
// MaxStringLen bytes can be stored.
type String struct{ Value string }

func NewByte(v int8) *Byte             { return &Byte{Value: v} }
func NewBool(v bool) *Byte             { return &Byte{Value: boolByte(v)} }
func NewShort(v int16) *Short          { return &Short{Value: v} }
func NewInt(v int32) *Int              { return &Int{Value: v} }
func NewLong(v int64) *Long            { return &Long{Value: v} }
func NewFloat(v float32) *Float        { return &Float{Value: v} }
func NewDouble(v float64) *Double      { return &Double{Value: v} }
func NewByteArray(v []byte) *ByteArray { return &ByteArray{Value: v} }
func NewString(v string) *String       { return &String{Value: v} }

func (*Byte) Tag() Tag      { return TagByte }
func (*Short) Tag() Tag     { return TagShort }
func (*Int) Tag() Tag       { return TagInt }
func (*Long) Tag() Tag      { return TagLong }
func (*Float) Tag() Tag     { return TagFloat }
func (*Double) Tag() Tag    { return TagDouble }
func (*ByteArray) Tag() Tag { return TagByteArray }
func (*String) Tag() Tag    { return TagString }

func (b *Byte) String() string   { return strconv.Itoa(int(b.Value)) + "b" }
func (s *Short) String() string  { return strconv.Itoa(int(s.Value)) + "s" }
func (i *Int) String() string    { return strconv.FormatInt(int64(i.Value), 10) }
func (l *Long) String() string   { return strconv.FormatInt(l.Value, 10) + "L" }
func (f *Float) String() string  { return strconv.FormatFloat(float64(f.Value), 'g', -1, 32) + "f" }
func (d *Double) String() string { return strconv.FormatFloat(d.Value, 'g', -1, 64) + "d" }
func (a *ByteArray) String() string {
	return fmt.Sprintf("[%d bytes]", len(a.Value))
}
func (s *String) String() string { return strconv.Quote(s.Value) }

func (b *Byte) encode(e *encoder) error   { return e.u8(uint8(b.Value)) }
func (s *Short) encode(e *encoder) error  { return e.u16(uint16(s.Value)) }
func (i *Int) encode(e *encoder) error    { return e.u32(uint32(i.Value)) }
func (l *Long) encode(e *encoder) error   { return e.u64(uint64(l.Value)) }
func (f *Float) encode(e *encoder) error  { return e.f32(f.Value) }
func (d *Double) encode(e *encoder) error { return e.f64(d.Value) }
func (a *ByteArray) encode(e *encoder) error {
	if uint64(len(a.Value)) > MaxByteArrayLen {
		return &LengthError{Variant: TagByteArray, Length: len(a.Value), Max: MaxByteArrayLen}
	}
	if err := e.u32(uint32(len(a.Value))); err != nil {
		return err
	}
	return e.raw(a.Value)
}
func (s *String) encode(e *encoder) error { return e.str(s.Value) }

func (b *Byte) decode(d *decoder) error {
	v, err := d.u8()
	b.Value = int8(v)
	return err
}

func (s *Short) decode(d *decoder) error {
	v, err := d.u16()
	s.Value = int16(v)
	return err
}

func (i *Int) decode(d *decoder) error {
	v, err := d.u32()
	i.Value = int32(v)
	return err
}

func (l *Long) decode(d *decoder) error {
	v, err := d.u64()
	l.Value = int64(v)
	return err
}

func (f *Float) decode(d *decoder) error {
	v, err := d.f32()
	f.Value = v
	return err
}

func (dd *Double) decode(d *decoder) error {
	v, err := d.f64()
	dd.Value = v
	return err
}

func (a *ByteArray) decode(d *decoder) error {
	n, err := d.u32()
	if err != nil {
		return err
	}
	if uint64(n) > MaxByteArrayLen {
		return &LengthError{Variant: TagByteArray, Length: int(n), Max: MaxByteArrayLen}
	}
	a.Value, err = d.raw(int(n))
	return err
}

func (s *String) decode(d *decoder) error {
	v, err := d.str()
	s.Value = v
	return err
}

func boolByte(v bool) int8 {
	if v {
		return 1
	}
	return 0
}
