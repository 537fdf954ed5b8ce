package pds

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
)

const (
	MaxStringLen    = math.MaxUint16
	MaxByteArrayLen = math.MaxInt32
	MaxListLen      = math.MaxInt32

	// MaxDepth bounds List/Compound nesting accepted by the reader.
	MaxDepth = 512
)

// WriteItem writes the tag of it followed by its payload. The item is encoded
// in memory first, so nothing reaches w when any part of it fails to encode.
func WriteItem(w io.Writer, it Item) error {
	b, err := encodeItem(it)
	if err != nil {
		return err
	}
	_, err = w.Write(b)
	return err
}

func encodeItem(it Item) ([]byte, error) {
	if isNil(it) {
		return nil, ErrNilItem
	}
	var buf bytes.Buffer
	e := &encoder{w: &buf}
	if err := e.u8(uint8(it.Tag())); err != nil {
		return nil, err
	}
	if err := it.encode(e); err != nil {
		return nil, fmt.Errorf("pds: write %s: %w", it.Tag(), err)
	}
	return buf.Bytes(), nil
}

// isNil reports whether it is nil or a nil pointer to one of the item types.
func isNil(it Item) bool {
	switch v := it.(type) {
	case nil:
		return true
	case *Byte:
		return v == nil
	case *Short:
		return v == nil
	case *Int:
		return v == nil
	case *Long:
		return v == nil
	case *Float:
		return v == nil
	case *Double:
		return v == nil
	case *ByteArray:
		return v == nil
	case *String:
		return v == nil
	case *List:
		return v == nil
	case *Compound:
		return v == nil
	}
	return false
}

// ReadItem reads one tagged item. A TagEnd byte yields (nil, nil) and nothing
// past it is consumed. A stream that ends before the tag byte yields io.EOF;
// one that ends inside a payload yields an error wrapping io.ErrUnexpectedEOF.
//
// ReadItem never reads ahead, so r may be shared with other readers; wrap it
// in a bufio.Reader for throughput.
func ReadItem(r io.Reader) (Item, error) {
	d := &decoder{r: r}
	t, err := d.tag()
	if err != nil {
		return nil, err
	}
	if t == TagEnd {
		return nil, nil
	}
	it, err := d.payload(t)
	if err != nil {
		return nil, fmt.Errorf("pds: read %s: %w", t, err)
	}
	return it, nil
}

// Marshal encodes it into a new byte slice.
func Marshal(it Item) ([]byte, error) {
	return encodeItem(it)
}

// Unmarshal decodes exactly one item from b. Trailing bytes are an error.
func Unmarshal(b []byte) (Item, error) {
	r := bytes.NewReader(b)
	it, err := ReadItem(r)
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("pds: %d trailing bytes", r.Len())
	}
	return it, nil
}

type encoder struct {
	w   io.Writer
	buf [8]byte
}

func (e *encoder) raw(b []byte) error {
	_, err := e.w.Write(b)
	return err
}

func (e *encoder) u8(v uint8) error {
	e.buf[0] = v
	return e.raw(e.buf[:1])
}

func (e *encoder) u16(v uint16) error {
	binary.BigEndian.PutUint16(e.buf[:2], v)
	return e.raw(e.buf[:2])
}

func (e *encoder) u32(v uint32) error {
	binary.BigEndian.PutUint32(e.buf[:4], v)
	return e.raw(e.buf[:4])
}

func (e *encoder) u64(v uint64) error {
	binary.BigEndian.PutUint64(e.buf[:8], v)
	return e.raw(e.buf[:8])
}

func (e *encoder) f32(v float32) error { return e.u32(math.Float32bits(v)) }
func (e *encoder) f64(v float64) error { return e.u64(math.Float64bits(v)) }

func (e *encoder) str(s string) error {
	if len(s) > MaxStringLen {
		return &LengthError{Variant: TagString, Length: len(s), Max: MaxStringLen}
	}
	if err := e.u16(uint16(len(s))); err != nil {
		return err
	}
	_, err := io.WriteString(e.w, s)
	return err
}

// payload writes the untagged body of it, refusing nil.
func (e *encoder) payload(it Item) error {
	if isNil(it) {
		return ErrNilItem
	}
	return it.encode(e)
}

type decoder struct {
	r     io.Reader
	buf   [8]byte
	depth int
}

func (d *decoder) fill(n int) error {
	_, err := io.ReadFull(d.r, d.buf[:n])
	if err == io.EOF {
		return io.ErrUnexpectedEOF
	}
	return err
}

// tag reads a tag byte. Unlike payload reads, a clean io.EOF is passed through.
func (d *decoder) tag() (Tag, error) {
	if _, err := io.ReadFull(d.r, d.buf[:1]); err != nil {
		return TagEnd, err
	}
	return Tag(d.buf[0]), nil
}

func (d *decoder) payload(t Tag) (Item, error) {
	it, err := newItem(t)
	if err != nil {
		return nil, err
	}
	if err := it.decode(d); err != nil {
		return nil, err
	}
	return it, nil
}

func (d *decoder) enter() error {
	d.depth++
	if d.depth > MaxDepth {
		return ErrTooDeep
	}
	return nil
}

func (d *decoder) leave() { d.depth-- }

func (d *decoder) u8() (uint8, error) {
	if err := d.fill(1); err != nil {
		return 0, err
	}
	return d.buf[0], nil
}

func (d *decoder) u16() (uint16, error) {
	if err := d.fill(2); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint16(d.buf[:2]), nil
}

func (d *decoder) u32() (uint32, error) {
	if err := d.fill(4); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint32(d.buf[:4]), nil
}

func (d *decoder) u64() (uint64, error) {
	if err := d.fill(8); err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(d.buf[:8]), nil
}

func (d *decoder) f32() (float32, error) {
	v, err := d.u32()
	return math.Float32frombits(v), err
}

func (d *decoder) f64() (float64, error) {
	v, err := d.u64()
	return math.Float64frombits(v), err
}

// raw reads n bytes. Large prefixes are read incrementally so a corrupt length
// cannot force a huge allocation before the stream runs dry.
func (d *decoder) raw(n int) ([]byte, error) {
	const direct = 64 * 1024
	if n <= direct {
		out := make([]byte, n)
		if _, err := io.ReadFull(d.r, out); err != nil {
			if err == io.EOF {
				return nil, io.ErrUnexpectedEOF
			}
			return nil, err
		}
		return out, nil
	}
	var buf bytes.Buffer
	buf.Grow(direct)
	got, err := io.CopyN(&buf, d.r, int64(n))
	if err != nil {
		if err == io.EOF && got < int64(n) {
			return nil, io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return buf.Bytes(), nil
}

func (d *decoder) str() (string, error) {
	n, err := d.u16()
	if err != nil {
		return "", err
	}
	b, err := d.raw(int(n))
	if err != nil {
		return "", err
	}
	return string(b), nil
}
