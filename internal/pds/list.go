package pds

import (
	"fmt"
	"strings"
)

// List is an ordered sequence of items sharing one variant. The element tag is
// written once, then an i32 count, then each element's payload without its
// own tag. An empty list may carry TagEnd as its element tag.
type List struct {
	Elem  Tag
	Items []Item
}

// NewList returns an empty list whose elements will be of variant elem.
func NewList(elem Tag, items ...Item) *List {
	l := &List{Elem: elem}
	l.Items = append(l.Items, items...)
	return l
}

func (*List) Tag() Tag { return TagList }

func (l *List) Len() int { return len(l.Items) }

func (l *List) At(i int) Item { return l.Items[i] }

// Add appends it. The first item added to an untyped list fixes the element
// tag; later items must match it.
func (l *List) Add(it Item) error {
	if isNil(it) {
		return ErrNilItem
	}
	if l.Elem == TagEnd {
		l.Elem = it.Tag()
	}
	if it.Tag() != l.Elem {
		return fmt.Errorf("%w: list of %s, got %s", ErrMixedList, l.Elem, it.Tag())
	}
	l.Items = append(l.Items, it)
	return nil
}

func (l *List) String() string {
	parts := make([]string, 0, len(l.Items))
	for _, it := range l.Items {
		parts = append(parts, it.String())
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func (l *List) encode(e *encoder) error {
	elem := l.Elem
	if elem == TagEnd && len(l.Items) > 0 {
		elem = l.Items[0].Tag()
	}
	if len(l.Items) > MaxListLen {
		return &LengthError{Variant: TagList, Length: len(l.Items), Max: MaxListLen}
	}
	for i, it := range l.Items {
		if isNil(it) {
			return fmt.Errorf("[%d]: %w", i, ErrNilItem)
		}
		if it.Tag() != elem {
			return fmt.Errorf("%w: [%d] is %s, list of %s", ErrMixedList, i, it.Tag(), elem)
		}
	}
	if err := e.u8(uint8(elem)); err != nil {
		return err
	}
	if err := e.u32(uint32(len(l.Items))); err != nil {
		return err
	}
	for i, it := range l.Items {
		if err := e.payload(it); err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
	}
	return nil
}

func (l *List) decode(d *decoder) error {
	if err := d.enter(); err != nil {
		return err
	}
	defer d.leave()

	t, err := d.u8()
	if err != nil {
		return err
	}
	elem := Tag(t)
	n, err := d.u32()
	if err != nil {
		return err
	}
	if n > MaxListLen {
		return &LengthError{Variant: TagList, Length: int(n), Max: MaxListLen}
	}
	// TagEnd is only a legal element tag for an empty list.
	if !elem.Valid() && (n > 0 || elem != TagEnd) {
		return &UnknownTagError{Tag: elem}
	}
	l.Elem = elem
	// Grow as elements arrive; the count comes from the stream.
	l.Items = make([]Item, 0, min(int(n), 1024))
	for i := 0; i < int(n); i++ {
		it, err := d.payload(elem)
		if err != nil {
			return fmt.Errorf("[%d]: %w", i, err)
		}
		l.Items = append(l.Items, it)
	}
	return nil
}
