package pds

import (
	"fmt"
	"strings"
)

// Compound maps names to items, preserving insertion order so that encoding is
// deterministic. On the wire each entry is [tag][name][payload] and a lone
// TagEnd byte closes the compound.
type Compound struct {
	keys  []string
	items map[string]Item
}

func NewCompound() *Compound {
	return &Compound{items: map[string]Item{}}
}

func (*Compound) Tag() Tag { return TagCompound }

func (c *Compound) Len() int { return len(c.keys) }

// Keys returns the names in insertion order.
func (c *Compound) Keys() []string {
	out := make([]string, len(c.keys))
	copy(out, c.keys)
	return out
}

// Set stores it under name. Replacing an existing name keeps its position.
func (c *Compound) Set(name string, it Item) *Compound {
	if c.items == nil {
		c.items = map[string]Item{}
	}
	if _, ok := c.items[name]; !ok {
		c.keys = append(c.keys, name)
	}
	c.items[name] = it
	return c
}

func (c *Compound) Get(name string) (Item, bool) {
	it, ok := c.items[name]
	return it, ok
}

func (c *Compound) Has(name string) bool {
	_, ok := c.items[name]
	return ok
}

func (c *Compound) Delete(name string) {
	if _, ok := c.items[name]; !ok {
		return
	}
	delete(c.items, name)
	for i, k := range c.keys {
		if k == name {
			c.keys = append(c.keys[:i], c.keys[i+1:]...)
			break
		}
	}
}

func (c *Compound) lookup(name string) (Item, error) {
	it, ok := c.items[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrMissing, name)
	}
	return it, nil
}

func (c *Compound) GetByte(name string) (int8, error) {
	it, err := c.lookup(name)
	if err != nil {
		return 0, err
	}
	return AsByte(it)
}

func (c *Compound) GetInt(name string) (int32, error) {
	it, err := c.lookup(name)
	if err != nil {
		return 0, err
	}
	return AsInt(it)
}

func (c *Compound) GetLong(name string) (int64, error) {
	it, err := c.lookup(name)
	if err != nil {
		return 0, err
	}
	return AsLong(it)
}

func (c *Compound) GetString(name string) (string, error) {
	it, err := c.lookup(name)
	if err != nil {
		return "", err
	}
	return AsString(it)
}

func (c *Compound) GetBytes(name string) ([]byte, error) {
	it, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	return AsBytes(it)
}

func (c *Compound) GetList(name string) (*List, error) {
	it, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	l, ok := it.(*List)
	if !ok {
		return nil, unsupported(it, "List")
	}
	return l, nil
}

func (c *Compound) GetCompound(name string) (*Compound, error) {
	it, err := c.lookup(name)
	if err != nil {
		return nil, err
	}
	sub, ok := it.(*Compound)
	if !ok {
		return nil, unsupported(it, "Compound")
	}
	return sub, nil
}

func (c *Compound) String() string {
	parts := make([]string, 0, len(c.keys))
	for _, k := range c.keys {
		v := "null"
		if it := c.items[k]; it != nil {
			v = it.String()
		}
		parts = append(parts, fmt.Sprintf("%q:%s", k, v))
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func (c *Compound) encode(e *encoder) error {
	for _, k := range c.keys {
		it := c.items[k]
		if isNil(it) {
			return fmt.Errorf("%q: %w", k, ErrNilItem)
		}
		if err := e.u8(uint8(it.Tag())); err != nil {
			return err
		}
		if err := e.str(k); err != nil {
			return fmt.Errorf("key %.32q: %w", k, err)
		}
		if err := it.encode(e); err != nil {
			return fmt.Errorf("%q: %w", k, err)
		}
	}
	return e.u8(uint8(TagEnd))
}

func (c *Compound) decode(d *decoder) error {
	if err := d.enter(); err != nil {
		return err
	}
	defer d.leave()

	if c.items == nil {
		c.items = map[string]Item{}
	}
	for {
		t, err := d.u8()
		if err != nil {
			return err
		}
		tag := Tag(t)
		if tag == TagEnd {
			return nil
		}
		if !tag.Valid() {
			return &UnknownTagError{Tag: tag}
		}
		name, err := d.str()
		if err != nil {
			return err
		}
		if c.Has(name) {
			return fmt.Errorf("pds: duplicate compound key %q", name)
		}
		it, err := d.payload(tag)
		if err != nil {
			return fmt.Errorf("%q: %w", name, err)
		}
		c.Set(name, it)
	}
}
