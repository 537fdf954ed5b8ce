package pds

import "fmt"

// Tag identifies the concrete variant of a serialized item. The numeric values
// are the wire contract: reordering them requires a format version bump.
type Tag uint8

const (
	TagEnd Tag = iota // sentinel: end of compound / no item
	TagByte
	TagShort
	TagInt
	TagLong
	TagFloat
	TagDouble
	TagByteArray
	TagString
	TagList
	TagCompound
)

// maxTag is the highest registered tag.
const maxTag = TagCompound

var tagNames = [...]string{
	TagEnd:       "End",
	TagByte:      "Byte",
	TagShort:     "Short",
	TagInt:       "Int",
	TagLong:      "Long",
	TagFloat:     "Float",
	TagDouble:    "Double",
	TagByteArray: "ByteArray",
	TagString:    "String",
	TagList:      "List",
	TagCompound:  "Compound",
}

func (t Tag) String() string {
	if t <= maxTag {
		return tagNames[t]
	}
	return fmt.Sprintf("Tag(%d)", uint8(t))
}

// Valid reports whether t names a real payload variant (End is not one).
func (t Tag) Valid() bool {
	return t > TagEnd && t <= maxTag
}

// newItem returns the zero value of the variant registered under t. The table
// is closed: every valid tag has a case here.
func newItem(t Tag) (Item, error) {
	switch t {
	case TagByte:
		return new(Byte), nil
	case TagShort:
		return new(Short), nil
	case TagInt:
		return new(Int), nil
	case TagLong:
		return new(Long), nil
	case TagFloat:
		return new(Float), nil
	case TagDouble:
		return new(Double), nil
	case TagByteArray:
		return new(ByteArray), nil
	case TagString:
		return new(String), nil
	case TagList:
		return new(List), nil
	case TagCompound:
		return NewCompound(), nil
	default:
		return nil, &UnknownTagError{Tag: t}
	}
}
