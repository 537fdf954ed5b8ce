// Package storage holds the block grid of one chunk as palette indices packed
// at the narrowest width that fits the palette.
package storage

import (
	"errors"
	"fmt"

	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
	"github.com/ensign-labs/VoxelThing/internal/sim/mathx"
)

const (
	Length = 32
	Volume = Length * Length * Length
)

var (
	// ErrPaletteFull is returned by SetBlock when the block is not in the
	// palette and the palette is at MaxPaletteSize. Nothing was written; the
	// owner should Upgrade and retry on the new storage.
	ErrPaletteFull = errors.New("storage: palette full")
	// ErrNoWiderStorage is returned by Upgrade for the widest representation.
	ErrNoWiderStorage = errors.New("storage: no wider representation")
	ErrNilBlock       = errors.New("storage: nil block")
)

// OutOfBoundsError is the panic value for coordinates outside [0, Length).
type OutOfBoundsError struct {
	Op      string
	X, Y, Z int
}

func (e *OutOfBoundsError) Error() string {
	return fmt.Sprintf("storage: %s(%d, %d, %d) out of range [0, %d)", e.Op, e.X, e.Y, e.Z, Length)
}

// InBounds reports whether a local coordinate addresses a voxel.
func InBounds(x, y, z int) bool {
	return x >= 0 && x < Length && y >= 0 && y < Length && z >= 0 && z < Length
}

// BlockStorage is implemented by NibbleStorage, ByteStorage and ShortStorage.
type BlockStorage interface {
	// Block returns the block at a local coordinate. It panics with an
	// *OutOfBoundsError if the coordinate is outside the chunk.
	Block(x, y, z int) *catalogs.Block
	// SetBlock stores b at a local coordinate, appending b to the palette if
	// needed. It returns ErrPaletteFull when that would overflow the palette.
	SetBlock(x, y, z int, b *catalogs.Block) error

	// Bytes returns a copy of the grid at its native width.
	Bytes() []byte
	Palette() []*catalogs.Block
	PaletteSize() int
	MaxPaletteSize() int
	Bits() int

	grid() *palette
	index(i int) int
	setIndex(i, v int)
}

type palette struct {
	entries []*catalogs.Block
	lookup  map[*catalogs.Block]int
}

func newPalette(air *catalogs.Block) palette {
	return palette{
		entries: []*catalogs.Block{air},
		lookup:  map[*catalogs.Block]int{air: 0},
	}
}

func (p *palette) clone() palette {
	out := palette{
		entries: make([]*catalogs.Block, len(p.entries)),
		lookup:  make(map[*catalogs.Block]int, len(p.entries)),
	}
	copy(out.entries, p.entries)
	for k, v := range p.lookup {
		out.lookup[k] = v
	}
	return out
}

func (p *palette) grid() *palette { return p }

func (p *palette) Palette() []*catalogs.Block {
	out := make([]*catalogs.Block, len(p.entries))
	copy(out, p.entries)
	return out
}

func (p *palette) PaletteSize() int { return len(p.entries) }

func (p *palette) add(b *catalogs.Block) int {
	i := len(p.entries)
	p.entries = append(p.entries, b)
	p.lookup[b] = i
	return i
}

func voxelIndex(op string, x, y, z int) int {
	if !InBounds(x, y, z) {
		panic(&OutOfBoundsError{Op: op, X: x, Y: y, Z: z})
	}
	return mathx.Index3D(x, y, z, Length)
}

func blockAt(s BlockStorage, x, y, z int) *catalogs.Block {
	return s.grid().entries[s.index(voxelIndex("Block", x, y, z))]
}

func setBlock(s BlockStorage, x, y, z int, b *catalogs.Block) error {
	i := voxelIndex("SetBlock", x, y, z)
	if b == nil {
		return ErrNilBlock
	}
	p := s.grid()
	idx, ok := p.lookup[b]
	if !ok {
		if len(p.entries) >= s.MaxPaletteSize() {
			return ErrPaletteFull
		}
		idx = p.add(b)
	}
	s.setIndex(i, idx)
	return nil
}

// Upgrade returns a copy of s at the next wider representation. s itself is
// left untouched.
func Upgrade(s BlockStorage) (BlockStorage, error) {
	switch v := s.(type) {
	case *NibbleStorage:
		return NewByteStorageFrom(v), nil
	case *ByteStorage:
		return NewShortStorageFrom(v), nil
	case *ShortStorage:
		return nil, ErrNoWiderStorage
	}
	return nil, fmt.Errorf("storage: cannot upgrade %T", s)
}

// newFor returns an empty storage of the narrowest representation that holds a
// palette of the given size.
func newFor(size int, air *catalogs.Block) (BlockStorage, error) {
	switch {
	case size <= nibbleMaxPalette:
		return NewNibbleStorage(air), nil
	case size <= byteMaxPalette:
		return NewByteStorage(air), nil
	case size <= shortMaxPalette:
		return NewShortStorage(air), nil
	}
	return nil, fmt.Errorf("storage: palette size %d exceeds %d", size, shortMaxPalette)
}

// FromBytes rebuilds a storage from a palette and a grid buffer. The width is
// chosen from the palette size, never from len(data); data must match that
// width exactly and every index must address the palette. palette[0] must be
// the air block.
func FromBytes(palette []*catalogs.Block, data []byte) (BlockStorage, error) {
	if len(palette) == 0 {
		return nil, fmt.Errorf("storage: empty palette")
	}
	if !palette[0].IsAir() {
		return nil, fmt.Errorf("storage: palette[0]=%s, want %s", palette[0], catalogs.AirID)
	}
	s, err := newFor(len(palette), palette[0])
	if err != nil {
		return nil, err
	}
	p := s.grid()
	for i, b := range palette[1:] {
		if b == nil {
			return nil, fmt.Errorf("storage: palette[%d] is nil", i+1)
		}
		if _, dup := p.lookup[b]; dup {
			return nil, fmt.Errorf("storage: palette[%d]=%s repeated", i+1, b)
		}
		p.add(b)
	}
	if want := Volume * s.Bits() / 8; len(data) != want {
		return nil, fmt.Errorf("storage: %d-bit grid needs %d bytes, got %d", s.Bits(), want, len(data))
	}
	if err := s.(loader).load(data, len(palette)); err != nil {
		return nil, err
	}
	return s, nil
}

type loader interface {
	load(data []byte, paletteSize int) error
}

// Compact drops palette entries that no voxel references and returns the
// result at the narrowest representation that fits. AIR stays at index 0 and
// the surviving entries keep their order.
func Compact(s BlockStorage) BlockStorage {
	old := s.grid()
	used := make([]bool, len(old.entries))
	used[0] = true
	for i := 0; i < Volume; i++ {
		used[s.index(i)] = true
	}

	remap := make([]int, len(old.entries))
	keep := 0
	for i, u := range used {
		if u {
			remap[i] = keep
			keep++
		}
	}
	if keep == len(old.entries) {
		if n, _ := newFor(keep, old.entries[0]); n.Bits() == s.Bits() {
			return s
		}
	}

	out, err := newFor(keep, old.entries[0])
	if err != nil {
		// keep <= len(old.entries), which already fit s.
		panic(err)
	}
	p := out.grid()
	for i, b := range old.entries[1:] {
		if used[i+1] {
			p.add(b)
		}
	}
	for i := 0; i < Volume; i++ {
		out.setIndex(i, remap[s.index(i)])
	}
	return out
}

// Count returns how many voxels hold b.
func Count(s BlockStorage, b *catalogs.Block) int {
	idx, ok := s.grid().lookup[b]
	if !ok {
		return 0
	}
	n := 0
	for i := 0; i < Volume; i++ {
		if s.index(i) == idx {
			n++
		}
	}
	return n
}

// IsEmpty reports whether every voxel is air.
func IsEmpty(s BlockStorage) bool {
	for i := 0; i < Volume; i++ {
		if s.index(i) != 0 {
			return false
		}
	}
	return true
}
