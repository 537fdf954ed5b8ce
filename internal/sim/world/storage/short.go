package storage

import (
	"encoding/binary"
	"fmt"

	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
)

const shortMaxPalette = 1 << 16

// ShortStorage keeps a 16-bit palette index per voxel. Bytes serializes each
// index big-endian.
type ShortStorage struct {
	palette
	data [Volume]uint16
}

func NewShortStorage(air *catalogs.Block) *ShortStorage {
	return &ShortStorage{palette: newPalette(air)}
}

// NewShortStorageFrom widens a byte grid. b is not modified.
func NewShortStorageFrom(b *ByteStorage) *ShortStorage {
	s := &ShortStorage{palette: b.palette.clone()}
	for i, v := range b.data {
		s.data[i] = uint16(v)
	}
	return s
}

func (s *ShortStorage) Block(x, y, z int) *catalogs.Block { return blockAt(s, x, y, z) }

func (s *ShortStorage) SetBlock(x, y, z int, b *catalogs.Block) error {
	return setBlock(s, x, y, z, b)
}

func (s *ShortStorage) Bytes() []byte {
	out := make([]byte, 2*len(s.data))
	for i, v := range s.data {
		binary.BigEndian.PutUint16(out[2*i:], v)
	}
	return out
}

func (s *ShortStorage) MaxPaletteSize() int { return shortMaxPalette }
func (s *ShortStorage) Bits() int           { return 16 }

func (s *ShortStorage) index(i int) int   { return int(s.data[i]) }
func (s *ShortStorage) setIndex(i, v int) { s.data[i] = uint16(v) }

func (s *ShortStorage) load(data []byte, paletteSize int) error {
	for i := range s.data {
		v := binary.BigEndian.Uint16(data[2*i:])
		if int(v) >= paletteSize {
			return fmt.Errorf("storage: voxel %d index %d past palette of %d", i, v, paletteSize)
		}
		s.data[i] = v
	}
	return nil
}
