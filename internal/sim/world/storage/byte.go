package storage

import (
	"fmt"

	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
)

const byteMaxPalette = 256

// ByteStorage keeps one palette index per byte.
type ByteStorage struct {
	palette
	data [Volume]byte
}

func NewByteStorage(air *catalogs.Block) *ByteStorage {
	return &ByteStorage{palette: newPalette(air)}
}

// NewByteStorageFrom widens a nibble grid. The palette is copied by reference;
// n is not modified.
func NewByteStorageFrom(n *NibbleStorage) *ByteStorage {
	s := &ByteStorage{palette: n.palette.clone()}
	n.unpack(s.data[:])
	return s
}

func (s *ByteStorage) Block(x, y, z int) *catalogs.Block { return blockAt(s, x, y, z) }

func (s *ByteStorage) SetBlock(x, y, z int, b *catalogs.Block) error {
	return setBlock(s, x, y, z, b)
}

func (s *ByteStorage) Bytes() []byte {
	out := make([]byte, len(s.data))
	copy(out, s.data[:])
	return out
}

func (s *ByteStorage) MaxPaletteSize() int { return byteMaxPalette }
func (s *ByteStorage) Bits() int           { return 8 }

func (s *ByteStorage) index(i int) int   { return int(s.data[i]) }
func (s *ByteStorage) setIndex(i, v int) { s.data[i] = byte(v) }

func (s *ByteStorage) load(data []byte, paletteSize int) error {
	for i, b := range data {
		if int(b) >= paletteSize {
			return fmt.Errorf("storage: voxel %d index %d past palette of %d", i, b, paletteSize)
		}
	}
	copy(s.data[:], data)
	return nil
}
