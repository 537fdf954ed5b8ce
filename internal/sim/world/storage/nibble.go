package storage

import (
	"fmt"

	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
)

const nibbleMaxPalette = 16

// NibbleStorage packs two 4-bit palette indices per byte. The voxel with the
// even flat index sits in the low nibble, its odd neighbour in the high one.
type NibbleStorage struct {
	palette
	data [Volume / 2]byte
}

// NewNibbleStorage returns an all-air grid.
func NewNibbleStorage(air *catalogs.Block) *NibbleStorage {
	return &NibbleStorage{palette: newPalette(air)}
}

func (s *NibbleStorage) Block(x, y, z int) *catalogs.Block { return blockAt(s, x, y, z) }

func (s *NibbleStorage) SetBlock(x, y, z int, b *catalogs.Block) error {
	return setBlock(s, x, y, z, b)
}

func (s *NibbleStorage) Bytes() []byte {
	out := make([]byte, len(s.data))
	copy(out, s.data[:])
	return out
}

func (s *NibbleStorage) MaxPaletteSize() int { return nibbleMaxPalette }
func (s *NibbleStorage) Bits() int           { return 4 }

func (s *NibbleStorage) index(i int) int {
	b := s.data[i>>1]
	if i&1 == 1 {
		return int(b >> 4)
	}
	return int(b & 0x0F)
}

func (s *NibbleStorage) setIndex(i, v int) {
	j := i >> 1
	if i&1 == 1 {
		s.data[j] = s.data[j]&0x0F | byte(v)<<4
	} else {
		s.data[j] = s.data[j]&0xF0 | byte(v)&0x0F
	}
}

// unpack writes one palette index per byte into dst, which must hold Volume
// bytes.
func (s *NibbleStorage) unpack(dst []byte) {
	for j, b := range s.data {
		dst[2*j] = b & 0x0F
		dst[2*j+1] = b >> 4
	}
}

func (s *NibbleStorage) load(data []byte, paletteSize int) error {
	for j, b := range data {
		lo, hi := int(b&0x0F), int(b>>4)
		if lo >= paletteSize || hi >= paletteSize {
			return fmt.Errorf("storage: byte %d (%#02x) indexes past palette of %d", j, b, paletteSize)
		}
	}
	copy(s.data[:], data)
	return nil
}
