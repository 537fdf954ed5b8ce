package snapshot

import (
	"fmt"

	"github.com/ensign-labs/VoxelThing/internal/pds"
	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
	"github.com/ensign-labs/VoxelThing/internal/sim/world"
	"github.com/ensign-labs/VoxelThing/internal/sim/world/storage"
)

const ChunkVersion = 1

// EncodeChunk builds the chunk payload:
//
//	{version: Int, x/y/z: Int, bits: Byte, palette: List<String>, blocks: ByteArray}
//
// blocks is the storage grid at its native width, so bits and the palette size
// agree by construction.
func EncodeChunk(ch *world.Chunk) *pds.Compound {
	s := ch.Storage()
	pal := pds.NewList(pds.TagString)
	for _, b := range s.Palette() {
		pal.Items = append(pal.Items, pds.NewString(b.ID))
	}
	return pds.NewCompound().
		Set("version", pds.NewInt(ChunkVersion)).
		Set("x", pds.NewInt(int32(ch.Pos.X))).
		Set("y", pds.NewInt(int32(ch.Pos.Y))).
		Set("z", pds.NewInt(int32(ch.Pos.Z))).
		Set("bits", pds.NewByte(int8(s.Bits()))).
		Set("palette", pal).
		Set("blocks", pds.NewByteArray(s.Bytes()))
}

// DecodeChunk resolves the palette through reg and rebuilds the storage. The
// representation follows from the palette size; a "bits" field that disagrees
// is an error.
func DecodeChunk(c *pds.Compound, reg *catalogs.BlockRegistry) (*world.Chunk, error) {
	version, err := c.GetInt("version")
	if err != nil {
		return nil, fmt.Errorf("chunk: %w", err)
	}
	if version != ChunkVersion {
		return nil, fmt.Errorf("chunk: unsupported version %d", version)
	}
	var pos [3]int32
	for i, k := range []string{"x", "y", "z"} {
		if pos[i], err = c.GetInt(k); err != nil {
			return nil, fmt.Errorf("chunk: %w", err)
		}
	}
	cp := world.ChunkPos{X: int(pos[0]), Y: int(pos[1]), Z: int(pos[2])}

	bits, err := c.GetByte("bits")
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", cp, err)
	}
	pl, err := c.GetList("palette")
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", cp, err)
	}
	if pl.Len() > 0 && pl.Elem != pds.TagString {
		return nil, fmt.Errorf("chunk %s: palette is a List<%s>, want List<String>", cp, pl.Elem)
	}
	palette := make([]*catalogs.Block, pl.Len())
	for i, it := range pl.Items {
		id, err := pds.AsString(it)
		if err != nil {
			return nil, fmt.Errorf("chunk %s: palette[%d]: %w", cp, i, err)
		}
		b, ok := reg.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("chunk %s: palette[%d]: unknown block %q", cp, i, id)
		}
		palette[i] = b
	}
	data, err := c.GetBytes("blocks")
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", cp, err)
	}

	s, err := storage.FromBytes(palette, data)
	if err != nil {
		return nil, fmt.Errorf("chunk %s: %w", cp, err)
	}
	if int(bits) != s.Bits() {
		return nil, fmt.Errorf("chunk %s: bits=%d but a palette of %d needs %d", cp, bits, len(palette), s.Bits())
	}
	return world.NewChunkFrom(cp, s), nil
}
