package world

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
	"github.com/ensign-labs/VoxelThing/internal/sim/world/storage"
)

// Length is the edge of a cubic chunk in blocks.
const Length = storage.Length

type ChunkPos struct {
	X, Y, Z int
}

func (p ChunkPos) String() string { return fmt.Sprintf("%d,%d,%d", p.X, p.Y, p.Z) }

func (p ChunkPos) less(o ChunkPos) bool {
	if p.X != o.X {
		return p.X < o.X
	}
	if p.Y != o.Y {
		return p.Y < o.Y
	}
	return p.Z < o.Z
}

// Chunk owns the storage for one Length^3 section of the world. It swaps in a
// wider storage on its own when an edit overflows the palette.
type Chunk struct {
	Pos ChunkPos

	store    storage.BlockStorage
	upgrades int

	dirty     bool // unsaved edits
	hashStale bool
	hash      [32]byte
}

// NewChunk returns an all-air chunk backed by nibble storage.
func NewChunk(pos ChunkPos, air *catalogs.Block) *Chunk {
	return &Chunk{Pos: pos, store: storage.NewNibbleStorage(air), hashStale: true}
}

// NewChunkFrom wraps an existing storage, e.g. one read from disk. The chunk
// starts clean.
func NewChunkFrom(pos ChunkPos, s storage.BlockStorage) *Chunk {
	return &Chunk{Pos: pos, store: s, hashStale: true}
}

func (c *Chunk) Block(x, y, z int) (*catalogs.Block, error) {
	if !storage.InBounds(x, y, z) {
		return nil, &storage.OutOfBoundsError{Op: "Block", X: x, Y: y, Z: z}
	}
	return c.store.Block(x, y, z), nil
}

func (c *Chunk) SetBlock(x, y, z int, b *catalogs.Block) error {
	if !storage.InBounds(x, y, z) {
		return &storage.OutOfBoundsError{Op: "SetBlock", X: x, Y: y, Z: z}
	}
	if c.store.Block(x, y, z) == b {
		return nil
	}
	err := c.store.SetBlock(x, y, z, b)
	if errors.Is(err, storage.ErrPaletteFull) {
		up, uerr := storage.Upgrade(c.store)
		if uerr != nil {
			return fmt.Errorf("chunk %s: %w", c.Pos, uerr)
		}
		c.store = up
		c.upgrades++
		err = c.store.SetBlock(x, y, z, b)
	}
	if err != nil {
		return fmt.Errorf("chunk %s: %w", c.Pos, err)
	}
	c.dirty = true
	c.hashStale = true
	return nil
}

func (c *Chunk) Storage() storage.BlockStorage { return c.store }

// ReplaceStorage swaps the backing storage, e.g. after storage.Compact. The
// caller guarantees s holds the same blocks.
func (c *Chunk) ReplaceStorage(s storage.BlockStorage) {
	c.store = s
	c.hashStale = true
}

// Upgrades counts how many times SetBlock widened the storage.
func (c *Chunk) Upgrades() int { return c.upgrades }

func (c *Chunk) IsEmpty() bool { return storage.IsEmpty(c.store) }

func (c *Chunk) Dirty() bool { return c.dirty }
func (c *Chunk) MarkDirty()  { c.dirty = true }
func (c *Chunk) MarkClean()  { c.dirty = false }

// Digest hashes the palette ids and the grid. The value depends on the
// representation, so a compacted chunk hashes differently from its source.
func (c *Chunk) Digest() [32]byte {
	if c.hashStale {
		h := sha256.New()
		for _, b := range c.store.Palette() {
			h.Write([]byte(b.ID))
			h.Write([]byte{0})
		}
		h.Write(c.store.Bytes())
		copy(c.hash[:], h.Sum(nil))
		c.hashStale = false
	}
	return c.hash
}
