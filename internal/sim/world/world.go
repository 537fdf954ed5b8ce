package world

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
	"github.com/ensign-labs/VoxelThing/internal/sim/mathx"
)

// ErrOutsideWorld is returned for edits above or below the vertical limits.
var ErrOutsideWorld = errors.New("world: position outside vertical limits")

type WorldConfig struct {
	ID           uuid.UUID // zero means generate one
	Seed         int64
	HeightChunks int
}

// Generator fills freshly created chunks.
type Generator interface {
	Name() string
	Generate(ch *Chunk)
}

type AuditLogger interface {
	WriteAudit(entry AuditEntry) error
}

type AuditEntry struct {
	Time   time.Time `json:"time"`
	Action string    `json:"action"` // "SET_BLOCK"
	Pos    [3]int    `json:"pos"`
	From   string    `json:"from"`
	To     string    `json:"to"`
}

// World is a sparse map of chunks over a fixed vertical range. It has no
// locking: all access must come from the goroutine that owns it.
type World struct {
	ID   uuid.UUID
	Seed int64

	reg          *catalogs.BlockRegistry
	gen          Generator
	heightChunks int

	chunks map[ChunkPos]*Chunk

	// Optional (may be nil). Implemented in internal/persistence/log.
	auditLogger AuditLogger
	now         func() time.Time
}

func New(cfg WorldConfig, reg *catalogs.BlockRegistry, gen Generator) (*World, error) {
	if reg == nil {
		return nil, fmt.Errorf("world: nil block registry")
	}
	if cfg.HeightChunks <= 0 {
		return nil, fmt.Errorf("world: height_chunks must be > 0, got %d", cfg.HeightChunks)
	}
	id := cfg.ID
	if id == uuid.Nil {
		id = uuid.New()
	}
	return &World{
		ID:           id,
		Seed:         cfg.Seed,
		reg:          reg,
		gen:          gen,
		heightChunks: cfg.HeightChunks,
		chunks:       map[ChunkPos]*Chunk{},
		now:          time.Now,
	}, nil
}

func (w *World) SetAuditLogger(l AuditLogger) { w.auditLogger = l }

func (w *World) Registry() *catalogs.BlockRegistry { return w.reg }
func (w *World) Generator() Generator              { return w.gen }
func (w *World) HeightChunks() int                 { return w.heightChunks }

// InBounds reports whether y lies inside the vertical limits. The world is
// unbounded horizontally.
func (w *World) InBounds(x, y, z int) bool {
	return y >= 0 && y < w.heightChunks*Length
}

// Block returns the block at a world position, generating its chunk if
// needed. Positions outside the vertical limits read as air.
func (w *World) Block(x, y, z int) *catalogs.Block {
	if !w.InBounds(x, y, z) {
		return w.reg.Air()
	}
	pos, lx, ly, lz := split(x, y, z)
	ch := w.getOrGenChunk(pos)
	b, _ := ch.Block(lx, ly, lz)
	return b
}

func (w *World) SetBlock(x, y, z int, b *catalogs.Block) error {
	if !w.InBounds(x, y, z) {
		return fmt.Errorf("set %d,%d,%d: %w", x, y, z, ErrOutsideWorld)
	}
	pos, lx, ly, lz := split(x, y, z)
	ch := w.getOrGenChunk(pos)
	from, _ := ch.Block(lx, ly, lz)
	if err := ch.SetBlock(lx, ly, lz, b); err != nil {
		return err
	}
	if w.auditLogger != nil && from != b {
		_ = w.auditLogger.WriteAudit(AuditEntry{
			Time:   w.now().UTC(),
			Action: "SET_BLOCK",
			Pos:    [3]int{x, y, z},
			From:   from.ID,
			To:     b.ID,
		})
	}
	return nil
}

// Chunk returns the chunk at pos, generating it if it is not loaded.
func (w *World) Chunk(pos ChunkPos) (*Chunk, error) {
	if pos.Y < 0 || pos.Y >= w.heightChunks {
		return nil, fmt.Errorf("chunk %s: %w", pos, ErrOutsideWorld)
	}
	return w.getOrGenChunk(pos), nil
}

// LoadedChunk returns the chunk at pos only if it is already in memory.
func (w *World) LoadedChunk(pos ChunkPos) (*Chunk, bool) {
	ch, ok := w.chunks[pos]
	return ch, ok
}

func (w *World) LoadedChunkPositions() []ChunkPos {
	keys := make([]ChunkPos, 0, len(w.chunks))
	for k := range w.chunks {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].less(keys[j]) })
	return keys
}

// PutChunk installs ch, replacing any loaded chunk at the same position.
func (w *World) PutChunk(ch *Chunk) error {
	if ch.Pos.Y < 0 || ch.Pos.Y >= w.heightChunks {
		return fmt.Errorf("chunk %s: %w", ch.Pos, ErrOutsideWorld)
	}
	w.chunks[ch.Pos] = ch
	return nil
}

// UnloadChunk drops a chunk from memory. Unsaved edits are lost.
func (w *World) UnloadChunk(pos ChunkPos) bool {
	if _, ok := w.chunks[pos]; !ok {
		return false
	}
	delete(w.chunks, pos)
	return true
}

// DirtyChunks returns loaded chunks with unsaved edits, in position order.
func (w *World) DirtyChunks() []*Chunk {
	var out []*Chunk
	for _, pos := range w.LoadedChunkPositions() {
		if ch := w.chunks[pos]; ch.Dirty() {
			out = append(out, ch)
		}
	}
	return out
}

// Upgrades sums storage upgrades over the loaded chunks.
func (w *World) Upgrades() int {
	n := 0
	for _, ch := range w.chunks {
		n += ch.Upgrades()
	}
	return n
}

func (w *World) getOrGenChunk(pos ChunkPos) *Chunk {
	if ch, ok := w.chunks[pos]; ok {
		return ch
	}
	ch := NewChunk(pos, w.reg.Air())
	if w.gen != nil {
		w.gen.Generate(ch)
	}
	// Generated chunks start clean.
	ch.MarkClean()
	w.chunks[pos] = ch
	return ch
}

func split(x, y, z int) (pos ChunkPos, lx, ly, lz int) {
	pos = ChunkPos{
		X: mathx.FloorDiv(x, Length),
		Y: mathx.FloorDiv(y, Length),
		Z: mathx.FloorDiv(z, Length),
	}
	return pos, mathx.Mod(x, Length), mathx.Mod(y, Length), mathx.Mod(z, Length)
}
