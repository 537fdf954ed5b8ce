package snapshot

import (
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
	"github.com/ensign-labs/VoxelThing/internal/sim/world"
	"github.com/ensign-labs/VoxelThing/internal/sim/world/storage"
)

const (
	levelName = "level"
	chunksDir = "chunks"
)

// ChunkMeta describes one chunk file written by SaveWorld.
type ChunkMeta struct {
	Pos         world.ChunkPos
	Path        string
	Bits        int
	PaletteSize int
	Digest      string
	Bytes       int64
	SavedAt     time.Time
}

// SaveMeta describes a completed save. Path is the level file.
type SaveMeta struct {
	WorldID string
	Seed    int64
	Chunks  int
	Path    string
	SavedAt time.Time
}

// Recorder receives a description of every save. Implemented by
// internal/persistence/indexdb.
type Recorder interface {
	RecordChunk(m ChunkMeta)
	RecordSave(m SaveMeta)
}

type SaveOptions struct {
	Compression Compression
	// All writes every loaded chunk instead of only dirty ones.
	All bool
	// Compact shrinks palettes (and storage width) before writing.
	Compact bool

	Recorder Recorder    // optional
	Logger   *log.Logger // optional
	Now      func() time.Time
}

type SaveStats struct {
	Written   int
	Skipped   int
	Removed   int
	Compacted int
	Bytes     int64
}

// ChunkPath returns the file a chunk is saved to under dir.
func ChunkPath(dir string, pos world.ChunkPos, comp Compression) string {
	return filepath.Join(dir, chunksDir, fmt.Sprintf("c.%d.%d.%d%s", pos.X, pos.Y, pos.Z, comp.Ext()))
}

func LevelPath(dir string, comp Compression) string {
	return filepath.Join(dir, levelName+comp.Ext())
}

// SaveWorld writes the dirty (or, with opts.All, every loaded) chunk of w under
// dir, then the level record. Written chunks are marked clean.
//
// Empty chunks are only skipped when w has no generator: a missing chunk file
// then reads back as air. With a generator a missing file would regenerate
// terrain, so empty chunks are written like any other.
func SaveWorld(dir string, w *world.World, opts SaveOptions) (SaveStats, error) {
	var st SaveStats
	comp := opts.Compression
	if comp == "" {
		comp = CompressionZstd
	}
	now := time.Now
	if opts.Now != nil {
		now = opts.Now
	}
	savedAt := now().UTC()

	var chunks []*world.Chunk
	if opts.All {
		for _, pos := range w.LoadedChunkPositions() {
			ch, _ := w.LoadedChunk(pos)
			chunks = append(chunks, ch)
		}
	} else {
		chunks = w.DirtyChunks()
	}

	for _, ch := range chunks {
		if opts.Compact {
			before := ch.Storage()
			if after := storage.Compact(before); after != before {
				ch.ReplaceStorage(after)
				st.Compacted++
			}
		}
		path := ChunkPath(dir, ch.Pos, comp)
		if w.Generator() == nil && ch.IsEmpty() {
			for _, p := range []string{path, ChunkPath(dir, ch.Pos, comp.other())} {
				if err := os.Remove(p); err == nil {
					st.Removed++
				} else if !errors.Is(err, fs.ErrNotExist) {
					return st, err
				}
			}
			st.Skipped++
			ch.MarkClean()
			continue
		}

		n, err := WriteFile(path, EncodeChunk(ch), comp)
		if err != nil {
			return st, fmt.Errorf("save chunk %s: %w", ch.Pos, err)
		}
		if err := removeIfExists(ChunkPath(dir, ch.Pos, comp.other())); err != nil {
			return st, err
		}
		ch.MarkClean()
		st.Written++
		st.Bytes += n

		if opts.Recorder != nil {
			d := ch.Digest()
			opts.Recorder.RecordChunk(ChunkMeta{
				Pos:         ch.Pos,
				Path:        path,
				Bits:        ch.Storage().Bits(),
				PaletteSize: ch.Storage().PaletteSize(),
				Digest:      hex.EncodeToString(d[:]),
				Bytes:       n,
				SavedAt:     savedAt,
			})
		}
	}

	total, err := countChunkFiles(dir)
	if err != nil {
		return st, err
	}
	genName := ""
	if g := w.Generator(); g != nil {
		genName = g.Name()
	}
	lvl := Level{
		WorldID:       w.ID,
		Seed:          w.Seed,
		HeightChunks:  w.HeightChunks(),
		Generator:     genName,
		SavedAt:       savedAt,
		Chunks:        total,
		PaletteDigest: w.Registry().PaletteDigest,
	}
	levelPath := LevelPath(dir, comp)
	n, err := WriteFile(levelPath, EncodeLevel(lvl), comp)
	if err != nil {
		return st, fmt.Errorf("save level: %w", err)
	}
	st.Bytes += n
	if err := removeIfExists(LevelPath(dir, comp.other())); err != nil {
		return st, err
	}

	if opts.Recorder != nil {
		opts.Recorder.RecordSave(SaveMeta{WorldID: w.ID.String(), Seed: w.Seed, Chunks: total, Path: levelPath, SavedAt: savedAt})
	}
	if opts.Logger != nil {
		opts.Logger.Printf("saved %s: wrote=%d skipped=%d compacted=%d bytes=%d", dir, st.Written, st.Skipped, st.Compacted, st.Bytes)
	}
	return st, nil
}

// ReadLevel finds and decodes the level record in dir, whichever compression
// it was written with.
func ReadLevel(dir string) (Level, error) {
	for _, comp := range []Compression{CompressionZstd, CompressionNone} {
		path := LevelPath(dir, comp)
		c, err := ReadCompound(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return Level{}, err
		}
		return DecodeLevel(c)
	}
	return Level{}, fmt.Errorf("%s: no level file: %w", dir, fs.ErrNotExist)
}

// LoadWorld reads a world saved by SaveWorld. gen may be nil; when set, chunks
// without a file are generated on first access. Loaded chunks start clean.
func LoadWorld(dir string, reg *catalogs.BlockRegistry, gen world.Generator) (*world.World, error) {
	lvl, err := ReadLevel(dir)
	if err != nil {
		return nil, err
	}
	// Palettes are stored by id, so a registry with a different digest still
	// loads as long as every saved id exists; DecodeChunk reports the ones that
	// do not.
	if gen != nil {
		switch lvl.Generator {
		case gen.Name():
		case "":
			// Empty chunks were left out of this save and must read back as air.
			return nil, fmt.Errorf("%s: saved without a generator, cannot load with %q", dir, gen.Name())
		default:
			return nil, fmt.Errorf("%s: saved with generator %q, have %q", dir, lvl.Generator, gen.Name())
		}
	}

	w, err := world.New(world.WorldConfig{ID: lvl.WorldID, Seed: lvl.Seed, HeightChunks: lvl.HeightChunks}, reg, gen)
	if err != nil {
		return nil, err
	}
	paths, err := chunkFiles(dir)
	if err != nil {
		return nil, err
	}
	for _, p := range paths {
		c, err := ReadCompound(p)
		if err != nil {
			return nil, err
		}
		ch, err := DecodeChunk(c, reg)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
		if err := w.PutChunk(ch); err != nil {
			return nil, fmt.Errorf("%s: %w", p, err)
		}
	}
	return w, nil
}

func chunkFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(filepath.Join(dir, chunksDir))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var out []string
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, "c.") {
			continue
		}
		if !strings.HasSuffix(name, ".pds") && !strings.HasSuffix(name, ".pds.zst") {
			continue
		}
		out = append(out, filepath.Join(dir, chunksDir, name))
	}
	sort.Strings(out)
	return out, nil
}

func countChunkFiles(dir string) (int, error) {
	paths, err := chunkFiles(dir)
	return len(paths), err
}

func removeIfExists(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Recorders fans save events out to several recorders in order.
type Recorders []Recorder

func (rs Recorders) RecordChunk(m ChunkMeta) {
	for _, r := range rs {
		if r != nil {
			r.RecordChunk(m)
		}
	}
}

func (rs Recorders) RecordSave(m SaveMeta) {
	for _, r := range rs {
		if r != nil {
			r.RecordSave(m)
		}
	}
}
