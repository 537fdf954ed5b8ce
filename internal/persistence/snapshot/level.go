package snapshot

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ensign-labs/VoxelThing/internal/pds"
)

const LevelVersion = 1

// Level is the per-world record saved next to the chunk files.
type Level struct {
	Version       int
	WorldID       uuid.UUID
	Seed          int64
	HeightChunks  int
	Generator     string
	SavedAt       time.Time
	Chunks        int
	PaletteDigest string
}

func EncodeLevel(l Level) *pds.Compound {
	return pds.NewCompound().
		Set("version", pds.NewInt(LevelVersion)).
		Set("world_id", pds.NewString(l.WorldID.String())).
		Set("seed", pds.NewLong(l.Seed)).
		Set("height_chunks", pds.NewInt(int32(l.HeightChunks))).
		Set("generator", pds.NewString(l.Generator)).
		Set("saved_at", pds.NewLong(l.SavedAt.UnixMilli())).
		Set("chunks", pds.NewInt(int32(l.Chunks))).
		Set("palette_digest", pds.NewString(l.PaletteDigest))
}

func DecodeLevel(c *pds.Compound) (Level, error) {
	var l Level
	v, err := c.GetInt("version")
	if err != nil {
		return l, fmt.Errorf("level: %w", err)
	}
	if v != LevelVersion {
		return l, fmt.Errorf("level: unsupported version %d", v)
	}
	l.Version = int(v)

	rawID, err := c.GetString("world_id")
	if err != nil {
		return l, fmt.Errorf("level: %w", err)
	}
	if l.WorldID, err = uuid.Parse(rawID); err != nil {
		return l, fmt.Errorf("level: world_id: %w", err)
	}
	if l.Seed, err = c.GetLong("seed"); err != nil {
		return l, fmt.Errorf("level: %w", err)
	}
	hc, err := c.GetInt("height_chunks")
	if err != nil {
		return l, fmt.Errorf("level: %w", err)
	}
	l.HeightChunks = int(hc)
	if l.Generator, err = c.GetString("generator"); err != nil {
		return l, fmt.Errorf("level: %w", err)
	}
	ms, err := c.GetLong("saved_at")
	if err != nil {
		return l, fmt.Errorf("level: %w", err)
	}
	l.SavedAt = time.UnixMilli(ms).UTC()
	n, err := c.GetInt("chunks")
	if err != nil {
		return l, fmt.Errorf("level: %w", err)
	}
	l.Chunks = int(n)
	if l.PaletteDigest, err = c.GetString("palette_digest"); err != nil {
		return l, fmt.Errorf("level: %w", err)
	}
	return l, nil
}
