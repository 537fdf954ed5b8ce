package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/ensign-labs/VoxelThing/internal/persistence/snapshot"
)

const archivesDir = "archives"

type ArchiveMeta struct {
	WorldID   string `json:"world_id"`
	Seed      int64  `json:"seed"`
	Generator string `json:"generator,omitempty"`
	SavedAt   string `json:"saved_at"`
	Chunks    int    `json:"chunks"`
	Files     int    `json:"files"`
	CreatedAt string `json:"created_at"`
}

// ArchiveSave copies the save in dir (level file plus chunks/) into
// dir/archives/<saved_at>/ and writes a meta.json next to it. It returns
// archived=false when dir holds no level file yet. Archiving the same save
// twice reuses the existing directory.
func ArchiveSave(dir string, now time.Time) (archivedPath string, archived bool, err error) {
	lvl, err := snapshot.ReadLevel(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	dst := filepath.Join(dir, archivesDir, lvl.SavedAt.UTC().Format("20060102T150405.000Z"))
	if err := os.MkdirAll(filepath.Join(dst, "chunks"), 0o755); err != nil {
		return "", false, err
	}

	files := 0
	for _, comp := range []snapshot.Compression{snapshot.CompressionZstd, snapshot.CompressionNone} {
		src := snapshot.LevelPath(dir, comp)
		if _, err := os.Stat(src); err != nil {
			continue
		}
		if err := copyFile(src, filepath.Join(dst, filepath.Base(src))); err != nil {
			return "", false, err
		}
		files++
	}
	entries, err := os.ReadDir(filepath.Join(dir, "chunks"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", false, err
	}
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if err := copyFile(filepath.Join(dir, "chunks", e.Name()), filepath.Join(dst, "chunks", e.Name())); err != nil {
			return "", false, err
		}
		files++
	}

	meta := ArchiveMeta{
		WorldID:   lvl.WorldID.String(),
		Seed:      lvl.Seed,
		Generator: lvl.Generator,
		SavedAt:   lvl.SavedAt.UTC().Format(time.RFC3339Nano),
		Chunks:    lvl.Chunks,
		Files:     files,
		CreatedAt: now.UTC().Format(time.RFC3339Nano),
	}
	b, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return "", false, err
	}
	if err := os.WriteFile(filepath.Join(dst, "meta.json"), b, 0o644); err != nil {
		return "", false, fmt.Errorf("archive meta: %w", err)
	}
	return dst, true, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	defer func() { _ = out.Close() }()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
