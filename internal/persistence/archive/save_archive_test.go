package archive

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/ensign-labs/VoxelThing/internal/persistence/snapshot"
	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
	"github.com/ensign-labs/VoxelThing/internal/sim/world"
)

func TestArchiveSave_CopiesLevelAndChunks(t *testing.T) {
	dir := t.TempDir()
	reg := catalogs.DefaultBlocks()
	w, err := world.New(world.WorldConfig{Seed: 42, HeightChunks: 2}, reg, nil)
	if err != nil {
		t.Fatalf("world.New: %v", err)
	}
	stone := reg.MustLookup("STONE")
	for _, p := range [][3]int{{0, 0, 0}, {40, 5, -3}} {
		if err := w.SetBlock(p[0], p[1], p[2], stone); err != nil {
			t.Fatalf("SetBlock: %v", err)
		}
	}
	savedAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	if _, err := snapshot.SaveWorld(dir, w, snapshot.SaveOptions{Now: func() time.Time { return savedAt }}); err != nil {
		t.Fatalf("SaveWorld: %v", err)
	}

	dst, ok, err := ArchiveSave(dir, savedAt.Add(time.Hour))
	if err != nil || !ok {
		t.Fatalf("ArchiveSave ok=%v err=%v", ok, err)
	}
	if want := filepath.Join(dir, "archives", "20260301T120000.000Z"); dst != want {
		t.Fatalf("dst=%s want %s", dst, want)
	}

	back, err := snapshot.LoadWorld(dst, reg, nil)
	if err != nil {
		t.Fatalf("LoadWorld(archive): %v", err)
	}
	if back.ID != w.ID || back.Block(40, 5, -3) != stone {
		t.Fatalf("archived world mismatch: id=%s block=%s", back.ID, back.Block(40, 5, -3))
	}

	raw, err := os.ReadFile(filepath.Join(dst, "meta.json"))
	if err != nil {
		t.Fatalf("read meta: %v", err)
	}
	var meta ArchiveMeta
	if err := json.Unmarshal(raw, &meta); err != nil {
		t.Fatalf("unmarshal meta: %v", err)
	}
	if meta.WorldID != w.ID.String() || meta.Seed != 42 || meta.Chunks != 2 || meta.Files != 3 {
		t.Fatalf("meta=%+v", meta)
	}
}

func TestArchiveSave_NoLevel(t *testing.T) {
	dst, ok, err := ArchiveSave(t.TempDir(), time.Now())
	if err != nil || ok || dst != "" {
		t.Fatalf("got=(%q,%v,%v) want no archive", dst, ok, err)
	}
}
