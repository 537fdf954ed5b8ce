package main

import (
	"context"
	"errors"
	"flag"
	"io/fs"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/ensign-labs/VoxelThing/internal/persistence/archive"
	"github.com/ensign-labs/VoxelThing/internal/persistence/indexdb"
	persistlog "github.com/ensign-labs/VoxelThing/internal/persistence/log"
	"github.com/ensign-labs/VoxelThing/internal/persistence/r2s3"
	"github.com/ensign-labs/VoxelThing/internal/persistence/snapshot"
	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
	"github.com/ensign-labs/VoxelThing/internal/sim/tuning"
	"github.com/ensign-labs/VoxelThing/internal/sim/world"
)

func main() {
	var (
		configPath = flag.String("config", "./configs/voxelthing.yaml", "path to voxelthing.yaml (empty: built-in defaults)")
		saveDir    = flag.String("save", "", "save directory (overrides save.dir)")
		seed       = flag.Int64("seed", 0, "world seed for a fresh world (overrides seed when non-zero)")
		radius     = flag.Int("radius", -1, "chunks to generate around the origin (overrides radius when >= 0)")
		stress     = flag.Bool("stress", false, "paint every catalog block into the origin chunk to force a storage upgrade")
		disableDB  = flag.Bool("disable_db", false, "disable the sqlite save index")
	)
	flag.Parse()

	logger := log.New(os.Stdout, "[voxelthing] ", log.LstdFlags|log.Lmicroseconds)

	cfg := tuning.Defaults()
	if p := strings.TrimSpace(*configPath); p != "" {
		c, err := tuning.Load(p)
		if err != nil {
			logger.Fatalf("load config: %v", err)
		}
		cfg = c
	}
	if *saveDir != "" {
		cfg.Save.Dir = *saveDir
	}
	if *seed != 0 {
		cfg.Seed = *seed
	}
	if *radius >= 0 {
		cfg.Radius = *radius
	}
	if *disableDB {
		cfg.Index.Enabled = false
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatalf("config: %v", err)
	}

	reg := catalogs.DefaultBlocks()
	if p := strings.TrimSpace(cfg.BlocksPath); p != "" {
		r, err := catalogs.LoadBlocks(p)
		if err != nil {
			logger.Fatalf("load blocks: %v", err)
		}
		reg = r
	}
	comp, err := snapshot.ParseCompression(cfg.Save.Compression)
	if err != nil {
		logger.Fatalf("config: %v", err)
	}

	w, err := openWorld(cfg, reg, logger)
	if err != nil {
		logger.Fatalf("open world: %v", err)
	}

	if cfg.Save.Archive {
		if p, ok, err := archive.ArchiveSave(cfg.Save.Dir, time.Now()); err != nil {
			logger.Fatalf("archive: %v", err)
		} else if ok {
			logger.Printf("archived previous save to %s", p)
		}
	}

	var recorders snapshot.Recorders
	var audits persistlog.MultiAudit

	var idx *indexdb.SQLiteIndex
	if cfg.Index.Enabled {
		path := cfg.Index.Path
		if path == "" {
			path = filepath.Join(cfg.Save.Dir, "index.db")
		}
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			logger.Fatalf("index dir: %v", err)
		}
		idx, err = indexdb.OpenSQLite(path)
		if err != nil {
			logger.Fatalf("open index: %v", err)
		}
		if err := idx.UpsertBlocks(reg); err != nil {
			logger.Printf("index blocks: %v", err)
		}
		recorders = append(recorders, idx)
		audits = append(audits, idx)
	}

	var auditLog *persistlog.AuditLogger
	if cfg.Audit.Enabled {
		auditLog = persistlog.NewAuditLogger(cfg.Save.Dir)
		audits = append(audits, auditLog)
	}
	if len(audits) > 0 {
		w.SetAuditLogger(audits)
	}

	mirror, err := buildMirror(cfg, logger)
	if err != nil {
		logger.Fatalf("mirror: %v", err)
	}
	if mirror != nil {
		recorders = append(recorders, mirror)
	}

	start := time.Now()
	generated := 0
	for cx := -cfg.Radius; cx <= cfg.Radius; cx++ {
		for cz := -cfg.Radius; cz <= cfg.Radius; cz++ {
			for cy := 0; cy < w.HeightChunks(); cy++ {
				pos := world.ChunkPos{X: cx, Y: cy, Z: cz}
				if _, ok := w.LoadedChunk(pos); ok {
					continue
				}
				if _, err := w.Chunk(pos); err != nil {
					logger.Fatalf("chunk %s: %v", pos, err)
				}
				generated++
			}
		}
	}
	logger.Printf("generated %d chunks in %s (loaded=%d)", generated, time.Since(start).Round(time.Millisecond), len(w.LoadedChunkPositions()))

	if *stress {
		if err := paintCatalog(w); err != nil {
			logger.Fatalf("stress: %v", err)
		}
		logger.Printf("stress edit: %d storage upgrades", w.Upgrades())
	}

	if hit, ok := world.Raycast(w, mgl32.Vec3{0.5, float32(w.HeightChunks()*world.Length) - 0.5, 0.5}, mgl32.Vec3{0, -1, 0}, float32(w.HeightChunks()*world.Length)); ok {
		logger.Printf("surface at origin: %s y=%d", hit.Block, hit.Pos[1])
	}

	st, err := snapshot.SaveWorld(cfg.Save.Dir, w, snapshot.SaveOptions{
		Compression: comp,
		All:         cfg.Save.All,
		Compact:     cfg.Save.Compact,
		Recorder:    recorders,
		Logger:      logger,
	})
	if err != nil {
		logger.Fatalf("save: %v", err)
	}

	if auditLog != nil {
		if err := auditLog.Close(); err != nil {
			logger.Printf("audit close: %v", err)
		}
	}
	if mirror != nil {
		mirror.Close()
		ms := mirror.Stats()
		logger.Printf("mirror: uploaded=%d failed=%d dropped=%d", ms.UploadSuccessTotal, ms.UploadFailTotal, ms.DroppedTotal)
	}
	if idx != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		if err := idx.Flush(ctx); err != nil {
			logger.Printf("index flush: %v", err)
		}
		cancel()
		if s := idx.Stats(); s.DropChunkTotal+s.DropSaveTotal+s.DropAuditTotal > 0 {
			logger.Printf("index dropped rows: chunks=%d saves=%d audits=%d", s.DropChunkTotal, s.DropSaveTotal, s.DropAuditTotal)
		}
		if err := idx.Close(); err != nil {
			logger.Printf("index close: %v", err)
		}
	}
	logger.Printf("done: world=%s written=%d bytes=%d", w.ID, st.Written, st.Bytes)
}

// openWorld loads the save in cfg.Save.Dir or starts a fresh world when
// there is none.
func openWorld(cfg tuning.Config, reg *catalogs.BlockRegistry, logger *log.Logger) (*world.World, error) {
	gen, err := world.NewTerrainGen(reg, world.TerrainConfig{
		Seed:                        cfg.Seed,
		BaseHeight:                  cfg.Terrain.BaseHeight,
		Amplitude:                   cfg.Terrain.Amplitude,
		HeightCell:                  cfg.Terrain.HeightCell,
		SeaLevel:                    cfg.Terrain.SeaLevel,
		SnowLine:                    cfg.Terrain.SnowLine,
		BiomeRegionSize:             cfg.Terrain.BiomeRegionSize,
		OreClusterProbScalePermille: cfg.Terrain.OreScalePermille,
		TreePermille:                cfg.Terrain.TreePermille,
	})
	if err != nil {
		return nil, err
	}

	lvl, err := snapshot.ReadLevel(cfg.Save.Dir)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		logger.Printf("new world in %s (seed=%d height_chunks=%d)", cfg.Save.Dir, cfg.Seed, cfg.HeightChunks)
		return world.New(world.WorldConfig{Seed: cfg.Seed, HeightChunks: cfg.HeightChunks}, reg, gen)
	case err != nil:
		return nil, err
	}

	// Terrain must come from the saved seed, not the configured one.
	if lvl.Seed != cfg.Seed {
		gc := gen.Config()
		gc.Seed = lvl.Seed
		if gen, err = world.NewTerrainGen(reg, gc); err != nil {
			return nil, err
		}
	}
	w, err := snapshot.LoadWorld(cfg.Save.Dir, reg, gen)
	if err != nil {
		return nil, err
	}
	logger.Printf("loaded world %s from %s (%d chunks, saved %s)", w.ID, cfg.Save.Dir, len(w.LoadedChunkPositions()), lvl.SavedAt.Format(time.RFC3339))
	return w, nil
}

// paintCatalog writes every catalog block along x in the top layer of the
// origin column, which pushes that chunk past the nibble palette.
func paintCatalog(w *world.World) error {
	y := w.HeightChunks()*world.Length - 1
	for i, b := range w.Registry().Blocks() {
		if b.IsAir() {
			continue
		}
		if err := w.SetBlock(i%world.Length, y, i/world.Length, b); err != nil {
			return err
		}
	}
	return nil
}

func buildMirror(cfg tuning.Config, logger *log.Logger) (*r2s3.Mirror, error) {
	if !cfg.Mirror.Enabled {
		return nil, nil
	}
	client, err := r2s3.New(r2s3.Credentials{
		Endpoint:        cfg.Mirror.Endpoint,
		Bucket:          cfg.Mirror.Bucket,
		Region:          cfg.Mirror.Region,
		AccessKeyID:     os.Getenv("VT_MIRROR_ACCESS_KEY_ID"),
		SecretAccessKey: os.Getenv("VT_MIRROR_SECRET_ACCESS_KEY"),
	})
	if err != nil {
		return nil, err
	}
	ml := log.New(os.Stdout, "[mirror] ", log.LstdFlags|log.Lmicroseconds)
	logger.Printf("mirroring saves to %s/%s", cfg.Mirror.Endpoint, cfg.Mirror.Bucket)
	return r2s3.NewMirror(client, cfg.Save.Dir, r2s3.MirrorOptions{
		Prefix:        cfg.Mirror.Prefix,
		Workers:       cfg.Mirror.Workers,
		QueueCapacity: cfg.Mirror.QueueCapacity,
		Logger:        ml,
	}), nil
}
