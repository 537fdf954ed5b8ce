package indexdb

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"

	"github.com/ensign-labs/VoxelThing/internal/persistence/snapshot"
	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
	"github.com/ensign-labs/VoxelThing/internal/sim/world"
)

// SQLiteIndex is a queryable read-model of saves and block edits. Saves on
// disk stay the source of truth: writes are queued and dropped when the
// writer falls behind.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan req
	wg   sync.WaitGroup
	once sync.Once

	closed atomic.Bool

	dropChunk atomic.Uint64
	dropSave  atomic.Uint64
	dropAudit atomic.Uint64
}

type reqKind int

const (
	reqChunk reqKind = iota + 1
	reqSave
	reqAudit
	reqFlush
)

type req struct {
	kind reqKind

	chunk snapshot.ChunkMeta
	save  snapshot.SaveMeta
	audit world.AuditEntry
	done  chan struct{}
}

// ChunkRow is the indexed state of one saved chunk.
type ChunkRow struct {
	Pos         world.ChunkPos
	Path        string
	Bits        int
	PaletteSize int
	Digest      string
	Bytes       int64
	SavedAt     time.Time
}

type Stats struct {
	QueueDepth    int
	QueueCapacity int

	DropChunkTotal uint64
	DropSaveTotal  uint64
	DropAuditTotal uint64
}

const defaultQueueSize = 65536

func OpenSQLite(path string) (*SQLiteIndex, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan req, defaultQueueSize),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS catalogs (
			name TEXT PRIMARY KEY,
			digest TEXT NOT NULL,
			json TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS chunks (
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			path TEXT NOT NULL,
			bits INTEGER NOT NULL,
			palette_size INTEGER NOT NULL,
			digest TEXT NOT NULL,
			bytes INTEGER NOT NULL,
			saved_at TEXT NOT NULL,
			PRIMARY KEY (x, y, z)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_chunks_bits ON chunks(bits);`,
		`CREATE TABLE IF NOT EXISTS saves (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			world_id TEXT NOT NULL,
			seed INTEGER NOT NULL,
			chunks INTEGER NOT NULL,
			saved_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS audits (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			time TEXT NOT NULL,
			action TEXT NOT NULL,
			x INTEGER NOT NULL,
			y INTEGER NOT NULL,
			z INTEGER NOT NULL,
			from_block TEXT NOT NULL,
			to_block TEXT NOT NULL,
			raw_json TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_audits_pos ON audits(x, z, y);`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		close(s.ch)
		s.wg.Wait()
		err = s.db.Close()
	})
	return err
}

func (s *SQLiteIndex) enqueue(r req, drops *atomic.Uint64) {
	if s == nil || s.closed.Load() {
		return
	}
	select {
	case s.ch <- r:
	default:
		// Drop if the indexer falls behind; the save files remain the source of truth.
		drops.Add(1)
	}
}

// RecordChunk implements snapshot.Recorder.
func (s *SQLiteIndex) RecordChunk(m snapshot.ChunkMeta) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqChunk, chunk: m}, &s.dropChunk)
}

// RecordSave implements snapshot.Recorder.
func (s *SQLiteIndex) RecordSave(m snapshot.SaveMeta) {
	if s == nil {
		return
	}
	s.enqueue(req{kind: reqSave, save: m}, &s.dropSave)
}

// WriteAudit implements world.AuditLogger.
func (s *SQLiteIndex) WriteAudit(e world.AuditEntry) error {
	if s == nil {
		return nil
	}
	s.enqueue(req{kind: reqAudit, audit: e}, &s.dropAudit)
	return nil
}

func (s *SQLiteIndex) Stats() Stats {
	if s == nil {
		return Stats{}
	}
	return Stats{
		QueueDepth:     len(s.ch),
		QueueCapacity:  cap(s.ch),
		DropChunkTotal: s.dropChunk.Load(),
		DropSaveTotal:  s.dropSave.Load(),
		DropAuditTotal: s.dropAudit.Load(),
	}
}

// Flush blocks until everything queued before the call is committed.
func (s *SQLiteIndex) Flush(ctx context.Context) error {
	if s == nil || s.closed.Load() {
		return nil
	}
	done := make(chan struct{})
	select {
	case s.ch <- req{kind: reqFlush, done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// UpsertBlocks stores the registry's id list so saved palettes can be audited
// against it.
func (s *SQLiteIndex) UpsertBlocks(reg *catalogs.BlockRegistry) error {
	if s == nil {
		return nil
	}
	ids := make([]string, 0, reg.Len())
	for _, b := range reg.Blocks() {
		ids = append(ids, b.ID)
	}
	raw, err := json.Marshal(ids)
	if err != nil {
		return err
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)

	tx, err := s.db.BeginTx(context.Background(), nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1')`); err != nil {
		return err
	}
	if _, err := tx.Exec(`INSERT OR REPLACE INTO catalogs(name,digest,json,updated_at) VALUES(?,?,?,?)`,
		"blocks_palette", reg.PaletteDigest, string(raw), now); err != nil {
		return err
	}
	if reg.DefsDigest != "" {
		if _, err := tx.Exec(`INSERT OR REPLACE INTO meta(key,value) VALUES('blocks_defs_digest',?)`, reg.DefsDigest); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ChunkRecord returns the indexed row for pos. Call Flush first to see
// recently queued writes.
func (s *SQLiteIndex) ChunkRecord(ctx context.Context, pos world.ChunkPos) (ChunkRow, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT path,bits,palette_size,digest,bytes,saved_at FROM chunks WHERE x=? AND y=? AND z=?`,
		pos.X, pos.Y, pos.Z)
	r := ChunkRow{Pos: pos}
	var savedAt string
	err := row.Scan(&r.Path, &r.Bits, &r.PaletteSize, &r.Digest, &r.Bytes, &savedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return ChunkRow{}, false, nil
	}
	if err != nil {
		return ChunkRow{}, false, err
	}
	if r.SavedAt, err = time.Parse(time.RFC3339Nano, savedAt); err != nil {
		return ChunkRow{}, false, fmt.Errorf("chunk %s saved_at: %w", pos, err)
	}
	return r, true, nil
}

// CountChunks counts indexed chunks, optionally only those stored at the given
// width (bits <= 0 counts all).
func (s *SQLiteIndex) CountChunks(ctx context.Context, bits int) (int, error) {
	var n int
	var err error
	if bits <= 0 {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks`).Scan(&n)
	} else {
		err = s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM chunks WHERE bits=?`, bits).Scan(&n)
	}
	return n, err
}

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertChunk, _ := s.db.Prepare(`INSERT OR REPLACE INTO chunks(x,y,z,path,bits,palette_size,digest,bytes,saved_at) VALUES(?,?,?,?,?,?,?,?,?)`)
	insertSave, _ := s.db.Prepare(`INSERT INTO saves(world_id,seed,chunks,saved_at) VALUES(?,?,?,?)`)
	insertAudit, _ := s.db.Prepare(`INSERT INTO audits(time,action,x,y,z,from_block,to_block,raw_json) VALUES(?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertChunk != nil {
			_ = insertChunk.Close()
		}
		if insertSave != nil {
			_ = insertSave.Close()
		}
		if insertAudit != nil {
			_ = insertAudit.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		lastCommit    = time.Now()
		commitEvery   = 2000
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
		lastCommit = time.Now()
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
		lastCommit = time.Now()
	}
	flushIfNeeded := func() {
		if tx == nil {
			return
		}
		if opCount >= commitEvery || time.Since(lastCommit) >= commitMaxWait {
			commit()
		}
	}

	// An idle writer must not sit on an open transaction: the single
	// connection is shared with readers.
	ticker := time.NewTicker(commitMaxWait)
	defer ticker.Stop()

	for {
		var r req
		select {
		case rr, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = rr
		case <-ticker.C:
			flushIfNeeded()
			continue
		}

		if r.kind == reqFlush {
			commit()
			close(r.done)
			continue
		}

		begin()
		if tx == nil {
			continue
		}
		switch r.kind {
		case reqChunk:
			c := r.chunk
			if insertChunk != nil {
				if _, err := tx.Stmt(insertChunk).Exec(
					c.Pos.X, c.Pos.Y, c.Pos.Z,
					c.Path,
					c.Bits,
					c.PaletteSize,
					c.Digest,
					c.Bytes,
					c.SavedAt.UTC().Format(time.RFC3339Nano),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqSave:
			sv := r.save
			if insertSave != nil {
				if _, err := tx.Stmt(insertSave).Exec(
					sv.WorldID,
					sv.Seed,
					sv.Chunks,
					sv.SavedAt.UTC().Format(time.RFC3339Nano),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}

		case reqAudit:
			a := r.audit
			raw, _ := json.Marshal(a)
			if insertAudit != nil {
				if _, err := tx.Stmt(insertAudit).Exec(
					a.Time.UTC().Format(time.RFC3339Nano),
					a.Action,
					a.Pos[0], a.Pos[1], a.Pos[2],
					a.From,
					a.To,
					string(raw),
				); err != nil {
					rollback()
					continue
				}
				opCount++
			}
		}
		flushIfNeeded()
	}
}
