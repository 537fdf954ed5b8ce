package r2s3

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ensign-labs/VoxelThing/internal/persistence/snapshot"
)

func TestClient_PutFileSignsRequest(t *testing.T) {
	var (
		gotPath, gotAuth, gotHash, gotDate string
		gotBody                            []byte
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotAuth = r.Header.Get("Authorization")
		gotHash = r.Header.Get("x-amz-content-sha256")
		gotDate = r.Header.Get("x-amz-date")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c, err := New(Credentials{Endpoint: srv.URL, Bucket: "saves", AccessKeyID: "AK", SecretAccessKey: "SK"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	c.now = func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }

	local := filepath.Join(t.TempDir(), "c.0.0.0.pds.zst")
	if err := os.WriteFile(local, []byte("chunk"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := c.PutFile(context.Background(), "/w1//chunks/c.0.0.0.pds.zst", local); err != nil {
		t.Fatalf("PutFile: %v", err)
	}
	if gotPath != "/saves/w1/chunks/c.0.0.0.pds.zst" {
		t.Fatalf("path=%s", gotPath)
	}
	if string(gotBody) != "chunk" {
		t.Fatalf("body=%q", gotBody)
	}
	if gotHash != sha256Hex([]byte("chunk")) || gotDate != "20260301T120000Z" {
		t.Fatalf("hash=%s date=%s", gotHash, gotDate)
	}
	wantPrefix := "AWS4-HMAC-SHA256 Credential=AK/20260301/auto/s3/aws4_request, SignedHeaders=host;x-amz-content-sha256;x-amz-date, Signature="
	if !strings.HasPrefix(gotAuth, wantPrefix) {
		t.Fatalf("auth=%s", gotAuth)
	}
}

func TestClient_PutBytesReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "AccessDenied", http.StatusForbidden)
	}))
	defer srv.Close()

	c, err := New(Credentials{Endpoint: srv.URL, Bucket: "b", AccessKeyID: "AK", SecretAccessKey: "SK"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	err = c.PutBytes(context.Background(), "k", []byte("x"))
	if err == nil || !strings.Contains(err.Error(), "status=403") || !strings.Contains(err.Error(), "AccessDenied") {
		t.Fatalf("err=%v", err)
	}
	if err := c.PutBytes(context.Background(), "/", nil); err == nil {
		t.Fatalf("expected invalid key error")
	}
}

func TestNew_RequiresCredentials(t *testing.T) {
	if _, err := New(Credentials{Endpoint: "r2.example.com", Bucket: "b", AccessKeyID: "AK"}); err == nil {
		t.Fatalf("expected error without secret")
	}
	c, err := New(Credentials{Endpoint: "r2.example.com/", Bucket: "b", AccessKeyID: "AK", SecretAccessKey: "SK"})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if c.endpoint != "https://r2.example.com" || c.region != "auto" {
		t.Fatalf("endpoint=%s region=%s", c.endpoint, c.region)
	}
}

type fakeUploader struct {
	mu    sync.Mutex
	keys  []string
	fails int
}

func (f *fakeUploader) PutFile(_ context.Context, key, _ string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fails > 0 {
		f.fails--
		return errors.New("503")
	}
	f.keys = append(f.keys, key)
	return nil
}

func TestMirror_UploadsRecordedFiles(t *testing.T) {
	dir := t.TempDir()
	chunk := filepath.Join(dir, "chunks", "c.1.0.2.pds.zst")
	level := filepath.Join(dir, "level.pds.zst")
	if err := os.MkdirAll(filepath.Dir(chunk), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	for _, p := range []string{chunk, level} {
		if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
			t.Fatalf("write: %v", err)
		}
	}

	up := &fakeUploader{fails: 1}
	m := NewMirror(up, dir, MirrorOptions{Prefix: "/backups/w1/", Workers: 2})
	m.backoff = func(int) time.Duration { return 0 }

	var rec snapshot.Recorder = m
	rec.RecordChunk(snapshot.ChunkMeta{Path: chunk})
	rec.RecordSave(snapshot.SaveMeta{Path: level})
	m.Enqueue(filepath.Join(t.TempDir(), "outside.pds"))
	m.Close()
	m.Close()

	sort.Strings(up.keys)
	want := []string{"backups/w1/chunks/c.1.0.2.pds.zst", "backups/w1/level.pds.zst"}
	if strings.Join(up.keys, ",") != strings.Join(want, ",") {
		t.Fatalf("keys=%v want %v", up.keys, want)
	}
	st := m.Stats()
	if st.EnqueuedTotal != 3 || st.UploadSuccessTotal != 2 || st.UploadFailTotal != 1 {
		t.Fatalf("stats=%+v", st)
	}
}

func TestMirror_GivesUpAfterMaxAttempts(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "level.pds")
	if err := os.WriteFile(p, []byte("x"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	up := &fakeUploader{fails: 10}
	m := NewMirror(up, dir, MirrorOptions{MaxAttempts: 3})
	m.backoff = func(int) time.Duration { return 0 }
	m.Enqueue(p)
	m.Close()

	if up.fails != 7 {
		t.Fatalf("attempts=%d want 3", 10-up.fails)
	}
	if st := m.Stats(); st.UploadFailTotal != 1 || st.LastErrorUnix == 0 {
		t.Fatalf("stats=%+v", st)
	}
}
