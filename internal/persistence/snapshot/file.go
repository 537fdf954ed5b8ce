package snapshot

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/klauspost/compress/zstd"

	"github.com/ensign-labs/VoxelThing/internal/pds"
)

type Compression string

const (
	CompressionZstd Compression = "zstd"
	CompressionNone Compression = "none"
)

func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case CompressionZstd, "":
		return CompressionZstd, nil
	case CompressionNone:
		return CompressionNone, nil
	}
	return "", fmt.Errorf("unknown compression %q (want zstd or none)", s)
}

// Ext is the file suffix for a pds file with this compression.
func (c Compression) Ext() string {
	if c == CompressionNone {
		return ".pds"
	}
	return ".pds.zst"
}

func (c Compression) other() Compression {
	if c == CompressionNone {
		return CompressionZstd
	}
	return CompressionNone
}

var zstdMagic = []byte{0x28, 0xB5, 0x2F, 0xFD}

// WriteFile writes it to path through a temporary file in the same directory,
// renamed into place once complete. It returns the number of bytes on disk.
func WriteFile(path string, it pds.Item, comp Compression) (int64, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return 0, err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return 0, err
	}
	tmp := f.Name()
	committed := false
	defer func() {
		if !committed {
			_ = f.Close()
			_ = os.Remove(tmp)
		}
	}()

	if err := writeTo(f, it, comp); err != nil {
		return 0, fmt.Errorf("%s: %w", path, err)
	}
	if err := f.Sync(); err != nil {
		return 0, err
	}
	st, err := f.Stat()
	if err != nil {
		return 0, err
	}
	if err := f.Close(); err != nil {
		return 0, err
	}
	if err := os.Rename(tmp, path); err != nil {
		return 0, err
	}
	committed = true
	return st.Size(), nil
}

func writeTo(w io.Writer, it pds.Item, comp Compression) error {
	switch comp {
	case CompressionNone:
		return pds.WriteItem(w, it)
	case CompressionZstd:
		enc, err := zstd.NewWriter(w, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if err != nil {
			return err
		}
		bw := bufio.NewWriterSize(enc, 256*1024)
		if err := pds.WriteItem(bw, it); err != nil {
			_ = enc.Close()
			return err
		}
		if err := bw.Flush(); err != nil {
			_ = enc.Close()
			return err
		}
		return enc.Close()
	}
	return fmt.Errorf("unknown compression %q", comp)
}

// ReadFile reads one item from a pds file. zstd frames are detected from the
// content, not the file name.
func ReadFile(path string) (pds.Item, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	br := bufio.NewReaderSize(f, 256*1024)
	var r io.Reader = br
	if head, _ := br.Peek(len(zstdMagic)); bytes.Equal(head, zstdMagic) {
		dec, err := zstd.NewReader(br)
		if err != nil {
			return nil, err
		}
		defer dec.Close()
		r = bufio.NewReaderSize(dec, 256*1024)
	}

	it, err := pds.ReadItem(r)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	if it == nil {
		return nil, fmt.Errorf("%s: empty file", path)
	}
	return it, nil
}

// ReadCompound is ReadFile for files whose root must be a compound.
func ReadCompound(path string) (*pds.Compound, error) {
	it, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, ok := it.(*pds.Compound)
	if !ok {
		return nil, fmt.Errorf("%s: root is %s, want Compound", path, it.Tag())
	}
	return c, nil
}
