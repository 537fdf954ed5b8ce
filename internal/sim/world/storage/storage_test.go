package storage

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
)

func testRegistry(t *testing.T, n int) *catalogs.BlockRegistry {
	t.Helper()
	defs := []catalogs.BlockDef{{ID: catalogs.AirID}}
	for i := 0; i < n; i++ {
		defs = append(defs, catalogs.BlockDef{ID: fmt.Sprintf("B%05d", i), Solid: true})
	}
	reg, err := catalogs.NewBlockRegistry(defs)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return reg
}

func coord(i int) (int, int, int) {
	return i % Length, (i / Length) % Length, i / (Length * Length)
}

// setOrUpgrade mirrors what a chunk does on ErrPaletteFull.
func setOrUpgrade(t *testing.T, s BlockStorage, x, y, z int, b *catalogs.Block) (BlockStorage, bool) {
	t.Helper()
	err := s.SetBlock(x, y, z, b)
	if err == nil {
		return s, false
	}
	if !errors.Is(err, ErrPaletteFull) {
		t.Fatalf("SetBlock: %v", err)
	}
	up, err := Upgrade(s)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	if err := up.SetBlock(x, y, z, b); err != nil {
		t.Fatalf("SetBlock after upgrade: %v", err)
	}
	return up, true
}

func TestNewStorageIsAir(t *testing.T) {
	reg := testRegistry(t, 1)
	for _, s := range []BlockStorage{NewNibbleStorage(reg.Air()), NewByteStorage(reg.Air()), NewShortStorage(reg.Air())} {
		if s.PaletteSize() != 1 || s.Palette()[0] != reg.Air() {
			t.Fatalf("%d-bit palette=%v", s.Bits(), s.Palette())
		}
		if got := s.Block(31, 0, 17); got != reg.Air() {
			t.Fatalf("%d-bit block=%s want AIR", s.Bits(), got)
		}
		if !IsEmpty(s) {
			t.Fatalf("%d-bit storage should be empty", s.Bits())
		}
		if want := Volume * s.Bits() / 8; len(s.Bytes()) != want {
			t.Fatalf("%d-bit Bytes len=%d want %d", s.Bits(), len(s.Bytes()), want)
		}
	}
}

func TestNibblePackingLeavesNeighbourAlone(t *testing.T) {
	reg := testRegistry(t, 2)
	a, b := reg.MustLookup("B00000"), reg.MustLookup("B00001")
	s := NewNibbleStorage(reg.Air())

	if err := s.SetBlock(0, 0, 0, a); err != nil {
		t.Fatalf("SetBlock: %v", err)
	}
	if err := s.SetBlock(1, 0, 0, b); err != nil {
		t.Fatalf("SetBlock: %v", err)
	}
	if got := s.Bytes()[0]; got != 0x21 {
		t.Fatalf("byte 0=%#02x want 0x21", got)
	}
	if err := s.SetBlock(0, 0, 0, reg.Air()); err != nil {
		t.Fatalf("SetBlock: %v", err)
	}
	if got := s.Block(1, 0, 0); got != b {
		t.Fatalf("odd neighbour=%s want %s", got, b)
	}
	if got := s.Bytes()[0]; got != 0x20 {
		t.Fatalf("byte 0=%#02x want 0x20", got)
	}
}

func TestNibbleUpgradeOnSeventeenthType(t *testing.T) {
	reg := testRegistry(t, 16)
	var s BlockStorage = NewNibbleStorage(reg.Air())
	upgrades := 0
	for i := 0; i < 16; i++ {
		x, y, z := coord(i * 37)
		var up bool
		s, up = setOrUpgrade(t, s, x, y, z, reg.MustLookup(fmt.Sprintf("B%05d", i)))
		if up {
			upgrades++
		}
	}
	if upgrades != 1 {
		t.Fatalf("upgrades=%d want 1", upgrades)
	}
	if s.Bits() != 8 {
		t.Fatalf("bits=%d want 8", s.Bits())
	}
	if s.PaletteSize() != 17 {
		t.Fatalf("palette size=%d want 17", s.PaletteSize())
	}
	for i := 0; i < 16; i++ {
		x, y, z := coord(i * 37)
		want := reg.MustLookup(fmt.Sprintf("B%05d", i))
		if got := s.Block(x, y, z); got != want {
			t.Fatalf("block %d=%s want %s", i, got, want)
		}
	}
	if got := s.Block(1, 1, 1); got != reg.Air() {
		t.Fatalf("untouched voxel=%s want AIR", got)
	}
}

func TestPaletteFullLeavesStorageUnchanged(t *testing.T) {
	reg := testRegistry(t, 16)
	s := NewNibbleStorage(reg.Air())
	for i := 0; i < 15; i++ {
		if err := s.SetBlock(i, 0, 0, reg.MustLookup(fmt.Sprintf("B%05d", i))); err != nil {
			t.Fatalf("SetBlock %d: %v", i, err)
		}
	}
	before := s.Bytes()
	err := s.SetBlock(20, 0, 0, reg.MustLookup("B00015"))
	if !errors.Is(err, ErrPaletteFull) {
		t.Fatalf("err=%v want ErrPaletteFull", err)
	}
	if !bytes.Equal(before, s.Bytes()) || s.PaletteSize() != 16 {
		t.Fatalf("failed SetBlock modified the storage")
	}
	// Known blocks still go in.
	if err := s.SetBlock(20, 0, 0, reg.MustLookup("B00003")); err != nil {
		t.Fatalf("SetBlock existing: %v", err)
	}
}

func TestByteStorageHoldsFullPalette(t *testing.T) {
	reg := testRegistry(t, 300)
	s := NewByteStorage(reg.Air())
	for i := 0; i < 255; i++ {
		x, y, z := coord(i)
		if err := s.SetBlock(x, y, z, reg.MustLookup(fmt.Sprintf("B%05d", i))); err != nil {
			t.Fatalf("SetBlock %d: %v", i, err)
		}
	}
	if s.PaletteSize() != 256 {
		t.Fatalf("palette=%d want 256", s.PaletteSize())
	}
	if err := s.SetBlock(0, 5, 0, reg.MustLookup("B00255")); !errors.Is(err, ErrPaletteFull) {
		t.Fatalf("err=%v want ErrPaletteFull", err)
	}

	up, err := Upgrade(s)
	if err != nil {
		t.Fatalf("Upgrade: %v", err)
	}
	short, ok := up.(*ShortStorage)
	if !ok {
		t.Fatalf("upgrade=%T want *ShortStorage", up)
	}
	if err := short.SetBlock(0, 5, 0, reg.MustLookup("B00255")); err != nil {
		t.Fatalf("SetBlock on short: %v", err)
	}
	for i := 0; i < 255; i++ {
		x, y, z := coord(i)
		if got, want := short.Block(x, y, z), reg.MustLookup(fmt.Sprintf("B%05d", i)); got != want {
			t.Fatalf("block %d=%s want %s", i, got, want)
		}
	}
	// The source is not touched by Upgrade.
	if s.PaletteSize() != 256 || s.Block(0, 5, 0) != reg.Air() {
		t.Fatalf("Upgrade modified its source")
	}
	if _, err := Upgrade(short); !errors.Is(err, ErrNoWiderStorage) {
		t.Fatalf("err=%v want ErrNoWiderStorage", err)
	}
}

func TestShortBytesBigEndian(t *testing.T) {
	reg := testRegistry(t, 300)
	s := NewShortStorage(reg.Air())
	for i := 0; i < 0x102; i++ {
		if err := s.SetBlock(0, 0, 0, reg.MustLookup(fmt.Sprintf("B%05d", i))); err != nil {
			t.Fatalf("SetBlock: %v", err)
		}
	}
	raw := s.Bytes()
	if raw[0] != 0x01 || raw[1] != 0x02 {
		t.Fatalf("voxel 0=%x want 0102", raw[:2])
	}
}

func TestOutOfBoundsPanics(t *testing.T) {
	reg := testRegistry(t, 1)
	s := NewNibbleStorage(reg.Air())
	cases := [][3]int{{Length, 0, 0}, {0, Length, 0}, {0, 0, Length}, {-1, 0, 0}}
	for _, c := range cases {
		func() {
			defer func() {
				r := recover()
				oob, ok := r.(*OutOfBoundsError)
				if !ok {
					t.Fatalf("%v: recovered %v want *OutOfBoundsError", c, r)
				}
				if oob.X != c[0] || oob.Y != c[1] || oob.Z != c[2] {
					t.Fatalf("error coords=%d,%d,%d want %v", oob.X, oob.Y, oob.Z, c)
				}
			}()
			s.Block(c[0], c[1], c[2])
		}()
	}
	func() {
		defer func() {
			if _, ok := recover().(*OutOfBoundsError); !ok {
				t.Fatalf("SetBlock did not panic with *OutOfBoundsError")
			}
		}()
		_ = s.SetBlock(0, 32, 0, reg.MustLookup("B00000"))
	}()
}

func TestFromBytesRoundTrip(t *testing.T) {
	reg := testRegistry(t, 300)
	sizes := []int{3, 40, 290}
	for _, n := range sizes {
		var s BlockStorage = NewNibbleStorage(reg.Air())
		for i := 0; i < n; i++ {
			x, y, z := coord(i * 101)
			s, _ = setOrUpgrade(t, s, x, y, z, reg.MustLookup(fmt.Sprintf("B%05d", i)))
		}
		back, err := FromBytes(s.Palette(), s.Bytes())
		if err != nil {
			t.Fatalf("n=%d FromBytes: %v", n, err)
		}
		if back.Bits() != s.Bits() {
			t.Fatalf("n=%d bits=%d want %d", n, back.Bits(), s.Bits())
		}
		if !bytes.Equal(back.Bytes(), s.Bytes()) {
			t.Fatalf("n=%d grid differs after FromBytes", n)
		}
		for i := 0; i < Volume; i += 97 {
			x, y, z := coord(i)
			if back.Block(x, y, z) != s.Block(x, y, z) {
				t.Fatalf("n=%d voxel %d differs", n, i)
			}
		}
	}
}

func TestFromBytesRejects(t *testing.T) {
	reg := testRegistry(t, 3)
	air, a := reg.Air(), reg.MustLookup("B00000")
	nib := make([]byte, Volume/2)

	if _, err := FromBytes(nil, nib); err == nil {
		t.Fatalf("expected empty palette error")
	}
	if _, err := FromBytes([]*catalogs.Block{a, air}, nib); err == nil {
		t.Fatalf("expected air-first error")
	}
	if _, err := FromBytes([]*catalogs.Block{air, a, a}, nib); err == nil {
		t.Fatalf("expected repeated palette entry error")
	}
	if _, err := FromBytes([]*catalogs.Block{air, a}, make([]byte, Volume)); err == nil {
		t.Fatalf("expected length error for byte-sized grid with nibble palette")
	}
	bad := make([]byte, Volume/2)
	bad[100] = 0x20
	if _, err := FromBytes([]*catalogs.Block{air, a}, bad); err == nil {
		t.Fatalf("expected out-of-palette index error")
	}
}

func TestCompactDowngrades(t *testing.T) {
	reg := testRegistry(t, 40)
	var s BlockStorage = NewNibbleStorage(reg.Air())
	for i := 0; i < 40; i++ {
		s, _ = setOrUpgrade(t, s, i, 0, 0, reg.MustLookup(fmt.Sprintf("B%05d", i)))
	}
	if s.Bits() != 8 {
		t.Fatalf("bits=%d want 8", s.Bits())
	}
	// Overwrite all but three types with air.
	for i := 3; i < 40; i++ {
		if err := s.SetBlock(i, 0, 0, reg.Air()); err != nil {
			t.Fatalf("SetBlock: %v", err)
		}
	}
	c := Compact(s)
	if c.Bits() != 4 {
		t.Fatalf("compacted bits=%d want 4", c.Bits())
	}
	if c.PaletteSize() != 4 || c.Palette()[0] != reg.Air() {
		t.Fatalf("compacted palette=%v", c.Palette())
	}
	for i := 0; i < 40; i++ {
		if got, want := c.Block(i, 0, 0), s.Block(i, 0, 0); got != want {
			t.Fatalf("voxel %d=%s want %s", i, got, want)
		}
	}
	if Count(c, reg.MustLookup("B00001")) != 1 || Count(c, reg.MustLookup("B00020")) != 0 {
		t.Fatalf("unexpected counts after compact")
	}

	// Nothing to drop: the same storage comes back.
	if again := Compact(c); again != c {
		t.Fatalf("Compact of a tight storage should return it unchanged")
	}
}

func TestCount(t *testing.T) {
	reg := testRegistry(t, 1)
	s := NewNibbleStorage(reg.Air())
	stone := reg.MustLookup("B00000")
	for x := 0; x < Length; x++ {
		if err := s.SetBlock(x, 3, 4, stone); err != nil {
			t.Fatalf("SetBlock: %v", err)
		}
	}
	if got := Count(s, stone); got != Length {
		t.Fatalf("count=%d want %d", got, Length)
	}
	if got := Count(s, reg.Air()); got != Volume-Length {
		t.Fatalf("air count=%d want %d", got, Volume-Length)
	}
	if IsEmpty(s) {
		t.Fatalf("IsEmpty=true after writes")
	}
	if err := s.SetBlock(0, 0, 0, nil); !errors.Is(err, ErrNilBlock) {
		t.Fatalf("err=%v want ErrNilBlock", err)
	}
}
