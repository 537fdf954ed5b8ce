package gen

import "testing"

func TestHeightBoundsAndDeterminism(t *testing.T) {
	for x := -70; x < 70; x += 7 {
		for z := -70; z < 70; z += 11 {
			h := Height(42, x, z, 16, 20, 12)
			if h < 20 || h > 32 {
				t.Fatalf("Height(%d,%d)=%d out of [20,32]", x, z, h)
			}
			if again := Height(42, x, z, 16, 20, 12); again != h {
				t.Fatalf("Height not deterministic: got=%d want %d", again, h)
			}
		}
	}
	if h := Height(1, 5, 5, 16, 8, 0); h != 8 {
		t.Fatalf("zero amplitude height=%d want 8", h)
	}
}

func TestHeightIsSmooth(t *testing.T) {
	a := Height(9, 32, 48, 16, 0, 100)
	neighbour := Height(9, 33, 48, 16, 0, 100)
	if d := neighbour - a; d > 7 || d < -7 {
		t.Fatalf("adjacent columns differ by %d", d)
	}
}

func TestInClusterEdges(t *testing.T) {
	if InCluster(1, 0, 0, 0, 3, 500) || InCluster(1, 0, 0, 16, 0, 500) || InCluster(1, 0, 0, 16, 3, 0) {
		t.Fatalf("degenerate parameters should never match")
	}
	hits := 0
	for x := 0; x < 256; x++ {
		for z := 0; z < 256; z++ {
			if InCluster(7, x, z, 32, 4, 1000) {
				hits++
			}
		}
	}
	if hits == 0 {
		t.Fatalf("probability 1000 produced no cluster hits")
	}
}

func TestInCluster3Deterministic(t *testing.T) {
	hits := 0
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			for z := 0; z < 32; z++ {
				if InCluster3(5, x, y, z, 16, 3, 1000) {
					hits++
				}
			}
		}
	}
	again := 0
	for x := 0; x < 32; x++ {
		for y := 0; y < 32; y++ {
			for z := 0; z < 32; z++ {
				if InCluster3(5, x, y, z, 16, 3, 1000) {
					again++
				}
			}
		}
	}
	if again != hits {
		t.Fatalf("second pass hits=%d want %d", again, hits)
	}
	if hits == 0 {
		t.Fatalf("expected some hits")
	}
}

func TestScaleAndClampPermille(t *testing.T) {
	if got := ScalePermille(400, 0); got != 400 {
		t.Fatalf("got=%d want 400", got)
	}
	if got := ScalePermille(600, 2000); got != 1000 {
		t.Fatalf("got=%d want 1000", got)
	}
	if ClampPermille(-5) != 0 || ClampPermille(1200) != 1000 {
		t.Fatalf("clamp out of range")
	}
}

func TestBiomeAt(t *testing.T) {
	b := BiomeAt(3, 10, 10, 64)
	if b != BiomeAt(3, 63, 0, 64) {
		t.Fatalf("same region should share a biome")
	}
	switch b {
	case Plains, Forest, Desert:
	default:
		t.Fatalf("unknown biome %q", b)
	}
}
