// Package gen holds the deterministic noise helpers behind terrain
// generation. Every function is pure in (seed, coordinates).
package gen

import "github.com/ensign-labs/VoxelThing/internal/sim/mathx"

type Biome string

const (
	Plains Biome = "PLAINS"
	Forest Biome = "FOREST"
	Desert Biome = "DESERT"
)

func BiomeFrom(noise uint64) Biome {
	switch noise % 3 {
	case 0:
		return Plains
	case 1:
		return Forest
	default:
		return Desert
	}
}

func BiomeAt(seed int64, x, z, regionSize int) Biome {
	if regionSize <= 0 {
		regionSize = 1
	}
	rx := mathx.FloorDiv(x, regionSize)
	rz := mathx.FloorDiv(z, regionSize)
	return BiomeFrom(mathx.Hash2(seed, rx, rz))
}

func ClampPermille(v int) int {
	if v < 0 {
		return 0
	}
	if v > 1000 {
		return 1000
	}
	return v
}

func ScalePermille(base uint64, scalePermille int) uint64 {
	if scalePermille <= 0 {
		scalePermille = 1000
	}
	scaled := (base*uint64(scalePermille) + 500) / 1000
	if scaled > 1000 {
		return 1000
	}
	return scaled
}

// Height returns the surface height of column (x, z): a bilinear blend of
// hashed lattice values spaced cell blocks apart, in [base, base+amp].
func Height(seed int64, x, z, cell, base, amp int) int {
	if cell <= 0 {
		cell = 1
	}
	if amp <= 0 {
		return base
	}
	gx, gz := mathx.FloorDiv(x, cell), mathx.FloorDiv(z, cell)
	fx, fz := mathx.Mod(x, cell), mathx.Mod(z, cell)

	corner := func(cx, cz int) int {
		return int(mathx.Hash2(seed, cx, cz) % uint64(amp+1))
	}
	h00, h10 := corner(gx, gz), corner(gx+1, gz)
	h01, h11 := corner(gx, gz+1), corner(gx+1, gz+1)

	// Integer lerp keeps the result identical across platforms.
	top := h00*(cell-fx) + h10*fx
	bot := h01*(cell-fx) + h11*fx
	return base + (top*(cell-fz)+bot*fz)/(cell*cell)
}

// InCluster reports whether column (x, z) falls inside a disc-shaped cluster.
// Each grid cell holds at most one cluster centre, present with probability
// probPermille/1000.
func InCluster(seed int64, x, z, grid, radius int, probPermille uint64) bool {
	if grid <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := mathx.FloorDiv(x, grid)
	gz := mathx.FloorDiv(z, grid)
	r2 := radius * radius

	for dz := -1; dz <= 1; dz++ {
		for dx := -1; dx <= 1; dx++ {
			cgx := gx + dx
			cgz := gz + dz
			h := mathx.Hash2(seed, cgx, cgz)
			if h%1000 >= probPermille {
				continue
			}

			ox := int((h >> 10) % uint64(grid))
			oz := int((h >> 20) % uint64(grid))
			cx := cgx*grid + ox
			cz := cgz*grid + oz

			ddx := x - cx
			ddz := z - cz
			if ddx*ddx+ddz*ddz <= r2 {
				return true
			}
		}
	}
	return false
}

// InCluster3 is InCluster for spherical clusters in three dimensions.
func InCluster3(seed int64, x, y, z, grid, radius int, probPermille uint64) bool {
	if grid <= 0 || radius <= 0 || probPermille == 0 {
		return false
	}
	gx := mathx.FloorDiv(x, grid)
	gy := mathx.FloorDiv(y, grid)
	gz := mathx.FloorDiv(z, grid)
	r2 := radius * radius

	for dy := -1; dy <= 1; dy++ {
		for dz := -1; dz <= 1; dz++ {
			for dx := -1; dx <= 1; dx++ {
				cgx, cgy, cgz := gx+dx, gy+dy, gz+dz
				h := mathx.Hash3(seed, cgx, cgy, cgz)
				if h%1000 >= probPermille {
					continue
				}
				cx := cgx*grid + int((h>>10)%uint64(grid))
				cy := cgy*grid + int((h>>20)%uint64(grid))
				cz := cgz*grid + int((h>>30)%uint64(grid))

				ddx, ddy, ddz := x-cx, y-cy, z-cz
				if ddx*ddx+ddy*ddy+ddz*ddz <= r2 {
					return true
				}
			}
		}
	}
	return false
}
