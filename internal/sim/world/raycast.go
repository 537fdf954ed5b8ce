package world

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
)

// BlockSource is the read-only view Raycast needs. *World implements it.
type BlockSource interface {
	Block(x, y, z int) *catalogs.Block
}

type RayHit struct {
	Pos    [3]int
	Normal [3]int // face entered; zero when the ray starts inside a solid block
	Block  *catalogs.Block
	Dist   float32
	Point  mgl32.Vec3
}

// Raycast walks the voxels crossed by the ray origin+t*dir for t in
// [0, maxDist] and returns the first solid block. It only reads from src.
func Raycast(src BlockSource, origin, dir mgl32.Vec3, maxDist float32) (RayHit, bool) {
	if dir.Len() == 0 || maxDist <= 0 {
		return RayHit{}, false
	}
	d := dir.Normalize()

	var (
		pos    [3]int
		step   [3]int
		tMax   [3]float32
		tDelta [3]float32
	)
	for i := 0; i < 3; i++ {
		f := math.Floor(float64(origin[i]))
		pos[i] = int(f)
		switch {
		case d[i] > 0:
			step[i] = 1
			tMax[i] = (float32(f) + 1 - origin[i]) / d[i]
			tDelta[i] = 1 / d[i]
		case d[i] < 0:
			step[i] = -1
			tMax[i] = (origin[i] - float32(f)) / -d[i]
			tDelta[i] = -1 / d[i]
		default:
			tMax[i] = float32(math.Inf(1))
			tDelta[i] = float32(math.Inf(1))
		}
	}

	var (
		t      float32
		normal [3]int
	)
	for {
		if b := src.Block(pos[0], pos[1], pos[2]); b != nil && b.Solid {
			return RayHit{
				Pos:    pos,
				Normal: normal,
				Block:  b,
				Dist:   t,
				Point:  origin.Add(d.Mul(t)),
			}, true
		}

		axis := 0
		if tMax[1] < tMax[axis] {
			axis = 1
		}
		if tMax[2] < tMax[axis] {
			axis = 2
		}
		t = tMax[axis]
		if t > maxDist {
			return RayHit{}, false
		}
		pos[axis] += step[axis]
		tMax[axis] += tDelta[axis]
		normal = [3]int{}
		normal[axis] = -step[axis]
	}
}
