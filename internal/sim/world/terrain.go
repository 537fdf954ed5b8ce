package world

import (
	"fmt"

	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
	"github.com/ensign-labs/VoxelThing/internal/sim/mathx"
	"github.com/ensign-labs/VoxelThing/internal/sim/world/terrain/gen"
)

// TerrainConfig tunes TerrainGen. Zero values fall back to defaults.
type TerrainConfig struct {
	Seed            int64
	BaseHeight      int
	Amplitude       int
	HeightCell      int
	SeaLevel        int
	SnowLine        int
	BiomeRegionSize int

	OreClusterProbScalePermille int
	TreePermille                int
}

func (c *TerrainConfig) applyDefaults() {
	if c.BaseHeight <= 0 {
		c.BaseHeight = 24
	}
	if c.Amplitude <= 0 {
		c.Amplitude = 20
	}
	if c.HeightCell <= 0 {
		c.HeightCell = 16
	}
	if c.SeaLevel <= 0 {
		c.SeaLevel = 28
	}
	if c.SnowLine <= 0 {
		c.SnowLine = 40
	}
	if c.BiomeRegionSize <= 0 {
		c.BiomeRegionSize = 128
	}
	if c.OreClusterProbScalePermille <= 0 {
		c.OreClusterProbScalePermille = 1000
	}
	if c.TreePermille <= 0 {
		c.TreePermille = 12
	}
}

// TerrainGen is the default Generator: a hashed heightmap over stone with
// biome-dependent surface layers, ore clusters, water up to sea level and
// single-column trees.
type TerrainGen struct {
	cfg TerrainConfig

	air, bedrock, stone, dirt, grass, sand, gravel, snow, water *catalogs.Block

	log, leaves, clay *catalogs.Block

	coal, iron, copper, crystal *catalogs.Block
}

func NewTerrainGen(reg *catalogs.BlockRegistry, cfg TerrainConfig) (*TerrainGen, error) {
	cfg.applyDefaults()
	g := &TerrainGen{cfg: cfg, air: reg.Air()}
	for id, dst := range map[string]**catalogs.Block{
		"BEDROCK":     &g.bedrock,
		"STONE":       &g.stone,
		"DIRT":        &g.dirt,
		"GRASS":       &g.grass,
		"SAND":        &g.sand,
		"GRAVEL":      &g.gravel,
		"SNOW":        &g.snow,
		"WATER":       &g.water,
		"LOG":         &g.log,
		"LEAVES":      &g.leaves,
		"CLAY":        &g.clay,
		"COAL_ORE":    &g.coal,
		"IRON_ORE":    &g.iron,
		"COPPER_ORE":  &g.copper,
		"CRYSTAL_ORE": &g.crystal,
	} {
		b, ok := reg.Lookup(id)
		if !ok {
			return nil, fmt.Errorf("terrain: block catalog is missing %s", id)
		}
		*dst = b
	}
	return g, nil
}

func (g *TerrainGen) Name() string { return "terrain/v1" }

func (g *TerrainGen) Config() TerrainConfig { return g.cfg }

// SurfaceHeight returns the y of the topmost terrain block in column (x, z).
func (g *TerrainGen) SurfaceHeight(x, z int) int {
	return gen.Height(g.cfg.Seed, x, z, g.cfg.HeightCell, g.cfg.BaseHeight, g.cfg.Amplitude)
}

func (g *TerrainGen) Generate(ch *Chunk) {
	seed := g.cfg.Seed
	oreScale := g.cfg.OreClusterProbScalePermille
	for lz := 0; lz < Length; lz++ {
		for lx := 0; lx < Length; lx++ {
			wx := ch.Pos.X*Length + lx
			wz := ch.Pos.Z*Length + lz
			h := g.SurfaceHeight(wx, wz)
			biome := gen.BiomeAt(seed, wx, wz, g.cfg.BiomeRegionSize)
			tree := h >= g.cfg.SeaLevel && biome == gen.Forest &&
				mathx.Hash2(seed+501, wx, wz)%1000 < uint64(gen.ClampPermille(g.cfg.TreePermille))

			for ly := 0; ly < Length; ly++ {
				wy := ch.Pos.Y*Length + ly
				b := g.air
				switch {
				case wy == 0:
					b = g.bedrock
				case wy < h-3:
					b = g.stone
					switch {
					case gen.InCluster3(seed+101, wx, wy, wz, 48, 2, gen.ScalePermille(120, oreScale)):
						b = g.crystal
					case gen.InCluster3(seed+102, wx, wy, wz, 24, 2, gen.ScalePermille(300, oreScale)):
						b = g.iron
					case gen.InCluster3(seed+103, wx, wy, wz, 24, 2, gen.ScalePermille(300, oreScale)):
						b = g.copper
					case gen.InCluster3(seed+104, wx, wy, wz, 16, 2, gen.ScalePermille(450, oreScale)):
						b = g.coal
					case gen.InCluster3(seed+105, wx, wy, wz, 32, 3, gen.ScalePermille(200, oreScale)):
						b = g.gravel
					}
				case wy < h:
					b = g.subsoil(biome, h)
				case wy == h:
					b = g.surface(biome, h)
				case tree && wy <= h+4:
					b = g.log
				case tree && wy == h+5:
					b = g.leaves
				case wy <= g.cfg.SeaLevel:
					b = g.water
				}
				if b == g.air {
					continue
				}
				if err := ch.SetBlock(lx, ly, lz, b); err != nil {
					// Local coordinates are in range and the palette can always
					// widen to 16 bits.
					panic(err)
				}
			}
		}
	}
}

func (g *TerrainGen) surface(biome gen.Biome, h int) *catalogs.Block {
	switch {
	case h < g.cfg.SeaLevel:
		if biome == gen.Plains {
			return g.clay
		}
		return g.sand
	case h >= g.cfg.SnowLine:
		return g.snow
	case biome == gen.Desert:
		return g.sand
	}
	return g.grass
}

func (g *TerrainGen) subsoil(biome gen.Biome, h int) *catalogs.Block {
	if biome == gen.Desert || h < g.cfg.SeaLevel {
		return g.sand
	}
	return g.dirt
}
