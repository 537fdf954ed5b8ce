package catalogs

var defaultBlockDefs = []BlockDef{
	{ID: AirID},
	{ID: "STONE", Solid: true},
	{ID: "GRASS", Solid: true},
	{ID: "DIRT", Solid: true},
	{ID: "COBBLESTONE", Solid: true},
	{ID: "PLANKS", Solid: true},
	{ID: "LOG", Solid: true},
	{ID: "LEAVES", Solid: true, Transparent: true},
	{ID: "SAND", Solid: true},
	{ID: "GRAVEL", Solid: true},
	{ID: "GLASS", Solid: true, Transparent: true},
	{ID: "BRICKS", Solid: true},
	{ID: "COAL_ORE", Solid: true},
	{ID: "IRON_ORE", Solid: true},
	{ID: "COPPER_ORE", Solid: true},
	{ID: "CRYSTAL_ORE", Solid: true},
	{ID: "BEDROCK", Solid: true},
	{ID: "WATER", Transparent: true},
	{ID: "SNOW", Solid: true},
	{ID: "CLAY", Solid: true},
}

// DefaultBlocks returns the built-in catalog used when no blocks.yaml is
// configured.
func DefaultBlocks() *BlockRegistry {
	r, err := NewBlockRegistry(defaultBlockDefs)
	if err != nil {
		panic(err)
	}
	return r
}
