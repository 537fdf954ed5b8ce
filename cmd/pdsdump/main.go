package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ensign-labs/VoxelThing/internal/pds"
	"github.com/ensign-labs/VoxelThing/internal/persistence/snapshot"
	"github.com/ensign-labs/VoxelThing/internal/sim/catalogs"
	"github.com/ensign-labs/VoxelThing/internal/sim/world/storage"
)

func main() {
	var (
		decode     = flag.Bool("chunk", false, "decode the file as a chunk and print a block summary instead of the raw tree")
		blocksPath = flag.String("blocks", "", "blocks.yaml used with -chunk (default: built-in catalog)")
	)
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: pdsdump [-chunk] [-blocks blocks.yaml] file.pds[.zst]...\n")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}

	logger := log.New(os.Stderr, "[pdsdump] ", 0)

	reg := catalogs.DefaultBlocks()
	if *blocksPath != "" {
		r, err := catalogs.LoadBlocks(*blocksPath)
		if err != nil {
			logger.Fatalf("load blocks: %v", err)
		}
		reg = r
	}

	for _, path := range flag.Args() {
		if !*decode {
			it, err := snapshot.ReadFile(path)
			if err != nil {
				logger.Fatalf("%v", err)
			}
			fmt.Printf("# %s\n%s", path, pds.Format(it))
			continue
		}

		c, err := snapshot.ReadCompound(path)
		if err != nil {
			logger.Fatalf("%v", err)
		}
		ch, err := snapshot.DecodeChunk(c, reg)
		if err != nil {
			logger.Fatalf("%s: %v", path, err)
		}
		s := ch.Storage()
		d := ch.Digest()
		fmt.Printf("# %s\nchunk %s bits=%d palette=%d/%d digest=%x\n", path, ch.Pos, s.Bits(), s.PaletteSize(), s.MaxPaletteSize(), d[:8])
		for i, b := range s.Palette() {
			fmt.Printf("  %3d %-16s %d\n", i, b.ID, storage.Count(s, b))
		}
	}
}
