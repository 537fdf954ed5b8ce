package tuning

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Seed         int64  `yaml:"seed"`
	HeightChunks int    `yaml:"height_chunks"`
	Radius       int    `yaml:"radius"`
	BlocksPath   string `yaml:"blocks_path"`

	Save    Save    `yaml:"save"`
	Index   Index   `yaml:"index"`
	Audit   Audit   `yaml:"audit"`
	Mirror  Mirror  `yaml:"mirror"`
	Terrain Terrain `yaml:"terrain"`
}

type Save struct {
	Dir         string `yaml:"dir"`
	Compression string `yaml:"compression"` // zstd | none
	Compact     bool   `yaml:"compact_on_save"`
	All         bool   `yaml:"all_chunks"`
	Archive     bool   `yaml:"archive_before_save"`
}

type Index struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // default: <save.dir>/index.db
}

type Audit struct {
	Enabled bool `yaml:"enabled"`
}

// Mirror uploads saved files to an S3 compatible bucket. Credentials come
// from the environment, never from the file.
type Mirror struct {
	Enabled       bool   `yaml:"enabled"`
	Endpoint      string `yaml:"endpoint"`
	Bucket        string `yaml:"bucket"`
	Region        string `yaml:"region"`
	Prefix        string `yaml:"prefix"`
	Workers       int    `yaml:"workers"`
	QueueCapacity int    `yaml:"queue_capacity"`
}

type Terrain struct {
	BaseHeight       int `yaml:"base_height"`
	Amplitude        int `yaml:"amplitude"`
	HeightCell       int `yaml:"height_cell"`
	SeaLevel         int `yaml:"sea_level"`
	SnowLine         int `yaml:"snow_line"`
	BiomeRegionSize  int `yaml:"biome_region_size"`
	OreScalePermille int `yaml:"ore_scale_permille"`
	TreePermille     int `yaml:"tree_permille"`
}

func Defaults() Config {
	return Config{
		Seed:         1337,
		HeightChunks: 4,
		Radius:       2,
		Save: Save{
			Dir:         "./data/world",
			Compression: "zstd",
			Compact:     true,
		},
		Index:  Index{Enabled: true},
		Audit:  Audit{Enabled: true},
		Mirror: Mirror{Workers: 2, QueueCapacity: 2048},
	}
}

// Load reads path over Defaults. Keys missing from the file keep their
// default value.
func Load(path string) (Config, error) {
	c := Defaults()
	raw, err := os.ReadFile(path)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	if err := c.Validate(); err != nil {
		return c, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

func (c Config) Validate() error {
	if c.HeightChunks <= 0 {
		return fmt.Errorf("height_chunks must be > 0, got %d", c.HeightChunks)
	}
	if c.Radius < 0 {
		return fmt.Errorf("radius must be >= 0, got %d", c.Radius)
	}
	if strings.TrimSpace(c.Save.Dir) == "" {
		return fmt.Errorf("save.dir is required")
	}
	switch c.Save.Compression {
	case "", "zstd", "none":
	default:
		return fmt.Errorf("save.compression: unknown %q (want zstd or none)", c.Save.Compression)
	}
	if c.Mirror.Enabled && (strings.TrimSpace(c.Mirror.Endpoint) == "" || strings.TrimSpace(c.Mirror.Bucket) == "") {
		return fmt.Errorf("mirror.enabled requires mirror.endpoint and mirror.bucket")
	}
	return nil
}
