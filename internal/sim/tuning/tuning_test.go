package tuning

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoad_ShippedConfig(t *testing.T) {
	c, err := Load(filepath.Join("..", "..", "..", "configs", "voxelthing.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if c.HeightChunks != 4 || c.Radius != 2 || c.Save.Compression != "zstd" || !c.Save.Compact {
		t.Fatalf("config=%+v", c)
	}
	if c.Terrain.SeaLevel != 28 || c.Mirror.Enabled {
		t.Fatalf("terrain=%+v mirror=%+v", c.Terrain, c.Mirror)
	}
}

func TestLoad_KeepsDefaultsForMissingKeys(t *testing.T) {
	path := filepath.Join(t.TempDir(), "voxelthing.yaml")
	if err := os.WriteFile(path, []byte("seed: 7\nsave:\n  compression: none\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	c, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	d := Defaults()
	if c.Seed != 7 || c.Save.Compression != "none" {
		t.Fatalf("seed=%d compression=%s", c.Seed, c.Save.Compression)
	}
	if c.HeightChunks != d.HeightChunks || c.Save.Dir != d.Save.Dir || c.Index.Enabled != d.Index.Enabled {
		t.Fatalf("got=%+v want defaults %+v", c, d)
	}
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
		want string
	}{
		{"height", func(c *Config) { c.HeightChunks = 0 }, "height_chunks"},
		{"radius", func(c *Config) { c.Radius = -1 }, "radius"},
		{"dir", func(c *Config) { c.Save.Dir = " " }, "save.dir"},
		{"compression", func(c *Config) { c.Save.Compression = "gzip" }, "save.compression"},
		{"mirror", func(c *Config) { c.Mirror.Enabled = true }, "mirror.enabled"},
	}
	if err := Defaults().Validate(); err != nil {
		t.Fatalf("defaults: %v", err)
	}
	for _, tc := range cases {
		c := Defaults()
		tc.mut(&c)
		err := c.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: err=%v want mention of %q", tc.name, err, tc.want)
		}
	}
}

func TestLoad_BadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("seed: [1,2\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatalf("expected parse error")
	}
}
