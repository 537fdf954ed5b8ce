package catalogs

import (
	"bytes"
	"crypto/sha256"
	_ "embed"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// AirID is the id of the block every registry places at index 0.
const AirID = "AIR"

// MaxBlocks is the largest registry a 16-bit palette index can address.
const MaxBlocks = 1 << 16

// Block is an in-memory block type. Registries hand out one *Block per id, so
// pointers compare by identity.
type Block struct {
	ID          string
	Solid       bool
	Transparent bool
	Index       uint16
}

func (b *Block) String() string {
	if b == nil {
		return "<nil>"
	}
	return b.ID
}

// IsAir reports whether b is the empty block.
func (b *Block) IsAir() bool { return b != nil && b.ID == AirID }

type BlockDef struct {
	ID          string `yaml:"id" json:"id"`
	Solid       bool   `yaml:"solid" json:"solid"`
	Transparent bool   `yaml:"transparent,omitempty" json:"transparent,omitempty"`
}

type blocksFile struct {
	Blocks []BlockDef `yaml:"blocks"`
}

// BlockRegistry resolves block ids to block references and back.
type BlockRegistry struct {
	blocks []*Block
	byID   map[string]*Block

	// PaletteDigest is the sha256 of the ordered id list; saves record it so a
	// loader can tell whether ids were renumbered.
	PaletteDigest string
	DefsDigest    string
}

//go:embed blocks.schema.json
var blocksSchemaJSON string

var (
	schemaOnce sync.Once
	schema     *jsonschema.Schema
	schemaErr  error
)

func blocksSchema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		schema, schemaErr = jsonschema.CompileString("blocks.schema.json", blocksSchemaJSON)
	})
	return schema, schemaErr
}

// LoadBlocks reads a blocks.yaml catalog.
func LoadBlocks(path string) (*BlockRegistry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	reg, err := ParseBlocks(raw)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return reg, nil
}

// ParseBlocks validates raw YAML against the catalog schema and builds a
// registry from it.
func ParseBlocks(raw []byte) (*BlockRegistry, error) {
	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("blocks.yaml: %w", err)
	}
	if err := validateDoc(doc); err != nil {
		return nil, fmt.Errorf("blocks.yaml: %w", err)
	}

	var f blocksFile
	if err := yaml.Unmarshal(raw, &f); err != nil {
		return nil, fmt.Errorf("blocks.yaml: %w", err)
	}
	reg, err := NewBlockRegistry(f.Blocks)
	if err != nil {
		return nil, err
	}
	reg.DefsDigest = sha256Hex(raw)
	return reg, nil
}

// validateDoc runs the decoded YAML through the JSON schema. The document is
// re-read through encoding/json so numbers arrive as json.Number.
func validateDoc(doc any) error {
	s, err := blocksSchema()
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	b, err := json.Marshal(doc)
	if err != nil {
		return err
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return err
	}
	return s.Validate(v)
}

// NewBlockRegistry builds a registry from defs. Ids are sorted and AIR is
// forced to index 0.
func NewBlockRegistry(defs []BlockDef) (*BlockRegistry, error) {
	byDef := make(map[string]BlockDef, len(defs))
	for _, d := range defs {
		if d.ID == "" {
			return nil, fmt.Errorf("blocks: empty id")
		}
		if _, dup := byDef[d.ID]; dup {
			return nil, fmt.Errorf("blocks: duplicate id %q", d.ID)
		}
		byDef[d.ID] = d
	}
	if _, ok := byDef[AirID]; !ok {
		return nil, fmt.Errorf("blocks: missing %s", AirID)
	}
	if len(byDef) > MaxBlocks {
		return nil, fmt.Errorf("blocks: %d ids exceed %d", len(byDef), MaxBlocks)
	}

	ids := make([]string, 0, len(byDef))
	for id := range byDef {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	ids = append([]string{AirID}, filterOut(ids, AirID)...)

	r := &BlockRegistry{
		blocks: make([]*Block, len(ids)),
		byID:   make(map[string]*Block, len(ids)),
	}
	for i, id := range ids {
		d := byDef[id]
		b := &Block{ID: id, Solid: d.Solid, Transparent: d.Transparent, Index: uint16(i)}
		if id == AirID {
			b.Solid = false
			b.Transparent = true
		}
		r.blocks[i] = b
		r.byID[id] = b
	}
	palJSON, _ := json.Marshal(ids)
	r.PaletteDigest = sha256Hex(palJSON)
	return r, nil
}

// Air returns the empty block.
func (r *BlockRegistry) Air() *Block { return r.blocks[0] }

func (r *BlockRegistry) Len() int { return len(r.blocks) }

func (r *BlockRegistry) Lookup(id string) (*Block, bool) {
	b, ok := r.byID[id]
	return b, ok
}

// MustLookup is Lookup for ids known at build time.
func (r *BlockRegistry) MustLookup(id string) *Block {
	b, ok := r.byID[id]
	if !ok {
		panic(fmt.Sprintf("catalogs: unknown block %q", id))
	}
	return b
}

func (r *BlockRegistry) ByIndex(i int) (*Block, bool) {
	if i < 0 || i >= len(r.blocks) {
		return nil, false
	}
	return r.blocks[i], true
}

// Blocks returns the registry in index order.
func (r *BlockRegistry) Blocks() []*Block {
	out := make([]*Block, len(r.blocks))
	copy(out, r.blocks)
	return out
}

func sha256Hex(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

func filterOut(in []string, remove string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s == remove {
			continue
		}
		out = append(out, s)
	}
	return out
}
