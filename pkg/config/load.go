package config

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"
	"github.com/zclconf/go-cty/cty"

	"github.com/matzehuels/layouttune/pkg/errors"
)

// hclFile mirrors Config for HCL decoding. Blocks are pointers so that an
// absent block keeps its defaults.
type hclFile struct {
	Engine    string          `hcl:"engine,optional"`
	Reference string          `hcl:"reference,optional"`
	Artifact  string          `hcl:"artifact,optional"`
	WorkDir   string          `hcl:"work_dir,optional"`
	Source    *SourceConfig   `hcl:"source,block"`
	Build     *CommandConfig  `hcl:"build,block"`
	Render    *RenderConfig   `hcl:"render,block"`
	Graphviz  *GraphvizConfig `hcl:"graphviz,block"`
	Grid      *GridConfig     `hcl:"grid,block"`
}

// Load reads the tuning file at path, fills in defaults and validates the
// result. The format is chosen by extension: ".toml" or ".hcl".
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.Wrap(errors.ErrCodeFileNotFound, err, "config file %s", path)
		}
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}

	var cfg *Config
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		cfg, err = decodeTOML(data)
	case ".hcl":
		cfg, err = decodeHCL(path, data)
	default:
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unsupported config format %q (expected .toml or .hcl)", ext)
	}
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfig, err, "load %s", path)
	}

	cfg.dir = filepath.Dir(path)
	cfg.fillDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadOrDefault loads path, or returns the defaults resolved against the
// working directory when path is empty.
func LoadOrDefault(path string) (*Config, error) {
	if path == "" {
		cfg := Default()
		return cfg, cfg.Validate()
	}
	return Load(path)
}

func decodeTOML(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.NewDecoder(bytes.NewReader(data)).Decode(&cfg)
	if err != nil {
		return nil, err
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, errors.New(errors.ErrCodeInvalidConfig, "unknown keys: %s", strings.Join(keys, ", "))
	}
	return &cfg, nil
}

func decodeHCL(path string, data []byte) (*Config, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(data, path)
	if diags.HasErrors() {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "parse HCL: %s", diags.Error())
	}

	var hf hclFile
	if diags := gohcl.DecodeBody(file.Body, evalContext(), &hf); diags.HasErrors() {
		return nil, errors.New(errors.ErrCodeInvalidConfig, "decode HCL: %s", diags.Error())
	}

	cfg := &Config{
		Engine:    hf.Engine,
		Reference: hf.Reference,
		Artifact:  hf.Artifact,
		WorkDir:   hf.WorkDir,
	}
	if hf.Source != nil {
		cfg.Source = *hf.Source
	}
	if hf.Build != nil {
		cfg.Build = *hf.Build
	}
	if hf.Render != nil {
		cfg.Render = *hf.Render
	}
	if hf.Graphviz != nil {
		cfg.Graphviz = *hf.Graphviz
	}
	if hf.Grid != nil {
		cfg.Grid = *hf.Grid
	}
	return cfg, nil
}

// evalContext exposes the process environment as the env object.
func evalContext() *hcl.EvalContext {
	env := make(map[string]cty.Value)
	for _, kv := range os.Environ() {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || k == "" || !hclIdentifier(k) {
			continue
		}
		env[k] = cty.StringVal(v)
	}
	return &hcl.EvalContext{
		Variables: map[string]cty.Value{
			"env": cty.ObjectVal(env),
		},
	}
}

func hclIdentifier(s string) bool {
	for i, r := range s {
		switch {
		case r == '_', r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
		case i > 0 && (r >= '0' && r <= '9' || r == '-'):
		default:
			return false
		}
	}
	return true
}

// Write encodes c as TOML.
func (c *Config) Write(w io.Writer) error {
	enc := toml.NewEncoder(w)
	enc.Indent = ""
	if err := enc.Encode(c); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "encode config")
	}
	return nil
}

// WriteFile writes c as TOML to path. An existing file is only replaced
// when overwrite is set.
func (c *Config) WriteFile(path string, overwrite bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	if !overwrite {
		flags |= os.O_EXCL
	}
	f, err := os.OpenFile(path, flags, 0o644)
	if err != nil {
		if os.IsExist(err) {
			return errors.Wrap(errors.ErrCodeInvalidInput, err, "%s already exists", path)
		}
		return errors.Wrap(errors.ErrCodeInternal, err, "create %s", path)
	}
	if err := c.Write(f); err != nil {
		f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return errors.Wrap(errors.ErrCodeInternal, err, "write %s", path)
	}
	return nil
}
