// Package config loads and validates tuning configuration.
//
// A tuning file is TOML (".toml") or HCL (".hcl"); both describe the same
// [Config]. Fields left out of a file keep their [Default] values, which
// reproduce the classic calibration setup: patch include/dagir/render_svg.hpp,
// rebuild with cmake, render the deep_all_ops expression to SVG and compare
// against reference.svg.
//
// Relative paths are resolved against the directory holding the config file,
// or against work_dir when it is set.
//
// Example TOML:
//
//	engine    = "toolchain"
//	reference = "reference.svg"
//
//	[build]
//	command = ["cmake", "--build", "build", "--config", "Release", "-j", "4"]
//	timeout = "10m"
//
//	[grid]
//	node_width = [50.0, 60.0, 70.0]
//
// HCL files may read the environment through the env object:
//
//	reference = "${env.HOME}/refs/reference.svg"
package config

import (
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/params"
	"github.com/matzehuels/layouttune/pkg/patch"
	"github.com/matzehuels/layouttune/pkg/toolchain"
)

// Engine kinds.
const (
	EngineToolchain = "toolchain" // Patch source, rebuild, run the engine executable
	EngineGraphviz  = "graphviz"  // Render a DOT sample in-process
)

// Config is the complete tuning configuration.
type Config struct {
	Engine    string `toml:"engine" validate:"required,oneof=toolchain graphviz"`
	Reference string `toml:"reference" validate:"required"`
	Artifact  string `toml:"artifact" validate:"required"`
	WorkDir   string `toml:"work_dir,omitempty"`

	Source   SourceConfig   `toml:"source"`
	Build    CommandConfig  `toml:"build"`
	Render   RenderConfig   `toml:"render"`
	Graphviz GraphvizConfig `toml:"graphviz"`
	Grid     GridConfig     `toml:"grid"`

	// dir is the directory of the loaded file; empty means the process
	// working directory.
	dir string
}

// SourceConfig locates the engine configuration source and the names of its
// five layout declarations.
type SourceConfig struct {
	Path       string `toml:"path" hcl:"path,optional"`
	NodeWidth  string `toml:"node_width" hcl:"node_width,optional" validate:"omitempty,identifier"`
	NodeHeight string `toml:"node_height" hcl:"node_height,optional" validate:"omitempty,identifier"`
	HGap       string `toml:"h_gap" hcl:"h_gap,optional" validate:"omitempty,identifier"`
	VGap       string `toml:"v_gap" hcl:"v_gap,optional" validate:"omitempty,identifier"`
	Margin     string `toml:"margin" hcl:"margin,optional" validate:"omitempty,identifier"`
}

// CommandConfig describes the build command.
type CommandConfig struct {
	Command []string `toml:"command" hcl:"command,optional"`
	Dir     string   `toml:"dir,omitempty" hcl:"dir,optional"`
	Timeout string   `toml:"timeout" hcl:"timeout,optional" validate:"omitempty,duration"`
}

// RenderConfig describes how the engine executable renders the sample.
type RenderConfig struct {
	Executable string   `toml:"executable" hcl:"executable,optional"`
	Args       []string `toml:"args,omitempty" hcl:"args,optional"`
	Input      string   `toml:"input" hcl:"input,optional"`
	Format     string   `toml:"format" hcl:"format,optional" validate:"omitempty,format_token"`
	Dir        string   `toml:"dir,omitempty" hcl:"dir,optional"`
	Timeout    string   `toml:"timeout" hcl:"timeout,optional" validate:"omitempty,duration"`
}

// GraphvizConfig configures the in-process engine.
type GraphvizConfig struct {
	Input string `toml:"input" hcl:"input,optional"` // DOT sample graph
}

// GridConfig holds the candidate values of each parameter.
type GridConfig struct {
	NodeWidth  []float64 `toml:"node_width" hcl:"node_width,optional" validate:"min=1,dive,finite"`
	NodeHeight []float64 `toml:"node_height" hcl:"node_height,optional" validate:"min=1,dive,finite"`
	HGap       []float64 `toml:"h_gap" hcl:"h_gap,optional" validate:"min=1,dive,finite"`
	VGap       []float64 `toml:"v_gap" hcl:"v_gap,optional" validate:"min=1,dive,finite"`
	Margin     []float64 `toml:"margin" hcl:"margin,optional" validate:"min=1,dive,finite"`
}

// Default returns the built-in configuration.
func Default() *Config {
	decls := patch.DefaultDeclarations()
	build := toolchain.DefaultBuildCommand()
	grid := params.DefaultGrid()

	return &Config{
		Engine:    EngineToolchain,
		Reference: "reference.svg",
		Artifact:  "test.svg",
		Source: SourceConfig{
			Path:       filepath.Join("include", "dagir", "render_svg.hpp"),
			NodeWidth:  decls.NodeWidth,
			NodeHeight: decls.NodeHeight,
			HGap:       decls.HGap,
			VGap:       decls.VGap,
			Margin:     decls.Margin,
		},
		Build: CommandConfig{
			Command: append([]string{build.Name}, build.Args...),
			Timeout: "10m",
		},
		Render: RenderConfig{
			Executable: defaultExecutable(),
			Input:      filepath.Join("tests", "regression_tests", "expressions", "deep_all_ops.expr"),
			Format:     "svg",
			Timeout:    "1m",
		},
		Grid: GridConfig{
			NodeWidth:  grid.NodeWidth,
			NodeHeight: grid.NodeHeight,
			HGap:       grid.HGap,
			VGap:       grid.VGap,
			Margin:     grid.Margin,
		},
	}
}

func defaultExecutable() string {
	exe := filepath.Join("build", "Release", "expression2tree")
	if runtime.GOOS == "windows" {
		exe += ".exe"
	}
	return exe
}

// fillDefaults copies default values into every field left empty.
func (c *Config) fillDefaults() {
	d := Default()
	setString(&c.Engine, d.Engine)
	setString(&c.Reference, d.Reference)
	setString(&c.Artifact, d.Artifact)

	setString(&c.Source.Path, d.Source.Path)
	setString(&c.Source.NodeWidth, d.Source.NodeWidth)
	setString(&c.Source.NodeHeight, d.Source.NodeHeight)
	setString(&c.Source.HGap, d.Source.HGap)
	setString(&c.Source.VGap, d.Source.VGap)
	setString(&c.Source.Margin, d.Source.Margin)

	if c.Build.Command == nil {
		c.Build.Command = d.Build.Command
	}
	setString(&c.Build.Timeout, d.Build.Timeout)

	setString(&c.Render.Executable, d.Render.Executable)
	setString(&c.Render.Input, d.Render.Input)
	setString(&c.Render.Format, d.Render.Format)
	setString(&c.Render.Timeout, d.Render.Timeout)

	setFloats(&c.Grid.NodeWidth, d.Grid.NodeWidth)
	setFloats(&c.Grid.NodeHeight, d.Grid.NodeHeight)
	setFloats(&c.Grid.HGap, d.Grid.HGap)
	setFloats(&c.Grid.VGap, d.Grid.VGap)
	setFloats(&c.Grid.Margin, d.Grid.Margin)
}

func setString(dst *string, def string) {
	if *dst == "" {
		*dst = def
	}
}

func setFloats(dst *[]float64, def []float64) {
	if *dst == nil {
		*dst = append([]float64(nil), def...)
	}
}

// Dir returns the directory relative paths are resolved against.
func (c *Config) Dir() string {
	base := c.dir
	if c.WorkDir != "" {
		if filepath.IsAbs(c.WorkDir) {
			return filepath.Clean(c.WorkDir)
		}
		base = filepath.Join(base, c.WorkDir)
	}
	if base == "" {
		return "."
	}
	return base
}

// Path resolves p against [Config.Dir]. Absolute paths are returned as-is.
func (c *Config) Path(p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Dir(), p)
}

// executable resolves exe like [Config.Path] unless it is a bare command
// name, which is left for PATH lookup.
func (c *Config) executable(exe string) string {
	if !strings.ContainsAny(exe, `/\`) {
		return exe
	}
	return c.Path(exe)
}

// ParamsGrid returns the search grid.
func (c *Config) ParamsGrid() params.Grid {
	return params.Grid{
		NodeWidth:  c.Grid.NodeWidth,
		NodeHeight: c.Grid.NodeHeight,
		HGap:       c.Grid.HGap,
		VGap:       c.Grid.VGap,
		Margin:     c.Grid.Margin,
	}
}

// Declarations returns the declaration names to patch.
func (c *Config) Declarations() patch.Declarations {
	return patch.Declarations{
		NodeWidth:  c.Source.NodeWidth,
		NodeHeight: c.Source.NodeHeight,
		HGap:       c.Source.HGap,
		VGap:       c.Source.VGap,
		Margin:     c.Source.Margin,
	}
}

// BuildCommand returns the build command, run in [Config.Dir] unless
// build.dir is set.
func (c *Config) BuildCommand() (toolchain.Command, error) {
	if len(c.Build.Command) == 0 {
		return toolchain.Command{}, errors.New(errors.ErrCodeInvalidConfig, "build.command is empty")
	}
	timeout, err := parseTimeout("build.timeout", c.Build.Timeout)
	if err != nil {
		return toolchain.Command{}, err
	}
	dir := c.Dir()
	if c.Build.Dir != "" {
		dir = c.Path(c.Build.Dir)
	}
	return toolchain.Command{
		Name:    c.Build.Command[0],
		Args:    append([]string(nil), c.Build.Command[1:]...),
		Dir:     dir,
		Timeout: timeout,
	}, nil
}

// Renderer returns the engine renderer writing to the artifact path.
func (c *Config) Renderer() (*toolchain.Renderer, error) {
	timeout, err := parseTimeout("render.timeout", c.Render.Timeout)
	if err != nil {
		return nil, err
	}
	dir := c.Dir()
	if c.Render.Dir != "" {
		dir = c.Path(c.Render.Dir)
	}
	return &toolchain.Renderer{
		Cmd: toolchain.Command{
			Name:    c.executable(c.Render.Executable),
			Args:    append([]string(nil), c.Render.Args...),
			Dir:     dir,
			Timeout: timeout,
		},
		Input:  c.Path(c.Render.Input),
		Format: c.Render.Format,
		Output: c.Path(c.Artifact),
	}, nil
}

func parseTimeout(field, s string) (time.Duration, error) {
	if s == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeInvalidConfig, err, "%s: invalid duration %q", field, s)
	}
	return d, nil
}
