package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/params"
	"github.com/matzehuels/layouttune/pkg/patch"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, EngineToolchain, cfg.Engine)
	assert.Equal(t, params.DefaultGrid(), cfg.ParamsGrid())
	assert.Equal(t, patch.DefaultDeclarations(), cfg.Declarations())
	assert.Equal(t, 24, cfg.ParamsGrid().Count())

	cmd, err := cfg.BuildCommand()
	require.NoError(t, err)
	assert.Equal(t, "cmake", cmd.Name)
	assert.Equal(t, []string{"--build", "build", "--config", "Release", "-j", "4"}, cmd.Args)
	assert.Equal(t, 10*time.Minute, cmd.Timeout)
}

func TestLoadTOMLKeepsDefaults(t *testing.T) {
	path := writeFile(t, "tune.toml", `
reference = "refs/ref.svg"

[grid]
node_width = [55, 65]
margin = [4.5]
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, filepath.Join(dir, "refs", "ref.svg"), cfg.Path(cfg.Reference))
	assert.Equal(t, []float64{55, 65}, cfg.Grid.NodeWidth)
	assert.Equal(t, []float64{4.5}, cfg.Grid.Margin)
	assert.Equal(t, []float64{30, 36}, cfg.Grid.NodeHeight)
	assert.Equal(t, "svg", cfg.Render.Format)
	assert.Equal(t, "node_w", cfg.Source.NodeWidth)

	r, err := cfg.Renderer()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "test.svg"), r.Output)
	assert.Equal(t, filepath.Join(dir, "tests", "regression_tests", "expressions", "deep_all_ops.expr"), r.Input)
	assert.Equal(t, dir, r.Cmd.Dir)
	assert.Equal(t, time.Minute, r.Cmd.Timeout)
}

func TestLoadTOMLUnknownKey(t *testing.T) {
	path := writeFile(t, "tune.toml", "refrence = \"x.svg\"\n")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
	assert.Contains(t, err.Error(), "refrence")
}

func TestLoadHCL(t *testing.T) {
	t.Setenv("LAYOUTTUNE_TEST_REF", "/data/reference.svg")
	path := writeFile(t, "tune.hcl", `
engine    = "graphviz"
reference = env.LAYOUTTUNE_TEST_REF
work_dir  = "engine"

graphviz {
  input = "sample.dot"
}

build {
  command = ["make", "-j8"]
  timeout = "90s"
}

grid {
  v_gap = [20, 30, 40]
}
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	dir := filepath.Dir(path)
	assert.Equal(t, EngineGraphviz, cfg.Engine)
	assert.Equal(t, "/data/reference.svg", cfg.Path(cfg.Reference))
	assert.Equal(t, filepath.Join(dir, "engine", "sample.dot"), cfg.Path(cfg.Graphviz.Input))
	assert.Equal(t, []float64{20, 30, 40}, cfg.Grid.VGap)
	assert.Equal(t, []float64{50, 60, 70}, cfg.Grid.NodeWidth)

	cmd, err := cfg.BuildCommand()
	require.NoError(t, err)
	assert.Equal(t, "make", cmd.Name)
	assert.Equal(t, []string{"-j8"}, cmd.Args)
	assert.Equal(t, 90*time.Second, cmd.Timeout)
	assert.Equal(t, filepath.Join(dir, "engine"), cmd.Dir)
}

func TestLoadHCLSyntaxError(t *testing.T) {
	path := writeFile(t, "tune.hcl", "engine = \n")
	_, err := Load(path)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name    string
		file    string
		content string
		code    errors.Code
		msg     string
	}{
		{"unsupported extension", "tune.json", "{}", errors.ErrCodeInvalidConfig, "unsupported config format"},
		{"bad engine", "tune.toml", `engine = "dot"`, errors.ErrCodeInvalidConfig, "engine must be one of"},
		{"empty domain", "tune.toml", "[grid]\nh_gap = []\n", errors.ErrCodeInvalidConfig, "grid.h_gap must not be empty"},
		{"non-finite grid value", "tune.toml", "[grid]\nnode_width = [50.0, nan, inf]\n", errors.ErrCodeInvalidConfig, "grid.node_width[1] must be a finite number"},
		{"bad timeout", "tune.toml", "[build]\ntimeout = \"soon\"\n", errors.ErrCodeInvalidConfig, "build.timeout"},
		{"bad declaration", "tune.toml", "[source]\nmargin = \"page margin\"\n", errors.ErrCodeInvalidConfig, "source.margin"},
		{"duplicate declaration", "tune.toml", "[source]\nh_gap = \"gap\"\nv_gap = \"gap\"\n", errors.ErrCodeInvalidConfig, "used twice"},
		{"bad format", "tune.toml", "[render]\nformat = \"svg png\"\n", errors.ErrCodeInvalidConfig, "render.format"},
		{"graphviz without input", "tune.toml", `engine = "graphviz"`, errors.ErrCodeInvalidConfig, "graphviz.input is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeFile(t, tt.file, tt.content))
			require.Error(t, err)
			assert.Equal(t, tt.code, errors.GetCode(err))
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.True(t, errors.Is(err, errors.ErrCodeFileNotFound))
}

func TestWriteFileLoadsBack(t *testing.T) {
	path := filepath.Join(t.TempDir(), "layouttune.toml")
	require.NoError(t, Default().WriteFile(path, false))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, Default().Grid, cfg.Grid)
	assert.Equal(t, Default().Build, cfg.Build)
	assert.Equal(t, Default().Source, cfg.Source)

	err = Default().WriteFile(path, false)
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidInput))
	assert.NoError(t, Default().WriteFile(path, true))
}

func TestWrite(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Default().Write(&buf))
	out := buf.String()
	assert.Contains(t, out, `engine = "toolchain"`)
	assert.Contains(t, out, "[grid]")
	assert.Contains(t, out, `node_w`)
}

func TestPathResolution(t *testing.T) {
	cfg := Default()
	cfg.dir = filepath.FromSlash("/srv/tune")

	assert.Equal(t, filepath.FromSlash("/srv/tune/reference.svg"), cfg.Path("reference.svg"))
	assert.Equal(t, filepath.FromSlash("/abs/ref.svg"), cfg.Path(filepath.FromSlash("/abs/ref.svg")))
	assert.Equal(t, "", cfg.Path(""))

	cfg.WorkDir = "engine"
	assert.Equal(t, filepath.FromSlash("/srv/tune/engine/reference.svg"), cfg.Path("reference.svg"))

	assert.Equal(t, "dot", cfg.executable("dot"))
	assert.Equal(t, filepath.FromSlash("/srv/tune/engine/build/x"), cfg.executable("build/x"))
}

func TestBuildCommandEmpty(t *testing.T) {
	cfg := Default()
	cfg.Build.Command = nil
	_, err := cfg.BuildCommand()
	assert.True(t, errors.Is(err, errors.ErrCodeInvalidConfig))
}
