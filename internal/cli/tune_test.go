package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"testing"

	"github.com/matzehuels/layouttune/pkg/errors"
	"github.com/matzehuels/layouttune/pkg/observability"
	"github.com/matzehuels/layouttune/pkg/search"
)

// fakeEngineSVG lays out a root node above two children the way a tree
// renderer would, so every constant moves at least one node.
func fakeEngineSVG(w, h, hgap, vgap, margin float64) string {
	var b strings.Builder
	b.WriteString(`<svg xmlns="http://www.w3.org/2000/svg">` + "\n")
	node := func(label string, cx, cy float64) {
		fmt.Fprintf(&b, `<g><rect x="%g" y="%g" width="%g" height="%g"/><text>%s</text></g>`+"\n",
			cx-w/2, cy-h/2, w, h, label)
	}
	left := margin + w/2
	right := left + w + hgap
	node("root", (left+right)/2, margin+h/2)
	node("left", left, margin+h+vgap+h/2)
	node("right", right, margin+h+vgap+h/2)
	b.WriteString("</svg>\n")
	return b.String()
}

var declRe = regexp.MustCompile(`(\w+)\s*=\s*([-0-9.eE]+)\s*;`)

// TestHelperProcess is the fake engine toolchain. It is run as
//
//	<test binary> -test.run=TestHelperProcess -- build <source>
//	<test binary> -test.run=TestHelperProcess -- render <source> <format>
func TestHelperProcess(t *testing.T) {
	if os.Getenv("LAYOUTTUNE_HELPER_PROCESS") != "1" {
		return
	}
	args := os.Args
	for i, a := range args {
		if a == "--" {
			args = args[i+1:]
			break
		}
	}
	if len(args) < 2 {
		os.Exit(3)
	}

	src, err := os.ReadFile(args[1])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(4)
	}
	vals := map[string]float64{}
	for _, m := range declRe.FindAllStringSubmatch(string(src), -1) {
		vals[m[1]], _ = strconv.ParseFloat(m[2], 64)
	}

	switch args[0] {
	case "build":
		if fail := os.Getenv("LAYOUTTUNE_HELPER_FAIL_WIDTH"); fail != "" {
			if w, _ := strconv.ParseFloat(fail, 64); w == vals["node_w"] {
				fmt.Fprintln(os.Stderr, "render_svg.hpp:3: error: static assertion failed")
				os.Exit(2)
			}
		}
		os.Exit(0)
	case "render":
		if len(args) < 3 || args[2] != "svg" {
			os.Exit(5)
		}
		fmt.Print(fakeEngineSVG(vals["node_w"], vals["node_h"], vals["h_gap"], vals["v_gap"], vals["margin"]))
		os.Exit(0)
	}
	os.Exit(3)
}

// toolchainSetup writes an engine source, a reference rendered with the given
// parameters and a config wiring the fake toolchain. It returns the config path.
func toolchainSetup(t *testing.T, w, h, hgap, vgap, margin float64) string {
	t.Helper()
	t.Setenv("LAYOUTTUNE_HELPER_PROCESS", "1")

	dir := t.TempDir()
	writeTemp(t, dir, "render_svg.hpp", engineHeader)
	writeTemp(t, dir, "reference.svg", fakeEngineSVG(w, h, hgap, vgap, margin))

	exe := os.Args[0]
	return writeTemp(t, dir, "layouttune.toml", fmt.Sprintf(`
engine    = "toolchain"
reference = "reference.svg"
artifact  = "out/test.svg"

[source]
path = "render_svg.hpp"

[build]
command = [%q, "-test.run=TestHelperProcess", "--", "build", "render_svg.hpp"]
timeout = "1m"

[render]
executable = %q
args       = ["-test.run=TestHelperProcess", "--", "render"]
input      = "render_svg.hpp"
format     = "svg"
timeout    = "1m"

[grid]
node_width  = [50, 60, 70]
node_height = [30, 36]
h_gap       = [16, 24]
v_gap       = [24, 28]
margin      = [8]
`, exe, exe))
}

func decodeOutcome(t *testing.T, out string) search.Outcome {
	t.Helper()
	var o search.Outcome
	if err := json.Unmarshal([]byte(out), &o); err != nil {
		t.Fatalf("tune output is not JSON: %v\n%s", err, out)
	}
	return o
}

func TestTuneToolchainFindsReferenceParameters(t *testing.T) {
	cfg := toolchainSetup(t, 60, 36, 16, 28, 8)

	out, logs, err := execute(t, "--config", cfg, "tune", "-o", "json", "--apply-best")
	if err != nil {
		t.Fatalf("tune error = %v\n%s", err, logs)
	}
	o := decodeOutcome(t, out)

	if o.Total != 24 || o.Attempted != 24 || o.Failed != 0 {
		t.Errorf("outcome counts = total %d, attempted %d, failed %d", o.Total, o.Attempted, o.Failed)
	}
	if !o.Found() {
		t.Fatal("no best candidate")
	}
	// node_width 60 (2nd), node_height 36 (2nd), h_gap 16 (1st), v_gap 28 (2nd)
	if o.Best.Index != 14 {
		t.Errorf("best index = %d, want 14", o.Best.Index)
	}
	if o.Best.Score != 0 {
		t.Errorf("best score = %v, want 0", o.Best.Score)
	}

	for _, want := range []string{"[1/24] trying", "[24/24] trying", "new best", "applied best parameters"} {
		if !strings.Contains(logs, want) {
			t.Errorf("logs missing %q", want)
		}
	}

	src, _ := os.ReadFile(filepath.Join(filepath.Dir(cfg), "render_svg.hpp"))
	if !strings.Contains(string(src), "node_w = 60.0;") || !strings.Contains(string(src), "v_gap = 28.0;") {
		t.Errorf("best parameters not applied:\n%s", src)
	}
}

func TestTuneToolchainBuildFailuresAreSkipped(t *testing.T) {
	cfg := toolchainSetup(t, 70, 30, 24, 24, 8)
	t.Setenv("LAYOUTTUNE_HELPER_FAIL_WIDTH", "70")

	out, logs, err := execute(t, "--config", cfg, "tune", "-o", "json")
	if err != nil {
		t.Fatalf("tune error = %v", err)
	}
	o := decodeOutcome(t, out)

	if o.Failed != 8 || o.Failures[observability.StageBuild] != 8 {
		t.Errorf("failed = %d, build failures = %d, want 8", o.Failed, o.Failures[observability.StageBuild])
	}
	if !o.Found() || o.Best.Params.NodeWidth == 70 {
		t.Errorf("best = %+v, want a candidate that built", o.Best)
	}
	if !strings.Contains(logs, "candidate failed") || !strings.Contains(logs, "stage=build") {
		t.Error("build failures must be logged with their stage")
	}
}

func TestTuneTextReport(t *testing.T) {
	cfg := toolchainSetup(t, 50, 30, 16, 24, 8)

	out, _, err := execute(t, "--config", cfg, "tune")
	if err != nil {
		t.Fatalf("tune error = %v", err)
	}
	for _, want := range []string{"Best parameters", "(candidate 1/24)", "node_width", "0.0000", "24 candidates"} {
		if !strings.Contains(out, want) {
			t.Errorf("report missing %q:\n%s", want, out)
		}
	}
}

func TestTuneNoSuccessfulCandidate(t *testing.T) {
	cfg := toolchainSetup(t, 50, 30, 16, 24, 8)
	dir := filepath.Dir(cfg)
	// restrict the grid to a width whose build always fails
	t.Setenv("LAYOUTTUNE_HELPER_FAIL_WIDTH", "70")
	data, _ := os.ReadFile(cfg)
	writeTemp(t, dir, "layouttune.toml", strings.Replace(string(data), "node_width  = [50, 60, 70]", "node_width  = [70]", 1))

	out, _, err := execute(t, "--config", cfg, "tune")
	if err != nil {
		t.Fatalf("tune error = %v", err)
	}
	if !strings.Contains(out, "No successful candidate") || !strings.Contains(out, "build 8") {
		t.Errorf("report:\n%s", out)
	}

	out, _, err = execute(t, "--config", cfg, "tune", "-o", "json")
	if err != nil {
		t.Fatalf("tune error = %v", err)
	}
	if o := decodeOutcome(t, out); o.Found() {
		t.Errorf("best = %+v, want none", o.Best)
	}
}

func TestTuneEmptyReference(t *testing.T) {
	cfg := toolchainSetup(t, 50, 30, 16, 24, 8)
	writeTemp(t, filepath.Dir(cfg), "reference.svg", `<svg xmlns="http://www.w3.org/2000/svg"><g><rect x="0" y="0" width="1" height="1"/></g></svg>`)

	_, logs, err := execute(t, "--config", cfg, "tune")
	if !errors.Is(err, errors.ErrCodeEmptyReference) {
		t.Fatalf("tune error = %v, want EMPTY_REFERENCE", err)
	}
	if strings.Contains(logs, "trying") {
		t.Error("no candidate may be tried without a reference")
	}
}

func TestTuneMetricsFile(t *testing.T) {
	cfg := toolchainSetup(t, 60, 30, 16, 24, 8)
	metricsPath := filepath.Join(t.TempDir(), "layouttune.prom")

	if _, _, err := execute(t, "--config", cfg, "tune", "-o", "yaml", "--metrics-file", metricsPath); err != nil {
		t.Fatalf("tune error = %v", err)
	}
	data, err := os.ReadFile(metricsPath)
	if err != nil {
		t.Fatalf("metrics file not written: %v", err)
	}
	for _, want := range []string{"layouttune_grid_candidates 24", "layouttune_best_score_rmse 0", `layouttune_candidates_total{outcome="scored"`} {
		if !strings.Contains(string(data), want) {
			t.Errorf("metrics missing %q", want)
		}
	}
	if _, ok := observability.Search().(observability.NoopSearchHooks); !ok {
		t.Error("search hooks must be reset after the run")
	}
}

const sampleDOT = `digraph G {
  root -> left;
  root -> right;
}
`

func TestReferenceAndTuneGraphviz(t *testing.T) {
	dir := t.TempDir()
	dot := writeTemp(t, dir, "sample.dot", sampleDOT)
	ref := filepath.Join(dir, "reference.svg")

	out, _, err := execute(t, "reference", dot, "--out", ref,
		"--node_width", "60", "--node_height", "30", "--h_gap", "24", "--v_gap", "24", "--margin", "8")
	if err != nil {
		t.Fatalf("reference error = %v", err)
	}
	if !strings.Contains(out, "Rendered 3 nodes") {
		t.Errorf("reference output:\n%s", out)
	}

	cfg := writeTemp(t, dir, "layouttune.hcl", `
engine    = "graphviz"
reference = "reference.svg"
artifact  = "candidate.svg"

graphviz {
  input = "sample.dot"
}

grid {
  node_width  = [50, 60, 70]
  node_height = [30]
  h_gap       = [16, 24]
  v_gap       = [24]
  margin      = [8]
}
`)
	out, logs, err := execute(t, "--config", cfg, "tune", "-o", "json")
	if err != nil {
		t.Fatalf("tune error = %v\n%s", err, logs)
	}
	o := decodeOutcome(t, out)
	if !o.Found() {
		t.Fatal("no best candidate")
	}
	if o.Best.Params.NodeWidth != 60 || o.Best.Params.HGap != 24 {
		t.Errorf("best = %s, want node_width=60 h_gap=24", o.Best.Params)
	}
	if o.Best.Score > 1e-6 {
		t.Errorf("best score = %v, want 0", o.Best.Score)
	}
}

func TestReferencePartialParams(t *testing.T) {
	dot := writeTemp(t, t.TempDir(), "sample.dot", sampleDOT)
	_, _, err := execute(t, "reference", dot, "--out", filepath.Join(t.TempDir(), "r.svg"), "--node_width", "60")
	if !errors.Is(err, errors.ErrCodeInvalidInput) {
		t.Errorf("reference error = %v, want INVALID_INPUT", err)
	}
}

func TestFormatFailures(t *testing.T) {
	got := formatFailures(map[observability.Stage]int{
		observability.StageParse:  1,
		"other":                   2,
		observability.StageBuild:  3,
		observability.StageRender: 4,
	})
	want := "build 3, render 4, parse 1, other 2"
	if got != want {
		t.Errorf("formatFailures() = %q, want %q", got, want)
	}
}
