// Package params defines the tunable layout parameters and the discrete grid
// they are drawn from.
package params

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/matzehuels/layouttune/pkg/errors"
)

// Parameter names in grid order, outermost first.
const (
	NodeWidth  = "node_width"
	NodeHeight = "node_height"
	HGap       = "h_gap"
	VGap       = "v_gap"
	Margin     = "margin"
)

// Names lists the parameter names in grid order.
var Names = []string{NodeWidth, NodeHeight, HGap, VGap, Margin}

// Set is one candidate combination of the five layout parameters.
// It fully determines one engine build.
type Set struct {
	NodeWidth  float64 `json:"node_width" yaml:"node_width"`
	NodeHeight float64 `json:"node_height" yaml:"node_height"`
	HGap       float64 `json:"h_gap" yaml:"h_gap"`
	VGap       float64 `json:"v_gap" yaml:"v_gap"`
	Margin     float64 `json:"margin" yaml:"margin"`
}

// Values returns the parameter values in [Names] order.
func (s Set) Values() []float64 {
	return []float64{s.NodeWidth, s.NodeHeight, s.HGap, s.VGap, s.Margin}
}

// Get returns the value of the named parameter.
func (s Set) Get(name string) (float64, bool) {
	for i, n := range Names {
		if n == name {
			return s.Values()[i], true
		}
	}
	return 0, false
}

// Fields returns the set as alternating key/value pairs for structured logging.
func (s Set) Fields() []any {
	fields := make([]any, 0, 2*len(Names))
	for i, v := range s.Values() {
		fields = append(fields, Names[i], v)
	}
	return fields
}

// String formats the set as "node_width=70 node_height=36 ...".
func (s Set) String() string {
	parts := make([]string, len(Names))
	for i, v := range s.Values() {
		parts[i] = Names[i] + "=" + strconv.FormatFloat(v, 'g', -1, 64)
	}
	return strings.Join(parts, " ")
}

// Grid holds the finite domain of every parameter. Candidates are the
// cartesian product of the five domains.
type Grid struct {
	NodeWidth  []float64 `json:"node_width" yaml:"node_width"`
	NodeHeight []float64 `json:"node_height" yaml:"node_height"`
	HGap       []float64 `json:"h_gap" yaml:"h_gap"`
	VGap       []float64 `json:"v_gap" yaml:"v_gap"`
	Margin     []float64 `json:"margin" yaml:"margin"`
}

// DefaultGrid returns the reference grid: 3x2x2x2x1 = 24 candidates.
func DefaultGrid() Grid {
	return Grid{
		NodeWidth:  []float64{50, 60, 70},
		NodeHeight: []float64{30, 36},
		HGap:       []float64{16, 24},
		VGap:       []float64{24, 28},
		Margin:     []float64{8},
	}
}

func (g Grid) domains() [][]float64 {
	return [][]float64{g.NodeWidth, g.NodeHeight, g.HGap, g.VGap, g.Margin}
}

// Validate rejects grids with an empty domain, which would enumerate nothing,
// and non-finite values, which have no source literal. Negative gaps are
// written as given.
func (g Grid) Validate() error {
	for i, d := range g.domains() {
		if len(d) == 0 {
			return errors.New(errors.ErrCodeInvalidConfig, "grid domain %q is empty", Names[i])
		}
		for _, v := range d {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.New(errors.ErrCodeInvalidConfig, "grid domain %q holds non-finite value %v", Names[i], v)
			}
		}
	}
	return nil
}

// Count returns the number of candidates, the product of the domain sizes.
func (g Grid) Count() int {
	n := 1
	for _, d := range g.domains() {
		n *= len(d)
	}
	return n
}

// Each calls fn for every candidate in grid order (node width outermost,
// margin innermost) with its zero-based index. Iteration stops early when fn
// returns false.
func (g Grid) Each(fn func(i int, s Set) bool) {
	i := 0
	for _, nw := range g.NodeWidth {
		for _, nh := range g.NodeHeight {
			for _, hg := range g.HGap {
				for _, vg := range g.VGap {
					for _, mg := range g.Margin {
						if !fn(i, Set{NodeWidth: nw, NodeHeight: nh, HGap: hg, VGap: vg, Margin: mg}) {
							return
						}
						i++
					}
				}
			}
		}
	}
}

// Enumerate returns all candidates in grid order.
func (g Grid) Enumerate() []Set {
	sets := make([]Set, 0, g.Count())
	g.Each(func(_ int, s Set) bool {
		sets = append(sets, s)
		return true
	})
	return sets
}

// Describe returns "3x2x2x2x1" style domain sizes.
func (g Grid) Describe() string {
	sizes := make([]string, 0, len(Names))
	for _, d := range g.domains() {
		sizes = append(sizes, strconv.Itoa(len(d)))
	}
	return fmt.Sprintf("%s = %d", strings.Join(sizes, "x"), g.Count())
}
