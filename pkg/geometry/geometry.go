// Package geometry recovers node positions from SVG renderings and measures
// how far two renderings are apart.
//
// A rendering is reduced to a [Map] from node label to center point. Two maps
// are compared with [Score], the root-mean-square of the per-label Euclidean
// distances over the labels both renderings share.
//
// # Usage
//
//	ref, err := geometry.ExtractFile("reference.svg")
//	if err != nil {
//	    return err
//	}
//	cand, err := geometry.ExtractFile("test.svg")
//	if err != nil {
//	    return err
//	}
//	rmse := geometry.Score(ref, cand)
//	if !geometry.Comparable(rmse) {
//	    // no label in common
//	}
package geometry

import (
	"maps"
	"math"
	"slices"
)

// Point is a 2-D position in SVG user units.
type Point struct {
	X float64 `json:"x" yaml:"x"`
	Y float64 `json:"y" yaml:"y"`
}

// Dist2 returns the squared Euclidean distance between p and q.
func (p Point) Dist2(q Point) float64 {
	dx := p.X - q.X
	dy := p.Y - q.Y
	return dx*dx + dy*dy
}

// Map maps a node label to its center. Labels are unique within one artifact;
// when a label occurs twice the later node wins.
type Map map[string]Point

// Labels returns the labels of m in sorted order.
func (m Map) Labels() []string {
	return slices.Sorted(maps.Keys(m))
}

// Shared returns the number of labels of ref that are also present in cand.
func Shared(ref, cand Map) int {
	n := 0
	for label := range ref {
		if _, ok := cand[label]; ok {
			n++
		}
	}
	return n
}

// Incomparable is the score of two maps without a common label. It ranks
// below every finite score.
var Incomparable = math.Inf(1)

// Comparable reports whether score is a finite deviation.
func Comparable(score float64) bool {
	return !math.IsInf(score, 0) && !math.IsNaN(score)
}

// Score returns the root-mean-square distance between ref and cand over the
// labels present in both, or [Incomparable] if there are none.
//
// Labels are joined from ref's side: candidates are always scored against the
// same reference, so nodes that only exist in the candidate are ignored rather
// than penalised. The value itself does not depend on the direction.
func Score(ref, cand Map) float64 {
	var sum float64
	n := 0
	for label, p := range ref {
		q, ok := cand[label]
		if !ok {
			continue
		}
		sum += p.Dist2(q)
		n++
	}
	if n == 0 {
		return Incomparable
	}
	return math.Sqrt(sum / float64(n))
}
