package geometry

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreSelfIsZero(t *testing.T) {
	m := Map{"A": {0, 0}, "B": {10, 0}, "C": {3.5, -7.25}}
	assert.Equal(t, 0.0, Score(m, m))
}

func TestScoreDisjointIsIncomparable(t *testing.T) {
	ref := Map{"A": {0, 0}}
	cand := Map{"B": {0, 0}}

	score := Score(ref, cand)
	assert.True(t, math.IsInf(score, 1))
	assert.False(t, Comparable(score))
}

func TestScoreEmptyReference(t *testing.T) {
	assert.Equal(t, Incomparable, Score(Map{}, Map{"A": {1, 1}}))
	assert.Equal(t, Incomparable, Score(nil, nil))
}

func TestScore(t *testing.T) {
	tests := []struct {
		name string
		ref  Map
		cand Map
		want float64
	}{
		{
			name: "identical two nodes",
			ref:  Map{"A": {0, 0}, "B": {10, 0}},
			cand: Map{"A": {0, 0}, "B": {10, 0}},
			want: 0,
		},
		{
			name: "3-4-5 triangle",
			ref:  Map{"A": {0, 0}},
			cand: Map{"A": {3, 4}},
			want: 5,
		},
		{
			name: "quadratic mean over shared labels",
			ref:  Map{"A": {0, 0}, "B": {0, 0}},
			cand: Map{"A": {3, 4}, "B": {0, 0}},
			want: math.Sqrt(25.0 / 2),
		},
		{
			name: "labels only in candidate are ignored",
			ref:  Map{"A": {0, 0}},
			cand: Map{"A": {0, 1}, "Z": {100, 100}},
			want: 1,
		},
		{
			name: "labels only in reference are ignored",
			ref:  Map{"A": {0, 0}, "Q": {50, 50}},
			cand: Map{"A": {0, 2}},
			want: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Score(tt.ref, tt.cand), 1e-12)
		})
	}
}

func TestScoreSymmetricValue(t *testing.T) {
	a := Map{"A": {1, 2}, "B": {3, 4}, "C": {0, 0}}
	b := Map{"A": {2, 2}, "B": {3, 1}, "D": {9, 9}}
	assert.InDelta(t, Score(a, b), Score(b, a), 1e-12)
}

func TestComparable(t *testing.T) {
	assert.True(t, Comparable(0))
	assert.True(t, Comparable(12.5))
	assert.False(t, Comparable(Incomparable))
	assert.False(t, Comparable(math.NaN()))
}

func TestLabelsAndShared(t *testing.T) {
	m := Map{"b": {}, "a": {}, "c": {}}
	assert.Equal(t, []string{"a", "b", "c"}, m.Labels())
	assert.Equal(t, 2, Shared(m, Map{"a": {}, "c": {}, "z": {}}))
	assert.Equal(t, 0, Shared(m, nil))
}
