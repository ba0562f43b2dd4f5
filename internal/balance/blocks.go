package balance

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
)

const (
	NumLegs = 4

	// ForceDim is the number of force components per leg.
	ForceDim = 3

	// RowsPerLeg is the number of friction rows per leg: four pyramid faces
	// and the normal force limit.
	RowsPerLeg = 5

	// WrenchDim is the number of rows of the Newton-Euler system.
	WrenchDim = 6

	NumVariables   = NumLegs * ForceDim
	NumConstraints = NumLegs * RowsPerLeg
)

// layout maps leg names to their blocks. Every leg-indexed write in the
// package goes through it.
type layout struct {
	legs  []string
	index map[string]int
}

func newLayout(legs []string) layout {
	l := layout{legs: append([]string(nil), legs...), index: make(map[string]int, len(legs))}
	for i, leg := range legs {
		l.index[leg] = i
	}
	return l
}

// forceCol is the first variable of leg i.
func (l layout) forceCol(i int) int { return i * ForceDim }

// frictionRow is the first constraint row of leg i.
func (l layout) frictionRow(i int) int { return i * RowsPerLeg }

// setForceBlock copies src into dst at the given row offset and leg i's
// force columns.
func (l layout) setForceBlock(dst *mat.Dense, row, i int, src mat.Matrix) {
	r, c := src.Dims()
	dst.Slice(row, row+r, l.forceCol(i), l.forceCol(i)+c).(*mat.Dense).Copy(src)
}

// leg returns leg i's 3-vector from a stacked leg-major vector.
func (l layout) leg(v []float64, i int) r3.Vector {
	j := l.forceCol(i)
	return r3.Vector{X: v[j], Y: v[j+1], Z: v[j+2]}
}

func (l layout) setLeg(v []float64, i int, f r3.Vector) {
	j := l.forceCol(i)
	v[j], v[j+1], v[j+2] = f.X, f.Y, f.Z
}
