package qp

import (
	"math"

	"github.com/pkg/errors"
)

// Problem is a QP in flat row-major form. Q is N x N and symmetric, C is
// M x N, Cost has length N, Lower and Upper have length M.
type Problem struct {
	N, M  int
	Q     []float64
	Cost  []float64
	C     []float64
	Lower []float64
	Upper []float64
}

// NewProblem allocates zeroed buffers for an n-variable, m-row problem.
func NewProblem(n, m int) *Problem {
	return &Problem{
		N:     n,
		M:     m,
		Q:     make([]float64, n*n),
		Cost:  make([]float64, n),
		C:     make([]float64, m*n),
		Lower: make([]float64, m),
		Upper: make([]float64, m),
	}
}

// Validate checks buffer sizes and that every entry is finite.
func (p *Problem) Validate() error {
	if p == nil {
		return errors.Wrap(ErrBadProblem, "nil problem")
	}
	if p.N <= 0 || p.M < 0 {
		return errors.Wrapf(ErrBadProblem, "dimensions %dx%d", p.N, p.M)
	}
	sizes := []struct {
		name      string
		got, want int
	}{
		{"Q", len(p.Q), p.N * p.N},
		{"cost", len(p.Cost), p.N},
		{"C", len(p.C), p.M * p.N},
		{"lower", len(p.Lower), p.M},
		{"upper", len(p.Upper), p.M},
	}
	for _, s := range sizes {
		if s.got != s.want {
			return errors.Wrapf(ErrBadProblem, "%s has %d entries, want %d", s.name, s.got, s.want)
		}
	}
	for _, buf := range [][]float64{p.Q, p.Cost, p.C} {
		if !finite(buf) {
			return errors.Wrap(ErrBadProblem, "non-finite entry")
		}
	}
	for i := 0; i < p.M; i++ {
		if math.IsNaN(p.Lower[i]) || math.IsNaN(p.Upper[i]) {
			return errors.Wrapf(ErrBadProblem, "NaN bound on row %d", i)
		}
	}
	return nil
}

func finite(buf []float64) bool {
	for _, v := range buf {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
