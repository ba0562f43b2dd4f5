package balance

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/grfbalance/internal/qp"
)

// flattenInto copies m row-major into dst, which must hold exactly r*c values.
func flattenInto(dst []float64, m mat.Matrix) error {
	r, c := m.Dims()
	if len(dst) != r*c {
		return errors.Wrapf(ErrSize, "flat buffer has %d entries, matrix is %dx%d", len(dst), r, c)
	}
	for i := 0; i < r; i++ {
		for j := 0; j < c; j++ {
			dst[i*c+j] = m.At(i, j)
		}
	}
	return nil
}

func vectorInto(dst []float64, v mat.Vector) error {
	if len(dst) != v.Len() {
		return errors.Wrapf(ErrSize, "flat buffer has %d entries, vector has %d", len(dst), v.Len())
	}
	for i := range dst {
		dst[i] = v.AtVec(i)
	}
	return nil
}

// newProblem allocates the solver buffers and writes the constant friction
// matrix once.
func newProblem(fc *mat.Dense) (*qp.Problem, error) {
	if r, c := fc.Dims(); r != NumConstraints || c != NumVariables {
		return nil, errors.Wrapf(ErrSize, "friction matrix is %dx%d, want %dx%d", r, c, NumConstraints, NumVariables)
	}
	p := qp.NewProblem(NumVariables, NumConstraints)
	if err := flattenInto(p.C, fc); err != nil {
		return nil, errors.Wrap(err, "friction matrix")
	}
	return p, nil
}

// loadCost writes the cycle's cost into the solver buffers.
func loadCost(p *qp.Problem, q *mat.Dense, c *mat.VecDense) error {
	if p.N != NumVariables || p.M != NumConstraints {
		return errors.Wrapf(ErrSize, "problem is %dx%d, want %dx%d", p.N, p.M, NumVariables, NumConstraints)
	}
	if err := flattenInto(p.Q, q); err != nil {
		return errors.Wrap(err, "cost matrix")
	}
	return errors.Wrap(vectorInto(p.Cost, c), "cost vector")
}
