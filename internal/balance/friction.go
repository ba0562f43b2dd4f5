package balance

import "gonum.org/v1/gonum/mat"

// frictionCone stacks the per-leg linearized friction pyramid into a
// 20x12 block-diagonal matrix. Row order per leg is
//
//	fx - mu fz,  fy - mu fz,  fy + mu fz,  fx + mu fz,  fz
//
// matching the bounds produced by bounds.
func frictionCone(lay layout, mu float64) *mat.Dense {
	block := mat.NewDense(RowsPerLeg, ForceDim, []float64{
		1, 0, -mu,
		0, 1, -mu,
		0, 1, mu,
		1, 0, mu,
		0, 0, 1,
	})
	c := mat.NewDense(NumConstraints, NumVariables, nil)
	for i := range lay.legs {
		lay.setForceBlock(c, lay.frictionRow(i), i, block)
	}
	return c
}
