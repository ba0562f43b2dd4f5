package balance

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/grfbalance/internal/rigid"
)

// buildDynamics writes the single-rigid-body system A f = b for world-frame
// foot forces f. Foot positions are body-frame offsets from the center of
// mass; R is the world-from-body rotation.
//
//	A = [ I      I      I      I     ]
//	    [ [p1]x  [p2]x  [p3]x  [p4]x ]
//	b = [ m (a_des - g) ; I_w wdot_des ]
func buildDynamics(a *mat.Dense, b *mat.VecDense, lay layout, phys Physical, feet []r3.Vector, R mat.Matrix, acc, angAcc r3.Vector) {
	eye := rigid.Identity()
	for i := range lay.legs {
		p := rigid.Apply(R, feet[i])
		lay.setForceBlock(a, 0, i, eye)
		lay.setForceBlock(a, 3, i, rigid.Skew(p))
	}

	var ri, iw mat.Dense
	ri.Mul(R, phys.Inertia)
	iw.Mul(&ri, R.T())

	force := acc.Sub(phys.Gravity).Mul(phys.Mass)
	torque := rigid.Apply(&iw, angAcc)
	b.SetVec(0, force.X)
	b.SetVec(1, force.Y)
	b.SetVec(2, force.Z)
	b.SetVec(3, torque.X)
	b.SetVec(4, torque.Y)
	b.SetVec(5, torque.Z)
}
