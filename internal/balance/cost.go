package balance

import (
	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/grfbalance/internal/rigid"
)

// BodyState is a trunk pose and twist in the world frame.
type BodyState struct {
	Position        r3.Vector
	Velocity        r3.Vector
	AngularVelocity r3.Vector
	Rotation        *mat.Dense // world from body
}

// desiredAccel is the PD law on the center of mass position with velocity
// feed-forward on x and y and weight compensation on z.
func desiredAccel(g Gains, phys Physical, cur, des BodyState) r3.Vector {
	a := rigid.Hadamard(g.KpPos, des.Position.Sub(cur.Position)).
		Add(rigid.Hadamard(g.KdPos, des.Velocity.Sub(cur.Velocity)))
	a.X += g.FeedForward[0] * des.Velocity.X
	a.Y += g.FeedForward[1] * des.Velocity.Y
	a.Z += g.FeedForward[2] * phys.Mass * phys.Gravity.Norm()
	return a
}

// orientationError maps the rotation taking the current attitude to the
// desired one, R_d R', to a rotation vector.
func orientationError(cur, des *mat.Dense, small bool) r3.Vector {
	var re mat.Dense
	re.Mul(des, cur.T())
	if small {
		return rigid.SmallAngle(&re)
	}
	return rigid.AxisAngle(&re)
}

func desiredAngularAccel(g Gains, cur, des BodyState, small bool) r3.Vector {
	e := orientationError(cur.Rotation, des.Rotation, small)
	ff := r3.Vector{X: g.FeedForward[3], Y: g.FeedForward[4], Z: g.FeedForward[5]}
	return rigid.Hadamard(g.KpRot, e).
		Add(rigid.Hadamard(g.KdRot, des.AngularVelocity.Sub(cur.AngularVelocity))).
		Add(rigid.Hadamard(ff, des.AngularVelocity))
}

// buildCost writes Q = 2 (A'SA + W) and c = -2 A'Sb. With smoothing s > 0
// and a previous solution, Q gains 2sI and c gains -2s f_prev.
func buildCost(q *mat.Dense, c *mat.VecDense, a *mat.Dense, b *mat.VecDense, w Weights, prev []float64) {
	var sa mat.Dense
	sa.Mul(w.S, a)
	q.Mul(a.T(), &sa)
	q.Add(q, w.W)
	q.Scale(2, q)

	var sb mat.VecDense
	sb.MulVec(w.S, b)
	c.MulVec(a.T(), &sb)
	c.ScaleVec(-2, c)

	if w.Smoothing <= 0 || prev == nil {
		return
	}
	n, _ := q.Dims()
	for i := 0; i < n; i++ {
		q.Set(i, i, q.At(i, i)+2*w.Smoothing)
		c.SetVec(i, c.AtVec(i)-2*w.Smoothing*prev[i])
	}
}
