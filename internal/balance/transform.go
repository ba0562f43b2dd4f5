package balance

import (
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/grfbalance/internal/rigid"
)

// ToBody converts stacked world-frame foot forces into the leg command
// convention: f_body = -(R' f_world) per leg.
func ToBody(dst, world []float64, R mat.Matrix) {
	var lay layout
	for i := 0; i < len(world)/ForceDim; i++ {
		lay.setLeg(dst, i, rigid.ApplyT(R, lay.leg(world, i)).Mul(-1))
	}
}

// ToWorld inverts ToBody.
func ToWorld(dst, body []float64, R mat.Matrix) {
	var lay layout
	for i := 0; i < len(body)/ForceDim; i++ {
		lay.setLeg(dst, i, rigid.Apply(R, lay.leg(body, i)).Mul(-1))
	}
}
