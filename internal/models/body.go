package models

import (
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"

	"github.com/san-kum/grfbalance/internal/balance"
	"github.com/san-kum/grfbalance/internal/gait"
	"github.com/san-kum/grfbalance/internal/rigid"
	"github.com/san-kum/grfbalance/internal/sim"
)

// State layout of Body: position, linear velocity, attitude quaternion
// (w, x, y, z) and world-frame angular velocity.
const (
	IdxPos   = 0
	IdxVel   = 3
	IdxQuat  = 6
	IdxOmega = 10
	BodyDim  = 13
)

// Body is a single rigid trunk held up by point feet pinned to the ground.
// Its control input is the balance controller's body-frame command, which
// it converts back to world-frame reaction forces applied at the feet.
type Body struct {
	Mass    float64
	Inertia *mat.Dense
	Gravity r3.Vector

	Legs []string
	Feet []r3.Vector // world frame contact points

	// Contacts decides which feet touch the ground; nil means all stance.
	Contacts func(t float64) gait.Map

	LinearDamping  float64
	AngularDamping float64

	invInertia *mat.Dense
}

func NewBody(phys balance.Physical, legs []string, feet []r3.Vector) (*Body, error) {
	if len(legs) != len(feet) {
		return nil, errors.Errorf("models: %d legs but %d feet", len(legs), len(feet))
	}
	if phys.Mass <= 0 || phys.Inertia == nil {
		return nil, errors.New("models: body needs positive mass and an inertia")
	}
	var inv mat.Dense
	if err := inv.Inverse(phys.Inertia); err != nil {
		return nil, errors.Wrap(err, "models: inertia not invertible")
	}
	return &Body{
		Mass:       phys.Mass,
		Inertia:    mat.DenseCopyOf(phys.Inertia),
		Gravity:    phys.Gravity,
		Legs:       append([]string(nil), legs...),
		Feet:       append([]r3.Vector(nil), feet...),
		invInertia: &inv,
	}, nil
}

func (b *Body) StateDim() int   { return BodyDim }
func (b *Body) ControlDim() int { return balance.ForceDim * len(b.Legs) }

func (b *Body) Derivative(x sim.State, u sim.Control, t float64) sim.State {
	s := b.Unpack(x)
	R := s.Rotation

	force := b.Gravity.Mul(b.Mass).Sub(s.Velocity.Mul(b.LinearDamping))
	torque := s.AngularVelocity.Mul(-b.AngularDamping)

	var contacts gait.Map
	if b.Contacts != nil {
		contacts = b.Contacts(t)
	}
	if len(u) == b.ControlDim() {
		world := make([]float64, len(u))
		balance.ToWorld(world, u, R)
		for i, leg := range b.Legs {
			if contacts != nil && contacts[leg].State != gait.Stance {
				continue
			}
			f := r3.Vector{X: world[3*i], Y: world[3*i+1], Z: world[3*i+2]}
			force = force.Add(f)
			torque = torque.Add(b.Feet[i].Sub(s.Position).Cross(f))
		}
	}

	// Euler's equation in the world frame: I_w wdot = tau - w x I_w w.
	w := s.AngularVelocity
	iwW := rigid.Apply(R, rigid.Apply(b.Inertia, rigid.ApplyT(R, w)))
	alpha := rigid.Apply(R, rigid.Apply(b.invInertia, rigid.ApplyT(R, torque.Sub(w.Cross(iwW)))))

	q := quat.Number{Real: x[IdxQuat], Imag: x[IdxQuat+1], Jmag: x[IdxQuat+2], Kmag: x[IdxQuat+3]}
	qdot := quat.Scale(0.5, quat.Mul(quat.Number{Imag: w.X, Jmag: w.Y, Kmag: w.Z}, q))
	acc := force.Mul(1 / b.Mass)

	dx := make(sim.State, BodyDim)
	dx[IdxPos], dx[IdxPos+1], dx[IdxPos+2] = s.Velocity.X, s.Velocity.Y, s.Velocity.Z
	dx[IdxVel], dx[IdxVel+1], dx[IdxVel+2] = acc.X, acc.Y, acc.Z
	dx[IdxQuat], dx[IdxQuat+1], dx[IdxQuat+2], dx[IdxQuat+3] = qdot.Real, qdot.Imag, qdot.Jmag, qdot.Kmag
	dx[IdxOmega], dx[IdxOmega+1], dx[IdxOmega+2] = alpha.X, alpha.Y, alpha.Z
	return dx
}

func (b *Body) Unpack(x sim.State) balance.BodyState { return Unpack(x) }

// Unpack reads a state vector into the controller's pose representation.
func Unpack(x sim.State) balance.BodyState {
	q := quat.Number{Real: x[IdxQuat], Imag: x[IdxQuat+1], Jmag: x[IdxQuat+2], Kmag: x[IdxQuat+3]}
	return balance.BodyState{
		Position:        vec(x, IdxPos),
		Velocity:        vec(x, IdxVel),
		AngularVelocity: vec(x, IdxOmega),
		Rotation:        rigid.FromQuat(q),
	}
}

// Pack is the inverse of Unpack.
func Pack(s balance.BodyState) sim.State {
	R := s.Rotation
	if R == nil {
		R = rigid.Identity()
	}
	q := rigid.ToQuat(R)
	return sim.State{
		s.Position.X, s.Position.Y, s.Position.Z,
		s.Velocity.X, s.Velocity.Y, s.Velocity.Z,
		q.Real, q.Imag, q.Jmag, q.Kmag,
		s.AngularVelocity.X, s.AngularVelocity.Y, s.AngularVelocity.Z,
	}
}

// FeetInBody returns the foot positions relative to the center of mass in
// the body frame, the controller's view of the stance geometry.
func (b *Body) FeetInBody(x sim.State) []r3.Vector {
	s := b.Unpack(x)
	out := make([]r3.Vector, len(b.Feet))
	for i, f := range b.Feet {
		out[i] = rigid.ApplyT(s.Rotation, f.Sub(s.Position))
	}
	return out
}

// Energy is kinetic plus gravitational potential energy.
func (b *Body) Energy(x sim.State) float64 {
	s := b.Unpack(x)
	w := s.AngularVelocity
	iwW := rigid.Apply(s.Rotation, rigid.Apply(b.Inertia, rigid.ApplyT(s.Rotation, w)))
	return 0.5*b.Mass*s.Velocity.Norm2() + 0.5*w.Dot(iwW) - b.Mass*b.Gravity.Dot(s.Position)
}

// Height is the trunk's z coordinate.
func Height(x sim.State) float64 { return x[IdxPos+2] }

// Tilt is the angle between the body z axis and the world z axis.
func Tilt(x sim.State) float64 {
	q := quat.Number{Real: x[IdxQuat], Imag: x[IdxQuat+1], Jmag: x[IdxQuat+2], Kmag: x[IdxQuat+3]}
	R := rigid.FromQuat(q)
	return r3.Vector{Z: 1}.Angle(rigid.Apply(R, r3.Vector{Z: 1})).Radians()
}

// StanceFeet places feet at (+-halfLength, +-halfWidth, 0) in FL, FR, RL,
// RR order.
func StanceFeet(halfLength, halfWidth float64) []r3.Vector {
	return []r3.Vector{
		{X: halfLength, Y: halfWidth},
		{X: halfLength, Y: -halfWidth},
		{X: -halfLength, Y: halfWidth},
		{X: -halfLength, Y: -halfWidth},
	}
}

func vec(x sim.State, i int) r3.Vector {
	return r3.Vector{X: x[i], Y: x[i+1], Z: x[i+2]}
}
