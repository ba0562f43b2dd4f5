package integrators

import (
	"github.com/pkg/errors"

	"github.com/san-kum/grfbalance/internal/sim"
)

type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn sim.Dynamics, x sim.State, u sim.Control, t float64, dt float64) sim.State {
	dx := dyn.Derivative(x, u, t)
	result := make(sim.State, len(x))
	for i := range x {
		result[i] = x[i] + dt*dx[i]
	}
	return result
}

// ErrUnknown is returned by ByName for an unsupported integrator.
var ErrUnknown = errors.New("integrators: unknown integrator")

// ByName returns a fresh integrator for "rk4" or "euler".
func ByName(name string) (sim.Integrator, error) {
	switch name {
	case "rk4", "":
		return NewRK4(), nil
	case "euler":
		return NewEuler(), nil
	}
	return nil, errors.Wrapf(ErrUnknown, "%q", name)
}
