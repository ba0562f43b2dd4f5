package sim

import "math"

type State []float64

func (s State) Clone() State {
	c := make(State, len(s))
	copy(c, s)
	return c
}

func (s State) IsValid() bool {
	for _, v := range s {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (s State) Norm() float64 {
	sum := 0.0
	for _, v := range s {
		sum += v * v
	}
	return math.Sqrt(sum)
}

type Control []float64

// IsZero reports whether every entry is exactly zero, the balance
// controller's "no command" signal.
func (u Control) IsZero() bool {
	for _, v := range u {
		if v != 0 {
			return false
		}
	}
	return true
}

type Dynamics interface {
	Derivative(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

type Integrator interface {
	Step(dyn Dynamics, x State, u Control, t float64, dt float64) State
}

type Controller interface {
	Compute(x State, t float64) Control
}

type Metric interface {
	Name() string
	Observe(x State, u Control, t float64)
	Value() float64
	Reset()
}

type Observer interface {
	OnStep(x State, u Control, t float64)
}

// EnergyComputer is implemented by plants that can report total energy.
type EnergyComputer interface {
	Energy(x State) float64
}

type Config struct {
	Dt            float64 `json:"dt"`
	Duration      float64 `json:"duration"`
	Seed          int64   `json:"seed"`
	ValidateState bool    `json:"validate_state"`
}

type Result struct {
	States      []State
	Controls    []Control
	Times       []float64
	Metrics     map[string]float64
	StepsTaken  int
	EnergyDrift float64
}
