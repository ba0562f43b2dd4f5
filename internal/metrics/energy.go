package metrics

import (
	"math"

	"github.com/san-kum/grfbalance/internal/sim"
)

// EnergyDrift tracks the largest relative departure of the plant's total
// energy from its first observed value. Plants that do not report energy
// leave it at zero.
type EnergyDrift struct {
	name          string
	initialEnergy float64
	maxDrift      float64
	samples       int
	dyn           sim.Dynamics
}

func NewEnergyDrift(dyn sim.Dynamics) *EnergyDrift {
	return &EnergyDrift{
		name: "energy_drift",
		dyn:  dyn,
	}
}

func (e *EnergyDrift) Name() string { return e.name }

func (e *EnergyDrift) Observe(x sim.State, u sim.Control, t float64) {
	ec, ok := e.dyn.(sim.EnergyComputer)
	if !ok {
		return
	}

	energy := ec.Energy(x)
	if e.samples == 0 {
		e.initialEnergy = energy
	}
	e.samples++

	if e.initialEnergy != 0 {
		drift := math.Abs(energy-e.initialEnergy) / math.Abs(e.initialEnergy)
		e.maxDrift = math.Max(e.maxDrift, drift)
	}
}

func (e *EnergyDrift) Value() float64 {
	return e.maxDrift
}

func (e *EnergyDrift) Reset() {
	e.initialEnergy = 0
	e.maxDrift = 0
	e.samples = 0
}

// Standard returns the metrics every closed-loop run records.
func Standard(dyn sim.Dynamics, height float64) []sim.Metric {
	return []sim.Metric{
		NewControlEffort(),
		NewZeroCommand(),
		NewStability(height, 0.02, 0.05),
		NewEnergyDrift(dyn),
	}
}
