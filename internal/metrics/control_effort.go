package metrics

import (
	"math"

	"github.com/san-kum/grfbalance/internal/sim"
)

// ControlEffort is the mean over steps of the summed per-leg force
// magnitude in a stacked 3-per-leg command.
type ControlEffort struct {
	name    string
	sum     float64
	samples int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{
		name: "control_effort",
	}
}

func (c *ControlEffort) Name() string {
	return c.name
}

func (c *ControlEffort) Observe(x sim.State, u sim.Control, t float64) {
	for i := 0; i+2 < len(u); i += 3 {
		c.sum += math.Sqrt(u[i]*u[i] + u[i+1]*u[i+1] + u[i+2]*u[i+2])
	}
	c.samples++
}

func (c *ControlEffort) Value() float64 {
	if c.samples == 0 {
		return 0
	}
	return c.sum / float64(c.samples)
}

func (c *ControlEffort) Reset() {
	c.sum = 0
	c.samples = 0
}

// ZeroCommand is the fraction of steps on which the controller returned the
// all-zero fail-safe command.
type ZeroCommand struct {
	zeros   int
	samples int
}

func NewZeroCommand() *ZeroCommand { return &ZeroCommand{} }

func (z *ZeroCommand) Name() string { return "zero_command" }

func (z *ZeroCommand) Observe(x sim.State, u sim.Control, t float64) {
	if u.IsZero() {
		z.zeros++
	}
	z.samples++
}

func (z *ZeroCommand) Value() float64 {
	if z.samples == 0 {
		return 0
	}
	return float64(z.zeros) / float64(z.samples)
}

func (z *ZeroCommand) Reset() {
	z.zeros = 0
	z.samples = 0
}
