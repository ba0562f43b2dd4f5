package control

import (
	"github.com/san-kum/grfbalance/internal/balance"
	"github.com/san-kum/grfbalance/internal/gait"
	"github.com/san-kum/grfbalance/internal/models"
	"github.com/san-kum/grfbalance/internal/sim"
)

// Even holds the trunk height with a PID and shares the vertical force
// equally among stance legs. It ignores attitude entirely.
type Even struct {
	plant    *models.Body
	height   *PID
	contacts func(t float64) gait.Map
}

func NewEven(plant *models.Body, height *PID, schedule *gait.Schedule) *Even {
	e := &Even{plant: plant, height: height}
	if schedule != nil {
		e.contacts = schedule.At
	}
	return e
}

func (e *Even) Compute(x sim.State, t float64) sim.Control {
	u := make(sim.Control, e.plant.ControlDim())
	contacts := gait.AllStance(e.plant.Legs)
	if e.contacts != nil {
		contacts = e.contacts(t)
	}
	n := contacts.StanceCount(e.plant.Legs)
	if n == 0 {
		return u
	}

	s := e.plant.Unpack(x)
	total := e.plant.Mass*e.plant.Gravity.Norm() + e.plant.Mass*e.height.Update(s.Position.Z, t)
	if total < 0 {
		total = 0
	}

	world := make([]float64, len(u))
	for i, leg := range e.plant.Legs {
		if contacts[leg].State == gait.Stance {
			world[3*i+2] = total / float64(n)
		}
	}
	balance.ToBody(u, world, s.Rotation)
	return u
}
