package control

import (
	"github.com/san-kum/grfbalance/internal/balance"
	"github.com/san-kum/grfbalance/internal/gait"
	"github.com/san-kum/grfbalance/internal/models"
	"github.com/san-kum/grfbalance/internal/sim"
)

// Balance drives the plant with the QP force controller, reading foot
// geometry from the plant and contact states from a schedule.
type Balance struct {
	ctrl     *balance.Controller
	plant    *models.Body
	contacts func(t float64) gait.Map
	Target   balance.BodyState
}

// NewBalance wires ctrl to plant. A nil schedule keeps every leg in stance.
func NewBalance(ctrl *balance.Controller, plant *models.Body, target balance.BodyState, schedule *gait.Schedule) *Balance {
	b := &Balance{ctrl: ctrl, plant: plant, Target: target}
	if schedule != nil {
		b.contacts = schedule.At
	}
	return b
}

func (b *Balance) Compute(x sim.State, t float64) sim.Control {
	cur := b.plant.Unpack(x)
	return b.ctrl.Control(b.plant.FeetInBody(x), cur, b.Target, b.Contacts(t))
}

func (b *Balance) Controller() *balance.Controller { return b.ctrl }

// Contacts returns the contact map the controller uses at time t.
func (b *Balance) Contacts(t float64) gait.Map {
	if b.contacts == nil {
		return gait.AllStance(b.plant.Legs)
	}
	return b.contacts(t)
}
