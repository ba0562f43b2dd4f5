package experiment

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/san-kum/grfbalance/internal/balance"
	"github.com/san-kum/grfbalance/internal/control"
	"github.com/san-kum/grfbalance/internal/sim"
)

// ErrUnknownController is returned for a controller name with no builder.
var ErrUnknownController = errors.New("experiment: unknown controller")

// controllerBuilder wires a controller to a partially built experiment.
// Builders that use the QP controller set e.Balance.
type controllerBuilder func(e *Experiment) (sim.Controller, error)

type Registry struct {
	controllers map[string]controllerBuilder
}

func NewRegistry() *Registry {
	r := &Registry{controllers: make(map[string]controllerBuilder)}

	r.controllers["balance"] = func(e *Experiment) (sim.Controller, error) {
		ctrl, err := balance.New(e.cfg.BalanceConfig(), e.log)
		if err != nil {
			return nil, err
		}
		sched, err := e.cfg.Schedule()
		if err != nil {
			return nil, err
		}
		e.Balance = ctrl
		return control.NewBalance(ctrl, e.Plant, e.Target, sched), nil
	}
	r.controllers["even"] = func(e *Experiment) (sim.Controller, error) {
		sched, err := e.cfg.Schedule()
		if err != nil {
			return nil, err
		}
		g := e.cfg.Gains
		return control.NewEven(e.Plant, control.NewPID(g.KpPos[2], 0, g.KdPos[2], e.Target.Position.Z), sched), nil
	}
	r.controllers["none"] = func(e *Experiment) (sim.Controller, error) {
		return control.NewNone(e.Plant.ControlDim()), nil
	}
	return r
}

func (r *Registry) GetController(name string, e *Experiment) (sim.Controller, error) {
	fn, ok := r.controllers[name]
	if !ok {
		return nil, errors.Wrapf(ErrUnknownController, "%q (available: %v)", name, r.ListControllers())
	}
	return fn(e)
}

func (r *Registry) ListControllers() []string {
	names := make([]string, 0, len(r.controllers))
	for name := range r.controllers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
