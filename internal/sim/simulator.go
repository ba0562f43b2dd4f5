package sim

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"
)

type Simulator struct {
	dyn        Dynamics
	integrator Integrator
	controller Controller
	metrics    []Metric
	observers  []Observer
	log        *zap.Logger
}

type Option func(*Simulator)

func WithLogger(l *zap.Logger) Option {
	return func(s *Simulator) {
		if l != nil {
			s.log = l.Named("sim")
		}
	}
}

func New(dyn Dynamics, integrator Integrator, controller Controller, opts ...Option) *Simulator {
	s := &Simulator{
		dyn:        dyn,
		integrator: integrator,
		controller: controller,
		metrics:    make([]Metric, 0),
		observers:  make([]Observer, 0),
		log:        zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run integrates the closed loop from x0. On a divergent state it returns
// the partial result with a *StepError.
func (s *Simulator) Run(ctx context.Context, x0 State, cfg Config) (*Result, error) {
	if err := s.validate(x0, cfg); err != nil {
		return nil, err
	}

	steps := int(math.Round(cfg.Duration / cfg.Dt))
	result := &Result{
		States:   make([]State, 0, steps+1),
		Controls: make([]Control, 0, steps),
		Times:    make([]float64, 0, steps+1),
		Metrics:  make(map[string]float64),
	}

	for _, m := range s.metrics {
		m.Reset()
	}

	x := x0.Clone()
	t := 0.0
	result.States = append(result.States, x.Clone())
	result.Times = append(result.Times, t)
	initialEnergy := s.energy(x)

	s.log.Debug("run started", zap.Int("steps", steps), zap.Float64("dt", cfg.Dt))

	var runErr error
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			s.finish(result, x, initialEnergy)
			return result, ctx.Err()
		default:
		}

		u := s.controller.Compute(x, t)
		for _, m := range s.metrics {
			m.Observe(x, u, t)
		}
		for _, obs := range s.observers {
			obs.OnStep(x, u, t)
		}

		next := s.integrator.Step(s.dyn, x, u, t, cfg.Dt)
		if cfg.ValidateState && !next.IsValid() {
			runErr = &StepError{Step: i, Time: t, Wrapped: ErrInvalidState}
			s.log.Warn("state diverged", zap.Int("step", i), zap.Float64("t", t))
			break
		}

		x = next
		t = float64(i+1) * cfg.Dt
		result.StepsTaken++
		result.States = append(result.States, x.Clone())
		result.Controls = append(result.Controls, u)
		result.Times = append(result.Times, t)
	}

	s.finish(result, x, initialEnergy)
	s.log.Debug("run finished", zap.Int("steps", result.StepsTaken))
	return result, runErr
}

func (s *Simulator) finish(result *Result, x State, initialEnergy float64) {
	if initialEnergy != 0 {
		result.EnergyDrift = math.Abs(s.energy(x)-initialEnergy) / math.Abs(initialEnergy)
	}
	for _, m := range s.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
}

func (s *Simulator) validate(x0 State, cfg Config) error {
	if cfg.Dt <= 0 {
		return errors.Wrapf(ErrConfig, "dt must be positive, got %f", cfg.Dt)
	}
	if cfg.Duration <= 0 {
		return errors.Wrapf(ErrConfig, "duration must be positive, got %f", cfg.Duration)
	}
	if len(x0) != s.dyn.StateDim() {
		return errors.Wrapf(ErrDimensionMismatch, "state has %d entries, plant wants %d", len(x0), s.dyn.StateDim())
	}
	return nil
}

func (s *Simulator) energy(x State) float64 {
	if ec, ok := s.dyn.(EnergyComputer); ok {
		return ec.Energy(x)
	}
	return 0
}

// RunWithCallback steps the loop until the duration elapses or callback
// returns false.
func (s *Simulator) RunWithCallback(ctx context.Context, x0 State, cfg Config, callback func(State, Control, float64) bool) error {
	if err := s.validate(x0, cfg); err != nil {
		return err
	}

	x := x0.Clone()
	steps := int(math.Round(cfg.Duration / cfg.Dt))
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		t := float64(i) * cfg.Dt
		u := s.controller.Compute(x, t)
		if !callback(x, u, t) {
			return nil
		}

		x = s.integrator.Step(s.dyn, x, u, t, cfg.Dt)
		if cfg.ValidateState && !x.IsValid() {
			return &StepError{Step: i, Time: t, Wrapped: ErrInvalidState}
		}
	}
	return nil
}

// Step advances x by one dt without recording anything. It is meant for
// interactive front ends that drive the loop themselves.
func (s *Simulator) Step(x State, t, dt float64) (State, Control) {
	u := s.controller.Compute(x, t)
	for _, obs := range s.observers {
		obs.OnStep(x, u, t)
	}
	return s.integrator.Step(s.dyn, x, u, t, dt), u
}
