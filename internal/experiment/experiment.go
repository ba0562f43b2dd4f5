package experiment

import (
	"context"
	"math/rand"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/san-kum/grfbalance/internal/balance"
	"github.com/san-kum/grfbalance/internal/config"
	"github.com/san-kum/grfbalance/internal/integrators"
	"github.com/san-kum/grfbalance/internal/metrics"
	"github.com/san-kum/grfbalance/internal/models"
	"github.com/san-kum/grfbalance/internal/sim"
	"github.com/san-kum/grfbalance/internal/storage"
)

// Experiment is one fully wired closed-loop scenario: plant, controller,
// integrator and metrics built from a Config.
type Experiment struct {
	cfg *config.Config
	log *zap.Logger

	Plant      *models.Body
	Controller sim.Controller
	Simulator  *sim.Simulator
	Target     balance.BodyState
	X0         sim.State

	// Balance is the QP controller when the scenario uses it.
	Balance *balance.Controller
}

// New builds the experiment described by cfg. A nil logger discards output.
func New(cfg *config.Config, logger *zap.Logger) (*Experiment, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	plant, err := cfg.Body()
	if err != nil {
		return nil, err
	}
	integ, err := integrators.ByName(cfg.Simulation.Integrator)
	if err != nil {
		return nil, err
	}

	e := &Experiment{
		cfg:    cfg,
		log:    logger,
		Plant:  plant,
		Target: cfg.Scenario.Target.BodyState(),
		X0:     models.Pack(cfg.Scenario.Initial.BodyState()),
	}
	ctrl, err := NewRegistry().GetController(cfg.Simulation.Controller, e)
	if err != nil {
		return nil, err
	}
	e.Controller = ctrl

	e.Simulator = sim.New(plant, integ, ctrl, sim.WithLogger(logger))
	for _, m := range metrics.Standard(plant, cfg.Scenario.Target.Height) {
		e.Simulator.AddMetric(m)
	}
	return e, nil
}

func (e *Experiment) Config() *config.Config { return e.cfg }

func (e *Experiment) SimConfig() sim.Config {
	return sim.Config{
		Dt:            e.cfg.Simulation.Dt,
		Duration:      e.cfg.Simulation.Duration,
		Seed:          e.cfg.Simulation.Seed,
		ValidateState: true,
	}
}

func (e *Experiment) Run(ctx context.Context) (*sim.Result, error) {
	return e.Simulator.Run(ctx, e.X0.Clone(), e.SimConfig())
}

// Metadata describes a finished run for storage.
func (e *Experiment) Metadata(preset string, result *sim.Result) storage.RunMetadata {
	meta := storage.RunMetadata{
		Preset:     preset,
		Seed:       e.cfg.Simulation.Seed,
		Dt:         e.cfg.Simulation.Dt,
		Duration:   e.cfg.Simulation.Duration,
		Integrator: e.cfg.Simulation.Integrator,
		Controller: e.cfg.Simulation.Controller,
		Legs:       e.Plant.Legs,
		Columns:    storage.Columns(e.Plant.Legs),
	}
	if result != nil {
		meta.Metrics = result.Metrics
	}
	if e.Balance != nil {
		st := e.Balance.Stats()
		meta.Solver = map[string]float64{
			"cycles":           float64(st.Cycles),
			"failures":         float64(st.Failures),
			"cold_starts":      float64(st.ColdStarts),
			"warm_starts":      float64(st.WarmStarts),
			"mean_iterations":  meanIterations(st),
			"last_elapsed_sec": st.LastElapsed.Seconds(),
		}
	}
	return meta
}

func meanIterations(st balance.Stats) float64 {
	solves := st.ColdStarts + st.WarmStarts
	if solves == 0 {
		return 0
	}
	return float64(st.TotalIterations) / float64(solves)
}

// Perturb offsets the trunk height and the roll and pitch rates of x by
// normally distributed amounts proportional to scale.
func Perturb(x sim.State, scale float64, rng *rand.Rand) sim.State {
	pose := models.Unpack(x)
	pose.Position.Z += scale * rng.NormFloat64()
	pose.AngularVelocity.X += 5 * scale * rng.NormFloat64()
	pose.AngularVelocity.Y += 5 * scale * rng.NormFloat64()
	return models.Pack(pose)
}

// Ensemble runs numRuns perturbed copies of cfg, each with its own plant
// and controller.
func Ensemble(cfg *config.Config, logger *zap.Logger, numRuns, workers int) *sim.Ensemble {
	if logger == nil {
		logger = zap.NewNop()
	}
	factory := func(run int, seed int64) (*sim.Simulator, sim.State, error) {
		e, err := New(cfg, logger.With(zap.Int("run", run)))
		if err != nil {
			return nil, nil, errors.Wrapf(err, "build run %d", run)
		}
		rng := rand.New(rand.NewSource(seed))
		return e.Simulator, Perturb(e.X0, cfg.Simulation.Perturbation, rng), nil
	}
	return sim.NewEnsemble(factory, numRuns, cfg.Simulation.Seed, workers)
}
