package config

import (
	"math"
	"os"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/grfbalance/internal/balance"
	"github.com/san-kum/grfbalance/internal/gait"
	"github.com/san-kum/grfbalance/internal/models"
	"github.com/san-kum/grfbalance/internal/qp"
	"github.com/san-kum/grfbalance/internal/rigid"
)

var ErrInvalid = errors.New("config: invalid")

const (
	DefaultDt       = 0.002
	DefaultDuration = 3.0
	DefaultHeight   = 0.3
)

type Config struct {
	Robot      RobotConfig      `yaml:"robot"`
	Gains      GainsConfig      `yaml:"gains"`
	Weights    WeightsConfig    `yaml:"weights"`
	Solver     SolverConfig     `yaml:"solver"`
	Scenario   ScenarioConfig   `yaml:"scenario"`
	Simulation SimulationConfig `yaml:"simulation"`
}

// RobotConfig describes the trunk and its feet. Feet sit at
// (+-half_length, +-half_width) around the nominal standing position.
type RobotConfig struct {
	Name       string     `yaml:"name"`
	Legs       []string   `yaml:"legs"`
	Mass       float64    `yaml:"mass"`
	Inertia    [3]float64 `yaml:"inertia"`
	Mu         float64    `yaml:"mu"`
	FzMin      float64    `yaml:"fz_min"`
	FzMax      float64    `yaml:"fz_max"`
	Gravity    float64    `yaml:"gravity"`
	HalfLength float64    `yaml:"half_length"`
	HalfWidth  float64    `yaml:"half_width"`
}

type GainsConfig struct {
	KpPos       [3]float64 `yaml:"kp_pos"`
	KdPos       [3]float64 `yaml:"kd_pos"`
	KpRot       [3]float64 `yaml:"kp_rot"`
	KdRot       [3]float64 `yaml:"kd_rot"`
	FeedForward [6]float64 `yaml:"feed_forward"`
}

// WeightsConfig holds the diagonals of the cost weights.
type WeightsConfig struct {
	S         [6]float64 `yaml:"s"`
	W         float64    `yaml:"w"`
	Smoothing float64    `yaml:"smoothing"`
}

type SolverConfig struct {
	SmallAngle bool `yaml:"small_angle"`
	qp.Options `yaml:",inline"`
}

// Pose is a trunk pose with Euler angles in radians.
type Pose struct {
	Height float64    `yaml:"height"`
	Offset [2]float64 `yaml:"offset"`
	Roll   float64    `yaml:"roll"`
	Pitch  float64    `yaml:"pitch"`
	Yaw    float64    `yaml:"yaw"`
	Vel    [3]float64 `yaml:"vel"`
	Omega  [3]float64 `yaml:"omega"`
}

func (p Pose) BodyState() balance.BodyState {
	return balance.BodyState{
		Position:        r3.Vector{X: p.Offset[0], Y: p.Offset[1], Z: p.Height},
		Velocity:        r3.Vector{X: p.Vel[0], Y: p.Vel[1], Z: p.Vel[2]},
		AngularVelocity: r3.Vector{X: p.Omega[0], Y: p.Omega[1], Z: p.Omega[2]},
		Rotation:        rigid.RPY(p.Roll, p.Pitch, p.Yaw),
	}
}

type ScenarioConfig struct {
	Target  Pose        `yaml:"target"`
	Initial Pose        `yaml:"initial"`
	Gait    []gait.Step `yaml:"gait"`
}

type SimulationConfig struct {
	Dt         float64 `yaml:"dt"`
	Duration   float64 `yaml:"duration"`
	Seed       int64   `yaml:"seed"`
	Integrator string  `yaml:"integrator"`
	Controller string  `yaml:"controller"`
	// Perturbation scales the random initial offsets of ensemble runs.
	Perturbation float64 `yaml:"perturbation"`
	Damping      float64 `yaml:"damping"`
}

func DefaultConfig() *Config {
	def := balance.DefaultConfig()
	return &Config{
		Robot: RobotConfig{
			Name:       "mini",
			Legs:       append([]string(nil), def.Legs...),
			Mass:       def.Physical.Mass,
			Inertia:    [3]float64{def.Physical.Inertia.At(0, 0), def.Physical.Inertia.At(1, 1), def.Physical.Inertia.At(2, 2)},
			Mu:         def.Physical.Mu,
			FzMin:      def.Physical.FzMin,
			FzMax:      def.Physical.FzMax,
			Gravity:    -def.Physical.Gravity.Z,
			HalfLength: 0.19,
			HalfWidth:  0.11,
		},
		Gains: GainsConfig{
			KpPos: [3]float64{200, 200, 200},
			KdPos: [3]float64{50, 50, 50},
			KpRot: [3]float64{2000, 2000, 2000},
			KdRot: [3]float64{200, 200, 200},
		},
		Weights: WeightsConfig{
			S: [6]float64{1, 1, 1, 1, 1, 1},
			W: 1e-4,
		},
		Solver: SolverConfig{Options: qp.DefaultOptions()},
		Scenario: ScenarioConfig{
			Target:  Pose{Height: DefaultHeight},
			Initial: Pose{Height: DefaultHeight},
		},
		Simulation: SimulationConfig{
			Dt:           DefaultDt,
			Duration:     DefaultDuration,
			Integrator:   "rk4",
			Controller:   "balance",
			Perturbation: 0.02,
		},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "config: read")
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrapf(err, "config: parse %s", path)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return errors.Wrap(err, "config: encode")
	}
	return errors.Wrap(os.WriteFile(path, data, 0644), "config: write")
}

// Validate checks the file-level settings and everything the balance
// controller checks, reporting every problem at once.
func (c *Config) Validate() error {
	var errs error
	add := func(format string, args ...interface{}) {
		errs = multierr.Append(errs, errors.Wrapf(ErrInvalid, format, args...))
	}

	if !(c.Robot.Gravity > 0) {
		add("gravity %v must be positive", c.Robot.Gravity)
	}
	for i, v := range c.Robot.Inertia {
		if !(v > 0) {
			add("inertia[%d] %v must be positive", i, v)
		}
	}
	if !(c.Robot.HalfLength > 0) || !(c.Robot.HalfWidth > 0) {
		add("stance %vx%v must be positive", c.Robot.HalfLength, c.Robot.HalfWidth)
	}
	if !(c.Simulation.Dt > 0) {
		add("dt %v must be positive", c.Simulation.Dt)
	}
	if !(c.Simulation.Duration > 0) {
		add("duration %v must be positive", c.Simulation.Duration)
	}
	if c.Simulation.Dt > c.Simulation.Duration {
		add("dt %v exceeds duration %v", c.Simulation.Dt, c.Simulation.Duration)
	}
	if c.Simulation.Perturbation < 0 || math.IsNaN(c.Simulation.Perturbation) {
		add("perturbation %v must be non-negative", c.Simulation.Perturbation)
	}
	if !(c.Scenario.Initial.Height > 0) || !(c.Scenario.Target.Height > 0) {
		add("heights must be positive")
	}
	if _, err := c.Schedule(); err != nil {
		errs = multierr.Append(errs, errors.Wrap(ErrInvalid, err.Error()))
	}
	errs = multierr.Append(errs, c.BalanceConfig().Validate())
	return errs
}

// BalanceConfig converts to the controller's configuration.
func (c *Config) BalanceConfig() balance.Config {
	s := mat.NewDense(balance.WrenchDim, balance.WrenchDim, nil)
	for i, v := range c.Weights.S {
		s.Set(i, i, v)
	}
	n := balance.ForceDim * len(c.Robot.Legs)
	w := mat.NewDense(max(n, 1), max(n, 1), nil)
	for i := 0; i < n; i++ {
		w.Set(i, i, c.Weights.W)
	}
	inertia := mat.NewDense(3, 3, nil)
	for i, v := range c.Robot.Inertia {
		inertia.Set(i, i, v)
	}

	return balance.Config{
		Legs: append([]string(nil), c.Robot.Legs...),
		Physical: balance.Physical{
			Mu:      c.Robot.Mu,
			Mass:    c.Robot.Mass,
			FzMin:   c.Robot.FzMin,
			FzMax:   c.Robot.FzMax,
			Inertia: inertia,
			Gravity: r3.Vector{Z: -c.Robot.Gravity},
		},
		Gains: balance.Gains{
			FeedForward: c.Gains.FeedForward,
			KpPos:       vec3(c.Gains.KpPos),
			KdPos:       vec3(c.Gains.KdPos),
			KpRot:       vec3(c.Gains.KpRot),
			KdRot:       vec3(c.Gains.KdRot),
		},
		Weights: balance.Weights{S: s, W: w, Smoothing: c.Weights.Smoothing},
		Options: balance.Options{
			SmallAngle: c.Solver.SmallAngle,
			InfBound:   c.Solver.InfBound,
			Solver:     c.Solver.Options,
		},
	}
}

// Feet returns the world-frame foot positions under the nominal stance.
func (c *Config) Feet() []r3.Vector {
	return models.StanceFeet(c.Robot.HalfLength, c.Robot.HalfWidth)
}

// Schedule builds the scripted contact sequence; an empty gait keeps every
// leg in stance.
func (c *Config) Schedule() (*gait.Schedule, error) {
	return gait.NewSchedule(c.Robot.Legs, c.Scenario.Gait)
}

// Body builds the simulated plant.
func (c *Config) Body() (*models.Body, error) {
	bc := c.BalanceConfig()
	body, err := models.NewBody(bc.Physical, bc.Legs, c.Feet())
	if err != nil {
		return nil, err
	}
	body.LinearDamping = c.Simulation.Damping
	body.AngularDamping = c.Simulation.Damping
	sched, err := c.Schedule()
	if err != nil {
		return nil, err
	}
	if len(c.Scenario.Gait) > 0 {
		body.Contacts = sched.At
	}
	return body, nil
}

func vec3(v [3]float64) r3.Vector { return r3.Vector{X: v[0], Y: v[1], Z: v[2]} }

// Tunable lists the parameter names SetParam accepts.
var Tunable = []string{"kp_pos", "kd_pos", "kp_rot", "kd_rot", "w", "smoothing", "mu"}

// SetParam sets a tunable parameter by name. Gain names set all three axes.
func (c *Config) SetParam(name string, value float64) error {
	all := func(v *[3]float64) { *v = [3]float64{value, value, value} }
	switch name {
	case "kp_pos":
		all(&c.Gains.KpPos)
	case "kd_pos":
		all(&c.Gains.KdPos)
	case "kp_rot":
		all(&c.Gains.KpRot)
	case "kd_rot":
		all(&c.Gains.KdRot)
	case "w":
		c.Weights.W = value
	case "smoothing":
		c.Weights.Smoothing = value
	case "mu":
		c.Robot.Mu = value
	default:
		return errors.Wrapf(ErrInvalid, "unknown parameter %q (tunable: %v)", name, Tunable)
	}
	return nil
}
