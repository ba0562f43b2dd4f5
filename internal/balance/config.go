package balance

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/grfbalance/internal/qp"
)

// Physical parameters of the robot, fixed for the controller's lifetime.
type Physical struct {
	Mu      float64
	Mass    float64
	FzMin   float64
	FzMax   float64
	Inertia *mat.Dense // body frame, 3x3
	Gravity r3.Vector
}

// Gains of the pose tracking law. FeedForward holds x and y velocity
// feed-forward, the weight compensation factor, then three angular velocity
// feed-forward terms.
type Gains struct {
	FeedForward [6]float64
	KpPos       r3.Vector
	KdPos       r3.Vector
	KpRot       r3.Vector
	KdRot       r3.Vector
}

// Weights of the QP cost. S (6x6) weights the wrench tracking residual and
// W (12x12) regularizes force magnitude. Smoothing adds s |f - f_prev|^2
// against the last successful solution; zero disables it.
type Weights struct {
	S         *mat.Dense
	W         *mat.Dense
	Smoothing float64
}

type Options struct {
	// SmallAngle replaces the axis-angle orientation error with its
	// first-order approximation.
	SmallAngle bool

	// InfBound stands in for an unbounded friction-row side.
	InfBound float64

	Solver qp.Options
}

type Config struct {
	Legs     []string
	Physical Physical
	Gains    Gains
	Weights  Weights
	Options  Options
}

// DefaultConfig returns the parameters of a 9 kg quadruped standing on a
// mu = 0.8 floor.
func DefaultConfig() Config {
	return Config{
		Legs: []string{"FL", "FR", "RL", "RR"},
		Physical: Physical{
			Mu:      0.8,
			Mass:    9,
			FzMin:   10,
			FzMax:   160,
			Inertia: diag(0.011253, 0.036203, 0.042673),
			Gravity: r3.Vector{Z: -9.81},
		},
		Gains: Gains{
			KpPos: r3.Vector{X: 200, Y: 200, Z: 200},
			KdPos: r3.Vector{X: 50, Y: 50, Z: 50},
			KpRot: r3.Vector{X: 2000, Y: 2000, Z: 2000},
			KdRot: r3.Vector{X: 200, Y: 200, Z: 200},
		},
		Weights: Weights{
			S: scaledIdentity(WrenchDim, 1),
			W: scaledIdentity(NumVariables, 1e-4),
		},
		Options: Options{
			InfBound: 1e6,
			Solver:   qp.DefaultOptions(),
		},
	}
}

// Validate reports every problem with the configuration at once. Normal
// force limits are not cross-checked: fzmin > fzmax is left for the solver
// to report as infeasible.
func (c Config) Validate() error {
	var errs error
	add := func(format string, args ...interface{}) {
		errs = multierr.Append(errs, errors.Wrapf(ErrConfig, format, args...))
	}

	if len(c.Legs) != NumLegs {
		add("%d legs configured, want %d", len(c.Legs), NumLegs)
	}
	seen := make(map[string]bool, len(c.Legs))
	for _, leg := range c.Legs {
		switch {
		case leg == "":
			add("empty leg name")
		case seen[leg]:
			add("duplicate leg %q", leg)
		}
		seen[leg] = true
	}

	p := c.Physical
	if !(p.Mu >= 0) || math.IsInf(p.Mu, 0) {
		add("friction coefficient %v", p.Mu)
	}
	if !(p.Mass > 0) || math.IsInf(p.Mass, 0) {
		add("mass %v must be positive", p.Mass)
	}
	if !(p.FzMin >= 0) {
		add("fzmin %v must be non-negative", p.FzMin)
	}
	if math.IsNaN(p.FzMax) {
		add("fzmax is NaN")
	}
	if err := checkSquare("inertia", p.Inertia, 3); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := checkSquare("S", c.Weights.S, WrenchDim); err != nil {
		errs = multierr.Append(errs, err)
	}
	if err := checkSquare("W", c.Weights.W, NumVariables); err != nil {
		errs = multierr.Append(errs, err)
	}
	if !(c.Weights.Smoothing >= 0) {
		add("smoothing %v must be non-negative", c.Weights.Smoothing)
	}
	if !(c.Options.InfBound > 0) {
		add("inf bound %v must be positive", c.Options.InfBound)
	}
	return errs
}

func checkSquare(name string, m *mat.Dense, n int) error {
	if m == nil {
		return errors.Wrapf(ErrConfig, "%s matrix missing", name)
	}
	if r, c := m.Dims(); r != n || c != n {
		return errors.Wrapf(ErrConfig, "%s is %dx%d, want %dx%d", name, r, c, n, n)
	}
	if !mat.EqualApprox(m, m.T(), 1e-9) {
		return errors.Wrapf(ErrConfig, "%s is not symmetric", name)
	}
	return nil
}

func diag(v ...float64) *mat.Dense {
	m := mat.NewDense(len(v), len(v), nil)
	for i, x := range v {
		m.Set(i, i, x)
	}
	return m
}

func scaledIdentity(n int, s float64) *mat.Dense {
	v := make([]float64, n)
	for i := range v {
		v[i] = s
	}
	return diag(v...)
}
