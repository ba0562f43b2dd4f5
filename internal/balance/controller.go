package balance

import (
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/grfbalance/internal/gait"
	"github.com/san-kum/grfbalance/internal/qp"
	"github.com/san-kum/grfbalance/internal/rigid"
)

// Solution is the outcome of one control cycle. World holds the solver's
// world-frame foot forces and Body the command handed to the legs; both are
// leg-major in the configured leg order and zero after a failure.
type Solution struct {
	World        []float64
	Body         []float64
	Accel        r3.Vector
	AngularAccel r3.Vector
	QP           qp.Result
}

// Force returns leg i's body-frame command.
func (s Solution) Force(i int) r3.Vector {
	return layout{}.leg(s.Body, i)
}

// Stats counts cycles since construction.
type Stats struct {
	Cycles          int
	Failures        int
	ColdStarts      int
	WarmStarts      int
	TotalIterations int
	LastStatus      qp.Status
	LastElapsed     time.Duration
}

type Controller struct {
	cfg Config
	lay layout
	log *zap.Logger

	friction *mat.Dense
	session  *qp.Session
	prob     *qp.Problem

	a    *mat.Dense
	b    *mat.VecDense
	q    *mat.Dense
	cost *mat.VecDense
	prev []float64

	stats Stats
}

// New validates cfg and builds the friction matrix and solver session. A nil
// logger discards output.
func New(cfg Config, logger *zap.Logger) (*Controller, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	lay := newLayout(cfg.Legs)
	friction := frictionCone(lay, cfg.Physical.Mu)
	prob, err := newProblem(friction)
	if err != nil {
		return nil, err
	}

	solver := cfg.Options.Solver
	solver.InfBound = cfg.Options.InfBound

	return &Controller{
		cfg:      cfg,
		lay:      lay,
		log:      logger.Named("balance"),
		friction: friction,
		session:  qp.NewSession(solver),
		prob:     prob,
		a:        mat.NewDense(WrenchDim, NumVariables, nil),
		b:        mat.NewVecDense(WrenchDim, nil),
		q:        mat.NewDense(NumVariables, NumVariables, nil),
		cost:     mat.NewVecDense(NumVariables, nil),
	}, nil
}

func (c *Controller) Legs() []string { return c.lay.legs }

func (c *Controller) Config() Config { return c.cfg }

// FrictionMatrix returns a copy of the constant friction constraint matrix.
func (c *Controller) FrictionMatrix() *mat.Dense {
	return mat.DenseCopyOf(c.friction)
}

func (c *Controller) Stats() Stats { return c.stats }

// Reset discards the solver's warm-start state and the smoothing reference.
func (c *Controller) Reset() {
	c.session.Reset()
	c.prev = nil
	c.log.Info("solver session reset")
}

// Control returns the body-frame force command for one cycle, or the zero
// vector when no command could be produced.
func (c *Controller) Control(feet []r3.Vector, cur, des BodyState, contacts gait.Map) []float64 {
	sol, err := c.Solve(feet, cur, des, contacts)
	if err != nil {
		return make([]float64, NumVariables)
	}
	return sol.Body
}

// Solve runs one control cycle. Failures are logged and return a zero
// solution together with the error.
func (c *Controller) Solve(feet []r3.Vector, cur, des BodyState, contacts gait.Map) (Solution, error) {
	c.stats.Cycles++
	sol := Solution{
		World: make([]float64, NumVariables),
		Body:  make([]float64, NumVariables),
	}

	if err := c.checkInputs(feet, cur, des); err != nil {
		return sol, c.reject(err, contacts)
	}
	phys := c.cfg.Physical
	if err := bounds(c.prob.Lower, c.prob.Upper, c.lay, contacts, phys.FzMin, phys.FzMax, c.cfg.Options.InfBound); err != nil {
		return sol, c.reject(err, contacts)
	}

	sol.Accel = desiredAccel(c.cfg.Gains, phys, cur, des)
	sol.AngularAccel = desiredAngularAccel(c.cfg.Gains, cur, des, c.cfg.Options.SmallAngle)

	if contacts.StanceCount(c.lay.legs) == 0 {
		c.log.Debug("no stance legs, zero command")
		return sol, nil
	}

	buildDynamics(c.a, c.b, c.lay, phys, feet, cur.Rotation, sol.Accel, sol.AngularAccel)
	buildCost(c.q, c.cost, c.a, c.b, c.cfg.Weights, c.prev)
	if err := loadCost(c.prob, c.q, c.cost); err != nil {
		return sol, c.reject(err, contacts)
	}

	res, err := c.session.Solve(c.prob)
	sol.QP = res
	c.record(res)
	if err != nil {
		c.stats.Failures++
		c.log.Error("force distribution failed",
			zap.Stringer("phase", res.Phase),
			zap.Stringer("status", res.Status),
			zap.Int("iterations", res.Iterations),
			zap.Duration("elapsed", res.Elapsed),
			zap.String("contacts", contacts.String()),
			zap.Error(err),
		)
		return sol, errors.Wrap(err, "balance: solve")
	}

	copy(sol.World, res.X)
	for i, leg := range c.lay.legs {
		if contacts[leg].State != gait.Stance {
			c.lay.setLeg(sol.World, i, r3.Vector{})
		}
	}
	ToBody(sol.Body, sol.World, cur.Rotation)

	if c.prev == nil {
		c.prev = make([]float64, NumVariables)
	}
	copy(c.prev, sol.World)

	c.log.Debug("forces solved",
		zap.Stringer("phase", res.Phase),
		zap.Int("iterations", res.Iterations),
		zap.Duration("elapsed", res.Elapsed),
		zap.Float64("objective", res.Objective),
	)
	return sol, nil
}

func (c *Controller) record(res qp.Result) {
	if res.Phase == qp.Warm {
		c.stats.WarmStarts++
	} else {
		c.stats.ColdStarts++
	}
	c.stats.TotalIterations += res.Iterations
	c.stats.LastStatus = res.Status
	c.stats.LastElapsed = res.Elapsed
}

func (c *Controller) reject(err error, contacts gait.Map) error {
	c.stats.Failures++
	c.log.Error("cycle rejected", zap.String("contacts", contacts.String()), zap.Error(err))
	return err
}

func (c *Controller) checkInputs(feet []r3.Vector, cur, des BodyState) error {
	if len(feet) != len(c.lay.legs) {
		return errors.Wrapf(ErrFeet, "got %d positions for %d legs", len(feet), len(c.lay.legs))
	}
	if cur.Rotation == nil || !rigid.IsRotation(cur.Rotation, 1e-6) {
		return errors.Wrap(ErrRotation, "current attitude")
	}
	if des.Rotation == nil || !rigid.IsRotation(des.Rotation, 1e-6) {
		return errors.Wrap(ErrRotation, "desired attitude")
	}
	return nil
}
