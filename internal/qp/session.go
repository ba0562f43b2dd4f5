package qp

import (
	"time"

	"github.com/pkg/errors"
)

// Options bound and tune a solve.
type Options struct {
	// MaxIterations caps active-set changes per solve.
	MaxIterations int `yaml:"max_iterations"`

	// TimeBudget is a soft wall-clock limit checked between iterations.
	// Zero disables it.
	TimeBudget time.Duration `yaml:"time_budget"`

	// InfBound marks a side as absent: lower bounds <= -InfBound and upper
	// bounds >= InfBound are not enforced.
	InfBound float64 `yaml:"inf_bound"`

	// Tolerance is the relative violation accepted as satisfied.
	Tolerance float64 `yaml:"tolerance"`

	// ResetOnFailure discards the warm-start state after a failed solve.
	ResetOnFailure bool `yaml:"reset_on_failure"`
}

func DefaultOptions() Options {
	return Options{
		MaxIterations: 200,
		TimeBudget:    time.Millisecond,
		InfBound:      1e6,
		Tolerance:     1e-9,
	}
}

func (o Options) withDefaults() Options {
	def := DefaultOptions()
	if o.MaxIterations <= 0 {
		o.MaxIterations = def.MaxIterations
	}
	if o.InfBound <= 0 {
		o.InfBound = def.InfBound
	}
	if o.Tolerance <= 0 {
		o.Tolerance = def.Tolerance
	}
	return o
}

// ActiveBound names one side of a constraint row that holds with equality at
// the solution.
type ActiveBound struct {
	Row   int
	Upper bool
}

type Result struct {
	X          []float64
	Objective  float64
	Iterations int
	Elapsed    time.Duration
	Active     []ActiveBound
	Status     Status
	Phase      Phase
}

// Session is a solver instance that remembers the active set of its last
// successful solve.
type Session struct {
	opts        Options
	ws          *workspace
	prefer      []bool
	initialized bool
	now         func() time.Time
}

func NewSession(opts Options) *Session {
	return &Session{opts: opts.withDefaults(), now: time.Now}
}

func (s *Session) Options() Options {
	return s.opts
}

// Initialized reports whether a cold start has succeeded since the last
// Reset.
func (s *Session) Initialized() bool {
	return s.initialized
}

// Reset discards the warm-start state. Buffers are kept.
func (s *Session) Reset() {
	s.initialized = false
	for i := range s.prefer {
		s.prefer[i] = false
	}
}

// Solve cold starts a fresh session and warm starts an initialized one.
func (s *Session) Solve(p *Problem) (Result, error) {
	if s.initialized {
		return s.WarmStart(p)
	}
	return s.ColdStart(p)
}

// ColdStart solves p from scratch and, on success, initializes the session.
func (s *Session) ColdStart(p *Problem) (Result, error) {
	s.initialized = false
	if err := p.Validate(); err != nil {
		return s.fail(p, Cold, BadProblem, 0, 0, err)
	}
	if !s.ws.fits(p) {
		s.ws = newWorkspace(p.N, p.M)
		s.prefer = make([]bool, 2*p.M)
	}
	s.Reset()
	return s.run(p, Cold)
}

// WarmStart re-solves on an initialized session, trying the previously
// active constraints first. The problem shape must match the cold start.
func (s *Session) WarmStart(p *Problem) (Result, error) {
	if !s.initialized {
		return s.fail(p, Warm, BadProblem, 0, 0, ErrNotInitialized)
	}
	if err := p.Validate(); err != nil {
		return s.fail(p, Warm, BadProblem, 0, 0, err)
	}
	if !s.ws.fits(p) {
		err := errors.Wrapf(ErrBadProblem, "shape %dx%d, session has %dx%d", p.N, p.M, s.ws.n, s.ws.m)
		return s.fail(p, Warm, BadProblem, 0, 0, err)
	}
	return s.run(p, Warm)
}

func (s *Session) run(p *Problem, phase Phase) (Result, error) {
	start := s.now()
	b := budget{maxIter: s.opts.MaxIterations, limit: s.opts.TimeBudget, start: start, now: s.now}

	var prefer []bool
	if phase == Warm {
		prefer = s.prefer
	}
	st, iter := s.ws.solve(p, prefer, s.opts, b)
	elapsed := s.now().Sub(start)
	if st != Optimal {
		return s.fail(p, phase, st, iter, elapsed, st.err())
	}

	res := Result{
		X:          make([]float64, p.N),
		Objective:  s.ws.objective(p),
		Iterations: iter,
		Elapsed:    elapsed,
		Active:     make([]ActiveBound, 0, s.ws.iq),
		Status:     Optimal,
		Phase:      phase,
	}
	copy(res.X, s.ws.x)
	for i := range s.prefer {
		s.prefer[i] = false
	}
	for k := 0; k < s.ws.iq; k++ {
		slot := s.ws.act[k]
		s.prefer[slot] = true
		res.Active = append(res.Active, ActiveBound{Row: slot / 2, Upper: slot%2 == 1})
	}
	s.initialized = true
	return res, nil
}

// fail builds the zero-vector result returned for every failed solve.
func (s *Session) fail(p *Problem, phase Phase, st Status, iter int, elapsed time.Duration, cause error) (Result, error) {
	n := 0
	if p != nil && p.N > 0 {
		n = p.N
	}
	if s.opts.ResetOnFailure {
		s.Reset()
	}
	res := Result{
		X:          make([]float64, n),
		Iterations: iter,
		Elapsed:    elapsed,
		Status:     st,
		Phase:      phase,
	}
	return res, &SolveError{Status: st, Phase: phase, Iterations: iter, Wrapped: cause}
}
