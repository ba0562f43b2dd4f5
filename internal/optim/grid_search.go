// Package optim searches controller parameters by running closed-loop
// experiments.
package optim

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/san-kum/grfbalance/internal/sim"
)

var ErrNoTrials = errors.New("optim: no trial succeeded")

// Runner runs one closed loop for a parameter assignment.
type Runner func(ctx context.Context, params map[string]float64) (*sim.Result, error)

// Objective scores a finished run; lower is better.
type Objective func(*sim.Result) float64

// Trial is one evaluated grid point.
type Trial struct {
	Params map[string]float64
	Score  float64
	Err    error
}

type GridSearch struct {
	paramNames []string
	ranges     [][]float64
	log        *zap.Logger
}

// NewGridSearch searches the cartesian product of ranges, one range per
// named parameter.
func NewGridSearch(params []string, ranges [][]float64, logger *zap.Logger) (*GridSearch, error) {
	if len(params) != len(ranges) {
		return nil, errors.Errorf("optim: %d parameters but %d ranges", len(params), len(ranges))
	}
	for i, r := range ranges {
		if len(r) == 0 {
			return nil, errors.Errorf("optim: empty range for %s", params[i])
		}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &GridSearch{paramNames: params, ranges: ranges, log: logger.Named("optim")}, nil
}

// Size is the number of grid points.
func (g *GridSearch) Size() int {
	n := 1
	for _, r := range g.ranges {
		n *= len(r)
	}
	return n
}

// Search evaluates every grid point in order and returns the best trial
// along with all of them. Failed runs score +Inf and are kept in the list.
func (g *GridSearch) Search(ctx context.Context, run Runner, objective Objective) (Trial, []Trial, error) {
	best := Trial{Score: math.Inf(1)}
	trials := make([]Trial, 0, g.Size())
	idx := make([]int, len(g.ranges))

	for {
		if err := ctx.Err(); err != nil {
			return best, trials, err
		}

		params := make(map[string]float64, len(g.paramNames))
		for i, name := range g.paramNames {
			params[name] = g.ranges[i][idx[i]]
		}

		trial := Trial{Params: params, Score: math.Inf(1)}
		res, err := run(ctx, params)
		if err != nil {
			trial.Err = err
			g.log.Debug("trial failed", zap.Any("params", params), zap.Error(err))
		} else {
			trial.Score = objective(res)
		}
		trials = append(trials, trial)
		if trial.Err == nil && trial.Score < best.Score {
			best = trial
		}

		if !g.next(idx) {
			break
		}
	}

	if best.Params == nil {
		return best, trials, ErrNoTrials
	}
	return best, trials, nil
}

// next advances idx like an odometer and reports false after the last point.
func (g *GridSearch) next(idx []int) bool {
	for i := len(idx) - 1; i >= 0; i-- {
		idx[i]++
		if idx[i] < len(g.ranges[i]) {
			return true
		}
		idx[i] = 0
	}
	return false
}

// Metric scores a run by one of its recorded metrics. With maximize set the
// metric is negated so that larger values win.
func Metric(name string, maximize bool) Objective {
	return func(r *sim.Result) float64 {
		v, ok := r.Metrics[name]
		if !ok || math.IsNaN(v) {
			return math.Inf(1)
		}
		if maximize {
			return -v
		}
		return v
	}
}
