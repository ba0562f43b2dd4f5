package sim

import (
	"context"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Factory builds an independent simulator and initial state for one
// ensemble member. Controllers carry solver state, so members never share
// one.
type Factory func(run int, seed int64) (*Simulator, State, error)

type Ensemble struct {
	factory   Factory
	numRuns   int
	seedStart int64
	workers   int
}

// NewEnsemble runs numRuns members with seeds seedStart, seedStart+1, ...
// using at most workers goroutines (0 means one per member).
func NewEnsemble(factory Factory, numRuns int, seedStart int64, workers int) *Ensemble {
	return &Ensemble{factory: factory, numRuns: numRuns, seedStart: seedStart, workers: workers}
}

func (e *Ensemble) Run(ctx context.Context, cfg Config) ([]*Result, error) {
	results := make([]*Result, e.numRuns)

	g, ctx := errgroup.WithContext(ctx)
	if e.workers > 0 {
		g.SetLimit(e.workers)
	}
	for i := 0; i < e.numRuns; i++ {
		idx := i
		g.Go(func() error {
			seed := e.seedStart + int64(idx)
			s, x0, err := e.factory(idx, seed)
			if err != nil {
				return errors.Wrapf(err, "ensemble member %d", idx)
			}
			runCfg := cfg
			runCfg.Seed = seed
			res, err := s.Run(ctx, x0, runCfg)
			results[idx] = res
			return errors.Wrapf(err, "ensemble member %d", idx)
		})
	}

	if err := g.Wait(); err != nil {
		return results, err
	}
	return results, nil
}
