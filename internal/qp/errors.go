package qp

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrInfeasible indicates that no point satisfies the constraints.
	ErrInfeasible = errors.New("qp: problem infeasible")

	// ErrMaxIterations indicates the iteration budget ran out.
	ErrMaxIterations = errors.New("qp: iteration budget exceeded")

	// ErrTimeBudget indicates the soft time budget ran out.
	ErrTimeBudget = errors.New("qp: time budget exceeded")

	// ErrNotPositiveDefinite indicates Q has no Cholesky factorization.
	ErrNotPositiveDefinite = errors.New("qp: cost matrix not positive definite")

	// ErrBadProblem indicates malformed buffers or non-finite data.
	ErrBadProblem = errors.New("qp: malformed problem")

	// ErrNotInitialized is returned by WarmStart on a fresh session.
	ErrNotInitialized = errors.New("qp: session not initialized")
)

// Status is the outcome of a solve.
type Status int

const (
	Optimal Status = iota
	Infeasible
	MaxIterations
	TimeBudgetExceeded
	NotPositiveDefinite
	BadProblem
)

func (s Status) String() string {
	switch s {
	case Optimal:
		return "optimal"
	case Infeasible:
		return "infeasible"
	case MaxIterations:
		return "max-iterations"
	case TimeBudgetExceeded:
		return "time-budget-exceeded"
	case NotPositiveDefinite:
		return "not-positive-definite"
	case BadProblem:
		return "bad-problem"
	}
	return fmt.Sprintf("status(%d)", int(s))
}

func (s Status) err() error {
	switch s {
	case Infeasible:
		return ErrInfeasible
	case MaxIterations:
		return ErrMaxIterations
	case TimeBudgetExceeded:
		return ErrTimeBudget
	case NotPositiveDefinite:
		return ErrNotPositiveDefinite
	case BadProblem:
		return ErrBadProblem
	}
	return nil
}

// Phase tells a cold start from a warm start.
type Phase int

const (
	Cold Phase = iota
	Warm
)

func (p Phase) String() string {
	if p == Warm {
		return "warm"
	}
	return "cold"
}

// SolveError wraps a failed solve with its context.
type SolveError struct {
	Status     Status
	Phase      Phase
	Iterations int
	Wrapped    error
}

func (e *SolveError) Error() string {
	return fmt.Sprintf("%s start after %d iterations: %v", e.Phase, e.Iterations, e.Wrapped)
}

func (e *SolveError) Unwrap() error {
	return e.Wrapped
}
