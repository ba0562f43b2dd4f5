// Package qp solves small dense strictly convex quadratic programs
//
//	minimize    1/2 x'Qx + c'x
//	subject to  lb <= Cx <= ub
//
// with a dual active-set method (Goldfarb-Idnani). Problems are passed as flat
// row-major buffers.
//
// A [Session] owns the work buffers and the active set of the last successful
// solve. The first solve of a session is a cold start; later solves are warm
// starts that try the previously active constraints first, which reaches the
// same optimum in fewer iterations when consecutive problems are close.
//
// # Budgets
//
// Every solve is bounded by Options.MaxIterations and, when non-zero, by the
// soft Options.TimeBudget checked between iterations. A solve that exceeds
// either fails with a [*SolveError].
//
// # Thread Safety
//
// Sessions are NOT safe for concurrent use. Give each goroutine its own.
package qp
