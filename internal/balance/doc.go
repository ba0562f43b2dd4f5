// Package balance computes per-leg ground reaction forces that keep a
// quadruped trunk on its commanded pose.
//
// Each control cycle turns the pose tracking error into desired linear and
// angular accelerations, builds the single-rigid-body Newton-Euler system
// A f = b over the stacked 12-vector of world-frame foot forces, and solves
//
//	minimize    (A f - b)' S (A f - b) + f' W f
//	subject to  friction pyramid and normal force limits per stance leg
//	            zero force on swing legs
//
// as a quadratic program. The world-frame optimum is negated and rotated into
// the body frame before it is returned.
//
// # Failure
//
// [Controller.Control] never returns an error. When the solver fails it logs
// the failure and returns the zero vector, which callers must read as "no
// command produced". [Controller.Solve] exposes the same pipeline with the
// error and solver diagnostics.
//
// # Thread Safety
//
// A Controller owns a persistent solver session and is NOT safe for
// concurrent use. Run one controller per control loop.
package balance
