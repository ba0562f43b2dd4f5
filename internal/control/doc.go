// Package control adapts force controllers to the simulator's
// [sim.Controller] interface:
//
//   - [Balance]: the QP ground reaction force controller
//   - [Even]: a height PID whose vertical force is split evenly across
//     stance legs, used as a baseline
//   - [None]: zero command
//
// # Usage
//
//	ctrl := control.NewBalance(bc, plant, target, schedule)
//	s := sim.New(plant, integrators.NewRK4(), ctrl)
//	// Controller.Compute is called each timestep
package control
