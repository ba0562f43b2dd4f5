// Package analysis summarizes recorded trajectories: how quickly and how
// cleanly a signal settles onto its setpoint.
package analysis
