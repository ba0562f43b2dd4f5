// Package rigid holds the small amount of 3-D rigid-body math the controller
// and the trunk plant need: rotation matrices as 3x3 gonum matrices, 3-vectors
// as r3.Vector, and conversions through unit quaternions.
//
// Rotations follow the world-from-body convention: for R_wb, Apply(R_wb, v)
// takes a body-frame vector into the world frame.
package rigid
