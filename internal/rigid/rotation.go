package rigid

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/num/quat"
)

func Identity() *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		1, 0, 0,
		0, 1, 0,
		0, 0, 1,
	})
}

// Skew returns the matrix [v]x such that [v]x w = v x w.
func Skew(v r3.Vector) *mat.Dense {
	return mat.NewDense(3, 3, []float64{
		0, -v.Z, v.Y,
		v.Z, 0, -v.X,
		-v.Y, v.X, 0,
	})
}

// Apply returns R v.
func Apply(R mat.Matrix, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: R.At(0, 0)*v.X + R.At(0, 1)*v.Y + R.At(0, 2)*v.Z,
		Y: R.At(1, 0)*v.X + R.At(1, 1)*v.Y + R.At(1, 2)*v.Z,
		Z: R.At(2, 0)*v.X + R.At(2, 1)*v.Y + R.At(2, 2)*v.Z,
	}
}

// ApplyT returns R^T v.
func ApplyT(R mat.Matrix, v r3.Vector) r3.Vector {
	return r3.Vector{
		X: R.At(0, 0)*v.X + R.At(1, 0)*v.Y + R.At(2, 0)*v.Z,
		Y: R.At(0, 1)*v.X + R.At(1, 1)*v.Y + R.At(2, 1)*v.Z,
		Z: R.At(0, 2)*v.X + R.At(1, 2)*v.Y + R.At(2, 2)*v.Z,
	}
}

// Hadamard is the element-wise product.
func Hadamard(a, b r3.Vector) r3.Vector {
	return r3.Vector{X: a.X * b.X, Y: a.Y * b.Y, Z: a.Z * b.Z}
}

// FromQuat converts a quaternion (normalized here) to a rotation matrix.
func FromQuat(q quat.Number) *mat.Dense {
	n := quat.Abs(q)
	if n == 0 {
		return Identity()
	}
	q = quat.Scale(1/n, q)
	w, x, y, z := q.Real, q.Imag, q.Jmag, q.Kmag
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - z*w), 2 * (x*z + y*w),
		2 * (x*y + z*w), 1 - 2*(x*x+z*z), 2 * (y*z - x*w),
		2 * (x*z - y*w), 2 * (y*z + x*w), 1 - 2*(x*x+y*y),
	})
}

// ToQuat converts a rotation matrix to a unit quaternion with non-negative
// real part.
func ToQuat(R mat.Matrix) quat.Number {
	r00, r01, r02 := R.At(0, 0), R.At(0, 1), R.At(0, 2)
	r10, r11, r12 := R.At(1, 0), R.At(1, 1), R.At(1, 2)
	r20, r21, r22 := R.At(2, 0), R.At(2, 1), R.At(2, 2)

	var q quat.Number
	switch tr := r00 + r11 + r22; {
	case tr > 0:
		s := math.Sqrt(tr+1) * 2
		q = quat.Number{Real: s / 4, Imag: (r21 - r12) / s, Jmag: (r02 - r20) / s, Kmag: (r10 - r01) / s}
	case r00 > r11 && r00 > r22:
		s := math.Sqrt(1+r00-r11-r22) * 2
		q = quat.Number{Real: (r21 - r12) / s, Imag: s / 4, Jmag: (r01 + r10) / s, Kmag: (r02 + r20) / s}
	case r11 > r22:
		s := math.Sqrt(1+r11-r00-r22) * 2
		q = quat.Number{Real: (r02 - r20) / s, Imag: (r01 + r10) / s, Jmag: s / 4, Kmag: (r12 + r21) / s}
	default:
		s := math.Sqrt(1+r22-r00-r11) * 2
		q = quat.Number{Real: (r10 - r01) / s, Imag: (r02 + r20) / s, Jmag: (r12 + r21) / s, Kmag: s / 4}
	}
	if q.Real < 0 {
		q = quat.Scale(-1, q)
	}
	return quat.Scale(1/quat.Abs(q), q)
}

// AxisAngle is the log map of R: the rotation axis scaled by the rotation
// angle in [0, pi].
func AxisAngle(R mat.Matrix) r3.Vector {
	q := ToQuat(R)
	v := r3.Vector{X: q.Imag, Y: q.Jmag, Z: q.Kmag}
	n := v.Norm()
	if n < 1e-12 {
		return v.Mul(2)
	}
	theta := 2 * math.Atan2(n, q.Real)
	return v.Mul(theta / n)
}

// SmallAngle is the first-order approximation of AxisAngle, vee((R - R^T)/2).
func SmallAngle(R mat.Matrix) r3.Vector {
	return r3.Vector{
		X: (R.At(2, 1) - R.At(1, 2)) / 2,
		Y: (R.At(0, 2) - R.At(2, 0)) / 2,
		Z: (R.At(1, 0) - R.At(0, 1)) / 2,
	}
}

// FromAxisAngle is the exponential map, the inverse of AxisAngle.
func FromAxisAngle(v r3.Vector) *mat.Dense {
	return FromQuat(QuatFromAxisAngle(v))
}

func QuatFromAxisAngle(v r3.Vector) quat.Number {
	theta := v.Norm()
	if theta < 1e-12 {
		return quat.Number{Real: 1}
	}
	s := math.Sin(theta/2) / theta
	return quat.Number{Real: math.Cos(theta / 2), Imag: v.X * s, Jmag: v.Y * s, Kmag: v.Z * s}
}

// RPY builds Rz(yaw) Ry(pitch) Rx(roll).
func RPY(roll, pitch, yaw float64) *mat.Dense {
	cr, sr := math.Cos(roll), math.Sin(roll)
	cp, sp := math.Cos(pitch), math.Sin(pitch)
	cy, sy := math.Cos(yaw), math.Sin(yaw)
	return mat.NewDense(3, 3, []float64{
		cy * cp, cy*sp*sr - sy*cr, cy*sp*cr + sy*sr,
		sy * cp, sy*sp*sr + cy*cr, sy*sp*cr - cy*sr,
		-sp, cp * sr, cp * cr,
	})
}

// IsRotation reports whether R is 3x3, orthonormal and right-handed within tol.
func IsRotation(R mat.Matrix, tol float64) bool {
	if R == nil {
		return false
	}
	if r, c := R.Dims(); r != 3 || c != 3 {
		return false
	}
	var rtr mat.Dense
	rtr.Mul(R.T(), R)
	if !mat.EqualApprox(&rtr, Identity(), tol) {
		return false
	}
	return math.Abs(mat.Det(R)-1) <= tol
}
