// Package spatial defines the pose and vector algebra shared by the TSDF
// layer, the integrators, and the ICP refiner. Orientation is represented as
// a unit quaternion, mirroring the representation used throughout the
// pack's spatial math conventions.
package spatial

import (
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// poseEpsilon is the default tolerance used by AlmostEqual.
const poseEpsilon = 1e-6

// Pose is a rigid transform: a rotation expressed as a unit quaternion and a
// translation expressed as a point in the parent frame.
type Pose struct {
	orientation quat.Number
	point       r3.Vector
}

// NewZeroPose returns the identity transform.
func NewZeroPose() Pose {
	return Pose{orientation: quat.Number{Real: 1}, point: r3.Vector{}}
}

// NewPoseFromPoint returns a pose with no rotation and the given translation.
func NewPoseFromPoint(p r3.Vector) Pose {
	return Pose{orientation: quat.Number{Real: 1}, point: p}
}

// NewPose returns a pose from a translation and a unit quaternion orientation.
// The quaternion is normalized defensively; callers are not required to
// pre-normalize.
func NewPose(p r3.Vector, o quat.Number) Pose {
	return Pose{orientation: normalizeQuat(o), point: p}
}

// NewPoseFromAxisAngle builds a pose from a translation and an axis-angle
// rotation (axis need not be normalized; a zero axis yields the identity).
func NewPoseFromAxisAngle(p r3.Vector, axis r3.Vector, angle float64) Pose {
	n := axis.Norm()
	if n == 0 {
		return NewPoseFromPoint(p)
	}
	axis = axis.Mul(1 / n)
	s := math.Sin(angle / 2)
	q := quat.Number{
		Real: math.Cos(angle / 2),
		Imag: axis.X * s,
		Jmag: axis.Y * s,
		Kmag: axis.Z * s,
	}
	return Pose{orientation: q, point: p}
}

// Point returns the translation component.
func (p Pose) Point() r3.Vector { return p.point }

// Orientation returns the quaternion rotation component.
func (p Pose) Orientation() quat.Number { return p.orientation }

func normalizeQuat(q quat.Number) quat.Number {
	n := quat.Abs(q)
	if n == 0 {
		return quat.Number{Real: 1}
	}
	return quat.Scale(1/n, q)
}

// rotate applies the pose's rotation (not translation) to a vector.
func rotate(q quat.Number, v r3.Vector) r3.Vector {
	qv := quat.Number{Imag: v.X, Jmag: v.Y, Kmag: v.Z}
	r := quat.Mul(quat.Mul(q, qv), quat.Conj(q))
	return r3.Vector{X: r.Imag, Y: r.Jmag, Z: r.Kmag}
}

// Transform maps a point expressed in this pose's local frame into the
// parent frame: p_parent = R*p_local + t.
func (p Pose) Transform(v r3.Vector) r3.Vector {
	return rotate(p.orientation, v).Add(p.point)
}

// TransformVector rotates (but does not translate) a direction vector.
func (p Pose) TransformVector(v r3.Vector) r3.Vector {
	return rotate(p.orientation, v)
}

// Inverse returns the pose such that Compose(p, p.Inverse()) is the identity.
func (p Pose) Inverse() Pose {
	qInv := quat.Conj(p.orientation)
	return Pose{orientation: qInv, point: rotate(qInv, p.point).Mul(-1)}
}

// Compose returns the pose equivalent to applying p first, then next:
// result.Transform(v) == next.Transform(p.Transform(v)).
func Compose(p, next Pose) Pose {
	return Pose{
		orientation: normalizeQuat(quat.Mul(next.orientation, p.orientation)),
		point:       next.Transform(p.point),
	}
}

// Between returns the pose that, when composed after p, yields next:
// Compose(p, Between(p, next)) == next.
func Between(p, next Pose) Pose {
	return Compose(p.Inverse(), next)
}

// AlmostEqual reports whether two poses are equal within tolerance on both
// translation and orientation.
func AlmostEqual(a, b Pose) bool {
	if a.point.Sub(b.point).Norm() > poseEpsilon {
		return false
	}
	dot := a.orientation.Real*b.orientation.Real +
		a.orientation.Imag*b.orientation.Imag +
		a.orientation.Jmag*b.orientation.Jmag +
		a.orientation.Kmag*b.orientation.Kmag
	return math.Abs(math.Abs(dot)-1) < 1e-4
}

// LogMap returns the se(3) tangent vector (translation, rotation-vector) of
// this pose relative to identity: [tx, ty, tz, rx, ry, rz].
func (p Pose) LogMap() [6]float64 {
	angle := 2 * math.Acos(clamp(p.orientation.Real, -1, 1))
	var axis r3.Vector
	s := math.Sqrt(1 - p.orientation.Real*p.orientation.Real)
	if s < 1e-8 {
		axis = r3.Vector{X: p.orientation.Imag, Y: p.orientation.Jmag, Z: p.orientation.Kmag}
	} else {
		axis = r3.Vector{X: p.orientation.Imag / s, Y: p.orientation.Jmag / s, Z: p.orientation.Kmag / s}
	}
	rv := axis.Mul(angle)
	return [6]float64{p.point.X, p.point.Y, p.point.Z, rv.X, rv.Y, rv.Z}
}

// ExpMap is the inverse of LogMap.
func ExpMap(v [6]float64) Pose {
	t := r3.Vector{X: v[0], Y: v[1], Z: v[2]}
	rv := r3.Vector{X: v[3], Y: v[4], Z: v[5]}
	angle := rv.Norm()
	if angle < 1e-12 {
		return NewPoseFromPoint(t)
	}
	return NewPoseFromAxisAngle(t, rv, angle)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
