package spatial

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

func TestIdentityRoundTrip(t *testing.T) {
	p := NewZeroPose()
	v := r3.Vector{X: 1, Y: 2, Z: 3}
	test.That(t, p.Transform(v), test.ShouldResemble, v)
}

func TestComposeInverse(t *testing.T) {
	a := NewPoseFromAxisAngle(r3.Vector{X: 1, Y: 0, Z: 0}, r3.Vector{X: 0, Y: 0, Z: 1}, math.Pi/2)
	roundTrip := Compose(a, a.Inverse())
	test.That(t, AlmostEqual(roundTrip, NewZeroPose()), test.ShouldBeTrue)
}

func TestBetween(t *testing.T) {
	a := NewPoseFromPoint(r3.Vector{X: 1, Y: 0, Z: 0})
	b := NewPoseFromPoint(r3.Vector{X: 3, Y: 0, Z: 0})
	delta := Between(a, b)
	test.That(t, AlmostEqual(Compose(a, delta), b), test.ShouldBeTrue)
}

func TestLogExpRoundTrip(t *testing.T) {
	p := NewPose(r3.Vector{X: 1, Y: -2, Z: 0.5}, EulerAngles{Roll: 0.1, Pitch: 0.2, Yaw: 0.3}.Quaternion())
	back := ExpMap(p.LogMap())
	test.That(t, AlmostEqual(p, back), test.ShouldBeTrue)
}

func TestEulerRoundTrip(t *testing.T) {
	e := EulerAngles{Roll: 0.3, Pitch: -0.2, Yaw: 1.1}
	q := e.Quaternion()
	back := EulerAnglesFromQuat(q)
	test.That(t, math.Abs(back.Roll-e.Roll) < 1e-6, test.ShouldBeTrue)
	test.That(t, math.Abs(back.Pitch-e.Pitch) < 1e-6, test.ShouldBeTrue)
	test.That(t, math.Abs(back.Yaw-e.Yaw) < 1e-6, test.ShouldBeTrue)
}
