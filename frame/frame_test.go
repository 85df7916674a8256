package frame

import (
	"context"
	"testing"
	"time"

	"go.viam.com/test"

	"github.com/Kabilan-n/voxblox/spatial"
)

func TestStaticTreeLookup(t *testing.T) {
	tree := NewStaticTree(map[string]spatial.Pose{
		"camera": spatial.NewZeroPose(),
	})
	p, err := tree.Pose(context.Background(), "camera", "world", time.Now())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.AlmostEqual(p, spatial.NewZeroPose()), test.ShouldBeTrue)

	_, err = tree.Pose(context.Background(), "missing", "world", time.Now())
	test.That(t, err, test.ShouldNotBeNil)
}

func TestBusRejectsStaleTransform(t *testing.T) {
	bus := NewBus(time.Second)
	base := time.Unix(1000, 0)
	bus.Publish(Stamp{FrameID: "base", At: base, Pose: spatial.NewZeroPose()})

	_, err := bus.Pose(context.Background(), "base", "world", base.Add(2*time.Second))
	test.That(t, err, test.ShouldNotBeNil)

	p, err := bus.Pose(context.Background(), "base", "world", base.Add(100*time.Millisecond))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.AlmostEqual(p, spatial.NewZeroPose()), test.ShouldBeTrue)
}
