package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/Kabilan-n/voxblox/frame"
	"github.com/Kabilan-n/voxblox/integrator"
	"github.com/Kabilan-n/voxblox/spatial"
	"github.com/Kabilan-n/voxblox/tsdf"
	"github.com/Kabilan-n/voxblox/voxconfig"
)

func testLayer(t *testing.T) *tsdf.Layer {
	t.Helper()
	return tsdf.NewLayer(tsdf.Config{VoxelSize: 0.1, VoxelsPerSide: 8, TruncationDistance: 0.3, MaxWeight: 1e4})
}

func pcdMessage(at time.Time, frameID string, x float64) Message {
	raw := fmt.Sprintf("FIELDS x y z\n%f 0.0 0.0\n", x)
	return Message{Timestamp: at, FrameID: frameID, Raw: []byte(raw)}
}

type identityLookup struct{}

func (identityLookup) Pose(ctx context.Context, frameID, world string, at time.Time) (spatial.Pose, error) {
	return spatial.NewZeroPose(), nil
}

func newTestPipeline(t *testing.T, cfg Config) (*Pipeline, *tsdf.Layer) {
	t.Helper()
	layer := testLayer(t)
	integ, err := integrator.New(integrator.Projective, integrator.Config{
		MaxRayLength: 4,
		Camera: integrator.Camera{
			Width: 32, Height: 32, HFovRad: 3.0, VFovRad: 3.0, MinRange: 0.05, MaxRange: 4,
		},
	}, layer)
	test.That(t, err, test.ShouldBeNil)
	if cfg.WorldFrame == "" {
		cfg.WorldFrame = "world"
	}
	p := New(cfg, layer, integ, identityLookup{}, golog.NewTestLogger(t), false)
	return p, layer
}

// S3: timestamps [0.00, 0.05, 0.11, 0.12, 0.30] with a 0.1s throttle accept
// exactly 3 messages (0.00, 0.11, 0.30 — 0.05 and 0.12 fall within 0.1s of
// the preceding accepted message).
func TestEnqueueThrottleAcceptsExactlyThreeOfFive(t *testing.T) {
	p, _ := newTestPipeline(t, Config{MinTimeBetweenMsgsSec: 0.1})
	base := time.Unix(0, 0)
	offsets := []float64{0.00, 0.05, 0.11, 0.12, 0.30}
	accepted := 0
	for _, off := range offsets {
		at := base.Add(time.Duration(off * float64(time.Second)))
		if p.Enqueue(pcdMessage(at, "camera", 1.0)) {
			accepted++
		}
	}
	test.That(t, accepted, test.ShouldEqual, 3)
}

// S4: submap cut positions [0, 1.0, 1.9, 2.1, 2.2] with Δs_submap=2.0m fire
// exactly one cut, between the samples at 1.9 and 2.1.
func TestCheckSubmapCutFiresExactlyOnceAtThreshold(t *testing.T) {
	p, _ := newTestPipeline(t, Config{
		SubmapMaxDistanceTravelled: voxconfig.Set(2.0),
	})
	now := time.Unix(0, 0)
	positions := []float64{0, 1.0, 1.9, 2.1, 2.2}
	cuts := 0
	for _, x := range positions {
		cut, _ := p.CheckSubmapCut(now, r3.Vector{X: x})
		if cut {
			cuts++
		}
		now = now.Add(time.Second)
	}
	test.That(t, cuts, test.ShouldEqual, 1)
}

// Property 7: submap cut determinism depends only on time/position deltas,
// never on which integrator flavor is in use (the pipeline never consults
// the integrator when evaluating the cut predicate).
func TestCheckSubmapCutIndependentOfIntegratorChoice(t *testing.T) {
	for _, method := range []integrator.Method{integrator.Simple, integrator.Merged, integrator.Projective} {
		layer := testLayer(t)
		integ, err := integrator.New(method, integrator.Config{MaxRayLength: 4}, layer)
		test.That(t, err, test.ShouldBeNil)
		p := New(Config{SubmapMaxDistanceTravelled: voxconfig.Set(2.0), WorldFrame: "world"}, layer, integ, identityLookup{}, golog.NewTestLogger(t), false)

		now := time.Unix(0, 0)
		var cuts []int
		for _, x := range []float64{0, 1.0, 1.9, 2.1, 2.2} {
			cut, n := p.CheckSubmapCut(now, r3.Vector{X: x})
			if cut {
				cuts = append(cuts, n)
			}
			now = now.Add(time.Second)
		}
		test.That(t, cuts, test.ShouldResemble, []int{1})
	}
}

// Property 8: under sustained transform-lookup failure the raw-message queue
// never exceeds the overflow bound, regardless of how many messages arrive.
type failingLookup struct{}

func (failingLookup) Pose(ctx context.Context, frameID, world string, at time.Time) (spatial.Pose, error) {
	return spatial.Pose{}, fmt.Errorf("no transform available")
}

func TestQueueNeverExceedsOverflowBoundUnderTransformFailure(t *testing.T) {
	layer := testLayer(t)
	integ, err := integrator.New(integrator.Simple, integrator.Config{MaxRayLength: 4}, layer)
	test.That(t, err, test.ShouldBeNil)
	p := New(Config{WorldFrame: "world"}, layer, integ, failingLookup{}, golog.NewTestLogger(t), false)

	base := time.Unix(0, 0)
	for i := 0; i < 50; i++ {
		at := base.Add(time.Duration(i) * time.Second)
		p.Enqueue(pcdMessage(at, "camera", 1.0))
		test.That(t, p.Drain(context.Background()), test.ShouldBeNil)
		test.That(t, p.QueueLen(), test.ShouldBeLessThanOrEqualTo, maxTransformRetryQueueLen)
	}
}

// Property 5: pruning never removes a block that still holds an observed
// (weight > 0) voxel, even after a deintegration pass has run.
func TestPruneNeverRemovesBlockWithObservedVoxel(t *testing.T) {
	p, layer := newTestPipeline(t, Config{
		DeintegrationMaxQueueLength: voxconfig.Set(1),
	})
	ctx := context.Background()

	p.Enqueue(pcdMessage(time.Unix(0, 0), "camera", 1.0))
	test.That(t, p.Drain(ctx), test.ShouldBeNil)
	p.Enqueue(pcdMessage(time.Unix(1, 0), "camera", 1.2))
	test.That(t, p.Drain(ctx), test.ShouldBeNil)

	test.That(t, p.NeedsPruning(), test.ShouldBeTrue)

	var observedBlocks []tsdf.Index
	for _, idx := range layer.AllIndices() {
		b, ok := layer.GetBlock(idx)
		if !ok {
			continue
		}
		for i := 0; i < b.NumVoxels(); i++ {
			if b.VoxelByLinear(i).Observed() {
				observedBlocks = append(observedBlocks, idx)
				break
			}
		}
	}
	p.Prune(nil)

	for _, idx := range observedBlocks {
		_, ok := layer.GetBlock(idx)
		test.That(t, ok, test.ShouldBeTrue)
	}
	test.That(t, layer, test.ShouldNotBeNil)
}

func TestDrainProcessesAndClearsQueueOnSuccess(t *testing.T) {
	p, layer := newTestPipeline(t, Config{})
	p.Enqueue(pcdMessage(time.Unix(0, 0), "camera", 1.0))
	test.That(t, p.Drain(context.Background()), test.ShouldBeNil)
	test.That(t, p.QueueLen(), test.ShouldEqual, 0)
	test.That(t, layer.NumBlocks(), test.ShouldBeGreaterThan, 0)
}

func TestClearLayerEmptiesBlocksAndDeintegrationQueue(t *testing.T) {
	p, layer := newTestPipeline(t, Config{DeintegrationMaxQueueLength: voxconfig.Set(100)})
	p.Enqueue(pcdMessage(time.Unix(0, 0), "camera", 1.0))
	test.That(t, p.Drain(context.Background()), test.ShouldBeNil)
	test.That(t, layer.NumBlocks(), test.ShouldBeGreaterThan, 0)

	p.ClearLayer()
	test.That(t, layer.NumBlocks(), test.ShouldEqual, 0)
	test.That(t, len(p.Trajectory()), test.ShouldEqual, 0)
}

// Property: enabling ICP broadcasts icp_transform, icp_corrected, and
// pose_corrected on the configured Bus for every message processed, and a
// disabled Bus (nil) never panics.
func TestProcessMessageWithICPEnabledPublishesOnBus(t *testing.T) {
	layer := testLayer(t)
	integ, err := integrator.New(integrator.Projective, integrator.Config{
		MaxRayLength: 4,
		Camera: integrator.Camera{
			Width: 32, Height: 32, HFovRad: 3.0, VFovRad: 3.0, MinRange: 0.05, MaxRange: 4,
		},
	}, layer)
	test.That(t, err, test.ShouldBeNil)

	bus := frame.NewBus(time.Minute)
	p := New(Config{WorldFrame: "world", EnableICP: true, Bus: bus}, layer, integ, identityLookup{}, golog.NewTestLogger(t), false)

	at := time.Unix(0, 0)
	p.Enqueue(pcdMessage(at, "camera", 1.0))
	test.That(t, p.Drain(context.Background()), test.ShouldBeNil)

	for _, frameID := range []string{"icp_transform", "icp_corrected", "pose_corrected"} {
		_, err := bus.Pose(context.Background(), frameID, "world", at)
		test.That(t, err, test.ShouldBeNil)
	}
}

func TestProcessMessageWithNilBusDoesNotPanic(t *testing.T) {
	p, _ := newTestPipeline(t, Config{EnableICP: true})
	p.Enqueue(pcdMessage(time.Unix(0, 0), "camera", 1.0))
	test.That(t, p.Drain(context.Background()), test.ShouldBeNil)
}

var _ frame.Lookup = identityLookup{}
