package server

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/Kabilan-n/voxblox/frame"
	"github.com/Kabilan-n/voxblox/ingest"
	"github.com/Kabilan-n/voxblox/integrator"
	"github.com/Kabilan-n/voxblox/spatial"
	"github.com/Kabilan-n/voxblox/voxconfig"
)

var testCamera = integrator.Camera{
	Width: 64, Height: 48, HFovRad: 3.0, VFovRad: 2.5, MinRange: 0.05, MaxRange: 4,
}

func newTestServer(t *testing.T, mutate func(*voxconfig.Config)) *Server {
	t.Helper()
	cfg, err := voxconfig.Decode(map[string]interface{}{
		"method": "projective",
	})
	test.That(t, err, test.ShouldBeNil)
	if mutate != nil {
		mutate(cfg)
	}
	_, err = cfg.Validate("test")
	test.That(t, err, test.ShouldBeNil)

	tree := frame.NewStaticTree(map[string]spatial.Pose{"camera": spatial.NewZeroPose()})

	s, err := New(cfg, testCamera, tree, "robot", "camera", golog.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return s
}

func pcdMessage(at time.Time, x float64) ingest.Message {
	raw := fmt.Sprintf("FIELDS x y z\n%f 0.0 0.0\n", x)
	return ingest.Message{Timestamp: at, FrameID: "camera", Raw: []byte(raw)}
}

func TestIngestPointcloudIntegratesIntoLayer(t *testing.T) {
	s := newTestServer(t, nil)
	err := s.IngestPointcloud(context.Background(), pcdMessage(time.Unix(0, 0), 1.0), r3.Vector{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, s.layer.NumBlocks(), test.ShouldBeGreaterThan, 0)
}

func TestClearMapEmptiesLayerAndMesh(t *testing.T) {
	s := newTestServer(t, nil)
	test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(time.Unix(0, 0), 1.0), r3.Vector{}), test.ShouldBeNil)
	test.That(t, s.layer.NumBlocks(), test.ShouldBeGreaterThan, 0)

	s.ClearMap()
	test.That(t, s.layer.NumBlocks(), test.ShouldEqual, 0)
}

func TestGenerateMeshProducesMeshBlocks(t *testing.T) {
	s := newTestServer(t, nil)
	for i := 0; i < 5; i++ {
		at := time.Unix(int64(i), 0)
		test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(at, 1.0), r3.Vector{}), test.ShouldBeNil)
	}
	s.GenerateMesh(false)
	test.That(t, len(s.meshLayer.AllIndices()), test.ShouldBeGreaterThan, 0)
}

func TestSaveMapWritesSubmapFiles(t *testing.T) {
	s := newTestServer(t, nil)
	test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(time.Unix(0, 0), 1.0), r3.Vector{}), test.ShouldBeNil)

	root := t.TempDir()
	test.That(t, s.SaveMap(root), test.ShouldBeNil)

	_, err := os.Stat(filepath.Join(root, "voxblox_submap_0", "volumetric_map.tsdf"))
	test.That(t, err, test.ShouldBeNil)
}

func TestFreespaceIngestRejectedWhenDisabled(t *testing.T) {
	s := newTestServer(t, nil)
	err := s.IngestFreespace(context.Background(), pcdMessage(time.Unix(0, 0), 1.0), r3.Vector{})
	test.That(t, err, test.ShouldNotBeNil)
}

func TestSubmapCutPersistsAndOptionallyClears(t *testing.T) {
	root := t.TempDir()
	s := newTestServer(t, func(c *voxconfig.Config) {
		c.SubmapMaxDistanceTravelled = voxconfig.Set(1.0)
		c.WriteSubmapsToDirectory = root
	})

	test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(time.Unix(0, 0), 1.0), r3.Vector{X: 0}), test.ShouldBeNil)
	test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(time.Unix(1, 0), 1.0), r3.Vector{X: 2}), test.ShouldBeNil)

	_, err := os.Stat(filepath.Join(root, "voxblox_submap_1"))
	test.That(t, err, test.ShouldBeNil)
	// No deintegration window is configured, so the cut clears the layer.
	test.That(t, s.layer.NumBlocks(), test.ShouldEqual, 0)
}

func TestSaveMapThenLoadMapRestoresBlocks(t *testing.T) {
	s := newTestServer(t, nil)
	test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(time.Unix(0, 0), 1.0), r3.Vector{}), test.ShouldBeNil)
	before := s.layer.NumBlocks()
	test.That(t, before, test.ShouldBeGreaterThan, 0)

	root := t.TempDir()
	test.That(t, s.SaveMap(root), test.ShouldBeNil)

	s.ClearMap()
	test.That(t, s.layer.NumBlocks(), test.ShouldEqual, 0)

	test.That(t, s.LoadMap(filepath.Join(root, "voxblox_submap_0")), test.ShouldBeNil)
	test.That(t, s.layer.NumBlocks(), test.ShouldEqual, before)
}

func TestGenerateMeshPublishesOnMeshTopic(t *testing.T) {
	s := newTestServer(t, nil)
	test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(time.Unix(0, 0), 1.0), r3.Vector{}), test.ShouldBeNil)

	sub := s.MeshTopic().Subscribe()
	s.GenerateMesh(false)

	select {
	case delta := <-sub.C():
		test.That(t, delta.FullReplace, test.ShouldBeTrue)
	default:
		t.Fatal("expected a published mesh delta on the mesh topic")
	}
}

func TestGenerateMeshIncrementalPublishesNonFullReplace(t *testing.T) {
	s := newTestServer(t, nil)
	test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(time.Unix(0, 0), 1.0), r3.Vector{}), test.ShouldBeNil)

	sub := s.MeshTopic().Subscribe()
	s.GenerateMesh(true)

	select {
	case delta := <-sub.C():
		test.That(t, delta.FullReplace, test.ShouldBeFalse)
	default:
		t.Fatal("expected a published mesh delta on the mesh topic")
	}
}

func TestSubmapCutPublishesOnSubmapTopics(t *testing.T) {
	root := t.TempDir()
	s := newTestServer(t, func(c *voxconfig.Config) {
		c.SubmapMaxDistanceTravelled = voxconfig.Set(1.0)
		c.WriteSubmapsToDirectory = root
	})

	recSub := s.SubmapTopic().Subscribe()
	writtenSub := s.SubmapWrittenTopic().Subscribe()

	test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(time.Unix(0, 0), 1.0), r3.Vector{X: 0}), test.ShouldBeNil)
	test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(time.Unix(1, 0), 1.0), r3.Vector{X: 2}), test.ShouldBeNil)

	select {
	case rec := <-recSub.C():
		test.That(t, rec.Number, test.ShouldEqual, 1)
	default:
		t.Fatal("expected a published submap record on submap_out")
	}
	select {
	case path := <-writtenSub.C():
		test.That(t, path, test.ShouldNotBeBlank)
	default:
		t.Fatal("expected a published path on new_submap_written_to_disk")
	}
}

func TestPublishTsdfPointcloudIncludesOffSurfaceVoxels(t *testing.T) {
	s := newTestServer(t, nil)
	for i := 0; i < 5; i++ {
		at := time.Unix(int64(i), 0)
		test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(at, 1.0), r3.Vector{}), test.ShouldBeNil)
	}

	sub := s.TsdfPointcloudTopic().Subscribe()
	all := s.PublishTsdfPointcloud()
	surface := s.PublishPointclouds()
	test.That(t, all.Len(), test.ShouldBeGreaterThanOrEqualTo, surface.Len())

	select {
	case got := <-sub.C():
		test.That(t, got.Len(), test.ShouldEqual, all.Len())
	default:
		t.Fatal("expected a published point cloud on the tsdf_pointcloud topic")
	}
}

func TestPublishTsdfSliceHonorsSliceLevel(t *testing.T) {
	s := newTestServer(t, func(c *voxconfig.Config) {
		c.SliceLevel = 1000
	})
	test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(time.Unix(0, 0), 1.0), r3.Vector{}), test.ShouldBeNil)

	cloud := s.PublishTsdfSlice()
	test.That(t, cloud.Len(), test.ShouldEqual, 0)
}

func TestPublishOccupancyMarkersReportsBlockCenters(t *testing.T) {
	s := newTestServer(t, nil)
	for i := 0; i < 5; i++ {
		at := time.Unix(int64(i), 0)
		test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(at, 1.0), r3.Vector{}), test.ShouldBeNil)
	}

	sub := s.OccupancyMarkerTopic().Subscribe()
	marker := s.PublishOccupancyMarkers()
	test.That(t, marker.EdgeLength, test.ShouldBeGreaterThan, 0)

	select {
	case got := <-sub.C():
		test.That(t, len(got.Centers), test.ShouldEqual, len(marker.Centers))
	default:
		t.Fatal("expected a published marker set on the occupancy_marker topic")
	}
}

func TestPublishReprojectedPointcloudReturnsPointsForProjectiveIntegrator(t *testing.T) {
	s := newTestServer(t, nil)
	test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(time.Unix(0, 0), 1.0), r3.Vector{}), test.ShouldBeNil)

	sub := s.ReprojectedPointcloudTopic().Subscribe()
	points := s.PublishReprojectedPointcloud()
	test.That(t, len(points), test.ShouldBeGreaterThan, 0)

	select {
	case got := <-sub.C():
		test.That(t, len(got), test.ShouldEqual, len(points))
	default:
		t.Fatal("expected a published point set on the reprojected_pointcloud topic")
	}
}

func TestPublishPointcloudsExtractsNearSurfaceVoxels(t *testing.T) {
	s := newTestServer(t, nil)
	// The return's pixel covers voxel centers from x=1.15 outward, so a
	// surface at 1.2 lies within the near-surface band of two of them.
	for i := 0; i < 5; i++ {
		at := time.Unix(int64(i), 0)
		test.That(t, s.IngestPointcloud(context.Background(), pcdMessage(at, 1.2), r3.Vector{}), test.ShouldBeNil)
	}

	sub := s.PointcloudTopic().Subscribe()
	cloud := s.PublishPointclouds()
	test.That(t, cloud.Len(), test.ShouldBeGreaterThan, 0)
	test.That(t, len(cloud.Points), test.ShouldEqual, len(cloud.Colors))

	select {
	case got := <-sub.C():
		test.That(t, got.Len(), test.ShouldEqual, cloud.Len())
	default:
		t.Fatal("expected a published point cloud on the topic")
	}
}
