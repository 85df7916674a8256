package submap

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.viam.com/test"

	"github.com/Kabilan-n/voxblox/spatial"
	"github.com/Kabilan-n/voxblox/tsdf"
)

func TestBuildSnapshotsFullLayer(t *testing.T) {
	layer := tsdf.NewLayer(tsdf.Config{VoxelSize: 0.1, VoxelsPerSide: 8, TruncationDistance: 0.3, MaxWeight: 1e4})
	layer.AllocateBlock(tsdf.Index{I: 1}).SetVoxel(0, 0, 0, tsdf.Voxel{Weight: 1})

	traj := []TrajectorySample{{Timestamp: time.Unix(1, 0), Pose: spatial.NewZeroPose()}}
	rec := Build(3, "robot", "camera", layer, traj)

	test.That(t, rec.Number, test.ShouldEqual, 3)
	test.That(t, rec.ID, test.ShouldNotEqual, uuid.Nil)
	test.That(t, len(rec.Map.Blocks), test.ShouldEqual, 1)
	test.That(t, rec.Map.FullReplace, test.ShouldBeTrue)
	test.That(t, len(rec.Trajectory), test.ShouldEqual, 1)
}

func TestWriteToDirectoryCreatesExpectedFiles(t *testing.T) {
	root := t.TempDir()
	layer := tsdf.NewLayer(tsdf.Config{VoxelSize: 0.1, VoxelsPerSide: 8, TruncationDistance: 0.3, MaxWeight: 1e4})
	layer.AllocateBlock(tsdf.Index{}).SetVoxel(0, 0, 0, tsdf.Voxel{Weight: 1})
	rec := Build(7, "robot", "camera", layer, []TrajectorySample{{Timestamp: time.Now(), Pose: spatial.NewZeroPose()}})

	dir, err := WriteToDirectory(root, rec)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, dir, test.ShouldEqual, filepath.Join(root, "voxblox_submap_7"))

	_, err = os.Stat(filepath.Join(dir, "volumetric_map.tsdf"))
	test.That(t, err, test.ShouldBeNil)
	_, err = os.Stat(filepath.Join(dir, "robot_trajectory.traj"))
	test.That(t, err, test.ShouldBeNil)
}
