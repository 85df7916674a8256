// Package submap builds and persists submap records: a full TSDF layer
// snapshot plus the robot trajectory held in the deintegration queue at cut time,
// grounded on voxblox_ros's TsdfServer submap-cut and createPath logic (see
// original_source/).
package submap

import (
	"time"

	"github.com/google/uuid"

	"github.com/Kabilan-n/voxblox/spatial"
	"github.com/Kabilan-n/voxblox/tsdf"
	"github.com/Kabilan-n/voxblox/wire"
)

// TrajectorySample is one {timestamp, pose} pair recorded in a submap's
// trajectory, sourced from the deintegration packet queue at cut time.
type TrajectorySample struct {
	Timestamp time.Time
	Pose      spatial.Pose
}

// Record is a self-contained snapshot cut at a submap boundary: the full
// layer (not only the blocks touched since the last submap) and the
// trajectory held in the ingest pipeline's deintegration queue at cut time.
type Record struct {
	ID          uuid.UUID
	Number      int
	RobotName   string
	FrameID     string
	Map         wire.LayerMessage
	Trajectory  []TrajectorySample
}

// Build snapshots layer and pairs it with trajectory into a new Record,
// serializing the full layer (per spec.md §4.F, not just recently-updated
// blocks) so the record stands alone. ID uniquely identifies this snapshot
// independent of Number, so two submaps cut after a counter reset (e.g.
// across a process restart) are never confused with each other downstream.
func Build(number int, robotName, frameID string, layer *tsdf.Layer, trajectory []TrajectorySample) Record {
	traj := make([]TrajectorySample, len(trajectory))
	copy(traj, trajectory)
	return Record{
		ID:         uuid.New(),
		Number:     number,
		RobotName:  robotName,
		FrameID:    frameID,
		Map:        wire.EncodeFull(layer),
		Trajectory: traj,
	}
}
