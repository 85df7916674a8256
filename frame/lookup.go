// Package frame resolves a sensor frame into the world frame at a given
// timestamp, grounded on the teacher's referenceframe transform usage in
// services/slam.
package frame

import (
	"context"
	"time"

	"github.com/Kabilan-n/voxblox/spatial"
)

// Lookup resolves the pose of frame relative to world at time t. It returns
// an error (never a panic) on a miss or a stale timestamp, matching the
// "transient transform failure" error-taxonomy entry; callers retry by
// re-queueing rather than treating the error as fatal.
type Lookup interface {
	Pose(ctx context.Context, frameID, world string, at time.Time) (spatial.Pose, error)
}
