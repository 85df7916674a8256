package frame

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/Kabilan-n/voxblox/spatial"
)

// StaticTree resolves fixed-mount sensor frames: each named frame has a
// single offset relative to world that never changes, so the requested
// timestamp is accepted but ignored.
type StaticTree struct {
	offsets map[string]spatial.Pose
}

// NewStaticTree builds a StaticTree from a frame-name to world-offset map.
func NewStaticTree(offsets map[string]spatial.Pose) *StaticTree {
	cp := make(map[string]spatial.Pose, len(offsets))
	for k, v := range offsets {
		cp[k] = v
	}
	return &StaticTree{offsets: cp}
}

// Pose implements Lookup. world is ignored; every StaticTree is defined
// relative to a single implicit world frame.
func (s *StaticTree) Pose(ctx context.Context, frameID, world string, at time.Time) (spatial.Pose, error) {
	p, ok := s.offsets[frameID]
	if !ok {
		return spatial.Pose{}, errors.Errorf("no static offset registered for frame %q", frameID)
	}
	return p, nil
}
