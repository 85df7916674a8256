package ingest

import (
	"image/color"
	"time"

	"github.com/golang/geo/r3"

	"github.com/Kabilan-n/voxblox/spatial"
)

// Packet is a PointcloudDeintegrationPacket: a retained, read-only snapshot
// of one successful integration, replayed with deintegrate=true when the
// sliding window's policy fires. Points/Colors are shared, immutable
// references, never mutated after enqueue.
type Packet struct {
	Timestamp   time.Time
	Pose        spatial.Pose
	Points      []r3.Vector
	Colors      []color.NRGBA
	IsFreespace bool
}
