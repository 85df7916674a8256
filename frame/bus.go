package frame

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/Kabilan-n/voxblox/spatial"
)

// Stamp is one broadcast pose sample for a moving frame.
type Stamp struct {
	FrameID string
	At      time.Time
	Pose    spatial.Pose
}

// Bus resolves moving-base frames from the most recent broadcast sample,
// provided it lies within MaxAge of the requested timestamp (before or
// after it), grounded on the
// teacher's transform-broadcast usage for base poses.
type Bus struct {
	MaxAge time.Duration

	mu      sync.RWMutex
	latest  map[string]Stamp
}

// NewBus constructs an empty Bus with the given staleness tolerance.
func NewBus(maxAge time.Duration) *Bus {
	return &Bus{MaxAge: maxAge, latest: make(map[string]Stamp)}
}

// Publish records the most recent pose broadcast for a frame, overwriting
// any older sample.
func (b *Bus) Publish(s Stamp) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if cur, ok := b.latest[s.FrameID]; !ok || s.At.After(cur.At) {
		b.latest[s.FrameID] = s
	}
}

// Pose implements Lookup. world is ignored; every Bus broadcasts directly in
// the world frame.
func (b *Bus) Pose(ctx context.Context, frameID, world string, at time.Time) (spatial.Pose, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s, ok := b.latest[frameID]
	if !ok {
		return spatial.Pose{}, errors.Errorf("no transform broadcast yet for frame %q", frameID)
	}
	age := at.Sub(s.At)
	if age < 0 {
		age = -age
	}
	if b.MaxAge > 0 && age > b.MaxAge {
		return spatial.Pose{}, errors.Errorf("stale transform for frame %q: %s old", frameID, age)
	}
	return s.Pose, nil
}
