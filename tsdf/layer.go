package tsdf

import (
	"math"
	"sync"

	"github.com/golang/geo/r3"
)

// Layer is the sparse mapping from block index to block that backs the TSDF
// (the mesh layer is the separate meshing.Layer type). A Layer is safe for
// concurrent use; callers still must not mutate the world from more than one
// goroutine at a time per spec.md's single-dispatch-thread concurrency
// model, but read-only access (e.g. visualization snapshots) may overlap
// writers of a different region.
type Layer struct {
	mu            sync.RWMutex
	blocks        map[Index]*Block
	voxelSize     float64
	voxelsPerSide int
	truncDist     float64
	maxWeight     float64
}

// Config collects the layer-wide constants fixed at construction, per
// spec.md §3's invariant that voxel size and block side length are uniform
// across a layer.
type Config struct {
	VoxelSize          float64
	VoxelsPerSide      int
	TruncationDistance float64
	MaxWeight          float64
}

// NewLayer constructs an empty layer with the given geometry and integrator
// constants.
func NewLayer(cfg Config) *Layer {
	return &Layer{
		blocks:        make(map[Index]*Block),
		voxelSize:     cfg.VoxelSize,
		voxelsPerSide: cfg.VoxelsPerSide,
		truncDist:     cfg.TruncationDistance,
		maxWeight:     cfg.MaxWeight,
	}
}

// VoxelSize returns the configured voxel edge length.
func (l *Layer) VoxelSize() float64 { return l.voxelSize }

// VoxelsPerSide returns the configured block edge length in voxels.
func (l *Layer) VoxelsPerSide() int { return l.voxelsPerSide }

// BlockEdgeLength returns the edge length of one block, in meters.
func (l *Layer) BlockEdgeLength() float64 { return float64(l.voxelsPerSide) * l.voxelSize }

// TruncationDistance returns the layer-wide truncation distance (tau).
func (l *Layer) TruncationDistance() float64 { return l.truncDist }

// MaxWeight returns the layer-wide maximum voxel weight (w_max).
func (l *Layer) MaxWeight() float64 { return l.maxWeight }

// tfloordiv is truncated-toward-negative-infinity integer division, so that
// negative positions map to the block/voxel that actually contains them
// rather than rounding toward zero. A point exactly on a boundary belongs
// to the block or voxel whose lower corner it is (the higher of the two
// indices), e.g. -0.8 with size 0.8 maps to -1.
func tfloordiv(v, size float64) int32 {
	return int32(math.Floor(v / size))
}

// IndexForPoint returns the block index containing the given world point.
func (l *Layer) IndexForPoint(p r3.Vector) Index {
	e := l.BlockEdgeLength()
	return Index{I: tfloordiv(p.X, e), J: tfloordiv(p.Y, e), K: tfloordiv(p.Z, e)}
}

// VoxelCoordsForPoint returns the local (within-block) voxel coordinates for
// a world point, given the block index that already contains it.
func (l *Layer) VoxelCoordsForPoint(p r3.Vector, idx Index) (int, int, int) {
	e := l.BlockEdgeLength()
	origin := r3.Vector{X: float64(idx.I) * e, Y: float64(idx.J) * e, Z: float64(idx.K) * e}
	rel := p.Sub(origin)
	lx := int(math.Floor(rel.X / l.voxelSize))
	ly := int(math.Floor(rel.Y / l.voxelSize))
	lz := int(math.Floor(rel.Z / l.voxelSize))
	return lx, ly, lz
}

// AllocateBlock returns the block at index, creating a zero-initialized one
// if absent. Idempotent.
func (l *Layer) AllocateBlock(idx Index) *Block {
	l.mu.Lock()
	defer l.mu.Unlock()
	b, ok := l.blocks[idx]
	if !ok {
		b = newBlock(idx, l.voxelsPerSide, l.voxelSize)
		l.blocks[idx] = b
	}
	return b
}

// GetBlock performs a read-only lookup, returning (nil, false) if absent.
func (l *Layer) GetBlock(idx Index) (*Block, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.blocks[idx]
	return b, ok
}

// RemoveBlock drops the block at idx. Subsequent lookups report absent.
func (l *Layer) RemoveBlock(idx Index) {
	l.mu.Lock()
	defer l.mu.Unlock()
	delete(l.blocks, idx)
}

// NumBlocks returns the number of allocated blocks.
func (l *Layer) NumBlocks() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.blocks)
}

// AllIndices returns every allocated block index. Order is unspecified.
func (l *Layer) AllIndices() []Index {
	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]Index, 0, len(l.blocks))
	for idx := range l.blocks {
		out = append(out, idx)
	}
	return out
}

// BlocksWithMarker returns the indices of blocks whose marker set includes
// purpose. It does not clear the marker.
func (l *Layer) BlocksWithMarker(purpose Purpose) []Index {
	l.mu.RLock()
	defer l.mu.RUnlock()
	var out []Index
	for idx, b := range l.blocks {
		if b.HasMarker(purpose) {
			out = append(out, idx)
		}
	}
	return out
}

// RemoveBlocksBeyond removes every block whose center exceeds radius L2
// distance from center, returning the removed indices so callers (e.g. the
// mesh layer) can clear paired state.
func (l *Layer) RemoveBlocksBeyond(center r3.Vector, radius float64) []Index {
	if math.IsInf(radius, 1) {
		return nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	var removed []Index
	for idx, b := range l.blocks {
		if b.Center().Sub(center).Norm() > radius {
			removed = append(removed, idx)
			delete(l.blocks, idx)
		}
	}
	return removed
}

// RemoveAllBlocks clears the entire layer, e.g. on clear_map or a non-smooth
// submap cut.
func (l *Layer) RemoveAllBlocks() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.blocks = make(map[Index]*Block)
}
