package tsdf

import "github.com/golang/geo/r3"

// Index addresses one block in a layer's sparse grid by its integer
// 3-vector coordinate, in units of block-edge-lengths from the origin.
type Index struct {
	I, J, K int32
}

// Purpose names a downstream consumer that still needs to process a block.
// A block's marker set tracks which purposes are outstanding; markers are
// cleared by the consumer that acted on them, not by the producer.
type Purpose int

const (
	// MapUpdated marks a block dirty for the pruning pass.
	MapUpdated Purpose = iota
	// MeshUpdated marks a block dirty for the mesh integrator.
	MeshUpdated
	// EsdfUpdated is reserved for a future Euclidean signed distance field
	// derivation; no component in this module sets or reads it, but the
	// marker slot is carried so a downstream consumer can be added without
	// changing the Block layout.
	EsdfUpdated
)

// Block is a fixed-edge cube of voxelsPerSide^3 voxels, addressed within a
// Layer by Index.
type Block struct {
	index         Index
	voxelsPerSide int
	voxelSize     float64
	voxels        []Voxel
	hasData       bool
	markers       map[Purpose]bool
}

func newBlock(index Index, voxelsPerSide int, voxelSize float64) *Block {
	return &Block{
		index:         index,
		voxelsPerSide: voxelsPerSide,
		voxelSize:     voxelSize,
		voxels:        make([]Voxel, voxelsPerSide*voxelsPerSide*voxelsPerSide),
		markers:       make(map[Purpose]bool),
	}
}

// Index returns the block's grid coordinate.
func (b *Block) Index() Index { return b.index }

// VoxelsPerSide returns the configured block edge length in voxels.
func (b *Block) VoxelsPerSide() int { return b.voxelsPerSide }

// VoxelSize returns the edge length of one voxel, in meters.
func (b *Block) VoxelSize() float64 { return b.voxelSize }

// EdgeLength returns the edge length of the block, in meters.
func (b *Block) EdgeLength() float64 { return float64(b.voxelsPerSide) * b.voxelSize }

// HasData reports whether any voxel in the block has ever been touched.
func (b *Block) HasData() bool { return b.hasData }

// linearIndex converts local voxel coordinates (each in [0, voxelsPerSide))
// to the flat, row-major (x, y, z) offset into voxels.
func (b *Block) linearIndex(lx, ly, lz int) int {
	s := b.voxelsPerSide
	return lx + ly*s + lz*s*s
}

// Voxel returns a copy of the voxel at the given local coordinates. Callers
// at the block boundary (the mesher's neighbor skirt) must range-check
// first: Voxel does not check each coordinate, so an out-of-range
// coordinate whose flat offset still falls inside the block reads another
// voxel, and only an offset outside the block panics.
func (b *Block) Voxel(lx, ly, lz int) Voxel {
	return b.voxels[b.linearIndex(lx, ly, lz)]
}

// VoxelByLinear returns the voxel at a flat index in [0, NumVoxels()).
func (b *Block) VoxelByLinear(i int) Voxel {
	return b.voxels[i]
}

// NumVoxels returns the total number of voxels in the block.
func (b *Block) NumVoxels() int {
	return len(b.voxels)
}

// SetVoxel writes a voxel at the given local coordinates and marks the block
// as holding data.
func (b *Block) SetVoxel(lx, ly, lz int, v Voxel) {
	b.voxels[b.linearIndex(lx, ly, lz)] = v
	b.hasData = true
}

// InBounds reports whether local coordinates fall within the block.
func (b *Block) InBounds(lx, ly, lz int) bool {
	s := b.voxelsPerSide
	return lx >= 0 && lx < s && ly >= 0 && ly < s && lz >= 0 && lz < s
}

// Origin returns the world-space position of the block's lowest corner
// (local voxel (0,0,0)).
func (b *Block) Origin() r3.Vector {
	e := b.EdgeLength()
	return r3.Vector{X: float64(b.index.I) * e, Y: float64(b.index.J) * e, Z: float64(b.index.K) * e}
}

// Center returns the world-space position of the block's center.
func (b *Block) Center() r3.Vector {
	half := b.EdgeLength() / 2
	o := b.Origin()
	return r3.Vector{X: o.X + half, Y: o.Y + half, Z: o.Z + half}
}

// VoxelCenter returns the world-space position of the center of the voxel at
// the given local coordinates.
func (b *Block) VoxelCenter(lx, ly, lz int) r3.Vector {
	o := b.Origin()
	half := b.voxelSize / 2
	return r3.Vector{
		X: o.X + float64(lx)*b.voxelSize + half,
		Y: o.Y + float64(ly)*b.voxelSize + half,
		Z: o.Z + float64(lz)*b.voxelSize + half,
	}
}

// HasMarker reports whether the given purpose is outstanding on this block.
func (b *Block) HasMarker(p Purpose) bool {
	return b.markers[p]
}

// SetMarker marks the block dirty for the given purpose.
func (b *Block) SetMarker(p Purpose) {
	b.markers[p] = true
}

// ClearMarker clears the given purpose's dirty marker.
func (b *Block) ClearMarker(p Purpose) {
	delete(b.markers, p)
}
