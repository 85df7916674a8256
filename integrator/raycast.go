package integrator

import (
	"github.com/golang/geo/r3"

	"github.com/Kabilan-n/voxblox/tsdf"
)

// rayHit names one voxel touched while walking a ray.
type rayHit struct {
	block  tsdf.Index
	lx, ly, lz int
}

// castRay walks the segment of the ray from the sensor origin through point,
// from distance fromDist to distance toDist (both clamped to >= 0), visiting
// each voxel along the way at roughly half-voxel resolution so no voxel is
// skipped. Consecutive duplicate voxels are collapsed so a single point
// contributes at most one update per voxel.
func castRay(layer *tsdf.Layer, origin, point r3.Vector, fromDist, toDist float64) []rayHit {
	if fromDist < 0 {
		fromDist = 0
	}
	if toDist <= fromDist {
		return nil
	}
	dir := point.Sub(origin)
	length := dir.Norm()
	if length < 1e-9 {
		return nil
	}
	dir = dir.Mul(1 / length)

	step := layer.VoxelSize() / 2
	if step <= 0 {
		return nil
	}

	var hits []rayHit
	var last tsdf.Index
	var llx, lly, llz int
	haveLast := false
	for d := fromDist; d <= toDist; d += step {
		p := origin.Add(dir.Mul(d))
		idx := layer.IndexForPoint(p)
		lx, ly, lz := layer.VoxelCoordsForPoint(p, idx)
		if haveLast && idx == last && lx == llx && ly == lly && lz == llz {
			continue
		}
		hits = append(hits, rayHit{block: idx, lx: lx, ly: ly, lz: lz})
		last, llx, lly, llz, haveLast = idx, lx, ly, lz, true
	}
	return hits
}
