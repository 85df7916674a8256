package integrator

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"

	"github.com/Kabilan-n/voxblox/tsdf"
)

// integratePoint ray-casts a single observed point into the layer, applying
// the shared update kernel to every voxel touched between the sensor and
// distance (point + tau), and sets the kMap/kMesh markers on every block it
// touches.
func integratePoint(
	layer *tsdf.Layer, cfg Config,
	origin, point r3.Vector, c color.NRGBA,
	tau float64, isFreespace, deintegrate bool,
) {
	rangeToSensor := point.Sub(origin).Norm()
	if rangeToSensor < 1e-9 {
		return
	}
	maxLen := cfg.MaxRayLength
	toDist := rangeToSensor + tau
	if maxLen > 0 && toDist > maxLen {
		toDist = maxLen
	}
	if toDist <= 0 {
		return
	}

	rayDir := point.Sub(origin).Mul(1 / rangeToSensor)
	for _, hit := range castRay(layer, origin, point, 0, toDist) {
		voxelPos := layer.AllocateBlock(hit.block).VoxelCenter(hit.lx, hit.ly, hit.lz)
		sdf := signedDistance(point, voxelPos, rayDir, tau)
		if isFreespace && sdf <= cfg.FreespaceTruncationDist {
			continue
		}
		wPoint := pointWeight(cfg.WeightPolicy, rangeToSensor, sdf, tau)
		b := layer.AllocateBlock(hit.block)
		updated := applyUpdate(b.Voxel(hit.lx, hit.ly, hit.lz), sdf, wPoint, c, deintegrate, layer.MaxWeight())
		b.SetVoxel(hit.lx, hit.ly, hit.lz, updated)
		b.SetMarker(tsdf.MapUpdated)
		b.SetMarker(tsdf.MeshUpdated)
	}
}

// integrateGroup ray-casts one cluster of points (already averaged into one
// representative sample) like integratePoint, with each voxel update's
// weight scaled by the cluster's point count; used by the merged flavor to
// collapse redundant per-point work.
func integrateGroup(
	layer *tsdf.Layer, cfg Config,
	origin, avgPoint r3.Vector, avgColor color.NRGBA, count int,
	tau float64, isFreespace, deintegrate bool,
) {
	rangeToSensor := avgPoint.Sub(origin).Norm()
	if rangeToSensor < 1e-9 {
		return
	}
	maxLen := cfg.MaxRayLength
	toDist := rangeToSensor + tau
	if maxLen > 0 && toDist > maxLen {
		toDist = maxLen
	}
	if toDist <= 0 {
		return
	}
	rayDir := avgPoint.Sub(origin).Mul(1 / rangeToSensor)
	weightScale := float64(count)
	for _, hit := range castRay(layer, origin, avgPoint, 0, toDist) {
		voxelPos := layer.AllocateBlock(hit.block).VoxelCenter(hit.lx, hit.ly, hit.lz)
		sdf := signedDistance(avgPoint, voxelPos, rayDir, tau)
		if isFreespace && sdf <= cfg.FreespaceTruncationDist {
			continue
		}
		wPoint := pointWeight(cfg.WeightPolicy, rangeToSensor, sdf, tau) * weightScale
		b := layer.AllocateBlock(hit.block)
		updated := applyUpdate(b.Voxel(hit.lx, hit.ly, hit.lz), sdf, wPoint, avgColor, deintegrate, layer.MaxWeight())
		b.SetVoxel(hit.lx, hit.ly, hit.lz, updated)
		b.SetMarker(tsdf.MapUpdated)
		b.SetMarker(tsdf.MeshUpdated)
	}
}

// roundVec truncates a vector's components toward the voxel grid, used only
// to key the merge groups (not for the actual update math).
func roundVec(v r3.Vector, voxelSize float64) [3]int64 {
	return [3]int64{
		int64(math.Floor(v.X / voxelSize)),
		int64(math.Floor(v.Y / voxelSize)),
		int64(math.Floor(v.Z / voxelSize)),
	}
}
