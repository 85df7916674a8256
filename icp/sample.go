package icp

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/Kabilan-n/voxblox/tsdf"
)

// voxelAtPoint looks up the voxel containing world point p, independent of
// which block it falls in.
func voxelAtPoint(layer *tsdf.Layer, p r3.Vector) (tsdf.Voxel, bool) {
	idx := layer.IndexForPoint(p)
	b, ok := layer.GetBlock(idx)
	if !ok {
		return tsdf.Voxel{}, false
	}
	lx, ly, lz := layer.VoxelCoordsForPoint(p, idx)
	if !b.InBounds(lx, ly, lz) {
		return tsdf.Voxel{}, false
	}
	return b.Voxel(lx, ly, lz), true
}

// sampleDistance trilinearly interpolates the stored distance field at
// world point p over the 8 surrounding voxel centers, requiring every
// corner to be observed (w > 0); an unobserved corner means the surface
// estimate there is meaningless, so the whole sample is rejected.
func sampleDistance(layer *tsdf.Layer, p r3.Vector) (float64, bool) {
	vs := layer.VoxelSize()
	half := vs / 2
	base := r3.Vector{
		X: math.Floor((p.X-half)/vs)*vs + half,
		Y: math.Floor((p.Y-half)/vs)*vs + half,
		Z: math.Floor((p.Z-half)/vs)*vs + half,
	}
	tx := (p.X - base.X) / vs
	ty := (p.Y - base.Y) / vs
	tz := (p.Z - base.Z) / vs

	var corners [8]float64
	i := 0
	for dz := 0.0; dz <= 1; dz++ {
		for dy := 0.0; dy <= 1; dy++ {
			for dx := 0.0; dx <= 1; dx++ {
				corner := r3.Vector{X: base.X + dx*vs, Y: base.Y + dy*vs, Z: base.Z + dz*vs}
				v, ok := voxelAtPoint(layer, corner)
				if !ok || !v.Observed() {
					return 0, false
				}
				corners[i] = v.Distance
				i++
			}
		}
	}

	// corners order: (x,y,z) with x fastest, matching the loop nesting above
	// (dx innermost).
	c00 := lerp(corners[0], corners[1], tx)
	c10 := lerp(corners[2], corners[3], tx)
	c01 := lerp(corners[4], corners[5], tx)
	c11 := lerp(corners[6], corners[7], tx)
	c0 := lerp(c00, c10, ty)
	c1 := lerp(c01, c11, ty)
	return lerp(c0, c1, tz), true
}

func lerp(a, b, t float64) float64 { return a + (b-a)*t }

// sampleTrilinear returns the interpolated distance and its gradient
// (estimated by central differences of the trilinear sample itself) at
// world point p.
func sampleTrilinear(layer *tsdf.Layer, p r3.Vector) (float64, r3.Vector, bool) {
	d, ok := sampleDistance(layer, p)
	if !ok {
		return 0, r3.Vector{}, false
	}
	eps := layer.VoxelSize() / 4
	dxPlus, ok1 := sampleDistance(layer, p.Add(r3.Vector{X: eps}))
	dxMinus, ok2 := sampleDistance(layer, p.Sub(r3.Vector{X: eps}))
	dyPlus, ok3 := sampleDistance(layer, p.Add(r3.Vector{Y: eps}))
	dyMinus, ok4 := sampleDistance(layer, p.Sub(r3.Vector{Y: eps}))
	dzPlus, ok5 := sampleDistance(layer, p.Add(r3.Vector{Z: eps}))
	dzMinus, ok6 := sampleDistance(layer, p.Sub(r3.Vector{Z: eps}))
	if !ok1 || !ok2 || !ok3 || !ok4 || !ok5 || !ok6 {
		return 0, r3.Vector{}, false
	}
	grad := r3.Vector{
		X: (dxPlus - dxMinus) / (2 * eps),
		Y: (dyPlus - dyMinus) / (2 * eps),
		Z: (dzPlus - dzMinus) / (2 * eps),
	}
	if grad.Norm() < 1e-9 {
		return 0, r3.Vector{}, false
	}
	return d, grad.Normalize(), true
}
