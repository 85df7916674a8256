package integrator

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"

	"github.com/Kabilan-n/voxblox/tsdf"
)

// clip restricts v to [-bound, +bound].
func clip(v, bound float64) float64 {
	if v > bound {
		return bound
	}
	if v < -bound {
		return -bound
	}
	return v
}

// signedDistance computes sdf = (pointPos - voxelPos) . rayDir, clipped to
// [-truncDist, +truncDist], per spec.md §4.B.
func signedDistance(pointPos, voxelPos, rayDir r3.Vector, truncDist float64) float64 {
	return clip(pointPos.Sub(voxelPos).Dot(rayDir), truncDist)
}

// applyUpdate implements the shared voxel update rule used by every
// integrator flavor: a weighted running mean of distance and color, with
// weight accumulating (integrate) or draining (deintegrate), capped at
// maxWeight and floored at zero.
func applyUpdate(v tsdf.Voxel, sdf, wPoint float64, c color.NRGBA, deintegrate bool, maxWeight float64) tsdf.Voxel {
	if wPoint <= 0 {
		return v
	}
	if deintegrate {
		newWeight := v.Weight - wPoint
		if newWeight < 0 {
			newWeight = 0
		}
		if newWeight == 0 {
			return tsdf.Voxel{}
		}
		// The inverse of a weighted-mean update: removing a sample with
		// weight wPoint restores the mean the accumulator had before that
		// sample was folded in.
		d := (v.Distance*v.Weight - sdf*wPoint) / newWeight
		col := blendColor(v.Color, v.Weight, c, -wPoint, newWeight)
		return tsdf.Voxel{Distance: d, Weight: newWeight, Color: col}
	}

	newWeight := v.Weight + wPoint
	if newWeight > maxWeight {
		newWeight = maxWeight
	}
	var d float64
	if v.Weight+wPoint == 0 {
		d = sdf
	} else {
		d = (v.Distance*v.Weight + sdf*wPoint) / (v.Weight + wPoint)
	}
	col := blendColor(v.Color, v.Weight, c, wPoint, newWeight)
	return tsdf.Voxel{Distance: d, Weight: newWeight, Color: col}
}

// blendColor computes the weighted mean of two colors. When the resulting
// weight is zero the color is meaningless and zeroed, matching the voxel
// invariant that an unobserved voxel's color is undefined.
func blendColor(c1 color.NRGBA, w1 float64, c2 color.NRGBA, w2, newWeight float64) color.NRGBA {
	if newWeight <= 0 {
		return color.NRGBA{}
	}
	r := (float64(c1.R)*w1 + float64(c2.R)*w2) / newWeight
	g := (float64(c1.G)*w1 + float64(c2.G)*w2) / newWeight
	b := (float64(c1.B)*w1 + float64(c2.B)*w2) / newWeight
	a := (float64(c1.A)*w1 + float64(c2.A)*w2) / newWeight
	return color.NRGBA{R: clampByte(r), G: clampByte(g), B: clampByte(b), A: clampByte(a)}
}

func clampByte(v float64) uint8 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return uint8(math.Round(v))
}
