// Package tsdf implements the sparse, block-structured truncated signed
// distance field: the core data model that the integrator writes into and
// the mesher reads from.
package tsdf

import "image/color"

// Voxel stores the fused distance/weight/color estimate at one grid cell.
//
// Invariants: Weight is always >= 0. Distance's magnitude never exceeds the
// layer's truncation distance while Weight > 0. A voxel with Weight == 0 is
// "unobserved"; its Distance and Color are meaningless and must not be read.
type Voxel struct {
	Distance float64
	Weight   float64
	Color    color.NRGBA
}

// Observed reports whether this voxel has ever received a positive-weight
// update.
func (v Voxel) Observed() bool {
	return v.Weight > 0
}
