package integrator

import (
	"context"
	"image/color"

	"github.com/golang/geo/r3"

	"github.com/Kabilan-n/voxblox/spatial"
)

// Integrator is the shared contract across the simple, merged, and
// projective flavors (spec.md §9 "Polymorphic integrator" design note: one
// contract and one update kernel, modeled as a capability set rather than
// inheritance).
type Integrator interface {
	// Integrate projects pointsC (in the sensor frame) into the layer at
	// pose TGC, blending distance/weight/color under the configured
	// truncation and weight policy. If deintegrate is true, the same
	// update is applied with its weight sign reversed, undoing a prior
	// integration. isFreespace restricts updates to far-field voxels only
	// (sdf > tau_freespace).
	Integrate(ctx context.Context, tGC spatial.Pose, pointsC []r3.Vector, colors []color.NRGBA, isFreespace, deintegrate bool) error

	// SupportsDeintegrate reports whether Integrate(deintegrate=true)
	// yields an exact inverse. Only the projective flavor returns true. The
	// server consults it when deciding whether a submap cut clears the
	// layer; the sliding window itself is switched off for non-projective
	// methods by voxconfig.Config.Validate.
	SupportsDeintegrate() bool
}
