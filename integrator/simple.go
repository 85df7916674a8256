package integrator

import (
	"context"
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/Kabilan-n/voxblox/spatial"
	"github.com/Kabilan-n/voxblox/tsdf"
)

// simpleIntegrator updates one voxel per point per ray step, independently
// for every point in the cloud. It is the most direct implementation of the
// update rule and does not support exact deintegration.
type simpleIntegrator struct {
	layer *tsdf.Layer
	cfg   Config
}

func (in *simpleIntegrator) SupportsDeintegrate() bool { return false }

func (in *simpleIntegrator) Integrate(
	ctx context.Context, tGC spatial.Pose, pointsC []r3.Vector, colors []color.NRGBA, isFreespace, deintegrate bool,
) error {
	if len(pointsC) != len(colors) {
		panic(errors.Errorf("points/colors length mismatch: %d vs %d", len(pointsC), len(colors)))
	}
	origin := tGC.Point()
	tau := in.layer.TruncationDistance()
	for i, pC := range pointsC {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := tGC.Transform(pC)
		integratePoint(in.layer, in.cfg, origin, p, colors[i], tau, isFreespace, deintegrate)
	}
	return nil
}
