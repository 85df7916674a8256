package integrator

import (
	"context"
	"image/color"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/Kabilan-n/voxblox/spatial"
	"github.com/Kabilan-n/voxblox/tsdf"
)

// mergedIntegrator groups points that land in the same surface voxel and
// casts one ray per group, cutting redundant work on dense clouds. The end
// state after a full cloud is independent of intra-cloud order, because the
// weighted mean update is commutative. Does not support exact deintegration:
// the grouping makes the update a function of the whole cloud, not of a
// single (pose, voxel) pair.
type mergedIntegrator struct {
	layer *tsdf.Layer
	cfg   Config
}

func (in *mergedIntegrator) SupportsDeintegrate() bool { return false }

type pointGroup struct {
	sum   r3.Vector
	color [4]float64
	count int
}

func (in *mergedIntegrator) Integrate(
	ctx context.Context, tGC spatial.Pose, pointsC []r3.Vector, colors []color.NRGBA, isFreespace, deintegrate bool,
) error {
	if len(pointsC) != len(colors) {
		panic(errors.Errorf("points/colors length mismatch: %d vs %d", len(pointsC), len(colors)))
	}
	origin := tGC.Point()
	tau := in.layer.TruncationDistance()
	voxelSize := in.layer.VoxelSize()

	groups := make(map[[3]int64]*pointGroup)
	order := make([][3]int64, 0)
	for i, pC := range pointsC {
		if err := ctx.Err(); err != nil {
			return err
		}
		p := tGC.Transform(pC)
		key := roundVec(p, voxelSize)
		g, ok := groups[key]
		if !ok {
			g = &pointGroup{}
			groups[key] = g
			order = append(order, key)
		}
		g.sum = g.sum.Add(p)
		g.color[0] += float64(colors[i].R)
		g.color[1] += float64(colors[i].G)
		g.color[2] += float64(colors[i].B)
		g.color[3] += float64(colors[i].A)
		g.count++
	}

	for _, key := range order {
		g := groups[key]
		n := float64(g.count)
		avg := g.sum.Mul(1 / n)
		avgColor := color.NRGBA{
			R: uint8(g.color[0] / n), G: uint8(g.color[1] / n), B: uint8(g.color[2] / n), A: uint8(g.color[3] / n),
		}
		integrateGroup(in.layer, in.cfg, origin, avg, avgColor, g.count, tau, isFreespace, deintegrate)
	}
	return nil
}
