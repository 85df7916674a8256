package integrator

import (
	"context"
	"image/color"
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/Kabilan-n/voxblox/spatial"
	"github.com/Kabilan-n/voxblox/tsdf"
)

// rangeImage is a z-buffered spherical projection of one point cloud,
// indexed by (row, col). It models both narrow RGB-D frustums and wide
// lidar sweeps depending on the configured field of view.
type rangeImage struct {
	cam    Camera
	depth  []float64 // 0 means "no return"
	colors []color.NRGBA
}

func newRangeImage(cam Camera, pointsC []r3.Vector, colors []color.NRGBA) *rangeImage {
	img := &rangeImage{
		cam:    cam,
		depth:  make([]float64, cam.Width*cam.Height),
		colors: make([]color.NRGBA, cam.Width*cam.Height),
	}
	for i, p := range pointsC {
		row, col, d, ok := img.project(p)
		if !ok {
			continue
		}
		idx := row*cam.Width + col
		if img.depth[idx] == 0 || d < img.depth[idx] {
			img.depth[idx] = d
			img.colors[idx] = colors[i]
		}
	}
	return img
}

// project maps a point in the sensor frame to (row, col, range, ok).
func (img *rangeImage) project(p r3.Vector) (int, int, float64, bool) {
	d := p.Norm()
	if d < 1e-9 {
		return 0, 0, 0, false
	}
	azimuth := math.Atan2(p.Y, p.X)
	elevation := math.Atan2(p.Z, math.Hypot(p.X, p.Y))

	if math.Abs(azimuth) > img.cam.HFovRad/2 || math.Abs(elevation) > img.cam.VFovRad/2 {
		return 0, 0, 0, false
	}
	col := int((azimuth/(img.cam.HFovRad/2) + 1) / 2 * float64(img.cam.Width))
	row := int((elevation/(img.cam.VFovRad/2) + 1) / 2 * float64(img.cam.Height))
	if col < 0 || col >= img.cam.Width || row < 0 || row >= img.cam.Height {
		return 0, 0, 0, false
	}
	return row, col, d, true
}

// sample returns the stored depth/color at the pixel a sensor-frame point
// projects to, and whether that pixel has a return.
func (img *rangeImage) sample(p r3.Vector) (float64, color.NRGBA, bool) {
	row, col, _, ok := img.project(p)
	if !ok {
		return 0, color.NRGBA{}, false
	}
	idx := row*img.cam.Width + col
	d := img.depth[idx]
	if d == 0 {
		return 0, color.NRGBA{}, false
	}
	return d, img.colors[idx], true
}

// unproject is the inverse of project: it reconstructs the sensor-frame
// point that produced pixel (row, col) at the stored depth d.
func (img *rangeImage) unproject(row, col int, d float64) r3.Vector {
	azimuth := (2*(float64(col)+0.5)/float64(img.cam.Width) - 1) * (img.cam.HFovRad / 2)
	elevation := (2*(float64(row)+0.5)/float64(img.cam.Height) - 1) * (img.cam.VFovRad / 2)
	horiz := d * math.Cos(elevation)
	return r3.Vector{
		X: horiz * math.Cos(azimuth),
		Y: horiz * math.Sin(azimuth),
		Z: d * math.Sin(elevation),
	}
}

// points returns every pixel with a return, unprojected back into the
// sensor frame, used as the reprojected-pointcloud debug output.
func (img *rangeImage) points() []r3.Vector {
	var out []r3.Vector
	for row := 0; row < img.cam.Height; row++ {
		for col := 0; col < img.cam.Width; col++ {
			d := img.depth[row*img.cam.Width+col]
			if d == 0 {
				continue
			}
			out = append(out, img.unproject(row, col, d))
		}
	}
	return out
}

// projectiveIntegrator treats the cloud as a range image and updates every
// voxel within the frustum and max range by projection, rather than
// ray-casting per point. Because the update for any voxel is a pure
// function of (pose, image, voxel), it is the only flavor that supports
// exact deintegration.
type projectiveIntegrator struct {
	layer *tsdf.Layer
	cfg   Config

	lastReprojected []r3.Vector
}

func (in *projectiveIntegrator) SupportsDeintegrate() bool { return true }

// ReprojectedPoints returns the world-frame points reconstructed from the
// range image built by the most recent Integrate call, satisfying the
// reprojector interface used by the reprojected_pointcloud debug view. Nil
// before the first Integrate call.
func (in *projectiveIntegrator) ReprojectedPoints() []r3.Vector {
	return in.lastReprojected
}

func (in *projectiveIntegrator) Integrate(
	ctx context.Context, tGC spatial.Pose, pointsC []r3.Vector, colors []color.NRGBA, isFreespace, deintegrate bool,
) error {
	if len(pointsC) != len(colors) {
		panic(errors.Errorf("points/colors length mismatch: %d vs %d", len(pointsC), len(colors)))
	}
	cam := in.cfg.Camera
	if cam.Width <= 0 || cam.Height <= 0 {
		return errors.New("projective integrator requires a configured camera")
	}
	img := newRangeImage(cam, pointsC, colors)

	if !isFreespace && !deintegrate {
		reproj := img.points()
		world := make([]r3.Vector, len(reproj))
		for i, pC := range reproj {
			world[i] = tGC.Transform(pC)
		}
		in.lastReprojected = world
	}

	tau := in.layer.TruncationDistance()
	maxRange := cam.MaxRange
	if maxRange <= 0 {
		maxRange = in.cfg.MaxRayLength
	}
	origin := tGC.Point()
	tInv := tGC.Inverse()

	for _, idx := range blockIndicesWithinRange(in.layer, origin, maxRange) {
		if err := ctx.Err(); err != nil {
			return err
		}
		b := in.layer.AllocateBlock(idx)
		s := b.VoxelsPerSide()
		for lz := 0; lz < s; lz++ {
			for ly := 0; ly < s; ly++ {
				for lx := 0; lx < s; lx++ {
					voxelWorld := b.VoxelCenter(lx, ly, lz)
					rangeToVoxel := voxelWorld.Sub(origin).Norm()
					if rangeToVoxel > maxRange || rangeToVoxel < cam.MinRange {
						continue
					}
					voxelSensor := tInv.Transform(voxelWorld)
					measured, c, ok := img.sample(voxelSensor)
					if !ok {
						continue
					}
					sdf := clip(measured-rangeToVoxel, tau)
					if isFreespace && sdf <= in.cfg.FreespaceTruncationDist {
						continue
					}
					wPoint := pointWeight(in.cfg.WeightPolicy, measured, sdf, tau)
					updated := applyUpdate(b.Voxel(lx, ly, lz), sdf, wPoint, c, deintegrate, in.layer.MaxWeight())
					b.SetVoxel(lx, ly, lz, updated)
				}
			}
		}
		if b.HasData() {
			b.SetMarker(tsdf.MapUpdated)
			b.SetMarker(tsdf.MeshUpdated)
		}
	}
	return nil
}

// blockIndicesWithinRange enumerates every block index whose bounding cube
// could contain a point within maxRange of origin.
func blockIndicesWithinRange(layer *tsdf.Layer, origin r3.Vector, maxRange float64) []tsdf.Index {
	edge := layer.BlockEdgeLength()
	if edge <= 0 || maxRange <= 0 {
		return nil
	}
	span := int(math.Ceil(maxRange/edge)) + 1
	center := layer.IndexForPoint(origin)

	var out []tsdf.Index
	for i := -span; i <= span; i++ {
		for j := -span; j <= span; j++ {
			for k := -span; k <= span; k++ {
				idx := tsdf.Index{I: center.I + int32(i), J: center.J + int32(j), K: center.K + int32(k)}
				out = append(out, idx)
			}
		}
	}
	return out
}
