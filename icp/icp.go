// Package icp implements the iterative-closest-point pose refiner that
// aligns an incoming point cloud against the current TSDF's implicit
// surface, grounded on the teacher's point-to-plane alignment idioms in
// pointcloud/icp_test.go and the gonum-based linear algebra used throughout
// spatialmath.
package icp

import (
	"math"

	"github.com/golang/geo/r3"

	"github.com/Kabilan-n/voxblox/spatial"
	"github.com/Kabilan-n/voxblox/tsdf"
)

// Config collects the refiner's tunables.
type Config struct {
	MaxIterations   int
	RefineRollPitch bool
	ConvergenceEps  float64 // stop when the increment's norm drops below this
}

// Result reports the outcome of a refinement call.
type Result struct {
	Refined       spatial.Pose
	IterationsRun int
	Converged     bool
}

// Refine iteratively aligns pointsC (in the sensor frame) to layer's
// implicit surface, starting from tInit (sensor-to-world). Points whose
// transformed position doesn't land in a fully-observed voxel neighborhood
// are skipped for that iteration's linear system. If cfg.RefineRollPitch is
// false, roll and pitch are zeroed out of the final accumulated correction's
// log-map rather than every iteration, matching the server's drift-control
// contract.
func Refine(layer *tsdf.Layer, pointsC []r3.Vector, tInit spatial.Pose, cfg Config) Result {
	maxIter := cfg.MaxIterations
	if maxIter <= 0 {
		maxIter = 10
	}
	eps := cfg.ConvergenceEps
	if eps <= 0 {
		eps = 1e-5
	}

	current := tInit
	result := Result{Refined: tInit}

	for iter := 0; iter < maxIter; iter++ {
		var rows [][6]float64
		var rhs []float64

		for _, pc := range pointsC {
			pw := current.Transform(pc)
			d, grad, ok := sampleTrilinear(layer, pw)
			if !ok {
				continue
			}
			// Point-to-implicit-surface residual: we want d -> 0. The
			// Jacobian of d with respect to an SE(3) increment twist
			// (v, omega) applied at pw is [grad, pw x grad].
			cross := pw.Cross(grad)
			rows = append(rows, [6]float64{grad.X, grad.Y, grad.Z, cross.X, cross.Y, cross.Z})
			rhs = append(rhs, -d)
		}
		if len(rows) < 6 {
			result.IterationsRun = iter
			break
		}

		twist, ok := solveNormalEquations(rows, rhs)
		if !ok {
			result.IterationsRun = iter
			break
		}

		delta := spatial.ExpMap(twist)
		current = spatial.Compose(current, delta)
		result.IterationsRun = iter + 1

		if twistNorm(twist) < eps {
			result.Converged = true
			break
		}
	}

	if !cfg.RefineRollPitch {
		correction := spatial.Between(tInit, current)
		log := correction.LogMap()
		log[3] = 0
		log[4] = 0
		current = spatial.Compose(tInit, spatial.ExpMap(log))
	}

	result.Refined = current
	return result
}

func twistNorm(t [6]float64) float64 {
	sum := 0.0
	for _, v := range t {
		sum += v * v
	}
	return math.Sqrt(sum)
}
