// Package integrator implements the TSDF integrator: projecting an incoming
// point cloud into a tsdf.Layer, updating distance/weight/color per voxel
// under a truncation policy, with support for exact deintegration via the
// projective flavor.
package integrator

import (
	"github.com/pkg/errors"

	"github.com/Kabilan-n/voxblox/tsdf"
)

// Method names one of the integrator flavors recognized by New.
type Method string

// The integrator flavors. "Fast" is an alias for Merged, matching the
// original implementation's naming (a merged integrator tuned for speed is
// still a merged integrator as far as this contract is concerned).
const (
	Simple     Method = "simple"
	Merged     Method = "merged"
	Fast       Method = "fast"
	Projective Method = "projective"
)

// WeightPolicy selects how per-point weight is derived from sensor geometry.
type WeightPolicy int

const (
	// ConstantWeight assigns every point the same weight of 1.
	ConstantWeight WeightPolicy = iota
	// InverseSquareWeight weighs a point by 1/range^2, modeling sensors whose
	// measurement noise grows with distance.
	InverseSquareWeight
	// InverseSquareDropoffWeight is InverseSquareWeight additionally ramped
	// down to zero as the sampled surface distance approaches -truncation,
	// so voxels just behind the observed surface are trusted less than
	// voxels right at it.
	InverseSquareDropoffWeight
)

// Camera describes the virtual range-image projection used by the
// Projective integrator: a spherical sensor model wide enough to describe
// both narrow RGB-D frustums and full 360-degree spinning lidars.
type Camera struct {
	Width, Height    int
	HFovRad, VFovRad float64
	MinRange         float64
	MaxRange         float64
}

// Config collects the tunables shared by every integrator flavor.
type Config struct {
	WeightPolicy            WeightPolicy
	MaxRayLength            float64
	FreespaceTruncationDist float64 // tau_freespace
	Camera                  Camera  // only consulted by the Projective flavor
}

// New constructs an Integrator of the given method over layer, using cfg for
// the shared weighting/truncation tunables.
func New(method Method, cfg Config, layer *tsdf.Layer) (Integrator, error) {
	switch method {
	case Simple:
		return &simpleIntegrator{layer: layer, cfg: cfg}, nil
	case Merged, Fast:
		return &mergedIntegrator{layer: layer, cfg: cfg}, nil
	case Projective:
		return &projectiveIntegrator{layer: layer, cfg: cfg}, nil
	default:
		return nil, errors.Errorf("unknown integrator method: %q", method)
	}
}
