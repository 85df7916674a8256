// Package pointcloud decodes an incoming PCD-style point cloud into the
// (points, colors) pair the integrator and ICP refiner consume, grounded on
// the teacher's pointcloud.ReadPCD ASCII reader and basicData color
// encoding.
package pointcloud

import (
	"image/color"

	"github.com/golang/geo/r3"
)

// Cloud is a decoded point cloud in its sensor frame: parallel Points and
// Colors slices of equal length. Colors are always populated — for
// intensity-only or plain-XYZ input, Decode fills them via the configured
// color map or a flat default.
type Cloud struct {
	Points []r3.Vector
	Colors []color.NRGBA
}

// Len returns the number of points in the cloud.
func (c Cloud) Len() int { return len(c.Points) }
