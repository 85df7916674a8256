package meshing

import (
	"image/color"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"github.com/Kabilan-n/voxblox/tsdf"
)

// sphereLayer fills a cube of voxels with a signed-distance-to-sphere field
// so marching tetrahedra has a real zero crossing to extract.
func sphereLayer(t *testing.T) *tsdf.Layer {
	t.Helper()
	layer := tsdf.NewLayer(tsdf.Config{VoxelSize: 0.1, VoxelsPerSide: 16, TruncationDistance: 0.5, MaxWeight: 1e4})
	center := r3.Vector{X: 0.8, Y: 0.8, Z: 0.8}
	radius := 0.5
	for xi := 0; xi < 16; xi++ {
		for yi := 0; yi < 16; yi++ {
			for zi := 0; zi < 16; zi++ {
				idx := tsdf.Index{I: 0, J: 0, K: 0}
				b := layer.AllocateBlock(idx)
				p := b.VoxelCenter(xi, yi, zi)
				d := p.Sub(center).Norm() - radius
				b.SetVoxel(xi, yi, zi, tsdf.Voxel{Distance: d, Weight: 1, Color: color.NRGBA{R: 10, G: 20, B: 30, A: 255}})
			}
		}
	}
	return layer
}

func TestGenerateExtractsNonEmptyMeshForSphere(t *testing.T) {
	layer := sphereLayer(t)
	layer.AllocateBlock(tsdf.Index{}).SetMarker(tsdf.MeshUpdated)
	meshLayer := NewLayer()

	Generate(layer, meshLayer, true, true)

	mesh, ok := meshLayer.Get(tsdf.Index{})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(mesh.Vertices), test.ShouldBeGreaterThan, 0)
	test.That(t, len(mesh.Indices)%3, test.ShouldEqual, 0)
	test.That(t, mesh.Updated, test.ShouldBeTrue)

	b, _ := layer.GetBlock(tsdf.Index{})
	test.That(t, b.HasMarker(tsdf.MeshUpdated), test.ShouldBeFalse)
}

func TestGenerateUnobservedBlockProducesEmptyMesh(t *testing.T) {
	layer := tsdf.NewLayer(tsdf.Config{VoxelSize: 0.1, VoxelsPerSide: 8, TruncationDistance: 0.3, MaxWeight: 1e4})
	layer.AllocateBlock(tsdf.Index{})
	meshLayer := NewLayer()

	Generate(layer, meshLayer, false, false)

	mesh, ok := meshLayer.Get(tsdf.Index{})
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, len(mesh.Vertices), test.ShouldEqual, 0)
}

func TestClearBlockEmptiesAndMarksUpdated(t *testing.T) {
	meshLayer := NewLayer()
	mesh := meshLayer.GetOrAllocate(tsdf.Index{I: 1})
	mesh.Vertices = []Vertex{{}}
	mesh.Indices = []int{0}
	mesh.Updated = false

	meshLayer.ClearBlock(tsdf.Index{I: 1})

	m, _ := meshLayer.Get(tsdf.Index{I: 1})
	test.That(t, len(m.Vertices), test.ShouldEqual, 0)
	test.That(t, m.Updated, test.ShouldBeTrue)
}
