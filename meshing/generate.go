package meshing

import (
	"image/color"
	"math"

	"github.com/golang/geo/r3"

	"github.com/Kabilan-n/voxblox/tsdf"
)

// Generate walks the TSDF blocks named by onlyUpdated (the kMesh-marked
// blocks if true, every block otherwise), extracts a triangle mesh for each
// into the paired mesh layer, and clears the kMesh marker on each visited
// block if clearFlag is set.
func Generate(tsdfLayer *tsdf.Layer, meshLayer *Layer, onlyUpdated, clearFlag bool) {
	var indices []tsdf.Index
	if onlyUpdated {
		indices = tsdfLayer.BlocksWithMarker(tsdf.MeshUpdated)
	} else {
		indices = tsdfLayer.AllIndices()
	}
	for _, idx := range indices {
		b, ok := tsdfLayer.GetBlock(idx)
		if !ok {
			continue
		}
		mesh := meshLayer.GetOrAllocate(idx)
		generateBlockMesh(tsdfLayer, b, mesh)
		mesh.Updated = true
		if clearFlag {
			b.ClearMarker(tsdf.MeshUpdated)
		}
	}
}

// the 6 tetrahedra covering a unit cube, sharing the cube's main diagonal
// between corners 0 and 6 (cube corner numbering: 0=(0,0,0), 1=(1,0,0),
// 2=(1,1,0), 3=(0,1,0), 4=(0,0,1), 5=(1,0,1), 6=(1,1,1), 7=(0,1,1)).
var cubeTetrahedra = [6][4]int{
	{0, 1, 2, 6},
	{0, 2, 3, 6},
	{0, 3, 7, 6},
	{0, 7, 4, 6},
	{0, 4, 5, 6},
	{0, 5, 1, 6},
}

var cubeCornerOffsets = [8][3]int{
	{0, 0, 0}, {1, 0, 0}, {1, 1, 0}, {0, 1, 0},
	{0, 0, 1}, {1, 0, 1}, {1, 1, 1}, {0, 1, 1},
}

func generateBlockMesh(layer *tsdf.Layer, b *tsdf.Block, mesh *Mesh) {
	mesh.Vertices = nil
	mesh.Indices = nil
	s := b.VoxelsPerSide()
	gx0 := int(b.Index().I) * s
	gy0 := int(b.Index().J) * s
	gz0 := int(b.Index().K) * s

	for lx := 0; lx < s; lx++ {
		for ly := 0; ly < s; ly++ {
			for lz := 0; lz < s; lz++ {
				var pos [8]r3.Vector
				var val [8]float64
				var col [8]color.NRGBA
				var grad [8]r3.Vector
				ok := true
				for c, off := range cubeCornerOffsets {
					gx, gy, gz := gx0+lx+off[0], gy0+ly+off[1], gz0+lz+off[2]
					v, p, found := globalVoxel(layer, s, gx, gy, gz)
					if !found || !v.Observed() {
						ok = false
						break
					}
					pos[c] = p
					val[c] = v.Distance
					col[c] = v.Color
					grad[c] = gradientAt(layer, s, gx, gy, gz, layer.VoxelSize())
				}
				if !ok {
					continue
				}
				for _, tet := range cubeTetrahedra {
					tPos := [4]r3.Vector{pos[tet[0]], pos[tet[1]], pos[tet[2]], pos[tet[3]]}
					tVal := [4]float64{val[tet[0]], val[tet[1]], val[tet[2]], val[tet[3]]}
					tCol := [4]color.NRGBA{col[tet[0]], col[tet[1]], col[tet[2]], col[tet[3]]}
					tGrad := [4]r3.Vector{grad[tet[0]], grad[tet[1]], grad[tet[2]], grad[tet[3]]}
					appendTetTriangles(mesh, tPos, tVal, tCol, tGrad)
				}
			}
		}
	}
}

func appendTetTriangles(mesh *Mesh, pos [4]r3.Vector, val [4]float64, col [4]color.NRGBA, grad [4]r3.Vector) {
	var inside, outside []int
	for i, v := range val {
		if v < 0 {
			inside = append(inside, i)
		} else {
			outside = append(outside, i)
		}
	}

	edgeVertex := func(i, j int) Vertex {
		t := val[i] / (val[i] - val[j])
		return Vertex{
			Position: lerpVec(pos[i], pos[j], t),
			Color:    lerpColor(col[i], col[j], t),
			Normal:   normalizeOrZero(lerpVec(grad[i], grad[j], t)),
		}
	}

	push := func(vs ...Vertex) {
		base := len(mesh.Vertices)
		mesh.Vertices = append(mesh.Vertices, vs...)
		for i := range vs {
			mesh.Indices = append(mesh.Indices, base+i)
		}
	}

	switch {
	case len(inside) == 0 || len(inside) == 4:
		return
	case len(inside) == 1:
		k := inside[0]
		push(edgeVertex(k, outside[0]), edgeVertex(k, outside[1]), edgeVertex(k, outside[2]))
	case len(inside) == 3:
		k := outside[0]
		push(edgeVertex(k, inside[0]), edgeVertex(k, inside[1]), edgeVertex(k, inside[2]))
	case len(inside) == 2:
		a, b := inside[0], inside[1]
		c, d := outside[0], outside[1]
		p00 := edgeVertex(a, c)
		p01 := edgeVertex(a, d)
		p10 := edgeVertex(b, c)
		p11 := edgeVertex(b, d)
		push(p00, p01, p11)
		push(p00, p11, p10)
	}
}

func lerpVec(a, b r3.Vector, t float64) r3.Vector {
	return r3.Vector{X: a.X + (b.X-a.X)*t, Y: a.Y + (b.Y-a.Y)*t, Z: a.Z + (b.Z-a.Z)*t}
}

func lerpColor(a, b color.NRGBA, t float64) color.NRGBA {
	lerp := func(x, y uint8) uint8 {
		return uint8(float64(x) + (float64(y)-float64(x))*t)
	}
	return color.NRGBA{R: lerp(a.R, b.R), G: lerp(a.G, b.G), B: lerp(a.B, b.B), A: lerp(a.A, b.A)}
}

func normalizeOrZero(v r3.Vector) r3.Vector {
	n := v.Norm()
	if n < 1e-12 {
		return r3.Vector{}
	}
	return v.Mul(1 / n)
}

// globalVoxel resolves a voxel addressed by a block-independent integer grid
// coordinate (in units of voxels from the world origin), crossing block
// boundaries transparently so the neighbor skirt needed at a block's far
// face reads from the adjacent block.
func globalVoxel(layer *tsdf.Layer, s, gx, gy, gz int) (tsdf.Voxel, r3.Vector, bool) {
	bx, lx := floorDivMod(gx, s)
	by, ly := floorDivMod(gy, s)
	bz, lz := floorDivMod(gz, s)
	idx := tsdf.Index{I: int32(bx), J: int32(by), K: int32(bz)}
	b, ok := layer.GetBlock(idx)
	if !ok {
		return tsdf.Voxel{}, r3.Vector{}, false
	}
	return b.Voxel(lx, ly, lz), b.VoxelCenter(lx, ly, lz), true
}

func floorDivMod(a, b int) (int, int) {
	q := int(math.Floor(float64(a) / float64(b)))
	r := a - q*b
	return q, r
}

// gradientAt estimates the surface normal at global voxel (gx,gy,gz) via
// central differences of the stored distance field; axes whose neighbors
// aren't both observed contribute zero, which degrades gracefully to a
// shorter (but not wrong-signed) gradient rather than rejecting the vertex.
func gradientAt(layer *tsdf.Layer, s, gx, gy, gz int, voxelSize float64) r3.Vector {
	axis := func(dx, dy, dz int) float64 {
		vPlus, _, okPlus := globalVoxel(layer, s, gx+dx, gy+dy, gz+dz)
		vMinus, _, okMinus := globalVoxel(layer, s, gx-dx, gy-dy, gz-dz)
		if !okPlus || !okMinus || !vPlus.Observed() || !vMinus.Observed() {
			return 0
		}
		return (vPlus.Distance - vMinus.Distance) / (2 * voxelSize)
	}
	return r3.Vector{X: axis(1, 0, 0), Y: axis(0, 1, 0), Z: axis(0, 0, 1)}
}
