package ingest

import (
	"github.com/golang/geo/r3"

	"github.com/Kabilan-n/voxblox/meshing"
	"github.com/Kabilan-n/voxblox/tsdf"
)

// pruneWeightEpsilon is the "effectively zero" weight threshold below which
// a voxel counts as unobserved for pruning purposes, grounded on the
// original implementation's use of kFloatEpsilon against accumulated
// weight in the deintegration cleanup pass.
const pruneWeightEpsilon = 1e-6

// Prune drops every MapUpdated block whose every voxel weight has fallen to
// (near) zero after deintegration, clearing its marker either way, and
// clears the paired mesh block so stale triangles are not left behind.
// Called by the server only when NeedsPruning reports true.
func (p *Pipeline) Prune(meshLayer *meshing.Layer) {
	for _, idx := range p.layer.BlocksWithMarker(tsdf.MapUpdated) {
		block, ok := p.layer.GetBlock(idx)
		if !ok {
			continue
		}
		block.ClearMarker(tsdf.MapUpdated)
		if !blockIsEmpty(block) {
			continue
		}
		p.layer.RemoveBlock(idx)
		if meshLayer != nil {
			meshLayer.ClearBlock(idx)
		}
	}
	p.needsPruning = false
}

func blockIsEmpty(b *tsdf.Block) bool {
	for i := 0; i < b.NumVoxels(); i++ {
		if b.VoxelByLinear(i).Weight > pruneWeightEpsilon {
			return false
		}
	}
	return true
}

// SpatialCull removes every block farther than p.cfg.MaxBlockDistanceFromBody
// from sensorPos, clearing the paired mesh blocks, grounded on
// voxblox_ros's "block removal beyond a radius of the robot" behavior.
func (p *Pipeline) SpatialCull(sensorPos r3.Vector, meshLayer *meshing.Layer) {
	if p.cfg.MaxBlockDistanceFromBody <= 0 {
		return
	}
	removed := p.layer.RemoveBlocksBeyond(sensorPos, p.cfg.MaxBlockDistanceFromBody)
	if meshLayer == nil {
		return
	}
	for _, idx := range removed {
		meshLayer.ClearBlock(idx)
	}
}
