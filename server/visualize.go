package server

import (
	"github.com/golang/geo/r3"

	"github.com/Kabilan-n/voxblox/pointcloud"
)

// surfaceDistanceFraction is the fraction of one voxel edge within which a
// voxel counts as "on the surface", grounded on the original's
// surface_distance_thresh = voxel_size * 0.75 in
// TsdfServer::publishTsdfSurfacePoints.
const surfaceDistanceFraction = 0.75

// voxelCloud walks every observed voxel in the layer and keeps those for
// which keep(distance, worldPosition) reports true, the shared traversal
// behind every pointcloud-shaped visualization artifact (tsdf_pointcloud,
// surface_pointcloud, tsdf_slice in the original).
func (s *Server) voxelCloud(keep func(distance float64, worldPos r3.Vector) bool) pointcloud.Cloud {
	var cloud pointcloud.Cloud
	for _, idx := range s.layer.AllIndices() {
		block, ok := s.layer.GetBlock(idx)
		if !ok {
			continue
		}
		side := block.VoxelsPerSide()
		for lx := 0; lx < side; lx++ {
			for ly := 0; ly < side; ly++ {
				for lz := 0; lz < side; lz++ {
					v := block.Voxel(lx, ly, lz)
					if !v.Observed() {
						continue
					}
					pos := block.VoxelCenter(lx, ly, lz)
					if !keep(v.Distance, pos) {
						continue
					}
					cloud.Points = append(cloud.Points, pos)
					cloud.Colors = append(cloud.Colors, v.Color)
				}
			}
		}
	}
	return cloud
}

// PublishPointclouds extracts the surface_pointcloud artifact: every
// observed voxel within surfaceDistanceFraction of a voxel edge from the
// zero crossing, publishes it on the pointcloud topic, and returns it.
func (s *Server) PublishPointclouds() pointcloud.Cloud {
	s.mu.Lock()
	defer s.mu.Unlock()
	thresh := s.layer.VoxelSize() * surfaceDistanceFraction
	cloud := s.voxelCloud(func(distance float64, _ r3.Vector) bool {
		return distance >= -thresh && distance <= thresh
	})
	s.pointcloudTopic.Publish(cloud)
	return cloud
}

// PublishTsdfPointcloud extracts the tsdf_pointcloud artifact: every
// observed voxel in the layer regardless of distance to the surface,
// mirroring createDistancePointcloudFromTsdfLayer.
func (s *Server) PublishTsdfPointcloud() pointcloud.Cloud {
	s.mu.Lock()
	defer s.mu.Unlock()
	cloud := s.voxelCloud(func(float64, r3.Vector) bool { return true })
	s.tsdfPointcloudTopic.Publish(cloud)
	return cloud
}

// PublishTsdfSlice extracts the tsdf_slice artifact: observed voxels within
// half a voxel edge of a single world-frame z plane, either
// cfg.SliceLevel or (when cfg.SliceLevelFollowRobot) the z of the most
// recently ingested sensor position, mirroring
// createDistancePointcloudFromTsdfLayerSlice's fixed z-axis slice.
func (s *Server) PublishTsdfSlice() pointcloud.Cloud {
	s.mu.Lock()
	defer s.mu.Unlock()
	sliceZ := s.cfg.SliceLevel
	if s.cfg.SliceLevelFollowRobot {
		sliceZ = s.lastSensorPos.Z
	}
	halfVoxel := s.layer.VoxelSize() / 2
	cloud := s.voxelCloud(func(_ float64, pos r3.Vector) bool {
		return pos.Z >= sliceZ-halfVoxel && pos.Z <= sliceZ+halfVoxel
	})
	s.tsdfSliceTopic.Publish(cloud)
	return cloud
}

// OccupancyMarker is the occupancy_marker artifact: one cube per TSDF block
// that contains at least one surface voxel, mirroring
// createOccupancyBlocksFromTsdfLayer's per-block marker array.
type OccupancyMarker struct {
	Centers    []r3.Vector
	EdgeLength float64
}

// PublishOccupancyMarkers extracts the occupancy_marker artifact.
func (s *Server) PublishOccupancyMarkers() OccupancyMarker {
	s.mu.Lock()
	defer s.mu.Unlock()
	thresh := s.layer.VoxelSize() * surfaceDistanceFraction
	marker := OccupancyMarker{EdgeLength: s.layer.BlockEdgeLength()}
	for _, idx := range s.layer.AllIndices() {
		block, ok := s.layer.GetBlock(idx)
		if !ok {
			continue
		}
		side := block.VoxelsPerSide()
		occupied := false
		for lx := 0; lx < side && !occupied; lx++ {
			for ly := 0; ly < side && !occupied; ly++ {
				for lz := 0; lz < side && !occupied; lz++ {
					v := block.Voxel(lx, ly, lz)
					if v.Observed() && v.Distance >= -thresh && v.Distance <= thresh {
						occupied = true
					}
				}
			}
		}
		if occupied {
			marker.Centers = append(marker.Centers, block.Center())
		}
	}
	s.occupancyMarkerTopic.Publish(marker)
	return marker
}

// reprojector is implemented only by the projective integrator flavor,
// which alone reconstructs a range image per Integrate call.
type reprojector interface {
	ReprojectedPoints() []r3.Vector
}

// PublishReprojectedPointcloud extracts the reprojected_pointcloud debug
// artifact: the world-frame points reconstructed from the most recently
// integrated range image, mirroring
// ProjectiveTsdfIntegrator::getReprojectedPointcloud. Returns nil when the
// configured integrator flavor is not projective.
func (s *Server) PublishReprojectedPointcloud() []r3.Vector {
	s.mu.Lock()
	defer s.mu.Unlock()
	rp, ok := s.integ.(reprojector)
	if !ok {
		return nil
	}
	points := rp.ReprojectedPoints()
	s.reprojectedPointcloudTopic.Publish(points)
	return points
}
