// Package server wires a tsdf.Layer, its integrator, meshing, ICP, and the
// pointcloud/freespace ingest pipelines into one running component, and
// exposes the command surface (clear_map, generate_mesh, save_map, etc.)
// described in the component's configuration. Grounded on the teacher's
// component-lifecycle idiom (construct with a logger, run periodic
// background workers via goutils.PanicCapturingGo, stop them on Close) as
// seen throughout go.viam.com/rdk's components and services packages.
package server

import (
	"context"
	"path/filepath"
	"sync"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"github.com/Kabilan-n/voxblox/colormap"
	"github.com/Kabilan-n/voxblox/frame"
	"github.com/Kabilan-n/voxblox/icp"
	"github.com/Kabilan-n/voxblox/ingest"
	"github.com/Kabilan-n/voxblox/integrator"
	"github.com/Kabilan-n/voxblox/meshing"
	"github.com/Kabilan-n/voxblox/pointcloud"
	"github.com/Kabilan-n/voxblox/submap"
	"github.com/Kabilan-n/voxblox/transport"
	"github.com/Kabilan-n/voxblox/tsdf"
	"github.com/Kabilan-n/voxblox/voxconfig"
	"github.com/Kabilan-n/voxblox/wire"
)

// Server is one running instance of the volumetric mapper: the layer and
// its mesh, the ingest pipelines reading pointcloud and freespace clouds,
// and the periodic mesh/publish workers.
type Server struct {
	logger golog.Logger
	cfg    *voxconfig.Config

	layer      *tsdf.Layer
	meshLayer  *meshing.Layer
	integ      integrator.Integrator
	lookup     frame.Lookup
	robotName  string
	frameID    string

	pointcloudPipeline *ingest.Pipeline
	freespacePipeline  *ingest.Pipeline

	mapTopic                   *transport.Topic[wire.LayerMessage]
	publisher                  *wire.Publisher
	meshTopic                  *transport.Topic[meshing.MeshDelta]
	submapTopic                *transport.Topic[submap.Record]
	submapWrittenTopic         *transport.Topic[string]
	pointcloudTopic            *transport.Topic[pointcloud.Cloud]
	tsdfPointcloudTopic        *transport.Topic[pointcloud.Cloud]
	tsdfSliceTopic             *transport.Topic[pointcloud.Cloud]
	occupancyMarkerTopic       *transport.Topic[OccupancyMarker]
	reprojectedPointcloudTopic *transport.Topic[[]r3.Vector]

	lastSensorPos r3.Vector
	icpBus        *frame.Bus

	cancel context.CancelFunc
	wg     sync.WaitGroup

	mu sync.Mutex
}

// New constructs a Server from cfg, validated and defaulted beforehand by
// the caller via voxconfig.Decode/Validate. cam describes the sensor's
// projection model and is only consulted when cfg.Method is "projective";
// it comes from the camera component's own intrinsics rather than the
// voxblox attribute map, since it describes the sensor, not the map.
func New(cfg *voxconfig.Config, cam integrator.Camera, lookup frame.Lookup, robotName, frameID string, logger golog.Logger) (*Server, error) {
	layer := tsdf.NewLayer(tsdf.Config{
		VoxelSize:          cfg.VoxelSize,
		VoxelsPerSide:      cfg.VoxelsPerSide,
		TruncationDistance: cfg.TruncationDistance,
		MaxWeight:          cfg.MaxWeight,
	})

	weightPolicy, err := parseWeightPolicy(cfg.WeightPolicy)
	if err != nil {
		return nil, err
	}

	integ, err := integrator.New(integrator.Method(cfg.Method), integrator.Config{
		WeightPolicy:            weightPolicy,
		MaxRayLength:            cfg.MaxRayLength,
		FreespaceTruncationDist: cfg.FreespaceTruncationDist,
		Camera:                  cam,
	}, layer)
	if err != nil {
		return nil, err
	}

	cmap, err := colormap.Lookup(colormap.Kind(cfg.IntensityColormap))
	if err != nil {
		return nil, err
	}

	icpCfg := icp.Config{
		MaxIterations:   cfg.ICPMaxIterations,
		RefineRollPitch: cfg.ICPRefineRollPitch,
		ConvergenceEps:  1e-5,
	}

	icpBus := frame.NewBus(icpBusMaxAge)

	ingestCfg := ingest.Config{
		WorldFrame:                       "world",
		MinTimeBetweenMsgsSec:            cfg.MinTimeBetweenMsgsSec,
		MaxBlockDistanceFromBody:         cfg.MaxBlockDistanceFromBody,
		EnableICP:                        cfg.EnableICP,
		ICP:                              icpCfg,
		Bus:                              icpBus,
		DeintegrationMaxQueueLength:      cfg.DeintegrationMaxQueueLength,
		DeintegrationMaxTimeIntervalSec:  cfg.DeintegrationMaxTimeIntervalSec,
		DeintegrationMaxDistanceTravelled: cfg.DeintegrationMaxDistanceTravelled,
		SubmapMaxTimeIntervalSec:         cfg.SubmapMaxTimeIntervalSec,
		SubmapMaxDistanceTravelled:       cfg.SubmapMaxDistanceTravelled,
		Colormap:                         cmap,
		MaxIntensity:                     cfg.IntensityMaxValue,
	}

	topic := transport.NewTopic[wire.LayerMessage](8)

	s := &Server{
		logger:                     logger,
		cfg:                        cfg,
		layer:                      layer,
		meshLayer:                  meshing.NewLayer(),
		integ:                      integ,
		lookup:                     lookup,
		robotName:                  robotName,
		frameID:                    frameID,
		pointcloudPipeline:         ingest.New(ingestCfg, layer, integ, lookup, logger, cfg.AccumulateICPCorrections),
		mapTopic:                   topic,
		publisher:                  wire.NewPublisher(topic),
		meshTopic:                  transport.NewTopic[meshing.MeshDelta](8),
		submapTopic:                transport.NewTopic[submap.Record](4),
		submapWrittenTopic:         transport.NewTopic[string](4),
		pointcloudTopic:            transport.NewTopic[pointcloud.Cloud](8),
		tsdfPointcloudTopic:        transport.NewTopic[pointcloud.Cloud](8),
		tsdfSliceTopic:             transport.NewTopic[pointcloud.Cloud](8),
		occupancyMarkerTopic:       transport.NewTopic[OccupancyMarker](8),
		reprojectedPointcloudTopic: transport.NewTopic[[]r3.Vector](8),
		icpBus:                     icpBus,
	}
	if cfg.UseFreespacePointcloud {
		s.freespacePipeline = ingest.New(ingestCfg, layer, integ, lookup, logger, cfg.AccumulateICPCorrections)
	}
	return s, nil
}

// icpBusMaxAge bounds how long a published icp_corrected/pose_corrected
// broadcast remains valid for lookup, mirroring the tf buffer staleness
// tolerance the original ROS node inherits from tf2's default cache.
const icpBusMaxAge = 5 * time.Second

func parseWeightPolicy(name string) (integrator.WeightPolicy, error) {
	switch name {
	case "", "constant":
		return integrator.ConstantWeight, nil
	case "inverse_square":
		return integrator.InverseSquareWeight, nil
	case "inverse_square_dropoff":
		return integrator.InverseSquareDropoffWeight, nil
	default:
		return 0, errors.Errorf("unknown weight_policy %q", name)
	}
}

// Start launches the periodic mesh-generation and map-publish workers.
// Callers must call Close to stop them.
func (s *Server) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	if s.cfg.UpdateMeshEveryNSec > 0 {
		s.wg.Add(1)
		goutils.PanicCapturingGo(func() {
			defer s.wg.Done()
			s.runPeriodic(ctx, s.cfg.UpdateMeshEveryNSec, func() {
				s.GenerateMesh(true)
			})
		})
	}
	if s.cfg.PublishMapEveryNSec > 0 {
		s.wg.Add(1)
		goutils.PanicCapturingGo(func() {
			defer s.wg.Done()
			s.runPeriodic(ctx, s.cfg.PublishMapEveryNSec, func() {
				s.mu.Lock()
				defer s.mu.Unlock()
				s.publisher.PublishDelta(s.layer)
			})
		})
	}
}

func (s *Server) runPeriodic(ctx context.Context, everyNSec float64, fn func()) {
	ticker := time.NewTicker(time.Duration(everyNSec * float64(time.Second)))
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}

// Close stops the background workers and waits for them to exit.
func (s *Server) Close() {
	if s.cancel != nil {
		s.cancel()
	}
	s.wg.Wait()
}

// IngestPointcloud enqueues and drains one inbound point cloud on the
// primary pipeline, then runs the submap-cut and pruning bookkeeping shared
// by both pipelines.
func (s *Server) IngestPointcloud(ctx context.Context, msg ingest.Message, sensorPos r3.Vector) error {
	return s.ingestOn(ctx, s.pointcloudPipeline, msg, sensorPos)
}

// IngestFreespace enqueues and drains one inbound freespace-only point
// cloud on the secondary pipeline. Only voxels whose signed distance
// exceeds the freespace truncation distance are updated, and the packets go
// to that pipeline's own deintegration queue, not the primary one's.
func (s *Server) IngestFreespace(ctx context.Context, msg ingest.Message, sensorPos r3.Vector) error {
	if s.freespacePipeline == nil {
		return errors.New("freespace ingest is not enabled")
	}
	msg.IsFreespace = true
	return s.ingestOn(ctx, s.freespacePipeline, msg, sensorPos)
}

func (s *Server) ingestOn(ctx context.Context, p *ingest.Pipeline, msg ingest.Message, sensorPos r3.Vector) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p.Enqueue(msg)
	if err := p.Drain(ctx); err != nil {
		return err
	}
	s.lastSensorPos = sensorPos

	if p.NeedsPruning() {
		p.Prune(s.meshLayer)
	}
	if s.cfg.MaxBlockDistanceFromBody > 0 {
		p.SpatialCull(sensorPos, s.meshLayer)
	}

	if cut, number := p.CheckSubmapCut(time.Now(), sensorPos); cut {
		s.cutSubmap(p, number)
	}
	return nil
}

// cutSubmap snapshots the layer into a submap record before any clearing,
// publishes it on submap_out, persists it if a directory is configured
// (publishing the written path on new_submap_written_to_disk), and clears
// the layer only when deintegration is disabled (a smoothly deintegrating
// sliding window keeps the layer continuous across cuts).
func (s *Server) cutSubmap(p *ingest.Pipeline, number int) {
	rec := submap.Build(number, s.robotName, s.frameID, s.layer, p.Trajectory())
	s.submapTopic.Publish(rec)
	if s.cfg.WriteSubmapsToDirectory != "" {
		path, err := submap.WriteToDirectory(s.cfg.WriteSubmapsToDirectory, rec)
		if err != nil {
			s.logger.Warnw("failed to persist submap", "number", number, "error", err)
		} else {
			s.submapWrittenTopic.Publish(path)
		}
	}
	deintegrating := s.integ.SupportsDeintegrate() &&
		(s.cfg.DeintegrationMaxQueueLength.IsSet() ||
			s.cfg.DeintegrationMaxTimeIntervalSec.IsSet() ||
			s.cfg.DeintegrationMaxDistanceTravelled.IsSet())
	if !deintegrating {
		p.ClearLayer()
	}
}

// ClearMap drops every block in the layer and its mesh, per the clear_map
// command.
func (s *Server) ClearMap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.layer.RemoveAllBlocks()
	for _, idx := range s.meshLayer.AllIndices() {
		s.meshLayer.ClearBlock(idx)
	}
}

// GenerateMesh regenerates the mesh layer and publishes the result on the
// mesh topic. onlyUpdated restricts generation to blocks marked
// MeshUpdated, per the update_mesh_every_n_sec worker's normal incremental
// behavior (publishing an incremental MeshDelta); a manual generate_mesh
// command passes false to force a full regeneration, published as a
// FullReplace MeshDelta, mirroring updateMesh/generateMesh's identical
// generate-then-publish shape in the original.
func (s *Server) GenerateMesh(onlyUpdated bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	meshing.Generate(s.layer, s.meshLayer, onlyUpdated, true)
	s.meshTopic.Publish(s.meshLayer.Delta(!onlyUpdated))
}

// SaveMap persists the current layer and the primary pipeline's trajectory
// as submap record number 0 (under path/voxblox_submap_0), used by the
// save_map command.
func (s *Server) SaveMap(path string) error {
	s.mu.Lock()
	rec := submap.Build(0, s.robotName, s.frameID, s.layer, s.pointcloudPipeline.Trajectory())
	s.mu.Unlock()
	_, err := submap.WriteToDirectory(path, rec)
	return err
}

// LoadMap replaces the current layer's contents with the volumetric map
// found in dir (as written by SaveMap or a submap cut), used by the
// load_map command.
func (s *Server) LoadMap(dir string) error {
	msg, err := submap.ReadMapFile(filepath.Join(dir, "volumetric_map.tsdf"))
	if err != nil {
		return errors.Wrap(err, "reading volumetric map")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return wire.Apply(s.layer, msg)
}

// PublishMap forces a full-replace publish on the map topic, used by the
// publish_map command.
func (s *Server) PublishMap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher.PublishFull(s.layer)
}

// MapTopic exposes the layer-message topic for subscription by transport
// adapters (e.g. a gRPC streaming handler).
func (s *Server) MapTopic() *transport.Topic[wire.LayerMessage] {
	return s.mapTopic
}

// PointcloudTopic exposes the surface_pointcloud topic.
func (s *Server) PointcloudTopic() *transport.Topic[pointcloud.Cloud] {
	return s.pointcloudTopic
}

// MeshTopic exposes the mesh delta topic.
func (s *Server) MeshTopic() *transport.Topic[meshing.MeshDelta] {
	return s.meshTopic
}

// SubmapTopic exposes the submap_out topic.
func (s *Server) SubmapTopic() *transport.Topic[submap.Record] {
	return s.submapTopic
}

// SubmapWrittenTopic exposes the new_submap_written_to_disk topic.
func (s *Server) SubmapWrittenTopic() *transport.Topic[string] {
	return s.submapWrittenTopic
}

// TsdfPointcloudTopic exposes the tsdf_pointcloud topic.
func (s *Server) TsdfPointcloudTopic() *transport.Topic[pointcloud.Cloud] {
	return s.tsdfPointcloudTopic
}

// TsdfSliceTopic exposes the tsdf_slice topic.
func (s *Server) TsdfSliceTopic() *transport.Topic[pointcloud.Cloud] {
	return s.tsdfSliceTopic
}

// OccupancyMarkerTopic exposes the occupancy_marker topic.
func (s *Server) OccupancyMarkerTopic() *transport.Topic[OccupancyMarker] {
	return s.occupancyMarkerTopic
}

// ReprojectedPointcloudTopic exposes the reprojected_pointcloud topic.
func (s *Server) ReprojectedPointcloudTopic() *transport.Topic[[]r3.Vector] {
	return s.reprojectedPointcloudTopic
}

// ICPBus exposes the world/icp_corrected/pose_corrected transform broadcast
// bus written to by both ingest pipelines during ICP refinement.
func (s *Server) ICPBus() *frame.Bus {
	return s.icpBus
}
