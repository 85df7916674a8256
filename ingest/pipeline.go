// Package ingest implements the streaming ingest state machine: throttle,
// drain, decode, ICP, integrate, service the deintegration sliding window,
// prune, spatial cull, and submap-cut detection, grounded on voxblox_ros's
// TsdfServer::insertPointcloud / getNextPointcloudFromQueue (see
// original_source/).
package ingest

import (
	"bytes"
	"context"
	"time"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"github.com/Kabilan-n/voxblox/colormap"
	"github.com/Kabilan-n/voxblox/frame"
	"github.com/Kabilan-n/voxblox/icp"
	"github.com/Kabilan-n/voxblox/integrator"
	"github.com/Kabilan-n/voxblox/pointcloud"
	"github.com/Kabilan-n/voxblox/ratelimit"
	"github.com/Kabilan-n/voxblox/spatial"
	"github.com/Kabilan-n/voxblox/submap"
	"github.com/Kabilan-n/voxblox/tsdf"
	"github.com/Kabilan-n/voxblox/voxconfig"
)

// maxTransformRetryQueueLen bounds the raw-message queue against sustained
// transform-lookup failure (spec.md §5 "stale message queue is bounded at
// 10"), grounded on the original implementation's kMaxQueueSize constant in
// getNextPointcloudFromQueue.
const maxTransformRetryQueueLen = 10

// Message is one raw, undecoded inbound point cloud.
type Message struct {
	Timestamp   time.Time
	FrameID     string
	Raw         []byte
	IsFreespace bool
}

// Config collects the ingest tunables consulted by a Pipeline.
type Config struct {
	WorldFrame               string
	MinTimeBetweenMsgsSec    float64
	MaxBlockDistanceFromBody float64
	EnableICP                bool
	ICP                      icp.Config

	// Bus broadcasts icp_transform and the world -> icp_corrected ->
	// pose_corrected transform chain whenever ICP refinement runs. Nil
	// disables broadcasting.
	Bus *frame.Bus

	DeintegrationMaxQueueLength      voxconfig.Optional[int]
	DeintegrationMaxTimeIntervalSec  voxconfig.Optional[float64]
	DeintegrationMaxDistanceTravelled voxconfig.Optional[float64]

	SubmapMaxTimeIntervalSec   voxconfig.Optional[float64]
	SubmapMaxDistanceTravelled voxconfig.Optional[float64]

	Colormap     colormap.Map
	MaxIntensity float64
}

// deintegrationEnabled reports whether the sliding window is active: any of
// its axes is set. The pipeline does not check the integrator's capability;
// voxconfig.Config.Validate unsets every axis unless the method is
// projective.
func (c Config) deintegrationEnabled() bool {
	return c.DeintegrationMaxQueueLength.IsSet() ||
		c.DeintegrationMaxTimeIntervalSec.IsSet() ||
		c.DeintegrationMaxDistanceTravelled.IsSet()
}

func (c Config) submappingEnabled() bool {
	return c.SubmapMaxTimeIntervalSec.IsSet() || c.SubmapMaxDistanceTravelled.IsSet()
}

// Pipeline runs one instance of the ingest state machine over a shared
// layer; the server constructs two (pointcloud and freespace) sharing the
// same layer and integrator but independent queues, per spec.md §4.E's
// "parallel pipeline" note.
type Pipeline struct {
	cfg        Config
	layer      *tsdf.Layer
	integrator integrator.Integrator
	lookup     frame.Lookup
	logger     golog.Logger
	throttle   ratelimit.Throttle

	queue       []Message
	lastMsgTime time.Time
	haveLastMsg bool

	deintQueue []Packet

	tCorr           spatial.Pose
	accumulateICP   bool

	needsPruning bool

	submapCounter int
	lastSubmapAt  time.Time
	lastSubmapPos r3.Vector
	haveSubmapPos bool
}

// New constructs a Pipeline over layer, using integ for integration and
// lookup for sensor-to-world transform resolution.
func New(cfg Config, layer *tsdf.Layer, integ integrator.Integrator, lookup frame.Lookup, logger golog.Logger, accumulateICP bool) *Pipeline {
	return &Pipeline{
		cfg:           cfg,
		layer:         layer,
		integrator:    integ,
		lookup:        lookup,
		logger:        logger,
		throttle:      ratelimit.Throttle{Interval: time.Second},
		tCorr:         spatial.NewZeroPose(),
		accumulateICP: accumulateICP,
	}
}

// Enqueue applies the throttle step: drop msg if it arrives too soon after
// the previous accepted message, otherwise append it to the queue. Returns
// whether the message was accepted.
func (p *Pipeline) Enqueue(msg Message) bool {
	minInterval := time.Duration(p.cfg.MinTimeBetweenMsgsSec * float64(time.Second))
	if p.haveLastMsg && msg.Timestamp.Sub(p.lastMsgTime) < minInterval {
		return false
	}
	p.lastMsgTime = msg.Timestamp
	p.haveLastMsg = true
	p.queue = append(p.queue, msg)
	return true
}

// QueueLen reports the current raw-message queue length.
func (p *Pipeline) QueueLen() int { return len(p.queue) }

// Drain repeatedly pops the head of the queue and attempts to resolve its
// transform, processing it on success, dropping it (logged, throttled) on
// failure once the queue is at the overflow bound, or stopping and leaving
// the head in place otherwise so the next call retries.
func (p *Pipeline) Drain(ctx context.Context) error {
	for len(p.queue) > 0 {
		msg := p.queue[0]
		pose, err := p.lookup.Pose(ctx, msg.FrameID, p.cfg.WorldFrame, msg.Timestamp)
		if err != nil {
			if len(p.queue) >= maxTransformRetryQueueLen {
				if p.throttle.Allow(time.Now()) {
					p.logger.Warnw("dropping point cloud after repeated transform failure", "frame", msg.FrameID, "error", err)
				}
				p.queue = p.queue[1:]
				continue
			}
			return nil
		}
		p.queue = p.queue[1:]
		if err := p.processMessage(ctx, msg, pose); err != nil {
			p.logger.Warnw("failed to process point cloud", "error", err)
		}
	}
	return nil
}

func (p *Pipeline) processMessage(ctx context.Context, msg Message, sensorPose spatial.Pose) error {
	cloud, err := pointcloud.Decode(bytes.NewReader(msg.Raw), p.cfg.Colormap, p.cfg.MaxIntensity)
	if err != nil {
		return errors.Wrap(err, "decoding point cloud")
	}

	tGC := spatial.Compose(sensorPose, p.tCorr)
	if p.cfg.EnableICP && !msg.IsFreespace {
		result := icp.Refine(p.layer, cloud.Points, tGC, p.cfg.ICP)
		correction := spatial.Between(tGC, result.Refined)
		if p.accumulateICP {
			p.tCorr = spatial.Compose(p.tCorr, correction)
		} else {
			p.tCorr = correction
		}
		tGC = result.Refined

		if p.cfg.Bus != nil {
			p.cfg.Bus.Publish(frame.Stamp{FrameID: "icp_transform", At: msg.Timestamp, Pose: correction})
			p.cfg.Bus.Publish(frame.Stamp{FrameID: "icp_corrected", At: msg.Timestamp, Pose: correction})
			p.cfg.Bus.Publish(frame.Stamp{FrameID: "pose_corrected", At: msg.Timestamp, Pose: tGC})
		}
	}

	if err := p.integrator.Integrate(ctx, tGC, cloud.Points, cloud.Colors, msg.IsFreespace, false); err != nil {
		return errors.Wrap(err, "integrating point cloud")
	}

	if p.cfg.deintegrationEnabled() || p.cfg.submappingEnabled() {
		p.deintQueue = append(p.deintQueue, Packet{
			Timestamp:   msg.Timestamp,
			Pose:        tGC,
			Points:      cloud.Points,
			Colors:      cloud.Colors,
			IsFreespace: msg.IsFreespace,
		})
	}

	if p.cfg.deintegrationEnabled() {
		if err := p.serviceDeintegrationQueue(ctx); err != nil {
			return errors.Wrap(err, "servicing deintegration queue")
		}
	}
	return nil
}

// serviceDeintegrationQueue pops and replays the oldest packet with
// deintegrate=true while the sliding window is over any configured limit,
// strictly FIFO against integration.
func (p *Pipeline) serviceDeintegrationQueue(ctx context.Context) error {
	for len(p.deintQueue) > 1 && p.overLimit() {
		oldest := p.deintQueue[0]
		p.deintQueue = p.deintQueue[1:]
		if err := p.integrator.Integrate(ctx, oldest.Pose, oldest.Points, oldest.Colors, oldest.IsFreespace, true); err != nil {
			return err
		}
		p.needsPruning = true
	}
	return nil
}

func (p *Pipeline) overLimit() bool {
	n := len(p.deintQueue)
	if voxconfig.ExceedsInt(p.cfg.DeintegrationMaxQueueLength, n) {
		return true
	}
	oldest, newest := p.deintQueue[0], p.deintQueue[n-1]
	if voxconfig.ExceedsFloat(p.cfg.DeintegrationMaxTimeIntervalSec, newest.Timestamp.Sub(oldest.Timestamp).Seconds()) {
		return true
	}
	dist := newest.Pose.Point().Sub(oldest.Pose.Point()).Norm()
	if voxconfig.ExceedsFloat(p.cfg.DeintegrationMaxDistanceTravelled, dist) {
		return true
	}
	return false
}

// NeedsPruning reports whether a deintegration has occurred since the last
// Prune call.
func (p *Pipeline) NeedsPruning() bool { return p.needsPruning }

// Trajectory returns the ordered {timestamp, pose} samples currently held
// in the deintegration queue, used to build a submap record.
func (p *Pipeline) Trajectory() []submap.TrajectorySample {
	out := make([]submap.TrajectorySample, len(p.deintQueue))
	for i, pkt := range p.deintQueue {
		out[i] = submap.TrajectorySample{Timestamp: pkt.Timestamp, Pose: pkt.Pose}
	}
	return out
}

// ClearLayer drops every block, used on a non-smooth submap cut (spec.md
// §4.E step 9: clear the layer when deintegration is off).
func (p *Pipeline) ClearLayer() {
	p.layer.RemoveAllBlocks()
	p.deintQueue = nil
}

// CheckSubmapCut evaluates the submap-cut predicate against the current
// sample (now, pos), and if it fires, advances the submap bookkeeping and
// returns the new submap number. It never touches the layer or trajectory;
// the caller is responsible for building and persisting the record first.
func (p *Pipeline) CheckSubmapCut(now time.Time, pos r3.Vector) (cut bool, number int) {
	if !p.cfg.submappingEnabled() {
		return false, 0
	}
	if !p.haveSubmapPos {
		p.haveSubmapPos = true
		p.lastSubmapAt = now
		p.lastSubmapPos = pos
		return false, 0
	}
	timeTrigger := voxconfig.ExceedsFloat(p.cfg.SubmapMaxTimeIntervalSec, now.Sub(p.lastSubmapAt).Seconds())
	distTrigger := voxconfig.ExceedsFloat(p.cfg.SubmapMaxDistanceTravelled, pos.Sub(p.lastSubmapPos).Norm())
	if !timeTrigger && !distTrigger {
		return false, 0
	}
	p.submapCounter++
	p.lastSubmapAt = now
	p.lastSubmapPos = pos
	return true, p.submapCounter
}
