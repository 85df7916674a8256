package voxconfig

import (
	"path/filepath"

	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
)

// Config is the full set of attributes recognized by the server, decoded
// from the attribute map handed down by the caller's config loader.
type Config struct {
	// Map
	VoxelSize     float64 `mapstructure:"voxel_size"`
	VoxelsPerSide int     `mapstructure:"voxels_per_side"`

	// Integrator
	Method                  string  `mapstructure:"method"`
	TruncationDistance      float64 `mapstructure:"truncation_distance"`
	MaxWeight               float64 `mapstructure:"max_weight"`
	WeightPolicy            string  `mapstructure:"weight_policy"`
	MaxRayLength            float64 `mapstructure:"max_ray_length"`
	FreespaceTruncationDist float64 `mapstructure:"freespace_truncation_distance"`

	// ICP
	EnableICP               bool `mapstructure:"enable_icp"`
	AccumulateICPCorrections bool `mapstructure:"accumulate_icp_corrections"`
	ICPRefineRollPitch      bool `mapstructure:"icp_refine_roll_pitch"`
	ICPMaxIterations        int  `mapstructure:"icp_max_iterations"`

	// Ingest
	MinTimeBetweenMsgsSec    float64 `mapstructure:"min_time_between_msgs_sec"`
	PointcloudQueueSize      int     `mapstructure:"pointcloud_queue_size"`
	MaxBlockDistanceFromBody float64 `mapstructure:"max_block_distance_from_body"`
	UseFreespacePointcloud   bool    `mapstructure:"use_freespace_pointcloud"`

	// Sliding window (deintegration). Unset means no limit on that axis, and
	// the whole feature is disabled unless Method == "projective".
	DeintegrationMaxQueueLength      Optional[int]     `mapstructure:"-"`
	DeintegrationMaxTimeIntervalSec  Optional[float64] `mapstructure:"-"`
	DeintegrationMaxDistanceTravelled Optional[float64] `mapstructure:"-"`

	// Submapping
	SubmapMaxTimeIntervalSec       Optional[float64] `mapstructure:"-"`
	SubmapMaxDistanceTravelled     Optional[float64] `mapstructure:"-"`
	WriteSubmapsToDirectory        string            `mapstructure:"write_submaps_to_directory"`

	// Mesh
	UpdateMeshEveryNSec  float64 `mapstructure:"update_mesh_every_n_sec"`
	PublishMapEveryNSec  float64 `mapstructure:"publish_map_every_n_sec"`
	ColorMode            string  `mapstructure:"color_mode"`
	MeshFilename         string  `mapstructure:"mesh_filename"`

	// Visualization
	SliceLevel            float64 `mapstructure:"slice_level"`
	SliceLevelFollowRobot  bool    `mapstructure:"slice_level_follow_robot"`
	IntensityColormap      string  `mapstructure:"intensity_colormap"`
	IntensityMaxValue      float64 `mapstructure:"intensity_max_value"`
}

// rawOptionals mirrors the subset of Config's fields that arrive as
// attribute-map entries but decode into an Optional, since mapstructure
// cannot populate a generic struct directly.
type rawOptionals struct {
	DeintegrationMaxQueueLength       *int     `mapstructure:"pointcloud_deintegration_max_queue_length"`
	DeintegrationMaxTimeIntervalSec   *float64 `mapstructure:"pointcloud_deintegration_max_time_interval"`
	DeintegrationMaxDistanceTravelled *float64 `mapstructure:"pointcloud_deintegration_max_distance_travelled"`
	SubmapMaxTimeIntervalSec          *float64 `mapstructure:"submap_max_time_interval"`
	SubmapMaxDistanceTravelled        *float64 `mapstructure:"submap_max_distance_travelled"`
}

// Decode populates a Config from an attribute map (e.g. parsed component
// JSON config), following the teacher's mapstructure.Decode idiom.
func Decode(attrs map[string]interface{}) (*Config, error) {
	var cfg Config
	if err := mapstructure.Decode(attrs, &cfg); err != nil {
		return nil, errors.Wrap(err, "decoding voxblox config")
	}
	var raw rawOptionals
	if err := mapstructure.Decode(attrs, &raw); err != nil {
		return nil, errors.Wrap(err, "decoding voxblox sliding-window config")
	}
	if raw.DeintegrationMaxQueueLength != nil {
		cfg.DeintegrationMaxQueueLength = Set(*raw.DeintegrationMaxQueueLength)
	}
	if raw.DeintegrationMaxTimeIntervalSec != nil {
		cfg.DeintegrationMaxTimeIntervalSec = Set(*raw.DeintegrationMaxTimeIntervalSec)
	}
	if raw.DeintegrationMaxDistanceTravelled != nil {
		cfg.DeintegrationMaxDistanceTravelled = Set(*raw.DeintegrationMaxDistanceTravelled)
	}
	if raw.SubmapMaxTimeIntervalSec != nil {
		cfg.SubmapMaxTimeIntervalSec = Set(*raw.SubmapMaxTimeIntervalSec)
	}
	if raw.SubmapMaxDistanceTravelled != nil {
		cfg.SubmapMaxDistanceTravelled = Set(*raw.SubmapMaxDistanceTravelled)
	}
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *Config) {
	if cfg.VoxelSize == 0 {
		cfg.VoxelSize = 0.1
	}
	if cfg.VoxelsPerSide == 0 {
		cfg.VoxelsPerSide = 16
	}
	if cfg.Method == "" {
		cfg.Method = "merged"
	}
	if cfg.TruncationDistance == 0 {
		cfg.TruncationDistance = 2 * cfg.VoxelSize
	}
	if cfg.MaxWeight == 0 {
		cfg.MaxWeight = 1e4
	}
	if cfg.PointcloudQueueSize == 0 {
		cfg.PointcloudQueueSize = 10
	}
	if cfg.ICPMaxIterations == 0 {
		cfg.ICPMaxIterations = 10
	}
	if cfg.IntensityColormap == "" {
		cfg.IntensityColormap = "rainbow"
	}
	if cfg.IntensityMaxValue == 0 {
		cfg.IntensityMaxValue = 100
	}
}

// Validate checks cross-field and filesystem-path constraints, disabling
// (never crashing on) any offending feature per the configuration-error
// taxonomy entry. Returns the list of human-readable warnings logged by the
// caller, and an error only for conditions the caller cannot recover from.
func (c *Config) Validate(path string) ([]string, error) {
	var warnings []string

	switch c.Method {
	case "simple", "merged", "fast", "projective":
	default:
		return nil, errors.Errorf("%s.method: unknown integrator method %q", path, c.Method)
	}

	deintegrationRequested := c.DeintegrationMaxQueueLength.IsSet() ||
		c.DeintegrationMaxTimeIntervalSec.IsSet() ||
		c.DeintegrationMaxDistanceTravelled.IsSet()
	if deintegrationRequested && c.Method != "projective" {
		warnings = append(warnings, "deintegration requested without projective integrator; disabling sliding window")
		c.DeintegrationMaxQueueLength = Unset[int]()
		c.DeintegrationMaxTimeIntervalSec = Unset[float64]()
		c.DeintegrationMaxDistanceTravelled = Unset[float64]()
	}

	switch c.IntensityColormap {
	case "rainbow", "inverse_rainbow", "grayscale", "inverse_grayscale", "ironbow":
	default:
		warnings = append(warnings, "unknown intensity_colormap "+c.IntensityColormap+"; defaulting to rainbow")
		c.IntensityColormap = "rainbow"
	}

	if c.WriteSubmapsToDirectory != "" {
		if !filepath.IsAbs(c.WriteSubmapsToDirectory) || !isASCII(c.WriteSubmapsToDirectory) {
			warnings = append(warnings, "write_submaps_to_directory must be an absolute, ASCII-only path; disabling submap disk writes")
			c.WriteSubmapsToDirectory = ""
		}
	}

	return warnings, nil
}

func isASCII(s string) bool {
	for _, r := range s {
		if r > 127 {
			return false
		}
	}
	return true
}
