package voxconfig

import (
	"testing"

	"go.viam.com/test"
)

func TestDecodeAppliesDefaults(t *testing.T) {
	cfg, err := Decode(map[string]interface{}{})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.VoxelSize, test.ShouldEqual, 0.1)
	test.That(t, cfg.Method, test.ShouldEqual, "merged")
	test.That(t, cfg.DeintegrationMaxQueueLength.IsSet(), test.ShouldBeFalse)
}

func TestDecodeOptionalAxes(t *testing.T) {
	cfg, err := Decode(map[string]interface{}{
		"pointcloud_deintegration_max_queue_length": 5,
		"method": "projective",
	})
	test.That(t, err, test.ShouldBeNil)
	v, ok := cfg.DeintegrationMaxQueueLength.Value()
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, v, test.ShouldEqual, 5)
}

func TestValidateDisablesDeintegrationWithoutProjective(t *testing.T) {
	cfg, err := Decode(map[string]interface{}{
		"pointcloud_deintegration_max_queue_length": 5,
		"method": "merged",
	})
	test.That(t, err, test.ShouldBeNil)
	warnings, err := cfg.Validate("config")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(warnings), test.ShouldEqual, 1)
	test.That(t, cfg.DeintegrationMaxQueueLength.IsSet(), test.ShouldBeFalse)
}

func TestValidateRejectsRelativeSubmapPath(t *testing.T) {
	cfg, err := Decode(map[string]interface{}{"write_submaps_to_directory": "relative/path"})
	test.That(t, err, test.ShouldBeNil)
	warnings, err := cfg.Validate("config")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(warnings), test.ShouldEqual, 1)
	test.That(t, cfg.WriteSubmapsToDirectory, test.ShouldEqual, "")
}

func TestExceedsFloatUnsetNeverTriggers(t *testing.T) {
	test.That(t, ExceedsFloat(Unset[float64](), 1e9), test.ShouldBeFalse)
	test.That(t, ExceedsFloat(Set(1.0), 2.0), test.ShouldBeTrue)
	test.That(t, ExceedsFloat(Set(1.0), 0.5), test.ShouldBeFalse)
}
