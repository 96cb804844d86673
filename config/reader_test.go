package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"go.viam.com/test"

	"go.viam.com/grasping/logging"
)

const minimalJSON = `{
	"gripper": {
		"family": "two_finger",
		"depth_min": 0.02,
		"depth_max": 0.06,
		"depth_resolution": 0.01,
		"width_max": 0.08,
		"width_margin": 0.01,
		"weights": {
			"orientation_x": 2, "orientation_y": 2, "orientation_z": 2,
			"translation_x": 1, "translation_y": 1, "translation_z": 1,
			"depth": 2, "width": 2
		}
	},
	"candidates": {"enable_face_grasps": true, "generate_z_axis_grasps": true},
	"ideal_rpy": {"roll": 3.14},
	"filter": {"workers": 4, "batch_timeout": "500ms", "filter_pregrasp": true, "verbose_if_failed": true},
	"planning": {"planning_group": "arm", "end_effector_links": ["gripper_link"], "ik_timeout": "2s"}
}`

const minimalYAML = `
gripper:
  family: suction
  depth_max: 0.01
  width_max: 0.04
  weights:
    orientation_z: 1
    depth: 1
    overhang: 1
planning:
  planning_group: arm
  ik:
    max_restarts: 10
    random_seed: 7
scene:
  - id: table
    pose:
      translation: {z: -0.01}
    size: {x: 1, y: 1, z: 0.02}
log:
  - pattern: grasp.filter.*
    level: debug
`

func TestFromReaderJSON(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)
	cfg, err := FromReader(context.Background(), "grasp.json", strings.NewReader(minimalJSON), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, "grasp.json")
	test.That(t, cfg.Gripper.Family, test.ShouldEqual, GripperTwoFinger)
	test.That(t, cfg.Gripper.DepthMax, test.ShouldEqual, 0.06)
	test.That(t, cfg.Gripper.Weights.Width, test.ShouldEqual, 2.0)
	test.That(t, cfg.Candidates.GenerateZAxisGrasps, test.ShouldBeTrue)
	test.That(t, cfg.Candidates.GenerateXAxisGrasps, test.ShouldBeFalse)
	test.That(t, cfg.IdealRPY.Roll, test.ShouldEqual, 3.14)
	test.That(t, cfg.Filter.Workers, test.ShouldEqual, 4)
	test.That(t, cfg.Filter.BatchTimeout, test.ShouldEqual, 500*time.Millisecond)
	test.That(t, cfg.Filter.FilterPregrasp, test.ShouldBeTrue)
	test.That(t, cfg.Planning.IKTimeout, test.ShouldEqual, 2*time.Second)
	test.That(t, cfg.Planning.EndEffectorLinks, test.ShouldResemble, []string{"gripper_link"})
	test.That(t, logs.FilterMessage("ignoring unknown config attributes").Len(), test.ShouldEqual, 0)
}

func TestFromReaderYAML(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg, err := FromReader(context.Background(), "grasp.yaml", strings.NewReader(minimalYAML), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Gripper.Family, test.ShouldEqual, GripperSuction)
	test.That(t, cfg.Gripper.Weights.Overhang, test.ShouldEqual, 1.0)
	test.That(t, cfg.Planning.IK.MaxRestarts, test.ShouldEqual, 10)
	test.That(t, cfg.Planning.IK.RandomSeed, test.ShouldEqual, 7)
	test.That(t, len(cfg.Scene), test.ShouldEqual, 1)
	test.That(t, cfg.Scene[0].Pose.Translation.Z, test.ShouldEqual, -0.01)
	test.That(t, cfg.Scene[0].Size.X, test.ShouldEqual, 1.0)
	test.That(t, cfg.LogConfig, test.ShouldResemble, []logging.LoggerPatternConfig{{Pattern: "grasp.filter.*", Level: "debug"}})
}

func TestFromReaderErrors(t *testing.T) {
	logger, logs := logging.NewObservedTestLogger(t)

	_, err := FromReader(context.Background(), "somepath", strings.NewReader(""), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "EOF")

	_, err = FromReader(context.Background(), "somepath.yml", strings.NewReader("gripper: [1"), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "yaml")

	_, err = FromReader(context.Background(), "somepath", strings.NewReader(`{"gripper": 1}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, "failed to decode config attributes")

	_, err = FromReader(context.Background(), "somepath", strings.NewReader(`{}`), logger)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"family" is required`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"planning_group" is required`)

	_, err = FromReader(context.Background(), "somepath", strings.NewReader(`{"filter": {"batch_timeout": "soon"}}`), logger)
	test.That(t, err, test.ShouldNotBeNil)

	withExtra := strings.Replace(minimalJSON, `"candidates"`, `"bogus": true, "candidates"`, 1)
	_, err = FromReader(context.Background(), "somepath", strings.NewReader(withExtra), logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, logs.FilterMessage("ignoring unknown config attributes").Len(), test.ShouldEqual, 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = FromReader(ctx, "somepath", strings.NewReader(minimalJSON), logger)
	test.That(t, err, test.ShouldBeError, context.Canceled)
}

func TestRead(t *testing.T) {
	logger := logging.NewTestLogger(t)
	t.Setenv("GRASP_TEST_FAMILY", "suction")
	dir := t.TempDir()
	path := filepath.Join(dir, "grasp.yaml")
	doc := strings.Replace(minimalYAML, "family: suction", "family: ${GRASP_TEST_FAMILY}", 1)
	test.That(t, os.WriteFile(path, []byte(doc), 0o600), test.ShouldBeNil)

	cfg, err := Read(context.Background(), path, logger)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cfg.Gripper.Family, test.ShouldEqual, GripperSuction)
	test.That(t, cfg.ConfigFilePath, test.ShouldEqual, path)

	_, err = Read(context.Background(), filepath.Join(dir, "missing.json"), logger)
	test.That(t, err, test.ShouldNotBeNil)
}
