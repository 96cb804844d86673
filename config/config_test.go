package config

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"go.uber.org/multierr"
	"go.viam.com/test"

	"go.viam.com/grasping/grasp"
	"go.viam.com/grasping/logging"
	"go.viam.com/grasping/referenceframe"
	"go.viam.com/grasping/spatialmath"
)

func readMinimal(t *testing.T) *Config {
	t.Helper()
	cfg, err := FromReader(context.Background(), "grasp.json", strings.NewReader(minimalJSON), logging.NewTestLogger(t))
	test.That(t, err, test.ShouldBeNil)
	return cfg
}

func TestValidateAggregates(t *testing.T) {
	cfg := readMinimal(t)
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	cfg.Gripper.Family = "magnet"
	cfg.Filter.Workers = -1
	cfg.Planning.PlanningGroup = ""
	cfg.Planning.BuiltinModel = "x"
	cfg.Planning.ArmModelPath = "y.json"
	err := cfg.Validate()
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 4)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown gripper family "magnet"`)
	test.That(t, err.Error(), test.ShouldContainSubstring, "workers must be non-negative")
	test.That(t, err.Error(), test.ShouldContainSubstring, `"planning_group" is required`)
	test.That(t, err.Error(), test.ShouldContainSubstring, "only one of arm_model_path and builtin_model")
}

func TestGripperValidate(t *testing.T) {
	cfg := readMinimal(t)
	g := cfg.Gripper

	bad := g
	bad.DepthMin = 0.1
	test.That(t, bad.Validate("gripper"), test.ShouldNotBeNil)
	test.That(t, bad.Validate("gripper").Error(), test.ShouldContainSubstring, "depth min")

	bad = g
	bad.Weights.Depth = -1
	test.That(t, bad.Validate("gripper").Error(), test.ShouldContainSubstring, "weight depth")

	// suction grippers ignore the width weight
	bad = g
	bad.Family = GripperSuction
	bad.Weights.Width = -1
	test.That(t, bad.Validate("gripper"), test.ShouldBeNil)

	bad = g
	bad.TCPInParent = &PoseConfig{Translation: Translation{X: math.NaN()}}
	test.That(t, bad.Validate("gripper"), test.ShouldNotBeNil)
}

func TestGripperToGraspGeometry(t *testing.T) {
	g := readMinimal(t).Gripper
	geom := g.ToGraspGeometry()
	test.That(t, geom.DepthMin, test.ShouldEqual, 0.02)
	test.That(t, geom.WidthMax, test.ShouldEqual, 0.08)
	test.That(t, geom.TCPInParent, test.ShouldBeNil)

	g.TCPInParent = &PoseConfig{Translation: Translation{Z: 0.1}}
	geom = g.ToGraspGeometry()
	test.That(t, spatialmath.R3VectorAlmostEqual(geom.TCPInParent.Point(), r3.Vector{Z: 0.1}, 1e-9), test.ShouldBeTrue)

	w := g.Weights
	test.That(t, w.ToTwoFingerWeights().MaxScore(), test.ShouldEqual, 13.0)
	w.Overhang = 3
	test.That(t, w.ToSuctionWeights().MaxScore(), test.ShouldEqual, 14.0)
}

func TestNewGenerator(t *testing.T) {
	logger := logging.NewTestLogger(t)
	cfg := readMinimal(t)
	gen, err := cfg.NewGenerator(logger)
	test.That(t, err, test.ShouldBeNil)
	_, ok := gen.(*grasp.TwoFingerGenerator)
	test.That(t, ok, test.ShouldBeTrue)

	obj := grasp.Object{ID: "cube", Pose: spatialmath.NewPoseFromPoint(r3.Vector{X: 0.4}), Extents: r3.Vector{X: 0.03, Y: 0.03, Z: 0.03}}
	candidates, err := gen.Generate(context.Background(), obj, cfg.Gripper.ToGraspGeometry())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(candidates), test.ShouldEqual, 2)
	test.That(t, candidates[0].Face, test.ShouldEqual, "+z")

	cfg.Gripper.Family = GripperSuction
	gen, err = cfg.NewGenerator(logger)
	test.That(t, err, test.ShouldBeNil)
	_, ok = gen.(*grasp.SuctionGenerator)
	test.That(t, ok, test.ShouldBeTrue)

	cfg.Gripper.Family = "magnet"
	_, err = cfg.NewGenerator(logger)
	test.That(t, err, test.ShouldNotBeNil)

	cfg.IdealRPY = nil
	test.That(t, cfg.IdealOrientation(), test.ShouldBeNil)
}

func TestSceneConfig(t *testing.T) {
	cfg := readMinimal(t)
	cfg.Scene = []ObstacleConfig{
		{ID: "table", Pose: PoseConfig{Translation: Translation{Z: -0.01}}, Size: Translation{X: 1, Y: 1, Z: 0.02}},
		{ID: "ball", Type: ObstacleSphere, Radius: 0.05},
	}
	test.That(t, cfg.Validate(), test.ShouldBeNil)
	scene, err := cfg.NewScene()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, scene.Len(), test.ShouldEqual, 2)
	_, ok := scene.Geometry("ball")
	test.That(t, ok, test.ShouldBeTrue)

	cfg.Filter.TargetObjectID = "cube"
	test.That(t, cfg.Validate().Error(), test.ShouldContainSubstring, `target_object_id "cube"`)
	cfg.Filter.TargetObjectID = "ball"
	test.That(t, cfg.Validate(), test.ShouldBeNil)

	cfg.Scene = append(cfg.Scene,
		ObstacleConfig{ID: "ball", Type: ObstacleSphere, Radius: 0.01},
		ObstacleConfig{ID: "flat", Size: Translation{X: 1, Y: 1}},
		ObstacleConfig{ID: "cone", Type: "cone"},
		ObstacleConfig{Type: ObstacleSphere, Radius: 1},
	)
	err = cfg.Validate()
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 4)
	test.That(t, err.Error(), test.ShouldContainSubstring, `duplicate obstacle id "ball"`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `box "flat" needs a positive size`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `unknown obstacle type "cone"`)
	test.That(t, err.Error(), test.ShouldContainSubstring, `"id" is required`)
}

func TestConstraintsConfig(t *testing.T) {
	c := ConstraintsConfig{
		Bin: &BinConfig{
			WorldToBin:   PoseConfig{Translation: Translation{X: 1, Y: 1}},
			BinToProduct: PoseConfig{Translation: Translation{X: 0.2, Y: 0.1, Z: 0.05}},
			Width:        0.4,
			Height:       0.3,
		},
		CuttingPlanes: []CuttingPlaneConfig{{Plane: "xy", Direction: -1}},
		Orientations:  []OrientationConstraintConfig{{Orientation: Orientation{Roll: 3.14}, MaxAngle: 0.5}},
	}
	test.That(t, c.Validate("constraints"), test.ShouldBeNil)
	cs, err := c.NewConstraintSet()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(cs.CuttingPlanes()), test.ShouldEqual, 6)
	test.That(t, len(cs.OrientationConstraints()), test.ShouldEqual, 1)
	last := cs.CuttingPlanes()[5]
	test.That(t, last.Plane, test.ShouldEqual, grasp.XY)
	test.That(t, last.Direction, test.ShouldEqual, -1)

	c.Bin.Width = 0
	c.CuttingPlanes = []CuttingPlaneConfig{{Plane: "xy", Direction: 0}, {Plane: "ab", Direction: 1}, {Direction: 1}}
	c.Orientations[0].MaxAngle = -1
	err = c.Validate("constraints")
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 5)
	test.That(t, err.Error(), test.ShouldContainSubstring, "bin width and height must be positive")
	test.That(t, err.Error(), test.ShouldContainSubstring, "direction must be 1 or -1")
	test.That(t, err.Error(), test.ShouldContainSubstring, `"plane" is required`)
	test.That(t, err.Error(), test.ShouldContainSubstring, "max_angle must be non-negative")

	empty := ConstraintsConfig{}
	cs, err = empty.NewConstraintSet()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, cs.Len(), test.ShouldEqual, 0)
}

func TestPlanningConfig(t *testing.T) {
	p := readMinimal(t).Planning
	model, err := p.LoadModel("grasp.json")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, model.Name(), test.ShouldEqual, referenceframe.SixAxisArm)
	test.That(t, len(model.DoF()), test.ShouldEqual, 6)

	group := p.JointGroup()
	test.That(t, group.Name, test.ShouldEqual, "arm")
	test.That(t, group.EndEffectorLinks, test.ShouldResemble, []string{"gripper_link"})
	test.That(t, group.IKTimeout, test.ShouldEqual, 2*time.Second)

	p.BuiltinModel = "nope"
	_, err = p.LoadModel("")
	test.That(t, err, test.ShouldNotBeNil)

	// model paths are relative to the config file
	data, err := os.ReadFile(filepath.Join("..", "referenceframe", "models", referenceframe.SixAxisArm+".json"))
	test.That(t, err, test.ShouldBeNil)
	dir := t.TempDir()
	test.That(t, os.WriteFile(filepath.Join(dir, "arm.json"), data, 0o600), test.ShouldBeNil)
	p.BuiltinModel = ""
	p.ArmModelPath = "arm.json"
	model, err = p.LoadModel(filepath.Join(dir, "grasp.json"))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, model.Name(), test.ShouldEqual, "arm")
	_, err = p.LoadModel(filepath.Join(t.TempDir(), "grasp.json"))
	test.That(t, err, test.ShouldNotBeNil)

	p.EndEffectorLinks = []string{""}
	p.IK.MaxRestarts = -1
	err = p.Validate("planning")
	test.That(t, len(multierr.Errors(err)), test.ShouldEqual, 2)

	opts := IKConfig{GoalThreshold: 0.001, MaxRestarts: 3, Timeout: time.Second, RandomSeed: 5}.ToOptions()
	test.That(t, opts.MaxRestarts, test.ShouldEqual, 3)
	test.That(t, opts.RandomSeed, test.ShouldEqual, 5)
}

func TestFilterConfig(t *testing.T) {
	f := readMinimal(t).Filter
	f.TargetObjectID = "cube"
	opts := f.ToFilterOptions()
	test.That(t, opts.Workers, test.ShouldEqual, 4)
	test.That(t, opts.BatchTimeout, test.ShouldEqual, 500*time.Millisecond)
	test.That(t, opts.TargetObjectID, test.ShouldEqual, "cube")
	test.That(t, opts.VerboseIfFailed, test.ShouldBeTrue)

	f.BatchTimeout = -time.Second
	f.Workers = -2
	test.That(t, len(multierr.Errors(f.Validate("filter"))), test.ShouldEqual, 2)
}

func TestApplyLogConfig(t *testing.T) {
	defer logging.GlobalLogLevel.SetLevel(logging.GlobalLogLevel.Level())
	logger := logging.NewTestLogger(t)
	InitLoggingSettings(logger, false)
	test.That(t, logging.GlobalLogLevel.Level().String(), test.ShouldEqual, "info")

	registry := logging.NewRegistry()
	root := registry.Register(logging.NewBlankLogger("grasp"))
	cfg := readMinimal(t)
	cfg.LogConfig = []logging.LoggerPatternConfig{{Pattern: "grasp.filter.*", Level: "error"}}
	ApplyLogConfig(cfg, registry)
	test.That(t, root.Sublogger("filter").Sublogger("plane").GetLevel(), test.ShouldEqual, logging.ERROR)
	test.That(t, root.GetLevel(), test.ShouldEqual, logging.INFO)

	cfg.Debug = true
	ApplyLogConfig(cfg, registry)
	test.That(t, logging.GlobalLogLevel.Level().String(), test.ShouldEqual, "debug")

	InitLoggingSettings(logger, true)
	cfg.Debug = false
	ApplyLogConfig(cfg, registry)
	test.That(t, logging.GlobalLogLevel.Level().String(), test.ShouldEqual, "debug")
}
