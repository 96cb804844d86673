// Package config defines the file format configuring a grasp planner and turns it into validated grasp,
// kinematics and scene structures.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.uber.org/multierr"
	"go.viam.com/utils"

	"go.viam.com/grasping/collision"
	"go.viam.com/grasping/grasp"
	"go.viam.com/grasping/logging"
	"go.viam.com/grasping/motionplan/ik"
	"go.viam.com/grasping/referenceframe"
	"go.viam.com/grasping/spatialmath"
)

// The supported gripper families.
const (
	GripperTwoFinger = "two_finger"
	GripperSuction   = "suction"
)

// Config is the whole of a grasp planner's configuration.
type Config struct {
	ConfigFilePath string `json:"-"`

	Gripper     GripperConfig                 `json:"gripper"`
	Candidates  grasp.CandidateConfig         `json:"candidates"`
	IdealRPY    *Orientation                  `json:"ideal_rpy,omitempty"`
	Filter      FilterConfig                  `json:"filter"`
	Planning    PlanningConfig                `json:"planning"`
	Scene       []ObstacleConfig              `json:"scene,omitempty"`
	Constraints ConstraintsConfig             `json:"constraints"`
	LogConfig   []logging.LoggerPatternConfig `json:"log,omitempty"`
	Debug       bool                          `json:"debug,omitempty"`
}

// Validate checks every section and reports every problem found at once.
func (c *Config) Validate() error {
	err := multierr.Combine(
		c.Gripper.Validate("gripper"),
		c.Filter.Validate("filter"),
		c.Planning.Validate("planning"),
		c.Constraints.Validate("constraints"),
	)
	ids := map[string]bool{}
	for idx, obstacle := range c.Scene {
		path := fmt.Sprintf("scene.%d", idx)
		if vErr := obstacle.Validate(path); vErr != nil {
			err = multierr.Append(err, vErr)
			continue
		}
		if ids[obstacle.ID] {
			err = multierr.Append(err, utils.NewConfigValidationError(path, errors.Errorf("duplicate obstacle id %q", obstacle.ID)))
		}
		ids[obstacle.ID] = true
	}
	if target := c.Filter.TargetObjectID; target != "" && len(c.Scene) > 0 && !ids[target] {
		err = multierr.Append(err, utils.NewConfigValidationError("filter",
			errors.Errorf("target_object_id %q is not a scene obstacle", target)))
	}
	for idx, lpc := range c.LogConfig {
		if vErr := lpc.Validate(fmt.Sprintf("log.%d", idx)); vErr != nil {
			err = multierr.Append(err, vErr)
		}
	}
	return err
}

// IdealOrientation returns the preferred tool orientation, nil when unset.
func (c *Config) IdealOrientation() *spatialmath.EulerAngles {
	if c.IdealRPY == nil {
		return nil
	}
	return c.IdealRPY.EulerAngles()
}

// NewGenerator builds the generator for the configured gripper family.
func (c *Config) NewGenerator(logger logging.Logger) (grasp.Generator, error) {
	switch c.Gripper.Family {
	case GripperSuction:
		return grasp.NewSuctionGenerator(logger, c.Candidates, c.Gripper.Weights.ToSuctionWeights(), c.IdealOrientation())
	case GripperTwoFinger:
		return grasp.NewTwoFingerGenerator(logger, c.Candidates, c.Gripper.Weights.ToTwoFingerWeights(), c.IdealOrientation())
	default:
		return nil, errors.Errorf("unknown gripper family %q", c.Gripper.Family)
	}
}

// NewScene builds the planning scene from the configured obstacles.
func (c *Config) NewScene() (*collision.Scene, error) {
	geometries := make([]spatialmath.Geometry, 0, len(c.Scene))
	for _, obstacle := range c.Scene {
		g, err := obstacle.ToGeometry()
		if err != nil {
			return nil, err
		}
		geometries = append(geometries, g)
	}
	return collision.NewScene(geometries...)
}

// GripperConfig describes the end effector and how its grasps are scored.
type GripperConfig struct {
	Family           string        `json:"family"`
	DepthMin         float64       `json:"depth_min"`
	DepthMax         float64       `json:"depth_max"`
	DepthResolution  float64       `json:"depth_resolution"`
	WidthMin         float64       `json:"width_min"`
	WidthMax         float64       `json:"width_max"`
	WidthMargin      float64       `json:"width_margin"`
	ApproachDistance float64       `json:"approach_distance"`
	TCPFrame         string        `json:"tcp_frame"`
	ParentLink       string        `json:"parent_link"`
	TCPInParent      *PoseConfig   `json:"tcp_in_parent,omitempty"`
	Weights          WeightsConfig `json:"weights"`
}

// Validate ensures the gripper is a known family with a well formed geometry and weights.
func (g *GripperConfig) Validate(path string) error {
	switch g.Family {
	case "":
		return utils.NewConfigValidationFieldRequiredError(path, "family")
	case GripperTwoFinger, GripperSuction:
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown gripper family %q, expected %s or %s",
			g.Family, GripperTwoFinger, GripperSuction))
	}
	var err error
	if gErr := g.ToGraspGeometry().Validate(); gErr != nil {
		err = multierr.Append(err, utils.NewConfigValidationError(path, gErr))
	}
	if g.TCPInParent != nil {
		err = multierr.Append(err, g.TCPInParent.Validate(path+".tcp_in_parent"))
	}
	return multierr.Append(err, g.Weights.Validate(path+".weights", g.Family))
}

// ToGraspGeometry builds the grasp geometry.
func (g *GripperConfig) ToGraspGeometry() grasp.GraspGeometry {
	geom := grasp.GraspGeometry{
		DepthMin:         g.DepthMin,
		DepthMax:         g.DepthMax,
		DepthResolution:  g.DepthResolution,
		WidthMin:         g.WidthMin,
		WidthMax:         g.WidthMax,
		WidthMargin:      g.WidthMargin,
		ApproachDistance: g.ApproachDistance,
		TCPFrame:         g.TCPFrame,
		ParentLink:       g.ParentLink,
	}
	if g.TCPInParent != nil {
		geom.TCPInParent = g.TCPInParent.ToPose()
	}
	return geom
}

// WeightsConfig holds the score weights of every gripper family. Each family reads the terms it uses.
type WeightsConfig struct {
	OrientationX float64 `json:"orientation_x"`
	OrientationY float64 `json:"orientation_y"`
	OrientationZ float64 `json:"orientation_z"`
	TranslationX float64 `json:"translation_x"`
	TranslationY float64 `json:"translation_y"`
	TranslationZ float64 `json:"translation_z"`
	Depth        float64 `json:"depth"`
	Width        float64 `json:"width"`
	Overhang     float64 `json:"overhang"`
}

// Validate checks the weights the family uses.
func (w WeightsConfig) Validate(path, family string) error {
	var err error
	if family == GripperSuction {
		err = w.ToSuctionWeights().Validate()
	} else {
		err = w.ToTwoFingerWeights().Validate()
	}
	if err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	return nil
}

func (w WeightsConfig) base() grasp.BaseWeights {
	return grasp.BaseWeights{
		OrientationX: w.OrientationX,
		OrientationY: w.OrientationY,
		OrientationZ: w.OrientationZ,
		TranslationX: w.TranslationX,
		TranslationY: w.TranslationY,
		TranslationZ: w.TranslationZ,
	}
}

// ToTwoFingerWeights builds parallel gripper weights.
func (w WeightsConfig) ToTwoFingerWeights() grasp.TwoFingerWeights {
	return grasp.TwoFingerWeights{BaseWeights: w.base(), Depth: w.Depth, Width: w.Width}
}

// ToSuctionWeights builds suction gripper weights.
func (w WeightsConfig) ToSuctionWeights() grasp.SuctionWeights {
	return grasp.SuctionWeights{BaseWeights: w.base(), Depth: w.Depth, Overhang: w.Overhang}
}

// FilterConfig configures grasp filtering.
type FilterConfig struct {
	Workers           int           `json:"workers"`
	BatchTimeout      time.Duration `json:"batch_timeout"`
	FilterPregrasp    bool          `json:"filter_pregrasp"`
	StatisticsVerbose bool          `json:"statistics_verbose"`
	Verbose           bool          `json:"verbose"`
	VerboseIfFailed   bool          `json:"verbose_if_failed"`
	TargetObjectID    string        `json:"target_object_id"`
}

// Validate ensures the worker count and timeout are non-negative.
func (f *FilterConfig) Validate(path string) error {
	var err error
	if f.Workers < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.Errorf("workers must be non-negative, got %d", f.Workers)))
	}
	if f.BatchTimeout < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("batch_timeout must be non-negative, got %v", f.BatchTimeout)))
	}
	return err
}

// ToFilterOptions builds the filter options.
func (f *FilterConfig) ToFilterOptions() grasp.FilterOptions {
	return grasp.FilterOptions{
		Workers:           f.Workers,
		BatchTimeout:      f.BatchTimeout,
		StatisticsVerbose: f.StatisticsVerbose,
		Verbose:           f.Verbose,
		VerboseIfFailed:   f.VerboseIfFailed,
		TargetObjectID:    f.TargetObjectID,
	}
}

// PlanningConfig names the arm and the joint groups solved for.
type PlanningConfig struct {
	// ArmModelPath is a kinematics JSON file. Relative paths are resolved against the config file.
	ArmModelPath string `json:"arm_model_path"`
	// BuiltinModel names a model shipped with referenceframe, used when no path is given.
	BuiltinModel     string        `json:"builtin_model"`
	PlanningGroup    string        `json:"planning_group"`
	EndEffectorGroup string        `json:"end_effector_group"`
	EndEffectorLinks []string      `json:"end_effector_links"`
	IKTimeout        time.Duration `json:"ik_timeout"`
	IK               IKConfig      `json:"ik"`
}

// Validate ensures a planning group is named and exactly one model source is given.
func (p *PlanningConfig) Validate(path string) error {
	var err error
	if p.PlanningGroup == "" {
		err = multierr.Append(err, utils.NewConfigValidationFieldRequiredError(path, "planning_group"))
	}
	if p.ArmModelPath != "" && p.BuiltinModel != "" {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.New("only one of arm_model_path and builtin_model may be set")))
	}
	if p.IKTimeout < 0 {
		err = multierr.Append(err, utils.NewConfigValidationError(path,
			errors.Errorf("ik_timeout must be non-negative, got %v", p.IKTimeout)))
	}
	if lo.Contains(p.EndEffectorLinks, "") {
		err = multierr.Append(err, utils.NewConfigValidationError(path, errors.New("end_effector_links cannot contain empty names")))
	}
	return multierr.Append(err, p.IK.Validate(path+".ik"))
}

// LoadModel loads the arm model. configPath is the config file the model path is relative to.
func (p *PlanningConfig) LoadModel(configPath string) (referenceframe.Model, error) {
	if p.ArmModelPath == "" {
		name := p.BuiltinModel
		if name == "" {
			name = referenceframe.SixAxisArm
		}
		return referenceframe.BuiltinModel(name)
	}
	modelPath := p.ArmModelPath
	if !filepath.IsAbs(modelPath) && configPath != "" {
		modelPath = filepath.Join(filepath.Dir(configPath), modelPath)
	}
	return referenceframe.ParseModelJSONFile(modelPath, p.PlanningGroup)
}

// JointGroup builds the planning group.
func (p *PlanningConfig) JointGroup() referenceframe.JointGroup {
	return referenceframe.JointGroup{
		Name:             p.PlanningGroup,
		EndEffectorLinks: p.EndEffectorLinks,
		IKTimeout:        p.IKTimeout,
	}
}

// IKConfig tunes the reference solver.
type IKConfig struct {
	GoalThreshold float64       `json:"goal_threshold"`
	MaxRestarts   int           `json:"max_restarts"`
	MaxIterations int           `json:"max_iterations"`
	Timeout       time.Duration `json:"timeout"`
	RandomSeed    int64         `json:"random_seed"`
}

// Validate ensures the budgets are non-negative.
func (c IKConfig) Validate(path string) error {
	if c.GoalThreshold < 0 || c.MaxRestarts < 0 || c.MaxIterations < 0 || c.Timeout < 0 {
		return utils.NewConfigValidationError(path, errors.New("ik budgets must be non-negative"))
	}
	return nil
}

// ToOptions builds the solver options.
func (c IKConfig) ToOptions() ik.Options {
	return ik.Options{
		GoalThreshold: c.GoalThreshold,
		MaxRestarts:   c.MaxRestarts,
		MaxIterations: c.MaxIterations,
		Timeout:       c.Timeout,
		RandomSeed:    c.RandomSeed,
	}
}

// The supported obstacle shapes.
const (
	ObstacleBox    = "box"
	ObstacleSphere = "sphere"
)

// ObstacleConfig is a static obstacle in the planning scene.
type ObstacleConfig struct {
	ID     string      `json:"id"`
	Type   string      `json:"type"`
	Pose   PoseConfig  `json:"pose"`
	Size   Translation `json:"size"`
	Radius float64     `json:"radius"`
}

// Validate ensures the obstacle is named and has a positive size for its shape.
func (o *ObstacleConfig) Validate(path string) error {
	if o.ID == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "id")
	}
	if err := o.Pose.Validate(path + ".pose"); err != nil {
		return err
	}
	switch o.Type {
	case ObstacleBox, "":
		if !(o.Size.X > 0 && o.Size.Y > 0 && o.Size.Z > 0) {
			return utils.NewConfigValidationError(path, errors.Errorf("box %q needs a positive size", o.ID))
		}
	case ObstacleSphere:
		if !(o.Radius > 0) {
			return utils.NewConfigValidationError(path, errors.Errorf("sphere %q needs a positive radius", o.ID))
		}
	default:
		return utils.NewConfigValidationError(path, errors.Errorf("unknown obstacle type %q", o.Type))
	}
	return nil
}

// ToGeometry builds the obstacle geometry labeled with its id. An empty type is a box.
func (o *ObstacleConfig) ToGeometry() (spatialmath.Geometry, error) {
	if o.Type == ObstacleSphere {
		return spatialmath.NewSphere(o.Pose.ToPose(), o.Radius, o.ID)
	}
	return spatialmath.NewBox(o.Pose.ToPose(), o.Size.Vector(), o.ID)
}

// ConstraintsConfig lists the constraints applied to every filtering pass.
type ConstraintsConfig struct {
	Bin           *BinConfig                    `json:"bin,omitempty"`
	CuttingPlanes []CuttingPlaneConfig          `json:"cutting_planes,omitempty"`
	Orientations  []OrientationConstraintConfig `json:"orientations,omitempty"`
}

// Validate checks every constraint.
func (c *ConstraintsConfig) Validate(path string) error {
	var err error
	if c.Bin != nil {
		err = multierr.Append(err, c.Bin.Validate(path+".bin"))
	}
	for idx, cp := range c.CuttingPlanes {
		err = multierr.Append(err, cp.Validate(fmt.Sprintf("%s.cutting_planes.%d", path, idx)))
	}
	for idx, oc := range c.Orientations {
		err = multierr.Append(err, oc.Validate(fmt.Sprintf("%s.orientations.%d", path, idx)))
	}
	return err
}

// NewConstraintSet builds the constraint set. Bin planes come first, then the listed planes and orientations.
func (c *ConstraintsConfig) NewConstraintSet() (*grasp.ConstraintSet, error) {
	cs := grasp.NewConstraintSet()
	if c.Bin != nil {
		if err := cs.AddCuttingPlanesForBin(c.Bin.WorldToBin.ToPose(), c.Bin.BinToProduct.ToPose(), c.Bin.Width, c.Bin.Height); err != nil {
			return nil, err
		}
	}
	for _, cp := range c.CuttingPlanes {
		plane, err := grasp.PlaneFromString(cp.Plane)
		if err != nil {
			return nil, err
		}
		if err := cs.AddCuttingPlane(cp.Pose.ToPose(), plane, cp.Direction); err != nil {
			return nil, err
		}
	}
	for _, oc := range c.Orientations {
		if err := cs.AddOrientationConstraint(oc.Orientation.EulerAngles(), oc.MaxAngle); err != nil {
			return nil, err
		}
	}
	return cs, nil
}

// BinConfig fences grasps into a bin.
type BinConfig struct {
	WorldToBin   PoseConfig `json:"world_to_bin"`
	BinToProduct PoseConfig `json:"bin_to_product"`
	Width        float64    `json:"width"`
	Height       float64    `json:"height"`
}

// Validate ensures the bin has a positive size.
func (b *BinConfig) Validate(path string) error {
	if !(b.Width > 0 && b.Height > 0) {
		return utils.NewConfigValidationError(path, errors.New("bin width and height must be positive"))
	}
	return multierr.Combine(b.WorldToBin.Validate(path+".world_to_bin"), b.BinToProduct.Validate(path+".bin_to_product"))
}

// CuttingPlaneConfig rejects grasps on one side of a coordinate plane of a pose.
type CuttingPlaneConfig struct {
	Pose      PoseConfig `json:"pose"`
	Plane     string     `json:"plane"`
	Direction int        `json:"direction"`
}

// Validate ensures the plane is known and the direction is 1 or -1.
func (cp CuttingPlaneConfig) Validate(path string) error {
	if cp.Plane == "" {
		return utils.NewConfigValidationFieldRequiredError(path, "plane")
	}
	if _, err := grasp.PlaneFromString(cp.Plane); err != nil {
		return utils.NewConfigValidationError(path, err)
	}
	if cp.Direction != 1 && cp.Direction != -1 {
		return utils.NewConfigValidationError(path, errors.Errorf("direction must be 1 or -1, got %d", cp.Direction))
	}
	return cp.Pose.Validate(path + ".pose")
}

// OrientationConstraintConfig bounds the angle between a grasp's approach axis and the z axis of Orientation.
type OrientationConstraintConfig struct {
	Orientation Orientation `json:"orientation"`
	// MaxAngle is in radians.
	MaxAngle float64 `json:"max_angle"`
}

// Validate ensures the angle is non-negative.
func (oc OrientationConstraintConfig) Validate(path string) error {
	if !(oc.MaxAngle >= 0) {
		return utils.NewConfigValidationError(path, errors.Errorf("max_angle must be non-negative, got %v", oc.MaxAngle))
	}
	return nil
}
