package grasp

import (
	"context"
	"math"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/samber/lo"
	"go.opencensus.io/trace"

	"go.viam.com/grasping/logging"
	"go.viam.com/grasping/spatialmath"
)

// Generator produces grasp candidates for an object, best first.
type Generator interface {
	Generate(ctx context.Context, obj Object, geom GraspGeometry) ([]*Candidate, error)
}

// face is one side of an object's bounding box, named by the local axis of its outward normal and the sign.
type face struct {
	axis int
	sign float64
}

func (f face) String() string {
	s := "+"
	if f.sign < 0 {
		s = "-"
	}
	return s + [3]string{"x", "y", "z"}[f.axis]
}

func (f face) normal() r3.Vector {
	return unitAxis(f.axis).Mul(f.sign)
}

// inPlane returns the two local axes spanning the face.
func (f face) inPlane() [2]int {
	return [2]int{(f.axis + 1) % 3, (f.axis + 2) % 3}
}

func unitAxis(axis int) r3.Vector {
	switch axis {
	case 0:
		return r3.Vector{X: 1}
	case 1:
		return r3.Vector{Y: 1}
	default:
		return r3.Vector{Z: 1}
	}
}

func enumerateFaces(config CandidateConfig) []face {
	var faces []face
	for _, axis := range config.axes() {
		faces = append(faces, face{axis: axis, sign: 1}, face{axis: axis, sign: -1})
	}
	return faces
}

// tcpPose places the tool control point on the face normal at the given distance from the object center.
// The tool's z axis points into the face and its y axis lies along yAxis of the object.
func tcpPose(obj Object, f face, yAxis int, offset float64) spatialmath.Pose {
	n := f.normal()
	z := n.Mul(-1)
	y := unitAxis(yAxis)
	x := y.Cross(z)
	local := spatialmath.NewPose(n.Mul(offset), spatialmath.NewRotationMatrixFromAxes(x, y, z))
	return spatialmath.Compose(obj.Pose, local)
}

// centerClearance is how far short of the object center the deepest grasp stops.
const centerClearance = 1e-3

// insertionDepths clamps the configured depths so the tool stays on its own side of the object center, dropping
// repeats.
func insertionDepths(geom GraspGeometry, variable bool, halfExtent float64) []float64 {
	deepest := halfExtent - math.Min(centerClearance, halfExtent/2)
	return lo.Uniq(lo.Map(geom.Depths(variable), func(d float64, _ int) float64 {
		return math.Min(d, deepest)
	}))
}

func newCandidate(index int, f face, pose spatialmath.Pose, geom GraspGeometry, depth, opening float64) *Candidate {
	pregrasp := geom.PregraspPose(pose)
	return &Candidate{
		Index:              index,
		Face:               f.String(),
		Approach:           spatialmath.AxisOf(pose, 2),
		Pose:               pose,
		ParentPose:         geom.ParentPose(pose),
		PregraspPose:       pregrasp,
		PregraspParentPose: geom.ParentPose(pregrasp),
		Depth:              depth,
		Opening:            opening,
	}
}

func idealOrientation(rpy *spatialmath.EulerAngles) spatialmath.Orientation {
	if rpy == nil {
		return spatialmath.NewZeroOrientation()
	}
	return rpy
}

// TwoFingerGenerator generates face grasps for a parallel gripper. The fingers close along one in-plane axis of
// each face and must open wide enough to clear the object along it.
type TwoFingerGenerator struct {
	logger  logging.Logger
	config  CandidateConfig
	weights TwoFingerWeights
	ideal   spatialmath.Orientation
}

// NewTwoFingerGenerator returns a generator scoring against the ideal tool orientation given as roll, pitch and
// yaw in the world frame. A nil ideal is the identity.
func NewTwoFingerGenerator(
	logger logging.Logger,
	config CandidateConfig,
	weights TwoFingerWeights,
	idealRPY *spatialmath.EulerAngles,
) (*TwoFingerGenerator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &TwoFingerGenerator{
		logger:  logger.Sublogger("generator"),
		config:  config,
		weights: weights,
		ideal:   idealOrientation(idealRPY),
	}, nil
}

// Config returns the generator's candidate configuration.
func (g *TwoFingerGenerator) Config() CandidateConfig {
	return g.config
}

// Generate enumerates the enabled faces. Each face yields a grasp closing along its narrowest in-plane axis that
// fits the gripper, or along every fitting axis when finger rotations are enabled. Faces with no fitting axis are
// skipped, so an object too wide everywhere yields no candidates.
func (g *TwoFingerGenerator) Generate(ctx context.Context, obj Object, geom GraspGeometry) ([]*Candidate, error) {
	_, span := trace.StartSpan(ctx, "grasp::TwoFingerGenerator::Generate")
	defer span.End()

	if err := obj.Validate(); err != nil {
		return nil, err
	}
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	candidates := []*Candidate{}
	for _, f := range enumerateFaces(g.config) {
		closing := g.fittingAxes(obj, f, geom)
		if len(closing) == 0 {
			g.logger.Debugw("no finger axis fits face", "face", f.String(), "extents", obj.Extents, "width_max", geom.WidthMax)
			continue
		}
		if !g.config.EnableFingerRotations {
			closing = closing[:1]
		}
		halfExtent := obj.Extent(f.axis) / 2
		for _, axis := range closing {
			extent := obj.Extent(axis)
			opening := math.Min(extent+geom.WidthMargin, geom.WidthMax)
			for _, depth := range insertionDepths(geom, g.config.EnableVariableDepthGrasps, halfExtent) {
				pose := tcpPose(obj, f, axis, halfExtent-depth)
				c := newCandidate(len(candidates), f, pose, geom, depth, opening)
				c.Score = Score(pose, obj, ScoreInputs{
					Ideal:    g.ideal,
					Geometry: geom,
					Depth:    depth,
					Opening:  opening,
					Extent:   extent,
				}, g.weights)
				candidates = append(candidates, c)
			}
		}
	}
	SortCandidates(candidates)
	g.logger.Debugf("generated %d two finger grasp candidates for object %q", len(candidates), obj.ID)
	return candidates, nil
}

// fittingAxes returns the face's in-plane axes the gripper can close across, narrowest first.
func (g *TwoFingerGenerator) fittingAxes(obj Object, f face, geom GraspGeometry) []int {
	axes := f.inPlane()
	fitting := lo.Filter(axes[:], func(axis, _ int) bool {
		extent := obj.Extent(axis)
		return extent <= geom.WidthMax && extent >= geom.WidthMin
	})
	sort.SliceStable(fitting, func(i, j int) bool {
		return obj.Extent(fitting[i]) < obj.Extent(fitting[j])
	})
	return fitting
}

// SuctionGenerator generates face grasps for a suction cup. The cup seals on any face whose narrower side is at
// least the geometry's minimum width; narrower faces than the cup diameter are allowed and scored by overhang.
type SuctionGenerator struct {
	logger  logging.Logger
	config  CandidateConfig
	weights SuctionWeights
	ideal   spatialmath.Orientation
}

// NewSuctionGenerator returns a suction generator scoring against the ideal tool orientation.
func NewSuctionGenerator(
	logger logging.Logger,
	config CandidateConfig,
	weights SuctionWeights,
	idealRPY *spatialmath.EulerAngles,
) (*SuctionGenerator, error) {
	if err := weights.Validate(); err != nil {
		return nil, err
	}
	return &SuctionGenerator{
		logger:  logger.Sublogger("generator"),
		config:  config,
		weights: weights,
		ideal:   idealOrientation(idealRPY),
	}, nil
}

// Generate enumerates the enabled faces, one cup placement per face center and depth. Finger rotations add the
// placement rotated a quarter turn about the approach axis.
func (g *SuctionGenerator) Generate(ctx context.Context, obj Object, geom GraspGeometry) ([]*Candidate, error) {
	_, span := trace.StartSpan(ctx, "grasp::SuctionGenerator::Generate")
	defer span.End()

	if err := obj.Validate(); err != nil {
		return nil, err
	}
	if err := geom.Validate(); err != nil {
		return nil, err
	}

	candidates := []*Candidate{}
	for _, f := range enumerateFaces(g.config) {
		axes := f.inPlane()
		narrow := math.Min(obj.Extent(axes[0]), obj.Extent(axes[1]))
		if narrow < geom.WidthMin {
			g.logger.Debugw("face too small to seal", "face", f.String(), "narrow_side", narrow)
			continue
		}
		overhang := math.Max(0, geom.WidthMax-narrow) / geom.WidthMax
		orientations := axes[:1]
		if g.config.EnableFingerRotations {
			orientations = axes[:]
		}
		halfExtent := obj.Extent(f.axis) / 2
		for _, axis := range orientations {
			for _, depth := range insertionDepths(geom, g.config.EnableVariableDepthGrasps, halfExtent) {
				pose := tcpPose(obj, f, axis, halfExtent-depth)
				c := newCandidate(len(candidates), f, pose, geom, depth, geom.WidthMax)
				c.Score = Score(pose, obj, ScoreInputs{
					Ideal:    g.ideal,
					Geometry: geom,
					Depth:    depth,
					Opening:  geom.WidthMax,
					Overhang: overhang,
				}, g.weights)
				candidates = append(candidates, c)
			}
		}
	}
	SortCandidates(candidates)
	g.logger.Debugf("generated %d suction grasp candidates for object %q", len(candidates), obj.ID)
	return candidates, nil
}
