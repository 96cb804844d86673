package grasp

import (
	"math"

	"github.com/pkg/errors"
	"go.uber.org/multierr"

	"go.viam.com/grasping/spatialmath"
	"go.viam.com/grasping/utils"
)

// Weights scales the terms of a grasp score. Every gripper family shares the orientation and translation terms
// and adds terms of its own.
type Weights interface {
	Base() BaseWeights
	// GripperScore returns the family specific share of the score, already weighted.
	GripperScore(in ScoreInputs) float64
	// MaxScore is the score of a perfect grasp, the sum of all weights.
	MaxScore() float64
	Validate() error
}

// ScoreInputs carries everything about a candidate beyond its pose that scoring needs.
type ScoreInputs struct {
	// Ideal is the preferred tool control point orientation in the world. Nil means identity.
	Ideal    spatialmath.Orientation
	Geometry GraspGeometry
	Depth    float64
	Opening  float64
	// Extent is the object's length across the gripper's closing direction.
	Extent float64
	// Overhang is the fraction of a suction cup hanging past the face, in [0, 1].
	Overhang float64
}

// BaseWeights are the orientation and translation weights shared by every gripper family.
type BaseWeights struct {
	OrientationX float64
	OrientationY float64
	OrientationZ float64
	TranslationX float64
	TranslationY float64
	TranslationZ float64
}

// Base returns the weights themselves.
func (w BaseWeights) Base() BaseWeights {
	return w
}

func (w BaseWeights) sum() float64 {
	return w.OrientationX + w.OrientationY + w.OrientationZ + w.TranslationX + w.TranslationY + w.TranslationZ
}

// Validate checks that every weight is finite and non-negative.
func (w BaseWeights) Validate() error {
	return validateWeights(
		namedWeight{"orientation_x", w.OrientationX},
		namedWeight{"orientation_y", w.OrientationY},
		namedWeight{"orientation_z", w.OrientationZ},
		namedWeight{"translation_x", w.TranslationX},
		namedWeight{"translation_y", w.TranslationY},
		namedWeight{"translation_z", w.TranslationZ},
	)
}

// TwoFingerWeights adds insertion depth and opening width terms for parallel grippers.
type TwoFingerWeights struct {
	BaseWeights
	Depth float64
	Width float64
}

// GripperScore scores depth and width.
func (w TwoFingerWeights) GripperScore(in ScoreInputs) float64 {
	return w.Depth*DepthScore(in.Depth, in.Geometry) + w.Width*WidthScore(in.Opening, in.Extent, in.Geometry.WidthMargin)
}

// MaxScore is the sum of all weights.
func (w TwoFingerWeights) MaxScore() float64 {
	return w.sum() + w.Depth + w.Width
}

// Validate checks that every weight is finite and non-negative.
func (w TwoFingerWeights) Validate() error {
	return multierr.Combine(
		w.BaseWeights.Validate(),
		validateWeights(namedWeight{"depth", w.Depth}, namedWeight{"width", w.Width}),
	)
}

// SuctionWeights adds compression depth and cup overhang terms for suction grippers.
type SuctionWeights struct {
	BaseWeights
	Depth    float64
	Overhang float64
}

// GripperScore scores depth and overhang.
func (w SuctionWeights) GripperScore(in ScoreInputs) float64 {
	return w.Depth*DepthScore(in.Depth, in.Geometry) + w.Overhang*(1-utils.Clamp(in.Overhang, 0, 1))
}

// MaxScore is the sum of all weights.
func (w SuctionWeights) MaxScore() float64 {
	return w.sum() + w.Depth + w.Overhang
}

// Validate checks that every weight is finite and non-negative.
func (w SuctionWeights) Validate() error {
	return multierr.Combine(
		w.BaseWeights.Validate(),
		validateWeights(namedWeight{"depth", w.Depth}, namedWeight{"overhang", w.Overhang}),
	)
}

type namedWeight struct {
	name  string
	value float64
}

// validateWeights reports every bad weight, in the order given.
func validateWeights(weights ...namedWeight) error {
	var err error
	for _, w := range weights {
		if math.IsNaN(w.value) || math.IsInf(w.value, 0) || w.value < 0 {
			err = multierr.Append(err, errors.Errorf("weight %s must be finite and non-negative, got %v", w.name, w.value))
		}
	}
	return err
}

// Score rates a tool control point pose on an object, higher is better. Each term falls off linearly from 1 at
// its ideal to 0 and is scaled by its weight, so the result lies in [0, weights.MaxScore()].
func Score(pose spatialmath.Pose, obj Object, in ScoreInputs, weights Weights) float64 {
	base := weights.Base()
	o := OrientationScores(pose, in.Ideal)
	t := TranslationScores(pose, obj)
	return base.OrientationX*o[0] + base.OrientationY*o[1] + base.OrientationZ*o[2] +
		base.TranslationX*t[0] + base.TranslationY*t[1] + base.TranslationZ*t[2] +
		weights.GripperScore(in)
}

// OrientationScores compares each local axis of the pose to the same axis of the ideal orientation.
// An axis scores 1 when aligned and 0 when reversed.
func OrientationScores(pose spatialmath.Pose, ideal spatialmath.Orientation) [3]float64 {
	if ideal == nil {
		ideal = spatialmath.NewZeroOrientation()
	}
	rm := ideal.RotationMatrix()
	var scores [3]float64
	for i := range scores {
		dev := spatialmath.AngleBetweenVectors(spatialmath.AxisOf(pose, i), rm.Col(i))
		scores[i] = linearFalloff(dev, math.Pi)
	}
	return scores
}

// TranslationScores measures the pose's offset from the object center along each object axis, relative to the
// object's half diagonal.
func TranslationScores(pose spatialmath.Pose, obj Object) [3]float64 {
	local := spatialmath.PoseBetween(obj.Pose, pose).Point()
	scale := obj.HalfDiagonal()
	return [3]float64{
		linearFalloff(math.Abs(local.X), scale),
		linearFalloff(math.Abs(local.Y), scale),
		linearFalloff(math.Abs(local.Z), scale),
	}
}

// DepthScore is 1 at the middle of the depth range and 0 at its ends.
func DepthScore(depth float64, geom GraspGeometry) float64 {
	return linearFalloff(math.Abs(depth-geom.DepthMid()), (geom.DepthMax-geom.DepthMin)/2)
}

// WidthScore is 1 when the opening clears the extent by the full margin and falls to 0 as the clearance is
// squeezed away.
func WidthScore(opening, extent, margin float64) float64 {
	squeeze := math.Max(0, margin-(opening-extent))
	return linearFalloff(squeeze, margin)
}

func linearFalloff(x, scale float64) float64 {
	if scale <= 0 {
		if x <= 0 {
			return 1
		}
		return 0
	}
	return 1 - math.Min(x/scale, 1)
}
