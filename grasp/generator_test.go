package grasp

import (
	"context"
	"errors"
	"math"
	"sort"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	"go.viam.com/grasping/logging"
	"go.viam.com/grasping/spatialmath"
)

var testWeights = TwoFingerWeights{
	BaseWeights: BaseWeights{
		OrientationX: 2, OrientationY: 2, OrientationZ: 2,
		TranslationX: 1, TranslationY: 1, TranslationZ: 1,
	},
	Depth: 2,
	Width: 2,
}

// top down grasps are preferred
var downRPY = &spatialmath.EulerAngles{Roll: math.Pi}

func testGeometry() GraspGeometry {
	return GraspGeometry{
		DepthMin:        0.02,
		DepthMax:        0.06,
		DepthResolution: 0.01,
		WidthMin:        0,
		WidthMax:        0.08,
		WidthMargin:     0.01,
	}
}

func cube(t *testing.T, center r3.Vector, side float64) Object {
	t.Helper()
	obj, err := NewObject("cube", spatialmath.NewPoseFromPoint(center), side, side, side)
	test.That(t, err, test.ShouldBeNil)
	return obj
}

func zOnlyConfig() CandidateConfig {
	return CandidateConfig{EnableFaceGrasps: true, GenerateZAxisGrasps: true}
}

func newTestGenerator(t *testing.T, config CandidateConfig) *TwoFingerGenerator {
	t.Helper()
	gen, err := NewTwoFingerGenerator(logging.NewTestLogger(t), config, testWeights, downRPY)
	test.That(t, err, test.ShouldBeNil)
	return gen
}

func TestGenerateZFaces(t *testing.T) {
	gen := newTestGenerator(t, zOnlyConfig())
	obj := cube(t, r3.Vector{}, 0.03)
	candidates, err := gen.Generate(context.Background(), obj, testGeometry())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(candidates), test.ShouldEqual, 2)

	faces := map[string]*Candidate{}
	for _, c := range candidates {
		faces[c.Face] = c
		test.That(t, c.Opening, test.ShouldBeLessThanOrEqualTo, 0.08)
		test.That(t, c.Opening, test.ShouldAlmostEqual, 0.04)
		test.That(t, c.Feasibility.Reason, test.ShouldEqual, Unset)
	}
	test.That(t, faces, test.ShouldContainKey, "+z")
	test.That(t, faces, test.ShouldContainKey, "-z")

	// approach is anti-parallel to the face normal
	test.That(t, spatialmath.R3VectorAlmostEqual(faces["+z"].Approach, r3.Vector{Z: -1}, 1e-9), test.ShouldBeTrue)
	test.That(t, spatialmath.R3VectorAlmostEqual(faces["-z"].Approach, r3.Vector{Z: 1}, 1e-9), test.ShouldBeTrue)

	// the depth midpoint is clamped short of the object's center, keeping each grasp on its own face's side
	test.That(t, faces["+z"].Depth, test.ShouldAlmostEqual, 0.014)
	test.That(t, faces["+z"].Pose.Point().Z, test.ShouldAlmostEqual, 0.001)
	test.That(t, faces["-z"].Pose.Point().Z, test.ShouldAlmostEqual, -0.001)

	// the downward grasp matches the ideal orientation and comes first
	test.That(t, candidates[0].Face, test.ShouldEqual, "+z")
	test.That(t, candidates[0].Score, test.ShouldBeGreaterThan, candidates[1].Score)

	// the pregrasp backs off along the approach
	back := faces["+z"].PregraspPose.Point().Sub(faces["+z"].Pose.Point())
	test.That(t, spatialmath.R3VectorAlmostEqual(back, r3.Vector{Z: 0.06}, 1e-9), test.ShouldBeTrue)
}

func TestGenerateTooWide(t *testing.T) {
	gen := newTestGenerator(t, DefaultCandidateConfig())
	geom := testGeometry()
	geom.WidthMax = 0.01
	candidates, err := gen.Generate(context.Background(), cube(t, r3.Vector{}, 0.03), geom)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, candidates, test.ShouldBeEmpty)
}

func TestGenerateOrdering(t *testing.T) {
	config := DefaultCandidateConfig()
	config.EnableVariableDepthGrasps = true
	config.EnableFingerRotations = true
	gen := newTestGenerator(t, config)
	obj, err := NewObject("brick", spatialmath.NewPose(r3.Vector{X: 0.3, Z: 0.1}, &spatialmath.EulerAngles{Yaw: 0.3}), 0.05, 0.03, 0.2)
	test.That(t, err, test.ShouldBeNil)
	candidates, err := gen.Generate(context.Background(), obj, testGeometry())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(candidates), test.ShouldBeGreaterThan, 6)

	seen := map[int]bool{}
	for i, c := range candidates {
		test.That(t, seen[c.Index], test.ShouldBeFalse)
		seen[c.Index] = true
		test.That(t, c.Score, test.ShouldBeGreaterThanOrEqualTo, 0)
		test.That(t, c.Score, test.ShouldBeLessThanOrEqualTo, testWeights.MaxScore())
		if i > 0 {
			prev := candidates[i-1]
			test.That(t, prev.Score >= c.Score, test.ShouldBeTrue)
			if prev.Score == c.Score {
				test.That(t, prev.Index, test.ShouldBeLessThan, c.Index)
			}
		}
		// the height is too tall to close across, so no grasp closes along local z
		local := spatialmath.PoseBetween(obj.Pose, c.Pose)
		closing := spatialmath.AxisOf(local, 1)
		test.That(t, math.Abs(closing.Z), test.ShouldBeLessThan, 1e-9)
	}

	again, err := gen.Generate(context.Background(), obj, testGeometry())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(again), test.ShouldEqual, len(candidates))
	for i := range again {
		test.That(t, again[i].Index, test.ShouldEqual, candidates[i].Index)
		test.That(t, again[i].Score, test.ShouldEqual, candidates[i].Score)
	}
}

func TestGenerateVariableDepth(t *testing.T) {
	config := zOnlyConfig()
	config.EnableVariableDepthGrasps = true
	gen := newTestGenerator(t, config)
	obj, err := NewObject("post", spatialmath.NewZeroPose(), 0.05, 0.05, 0.2)
	test.That(t, err, test.ShouldBeNil)
	candidates, err := gen.Generate(context.Background(), obj, testGeometry())
	test.That(t, err, test.ShouldBeNil)
	// depths 0.02 through 0.06 on both faces
	test.That(t, len(candidates), test.ShouldEqual, 10)
	best := candidates[0]
	test.That(t, best.Face, test.ShouldEqual, "+z")
	test.That(t, best.Depth, test.ShouldAlmostEqual, 0.04)
	test.That(t, best.Pose.Point().Z, test.ShouldAlmostEqual, 0.06)

	depths := map[string][]float64{}
	for _, c := range candidates {
		depths[c.Face] = append(depths[c.Face], c.Depth)
		// the tool sits depth below the face it approaches
		test.That(t, math.Abs(c.Pose.Point().Z), test.ShouldAlmostEqual, 0.1-c.Depth)
	}
	for _, face := range []string{"+z", "-z"} {
		got := depths[face]
		sort.Float64s(got)
		test.That(t, len(got), test.ShouldEqual, 5)
		for i, want := range []float64{0.02, 0.03, 0.04, 0.05, 0.06} {
			test.That(t, got[i], test.ShouldAlmostEqual, want)
		}
	}

	// deep grasps on a thin object collapse short of the center
	candidates, err = gen.Generate(context.Background(), cube(t, r3.Vector{}, 0.05), testGeometry())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(candidates), test.ShouldEqual, 4)
	for _, c := range candidates {
		test.That(t, c.Depth, test.ShouldBeLessThanOrEqualTo, 0.024+1e-9)
		test.That(t, math.Abs(c.Pose.Point().Z), test.ShouldBeGreaterThanOrEqualTo, 0.001-1e-9)
	}
}

func TestGenerateFingerRotations(t *testing.T) {
	config := zOnlyConfig()
	config.EnableFingerRotations = true
	gen := newTestGenerator(t, config)
	candidates, err := gen.Generate(context.Background(), cube(t, r3.Vector{}, 0.03), testGeometry())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(candidates), test.ShouldEqual, 4)
}

func TestGenerateDisabled(t *testing.T) {
	var config CandidateConfig
	config.EnableAll()
	config.DisableAll()
	gen := newTestGenerator(t, config)
	candidates, err := gen.Generate(context.Background(), cube(t, r3.Vector{}, 0.03), testGeometry())
	test.That(t, err, test.ShouldBeNil)
	test.That(t, candidates, test.ShouldBeEmpty)
}

func TestGenerateBadInput(t *testing.T) {
	gen := newTestGenerator(t, DefaultCandidateConfig())
	_, err := gen.Generate(context.Background(), Object{Pose: spatialmath.NewZeroPose(), Extents: r3.Vector{X: 1, Y: 0, Z: 1}}, testGeometry())
	test.That(t, errors.Is(err, ErrInvalidObjectExtents), test.ShouldBeTrue)

	geom := testGeometry()
	geom.DepthMin = 1
	_, err = gen.Generate(context.Background(), cube(t, r3.Vector{}, 0.03), geom)
	test.That(t, errors.Is(err, ErrInvalidGeometry), test.ShouldBeTrue)

	_, err = NewTwoFingerGenerator(logging.NewTestLogger(t), zOnlyConfig(), TwoFingerWeights{Depth: -1}, nil)
	test.That(t, err, test.ShouldBeError)
}

func TestSuctionGenerator(t *testing.T) {
	weights := SuctionWeights{BaseWeights: testWeights.BaseWeights, Depth: 1, Overhang: 3}
	gen, err := NewSuctionGenerator(logging.NewTestLogger(t), DefaultCandidateConfig(), weights, downRPY)
	test.That(t, err, test.ShouldBeNil)
	geom := GraspGeometry{DepthMin: 0, DepthMax: 0.01, WidthMin: 0.02, WidthMax: 0.04}

	obj, err := NewObject("box", spatialmath.NewZeroPose(), 0.1, 0.05, 0.01)
	test.That(t, err, test.ShouldBeNil)
	candidates, err := gen.Generate(context.Background(), obj, geom)
	test.That(t, err, test.ShouldBeNil)
	// only the two large faces are wide enough to seal
	test.That(t, len(candidates), test.ShouldEqual, 2)
	test.That(t, candidates[0].Face, test.ShouldEqual, "+z")
	test.That(t, candidates[0].Opening, test.ShouldEqual, 0.04)
	// the compression depth stops a millimeter short of the thin box's center
	test.That(t, candidates[0].Depth, test.ShouldAlmostEqual, 0.004)

	// a narrower face than the cup scores lower through overhang
	narrow, err := NewObject("narrow", spatialmath.NewZeroPose(), 0.1, 0.025, 0.01)
	test.That(t, err, test.ShouldBeNil)
	narrowCandidates, err := gen.Generate(context.Background(), narrow, geom)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(narrowCandidates), test.ShouldEqual, 2)
	test.That(t, narrowCandidates[0].Score, test.ShouldBeLessThan, candidates[0].Score)

	var _ Generator = gen
	var _ Generator = &TwoFingerGenerator{}
}
