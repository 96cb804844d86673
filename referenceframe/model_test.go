package referenceframe

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"

	spatial "go.viam.com/grasping/spatialmath"
)

func TestBuiltinModel(t *testing.T) {
	m, err := BuiltinModel(SixAxisArm)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Name(), test.ShouldEqual, SixAxisArm)
	test.That(t, len(m.DoF()), test.ShouldEqual, 6)

	names := m.LinkNames()
	test.That(t, names[0], test.ShouldEqual, "base_link")
	test.That(t, names[len(names)-1], test.ShouldEqual, "gripper_link")

	// straight up at the zero configuration
	pose, err := m.Transform(make([]Input, 6))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.R3VectorAlmostEqual(pose.Point(), r3.Vector{Z: 1.01}, 1e-9), test.ShouldBeTrue)

	_, err = BuiltinModel("no_such_arm")
	test.That(t, err, test.ShouldBeError)
}

func TestModelTransformMovesWithJoints(t *testing.T) {
	m, err := BuiltinModel(SixAxisArm)
	test.That(t, err, test.ShouldBeNil)

	// a quarter turn at the shoulder lays the arm along +x
	inputs := FloatsToInputs([]float64{0, math.Pi / 2, 0, 0, 0, 0})
	pose, err := m.Transform(inputs)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.R3VectorAlmostEqual(pose.Point(), r3.Vector{X: 0.85, Z: 0.16}, 1e-9), test.ShouldBeTrue)
	test.That(t, spatial.R3VectorAlmostEqual(spatial.AxisOf(pose, 2), r3.Vector{X: 1}, 1e-9), test.ShouldBeTrue)

	// out of bounds inputs still produce a pose
	inputs = FloatsToInputs([]float64{0, 4, 0, 0, 0, 0})
	pose, err = m.Transform(inputs)
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, err.Error(), test.ShouldContainSubstring, OOBErrString)
	test.That(t, pose, test.ShouldNotBeNil)

	_, err = m.Transform(FloatsToInputs([]float64{0, 0}))
	test.That(t, err, test.ShouldBeError)
}

func TestModelGeometries(t *testing.T) {
	m, err := BuiltinModel(SixAxisArm)
	test.That(t, err, test.ShouldBeNil)
	geoms, err := m.Geometries(make([]Input, 6))
	test.That(t, err, test.ShouldBeNil)
	test.That(t, len(geoms), test.ShouldEqual, 4)
	gripper, ok := geoms["gripper_link"]
	test.That(t, ok, test.ShouldBeTrue)
	test.That(t, gripper.Label(), test.ShouldEqual, "gripper_link")
	test.That(t, spatial.R3VectorAlmostEqual(gripper.Pose().Point(), r3.Vector{Z: 0.98}, 1e-9), test.ShouldBeTrue)
}

func TestParseConfigErrors(t *testing.T) {
	_, err := UnmarshalModelJSON(nil, "")
	test.That(t, errors.Is(err, ErrNoModelInformation), test.ShouldBeTrue)

	_, err = UnmarshalModelJSON([]byte(`{"name": "x", "links": [{"id": "world"}]}`), "")
	test.That(t, err, test.ShouldBeError)
	test.That(t, err.Error(), test.ShouldContainSubstring, "reserved word")

	twoEnds := `{"name": "x", "links": [
		{"id": "a", "parent": "world"},
		{"id": "b", "parent": "a"},
		{"id": "c", "parent": "a"}]}`
	_, err = UnmarshalModelJSON([]byte(twoEnds), "")
	test.That(t, errors.Is(err, ErrNeedOneEndEffector), test.ShouldBeTrue)

	badJoint := `{"name": "x", "links": [{"id": "a", "parent": "world"}],
		"joints": [{"id": "j", "type": "spherical", "parent": "a"}]}`
	_, err = UnmarshalModelJSON([]byte(badJoint), "")
	test.That(t, err, test.ShouldBeError)
	test.That(t, err.Error(), test.ShouldContainSubstring, "spherical")

	dangling := `{"name": "x", "links": [{"id": "a", "parent": "missing"}]}`
	_, err = UnmarshalModelJSON([]byte(dangling), "")
	test.That(t, err, test.ShouldBeError)

	_, err = UnmarshalModelJSON([]byte(`{"name": "x", "kinematic_param_type": "DH"}`), "")
	test.That(t, err, test.ShouldBeError)
}

func TestPrismaticModel(t *testing.T) {
	gantry := `{"name": "gantry", "links": [{"id": "base", "parent": "world"}, {"id": "carriage", "parent": "x"}],
		"joints": [{"id": "x", "type": "prismatic", "parent": "base", "axis": {"x": 1}, "min": 0, "max": 2}]}`
	m, err := UnmarshalModelJSON([]byte(gantry), "renamed")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, m.Name(), test.ShouldEqual, "renamed")
	test.That(t, m.DoF(), test.ShouldResemble, []Limit{{Min: 0, Max: 2}})
	pose, err := m.Transform([]Input{{1.5}})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, pose.Point(), test.ShouldResemble, r3.Vector{X: 1.5})
	test.That(t, m.AlmostEquals(m), test.ShouldBeTrue)
}

func TestRandomInputsWithinLimits(t *testing.T) {
	m, err := BuiltinModel(SixAxisArm)
	test.That(t, err, test.ShouldBeNil)
	//nolint:gosec
	rseed := rand.New(rand.NewSource(3))
	for i := 0; i < 50; i++ {
		pos := GenerateRandomJointPositions(m, rseed)
		test.That(t, m.(*SimpleModel).AreJointPositionsValid(pos), test.ShouldBeTrue)
	}
	test.That(t, InputsL2Distance([]Input{{1}, {2}}, []Input{{0}, {0}}), test.ShouldAlmostEqual, 5)
	test.That(t, InputsL2Distance([]Input{{1}}, []Input{}), test.ShouldEqual, -1)
}
