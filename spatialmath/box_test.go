package spatialmath

import (
	"math"
	"testing"

	"github.com/golang/geo/r3"
	"go.viam.com/test"
)

var deg45 = math.Pi / 4.

func makeBox(pose Pose, halfSize r3.Vector) *box {
	b, err := NewBox(pose, halfSize.Mul(2), "")
	if err != nil {
		panic(err)
	}
	return b.(*box)
}

func TestNewBoxRejectsBadDims(t *testing.T) {
	_, err := NewBox(NewZeroPose(), r3.Vector{X: -1, Y: 1, Z: 1}, "")
	test.That(t, err, test.ShouldBeError)
	_, err = NewBox(NewZeroPose(), r3.Vector{X: math.NaN(), Y: 1, Z: 1}, "")
	test.That(t, err, test.ShouldBeError)
	b, err := NewBox(NewZeroPose(), r3.Vector{X: 0, Y: 1, Z: 1}, "flat")
	test.That(t, err, test.ShouldBeNil)
	test.That(t, b.Label(), test.ShouldEqual, "flat")
}

func TestBoxVsBox(t *testing.T) {
	cases := []struct {
		A        *box
		B        *box
		Expected bool
	}{
		{
			// inscribed box
			makeBox(NewZeroPose(), r3.Vector{X: 2, Y: 2, Z: 2}),
			makeBox(NewZeroPose(), r3.Vector{X: 1, Y: 1, Z: 1}),
			true,
		},
		{
			// face to face contact
			makeBox(NewZeroPose(), r3.Vector{X: 1, Y: 1, Z: 1}),
			makeBox(NewPoseFromPoint(r3.Vector{X: 2, Y: 0, Z: 0}), r3.Vector{X: 1, Y: 1, Z: 1}),
			true,
		},
		{
			// face to face near contact
			makeBox(NewZeroPose(), r3.Vector{X: 1, Y: 1, Z: 1}),
			makeBox(NewPoseFromPoint(r3.Vector{X: 2.01, Y: 0, Z: 0}), r3.Vector{X: 1, Y: 1, Z: 1}),
			false,
		},
		{
			// coincident edge contact
			makeBox(NewZeroPose(), r3.Vector{X: 1, Y: 1, Z: 1}),
			makeBox(NewPoseFromPoint(r3.Vector{X: 2, Y: 4, Z: 0}), r3.Vector{X: 1, Y: 3, Z: 1}),
			true,
		},
		{
			// vertex to vertex contact
			makeBox(NewZeroPose(), r3.Vector{X: 1, Y: 1, Z: 1}),
			makeBox(NewPoseFromPoint(r3.Vector{X: 2, Y: 2, Z: 2}), r3.Vector{X: 1, Y: 1, Z: 1}),
			true,
		},
		{
			// rotated box whose corner would touch if axis aligned
			makeBox(NewZeroPose(), r3.Vector{X: 1, Y: 1, Z: 1}),
			makeBox(NewPose(r3.Vector{X: 2.5, Y: 2.5, Z: 0}, &EulerAngles{0, 0, deg45}), r3.Vector{X: 1, Y: 1, Z: 1}),
			false,
		},
		{
			// rotated box penetrating a face
			makeBox(NewZeroPose(), r3.Vector{X: 1, Y: 1, Z: 1}),
			makeBox(NewPose(r3.Vector{X: 2.3, Y: 0, Z: 0}, &EulerAngles{0, 0, deg45}), r3.Vector{X: 1, Y: 1, Z: 1}),
			true,
		},
	}
	for _, c := range cases {
		col, _, err := c.A.CollidesWith(c.B, 0)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, col, test.ShouldEqual, c.Expected)
		col, _, err = c.B.CollidesWith(c.A, 0)
		test.That(t, err, test.ShouldBeNil)
		test.That(t, col, test.ShouldEqual, c.Expected)
	}
}

func TestBoxSeparationDistance(t *testing.T) {
	a := makeBox(NewZeroPose(), r3.Vector{X: 1, Y: 1, Z: 1})
	b := makeBox(NewPoseFromPoint(r3.Vector{X: 0, Y: 0, Z: 3}), r3.Vector{X: 1, Y: 1, Z: 0.5})
	col, dist, err := a.CollidesWith(b, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, col, test.ShouldBeFalse)
	test.That(t, dist, test.ShouldBeGreaterThan, 0)

	col, _, err = a.CollidesWith(b, 2)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, col, test.ShouldBeTrue)
}

func TestBoxTransformAndVertices(t *testing.T) {
	b := makeBox(NewZeroPose(), r3.Vector{X: 1, Y: 2, Z: 3})
	moved := b.Transform(NewPose(r3.Vector{X: 10, Y: 0, Z: 0}, &EulerAngles{0, 0, math.Pi / 2})).(*box)
	test.That(t, R3VectorAlmostEqual(moved.Pose().Point(), r3.Vector{X: 10, Y: 0, Z: 0}, 1e-9), test.ShouldBeTrue)
	test.That(t, moved.Dims(), test.ShouldResemble, r3.Vector{X: 2, Y: 4, Z: 6})

	verts := moved.vertices()
	test.That(t, len(verts), test.ShouldEqual, 8)
	// after a quarter turn about z the local y extent lies along world x
	test.That(t, R3VectorAlmostEqual(verts[0], r3.Vector{X: 8, Y: 1, Z: 3}, 1e-9), test.ShouldBeTrue)
}

func TestSphereCollisions(t *testing.T) {
	s1, err := NewSphere(NewZeroPose(), 1, "")
	test.That(t, err, test.ShouldBeNil)
	s2, err := NewSphere(NewPoseFromPoint(r3.Vector{X: 2.5, Y: 0, Z: 0}), 1, "")
	test.That(t, err, test.ShouldBeNil)

	col, dist, err := s1.CollidesWith(s2, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, col, test.ShouldBeFalse)
	test.That(t, dist, test.ShouldAlmostEqual, 0.5)

	b := makeBox(NewPoseFromPoint(r3.Vector{X: 0, Y: 0, Z: 1.5}), r3.Vector{X: 1, Y: 1, Z: 1})
	col, _, err = s1.CollidesWith(b, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, col, test.ShouldBeTrue)
	col, dist, err = b.CollidesWith(s2, 0)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, col, test.ShouldBeFalse)
	test.That(t, dist, test.ShouldBeGreaterThan, 0)

	_, err = NewSphere(NewZeroPose(), -1, "")
	test.That(t, err, test.ShouldBeError)
}

func TestGeometryConfig(t *testing.T) {
	cfg := GeometryConfig{Type: BoxType, X: 1, Y: 2, Z: 3, TranslationOffset: r3.Vector{Z: 1}, Label: "link"}
	g, err := cfg.ParseConfig()
	test.That(t, err, test.ShouldBeNil)
	test.That(t, g.Label(), test.ShouldEqual, "link")
	test.That(t, g.Pose().Point(), test.ShouldResemble, r3.Vector{Z: 1})

	cfg = GeometryConfig{R: 0.5}
	g, err = cfg.ParseConfig()
	test.That(t, err, test.ShouldBeNil)
	_, ok := g.(*sphere)
	test.That(t, ok, test.ShouldBeTrue)

	cfg = GeometryConfig{Type: "capsule"}
	_, err = cfg.ParseConfig()
	test.That(t, err, test.ShouldBeError)
}
