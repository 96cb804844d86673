// Package spatialmath defines spatial mathematical operations: poses, orientations and the
// collision geometries attached to them.
package spatialmath

import (
	"fmt"
	"math"

	"github.com/golang/geo/r3"
	"gonum.org/v1/gonum/num/quat"
)

// Pose represents a 6dof pose, position and orientation, with respect to the origin.
// The Point() method returns the position in (x,y,z) meters and the Orientation() method
// returns an Orientation object.
type Pose interface {
	fmt.Stringer
	Point() r3.Vector
	Orientation() Orientation
}

type basePose struct {
	point r3.Vector
	q     quat.Number
}

// NewZeroPose returns a pose at (0,0,0) with the same orientation as its parent frame.
func NewZeroPose() Pose {
	return &basePose{q: quat.Number{Real: 1}}
}

// NewPose takes in a position and orientation and returns a Pose.
func NewPose(p r3.Vector, o Orientation) Pose {
	if o == nil {
		return NewPoseFromPoint(p)
	}
	return &basePose{point: p, q: Normalize(o.Quaternion())}
}

// NewPoseFromPoint takes in a cartesian (x,y,z) and stores it as a vector.
// It will have the same orientation as the frame it is in.
func NewPoseFromPoint(point r3.Vector) Pose {
	return &basePose{point: point, q: quat.Number{Real: 1}}
}

// NewPoseFromOrientation takes in a position and orientation and returns a Pose.
func NewPoseFromOrientation(o Orientation) Pose {
	return NewPose(r3.Vector{}, o)
}

// Point returns the position of the pose.
func (p *basePose) Point() r3.Vector {
	return p.point
}

// Orientation returns the orientation of the pose.
func (p *basePose) Orientation() Orientation {
	q := quaternion(p.q)
	return &q
}

func (p *basePose) String() string {
	rpy := QuatToEulerAngles(p.q)
	return fmt.Sprintf("{X:%.4f Y:%.4f Z:%.4f R:%.4f P:%.4f Y:%.4f}",
		p.point.X, p.point.Y, p.point.Z, rpy.Roll, rpy.Pitch, rpy.Yaw)
}

// Compose takes two poses and returns the pose a*b, that is, b expressed in the frame of a
// brought into a's parent frame.
func Compose(a, b Pose) Pose {
	qa := a.Orientation().Quaternion()
	return &basePose{
		point: a.Point().Add(RotateVector(qa, b.Point())),
		q:     Normalize(quat.Mul(qa, b.Orientation().Quaternion())),
	}
}

// PoseInverse returns a pose that is the inverse of the given pose.
func PoseInverse(p Pose) Pose {
	qInv := quat.Conj(p.Orientation().Quaternion())
	return &basePose{
		point: RotateVector(qInv, p.Point()).Mul(-1),
		q:     qInv,
	}
}

// PoseBetween returns the difference between two Poses, such that Compose(a, PoseBetween(a, b)) == b.
func PoseBetween(a, b Pose) Pose {
	return Compose(PoseInverse(a), b)
}

// PoseDelta returns the difference between two poses as a pose whose translation is the
// difference in points and whose rotation takes a's orientation to b's.
func PoseDelta(a, b Pose) Pose {
	return &basePose{
		point: b.Point().Sub(a.Point()),
		q:     Normalize(quat.Mul(b.Orientation().Quaternion(), quat.Conj(a.Orientation().Quaternion()))),
	}
}

// TransformPoint expresses a point given in the frame of p in p's parent frame.
func TransformPoint(p Pose, pt r3.Vector) r3.Vector {
	return p.Point().Add(RotateVector(p.Orientation().Quaternion(), pt))
}

// AxisOf returns the world-frame direction of one of the pose's local unit axes (0=x, 1=y, 2=z).
func AxisOf(p Pose, axis int) r3.Vector {
	return p.Orientation().RotationMatrix().Col(axis)
}

// PoseAlmostEqual will return a bool describing whether 2 poses are approximately the same.
func PoseAlmostEqual(a, b Pose) bool {
	return PoseAlmostEqualEps(a, b, 1e-8)
}

// PoseAlmostEqualEps will return a bool describing whether 2 poses are approximately the same within epsilon.
func PoseAlmostEqualEps(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), epsilon) &&
		QuaternionAlmostEqual(a.Orientation().Quaternion(), b.Orientation().Quaternion(), 1e-5)
}

// PoseAlmostCoincidentEps will return a bool describing whether 2 poses approximately occupy the same
// position within epsilon, ignoring orientation.
func PoseAlmostCoincidentEps(a, b Pose, epsilon float64) bool {
	return R3VectorAlmostEqual(a.Point(), b.Point(), epsilon)
}

// R3VectorAlmostEqual compares two r3.Vector objects and returns if the all elementwise differences are less than epsilon.
func R3VectorAlmostEqual(a, b r3.Vector, epsilon float64) bool {
	return math.Abs(a.X-b.X) < epsilon && math.Abs(a.Y-b.Y) < epsilon && math.Abs(a.Z-b.Z) < epsilon
}
