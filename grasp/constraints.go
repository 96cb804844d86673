package grasp

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/grasping/spatialmath"
)

// planeEpsilon is how far on the kept side of a cutting plane a grasp must sit to be kept.
const planeEpsilon = 1e-8

// Plane names a coordinate plane of a cutting plane's pose.
type Plane int

// The coordinate planes. The normal of XY is the pose's z axis, of XZ its y axis and of YZ its x axis.
const (
	XY Plane = iota
	XZ
	YZ
)

func (p Plane) String() string {
	switch p {
	case XY:
		return "xy"
	case XZ:
		return "xz"
	case YZ:
		return "yz"
	default:
		return "unknown"
	}
}

// PlaneFromString parses "xy", "xz" or "yz".
func PlaneFromString(s string) (Plane, error) {
	for _, p := range []Plane{XY, XZ, YZ} {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, errors.Errorf("unknown cutting plane %q, expected xy, xz or yz", s)
}

func (p Plane) normalAxis() int {
	switch p {
	case XY:
		return 2
	case XZ:
		return 1
	default:
		return 0
	}
}

// CuttingPlane rejects grasps on one side of a coordinate plane of Pose. Direction 1 rejects the side the plane
// normal points to, -1 the opposite side.
type CuttingPlane struct {
	Pose      spatialmath.Pose
	Plane     Plane
	Direction int
}

// Rejects reports whether a grasp position in the world lies on the rejected side. Positions on the plane are
// rejected.
func (cp CuttingPlane) Rejects(position r3.Vector) bool {
	local := spatialmath.TransformPoint(spatialmath.PoseInverse(cp.Pose), position)
	var coord float64
	switch cp.Plane.normalAxis() {
	case 0:
		coord = local.X
	case 1:
		coord = local.Y
	default:
		coord = local.Z
	}
	return float64(cp.Direction)*coord > -planeEpsilon
}

// OrientationConstraint rejects grasps whose approach axis is more than MaxAngle radians from the z axis of
// Orientation.
type OrientationConstraint struct {
	Orientation spatialmath.Orientation
	MaxAngle    float64
}

// Rejects reports whether a tool control point pose deviates too far.
func (oc OrientationConstraint) Rejects(tcp spatialmath.Pose) bool {
	desired := oc.Orientation.RotationMatrix().Col(2)
	return spatialmath.AngleBetweenVectors(spatialmath.AxisOf(tcp, 2), desired) > oc.MaxAngle
}

// ConstraintSet holds the cutting planes and orientation constraints a filter consults before solving IK.
// It is populated and cleared by the caller between passes; a filtering pass works on its own snapshot.
type ConstraintSet struct {
	planes       []CuttingPlane
	orientations []OrientationConstraint
}

// NewConstraintSet returns an empty constraint set.
func NewConstraintSet() *ConstraintSet {
	return &ConstraintSet{}
}

// AddCuttingPlane adds a plane. Direction must be 1 or -1.
func (cs *ConstraintSet) AddCuttingPlane(pose spatialmath.Pose, plane Plane, direction int) error {
	if pose == nil {
		return errors.New("cutting plane pose cannot be nil")
	}
	if plane < XY || plane > YZ {
		return errors.Errorf("unknown cutting plane %d", plane)
	}
	if direction != 1 && direction != -1 {
		return errors.Errorf("cutting plane direction must be 1 or -1, got %d", direction)
	}
	cs.planes = append(cs.planes, CuttingPlane{Pose: pose, Plane: plane, Direction: direction})
	return nil
}

// AddOrientationConstraint adds a desired approach orientation with its allowed deviation in radians.
func (cs *ConstraintSet) AddOrientationConstraint(o spatialmath.Orientation, maxAngle float64) error {
	if o == nil {
		return errors.New("desired orientation cannot be nil")
	}
	if math.IsNaN(maxAngle) || maxAngle < 0 {
		return errors.Errorf("max angle must be non-negative, got %v", maxAngle)
	}
	cs.orientations = append(cs.orientations, OrientationConstraint{Orientation: o, MaxAngle: maxAngle})
	return nil
}

// ClearCuttingPlanes removes every cutting plane.
func (cs *ConstraintSet) ClearCuttingPlanes() {
	cs.planes = nil
}

// ClearOrientationConstraints removes every orientation constraint.
func (cs *ConstraintSet) ClearOrientationConstraints() {
	cs.orientations = nil
}

// Clear removes every constraint.
func (cs *ConstraintSet) Clear() {
	cs.ClearCuttingPlanes()
	cs.ClearOrientationConstraints()
}

// CuttingPlanes returns a copy of the cutting planes.
func (cs *ConstraintSet) CuttingPlanes() []CuttingPlane {
	if cs == nil {
		return nil
	}
	return append([]CuttingPlane(nil), cs.planes...)
}

// OrientationConstraints returns a copy of the orientation constraints.
func (cs *ConstraintSet) OrientationConstraints() []OrientationConstraint {
	if cs == nil {
		return nil
	}
	return append([]OrientationConstraint(nil), cs.orientations...)
}

// Len returns the total number of constraints.
func (cs *ConstraintSet) Len() int {
	if cs == nil {
		return 0
	}
	return len(cs.planes) + len(cs.orientations)
}

// AddCuttingPlanesForBin replaces every constraint with the planes fencing grasps into a bin: below the bottom,
// outside either wall, above the top, and in the back half behind the product. worldToBin is the bin's corner
// and binToProduct the product's pose in the bin.
func (cs *ConstraintSet) AddCuttingPlanesForBin(worldToBin, binToProduct spatialmath.Pose, binWidth, binHeight float64) error {
	if worldToBin == nil || binToProduct == nil {
		return errors.New("bin poses cannot be nil")
	}
	cs.Clear()
	shifted := func(offset r3.Vector) spatialmath.Pose {
		return spatialmath.NewPose(worldToBin.Point().Add(offset), worldToBin.Orientation())
	}
	top := shifted(r3.Vector{Y: binWidth, Z: binHeight})
	back := shifted(r3.Vector{X: binToProduct.Point().X, Y: binWidth / 2, Z: binHeight / 2})
	for _, cp := range []CuttingPlane{
		{Pose: worldToBin, Plane: XY, Direction: -1},
		{Pose: worldToBin, Plane: XZ, Direction: -1},
		{Pose: top, Plane: XY, Direction: 1},
		{Pose: top, Plane: XZ, Direction: 1},
		{Pose: back, Plane: YZ, Direction: 1},
	} {
		if err := cs.AddCuttingPlane(cp.Pose, cp.Plane, cp.Direction); err != nil {
			return err
		}
	}
	return nil
}

// snapshot copies the set so a filtering pass is unaffected by later caller edits.
func (cs *ConstraintSet) snapshot() *ConstraintSet {
	return &ConstraintSet{planes: cs.CuttingPlanes(), orientations: cs.OrientationConstraints()}
}

// check returns the kind of the first constraint the candidate violates. Cutting planes are tested on the grasp
// position, orientation constraints on the tool's approach axis.
func (cs *ConstraintSet) check(c *Candidate) (ConstraintKind, int, bool) {
	position := c.Pose.Point()
	for i, cp := range cs.planes {
		if cp.Rejects(position) {
			return CuttingPlaneConstraint, i, true
		}
	}
	for i, oc := range cs.orientations {
		if oc.Rejects(c.Pose) {
			return OrientationConstraintKind, i, true
		}
	}
	return NoConstraint, -1, false
}
