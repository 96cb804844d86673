package grasp

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	"go.viam.com/grasping/spatialmath"
)

// Object is a cuboid to be grasped. Extents are the full side lengths along the object's local X (depth),
// Y (width) and Z (height) axes, in meters. Pose places the object's center in the world.
type Object struct {
	ID      string
	Pose    spatialmath.Pose
	Extents r3.Vector
}

// NewObject returns a validated object.
func NewObject(id string, pose spatialmath.Pose, depth, width, height float64) (Object, error) {
	obj := Object{ID: id, Pose: pose, Extents: r3.Vector{X: depth, Y: width, Z: height}}
	return obj, obj.Validate()
}

// Validate checks that the object has a pose and positive, finite extents.
func (o Object) Validate() error {
	if o.Pose == nil {
		return errors.New("object pose cannot be nil")
	}
	for _, v := range []float64{o.Extents.X, o.Extents.Y, o.Extents.Z} {
		if !(v > 0) || math.IsInf(v, 0) {
			return errors.Wrapf(ErrInvalidObjectExtents, "got %v", o.Extents)
		}
	}
	return nil
}

// Extent returns the side length along the given local axis, 0 for X, 1 for Y and 2 for Z.
func (o Object) Extent(axis int) float64 {
	switch axis {
	case 0:
		return o.Extents.X
	case 1:
		return o.Extents.Y
	default:
		return o.Extents.Z
	}
}

// HalfDiagonal is the distance from the object's center to any of its corners.
func (o Object) HalfDiagonal() float64 {
	return o.Extents.Norm() / 2
}

// Geometry returns the object as a box labeled with its ID, for scenes and visualization.
func (o Object) Geometry() (spatialmath.Geometry, error) {
	return spatialmath.NewBox(o.Pose, o.Extents, o.ID)
}

// GraspGeometry describes how an end effector takes hold of an object. Lengths are meters.
type GraspGeometry struct {
	// DepthMin and DepthMax bound how far past the face the tool control point may sit.
	DepthMin float64
	DepthMax float64
	// DepthResolution is the step between depths when variable depth grasps are enabled.
	DepthResolution float64
	// WidthMin and WidthMax bound the gripper opening. For suction grippers WidthMax is the cup diameter
	// and WidthMin the smallest face that still seals.
	WidthMin float64
	WidthMax float64
	// WidthMargin is the clearance added to an object's extent when opening for it.
	WidthMargin float64
	// ApproachDistance is how far back along the approach axis the pregrasp pose sits. Zero uses DepthMax.
	ApproachDistance float64
	// TCPInParent places the tool control point in the frame of the parent link the solver targets.
	// Nil means the two coincide.
	TCPInParent spatialmath.Pose
	TCPFrame    string
	ParentLink  string
}

// Validate checks that the depth and width ranges are well formed.
func (g GraspGeometry) Validate() error {
	for _, v := range []float64{
		g.DepthMin, g.DepthMax, g.DepthResolution, g.WidthMin, g.WidthMax, g.WidthMargin, g.ApproachDistance,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			return newInvalidGeometryError("lengths must be finite and non-negative")
		}
	}
	if g.DepthMin > g.DepthMax {
		return newInvalidGeometryError("depth min %v exceeds depth max %v", g.DepthMin, g.DepthMax)
	}
	if g.WidthMax <= 0 {
		return newInvalidGeometryError("width max must be positive, got %v", g.WidthMax)
	}
	if g.WidthMin > g.WidthMax {
		return newInvalidGeometryError("width min %v exceeds width max %v", g.WidthMin, g.WidthMax)
	}
	return nil
}

// DepthMid is the midpoint of the depth range, the preferred insertion depth.
func (g GraspGeometry) DepthMid() float64 {
	return (g.DepthMin + g.DepthMax) / 2
}

// Depths returns the insertion depths to try. Without variable depth only the midpoint is used.
func (g GraspGeometry) Depths(variable bool) []float64 {
	if !variable || g.DepthResolution <= 0 || g.DepthMax == g.DepthMin {
		return []float64{g.DepthMid()}
	}
	var depths []float64
	steps := int(math.Floor((g.DepthMax-g.DepthMin)/g.DepthResolution + 1e-9))
	for i := 0; i <= steps; i++ {
		depths = append(depths, g.DepthMin+float64(i)*g.DepthResolution)
	}
	return depths
}

func (g GraspGeometry) approachDistance() float64 {
	if g.ApproachDistance > 0 {
		return g.ApproachDistance
	}
	return g.DepthMax
}

// ParentPose converts a tool control point pose into the pose of the parent link.
func (g GraspGeometry) ParentPose(tcp spatialmath.Pose) spatialmath.Pose {
	if g.TCPInParent == nil {
		return tcp
	}
	return spatialmath.Compose(tcp, spatialmath.PoseInverse(g.TCPInParent))
}

// PregraspPose backs a tool control point pose off along its approach axis.
func (g GraspGeometry) PregraspPose(tcp spatialmath.Pose) spatialmath.Pose {
	return spatialmath.Compose(tcp, spatialmath.NewPoseFromPoint(r3.Vector{Z: -g.approachDistance()}))
}
