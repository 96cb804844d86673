package spatialmath

import (
	"fmt"
	"math"
)

// sphere is a collision geometry that represents a sphere, it has a pose and a radius that fully define it.
type sphere struct {
	pose   Pose
	radius float64
	label  string
}

// NewSphere instantiates a new sphere Geometry.
func NewSphere(offset Pose, radius float64, label string) (Geometry, error) {
	if radius < 0 || math.IsNaN(radius) || math.IsInf(radius, 0) {
		return nil, newBadGeometryDimensionsError(&sphere{})
	}
	return &sphere{pose: offset, radius: radius, label: label}, nil
}

// String returns a human readable string that represents the sphere.
func (s *sphere) String() string {
	pt := s.pose.Point()
	return fmt.Sprintf("Type: Sphere | Position: X:%.3f, Y:%.3f, Z:%.3f | Radius: %.3f", pt.X, pt.Y, pt.Z, s.radius)
}

// SetLabel sets the label of this sphere.
func (s *sphere) SetLabel(label string) {
	s.label = label
}

// Label returns the label of this sphere.
func (s *sphere) Label() string {
	return s.label
}

// Pose returns the pose of the sphere.
func (s *sphere) Pose() Pose {
	return s.pose
}

// Radius returns the radius of the sphere.
func (s *sphere) Radius() float64 {
	return s.radius
}

// Transform premultiplies the sphere pose with a transform, returning a new sphere.
func (s *sphere) Transform(toPremultiply Pose) Geometry {
	return &sphere{pose: Compose(toPremultiply, s.pose), radius: s.radius, label: s.label}
}

// CollidesWith checks if the given sphere collides with the given geometry and returns true if it does.
func (s *sphere) CollidesWith(g Geometry, collisionBuffer float64) (bool, float64, error) {
	switch other := g.(type) {
	case *box:
		col, dist := sphereVsBoxCollision(s, other, collisionBuffer)
		if col {
			return true, -1, nil
		}
		return false, dist, nil
	case *sphere:
		dist := sphereVsSphereDistance(s, other)
		if dist <= collisionBuffer {
			return true, -1, nil
		}
		return false, dist, nil
	default:
		return true, collisionBuffer, newCollisionTypeUnsupportedError(s, g)
	}
}

// sphereVsSphereDistance returns the signed distance between two spheres. Negative values mean overlap.
func sphereVsSphereDistance(a, b *sphere) float64 {
	return a.pose.Point().Sub(b.pose.Point()).Norm() - a.radius - b.radius
}

// sphereVsBoxCollision returns whether the sphere and the box are within collisionBuffer of one another,
// and the separation distance when they are not.
func sphereVsBoxCollision(s *sphere, b *box, collisionBuffer float64) (bool, float64) {
	centerDist := s.pose.Point().Sub(b.centerPt).Norm()
	if dist := centerDist - (s.radius + b.boundingSphereR); dist > collisionBuffer {
		return false, dist
	}
	dist := s.pose.Point().Sub(b.closestPoint(s.pose.Point())).Norm() - s.radius
	return dist <= collisionBuffer, dist
}
