package spatialmath

import (
	"fmt"
	"math"
	"sync"

	"github.com/golang/geo/r3"

	"go.viam.com/grasping/utils"
)

// Ordered list of box vertices.
var boxVertices = [8]r3.Vector{
	{X: 1, Y: 1, Z: 1},
	{X: 1, Y: 1, Z: -1},
	{X: 1, Y: -1, Z: 1},
	{X: 1, Y: -1, Z: -1},
	{X: -1, Y: 1, Z: 1},
	{X: -1, Y: 1, Z: -1},
	{X: -1, Y: -1, Z: 1},
	{X: -1, Y: -1, Z: -1},
}

// box is a collision geometry that represents a 3D rectangular prism, it has a pose and half size that fully define it.
type box struct {
	center          Pose
	centerPt        r3.Vector
	halfSize        [3]float64
	boundingSphereR float64
	label           string
	rotMatrix       *RotationMatrix
	once            sync.Once
}

// NewBox instantiates a new box Geometry.
func NewBox(pose Pose, dims r3.Vector, label string) (Geometry, error) {
	// Negative dimensions not allowed. Zero dimensions are allowed for bounding boxes, etc.
	if dims.X < 0 || dims.Y < 0 || dims.Z < 0 || !isFinite(dims) {
		return nil, newBadGeometryDimensionsError(&box{})
	}
	halfSize := dims.Mul(0.5)
	return &box{
		center:          pose,
		centerPt:        pose.Point(),
		halfSize:        [3]float64{halfSize.X, halfSize.Y, halfSize.Z},
		boundingSphereR: halfSize.Norm(),
		label:           label,
	}, nil
}

// String returns a human readable string that represents the box.
func (b *box) String() string {
	return fmt.Sprintf("Type: Box | Position: X:%.3f, Y:%.3f, Z:%.3f | Dims: X:%.3f, Y:%.3f, Z:%.3f",
		b.centerPt.X, b.centerPt.Y, b.centerPt.Z, 2*b.halfSize[0], 2*b.halfSize[1], 2*b.halfSize[2])
}

// SetLabel sets the label of this box.
func (b *box) SetLabel(label string) {
	b.label = label
}

// Label returns the label of this box.
func (b *box) Label() string {
	return b.label
}

// Pose returns the pose of the box.
func (b *box) Pose() Pose {
	return b.center
}

// Dims returns the full side lengths of the box.
func (b *box) Dims() r3.Vector {
	return r3.Vector{X: 2 * b.halfSize[0], Y: 2 * b.halfSize[1], Z: 2 * b.halfSize[2]}
}

// Transform premultiplies the box pose with a transform, returning a new box.
func (b *box) Transform(toPremultiply Pose) Geometry {
	newCenter := Compose(toPremultiply, b.center)
	return &box{
		center:          newCenter,
		centerPt:        newCenter.Point(),
		halfSize:        b.halfSize,
		boundingSphereR: b.boundingSphereR,
		label:           b.label,
	}
}

// CollidesWith checks if the given box collides with the given geometry and returns true if it
// does. If there's no collision, the method will return the distance between the box and input
// geometry. If there is a collision, a negative number is returned.
func (b *box) CollidesWith(g Geometry, collisionBuffer float64) (bool, float64, error) {
	switch other := g.(type) {
	case *box:
		c, d := boxVsBoxCollision(b, other, collisionBuffer)
		if c {
			return true, -1, nil
		}
		return false, d, nil
	case *sphere:
		col, dist := sphereVsBoxCollision(other, b, collisionBuffer)
		if col {
			return true, -1, nil
		}
		return false, dist, nil
	default:
		return true, collisionBuffer, newCollisionTypeUnsupportedError(b, g)
	}
}

// closestPoint returns the closest point on the specified box to the specified point.
func (b *box) closestPoint(pt r3.Vector) r3.Vector {
	result := b.centerPt
	direction := pt.Sub(result)
	rm := b.rotationMatrix()
	for i := 0; i < 3; i++ {
		axis := rm.Col(i)
		distance := utils.Clamp(direction.Dot(axis), -b.halfSize[i], b.halfSize[i])
		result = result.Add(axis.Mul(distance))
	}
	return result
}

// vertices returns the vertices defining the box.
func (b *box) vertices() []r3.Vector {
	verts := make([]r3.Vector, 0, 8)
	for _, vert := range boxVertices {
		offset := r3.Vector{X: vert.X * b.halfSize[0], Y: vert.Y * b.halfSize[1], Z: vert.Z * b.halfSize[2]}
		verts = append(verts, TransformPoint(b.center, offset))
	}
	return verts
}

// rotationMatrix returns the cached matrix if it exists, and generates it if not.
func (b *box) rotationMatrix() *RotationMatrix {
	b.once.Do(func() { b.rotMatrix = b.center.Orientation().RotationMatrix() })

	return b.rotMatrix
}

// boxVsBoxCollision takes two boxes as arguments and returns a bool describing if they are in collision,
// true == collision / false == no collision.
func boxVsBoxCollision(a, b *box, collisionBuffer float64) (bool, float64) {
	centerDist := b.centerPt.Sub(a.centerPt)

	// check if there is a distance between bounding spheres to potentially exit early
	dist := centerDist.Norm() - (a.boundingSphereR + b.boundingSphereR)
	if dist > collisionBuffer {
		return false, dist
	}

	rmA := a.rotationMatrix()
	rmB := b.rotationMatrix()

	for i := 0; i < 3; i++ {
		dist = separatingAxisTest(centerDist, rmA.Col(i), a.halfSize, b.halfSize, rmA, rmB)
		if dist > collisionBuffer {
			return false, dist
		}
		dist = separatingAxisTest(centerDist, rmB.Col(i), a.halfSize, b.halfSize, rmA, rmB)
		if dist > collisionBuffer {
			return false, dist
		}
		for j := 0; j < 3; j++ {
			crossProductPlane := rmA.Col(i).Cross(rmB.Col(j))

			// parallel edges are covered by the face projections
			if !utils.Float64AlmostEqual(crossProductPlane.Norm(), 0, floatEpsilon) {
				dist = separatingAxisTest(centerDist, crossProductPlane.Normalize(), a.halfSize, b.halfSize, rmA, rmB)
				if dist > collisionBuffer {
					return false, dist
				}
			}
		}
	}
	return true, -1
}

// separatingAxisTest projects two boxes onto the given plane and compute how much distance is between them along
// this plane.  Per the separating hyperplane theorem, if such a plane exists (and a positive number is returned)
// this proves that there is no collision between the boxes.
func separatingAxisTest(positionDelta, plane r3.Vector, halfSizeA, halfSizeB [3]float64, rmA, rmB *RotationMatrix) float64 {
	sum := math.Abs(positionDelta.Dot(plane))
	for i := 0; i < 3; i++ {
		sum -= math.Abs(rmA.Col(i).Mul(halfSizeA[i]).Dot(plane))
		sum -= math.Abs(rmB.Col(i).Mul(halfSizeB[i]).Dot(plane))
	}
	return sum
}

func isFinite(v r3.Vector) bool {
	return !math.IsNaN(v.X+v.Y+v.Z) && !math.IsInf(v.X+v.Y+v.Z, 0)
}
