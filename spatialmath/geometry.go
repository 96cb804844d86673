package spatialmath

import (
	"github.com/golang/geo/r3"
)

// Geometry is an entry point with which to access all types of collision geometries.
type Geometry interface {
	Pose() Pose
	Transform(Pose) Geometry
	CollidesWith(Geometry, float64) (bool, float64, error)
	Label() string
	SetLabel(string)
	String() string
}

// GeometryType defines what geometry creator representations are known.
type GeometryType string

// The set of allowable representations for geometry creation.
const (
	UnknownType = GeometryType("")
	BoxType     = GeometryType("box")
	SphereType  = GeometryType("sphere")
)

// GeometryConfig specifies the format of geometries specified through JSON configuration files.
type GeometryConfig struct {
	Type GeometryType `json:"type"`

	// parameters used for defining a box's rectangular cross-section
	X float64 `json:"x,omitempty"`
	Y float64 `json:"y,omitempty"`
	Z float64 `json:"z,omitempty"`

	// parameter used for defining a sphere's radius'
	R float64 `json:"r,omitempty"`

	// define an offset to position the geometry
	TranslationOffset r3.Vector   `json:"translation,omitempty"`
	OrientationOffset EulerAngles `json:"orientation,omitempty"`

	Label string `json:"label,omitempty"`
}

// ParseConfig converts a GeometryConfig into a Geometry placed at its offset.
func (config *GeometryConfig) ParseConfig() (Geometry, error) {
	offset := NewPose(config.TranslationOffset, &config.OrientationOffset)
	switch config.Type {
	case BoxType:
		return NewBox(offset, r3.Vector{X: config.X, Y: config.Y, Z: config.Z}, config.Label)
	case SphereType:
		return NewSphere(offset, config.R, config.Label)
	case UnknownType:
		// no type specified, iterate through supported types and try to infer intent
		if config.R != 0 {
			return NewSphere(offset, config.R, config.Label)
		}
		return NewBox(offset, r3.Vector{X: config.X, Y: config.Y, Z: config.Z}, config.Label)
	default:
		return nil, newGeometryTypeUnsupportedError(string(config.Type))
	}
}
