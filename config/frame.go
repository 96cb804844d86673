package config

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/utils"

	"go.viam.com/grasping/spatialmath"
)

// Translation is the translation between two frames, in meters.
type Translation struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Vector returns the translation as a vector.
func (t Translation) Vector() r3.Vector {
	return r3.Vector{X: t.X, Y: t.Y, Z: t.Z}
}

// Orientation is a roll, pitch and yaw rotation in radians.
type Orientation struct {
	Roll  float64 `json:"roll"`
	Pitch float64 `json:"pitch"`
	Yaw   float64 `json:"yaw"`
}

// EulerAngles returns the orientation in its spatialmath form.
func (o Orientation) EulerAngles() *spatialmath.EulerAngles {
	return &spatialmath.EulerAngles{Roll: o.Roll, Pitch: o.Pitch, Yaw: o.Yaw}
}

// PoseConfig places a frame relative to its parent.
type PoseConfig struct {
	Translation Translation `json:"translation"`
	Orientation Orientation `json:"orientation"`
}

// Validate checks that every component is finite.
func (p PoseConfig) Validate(path string) error {
	for _, v := range []float64{
		p.Translation.X, p.Translation.Y, p.Translation.Z,
		p.Orientation.Roll, p.Orientation.Pitch, p.Orientation.Yaw,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return utils.NewConfigValidationError(path, errors.New("pose components must be finite"))
		}
	}
	return nil
}

// ToPose builds the pose.
func (p PoseConfig) ToPose() spatialmath.Pose {
	return spatialmath.NewPose(p.Translation.Vector(), p.Orientation.EulerAngles())
}
