package grasp

// CandidateConfig selects which enumeration strategies a generator runs. An all disabled configuration is valid
// and produces no candidates.
type CandidateConfig struct {
	EnableFaceGrasps          bool `json:"enable_face_grasps"`
	GenerateXAxisGrasps       bool `json:"generate_x_axis_grasps"`
	GenerateYAxisGrasps       bool `json:"generate_y_axis_grasps"`
	GenerateZAxisGrasps       bool `json:"generate_z_axis_grasps"`
	EnableVariableDepthGrasps bool `json:"enable_variable_depth_grasps"`
	EnableFingerRotations     bool `json:"enable_finger_rotations"`
}

// DefaultCandidateConfig enables face grasps on every axis.
func DefaultCandidateConfig() CandidateConfig {
	return CandidateConfig{
		EnableFaceGrasps:    true,
		GenerateXAxisGrasps: true,
		GenerateYAxisGrasps: true,
		GenerateZAxisGrasps: true,
	}
}

// EnableAll turns on every strategy.
func (c *CandidateConfig) EnableAll() {
	*c = CandidateConfig{
		EnableFaceGrasps:          true,
		GenerateXAxisGrasps:       true,
		GenerateYAxisGrasps:       true,
		GenerateZAxisGrasps:       true,
		EnableVariableDepthGrasps: true,
		EnableFingerRotations:     true,
	}
}

// DisableAll turns off every strategy.
func (c *CandidateConfig) DisableAll() {
	*c = CandidateConfig{}
}

// axes returns the local object axes whose faces are sampled.
func (c CandidateConfig) axes() []int {
	if !c.EnableFaceGrasps {
		return nil
	}
	var axes []int
	for axis, on := range []bool{c.GenerateXAxisGrasps, c.GenerateYAxisGrasps, c.GenerateZAxisGrasps} {
		if on {
			axes = append(axes, axis)
		}
	}
	return axes
}
