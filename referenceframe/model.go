package referenceframe

import (
	"math/rand"
	"sync"

	"go.uber.org/multierr"

	"go.viam.com/grasping/spatialmath"
)

// A Model represents a frame that can change its name.
type Model interface {
	Frame
	ChangeName(name string)
	// LinkNames lists the frames of the model in order from base to end effector.
	LinkNames() []string
}

// SimpleModel is a serial chain of frames. Joints attach a link to the frame before them,
// static frames carry the link offsets and geometries.
type SimpleModel struct {
	name string
	// OrdTransforms is the list of transforms ordered from base to end effector
	OrdTransforms []Frame
	modelConfig   *ModelConfigJSON
	limits        []Limit
	lock          sync.RWMutex
}

// NewSimpleModel constructs a new model.
func NewSimpleModel(name string) *SimpleModel {
	return &SimpleModel{name: name}
}

// GenerateRandomJointPositions generates a list of radian joint positions that are random but valid for each joint.
func GenerateRandomJointPositions(m Model, randSeed *rand.Rand) []float64 {
	return InputsToFloats(RandomFrameInputs(m, randSeed))
}

// Name returns the name of this model.
func (m *SimpleModel) Name() string {
	return m.name
}

// ChangeName changes the name of this model.
func (m *SimpleModel) ChangeName(name string) {
	m.name = name
}

// ModelConfig returns the configuration the model was parsed from, if any.
func (m *SimpleModel) ModelConfig() *ModelConfigJSON {
	return m.modelConfig
}

func (m *SimpleModel) setOrdTransforms(ot []Frame) {
	m.lock.Lock()
	defer m.lock.Unlock()
	m.OrdTransforms = ot
	m.limits = nil
}

// LinkNames lists the frames of the model in order from base to end effector.
func (m *SimpleModel) LinkNames() []string {
	names := make([]string, 0, len(m.OrdTransforms))
	for _, f := range m.OrdTransforms {
		names = append(names, f.Name())
	}
	return names
}

// Transform takes a model and a list of joint angles in radians and computes the pose of the end effector
// relative to the model base.
func (m *SimpleModel) Transform(inputs []Input) (spatialmath.Pose, error) {
	poses, err := m.framePoses(inputs)
	if err != nil && poses == nil {
		return nil, err
	}
	if len(poses) == 0 {
		return spatialmath.NewZeroPose(), err
	}
	return poses[len(poses)-1], err
}

// Geometries returns the geometries of every link of the model at the given inputs, expressed in the model's
// base frame and keyed by link name.
func (m *SimpleModel) Geometries(inputs []Input) (map[string]spatialmath.Geometry, error) {
	poses, err := m.framePoses(inputs)
	if err != nil && poses == nil {
		return nil, err
	}
	var errAll error
	multierr.AppendInto(&errAll, err)
	geometries := make(map[string]spatialmath.Geometry)
	for i, frame := range m.OrdTransforms {
		if len(frame.DoF()) > 0 {
			continue
		}
		local, err := frame.Geometries([]Input{})
		if err != nil {
			multierr.AppendInto(&errAll, err)
			continue
		}
		for name, g := range local {
			geometries[name] = g.Transform(poses[i])
		}
	}
	return geometries, errAll
}

// framePoses returns the pose of every frame in the chain relative to the model base.
// Out of bounds inputs still produce poses alongside a non-nil error.
func (m *SimpleModel) framePoses(inputs []Input) ([]spatialmath.Pose, error) {
	dof := len(m.DoF())
	if len(inputs) != dof {
		return nil, NewIncorrectDoFError(len(inputs), dof)
	}
	var err error
	poses := make([]spatialmath.Pose, 0, len(m.OrdTransforms))
	composed := spatialmath.NewZeroPose()
	posIdx := 0
	// get poses from the base outwards.
	for _, transform := range m.OrdTransforms {
		next := len(transform.DoF()) + posIdx
		pose, errNew := transform.Transform(inputs[posIdx:next])
		posIdx = next
		// Fail if inputs are incorrect and pose is nil, but allow querying out-of-bounds positions
		if pose == nil {
			return nil, errNew
		}
		multierr.AppendInto(&err, errNew)
		composed = spatialmath.Compose(composed, pose)
		poses = append(poses, composed)
	}
	return poses, err
}

// AreJointPositionsValid checks whether the given array of joint positions violates any joint limits.
func (m *SimpleModel) AreJointPositionsValid(pos []float64) bool {
	return InputsWithinLimits(FloatsToInputs(pos), m.DoF())
}

// DoF returns the number of degrees of freedom within a model.
func (m *SimpleModel) DoF() []Limit {
	m.lock.RLock()
	if m.limits != nil {
		defer m.lock.RUnlock()
		return m.limits
	}
	m.lock.RUnlock()

	limits := []Limit{}
	for _, transform := range m.OrdTransforms {
		limits = append(limits, transform.DoF()...)
	}
	m.lock.Lock()
	m.limits = limits
	m.lock.Unlock()
	return limits
}

// AlmostEquals returns true if the only difference between this model and another is floating point inprecision.
func (m *SimpleModel) AlmostEquals(otherFrame Frame) bool {
	other, ok := otherFrame.(*SimpleModel)
	if !ok || m.name != other.name || len(m.OrdTransforms) != len(other.OrdTransforms) {
		return false
	}
	for i, f := range m.OrdTransforms {
		if !f.AlmostEquals(other.OrdTransforms[i]) {
			return false
		}
	}
	return true
}
