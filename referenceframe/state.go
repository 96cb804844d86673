package referenceframe

import (
	"time"

	"github.com/pkg/errors"

	"go.viam.com/grasping/spatialmath"
)

// ErrEmptyJointGroup is returned when a joint group has no degrees of freedom to solve for.
var ErrEmptyJointGroup = errors.New("joint group has no degrees of freedom")

// JointGroup names the part of a model that inverse kinematics solves for and the links that make up
// its end effector.
type JointGroup struct {
	Name string
	// EndEffectorLinks are the model links that belong to the end effector. Scene entries allowed to touch the
	// end effector are only ignored against these links.
	EndEffectorLinks []string
	// IKTimeout bounds every solver call made for this group. Zero leaves the bound to the solver.
	IKTimeout time.Duration
}

// Validate checks the group against the model it will be solved on.
func (g JointGroup) Validate(m Model) error {
	if m == nil {
		return errors.New("joint group needs a model")
	}
	if len(m.DoF()) == 0 {
		return errors.Wrapf(ErrEmptyJointGroup, "group %q on model %q", g.Name, m.Name())
	}
	links := map[string]bool{}
	for _, name := range m.LinkNames() {
		links[name] = true
	}
	for _, name := range g.EndEffectorLinks {
		if !links[name] {
			return errors.Errorf("end effector link %q is not part of model %q", name, m.Name())
		}
	}
	return nil
}

// RobotState is the joint configuration of a model. A state is scratch space for a single goroutine;
// workers take their own copy with Clone.
type RobotState struct {
	model     Model
	positions []Input
}

// NewRobotState creates a state for the model at the given joint positions. Nil positions start the model
// at all zeros.
func NewRobotState(m Model, positions []Input) (*RobotState, error) {
	if m == nil {
		return nil, errors.New("robot state needs a model")
	}
	dof := len(m.DoF())
	if positions == nil {
		positions = make([]Input, dof)
	}
	if len(positions) != dof {
		return nil, NewIncorrectDoFError(len(positions), dof)
	}
	return &RobotState{model: m, positions: CopyInputs(positions)}, nil
}

// Model returns the model the state describes.
func (s *RobotState) Model() Model {
	return s.model
}

// Positions returns a copy of the current joint positions.
func (s *RobotState) Positions() []Input {
	return CopyInputs(s.positions)
}

// SetPositions replaces the joint positions.
func (s *RobotState) SetPositions(positions []Input) error {
	if len(positions) != len(s.positions) {
		return NewIncorrectDoFError(len(positions), len(s.positions))
	}
	copy(s.positions, positions)
	return nil
}

// Clone returns an independent copy of the state sharing the immutable model.
func (s *RobotState) Clone() *RobotState {
	return &RobotState{model: s.model, positions: CopyInputs(s.positions)}
}

// EndEffectorPose returns the pose of the model's last frame at the current positions.
func (s *RobotState) EndEffectorPose() (spatialmath.Pose, error) {
	return s.model.Transform(s.positions)
}

// Geometries returns the link geometries at the current positions.
func (s *RobotState) Geometries() (map[string]spatialmath.Geometry, error) {
	return s.model.Geometries(s.positions)
}
