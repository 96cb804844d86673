package grasp

import (
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"github.com/samber/lo"

	"go.viam.com/grasping/referenceframe"
	"go.viam.com/grasping/spatialmath"
)

// RejectionReason records the outcome of filtering a candidate.
type RejectionReason int

// The possible filtering outcomes. Unset candidates were never processed and do not count as valid.
const (
	Unset RejectionReason = iota
	Valid
	ConstraintViolation
	NoIKGrasp
	NoIKPregrasp
	Timeout
)

func (r RejectionReason) String() string {
	switch r {
	case Unset:
		return "unset"
	case Valid:
		return "valid"
	case ConstraintViolation:
		return "constraint_violation"
	case NoIKGrasp:
		return "no_ik_grasp"
	case NoIKPregrasp:
		return "no_ik_pregrasp"
	case Timeout:
		return "timeout"
	default:
		return "unknown"
	}
}

// ConstraintKind names the kind of constraint that rejected a candidate.
type ConstraintKind int

// The constraint kinds.
const (
	NoConstraint ConstraintKind = iota
	CuttingPlaneConstraint
	OrientationConstraintKind
)

func (k ConstraintKind) String() string {
	switch k {
	case NoConstraint:
		return "none"
	case CuttingPlaneConstraint:
		return "cutting_plane"
	case OrientationConstraintKind:
		return "orientation"
	default:
		return "unknown"
	}
}

// Feasibility is what a filtering pass learned about a candidate.
type Feasibility struct {
	Reason     RejectionReason
	Constraint ConstraintKind
	// GraspIK and PregraspIK are joint solutions for the parent link poses, nil when absent.
	GraspIK    []referenceframe.Input
	PregraspIK []referenceframe.Input
}

// Candidate is a scored grasp of an object. Poses are in the world frame; the parent poses are the targets handed
// to the kinematic solver.
type Candidate struct {
	// Index is the candidate's position in generation order. It breaks score ties.
	Index int
	// Face is the outward object face normal the grasp approaches, e.g. "+z".
	Face string
	// Approach is the world direction the tool moves in to reach the object.
	Approach r3.Vector

	Pose               spatialmath.Pose
	ParentPose         spatialmath.Pose
	PregraspPose       spatialmath.Pose
	PregraspParentPose spatialmath.Pose

	Depth   float64
	Opening float64
	Score   float64

	Feasibility Feasibility
}

// IsValid reports whether the candidate passed filtering.
func (c *Candidate) IsValid() bool {
	return c.Feasibility.Reason == Valid
}

// Processed reports whether a filtering pass has already recorded an outcome.
func (c *Candidate) Processed() bool {
	return c.Feasibility.Reason != Unset
}

// GraspState returns a copy of the state with the grasp solution applied.
func (c *Candidate) GraspState(state *referenceframe.RobotState) (*referenceframe.RobotState, error) {
	return applySolution(state, c.Feasibility.GraspIK, PhaseGrasp)
}

// PregraspState returns a copy of the state with the pregrasp solution applied.
func (c *Candidate) PregraspState(state *referenceframe.RobotState) (*referenceframe.RobotState, error) {
	return applySolution(state, c.Feasibility.PregraspIK, PhasePregrasp)
}

func applySolution(state *referenceframe.RobotState, solution []referenceframe.Input, phase Phase) (*referenceframe.RobotState, error) {
	if solution == nil {
		return nil, errors.Errorf("no %s ik solution available to set", phase)
	}
	if state == nil {
		return nil, errors.New("robot state cannot be nil")
	}
	out := state.Clone()
	if err := out.SetPositions(solution); err != nil {
		return nil, err
	}
	return out, nil
}

// SortCandidates orders candidates best first. Equal scores keep generation order.
func SortCandidates(candidates []*Candidate) {
	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Score != candidates[j].Score {
			return candidates[i].Score > candidates[j].Score
		}
		return candidates[i].Index < candidates[j].Index
	})
}

// RemoveInvalidAndSort returns the valid candidates best first, and whether any remain.
func RemoveInvalidAndSort(candidates []*Candidate) ([]*Candidate, bool) {
	valid := lo.Filter(candidates, func(c *Candidate, _ int) bool { return c.IsValid() })
	SortCandidates(valid)
	return valid, len(valid) > 0
}
