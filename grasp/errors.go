package grasp

import (
	"fmt"

	"github.com/pkg/errors"

	"go.viam.com/grasping/referenceframe"
)

var (
	// ErrInvalidObjectExtents is returned when an object has a non-positive or non-finite extent.
	ErrInvalidObjectExtents = errors.New("object extents must be positive and finite")
	// ErrInvalidGeometry is returned when a gripper's grasp geometry is malformed.
	ErrInvalidGeometry = errors.New("invalid grasp geometry")
	// ErrEmptyJointGroup is returned when filtering against a joint group with no degrees of freedom.
	ErrEmptyJointGroup = referenceframe.ErrEmptyJointGroup
	// ErrNilOracle is returned when a filter is built without a kinematic oracle.
	ErrNilOracle = errors.New("grasp filter needs a kinematic oracle")
)

// Phase names the pose of a candidate being solved for.
type Phase string

// The poses solved for per candidate.
const (
	PhaseGrasp    Phase = "grasp"
	PhasePregrasp Phase = "pregrasp"
)

// OracleFaultError is returned by a filtering pass when the kinematic oracle fails for a reason other than
// finding no solution. The whole pass is abandoned.
type OracleFaultError struct {
	Index int
	Phase Phase
	Err   error
}

func (e *OracleFaultError) Error() string {
	return fmt.Sprintf("kinematic oracle fault solving %s pose of candidate %d: %v", e.Phase, e.Index, e.Err)
}

func (e *OracleFaultError) Unwrap() error {
	return e.Err
}

func newInvalidGeometryError(format string, args ...interface{}) error {
	return errors.Wrapf(ErrInvalidGeometry, format, args...)
}
