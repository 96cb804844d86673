package referenceframe

import (
	"fmt"

	"github.com/pkg/errors"
)

// World is the reserved name of the root frame every model is built against.
const World = "world"

// OOBErrString is a string that all OOB errors should contain, so that they can be checked for distinct from other Transform errors.
const OOBErrString = "input out of bounds"

var (
	// ErrNoModelInformation is used when there is no model information.
	ErrNoModelInformation = errors.New("no model information")

	// ErrCircularReference is returned when a model's parent chain loops back on itself.
	ErrCircularReference = errors.New("infinite loop finding path from end effector to world")

	// ErrNeedOneEndEffector is returned when a model does not resolve to exactly one end effector.
	ErrNeedOneEndEffector = errors.New("need exactly one end effector")
)

// NewIncorrectDoFError returns an error indicating that the length of an input slice does not match the DoF of a frame.
func NewIncorrectDoFError(actual, expected int) error {
	return errors.Errorf("number of inputs does not match frame DoF, expected %d but got %d", expected, actual)
}

// NewReservedWordError is used when a link or joint uses a name that is reserved.
func NewReservedWordError(configType, reservedWord string) error {
	return fmt.Errorf("reserved word: cannot name a %s '%s'", configType, reservedWord)
}

// NewFrameNotInListOfTransformsError returns an error indicating that a frame of the given name
// is missing from the provided list of transforms.
func NewFrameNotInListOfTransformsError(frameName string) error {
	return errors.Errorf("frame named '%s' not in the list of transforms", frameName)
}

// NewParentFrameNotInMapOfParentsError returns an error indicating that a frame of the given name
// is missing from the provided map of parents.
func NewParentFrameNotInMapOfParentsError(frameName string) error {
	return errors.Errorf("parent frame of '%s' not in the map of parents", frameName)
}

// NewUnsupportedJointTypeError is used when a joint type is not supported.
func NewUnsupportedJointTypeError(jointType string) error {
	return errors.Errorf("unsupported joint type detected: %q", jointType)
}
