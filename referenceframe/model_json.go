package referenceframe

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"

	spatial "go.viam.com/grasping/spatialmath"
	"go.viam.com/grasping/utils"
)

// Supported joint types.
const (
	RevoluteJoint  = "revolute"
	PrismaticJoint = "prismatic"
)

// ModelConfigJSON represents all supported fields in a kinematics JSON file.
type ModelConfigJSON struct {
	Name         string        `json:"name"`
	KinParamType string        `json:"kinematic_param_type,omitempty"`
	Links        []LinkConfig  `json:"links,omitempty"`
	Joints       []JointConfig `json:"joints,omitempty"`
}

// LinkConfig is a static offset from its parent, optionally carrying a collision geometry.
// Orientation is given as roll/pitch/yaw in degrees.
type LinkConfig struct {
	ID          string                  `json:"id"`
	Parent      string                  `json:"parent,omitempty"`
	Translation r3.Vector               `json:"translation"`
	Orientation *spatial.EulerAngles    `json:"orientation,omitempty"`
	Geometry    *spatial.GeometryConfig `json:"geometry,omitempty"`
}

// JointConfig is a single degree of freedom. Revolute limits are in degrees, prismatic limits in meters.
type JointConfig struct {
	ID     string    `json:"id"`
	Type   string    `json:"type"`
	Parent string    `json:"parent"`
	Axis   r3.Vector `json:"axis"`
	Max    float64   `json:"max"`
	Min    float64   `json:"min"`
}

// ToStaticFrame converts a LinkConfig into a staticFrame.
func (cfg *LinkConfig) ToStaticFrame(name string) (Frame, error) {
	var orientation spatial.Orientation = spatial.NewZeroOrientation()
	if cfg.Orientation != nil {
		orientation = &spatial.EulerAngles{
			Roll:  utils.DegToRad(cfg.Orientation.Roll),
			Pitch: utils.DegToRad(cfg.Orientation.Pitch),
			Yaw:   utils.DegToRad(cfg.Orientation.Yaw),
		}
	}
	pose := spatial.NewPose(cfg.Translation, orientation)
	if cfg.Geometry == nil {
		return NewStaticFrame(name, pose)
	}
	if cfg.Geometry.Label == "" {
		cfg.Geometry.Label = name
	}
	geometry, err := cfg.Geometry.ParseConfig()
	if err != nil {
		return nil, errors.Wrapf(err, "link %q", name)
	}
	return NewStaticFrameWithGeometry(name, pose, geometry)
}

// ToFrame converts a JointConfig into a joint frame.
func (cfg *JointConfig) ToFrame() (Frame, error) {
	switch cfg.Type {
	case RevoluteJoint:
		return NewRotationalFrame(cfg.ID, spatial.R4AA{RX: cfg.Axis.X, RY: cfg.Axis.Y, RZ: cfg.Axis.Z},
			Limit{Min: utils.DegToRad(cfg.Min), Max: utils.DegToRad(cfg.Max)})
	case PrismaticJoint:
		return NewTranslationalFrame(cfg.ID, cfg.Axis, Limit{Min: cfg.Min, Max: cfg.Max})
	default:
		return nil, NewUnsupportedJointTypeError(cfg.Type)
	}
}

// UnmarshalModelJSON will parse the given JSON data into a kinematics model. modelName sets the name of the model,
// will use the name from the JSON if string is empty.
func UnmarshalModelJSON(jsonData []byte, modelName string) (Model, error) {
	// empty data probably means that the robot component has no model information
	if len(jsonData) == 0 {
		return nil, ErrNoModelInformation
	}

	m := &ModelConfigJSON{}
	if err := json.Unmarshal(jsonData, m); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal json file")
	}

	return m.ParseConfig(modelName)
}

// ParseConfig converts the ModelConfig struct into a full Model with the name modelName.
func (cfg *ModelConfigJSON) ParseConfig(modelName string) (Model, error) {
	if modelName == "" {
		modelName = cfg.Name
	}
	if cfg.KinParamType != "" && cfg.KinParamType != "SVA" {
		return nil, errors.Errorf("unsupported param type: %s, supported params are SVA", cfg.KinParamType)
	}

	model := NewSimpleModel(modelName)
	model.modelConfig = cfg
	transforms := map[string]Frame{}

	// Make a map of parents for each element for post-process, to allow items to be processed out of order
	parentMap := map[string]string{}

	for _, link := range cfg.Links {
		if link.ID == World {
			return nil, NewReservedWordError("link", World)
		}
	}
	for _, joint := range cfg.Joints {
		if joint.ID == World {
			return nil, NewReservedWordError("joint", World)
		}
	}

	for i := range cfg.Links {
		link := &cfg.Links[i]
		parentMap[link.ID] = link.Parent
		frame, err := link.ToStaticFrame(link.ID)
		if err != nil {
			return nil, err
		}
		transforms[link.ID] = frame
	}

	for _, joint := range cfg.Joints {
		parentMap[joint.ID] = joint.Parent
		frame, err := joint.ToFrame()
		if err != nil {
			return nil, err
		}
		transforms[joint.ID] = frame
	}

	// Create an ordered list of transforms
	ot, err := sortTransforms(transforms, parentMap)
	if err != nil {
		return nil, err
	}

	model.setOrdTransforms(ot)

	return model, nil
}

// ParseModelJSONFile will read a given file and then parse the contained JSON data.
func ParseModelJSONFile(filename, modelName string) (Model, error) {
	//nolint:gosec
	jsonData, err := os.ReadFile(filename)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read json file")
	}
	return UnmarshalModelJSON(jsonData, modelName)
}

// Create an ordered list of transforms given a mapping of child to parent frames.
func sortTransforms(transforms map[string]Frame, parents map[string]string) ([]Frame, error) {
	// find the end effector first - determine which transforms have no children
	ees := map[string]string{}
	for child, parent := range parents {
		ees[child] = parent
	}
	for _, parent := range parents {
		delete(ees, parent)
	}
	if len(ees) != 1 {
		names := make([]string, 0, len(ees))
		for name := range ees {
			names = append(names, name)
		}
		sort.Strings(names)
		return nil, fmt.Errorf("%w, have %v", ErrNeedOneEndEffector, names)
	}

	// start the search from the end effector
	var curr string
	for name := range ees {
		curr = name
	}
	seen := map[string]bool{curr: true}
	reachedWorld := false
	orderedTransforms := []Frame{}
	for i := 0; i < len(parents); i++ {
		frame, ok := transforms[curr]
		if !ok {
			return nil, NewFrameNotInListOfTransformsError(curr)
		}
		orderedTransforms = append(orderedTransforms, frame)

		parent, ok := parents[curr]
		if !ok {
			return nil, NewParentFrameNotInMapOfParentsError(curr)
		}
		if parent == World || parent == "" {
			reachedWorld = true
			break
		}

		// make sure it wasn't seen, mark it seen, then add it to the list
		if seen[parent] {
			return nil, ErrCircularReference
		}
		seen[parent] = true

		curr = parent
	}
	if !reachedWorld || len(orderedTransforms) != len(parents) {
		return nil, errors.Errorf("model has %d frames but only %d are connected to %s",
			len(parents), len(orderedTransforms), World)
	}

	// After the above loop, the transforms are in reverse order, so we reverse the list.
	for i, j := 0, len(orderedTransforms)-1; i < j; i, j = i+1, j-1 {
		orderedTransforms[i], orderedTransforms[j] = orderedTransforms[j], orderedTransforms[i]
	}

	return orderedTransforms, nil
}
