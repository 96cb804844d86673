package referenceframe

import (
	"embed"
	"path"

	"github.com/pkg/errors"
)

//go:embed models/*.json
var builtinModels embed.FS

// SixAxisArm is the name of the built-in six degree of freedom arm with a parallel gripper link.
const SixAxisArm = "six_axis_arm"

// BuiltinModel returns one of the kinematic models shipped with this package.
func BuiltinModel(name string) (Model, error) {
	data, err := builtinModels.ReadFile(path.Join("models", name+".json"))
	if err != nil {
		return nil, errors.Wrapf(err, "no built-in model named %q", name)
	}
	return UnmarshalModelJSON(data, name)
}
