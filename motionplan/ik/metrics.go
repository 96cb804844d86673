package ik

import (
	"go.viam.com/grasping/referenceframe"
	spatial "go.viam.com/grasping/spatialmath"
	"go.viam.com/grasping/utils"
)

// orientationDistanceScaling converts radians of orientation error into meters of equivalent position error.
const orientationDistanceScaling = 0.1

// State contains all the information a metric needs to score a configuration.
// Position is the end effector pose the configuration produces, relative to the model base.
type State struct {
	Position      spatial.Pose
	Configuration []referenceframe.Input
	Frame         referenceframe.Frame
}

// StateMetric are functions which, given a State, produces some score. Lower is better.
// This is used for gradient descent to converge upon a goal pose, for example.
type StateMetric func(*State) float64

type combinableStateMetric struct {
	metrics []StateMetric
}

func (m *combinableStateMetric) combinedDist(input *State) float64 {
	dist := 0.
	for _, metric := range m.metrics {
		dist += metric(input)
	}
	return dist
}

// CombineMetrics will take a variable number of Metrics and return a new Metric which will combine all given metrics into one, summing
// their distances.
func CombineMetrics(metrics ...StateMetric) StateMetric {
	cm := &combinableStateMetric{metrics: metrics}
	return cm.combinedDist
}

// OrientDist returns the arclength between two orientations in degrees.
func OrientDist(o1, o2 spatial.Orientation) float64 {
	return utils.RadToDeg(spatial.QuatToR4AA(spatial.OrientationBetween(o1, o2).Quaternion()).Theta)
}

// NewSquaredNormMetric is the default distance function between two poses to be used for gradient descent.
func NewSquaredNormMetric(goal spatial.Pose) StateMetric {
	weightedSqNormDist := func(query *State) float64 {
		delta := spatial.PoseDelta(goal, query.Position)
		return delta.Point().Norm2() + spatial.QuatToR3AA(delta.Orientation().Quaternion()).Mul(orientationDistanceScaling).Norm2()
	}
	return weightedSqNormDist
}

// NewSeedProximityMetric returns a metric penalizing distance in joint space from the seed. Combined with a pose
// metric it biases the solver towards solutions near the seed.
func NewSeedProximityMetric(seed []referenceframe.Input, weight float64) StateMetric {
	return func(state *State) float64 {
		d := referenceframe.InputsL2Distance(seed, state.Configuration)
		if d < 0 {
			return 0
		}
		return weight * d
	}
}
