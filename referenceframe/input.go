package referenceframe

import (
	"gonum.org/v1/gonum/floats"
)

// Input wraps the input to a mutable frame, e.g. a joint angle or a gantry position. Revolute inputs should be in
// radians. Prismatic inputs should be in meters.
type Input struct {
	Value float64
}

// FloatsToInputs wraps a slice of floats in Inputs.
func FloatsToInputs(floats []float64) []Input {
	inputs := make([]Input, len(floats))
	for i, f := range floats {
		inputs[i] = Input{f}
	}
	return inputs
}

// InputsToFloats unwraps Inputs to raw floats.
func InputsToFloats(inputs []Input) []float64 {
	values := make([]float64, len(inputs))
	for i, v := range inputs {
		values[i] = v.Value
	}
	return values
}

// CopyInputs returns a copy of the given inputs, or nil when there are none.
func CopyInputs(inputs []Input) []Input {
	if inputs == nil {
		return nil
	}
	return append([]Input(nil), inputs...)
}

// InputsL2Distance returns the square of the two-norm between the from and to vectors.
func InputsL2Distance(from, to []Input) float64 {
	if len(from) != len(to) {
		return -1
	}
	diff := make([]float64, len(from))
	floats.SubTo(diff, InputsToFloats(from), InputsToFloats(to))
	return floats.Dot(diff, diff)
}

// InputsWithinLimits reports whether every input lies inside the matching limit.
func InputsWithinLimits(inputs []Input, limits []Limit) bool {
	if len(inputs) != len(limits) {
		return false
	}
	for i, in := range inputs {
		if in.Value < limits[i].Min || in.Value > limits[i].Max {
			return false
		}
	}
	return true
}
