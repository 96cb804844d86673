// Package grasp generates, scores and filters grasp candidates for cuboid objects.
//
// A Generator enumerates grasps on the faces of an object's bounding box and scores them. A Filter then rejects
// candidates that violate the caller's ConstraintSet or that a KinematicOracle cannot reach, recording the
// outcome on each candidate.
package grasp

import (
	"context"

	"github.com/pkg/errors"

	"go.viam.com/grasping/logging"
	"go.viam.com/grasping/referenceframe"
)

// Pipeline runs generation and filtering for one object at a time.
type Pipeline struct {
	Generator   Generator
	Filter      *Filter
	Constraints *ConstraintSet
	// Sink observes each run. Nil means NoopSink.
	Sink   Sink
	Logger logging.Logger
}

// Result is the outcome of one pipeline run.
type Result struct {
	// Candidates holds every generated candidate with its feasibility, best first.
	Candidates []*Candidate
	// Valid holds the valid candidates, best first.
	Valid  []*Candidate
	Report *FilterReport
}

// Run generates candidates for the object and filters them against the pipeline's constraints.
func (p *Pipeline) Run(
	ctx context.Context,
	obj Object,
	geom GraspGeometry,
	group referenceframe.JointGroup,
	state *referenceframe.RobotState,
	filterPregrasp bool,
) (*Result, error) {
	if p.Generator == nil || p.Filter == nil {
		return nil, errors.New("pipeline needs a generator and a filter")
	}
	if err := obj.Validate(); err != nil {
		return nil, err
	}
	if err := geom.Validate(); err != nil {
		return nil, err
	}
	sink := p.Sink
	if sink == nil {
		sink = NoopSink{}
	}
	sink.ShowObject(obj)
	sink.ShowCuttingPlanes(p.Constraints.CuttingPlanes())

	candidates, err := p.Generator.Generate(ctx, obj, geom)
	if err != nil {
		return nil, err
	}
	report, err := p.Filter.FilterWithReport(ctx, candidates, p.Constraints, group, state, filterPregrasp)
	if report == nil {
		return nil, err
	}
	sink.ShowCandidates(candidates)
	valid, ok := RemoveInvalidAndSort(candidates)
	if !ok && p.Logger != nil {
		p.Logger.Warnw("no valid grasps found after filtering", "object", obj.ID, "candidates", len(candidates))
	}
	return &Result{Candidates: candidates, Valid: valid, Report: report}, err
}
