package grasp

import (
	"context"
	"time"

	"go.viam.com/grasping/motionplan/ik"
	"go.viam.com/grasping/referenceframe"
	"go.viam.com/grasping/spatialmath"
)

// IKRequest asks a kinematic oracle for a configuration placing the group's end effector at Target.
type IKRequest struct {
	Target spatialmath.Pose
	Group  referenceframe.JointGroup
	Seed   []referenceframe.Input
	// Timeout is the oracle's budget for this request, zero for its own default.
	Timeout time.Duration
	// AllowedObstacle, when set, may touch the group's end effector links.
	AllowedObstacle string
	// Metric, when set, steers the oracle's search. Oracles that do not search may ignore it.
	Metric ik.StateMetric
}

// KinematicOracle solves inverse kinematics with collision checking: any returned configuration is collision
// free. When no configuration exists or none was found within budget it returns ik.ErrNoSolution; any other error
// is a fault. Implementations must be safe for concurrent use.
type KinematicOracle interface {
	SolveIK(ctx context.Context, req IKRequest) ([]referenceframe.Input, error)
}

// ObstacleLister is implemented by oracles that can report the scene obstacles they check against.
type ObstacleLister interface {
	ObstacleIDs() []string
}

// SolverOracle is a KinematicOracle backed by the reference ik solver.
type SolverOracle struct {
	solver *ik.Solver
}

// NewSolverOracle wraps a solver.
func NewSolverOracle(solver *ik.Solver) *SolverOracle {
	return &SolverOracle{solver: solver}
}

// SolveIK solves for the request's target seeded from its seed.
func (o *SolverOracle) SolveIK(ctx context.Context, req IKRequest) ([]referenceframe.Input, error) {
	ikReq := ik.Request{
		Goal:    req.Target,
		Seed:    req.Seed,
		Timeout: req.Timeout,
		Metric:  req.Metric,
	}
	if req.AllowedObstacle != "" {
		ikReq.AllowedLinks = req.Group.EndEffectorLinks
		ikReq.AllowedObstacle = req.AllowedObstacle
	}
	solution, err := o.solver.Solve(ctx, ikReq)
	if err != nil {
		return nil, err
	}
	return solution.Configuration, nil
}

// ObstacleIDs returns the ids of the solver's scene obstacles.
func (o *SolverOracle) ObstacleIDs() []string {
	return o.solver.ObstacleIDs()
}

// Stats returns the solver's running totals.
func (o *SolverOracle) Stats() ik.Stats {
	return o.solver.Stats()
}
