package ik

import (
	"context"
	"testing"
	"time"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"go.viam.com/test"

	"go.viam.com/grasping/collision"
	"go.viam.com/grasping/logging"
	"go.viam.com/grasping/referenceframe"
	spatial "go.viam.com/grasping/spatialmath"
)

var goalJoints = []float64{0.3, -0.4, 0.8, 0.2, 0.5, -0.3}

func armSolver(t *testing.T, scene *collision.Scene, opts Options) *Solver {
	t.Helper()
	m, err := referenceframe.BuiltinModel(referenceframe.SixAxisArm)
	test.That(t, err, test.ShouldBeNil)
	checker, err := collision.NewChecker(m, scene, nil)
	test.That(t, err, test.ShouldBeNil)
	solver, err := CreateSolver(m, checker, logging.NewTestLogger(t), opts)
	test.That(t, err, test.ShouldBeNil)
	return solver
}

func goalPose(t *testing.T, m referenceframe.Model) spatial.Pose {
	t.Helper()
	goal, err := m.Transform(referenceframe.FloatsToInputs(goalJoints))
	test.That(t, err, test.ShouldBeNil)
	return goal
}

func nearGoalSeed() []referenceframe.Input {
	seed := make([]float64, len(goalJoints))
	for i, v := range goalJoints {
		seed[i] = v + 0.05
	}
	return referenceframe.FloatsToInputs(seed)
}

func TestSolveReachesGoal(t *testing.T) {
	solver := armSolver(t, nil, Options{Timeout: 5 * time.Second})
	goal := goalPose(t, solver.Model())

	solution, err := solver.Solve(context.Background(), Request{Goal: goal, Seed: nearGoalSeed()})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, solution.Score, test.ShouldBeLessThanOrEqualTo, defaultGoalThreshold)
	test.That(t, referenceframe.InputsWithinLimits(solution.Configuration, solver.Model().DoF()), test.ShouldBeTrue)

	reached, err := solver.Model().Transform(solution.Configuration)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.PoseAlmostCoincidentEps(reached, goal, 0.002), test.ShouldBeTrue)

	stats := solver.Stats()
	test.That(t, stats.Solutions, test.ShouldEqual, 1)
	test.That(t, stats.Attempts, test.ShouldBeGreaterThanOrEqualTo, 1)
}

func TestSolveWithMetric(t *testing.T) {
	solver := armSolver(t, nil, Options{Timeout: 5 * time.Second})
	goal := goalPose(t, solver.Model())
	seed := nearGoalSeed()

	solution, err := solver.Solve(context.Background(), Request{
		Goal:   goal,
		Seed:   seed,
		Metric: CombineMetrics(NewSquaredNormMetric(goal), NewSeedProximityMetric(seed, 0.01)),
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, solution.Score, test.ShouldBeLessThanOrEqualTo, defaultGoalThreshold)
	reached, err := solver.Model().Transform(solution.Configuration)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.PoseAlmostCoincidentEps(reached, goal, 0.002), test.ShouldBeTrue)

	// a metric blind to the goal only picks where the goal search starts
	solution, err = solver.Solve(context.Background(), Request{
		Goal:   goal,
		Seed:   seed,
		Metric: NewSeedProximityMetric(seed, 1),
	})
	test.That(t, err, test.ShouldBeNil)
	reached, err = solver.Model().Transform(solution.Configuration)
	test.That(t, err, test.ShouldBeNil)
	test.That(t, spatial.PoseAlmostCoincidentEps(reached, goal, 0.002), test.ShouldBeTrue)
}

func TestSolveUnreachable(t *testing.T) {
	solver := armSolver(t, nil, Options{MaxRestarts: 2, MaxIterations: 50})
	far := spatial.NewPoseFromPoint(r3.Vector{Z: 3})
	_, err := solver.Solve(context.Background(), Request{Goal: far})
	test.That(t, errors.Is(err, ErrNoSolution), test.ShouldBeTrue)
	test.That(t, solver.Stats().Attempts, test.ShouldEqual, 2)
}

func TestSolveRejectsCollisions(t *testing.T) {
	m, err := referenceframe.BuiltinModel(referenceframe.SixAxisArm)
	test.That(t, err, test.ShouldBeNil)
	goal := goalPose(t, m)
	// a block inside the gripper body at the goal
	blockCenter := spatial.Compose(goal, spatial.NewPoseFromPoint(r3.Vector{Z: -0.03}))
	block, err := spatial.NewBox(blockCenter, r3.Vector{X: 0.02, Y: 0.02, Z: 0.02}, "block")
	test.That(t, err, test.ShouldBeNil)
	scene, err := collision.NewScene(block)
	test.That(t, err, test.ShouldBeNil)

	solver := armSolver(t, scene, Options{MaxRestarts: 3, Timeout: 5 * time.Second})
	test.That(t, solver.ObstacleIDs(), test.ShouldResemble, []string{"block"})
	_, err = solver.Solve(context.Background(), Request{Goal: goal, Seed: nearGoalSeed()})
	test.That(t, errors.Is(err, ErrNoSolution), test.ShouldBeTrue)
	test.That(t, solver.Stats().CollisionRejection, test.ShouldBeGreaterThanOrEqualTo, 1)

	solution, err := solver.Solve(context.Background(), Request{
		Goal:            goal,
		Seed:            nearGoalSeed(),
		AllowedLinks:    []string{"gripper_link"},
		AllowedObstacle: "block",
	})
	test.That(t, err, test.ShouldBeNil)
	test.That(t, solution, test.ShouldNotBeNil)

	_, err = solver.Solve(context.Background(), Request{Goal: goal, AllowedObstacle: "missing"})
	test.That(t, err, test.ShouldNotBeNil)
	test.That(t, errors.Is(err, ErrNoSolution), test.ShouldBeFalse)
}

func TestSolveBadInput(t *testing.T) {
	solver := armSolver(t, nil, Options{})
	_, err := solver.Solve(context.Background(), Request{})
	test.That(t, err, test.ShouldBeError)

	_, err = solver.Solve(context.Background(), Request{
		Goal: spatial.NewZeroPose(),
		Seed: referenceframe.FloatsToInputs([]float64{0, 0}),
	})
	test.That(t, err, test.ShouldBeError)
	test.That(t, errors.Is(err, ErrNoSolution), test.ShouldBeFalse)

	_, err = CreateSolver(nil, nil, nil, Options{})
	test.That(t, err, test.ShouldBeError)
	_, err = CreateSolver(referenceframe.NewSimpleModel("empty"), nil, nil, Options{})
	test.That(t, err, test.ShouldEqual, errBadBounds)
}

func TestSolveCancelled(t *testing.T) {
	solver := armSolver(t, nil, Options{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := solver.Solve(ctx, Request{Goal: spatial.NewZeroPose()})
	test.That(t, errors.Is(err, context.Canceled), test.ShouldBeTrue)
	test.That(t, solver.Stats().Attempts, test.ShouldEqual, 0)
}

func TestUnboundedMapping(t *testing.T) {
	solver := armSolver(t, nil, Options{})
	inputs := referenceframe.FloatsToInputs(goalJoints)
	back := solver.fromUnbounded(solver.toUnbounded(inputs))
	for i, v := range goalJoints {
		test.That(t, back[i], test.ShouldAlmostEqual, v)
	}
	for i, v := range solver.fromUnbounded([]float64{1e3, -1e3, 7, -7, 100, 42}) {
		test.That(t, v, test.ShouldBeBetweenOrEqual, solver.lowerBound[i], solver.upperBound[i])
	}
}
