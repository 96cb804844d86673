// Package ik is a reference inverse kinematics solver. It minimizes a pose metric over a model's joint space with
// quasi-Newton descent and random restarts, and only accepts configurations that are collision free.
package ik

import (
	"context"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.opencensus.io/trace"
	"go.uber.org/atomic"
	"gonum.org/v1/gonum/diff/fd"
	"gonum.org/v1/gonum/optimize"

	"go.viam.com/grasping/collision"
	"go.viam.com/grasping/logging"
	"go.viam.com/grasping/referenceframe"
	spatial "go.viam.com/grasping/spatialmath"
)

// ErrNoSolution is returned when no collision free configuration reaching the goal was found within the solver's
// budget. It is an expected outcome, not a fault.
var ErrNoSolution = errors.New("kinematics could not solve for position")

var errBadBounds = errors.New("cannot solve for a frame with no degrees of freedom")

const (
	defaultGoalThreshold = 1e-6
	defaultMaxRestarts   = 20
	defaultMaxIterations = 200
	defaultTimeout       = time.Second
	gradientStep         = 1e-6
)

// Options tune the solver's budget. Zero values take defaults.
type Options struct {
	// GoalThreshold is the metric value under which a configuration is accepted.
	GoalThreshold float64
	// MaxRestarts bounds the number of descents per request. The first starts at the seed, the rest at random
	// configurations.
	MaxRestarts int
	// MaxIterations bounds the major iterations of each descent.
	MaxIterations int
	// Timeout is the per request budget used when a request carries none.
	Timeout time.Duration
	// RandomSeed seeds the restart positions. Every request restarts from the same sequence, so identical requests
	// give identical answers when they finish within budget.
	RandomSeed int64
}

func (o Options) withDefaults() Options {
	if o.GoalThreshold <= 0 {
		o.GoalThreshold = defaultGoalThreshold
	}
	if o.MaxRestarts < 1 {
		o.MaxRestarts = defaultMaxRestarts
	}
	if o.MaxIterations < 1 {
		o.MaxIterations = defaultMaxIterations
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	return o
}

// Request is a single IK query.
type Request struct {
	// Goal is the pose of the model's end effector relative to the model base.
	Goal spatial.Pose
	// Seed is where the first descent starts. Nil means the all zero configuration.
	Seed []referenceframe.Input
	// Timeout bounds the whole request. Zero uses the solver default.
	Timeout time.Duration
	// Metric, when set, replaces the squared norm to the goal during each descent. Its result is then refined against
	// the goal, which alone decides acceptance, so a metric may trade goal distance for other preferences.
	Metric StateMetric
	// AllowedLinks may touch the scene obstacle AllowedObstacle without the solution being rejected.
	AllowedLinks    []string
	AllowedObstacle string
}

// Solution is an accepted configuration along with its metric score and the descent that found it.
type Solution struct {
	Configuration []referenceframe.Input
	Score         float64
	Attempt       int
}

// Stats are running totals across every request a solver has served.
type Stats struct {
	Attempts           int64
	Solutions          int64
	CollisionRejection int64
}

// Solver solves inverse kinematics for a model against a read-only collision checker.
// It is safe for concurrent use; each request owns its own scratch state.
type Solver struct {
	model      referenceframe.Model
	checker    *collision.Checker
	opts       Options
	lowerBound []float64
	upperBound []float64
	logger     logging.Logger

	attempts   atomic.Int64
	solutions  atomic.Int64
	collisions atomic.Int64
}

// CreateSolver creates a solver for the model. A nil checker disables collision checking.
func CreateSolver(model referenceframe.Model, checker *collision.Checker, logger logging.Logger, opts Options) (*Solver, error) {
	if model == nil {
		return nil, errors.New("ik solver needs a model")
	}
	if len(model.DoF()) == 0 {
		return nil, errBadBounds
	}
	s := &Solver{
		model:   model,
		checker: checker,
		opts:    opts.withDefaults(),
		logger:  logger,
	}
	s.lowerBound, s.upperBound = limitsToArrays(model.DoF())
	return s, nil
}

// Model returns the model the solver operates on.
func (s *Solver) Model() referenceframe.Model {
	return s.model
}

// ObstacleIDs returns the ids of the scene obstacles solutions are checked against.
func (s *Solver) ObstacleIDs() []string {
	if s.checker == nil {
		return nil
	}
	return s.checker.Scene().IDs()
}

// Stats returns the solver's running totals.
func (s *Solver) Stats() Stats {
	return Stats{
		Attempts:           s.attempts.Load(),
		Solutions:          s.solutions.Load(),
		CollisionRejection: s.collisions.Load(),
	}
}

// Solve searches for a collision free configuration reaching the goal. It returns ErrNoSolution when the budget is
// exhausted, the context's error on cancellation, and any other error on malformed input.
func (s *Solver) Solve(ctx context.Context, req Request) (*Solution, error) {
	ctx, span := trace.StartSpan(ctx, "ik::Solve")
	defer span.End()

	if req.Goal == nil {
		return nil, errors.New("ik goal pose cannot be nil")
	}
	dof := len(s.lowerBound)
	seed := req.Seed
	if seed == nil {
		seed = make([]referenceframe.Input, dof)
	}
	if len(seed) != dof {
		return nil, referenceframe.NewIncorrectDoFError(len(seed), dof)
	}
	checker := s.checker
	if req.AllowedObstacle != "" {
		if checker == nil {
			return nil, errors.Errorf("cannot allow contact with %q without a scene", req.AllowedObstacle)
		}
		var err error
		if checker, err = checker.AllowAgainst(req.AllowedLinks, req.AllowedObstacle); err != nil {
			return nil, err
		}
	}
	goalMetric := NewSquaredNormMetric(req.Goal)
	metric := goalMetric
	if req.Metric != nil {
		metric = req.Metric
	}
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = s.opts.Timeout
	}
	deadline := time.Now().Add(timeout)

	//nolint:gosec
	randSeed := rand.New(rand.NewSource(s.opts.RandomSeed))
	start := seed
	for attempt := 0; attempt < s.opts.MaxRestarts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		remaining := time.Until(deadline)
		if remaining <= 0 {
			break
		}
		if attempt > 0 {
			start = referenceframe.RandomFrameInputs(s.model, randSeed)
		}
		s.attempts.Inc()
		solution, score, err := s.descend(start, metric, remaining)
		if err != nil {
			return nil, err
		}
		if req.Metric != nil && solution != nil {
			solution, score, err = s.descend(referenceframe.FloatsToInputs(solution), goalMetric, time.Until(deadline))
			if err != nil {
				return nil, err
			}
		}
		if solution == nil || score > s.opts.GoalThreshold {
			continue
		}
		inputs := referenceframe.FloatsToInputs(solution)
		if checker != nil {
			col, err := checker.InCollision(inputs)
			if err != nil {
				return nil, err
			}
			if col {
				s.collisions.Inc()
				continue
			}
		}
		s.solutions.Inc()
		if s.logger != nil {
			s.logger.CDebugw(ctx, "ik solved", "attempt", attempt, "score", score)
		}
		return &Solution{Configuration: inputs, Score: score, Attempt: attempt}, nil
	}
	return nil, ErrNoSolution
}

// descend runs one quasi-Newton descent from start. Joints are searched through a sine map onto their limits so the
// unconstrained optimizer can never leave them.
func (s *Solver) descend(start []referenceframe.Input, metric StateMetric, runtime time.Duration) ([]float64, float64, error) {
	var fault error
	state := &State{Frame: s.model}
	eval := func(y []float64) float64 {
		inputs := referenceframe.FloatsToInputs(s.fromUnbounded(y))
		pose, err := s.model.Transform(inputs)
		if pose == nil || (err != nil && !strings.Contains(err.Error(), referenceframe.OOBErrString)) {
			if fault == nil {
				fault = err
			}
			return math.Inf(1)
		}
		state.Position = pose
		state.Configuration = inputs
		return metric(state)
	}
	problem := optimize.Problem{
		Func: eval,
		Grad: func(grad, y []float64) {
			fd.Gradient(grad, eval, y, &fd.Settings{Formula: fd.Central, Step: gradientStep})
		},
	}
	settings := &optimize.Settings{
		GradientThreshold: 1e-12,
		MajorIterations:   s.opts.MaxIterations,
		Runtime:           runtime,
		Converger:         &optimize.FunctionConverge{Absolute: s.opts.GoalThreshold * 1e-3, Iterations: 20},
	}
	// A failed line search still leaves the best location found in result.
	result, _ := optimize.Minimize(problem, s.toUnbounded(start), settings, &optimize.BFGS{})
	if fault != nil {
		return nil, 0, errors.Wrap(fault, "cannot evaluate kinematics")
	}
	if result == nil || result.X == nil {
		return nil, math.Inf(1), nil
	}
	return s.fromUnbounded(result.X), result.F, nil
}

func (s *Solver) fromUnbounded(y []float64) []float64 {
	x := make([]float64, len(y))
	for i, v := range y {
		lo, hi := s.lowerBound[i], s.upperBound[i]
		if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			x[i] = v
			continue
		}
		mid, half := (hi+lo)/2, (hi-lo)/2
		x[i] = math.Max(lo, math.Min(hi, mid+half*math.Sin(v)))
	}
	return x
}

func (s *Solver) toUnbounded(inputs []referenceframe.Input) []float64 {
	y := make([]float64, len(inputs))
	for i, in := range inputs {
		lo, hi := s.lowerBound[i], s.upperBound[i]
		if math.IsInf(lo, 0) || math.IsInf(hi, 0) {
			y[i] = in.Value
			continue
		}
		mid, half := (hi+lo)/2, (hi-lo)/2
		if half == 0 {
			continue
		}
		y[i] = math.Asin(math.Max(-1, math.Min(1, (in.Value-mid)/half)))
	}
	return y
}

func limitsToArrays(limits []referenceframe.Limit) ([]float64, []float64) {
	var min, max []float64
	for _, limit := range limits {
		min = append(min, limit.Min)
		max = append(max, limit.Max)
	}
	return min, max
}
