package grasp

import (
	"context"
	"runtime"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	"go.opencensus.io/trace"
	"go.uber.org/atomic"
	"golang.org/x/sync/errgroup"

	"go.viam.com/grasping/logging"
	"go.viam.com/grasping/motionplan/ik"
	"go.viam.com/grasping/referenceframe"
	"go.viam.com/grasping/spatialmath"
)

// FilterOptions configure a Filter.
type FilterOptions struct {
	// Workers bounds the number of candidates solved at once. Zero uses GOMAXPROCS.
	Workers int
	// BatchTimeout bounds a whole pass. Candidates not started in time are rejected with Timeout. Zero is unbounded.
	BatchTimeout time.Duration
	// StatisticsVerbose logs a summary of every pass.
	StatisticsVerbose bool
	// Verbose logs every candidate's outcome, enables debug logging of the oracle and forces a single worker.
	Verbose bool
	// VerboseIfFailed filters again with Verbose set when a pass leaves no valid candidate.
	VerboseIfFailed bool
	// TargetObjectID names the scene obstacle being grasped. The end effector links may touch it.
	TargetObjectID string
	// Clock measures the batch deadline and pass duration. Nil uses the wall clock.
	Clock clock.Clock
}

// pregraspSeedWeight biases pregrasp solutions towards the grasp configuration they start from.
const pregraspSeedWeight = 0.01

// Filter rejects grasp candidates that violate constraints or that the arm cannot reach.
type Filter struct {
	oracle      KinematicOracle
	opts        FilterOptions
	clock       clock.Clock
	logger      logging.Logger
	planeLogger logging.Logger
	statsLogger logging.Logger
}

// NewFilter returns a filter solving through the oracle.
func NewFilter(oracle KinematicOracle, logger logging.Logger, opts FilterOptions) (*Filter, error) {
	if oracle == nil {
		return nil, ErrNilOracle
	}
	if opts.Workers < 0 {
		return nil, errors.Errorf("filter workers must be non-negative, got %d", opts.Workers)
	}
	if opts.BatchTimeout < 0 {
		return nil, errors.Errorf("filter batch timeout must be non-negative, got %v", opts.BatchTimeout)
	}
	clk := opts.Clock
	if clk == nil {
		clk = clock.New()
	}
	filterLogger := logger.Sublogger("filter")
	return &Filter{
		oracle:      oracle,
		opts:        opts,
		clock:       clk,
		logger:      filterLogger,
		planeLogger: filterLogger.Sublogger("plane"),
		statsLogger: filterLogger.Sublogger("statistics"),
	}, nil
}

// filterPass is the read-only state shared by every worker of one pass.
type filterPass struct {
	constraints    *ConstraintSet
	group          referenceframe.JointGroup
	seed           []referenceframe.Input
	allowed        string
	filterPregrasp bool
	deadline       time.Time
	calls          atomic.Int64
}

// Filter records a feasibility outcome on every unprocessed candidate and returns how many candidates are valid.
// Candidates are solved concurrently, each worker on its own copy of state, and every outcome is written to the
// candidate's own slot, so results do not depend on scheduling. Pregrasp poses are only solved when
// filterPregrasp is set.
//
// No solution is an outcome, not an error. If ctx is cancelled, candidates not yet finished stay unset and the
// context's error is returned with the count so far. An oracle fault aborts the pass with an *OracleFaultError.
func (f *Filter) Filter(
	ctx context.Context,
	candidates []*Candidate,
	cs *ConstraintSet,
	group referenceframe.JointGroup,
	state *referenceframe.RobotState,
	filterPregrasp bool,
) (int, error) {
	report, err := f.FilterWithReport(ctx, candidates, cs, group, state, filterPregrasp)
	if report == nil {
		return 0, err
	}
	return report.Valid, err
}

// FilterWithReport is Filter returning the pass statistics.
func (f *Filter) FilterWithReport(
	ctx context.Context,
	candidates []*Candidate,
	cs *ConstraintSet,
	group referenceframe.JointGroup,
	state *referenceframe.RobotState,
	filterPregrasp bool,
) (*FilterReport, error) {
	ctx, span := trace.StartSpan(ctx, "grasp::Filter")
	defer span.End()
	if f.opts.Verbose {
		ctx = logging.EnableDebugMode(ctx, "")
	}

	if state == nil {
		return nil, errors.New("robot state cannot be nil")
	}
	if err := group.Validate(state.Model()); err != nil {
		return nil, err
	}
	if lo.Contains(candidates, nil) {
		return nil, errors.New("grasp candidates cannot be nil")
	}
	allowed, err := f.allowedObstacle(group)
	if err != nil {
		return nil, err
	}

	start := f.clock.Now()
	passID := uuid.New()
	if len(candidates) == 0 {
		f.logger.Warnw("no grasp candidates to filter", "pass", passID.String())
		return newFilterReport(passID, candidates, 0, 0, 0), nil
	}

	pass := &filterPass{
		constraints:    cs.snapshot(),
		group:          group,
		seed:           state.Positions(),
		allowed:        allowed,
		filterPregrasp: filterPregrasp,
	}
	if f.opts.BatchTimeout > 0 {
		pass.deadline = start.Add(f.opts.BatchTimeout)
	}
	workers := f.workerCount(len(candidates))
	scratch := make(chan *referenceframe.RobotState, workers)
	for i := 0; i < workers; i++ {
		scratch <- state.Clone()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	var pending []*Candidate
	for i, c := range candidates {
		if c.Processed() {
			continue
		}
		if gctx.Err() != nil {
			break
		}
		pending = append(pending, c)
		i, c := i, c
		g.Go(func() error {
			s := <-scratch
			defer func() { scratch <- s }()
			return f.processCandidate(gctx, pass, i, c, s)
		})
	}
	if err := g.Wait(); err != nil {
		f.logger.Errorw("grasp filtering aborted", "pass", passID.String(), "error", err)
		return nil, err
	}

	report := newFilterReport(passID, candidates, workers, pass.calls.Load(), f.clock.Since(start))
	if f.opts.StatisticsVerbose {
		report.Log(f.statsLogger)
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}
	if report.Valid == 0 && len(pending) > 0 && f.opts.VerboseIfFailed && !f.opts.Verbose {
		f.logger.Infow("no valid grasps, filtering again verbosely", "pass", passID.String(), "candidates", len(pending))
		for _, c := range pending {
			c.Feasibility = Feasibility{}
		}
		verbose := *f
		verbose.opts.Verbose = true
		verbose.opts.VerboseIfFailed = false
		return verbose.FilterWithReport(ctx, candidates, cs, group, state, filterPregrasp)
	}
	return report, nil
}

// processCandidate decides one candidate. The candidate's feasibility is written once, at the end, so an
// interrupted candidate stays unset.
func (f *Filter) processCandidate(
	ctx context.Context,
	pass *filterPass,
	index int,
	c *Candidate,
	scratch *referenceframe.RobotState,
) error {
	if ctx.Err() != nil {
		return nil
	}
	ctx, span := trace.StartSpan(ctx, "grasp::Filter::processCandidate")
	defer span.End()

	if !pass.deadline.IsZero() && !f.clock.Now().Before(pass.deadline) {
		c.Feasibility = Feasibility{Reason: Timeout}
		return nil
	}
	if kind, which, violated := pass.constraints.check(c); violated {
		if kind == CuttingPlaneConstraint {
			f.planeLogger.Debugw("grasp filtered by cutting plane", "candidate", index, "plane", which)
		} else {
			f.logger.Debugw("grasp filtered by orientation", "candidate", index, "constraint", which)
		}
		c.Feasibility = Feasibility{Reason: ConstraintViolation, Constraint: kind}
		return nil
	}

	req := IKRequest{
		Target:          c.ParentPose,
		Group:           pass.group,
		Seed:            pass.seed,
		Timeout:         pass.group.IKTimeout,
		AllowedObstacle: pass.allowed,
	}
	graspIK, found, err := f.solve(ctx, pass, req, index, PhaseGrasp)
	if err != nil {
		return ignoreCancel(ctx, err)
	}
	if !found {
		if f.opts.Verbose {
			f.logger.CDebugw(ctx, "grasp filtered by ik", "candidate", index, "face", c.Face)
		}
		c.Feasibility = Feasibility{Reason: NoIKGrasp}
		return nil
	}
	if f.opts.Verbose {
		f.logReached(ctx, scratch, graspIK, pass.seed, c.ParentPose, index)
	}

	feasibility := Feasibility{Reason: Valid, GraspIK: graspIK}
	if pass.filterPregrasp {
		req.Target = c.PregraspParentPose
		req.Seed = graspIK
		req.Metric = ik.CombineMetrics(
			ik.NewSquaredNormMetric(req.Target),
			ik.NewSeedProximityMetric(graspIK, pregraspSeedWeight),
		)
		pregraspIK, found, err := f.solve(ctx, pass, req, index, PhasePregrasp)
		if err != nil {
			return ignoreCancel(ctx, err)
		}
		if !found {
			if f.opts.Verbose {
				f.logger.CDebugw(ctx, "pregrasp filtered by ik", "candidate", index, "face", c.Face)
			}
			feasibility.Reason = NoIKPregrasp
		}
		feasibility.PregraspIK = pregraspIK
	}
	c.Feasibility = feasibility
	return nil
}

// solve calls the oracle, separating no solution from faults.
func (f *Filter) solve(
	ctx context.Context,
	pass *filterPass,
	req IKRequest,
	index int,
	phase Phase,
) ([]referenceframe.Input, bool, error) {
	pass.calls.Inc()
	solution, err := f.oracle.SolveIK(ctx, req)
	switch {
	case err == nil:
		if len(solution) != len(pass.seed) {
			return nil, false, &OracleFaultError{
				Index: index,
				Phase: phase,
				Err:   referenceframe.NewIncorrectDoFError(len(solution), len(pass.seed)),
			}
		}
		return solution, true, nil
	case errors.Is(err, ik.ErrNoSolution):
		return nil, false, nil
	case ctx.Err() != nil:
		return nil, false, ctx.Err()
	default:
		return nil, false, &OracleFaultError{Index: index, Phase: phase, Err: err}
	}
}

// ignoreCancel drops errors caused by the pass being cancelled, leaving the candidate unset.
func ignoreCancel(ctx context.Context, err error) error {
	if ctx.Err() != nil && errors.Is(err, ctx.Err()) {
		return nil
	}
	return err
}

// logReached checks a solution on the worker's scratch state and puts the state back.
func (f *Filter) logReached(
	ctx context.Context,
	scratch *referenceframe.RobotState,
	solution, seed []referenceframe.Input,
	target spatialmath.Pose,
	index int,
) {
	if err := scratch.SetPositions(solution); err != nil {
		f.logger.Warnw("cannot apply grasp solution", "candidate", index, "error", err)
		return
	}
	defer func() {
		if err := scratch.SetPositions(seed); err != nil {
			f.logger.Warnw("cannot restore scratch state", "error", err)
		}
	}()
	pose, err := scratch.EndEffectorPose()
	if err != nil {
		f.logger.Warnw("cannot compute end effector pose", "candidate", index, "error", err)
		return
	}
	f.logger.CDebugw(ctx, "grasp solved",
		"candidate", index,
		"end_effector", pose.String(),
		"position_error", pose.Point().Distance(target.Point()),
		"orientation_error_deg", ik.OrientDist(pose.Orientation(), target.Orientation()),
	)
}

func (f *Filter) allowedObstacle(group referenceframe.JointGroup) (string, error) {
	id := f.opts.TargetObjectID
	if id == "" {
		return "", nil
	}
	if len(group.EndEffectorLinks) == 0 {
		return "", errors.Errorf("target object %q needs end effector links on group %q", id, group.Name)
	}
	if lister, ok := f.oracle.(ObstacleLister); ok && !lo.Contains(lister.ObstacleIDs(), id) {
		return "", errors.Errorf("target object %q is not in the planning scene", id)
	}
	return id, nil
}

func (f *Filter) workerCount(n int) int {
	if f.opts.Verbose {
		return 1
	}
	workers := f.opts.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return min(workers, n)
}
