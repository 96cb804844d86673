// Package main runs grasp planning trials against random cuboids and prints what the filter kept.
package main

import (
	"bytes"
	"context"
	_ "embed"
	"fmt"
	"io"
	"math"
	"math/rand"
	"os"
	"os/signal"
	"time"

	"github.com/fatih/color"
	"github.com/golang/geo/r3"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/pkg/errors"
	"github.com/urfave/cli/v2"
	goutils "go.viam.com/utils"

	"go.viam.com/grasping/collision"
	"go.viam.com/grasping/config"
	"go.viam.com/grasping/grasp"
	"go.viam.com/grasping/logging"
	"go.viam.com/grasping/motionplan/ik"
	"go.viam.com/grasping/referenceframe"
	"go.viam.com/grasping/spatialmath"
)

const (
	// Flags.
	flagConfig = "config"
	flagTrials = "trials"
	flagSeed   = "seed"
	flagWait   = "wait"
	flagDebug  = "debug"

	objectID = "object"
)

//go:embed default.yaml
var defaultConfig []byte

// Random objects are cuboids with sides in [cuboidMin, cuboidMax] centered in objectBounds.
var (
	objectBounds = [2]r3.Vector{{X: 0.27, Y: -0.21, Z: 0.49}, {X: 0.29, Y: -0.19, Z: 0.51}}
	cuboidMin    = 0.01
	cuboidMax    = 0.0125
)

func main() {
	app := &cli.App{
		Name:  "graspdemo",
		Usage: "generate and filter grasps for random cuboids",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Usage:   "load grasp planner configuration from `FILE`",
			},
			&cli.IntFlag{
				Name:  flagTrials,
				Value: 1,
				Usage: "number of random objects to plan for",
			},
			&cli.Int64Flag{
				Name:  flagSeed,
				Usage: "random seed, the current time when unset",
			},
			&cli.DurationFlag{
				Name:  flagWait,
				Value: 5 * time.Second,
				Usage: "pause between trials",
			},
			&cli.BoolFlag{
				Name:    flagDebug,
				Aliases: []string{"vvv"},
				Usage:   "enable debug logging",
			},
		},
		Action: runDemo,
	}
	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, color.RedString("graspdemo: %v", err))
		os.Exit(1)
	}
}

func runDemo(c *cli.Context) error {
	ctx, cancel := signal.NotifyContext(c.Context, os.Interrupt)
	defer cancel()

	logger := logging.NewLogger("grasp")
	config.InitLoggingSettings(logger, c.Bool(flagDebug))
	registry := logging.NewRegistry()
	registry.Register(logger)

	cfg, err := loadConfig(ctx, c.String(flagConfig), logger)
	if err != nil {
		return err
	}
	config.ApplyLogConfig(cfg, registry)

	d, err := newDemo(cfg, logger)
	if err != nil {
		return err
	}

	seed := c.Int64(flagSeed)
	if !c.IsSet(flagSeed) {
		seed = time.Now().UnixNano()
	}
	logger.Infow("starting trials", "trials", c.Int(flagTrials), "seed", seed)
	//nolint:gosec
	rseed := rand.New(rand.NewSource(seed))

	trials := c.Int(flagTrials)
	for i := 0; i < trials; i++ {
		obj := randomCuboid(rseed)
		logger.Infof("adding random object %d of %d", i+1, trials)
		result, err := d.runTrial(ctx, obj)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return err
		}
		printTrial(c.App.Writer, i+1, obj, result)
		if i+1 < trials {
			logger.Infof("finished trial, waiting %v to start the next", c.Duration(flagWait))
			if !goutils.SelectContextOrWait(ctx, c.Duration(flagWait)) {
				return nil
			}
		}
	}
	return nil
}

func loadConfig(ctx context.Context, path string, logger logging.Logger) (*config.Config, error) {
	if path != "" {
		return config.Read(ctx, path, logger)
	}
	return config.FromReader(ctx, "default.yaml", bytes.NewReader(defaultConfig), logger)
}

// demo holds everything shared by the trials.
type demo struct {
	cfg         *config.Config
	logger      logging.Logger
	generator   grasp.Generator
	constraints *grasp.ConstraintSet
	geometry    grasp.GraspGeometry
	group       referenceframe.JointGroup
	state       *referenceframe.RobotState
	obstacles   []spatialmath.Geometry
}

func newDemo(cfg *config.Config, logger logging.Logger) (*demo, error) {
	generator, err := cfg.NewGenerator(logger)
	if err != nil {
		return nil, err
	}
	constraints, err := cfg.Constraints.NewConstraintSet()
	if err != nil {
		return nil, err
	}
	model, err := cfg.Planning.LoadModel(cfg.ConfigFilePath)
	if err != nil {
		return nil, err
	}
	state, err := referenceframe.NewRobotState(model, make([]referenceframe.Input, len(model.DoF())))
	if err != nil {
		return nil, err
	}
	scene, err := cfg.NewScene()
	if err != nil {
		return nil, err
	}
	obstacles := make([]spatialmath.Geometry, 0, scene.Len())
	for _, id := range scene.IDs() {
		g, _ := scene.Geometry(id)
		obstacles = append(obstacles, g)
	}
	logger.Infow("grasp planner ready", "gripper", cfg.Gripper.Family, "model", model.Name(), "planning_group", cfg.Planning.PlanningGroup)
	return &demo{
		cfg:         cfg,
		logger:      logger,
		generator:   generator,
		constraints: constraints,
		geometry:    cfg.Gripper.ToGraspGeometry(),
		group:       cfg.Planning.JointGroup(),
		state:       state,
		obstacles:   obstacles,
	}, nil
}

// runTrial plans for one object. The object joins the configured scene as the grasp target.
func (d *demo) runTrial(ctx context.Context, obj grasp.Object) (*grasp.Result, error) {
	box, err := obj.Geometry()
	if err != nil {
		return nil, err
	}
	scene, err := collision.NewScene(append([]spatialmath.Geometry{box}, d.obstacles...)...)
	if err != nil {
		return nil, err
	}
	checker, err := collision.NewChecker(d.state.Model(), scene, nil)
	if err != nil {
		return nil, err
	}
	solver, err := ik.CreateSolver(d.state.Model(), checker, d.logger, d.cfg.Planning.IK.ToOptions())
	if err != nil {
		return nil, err
	}
	opts := d.cfg.Filter.ToFilterOptions()
	opts.TargetObjectID = obj.ID
	filter, err := grasp.NewFilter(grasp.NewSolverOracle(solver), d.logger, opts)
	if err != nil {
		return nil, err
	}
	pipeline := &grasp.Pipeline{
		Generator:   d.generator,
		Filter:      filter,
		Constraints: d.constraints,
		Sink:        grasp.NewLoggingSink(d.logger),
		Logger:      d.logger,
	}

	var result *grasp.Result
	done := make(chan struct{})
	goutils.PanicCapturingGo(func() {
		defer close(done)
		result, err = pipeline.Run(ctx, obj, d.geometry, d.group, d.state, d.cfg.Filter.FilterPregrasp)
	})
	<-done
	if result == nil && err == nil {
		return nil, errors.New("grasp pipeline panicked")
	}
	return result, err
}

func randomCuboid(rseed *rand.Rand) grasp.Object {
	between := func(lo, hi float64) float64 { return lo + rseed.Float64()*(hi-lo) }
	center := r3.Vector{
		X: between(objectBounds[0].X, objectBounds[1].X),
		Y: between(objectBounds[0].Y, objectBounds[1].Y),
		Z: between(objectBounds[0].Z, objectBounds[1].Z),
	}
	orientation := &spatialmath.EulerAngles{
		Roll:  between(-math.Pi, math.Pi),
		Pitch: between(-math.Pi, math.Pi),
		Yaw:   between(-math.Pi, math.Pi),
	}
	return grasp.Object{
		ID:   objectID,
		Pose: spatialmath.NewPose(center, orientation),
		Extents: r3.Vector{
			X: between(cuboidMin, cuboidMax),
			Y: between(cuboidMin, cuboidMax),
			Z: between(cuboidMin, cuboidMax),
		},
	}
}

func printTrial(w io.Writer, trial int, obj grasp.Object, result *grasp.Result) {
	report := result.Report
	verdict := color.GreenString("%d valid grasps", report.Valid)
	if report.Valid == 0 {
		verdict = color.RedString("no valid grasps found after filtering")
	}
	pt := obj.Pose.Point()
	fmt.Fprintf(w, "trial %d: cuboid %.4f x %.4f x %.4f at (%.3f, %.3f, %.3f): %s\n",
		trial, obj.Extents.X, obj.Extents.Y, obj.Extents.Z, pt.X, pt.Y, pt.Z, verdict)

	reasons := table.NewWriter()
	reasons.AppendHeader(table.Row{"Outcome", "Candidates"})
	for _, reason := range []grasp.RejectionReason{
		grasp.Valid, grasp.ConstraintViolation, grasp.NoIKGrasp, grasp.NoIKPregrasp, grasp.Timeout, grasp.Unset,
	} {
		reasons.AppendRow(table.Row{reason.String(), report.Count(reason)})
	}
	reasons.AppendFooter(table.Row{"total", report.Total})
	fmt.Fprintln(w, reasons.Render())

	if len(result.Valid) == 0 {
		return
	}
	valid := table.NewWriter()
	valid.AppendHeader(table.Row{"#", "Face", "Score", "Depth", "Opening", "Approach"})
	for _, c := range result.Valid {
		valid.AppendRow(table.Row{
			c.Index,
			c.Face,
			fmt.Sprintf("%.3f", c.Score),
			fmt.Sprintf("%.4f", c.Depth),
			fmt.Sprintf("%.4f", c.Opening),
			fmt.Sprintf("X:%.2f, Y:%.2f, Z:%.2f", c.Approach.X, c.Approach.Y, c.Approach.Z),
		})
	}
	fmt.Fprintln(w, valid.Render())
	fmt.Fprintf(w, "filtered in %v with %d workers, %d oracle calls\n", report.Duration, report.Workers, report.OracleCalls)
}
