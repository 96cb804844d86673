package grasp

import (
	"time"

	"github.com/google/uuid"
	"github.com/montanaflynn/stats"
	"github.com/samber/lo"

	"go.viam.com/grasping/logging"
)

// ScoreSummary describes a set of candidate scores.
type ScoreSummary struct {
	Count  int
	Min    float64
	Max    float64
	Mean   float64
	Median float64
	StdDev float64
}

func summarizeScores(scores []float64) ScoreSummary {
	if len(scores) == 0 {
		return ScoreSummary{}
	}
	data := stats.Float64Data(scores)
	summary := ScoreSummary{Count: len(scores)}
	// errors are only returned for empty input
	summary.Min, _ = data.Min()
	summary.Max, _ = data.Max()
	summary.Mean, _ = data.Mean()
	summary.Median, _ = data.Median()
	summary.StdDev, _ = data.StandardDeviation()
	return summary
}

// FilterReport summarizes one filtering pass.
type FilterReport struct {
	PassID      uuid.UUID
	Total       int
	Valid       int
	Unset       int
	Reasons     map[RejectionReason]int
	Constraints map[ConstraintKind]int
	OracleCalls int64
	Workers     int
	Duration    time.Duration
	ValidScores ScoreSummary
}

func newFilterReport(passID uuid.UUID, candidates []*Candidate, workers int, calls int64, duration time.Duration) *FilterReport {
	reasons := lo.CountValuesBy(candidates, func(c *Candidate) RejectionReason { return c.Feasibility.Reason })
	violations := lo.Filter(candidates, func(c *Candidate, _ int) bool { return c.Feasibility.Reason == ConstraintViolation })
	return &FilterReport{
		PassID:      passID,
		Total:       len(candidates),
		Valid:       reasons[Valid],
		Unset:       reasons[Unset],
		Reasons:     reasons,
		Constraints: lo.CountValuesBy(violations, func(c *Candidate) ConstraintKind { return c.Feasibility.Constraint }),
		OracleCalls: calls,
		Workers:     workers,
		Duration:    duration,
		ValidScores: summarizeScores(lo.FilterMap(candidates, func(c *Candidate, _ int) (float64, bool) {
			return c.Score, c.IsValid()
		})),
	}
}

// Count returns how many candidates ended with the reason.
func (r *FilterReport) Count(reason RejectionReason) int {
	return r.Reasons[reason]
}

// Log writes the report to the logger at info level.
func (r *FilterReport) Log(logger logging.Logger) {
	logger.Infow("grasp filter results",
		"pass", r.PassID.String(),
		"total", r.Total,
		"valid", r.Valid,
		"duration", r.Duration.String(),
		"workers", r.Workers,
		"oracle_calls", r.OracleCalls,
	)
	logger.Infow("grasp filter rejections",
		"cutting_plane", r.Constraints[CuttingPlaneConstraint],
		"orientation", r.Constraints[OrientationConstraintKind],
		"no_ik_grasp", r.Reasons[NoIKGrasp],
		"no_ik_pregrasp", r.Reasons[NoIKPregrasp],
		"timeout", r.Reasons[Timeout],
		"unset", r.Unset,
	)
	if r.ValidScores.Count > 0 {
		logger.Infow("valid grasp scores",
			"min", r.ValidScores.Min,
			"max", r.ValidScores.Max,
			"mean", r.ValidScores.Mean,
			"median", r.ValidScores.Median,
			"stddev", r.ValidScores.StdDev,
		)
	}
}
