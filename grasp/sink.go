package grasp

import (
	"go.viam.com/grasping/logging"
)

// Sink observes a pipeline for diagnostics. Implementations must not modify what they are shown.
type Sink interface {
	ShowObject(obj Object)
	ShowCandidates(candidates []*Candidate)
	ShowCuttingPlanes(planes []CuttingPlane)
}

// NoopSink ignores everything.
type NoopSink struct{}

// ShowObject does nothing.
func (NoopSink) ShowObject(Object) {}

// ShowCandidates does nothing.
func (NoopSink) ShowCandidates([]*Candidate) {}

// ShowCuttingPlanes does nothing.
func (NoopSink) ShowCuttingPlanes([]CuttingPlane) {}

// LoggingSink writes what it is shown to a logger at debug level.
type LoggingSink struct {
	logger logging.Logger
}

// NewLoggingSink returns a sink logging on a "sink" sublogger.
func NewLoggingSink(logger logging.Logger) *LoggingSink {
	return &LoggingSink{logger: logger.Sublogger("sink")}
}

// ShowObject logs the object's pose and extents.
func (s *LoggingSink) ShowObject(obj Object) {
	s.logger.Debugw("object", "id", obj.ID, "pose", obj.Pose.String(), "extents", obj.Extents)
}

// ShowCandidates logs each candidate's pose and outcome.
func (s *LoggingSink) ShowCandidates(candidates []*Candidate) {
	for _, c := range candidates {
		s.logger.Debugw("candidate",
			"index", c.Index,
			"face", c.Face,
			"score", c.Score,
			"pose", c.Pose.String(),
			"outcome", c.Feasibility.Reason.String(),
		)
	}
}

// ShowCuttingPlanes logs each plane.
func (s *LoggingSink) ShowCuttingPlanes(planes []CuttingPlane) {
	for _, p := range planes {
		s.logger.Debugw("cutting plane", "plane", p.Plane.String(), "direction", p.Direction, "pose", p.Pose.String())
	}
}
