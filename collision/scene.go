// Package collision checks a kinematic model's link geometries against each other and against the
// obstacles of a planning scene.
package collision

import (
	"sort"

	"github.com/pkg/errors"

	"go.viam.com/grasping/spatialmath"
)

// Scene is a read-only snapshot of the obstacles in the world, keyed by geometry label. A scene is
// never mutated once built, so it may be shared by any number of concurrent checks.
type Scene struct {
	obstacles map[string]spatialmath.Geometry
	ids       []string
}

// NewScene builds a scene from labeled geometries expressed in the world frame.
func NewScene(geometries ...spatialmath.Geometry) (*Scene, error) {
	s := &Scene{obstacles: make(map[string]spatialmath.Geometry, len(geometries))}
	for _, g := range geometries {
		if g == nil {
			return nil, errors.New("scene geometry cannot be nil")
		}
		id := g.Label()
		if id == "" {
			return nil, errors.Errorf("scene geometry %s needs a label", g.String())
		}
		if _, ok := s.obstacles[id]; ok {
			return nil, errors.Errorf("found scene geometry with duplicate label: %s", id)
		}
		s.obstacles[id] = g
		s.ids = append(s.ids, id)
	}
	sort.Strings(s.ids)
	return s, nil
}

// IDs returns the sorted labels of every obstacle in the scene.
func (s *Scene) IDs() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.ids...)
}

// Geometry returns the obstacle with the given label.
func (s *Scene) Geometry(id string) (spatialmath.Geometry, bool) {
	if s == nil {
		return nil, false
	}
	g, ok := s.obstacles[id]
	return g, ok
}

// Len returns the number of obstacles in the scene.
func (s *Scene) Len() int {
	if s == nil {
		return 0
	}
	return len(s.ids)
}
