package collision

import (
	"sort"

	"github.com/pkg/errors"

	"go.viam.com/grasping/referenceframe"
	"go.viam.com/grasping/spatialmath"
)

// CollisionBuffer is the distance, in meters, under which two geometries are considered touching.
const CollisionBuffer = 1e-6

// Collision is a pair of strings corresponding to names of Geometry objects in collision.
type Collision struct {
	Name1, Name2 string
}

type pairKey struct {
	a, b string
}

func newPairKey(name1, name2 string) pairKey {
	if name1 > name2 {
		name1, name2 = name2, name1
	}
	return pairKey{name1, name2}
}

// Checker tests configurations of a model for collisions between its own links and against a scene.
// Link pairs already touching in the reference configuration are ignored, as are pairs explicitly allowed.
// A Checker is immutable and safe for concurrent use.
type Checker struct {
	model   referenceframe.Model
	scene   *Scene
	allowed map[pairKey]bool
}

// NewChecker creates a checker for the model against the scene. Pairs of links colliding at the reference
// inputs are recorded as allowed. A nil reference uses the all zero configuration.
func NewChecker(model referenceframe.Model, scene *Scene, reference []referenceframe.Input) (*Checker, error) {
	if model == nil {
		return nil, errors.New("collision checker needs a model")
	}
	if reference == nil {
		reference = make([]referenceframe.Input, len(model.DoF()))
	}
	c := &Checker{model: model, scene: scene, allowed: map[pairKey]bool{}}
	geometries, err := model.Geometries(reference)
	if geometries == nil {
		return nil, errors.Wrap(err, "cannot compute reference geometries")
	}
	names := sortedNames(geometries)
	for i := range names {
		for j := i + 1; j < len(names); j++ {
			col, _, err := geometries[names[i]].CollidesWith(geometries[names[j]], CollisionBuffer)
			if err != nil {
				return nil, err
			}
			if col {
				c.allowed[newPairKey(names[i], names[j])] = true
			}
		}
	}
	return c, nil
}

// Scene returns the scene the checker tests against.
func (c *Checker) Scene() *Scene {
	return c.scene
}

// AllowAgainst returns a copy of the checker that ignores contact between the named links and the scene
// obstacle with the given id.
func (c *Checker) AllowAgainst(links []string, obstacleID string) (*Checker, error) {
	if _, ok := c.scene.Geometry(obstacleID); !ok {
		return nil, errors.Errorf("no scene obstacle with id %q", obstacleID)
	}
	allowed := make(map[pairKey]bool, len(c.allowed)+len(links))
	for k, v := range c.allowed {
		allowed[k] = v
	}
	for _, link := range links {
		allowed[newPairKey(link, obstacleID)] = true
	}
	return &Checker{model: c.model, scene: c.scene, allowed: allowed}, nil
}

// Collisions returns the collisions at the given inputs. Unless reportAll is set, it stops at the first
// collision found. Link pairs are visited in name order so results are reproducible.
func (c *Checker) Collisions(inputs []referenceframe.Input, reportAll bool) ([]Collision, error) {
	geometries, err := c.model.Geometries(inputs)
	if geometries == nil {
		return nil, err
	}
	names := sortedNames(geometries)
	var collisions []Collision
	check := func(name1, name2 string, g1, g2 spatialmath.Geometry) (bool, error) {
		if c.allowed[newPairKey(name1, name2)] {
			return false, nil
		}
		col, _, err := g1.CollidesWith(g2, CollisionBuffer)
		if err != nil {
			return false, err
		}
		if col {
			collisions = append(collisions, Collision{name1, name2})
		}
		return col && !reportAll, nil
	}

	for i, name := range names {
		for j := i + 1; j < len(names); j++ {
			stop, err := check(name, names[j], geometries[name], geometries[names[j]])
			if err != nil || stop {
				return collisions, err
			}
		}
		for _, id := range c.scene.IDs() {
			obstacle, _ := c.scene.Geometry(id)
			stop, err := check(name, id, geometries[name], obstacle)
			if err != nil || stop {
				return collisions, err
			}
		}
	}
	return collisions, nil
}

// InCollision reports whether the model collides with itself or the scene at the given inputs.
func (c *Checker) InCollision(inputs []referenceframe.Input) (bool, error) {
	collisions, err := c.Collisions(inputs, false)
	return len(collisions) > 0, err
}

func sortedNames(geometries map[string]spatialmath.Geometry) []string {
	names := make([]string, 0, len(geometries))
	for name := range geometries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
