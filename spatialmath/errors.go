package spatialmath

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidGeometry is returned when a geometry is constructed with invalid dimensions.
var ErrInvalidGeometry = errors.New("invalid geometry")

func newBadGeometryDimensionsError(g Geometry) error {
	return errors.Wrapf(ErrInvalidGeometry, "dimensions of %T must be non-negative and finite", g)
}

func newCollisionTypeUnsupportedError(g1, g2 Geometry) error {
	return fmt.Errorf("collisions between %T and %T are not supported", g1, g2)
}

func newGeometryTypeUnsupportedError(geomType string) error {
	return errors.Errorf("%q is not a supported geometry type", geomType)
}

func newRotationMatrixInputError(m []float64) error {
	return errors.Errorf("input slice has %d elements, need exactly 9", len(m))
}
