// Package geo derives the processing extent and pixel grid of a request from
// its input geometry.
package geo

import (
	"errors"
	"fmt"

	"github.com/aydiaziz/ndvi-webapp/pkg/geojson"
	"github.com/paulmach/orb"
)

// DegenerateEpsilon is the half-width, in degrees, added to each side of an
// axis whose minimum equals its maximum.
const DegenerateEpsilon = 0.0005

// ErrInvalidGeometry is returned when the input geometry is missing, empty or
// malformed. It is a client error.
var ErrInvalidGeometry = errors.New("invalid geometry")

// BoundingBox is a lon/lat extent in EPSG:4326 with a strictly positive
// width and height.
type BoundingBox struct {
	orb.Bound
}

// NewBoundingBox builds a bounding box from its corner values, expanding
// degenerate axes by DegenerateEpsilon.
func NewBoundingBox(minLon, minLat, maxLon, maxLat float64) BoundingBox {
	b := orb.Bound{
		Min: orb.Point{minLon, minLat},
		Max: orb.Point{maxLon, maxLat},
	}
	return BoundingBox{Bound: expandDegenerate(b)}
}

// BoundsFromGeometry returns the bounding box of every position in the
// geometry, whatever its nesting.
func BoundsFromGeometry(g *geojson.Geometry) (BoundingBox, error) {
	if g == nil {
		return BoundingBox{}, fmt.Errorf("%w: geometry is required", ErrInvalidGeometry)
	}

	bbox, err := g.BBox()
	if err != nil {
		return BoundingBox{}, fmt.Errorf("%w: %v", ErrInvalidGeometry, err)
	}

	return NewBoundingBox(bbox[0], bbox[1], bbox[2], bbox[3]), nil
}

func expandDegenerate(b orb.Bound) orb.Bound {
	if b.Min.X() == b.Max.X() {
		b.Min[0] -= DegenerateEpsilon
		b.Max[0] += DegenerateEpsilon
	}
	if b.Min.Y() == b.Max.Y() {
		b.Min[1] -= DegenerateEpsilon
		b.Max[1] += DegenerateEpsilon
	}
	return b
}

// West returns the minimum longitude.
func (b BoundingBox) West() float64 { return b.Min.X() }

// South returns the minimum latitude.
func (b BoundingBox) South() float64 { return b.Min.Y() }

// East returns the maximum longitude.
func (b BoundingBox) East() float64 { return b.Max.X() }

// North returns the maximum latitude.
func (b BoundingBox) North() float64 { return b.Max.Y() }

// BBox returns the box in GeoJSON order [west, south, east, north].
func (b BoundingBox) BBox() [4]float64 {
	return [4]float64{b.West(), b.South(), b.East(), b.North()}
}

// Extent returns the box as [south, west, north, east], the order used by
// map overlay clients.
func (b BoundingBox) Extent() [4]float64 {
	return [4]float64{b.South(), b.West(), b.North(), b.East()}
}

// GeoTransform returns the north-up affine transform mapping the grid onto
// the box, in GDAL coefficient order.
func (b BoundingBox) GeoTransform(grid Grid) [6]float64 {
	return [6]float64{
		b.West(),
		(b.East() - b.West()) / float64(grid.Width),
		0,
		b.North(),
		0,
		-(b.North() - b.South()) / float64(grid.Height),
	}
}
