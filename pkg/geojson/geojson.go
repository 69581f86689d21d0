// Package geojson provides GeoJSON geometry types and utilities.
package geojson

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrNoPositions is returned when a coordinate structure holds no positions.
	ErrNoPositions = errors.New("no coordinate positions found")

	// ErrMalformedCoordinates is returned when a coordinate structure is not an
	// array of arrays terminating in numeric positions.
	ErrMalformedCoordinates = errors.New("malformed coordinates")
)

// Geometry represents a GeoJSON geometry object.
type Geometry struct {
	Type        string          `json:"type"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// Position is a single [lon, lat] pair. Extra ordinates are dropped.
type Position [2]float64

// Parse decodes a geometry object. A Feature is accepted and its geometry
// member is returned instead.
func Parse(data []byte) (*Geometry, error) {
	var probe struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
		Geometry    json.RawMessage `json:"geometry"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to unmarshal geometry: %w", err)
	}

	if probe.Type == "Feature" {
		if len(probe.Geometry) == 0 || string(probe.Geometry) == "null" {
			return nil, fmt.Errorf("feature has no geometry")
		}
		return Parse(probe.Geometry)
	}

	return &Geometry{
		Type:        probe.Type,
		Coordinates: probe.Coordinates,
	}, nil
}

// Positions returns every position of the geometry regardless of its type.
func (g *Geometry) Positions() ([]Position, error) {
	if g == nil {
		return nil, fmt.Errorf("geometry is nil")
	}
	return Positions(g.Coordinates)
}

// BBox computes the bounding box of the geometry.
// Returns [west, south, east, north].
func (g *Geometry) BBox() ([]float64, error) {
	return ComputeBBox(g)
}

// Positions flattens an arbitrarily nested coordinate array into its
// positions. The traversal uses an explicit stack so malformed or very deep
// input cannot exhaust the goroutine stack.
//
// A leaf is an array whose first element is a number; it must hold at least
// two finite numbers. Empty arrays are skipped.
func Positions(raw json.RawMessage) ([]Position, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, ErrNoPositions
	}

	var root any
	if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCoordinates, err)
	}

	var positions []Position
	stack := []any{root}
	for len(stack) > 0 {
		node := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		arr, ok := node.([]any)
		if !ok {
			return nil, fmt.Errorf("%w: expected array, got %T", ErrMalformedCoordinates, node)
		}
		if len(arr) == 0 {
			continue
		}

		if _, isNumber := arr[0].(float64); isNumber {
			pos, err := toPosition(arr)
			if err != nil {
				return nil, err
			}
			positions = append(positions, pos)
			continue
		}

		// Push in reverse so positions come out in document order.
		for i := len(arr) - 1; i >= 0; i-- {
			stack = append(stack, arr[i])
		}
	}

	if len(positions) == 0 {
		return nil, ErrNoPositions
	}
	return positions, nil
}

func toPosition(arr []any) (Position, error) {
	if len(arr) < 2 {
		return Position{}, fmt.Errorf("%w: position needs at least 2 values, got %d", ErrMalformedCoordinates, len(arr))
	}

	var pos Position
	for i := 0; i < 2; i++ {
		v, ok := arr[i].(float64)
		if !ok {
			return Position{}, fmt.Errorf("%w: non-numeric ordinate %v", ErrMalformedCoordinates, arr[i])
		}
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Position{}, fmt.Errorf("%w: non-finite ordinate", ErrMalformedCoordinates)
		}
		pos[i] = v
	}
	return pos, nil
}

// ComputeBBox computes the bounding box of a geometry of any type.
// Returns [west, south, east, north].
func ComputeBBox(g *Geometry) ([]float64, error) {
	positions, err := g.Positions()
	if err != nil {
		return nil, fmt.Errorf("failed to compute bounding box: %w", err)
	}

	minLon, minLat := math.Inf(1), math.Inf(1)
	maxLon, maxLat := math.Inf(-1), math.Inf(-1)
	for _, p := range positions {
		minLon = math.Min(minLon, p[0])
		maxLon = math.Max(maxLon, p[0])
		minLat = math.Min(minLat, p[1])
		maxLat = math.Max(maxLat, p[1])
	}

	return []float64{minLon, minLat, maxLon, maxLat}, nil
}

// NewPolygonFromBBox creates a polygon geometry from a bounding box.
// bbox should be [west, south, east, north].
func NewPolygonFromBBox(bbox []float64) (*Geometry, error) {
	if len(bbox) != 4 {
		return nil, fmt.Errorf("bbox must have 4 values [west, south, east, north], got %d", len(bbox))
	}

	west, south, east, north := bbox[0], bbox[1], bbox[2], bbox[3]

	coords := [][][]float64{
		{
			{west, south},
			{east, south},
			{east, north},
			{west, north},
			{west, south}, // Close the ring
		},
	}

	coordsJSON, err := json.Marshal(coords)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal polygon coordinates: %w", err)
	}

	return &Geometry{
		Type:        "Polygon",
		Coordinates: coordsJSON,
	}, nil
}
