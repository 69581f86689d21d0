// Package raster holds the in-memory band representation shared by the
// acquisition, index and output stages, and the GDAL plumbing to move bands
// in and out of GeoTIFF.
package raster

import (
	"fmt"
	"math"
)

// EPSGWGS84 is the geographic CRS every band in this service uses.
const EPSGWGS84 = 4326

// Band is a single-channel floating point raster stored row-major.
//
// Invalid pixels hold NaN and have Valid[i] == false. A nil Valid slice means
// every pixel is valid.
type Band struct {
	Width        int
	Height       int
	Data         []float64
	Valid        []bool
	GeoTransform [6]float64
	EPSG         int
}

// NewBand allocates a zero-filled band with every pixel valid.
func NewBand(width, height int, geoTransform [6]float64) *Band {
	return &Band{
		Width:        width,
		Height:       height,
		Data:         make([]float64, width*height),
		GeoTransform: geoTransform,
		EPSG:         EPSGWGS84,
	}
}

// IsValid reports whether pixel i is usable.
func (b *Band) IsValid(i int) bool {
	if math.IsNaN(b.Data[i]) {
		return false
	}
	return b.Valid == nil || b.Valid[i]
}

// ApplyMask marks every pixel with mask[i] == false invalid and sets it to NaN.
func (b *Band) ApplyMask(mask []bool) error {
	if len(mask) != len(b.Data) {
		return fmt.Errorf("mask has %d pixels, band has %d", len(mask), len(b.Data))
	}
	if b.Valid == nil {
		b.Valid = make([]bool, len(b.Data))
		for i := range b.Valid {
			b.Valid[i] = true
		}
	}
	for i, ok := range mask {
		if !ok {
			b.Valid[i] = false
			b.Data[i] = math.NaN()
		}
	}
	return nil
}

// ValidCount returns the number of usable pixels.
func (b *Band) ValidCount() int {
	n := 0
	for i := range b.Data {
		if b.IsValid(i) {
			n++
		}
	}
	return n
}

// SameShape reports whether two bands cover the same pixel grid.
func (b *Band) SameShape(o *Band) bool {
	return b.Width == o.Width && b.Height == o.Height &&
		len(b.Data) == len(o.Data) && len(b.Data) == b.Width*b.Height
}
