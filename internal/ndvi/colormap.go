package ndvi

import (
	"fmt"
	"image"
	"image/color"
	"math"
)

// Colormap selects how a stretched field is rendered.
type Colormap string

const (
	// ColormapRamp renders a brown-to-green false colour image.
	ColormapRamp Colormap = "ramp"
	// ColormapGray renders a linear grayscale image.
	ColormapGray Colormap = "gray"
)

// ParseColormap validates a colormap name. An empty name yields def.
func ParseColormap(name string, def Colormap) (Colormap, error) {
	switch Colormap(name) {
	case "":
		return def, nil
	case ColormapRamp, ColormapGray:
		return Colormap(name), nil
	default:
		return "", fmt.Errorf("unknown colormap %q (want %q or %q)", name, ColormapRamp, ColormapGray)
	}
}

// InvalidColor is drawn for pixels without a valid index value.
var InvalidColor = color.RGBA{A: 0xff}

type colorStop struct {
	pos     float64
	r, g, b float64
}

// rampStops run from bare soil to dense vegetation.
var rampStops = []colorStop{
	{pos: 0.00, r: 140, g: 81, b: 10},
	{pos: 0.25, r: 216, g: 179, b: 101},
	{pos: 0.50, r: 246, g: 232, b: 195},
	{pos: 0.75, r: 127, g: 188, b: 65},
	{pos: 1.00, r: 0, g: 104, b: 55},
}

// Render draws field with the selected colormap.
func Render(field []float64, width, height int, cm Colormap) image.Image {
	if cm == ColormapGray {
		return Grayscale(field, width, height)
	}
	return ColorRamp(field, width, height)
}

// ColorRamp maps a field in [-1, 1] onto the vegetation ramp, interpolating
// each channel linearly between neighbouring stops. NaN pixels are black.
func ColorRamp(field []float64, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))

	for i, v := range field {
		x, y := i%width, i/width
		t := normalize(v)
		r, g, b := interpolate(t)
		img.SetRGBA(x, y, color.RGBA{R: r, G: g, B: b, A: 0xff})

		if math.IsNaN(v) {
			img.SetRGBA(x, y, InvalidColor)
		}
	}

	return img
}

// Grayscale maps a field in [-1, 1] linearly onto 0..255. NaN pixels are 0.
func Grayscale(field []float64, width, height int) *image.Gray {
	img := image.NewGray(image.Rect(0, 0, width, height))

	for i, v := range field {
		if math.IsNaN(v) {
			continue
		}
		img.SetGray(i%width, i/width, color.Gray{Y: toByte(normalize(v) * 255)})
	}

	return img
}

// normalize maps [-1, 1] onto [0, 1]. NaN maps to 0.
func normalize(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return min(max((v+1)/2, 0), 1)
}

func interpolate(t float64) (r, g, b uint8) {
	last := rampStops[len(rampStops)-1]
	if t >= last.pos {
		return toByte(last.r), toByte(last.g), toByte(last.b)
	}

	for i := 1; i < len(rampStops); i++ {
		hi := rampStops[i]
		if t > hi.pos {
			continue
		}
		lo := rampStops[i-1]
		f := (t - lo.pos) / (hi.pos - lo.pos)
		return toByte(lerp(lo.r, hi.r, f)), toByte(lerp(lo.g, hi.g, f)), toByte(lerp(lo.b, hi.b, f))
	}

	first := rampStops[0]
	return toByte(first.r), toByte(first.g), toByte(first.b)
}

func lerp(a, b, f float64) float64 {
	return a + (b-a)*f
}

func toByte(v float64) uint8 {
	return uint8(min(max(math.Round(v), 0), 255))
}
