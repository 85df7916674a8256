// Package colormap implements the closed set of intensity-to-color maps used
// to colorize intensity-only point clouds and TSDF visualization output.
package colormap

import (
	"image/color"
	"math"

	"github.com/pkg/errors"
)

// Kind names one of the five supported color maps.
type Kind string

// The supported color map kinds, matching the closed enumeration in the
// configuration surface.
const (
	Rainbow          Kind = "rainbow"
	InverseRainbow   Kind = "inverse_rainbow"
	Grayscale        Kind = "grayscale"
	InverseGrayscale Kind = "inverse_grayscale"
	Ironbow          Kind = "ironbow"
)

// DefaultMaxIntensity is used when a configuration omits intensity_max_value.
const DefaultMaxIntensity = 100.0

// Map converts a raw intensity value, given the configured maximum, into an
// RGB color.
type Map func(intensity, max float64) color.NRGBA

// Lookup resolves a Kind to its Map implementation. An unknown kind is a
// configuration error: the caller should log and fall back rather than
// propagate a panic.
func Lookup(k Kind) (Map, error) {
	switch k {
	case Rainbow:
		return rainbow, nil
	case InverseRainbow:
		return inverseRainbow, nil
	case Grayscale:
		return grayscale, nil
	case InverseGrayscale:
		return inverseGrayscale, nil
	case Ironbow:
		return ironbow, nil
	default:
		return nil, errors.Errorf("invalid color map: %q", k)
	}
}

func fraction(intensity, max float64) float64 {
	if max <= 0 {
		return 0
	}
	f := intensity / max
	if f < 0 {
		return 0
	}
	if f > 1 {
		return 1
	}
	return f
}

// rainbow maps [0, max] onto a hue sweep from red to blue.
func rainbow(intensity, max float64) color.NRGBA {
	f := fraction(intensity, max)
	return hsvToRGB(f*240, 1, 1)
}

func inverseRainbow(intensity, max float64) color.NRGBA {
	return rainbow(max-intensity, max)
}

func grayscale(intensity, max float64) color.NRGBA {
	f := fraction(intensity, max)
	v := uint8(f * 255)
	return color.NRGBA{R: v, G: v, B: v, A: 255}
}

func inverseGrayscale(intensity, max float64) color.NRGBA {
	return grayscale(max-intensity, max)
}

// ironbow approximates a thermal-camera black-red-yellow-white palette.
func ironbow(intensity, max float64) color.NRGBA {
	f := fraction(intensity, max)
	r := clamp01(1.5*f) * 255
	g := clamp01(1.5*f-0.5) * 255
	b := clamp01(1.5*f-1.0) * 255
	return color.NRGBA{R: uint8(r), G: uint8(g), B: uint8(b), A: 255}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// hsvToRGB converts hue in degrees [0,360), saturation and value in [0,1].
func hsvToRGB(h, s, v float64) color.NRGBA {
	c := v * s
	x := c * (1 - math.Abs(math.Mod(h/60, 2)-1))
	m := v - c
	var r, g, b float64
	switch {
	case h < 60:
		r, g, b = c, x, 0
	case h < 120:
		r, g, b = x, c, 0
	case h < 180:
		r, g, b = 0, c, x
	case h < 240:
		r, g, b = 0, x, c
	case h < 300:
		r, g, b = x, 0, c
	default:
		r, g, b = c, 0, x
	}
	return color.NRGBA{
		R: uint8((r + m) * 255),
		G: uint8((g + m) * 255),
		B: uint8((b + m) * 255),
		A: 255,
	}
}
