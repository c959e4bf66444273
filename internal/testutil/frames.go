// Package testutil builds deterministic synthetic frames for tests.
package testutil

import (
	"math/rand/v2"
	"time"

	"github.com/ayusman/accuread/internal/frame"
)

// Epoch is the timestamp given to generated frames unless overridden.
var Epoch = time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

// Uniform returns a frame filled with a single opaque colour.
func Uniform(w, h int, r, g, b uint8) frame.Frame {
	pix := make([]byte, w*h*frame.Channels)
	for i := 0; i < len(pix); i += frame.Channels {
		pix[i], pix[i+1], pix[i+2], pix[i+3] = r, g, b, 255
	}
	return frame.Frame{Width: w, Height: h, Pix: pix, Timestamp: Epoch}
}

// Gray returns a uniform grey frame of the given luma.
func Gray(w, h int, y uint8) frame.Frame {
	return Uniform(w, h, y, y, y)
}

// Set writes one grey pixel into f.
func Set(f frame.Frame, x, y int, v uint8) {
	i := (y*f.Width + x) * frame.Channels
	f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3] = v, v, v, 255
}

// Stripes returns vertical stripes alternating lo and hi every period
// columns. With period 2 and a large hi-lo gap it reads as a sharp,
// well-aligned frame.
func Stripes(w, h, period int, lo, hi uint8) frame.Frame {
	f := Gray(w, h, lo)
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if (x/period)%2 == 1 {
				Set(f, x, y, hi)
			}
		}
	}
	return f
}

// SaltNoise returns a grey frame where each pixel is independently set to
// 255 with the given probability. For a fixed seed the salted pixels at a
// lower density are a subset of those at a higher density.
func SaltNoise(w, h int, base uint8, density float64, seed uint64) frame.Frame {
	f := Gray(w, h, base)
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			if rng.Float64() < density {
				Set(f, x, y, 255)
			}
		}
	}
	return f
}

// Sequence returns n copies of f with timestamps spaced by step.
func Sequence(f frame.Frame, n int, step time.Duration) []frame.Frame {
	out := make([]frame.Frame, n)
	for i := range out {
		c := f
		c.Timestamp = f.Timestamp.Add(time.Duration(i) * step)
		out[i] = c
	}
	return out
}
