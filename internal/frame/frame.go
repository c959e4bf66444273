// Package frame defines the raw RGBA capture unit consumed by the quality engine.
package frame

import (
	"errors"
	"fmt"
	"image"
	"image/draw"
	"time"
)

// Channels is the number of bytes per pixel in a packed RGBA buffer.
const Channels = 4

// ErrInvalidFrame is matched by every *InvalidFrameError via errors.Is.
var ErrInvalidFrame = errors.New("invalid frame")

// InvalidFrameError reports a frame whose dimensions and buffer disagree.
type InvalidFrameError struct {
	Width  int
	Height int
	Len    int
	Reason string
}

func (e *InvalidFrameError) Error() string {
	return fmt.Sprintf("invalid frame %dx%d (buffer %d bytes): %s", e.Width, e.Height, e.Len, e.Reason)
}

// Is lets errors.Is(err, ErrInvalidFrame) succeed.
func (e *InvalidFrameError) Is(target error) bool {
	return target == ErrInvalidFrame
}

// Frame is one immutable camera image. Pix holds packed 8-bit RGBA,
// row-major, with no stride padding.
type Frame struct {
	Width     int
	Height    int
	Pix       []byte
	Timestamp time.Time
}

// New builds a Frame after validating that pix matches width×height×4.
// The buffer is not copied; callers must not modify it afterwards.
func New(width, height int, pix []byte, ts time.Time) (Frame, error) {
	f := Frame{Width: width, Height: height, Pix: pix, Timestamp: ts}
	if err := Validate(f); err != nil {
		return Frame{}, err
	}
	return f, nil
}

// Validate checks the shape invariants of f.
func Validate(f Frame) error {
	if f.Width <= 0 || f.Height <= 0 {
		return &InvalidFrameError{Width: f.Width, Height: f.Height, Len: len(f.Pix), Reason: "dimensions must be positive"}
	}
	want := f.Width * f.Height * Channels
	if len(f.Pix) != want {
		return &InvalidFrameError{
			Width:  f.Width,
			Height: f.Height,
			Len:    len(f.Pix),
			Reason: fmt.Sprintf("expected %d bytes", want),
		}
	}
	return nil
}

// PixelCount returns width×height.
func (f Frame) PixelCount() int {
	return f.Width * f.Height
}

// At returns the RGBA components of the pixel at (x, y).
func (f Frame) At(x, y int) (r, g, b, a uint8) {
	i := (y*f.Width + x) * Channels
	return f.Pix[i], f.Pix[i+1], f.Pix[i+2], f.Pix[i+3]
}

// FromImage copies any decoded image into a packed RGBA Frame.
func FromImage(img image.Image, ts time.Time) Frame {
	b := img.Bounds()
	rgba, ok := img.(*image.RGBA)
	if !ok || rgba.Stride != b.Dx()*Channels || b.Min != (image.Point{}) {
		rgba = image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
		draw.Draw(rgba, rgba.Bounds(), img, b.Min, draw.Src)
	}
	return Frame{
		Width:     b.Dx(),
		Height:    b.Dy(),
		Pix:       rgba.Pix,
		Timestamp: ts,
	}
}

// Image wraps the frame buffer as an *image.RGBA without copying.
func (f Frame) Image() *image.RGBA {
	return &image.RGBA{
		Pix:    f.Pix,
		Stride: f.Width * Channels,
		Rect:   image.Rect(0, 0, f.Width, f.Height),
	}
}
