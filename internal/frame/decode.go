package frame

import (
	"fmt"
	"io"
	"time"

	"github.com/disintegration/imaging"
)

// DefaultMaxDimension bounds the longest side of decoded uploads. Quality
// analysis is O(width×height), so preview-sized frames keep it well under
// one frame interval.
const DefaultMaxDimension = 1280

// Decode reads a JPEG or PNG image, applies EXIF orientation, downsizes it
// so neither side exceeds maxDim, and returns it as a Frame. A maxDim of
// zero or less disables resizing.
func Decode(r io.Reader, maxDim int, ts time.Time) (Frame, error) {
	img, err := imaging.Decode(r, imaging.AutoOrientation(true))
	if err != nil {
		return Frame{}, fmt.Errorf("decode image: %w", err)
	}

	b := img.Bounds()
	if maxDim > 0 && (b.Dx() > maxDim || b.Dy() > maxDim) {
		img = imaging.Fit(img, maxDim, maxDim, imaging.Box)
	}

	f := FromImage(img, ts)
	if err := Validate(f); err != nil {
		return Frame{}, err
	}
	return f, nil
}
