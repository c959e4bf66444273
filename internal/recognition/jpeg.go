package recognition

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/disintegration/imaging"

	"github.com/ayusman/accuread/internal/frame"
)

// JPEGQuality is used when frames are encoded for recognition.
const JPEGQuality = 90

// EncodeJPEG encodes a frame for submission to a recognizer.
func EncodeJPEG(f frame.Frame) ([]byte, error) {
	if err := frame.Validate(f); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, f.Image(), imaging.JPEG, imaging.JPEGQuality(JPEGQuality)); err != nil {
		return nil, fmt.Errorf("encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// RecognizeFrames submits each frame in order and returns one result per
// frame that was read successfully. Attempt is set to the frame position.
// Per-frame failures are joined into the error even when other frames
// succeeded, so callers must check the results before the error.
func RecognizeFrames(ctx context.Context, r Recognizer, frames []frame.Frame) ([]Result, error) {
	var (
		results []Result
		errs    []error
	)
	for i, f := range frames {
		img, err := EncodeJPEG(f)
		if err != nil {
			errs = append(errs, fmt.Errorf("frame %d: %w", i, err))
			continue
		}
		res, err := r.Recognize(ctx, img, "image/jpeg")
		if err != nil {
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			errs = append(errs, fmt.Errorf("frame %d: %w", i, err))
			continue
		}
		res.Attempt = i
		results = append(results, res)
	}
	return results, errors.Join(errs...)
}
