package quality

import (
	"image"
	"math"

	"gocv.io/x/gocv"

	"github.com/ayusman/accuread/internal/frame"
)

// Signals are the raw pixel statistics of one frame.
type Signals struct {
	Sharpness    float64 `json:"sharpness"`
	Brightness   float64 `json:"brightness"`
	GlareRatio   float64 `json:"glare_ratio"`
	EdgeDensity  float64 `json:"edge_density"`
	EdgeStrength float64 `json:"edge_strength"`
}

// Extractor computes Signals using the saturation and edge thresholds of
// its Config.
type Extractor struct {
	saturation uint8
	edgeMag    float64
}

// NewExtractor creates an Extractor for the given configuration.
func NewExtractor(cfg Config) *Extractor {
	return &Extractor{
		saturation: cfg.SaturationLuma,
		edgeMag:    cfg.EdgeMagnitude,
	}
}

// Extract analyzes a validated frame. It never fails: frames with fewer than
// three rows or columns report zero sharpness and edge terms, while
// brightness and glare are still computed over every pixel.
//
// Passing a frame whose buffer does not match its dimensions is a caller
// bug; use ExtractChecked when the frame has not been validated.
func (e *Extractor) Extract(f frame.Frame) Signals {
	var s Signals
	if f.PixelCount() == 0 {
		return s
	}

	// Luma is rounded in Go (frame.Luma); OpenCV only sees the 8-bit plane.
	gray, err := gocv.NewMatFromBytes(f.Height, f.Width, gocv.MatTypeCV8U, frame.Grayscale(f))
	if err != nil {
		return s
	}
	defer gray.Close()

	s.Brightness, s.GlareRatio = e.brightness(gray)
	if f.Width < 3 || f.Height < 3 {
		return s
	}
	s.Sharpness = laplacianDeviation(gray)
	s.EdgeDensity, s.EdgeStrength = e.edges(gray)
	return s
}

// ExtractChecked validates f before extracting.
func (e *Extractor) ExtractChecked(f frame.Frame) (Signals, error) {
	if err := frame.Validate(f); err != nil {
		return Signals{}, err
	}
	return e.Extract(f), nil
}

func (e *Extractor) brightness(gray gocv.Mat) (mean, glare float64) {
	saturated := gocv.NewMat()
	defer saturated.Close()
	gocv.Threshold(gray, &saturated, float32(e.saturation), 255, gocv.ThresholdBinary)

	n := float64(gray.Rows() * gray.Cols())
	return gray.Mean().Val1, float64(gocv.CountNonZero(saturated)) / n
}

// laplacianDeviation returns the population standard deviation of the
// 4-neighbour Laplacian response over interior pixels.
func laplacianDeviation(gray gocv.Mat) float64 {
	w, h := gray.Cols(), gray.Rows()

	lap := gocv.NewMat()
	defer lap.Close()
	if err := gocv.Laplacian(gray, &lap, gocv.MatTypeCV64F, 1, 1, 0, gocv.BorderDefault); err != nil {
		return 0
	}
	interior := lap.Region(image.Rect(1, 1, w-1, h-1))
	defer interior.Close()

	mean, dev := gocv.NewMat(), gocv.NewMat()
	defer mean.Close()
	defer dev.Close()
	if err := gocv.MeanStdDev(interior, &mean, &dev); err != nil {
		return 0
	}
	sd := dev.GetDoubleAt(0, 0)
	if sd <= 0 || math.IsNaN(sd) {
		return 0
	}
	return sd
}

// edges measures Sobel edge density and strength inside the central
// 50%×50% guide box. Only interior pixels of the box get a response, but
// density is normalised by the full box area.
func (e *Extractor) edges(gray gocv.Mat) (density, strength float64) {
	w, h := gray.Cols(), gray.Rows()
	x0, x1 := w/4, w*3/4
	y0, y1 := h/4, h*3/4
	rw, rh := x1-x0, y1-y0
	if rw < 3 || rh < 3 {
		return 0, 0
	}

	box := gray.Region(image.Rect(x0, y0, x1, y1))
	defer box.Close()

	gx, gy, mag := gocv.NewMat(), gocv.NewMat(), gocv.NewMat()
	defer gx.Close()
	defer gy.Close()
	defer mag.Close()
	if err := gocv.Sobel(box, &gx, gocv.MatTypeCV64F, 1, 0, 3, 1, 0, gocv.BorderDefault); err != nil {
		return 0, 0
	}
	if err := gocv.Sobel(box, &gy, gocv.MatTypeCV64F, 0, 1, 3, 1, 0, gocv.BorderDefault); err != nil {
		return 0, 0
	}
	if err := gocv.Magnitude(gx, gy, &mag); err != nil {
		return 0, 0
	}

	inner := mag.Region(image.Rect(1, 1, rw-1, rh-1))
	defer inner.Close()

	above, mask := gocv.NewMat(), gocv.NewMat()
	defer above.Close()
	defer mask.Close()
	gocv.Threshold(inner, &above, float32(e.edgeMag), 255, gocv.ThresholdBinary)
	if err := above.ConvertTo(&mask, gocv.MatTypeCV8U); err != nil {
		return 0, 0
	}

	count := gocv.CountNonZero(mask)
	density = float64(count) / float64(rw*rh)
	if count > 0 {
		strength = inner.MeanWithMask(mask).Val1
	}
	return density, strength
}
