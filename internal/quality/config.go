// Package quality scores camera frames for sharpness, glare and alignment
// and classifies them into capture verdicts.
package quality

import "fmt"

// Config holds every threshold and weight used by extraction and
// classification. The zero value is not usable; start from DefaultConfig.
type Config struct {
	// SharpnessMin is the Laplacian deviation below which a frame is blurred.
	SharpnessMin float64 `json:"sharpness_min"`

	// GlareBrightnessMin and GlareRatioMin must both be exceeded for glare.
	GlareBrightnessMin float64 `json:"glare_brightness_min"`
	GlareRatioMin      float64 `json:"glare_ratio_min"`

	// AlignmentMin is the alignment confidence a frame must exceed.
	AlignmentMin float64 `json:"alignment_min"`

	// MinBrightness and MaxBrightness bound acceptable mean luma.
	MinBrightness float64 `json:"min_brightness"`
	MaxBrightness float64 `json:"max_brightness"`

	// SaturationLuma is the luma above which a pixel counts as saturated.
	SaturationLuma uint8 `json:"saturation_luma"`

	// EdgeMagnitude is the Sobel magnitude above which a pixel is an edge.
	EdgeMagnitude float64 `json:"edge_magnitude"`

	// Composite score weights.
	SharpnessWeight    float64 `json:"sharpness_weight"`
	BrightnessWeight   float64 `json:"brightness_weight"`
	GlarePenaltyWeight float64 `json:"glare_penalty_weight"`
}

// DefaultConfig returns the stock thresholds.
func DefaultConfig() Config {
	return Config{
		SharpnessMin:       100,
		GlareBrightnessMin: 200,
		GlareRatioMin:      0.05,
		AlignmentMin:       0.3,
		MinBrightness:      30,
		MaxBrightness:      250,
		SaturationLuma:     240,
		EdgeMagnitude:      50,
		SharpnessWeight:    1.5,
		BrightnessWeight:   0.5,
		GlarePenaltyWeight: 2,
	}
}

// Validate reports thresholds that cannot describe a usable frame.
func (c Config) Validate() error {
	switch {
	case c.SharpnessMin < 0:
		return fmt.Errorf("sharpness_min must be non-negative, got %g", c.SharpnessMin)
	case c.GlareRatioMin < 0 || c.GlareRatioMin > 1:
		return fmt.Errorf("glare_ratio_min must be within [0,1], got %g", c.GlareRatioMin)
	case c.AlignmentMin < 0 || c.AlignmentMin > 1:
		return fmt.Errorf("alignment_min must be within [0,1], got %g", c.AlignmentMin)
	case c.MinBrightness < 0 || c.MaxBrightness > 255:
		return fmt.Errorf("brightness bounds must be within [0,255], got [%g,%g]", c.MinBrightness, c.MaxBrightness)
	case c.MinBrightness > c.MaxBrightness:
		return fmt.Errorf("min_brightness %g exceeds max_brightness %g", c.MinBrightness, c.MaxBrightness)
	case c.EdgeMagnitude < 0:
		return fmt.Errorf("edge_magnitude must be non-negative, got %g", c.EdgeMagnitude)
	case c.GlareBrightnessMin < 0 || c.GlareBrightnessMin > 255:
		return fmt.Errorf("glare_brightness_min must be within [0,255], got %g", c.GlareBrightnessMin)
	case c.SharpnessWeight < 0 || c.BrightnessWeight < 0 || c.GlarePenaltyWeight < 0:
		return fmt.Errorf("score weights must be non-negative, got sharpness=%g brightness=%g glare=%g",
			c.SharpnessWeight, c.BrightnessWeight, c.GlarePenaltyWeight)
	}
	return nil
}
