package quality

import (
	"math"

	"github.com/ayusman/accuread/internal/frame"
)

// Verdict is the classification of one frame's Signals.
type Verdict struct {
	Signals             Signals `json:"signals"`
	IsBlurred           bool    `json:"is_blurred"`
	HasGlare            bool    `json:"has_glare"`
	IsAligned           bool    `json:"is_aligned"`
	AlignmentConfidence float64 `json:"alignment_confidence"`
	CompositeScore      float64 `json:"composite_score"`
}

// Brightness returns the mean luma the verdict was computed from.
func (v Verdict) Brightness() float64 {
	return v.Signals.Brightness
}

// Classifier maps Signals to a Verdict. It is pure and safe for concurrent use.
type Classifier struct {
	cfg Config
}

// NewClassifier creates a Classifier with the given thresholds.
func NewClassifier(cfg Config) *Classifier {
	return &Classifier{cfg: cfg}
}

// Config returns the thresholds in use.
func (c *Classifier) Config() Config {
	return c.cfg
}

// Classify derives the verdict for s.
func (c *Classifier) Classify(s Signals) Verdict {
	conf := AlignmentConfidence(s)
	return Verdict{
		Signals:             s,
		IsBlurred:           s.Sharpness < c.cfg.SharpnessMin,
		HasGlare:            s.Brightness > c.cfg.GlareBrightnessMin && s.GlareRatio > c.cfg.GlareRatioMin,
		IsAligned:           conf > c.cfg.AlignmentMin,
		AlignmentConfidence: conf,
		CompositeScore:      c.Score(s),
	}
}

// Score is the composite usability score: sharpness dominates, brightness
// adds a bonus and the glare percentage is penalised. Never negative.
func (c *Classifier) Score(s Signals) float64 {
	score := s.Sharpness*c.cfg.SharpnessWeight +
		s.Brightness*c.cfg.BrightnessWeight -
		s.GlareRatio*100*c.cfg.GlarePenaltyWeight
	return math.Max(0, score)
}

// AlignmentConfidence combines edge strength and density into [0,1].
func AlignmentConfidence(s Signals) float64 {
	return math.Min(1.0, (s.EdgeStrength/100)*(s.EdgeDensity*10))
}

// Assessor runs extraction and classification with one Config.
type Assessor struct {
	extractor  *Extractor
	classifier *Classifier
}

// NewAssessor creates an Assessor for cfg.
func NewAssessor(cfg Config) *Assessor {
	return &Assessor{
		extractor:  NewExtractor(cfg),
		classifier: NewClassifier(cfg),
	}
}

// Config returns the thresholds in use.
func (a *Assessor) Config() Config {
	return a.classifier.Config()
}

// Assess validates f, extracts its signals and classifies them.
func (a *Assessor) Assess(f frame.Frame) (Verdict, error) {
	s, err := a.extractor.ExtractChecked(f)
	if err != nil {
		return Verdict{}, err
	}
	return a.classifier.Classify(s), nil
}
