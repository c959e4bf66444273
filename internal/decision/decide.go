// Package decision turns frame verdicts into capture decisions and picks
// which buffered frame or recognition result to trust.
package decision

import "github.com/ayusman/accuread/internal/quality"

// Reason identifies why a frame was rejected.
type Reason string

// Rejection reasons, listed in reporting precedence.
const (
	ReasonNone       Reason = "NONE"
	ReasonBlur       Reason = "BLUR"
	ReasonGlare      Reason = "GLARE"
	ReasonMisaligned Reason = "MISALIGNED"
	ReasonTooDark    Reason = "TOO_DARK"
	ReasonTooBright  Reason = "TOO_BRIGHT"
)

var guidance = map[Reason]string{
	ReasonNone:       "",
	ReasonBlur:       "Hold steady, image is blurry.",
	ReasonGlare:      "Too much reflection — tilt the device.",
	ReasonMisaligned: "Bring the subject into the guide box.",
	ReasonTooDark:    "Too dark — move to better lighting or enable flash.",
	ReasonTooBright:  "Too bright — reduce lighting.",
}

// Guidance returns the default English message for r. Hosts that localise
// should key their own tables on the Reason instead.
func Guidance(r Reason) string {
	return guidance[r]
}

// Reasons returns every rejection reason in precedence order.
func Reasons() []Reason {
	return []Reason{ReasonBlur, ReasonGlare, ReasonMisaligned, ReasonTooDark, ReasonTooBright}
}

// CaptureDecision is the externally visible outcome for one frame.
type CaptureDecision struct {
	Accepted bool `json:"accepted"`
	// ChosenIndex points into the session buffer; -1 unless Accepted.
	ChosenIndex int    `json:"chosen_index"`
	Reason      Reason `json:"reason"`
	Guidance    string `json:"guidance,omitempty"`
}

// Policy decides acceptance using the brightness bounds of a quality Config.
type Policy struct {
	minBrightness float64
	maxBrightness float64
}

// NewPolicy creates a Policy from cfg.
func NewPolicy(cfg quality.Config) *Policy {
	return &Policy{
		minBrightness: cfg.MinBrightness,
		maxBrightness: cfg.MaxBrightness,
	}
}

// Decide accepts a frame only if it is sharp, glare-free, aligned and within
// the brightness bounds. Rejections report the first failure in the order
// blur, glare, misalignment, brightness.
func (p *Policy) Decide(v quality.Verdict) CaptureDecision {
	r := p.reason(v)
	if r == ReasonNone {
		return CaptureDecision{Accepted: true, ChosenIndex: -1, Reason: ReasonNone}
	}
	return CaptureDecision{
		Accepted:    false,
		ChosenIndex: -1,
		Reason:      r,
		Guidance:    Guidance(r),
	}
}

func (p *Policy) reason(v quality.Verdict) Reason {
	switch b := v.Brightness(); {
	case v.IsBlurred:
		return ReasonBlur
	case v.HasGlare:
		return ReasonGlare
	case !v.IsAligned:
		return ReasonMisaligned
	case b < p.minBrightness:
		return ReasonTooDark
	case b > p.maxBrightness:
		return ReasonTooBright
	}
	return ReasonNone
}
