package recognition

import (
	"regexp"
	"strconv"
	"strings"
	"unicode"
)

// MinLineConfidence drops OCR lines at or below this confidence before
// field extraction.
const MinLineConfidence = 0.5

// Line is one line of OCR output.
type Line struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

var (
	serialPattern = regexp.MustCompile(`[A-Z0-9]{8,12}`)
	energyPattern = regexp.MustCompile(`\d{1,5}\.\d{1,2}`)
	demandPattern = regexp.MustCompile(`\d{1,3}\.\d{1,2}`)
	fieldPatterns = map[string]*regexp.Regexp{
		FieldSerialNumber: serialPattern,
		FieldKWh:          energyPattern,
		FieldKVAh:         energyPattern,
		FieldMaxDemandKW:  demandPattern,
		FieldDemandKVA:    demandPattern,
	}
	fieldLabels = map[string][]string{
		FieldKWh:         {"KWH", "ENERGY", "TOTAL"},
		FieldKVAh:        {"KVAH", "APPARENT"},
		FieldMaxDemandKW: {"MD", "MAX DEMAND", "DEMAND KW"},
		FieldDemandKVA:   {"DEMAND KVA"},
	}
	// upper bounds for a plausible register value
	fieldRange = map[string]float64{
		FieldKWh:         99999,
		FieldKVAh:        99999,
		FieldMaxDemandKW: 999,
		FieldDemandKVA:   999,
	}
)

// labelLookahead is how many lines after a label may hold its value.
const labelLookahead = 2

// ParseLines extracts every meter field from OCR lines and scores each with
// FieldConfidence. Fields that could not be found are present with an empty
// value and zero confidence.
func ParseLines(lines []Line) Result {
	kept := make([]string, 0, len(lines))
	for _, l := range lines {
		if l.Confidence > MinLineConfidence {
			kept = append(kept, strings.TrimSpace(l.Text))
		}
	}
	all := strings.Join(kept, " ")

	res := Result{Fields: make(map[string]Field, len(MeterFields)), RawText: all}
	for _, name := range MeterFields {
		var v string
		if name == FieldSerialNumber {
			v = findSerial(kept, all)
		} else {
			v = findLabelled(kept, all, name)
		}
		res.Fields[name] = Field{Value: v, Confidence: FieldConfidence(name, v)}
	}
	return res
}

func matchesWhole(re *regexp.Regexp, s string) bool {
	loc := re.FindStringIndex(s)
	return loc != nil && loc[0] == 0 && loc[1] == len(s)
}

func findSerial(lines []string, all string) string {
	for _, l := range lines {
		if matchesWhole(serialPattern, l) {
			return l
		}
	}
	return serialPattern.FindString(all)
}

// findLabelled looks for a value shortly after one of the field's labels and
// falls back to the first pattern match anywhere in the text.
func findLabelled(lines []string, all, name string) string {
	re := fieldPatterns[name]
	for i, l := range lines {
		if !hasLabel(strings.ToUpper(l), fieldLabels[name]) {
			continue
		}
		for j := i + 1; j <= i+labelLookahead && j < len(lines); j++ {
			if matchesWhole(re, lines[j]) {
				return lines[j]
			}
		}
	}
	return re.FindString(all)
}

func hasLabel(text string, labels []string) bool {
	for _, l := range labels {
		if strings.Contains(text, l) {
			return true
		}
	}
	return false
}

// FieldConfidence scores an extracted value in [0,1]. A value matching the
// field pattern starts at 0.90, anything else at 0.60. Alphanumeric serials
// and numbers within the register range gain 0.05; unparsable numbers lose
// 0.20. Empty values score zero.
func FieldConfidence(name, value string) float64 {
	if value == "" {
		return 0
	}

	score := 60.0
	if re, ok := fieldPatterns[name]; ok && matchesWhole(re, value) {
		score = 90
	}

	if name == FieldSerialNumber {
		if strings.IndexFunc(value, unicode.IsLetter) >= 0 && strings.IndexFunc(value, unicode.IsDigit) >= 0 {
			score += 5
		}
	} else if limit, ok := fieldRange[name]; ok {
		n, err := strconv.ParseFloat(value, 64)
		switch {
		case err != nil:
			score -= 20
		case n >= 0 && n <= limit:
			score += 5
		}
	}

	return clampUnit(score / 100)
}

func clampUnit(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
