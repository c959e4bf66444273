package decision

// Confident is anything that reports a mean per-field confidence.
type Confident interface {
	MeanConfidence() float64
}

// Consensus picks the result with the highest mean confidence among several
// recognition attempts of the same capture. Ties keep the earliest attempt
// so near-identical results do not flip between runs. It returns the chosen
// result, its index, and false when results is empty.
func Consensus[R Confident](results []R) (R, int, bool) {
	var zero R
	if len(results) == 0 {
		return zero, -1, false
	}

	best := 0
	bestConf := results[0].MeanConfidence()
	for i := 1; i < len(results); i++ {
		if c := results[i].MeanConfidence(); c > bestConf {
			best, bestConf = i, c
		}
	}
	return results[best], best, true
}
