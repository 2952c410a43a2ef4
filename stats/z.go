package stats

import "gonum.org/v1/gonum/stat/distuv"

var standardNormal = distuv.UnitNormal

// ZVal is the two-tailed z-value for a confidence level in percent. Levels
// are clamped to [0, 99.99].
func ZVal(confidence float64) float64 {
	confidence = min(max(confidence, 0), 99.99)
	return standardNormal.Quantile(0.5 + confidence/200)
}
