package climate

import "math"

// stdDevFloor stands in for a zero standard deviation so the normal
// distribution stays defined for constant samples.
const stdDevFloor = 0.01

// Analyze summarizes a sample against the variable's threshold.
// It returns false when the sample is empty.
func Analyze(s Sample, spec VariableSpec) (Result, bool) {
	values := s.values
	if len(values) == 0 {
		return Result{}, false
	}

	mean, std := meanStdDev(values)
	res := Result{
		Mean:          mean,
		StdDev:        std,
		RawDataPoints: len(values),
	}

	switch spec.Likelihood {
	case EventFrequency:
		p := eventFrequency(values, spec.Threshold)
		res.Likelihood.ProbabilityOfEvent = &p
	default:
		p := normalExceedance(spec.Threshold, mean, std)
		res.Likelihood.ProbabilityExceeding = &p
	}
	return res, true
}

// meanStdDev returns the arithmetic mean and population standard deviation.
func meanStdDev(values []float64) (float64, float64) {
	n := float64(len(values))
	var sum float64
	for _, v := range values {
		sum += v
	}
	mean := sum / n

	var sq float64
	for _, v := range values {
		d := v - mean
		sq += d * d
	}
	return mean, math.Sqrt(sq / n)
}

// eventFrequency is the share of values strictly above threshold.
func eventFrequency(values []float64, threshold float64) float64 {
	count := 0
	for _, v := range values {
		if v > threshold {
			count++
		}
	}
	return float64(count) / float64(len(values))
}

// normalExceedance is P(X > threshold) for X ~ N(mean, std²).
func normalExceedance(threshold, mean, std float64) float64 {
	if std <= 0 || math.IsNaN(std) {
		std = stdDevFloor
	}
	p := 0.5 * math.Erfc((threshold-mean)/(std*math.Sqrt2))
	return math.Min(1, math.Max(0, p))
}
