package ops

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Softmax writes the max-shifted softmax of src into dst and returns dst.
// dst may alias src. A nil dst allocates.
func Softmax(dst, src []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(src))
	}
	if len(src) == 0 {
		return dst
	}
	maxVal := floats.Max(src)
	sum := 0.0
	for i, v := range src {
		e := math.Exp(v - maxVal)
		dst[i] = e
		sum += e
	}
	floats.Scale(1/sum, dst)
	return dst
}

// LogSoftmax writes log(softmax(src)) into dst and returns dst.
func LogSoftmax(dst, src []float64) []float64 {
	if dst == nil {
		dst = make([]float64, len(src))
	}
	if len(src) == 0 {
		return dst
	}
	lse := floats.LogSumExp(src)
	for i, v := range src {
		dst[i] = v - lse
	}
	return dst
}

// ArgMax returns the index of the largest value; ties go to the lowest index.
func ArgMax(data []float64) int {
	if len(data) == 0 {
		return -1
	}
	return floats.MaxIdx(data)
}

// ScaleLogits divides logits by temperature in place. Non-positive
// temperatures leave the logits untouched.
func ScaleLogits(logits []float64, temperature float64) {
	if temperature <= 0 || temperature == 1 {
		return
	}
	floats.Scale(1/temperature, logits)
}

// TopKMask sets every logit outside the k largest to -Inf. k <= 0 or
// k >= len(logits) is a no-op. Ties at the threshold are kept.
func TopKMask(logits []float64, k int) {
	if k <= 0 || k >= len(logits) {
		return
	}
	sorted := make([]float64, len(logits))
	copy(sorted, logits)
	floats.Argsort(sorted, make([]int, len(sorted)))
	threshold := sorted[len(sorted)-k]
	for i, v := range logits {
		if v < threshold {
			logits[i] = math.Inf(-1)
		}
	}
}
