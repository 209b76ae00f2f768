// Package aggregate holds the arithmetic and bookkeeping that keeps a Food
// bucket's running means in sync with its attached reviews, one sample at a
// time. Nothing in here re-scans the review set.
package aggregate

import "fmt"

// AddSample folds one new sample into a running mean over n samples.
// Precondition: n >= 0. Violations are contract defects and panic rather
// than corrupt the average.
func AddSample(mean float64, n int, value float64) float64 {
	if n < 0 {
		panic(fmt.Sprintf("aggregate: AddSample called with n=%d", n))
	}
	return (float64(n)*mean + value) / float64(n+1)
}

// ReplaceSample swaps one sample already counted in the mean for a new
// value. The sample count is unchanged. Precondition: n >= 1.
func ReplaceSample(mean float64, n int, oldValue, newValue float64) float64 {
	if n < 1 {
		panic(fmt.Sprintf("aggregate: ReplaceSample called with n=%d", n))
	}
	return (float64(n)*mean - oldValue + newValue) / float64(n)
}

// RemoveSample takes one sample out of a running mean. Precondition: n >= 2;
// removing the last sample is the caller's business (bucket deletion), not
// arithmetic.
func RemoveSample(mean float64, n int, value float64) float64 {
	if n < 2 {
		panic(fmt.Sprintf("aggregate: RemoveSample called with n=%d", n))
	}
	return (float64(n)*mean - value) / float64(n-1)
}
