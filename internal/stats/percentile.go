package stats

import "slices"

const p95 = 0.95

// Average is the floor mean of values, 0 for none.
func Average(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	var sum int64
	for _, v := range values {
		sum += v
	}
	return sum / int64(len(values))
}

// Percentile95 is a nearest-rank estimate: the element at zero-based index
// floor(n*0.95) of the ascending-sorted values, 0 for none. values is not
// modified.
func Percentile95(values []int64) int64 {
	if len(values) == 0 {
		return 0
	}
	sorted := slices.Clone(values)
	slices.Sort(sorted)
	return sorted[int(float64(len(sorted))*p95)]
}
