package common

import (
	"math"
	"slices"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

// Basic statistical functions used across algorithms, backed by gonum

// Mean calculates the arithmetic mean of a slice
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return stat.Mean(data, nil)
}

// Variance calculates the sample variance of a slice
func Variance(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return stat.Variance(data, nil)
}

// StandardDeviation calculates the sample standard deviation
func StandardDeviation(data []float64) float64 {
	if len(data) < 2 {
		return 0.0
	}
	return math.Sqrt(Variance(data))
}

// Median returns the middle value, averaging the two central values for even lengths
func Median(data []float64) float64 {
	n := len(data)
	if n == 0 {
		return 0.0
	}

	sorted := slices.Clone(data)
	slices.Sort(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// RMS calculates root mean square
func RMS(data []float64) float64 {
	if len(data) == 0 {
		return 0.0
	}
	return floats.Norm(data, 2) / math.Sqrt(float64(len(data)))
}

// PeakNormalize scales data in place so that max |x| is 1 and returns the
// applied gain. All-zero input is left untouched with gain 1.
func PeakNormalize(data []float64) float64 {
	peak := 0.0
	for _, v := range data {
		peak = math.Max(peak, math.Abs(v))
	}

	if peak == 0 {
		return 1.0
	}

	gain := 1.0 / peak
	floats.Scale(gain, data)
	return gain
}

// FindPeaks finds local maxima at least minHeight high. When two peaks are
// closer than minDistance the higher one is kept.
func FindPeaks(data []float64, minHeight, minDistance float64) []int {
	if len(data) < 3 {
		return []int{}
	}

	var peaks []int

	for i := 1; i < len(data)-1; i++ {
		if data[i] <= data[i-1] || data[i] < data[i+1] || data[i] < minHeight {
			continue
		}

		if n := len(peaks); n > 0 && float64(i-peaks[n-1]) < minDistance {
			// Replace the previous peak if this one is higher
			if data[i] > data[peaks[n-1]] {
				peaks[n-1] = i
			}
			continue
		}

		peaks = append(peaks, i)
	}

	return peaks
}
