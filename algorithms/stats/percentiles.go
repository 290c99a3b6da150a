package stats

import (
	"errors"
	"math"
	"slices"
)

var (
	ErrEmptyData         = errors.New("empty data")
	ErrPercentileRange   = errors.New("percentile must be between 0 and 100")
	ErrUnknownPercentile = errors.New("unknown percentile method")
)

// PercentileMethod represents different methods for calculating percentiles
type PercentileMethod int

const (
	// Linear interpolation between closest ranks (numpy default)
	Linear PercentileMethod = iota

	// Lower value of the two closest ranks
	Lower

	// Higher value of the two closest ranks
	Higher

	// Midpoint of the two closest ranks
	Midpoint

	// Nearest of the two closest ranks, ties to the lower one
	Nearest
)

// String returns the method name
func (m PercentileMethod) String() string {
	switch m {
	case Linear:
		return "linear"
	case Lower:
		return "lower"
	case Higher:
		return "higher"
	case Midpoint:
		return "midpoint"
	case Nearest:
		return "nearest"
	default:
		return "unknown"
	}
}

// Percentiles computes sample percentiles of unsorted data.
//
// All methods place the q-th quantile at the fractional 0-based position
// (n-1)*q in the sorted data and differ only in how they resolve a position
// that falls between two ranks (Hyndman & Fan, 1996).
type Percentiles struct {
	method PercentileMethod
}

// NewPercentilesWithMethod creates a percentile calculator with the given method
func NewPercentilesWithMethod(method PercentileMethod) *Percentiles {
	return &Percentiles{method: method}
}

// CalculatePercentile computes a single percentile (0-100) without
// modifying data
func (p *Percentiles) CalculatePercentile(data []float64, percentile float64) (float64, error) {
	if len(data) == 0 {
		return 0, ErrEmptyData
	}
	if percentile < 0 || percentile > 100 || math.IsNaN(percentile) {
		return 0, ErrPercentileRange
	}

	sorted := slices.Clone(data)
	slices.Sort(sorted)

	return p.fromSorted(sorted, percentile)
}

func (p *Percentiles) fromSorted(sorted []float64, percentile float64) (float64, error) {
	n := len(sorted)
	if n == 1 {
		return sorted[0], nil
	}

	pos := float64(n-1) * percentile / 100.0
	lo := int(math.Floor(pos))
	hi := min(int(math.Ceil(pos)), n-1)
	frac := pos - float64(lo)

	switch p.method {
	case Linear:
		return sorted[lo] + frac*(sorted[hi]-sorted[lo]), nil
	case Lower:
		return sorted[lo], nil
	case Higher:
		return sorted[hi], nil
	case Midpoint:
		return (sorted[lo] + sorted[hi]) / 2, nil
	case Nearest:
		if frac > 0.5 {
			return sorted[hi], nil
		}
		return sorted[lo], nil
	default:
		return 0, ErrUnknownPercentile
	}
}
