package windowing

import (
	"fmt"
	"math"
)

// Type names a window function
type Type string

const (
	TypeHann        Type = "hann"
	TypeHamming     Type = "hamming"
	TypeBlackman    Type = "blackman"
	TypeRectangular Type = "rectangular"
)

// Window holds precomputed coefficients for one window function and size.
// Spectral analysis uses the periodic form (denominator N); filter design
// uses the symmetric form (denominator N-1).
type Window struct {
	kind         Type
	size         int
	symmetric    bool
	coefficients []float64
}

// New creates a window of the given type and size
func New(kind Type, size int, symmetric bool) (*Window, error) {
	if size <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %d", size)
	}

	w := &Window{
		kind:         kind,
		size:         size,
		symmetric:    symmetric,
		coefficients: make([]float64, size),
	}

	denominator := float64(size)
	if symmetric && size > 1 {
		denominator = float64(size - 1)
	}

	for i := range size {
		phase := 2 * math.Pi * float64(i) / denominator
		switch kind {
		case TypeHann:
			w.coefficients[i] = 0.5 * (1.0 - math.Cos(phase))
		case TypeHamming:
			w.coefficients[i] = 0.54 - 0.46*math.Cos(phase)
		case TypeBlackman:
			w.coefficients[i] = 0.42 - 0.5*math.Cos(phase) + 0.08*math.Cos(2*phase)
		case TypeRectangular:
			w.coefficients[i] = 1.0
		default:
			return nil, fmt.Errorf("unknown window type %q", kind)
		}
	}

	return w, nil
}

// NewHann creates a Hann window
func NewHann(size int, symmetric bool) *Window {
	w, err := New(TypeHann, max(size, 1), symmetric)
	if err != nil {
		// unreachable: the type is known and the size positive
		panic(err)
	}
	return w
}

// Apply returns a windowed copy of signal
func (w *Window) Apply(signal []float64) []float64 {
	if len(signal) != w.size {
		return nil
	}

	windowed := make([]float64, w.size)
	for i := range w.size {
		windowed[i] = signal[i] * w.coefficients[i]
	}
	return windowed
}

// ApplyInPlace multiplies signal by the window
func (w *Window) ApplyInPlace(signal []float64) error {
	if len(signal) != w.size {
		return fmt.Errorf("signal length (%d) doesn't match window size (%d)", len(signal), w.size)
	}

	for i := range w.size {
		signal[i] *= w.coefficients[i]
	}
	return nil
}

// Coefficients returns a copy of the window coefficients
func (w *Window) Coefficients() []float64 {
	coeffs := make([]float64, len(w.coefficients))
	copy(coeffs, w.coefficients)
	return coeffs
}

// Size returns the window length
func (w *Window) Size() int {
	return w.size
}

// Type returns the window function name
func (w *Window) Type() Type {
	return w.kind
}
