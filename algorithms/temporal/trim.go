package temporal

import (
	"math"
)

// TrimResult describes the non-silent region of a signal
type TrimResult struct {
	Start int // first kept sample
	End   int // one past the last kept sample
}

// Len returns the number of kept samples
func (r TrimResult) Len() int {
	return r.End - r.Start
}

// Trimmer removes leading and trailing silence
type Trimmer struct {
	envelope  *Envelope
	topDB     float64
	frameSize int
	hopSize   int
}

// NewTrimmer creates a trimmer; frames quieter than topDB below the loudest
// frame count as silence
func NewTrimmer(topDB float64, frameSize, hopSize int) *Trimmer {
	return &Trimmer{
		envelope:  NewEnvelope(),
		topDB:     topDB,
		frameSize: frameSize,
		hopSize:   hopSize,
	}
}

// NewDefaultTrimmer uses a 40 dB threshold with 2048/512 framing
func NewDefaultTrimmer() *Trimmer {
	return NewTrimmer(40, 2048, 512)
}

// Trim returns the non-silent region of signal. A completely silent signal
// yields an empty region at 0.
func (t *Trimmer) Trim(signal []float64) TrimResult {
	rms := t.envelope.ComputeRMSCentered(signal, t.frameSize, t.hopSize)
	if len(rms) == 0 {
		return TrimResult{}
	}

	peak := 0.0
	for _, v := range rms {
		peak = math.Max(peak, v)
	}
	if peak == 0 {
		return TrimResult{}
	}

	// power ratio against the loudest frame, in dB
	threshold := peak * peak * math.Pow(10, -t.topDB/10)

	first, last := -1, -1
	for i, v := range rms {
		if v*v > threshold {
			if first < 0 {
				first = i
			}
			last = i
		}
	}
	if first < 0 {
		return TrimResult{}
	}

	return TrimResult{
		Start: min(first*t.hopSize, len(signal)),
		End:   min((last+1)*t.hopSize, len(signal)),
	}
}
