package loop

import "fmt"

// Waveform is an interleaved multi-channel sample buffer
type Waveform struct {
	Samples  []float64
	Channels int
}

// Frames returns the number of per-channel samples
func (w Waveform) Frames() int {
	if w.Channels <= 0 {
		return 0
	}
	return len(w.Samples) / w.Channels
}

func (w Waveform) at(frame, channel int) float64 {
	return w.Samples[frame*w.Channels+channel]
}

// Direction is the sign change of a zero crossing
type Direction int

const (
	AnyDirection Direction = iota
	Rising                 // negative to non-negative
	Falling                // non-negative to negative
)

func (d Direction) String() string {
	switch d {
	case Rising:
		return "rising"
	case Falling:
		return "falling"
	default:
		return "any"
	}
}

// crossingAt reports the direction of the sign change between a and b
func crossingAt(a, b float64) Direction {
	switch {
	case a < 0 && b >= 0:
		return Rising
	case a >= 0 && b < 0:
		return Falling
	default:
		return AnyDirection
	}
}

// ChannelPolicy decides when a multi-channel frame counts as a crossing
type ChannelPolicy int

const (
	// PolicyDownmix checks the mean of all channels
	PolicyDownmix ChannelPolicy = iota

	// PolicyAllChannels requires every channel to cross or sit near zero
	PolicyAllChannels

	// PolicyMajority requires more than half of the channels to cross
	PolicyMajority
)

func (p ChannelPolicy) String() string {
	switch p {
	case PolicyAllChannels:
		return "all"
	case PolicyMajority:
		return "majority"
	default:
		return "downmix"
	}
}

// ParseChannelPolicy converts a policy name as printed by String
func ParseChannelPolicy(name string) (ChannelPolicy, error) {
	switch name {
	case "downmix", "":
		return PolicyDownmix, nil
	case "all":
		return PolicyAllChannels, nil
	case "majority":
		return PolicyMajority, nil
	default:
		return PolicyDownmix, fmt.Errorf("unknown channel policy %q", name)
	}
}

// DefaultNearZero is the amplitude treated as silent for PolicyAllChannels
const DefaultNearZero = 1e-3

// Aligner moves sample positions onto nearby zero crossings
type Aligner struct {
	Radius         int
	Policy         ChannelPolicy
	NearZero       float64
	MatchDirection bool
}

// NewAligner creates an aligner with the given search radius (samples)
func NewAligner(radius int, policy ChannelPolicy) *Aligner {
	return &Aligner{
		Radius:         max(radius, 0),
		Policy:         policy,
		NearZero:       DefaultNearZero,
		MatchDirection: true,
	}
}

// Align returns the crossing nearest to position within the radius and its
// direction. Without a qualifying crossing it returns position unchanged and
// AnyDirection. Earlier samples win ties.
func (a *Aligner) Align(w Waveform, position int, want Direction) (int, Direction) {
	frames := w.Frames()
	if frames < 2 || position < 0 || position > frames {
		return position, AnyDirection
	}

	for d := 0; d <= a.Radius; d++ {
		for _, i := range [2]int{position - d, position + d} {
			if i < 1 || i >= frames {
				continue
			}
			if dir := a.crossing(w, i, want); dir != AnyDirection {
				return i, dir
			}
			if d == 0 {
				break
			}
		}
	}

	return position, AnyDirection
}

// crossing returns the direction of a qualifying crossing between i-1 and i
func (a *Aligner) crossing(w Waveform, i int, want Direction) Direction {
	if want != AnyDirection {
		if a.qualifies(w, i, want) {
			return want
		}
		return AnyDirection
	}

	for _, dir := range [2]Direction{Rising, Falling} {
		if a.qualifies(w, i, dir) {
			return dir
		}
	}
	return AnyDirection
}

func (a *Aligner) qualifies(w Waveform, i int, dir Direction) bool {
	switch a.Policy {
	case PolicyAllChannels:
		crossed := 0
		for ch := range w.Channels {
			if crossingAt(w.at(i-1, ch), w.at(i, ch)) == dir {
				crossed++
				continue
			}
			if abs64(w.at(i, ch)) > a.NearZero {
				return false
			}
		}
		return crossed > 0

	case PolicyMajority:
		crossed := 0
		for ch := range w.Channels {
			if crossingAt(w.at(i-1, ch), w.at(i, ch)) == dir {
				crossed++
			}
		}
		return crossed*2 > w.Channels

	default:
		return crossingAt(w.downmix(i-1), w.downmix(i)) == dir
	}
}

func (w Waveform) downmix(frame int) float64 {
	if w.Channels == 1 {
		return w.Samples[frame]
	}
	sum := 0.0
	for ch := range w.Channels {
		sum += w.at(frame, ch)
	}
	return sum / float64(w.Channels)
}

// AlignCandidate aligns the start (any direction) and then the end (same
// direction as the start when MatchDirection is set). If the aligned pair
// breaks ordering or the duration limits, the offending end keeps its
// original position; if that still fails the candidate is returned unchanged.
func (a *Aligner) AlignCandidate(w Waveform, c Candidate, minDuration, maxDuration int) Candidate {
	start, dir := a.Align(w, c.LoopStart, AnyDirection)

	want := AnyDirection
	if a.MatchDirection {
		want = dir
	}
	end, _ := a.Align(w, c.LoopEnd, want)

	valid := func(s, e int) bool {
		d := e - s
		return s >= 0 && s < e && d >= minDuration && (maxDuration <= 0 || d <= maxDuration)
	}

	aligned := c
	switch {
	case valid(start, end):
		aligned.LoopStart, aligned.LoopEnd = start, end
	case valid(start, c.LoopEnd):
		aligned.LoopStart = start
	case valid(c.LoopStart, end):
		aligned.LoopEnd = end
	}
	return aligned
}

func abs64(x float64) float64 {
	if x < 0 {
		return -x
	}
	return x
}
