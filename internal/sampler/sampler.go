// Package sampler picks which frames of a clip are decoded.
//
// The eligible range [0, floor(length*cut)) is split into NumSegments
// contiguous bins. Training draws one position uniformly from every bin on
// every call; evaluation always takes the bin centre. Each position is then
// widened into a run of SegmentSize consecutive frames that stays inside the
// eligible range, so the result always has NumSegments*SegmentSize entries.
package sampler

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"

	"vidbunch/internal/vberr"
)

// Setting selects the sampling and augmentation regime.
type Setting string

const (
	SettingTrain Setting = "train"
	SettingEval  Setting = "eval"
)

// ParseSetting accepts train, eval, and the valid alias used by job specs.
func ParseSetting(value string) (Setting, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "train":
		return SettingTrain, nil
	case "eval", "valid", "validation":
		return SettingEval, nil
	default:
		return "", vberr.Configf("sampler", "unknown setting %q", value)
	}
}

// Policy holds the sampling parameters shared by every clip of a dataset.
type Policy struct {
	Cut         float64
	Setting     Setting
	NumSegments int
	SegmentSize int
}

// Validate reports invalid parameters as configuration errors.
func (p Policy) Validate() error {
	if math.IsNaN(p.Cut) || p.Cut < 0 || p.Cut > 1 {
		return vberr.Configf("sampler", "cut should be between 0.0 and 1.0, received %v", p.Cut)
	}
	if p.Setting != SettingTrain && p.Setting != SettingEval {
		return vberr.Configf("sampler", "unknown setting %q", p.Setting)
	}
	if p.NumSegments <= 0 {
		return vberr.Configf("sampler", "num_segments must be positive, received %d", p.NumSegments)
	}
	if p.SegmentSize < 1 {
		return vberr.Configf("sampler", "segment_size must be at least 1, received %d", p.SegmentSize)
	}
	return nil
}

// Frames returns the number of indices Sample produces.
func (p Policy) Frames() int {
	return p.NumSegments * p.SegmentSize
}

// Eligible returns floor(length*cut), the exclusive upper bound on indices.
func (p Policy) Eligible(length int) int {
	if length <= 0 {
		return 0
	}
	return int(math.Floor(float64(length) * p.Cut))
}

// Sample returns the frame indices to decode for a clip of the given length.
// rng is only consulted in the train setting and may be nil for eval.
func (p Policy) Sample(length int, rng *rand.Rand) ([]int, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	eligible := p.Eligible(length)
	if eligible < 1 {
		return nil, vberr.Configf("sampler", "no eligible frames (length %d, cut %v)", length, p.Cut)
	}
	if p.Setting == SettingTrain && rng == nil {
		return nil, vberr.Configf("sampler", "train sampling requires a random source")
	}

	indices := make([]int, 0, p.Frames())
	for k := 0; k < p.NumSegments; k++ {
		start, end := bin(k, p.NumSegments, eligible)
		var pos int
		if p.Setting == SettingTrain {
			pos = start + rng.IntN(end-start)
		} else {
			pos = start + (end-start-1)/2
		}
		indices = appendRun(indices, pos, p.SegmentSize, eligible)
	}
	return indices, nil
}

// bin returns the half-open range of segment k. Empty bins collapse onto a
// single valid frame so short clips still yield one position per segment.
func bin(k, segments, eligible int) (int, int) {
	start := k * eligible / segments
	end := (k + 1) * eligible / segments
	if start > eligible-1 {
		start = eligible - 1
	}
	if end <= start {
		end = start + 1
	}
	return start, end
}

func appendRun(dst []int, pos, size, eligible int) []int {
	start := pos
	if limit := eligible - size; start > limit {
		start = max(limit, 0)
	}
	for j := 0; j < size; j++ {
		dst = append(dst, min(start+j, eligible-1))
	}
	return dst
}

func (p Policy) String() string {
	return fmt.Sprintf("%s cut=%.2f segments=%dx%d", p.Setting, p.Cut, p.NumSegments, p.SegmentSize)
}
