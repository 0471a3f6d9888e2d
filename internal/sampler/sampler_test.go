package sampler

import (
	"errors"
	"math/rand/v2"
	"slices"
	"testing"

	"vidbunch/internal/vberr"
)

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, 0))
}

func TestSampleStaysInsideEligibleRange(t *testing.T) {
	rng := newRand(1)
	for _, setting := range []Setting{SettingTrain, SettingEval} {
		for _, cut := range []float64{0.05, 0.25, 0.5, 0.9, 1.0} {
			for _, length := range []int{1, 2, 3, 7, 16, 48, 117} {
				policy := Policy{Cut: cut, Setting: setting, NumSegments: 4, SegmentSize: 4}
				eligible := policy.Eligible(length)
				indices, err := policy.Sample(length, rng)
				if eligible < 1 {
					if !errors.Is(err, vberr.ErrConfiguration) {
						t.Fatalf("length=%d cut=%v: expected configuration error, got %v", length, cut, err)
					}
					continue
				}
				if err != nil {
					t.Fatalf("length=%d cut=%v: %v", length, cut, err)
				}
				if len(indices) != policy.Frames() {
					t.Fatalf("expected %d indices, got %d", policy.Frames(), len(indices))
				}
				for _, idx := range indices {
					if idx < 0 || idx >= eligible {
						t.Fatalf("%s length=%d cut=%v: index %d outside [0,%d)", setting, length, cut, idx, eligible)
					}
				}
			}
		}
	}
}

func TestEvalSamplingIsDeterministic(t *testing.T) {
	policy := Policy{Cut: 1, Setting: SettingEval, NumSegments: 4, SegmentSize: 1}
	first, err := policy.Sample(40, nil)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if want := []int{4, 14, 24, 34}; !slices.Equal(first, want) {
		t.Fatalf("expected bin centres %v, got %v", want, first)
	}
	for i := 0; i < 10; i++ {
		again, err := policy.Sample(40, newRand(uint64(i)))
		if err != nil {
			t.Fatalf("Sample: %v", err)
		}
		if !slices.Equal(first, again) {
			t.Fatalf("eval sampling changed between calls: %v vs %v", first, again)
		}
	}
}

func TestTrainSamplingIsNotDegenerate(t *testing.T) {
	policy := Policy{Cut: 1, Setting: SettingTrain, NumSegments: 4, SegmentSize: 1}
	rng := newRand(7)
	seen := make(map[int]int)
	distinct := 0
	var previous []int
	for i := 0; i < 200; i++ {
		indices, err := policy.Sample(40, rng)
		if err != nil {
			t.Fatalf("Sample: %v", err)
		}
		if previous != nil && !slices.Equal(previous, indices) {
			distinct++
		}
		previous = indices
		for k, idx := range indices {
			if idx < k*10 || idx >= (k+1)*10 {
				t.Fatalf("segment %d index %d outside its bin", k, idx)
			}
			seen[idx]++
		}
	}
	if distinct < 150 {
		t.Fatalf("expected most consecutive draws to differ, got %d of 199", distinct)
	}
	if len(seen) < 35 {
		t.Fatalf("expected broad coverage of 40 frames, saw %d", len(seen))
	}
}

func TestSingleFrameClip(t *testing.T) {
	for _, setting := range []Setting{SettingTrain, SettingEval} {
		policy := Policy{Cut: 1, Setting: setting, NumSegments: 4, SegmentSize: 1}
		indices, err := policy.Sample(1, newRand(3))
		if err != nil {
			t.Fatalf("%s: %v", setting, err)
		}
		if !slices.Equal(indices, []int{0, 0, 0, 0}) {
			t.Fatalf("%s: expected four zero indices, got %v", setting, indices)
		}
	}
}

func TestSegmentRunsAreContiguousAndClipped(t *testing.T) {
	policy := Policy{Cut: 1, Setting: SettingEval, NumSegments: 2, SegmentSize: 4}
	indices, err := policy.Sample(10, nil)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if want := []int{2, 3, 4, 5, 6, 7, 8, 9}; !slices.Equal(indices, want) {
		t.Fatalf("expected %v, got %v", want, indices)
	}

	short, err := policy.Sample(3, nil)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if want := []int{0, 1, 2, 2, 0, 1, 2, 2}; !slices.Equal(short, want) {
		t.Fatalf("expected clipped runs %v, got %v", want, short)
	}
}

func TestCutLimitsRange(t *testing.T) {
	policy := Policy{Cut: 0.5, Setting: SettingEval, NumSegments: 2, SegmentSize: 1}
	indices, err := policy.Sample(20, nil)
	if err != nil {
		t.Fatalf("Sample: %v", err)
	}
	if want := []int{2, 7}; !slices.Equal(indices, want) {
		t.Fatalf("expected %v, got %v", want, indices)
	}
}

func TestValidateRejectsBadParameters(t *testing.T) {
	cases := []Policy{
		{Cut: -0.1, Setting: SettingTrain, NumSegments: 1, SegmentSize: 1},
		{Cut: 1.1, Setting: SettingTrain, NumSegments: 1, SegmentSize: 1},
		{Cut: 1, Setting: "test", NumSegments: 1, SegmentSize: 1},
		{Cut: 1, Setting: SettingEval, NumSegments: 0, SegmentSize: 1},
		{Cut: 1, Setting: SettingEval, NumSegments: 1, SegmentSize: 0},
	}
	for _, policy := range cases {
		if err := policy.Validate(); !errors.Is(err, vberr.ErrConfiguration) {
			t.Fatalf("%+v: expected configuration error, got %v", policy, err)
		}
	}
}

func TestTrainRequiresRandomSource(t *testing.T) {
	policy := Policy{Cut: 1, Setting: SettingTrain, NumSegments: 1, SegmentSize: 1}
	if _, err := policy.Sample(10, nil); !errors.Is(err, vberr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}

func TestParseSetting(t *testing.T) {
	for input, want := range map[string]Setting{"train": SettingTrain, "EVAL": SettingEval, "valid": SettingEval} {
		got, err := ParseSetting(input)
		if err != nil || got != want {
			t.Fatalf("ParseSetting(%q) = %q, %v", input, got, err)
		}
	}
	if _, err := ParseSetting("test"); !errors.Is(err, vberr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
