package stats

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"image"
	"image/color"
	"math"
	"sync"
	"testing"

	"vidbunch/internal/media"
	"vidbunch/internal/meta"
	"vidbunch/internal/vberr"
)

func solid(v uint8) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, 2, 2))
	for y := range 2 {
		for x := range 2 {
			img.Set(x, y, color.RGBA{R: v, G: 255 - v, B: 0, A: 255})
		}
	}
	return img
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestFromImages(t *testing.T) {
	s := FromImages([]image.Image{solid(0), solid(255)})
	if s.Count != 8 {
		t.Fatalf("Count = %v", s.Count)
	}
	if !near(s.Mean[0], 0.5) || !near(s.Mean[1], 0.5) || !near(s.Mean[2], 0) {
		t.Fatalf("Mean = %v", s.Mean)
	}
	if !near(s.Var[0], 0.25) || !near(s.Std()[0], 0.5) || !near(s.Var[2], 0) {
		t.Fatalf("Var = %v Std = %v", s.Var, s.Std())
	}
	if (FromImages(nil) != Summary{}) {
		t.Fatal("expected zero summary for no images")
	}
}

func TestMergeMatchesWholeComputation(t *testing.T) {
	a := []image.Image{solid(10), solid(40), solid(200)}
	b := []image.Image{solid(90), solid(255)}
	whole := FromImages(append(append([]image.Image{}, a...), b...))
	merged := FromImages(a).Merge(FromImages(b))
	if merged.Count != whole.Count {
		t.Fatalf("count %v vs %v", merged.Count, whole.Count)
	}
	for c := range 3 {
		if !near(merged.Mean[c], whole.Mean[c]) || !near(merged.Var[c], whole.Var[c]) {
			t.Fatalf("channel %d: merged %v/%v whole %v/%v", c, merged.Mean[c], merged.Var[c], whole.Mean[c], whole.Var[c])
		}
	}
	if got := (Summary{}).Merge(merged); got != merged {
		t.Fatal("merging into an empty summary should be the identity")
	}
}

func TestGather(t *testing.T) {
	table := meta.Table{
		{ID: "a", Length: 3},
		{ID: "b", Length: 2},
		{ID: "c", Length: 5},
	}
	var (
		mu    sync.Mutex
		reads = map[string][]int{}
	)
	source := media.SourceFunc(func(_ context.Context, clip meta.VideoMeta, indices []int) ([]image.Image, error) {
		mu.Lock()
		reads[clip.ID] = indices
		mu.Unlock()
		out := make([]image.Image, len(indices))
		for i, idx := range indices {
			out[i] = solid(uint8(idx * 50))
		}
		return out, nil
	})
	var last int
	s, err := Gather(context.Background(), table, source, Options{
		Workers:       2,
		FramesPerClip: 3,
		Progress: func(done, total int) {
			mu.Lock()
			last = max(last, done)
			mu.Unlock()
			if total != 3 {
				t.Errorf("total = %d", total)
			}
		},
	})
	if err != nil {
		t.Fatalf("Gather: %v", err)
	}
	if last != 3 {
		t.Fatalf("progress reached %d of 3", last)
	}
	if len(reads["b"]) != 2 || len(reads["c"]) != 3 {
		t.Fatalf("unexpected frame reads %v", reads)
	}
	if s.Count != float64(4*(3+2+3)) {
		t.Fatalf("Count = %v", s.Count)
	}

	var buf bytes.Buffer
	if err := WriteJSON(&buf, s); err != nil {
		t.Fatalf("WriteJSON: %v", err)
	}
	var records []map[string]float64
	if err := json.Unmarshal(buf.Bytes(), &records); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(records) != 1 || !near(records[0]["std_r"], s.Std()[0]) {
		t.Fatalf("unexpected records %v", records)
	}
}

func TestGatherPropagatesReadErrors(t *testing.T) {
	source := media.SourceFunc(func(_ context.Context, clip meta.VideoMeta, _ []int) ([]image.Image, error) {
		return nil, vberr.Wrap(vberr.ErrMediaRead, "media", "read", clip.ID, nil)
	})
	table := meta.Table{{ID: "a", Length: 2}, {ID: "b", Length: 2}}
	if _, err := Gather(context.Background(), table, source, Options{Workers: 1}); !errors.Is(err, vberr.ErrMediaRead) {
		t.Fatalf("expected media read error, got %v", err)
	}
	if _, err := Gather(context.Background(), table, nil, Options{}); !errors.Is(err, vberr.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
