// Package stats computes per-channel pixel statistics over a dataset.
//
// Summaries hold the mean and population variance of each RGB channel on the
// [0,1] scale together with the observation count. Partial summaries from
// different clips or workers combine with Merge using the pairwise update, so
// the result does not depend on how the work was split.
package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"image"
	"io"
	"log/slog"
	"math"
	"sync"

	"vidbunch/internal/logging"
	"vidbunch/internal/media"
	"vidbunch/internal/meta"
	"vidbunch/internal/sampler"
	"vidbunch/internal/vberr"
)

// Channels holds one value per RGB channel.
type Channels [3]float64

// Summary is the running statistic of a set of pixels.
type Summary struct {
	Mean  Channels
	Var   Channels
	Count float64
}

// Std returns the per-channel standard deviation.
func (s Summary) Std() Channels {
	var out Channels
	for c := range out {
		out[c] = math.Sqrt(s.Var[c])
	}
	return out
}

// Merge combines two summaries.
func (s Summary) Merge(o Summary) Summary {
	if o.Count == 0 {
		return s
	}
	if s.Count == 0 {
		return o
	}
	n := s.Count + o.Count
	wa, wb := s.Count/n, o.Count/n
	var out Summary
	out.Count = n
	for c := range out.Mean {
		delta := o.Mean[c] - s.Mean[c]
		out.Mean[c] = wa*s.Mean[c] + wb*o.Mean[c]
		out.Var[c] = wa*s.Var[c] + wb*o.Var[c] + wa*wb*delta*delta
	}
	return out
}

// FromImages summarizes every pixel of imgs.
func FromImages(imgs []image.Image) Summary {
	var sum, sumSq Channels
	var count float64
	for _, img := range imgs {
		b := img.Bounds()
		for y := b.Min.Y; y < b.Max.Y; y++ {
			for x := b.Min.X; x < b.Max.X; x++ {
				r, g, bl, _ := img.At(x, y).RGBA()
				px := Channels{float64(r>>8) / 255, float64(g>>8) / 255, float64(bl>>8) / 255}
				for c := range px {
					sum[c] += px[c]
					sumSq[c] += px[c] * px[c]
				}
				count++
			}
		}
	}
	if count == 0 {
		return Summary{}
	}
	s := Summary{Count: count}
	for c := range sum {
		s.Mean[c] = sum[c] / count
		s.Var[c] = max(0, sumSq[c]/count-s.Mean[c]*s.Mean[c])
	}
	return s
}

// Options configures Gather.
type Options struct {
	Workers int
	// FramesPerClip limits each clip to that many evenly spaced frames; zero
	// reads every frame.
	FramesPerClip int
	// Progress is called after each clip with the number finished so far.
	Progress func(done, total int)
	Logger   *slog.Logger
}

// Gather reads the frames of every clip in table from source and returns
// the merged summary.
func Gather(ctx context.Context, table meta.Table, source media.Source, opts Options) (Summary, error) {
	if source == nil {
		return Summary{}, vberr.Configf("stats", "frame source is required")
	}
	if opts.FramesPerClip < 0 {
		return Summary{}, vberr.Configf("stats", "frames per clip must not be negative, received %d", opts.FramesPerClip)
	}
	workers := max(1, opts.Workers)
	logger := logging.WithContext(ctx, logging.NewComponentLogger(opts.Logger, "stats"))

	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	clips := make(chan meta.VideoMeta)
	partial := make([]Summary, workers)
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		done int
	)
	for w := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for clip := range clips {
				s, err := clipSummary(ctx, clip, source, opts.FramesPerClip)
				if err != nil {
					cancel(err)
					return
				}
				partial[w] = partial[w].Merge(s)

				mu.Lock()
				done++
				n := done
				mu.Unlock()
				if opts.Progress != nil {
					opts.Progress(n, len(table))
				}
			}
		}()
	}

feed:
	for _, clip := range table {
		select {
		case clips <- clip:
		case <-ctx.Done():
			break feed
		}
	}
	close(clips)
	wg.Wait()

	if err := context.Cause(ctx); err != nil {
		return Summary{}, err
	}
	var total Summary
	for _, s := range partial {
		total = total.Merge(s)
	}
	logger.Info("channel statistics gathered",
		slog.Int("clips", len(table)),
		slog.Float64("pixels", total.Count),
	)
	return total, nil
}

func clipSummary(ctx context.Context, clip meta.VideoMeta, source media.Source, perClip int) (Summary, error) {
	if clip.Length <= 0 {
		return Summary{}, vberr.Configf("stats", "clip %s has no frames", clip.ID)
	}
	var indices []int
	if perClip > 0 && perClip < clip.Length {
		policy := sampler.Policy{Cut: 1, Setting: sampler.SettingEval, NumSegments: perClip, SegmentSize: 1}
		var err error
		if indices, err = policy.Sample(clip.Length, nil); err != nil {
			return Summary{}, err
		}
	} else {
		indices = make([]int, clip.Length)
		for i := range indices {
			indices[i] = i
		}
	}
	frames, err := source.ReadFrames(ctx, clip, indices)
	if err != nil {
		return Summary{}, err
	}
	return FromImages(frames), nil
}

// Record is the JSON form of a summary, one column per channel statistic.
type Record struct {
	MeanR float64 `json:"mean_r"`
	MeanG float64 `json:"mean_g"`
	MeanB float64 `json:"mean_b"`
	VarR  float64 `json:"var_r"`
	VarG  float64 `json:"var_g"`
	VarB  float64 `json:"var_b"`
	StdR  float64 `json:"std_r"`
	StdG  float64 `json:"std_g"`
	StdB  float64 `json:"std_b"`
	Count float64 `json:"count"`
}

// Record converts s for serialization.
func (s Summary) Record() Record {
	std := s.Std()
	return Record{
		MeanR: s.Mean[0], MeanG: s.Mean[1], MeanB: s.Mean[2],
		VarR: s.Var[0], VarG: s.Var[1], VarB: s.Var[2],
		StdR: std[0], StdG: std[1], StdB: std[2],
		Count: s.Count,
	}
}

// WriteJSON writes s as a single-element records array.
func WriteJSON(w io.Writer, s Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode([]Record{s.Record()}); err != nil {
		return fmt.Errorf("encode stats: %w", err)
	}
	return nil
}
