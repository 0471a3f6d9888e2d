// Package collate stacks dataset samples into batch tensors.
package collate

import (
	"fmt"
	"slices"

	"github.com/gomlx/gomlx/pkg/core/tensors"

	"vidbunch/internal/dataset"
	"vidbunch/internal/tensor"
	"vidbunch/internal/vberr"
)

// Batch is a collated set of samples. Videos has shape [B,T,C,H,W] and
// Labels holds one class id per sample.
type Batch struct {
	Videos  *tensor.Tensor
	Labels  []int64
	Clips   []*dataset.Video
	Targets []*dataset.Label
	// Indices are the dataset rows the samples came from, when known.
	Indices []int
}

// Size returns the number of samples in the batch.
func (b *Batch) Size() int { return len(b.Labels) }

// LabelShape returns [B].
func (b *Batch) LabelShape() []int { return []int{len(b.Labels)} }

// VideosGomlx converts the video tensor for a gomlx graph.
func (b *Batch) VideosGomlx() *tensors.Tensor { return b.Videos.Gomlx() }

// LabelsGomlx converts the labels into an int64 gomlx tensor of shape [B].
func (b *Batch) LabelsGomlx() *tensors.Tensor {
	return tensors.FromFlatDataAndDimensions(slices.Clone(b.Labels), len(b.Labels))
}

func (b *Batch) String() string {
	return fmt.Sprintf("Batch(videos=%v labels=%v)", b.Videos.Shape(), b.LabelShape())
}

// Collate stacks samples. Every sample must have the same frame count and
// per-frame shape as the first.
func Collate(samples []dataset.Sample) (*Batch, error) {
	if len(samples) == 0 {
		return nil, mismatch("empty batch")
	}
	first := samples[0].Video
	if first == nil || len(first.Frames) == 0 {
		return nil, mismatch("sample 0 has no frames")
	}
	frameShape := first.Frames[0].Shape()

	batch := &Batch{
		Labels:  make([]int64, len(samples)),
		Clips:   make([]*dataset.Video, len(samples)),
		Targets: make([]*dataset.Label, len(samples)),
	}
	stacks := make([]*tensor.Tensor, len(samples))
	for i, sample := range samples {
		if sample.Video == nil || sample.Label == nil {
			return nil, mismatch(fmt.Sprintf("sample %d is incomplete", i))
		}
		if got := len(sample.Video.Frames); got != len(first.Frames) {
			return nil, mismatch(fmt.Sprintf("sample %d (clip %s) has %d frames, expected %d",
				i, sample.Video.Meta.ID, got, len(first.Frames)))
		}
		for j, frame := range sample.Video.Frames {
			if shape := frame.Shape(); !slices.Equal(shape, frameShape) {
				return nil, mismatch(fmt.Sprintf("sample %d (clip %s) frame %d has shape %v, expected %v",
					i, sample.Video.Meta.ID, j, shape, frameShape))
			}
		}
		stack, err := sample.Video.Tensor()
		if err != nil {
			return nil, err
		}
		stacks[i] = stack
		batch.Labels[i] = int64(sample.Label.Data)
		batch.Clips[i] = sample.Video
		batch.Targets[i] = sample.Label
	}

	videos, err := tensor.Stack(stacks)
	if err != nil {
		return nil, err
	}
	batch.Videos = videos
	return batch, nil
}

func mismatch(msg string) error {
	return vberr.Wrap(vberr.ErrShapeMismatch, "collate", "stack", msg, nil)
}
