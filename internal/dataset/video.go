package dataset

import (
	"context"
	"fmt"
	"image"
	"math/rand/v2"

	"vidbunch/internal/augment"
	"vidbunch/internal/media"
	"vidbunch/internal/meta"
	"vidbunch/internal/sampler"
	"vidbunch/internal/tensor"
	"vidbunch/internal/vberr"
)

// Video is one sampled clip. Raw holds decoded frames until Augment replaces
// them with Frames.
type Video struct {
	Meta        meta.VideoMeta
	Cut         float64
	Setting     sampler.Setting
	NumSegments int
	SegmentSize int
	Indices     []int
	Raw         []image.Image
	Params      augment.Params
	Frames      []*tensor.Tensor
}

// NewVideo samples frame indices for clip under policy.
func NewVideo(clip meta.VideoMeta, policy sampler.Policy, rng *rand.Rand) (*Video, error) {
	indices, err := policy.Sample(clip.Length, rng)
	if err != nil {
		return nil, vberr.Wrap(vberr.ErrConfiguration, "dataset", "sample", fmt.Sprintf("clip %s", clip.ID), err)
	}
	return &Video{
		Meta:        clip,
		Cut:         policy.Cut,
		Setting:     policy.Setting,
		NumSegments: policy.NumSegments,
		SegmentSize: policy.SegmentSize,
		Indices:     indices,
	}, nil
}

// Load decodes the sampled frames from source.
func (v *Video) Load(ctx context.Context, source media.Source) error {
	frames, err := source.ReadFrames(ctx, v.Meta, v.Indices)
	if err != nil {
		return err
	}
	if len(frames) != len(v.Indices) {
		return vberr.Wrap(vberr.ErrMediaRead, "dataset", "load",
			fmt.Sprintf("clip %s: source returned %d frames for %d indices", v.Meta.ID, len(frames), len(v.Indices)), nil)
	}
	v.Raw = frames
	return nil
}

// Augment draws one parameter set and applies it to every raw frame.
func (v *Video) Augment(pipeline augment.Pipeline, rng *rand.Rand) error {
	if len(v.Raw) == 0 {
		return vberr.Wrap(vberr.ErrMediaRead, "dataset", "augment", fmt.Sprintf("clip %s: no decoded frames", v.Meta.ID), nil)
	}
	bounds := v.Raw[0].Bounds()
	params, err := pipeline.Draw(rng, bounds.Dx(), bounds.Dy())
	if err != nil {
		return err
	}
	frames, err := pipeline.Apply(params, v.Raw)
	if err != nil {
		return vberr.Wrap(vberr.ErrShapeMismatch, "dataset", "augment", fmt.Sprintf("clip %s", v.Meta.ID), err)
	}
	v.Params = params
	v.Frames = frames
	v.Raw = nil
	return nil
}

// Tensor stacks the augmented frames into a [T,3,S,S] tensor.
func (v *Video) Tensor() (*tensor.Tensor, error) {
	return tensor.Stack(v.Frames)
}

func (v *Video) String() string {
	return fmt.Sprintf("Video(%s, %s, %d frames)", v.Meta.ID, v.Setting, len(v.Indices))
}
