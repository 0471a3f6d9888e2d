package media

import (
	"context"
	"fmt"
	"image"
	"log/slog"
	"path/filepath"
	"slices"

	"vidbunch/internal/logging"
	"vidbunch/internal/meta"
	"vidbunch/internal/vberr"
)

// Source reads the frames at the given indices of one clip. The result has
// one image per requested index, in request order.
type Source interface {
	ReadFrames(ctx context.Context, clip meta.VideoMeta, indices []int) ([]image.Image, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context, clip meta.VideoMeta, indices []int) ([]image.Image, error)

// ReadFrames calls f.
func (f SourceFunc) ReadFrames(ctx context.Context, clip meta.VideoMeta, indices []int) ([]image.Image, error) {
	return f(ctx, clip, indices)
}

// Options configures NewSource.
type Options struct {
	Root           string
	ReadFromFrames bool
	FramePattern   string
	FrameIndexBase int
	FFmpegBinary   string
	FFprobeBinary  string
	Logger         *slog.Logger
}

// NewSource returns a FrameDir or Encoded source depending on ReadFromFrames.
func NewSource(opts Options) Source {
	logger := logging.NewComponentLogger(opts.Logger, "media")
	if opts.ReadFromFrames {
		return &FrameDir{
			Root:      opts.Root,
			Pattern:   opts.FramePattern,
			IndexBase: opts.FrameIndexBase,
			logger:    logger,
		}
	}
	return &Encoded{
		Root:          opts.Root,
		FFmpegBinary:  opts.FFmpegBinary,
		FFprobeBinary: opts.FFprobeBinary,
		logger:        logger,
	}
}

// resolve joins a clip path onto root unless it is already absolute.
func resolve(root, path string) string {
	if filepath.IsAbs(path) || root == "" {
		return path
	}
	return filepath.Join(root, path)
}

// uniqueSorted returns the distinct indices in ascending order.
func uniqueSorted(indices []int) []int {
	out := slices.Clone(indices)
	slices.Sort(out)
	return slices.Compact(out)
}

// expand maps decoded unique frames back to the requested order.
func expand(indices []int, decoded map[int]image.Image) []image.Image {
	out := make([]image.Image, len(indices))
	for i, idx := range indices {
		out[i] = decoded[idx]
	}
	return out
}

func checkIndices(clip meta.VideoMeta, indices []int) error {
	if len(indices) == 0 {
		return vberr.Wrap(vberr.ErrMediaRead, "media", "read", fmt.Sprintf("clip %s: no frames requested", clip.ID), nil)
	}
	for _, idx := range indices {
		if idx < 0 || (clip.Length > 0 && idx >= clip.Length) {
			return vberr.Wrap(vberr.ErrMediaRead, "media", "read",
				fmt.Sprintf("clip %s: frame %d outside clip of %d frames", clip.ID, idx, clip.Length), nil)
		}
	}
	return nil
}

func mediaError(clip meta.VideoMeta, operation string, detail string, err error) error {
	return vberr.Wrap(vberr.ErrMediaRead, "media", operation, fmt.Sprintf("clip %s: %s", clip.ID, detail), err)
}
