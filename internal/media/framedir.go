package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"vidbunch/internal/logging"
	"vidbunch/internal/meta"
)

// DefaultFramePattern names extracted frames 00001.jpg, 00002.jpg, ...
const DefaultFramePattern = "%05d.jpg"

// FrameDir reads frames from <Root>/<clip.Path>/<Pattern % (index+IndexBase)>.
type FrameDir struct {
	Root      string
	Pattern   string
	IndexBase int
	logger    *slog.Logger
}

// FramePath returns the file holding frame idx of the clip.
func (f *FrameDir) FramePath(clip meta.VideoMeta, idx int) string {
	pattern := strings.TrimSpace(f.Pattern)
	if pattern == "" {
		pattern = DefaultFramePattern
	}
	return filepath.Join(resolve(f.Root, clip.Path), fmt.Sprintf(pattern, idx+f.IndexBase))
}

// ReadFrames decodes each distinct requested frame once.
func (f *FrameDir) ReadFrames(ctx context.Context, clip meta.VideoMeta, indices []int) ([]image.Image, error) {
	if err := checkIndices(clip, indices); err != nil {
		return nil, err
	}
	decoded := make(map[int]image.Image, len(indices))
	var bounds image.Rectangle
	for _, idx := range uniqueSorted(indices) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		path := f.FramePath(clip, idx)
		img, err := decodeFile(path)
		if err != nil {
			return nil, mediaError(clip, "decode frame", fmt.Sprintf("frame %d (%s)", idx, path), err)
		}
		if len(decoded) == 0 {
			bounds = img.Bounds()
		} else if img.Bounds().Size() != bounds.Size() {
			return nil, mediaError(clip, "decode frame",
				fmt.Sprintf("frame %d is %v, earlier frames are %v", idx, img.Bounds().Size(), bounds.Size()), nil)
		}
		decoded[idx] = img
	}
	if f.logger != nil {
		f.logger.Debug("frames decoded", slog.String(logging.FieldClipID, clip.ID), slog.Int("frames", len(decoded)))
	}
	return expand(indices, decoded), nil
}

func decodeFile(path string) (image.Image, error) {
	file, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("missing frame file: %w", err)
		}
		return nil, err
	}
	defer file.Close()
	img, _, err := image.Decode(file)
	if err != nil {
		return nil, fmt.Errorf("corrupt frame file: %w", err)
	}
	return img, nil
}
