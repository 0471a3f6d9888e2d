package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os/exec"
	"strconv"
	"strings"

	"vidbunch/internal/logging"
	"vidbunch/internal/media/ffprobe"
	"vidbunch/internal/meta"
)

// Encoded extracts frames from an encoded video file with ffmpeg.
type Encoded struct {
	Root          string
	FFmpegBinary  string
	FFprobeBinary string
	logger        *slog.Logger
}

// SelectFilter builds an ffmpeg select expression matching exactly the given
// (sorted, distinct) frame numbers.
func SelectFilter(indices []int) string {
	terms := make([]string, len(indices))
	for i, idx := range indices {
		terms[i] = `eq(n\,` + strconv.Itoa(idx) + `)`
	}
	return "select='" + strings.Join(terms, "+") + "'"
}

// ReadFrames decodes the requested frames in one ffmpeg invocation.
func (e *Encoded) ReadFrames(ctx context.Context, clip meta.VideoMeta, indices []int) ([]image.Image, error) {
	if err := checkIndices(clip, indices); err != nil {
		return nil, err
	}
	path := resolve(e.Root, clip.Path)
	width, height, err := e.dimensions(ctx, clip, path)
	if err != nil {
		return nil, err
	}

	unique := uniqueSorted(indices)
	binary := strings.TrimSpace(e.FFmpegBinary)
	if binary == "" {
		binary = "ffmpeg"
	}
	args := []string{
		"-v", "error", "-nostdin",
		"-i", path,
		"-map", "0:v:0",
		"-vf", SelectFilter(unique),
		"-fps_mode", "passthrough",
		"-f", "rawvideo", "-pix_fmt", "rgb24",
		"pipe:1",
	}
	cmd := exec.CommandContext(ctx, binary, args...)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	output, err := cmd.Output()
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, mediaError(clip, "ffmpeg", strings.TrimSpace(stderr.String()), err)
	}

	frameBytes := width * height * 3
	if len(output) < frameBytes*len(unique) {
		return nil, mediaError(clip, "ffmpeg",
			fmt.Sprintf("expected %d frames of %dx%d, got %d bytes", len(unique), width, height, len(output)), nil)
	}

	decoded := make(map[int]image.Image, len(unique))
	for i, idx := range unique {
		decoded[idx] = rgb24ToImage(output[i*frameBytes:(i+1)*frameBytes], width, height)
	}
	if e.logger != nil {
		e.logger.Debug("frames extracted", slog.String(logging.FieldClipID, clip.ID), slog.Int("frames", len(unique)))
	}
	return expand(indices, decoded), nil
}

func (e *Encoded) dimensions(ctx context.Context, clip meta.VideoMeta, path string) (int, int, error) {
	if clip.Width > 0 && clip.Height > 0 {
		return clip.Width, clip.Height, nil
	}
	result, err := ffprobe.Inspect(ctx, e.FFprobeBinary, path)
	if err != nil {
		return 0, 0, mediaError(clip, "probe", path, err)
	}
	stream, ok := result.VideoStream()
	if !ok || stream.Width <= 0 || stream.Height <= 0 {
		return 0, 0, mediaError(clip, "probe", path, errors.New("no video stream with dimensions"))
	}
	return stream.Width, stream.Height, nil
}

func rgb24ToImage(buf []byte, width, height int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	for p, q := 0, 0; p < len(buf); p, q = p+3, q+4 {
		img.Pix[q] = buf[p]
		img.Pix[q+1] = buf[p+1]
		img.Pix[q+2] = buf[p+2]
		img.Pix[q+3] = 0xff
	}
	return img
}
