package media

import (
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"vidbunch/internal/meta"
	"vidbunch/internal/vberr"
)

func writePNG(t *testing.T, path string, shade uint8) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	img := image.NewRGBA(image.Rect(0, 0, 6, 4))
	for y := 0; y < 4; y++ {
		for x := 0; x < 6; x++ {
			img.SetRGBA(x, y, color.RGBA{R: shade, G: shade, B: shade, A: 0xff})
		}
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatalf("encode: %v", err)
	}
}

func TestFrameDirReadsRequestedFramesOnly(t *testing.T) {
	root := t.TempDir()
	clip := meta.VideoMeta{ID: "42", Path: "42", Length: 10}
	// Only frames 2 and 5 exist (1-based names 00003, 00006).
	writePNG(t, filepath.Join(root, "42", "00003.png"), 30)
	writePNG(t, filepath.Join(root, "42", "00006.png"), 60)

	source := NewSource(Options{Root: root, ReadFromFrames: true, FramePattern: "%05d.png", FrameIndexBase: 1})
	frames, err := source.ReadFrames(context.Background(), clip, []int{2, 2, 5, 5})
	if err != nil {
		t.Fatalf("ReadFrames: %v", err)
	}
	if len(frames) != 4 {
		t.Fatalf("expected 4 frames, got %d", len(frames))
	}
	if frames[0] != frames[1] {
		t.Fatal("expected repeated indices to share the decoded image")
	}
	r, _, _, _ := frames[2].At(0, 0).RGBA()
	if uint8(r>>8) != 60 {
		t.Fatalf("expected frame 5 shade 60, got %d", r>>8)
	}
}

func TestFrameDirMissingFrameIsMediaReadError(t *testing.T) {
	root := t.TempDir()
	clip := meta.VideoMeta{ID: "7", Path: "7", Length: 10}
	writePNG(t, filepath.Join(root, "7", "00001.jpg"), 10)
	source := &FrameDir{Root: root}
	_, err := source.ReadFrames(context.Background(), clip, []int{0, 4})
	if !errors.Is(err, vberr.ErrMediaRead) {
		t.Fatalf("expected media read error, got %v", err)
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected not-exist cause, got %v", err)
	}
}

func TestFrameDirCorruptFrame(t *testing.T) {
	root := t.TempDir()
	clip := meta.VideoMeta{ID: "9", Path: "9", Length: 3}
	path := filepath.Join(root, "9", "00001.jpg")
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("not an image"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	_, err := (&FrameDir{Root: root}).ReadFrames(context.Background(), clip, []int{0})
	if !errors.Is(err, vberr.ErrMediaRead) {
		t.Fatalf("expected media read error, got %v", err)
	}
}

func TestIndicesOutsideClipAreRejected(t *testing.T) {
	clip := meta.VideoMeta{ID: "1", Length: 3}
	for _, indices := range [][]int{nil, {-1}, {3}} {
		if _, err := (&FrameDir{}).ReadFrames(context.Background(), clip, indices); !errors.Is(err, vberr.ErrMediaRead) {
			t.Fatalf("indices %v: expected media read error, got %v", indices, err)
		}
	}
}

func TestSelectFilter(t *testing.T) {
	got := SelectFilter([]int{3, 17})
	want := `select='eq(n\,3)+eq(n\,17)'`
	if got != want {
		t.Fatalf("SelectFilter = %q, want %q", got, want)
	}
}

func writeStub(t *testing.T, script string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	return path
}

func TestEncodedDecodesRawFrames(t *testing.T) {
	// Two distinct 2x1 frames: 12 bytes of rgb24.
	stub := writeStub(t, `printf '\001\002\003\004\005\006\007\010\011\012\013\014'`)
	source := &Encoded{FFmpegBinary: stub}
	clip := meta.VideoMeta{ID: "5", Path: "5.webm", Length: 20, Width: 2, Height: 1}
	frames, err := source.ReadFrames(context.Background(), clip, []int{8, 3, 3})
	if err != nil {
		t.Fatalf("ReadFrames: %v", err)
	}
	// Frame 3 is first in the ffmpeg output, frame 8 second.
	r, g, b, _ := frames[1].At(1, 0).RGBA()
	if r>>8 != 4 || g>>8 != 5 || b>>8 != 6 {
		t.Fatalf("unexpected frame 3 pixel: %d %d %d", r>>8, g>>8, b>>8)
	}
	r, _, _, _ = frames[0].At(0, 0).RGBA()
	if r>>8 != 7 {
		t.Fatalf("unexpected frame 8 pixel: %d", r>>8)
	}
	if frames[1] != frames[2] {
		t.Fatal("expected repeated index to share image")
	}
}

func TestEncodedShortOutputIsMediaReadError(t *testing.T) {
	stub := writeStub(t, `printf '\001\002\003'`)
	source := &Encoded{FFmpegBinary: stub}
	clip := meta.VideoMeta{ID: "5", Path: "5.webm", Length: 20, Width: 2, Height: 1}
	if _, err := source.ReadFrames(context.Background(), clip, []int{1, 2}); !errors.Is(err, vberr.ErrMediaRead) {
		t.Fatalf("expected media read error, got %v", err)
	}
}

func TestEncodedFailingBinaryIsMediaReadError(t *testing.T) {
	stub := writeStub(t, `echo "No such file or directory" >&2; exit 1`)
	source := &Encoded{FFmpegBinary: stub}
	clip := meta.VideoMeta{ID: "5", Path: "missing.webm", Length: 20, Width: 2, Height: 1}
	_, err := source.ReadFrames(context.Background(), clip, []int{1})
	if !errors.Is(err, vberr.ErrMediaRead) {
		t.Fatalf("expected media read error, got %v", err)
	}
}

func TestEncodedProbesUnknownDimensions(t *testing.T) {
	dir := t.TempDir()
	probe := filepath.Join(dir, "ffprobe")
	probeJSON := `{"streams":[{"codec_type":"video","width":1,"height":1}],"format":{}}`
	if err := os.WriteFile(probe, []byte("#!/bin/sh\necho '"+probeJSON+"'\n"), 0o755); err != nil {
		t.Fatalf("write probe stub: %v", err)
	}
	stub := writeStub(t, `printf '\011\012\013'`)
	source := &Encoded{FFmpegBinary: stub, FFprobeBinary: probe}
	frames, err := source.ReadFrames(context.Background(), meta.VideoMeta{ID: "x", Path: "x.webm", Length: 4}, []int{0})
	if err != nil {
		t.Fatalf("ReadFrames: %v", err)
	}
	if frames[0].Bounds().Dx() != 1 || frames[0].Bounds().Dy() != 1 {
		t.Fatalf("unexpected bounds %v", frames[0].Bounds())
	}
}
