package ffprobe

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"
)

const sampleJSON = `{
  "streams": [
    {"index": 0, "codec_name": "vp9", "codec_type": "video", "width": 427, "height": 240,
     "avg_frame_rate": "12/1", "r_frame_rate": "12/1", "nb_read_frames": "48"},
    {"index": 1, "codec_name": "opus", "codec_type": "audio"}
  ],
  "format": {"filename": "78687.webm", "nb_streams": 2, "duration": "4.000000", "format_name": "matroska,webm"}
}`

func TestParseVideoStream(t *testing.T) {
	result, err := Parse([]byte(sampleJSON))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	stream, ok := result.VideoStream()
	if !ok {
		t.Fatal("expected a video stream")
	}
	if stream.Width != 427 || stream.Height != 240 {
		t.Fatalf("unexpected dimensions %dx%d", stream.Width, stream.Height)
	}
	if stream.FrameRate() != 12 || stream.FrameRateNumerator() != 12 {
		t.Fatalf("unexpected frame rate %v / %d", stream.FrameRate(), stream.FrameRateNumerator())
	}
	if stream.FrameCount() != 48 {
		t.Fatalf("unexpected frame count %d", stream.FrameCount())
	}
	if result.VideoStreamCount() != 1 {
		t.Fatalf("expected 1 video stream, got %d", result.VideoStreamCount())
	}
	if result.DurationSeconds() != 4 {
		t.Fatalf("unexpected duration %v", result.DurationSeconds())
	}
	if len(result.RawJSON()) == 0 {
		t.Fatal("expected raw JSON to be retained")
	}
}

func TestFrameCountFallsBackToDuration(t *testing.T) {
	stream := Stream{Duration: "2.5", AvgFrameRate: "0/0", RFrameRate: "24000/1001"}
	if got := stream.FrameCount(); got != 60 {
		t.Fatalf("expected 60 estimated frames, got %d", got)
	}
	if got := (Stream{Duration: "bad"}).FrameCount(); got != 0 {
		t.Fatalf("expected 0 for unparsable duration, got %d", got)
	}
}

func TestDurationHandlesInvalidNumbers(t *testing.T) {
	result := Result{Format: Format{Duration: "bad"}}
	if !math.IsNaN(result.DurationSeconds()) {
		t.Fatalf("expected duration NaN, got %v", result.DurationSeconds())
	}
}

func TestInspectRunsBinary(t *testing.T) {
	dir := t.TempDir()
	payload := filepath.Join(dir, "out.json")
	if err := os.WriteFile(payload, []byte(sampleJSON), 0o644); err != nil {
		t.Fatalf("write payload: %v", err)
	}
	stub := filepath.Join(dir, "ffprobe")
	script := "#!/bin/sh\ncat " + payload + "\n"
	if err := os.WriteFile(stub, []byte(script), 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	result, err := CountFrames(context.Background(), stub, "clip.webm")
	if err != nil {
		t.Fatalf("CountFrames: %v", err)
	}
	if stream, _ := result.VideoStream(); stream.FrameCount() != 48 {
		t.Fatalf("unexpected frame count %d", stream.FrameCount())
	}
	if _, err := Inspect(context.Background(), stub, " "); err == nil {
		t.Fatal("expected error for empty path")
	}
}
