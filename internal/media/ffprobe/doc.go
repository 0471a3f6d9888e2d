// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// Key types:
//   - Result: parsed ffprobe output containing streams and format metadata
//   - Stream: individual stream properties, including frame counts and rates
//   - Format: container-level metadata (duration, size, bitrate)
//
// Entry points:
//   - Inspect: executes ffprobe and returns parsed Result
//   - CountFrames: like Inspect but decodes the first video stream so
//     containers without an nb_frames header (webm) still report a length
//
// Helper methods on Result provide access to the primary video stream,
// its dimensions, frame rate, and frame count.
package ffprobe
