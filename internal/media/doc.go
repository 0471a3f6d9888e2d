// Package media decodes the sampled frames of a clip.
//
// Two sources are provided: FrameDir reads pre-extracted images from a
// per-clip directory, and Encoded pipes the selected frames of an encoded
// video out of ffmpeg as raw RGB. Both decode only the requested indices and
// report any missing, unreadable, or truncated frame as vberr.ErrMediaRead.
// Repeated indices in a request share one decoded image.
package media
