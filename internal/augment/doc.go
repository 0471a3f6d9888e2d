// Package augment applies per-sample geometric and photometric transforms to video frames.
//
// A Pipeline draws every random decision for one sample up front into a
// Params value (pad split, crop offset, flips, brightness and hue/saturation
// shifts). Params.Apply is a pure function of the frame, so replaying the same
// Params over all frames of a clip guarantees they share one crop box, one
// flip decision, and one colour jitter. The eval pipeline is centred pad and
// crop only and never consults a random source.
//
// Frames are replayed through OpenCV via gocv: CopyMakeBorder for zero
// padding, Mat.Region for the crop, Flip, a saturating ConvertTo for
// brightness, and an HSV lookup table for the hue/saturation shift.
//
// Output frames are channel-first float32 tensors of shape [3, S, S] with
// values in [0, 1].
package augment
