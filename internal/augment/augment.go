package augment

import (
	"fmt"
	"image"
	"image/color"
	"math"
	"math/rand/v2"
	"runtime"

	"gocv.io/x/gocv"

	"vidbunch/internal/sampler"
	"vidbunch/internal/tensor"
	"vidbunch/internal/vberr"
)

const (
	// Channels is the number of colour channels in every output frame.
	Channels = 3
	// MaxBrightness bounds the additive brightness jitter.
	MaxBrightness = 25
	// MaxHueSaturation bounds the additive hue/saturation jitter.
	MaxHueSaturation = 25
	flipProbability  = 0.5
	// hueRange is the span of the 8-bit OpenCV hue channel.
	hueRange = 180
)

// Pipeline describes the transform sequence for one setting.
type Pipeline struct {
	Setting   sampler.Setting
	FrameSize int
}

// New validates the frame size and setting.
func New(setting sampler.Setting, frameSize int) (Pipeline, error) {
	if frameSize <= 0 {
		return Pipeline{}, vberr.Configf("augment", "frame_size must be positive, received %d", frameSize)
	}
	if setting != sampler.SettingTrain && setting != sampler.SettingEval {
		return Pipeline{}, vberr.Configf("augment", "unknown setting %q", setting)
	}
	return Pipeline{Setting: setting, FrameSize: frameSize}, nil
}

// Params is one frozen draw of every transform parameter.
type Params struct {
	SrcWidth, SrcHeight int
	Size                int
	PadLeft, PadTop     int
	CropX, CropY        int
	FlipH, FlipV        bool
	Brightness          int
	HueSaturation       int
}

// Draw samples the parameters for a source of w×h pixels. Eval pipelines
// ignore rng; train pipelines require it.
func (p Pipeline) Draw(rng *rand.Rand, w, h int) (Params, error) {
	if w <= 0 || h <= 0 {
		return Params{}, vberr.Wrap(vberr.ErrShapeMismatch, "augment", "draw", fmt.Sprintf("empty frame %dx%d", w, h), nil)
	}
	train := p.Setting == sampler.SettingTrain
	if train && rng == nil {
		return Params{}, vberr.Configf("augment", "train augmentation requires a random source")
	}
	params := Params{SrcWidth: w, SrcHeight: h, Size: p.FrameSize}

	params.PadLeft = padBefore(p.FrameSize-w, train, rng)
	params.PadTop = padBefore(p.FrameSize-h, train, rng)
	params.CropX = cropOffset(max(w, p.FrameSize)-p.FrameSize, train, rng)
	params.CropY = cropOffset(max(h, p.FrameSize)-p.FrameSize, train, rng)

	if train {
		params.FlipH = rng.Float64() < flipProbability
		params.FlipV = rng.Float64() < flipProbability
		params.Brightness = rng.IntN(2*MaxBrightness+1) - MaxBrightness
		params.HueSaturation = rng.IntN(2*MaxHueSaturation+1) - MaxHueSaturation
	}
	return params, nil
}

func padBefore(missing int, random bool, rng *rand.Rand) int {
	if missing <= 0 {
		return 0
	}
	if random {
		return rng.IntN(missing + 1)
	}
	return missing / 2
}

func cropOffset(excess int, random bool, rng *rand.Rand) int {
	if excess <= 0 {
		return 0
	}
	if random {
		return rng.IntN(excess + 1)
	}
	return excess / 2
}

// CropBox returns the output window in source-image coordinates. It extends
// past the source bounds where padding was added.
func (pr Params) CropBox() image.Rectangle {
	x0 := pr.CropX - pr.PadLeft
	y0 := pr.CropY - pr.PadTop
	return image.Rect(x0, y0, x0+pr.Size, y0+pr.Size)
}

// Apply transforms one frame. The frame must have the size the parameters
// were drawn for.
func (pr Params) Apply(img image.Image) (*tensor.Tensor, error) {
	bounds := img.Bounds()
	if bounds.Dx() != pr.SrcWidth || bounds.Dy() != pr.SrcHeight {
		return nil, vberr.Wrap(vberr.ErrShapeMismatch, "augment", "apply",
			fmt.Sprintf("frame is %dx%d, parameters drawn for %dx%d", bounds.Dx(), bounds.Dy(), pr.SrcWidth, pr.SrcHeight), nil)
	}
	src, err := rgbMat(img)
	if err != nil {
		return nil, vberr.Wrap(vberr.ErrShapeMismatch, "augment", "apply", "convert frame", err)
	}
	defer src.Close()

	padded := gocv.NewMat()
	defer padded.Close()
	right := max(0, pr.Size-pr.SrcWidth) - pr.PadLeft
	bottom := max(0, pr.Size-pr.SrcHeight) - pr.PadTop
	gocv.CopyMakeBorder(src, &padded, pr.PadTop, bottom, pr.PadLeft, right, gocv.BorderConstant, color.RGBA{})

	window := padded.Region(image.Rect(pr.CropX, pr.CropY, pr.CropX+pr.Size, pr.CropY+pr.Size))
	defer window.Close()

	frame := gocv.NewMat()
	defer frame.Close()
	if code, ok := pr.flipCode(); ok {
		gocv.Flip(window, &frame, code)
	} else {
		window.CopyTo(&frame)
	}

	if pr.Brightness != 0 {
		brightened := gocv.NewMat()
		defer brightened.Close()
		frame.ConvertToWithParams(&brightened, gocv.MatTypeCV8UC3, 1, float32(pr.Brightness))
		frame, brightened = brightened, frame
	}
	if pr.HueSaturation != 0 {
		shifted := gocv.NewMat()
		defer shifted.Close()
		if err := shiftHueSaturation(frame, &shifted, pr.HueSaturation); err != nil {
			return nil, err
		}
		frame, shifted = shifted, frame
	}
	return toTensor(frame, pr.Size)
}

// flipCode maps the flip decisions onto the gocv.Flip axis argument.
func (pr Params) flipCode() (int, bool) {
	switch {
	case pr.FlipH && pr.FlipV:
		return -1, true
	case pr.FlipH:
		return 1, true
	case pr.FlipV:
		return 0, true
	default:
		return 0, false
	}
}

// Apply runs one Params over every frame of a sample.
func (p Pipeline) Apply(params Params, frames []image.Image) ([]*tensor.Tensor, error) {
	out := make([]*tensor.Tensor, len(frames))
	for i, frame := range frames {
		t, err := params.Apply(frame)
		if err != nil {
			return nil, fmt.Errorf("frame %d: %w", i, err)
		}
		out[i] = t
	}
	return out, nil
}

// rgbMat packs img into an owned 8-bit RGB Mat.
func rgbMat(img image.Image) (gocv.Mat, error) {
	b := img.Bounds()
	buf := make([]byte, 0, b.Dx()*b.Dy()*Channels)
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			r, g, bl := rgbAt(img, x, y)
			buf = append(buf, r, g, bl)
		}
	}
	view, err := gocv.NewMatFromBytes(b.Dy(), b.Dx(), gocv.MatTypeCV8UC3, buf)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer view.Close()
	// view borrows buf; the clone owns its pixels.
	owned := view.Clone()
	runtime.KeepAlive(buf)
	return owned, nil
}

func rgbAt(img image.Image, x, y int) (uint8, uint8, uint8) {
	switch src := img.(type) {
	case *image.RGBA:
		i := src.PixOffset(x, y)
		return src.Pix[i], src.Pix[i+1], src.Pix[i+2]
	case *image.NRGBA:
		c := src.NRGBAAt(x, y)
		if c.A == 0xff {
			return c.R, c.G, c.B
		}
	case *image.YCbCr:
		c := src.YCbCrAt(x, y)
		return color.YCbCrToRGB(c.Y, c.Cb, c.Cr)
	}
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8(r >> 8), uint8(g >> 8), uint8(b >> 8)
}

// toTensor converts an interleaved size×size RGB Mat into a [3,S,S] tensor
// scaled to [0,1].
func toTensor(frame gocv.Mat, size int) (*tensor.Tensor, error) {
	if frame.Empty() || frame.Rows() != size || frame.Cols() != size || frame.Channels() != Channels {
		return nil, vberr.Wrap(vberr.ErrShapeMismatch, "augment", "apply",
			fmt.Sprintf("transformed frame is %dx%dx%d, want %dx%dx%d", frame.Rows(), frame.Cols(), frame.Channels(), size, size, Channels), nil)
	}
	pix, err := frame.DataPtrUint8()
	if err != nil {
		return nil, vberr.Wrap(vberr.ErrShapeMismatch, "augment", "apply", "read pixels", err)
	}
	plane := size * size
	out := tensor.New(Channels, size, size)
	data := out.Data()
	for i := range plane {
		for c := range Channels {
			data[c*plane+i] = float32(pix[i*Channels+c]) / 255
		}
	}
	return out, nil
}

func clip255(v int) uint8 {
	switch {
	case v < 0:
		return 0
	case v > 255:
		return 255
	default:
		return uint8(v)
	}
}

// shiftHueSaturation adds value to the hue and saturation of an RGB frame.
// value is on the 0-255 scale; hue wraps within its 8-bit range and
// saturation clips.
func shiftHueSaturation(src gocv.Mat, dst *gocv.Mat, value int) error {
	table, err := hueSaturationTable(value)
	if err != nil {
		return vberr.Wrap(vberr.ErrShapeMismatch, "augment", "hue/saturation", "build lookup table", err)
	}
	defer table.Close()

	hsv := gocv.NewMat()
	defer hsv.Close()
	gocv.CvtColor(src, &hsv, gocv.ColorRGBToHSV)
	shifted := gocv.NewMat()
	defer shifted.Close()
	gocv.LUT(hsv, table, &shifted)
	gocv.CvtColor(shifted, dst, gocv.ColorHSVToRGB)
	return nil
}

// hueSaturationTable builds the per-channel lookup for H, S and V.
func hueSaturationTable(value int) (gocv.Mat, error) {
	shift := int(math.Round(float64(value) * hueRange / 255))
	buf := make([]byte, 256*Channels)
	for i := range 256 {
		h := i
		if i < hueRange {
			h = ((i+shift)%hueRange + hueRange) % hueRange
		}
		buf[i*Channels] = uint8(h)
		buf[i*Channels+1] = clip255(i + value)
		buf[i*Channels+2] = uint8(i)
	}
	view, err := gocv.NewMatFromBytes(1, 256, gocv.MatTypeCV8UC3, buf)
	if err != nil {
		return gocv.Mat{}, err
	}
	defer view.Close()
	owned := view.Clone()
	runtime.KeepAlive(buf)
	return owned, nil
}
