package imaging

import (
	"image"
	"image/color"

	"github.com/anthonynsimon/bild/adjust"
	"github.com/anthonynsimon/bild/convolution"
	"github.com/disintegration/imaging"
)

// EnhanceParams holds the enhancement factors. A factor of 1.0 leaves the
// image unchanged; each factor is applied to the output of the previous step.
type EnhanceParams struct {
	Brightness float64 `yaml:"brightness"`
	Contrast   float64 `yaml:"contrast"`
	Sharpness  float64 `yaml:"sharpness"`
}

// DefaultEnhanceParams returns the factors used when enhancement is enabled.
func DefaultEnhanceParams() EnhanceParams {
	return EnhanceParams{
		Brightness: 1.3,
		Contrast:   1.4,
		Sharpness:  1.5,
	}
}

// Enhance applies brightness, contrast and sharpness in that order.
func Enhance(img image.Image, p EnhanceParams) *image.NRGBA {
	out := Brightness(img, p.Brightness)
	out = Contrast(out, p.Contrast)
	return Sharpness(out, p.Sharpness)
}

// Brightness scales every channel by factor (interpolation toward black).
func Brightness(img image.Image, factor float64) *image.NRGBA {
	return imaging.Clone(adjust.Brightness(img, factor-1))
}

// Contrast interpolates every channel away from the mean luminance of img:
//
//	out = mean + factor*(in - mean)
//
// where mean is the rounded average of the ITU-R 601 luma over all pixels.
func Contrast(img image.Image, factor float64) *image.NRGBA {
	mean := meanLuma(img)
	lookup := make([]uint8, 256)
	for i := range lookup {
		lookup[i] = clampRound(mean + factor*(float64(i)-mean))
	}
	return imaging.Clone(adjust.Apply(img, func(c color.RGBA) color.RGBA {
		return color.RGBA{R: lookup[c.R], G: lookup[c.G], B: lookup[c.B], A: c.A}
	}))
}

// smoothKernel is the 3x3 smoothing filter that sharpness interpolates against.
var smoothKernel = &convolution.Kernel{
	Matrix: []float64{
		1, 1, 1,
		1, 5, 1,
		1, 1, 1,
	},
	Width:  3,
	Height: 3,
}

// Sharpness interpolates between a smoothed copy of img and img itself:
//
//	out = smooth + factor*(in - smooth)
//
// Border pixels have no full neighbourhood and are copied unchanged.
func Sharpness(img image.Image, factor float64) *image.NRGBA {
	src := imaging.Clone(img)
	// Convolve truncates, the bias turns that into rounding
	smooth := convolution.Convolve(src, smoothKernel.Normalized(), &convolution.Options{Bias: 0.5, KeepAlpha: true})

	w, h := src.Rect.Dx(), src.Rect.Dy()
	dst := imaging.Clone(src)
	for y := 1; y < h-1; y++ {
		for x := 1; x < w-1; x++ {
			i := y*src.Stride + x*4
			j := y*smooth.Stride + x*4
			for c := 0; c < 3; c++ {
				s := float64(smooth.Pix[j+c])
				dst.Pix[i+c] = clampRound(s + factor*(float64(src.Pix[i+c])-s))
			}
		}
	}
	return dst
}

// meanLuma returns the rounded mean of L = (299R + 587G + 114B) / 1000.
func meanLuma(img image.Image) float64 {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	if w == 0 || h == 0 {
		return 0
	}
	var sum int64
	for y := 0; y < h; y++ {
		row := src.Pix[y*src.Stride : y*src.Stride+w*4]
		for x := 0; x < w; x++ {
			r, g, b := int64(row[x*4]), int64(row[x*4+1]), int64(row[x*4+2])
			sum += (r*299 + g*587 + b*114) / 1000
		}
	}
	return float64(int64(float64(sum)/float64(w*h) + 0.5))
}

func clampRound(v float64) uint8 {
	return clampChannel(v + 0.5)
}
