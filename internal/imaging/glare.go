package imaging

import (
	"image"

	"github.com/disintegration/imaging"
)

// GlareParams calibrates glare suppression for a particular camera mounting.
type GlareParams struct {
	// Threshold is the per-pixel RGB mean (0-255) above which a pixel is glare.
	Threshold float64 `yaml:"threshold"`

	// Reduction multiplies every channel of a glare pixel.
	Reduction float64 `yaml:"reduction"`

	// TopBand is the fraction of the image height, measured from the top,
	// that receives gradient darkening.
	TopBand float64 `yaml:"top_band"`

	// TopFactor is the darkening factor of the first row. The factor rises
	// linearly to 1.0 at the bottom edge of the band.
	TopFactor float64 `yaml:"top_factor"`
}

// DefaultGlareParams returns the calibration used for the infrared tube gauge.
func DefaultGlareParams() GlareParams {
	return GlareParams{
		Threshold: 220,
		Reduction: 0.7,
		TopBand:   0.4,
		TopFactor: 0.85,
	}
}

// ReduceGlare attenuates overexposed pixels and the lighting gradient near the
// top of the frame.
//
// The algorithm runs in two passes over the same float values:
//
//  1. Pixels whose mean of R, G and B exceeds p.Threshold have every channel
//     multiplied by p.Reduction. Other pixels are untouched by this pass.
//  2. Each row y inside the top band (y < int(height*p.TopBand)) is multiplied
//     by TopFactor + (1-TopFactor)*y/band, regardless of glare classification.
//
// Values are clipped to [0,255] and truncated to integers once at the end.
// Both factors are at most 1, so no channel value ever increases. The result
// has the same dimensions as img and is fully opaque.
func ReduceGlare(img image.Image, p GlareParams) *image.NRGBA {
	dst := imaging.Clone(img)
	w, h := dst.Rect.Dx(), dst.Rect.Dy()
	band := int(float64(h) * p.TopBand)

	for y := 0; y < h; y++ {
		rowFactor := 1.0
		if y < band {
			rowFactor = p.TopFactor + (1-p.TopFactor)*float64(y)/float64(band)
		}
		row := dst.Pix[y*dst.Stride : y*dst.Stride+w*4]
		for x := 0; x < w; x++ {
			px := row[x*4 : x*4+4 : x*4+4]
			r, g, b := float64(px[0]), float64(px[1]), float64(px[2])
			if (r+g+b)/3 > p.Threshold {
				r *= p.Reduction
				g *= p.Reduction
				b *= p.Reduction
			}
			px[0] = clampChannel(r * rowFactor)
			px[1] = clampChannel(g * rowFactor)
			px[2] = clampChannel(b * rowFactor)
			px[3] = 255
		}
	}

	return dst
}

// clampChannel clips v to [0,255] and truncates it toward zero.
func clampChannel(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 255 {
		return 255
	}
	return uint8(v)
}
