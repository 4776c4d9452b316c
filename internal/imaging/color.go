package imaging

import (
	"image"
	"math"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
)

// GlareReport summarizes how much of a frame glare suppression would touch.
//
// Lightness values are CIE L* in the range 0-100, which tracks perceived
// brightness more closely than the raw RGB mean used for classification.
type GlareReport struct {
	// GlarePixels is the number of pixels whose RGB mean exceeds the threshold.
	GlarePixels int `json:"glare_pixels"`

	// GlarePercent is GlarePixels as a percentage of all pixels.
	GlarePercent float64 `json:"glare_percent"`

	// TopBandGlarePercent is the glare percentage within the darkened top band.
	TopBandGlarePercent float64 `json:"top_band_glare_percent"`

	// TopBandLightness is the mean L* of the top band.
	TopBandLightness float64 `json:"top_band_lightness"`

	// LowerLightness is the mean L* below the top band.
	LowerLightness float64 `json:"lower_lightness"`

	// BrightestRow is the row with the highest mean L*. On an infrared capture
	// this is usually either the float or a reflection mimicking it.
	BrightestRow int `json:"brightest_row"`
}

// AnalyzeGlare measures glare in img using the same classification as
// ReduceGlare. It does not modify img.
func AnalyzeGlare(img image.Image, p GlareParams) *GlareReport {
	src := imaging.Clone(img)
	w, h := src.Rect.Dx(), src.Rect.Dy()
	band := int(float64(h) * p.TopBand)

	report := &GlareReport{}
	if w == 0 || h == 0 {
		return report
	}

	var bandGlare int
	var bandL, lowerL float64
	bestRowL := -1.0

	for y := 0; y < h; y++ {
		var rowL float64
		for x := 0; x < w; x++ {
			c := src.NRGBAAt(x, y)
			if (float64(c.R)+float64(c.G)+float64(c.B))/3 > p.Threshold {
				report.GlarePixels++
				if y < band {
					bandGlare++
				}
			}
			cf, _ := colorful.MakeColor(c)
			l, _, _ := cf.Lab()
			rowL += l * 100
		}
		if y < band {
			bandL += rowL
		} else {
			lowerL += rowL
		}
		if mean := rowL / float64(w); mean > bestRowL {
			bestRowL = mean
			report.BrightestRow = y
		}
	}

	report.GlarePercent = round2(float64(report.GlarePixels) / float64(w*h) * 100)
	if band > 0 {
		report.TopBandGlarePercent = round2(float64(bandGlare) / float64(w*band) * 100)
		report.TopBandLightness = round2(bandL / float64(w*band))
	}
	if h > band {
		report.LowerLightness = round2(lowerL / float64(w*(h-band)))
	}
	return report
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
