package detection

import (
	"image"
	"math"
	"sort"
)

// BandKind classifies a horizontal band.
type BandKind int

const (
	// BandFloat is darker than the background, like the float disc.
	BandFloat BandKind = iota
	// BandReflection is brighter than the background, like glare on the tube.
	BandReflection
)

func (k BandKind) String() string {
	if k == BandReflection {
		return "reflection"
	}
	return "float"
}

// Band is a run of rows that stands out from the background.
type Band struct {
	Top       int `json:"top"`    // first row (inclusive)
	Bottom    int `json:"bottom"` // last row (exclusive)
	Thickness int `json:"thickness"`

	// MeanLuma is the average row brightness inside the band (0-255).
	MeanLuma float64 `json:"mean_luma"`

	// Contrast is MeanLuma minus the background; negative for dark bands.
	Contrast float64 `json:"contrast"`

	// EdgeSharpness is the average brightness step across the top and bottom
	// edges. The float has crisp edges; glare tends to fade in.
	EdgeSharpness float64 `json:"edge_sharpness"`

	// PositionPercent is the band center as height above the bottom edge.
	PositionPercent float64 `json:"position_percent"`

	Kind BandKind `json:"kind"`
}

// BandOptions tunes the band finder.
type BandOptions struct {
	// Delta is the minimum brightness difference from the background.
	Delta float64 `yaml:"delta"`
	// MinThickness drops runs thinner than this many rows.
	MinThickness int `yaml:"min_thickness"`
}

// DefaultBandOptions returns settings tuned for the cropped gauge tube.
func DefaultBandOptions() BandOptions {
	return BandOptions{Delta: 25, MinThickness: 2}
}

// BandsResult contains detected bands ordered from top to bottom.
type BandsResult struct {
	Bands      []Band  `json:"bands"`
	Count      int     `json:"count"`
	Background float64 `json:"background"`
}

// FindBands scans the row profile of img for horizontal bands.
func FindBands(img image.Image, opts BandOptions) *BandsResult {
	bounds := img.Bounds()
	width := bounds.Dx()
	height := bounds.Dy()
	if width == 0 || height == 0 {
		return &BandsResult{Bands: []Band{}}
	}

	profile := rowProfile(img, width, height)
	background := median(profile)

	sign := func(y int) int {
		d := profile[y] - background
		switch {
		case d > opts.Delta:
			return 1
		case d < -opts.Delta:
			return -1
		}
		return 0
	}

	bands := make([]Band, 0)
	for y := 0; y < height; {
		s := sign(y)
		if s == 0 {
			y++
			continue
		}
		top := y
		for y < height && sign(y) == s {
			y++
		}
		bottom := y

		if bottom-top < opts.MinThickness {
			continue
		}
		bands = append(bands, measureBand(profile, background, top, bottom, s))
	}

	// Report image coordinates
	for i := range bands {
		bands[i].Top += bounds.Min.Y
		bands[i].Bottom += bounds.Min.Y
	}

	return &BandsResult{
		Bands:      bands,
		Count:      len(bands),
		Background: math.Round(background*10) / 10,
	}
}

// FloatCandidate returns the float band with the strongest edges, or nil
// when only reflections were found.
func (r *BandsResult) FloatCandidate() *Band {
	var best *Band
	for i := range r.Bands {
		b := &r.Bands[i]
		if b.Kind != BandFloat {
			continue
		}
		if best == nil || b.EdgeSharpness > best.EdgeSharpness {
			best = b
		}
	}
	return best
}

// Reflections returns the bright bands.
func (r *BandsResult) Reflections() []Band {
	out := make([]Band, 0)
	for _, b := range r.Bands {
		if b.Kind == BandReflection {
			out = append(out, b)
		}
	}
	return out
}

// measureBand fills in the statistics for rows [top, bottom).
func measureBand(profile []float64, background float64, top, bottom, sign int) Band {
	height := len(profile)

	sum := 0.0
	for y := top; y < bottom; y++ {
		sum += profile[y]
	}
	mean := sum / float64(bottom-top)

	steps, n := 0.0, 0
	if top > 0 {
		steps += math.Abs(profile[top] - profile[top-1])
		n++
	}
	if bottom < height {
		steps += math.Abs(profile[bottom-1] - profile[bottom])
		n++
	}
	sharpness := 0.0
	if n > 0 {
		sharpness = steps / float64(n)
	}

	center := float64(top+bottom) / 2
	kind := BandFloat
	if sign > 0 {
		kind = BandReflection
	}

	return Band{
		Top:             top,
		Bottom:          bottom,
		Thickness:       bottom - top,
		MeanLuma:        math.Round(mean*10) / 10,
		Contrast:        math.Round((mean-background)*10) / 10,
		EdgeSharpness:   math.Round(sharpness*10) / 10,
		PositionPercent: math.Round((float64(height)-center)/float64(height)*1000) / 10,
		Kind:            kind,
	}
}

// rowProfile returns the mean gray value of each row.
func rowProfile(img image.Image, width, height int) []float64 {
	bounds := img.Bounds()
	profile := make([]float64, height)
	for y := 0; y < height; y++ {
		sum := 0
		for x := 0; x < width; x++ {
			sum += int(grayValue(img, x+bounds.Min.X, y+bounds.Min.Y))
		}
		profile[y] = float64(sum) / float64(width)
	}
	return profile
}

// grayValue converts a pixel to grayscale using ITU-R 601 luma weights.
func grayValue(img image.Image, x, y int) uint8 {
	r, g, b, _ := img.At(x, y).RGBA()
	return uint8((float64(r>>8)*0.299 + float64(g>>8)*0.587 + float64(b>>8)*0.114))
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}
