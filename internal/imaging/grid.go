package imaging

import (
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// DefaultGridColor is the line color of calibration grids.
const DefaultGridColor = "#FF000080"

// GridOptions controls the calibration grid.
type GridOptions struct {
	// Spacing between grid lines in pixels.
	Spacing int

	// Labels prints "x,y" at every intersection.
	Labels bool

	// Color is "#RRGGBB" or "#RRGGBBAA". An unparsable value falls back to
	// semi-transparent red.
	Color string

	// Crop, when set, is outlined so the current calibration can be checked
	// against the frame.
	Crop *CropRegion
}

// DefaultGridOptions returns a labeled 50 pixel grid.
func DefaultGridOptions() GridOptions {
	return GridOptions{Spacing: 50, Labels: true, Color: DefaultGridColor}
}

var (
	fallbackGridColor = color.NRGBA{255, 0, 0, 128}
	cropOutlineColor  = color.NRGBA{0, 255, 0, 255}
	labelForeground   = color.NRGBA{255, 255, 255, 255}
	labelBackground   = color.NRGBA{0, 0, 0, 180}
)

const cropOutlineWidth = 3

// GridOverlay draws a coordinate grid over img, which should be the output of
// Orient. Labels are in the frame's own coordinates, so the numbers read off
// the grid are exactly the values a CropRegion expects. img is not modified.
func GridOverlay(img image.Image, opts GridOptions) (*image.NRGBA, error) {
	if opts.Spacing <= 0 {
		return nil, fmt.Errorf("grid spacing must be positive, got %d", opts.Spacing)
	}

	lineColor, err := parseHexColor(opts.Color)
	if err != nil {
		lineColor = fallbackGridColor
	}

	// Clone rebases the image to (0,0)
	result := imaging.Clone(img)
	width := result.Rect.Dx()
	height := result.Rect.Dy()

	for x := opts.Spacing; x < width; x += opts.Spacing {
		fillRect(result, image.Rect(x, 0, x+1, height), lineColor)
	}
	for y := opts.Spacing; y < height; y += opts.Spacing {
		fillRect(result, image.Rect(0, y, width, y+1), lineColor)
	}

	if opts.Crop != nil {
		outlineRect(result, opts.Crop.Rect(), cropOutlineWidth, cropOutlineColor)
	}

	if opts.Labels {
		for y := opts.Spacing; y < height; y += opts.Spacing {
			for x := opts.Spacing; x < width; x += opts.Spacing {
				drawLabel(result, x+2, y+2, strconv.Itoa(x)+","+strconv.Itoa(y))
			}
		}
	}

	return result, nil
}

// parseHexColor parses "#RRGGBB" or "#RRGGBBAA"; the leading '#' is optional.
func parseHexColor(hex string) (color.NRGBA, error) {
	hex = strings.TrimPrefix(hex, "#")

	alpha := uint8(255)
	switch len(hex) {
	case 6:
	case 8:
		a, err := strconv.ParseUint(hex[6:], 16, 8)
		if err != nil {
			return color.NRGBA{}, fmt.Errorf("invalid alpha in color %q: %w", hex, err)
		}
		alpha = uint8(a)
		hex = hex[:6]
	default:
		return color.NRGBA{}, fmt.Errorf("invalid hex color length: %q", hex)
	}

	c, err := colorful.Hex("#" + hex)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid hex color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.NRGBA{R: r, G: g, B: b, A: alpha}, nil
}

// drawLabel writes text on a translucent box whose top-left corner is (x, y).
func drawLabel(img *image.NRGBA, x, y int, text string) {
	face := basicfont.Face7x13
	w := font.MeasureString(face, text).Ceil()
	h := face.Height

	fillRect(img, image.Rect(x-1, y-1, x+w+1, y+h), labelBackground)

	d := &font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelForeground),
		Face: face,
		Dot:  fixed.P(x, y+face.Ascent),
	}
	d.DrawString(text)
}

// outlineRect draws a border of the given width just inside r.
func outlineRect(img *image.NRGBA, r image.Rectangle, width int, c color.NRGBA) {
	fillRect(img, image.Rect(r.Min.X, r.Min.Y, r.Max.X, r.Min.Y+width), c)
	fillRect(img, image.Rect(r.Min.X, r.Max.Y-width, r.Max.X, r.Max.Y), c)
	fillRect(img, image.Rect(r.Min.X, r.Min.Y+width, r.Min.X+width, r.Max.Y-width), c)
	fillRect(img, image.Rect(r.Max.X-width, r.Min.Y+width, r.Max.X, r.Max.Y-width), c)
}

// fillRect blends c over every pixel of r that lies inside img.
func fillRect(img *image.NRGBA, r image.Rectangle, c color.NRGBA) {
	r = r.Intersect(img.Rect)
	for y := r.Min.Y; y < r.Max.Y; y++ {
		for x := r.Min.X; x < r.Max.X; x++ {
			blend(img, x, y, c)
		}
	}
}

// blend composites c over the pixel at (x, y) using c's alpha.
func blend(img *image.NRGBA, x, y int, c color.NRGBA) {
	i := img.PixOffset(x, y)
	a := float64(c.A) / 255
	px := img.Pix[i : i+4 : i+4]
	px[0] = uint8(float64(c.R)*a + float64(px[0])*(1-a) + 0.5)
	px[1] = uint8(float64(c.G)*a + float64(px[1])*(1-a) + 0.5)
	px[2] = uint8(float64(c.B)*a + float64(px[2])*(1-a) + 0.5)
	px[3] = 255
}
