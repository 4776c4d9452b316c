package imaging

import (
	"fmt"
	"image"

	"github.com/disintegration/imaging"
)

// CropRegion is a rectangle in the coordinate space of the rotated frame.
//
// Left and Top are inclusive, Right and Bottom are exclusive, so the cropped
// frame is exactly (Right-Left) x (Bottom-Top) pixels.
type CropRegion struct {
	Left   int `yaml:"left" json:"left"`
	Top    int `yaml:"top" json:"top"`
	Right  int `yaml:"right" json:"right"`
	Bottom int `yaml:"bottom" json:"bottom"`
}

// Width returns the width of the region in pixels.
func (r CropRegion) Width() int { return r.Right - r.Left }

// Height returns the height of the region in pixels.
func (r CropRegion) Height() int { return r.Bottom - r.Top }

// Rect converts the region to an image.Rectangle.
func (r CropRegion) Rect() image.Rectangle {
	return image.Rect(r.Left, r.Top, r.Right, r.Bottom)
}

func (r CropRegion) String() string {
	return fmt.Sprintf("(%d,%d)-(%d,%d)", r.Left, r.Top, r.Right, r.Bottom)
}

// Validate checks that the region is non-empty and lies within bounds.
// The returned error wraps ErrInvalidCrop.
func (r CropRegion) Validate(bounds image.Rectangle) error {
	if r.Left >= r.Right || r.Top >= r.Bottom {
		return fmt.Errorf("%w: region %s must have right > left and bottom > top", ErrInvalidCrop, r)
	}
	if r.Left < bounds.Min.X || r.Top < bounds.Min.Y || r.Right > bounds.Max.X || r.Bottom > bounds.Max.Y {
		return fmt.Errorf("%w: region %s outside image bounds (%d,%d)-(%d,%d)",
			ErrInvalidCrop, r, bounds.Min.X, bounds.Min.Y, bounds.Max.X, bounds.Max.Y)
	}
	return nil
}

// Crop extracts exactly the region from img. Regions that do not fit the
// image are rejected rather than clamped, so a caller never receives a
// partially cropped frame.
func Crop(img image.Image, region CropRegion) (*image.NRGBA, error) {
	if err := region.Validate(img.Bounds()); err != nil {
		return nil, err
	}
	return imaging.Crop(img, region.Rect()), nil
}
