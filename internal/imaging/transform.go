package imaging

import (
	"bytes"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
)

// DefaultJPEGQuality is the encoding quality of frames handed to the model.
const DefaultJPEGQuality = 95

// TransformOptions describes how a raw camera frame becomes an analysis-ready
// frame. The numeric values are calibration for one physical camera mounting.
type TransformOptions struct {
	// FlipHorizontal mirrors the frame left-right before rotating.
	FlipHorizontal bool `yaml:"flip_horizontal"`

	// RotateDegrees rotates counter-clockwise for positive values. The canvas
	// grows to contain the whole rotated frame; exposed corners are white.
	RotateDegrees float64 `yaml:"rotate_degrees"`

	// Crop is applied in the coordinate space of the rotated frame. Nil keeps
	// the whole frame.
	Crop *CropRegion `yaml:"crop"`

	// Enhance applies brightness, contrast and sharpness.
	Enhance bool `yaml:"enhance"`

	// ReduceGlare applies glare suppression before enhancement.
	ReduceGlare bool `yaml:"reduce_glare"`

	Glare       GlareParams   `yaml:"glare"`
	Enhancement EnhanceParams `yaml:"enhancement"`

	// JPEGQuality of the encoded output (1-100). Zero means DefaultJPEGQuality.
	JPEGQuality int `yaml:"jpeg_quality"`
}

// DefaultTransformOptions returns the calibration for the current mounting:
// no flip, 55 degrees counter-clockwise, the gauge crop, glare suppression on
// and enhancement off.
func DefaultTransformOptions() TransformOptions {
	return TransformOptions{
		FlipHorizontal: false,
		RotateDegrees:  55,
		Crop:           &CropRegion{Left: 700, Top: 650, Right: 1300, Bottom: 1600},
		Enhance:        false,
		ReduceGlare:    true,
		Glare:          DefaultGlareParams(),
		Enhancement:    DefaultEnhanceParams(),
		JPEGQuality:    DefaultJPEGQuality,
	}
}

// ProcessedFrame is the exact image handed to the inference service.
type ProcessedFrame struct {
	// JPEG holds the encoded 3-channel frame.
	JPEG []byte

	// Width and Height of the encoded frame in pixels.
	Width  int
	Height int
}

// MimeType is always "image/jpeg".
func (f *ProcessedFrame) MimeType() string { return "image/jpeg" }

// Image decodes the processed frame.
func (f *ProcessedFrame) Image() (image.Image, error) {
	img, _, err := DecodeFrame(f.JPEG)
	return img, err
}

// Transform decodes raw and runs the full preprocessing chain.
//
// Steps run in a fixed order, each consuming the previous step's output:
// flatten to RGB, flip, rotate, crop, reduce glare, enhance, encode.
//
// # Errors
//
//   - ErrInvalidImage if raw cannot be decoded
//   - ErrInvalidCrop if the crop region is empty or outside the rotated frame
func Transform(raw []byte, opts TransformOptions) (*ProcessedFrame, error) {
	src, _, err := DecodeFrame(raw)
	if err != nil {
		return nil, err
	}

	img, err := TransformImage(src, opts)
	if err != nil {
		return nil, err
	}

	quality := opts.JPEGQuality
	if quality <= 0 {
		quality = DefaultJPEGQuality
	}
	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return nil, err
	}

	return &ProcessedFrame{
		JPEG:   data,
		Width:  img.Rect.Dx(),
		Height: img.Rect.Dy(),
	}, nil
}

// TransformImage runs the geometric and photometric steps on a decoded image
// without encoding the result.
func TransformImage(src image.Image, opts TransformOptions) (*image.NRGBA, error) {
	img := Orient(src, opts.FlipHorizontal, opts.RotateDegrees)

	if opts.Crop != nil {
		cropped, err := Crop(img, *opts.Crop)
		if err != nil {
			return nil, err
		}
		img = cropped
	}

	if opts.ReduceGlare {
		img = ReduceGlare(img, opts.Glare)
	}

	if opts.Enhance {
		img = Enhance(img, opts.Enhancement)
	}

	return img, nil
}

// Orient flattens src to RGB, then applies the optional mirror and rotation.
// Its output is the coordinate space crop regions are expressed in.
func Orient(src image.Image, flip bool, degrees float64) *image.NRGBA {
	img := ToRGB(src)
	if flip {
		img = imaging.FlipH(img)
	}
	if degrees != 0 {
		img = imaging.Rotate(img, degrees, Background)
	}
	return img
}

// EncodeJPEG encodes img with the given quality.
func EncodeJPEG(img image.Image, quality int) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(quality)); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}
	return buf.Bytes(), nil
}

// SaveScaledJPEG writes img to path resized by scale using Lanczos resampling.
func SaveScaledJPEG(img image.Image, path string, scale float64, quality int) error {
	if scale > 0 && scale != 1.0 {
		b := img.Bounds()
		w := int(float64(b.Dx()) * scale)
		h := int(float64(b.Dy()) * scale)
		if w < 1 {
			w = 1
		}
		if h < 1 {
			h = 1
		}
		img = imaging.Resize(img, w, h, imaging.Lanczos)
	}

	data, err := EncodeJPEG(img, quality)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write image: %w", err)
	}
	return nil
}
