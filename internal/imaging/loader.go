package imaging

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/gif"  // Register GIF format decoder
	_ "image/jpeg" // Register JPEG format decoder
	_ "image/png"  // Register PNG format decoder
	"os"

	"github.com/disintegration/imaging"
)

var (
	// ErrInvalidImage reports a frame that is empty or cannot be decoded.
	ErrInvalidImage = errors.New("invalid image")

	// ErrInvalidCrop reports a crop region that is empty or does not fit
	// inside the rotated frame.
	ErrInvalidCrop = errors.New("invalid crop region")
)

// Background is the opaque fill used both when flattening transparency and
// for the corners exposed by rotation.
var Background = color.NRGBA{R: 255, G: 255, B: 255, A: 255}

// FrameInfo contains metadata about an encoded camera frame.
type FrameInfo struct {
	// Width is the frame width in pixels.
	Width int `json:"width"`

	// Height is the frame height in pixels.
	Height int `json:"height"`

	// Format is the format name reported by the decoder ("jpeg", "png", "gif").
	Format string `json:"format"`

	// HasAlpha indicates whether the decoded color model carries transparency.
	HasAlpha bool `json:"has_alpha"`

	// SizeBytes is the size of the encoded frame.
	SizeBytes int `json:"size_bytes"`
}

// DecodeFrame decodes an encoded frame.
//
// Returns:
//   - image.Image: The decoded image. The concrete type depends on the format
//     (typically *image.YCbCr for camera JPEGs, *image.NRGBA for PNGs).
//   - *FrameInfo: Dimensions and format of the frame.
//   - error: Wraps ErrInvalidImage if data is empty or undecodable.
func DecodeFrame(data []byte) (image.Image, *FrameInfo, error) {
	if len(data) == 0 {
		return nil, nil, fmt.Errorf("%w: empty frame", ErrInvalidImage)
	}

	img, format, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("%w: failed to decode image: %v", ErrInvalidImage, err)
	}

	hasAlpha := false
	switch img.(type) {
	case *image.RGBA, *image.NRGBA, *image.RGBA64, *image.NRGBA64, *image.Paletted:
		hasAlpha = true
	}

	bounds := img.Bounds()
	return img, &FrameInfo{
		Width:     bounds.Dx(),
		Height:    bounds.Dy(),
		Format:    format,
		HasAlpha:  hasAlpha,
		SizeBytes: len(data),
	}, nil
}

// LoadFrameFile reads an encoded frame from disk without decoding it.
func LoadFrameFile(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read image: %w", err)
	}
	return data, nil
}

// ToRGB flattens img onto an opaque white canvas using standard "over"
// compositing, so translucent pixels blend toward white instead of black.
// The result always has A=255 and origin (0,0).
func ToRGB(img image.Image) *image.NRGBA {
	bounds := img.Bounds()
	canvas := imaging.New(bounds.Dx(), bounds.Dy(), Background)
	return imaging.Overlay(canvas, img, image.Pt(0, 0), 1.0)
}
