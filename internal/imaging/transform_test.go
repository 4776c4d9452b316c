package imaging

import (
	"errors"
	"image"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestTransform_NoSteps(t *testing.T) {
	raw := encodePNG(t, createPatternImage(200, 100))

	frame, err := Transform(raw, TransformOptions{})
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}

	if frame.Width != 200 || frame.Height != 100 {
		t.Errorf("dimensions: got %dx%d, want 200x100", frame.Width, frame.Height)
	}
	if frame.MimeType() != "image/jpeg" {
		t.Errorf("MimeType: got %s, want image/jpeg", frame.MimeType())
	}

	img, err := frame.Image()
	if err != nil {
		t.Fatalf("processed frame does not decode: %v", err)
	}
	if _, ok := img.(*image.YCbCr); !ok {
		t.Errorf("processed frame decoded as %T, want 3-channel *image.YCbCr", img)
	}
}

func TestTransform_CropDimensions(t *testing.T) {
	raw := encodeJPEG(t, createGradientImage(160, 120))

	tests := []struct {
		name string
		opts TransformOptions
		w, h int
	}{
		{"crop only", TransformOptions{Crop: &CropRegion{10, 20, 60, 80}}, 50, 60},
		{"crop with glare", TransformOptions{Crop: &CropRegion{0, 0, 160, 120}, ReduceGlare: true, Glare: DefaultGlareParams()}, 160, 120},
		{"crop with enhance", TransformOptions{Crop: &CropRegion{5, 5, 25, 45}, Enhance: true, Enhancement: DefaultEnhanceParams()}, 20, 40},
		{"rotate 90 then crop", TransformOptions{RotateDegrees: 90, Crop: &CropRegion{0, 0, 120, 160}}, 120, 160},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Transform(raw, tt.opts)
			if err != nil {
				t.Fatalf("Transform failed: %v", err)
			}

			img, err := frame.Image()
			if err != nil {
				t.Fatalf("decode failed: %v", err)
			}
			if img.Bounds().Dx() != tt.w || img.Bounds().Dy() != tt.h {
				t.Errorf("dimensions: got %dx%d, want %dx%d", img.Bounds().Dx(), img.Bounds().Dy(), tt.w, tt.h)
			}
		})
	}
}

func TestTransform_RotationExpandsCanvas(t *testing.T) {
	src := createInMemoryImage(200, 100, color.RGBA{0, 0, 0, 255})

	img := Orient(src, false, 55)

	rad := 55 * math.Pi / 180
	wantW := 200*math.Cos(rad) + 100*math.Sin(rad)
	wantH := 200*math.Sin(rad) + 100*math.Cos(rad)

	if math.Abs(float64(img.Bounds().Dx())-wantW) > 2 || math.Abs(float64(img.Bounds().Dy())-wantH) > 2 {
		t.Errorf("rotated size: got %dx%d, want about %.0fx%.0f",
			img.Bounds().Dx(), img.Bounds().Dy(), wantW, wantH)
	}

	// Exposed corners are filled with the white background
	if r, g, b := rgb8(img.At(0, 0)); r != 255 || g != 255 || b != 255 {
		t.Errorf("corner: got (%d,%d,%d), want white", r, g, b)
	}
}

func TestOrient_RotationIsCounterClockwise(t *testing.T) {
	// Red top-left quadrant ends up bottom-left after a 90 degree CCW turn
	img := Orient(createPatternImage(100, 100), false, 90)

	if r, g, b := rgb8(img.At(25, 75)); r != 255 || g != 0 || b != 0 {
		t.Errorf("bottom-left after rotation: got (%d,%d,%d), want red", r, g, b)
	}
}

func TestOrient_Flip(t *testing.T) {
	img := Orient(createPatternImage(100, 100), true, 0)

	// Green top-right quadrant moves to the top-left
	if r, g, b := rgb8(img.At(10, 10)); r != 0 || g != 255 || b != 0 {
		t.Errorf("top-left after flip: got (%d,%d,%d), want green", r, g, b)
	}
	// Column x maps to width-1-x
	if r, g, b := rgb8(img.At(99, 10)); r != 255 || g != 0 || b != 0 {
		t.Errorf("top-right after flip: got (%d,%d,%d), want red", r, g, b)
	}
}

func TestTransform_CropOutsideRotatedFrame(t *testing.T) {
	raw := encodePNG(t, createInMemoryImage(100, 100, color.RGBA{10, 20, 30, 255}))

	tests := []struct {
		name string
		opts TransformOptions
	}{
		{"right beyond frame", TransformOptions{Crop: &CropRegion{0, 0, 101, 50}}},
		{"right <= left", TransformOptions{Crop: &CropRegion{50, 0, 50, 50}}},
		{"fits original but not rotated", TransformOptions{RotateDegrees: 90, Crop: &CropRegion{0, 0, 100, 101}}},
		{"gauge crop on small frame", DefaultTransformOptions()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			frame, err := Transform(raw, tt.opts)
			if !errors.Is(err, ErrInvalidCrop) {
				t.Fatalf("error = %v, want ErrInvalidCrop", err)
			}
			if frame != nil {
				t.Error("Transform returned a frame for an invalid crop")
			}
		})
	}
}

func TestTransform_InvalidImage(t *testing.T) {
	tests := []struct {
		name string
		raw  []byte
	}{
		{"nil", nil},
		{"empty", []byte{}},
		{"garbage", []byte("definitely not an image")},
		{"truncated png", encodePNG(t, createPatternImage(10, 10))[:20]},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Transform(tt.raw, DefaultTransformOptions())
			if !errors.Is(err, ErrInvalidImage) {
				t.Errorf("error = %v, want ErrInvalidImage", err)
			}
		})
	}
}

func TestToRGB_CompositesOverWhite(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 3, 1))
	img.SetNRGBA(0, 0, color.NRGBA{0, 0, 0, 0})       // transparent
	img.SetNRGBA(1, 0, color.NRGBA{0, 0, 0, 128})     // half black
	img.SetNRGBA(2, 0, color.NRGBA{200, 10, 10, 255}) // opaque

	out := ToRGB(img)

	if c := out.NRGBAAt(0, 0); c.R != 255 || c.G != 255 || c.B != 255 || c.A != 255 {
		t.Errorf("transparent pixel: got %v, want opaque white", c)
	}
	if c := out.NRGBAAt(1, 0); c.R < 125 || c.R > 129 || c.A != 255 {
		t.Errorf("half transparent black: got %v, want mid gray", c)
	}
	if c := out.NRGBAAt(2, 0); c.R != 200 || c.G != 10 || c.B != 10 {
		t.Errorf("opaque pixel: got %v, want {200 10 10 255}", c)
	}
}

func TestTransform_DefaultGaugeCalibration(t *testing.T) {
	if testing.Short() {
		t.Skip("full-size frame")
	}

	// A 1920x1080 frame rotated 55 degrees is about 1986x2193, which
	// contains the default crop box.
	raw := encodeJPEG(t, createGradientImage(1920, 1080))

	frame, err := Transform(raw, DefaultTransformOptions())
	if err != nil {
		t.Fatalf("Transform failed: %v", err)
	}
	if frame.Width != 600 || frame.Height != 950 {
		t.Errorf("dimensions: got %dx%d, want 600x950", frame.Width, frame.Height)
	}
}

func TestSaveScaledJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "half.jpg")

	if err := SaveScaledJPEG(createPatternImage(100, 60), path, 0.5, 90); err != nil {
		t.Fatalf("SaveScaledJPEG failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read failed: %v", err)
	}
	_, info, err := DecodeFrame(data)
	if err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if info.Width != 50 || info.Height != 30 || info.Format != "jpeg" {
		t.Errorf("got %dx%d %s, want 50x30 jpeg", info.Width, info.Height, info.Format)
	}
}
