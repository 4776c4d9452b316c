package imaging

import (
	"errors"
	"image/color"
	"testing"
)

func TestCrop(t *testing.T) {
	img := createPatternImage(100, 100)

	result, err := Crop(img, CropRegion{Left: 0, Top: 0, Right: 50, Bottom: 40})
	if err != nil {
		t.Fatalf("Crop failed: %v", err)
	}

	if result.Bounds().Dx() != 50 || result.Bounds().Dy() != 40 {
		t.Errorf("dimensions: got %dx%d, want 50x40", result.Bounds().Dx(), result.Bounds().Dy())
	}
}

func TestCrop_OutOfBounds(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name   string
		region CropRegion
	}{
		{"left negative", CropRegion{-1, 0, 50, 50}},
		{"top negative", CropRegion{0, -1, 50, 50}},
		{"right too large", CropRegion{0, 0, 101, 50}},
		{"bottom too large", CropRegion{0, 0, 50, 101}},
		{"all out of bounds", CropRegion{-1, -1, 200, 200}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Crop(img, tt.region)
			if !errors.Is(err, ErrInvalidCrop) {
				t.Errorf("Crop(%v) error = %v, want ErrInvalidCrop", tt.region, err)
			}
			if result != nil {
				t.Error("Crop returned a partial image for an invalid region")
			}
		})
	}
}

func TestCrop_InvalidRegion(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	tests := []struct {
		name   string
		region CropRegion
	}{
		{"left == right", CropRegion{50, 0, 50, 50}},
		{"left > right", CropRegion{60, 0, 50, 50}},
		{"top == bottom", CropRegion{0, 50, 50, 50}},
		{"top > bottom", CropRegion{0, 60, 50, 50}},
		{"zero area", CropRegion{50, 50, 50, 50}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Crop(img, tt.region)
			if !errors.Is(err, ErrInvalidCrop) {
				t.Errorf("Crop(%v) error = %v, want ErrInvalidCrop", tt.region, err)
			}
		})
	}
}

func TestCrop_FullImage(t *testing.T) {
	img := createInMemoryImage(100, 100, color.RGBA{255, 0, 0, 255})

	result, err := Crop(img, CropRegion{0, 0, 100, 100})
	if err != nil {
		t.Fatalf("Crop full image failed: %v", err)
	}

	if result.Bounds().Dx() != 100 || result.Bounds().Dy() != 100 {
		t.Errorf("dimensions: got %dx%d, want 100x100", result.Bounds().Dx(), result.Bounds().Dy())
	}
}

func TestCrop_VerifyContent(t *testing.T) {
	img := createPatternImage(100, 100)

	tests := []struct {
		name   string
		region CropRegion
		wantR  uint8
		wantG  uint8
		wantB  uint8
	}{
		{"top-left", CropRegion{0, 0, 50, 50}, 255, 0, 0},
		{"top-right", CropRegion{50, 0, 100, 50}, 0, 255, 0},
		{"bottom-left", CropRegion{0, 50, 50, 100}, 0, 0, 255},
		{"bottom-right", CropRegion{50, 50, 100, 100}, 255, 255, 255},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := Crop(img, tt.region)
			if err != nil {
				t.Fatalf("Crop failed: %v", err)
			}

			// Cropped images are rebased to (0,0)
			r, g, b := rgb8(result.At(25, 25))
			if r != tt.wantR || g != tt.wantG || b != tt.wantB {
				t.Errorf("color: got (%d,%d,%d), want (%d,%d,%d)", r, g, b, tt.wantR, tt.wantG, tt.wantB)
			}
		})
	}
}

func TestCropRegion_Size(t *testing.T) {
	r := CropRegion{Left: 700, Top: 650, Right: 1300, Bottom: 1600}
	if r.Width() != 600 || r.Height() != 950 {
		t.Errorf("size: got %dx%d, want 600x950", r.Width(), r.Height())
	}
	if got := r.String(); got != "(700,650)-(1300,1600)" {
		t.Errorf("String() = %q", got)
	}
}
