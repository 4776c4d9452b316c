package ocr

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"sort"
	"strings"

	"github.com/otiai10/gosseract/v2"
)

// Marker is a label printed beside the gauge tube.
type Marker string

const (
	MarkerFull         Marker = "FULL"
	MarkerThreeQuarter Marker = "3/4"
	MarkerHalf         Marker = "1/2"
	MarkerQuarter      Marker = "1/4"
	MarkerEmpty        Marker = "EMPTY"
)

// Markers lists the gauge labels from top to bottom.
var Markers = []Marker{MarkerFull, MarkerThreeQuarter, MarkerHalf, MarkerQuarter, MarkerEmpty}

// Percent returns the fill level the marker stands for.
func (m Marker) Percent() int {
	switch m {
	case MarkerFull:
		return 100
	case MarkerThreeQuarter:
		return 75
	case MarkerHalf:
		return 50
	case MarkerQuarter:
		return 25
	}
	return 0
}

// Bounds represents a rectangular bounding box in pixel coordinates.
type Bounds struct {
	X1 int `json:"x1"` // Left edge
	Y1 int `json:"y1"` // Top edge
	X2 int `json:"x2"` // Right edge
	Y2 int `json:"y2"` // Bottom edge
}

// TextRegion represents a word with its location and OCR confidence.
type TextRegion struct {
	Text string `json:"text"`

	// Confidence is the OCR confidence score (0.0 to 1.0).
	Confidence float64 `json:"confidence"`

	Bounds Bounds `json:"bounds"`
}

// OCRResult contains the complete results of text extraction from an image.
type OCRResult struct {
	// FullText is all recognized text with original spacing/newlines.
	FullText string `json:"full_text"`

	// Regions contains individual words. May be empty if bounding box
	// extraction fails (text will still be in FullText).
	Regions []TextRegion `json:"regions"`
}

// Label is a gauge marker located in the image.
type Label struct {
	Marker     Marker  `json:"marker"`
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
	Bounds     Bounds  `json:"bounds"`
}

// labelWhitelist limits recognition to characters that appear on the gauge.
const labelWhitelist = "FULEMPTY0123456789/"

// ExtractText performs OCR on an in-memory image.
//
// The image is PNG-encoded and handed to Tesseract with sparse-text page
// segmentation, which suits short labels scattered around a photo. language
// is a Tesseract language code such as "eng"; the language data must be
// installed. whitelist restricts the recognized characters when non-empty.
//
// If word-level bounding box extraction fails, the full text is still
// returned with an empty Regions slice.
func ExtractText(img image.Image, language, whitelist string) (*OCRResult, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode image for OCR: %w", err)
	}

	client := gosseract.NewClient()
	defer client.Close()

	if err := client.SetLanguage(language); err != nil {
		return nil, fmt.Errorf("failed to set language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_SPARSE_TEXT); err != nil {
		return nil, fmt.Errorf("failed to set page segmentation: %w", err)
	}
	if whitelist != "" {
		if err := client.SetWhitelist(whitelist); err != nil {
			return nil, fmt.Errorf("failed to set whitelist: %w", err)
		}
	}
	if err := client.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("failed to set image: %w", err)
	}

	text, err := client.Text()
	if err != nil {
		return nil, fmt.Errorf("OCR failed: %w", err)
	}

	offset := img.Bounds().Min
	boxes, err := client.GetBoundingBoxes(gosseract.RIL_WORD)
	if err != nil {
		return &OCRResult{FullText: text, Regions: []TextRegion{}}, nil
	}

	regions := make([]TextRegion, 0, len(boxes))
	for _, box := range boxes {
		if strings.TrimSpace(box.Word) == "" {
			continue
		}
		regions = append(regions, TextRegion{
			Text:       box.Word,
			Confidence: float64(box.Confidence) / 100.0,
			Bounds: Bounds{
				X1: box.Box.Min.X + offset.X,
				Y1: box.Box.Min.Y + offset.Y,
				X2: box.Box.Max.X + offset.X,
				Y2: box.Box.Max.Y + offset.Y,
			},
		})
	}

	return &OCRResult{FullText: text, Regions: regions}, nil
}

// FindLabels locates the gauge markers in img.
//
// Each marker is reported at most once (the most confident match), ordered
// from the top of the image down. Markers that Tesseract cannot read are
// simply absent.
func FindLabels(img image.Image, language string) ([]Label, error) {
	result, err := ExtractText(img, language, labelWhitelist)
	if err != nil {
		return nil, err
	}
	return labelsFromRegions(result.Regions), nil
}

// labelsFromRegions keeps the best region for each recognized marker.
func labelsFromRegions(regions []TextRegion) []Label {
	best := make(map[Marker]Label)
	for _, r := range regions {
		m, ok := matchMarker(r.Text)
		if !ok {
			continue
		}
		if cur, seen := best[m]; seen && cur.Confidence >= r.Confidence {
			continue
		}
		best[m] = Label{Marker: m, Text: r.Text, Confidence: r.Confidence, Bounds: r.Bounds}
	}

	labels := make([]Label, 0, len(best))
	for _, l := range best {
		labels = append(labels, l)
	}
	sort.Slice(labels, func(i, j int) bool {
		return labels[i].Bounds.Y1 < labels[j].Bounds.Y1
	})
	return labels
}

// matchMarker maps an OCR word to a marker, tolerating the usual misreads
// of "1" as "l" or "I" in the fractions.
func matchMarker(word string) (Marker, bool) {
	w := strings.ToUpper(strings.Trim(word, " .,:;|'\"-_"))
	if strings.Contains(w, "/") {
		w = strings.NewReplacer("L", "1", "I", "1").Replace(w)
	}

	for _, m := range Markers {
		if w == string(m) {
			return m, true
		}
	}
	return "", false
}

// OCRInfo contains information about the OCR subsystem.
type OCRInfo struct {
	Available bool   `json:"available"`
	Version   string `json:"version,omitempty"`
	Backend   string `json:"backend"`
}

// GetOCRInfo reports the Tesseract version linked into the binary.
func GetOCRInfo() OCRInfo {
	client := gosseract.NewClient()
	defer client.Close()

	version := client.Version()
	return OCRInfo{
		Available: version != "",
		Version:   version,
		Backend:   "gosseract",
	}
}
