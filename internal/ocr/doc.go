// Package ocr locates the printed labels on the gauge (FULL, 3/4, 1/2, 1/4,
// EMPTY) using Tesseract.
//
// Label positions let the operator check a calibration: after rotation and
// cropping, FULL should sit near the top of the processed image and EMPTY
// near the bottom, evenly spaced.
//
// # Prerequisites
//
// Tesseract and its English language data must be installed:
//   - Ubuntu/Debian: apt-get install tesseract-ocr tesseract-ocr-eng libtesseract-dev
//   - macOS: brew install tesseract
//
// The package is only used by the calibrate command; routine readings never
// call Tesseract.
package ocr
