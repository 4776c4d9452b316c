// Package imaging turns raw camera frames into the image handed to the gauge
// reading model.
//
// The central entry point is Transform, which runs a fixed chain of steps on
// one frame:
//
//  1. Decode and flatten to opaque RGB (transparency composited over white)
//  2. Optional horizontal mirror
//  3. Optional counter-clockwise rotation on an expanded white canvas
//  4. Optional crop in the rotated frame's coordinates
//  5. Optional glare suppression (ReduceGlare)
//  6. Optional brightness, contrast and sharpness enhancement (Enhance)
//  7. JPEG encoding at quality 95
//
// # Coordinate System
//
// All pixel coordinates in this package are 0-based with the origin at the
// top-left corner. Crop regions are half-open: (Left,Top) is inclusive and
// (Right,Bottom) is exclusive. Crop regions always refer to the frame after
// flip and rotation, which is the image Orient returns and the image the
// calibration grid is drawn on.
//
// # Calibration
//
// Rotation angle, crop box, glare threshold and enhancement factors depend on
// how the camera is mounted. DefaultTransformOptions holds the values for the
// current mounting; callers may override any of them.
//
// # Error Handling
//
// Transform fails with ErrInvalidImage for undecodable input and with
// ErrInvalidCrop for an empty or out-of-bounds crop. Crop regions are never
// clamped. Every other step is total over valid images.
//
// # Thread Safety
//
// Functions in this package are stateless and never modify their input
// images, so they may be called concurrently.
package imaging
