// Package detection finds horizontal features in a processed gauge image.
//
// A float gauge viewed from the side shows the float as a thick horizontal
// band across the tube. Infrared lighting adds bright reflections that look
// similar, mostly near the top. The band finder lists every horizontal band
// that stands out from the background so an operator calibrating the crop and
// glare settings can see which features the model will have to tell apart.
//
// # Algorithm Overview
//
//  1. Row profile: mean grayscale value of every row (ITU-R 601 weights)
//  2. Background: the median of the row profile
//  3. Runs: contiguous rows that differ from the background by more than
//     Delta in the same direction form a band
//  4. Classification: bands darker than the background are float
//     candidates, brighter bands are reflections
//
// # Coordinate System
//
// All coordinates use the standard image convention:
//   - Origin (0, 0) at top-left corner
//   - Y increases downward
//   - Band Top is inclusive, Bottom is exclusive
//
// PositionPercent converts a band center into height above the bottom edge
// of the image (0 at the bottom, 100 at the top), which matches the gauge
// scale when the crop spans EMPTY to FULL.
//
// # Limitations
//
// The profile averages whole rows, so the crop should be tight around the
// tube. Wide crops dilute the float against the background.
package detection
