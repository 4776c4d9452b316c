// Package gauge reads fill levels from the language model's description of a
// float gauge: the analysis prompt, percentage extraction and classification
// against the alert threshold.
package gauge

// Prompt is the fixed instruction sent with every processed frame. The
// extractor depends on the "Percentage: X%" line it asks for.
const Prompt = `This is a vertical oil tank float gauge. Your task is to determine the oil level percentage.

GAUGE STRUCTURE:
- Clear tube with labeled markers: FULL (top), 3/4, 1/2, 1/4, EMPTY (bottom)
- A FLOAT (thick disc, ~4-5mm) moves up/down inside the tube
- The float appears as a THICK HORIZONTAL BAND when viewed from the side

CRITICAL - IDENTIFYING THE REAL FLOAT VS REFLECTIONS:
⚠️ This infrared camera image has BRIGHT REFLECTIONS that look like horizontal bands, especially NEAR THE TOP of the gauge (between 3/4 and FULL).
⚠️ DO NOT mistake these reflections for the float!

How to distinguish the REAL FLOAT from reflections:
1. The real float is a SOLID, UNIFORM thickness horizontal band (~4-5mm thick)
2. The real float has CLEAR DEFINED EDGES (top and bottom edges are sharp)
3. Reflections appear as BRIGHT GLARE, often with fuzzy/uneven edges or varying brightness
4. Reflections often appear near the TOP of the gauge due to lighting angle
5. The float is typically DARKER or more SOLID than bright glare spots

STEP 1 - Scan the ENTIRE gauge from bottom to top:
Look at the full length of the tube. Identify ALL horizontal bands you see, noting their position and characteristics.

STEP 2 - Eliminate reflections:
Any bright, glary, or fuzzy horizontal features near the top (FULL to 3/4 region) are likely reflections. The real float will be a solid, well-defined band.

STEP 3 - Find the real float:
The float is the solid, uniform-thickness horizontal band with clear edges. It may be anywhere from EMPTY to FULL. Do NOT assume it's near the top just because you see brightness there.

STEP 4 - Calculate percentage:
- EXACTLY at EMPTY marker = 0%
- EXACTLY at 1/4 marker = 25%
- EXACTLY at 1/2 marker = 50%
- EXACTLY at 3/4 marker = 75%
- EXACTLY at FULL marker = 100%

For positions between markers, interpolate linearly.

RESPOND WITH:
Observations: [List ALL horizontal bands/features you see, from bottom to top, noting which appear to be reflections vs the real float]
Float position: [describe exactly where the REAL float is, after eliminating reflections]
Calculation: [show your work]
Percentage: X%
Confidence: [High/Medium/Low]`
