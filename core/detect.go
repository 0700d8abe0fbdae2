package violajones

import (
	"fmt"
	"math"
)

// DefaultRegionsOverlap is the minimum overlap fraction two raw detections
// must reach, both ways, to be merged into one cluster.
const DefaultRegionsOverlap = 0.5

// DetectionParams groups the settings of one multiscale scan.
type DetectionParams struct {
	// InitialScale multiplies the cascade's minimum window size at the first
	// pyramid level.
	InitialScale float64
	// ScaleFactor grows the detection window between pyramid levels. It must
	// be greater than 1.
	ScaleFactor float64
	// StepSize controls the sliding window stride. The effective stride is
	// proportional to the current scale, so coarser levels take larger steps.
	StepSize float64
	// EdgesDensity enables edge density pruning when greater than zero:
	// windows whose normalized edge magnitude falls below this fraction are
	// skipped without evaluating the cascade.
	EdgesDensity float64
}

// Detector evaluates one decoded cascade over images. The cascade is never
// mutated, so a single Detector may be shared by callers running detections
// on separate goroutines.
type Detector struct {
	cascade        *Cascade
	regionsOverlap float64
}

// NewDetector returns a detector over an already decoded cascade.
func NewDetector(cascade *Cascade) *Detector {
	return &Detector{
		cascade:        cascade,
		regionsOverlap: DefaultRegionsOverlap,
	}
}

// NewDetectorFromData decodes the flat cascade description and returns a
// detector over it.
func NewDetectorFromData(cascadeData []float64) (*Detector, error) {
	cascade, err := DecodeCascade(cascadeData)
	if err != nil {
		return nil, err
	}
	return NewDetector(cascade), nil
}

// SetRegionsOverlap adjusts the minimum overlap fraction used when merging
// raw detections.
func (d *Detector) SetRegionsOverlap(overlap float64) {
	d.regionsOverlap = overlap
}

// Detect runs the cascade over the RGBA pixel buffer at every scale and
// position, merges the overlapping raw detections and returns the resulting
// rectangles. An empty result means no object was found; it is not an error.
func (d *Detector) Detect(pixels []uint8, width, height int, params DetectionParams) ([]Rectangle, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid image dimensions %dx%d", width, height)
	}
	if len(pixels) < width*height*4 {
		return nil, fmt.Errorf("pixel buffer holds %d bytes, expected at least %d RGBA bytes", len(pixels), width*height*4)
	}

	sat := make([]float64, width*height)
	sqsat := make([]float64, width*height)
	tilted := make([]float64, width*height)
	var edges []float64
	if params.EdgesDensity > 0 {
		edges = make([]float64, width*height)
	}
	if err := ComputeIntegralImage(pixels, width, height, sat, sqsat, tilted, edges); err != nil {
		return nil, err
	}

	var raw []Rectangle
	scale := params.InitialScale * params.ScaleFactor
	blockWidth := int(scale * float64(d.cascade.MinWidth))
	blockHeight := int(scale * float64(d.cascade.MinHeight))

	for blockWidth < width && blockHeight < height {
		step := int(scale*params.StepSize + 0.5)
		if step < 1 {
			step = 1
		}

		for i := 0; i < height-blockHeight; i += step {
			for j := 0; j < width-blockWidth; j += step {
				if params.EdgesDensity > 0 &&
					triviallyExcluded(edges, params.EdgesDensity, i, j, width, blockWidth, blockHeight) {
					continue
				}
				if d.evaluateStages(sat, sqsat, tilted, i, j, width, blockWidth, blockHeight, scale) {
					raw = append(raw, Rectangle{X: j, Y: i, Width: blockWidth, Height: blockHeight})
				}
			}
		}

		scale *= params.ScaleFactor
		blockWidth = int(scale * float64(d.cascade.MinWidth))
		blockHeight = int(scale * float64(d.cascade.MinHeight))
	}

	return MergeRectangles(raw, d.regionsOverlap), nil
}

// Detect decodes the flat cascade description and runs one full detection
// pass over the RGBA pixel buffer. Use a Detector to reuse a decoded cascade
// across calls.
func Detect(pixels []uint8, width, height int, params DetectionParams, cascadeData []float64) ([]Rectangle, error) {
	detector, err := NewDetectorFromData(cascadeData)
	if err != nil {
		return nil, err
	}
	return detector.Detect(pixels, width, height, params)
}

// triviallyExcluded is the edge density pruning test: it reports whether the
// window's normalized edge magnitude stays below the configured density, in
// which case cascade evaluation is skipped entirely.
func triviallyExcluded(edges []float64, edgesDensity float64, row, col, width, blockWidth, blockHeight int) bool {
	wbA := row*width + col
	wbB := wbA + blockWidth
	wbD := wbA + blockHeight*width
	wbC := wbD + blockWidth
	blockEdgesDensity := (edges[wbA] - edges[wbB] - edges[wbD] + edges[wbC]) /
		(float64(blockWidth*blockHeight) * 255)
	return blockEdgesDensity < edgesDensity
}

// evaluateStages runs every cascade stage against one detection window,
// bailing out at the first stage whose accumulated sum stays below its
// threshold. Feature sums are normalized by the window's standard deviation
// obtained from the plain and squared tables.
func (d *Detector) evaluateStages(sat, sqsat, rsat []float64, row, col, width, blockWidth, blockHeight int, scale float64) bool {
	inverseArea := 1.0 / float64(blockWidth*blockHeight)
	wbA := row*width + col
	wbB := wbA + blockWidth
	wbD := wbA + blockHeight*width
	wbC := wbD + blockWidth

	mean := (sat[wbA] - sat[wbB] - sat[wbD] + sat[wbC]) * inverseArea
	variance := (sqsat[wbA]-sqsat[wbB]-sqsat[wbD]+sqsat[wbC])*inverseArea - mean*mean

	standardDeviation := 1.0
	if variance > 0 {
		standardDeviation = math.Sqrt(variance)
	}

	for _, stage := range d.cascade.Stages {
		stageSum := 0.0

		for _, node := range stage.Nodes {
			rectsSum := 0.0

			for _, rect := range node.Rects {
				x := col + int(float64(rect.X)*scale+0.5)
				y := row + int(float64(rect.Y)*scale+0.5)
				w := int(float64(rect.Width)*scale + 0.5)
				h := int(float64(rect.Height)*scale + 0.5)

				if node.Tilted {
					w1 := (x - h + w) + (y+w+h-1)*width
					w2 := x + (y-1)*width
					w3 := (x - h) + (y+h-1)*width
					w4 := (x + w) + (y+w-1)*width
					rectsSum += (tableAt(rsat, w1) + tableAt(rsat, w2) -
						tableAt(rsat, w3) - tableAt(rsat, w4)) * rect.Weight
				} else {
					w1 := y*width + x
					w2 := w1 + w
					w3 := w1 + h*width
					w4 := w3 + w
					rectsSum += (tableAt(sat, w1) - tableAt(sat, w2) -
						tableAt(sat, w3) + tableAt(sat, w4)) * rect.Weight
				}
			}

			if rectsSum*inverseArea < node.Threshold*standardDeviation {
				stageSum += node.LeftVal
			} else {
				stageSum += node.RightVal
			}
		}

		if stageSum < stage.Threshold {
			return false
		}
	}
	return true
}

// tableAt reads a table cell, treating cells outside the image as empty.
// Scaled feature rectangles may overshoot the window by a pixel on the
// coarser pyramid levels, since both the offset and the extent are rounded
// half up independently of the floored block size.
func tableAt(table []float64, idx int) float64 {
	if idx < 0 || idx >= len(table) {
		return 0
	}
	return table[idx]
}
