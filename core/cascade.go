package violajones

import "fmt"

// WeightedRect is a single Haar feature rectangle. The coordinates and
// extents are expressed in the coordinate space of an unscaled detection
// window of MinWidth x MinHeight pixels.
type WeightedRect struct {
	X      int
	Y      int
	Width  int
	Height int
	Weight float64
}

// Node is a one-level decision stump. It sums up to three weighted feature
// rectangles and contributes either LeftVal or RightVal to the enclosing
// stage, depending on how the normalized sum compares against Threshold.
type Node struct {
	Tilted    bool
	Rects     []WeightedRect
	Threshold float64
	LeftVal   float64
	RightVal  float64
}

// Stage is one classifier stage. A detection window is rejected as soon as
// the accumulated node contributions fall below Threshold.
type Stage struct {
	Threshold float64
	Nodes     []Node
}

// Cascade is a decoded classifier cascade. A Cascade is immutable after
// decoding and may be shared between detectors.
type Cascade struct {
	MinWidth  int
	MinHeight int
	Stages    []Stage
}

// MalformedCascadeError is returned when the flat cascade description is
// truncated, has trailing data or declares counts which disagree with the
// number of records actually present in the stream.
type MalformedCascadeError struct {
	Offset int
	Reason string
}

func (e *MalformedCascadeError) Error() string {
	return fmt.Sprintf("malformed cascade at offset %d: %s", e.Offset, e.Reason)
}

// cascadeDecoder advances a single cursor over the flat numeric stream.
// It never seeks backward.
type cascadeDecoder struct {
	data []float64
	pos  int
}

func (d *cascadeDecoder) next(what string) (float64, error) {
	if d.pos >= len(d.data) {
		return 0, &MalformedCascadeError{Offset: d.pos, Reason: "unexpected end of stream, expected " + what}
	}
	v := d.data[d.pos]
	d.pos++
	return v, nil
}

func (d *cascadeDecoder) nextInt(what string) (int, error) {
	v, err := d.next(what)
	if err != nil {
		return 0, err
	}
	n := int(v)
	if float64(n) != v || n < 0 {
		return 0, &MalformedCascadeError{Offset: d.pos - 1, Reason: fmt.Sprintf("%s must be a non-negative integer, got %v", what, v)}
	}
	return n, nil
}

// DecodeCascade decodes the flat numeric cascade description into a tagged
// Cascade value. The stream layout is:
//
//	minWidth, minHeight,
//	{ stageThreshold, nodeCount,
//	    { tilted, rectCount, { x, y, w, h, weight }..., nodeThreshold, leftVal, rightVal }...
//	}...
//
// The whole stream must be consumed exactly; any surplus or shortfall yields
// a MalformedCascadeError.
func DecodeCascade(data []float64) (*Cascade, error) {
	d := &cascadeDecoder{data: data}

	minWidth, err := d.nextInt("minimum window width")
	if err != nil {
		return nil, err
	}
	minHeight, err := d.nextInt("minimum window height")
	if err != nil {
		return nil, err
	}
	if minWidth < 1 || minHeight < 1 {
		return nil, &MalformedCascadeError{Offset: 0, Reason: fmt.Sprintf("invalid minimum window size %dx%d", minWidth, minHeight)}
	}

	cascade := &Cascade{MinWidth: minWidth, MinHeight: minHeight}

	for d.pos < len(d.data) {
		stage, err := d.decodeStage()
		if err != nil {
			return nil, err
		}
		cascade.Stages = append(cascade.Stages, stage)
	}

	if len(cascade.Stages) == 0 {
		return nil, &MalformedCascadeError{Offset: d.pos, Reason: "cascade declares no stages"}
	}
	return cascade, nil
}

func (d *cascadeDecoder) decodeStage() (Stage, error) {
	threshold, err := d.next("stage threshold")
	if err != nil {
		return Stage{}, err
	}
	nodeCount, err := d.nextInt("stage node count")
	if err != nil {
		return Stage{}, err
	}
	if nodeCount == 0 {
		return Stage{}, &MalformedCascadeError{Offset: d.pos - 1, Reason: "stage declares no nodes"}
	}

	stage := Stage{Threshold: threshold, Nodes: make([]Node, 0, nodeCount)}
	for n := 0; n < nodeCount; n++ {
		node, err := d.decodeNode()
		if err != nil {
			return Stage{}, err
		}
		stage.Nodes = append(stage.Nodes, node)
	}
	return stage, nil
}

func (d *cascadeDecoder) decodeNode() (Node, error) {
	tilted, err := d.nextInt("node tilted flag")
	if err != nil {
		return Node{}, err
	}
	rectCount, err := d.nextInt("node rectangle count")
	if err != nil {
		return Node{}, err
	}
	if rectCount < 1 || rectCount > 3 {
		return Node{}, &MalformedCascadeError{Offset: d.pos - 1, Reason: fmt.Sprintf("node declares %d rectangles, expected 1 to 3", rectCount)}
	}

	node := Node{Tilted: tilted != 0, Rects: make([]WeightedRect, 0, rectCount)}
	for r := 0; r < rectCount; r++ {
		x, err := d.nextInt("rectangle x")
		if err != nil {
			return Node{}, err
		}
		y, err := d.nextInt("rectangle y")
		if err != nil {
			return Node{}, err
		}
		w, err := d.nextInt("rectangle width")
		if err != nil {
			return Node{}, err
		}
		h, err := d.nextInt("rectangle height")
		if err != nil {
			return Node{}, err
		}
		weight, err := d.next("rectangle weight")
		if err != nil {
			return Node{}, err
		}
		node.Rects = append(node.Rects, WeightedRect{X: x, Y: y, Width: w, Height: h, Weight: weight})
	}

	if node.Threshold, err = d.next("node threshold"); err != nil {
		return Node{}, err
	}
	if node.LeftVal, err = d.next("node left value"); err != nil {
		return Node{}, err
	}
	if node.RightVal, err = d.next("node right value"); err != nil {
		return Node{}, err
	}
	return node, nil
}
