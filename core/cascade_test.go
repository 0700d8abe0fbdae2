package violajones_test

import (
	"errors"
	"testing"

	violajones "github.com/trackgo/violajones/core"
)

// twoStageCascade is a small but complete flat cascade description: a 20x20
// window, one stage with a two-rectangle node and one stage with a tilted
// single-rectangle node.
var twoStageCascade = []float64{
	20, 20,
	// stage 1
	0.82, 1,
	0, 2,
	0, 0, 20, 10, 1,
	0, 10, 20, 10, -2,
	0.004, 0.2, 0.8,
	// stage 2
	0.5, 1,
	1, 1,
	4, 2, 6, 4, 1.5,
	-0.01, -0.4, 0.6,
}

func TestCascade_DecodeValidStream(t *testing.T) {
	cascade, err := violajones.DecodeCascade(twoStageCascade)
	if err != nil {
		t.Fatalf("failed decoding the cascade stream: %v", err)
	}

	if cascade.MinWidth != 20 || cascade.MinHeight != 20 {
		t.Fatalf("expected a 20x20 base window, got %dx%d", cascade.MinWidth, cascade.MinHeight)
	}
	if len(cascade.Stages) != 2 {
		t.Fatalf("expected 2 stages, got %d", len(cascade.Stages))
	}

	first := cascade.Stages[0]
	if first.Threshold != 0.82 || len(first.Nodes) != 1 {
		t.Fatalf("unexpected first stage: %+v", first)
	}
	node := first.Nodes[0]
	if node.Tilted {
		t.Fatal("first node should be upright")
	}
	if len(node.Rects) != 2 {
		t.Fatalf("first node should own 2 rectangles, got %d", len(node.Rects))
	}
	if node.Rects[1].Weight != -2 {
		t.Fatalf("second rectangle weight should be -2, got %v", node.Rects[1].Weight)
	}
	if node.Threshold != 0.004 || node.LeftVal != 0.2 || node.RightVal != 0.8 {
		t.Fatalf("unexpected first node values: %+v", node)
	}

	second := cascade.Stages[1].Nodes[0]
	if !second.Tilted {
		t.Fatal("second stage node should be tilted")
	}
}

func TestCascade_TruncatedStreamShouldFail(t *testing.T) {
	// Every prefix is malformed except the one ending exactly on the first
	// stage boundary, which forms a complete one-stage cascade.
	const stageBoundary = 19
	for cut := 1; cut < len(twoStageCascade); cut++ {
		if cut == stageBoundary {
			continue
		}
		_, err := violajones.DecodeCascade(twoStageCascade[:cut])
		if err == nil {
			t.Fatalf("expected a decode error for a stream cut at %d values", cut)
		}
		var malformed *violajones.MalformedCascadeError
		if !errors.As(err, &malformed) {
			t.Fatalf("cut at %d: expected a MalformedCascadeError, got %T", cut, err)
		}
	}
}

func TestCascade_CountMismatchShouldFail(t *testing.T) {
	// The stage declares two nodes but the stream carries only one.
	data := []float64{
		10, 10,
		0.5, 2,
		0, 1,
		0, 0, 10, 10, 1,
		0.01, 0.1, 0.9,
	}
	if _, err := violajones.DecodeCascade(data); err == nil {
		t.Fatal("expected a decode error when the node count overruns the stream")
	}
}

func TestCascade_InvalidRecordsShouldFail(t *testing.T) {
	cases := map[string][]float64{
		"empty stream":          {},
		"zero window size":      {0, 10, 0.5, 1, 0, 1, 0, 0, 10, 10, 1, 0.01, 0.1, 0.9},
		"no stages":             {10, 10},
		"zero node count":       {10, 10, 0.5, 0},
		"zero rectangle count":  {10, 10, 0.5, 1, 0, 0, 0.01, 0.1, 0.9},
		"four rectangles":       {10, 10, 0.5, 1, 0, 4, 0, 0, 10, 10, 1, 0, 0, 10, 10, 1, 0, 0, 10, 10, 1, 0, 0, 10, 10, 1, 0.01, 0.1, 0.9},
		"fractional node count": {10, 10, 0.5, 1.5, 0, 1, 0, 0, 10, 10, 1, 0.01, 0.1, 0.9},
	}
	for name, data := range cases {
		if _, err := violajones.DecodeCascade(data); err == nil {
			t.Fatalf("%s: expected a decode error", name)
		}
	}
}

func TestCascade_DecodeErrorSurfacesThroughDetect(t *testing.T) {
	pixels := make([]uint8, 8*8*4)
	_, err := violajones.Detect(pixels, 8, 8, violajones.DetectionParams{
		InitialScale: 1.0,
		ScaleFactor:  1.25,
		StepSize:     1.5,
	}, []float64{20, 20, 0.5})
	if err == nil {
		t.Fatal("expected the cascade decode error to surface through Detect")
	}
	var malformed *violajones.MalformedCascadeError
	if !errors.As(err, &malformed) {
		t.Fatalf("expected a MalformedCascadeError, got %T", err)
	}
}
