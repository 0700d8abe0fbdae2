/*
Package violajones implements a Haar-like cascade object detector. It scans
an image at multiple scales and positions, evaluates a pre-trained classifier
cascade against integral image rectangle sums to decide whether a window
contains the target object and clusters the overlapping positive windows
into the final bounding boxes.

A minimal detection pass looks like this:

	detector, err := violajones.NewDetectorFromData(cascadeData)
	if err != nil {
		log.Fatalf("error decoding the cascade: %v", err)
	}

	src, err := violajones.GetImage("input.jpg")
	if err != nil {
		log.Fatalf("cannot open the image file: %v", err)
	}
	cols, rows := src.Bounds().Max.X, src.Bounds().Max.Y

	dets, err := detector.Detect(src.Pix, cols, rows, violajones.DetectionParams{
		InitialScale: 1.0,
		ScaleFactor:  1.25,
		StepSize:     1.5,
		EdgesDensity: 0.2,
	})

Training cascade classifiers is out of scope: the package only runs inference
over the flat numeric cascade encoding accepted by DecodeCascade.
*/
package violajones
