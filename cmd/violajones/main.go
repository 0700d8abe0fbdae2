package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"log"
	"math"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/fogleman/gg"
	violajones "github.com/trackgo/violajones/core"
	"github.com/trackgo/violajones/utils"
	"golang.org/x/image/bmp"
	"golang.org/x/term"
)

const banner = `
┬  ┬┬┌─┐┬  ┌─┐   ┬┌─┐┌┐┌┌─┐┌─┐
└┐┌┘││ ││  ├─┤   ││ ││││├┤ └─┐
 └┘ ┴└─┘┴─┘┴ ┴  └┘└─┘┘└┘└─┘└─┘

Go object detection library based on Haar-like cascade classifiers.
    Version: %s

`

// pipeName is the file name that indicates stdin/stdout is being used.
const pipeName = "-"

const (
	// markerRectangle - use a rectangle as the detection marker
	markerRectangle string = "rect"
	// markerCircle - use a circle as the detection marker
	markerCircle string = "circle"
	// markerEllipse - use an ellipse as the detection marker
	markerEllipse string = "ellipse"

	// message colors
	successColor = "\x1b[92m"
	errorColor   = "\x1b[31m"
	defaultColor = "\x1b[0m"
)

// Version indicates the current build version.
var Version string

var dc *gg.Context

// objectDetector contains the general detection settings.
type objectDetector struct {
	cascadeFile  string
	destination  string
	initialScale float64
	scaleFactor  float64
	stepSize     float64
	edgesDensity float64
	overlap      float64
	maxWidth     int
}

// detection holds one detection rectangle for the json output.
type detection struct {
	X      int `json:"x"`
	Y      int `json:"y"`
	Width  int `json:"width"`
	Height int `json:"height"`
	Total  int `json:"total"`
}

func main() {
	var (
		// Flags
		source       = flag.String("in", pipeName, "Source image")
		destination  = flag.String("out", pipeName, "Destination image")
		cascadeFile  = flag.String("cf", "", "Cascade classifier file (flat json number array)")
		initialScale = flag.Float64("is", 1.0, "Initial detection window scale")
		scaleFactor  = flag.Float64("scale", 1.25, "Scale detection window by percentage")
		stepSize     = flag.Float64("step", 1.5, "Window step size, proportional to the scale")
		edgesDensity = flag.Float64("edges", 0.0, "Edge density pruning threshold, 0 disables pruning")
		overlap      = flag.Float64("overlap", violajones.DefaultRegionsOverlap, "Minimum overlap ratio for merging detections")
		maxWidth     = flag.Int("maxw", 0, "Downscale the source to this width before detection, 0 keeps the original size")
		marker       = flag.String("marker", "rect", "Detection marker: rect|circle|ellipse")
		jsonf        = flag.String("json", "", "Output the detection rectangles into a json file")
	)

	log.SetFlags(0)
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, banner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	if len(*source) == 0 || len(*cascadeFile) == 0 {
		log.Fatal("Usage: violajones -in input.jpg -out out.png -cf cascade/frontalface.json")
	}

	start := time.Now()

	// Progress indicator
	ind := utils.NewProgressIndicator("Detecting objects...", time.Millisecond*100)
	ind.Start()

	det := &objectDetector{
		cascadeFile:  *cascadeFile,
		destination:  *destination,
		initialScale: *initialScale,
		scaleFactor:  *scaleFactor,
		stepSize:     *stepSize,
		edgesDensity: *edgesDensity,
		overlap:      *overlap,
		maxWidth:     *maxWidth,
	}

	var dst io.Writer
	if det.destination != "empty" {
		if det.destination == pipeName {
			if term.IsTerminal(int(os.Stdout.Fd())) {
				log.Fatalln("`-` should be used with a pipe for stdout")
			}
			dst = os.Stdout
		} else {
			fileTypes := []string{".jpg", ".jpeg", ".png", ".bmp"}
			ext := filepath.Ext(det.destination)

			if !inSlice(ext, fileTypes) {
				log.Fatalf("Output file type not supported: %v", ext)
			}

			fn, err := os.OpenFile(det.destination, os.O_CREATE|os.O_WRONLY, 0755)
			if err != nil {
				log.Fatalf("Unable to open output file: %v", err)
			}
			defer fn.Close()
			dst = fn
		}
	}

	rects, err := det.detectObjects(*source)
	if err != nil {
		ind.StopMsg = fmt.Sprintf("Detecting objects... %s failed ✗%s\n", errorColor, defaultColor)
		ind.Stop()
		log.Fatalf("Detection error: %s%v%s", errorColor, err, defaultColor)
	}

	dets := det.drawDetections(rects, *marker)

	if det.destination != "empty" {
		if err := det.encodeImage(dst); err != nil {
			log.Fatalf("Error encoding the output image: %v", err)
		}
	}

	var out io.Writer
	if *jsonf != "" {
		if *jsonf == pipeName {
			out = os.Stdout
		} else {
			f, err := os.Create(*jsonf)
			if err != nil {
				ind.StopMsg = fmt.Sprintf("Detecting objects... %s failed ✗%s\n", errorColor, defaultColor)
				ind.Stop()
				log.Fatalf("%sCould not create the json file: %v%s", errorColor, err, defaultColor)
			}
			defer f.Close()
			out = f
		}
	}
	ind.StopMsg = fmt.Sprintf("Detecting objects... %sfinished ✔%s", successColor, defaultColor)
	ind.Stop()

	if len(dets) > 0 {
		log.Printf("\n%s%d%s object(s) detected", successColor, len(dets), defaultColor)

		if *jsonf != "" && out == os.Stdout {
			log.Printf("\n%sThe detection coordinates of the found objects:%s", successColor, defaultColor)
		}

		if out != nil {
			if err := json.NewEncoder(out).Encode(dets); err != nil {
				log.Fatalf("Error encoding the json file: %s", err)
			}
		}
	} else {
		log.Printf("\n%sno detected objects!%s", errorColor, defaultColor)
	}

	log.Printf("\nExecution time: %s%.2fs%s\n", successColor, time.Since(start).Seconds(), defaultColor)
}

// detectObjects runs the detection algorithm over the provided source image.
func (det *objectDetector) detectObjects(source string) ([]violajones.Rectangle, error) {
	var srcFile io.Reader
	if source == pipeName {
		if term.IsTerminal(int(os.Stdin.Fd())) {
			log.Fatalln("`-` should be used with a pipe for stdin")
		}
		srcFile = os.Stdin
	} else {
		ctype, err := utils.DetectFileContentType(source)
		if err != nil {
			return nil, err
		}
		if !strings.Contains(ctype, "image") {
			return nil, errors.New("the source file is not a valid image")
		}

		file, err := os.Open(source)
		if err != nil {
			return nil, err
		}
		defer file.Close()
		srcFile = file
	}

	src, err := violajones.DecodeImage(srcFile)
	if err != nil {
		return nil, err
	}

	if det.maxWidth > 0 && src.Bounds().Dx() > det.maxWidth {
		src = imaging.Resize(src, det.maxWidth, 0, imaging.Lanczos)
	}
	cols, rows := src.Bounds().Max.X, src.Bounds().Max.Y

	dc = gg.NewContext(cols, rows)
	dc.DrawImage(src, 0, 0)

	cascadeData, err := readCascadeFile(det.cascadeFile)
	if err != nil {
		return nil, err
	}

	detector, err := violajones.NewDetectorFromData(cascadeData)
	if err != nil {
		return nil, err
	}
	detector.SetRegionsOverlap(det.overlap)

	// Run the classifier over the image at every scale and position and
	// merge the overlapping raw detections into the final rectangles.
	return detector.Detect(src.Pix, cols, rows, violajones.DetectionParams{
		InitialScale: det.initialScale,
		ScaleFactor:  det.scaleFactor,
		StepSize:     det.stepSize,
		EdgesDensity: det.edgesDensity,
	})
}

// readCascadeFile loads the cascade classifier serialized as a flat json
// number array.
func readCascadeFile(fname string) ([]float64, error) {
	data, err := os.ReadFile(fname)
	if err != nil {
		return nil, fmt.Errorf("error reading the cascade file: %w", err)
	}

	var cascade []float64
	if err := json.Unmarshal(data, &cascade); err != nil {
		return nil, fmt.Errorf("the cascade file should contain a flat json number array: %w", err)
	}
	return cascade, nil
}

// drawDetections marks the detected objects with the marker type defined as
// parameter (rectangle|circle|ellipse).
func (det *objectDetector) drawDetections(rects []violajones.Rectangle, marker string) []detection {
	var detections []detection

	for _, rect := range rects {
		switch marker {
		case markerRectangle:
			dc.DrawRectangle(
				float64(rect.X),
				float64(rect.Y),
				float64(rect.Width),
				float64(rect.Height),
			)
		case markerCircle:
			dc.DrawArc(
				float64(rect.X)+float64(rect.Width)/2,
				float64(rect.Y)+float64(rect.Height)/2,
				float64(rect.Width)/2,
				0,
				2*math.Pi,
			)
		case markerEllipse:
			dc.DrawEllipse(
				float64(rect.X)+float64(rect.Width)/2,
				float64(rect.Y)+float64(rect.Height)/2,
				float64(rect.Width)/2,
				float64(rect.Height)/1.6,
			)
		}
		dc.SetLineWidth(2.0)
		dc.SetStrokeStyle(gg.NewSolidPattern(color.RGBA{R: 255, G: 0, B: 0, A: 255}))
		dc.Stroke()

		detections = append(detections, detection{
			X:      rect.X,
			Y:      rect.Y,
			Width:  rect.Width,
			Height: rect.Height,
			Total:  rect.Total,
		})
	}
	return detections
}

func (det *objectDetector) encodeImage(dst io.Writer) error {
	var err error
	img := dc.Image()

	switch dst := dst.(type) {
	case *os.File:
		ext := filepath.Ext(dst.Name())
		switch ext {
		case "", ".jpg", ".jpeg":
			err = jpeg.Encode(dst, img, &jpeg.Options{Quality: 100})
		case ".png":
			err = png.Encode(dst, img)
		case ".bmp":
			err = bmp.Encode(dst, img)
		default:
			err = errors.New("unsupported image format")
		}
	default:
		err = jpeg.Encode(dst, img, &jpeg.Options{Quality: 100})
	}
	return err
}

// inSlice checks if the item exists in the slice.
func inSlice(item string, slice []string) bool {
	for _, it := range slice {
		if it == item {
			return true
		}
	}
	return false
}
