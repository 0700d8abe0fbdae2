package violajones

import (
	"image"
	"image/draw"
	"io"
	"os"

	_ "image/jpeg"
	_ "image/png"
)

// GetImage reads an image file and returns it as NRGBA, the pixel layout
// Detect consumes.
func GetImage(input string) (*image.NRGBA, error) {
	file, err := os.Open(input)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	return DecodeImage(file)
}

// DecodeImage decodes an image from the reader and converts it to NRGBA.
func DecodeImage(reader io.Reader) (*image.NRGBA, error) {
	src, _, err := image.Decode(reader)
	if err != nil {
		return nil, err
	}
	return ImgToNRGBA(src), nil
}

// ImgToNRGBA converts any image type to NRGBA with its origin at (0, 0).
func ImgToNRGBA(img image.Image) *image.NRGBA {
	if src, ok := img.(*image.NRGBA); ok && src.Bounds().Min == image.Pt(0, 0) {
		return src
	}

	b := img.Bounds()
	dst := image.NewNRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(dst, dst.Bounds(), img, b.Min, draw.Src)
	return dst
}
