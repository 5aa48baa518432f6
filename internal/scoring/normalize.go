package scoring

import (
	"bytes"
	"fmt"
	"image"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/kozaktomas/photo-curator/internal/constants"
)

// Normalize decodes an image into the regression model input: a
// ScoringInputSize square, HWC ordered RGB float32 values in [0, 1].
// The image is scaled so its short side equals the input size and then
// center cropped.
func Normalize(data []byte) ([]float32, error) {
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to decode image: %w", err)
	}
	return tensor(fitSquare(img, constants.ScoringInputSize)), nil
}

// resizeToMinimum scales img so that its shorter side is exactly size
func resizeToMinimum(img image.Image, size int) image.Image {
	b := img.Bounds()
	w, h := b.Dx(), b.Dy()
	short := min(w, h)
	if short == size {
		return img
	}
	if w <= h {
		return imaging.Resize(img, size, 0, imaging.Lanczos)
	}
	return imaging.Resize(img, 0, size, imaging.Lanczos)
}

func fitSquare(img image.Image, size int) *image.NRGBA {
	return imaging.CropCenter(resizeToMinimum(img, size), size, size)
}

func tensor(img *image.NRGBA) []float32 {
	b := img.Bounds()
	out := make([]float32, 0, b.Dx()*b.Dy()*3)
	for y := range b.Dy() {
		row := img.Pix[y*img.Stride:]
		for x := range b.Dx() {
			px := row[x*4 : x*4+3]
			out = append(out, float32(px[0])/255, float32(px[1])/255, float32(px[2])/255)
		}
	}
	return out
}
