// MODUL: compose
// ZWECK: Originalbild kanalweise mit der Saliency-Maske multiplizieren
// INPUT: rollout.SaliencyGrid, vision.ImageInput (Originalaufloesung)
// OUTPUT: *image.RGBA in Originalgroesse
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: mask.go, vision
// HINWEISE: uint8(maske * pixel) schneidet ab statt zu runden, Alpha ist immer 255

package overlay

import (
	"image"
	"math"

	"github.com/ollama/rollout/rollout"
	"github.com/ollama/rollout/vision"
)

// quantSlack gleicht den Rundungsfehler der 16-Bit-Maske aus (halbe Stufe in Pixel-Einheiten)
const quantSlack = 0.5 * 255 / math.MaxUint16

// Compose legt grid ueber img. Die Maske wird auf die Originalgroesse von img
// skaliert, jeder RGB-Kanal wird mit dem Maskenwert multipliziert.
func Compose(grid *rollout.SaliencyGrid, img *vision.ImageInput) (*image.RGBA, error) {
	if img == nil || img.Image == nil {
		return nil, vision.ErrNilImage
	}

	src := vision.Composite(img).Image
	b := src.Bounds()

	mask, err := Mask(grid, b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}
	weights := Weights(mask)

	dst := image.NewRGBA(image.Rect(0, 0, b.Dx(), b.Dy()))
	for y := range b.Dy() {
		for x := range b.Dx() {
			w := weights[y*b.Dx()+x]
			si := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			di := dst.PixOffset(x, y)

			for c := range 3 {
				dst.Pix[di+c] = scale(w, src.Pix[si+c])
			}
			dst.Pix[di+3] = 0xff
		}
	}

	return dst, nil
}

// scale multipliziert und schneidet ab wie uint8(mask * pixel)
func scale(w float64, p uint8) uint8 {
	if w <= 0 {
		return 0
	}
	return uint8(math.Min(255, w*float64(p)+quantSlack))
}
