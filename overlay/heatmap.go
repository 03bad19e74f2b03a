// MODUL: heatmap
// ZWECK: Falschfarben-Darstellung der Saliency-Maske (Jet-Farbskala)
// INPUT: rollout.SaliencyGrid, Zielbreite, Zielhoehe, optional Originalbild
// OUTPUT: *image.RGBA
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: mask.go, vision
// HINWEISE: Blend mischt die Heatmap mit dem Originalbild (alpha = Anteil der Heatmap)

package overlay

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/ollama/rollout/rollout"
	"github.com/ollama/rollout/vision"
)

// Heatmap rendert die Maske in Jet-Farben auf width x height.
func Heatmap(grid *rollout.SaliencyGrid, width, height int) (*image.RGBA, error) {
	mask, err := Mask(grid, width, height)
	if err != nil {
		return nil, err
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	for i, w := range Weights(mask) {
		c := Jet(w)
		dst.Pix[i*4+0] = c.R
		dst.Pix[i*4+1] = c.G
		dst.Pix[i*4+2] = c.B
		dst.Pix[i*4+3] = 0xff
	}
	return dst, nil
}

// Blend mischt die Heatmap von grid mit img.
func Blend(grid *rollout.SaliencyGrid, img *vision.ImageInput, alpha float64) (*image.RGBA, error) {
	if img == nil || img.Image == nil {
		return nil, vision.ErrNilImage
	}
	if alpha < 0 || alpha > 1 {
		return nil, fmt.Errorf("overlay: alpha %v outside [0,1]", alpha)
	}

	src := vision.Composite(img).Image
	b := src.Bounds()

	heat, err := Heatmap(grid, b.Dx(), b.Dy())
	if err != nil {
		return nil, err
	}

	for y := range b.Dy() {
		for x := range b.Dx() {
			si := src.PixOffset(b.Min.X+x, b.Min.Y+y)
			hi := heat.PixOffset(x, y)
			for c := range 3 {
				v := alpha*float64(heat.Pix[hi+c]) + (1-alpha)*float64(src.Pix[si+c])
				heat.Pix[hi+c] = uint8(math.Round(v))
			}
		}
	}
	return heat, nil
}

// Jet bildet v in [0,1] auf die Jet-Farbskala ab (blau -> cyan -> gelb -> rot).
func Jet(v float64) color.RGBA {
	v = math.Max(0, math.Min(1, v))
	channel := func(offset float64) uint8 {
		x := 1.5 - math.Abs(4*v-offset)
		return uint8(math.Round(255 * math.Max(0, math.Min(1, x))))
	}
	return color.RGBA{R: channel(3), G: channel(2), B: channel(1), A: 0xff}
}
