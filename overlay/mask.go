// Package overlay - Saliency-Maske auf das Originalbild legen und Ergebnisse ausgeben.
//
// MODUL: mask
// ZWECK: SaliencyGrid normalisieren und bilinear auf Bildgroesse skalieren
// INPUT: rollout.SaliencyGrid, Zielbreite, Zielhoehe
// OUTPUT: image.Gray16 Maske bzw. float64-Gewichte im Bereich [0,1]
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: golang.org/x/image/draw (extern), rollout
// HINWEISE: Normalisierung durch das Maximum des Grids; ein Null-Grid bleibt Null
package overlay

import (
	"errors"
	"fmt"
	"image"
	"math"

	"golang.org/x/image/draw"

	"github.com/ollama/rollout/rollout"
	"github.com/ollama/rollout/vision"
)

var (
	// ErrNilGrid wird zurueckgegeben wenn kein SaliencyGrid uebergeben wurde
	ErrNilGrid = errors.New("overlay: nil saliency grid")
)

// Mask normalisiert grid mit seinem Maximum, quantisiert auf 16 Bit und
// skaliert bilinear auf width x height.
func Mask(grid *rollout.SaliencyGrid, width, height int) (*image.Gray16, error) {
	if grid == nil {
		return nil, ErrNilGrid
	}
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", vision.ErrInvalidSize, width, height)
	}

	norm := grid.Normalized()
	side := norm.Side()

	src := image.NewGray16(image.Rect(0, 0, side, side))
	for y := range side {
		for x := range side {
			i := src.PixOffset(x, y)
			v := quantize(norm.At(y, x))
			src.Pix[i] = uint8(v >> 8)
			src.Pix[i+1] = uint8(v)
		}
	}

	dst := image.NewGray16(image.Rect(0, 0, width, height))
	draw.BiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)

	return dst, nil
}

// Weights liefert die Maske als Gewichte in [0,1], Zeile fuer Zeile.
func Weights(mask *image.Gray16) []float64 {
	b := mask.Bounds()
	out := make([]float64, 0, b.Dx()*b.Dy())
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			out = append(out, float64(mask.Gray16At(x, y).Y)/math.MaxUint16)
		}
	}
	return out
}

func quantize(v float64) uint16 {
	switch {
	case math.IsNaN(v) || v <= 0:
		return 0
	case v >= 1:
		return math.MaxUint16
	default:
		return uint16(math.Round(v * math.MaxUint16))
	}
}
