// Package vision - Bild-I/O und ViT-Vorverarbeitung fuer Rollout-Eingaben.
//
// MODUL: preprocess
// ZWECK: Bild auf Modell-Eingabegroesse bringen und kanalweise normalisieren
// INPUT: ImageInput, Options
// OUTPUT: Tensor (3 x InputSize x InputSize)
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: image.go, normalize.go, options.go
// HINWEISE: Transparente Bilder werden vorher auf Weiss komponiert
package vision

import (
	"errors"
	"fmt"
)

// ErrNilImage wird zurueckgegeben wenn kein Bild uebergeben wurde
var ErrNilImage = errors.New("vision: nil image")

// Preprocess skaliert img auf InputSize x InputSize (ohne Seitenverhaeltnis)
// und normalisiert mit mean/std.
func Preprocess(img *ImageInput, opts ...Option) (*Tensor, error) {
	if img == nil || img.Image == nil {
		return nil, ErrNilImage
	}

	o := DefaultPreprocessOptions()
	o.Apply(opts...)
	if err := o.Validate(); err != nil {
		return nil, err
	}

	interp, err := Interpolator(o.Interpolation)
	if err != nil {
		return nil, err
	}

	resized, err := ResizeImageWith(Composite(img), o.InputSize, o.InputSize, interp)
	if err != nil {
		return nil, fmt.Errorf("vorverarbeitung: %w", err)
	}

	return &Tensor{
		Data:     NormalizeRGB(resized, o.Mean, o.Std),
		Channels: 3,
		Height:   o.InputSize,
		Width:    o.InputSize,
	}, nil
}
