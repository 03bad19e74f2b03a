// MODUL: options
// ZWECK: Functional Options Pattern fuer die ViT-Vorverarbeitung
// INPUT: Optionale Parameter (Eingabegroesse, mean, std, Interpolation)
// OUTPUT: PreprocessOptions Struct mit Konfiguration
// NEBENEFFEKTE: Keine
// ABHAENGIGKEITEN: golang.org/x/image/draw (extern)
// HINWEISE: Defaults entsprechen ViT-B_16 bei 384x384 mit ImageNet-Normalisierung

package vision

import (
	"errors"
	"strings"

	"golang.org/x/image/draw"
)

// ============================================================================
// PreprocessOptions - Zentrale Konfigurationsstruktur
// ============================================================================

// PreprocessOptions enthaelt die Konfiguration fuer Preprocess.
type PreprocessOptions struct {
	InputSize     int        // Seitenlaenge der Modell-Eingabe in Pixeln
	Mean          [3]float32 // Kanal-Mittelwerte (RGB)
	Std           [3]float32 // Kanal-Standardabweichungen (RGB)
	Interpolation string     // "nearest", "bilinear", "approxbilinear", "catmullrom"
}

// Option ist eine funktionale Option fuer PreprocessOptions.
type Option func(*PreprocessOptions)

// ============================================================================
// Fehler-Definitionen fuer Options
// ============================================================================

var (
	ErrInvalidInputSize     = errors.New("vision: invalid input size")
	ErrInvalidStd           = errors.New("vision: std must be non-zero")
	ErrInvalidInterpolation = errors.New("vision: invalid interpolation")
)

// ============================================================================
// Konstanten
// ============================================================================

const (
	// DefaultInputSize ist die Eingabegroesse von ViT-B_16 (384x384)
	DefaultInputSize = 384

	InterpNearest        = "nearest"
	InterpBiLinear       = "bilinear"
	InterpApproxBiLinear = "approxbilinear"
	InterpCatmullRom     = "catmullrom"
)

// DefaultPreprocessOptions gibt die Standard-Konfiguration zurueck.
// - InputSize: 384
// - Mean/Std: ImageNet
// - Interpolation: bilinear
func DefaultPreprocessOptions() PreprocessOptions {
	return PreprocessOptions{
		InputSize:     DefaultInputSize,
		Mean:          ImageNetMean,
		Std:           ImageNetStd,
		Interpolation: InterpBiLinear,
	}
}

// ============================================================================
// Functional Options - Builder-Funktionen
// ============================================================================

// WithInputSize setzt die Seitenlaenge der Modell-Eingabe.
// Werte <= 0 werden ignoriert.
func WithInputSize(n int) Option {
	return func(o *PreprocessOptions) {
		if n > 0 {
			o.InputSize = n
		}
	}
}

// WithMean setzt die Kanal-Mittelwerte.
func WithMean(mean [3]float32) Option {
	return func(o *PreprocessOptions) {
		o.Mean = mean
	}
}

// WithStd setzt die Kanal-Standardabweichungen.
func WithStd(std [3]float32) Option {
	return func(o *PreprocessOptions) {
		o.Std = std
	}
}

// WithInterpolation setzt den Resize-Interpolator.
func WithInterpolation(name string) Option {
	return func(o *PreprocessOptions) {
		o.Interpolation = strings.ToLower(name)
	}
}

// Apply wendet alle Options an.
func (o *PreprocessOptions) Apply(opts ...Option) {
	for _, opt := range opts {
		opt(o)
	}
}

// Validate prueft ob die PreprocessOptions gueltig sind.
func (o *PreprocessOptions) Validate() error {
	if o.InputSize <= 0 {
		return ErrInvalidInputSize
	}

	for _, s := range o.Std {
		if s == 0 {
			return ErrInvalidStd
		}
	}

	if _, err := Interpolator(o.Interpolation); err != nil {
		return err
	}

	return nil
}

// Interpolator liefert den draw.Interpolator zu einem Namen.
func Interpolator(name string) (draw.Interpolator, error) {
	switch name {
	case InterpNearest:
		return draw.NearestNeighbor, nil
	case InterpBiLinear, "":
		return draw.BiLinear, nil
	case InterpApproxBiLinear:
		return draw.ApproxBiLinear, nil
	case InterpCatmullRom:
		return draw.CatmullRom, nil
	default:
		return nil, ErrInvalidInterpolation
	}
}
