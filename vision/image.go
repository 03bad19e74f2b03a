// MODUL: image
// ZWECK: Bild-Lade-, Skalier- und Kodierfunktionen fuer Rollout-Eingaben und Overlays
// INPUT: Dateipfad, Bytes, io.Reader oder image.Image
// OUTPUT: ImageInput Struktur mit dekodiertem RGBA-Bild, kodierte PNG/JPEG-Bytes
// NEBENEFFEKTE: Dateisystem-Lesezugriff bei LoadImage
// ABHAENGIGKEITEN: golang.org/x/image/draw, golang.org/x/image/webp (extern), image/jpeg, image/png
// HINWEISE: Alle Bilder werden als RGBA gefuehrt, Ursprung immer (0,0)

package vision

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"io"
	"os"

	"golang.org/x/image/draw"
	_ "golang.org/x/image/webp"
)

// ImageInput enthaelt ein dekodiertes Bild mit Metadaten
type ImageInput struct {
	Image  *image.RGBA
	Width  int
	Height int
	Format ImageFormat
}

// LoadImage laedt ein Bild von einem Dateipfad
func LoadImage(path string) (*ImageInput, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("datei lesen fehlgeschlagen: %w", err)
	}
	return LoadImageFromBytes(data)
}

// LoadImageFromBytes dekodiert ein Bild aus Byte-Daten
func LoadImageFromBytes(data []byte) (*ImageInput, error) {
	format := DetectFormat(data)
	if err := ValidateFormat(format); err != nil {
		return nil, err
	}

	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("bild dekodieren fehlgeschlagen: %w", err)
	}

	input := FromImage(img)
	input.Format = format
	return input, nil
}

// DecodeImage dekodiert ein Bild aus einem io.Reader
func DecodeImage(reader io.Reader) (*ImageInput, error) {
	// Erst Daten puffern fuer Format-Erkennung
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("daten lesen fehlgeschlagen: %w", err)
	}
	return LoadImageFromBytes(data)
}

// FromImage wrappt ein beliebiges image.Image als ImageInput.
// Das Ergebnis hat immer den Ursprung (0,0).
func FromImage(img image.Image) *ImageInput {
	rgba := toRGBA(img)
	bounds := rgba.Bounds()

	return &ImageInput{
		Image:  rgba,
		Width:  bounds.Dx(),
		Height: bounds.Dy(),
		Format: FormatPNG,
	}
}

// toRGBA konvertiert ein beliebiges image.Image zu *image.RGBA mit Ursprung (0,0)
func toRGBA(img image.Image) *image.RGBA {
	if rgba, ok := img.(*image.RGBA); ok && rgba.Bounds().Min == (image.Point{}) {
		return rgba
	}

	bounds := img.Bounds()
	rgba := image.NewRGBA(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))
	draw.Draw(rgba, rgba.Bounds(), img, bounds.Min, draw.Src)
	return rgba
}

// ============================================================================
// Skalierung
// ============================================================================

// ResizeImage skaliert ein Bild bilinear auf die angegebene Groesse
func ResizeImage(img *ImageInput, width, height int) (*ImageInput, error) {
	return ResizeImageWith(img, width, height, draw.BiLinear)
}

// ResizeImageWith skaliert ein Bild mit dem angegebenen Interpolator
func ResizeImageWith(img *ImageInput, width, height int, interp draw.Interpolator) (*ImageInput, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	dst := image.NewRGBA(image.Rect(0, 0, width, height))
	interp.Scale(dst, dst.Bounds(), img.Image, img.Image.Bounds(), draw.Src, nil)

	return &ImageInput{
		Image:  dst,
		Width:  width,
		Height: height,
		Format: img.Format,
	}, nil
}

// ============================================================================
// Alpha-Behandlung
// ============================================================================

// Composite entfernt Alpha-Kanal durch weissen Hintergrund
func Composite(img *ImageInput) *ImageInput {
	return CompositeWithColor(img, color.White)
}

// CompositeWithColor entfernt Alpha-Kanal mit gegebener Hintergrundfarbe
func CompositeWithColor(img *ImageInput, bgColor color.Color) *ImageInput {
	if img.Image.Opaque() {
		return img
	}

	bounds := img.Image.Bounds()
	dst := image.NewRGBA(bounds)

	draw.Draw(dst, bounds, &image.Uniform{bgColor}, image.Point{}, draw.Src)
	draw.Draw(dst, bounds, img.Image, bounds.Min, draw.Over)

	return &ImageInput{
		Image:  dst,
		Width:  img.Width,
		Height: img.Height,
		Format: img.Format,
	}
}

// ============================================================================
// Kodierung
// ============================================================================

// EncodeImage schreibt ein Bild im angegebenen Format (PNG oder JPEG)
func EncodeImage(w io.Writer, img image.Image, format ImageFormat) error {
	switch format {
	case FormatPNG:
		return png.Encode(w, img)
	case FormatJPEG:
		return jpeg.Encode(w, img, &jpeg.Options{Quality: 95})
	default:
		return fmt.Errorf("%w: kodieren als %s", ErrUnsupportedFormat, format)
	}
}
