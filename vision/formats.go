// MODUL: formats
// ZWECK: Bildformat-Erkennung und Validierung fuer Eingabebilder und Overlay-Ausgaben
// INPUT: Bild-Bytes, Format-String oder Dateiname
// OUTPUT: ImageFormat, Fehler bei ungueltigem Format
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: bytes, errors, path/filepath, strings (Standardbibliothek)
// HINWEISE: Magic-Bytes-basierte Erkennung, WebP nur lesend

package vision

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
)

// ImageFormat repraesentiert ein unterstuetztes Bildformat
type ImageFormat string

const (
	FormatJPEG    ImageFormat = "jpeg"
	FormatPNG     ImageFormat = "png"
	FormatWebP    ImageFormat = "webp"
	FormatUnknown ImageFormat = "unknown"
)

// Magic-Byte-Signaturen fuer Bildformate
var (
	magicJPEG = []byte{0xFF, 0xD8, 0xFF}
	magicPNG  = []byte{0x89, 0x50, 0x4E, 0x47}
	magicRIFF = []byte("RIFF")
	magicWebP = []byte("WEBP")
)

var (
	// ErrUnknownFormat wird zurueckgegeben wenn Format nicht erkannt wurde
	ErrUnknownFormat = errors.New("vision: unknown image format")

	// ErrUnsupportedFormat wird zurueckgegeben bei nicht unterstuetztem Format
	ErrUnsupportedFormat = errors.New("vision: unsupported image format")

	// ErrInvalidSize wird zurueckgegeben bei Zielgroessen <= 0
	ErrInvalidSize = errors.New("vision: invalid image size")
)

// DetectFormat erkennt das Bildformat anhand der Magic-Bytes
func DetectFormat(data []byte) ImageFormat {
	switch {
	case len(data) < 4:
		return FormatUnknown
	case bytes.HasPrefix(data, magicJPEG):
		return FormatJPEG
	case bytes.HasPrefix(data, magicPNG):
		return FormatPNG
	case bytes.HasPrefix(data, magicRIFF) && len(data) >= 12 && bytes.Equal(data[8:12], magicWebP):
		return FormatWebP
	default:
		return FormatUnknown
	}
}

// ValidateFormat prueft ob ein Format dekodiert werden kann
func ValidateFormat(format ImageFormat) error {
	switch format {
	case FormatJPEG, FormatPNG, FormatWebP:
		return nil
	case FormatUnknown:
		return ErrUnknownFormat
	default:
		return ErrUnsupportedFormat
	}
}

// ParseFormat parst einen Format-Namen ("png", "jpg", "jpeg", "webp")
func ParseFormat(s string) ImageFormat {
	switch strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), ".")) {
	case "jpg", "jpeg":
		return FormatJPEG
	case "png":
		return FormatPNG
	case "webp":
		return FormatWebP
	default:
		return FormatUnknown
	}
}

// FormatFromPath leitet das Format aus der Dateiendung ab
func FormatFromPath(path string) ImageFormat {
	return ParseFormat(filepath.Ext(path))
}

// MimeType gibt den MIME-Type fuer ein Format zurueck
func (f ImageFormat) MimeType() string {
	switch f {
	case FormatJPEG:
		return "image/jpeg"
	case FormatPNG:
		return "image/png"
	case FormatWebP:
		return "image/webp"
	default:
		return "application/octet-stream"
	}
}

// String implementiert Stringer Interface
func (f ImageFormat) String() string {
	return string(f)
}
