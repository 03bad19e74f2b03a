// MODUL: sink
// ZWECK: Ausgabeziele fuer Overlay-Bilder (Datei, io.Writer, Speicher)
// INPUT: *image.RGBA
// OUTPUT: PNG/JPEG-Datei, Stream oder im Speicher gehaltenes Bild
// NEBENEFFEKTE: FileSink schreibt auf die Platte
// ABHAENGIGKEITEN: vision (Kodierung)
// HINWEISE: FileSink schreibt zuerst in eine temporaere Datei und benennt dann um

package overlay

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/ollama/rollout/vision"
)

// ErrNilOverlay wird zurueckgegeben wenn ein Sink kein Bild bekommt
var ErrNilOverlay = errors.New("overlay: nil overlay image")

// Sink nimmt ein fertiges Overlay entgegen.
type Sink interface {
	Write(ctx context.Context, img *image.RGBA) error
}

// ============================================================================
// FileSink
// ============================================================================

// FileSink schreibt das Overlay in eine Datei. Ohne Format wird es aus der
// Dateiendung abgeleitet.
type FileSink struct {
	Path   string
	Format vision.ImageFormat
}

func (s *FileSink) Write(ctx context.Context, img *image.RGBA) error {
	if img == nil {
		return ErrNilOverlay
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	format := s.Format
	if format == "" {
		format = vision.FormatFromPath(s.Path)
	}

	f, err := os.CreateTemp(filepath.Dir(s.Path), ".overlay-*")
	if err != nil {
		return err
	}
	defer os.Remove(f.Name())

	if err := vision.EncodeImage(f, img, format); err != nil {
		f.Close()
		return fmt.Errorf("overlay %s: %w", s.Path, err)
	}
	if err := f.Close(); err != nil {
		return err
	}

	return os.Rename(f.Name(), s.Path)
}

// ============================================================================
// WriterSink
// ============================================================================

// WriterSink kodiert das Overlay in einen io.Writer (z.B. HTTP-Response).
type WriterSink struct {
	W      io.Writer
	Format vision.ImageFormat // leer = PNG
}

func (s *WriterSink) Write(ctx context.Context, img *image.RGBA) error {
	if img == nil {
		return ErrNilOverlay
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	format := s.Format
	if format == "" {
		format = vision.FormatPNG
	}
	return vision.EncodeImage(s.W, img, format)
}

// ============================================================================
// MemorySink
// ============================================================================

// MemorySink behaelt das zuletzt geschriebene Overlay.
type MemorySink struct {
	mu    sync.Mutex
	last  *image.RGBA
	count int
}

func (s *MemorySink) Write(ctx context.Context, img *image.RGBA) error {
	if img == nil {
		return ErrNilOverlay
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.last = img
	s.count++
	return nil
}

// Last gibt das zuletzt geschriebene Overlay zurueck (nil wenn keines).
func (s *MemorySink) Last() *image.RGBA {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.last
}

// Count gibt die Anzahl geschriebener Overlays zurueck.
func (s *MemorySink) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.count
}
