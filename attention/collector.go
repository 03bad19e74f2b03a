// MODUL: collector
// ZWECK: Modell-Grenze: liefert Logits und die Attention aller Transformer-Bloecke
// INPUT: Vorverarbeiteter Bild-Tensor (vision.Tensor)
// OUTPUT: Output{Logits, Layers}
// NEBENEFFEKTE: FileCollector liest von der Platte
// ABHAENGIGKEITEN: rollout, vision
// HINWEISE: Der Forward-Pass selbst laeuft ausserhalb (z.B. PyTorch-Export), Logits werden nur durchgereicht

package attention

import (
	"context"
	"log/slog"

	"github.com/ollama/rollout/rollout"
	"github.com/ollama/rollout/vision"
)

// Output ist das Ergebnis eines Forward-Passes.
type Output struct {
	Logits []float32
	Layers rollout.Sequence
}

// Collector fuehrt einen Forward-Pass aus und sammelt die Attention-Gewichte.
type Collector interface {
	Collect(ctx context.Context, input *vision.Tensor) (*Output, error)
}

// CollectorFunc erlaubt gewoehnliche Funktionen als Collector.
type CollectorFunc func(ctx context.Context, input *vision.Tensor) (*Output, error)

func (f CollectorFunc) Collect(ctx context.Context, input *vision.Tensor) (*Output, error) {
	return f(ctx, input)
}

// ============================================================================
// StaticCollector
// ============================================================================

// StaticCollector liefert unabhaengig vom Bild immer dieselbe Sequence.
type StaticCollector struct {
	Layers rollout.Sequence
	Logits []float32
}

// NewStaticCollector erstellt einen StaticCollector.
func NewStaticCollector(seq rollout.Sequence) *StaticCollector {
	return &StaticCollector{Layers: seq}
}

func (c *StaticCollector) Collect(ctx context.Context, input *vision.Tensor) (*Output, error) {
	if input == nil {
		return nil, ErrNilInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := c.Layers.Validate(); err != nil {
		return nil, err
	}

	return &Output{Logits: c.Logits, Layers: c.Layers}, nil
}

// ============================================================================
// FileCollector
// ============================================================================

// FileCollector laedt einen Attention-Dump ueber eine Registry.
type FileCollector struct {
	Path     string
	Format   string    // leer = automatische Erkennung
	Registry *Registry // nil = DefaultRegistry
}

// NewFileCollector erstellt einen FileCollector fuer path.
func NewFileCollector(path, format string) *FileCollector {
	return &FileCollector{Path: path, Format: format}
}

func (c *FileCollector) Collect(ctx context.Context, input *vision.Tensor) (*Output, error) {
	if input == nil {
		return nil, ErrNilInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	reg := c.Registry
	if reg == nil {
		reg = DefaultRegistry
	}

	seq, err := reg.LoadFile(c.Path, c.Format)
	if err != nil {
		return nil, err
	}

	shape := seq.Shape()
	slog.Debug("attention dump loaded", "path", c.Path, "layers", seq.Len(), "heads", shape.Heads, "tokens", shape.Tokens)

	return &Output{Layers: seq}, nil
}
