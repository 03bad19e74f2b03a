// Package visualize - Pipeline vom Eingabebild bis zum Overlay.
//
// MODUL: visualize
// ZWECK: Vorverarbeitung, Attention-Sammlung, Rollout und Overlay verbinden
// INPUT: vision.ImageInput, attention.Collector, optionale ModelInfo
// OUTPUT: Result{Rollout, Overlay, Logits}, optional geschrieben in einen overlay.Sink
// NEBENEFFEKTE: Logging ueber slog, I/O nur im Collector und im Sink
// ABHAENGIGKEITEN: attention, overlay, rollout, vision
// HINWEISE: Modell und Bild sind explizite Parameter, der Konstruktor macht kein I/O
package visualize

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"time"

	"github.com/ollama/rollout/attention"
	"github.com/ollama/rollout/logutil"
	"github.com/ollama/rollout/overlay"
	"github.com/ollama/rollout/rollout"
	"github.com/ollama/rollout/vision"
)

// ErrNoCollector wird zurueckgegeben wenn kein Collector gesetzt ist
var ErrNoCollector = errors.New("visualize: no attention collector")

// Result enthaelt alle Ergebnisse eines Durchlaufs.
type Result struct {
	Rollout *rollout.Result
	Overlay *image.RGBA
	Logits  []float32
}

// Visualizer fuehrt die Pipeline aus.
type Visualizer struct {
	Collector  attention.Collector
	Model      attention.ModelInfo
	Preprocess []vision.Option
	Heatmap    bool
	Logger     *slog.Logger
}

// Option konfiguriert einen Visualizer.
type Option func(*Visualizer)

// WithModel setzt das erwartete Patch-Layout.
func WithModel(m attention.ModelInfo) Option {
	return func(v *Visualizer) { v.Model = m }
}

// WithPreprocess haengt Vorverarbeitungs-Optionen an.
func WithPreprocess(opts ...vision.Option) Option {
	return func(v *Visualizer) { v.Preprocess = append(v.Preprocess, opts...) }
}

// WithHeatmap schaltet auf Falschfarben-Ausgabe um.
func WithHeatmap(enabled bool) Option {
	return func(v *Visualizer) { v.Heatmap = enabled }
}

// WithLogger setzt den Logger (Standard: slog.Default()).
func WithLogger(l *slog.Logger) Option {
	return func(v *Visualizer) { v.Logger = l }
}

// New erstellt einen Visualizer.
func New(c attention.Collector, opts ...Option) *Visualizer {
	v := &Visualizer{Collector: c}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (v *Visualizer) logger() *slog.Logger {
	if v.Logger != nil {
		return v.Logger
	}
	return slog.Default()
}

// Visualize berechnet den Rollout fuer img und legt ihn ueber das Originalbild.
func (v *Visualizer) Visualize(ctx context.Context, img *vision.ImageInput) (*Result, error) {
	if v.Collector == nil {
		return nil, ErrNoCollector
	}
	if img == nil || img.Image == nil {
		return nil, vision.ErrNilImage
	}

	start := time.Now()
	log := v.logger()

	input, err := vision.Preprocess(img, v.Preprocess...)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}
	log.Debug("image preprocessed", "width", img.Width, "height", img.Height, "shape", input.Shape())

	out, err := v.Collector.Collect(ctx, input)
	if err != nil {
		return nil, fmt.Errorf("collect attention: %w", err)
	}

	if err := v.Model.Validate(out.Layers); err != nil {
		return nil, err
	}

	res, err := rollout.Compute(out.Layers)
	if err != nil {
		return nil, err
	}
	log.Log(ctx, logutil.LevelTrace, "rollout computed", "layers", out.Layers.Len(), "shape", out.Layers.Shape(), "grid", res.Grid.Side())

	var rendered *image.RGBA
	if v.Heatmap {
		rendered, err = overlay.Heatmap(res.Grid, img.Width, img.Height)
	} else {
		rendered, err = overlay.Compose(res.Grid, img)
	}
	if err != nil {
		return nil, fmt.Errorf("overlay: %w", err)
	}

	log.Debug("visualization done", "grid", res.Grid.Side(), "max", res.Grid.Max(), "duration", time.Since(start))

	return &Result{Rollout: res, Overlay: rendered, Logits: out.Logits}, nil
}

// Render fuehrt Visualize aus und schreibt das Overlay in sink.
func (v *Visualizer) Render(ctx context.Context, img *vision.ImageInput, sink overlay.Sink) (*Result, error) {
	res, err := v.Visualize(ctx, img)
	if err != nil {
		return nil, err
	}

	if err := sink.Write(ctx, res.Overlay); err != nil {
		return nil, fmt.Errorf("write overlay: %w", err)
	}
	return res, nil
}
