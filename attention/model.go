// MODUL: model
// ZWECK: Beschreibung des Patch-Layouts eines Vision Transformers
// INPUT: Bildgroesse, Patchgroesse, Layer- und Head-Anzahl
// OUTPUT: ModelInfo, Abgleich gegen eine rollout.Sequence
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: rollout
// HINWEISE: Felder mit Wert 0 werden beim Abgleich nicht geprueft

package attention

import (
	"fmt"

	"github.com/ollama/rollout/rollout"
)

// ModelInfo beschreibt ein Modell dessen Attention ausgewertet wird.
type ModelInfo struct {
	Name      string `json:"name"`
	ImageSize int    `json:"image_size"`
	PatchSize int    `json:"patch_size"`
	Layers    int    `json:"layers"`
	Heads     int    `json:"heads"`
}

// ViTB16 ist ViT-B_16 bei 384x384: 24x24 Patches, 12 Bloecke mit je 12 Heads.
var ViTB16 = ModelInfo{
	Name:      "ViT-B_16",
	ImageSize: 384,
	PatchSize: 16,
	Layers:    12,
	Heads:     12,
}

// GridSize gibt die Anzahl der Patches pro Bildseite zurueck (0 wenn unbekannt).
func (m ModelInfo) GridSize() int {
	if m.ImageSize <= 0 || m.PatchSize <= 0 {
		return 0
	}
	return m.ImageSize / m.PatchSize
}

// Tokens gibt 1 + Patches zurueck (0 wenn unbekannt).
func (m ModelInfo) Tokens() int {
	g := m.GridSize()
	if g == 0 {
		return 0
	}
	return g*g + 1
}

// Validate prueft eine Sequence gegen das erwartete Layout.
func (m ModelInfo) Validate(seq rollout.Sequence) error {
	if err := seq.Validate(); err != nil {
		return err
	}

	shape := seq.Shape()
	switch {
	case m.ImageSize > 0 && m.PatchSize > 0 && m.ImageSize%m.PatchSize != 0:
		return fmt.Errorf("%w: image size %d not divisible by patch size %d", ErrModelMismatch, m.ImageSize, m.PatchSize)
	case m.Layers > 0 && seq.Len() != m.Layers:
		return fmt.Errorf("%w: %d layers, model %q has %d", ErrModelMismatch, seq.Len(), m.Name, m.Layers)
	case m.Heads > 0 && shape.Heads != m.Heads:
		return fmt.Errorf("%w: %d heads, model %q has %d", ErrModelMismatch, shape.Heads, m.Name, m.Heads)
	case m.Tokens() > 0 && shape.Tokens != m.Tokens():
		return fmt.Errorf("%w: %d tokens, model %q expects %d (%dx%d patches + class token)",
			ErrModelMismatch, shape.Tokens, m.Name, m.Tokens(), m.GridSize(), m.GridSize())
	}

	return nil
}
