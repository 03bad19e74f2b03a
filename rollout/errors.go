// MODUL: errors
// ZWECK: Fehler-Taxonomie der Rollout-Engine (strukturelle Vorbedingungen)
// INPUT: Layer-Index, erwartete und gefundene Formen, Patch-Anzahl
// OUTPUT: Sentinel-Fehler und typisierte Fehler mit Kontext
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: errors, fmt (Standardbibliothek)
// HINWEISE: Typisierte Fehler matchen ihren Sentinel via errors.Is

package rollout

import (
	"errors"
	"fmt"
)

// ============================================================================
// Sentinel-Fehler
// ============================================================================

var (
	// ErrEmptySequence wird zurueckgegeben wenn keine Layer uebergeben wurden
	ErrEmptySequence = errors.New("rollout: empty attention sequence")

	// ErrShapeMismatch wird zurueckgegeben wenn Layer unterschiedliche Formen haben
	ErrShapeMismatch = errors.New("rollout: attention shape mismatch")

	// ErrNonSquarePatchCount wird zurueckgegeben wenn die Patch-Anzahl keine Quadratzahl ist
	ErrNonSquarePatchCount = errors.New("rollout: patch count is not a perfect square")

	// ErrInvalidTensor wird zurueckgegeben bei ungueltigen Tensor-Dimensionen oder Daten
	ErrInvalidTensor = errors.New("rollout: invalid attention tensor")
)

// ============================================================================
// Shape
// ============================================================================

// Shape beschreibt die Form eines AttentionTensors (Heads x Tokens x Tokens).
// Heads == 0 steht fuer eine bereits fusionierte 2-D Matrix.
type Shape struct {
	Heads  int
	Tokens int
}

// Patches gibt die Anzahl der Patch-Tokens zurueck (ohne Klassifikations-Token).
func (s Shape) Patches() int {
	return s.Tokens - 1
}

// String implementiert Stringer Interface
func (s Shape) String() string {
	if s.Heads == 0 {
		return fmt.Sprintf("%dx%d", s.Tokens, s.Tokens)
	}
	return fmt.Sprintf("%dx%dx%d", s.Heads, s.Tokens, s.Tokens)
}

// ============================================================================
// Typisierte Fehler
// ============================================================================

// ShapeMismatchError meldet einen Layer dessen Form von Layer 0 abweicht.
type ShapeMismatchError struct {
	Layer int   // Index des abweichenden Layers
	Want  Shape // Form von Layer 0
	Got   Shape // Form des abweichenden Layers
}

func (e *ShapeMismatchError) Error() string {
	return fmt.Sprintf("%v: layer %d has shape %s, want %s", ErrShapeMismatch, e.Layer, e.Got, e.Want)
}

// Is laesst errors.Is(err, ErrShapeMismatch) greifen.
func (e *ShapeMismatchError) Is(target error) bool {
	return target == ErrShapeMismatch
}

// NonSquarePatchCountError meldet einen SaliencyVector ohne ganzzahlige Wurzel.
type NonSquarePatchCountError struct {
	Patches int
}

func (e *NonSquarePatchCountError) Error() string {
	return fmt.Sprintf("%v: %d patches", ErrNonSquarePatchCount, e.Patches)
}

// Is laesst errors.Is(err, ErrNonSquarePatchCount) greifen.
func (e *NonSquarePatchCountError) Is(target error) bool {
	return target == ErrNonSquarePatchCount
}
