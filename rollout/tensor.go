// MODUL: tensor
// ZWECK: AttentionTensor (Heads x Tokens x Tokens) und LayerAttentionSequence
// INPUT: Float64-Daten im Layout [head][query][key]
// OUTPUT: Unveraenderliche Tensoren, validierte Sequenzen
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: github.com/pdevine/tensor (extern), gonum.org/v1/gonum/mat (extern)
// HINWEISE: Backing-Slice wird beim Erstellen kopiert, Accessoren liefern Kopien

package rollout

import (
	"fmt"

	"github.com/pdevine/tensor"
	"gonum.org/v1/gonum/mat"
)

// ============================================================================
// AttentionTensor
// ============================================================================

// AttentionTensor enthaelt die Self-Attention eines Transformer-Blocks.
// Jede Zeile (fester Head, festes Query-Token) ist eine Wahrscheinlichkeitsverteilung
// ueber die Key-Tokens. Das wird vom Tensor nicht geprueft.
type AttentionTensor struct {
	shape Shape
	data  []float64
	dense *tensor.Dense
}

// NewAttentionTensor erstellt einen Tensor der Form heads x tokens x tokens.
// data liegt row-major im Layout [head][query][key] vor und wird kopiert.
func NewAttentionTensor(heads, tokens int, data []float64) (*AttentionTensor, error) {
	if heads < 1 {
		return nil, fmt.Errorf("%w: heads must be >= 1, got %d", ErrInvalidTensor, heads)
	}
	if tokens < 2 {
		return nil, fmt.Errorf("%w: tokens must be >= 2, got %d", ErrInvalidTensor, tokens)
	}
	if want := heads * tokens * tokens; len(data) != want {
		return nil, fmt.Errorf("%w: %d values for shape %dx%dx%d, want %d",
			ErrInvalidTensor, len(data), heads, tokens, tokens, want)
	}

	backing := make([]float64, len(data))
	copy(backing, data)

	return &AttentionTensor{
		shape: Shape{Heads: heads, Tokens: tokens},
		data:  backing,
		dense: tensor.New(tensor.WithShape(heads, tokens, tokens), tensor.WithBacking(backing)),
	}, nil
}

// NewAttentionTensorFromHeads baut einen Tensor aus einzelnen Head-Matrizen.
func NewAttentionTensorFromHeads(heads ...mat.Matrix) (*AttentionTensor, error) {
	if len(heads) == 0 {
		return nil, fmt.Errorf("%w: no heads", ErrInvalidTensor)
	}

	r, c := heads[0].Dims()
	if r != c {
		return nil, fmt.Errorf("%w: head 0 is %dx%d, want square", ErrInvalidTensor, r, c)
	}

	data := make([]float64, 0, len(heads)*r*c)
	for h, m := range heads {
		hr, hc := m.Dims()
		if hr != r || hc != c {
			return nil, fmt.Errorf("%w: head %d is %dx%d, want %dx%d", ErrInvalidTensor, h, hr, hc, r, c)
		}
		for i := 0; i < r; i++ {
			data = append(data, mat.Row(nil, i, m)...)
		}
	}

	return NewAttentionTensor(len(heads), r, data)
}

// Heads gibt die Anzahl der Heads zurueck
func (t *AttentionTensor) Heads() int {
	return t.shape.Heads
}

// Tokens gibt die Anzahl der Tokens zurueck (1 + Patches)
func (t *AttentionTensor) Tokens() int {
	return t.shape.Tokens
}

// Shape gibt die Form des Tensors zurueck
func (t *AttentionTensor) Shape() Shape {
	return t.shape
}

// At gibt den Wert an [head, query, key] zurueck.
// Panics bei Indizes ausserhalb der Form, wie mat.Dense.At.
func (t *AttentionTensor) At(head, query, key int) float64 {
	n := t.shape.Tokens
	if head < 0 || head >= t.shape.Heads || query < 0 || query >= n || key < 0 || key >= n {
		panic(mat.ErrIndexOutOfRange)
	}
	return t.data[(head*n+query)*n+key]
}

// Head gibt eine Kopie der Matrix eines einzelnen Heads zurueck.
func (t *AttentionTensor) Head(h int) *mat.Dense {
	if h < 0 || h >= t.shape.Heads {
		panic(mat.ErrIndexOutOfRange)
	}

	n := t.shape.Tokens
	plane := make([]float64, n*n)
	copy(plane, t.data[h*n*n:(h+1)*n*n])
	return mat.NewDense(n, n, plane)
}

// Data gibt eine Kopie der Rohdaten im Layout [head][query][key] zurueck.
func (t *AttentionTensor) Data() []float64 {
	out := make([]float64, len(t.data))
	copy(out, t.data)
	return out
}

// ============================================================================
// Sequence - LayerAttentionSequence
// ============================================================================

// Sequence ist die geordnete Liste der Attention-Tensoren, Layer 0 zuerst.
type Sequence []*AttentionTensor

// NewSequence erstellt und validiert eine Sequence.
func NewSequence(layers ...*AttentionTensor) (Sequence, error) {
	seq := make(Sequence, len(layers))
	copy(seq, layers)

	if err := seq.Validate(); err != nil {
		return nil, err
	}
	return seq, nil
}

// Validate prueft dass mindestens ein Layer existiert und alle Layer
// dieselbe Form wie Layer 0 haben.
func (s Sequence) Validate() error {
	if len(s) == 0 {
		return ErrEmptySequence
	}

	for i, layer := range s {
		if layer == nil {
			return fmt.Errorf("%w: layer %d is nil", ErrInvalidTensor, i)
		}
	}

	want := s[0].Shape()
	for i := 1; i < len(s); i++ {
		if got := s[i].Shape(); got != want {
			return &ShapeMismatchError{Layer: i, Want: want, Got: got}
		}
	}

	return nil
}

// Len gibt die Anzahl der Layer zurueck
func (s Sequence) Len() int {
	return len(s)
}

// Shape gibt die Form von Layer 0 zurueck, oder Shape{} bei leerer Sequence.
func (s Sequence) Shape() Shape {
	if len(s) == 0 || s[0] == nil {
		return Shape{}
	}
	return s[0].Shape()
}
