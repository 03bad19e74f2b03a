// MODUL: engine
// ZWECK: Attention-Rollout: Head-Fusion, Residual-Augmentation, Joint-Komposition, Extraktion
// INPUT: Sequence (L Layer, je H x T x T)
// OUTPUT: SaliencyGrid ueber den Patch-Tokens plus alle Zwischenergebnisse
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: github.com/pdevine/tensor, gonum.org/v1/gonum/{mat,floats} (extern)
// HINWEISE: Reihenfolge der Multiplikation ist festgelegt: joint[n] = aug[n] * joint[n-1]

package rollout

import (
	"fmt"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// Result enthaelt alle Zwischenschritte eines Rollout-Laufs.
type Result struct {
	Averaged  []*mat.Dense // pro Layer: Mittelwert ueber Heads (T x T)
	Augmented []*mat.Dense // pro Layer: (Averaged + I), zeilenweise renormalisiert
	Joint     []*mat.Dense // pro Layer: kumulierte Attention bis einschliesslich Layer n
	Saliency  []float64    // Zeile 0 von Joint[L-1], Spalten 1..T-1
	Grid      *SaliencyGrid
}

// ============================================================================
// Einstiegspunkte
// ============================================================================

// Rollout berechnet das SaliencyGrid einer Sequence.
func Rollout(seq Sequence) (*SaliencyGrid, error) {
	res, err := Compute(seq)
	if err != nil {
		return nil, err
	}
	return res.Grid, nil
}

// Compute fuehrt alle fuenf Rollout-Schritte aus und behaelt die Zwischenergebnisse.
// Bei einem Fehler wird kein Teilergebnis zurueckgegeben.
func Compute(seq Sequence) (*Result, error) {
	res, err := Accumulate(seq)
	if err != nil {
		return nil, err
	}

	res.Saliency = ExtractSaliency(res.Joint[len(res.Joint)-1])

	res.Grid, err = Reshape(res.Saliency)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// Accumulate fuehrt die Schritte 1 bis 3 aus (Head-Fusion, Augmentation,
// Joint-Komposition). Saliency und Grid bleiben leer, so dass sich die
// Layer auch dann auswerten lassen, wenn die Patch-Anzahl kein Quadrat ist.
func Accumulate(seq Sequence) (*Result, error) {
	if err := seq.Validate(); err != nil {
		return nil, err
	}

	averaged := make([]*mat.Dense, len(seq))
	augmented := make([]*mat.Dense, len(seq))
	for i, layer := range seq {
		avg, err := FuseHeads(layer)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", i, err)
		}
		averaged[i] = avg
		augmented[i] = Augment(avg)
	}

	joint, err := JointAttention(augmented)
	if err != nil {
		return nil, err
	}

	return &Result{
		Averaged:  averaged,
		Augmented: augmented,
		Joint:     joint,
	}, nil
}

// ============================================================================
// Schritt 1 - Head-Fusion
// ============================================================================

// FuseHeads bildet den ungewichteten Mittelwert ueber die Head-Achse.
func FuseHeads(t *AttentionTensor) (*mat.Dense, error) {
	if t == nil {
		return nil, fmt.Errorf("%w: nil tensor", ErrInvalidTensor)
	}

	n := t.Tokens()
	if t.Heads() == 1 {
		return t.Head(0), nil
	}
	heads := float64(t.Heads())

	summed, err := t.dense.Sum(0)
	if err != nil {
		return nil, fmt.Errorf("%w: head reduction: %v", ErrInvalidTensor, err)
	}

	values, ok := summed.Data().([]float64)
	if !ok || len(values) != n*n {
		return nil, fmt.Errorf("%w: head reduction returned %v", ErrInvalidTensor, summed.Shape())
	}

	mean := make([]float64, n*n)
	for i, v := range values {
		mean[i] = v / heads
	}

	return mat.NewDense(n, n, mean), nil
}

// ============================================================================
// Schritt 2 - Residual-Augmentation
// ============================================================================

// Augment addiert die Identitaet und normalisiert jede Zeile auf Summe 1.
// avg muss quadratisch sein, sonst panic(mat.ErrSquare).
func Augment(avg mat.Matrix) *mat.Dense {
	r, c := avg.Dims()
	if r != c {
		panic(mat.ErrSquare)
	}

	var aug mat.Dense
	aug.Add(avg, identity(r))

	for i := 0; i < r; i++ {
		row := aug.RawRowView(i)
		sum := floats.Sum(row)
		for j := range row {
			row[j] /= sum
		}
	}

	return &aug
}

// identity erzeugt eine n x n Einheitsmatrix
func identity(n int) *mat.DiagDense {
	ones := make([]float64, n)
	for i := range ones {
		ones[i] = 1
	}
	return mat.NewDiagDense(n, ones)
}

// ============================================================================
// Schritt 3 - Joint-Komposition
// ============================================================================

// JointAttention faltet die augmentierten Matrizen von links nach rechts:
// joint[0] = aug[0], joint[n] = aug[n] * joint[n-1].
// Der neuere Layer ist immer der linke Operand.
func JointAttention(aug []*mat.Dense) ([]*mat.Dense, error) {
	if len(aug) == 0 {
		return nil, ErrEmptySequence
	}

	r0, c0 := aug[0].Dims()
	if r0 != c0 {
		return nil, fmt.Errorf("%w: layer 0 is %dx%d, want square", ErrInvalidTensor, r0, c0)
	}
	want := Shape{Tokens: r0}

	joint := make([]*mat.Dense, len(aug))
	joint[0] = mat.DenseCopyOf(aug[0])

	for n := 1; n < len(aug); n++ {
		r, c := aug[n].Dims()
		if r != r0 || c != c0 {
			return nil, &ShapeMismatchError{Layer: n, Want: want, Got: Shape{Tokens: r}}
		}

		var next mat.Dense
		next.Mul(aug[n], joint[n-1])
		joint[n] = &next
	}

	return joint, nil
}

// ============================================================================
// Schritt 4 - Extraktion
// ============================================================================

// ExtractSaliency gibt die Zeile des Klassifikations-Tokens ohne den
// Eintrag Klassifikations-Token -> Klassifikations-Token zurueck.
func ExtractSaliency(joint mat.Matrix) []float64 {
	row := mat.Row(nil, 0, joint)
	return row[1:]
}
