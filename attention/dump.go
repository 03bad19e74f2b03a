// MODUL: dump
// ZWECK: Gemeinsame Hilfsfunktionen der Loader (Form pruefen, Batch-Achse entfernen, Sequence bauen)
// INPUT: Dimensionen und flache float64-Daten
// OUTPUT: rollout.AttentionTensor bzw. rollout.Sequence
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: rollout
// HINWEISE: Eine Batch-Achse der Laenge 1 wird entfernt (wie squeeze(1) beim Stapeln)

package attention

import (
	"fmt"

	"github.com/ollama/rollout/rollout"
)

// squeezeLayer bringt die Form eines einzelnen Layers auf (H, T, T).
// Erlaubt sind (H, T, T), (1, H, T, T) und (T, T) fuer einen einzelnen Head.
func squeezeLayer(dims []int) ([]int, error) {
	switch {
	case len(dims) == 2:
		return []int{1, dims[0], dims[1]}, nil
	case len(dims) == 3:
		return dims, nil
	case len(dims) == 4 && dims[0] == 1:
		return dims[1:], nil
	default:
		return nil, fmt.Errorf("%w: layer shape %v, want HxTxT or 1xHxTxT", ErrInvalidDump, dims)
	}
}

// squeezeStack bringt die Form eines gestapelten Dumps auf (L, H, T, T).
// Ein Rang-4 Block gilt als L x H x T x T, ein Rang-5 Block braucht Batch 1 an Achse 1.
func squeezeStack(dims []int) ([]int, error) {
	switch {
	case len(dims) == 4:
		return dims, nil
	case len(dims) == 5 && dims[1] == 1:
		return []int{dims[0], dims[2], dims[3], dims[4]}, nil
	default:
		return nil, fmt.Errorf("%w: stacked shape %v, want LxHxTxT or Lx1xHxTxT", ErrInvalidDump, dims)
	}
}

// layerFromDims baut einen AttentionTensor aus flachen Daten.
func layerFromDims(dims []int, data []float64) (*rollout.AttentionTensor, error) {
	hw, err := squeezeLayer(dims)
	if err != nil {
		return nil, err
	}
	if hw[1] != hw[2] {
		return nil, fmt.Errorf("%w: attention %dx%d is not square", ErrInvalidDump, hw[1], hw[2])
	}
	return rollout.NewAttentionTensor(hw[0], hw[1], data)
}

// sequenceFromDims zerlegt einen gestapelten Block in Layer.
func sequenceFromDims(dims []int, data []float64) (rollout.Sequence, error) {
	lhw, err := squeezeStack(dims)
	if err != nil {
		return nil, err
	}

	layers, heads, rows, cols := lhw[0], lhw[1], lhw[2], lhw[3]
	if rows != cols {
		return nil, fmt.Errorf("%w: attention %dx%d is not square", ErrInvalidDump, rows, cols)
	}
	per := heads * rows * cols
	if len(data) != layers*per {
		return nil, fmt.Errorf("%w: %d values for shape %v", ErrInvalidDump, len(data), lhw)
	}

	seq := make(rollout.Sequence, 0, layers)
	for l := range layers {
		t, err := rollout.NewAttentionTensor(heads, rows, data[l*per:(l+1)*per])
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", l, err)
		}
		seq = append(seq, t)
	}

	return seq, seq.Validate()
}

// product gibt das Produkt aller Dimensionen zurueck.
func product(dims []int) int {
	n := 1
	for _, d := range dims {
		n *= d
	}
	return n
}
