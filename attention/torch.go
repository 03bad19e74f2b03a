// MODUL: torch
// ZWECK: Loader fuer PyTorch-Dumps (torch.save) der Attention-Gewichte
// INPUT: Liste/Tupel von Layer-Tensoren, gestapelter Tensor oder Dict mit "attentions"
// OUTPUT: rollout.Sequence
// NEBENEFFEKTE: Schreibt den Stream kurzzeitig in eine temporaere Datei
// ABHAENGIGKEITEN: github.com/nlpodyssey/gopickle (extern), rollout
// HINWEISE: Unterstuetzt float32, float64, float16 und bfloat16 Storages mit beliebigen Strides

package attention

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"

	"github.com/ollama/rollout/rollout"
)

// torchKeys sind die Dict-Schluessel unter denen Attention gesucht wird
var torchKeys = []string{"attentions", "attention", "att_mat"}

var magicZip = []byte("PK\x03\x04")

type torchLoader struct{}

func (torchLoader) Name() string         { return "torch" }
func (torchLoader) Extensions() []string { return []string{".pt", ".pth"} }

func (torchLoader) Sniff(header []byte) bool {
	// Zip-Archiv (torch >= 1.6) oder Legacy-Pickle mit Protokoll-Byte
	return bytes.HasPrefix(header, magicZip) || (len(header) > 1 && header[0] == 0x80 && header[1] <= 5)
}

func (torchLoader) Decode(r io.Reader) (rollout.Sequence, error) {
	f, err := os.CreateTemp("", "rollout-*.pt")
	if err != nil {
		return nil, err
	}
	defer os.Remove(f.Name())

	if _, err := io.Copy(f, r); err != nil {
		f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}

	obj, err := pytorch.Load(f.Name())
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDump, err)
	}

	return torchSequence(obj)
}

// indexed deckt *types.List und *types.Tuple ab
type indexed interface {
	Len() int
	Get(i int) interface{}
}

// torchSequence interpretiert das geladene Pickle-Objekt.
func torchSequence(obj interface{}) (rollout.Sequence, error) {
	switch v := obj.(type) {
	case *pytorch.Tensor:
		dims, data, err := tensorData(v)
		if err != nil {
			return nil, err
		}
		return sequenceFromDims(dims, data)

	case *types.Dict:
		for _, key := range torchKeys {
			if inner, ok := v.Get(key); ok {
				return torchSequence(inner)
			}
		}
		return nil, fmt.Errorf("%w: dict without any of %v", ErrInvalidDump, torchKeys)

	case indexed:
		if v.Len() == 0 {
			return nil, rollout.ErrEmptySequence
		}
		seq := make(rollout.Sequence, 0, v.Len())
		for l := 0; l < v.Len(); l++ {
			t, ok := v.Get(l).(*pytorch.Tensor)
			if !ok {
				return nil, fmt.Errorf("%w: layer %d is %T, want tensor", ErrInvalidDump, l, v.Get(l))
			}
			dims, data, err := tensorData(t)
			if err != nil {
				return nil, fmt.Errorf("layer %d: %w", l, err)
			}
			layer, err := layerFromDims(dims, data)
			if err != nil {
				return nil, fmt.Errorf("layer %d: %w", l, err)
			}
			seq = append(seq, layer)
		}
		return seq, seq.Validate()

	default:
		return nil, fmt.Errorf("%w: unsupported object %T", ErrInvalidDump, obj)
	}
}

// tensorData liest einen Tensor in Row-Major-Reihenfolge aus seinem Storage.
func tensorData(t *pytorch.Tensor) ([]int, []float64, error) {
	var at func(i int) float64
	var size int

	switch s := t.Source.(type) {
	case *pytorch.FloatStorage:
		at, size = func(i int) float64 { return float64(s.Data[i]) }, len(s.Data)
	case *pytorch.DoubleStorage:
		at, size = func(i int) float64 { return s.Data[i] }, len(s.Data)
	case *pytorch.HalfStorage:
		at, size = func(i int) float64 { return float64(s.Data[i]) }, len(s.Data)
	case *pytorch.BFloat16Storage:
		at, size = func(i int) float64 { return float64(s.Data[i]) }, len(s.Data)
	default:
		return nil, nil, fmt.Errorf("%w: unsupported storage %T", ErrInvalidDump, t.Source)
	}

	dims := append([]int(nil), t.Size...)
	if len(t.Stride) != len(dims) {
		return nil, nil, fmt.Errorf("%w: %d strides for %d dims", ErrInvalidDump, len(t.Stride), len(dims))
	}

	n := product(dims)
	data := make([]float64, 0, n)
	idx := make([]int, len(dims))
	for range n {
		off := t.StorageOffset
		for d, i := range idx {
			off += i * t.Stride[d]
		}
		if off < 0 || off >= size {
			return nil, nil, fmt.Errorf("%w: storage offset %d out of range", ErrInvalidDump, off)
		}
		data = append(data, at(off))

		for d := len(idx) - 1; d >= 0; d-- {
			idx[d]++
			if idx[d] < dims[d] {
				break
			}
			idx[d] = 0
		}
	}

	return dims, data, nil
}
