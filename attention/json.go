// MODUL: json
// ZWECK: Loader fuer JSON-Dumps der Attention-Gewichte
// INPUT: {"model": {...}, "layers": L x H x T x T} oder direkt ein verschachteltes Array
// OUTPUT: rollout.Sequence
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: encoding/json (Standardbibliothek), rollout
// HINWEISE: Verschachtelte Arrays muessen rechteckig sein, Batch-Achse 1 wird entfernt

package attention

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/ollama/rollout/rollout"
)

// JSONDump ist das Objekt-Layout eines JSON-Dumps.
type JSONDump struct {
	Model  *ModelInfo `json:"model,omitempty"`
	Layers any        `json:"layers"`
}

type jsonLoader struct{}

func (jsonLoader) Name() string         { return "json" }
func (jsonLoader) Extensions() []string { return []string{".json"} }

func (jsonLoader) Sniff(header []byte) bool {
	trimmed := bytes.TrimLeft(header, " \t\r\n")
	return len(trimmed) > 0 && (trimmed[0] == '{' || trimmed[0] == '[')
}

func (jsonLoader) Decode(r io.Reader) (rollout.Sequence, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var root any
	trimmed := bytes.TrimLeft(raw, " \t\r\n")
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var dump JSONDump
		if err := json.Unmarshal(raw, &dump); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidDump, err)
		}
		if dump.Layers == nil {
			return nil, fmt.Errorf("%w: missing \"layers\"", ErrInvalidDump)
		}
		root = dump.Layers
	} else if err := json.Unmarshal(raw, &root); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDump, err)
	}

	layers, ok := root.([]any)
	if !ok {
		return nil, fmt.Errorf("%w: \"layers\" must be an array", ErrInvalidDump)
	}
	if len(layers) == 0 {
		return nil, rollout.ErrEmptySequence
	}

	seq := make(rollout.Sequence, 0, len(layers))
	for l, layer := range layers {
		var dims []int
		var data []float64
		if err := flatten(layer, 0, &dims, &data); err != nil {
			return nil, fmt.Errorf("layer %d: %w", l, err)
		}

		t, err := layerFromDims(dims, data)
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", l, err)
		}
		seq = append(seq, t)
	}

	return seq, seq.Validate()
}

// flatten laeuft rekursiv durch ein verschachteltes Array. Die Laenge des
// ersten Elements einer Ebene legt die Dimension fest.
func flatten(v any, depth int, dims *[]int, data *[]float64) error {
	switch x := v.(type) {
	case float64:
		if depth != len(*dims) {
			return fmt.Errorf("%w: ragged array at depth %d", ErrInvalidDump, depth)
		}
		*data = append(*data, x)
		return nil
	case []any:
		if depth == len(*dims) {
			if len(*data) > 0 {
				return fmt.Errorf("%w: ragged array at depth %d", ErrInvalidDump, depth)
			}
			*dims = append(*dims, len(x))
		} else if depth > len(*dims) || (*dims)[depth] != len(x) {
			return fmt.Errorf("%w: ragged array at depth %d", ErrInvalidDump, depth)
		}
		for _, e := range x {
			if err := flatten(e, depth+1, dims, data); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("%w: unexpected %T in array", ErrInvalidDump, v)
	}
}

// EncodeJSON schreibt eine Sequence als JSON-Dump.
func EncodeJSON(w io.Writer, seq rollout.Sequence, model *ModelInfo) error {
	if err := seq.Validate(); err != nil {
		return err
	}

	layers := make([][][][]float64, seq.Len())
	for l, t := range seq {
		heads := make([][][]float64, t.Heads())
		for h := range heads {
			m := t.Head(h)
			rows := make([][]float64, t.Tokens())
			for i := range rows {
				rows[i] = append([]float64(nil), m.RawRowView(i)...)
			}
			heads[h] = rows
		}
		layers[l] = heads
	}

	return json.NewEncoder(w).Encode(struct {
		Model  *ModelInfo      `json:"model,omitempty"`
		Layers [][][][]float64 `json:"layers"`
	}{model, layers})
}
