// MODUL: raw
// ZWECK: Kompakter Binaer-Container "ATRL" fuer Attention-Dumps (Lesen und Schreiben)
// INPUT: Header (Magic, Version, DType, Layers, Heads, Tokens) + Payload
// OUTPUT: rollout.Sequence bzw. geschriebener Container
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: github.com/x448/float16, github.com/d4l3k/go-bfloat16 (extern)
// HINWEISE: Alle Felder little-endian, Payload row-major [layer][head][query][key]

package attention

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/d4l3k/go-bfloat16"
	"github.com/x448/float16"

	"github.com/ollama/rollout/rollout"
)

// RawVersion ist die aktuelle Container-Version
const RawVersion = 1

var magicRaw = []byte("ATRL")

// Obergrenzen fuer Header-Felder, geprueft bevor daraus gerechnet wird
const (
	maxRawLayers = 1024
	maxRawHeads  = 64
	maxRawTokens = 4097 // 64x64 Patches + Klassen-Token
)

// DType ist der Datentyp der Payload eines Raw-Containers
type DType uint32

const (
	DTypeF32 DType = iota
	DTypeF16
	DTypeBF16
)

// ErrUnknownDType wird bei unbekanntem Datentyp zurueckgegeben
var ErrUnknownDType = errors.New("attention: unknown dtype")

// ParseDType parst "f32", "f16" oder "bf16".
func ParseDType(s string) (DType, error) {
	switch strings.ToLower(s) {
	case "f32", "float32", "":
		return DTypeF32, nil
	case "f16", "float16":
		return DTypeF16, nil
	case "bf16", "bfloat16":
		return DTypeBF16, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownDType, s)
	}
}

func (d DType) String() string {
	switch d {
	case DTypeF32:
		return "f32"
	case DTypeF16:
		return "f16"
	case DTypeBF16:
		return "bf16"
	default:
		return fmt.Sprintf("dtype(%d)", uint32(d))
	}
}

// Size gibt die Bytes pro Element zurueck.
func (d DType) Size() int {
	if d == DTypeF32 {
		return 4
	}
	return 2
}

// rawHeader folgt direkt auf die Magic-Bytes
type rawHeader struct {
	Version uint32
	DType   DType
	Layers  uint32
	Heads   uint32
	Tokens  uint32
}

type rawLoader struct{}

func (rawLoader) Name() string         { return "raw" }
func (rawLoader) Extensions() []string { return []string{".attn"} }

func (rawLoader) Sniff(header []byte) bool {
	return bytes.HasPrefix(header, magicRaw)
}

func (rawLoader) Decode(r io.Reader) (rollout.Sequence, error) {
	magic := make([]byte, len(magicRaw))
	if _, err := io.ReadFull(r, magic); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDump, err)
	}
	if !bytes.Equal(magic, magicRaw) {
		return nil, fmt.Errorf("%w: bad magic %q", ErrInvalidDump, magic)
	}

	var h rawHeader
	if err := binary.Read(r, binary.LittleEndian, &h); err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrInvalidDump, err)
	}
	if h.Version != RawVersion {
		return nil, fmt.Errorf("%w: unsupported version %d", ErrInvalidDump, h.Version)
	}
	if h.DType > DTypeBF16 {
		return nil, fmt.Errorf("%w: %d", ErrUnknownDType, h.DType)
	}
	if h.Layers == 0 {
		return nil, rollout.ErrEmptySequence
	}

	if h.Layers > maxRawLayers {
		return nil, fmt.Errorf("%w: %d layers exceed limit %d", ErrInvalidDump, h.Layers, maxRawLayers)
	}
	if h.Heads == 0 || h.Heads > maxRawHeads || h.Tokens < 2 || h.Tokens > maxRawTokens {
		return nil, fmt.Errorf("%w: implausible layer shape %dx%dx%d", ErrInvalidDump, h.Heads, h.Tokens, h.Tokens)
	}

	heads, tokens := int(h.Heads), int(h.Tokens)
	layerBytes := int64(heads*tokens*tokens) * int64(h.DType.Size())

	// Puffer waechst mit den tatsaechlich gelesenen Bytes, nicht mit dem Header
	var seq rollout.Sequence
	for l := range int(h.Layers) {
		buf, err := io.ReadAll(io.LimitReader(r, layerBytes))
		if err != nil {
			return nil, fmt.Errorf("%w: layer %d: %v", ErrInvalidDump, l, err)
		}
		if int64(len(buf)) != layerBytes {
			return nil, fmt.Errorf("%w: layer %d: %v", ErrInvalidDump, l, io.ErrUnexpectedEOF)
		}

		t, err := rollout.NewAttentionTensor(heads, tokens, decodeValues(h.DType, buf))
		if err != nil {
			return nil, fmt.Errorf("layer %d: %w", l, err)
		}
		seq = append(seq, t)
	}

	return seq, nil
}

func decodeValues(dt DType, buf []byte) []float64 {
	out := make([]float64, len(buf)/dt.Size())
	switch dt {
	case DTypeF32:
		for i := range out {
			out[i] = float64(math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])))
		}
	case DTypeF16:
		for i := range out {
			out[i] = float64(float16.Frombits(binary.LittleEndian.Uint16(buf[i*2:])).Float32())
		}
	case DTypeBF16:
		for i, f := range bfloat16.DecodeFloat32(buf) {
			out[i] = float64(f)
		}
	}
	return out
}

// EncodeRaw schreibt seq als Raw-Container mit dem angegebenen Datentyp.
func EncodeRaw(w io.Writer, seq rollout.Sequence, dt DType) error {
	if err := seq.Validate(); err != nil {
		return err
	}
	if dt > DTypeBF16 {
		return fmt.Errorf("%w: %d", ErrUnknownDType, dt)
	}

	shape := seq.Shape()
	h := rawHeader{
		Version: RawVersion,
		DType:   dt,
		Layers:  uint32(seq.Len()),
		Heads:   uint32(shape.Heads),
		Tokens:  uint32(shape.Tokens),
	}

	if _, err := w.Write(magicRaw); err != nil {
		return err
	}
	if err := binary.Write(w, binary.LittleEndian, h); err != nil {
		return err
	}

	for _, t := range seq {
		if _, err := w.Write(encodeValues(dt, t.Data())); err != nil {
			return err
		}
	}
	return nil
}

func encodeValues(dt DType, values []float64) []byte {
	switch dt {
	case DTypeF16:
		buf := make([]byte, len(values)*2)
		for i, v := range values {
			binary.LittleEndian.PutUint16(buf[i*2:], float16.Fromfloat32(float32(v)).Bits())
		}
		return buf
	case DTypeBF16:
		f32s := make([]float32, len(values))
		for i, v := range values {
			f32s[i] = float32(v)
		}
		return bfloat16.EncodeFloat32(f32s)
	default:
		buf := make([]byte, len(values)*4)
		for i, v := range values {
			binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(float32(v)))
		}
		return buf
	}
}
