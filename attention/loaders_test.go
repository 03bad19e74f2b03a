package attention

import (
	"bytes"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nlpodyssey/gopickle/pytorch"
	"github.com/nlpodyssey/gopickle/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollama/rollout/rollout"
)

// ============================================================================
// JSON
// ============================================================================

func TestJSONDecodeObject(t *testing.T) {
	input := `{
		"model": {"name": "tiny", "image_size": 2, "patch_size": 1},
		"layers": [
			[[[0.5, 0.5], [0.25, 0.75]]],
			[[[1, 0], [0, 1]]]
		]
	}`

	seq, err := DecodeBytes("", "dump.json", []byte(input))
	require.NoError(t, err)
	require.Equal(t, 2, seq.Len())
	assert.Equal(t, rollout.Shape{Heads: 1, Tokens: 2}, seq.Shape())
	assert.Equal(t, 0.75, seq[0].At(0, 1, 1))
	assert.Equal(t, 1.0, seq[1].At(0, 0, 0))
}

func TestJSONDecodeBareArrayWithBatchAxis(t *testing.T) {
	// Layer als 1 x H x T x T
	input := `[[[[[0.5, 0.5], [0.5, 0.5]], [[1, 0], [0, 1]]]]]`

	seq, err := DecodeBytes("json", "", []byte(input))
	require.NoError(t, err)
	require.Equal(t, 1, seq.Len())
	assert.Equal(t, rollout.Shape{Heads: 2, Tokens: 2}, seq.Shape())
	assert.Equal(t, 1.0, seq[0].At(1, 1, 1))
}

func TestJSONDecodeErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  error
	}{
		{"kaputt", `{"layers": [`, ErrInvalidDump},
		{"ohne layers", `{"model": {}}`, ErrInvalidDump},
		{"leer", `{"layers": []}`, rollout.ErrEmptySequence},
		{"ragged", `[[[[1, 0], [0]]]]`, ErrInvalidDump},
		{"string", `[[[["a", "b"], ["c", "d"]]]]`, ErrInvalidDump},
		{"nicht quadratisch", `[[[[0.5, 0.5, 0], [0.5, 0.5, 0]]]]`, ErrInvalidDump},
		{"Layer-Mismatch", `[[[[1, 0], [0, 1]]], [[[1, 0, 0], [0, 1, 0], [0, 0, 1]]]]`, rollout.ErrShapeMismatch},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBytes("json", "", []byte(tt.input))
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestEncodeJSON(t *testing.T) {
	seq := uniformSequence(t, 2, 2, 3)

	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, seq, &ViTB16))
	assert.True(t, strings.Contains(buf.String(), `"name":"ViT-B_16"`))

	got, err := DecodeBytes("json", "", buf.Bytes())
	require.NoError(t, err)
	assert.Equal(t, seq.Shape(), got.Shape())
	assert.Equal(t, seq[1].Data(), got[1].Data())
}

// ============================================================================
// Raw
// ============================================================================

func TestRawEncodeDecode(t *testing.T) {
	// 1/3 ist in keinem der Formate exakt darstellbar
	seq := uniformSequence(t, 3, 2, 3)

	tests := []struct {
		dtype DType
		tol   float64
	}{
		{DTypeF32, 1e-7},
		{DTypeF16, 1e-3},
		{DTypeBF16, 1e-2},
	}

	for _, tt := range tests {
		t.Run(tt.dtype.String(), func(t *testing.T) {
			var buf bytes.Buffer
			require.NoError(t, EncodeRaw(&buf, seq, tt.dtype))
			assert.Equal(t, 4+20+3*2*3*3*tt.dtype.Size(), buf.Len())

			got, err := DecodeBytes("", "upload", buf.Bytes())
			require.NoError(t, err)
			require.Equal(t, seq.Shape(), got.Shape())
			require.Equal(t, 3, got.Len())
			assert.InDeltaSlice(t, seq[2].Data(), got[2].Data(), tt.tol)
		})
	}
}

func TestRawDecodeErrors(t *testing.T) {
	header := func(version, dtype, layers, heads, tokens uint32) []byte {
		var buf bytes.Buffer
		buf.WriteString("ATRL")
		for _, v := range []uint32{version, dtype, layers, heads, tokens} {
			_ = binary.Write(&buf, binary.LittleEndian, v)
		}
		return buf.Bytes()
	}

	tests := []struct {
		name  string
		input []byte
		want  error
	}{
		{"kurz", []byte("ATR"), ErrInvalidDump},
		{"Version", header(9, 0, 1, 1, 2), ErrInvalidDump},
		{"DType", header(1, 7, 1, 1, 2), ErrUnknownDType},
		{"keine Layer", header(1, 0, 0, 1, 2), rollout.ErrEmptySequence},
		{"ein Token", header(1, 0, 1, 1, 1), ErrInvalidDump},
		{"abgeschnitten", append(header(1, 0, 1, 1, 2), 0, 0, 0), ErrInvalidDump},
		{"Token-Ueberlauf", header(1, 0, 1, 1, 0xFFFFFFFF), ErrInvalidDump},
		{"zu viele Tokens", header(1, 0, 1, 1, maxRawTokens+1), ErrInvalidDump},
		{"zu viele Heads", header(1, 0, 1, maxRawHeads+1, 2), ErrInvalidDump},
		{"zu viele Layer", header(1, 0, 0xFFFFFFFF, maxRawHeads, maxRawTokens), ErrInvalidDump},
		{"Maximum ohne Daten", header(1, 0, maxRawLayers, maxRawHeads, maxRawTokens), ErrInvalidDump},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeBytes("raw", "", tt.input)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestParseDType(t *testing.T) {
	for in, want := range map[string]DType{"": DTypeF32, "F16": DTypeF16, "bfloat16": DTypeBF16} {
		got, err := ParseDType(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}

	_, err := ParseDType("q4_0")
	assert.ErrorIs(t, err, ErrUnknownDType)
}

// ============================================================================
// Torch
// ============================================================================

func floatTensor(data []float32, size ...int) *pytorch.Tensor {
	stride := make([]int, len(size))
	acc := 1
	for d := len(size) - 1; d >= 0; d-- {
		stride[d] = acc
		acc *= size[d]
	}
	return &pytorch.Tensor{Source: &pytorch.FloatStorage{Data: data}, Size: size, Stride: stride}
}

func TestTorchListOfBatchedLayers(t *testing.T) {
	list := types.NewList()
	list.Append(floatTensor([]float32{0.5, 0.5, 0.25, 0.75}, 1, 1, 2, 2))
	list.Append(floatTensor([]float32{1, 0, 0, 1}, 1, 1, 2, 2))

	seq, err := torchSequence(list)
	require.NoError(t, err)
	require.Equal(t, 2, seq.Len())
	assert.Equal(t, 0.25, seq[0].At(0, 1, 0))
}

func TestTorchStackedTensor(t *testing.T) {
	// L=2 x 1 x H=1 x 2 x 2
	stacked := floatTensor([]float32{0.5, 0.5, 0.5, 0.5, 1, 0, 0, 1}, 2, 1, 1, 2, 2)

	seq, err := torchSequence(stacked)
	require.NoError(t, err)
	require.Equal(t, 2, seq.Len())
	assert.Equal(t, 1.0, seq[1].At(0, 1, 1))
}

func TestTorchDictAndStrides(t *testing.T) {
	// Transponierte Sicht: Stride (1, 2) auf einem 2x2 Storage
	transposed := &pytorch.Tensor{
		Source: &pytorch.DoubleStorage{Data: []float64{0.9, 0.1, 0.2, 0.8}},
		Size:   []int{2, 2},
		Stride: []int{1, 2},
	}

	list := types.NewList()
	list.Append(transposed)

	dict := types.NewDict()
	dict.Set("attentions", list)

	seq, err := torchSequence(dict)
	require.NoError(t, err)
	assert.Equal(t, []float64{0.9, 0.2, 0.1, 0.8}, seq[0].Data())
}

func TestTorchErrors(t *testing.T) {
	dict := types.NewDict()
	dict.Set("logits", floatTensor([]float32{1}, 1))

	_, err := torchSequence(dict)
	assert.ErrorIs(t, err, ErrInvalidDump)

	_, err = torchSequence(types.NewList())
	assert.ErrorIs(t, err, rollout.ErrEmptySequence)

	_, err = torchSequence("not a tensor")
	assert.ErrorIs(t, err, ErrInvalidDump)

	bad := floatTensor([]float32{1, 0}, 2, 2)
	_, err = torchSequence(bad)
	assert.ErrorIs(t, err, ErrInvalidDump)
}

// Fixtures im torch.save-Format: stacked_zip.pt ist ein Zip-Archiv mit
// {"attentions": Tensor 2x1x1x5x5} (Layer 0 gleichverteilt, Layer 1
// Einheitsmatrix), layers_legacy.pt eine Legacy-Pickle-Liste aus zwei
// 1x1x5x5 Layern (Einheitsmatrix, dann gleichverteilt).

func assertTorchLayers(t *testing.T, seq rollout.Sequence, uniform, identity int) {
	t.Helper()

	require.Equal(t, 2, seq.Len())
	for _, layer := range seq {
		assert.Equal(t, 1, layer.Heads())
		assert.Equal(t, 5, layer.Tokens())
	}
	assert.InDelta(t, 0.2, seq[uniform].At(0, 3, 1), 1e-6)
	assert.Equal(t, 1.0, seq[identity].At(0, 2, 2))
	assert.Equal(t, 0.0, seq[identity].At(0, 2, 3))
}

func TestTorchFixtures(t *testing.T) {
	tests := []struct {
		file     string
		uniform  int
		identity int
	}{
		{"stacked_zip.pt", 0, 1},
		{"layers_legacy.pt", 1, 0},
	}

	for _, tt := range tests {
		path := filepath.Join("testdata", tt.file)

		t.Run(tt.file+"/Endung", func(t *testing.T) {
			seq, err := LoadFile(path, "")
			require.NoError(t, err)
			assertTorchLayers(t, seq, tt.uniform, tt.identity)
		})

		t.Run(tt.file+"/Sniffing", func(t *testing.T) {
			data, err := os.ReadFile(path)
			require.NoError(t, err)

			seq, err := DecodeBytes("", "", data)
			require.NoError(t, err)
			assertTorchLayers(t, seq, tt.uniform, tt.identity)
		})
	}
}

func TestTorchFixtureRollout(t *testing.T) {
	seq, err := LoadFile(filepath.Join("testdata", "stacked_zip.pt"), "")
	require.NoError(t, err)

	res, err := rollout.Compute(seq)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Grid.Side())
}

func TestTorchDecodeTruncated(t *testing.T) {
	for _, file := range []string{"stacked_zip.pt", "layers_legacy.pt"} {
		t.Run(file, func(t *testing.T) {
			data, err := os.ReadFile(filepath.Join("testdata", file))
			require.NoError(t, err)

			_, err = DecodeBytes("", "", data[:len(data)/2])
			assert.ErrorIs(t, err, ErrInvalidDump)
		})
	}
}

// ============================================================================
// Formen
// ============================================================================

func TestSqueezeShapes(t *testing.T) {
	got, err := squeezeLayer([]int{1, 12, 577, 577})
	require.NoError(t, err)
	assert.Equal(t, []int{12, 577, 577}, got)

	_, err = squeezeLayer([]int{2, 12, 577, 577})
	assert.ErrorIs(t, err, ErrInvalidDump)

	got, err = squeezeStack([]int{12, 1, 12, 577, 577})
	require.NoError(t, err)
	assert.Equal(t, []int{12, 12, 577, 577}, got)

	_, err = squeezeStack([]int{12, 577, 577})
	assert.ErrorIs(t, err, ErrInvalidDump)
}
