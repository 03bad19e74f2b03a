package attention

import (
	"bytes"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollama/rollout/rollout"
)

// fakeLoader erkennt den Header "FAKE" und liefert eine feste Sequence
type fakeLoader struct {
	name string
	seq  rollout.Sequence
	err  error
}

func (f fakeLoader) Name() string             { return f.name }
func (f fakeLoader) Extensions() []string     { return []string{".fake"} }
func (f fakeLoader) Sniff(header []byte) bool { return bytes.HasPrefix(header, []byte("FAKE")) }

func (f fakeLoader) Decode(r io.Reader) (rollout.Sequence, error) {
	if _, err := io.ReadAll(r); err != nil {
		return nil, err
	}
	return f.seq, f.err
}

func uniformSequence(t *testing.T, layers, heads, tokens int) rollout.Sequence {
	t.Helper()

	data := make([]float64, heads*tokens*tokens)
	for i := range data {
		data[i] = 1 / float64(tokens)
	}

	seq := make(rollout.Sequence, layers)
	for l := range seq {
		layer, err := rollout.NewAttentionTensor(heads, tokens, data)
		require.NoError(t, err)
		seq[l] = layer
	}
	return seq
}

func TestRegistryRegisterAndList(t *testing.T) {
	r := NewRegistry()
	assert.Equal(t, 0, r.Count())

	r.Register(fakeLoader{name: "b"})
	r.Register(fakeLoader{name: "a"})
	r.Register(fakeLoader{name: "c"})

	assert.Equal(t, 3, r.Count())
	assert.Equal(t, []string{"b", "a", "c"}, r.List(), "Registrierungsreihenfolge")

	_, ok := r.Get("a")
	assert.True(t, ok)

	assert.True(t, r.Unregister("a"))
	assert.False(t, r.Unregister("a"))
	assert.Equal(t, []string{"b", "c"}, r.List())
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	r.Register(jsonLoader{})
	r.Register(rawLoader{})
	r.Register(torchLoader{})

	tests := []struct {
		name     string
		format   string
		filename string
		header   []byte
		want     string
	}{
		{"expliziter Name", "raw", "dump.json", nil, "raw"},
		{"Endung json", "", "dump.JSON", nil, "json"},
		{"Endung pt", "", "attn.pt", nil, "torch"},
		{"Endung pth", "", "attn.pth", nil, "torch"},
		{"Endung attn", "", "attn.attn", nil, "raw"},
		{"Sniff Objekt", "", "upload", []byte(`  {"layers": []}`), "json"},
		{"Sniff Array", "", "upload", []byte(`[[[[1]]]]`), "json"},
		{"Sniff raw", "", "upload", []byte("ATRL\x01\x00\x00\x00"), "raw"},
		{"Sniff zip", "", "upload", []byte("PK\x03\x04rest"), "torch"},
		{"Sniff pickle", "", "upload", []byte{0x80, 0x02, 0x8a}, "torch"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, err := r.Lookup(tt.format, tt.filename, tt.header)
			require.NoError(t, err)
			assert.Equal(t, tt.want, l.Name())
		})
	}
}

func TestRegistryLookupErrors(t *testing.T) {
	r := NewRegistry()
	r.Register(jsonLoader{})

	_, err := r.Lookup("npz", "", nil)
	assert.ErrorIs(t, err, ErrLoaderNotRegistered)

	var regErr *RegistryError
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "lookup", regErr.Op)
	assert.Equal(t, "npz", regErr.Name)
	assert.Empty(t, regErr.Hint)

	_, err = r.Lookup("jsn", "", nil)
	require.True(t, errors.As(err, &regErr))
	assert.Equal(t, "json", regErr.Hint)
	assert.Contains(t, err.Error(), `did you mean "json"?`)

	_, err = r.Lookup("", "blob", []byte{0x00, 0x01})
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRegistryUnregisterDropsExtensions(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeLoader{name: "fake"})
	r.Unregister("fake")

	_, err := r.Lookup("", "x.fake", nil)
	assert.ErrorIs(t, err, ErrUnknownFormat)
}

func TestRegistryDecodeWrapsLoaderError(t *testing.T) {
	r := NewRegistry()
	r.Register(fakeLoader{name: "fake", err: ErrInvalidDump})

	_, err := r.DecodeBytes("", "upload", []byte("FAKE payload"))
	assert.ErrorIs(t, err, ErrInvalidDump)
	assert.Contains(t, err.Error(), "decode fake")
}

func TestRegistryLoadFile(t *testing.T) {
	seq := uniformSequence(t, 2, 1, 5)

	r := NewRegistry()
	r.Register(fakeLoader{name: "fake", seq: seq})

	path := filepath.Join(t.TempDir(), "dump.fake")
	require.NoError(t, os.WriteFile(path, []byte("whatever"), 0o644))

	got, err := r.LoadFile(path, "")
	require.NoError(t, err)
	assert.Equal(t, 2, got.Len())

	_, err = r.LoadFile(filepath.Join(t.TempDir(), "missing.fake"), "")
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestRegistryConcurrentAccess(t *testing.T) {
	r := NewRegistry()
	r.Register(jsonLoader{})

	var wg sync.WaitGroup
	for i := range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if i%4 == 0 {
				r.Register(fakeLoader{name: "fake"})
				return
			}
			_, _ = r.Lookup("", "x.json", nil)
			_ = r.List()
		}()
	}
	wg.Wait()

	assert.Equal(t, 2, r.Count())
}

func TestDefaultRegistryFormats(t *testing.T) {
	assert.Equal(t, []string{"json", "raw", "torch"}, Formats())
}
