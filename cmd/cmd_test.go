package cmd

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ollama/rollout/attention"
	"github.com/ollama/rollout/rollout"
	"github.com/ollama/rollout/vision"
)

func writePNG(t *testing.T, dir string, w, h int) string {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := range h {
		for x := range w {
			img.SetRGBA(x, y, color.RGBA{R: 200, G: 100, B: 50, A: 255})
		}
	}

	path := filepath.Join(dir, "input.png")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, png.Encode(f, img))
	return path
}

// writeDump schreibt einen JSON-Dump mit gleichverteilter Attention
func writeDump(t *testing.T, dir string, layers, tokens int) (string, rollout.Sequence) {
	t.Helper()

	data := make([]float64, tokens*tokens)
	for i := range data {
		data[i] = 1 / float64(tokens)
	}

	seq := make(rollout.Sequence, layers)
	for i := range seq {
		layer, err := rollout.NewAttentionTensor(1, tokens, data)
		require.NoError(t, err)
		seq[i] = layer
	}

	path := filepath.Join(dir, "attn.json")
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()
	require.NoError(t, attention.EncodeJSON(f, seq, nil))
	return path, seq
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	var out bytes.Buffer
	root := NewCLI()
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRender(t *testing.T) {
	dir := t.TempDir()
	imgPath := writePNG(t, dir, 12, 10)
	attnPath, _ := writeDump(t, dir, 2, 5)
	outPath := filepath.Join(dir, "overlay.png")

	out, err := execute(t, "render", imgPath, "--attention", attnPath, "--out", outPath, "--size", "16")
	require.NoError(t, err)
	assert.Contains(t, out, "wrote "+outPath)
	assert.Contains(t, out, "grid 2x2")

	img, err := vision.LoadImage(outPath)
	require.NoError(t, err)
	assert.Equal(t, 12, img.Width)
	assert.Equal(t, 10, img.Height)
}

func TestRenderHeatmapJPEG(t *testing.T) {
	dir := t.TempDir()
	imgPath := writePNG(t, dir, 8, 8)
	attnPath, _ := writeDump(t, dir, 1, 5)
	outPath := filepath.Join(dir, "heat.jpg")

	_, err := execute(t, "render", imgPath, "-a", attnPath, "-o", outPath, "--heatmap", "--size", "16")
	require.NoError(t, err)

	data, err := os.ReadFile(outPath)
	require.NoError(t, err)
	assert.Equal(t, vision.FormatJPEG, vision.DetectFormat(data))
}

func TestRenderDefaultImageFromEnv(t *testing.T) {
	dir := t.TempDir()
	imgPath := writePNG(t, dir, 8, 8)
	attnPath, _ := writeDump(t, dir, 1, 5)
	outPath := filepath.Join(dir, "overlay.png")

	t.Setenv("ROLLOUT_IMAGE", imgPath)
	t.Setenv("ROLLOUT_INPUT_SIZE", "16")

	_, err := execute(t, "render", "--attention", attnPath, "--out", outPath)
	require.NoError(t, err)
	assert.FileExists(t, outPath)
}

func TestRenderErrors(t *testing.T) {
	dir := t.TempDir()
	imgPath := writePNG(t, dir, 8, 8)
	attnPath, _ := writeDump(t, dir, 2, 5)
	outPath := filepath.Join(dir, "overlay.png")

	t.Run("fehlendes Bild", func(t *testing.T) {
		_, err := execute(t, "render", filepath.Join(dir, "missing.png"), "--attention", attnPath, "--out", outPath)
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("ohne Dump", func(t *testing.T) {
		_, err := execute(t, "render", imgPath, "--out", outPath)
		assert.Error(t, err)
	})

	t.Run("Patch-Layout", func(t *testing.T) {
		_, err := execute(t, "render", imgPath, "--attention", attnPath, "--out", outPath, "--size", "16", "--patch-size", "4")
		assert.ErrorIs(t, err, attention.ErrModelMismatch)
	})

	t.Run("nicht quadratisch", func(t *testing.T) {
		odd, _ := writeDump(t, t.TempDir(), 2, 4)
		_, err := execute(t, "render", imgPath, "--attention", odd, "--out", outPath, "--size", "16")
		assert.ErrorIs(t, err, rollout.ErrNonSquarePatchCount)
	})

	assert.NoFileExists(t, outPath)
}

func TestInspect(t *testing.T) {
	attnPath, _ := writeDump(t, t.TempDir(), 3, 5)

	out, err := execute(t, "inspect", attnPath, "--grid")
	require.NoError(t, err)
	assert.Contains(t, out, "LAYER")
	assert.Contains(t, out, "JOINT STOCHASTIC")
	assert.Contains(t, out, "1.0000..1.0000")
	assert.Contains(t, out, "grid 2x2")
	assert.Contains(t, out, "0.1750 0.1750")
	assert.NotContains(t, out, "no")
}

func TestInspectNonSquareKeepsTable(t *testing.T) {
	attnPath, _ := writeDump(t, t.TempDir(), 2, 4)

	out, err := execute(t, "inspect", attnPath)
	assert.ErrorIs(t, err, rollout.ErrNonSquarePatchCount)
	assert.Contains(t, out, "LAYER")
	assert.Contains(t, out, "1.0000..1.0000")
	assert.NotContains(t, out, "grid")
}

func TestConvert(t *testing.T) {
	dir := t.TempDir()
	attnPath, seq := writeDump(t, dir, 2, 5)
	outPath := filepath.Join(dir, "attn.attn")

	out, err := execute(t, "convert", attnPath, outPath, "--dtype", "bf16")
	require.NoError(t, err)
	assert.Contains(t, out, "2 layers, 1 heads, 5 tokens, bf16")

	got, err := attention.LoadFile(outPath, "")
	require.NoError(t, err)
	require.Equal(t, seq.Len(), got.Len())
	assert.InDeltaSlice(t, seq[0].Data(), got[0].Data(), 1e-2)
}

func TestConvertErrors(t *testing.T) {
	dir := t.TempDir()
	attnPath, _ := writeDump(t, dir, 1, 5)

	_, err := execute(t, "convert", attnPath, filepath.Join(dir, "out.attn"), "--dtype", "f64")
	assert.ErrorIs(t, err, attention.ErrUnknownDType)

	_, err = execute(t, "convert", attnPath, filepath.Join(dir, "out.attn"), "--format", "npz")
	assert.ErrorIs(t, err, attention.ErrLoaderNotRegistered)
	assert.NoFileExists(t, filepath.Join(dir, "out.attn"))
}

func TestFormats(t *testing.T) {
	out, err := execute(t, "formats")
	require.NoError(t, err)
	assert.Contains(t, out, "FORMAT")
	assert.Contains(t, out, "json")
	assert.Contains(t, out, "raw")
	assert.Contains(t, out, ".pt, .pth")
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "-v")
	require.NoError(t, err)
	assert.Contains(t, out, "rollout version is")
}

func TestEnvDocs(t *testing.T) {
	out, err := execute(t, "render", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "Environment Variables:")
	assert.Contains(t, out, "ROLLOUT_IMAGE")

	out, err = execute(t, "serve", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "ROLLOUT_HOST")
}
