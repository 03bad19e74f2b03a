// MODUL: handlers
// ZWECK: HTTP-Handler fuer Formatliste und Rollout-Berechnung
// INPUT: Multipart-Formular (image, attention, format, output, input_size, patch_size, heatmap)
// OUTPUT: Overlay als PNG/JPEG oder Saliency-Grid als JSON
// NEBENEFFEKTE: keine (keine Persistenz)
// ABHAENGIGKEITEN: gin-gonic/gin (extern), attention, overlay, visualize, vision
// HINWEISE: Upload-Groesse wird per http.MaxBytesReader begrenzt

package server

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ollama/rollout/attention"
	"github.com/ollama/rollout/overlay"
	"github.com/ollama/rollout/vision"
	"github.com/ollama/rollout/visualize"
)

// ============================================================================
// Response-Typen
// ============================================================================

// FormatsResponse listet die registrierten Dump-Formate
type FormatsResponse struct {
	Formats []string `json:"formats"`
}

// RolloutResponse ist die JSON-Antwort von POST /api/rollout mit output=json
type RolloutResponse struct {
	RequestID string      `json:"request_id"`
	Layers    int         `json:"layers"`
	Heads     int         `json:"heads"`
	Tokens    int         `json:"tokens"`
	Side      int         `json:"side"`
	Max       float64     `json:"max"`
	Grid      [][]float64 `json:"grid"`
	Logits    []float32   `json:"logits,omitempty"`
}

// ============================================================================
// Handler
// ============================================================================

// FormatsHandler behandelt GET /api/formats
func (s *Server) FormatsHandler(c *gin.Context) {
	c.JSON(http.StatusOK, FormatsResponse{Formats: s.registry.List()})
}

// RolloutHandler behandelt POST /api/rollout
func (s *Server) RolloutHandler(c *gin.Context) {
	if s.maxUpload > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)
	}

	output := c.DefaultPostForm("output", "png")
	var imageFormat vision.ImageFormat
	switch output {
	case "json":
	case "png", "jpeg", "jpg":
		imageFormat = vision.ParseFormat(output)
	default:
		writeError(c, fmt.Errorf("%w: output %q, want png, jpeg or json", ErrInvalidParameter, output))
		return
	}

	imgData, _, err := formFile(c, "image")
	if err != nil {
		writeError(c, fmt.Errorf("%w: %w", ErrInvalidImage, err))
		return
	}
	img, err := vision.LoadImageFromBytes(imgData)
	if err != nil {
		writeError(c, fmt.Errorf("%w: %w", ErrInvalidImage, err))
		return
	}

	attnData, attnName, err := formFile(c, "attention")
	if err != nil {
		writeError(c, fmt.Errorf("%w: %w", ErrInvalidAttention, err))
		return
	}
	seq, err := s.registry.DecodeBytes(c.PostForm("format"), attnName, attnData)
	if err != nil {
		writeError(c, err)
		return
	}

	inputSize, err := formInt(c, "input_size", s.inputSize)
	if err != nil {
		writeError(c, err)
		return
	}
	patchSize, err := formInt(c, "patch_size", s.patchSize)
	if err != nil {
		writeError(c, err)
		return
	}
	heatmap, err := formBool(c, "heatmap")
	if err != nil {
		writeError(c, err)
		return
	}

	v := visualize.New(attention.NewStaticCollector(seq),
		visualize.WithPreprocess(vision.WithInputSize(inputSize)),
		visualize.WithHeatmap(heatmap),
	)
	if patchSize > 0 {
		v.Model = attention.ModelInfo{Name: "upload", ImageSize: inputSize, PatchSize: patchSize}
	}

	res, err := v.Visualize(c.Request.Context(), img)
	if err != nil {
		writeError(c, err)
		return
	}

	if output == "json" {
		shape := seq.Shape()
		c.JSON(http.StatusOK, RolloutResponse{
			RequestID: c.GetString(requestIDKey),
			Layers:    seq.Len(),
			Heads:     shape.Heads,
			Tokens:    shape.Tokens,
			Side:      res.Rollout.Grid.Side(),
			Max:       res.Rollout.Grid.Max(),
			Grid:      res.Rollout.Grid.Values(),
			Logits:    res.Logits,
		})
		return
	}

	var buf bytes.Buffer
	if err := (&overlay.WriterSink{W: &buf, Format: imageFormat}).Write(c.Request.Context(), res.Overlay); err != nil {
		writeError(c, err)
		return
	}
	c.Data(http.StatusOK, imageFormat.MimeType(), buf.Bytes())
}

// ============================================================================
// Formular-Helfer
// ============================================================================

// formFile liest eine hochgeladene Datei vollstaendig
func formFile(c *gin.Context, field string) ([]byte, string, error) {
	fh, err := c.FormFile(field)
	if err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return nil, "", ErrUploadTooLarge
		}
		if errors.Is(err, http.ErrMissingFile) {
			return nil, "", fmt.Errorf("missing form file %q", field)
		}
		return nil, "", err
	}

	data, err := readFileHeader(fh)
	if err != nil {
		return nil, "", err
	}
	return data, fh.Filename, nil
}

func readFileHeader(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return io.ReadAll(f)
}

// formInt liest einen positiven Integer aus dem Formular
func formInt(c *gin.Context, field string, def int) (int, error) {
	s, ok := c.GetPostForm(field)
	if !ok || s == "" {
		return def, nil
	}

	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: %s=%q", ErrInvalidParameter, field, s)
	}
	return n, nil
}

// formBool liest einen Schalter aus dem Formular, fehlend gilt als false
func formBool(c *gin.Context, field string) (bool, error) {
	s, ok := c.GetPostForm(field)
	if !ok || s == "" {
		return false, nil
	}

	b, err := strconv.ParseBool(s)
	if err != nil {
		return false, fmt.Errorf("%w: %s=%q", ErrInvalidParameter, field, s)
	}
	return b, nil
}
