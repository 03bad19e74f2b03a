// MODUL: errors
// ZWECK: Fehler-Definitionen und Error-Handler fuer die Rollout API
// INPUT: Fehler, gin.Context
// OUTPUT: JSON-formatierte Fehler-Responses {"code", "message"}
// NEBENEFFEKTE: HTTP-Responses schreiben
// ABHAENGIGKEITEN: gin-gonic/gin (extern), attention, rollout, vision
// HINWEISE: Reihenfolge der Codes ist relevant, speziellere Fehler zuerst

package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ollama/rollout/attention"
	"github.com/ollama/rollout/rollout"
	"github.com/ollama/rollout/vision"
)

// ============================================================================
// API Fehler-Definitionen
// ============================================================================

var (
	// ErrInvalidImage wird geworfen bei fehlenden oder ungueltigen Bild-Daten
	ErrInvalidImage = errors.New("invalid image data")

	// ErrInvalidAttention wird geworfen bei fehlendem oder ungueltigem Attention-Dump
	ErrInvalidAttention = errors.New("invalid attention dump")

	// ErrInvalidParameter wird geworfen bei ungueltigen Formular-Parametern
	ErrInvalidParameter = errors.New("invalid parameter")

	// ErrUploadTooLarge wird geworfen wenn der Upload das Limit ueberschreitet
	ErrUploadTooLarge = errors.New("upload exceeds limit")
)

// ============================================================================
// Strukturierter API-Fehler
// ============================================================================

// APIError repraesentiert einen strukturierten API-Fehler.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Error implementiert das error Interface.
func (e APIError) Error() string {
	return e.Message
}

// ============================================================================
// Fehler-Code Mapping
// ============================================================================

type errorCode struct {
	err    error
	code   string
	status int
}

// errorCodes mappt Fehler auf API-Codes und HTTP-Status
var errorCodes = []errorCode{
	{ErrUploadTooLarge, "UPLOAD_TOO_LARGE", http.StatusRequestEntityTooLarge},
	{rollout.ErrShapeMismatch, "SHAPE_MISMATCH", http.StatusUnprocessableEntity},
	{rollout.ErrNonSquarePatchCount, "NON_SQUARE_PATCHES", http.StatusUnprocessableEntity},
	{rollout.ErrEmptySequence, "EMPTY_SEQUENCE", http.StatusUnprocessableEntity},
	{attention.ErrModelMismatch, "MODEL_MISMATCH", http.StatusUnprocessableEntity},
	{attention.ErrUnknownFormat, "UNKNOWN_FORMAT", http.StatusBadRequest},
	{attention.ErrLoaderNotRegistered, "UNKNOWN_FORMAT", http.StatusBadRequest},
	{attention.ErrUnknownDType, "INVALID_ATTENTION", http.StatusBadRequest},
	{attention.ErrInvalidDump, "INVALID_ATTENTION", http.StatusBadRequest},
	{rollout.ErrInvalidTensor, "INVALID_ATTENTION", http.StatusBadRequest},
	{ErrInvalidAttention, "INVALID_ATTENTION", http.StatusBadRequest},
	{vision.ErrUnknownFormat, "INVALID_IMAGE", http.StatusBadRequest},
	{vision.ErrUnsupportedFormat, "INVALID_IMAGE", http.StatusBadRequest},
	{ErrInvalidImage, "INVALID_IMAGE", http.StatusBadRequest},
	{ErrInvalidParameter, "INVALID_PARAMETER", http.StatusBadRequest},
	{vision.ErrInvalidInputSize, "INVALID_PARAMETER", http.StatusBadRequest},
}

// getErrorCode gibt API-Code und HTTP-Status fuer einen Fehler zurueck.
func getErrorCode(err error) (string, int) {
	for _, known := range errorCodes {
		if errors.Is(err, known.err) {
			return known.code, known.status
		}
	}

	return "INTERNAL_ERROR", http.StatusInternalServerError
}

// ============================================================================
// HTTP Response Helper
// ============================================================================

// writeError schreibt einen Fehler als JSON Response und bricht die Kette ab.
func writeError(c *gin.Context, err error) {
	code, status := getErrorCode(err)
	message := err.Error()

	// APIError extrahieren falls vorhanden
	var apiErr APIError
	if errors.As(err, &apiErr) {
		code = apiErr.Code
		message = apiErr.Message
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, APIError{
		Code:    code,
		Message: message,
	})
}
