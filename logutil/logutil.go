// Package logutil - slog-Handler mit TRACE-Level und kurzen Quellangaben.
//
// MODUL: logutil
// ZWECK: Einheitlicher Text-Logger fuer CLI und Server
// INPUT: io.Writer, slog.Level
// OUTPUT: *slog.Logger
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: log/slog (Standardbibliothek)
// HINWEISE: Quelldateien werden auf den Basisnamen gekuerzt
package logutil

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
)

// LevelTrace liegt unter DEBUG
const LevelTrace slog.Level = -8

// NewLogger erstellt einen Text-Logger auf w mit dem angegebenen Level.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level:     level,
		AddSource: true,
		ReplaceAttr: func(_ []string, attr slog.Attr) slog.Attr {
			switch attr.Key {
			case slog.LevelKey:
				if l, ok := attr.Value.Any().(slog.Level); ok && l <= LevelTrace {
					attr.Value = slog.StringValue("TRACE")
				}
			case slog.SourceKey:
				if source, ok := attr.Value.Any().(*slog.Source); ok {
					source.File = filepath.Base(source.File)
				}
			}
			return attr
		},
	}))
}

// Trace loggt auf dem Standard-Logger mit LevelTrace.
func Trace(msg string, args ...any) {
	TraceContext(context.TODO(), msg, args...)
}

// TraceContext loggt mit Kontext auf LevelTrace.
func TraceContext(ctx context.Context, msg string, args ...any) {
	slog.Log(ctx, LevelTrace, msg, args...)
}
