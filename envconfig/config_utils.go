// config_utils.go - Getter-Bausteine und Export fuer Konfiguration
//
// Dieses Modul enthaelt:
// - parsed: generischer Getter mit Parser und Default-Wert
// - Bool/String/StringWithDefault/Uint/Uint64: typisierte Getter
// - EnvVar, AsMap, Values: Export fuer Usage-Texte und Server-Log
package envconfig

import (
	"fmt"
	"log/slog"
	"strconv"
)

// =============================================================================
// Getter-Bausteine
// =============================================================================

// parsed liest key bei jedem Aufruf neu. Leere Werte liefern def, nicht
// parsebare Werte liefern def mit einer Warnung.
func parsed[T any](key string, def T, parse func(string) (T, error)) func() T {
	return func() T {
		s := Var(key)
		if s == "" {
			return def
		}

		v, err := parse(s)
		if err != nil {
			slog.Warn("invalid environment variable, using default", "key", key, "value", s, "default", def)
			return def
		}
		return v
	}
}

func parseUint(s string) (uint, error) {
	n, err := strconv.ParseUint(s, 10, 0)
	return uint(n), err
}

func parseUint64(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}

// Bool liest einen Schalter. Ein gesetzter, aber unlesbarer Wert gilt als an.
func Bool(key string) func() bool {
	return func() bool {
		s := Var(key)
		if s == "" {
			return false
		}
		if b, err := strconv.ParseBool(s); err == nil {
			return b
		}
		return true
	}
}

// String liest einen String ohne Default
func String(key string) func() string {
	return StringWithDefault(key, "")
}

// StringWithDefault liest einen String mit Default-Wert
func StringWithDefault(key, defaultValue string) func() string {
	return parsed(key, defaultValue, func(s string) (string, error) { return s, nil })
}

// Uint liest einen uint mit Default-Wert
func Uint(key string, defaultValue uint) func() uint {
	return parsed(key, defaultValue, parseUint)
}

// Uint64 liest einen uint64 mit Default-Wert
func Uint64(key string, defaultValue uint64) func() uint64 {
	return parsed(key, defaultValue, parseUint64)
}

// =============================================================================
// Export
// =============================================================================

// EnvVar beschreibt eine Environment-Variable mit aktuellem Wert
type EnvVar struct {
	Name        string
	Value       any
	Description string
}

// AsMap gibt alle Variablen mit aktuellem Wert und Beschreibung zurueck
func AsMap() map[string]EnvVar {
	vars := []EnvVar{
		{"ROLLOUT_DEBUG", LogLevel(), "Show additional debug information (e.g. ROLLOUT_DEBUG=1)"},
		{"ROLLOUT_HOST", Host(), "IP Address for the rollout server (default 127.0.0.1:11500)"},
		{"ROLLOUT_ORIGINS", AllowedOrigins(), "A comma separated list of allowed origins"},
		{"ROLLOUT_IMAGE", Image(), "Input image used when render gets no path (default data/sample_input.jpg)"},
		{"ROLLOUT_INPUT_SIZE", InputSize(), "Model input side in pixels (default 384)"},
		{"ROLLOUT_PATCH_SIZE", PatchSize(), "Patch side used to check the attention layout (default 0, unchecked)"},
		{"ROLLOUT_MAX_UPLOAD", MaxUpload(), "Maximum multipart upload size in bytes (default 64 MiB)"},
		{"ROLLOUT_FORMAT", Format(), "Attention dump format (json, torch, raw; default: detect)"},
		{"ROLLOUT_HEATMAP", Heatmap(), "Render a false-colour heat map instead of the masked image"},
	}

	m := make(map[string]EnvVar, len(vars))
	for _, v := range vars {
		m[v.Name] = v
	}
	return m
}

// Values gibt alle Werte als Strings zurueck (fuer das Server-Log)
func Values() map[string]string {
	vals := make(map[string]string)
	for k, v := range AsMap() {
		vals[k] = fmt.Sprint(v.Value)
	}
	return vals
}
