package envconfig

import (
	"log/slog"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestHost(t *testing.T) {
	cases := map[string]struct {
		value, expect string
	}{
		"empty":               {"", "http://127.0.0.1:11500"},
		"only address":        {"1.2.3.4", "http://1.2.3.4:11500"},
		"only port":           {":1234", "http://:1234"},
		"address and port":    {"1.2.3.4:1234", "http://1.2.3.4:1234"},
		"hostname":            {"example.com", "http://example.com:11500"},
		"hostname and port":   {"example.com:1234", "http://example.com:1234"},
		"zero port":           {":0", "http://:0"},
		"too large port":      {":66000", "http://:11500"},
		"too large port http": {"http://:66000", "http://:80"},
		"https":               {"https://1.2.3.4", "https://1.2.3.4:443"},
		"ipv6 localhost":      {"[::1]", "http://[::1]:11500"},
		"quoted":              {"\"1.2.3.4:1234\"", "http://1.2.3.4:1234"},
		"path":                {"example.com/rollout", "http://example.com:11500/rollout"},
	}

	for name, tt := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("ROLLOUT_HOST", tt.value)
			if host := Host(); host.String() != tt.expect {
				t.Errorf("%s: expected %s, got %s", name, tt.expect, host.String())
			}
		})
	}
}

func TestOrigins(t *testing.T) {
	t.Setenv("ROLLOUT_ORIGINS", "http://notebook:8888, https://viewer.example.com,")

	origins := AllowedOrigins()
	want := []string{"http://notebook:8888", "https://viewer.example.com", "http://localhost"}
	if diff := cmp.Diff(want, origins[:3]); diff != "" {
		t.Errorf("origins mismatch (-want +got):\n%s", diff)
	}

	t.Setenv("ROLLOUT_ORIGINS", "")
	if got := AllowedOrigins()[0]; got != "http://localhost" {
		t.Errorf("expected default origin first, got %s", got)
	}
}

func TestLogLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"":      slog.LevelInfo,
		"false": slog.LevelInfo,
		"t":     slog.LevelDebug,
		"1":     slog.LevelDebug,
		"2":     slog.Level(-8),
	}

	for value, expect := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("ROLLOUT_DEBUG", value)
			if level := LogLevel(); level != expect {
				t.Errorf("%s: expected %s, got %s", value, expect, level)
			}
		})
	}
}

func TestProcessingDefaults(t *testing.T) {
	t.Setenv("ROLLOUT_IMAGE", "")
	t.Setenv("ROLLOUT_INPUT_SIZE", "")
	t.Setenv("ROLLOUT_PATCH_SIZE", "")
	t.Setenv("ROLLOUT_MAX_UPLOAD", "")
	t.Setenv("ROLLOUT_HEATMAP", "")

	if got := Image(); got != "data/sample_input.jpg" {
		t.Errorf("Image: got %q", got)
	}
	if got := InputSize(); got != 384 {
		t.Errorf("InputSize: got %d", got)
	}
	if got := PatchSize(); got != 0 {
		t.Errorf("PatchSize: got %d", got)
	}
	if got := MaxUpload(); got != 64<<20 {
		t.Errorf("MaxUpload: got %d", got)
	}
	if Heatmap() {
		t.Error("Heatmap: expected false")
	}
}

func TestProcessingOverrides(t *testing.T) {
	t.Setenv("ROLLOUT_IMAGE", "'cat.png'")
	t.Setenv("ROLLOUT_INPUT_SIZE", "224")
	t.Setenv("ROLLOUT_PATCH_SIZE", "invalid")
	t.Setenv("ROLLOUT_FORMAT", "torch")
	t.Setenv("ROLLOUT_HEATMAP", "1")

	if got := Image(); got != "cat.png" {
		t.Errorf("Image: got %q", got)
	}
	if got := InputSize(); got != 224 {
		t.Errorf("InputSize: got %d", got)
	}
	if got := PatchSize(); got != 0 {
		t.Errorf("PatchSize should fall back to default, got %d", got)
	}
	if got := Format(); got != "torch" {
		t.Errorf("Format: got %q", got)
	}
	if !Heatmap() {
		t.Error("Heatmap: expected true")
	}
}

func TestAsMap(t *testing.T) {
	m := AsMap()
	for _, key := range []string{"ROLLOUT_DEBUG", "ROLLOUT_HOST", "ROLLOUT_ORIGINS", "ROLLOUT_IMAGE", "ROLLOUT_INPUT_SIZE", "ROLLOUT_PATCH_SIZE", "ROLLOUT_MAX_UPLOAD", "ROLLOUT_FORMAT", "ROLLOUT_HEATMAP"} {
		v, ok := m[key]
		if !ok {
			t.Errorf("missing %s", key)
			continue
		}
		if v.Name != key || v.Description == "" {
			t.Errorf("%s: incomplete entry %+v", key, v)
		}
	}

	if len(Values()) != len(m) {
		t.Errorf("Values and AsMap differ in size")
	}
}

func TestBool(t *testing.T) {
	cases := map[string]bool{
		"":      false,
		"0":     false,
		"false": false,
		"1":     true,
		"yes":   true,
	}

	for value, expect := range cases {
		t.Run(value, func(t *testing.T) {
			t.Setenv("ROLLOUT_HEATMAP", value)
			if got := Heatmap(); got != expect {
				t.Errorf("%q: expected %v, got %v", value, expect, got)
			}
		})
	}
}
