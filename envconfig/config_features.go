// config_features.go - Verarbeitungs-Parameter
//
// Dieses Modul enthaelt:
// - Standard-Eingabebild fuer "rollout render"
// - Modell-Eingabegroesse und Patchgroesse
// - Dump-Format und Ausgabe-Modus
// - Upload-Limit des HTTP-Servers
package envconfig

// =============================================================================
// Eingabe
// =============================================================================

var (
	// Image ist das Standard-Eingabebild wenn kein Pfad angegeben wird
	Image = StringWithDefault("ROLLOUT_IMAGE", "data/sample_input.jpg")

	// InputSize ist die Seitenlaenge der Modell-Eingabe in Pixeln
	InputSize = Uint("ROLLOUT_INPUT_SIZE", 384)

	// PatchSize ist die Patch-Seitenlaenge fuer die Layout-Pruefung (0 = keine Pruefung)
	PatchSize = Uint("ROLLOUT_PATCH_SIZE", 0)

	// Format erzwingt einen Loader fuer Attention-Dumps (leer = automatische Erkennung)
	Format = String("ROLLOUT_FORMAT")

	// Heatmap rendert standardmaessig Falschfarben statt des maskierten Bildes
	Heatmap = Bool("ROLLOUT_HEATMAP")
)

// =============================================================================
// Server
// =============================================================================

var (
	// MaxUpload begrenzt die Groesse eines Multipart-Uploads in Bytes
	MaxUpload = Uint64("ROLLOUT_MAX_UPLOAD", 64<<20)
)
