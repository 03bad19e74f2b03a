// MODUL: normalize
// ZWECK: Kanal-Normalisierung und CHW-Tensor fuer den ViT-Forward-Pass
// INPUT: ImageInput, Normalisierungs-Parameter (mean, std)
// OUTPUT: Tensor (float32, CHW Layout)
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: keine (nur Standardbibliothek)
// HINWEISE: Werte werden erst auf [0,1] skaliert, dann (x - mean) / std

package vision

// Standard-Normalisierungswerte
var (
	// ImageNet Default (ViT-B_16, ResNet, ...)
	ImageNetMean = [3]float32{0.485, 0.456, 0.406}
	ImageNetStd  = [3]float32{0.229, 0.224, 0.225}

	// Normalisierung auf [-1, 1]
	ImageNetStandardMean = [3]float32{0.5, 0.5, 0.5}
	ImageNetStandardStd  = [3]float32{0.5, 0.5, 0.5}

	// Keine Normalisierung (nur Skalierung auf [0,1])
	NoNormMean = [3]float32{0.0, 0.0, 0.0}
	NoNormStd  = [3]float32{1.0, 1.0, 1.0}
)

// Tensor ist ein vorverarbeitetes Bild fuer den Forward-Pass (CHW, ohne Batch-Achse)
type Tensor struct {
	Data     []float32
	Channels int
	Height   int
	Width    int
}

// Shape gibt die Form (C, H, W) zurueck
func (t *Tensor) Shape() []int {
	return []int{t.Channels, t.Height, t.Width}
}

// At gibt den Wert an (c, y, x) zurueck
func (t *Tensor) At(c, y, x int) float32 {
	return t.Data[(c*t.Height+y)*t.Width+x]
}

// NormalizeRGB normalisiert ein Bild mit gegebenen mean/std Werten
// Gibt einen float32-Slice im CHW Format zurueck (Channel-First)
func NormalizeRGB(img *ImageInput, mean, std [3]float32) []float32 {
	bounds := img.Image.Bounds()
	size := bounds.Dx() * bounds.Dy()

	result := make([]float32, size*3)
	rOffset := 0
	gOffset := size
	bOffset := size * 2

	idx := 0
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			r, g, b := extractRGB(img, x, y)

			result[rOffset+idx] = (r - mean[0]) / std[0]
			result[gOffset+idx] = (g - mean[1]) / std[1]
			result[bOffset+idx] = (b - mean[2]) / std[2]
			idx++
		}
	}

	return result
}

// extractRGB holt RGB-Werte als float32 im Bereich [0,1]
func extractRGB(img *ImageInput, x, y int) (float32, float32, float32) {
	c := img.Image.RGBAAt(x, y)
	return float32(c.R) / 255.0, float32(c.G) / 255.0, float32(c.B) / 255.0
}
