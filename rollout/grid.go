// MODUL: grid
// ZWECK: SaliencyGrid - quadratisches Gitter ueber den Patch-Tokens
// INPUT: SaliencyVector (Laenge = Anzahl Patches)
// OUTPUT: SaliencyGrid mit Max, Normalisierung und Zeilen-Statistik
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: gonum.org/v1/gonum/{mat,floats} (extern)
// HINWEISE: Patch-Anzahl muss eine Quadratzahl sein, sonst NonSquarePatchCountError

package rollout

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// ============================================================================
// SaliencyGrid
// ============================================================================

// SaliencyGrid ist ein side x side Gitter nicht-negativer Werte, Zeile fuer
// Zeile in Patch-Reihenfolge.
type SaliencyGrid struct {
	m *mat.Dense
}

// Reshape formt einen SaliencyVector in ein quadratisches Gitter um.
// Laengen ohne ganzzahlige Wurzel (und Laenge 0) werden abgelehnt,
// es wird weder gekuerzt noch aufgefuellt.
func Reshape(v []float64) (*SaliencyGrid, error) {
	side := isqrt(len(v))
	if len(v) == 0 || side*side != len(v) {
		return nil, &NonSquarePatchCountError{Patches: len(v)}
	}

	data := make([]float64, len(v))
	copy(data, v)
	return &SaliencyGrid{m: mat.NewDense(side, side, data)}, nil
}

// isqrt gibt die ganzzahlige Wurzel (abgerundet) zurueck
func isqrt(n int) int {
	if n <= 0 {
		return 0
	}
	s := int(math.Sqrt(float64(n)))
	for s*s > n {
		s--
	}
	for (s+1)*(s+1) <= n {
		s++
	}
	return s
}

// Side gibt die Seitenlaenge des Gitters zurueck
func (g *SaliencyGrid) Side() int {
	r, _ := g.m.Dims()
	return r
}

// At gibt den Wert in Zeile row, Spalte col zurueck
func (g *SaliencyGrid) At(row, col int) float64 {
	return g.m.At(row, col)
}

// Values gibt eine Kopie des Gitters als [][]float64 zurueck.
func (g *SaliencyGrid) Values() [][]float64 {
	side := g.Side()
	out := make([][]float64, side)
	for i := range out {
		out[i] = mat.Row(nil, i, g.m)
	}
	return out
}

// Flat gibt eine Kopie des Gitters row-major zurueck.
func (g *SaliencyGrid) Flat() []float64 {
	side := g.Side()
	out := make([]float64, 0, side*side)
	for i := 0; i < side; i++ {
		out = append(out, g.m.RawRowView(i)...)
	}
	return out
}

// Max gibt den groessten Wert des Gitters zurueck
func (g *SaliencyGrid) Max() float64 {
	return mat.Max(g.m)
}

// Min gibt den kleinsten Wert des Gitters zurueck
func (g *SaliencyGrid) Min() float64 {
	return mat.Min(g.m)
}

// Normalized teilt jeden Wert durch das Maximum des Gitters.
// Ein Gitter mit Maximum <= 0 bleibt unveraendert (alle Werte 0).
func (g *SaliencyGrid) Normalized() *SaliencyGrid {
	out := mat.DenseCopyOf(g.m)

	peak := g.Max()
	if peak <= 0 {
		return &SaliencyGrid{m: out}
	}

	out.Apply(func(_, _ int, v float64) float64 {
		return v / peak
	}, out)
	return &SaliencyGrid{m: out}
}

// Matrix gibt eine Kopie als gonum Matrix zurueck
func (g *SaliencyGrid) Matrix() *mat.Dense {
	return mat.DenseCopyOf(g.m)
}

// ============================================================================
// Zeilen-Statistik - Stochastik-Pruefungen
// ============================================================================

// RowSums gibt die Zeilensummen einer Matrix zurueck.
func RowSums(m mat.Matrix) []float64 {
	r, _ := m.Dims()
	sums := make([]float64, r)
	for i := range sums {
		sums[i] = floats.Sum(mat.Row(nil, i, m))
	}
	return sums
}

// IsRowStochastic prueft ob alle Eintraege nicht-negativ sind und jede
// Zeile innerhalb von tol auf 1 summiert.
func IsRowStochastic(m mat.Matrix, tol float64) bool {
	if mat.Min(m) < 0 {
		return false
	}
	for _, s := range RowSums(m) {
		if math.Abs(s-1) > tol {
			return false
		}
	}
	return true
}
