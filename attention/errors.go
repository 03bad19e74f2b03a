// MODUL: errors
// ZWECK: Fehler-Definitionen fuer Attention-Dumps, Loader-Registry und Modell-Abgleich
// INPUT: Loader-Name, Operation, urspruenglicher Fehler
// OUTPUT: Sentinel-Fehler und RegistryError
// NEBENEFFEKTE: keine
// ABHAENGIGKEITEN: errors, fmt (Standardbibliothek)
// HINWEISE: Alle Meldungen mit Praefix "attention:"

package attention

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidDump wird zurueckgegeben wenn ein Dump nicht in eine Sequence passt
	ErrInvalidDump = errors.New("attention: invalid attention dump")

	// ErrUnknownFormat wird zurueckgegeben wenn kein Loader das Format erkennt
	ErrUnknownFormat = errors.New("attention: unknown dump format")

	// ErrLoaderNotRegistered wird zurueckgegeben wenn ein Loader-Name unbekannt ist
	ErrLoaderNotRegistered = errors.New("attention: loader not registered")

	// ErrModelMismatch wird zurueckgegeben wenn die Sequence nicht zum Modell passt
	ErrModelMismatch = errors.New("attention: sequence does not match model layout")

	// ErrNilInput wird zurueckgegeben wenn der Collector keinen Tensor bekommt
	ErrNilInput = errors.New("attention: nil input tensor")
)

// RegistryError repraesentiert einen Registry-spezifischen Fehler.
type RegistryError struct {
	Op   string // Operation (z.B. "decode", "lookup")
	Name string // Loader-Name oder Dateiname
	Err  error  // Urspruenglicher Fehler
	Hint string // naechstliegender registrierter Name, optional
}

func (e *RegistryError) Error() string {
	if e.Hint != "" {
		return fmt.Sprintf("attention: %s %q: %v (did you mean %q?)", e.Op, e.Name, e.Err, e.Hint)
	}
	return fmt.Sprintf("attention: %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *RegistryError) Unwrap() error {
	return e.Err
}
