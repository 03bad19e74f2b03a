// Package attention - Modell-Grenze: Attention-Collector und Loader fuer Attention-Dumps.
//
// MODUL: registry
// ZWECK: Zentrale Registry fuer Dump-Loader mit Thread-sicherer Verwaltung
// INPUT: Loader-Implementierungen, Format-Name, Dateiendung oder Header-Bytes
// OUTPUT: Passender Loader, dekodierte rollout.Sequence
// NEBENEFFEKTE: Keine (rein speicherbasiert)
// ABHAENGIGKEITEN: github.com/wk8/go-ordered-map/v2, github.com/agnivade/levenshtein (extern), sync (stdlib)
// HINWEISE: Reihenfolge der Registrierung bestimmt die Reihenfolge beim Sniffing
package attention

import (
	"bufio"
	"bytes"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/agnivade/levenshtein"
	orderedmap "github.com/wk8/go-ordered-map/v2"

	"github.com/ollama/rollout/rollout"
)

// sniffLen ist die Anzahl Header-Bytes fuer die Format-Erkennung
const sniffLen = 16

// maxHintDistance begrenzt Vorschlaege fuer vertippte Format-Namen
const maxHintDistance = 2

// ============================================================================
// Loader Interface
// ============================================================================

// Loader dekodiert ein Dump-Format in eine rollout.Sequence.
type Loader interface {
	// Name ist der Format-Name ("json", "torch", "raw")
	Name() string

	// Extensions listet die Dateiendungen inklusive Punkt
	Extensions() []string

	// Sniff prueft ob der Header zu diesem Format passt
	Sniff(header []byte) bool

	// Decode liest einen vollstaendigen Dump
	Decode(r io.Reader) (rollout.Sequence, error)
}

// ============================================================================
// Registry - Zentrale Loader-Verwaltung
// ============================================================================

// Registry verwaltet registrierte Loader in Registrierungsreihenfolge.
type Registry struct {
	loaders    *orderedmap.OrderedMap[string, Loader]
	extensions map[string]string
	mu         sync.RWMutex
}

// NewRegistry erstellt eine neue leere Registry.
func NewRegistry() *Registry {
	return &Registry{
		loaders:    orderedmap.New[string, Loader](),
		extensions: make(map[string]string),
	}
}

// Register registriert einen Loader unter seinem Namen.
// Ueberschreibt existierende Eintraege ohne Warnung.
func (r *Registry) Register(l Loader) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.loaders.Set(l.Name(), l)
	for _, ext := range l.Extensions() {
		r.extensions[strings.ToLower(ext)] = l.Name()
	}
}

// Unregister entfernt einen Loader und seine Dateiendungen.
func (r *Registry) Unregister(name string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, exists := r.loaders.Delete(name)
	for ext, owner := range r.extensions {
		if owner == name {
			delete(r.extensions, ext)
		}
	}
	return exists
}

// Get gibt den Loader fuer den angegebenen Namen zurueck.
func (r *Registry) Get(name string) (Loader, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.loaders.Get(name)
}

// List gibt alle Loader-Namen in Registrierungsreihenfolge zurueck.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, r.loaders.Len())
	for pair := r.loaders.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Count gibt die Anzahl registrierter Loader zurueck.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.loaders.Len()
}

// closest gibt den registrierten Namen mit der kleinsten Editierdistanz zu
// name zurueck, oder "" wenn keiner nah genug liegt.
func (r *Registry) closest(name string) string {
	name = strings.ToLower(name)

	var best string
	score := math.MaxInt
	for _, n := range r.List() {
		if d := levenshtein.ComputeDistance(name, n); d < score {
			score = d
			best = n
		}
	}

	if score <= maxHintDistance {
		return best
	}
	return ""
}

// ============================================================================
// Format-Aufloesung
// ============================================================================

// Lookup loest einen Loader auf: zuerst ueber den Format-Namen, sonst ueber
// die Dateiendung von filename, zuletzt ueber die Header-Bytes.
func (r *Registry) Lookup(format, filename string, header []byte) (Loader, error) {
	if format != "" {
		l, ok := r.Get(format)
		if !ok {
			return nil, &RegistryError{Op: "lookup", Name: format, Err: ErrLoaderNotRegistered, Hint: r.closest(format)}
		}
		return l, nil
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	if name, ok := r.extensions[strings.ToLower(filepath.Ext(filename))]; ok {
		if l, ok := r.loaders.Get(name); ok {
			return l, nil
		}
	}

	for pair := r.loaders.Oldest(); pair != nil; pair = pair.Next() {
		if pair.Value.Sniff(header) {
			return pair.Value, nil
		}
	}

	return nil, &RegistryError{Op: "lookup", Name: filename, Err: ErrUnknownFormat}
}

// Decode liest einen Dump aus r; format und filename duerfen leer sein.
func (r *Registry) Decode(format, filename string, src io.Reader) (rollout.Sequence, error) {
	br := bufio.NewReaderSize(src, 64*1024)
	header, err := br.Peek(sniffLen)
	if err != nil && err != io.EOF && err != bufio.ErrBufferFull {
		return nil, &RegistryError{Op: "decode", Name: filename, Err: err}
	}

	l, err := r.Lookup(format, filename, header)
	if err != nil {
		return nil, err
	}

	seq, err := l.Decode(br)
	if err != nil {
		return nil, &RegistryError{Op: "decode " + l.Name(), Name: filename, Err: err}
	}
	return seq, nil
}

// DecodeBytes dekodiert einen Dump aus dem Speicher.
func (r *Registry) DecodeBytes(format, filename string, data []byte) (rollout.Sequence, error) {
	return r.Decode(format, filename, bytes.NewReader(data))
}

// LoadFile laedt einen Dump von der Platte.
func (r *Registry) LoadFile(path, format string) (rollout.Sequence, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return r.Decode(format, path, f)
}

// ============================================================================
// DefaultRegistry - globale Instanz
// ============================================================================

// DefaultRegistry enthaelt die eingebauten Loader json, torch und raw.
var DefaultRegistry = NewRegistry()

func init() {
	DefaultRegistry.Register(jsonLoader{})
	DefaultRegistry.Register(rawLoader{})
	DefaultRegistry.Register(torchLoader{})
}

// Register registriert einen Loader in der DefaultRegistry.
func Register(l Loader) {
	DefaultRegistry.Register(l)
}

// Formats gibt die Namen aller Loader der DefaultRegistry zurueck.
func Formats() []string {
	return DefaultRegistry.List()
}

// LoadFile laedt einen Dump ueber die DefaultRegistry.
func LoadFile(path, format string) (rollout.Sequence, error) {
	return DefaultRegistry.LoadFile(path, format)
}

// DecodeBytes dekodiert einen Dump ueber die DefaultRegistry.
func DecodeBytes(format, filename string, data []byte) (rollout.Sequence, error) {
	return DefaultRegistry.DecodeBytes(format, filename, data)
}
