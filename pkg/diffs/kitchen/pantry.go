package kitchen

import (
	"sync"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/prepared"
)

// pantryEntry pairs a prepared item with the item identity it was
// stored under, so lookups can run Item.Match against the request
// rather than an exact key — an entry with a weaker identity (e.g. no
// hash) can still answer a request that matches at Uncertain.
type pantryEntry struct {
	def      diffitem.Item
	prepared *prepared.Item
}

// Pantry is a matching-rule lookup from item identity to prepared
// item, implemented as a linear scan against Item.Match rather than a
// Go map, because distilled §4.3 requires Uncertain matches to be
// treated as candidates rather than misses — something a map keyed on
// an exact identity cannot express.
type Pantry struct {
	mu      sync.Mutex
	entries []pantryEntry
}

// NewPantry returns an empty Pantry.
func NewPantry() *Pantry {
	return &Pantry{}
}

// Store registers p as satisfying def, unless an entry that is exactly
// equal to def is already present (idempotent w.r.t. equal items).
func (p *Pantry) Store(def diffitem.Item, prep *prepared.Item) {
	p.mu.Lock()
	defer p.mu.Unlock()
	for _, e := range p.entries {
		if e.def.Compare(def) == 0 {
			return
		}
	}
	p.entries = append(p.entries, pantryEntry{def: def, prepared: prep})
}

// Find returns the first prepared item whose stored identity matches
// def at Match or Uncertain, preferring an exact Match if one exists.
func (p *Pantry) Find(def diffitem.Item) (*prepared.Item, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	var uncertain *prepared.Item
	for _, e := range p.entries {
		switch e.def.Match(def) {
		case diffitem.Match:
			return e.prepared, true
		case diffitem.Uncertain:
			if uncertain == nil {
				uncertain = e.prepared
			}
		}
	}
	if uncertain != nil {
		return uncertain, true
	}
	return nil, false
}

// Has reports whether a matching prepared item is already stored.
func (p *Pantry) Has(def diffitem.Item) bool {
	_, ok := p.Find(def)
	return ok
}
