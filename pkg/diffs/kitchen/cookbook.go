package kitchen

import (
	"sync"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
)

// Cookbook is a matching-rule lookup from item identity to the recipes
// that can produce it, implemented the same way as Pantry: a linear
// scan against Item.Match, not a Go map, so that a recipe whose
// declared result only Uncertain-matches a request is still offered as
// a candidate per distilled §4.3.
type Cookbook struct {
	mu      sync.Mutex
	entries []Recipe
}

// NewCookbook returns an empty Cookbook.
func NewCookbook() *Cookbook {
	return &Cookbook{}
}

// Add registers recipe. Recipes are not deduplicated: a cookbook may
// legitimately hold more than one recipe whose result matches the same
// item (e.g. two candidate decompressions), and ProcessRequestedItems
// picks among them by readiness.
func (c *Cookbook) Add(recipe Recipe) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, recipe)
}

// FindRecipesFor returns every recipe whose declared Result Matches or
// Uncertain-matches item, in registration order.
func (c *Cookbook) FindRecipesFor(item diffitem.Item) []Recipe {
	c.mu.Lock()
	defer c.mu.Unlock()

	var matches []Recipe
	for _, r := range c.entries {
		if m := r.Result().Match(item); m != diffitem.NoMatch {
			matches = append(matches, r)
		}
	}
	return matches
}

// Entries returns every registered recipe, in registration order. Used
// by pkg/diffs/standard's Encode to walk the full recipe graph when
// serializing an archive, rather than rediscovering it through matching
// lookups.
func (c *Cookbook) Entries() []Recipe {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Recipe, len(c.entries))
	copy(out, c.entries)
	return out
}
