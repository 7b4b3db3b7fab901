// Package recipe implements the built-in recipe types of distilled
// §4.6 plus a name-to-factory registry mirroring the on-disk typing
// described in §9: a legacy or standard container names a recipe type
// by a short string, and the deserializer looks it up here to build a
// kitchen.Recipe from its declared result, number params, and item
// params.
package recipe

import (
	"sync"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/kitchen"
)

// Factory builds a kitchen.Recipe from a declared result item and its
// construction-time parameters, validating arity and any recipe-
// specific constraints (self-reference, compression level ranges) per
// distilled §4.2.
type Factory func(result diffitem.Item, numberParams []uint64, itemParams []diffitem.Item) (kitchen.Recipe, error)

var (
	mu        sync.Mutex
	factories = map[string]Factory{}
)

// Register adds (or replaces) the factory for a named recipe type.
// Called from builtin.go's init for the built-ins; available to
// callers wanting to add further recipe templates per distilled §4.6
// ("implementations may add more by registering a recipe template").
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	factories[name] = f
}

// New builds a recipe of the named type. Returns
// diffserr.KindRecipeParameterReadInvalid if no factory is registered
// for name.
func New(name string, result diffitem.Item, numberParams []uint64, itemParams []diffitem.Item) (kitchen.Recipe, error) {
	mu.Lock()
	f, ok := factories[name]
	mu.Unlock()
	if !ok {
		return nil, diffserr.Newf(diffserr.KindRecipeParameterReadInvalid, "no recipe registered for type %q", name)
	}
	return f(result, numberParams, itemParams)
}
