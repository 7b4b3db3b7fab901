package kitchen

import (
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/prepared"
)

// Recipe describes how to produce one result item from zero or more
// ingredient items and numeric parameters, per distilled §4.2. The
// interface lives in this package, rather than pkg/diffs/recipe, so
// Cookbook can hold Recipe values without an import cycle; concrete
// recipes in pkg/diffs/recipe implement it and register instances with
// a Kitchen's Cookbook via AddRecipe.
type Recipe interface {
	// Name is the short type identifier used for on-disk typing.
	Name() string
	// Result is the item this recipe produces.
	Result() diffitem.Item
	// NumberParams are the recipe's scalar parameters (e.g. an offset
	// or a compression level).
	NumberParams() []uint64
	// ItemParams are the ingredient items, in the order Prepare expects
	// their prepared counterparts.
	ItemParams() []diffitem.Item
	// Prepare builds the result as a prepared item, given prepared
	// ingredients aligned 1:1 with ItemParams(). k is the owning
	// kitchen, passed through so a recipe can request further items.
	Prepare(k *Kitchen, ingredients []*prepared.Item) (*prepared.Item, error)
}
