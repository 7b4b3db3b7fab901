package recipe

import (
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/kitchen"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/prepared"
)

// Chain concatenates its ingredients in order.
type Chain struct {
	result diffitem.Item
	items  []diffitem.Item
}

// NewChain is the chain recipe factory: N item params, 0 number
// params.
func NewChain(result diffitem.Item, numberParams []uint64, itemParams []diffitem.Item) (kitchen.Recipe, error) {
	if len(numberParams) != 0 {
		return nil, diffserr.Newf(diffserr.KindRecipeInvalidParameterCount, "chain expects 0 number params, got %d", len(numberParams))
	}
	return &Chain{result: result, items: itemParams}, nil
}

func (r *Chain) Name() string                { return "chain" }
func (r *Chain) Result() diffitem.Item       { return r.result }
func (r *Chain) NumberParams() []uint64      { return nil }
func (r *Chain) ItemParams() []diffitem.Item { return r.items }

func (r *Chain) Prepare(k *kitchen.Kitchen, ingredients []*prepared.Item) (*prepared.Item, error) {
	if len(ingredients) != len(r.items) {
		return nil, diffserr.Newf(diffserr.KindRecipeInvalidParameterCount,
			"chain prepared with %d ingredients, expected %d", len(ingredients), len(r.items))
	}

	var total uint64
	for i, ing := range ingredients {
		if r.items[i].Match(ing.Definition()) == diffitem.NoMatch {
			return nil, diffserr.Newf(diffserr.KindRecipeChainItemAndRecipeMismatch,
				"chain ingredient %d does not match its declared item param", i)
		}
		total += ing.Definition().Length()
	}
	if total != r.result.Length() {
		return nil, diffserr.Newf(diffserr.KindRecipeChainTotalLengthMismatch,
			"chain ingredient lengths sum to %d, want %d", total, r.result.Length())
	}

	return prepared.NewChain(r.result, ingredients), nil
}
