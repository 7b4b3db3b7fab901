package recipe

import (
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/kitchen"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/prepared"
)

// Slice produces bytes [offset, offset+result.Length()) of its single
// parent ingredient.
type Slice struct {
	result diffitem.Item
	offset uint64
	item   diffitem.Item
}

// NewSlice is the slice recipe factory: 1 item param, 1 number param
// (offset). Rejects a slice spanning the whole parent item as
// self-referential, per distilled §4.6.
func NewSlice(result diffitem.Item, numberParams []uint64, itemParams []diffitem.Item) (kitchen.Recipe, error) {
	if len(itemParams) != 1 {
		return nil, diffserr.Newf(diffserr.KindRecipeInvalidParameterCount, "slice expects 1 item param, got %d", len(itemParams))
	}
	if len(numberParams) != 1 {
		return nil, diffserr.Newf(diffserr.KindRecipeInvalidParameterCount, "slice expects 1 number param, got %d", len(numberParams))
	}
	offset := numberParams[0]
	if offset == 0 && result.Length() == itemParams[0].Length() {
		return nil, diffserr.New(diffserr.KindRecipeSelfReferential, "slice spans the whole parent item")
	}
	return &Slice{result: result, offset: offset, item: itemParams[0]}, nil
}

func (r *Slice) Name() string                { return "slice" }
func (r *Slice) Result() diffitem.Item       { return r.result }
func (r *Slice) NumberParams() []uint64      { return []uint64{r.offset} }
func (r *Slice) ItemParams() []diffitem.Item { return []diffitem.Item{r.item} }

func (r *Slice) Prepare(k *kitchen.Kitchen, ingredients []*prepared.Item) (*prepared.Item, error) {
	parent := ingredients[0]
	return k.NewSlice(r.result, parent, r.offset, r.result.Length()), nil
}
