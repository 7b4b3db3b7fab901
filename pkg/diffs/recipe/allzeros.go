package recipe

import (
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/kitchen"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/prepared"
)

// AllZeros produces a reader-kind prepared item of length bytes, all
// zero.
type AllZeros struct {
	result diffitem.Item
}

// NewAllZeros is the all_zeros recipe factory: 0 item params, 1 number
// param (the result length, carried for on-disk typing even though it
// duplicates result.Length()).
func NewAllZeros(result diffitem.Item, numberParams []uint64, itemParams []diffitem.Item) (kitchen.Recipe, error) {
	if len(itemParams) != 0 {
		return nil, diffserr.Newf(diffserr.KindRecipeInvalidParameterCount, "all_zeros expects 0 item params, got %d", len(itemParams))
	}
	if len(numberParams) != 1 {
		return nil, diffserr.Newf(diffserr.KindRecipeInvalidParameterCount, "all_zeros expects 1 number param, got %d", len(numberParams))
	}
	return &AllZeros{result: result}, nil
}

func (r *AllZeros) Name() string                { return "all_zeros" }
func (r *AllZeros) Result() diffitem.Item       { return r.result }
func (r *AllZeros) NumberParams() []uint64      { return []uint64{r.result.Length()} }
func (r *AllZeros) ItemParams() []diffitem.Item { return nil }

func (r *AllZeros) Prepare(k *kitchen.Kitchen, ingredients []*prepared.Item) (*prepared.Item, error) {
	length := r.result.Length()
	return prepared.NewReader(r.result, func() (ioutil.Reader, error) {
		return ioutil.NewAllZerosReader(length), nil
	}), nil
}
