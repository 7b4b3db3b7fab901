package recipe

import (
	"github.com/gabstv/go-bsdiff/pkg/bspatch"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/kitchen"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/prepared"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/streamchan"
)

// BspatchDecompression applies a bsdiff patch stream against a
// dictionary (the old file) to reconstruct the result. bsdiff's patch
// application is push-based — it writes its whole output through an
// io.Writer rather than offering a pull Read() — so, like
// ZlibCompression, a dedicated goroutine drives it into a
// streamchan.Channel.
type BspatchDecompression struct {
	result diffitem.Item
	items  []diffitem.Item // [diff stream, dictionary]
}

func NewBspatchDecompression(result diffitem.Item, numberParams []uint64, itemParams []diffitem.Item) (kitchen.Recipe, error) {
	if len(itemParams) != 2 {
		return nil, diffserr.Newf(diffserr.KindRecipeInvalidParameterCount, "bspatch_decompression expects 2 item params, got %d", len(itemParams))
	}
	if len(numberParams) != 0 {
		return nil, diffserr.Newf(diffserr.KindRecipeInvalidParameterCount, "bspatch_decompression expects 0 number params, got %d", len(numberParams))
	}
	return &BspatchDecompression{result: result, items: itemParams}, nil
}

func (r *BspatchDecompression) Name() string                { return "bspatch_decompression" }
func (r *BspatchDecompression) Result() diffitem.Item       { return r.result }
func (r *BspatchDecompression) NumberParams() []uint64      { return nil }
func (r *BspatchDecompression) ItemParams() []diffitem.Item { return r.items }

func (r *BspatchDecompression) Prepare(k *kitchen.Kitchen, ingredients []*prepared.Item) (*prepared.Item, error) {
	diffIngredient := ingredients[0]
	dictIngredient := ingredients[1]
	resultLength := r.result.Length()

	return prepared.NewSequentialReader(r.result, func() (ioutil.SequentialReader, error) {
		dictReader, err := dictIngredient.MakeReader()
		if err != nil {
			return nil, err
		}
		oldStream := ioutil.NewSequentialReader(dictReader)

		patchSeq, err := diffIngredient.MakeSequentialReader()
		if err != nil {
			return nil, err
		}

		ch := streamchan.New(resultLength, k.Config.BspatchBufferSize)
		go func() {
			if err := bspatch.Patch(oldStream, ch, patchSeq); err != nil {
				ch.Cancel()
			}
		}()
		return newChannelSeqReader(ch, resultLength), nil
	}), nil
}
