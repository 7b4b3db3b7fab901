package standard

import (
	"encoding/binary"
	"encoding/json"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/kitchen"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/prepared"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/recipe"
)

// NestedRef records a "nested" recipe the standard format declares,
// mirroring legacy.NestedRef. Kept as its own type (rather than shared
// with pkg/diffs/legacy or pkg/diffs/archive) so neither of those
// packages needs to import this one.
type NestedRef struct {
	Result   diffitem.Item
	DiffItem diffitem.Item
}

// Result is everything Decode produces; pkg/diffs/archive copies these
// fields into its own Archive type.
type Result struct {
	Target   diffitem.Item
	Source   *diffitem.Item
	Pantry   *kitchen.Pantry
	Cookbook *kitchen.Cookbook
	Payloads map[string]diffitem.Item
	Nested   []NestedRef
}

// IsThisFormat reports whether r begins with the standard magic and
// version, without consuming anything.
func IsThisFormat(r ioutil.Reader) bool {
	var header [12]byte
	if err := ioutil.ReadExact(r, 0, header[:]); err != nil {
		return false
	}
	if string(header[:4]) != Magic {
		return false
	}
	return binary.BigEndian.Uint64(header[4:12]) == Version
}

// Decode parses the standard container layout described in format.go's
// doc comment: magic, version, a length-prefixed JSON graph
// description, and a length-prefixed raw blob.
func Decode(r ioutil.Reader) (*Result, error) {
	var header [20]byte
	if err := ioutil.ReadExact(r, 0, header[:]); err != nil {
		return nil, diffserr.Wrap(diffserr.KindMagicHeaderWrong, "reading standard container header", err)
	}
	if string(header[:4]) != Magic {
		return nil, diffserr.Newf(diffserr.KindMagicHeaderWrong, "expected standard magic %q, found %q", Magic, header[:4])
	}
	version := binary.BigEndian.Uint64(header[4:12])
	if version != Version {
		return nil, diffserr.Newf(diffserr.KindVersionWrong, "expected version %d, found %d", Version, version)
	}
	jsonLength := binary.BigEndian.Uint64(header[12:20])

	jsonBytes := make([]byte, jsonLength)
	if err := ioutil.ReadExact(r, 20, jsonBytes); err != nil {
		return nil, diffserr.Wrap(diffserr.KindReadDiffSizeMismatch, "reading standard container json section", err)
	}

	var doc archiveJSON
	if err := json.Unmarshal(jsonBytes, &doc); err != nil {
		return nil, diffserr.Wrap(diffserr.KindRecipeParameterReadInvalid, "parsing standard container json", err)
	}

	blobLengthOffset := 20 + jsonLength
	var blobLengthBytes [8]byte
	if err := ioutil.ReadExact(r, blobLengthOffset, blobLengthBytes[:]); err != nil {
		return nil, diffserr.Wrap(diffserr.KindReadDiffSizeMismatch, "reading standard container blob length", err)
	}
	blobLength := binary.BigEndian.Uint64(blobLengthBytes[:])
	blobOffset := blobLengthOffset + 8

	blobBytes := make([]byte, blobLength)
	if err := ioutil.ReadExact(r, blobOffset, blobBytes); err != nil {
		return nil, diffserr.Wrap(diffserr.KindReadDiffSizeMismatch, "reading standard container blob", err)
	}

	totalSize := blobOffset + blobLength
	if totalSize != r.Size() {
		return nil, diffserr.Newf(diffserr.KindReadDiffSizeMismatch,
			"decoded standard container size %d does not match reader size %d", totalSize, r.Size())
	}

	items := map[string]diffitem.Item{}
	blobItem := diffitem.New(blobLength).WithName(blobItemID)
	items[blobItemID] = blobItem

	for _, ij := range doc.Items {
		it, err := itemFromJSON(ij)
		if err != nil {
			return nil, err
		}
		items[ij.ID] = it
	}

	target, err := itemFromJSON(doc.Target)
	if err != nil {
		return nil, err
	}
	var source *diffitem.Item
	if doc.Source != nil {
		s, err := itemFromJSON(*doc.Source)
		if err != nil {
			return nil, err
		}
		source = &s
	}

	pantry := kitchen.NewPantry()
	cookbook := kitchen.NewCookbook()

	blobPrepared := prepared.NewReader(blobItem, func() (ioutil.Reader, error) {
		return ioutil.NewBytesReader(blobBytes), nil
	})
	pantry.Store(blobItem, blobPrepared)

	lookup := func(id string) (diffitem.Item, error) {
		it, ok := items[id]
		if !ok {
			return diffitem.Item{}, diffserr.Newf(diffserr.KindItemNotAvailable, "standard container references undeclared item id %q", id)
		}
		return it, nil
	}

	for _, rj := range doc.Recipes {
		result, err := lookup(rj.Result)
		if err != nil {
			return nil, err
		}
		itemParams := make([]diffitem.Item, len(rj.ItemParams))
		for i, id := range rj.ItemParams {
			it, err := lookup(id)
			if err != nil {
				return nil, err
			}
			itemParams[i] = it
		}
		rec, err := recipe.New(rj.Name, result, rj.NumberParams, itemParams)
		if err != nil {
			return nil, err
		}
		cookbook.Add(rec)
	}

	payloads := map[string]diffitem.Item{}
	for name, id := range doc.Payloads {
		it, err := lookup(id)
		if err != nil {
			return nil, err
		}
		payloads[name] = it
	}

	var nested []NestedRef
	for _, nj := range doc.Nested {
		result, err := lookup(nj.Result)
		if err != nil {
			return nil, err
		}
		diffItem, err := lookup(nj.DiffItem)
		if err != nil {
			return nil, err
		}
		nested = append(nested, NestedRef{Result: result, DiffItem: diffItem})
	}

	return &Result{
		Target:   target,
		Source:   source,
		Pantry:   pantry,
		Cookbook: cookbook,
		Payloads: payloads,
		Nested:   nested,
	}, nil
}
