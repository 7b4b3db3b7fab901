package standard

import (
	"encoding/binary"
	"encoding/json"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
)

// Encode serializes r's item/recipe graph into the standard container
// layout, against blob — the raw bytes any "slice" recipe referencing
// the synthetic "blob" item cuts pieces out of. Decode(Encode(r, blob))
// reconstructs an equivalent Result, closing the round trip distilled
// §8 requires.
func Encode(r *Result, blob []byte) ([]byte, error) {
	doc := archiveJSON{
		Target:   itemToJSON("", r.Target),
		Payloads: map[string]string{},
	}
	if r.Source != nil {
		s := itemToJSON("", *r.Source)
		doc.Source = &s
	}

	ids := map[string]string{} // item SortKey -> assigned id
	nextID := 0
	idFor := func(it diffitem.Item) string {
		key := it.SortKey()
		if id, ok := ids[key]; ok {
			return id
		}
		id := "item" + itoa(nextID)
		nextID++
		ids[key] = id
		doc.Items = append(doc.Items, itemToJSON(id, it))
		return id
	}
	blobKey := diffitem.New(uint64(len(blob))).WithName(blobItemID).SortKey()

	for _, rec := range r.Cookbook.Entries() {
		rj := recipeJSON{
			Name:         rec.Name(),
			Result:       idFor(rec.Result()),
			NumberParams: rec.NumberParams(),
		}
		for _, it := range rec.ItemParams() {
			if it.SortKey() == blobKey {
				rj.ItemParams = append(rj.ItemParams, blobItemID)
				continue
			}
			rj.ItemParams = append(rj.ItemParams, idFor(it))
		}
		doc.Recipes = append(doc.Recipes, rj)
	}

	for name, it := range r.Payloads {
		doc.Payloads[name] = idFor(it)
	}
	for _, n := range r.Nested {
		doc.Nested = append(doc.Nested, nestedJSON{Result: idFor(n.Result), DiffItem: idFor(n.DiffItem)})
	}

	jsonBytes, err := json.Marshal(doc)
	if err != nil {
		return nil, diffserr.Wrap(diffserr.KindRecipeParameterReadInvalid, "encoding standard container json", err)
	}

	out := make([]byte, 0, 20+len(jsonBytes)+8+len(blob))
	out = append(out, []byte(Magic)...)
	out = appendUint64(out, Version)
	out = appendUint64(out, uint64(len(jsonBytes)))
	out = append(out, jsonBytes...)
	out = appendUint64(out, uint64(len(blob)))
	out = append(out, blob...)
	return out, nil
}

func appendUint64(b []byte, v uint64) []byte {
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], v)
	return append(b, buf[:]...)
}

func itoa(n int) string {
	if n == 0 {
		return "0"
	}
	var buf [20]byte
	i := len(buf)
	for n > 0 {
		i--
		buf[i] = byte('0' + n%10)
		n /= 10
	}
	return string(buf[i:])
}
