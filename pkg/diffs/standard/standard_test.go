package standard

import (
	"bytes"
	"testing"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/kitchen"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/recipe"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	blob := []byte("hello world")
	blobItem := diffitem.New(uint64(len(blob))).WithName(blobItemID)
	target := diffitem.New(5)

	rec, err := recipe.NewSlice(target, []uint64{6}, []diffitem.Item{blobItem})
	if err != nil {
		t.Fatalf("NewSlice: %v", err)
	}
	cookbook := kitchen.NewCookbook()
	cookbook.Add(rec)

	original := &Result{Target: target, Cookbook: cookbook, Payloads: map[string]diffitem.Item{}}
	encoded, err := Encode(original, blob)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if !IsThisFormat(ioutil.NewBytesReader(encoded)) {
		t.Fatalf("expected IsThisFormat to recognize an encoded standard container")
	}

	decoded, err := Decode(ioutil.NewBytesReader(encoded))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	k := kitchen.NewWith(decoded.Pantry, decoded.Cookbook)
	k.RequestItem(decoded.Target)
	ok, err := k.ProcessRequestedItems()
	if err != nil {
		t.Fatalf("ProcessRequestedItems: %v", err)
	}
	if !ok {
		t.Fatalf("ProcessRequestedItems made no progress")
	}

	item, err := k.FetchItem(decoded.Target)
	if err != nil {
		t.Fatalf("FetchItem: %v", err)
	}
	r, err := item.MakeReader()
	if err != nil {
		t.Fatalf("MakeReader: %v", err)
	}
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	want := blob[6:11]
	if !bytes.Equal(got, want) {
		t.Fatalf("applied target = %q, want %q", got, want)
	}
}

func TestDecodeRejectsWrongMagic(t *testing.T) {
	_, err := Decode(ioutil.NewBytesReader([]byte("PAMZ\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00\x00")))
	if err == nil {
		t.Fatalf("expected an error decoding a non-standard header")
	}
}
