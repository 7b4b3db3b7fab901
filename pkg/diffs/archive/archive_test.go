package archive

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/kitchen"
)

// buildLegacyAllZeroArchive assembles a minimal ".pamz" container (magic,
// version, target/no-source header, a single all_zero chunk, no inline
// assets, no remainder) so Load's format sniff can be exercised without
// depending on pkg/diffs/legacy's unexported test helpers.
func buildLegacyAllZeroArchive(length uint64) []byte {
	var buf bytes.Buffer
	u8 := func(v uint8) { buf.WriteByte(v) }
	u32 := func(v uint32) { var b [4]byte; binary.BigEndian.PutUint32(b[:], v); buf.Write(b[:]) }
	u64 := func(v uint64) { var b [8]byte; binary.BigEndian.PutUint64(b[:], v); buf.Write(b[:]) }
	sha256Record := func(digest []byte) { u32(32780); buf.Write(digest) }

	buf.WriteString("PAMZ")
	u64(0) // version

	digest := make([]byte, 32)
	u64(length)
	sha256Record(digest)

	u64(0) // no source item

	u64(1) // chunk count
	u64(length)
	sha256Record(digest)
	u8(12) // all_zero recipe type
	u8(1)  // one parameter
	u8(1)  // kind=number
	u64(length)

	u64(0) // inline assets size
	u64(0) // remainder uncompressed size
	u64(0) // remainder compressed size

	return buf.Bytes()
}

func TestLoadDispatchesLegacyFormat(t *testing.T) {
	data := buildLegacyAllZeroArchive(8)
	a, err := Load(ioutil.NewBytesReader(data))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(a.Children) != 0 {
		t.Fatalf("expected no nested archives, got %d", len(a.Children))
	}

	k := kitchen.NewWith(a.Pantry, a.Cookbook)
	k.RequestItem(a.Target)
	ok, err := k.ProcessRequestedItems()
	if err != nil || !ok {
		t.Fatalf("ProcessRequestedItems: ok=%v err=%v", ok, err)
	}
	item, err := k.FetchItem(a.Target)
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
	for i, b := range got {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}
}

func TestLoadRejectsUnrecognizedFormat(t *testing.T) {
	_, err := Load(ioutil.NewBytesReader([]byte("not a diff container at all, just junk bytes")))
	if err == nil {
		t.Fatalf("expected an error loading unrecognized input")
	}
}
