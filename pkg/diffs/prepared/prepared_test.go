package prepared

import (
	"bytes"
	"testing"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
)

func readerItem(data []byte) *Item {
	def := diffitem.New(uint64(len(data)))
	return NewReader(def, func() (ioutil.Reader, error) {
		return ioutil.NewBytesReader(data), nil
	})
}

func TestReaderKindMakeReaderAndSequential(t *testing.T) {
	item := readerItem([]byte("payload"))

	r, err := item.MakeReader()
	if err != nil {
		t.Fatalf("MakeReader: %v", err)
	}
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "payload" {
		t.Fatalf("got %q", got)
	}

	sr, err := item.MakeSequentialReader()
	if err != nil {
		t.Fatalf("MakeSequentialReader: %v", err)
	}
	buf := make([]byte, 7)
	n, err := sr.Read(buf)
	if err != nil || n != 7 || string(buf) != "payload" {
		t.Fatalf("Read = %q, %d, %v", buf[:n], n, err)
	}
}

func TestSliceOverMaterializedReader(t *testing.T) {
	parent := readerItem([]byte("abcdefghij"))
	def := diffitem.New(3)
	slice := NewSlice(def, parent, 2, 3, nil)

	if slice.IsSequentialOnly() {
		t.Fatal("slice over materialized reader should not be sequential-only")
	}

	r, err := slice.MakeReader()
	if err != nil {
		t.Fatalf("MakeReader: %v", err)
	}
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "cde" {
		t.Fatalf("got %q, want %q", got, "cde")
	}
}

func TestChainOfReaderItems(t *testing.T) {
	a := readerItem([]byte("foo"))
	b := readerItem([]byte("bar"))
	def := diffitem.New(6)
	chain := NewChain(def, []*Item{a, b})

	r, err := chain.MakeReader()
	if err != nil {
		t.Fatalf("MakeReader: %v", err)
	}
	got, err := ioutil.ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "foobar" {
		t.Fatalf("got %q, want %q", got, "foobar")
	}
}

func TestWriteToCopiesThroughSequentialReader(t *testing.T) {
	item := readerItem([]byte("streamed content"))
	var buf bytes.Buffer
	w := &bufWriter{buf: &buf}
	if err := item.WriteTo(w); err != nil {
		t.Fatalf("WriteTo: %v", err)
	}
	if buf.String() != "streamed content" {
		t.Fatalf("got %q", buf.String())
	}
}

func TestSequentialOnlyItemHasNoRandomAccessReaderOutsideResolver(t *testing.T) {
	def := diffitem.New(4)
	called := false
	item := NewSequentialReader(def, func() (ioutil.SequentialReader, error) {
		called = true
		return ioutil.NewSequentialReader(ioutil.NewBytesReader([]byte("abcd"))), nil
	})

	if !item.IsSequentialOnly() {
		t.Fatal("expected sequential-only item")
	}
	if _, err := item.MakeReader(); err == nil {
		t.Fatal("expected error making a random-access reader over a sequential-only item")
	}
	if _, err := item.MakeSequentialReader(); err != nil {
		t.Fatalf("MakeSequentialReader: %v", err)
	}
	if !called {
		t.Fatal("expected sequential factory to be invoked")
	}
}

type bufWriter struct {
	buf *bytes.Buffer
}

func (w *bufWriter) Write(p []byte) (int, error) { return w.buf.Write(p) }
func (w *bufWriter) Flush() error                { return nil }
func (w *bufWriter) Tell() uint64                { return uint64(w.buf.Len()) }
