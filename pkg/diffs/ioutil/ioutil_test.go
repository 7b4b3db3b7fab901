package ioutil

import (
	"bytes"
	"testing"
)

func TestBytesReaderReadExact(t *testing.T) {
	r := NewBytesReader([]byte("hello world"))
	buf := make([]byte, 5)
	if err := ReadExact(r, 6, buf); err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	if string(buf) != "world" {
		t.Fatalf("got %q, want %q", buf, "world")
	}
}

func TestAllZerosReader(t *testing.T) {
	r := NewAllZerosReader(1000)
	got, err := ReadAll(r)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if len(got) != 1000 {
		t.Fatalf("len = %d, want 1000", len(got))
	}
	for i, b := range got {
		if b != 0 {
			t.Fatalf("byte %d = %d, want 0", i, b)
		}
	}
}

// TestSliceInvariant checks spec §8 invariant 2: r.Slice(o,l).ReadAll()
// == r.Read(o,l).
func TestSliceInvariant(t *testing.T) {
	data := []byte("abcdefghijklmnopqrstuvwxyz")
	r := NewBytesReader(data)
	s := Slice(r, 5, 10)
	got, err := ReadAll(s)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "fghijklmno" {
		t.Fatalf("got %q, want %q", got, "fghijklmno")
	}

	direct := make([]byte, 10)
	if err := ReadExact(r, 5, direct); err != nil {
		t.Fatalf("ReadExact: %v", err)
	}
	if !bytes.Equal(got, direct) {
		t.Fatalf("slice read %q != direct read %q", got, direct)
	}
}

// TestChainInvariant checks spec §8 invariant 3: a.Chain(b).ReadAll()
// == a.ReadAll() ++ b.ReadAll(); size is additive.
func TestChainInvariant(t *testing.T) {
	a := NewBytesReader([]byte("abc"))
	b := NewBytesReader([]byte("defgh"))
	c := Chain(a, b)

	if c.Size() != a.Size()+b.Size() {
		t.Fatalf("Size() = %d, want %d", c.Size(), a.Size()+b.Size())
	}

	got, err := ReadAll(c)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != "abcdefgh" {
		t.Fatalf("got %q, want %q", got, "abcdefgh")
	}
}

func TestChainOfManySegments(t *testing.T) {
	alphabet := "abcdefghijklmnopqrstuvwxyz"
	var readers []Reader
	for _, c := range alphabet {
		readers = append(readers, NewBytesReader([]byte(string(c))))
	}
	chained := Chain(readers...)
	got, err := ReadAll(chained)
	if err != nil {
		t.Fatalf("ReadAll: %v", err)
	}
	if string(got) != alphabet {
		t.Fatalf("got %q, want %q", got, alphabet)
	}
}

func TestChainSpanningRead(t *testing.T) {
	readers := []Reader{
		NewBytesReader([]byte("s")),
		NewBytesReader([]byte("l")),
		NewBytesReader([]byte("i")),
		NewBytesReader([]byte("c")),
		NewBytesReader([]byte("e")),
	}
	chained := Chain(readers...)
	buf := make([]byte, 3)
	n, err := chained.ReadAt(1, buf)
	if err != nil {
		t.Fatalf("ReadAt: %v", err)
	}
	if n != 3 || string(buf) != "lic" {
		t.Fatalf("got %q (n=%d), want %q (n=3)", buf[:n], n, "lic")
	}
}

func TestSequentialReaderOverReader(t *testing.T) {
	r := NewBytesReader([]byte("hello"))
	sr := NewSequentialReader(r)
	buf := make([]byte, 2)
	n, err := sr.Read(buf)
	if err != nil || n != 2 || string(buf) != "he" {
		t.Fatalf("Read = %q, %d, %v", buf[:n], n, err)
	}
	if err := sr.Skip(1); err != nil {
		t.Fatalf("Skip: %v", err)
	}
	rest := make([]byte, 2)
	n, err = sr.Read(rest)
	if err != nil || n != 2 || string(rest) != "lo" {
		t.Fatalf("Read after skip = %q, %d, %v", rest[:n], n, err)
	}
}
