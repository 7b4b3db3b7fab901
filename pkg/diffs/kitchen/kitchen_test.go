package kitchen

import (
	"errors"
	"testing"
	"time"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/prepared"
)

// failingSeqReader yields data and then a fixed non-EOF error,
// standing in for a corrupted zlib/zstd/bsdiff stream feeding a
// sliced recipe.
type failingSeqReader struct {
	data []byte
	pos  int
	err  error
}

func (r *failingSeqReader) Read(p []byte) (int, error) {
	if r.pos >= len(r.data) {
		return 0, r.err
	}
	n := copy(p, r.data[r.pos:])
	r.pos += n
	return n, nil
}

func (r *failingSeqReader) Skip(n uint64) error {
	r.pos += int(n)
	return nil
}

func (r *failingSeqReader) Size() uint64 { return uint64(len(r.data)) }
func (r *failingSeqReader) Tell() uint64 { return uint64(r.pos) }

// literalRecipe is a minimal test Recipe that hands back a
// pre-constructed prepared item for a result with no ingredients,
// standing in for a real built-in like all_zeros.
type literalRecipe struct {
	name   string
	result diffitem.Item
	items  []diffitem.Item
	make   func(k *Kitchen, ingredients []*prepared.Item) (*prepared.Item, error)
}

func (r *literalRecipe) Name() string                   { return r.name }
func (r *literalRecipe) Result() diffitem.Item          { return r.result }
func (r *literalRecipe) NumberParams() []uint64         { return nil }
func (r *literalRecipe) ItemParams() []diffitem.Item    { return r.items }
func (r *literalRecipe) Prepare(k *Kitchen, ing []*prepared.Item) (*prepared.Item, error) {
	return r.make(k, ing)
}

func readerOf(data []byte) func(k *Kitchen, ing []*prepared.Item) (*prepared.Item, error) {
	return func(k *Kitchen, ing []*prepared.Item) (*prepared.Item, error) {
		def := diffitem.New(uint64(len(data)))
		return prepared.NewReader(def, func() (ioutil.Reader, error) {
			return ioutil.NewBytesReader(data), nil
		}), nil
	}
}

func TestProcessRequestedItemsResolvesSimpleRecipe(t *testing.T) {
	k := New()
	want := diffitem.New(5)
	k.AddRecipe(&literalRecipe{name: "literal", result: want, make: readerOf([]byte("abcde"))})

	k.RequestItem(want)
	ok, err := k.ProcessRequestedItems()
	if err != nil {
		t.Fatalf("ProcessRequestedItems: %v", err)
	}
	if !ok {
		t.Fatal("expected resolution to succeed")
	}

	item, err := k.FetchItem(want)
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
	if string(got) != "abcde" {
		t.Fatalf("got %q", got)
	}
}

func TestProcessRequestedItemsChainsRecursiveIngredients(t *testing.T) {
	k := New()
	leaf := diffitem.New(3).WithHash(diffitem.AlgorithmSHA256, []byte{1})
	k.AddRecipe(&literalRecipe{name: "leaf", result: leaf, make: readerOf([]byte("leo"))})

	top := diffitem.New(3).WithName("top").WithHash(diffitem.AlgorithmSHA256, []byte{2})
	k.AddRecipe(&literalRecipe{
		name:   "passthrough",
		result: top,
		items:  []diffitem.Item{leaf},
		make: func(k *Kitchen, ing []*prepared.Item) (*prepared.Item, error) {
			return ing[0], nil
		},
	})

	k.RequestItem(top)
	ok, err := k.ProcessRequestedItems()
	if err != nil {
		t.Fatalf("ProcessRequestedItems: %v", err)
	}
	if !ok {
		t.Fatal("expected resolution to succeed")
	}
	if !k.CanFetchItem(leaf) {
		t.Fatal("expected leaf ingredient to also land in the pantry")
	}
}

func TestProcessRequestedItemsDetectsCycle(t *testing.T) {
	k := New()
	a := diffitem.New(1).WithName("a")
	b := diffitem.New(1).WithName("b")

	k.AddRecipe(&literalRecipe{name: "a_from_b", result: a, items: []diffitem.Item{b},
		make: func(k *Kitchen, ing []*prepared.Item) (*prepared.Item, error) { return ing[0], nil }})
	k.AddRecipe(&literalRecipe{name: "b_from_a", result: b, items: []diffitem.Item{a},
		make: func(k *Kitchen, ing []*prepared.Item) (*prepared.Item, error) { return ing[0], nil }})

	k.RequestItem(a)
	_, err := k.ProcessRequestedItems()
	if err == nil {
		t.Fatal("expected a cycle error")
	}
}

func TestProcessRequestedItemsNoProgressReturnsFalse(t *testing.T) {
	k := New()
	unreachable := diffitem.New(9).WithName("unreachable")
	k.RequestItem(unreachable)

	ok, err := k.ProcessRequestedItems()
	if err != nil {
		t.Fatalf("ProcessRequestedItems: %v", err)
	}
	if ok {
		t.Fatal("expected resolution to report no progress for an unresolvable item")
	}
}

func TestPantryTreatsUncertainAsCandidate(t *testing.T) {
	p := NewPantry()
	stored := diffitem.New(10)
	prep := prepared.NewReader(stored, func() (ioutil.Reader, error) {
		return ioutil.NewAllZerosReader(10), nil
	})
	p.Store(stored, prep)

	query := diffitem.New(10) // same length, no hash: Uncertain
	got, ok := p.Find(query)
	if !ok {
		t.Fatal("expected an Uncertain match to be returned as a candidate")
	}
	if got != prep {
		t.Fatal("expected the stored prepared item back")
	}
}

// TestResumeSlicingRejectsOverlap checks distilled §4.5 step 2: two
// slice requests that overlap on the same sequential parent are
// rejected before any producer goroutine is spawned.
func TestResumeSlicingRejectsOverlap(t *testing.T) {
	k := New()
	parentDef := diffitem.New(10)
	parent := prepared.NewSequentialReader(parentDef, func() (ioutil.SequentialReader, error) {
		return ioutil.NewSequentialReader(ioutil.NewBytesReader([]byte("0123456789"))), nil
	})

	k.NewSlice(diffitem.New(5), parent, 0, 5)
	k.NewSlice(diffitem.New(5), parent, 3, 5) // overlaps [0,5)

	if err := k.ResumeSlicing(); err == nil {
		t.Fatal("expected an overlap error")
	}
}

// TestResumeSlicingServesNonOverlappingSlicesInOrder drives a
// sequential-only producer through the channel and confirms each
// slice's bytes come back correctly, then exercises CancelSlicing to
// confirm the producer goroutine is joined rather than leaked.
func TestResumeSlicingServesNonOverlappingSlicesInOrder(t *testing.T) {
	k := New()
	data := []byte("abcdefghij")
	parentDef := diffitem.New(uint64(len(data)))
	parent := prepared.NewSequentialReader(parentDef, func() (ioutil.SequentialReader, error) {
		return ioutil.NewSequentialReader(ioutil.NewBytesReader(data)), nil
	})

	first := k.NewSlice(diffitem.New(3), parent, 0, 3)
	second := k.NewSlice(diffitem.New(3), parent, 3, 3)

	if err := k.ResumeSlicing(); err != nil {
		t.Fatalf("ResumeSlicing: %v", err)
	}

	r1, err := first.MakeReader()
	if err != nil {
		t.Fatalf("MakeReader(first): %v", err)
	}
	got1, err := ioutil.ReadAll(r1)
	if err != nil {
		t.Fatalf("ReadAll(first): %v", err)
	}
	if string(got1) != "abc" {
		t.Fatalf("first slice = %q, want %q", got1, "abc")
	}

	r2, err := second.MakeReader()
	if err != nil {
		t.Fatalf("MakeReader(second): %v", err)
	}
	got2, err := ioutil.ReadAll(r2)
	if err != nil {
		t.Fatalf("ReadAll(second): %v", err)
	}
	if string(got2) != "def" {
		t.Fatalf("second slice = %q, want %q", got2, "def")
	}

	done := make(chan struct{})
	go func() {
		k.CancelSlicing()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("CancelSlicing never returned: possible leaked producer goroutine")
	}
}

// TestResumeSlicingPropagatesProducerReadFailure checks §7's
// propagation policy: a genuine (non-EOF) read failure from the
// sequential parent must cancel the group's channel so any consumer
// blocked waiting for more bytes than the producer managed to deliver
// observes an error instead of hanging forever.
func TestResumeSlicingPropagatesProducerReadFailure(t *testing.T) {
	k := New()
	wantErr := errors.New("corrupted stream")
	parentDef := diffitem.New(10)
	parent := prepared.NewSequentialReader(parentDef, func() (ioutil.SequentialReader, error) {
		return &failingSeqReader{data: []byte("abc"), err: wantErr}, nil
	})

	// Request the whole parent as one slice, so reading it blocks past
	// the 3 bytes the producer actually delivers before failing.
	slice := k.NewSlice(diffitem.New(10), parent, 0, 10)

	if err := k.ResumeSlicing(); err != nil {
		t.Fatalf("ResumeSlicing: %v", err)
	}
	defer k.CancelSlicing()

	errCh := make(chan error, 1)
	go func() {
		_, err := slice.MakeReader()
		errCh <- err
	}()

	select {
	case err := <-errCh:
		if err == nil {
			t.Fatal("expected an error once the producer's read fails short of the declared length")
		}
	case <-time.After(2 * time.Second):
		t.Fatal("MakeReader never returned: consumer deadlocked on an uncancelled channel")
	}
}
