// Package prepared implements the five-kind tagged union produced by
// resolving a recipe: a materialized Reader, a SequentialReader backed
// by a still-running producer, a Slice of another prepared item, a
// Chain of several, or a transient recipe result that has not yet been
// classified into one of the other four. This mirrors the way
// shoal/internal/provisioner/oci.Manifest/Descriptor use one struct
// with optional fields to cover several JSON shapes; here the shapes
// are behaviorally distinct, so a Kind discriminator replaces the
// all-fields-optional approach.
package prepared

import (
	"io"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
)

// Kind discriminates the shape of a prepared Item.
type Kind int

const (
	// KindReader holds a fully materialized random-access Reader.
	KindReader Kind = iota
	// KindSequentialReader holds a forward-only producer; random
	// access requires the streaming slice machinery to bind a buffer.
	KindSequentialReader
	// KindSlice is a byte-range view over a parent prepared item.
	KindSlice
	// KindChain concatenates several prepared items in order.
	KindChain
	// KindRecipeResult is a transient classification pending recipe
	// output; it is never stored in a pantry.
	KindRecipeResult
)

func (k Kind) String() string {
	switch k {
	case KindReader:
		return "reader"
	case KindSequentialReader:
		return "sequential_reader"
	case KindSlice:
		return "slice"
	case KindChain:
		return "chain"
	case KindRecipeResult:
		return "recipe_result"
	default:
		return "unknown"
	}
}

// SliceResolver is the subset of kitchen behavior a sequential-only
// Slice-kind item needs at MakeReader time: the streaming machinery
// that binds a buffer to a pending slice request (SPEC_FULL §9). Kept
// as an interface here, rather than a concrete *kitchen.Kitchen field,
// so this package has no import-cycle dependency on the kitchen
// package that constructs Items.
type SliceResolver interface {
	ReaderForSlice(item *Item) (ioutil.Reader, error)
}

// Item is a prepared (resolved) form of a diffitem.Item: something the
// engine can actually read bytes from, as opposed to diffitem.Item
// which is only a content-addressed description.
type Item struct {
	kind        Kind
	def         diffitem.Item
	readerFn    func() (ioutil.Reader, error)
	seqFn       func() (ioutil.SequentialReader, error)
	ingredients []*Item // Chain operands, or a Slice's single parent
	parent      *Item   // Slice only
	offset      uint64  // Slice only
	length      uint64  // Slice only
	resolver    SliceResolver
}

// NewReader builds a KindReader prepared item around an
// already-available random-access Reader.
func NewReader(def diffitem.Item, fn func() (ioutil.Reader, error)) *Item {
	return &Item{kind: KindReader, def: def, readerFn: fn}
}

// NewSequentialReader builds a KindSequentialReader prepared item
// around a forward-only producer, such as a running decompressor.
func NewSequentialReader(def diffitem.Item, fn func() (ioutil.SequentialReader, error)) *Item {
	return &Item{kind: KindSequentialReader, def: def, seqFn: fn}
}

// NewSlice builds a KindSlice prepared item viewing [offset,
// offset+length) of parent. If parent is sequential-only, resolver
// must be able to bind a streaming buffer for this item once the
// kitchen's slicing machinery resumes.
func NewSlice(def diffitem.Item, parent *Item, offset, length uint64, resolver SliceResolver) *Item {
	return &Item{
		kind:        KindSlice,
		def:         def,
		parent:      parent,
		offset:      offset,
		length:      length,
		ingredients: []*Item{parent},
		resolver:    resolver,
	}
}

// NewChain builds a KindChain prepared item concatenating ingredients
// in order.
func NewChain(def diffitem.Item, ingredients []*Item) *Item {
	return &Item{kind: KindChain, def: def, ingredients: ingredients}
}

// Definition returns the content-addressed description this prepared
// item was resolved for.
func (p *Item) Definition() diffitem.Item { return p.def }

// Kind reports which of the five shapes this item is.
func (p *Item) Kind() Kind { return p.kind }

// IsSequentialOnly reports whether this item (or, transitively, its
// Slice parent or any Chain ingredient) has no random-access Reader
// available without the streaming slice machinery.
func (p *Item) IsSequentialOnly() bool {
	switch p.kind {
	case KindReader:
		return false
	case KindSequentialReader:
		return true
	case KindSlice:
		return p.parent.IsSequentialOnly()
	case KindChain:
		for _, ing := range p.ingredients {
			if ing.IsSequentialOnly() {
				return true
			}
		}
		return false
	default:
		return true
	}
}

// MakeReader returns a random-access Reader over this item's bytes.
// For a sequential-only Slice, this requires the kitchen's streaming
// slice machinery to have bound a buffer already (SPEC_FULL §9); absent
// that, it fails with diffserr.KindSlicingInvalidState.
func (p *Item) MakeReader() (ioutil.Reader, error) {
	switch p.kind {
	case KindReader:
		return p.readerFn()
	case KindSequentialReader:
		return nil, diffserr.New(diffserr.KindSlicingInvalidState,
			"sequential-only item has no random-access reader outside streaming slice machinery")
	case KindSlice:
		if !p.parent.IsSequentialOnly() {
			parentReader, err := p.parent.MakeReader()
			if err != nil {
				return nil, err
			}
			return ioutil.Slice(parentReader, p.offset, p.length), nil
		}
		if p.resolver == nil {
			return nil, diffserr.New(diffserr.KindSlicingInvalidState,
				"sequential-only slice has no resolver bound")
		}
		return p.resolver.ReaderForSlice(p)
	case KindChain:
		if p.IsSequentialOnly() {
			return nil, diffserr.New(diffserr.KindSlicingInvalidState,
				"chain over sequential-only ingredients has no random-access reader")
		}
		readers := make([]ioutil.Reader, len(p.ingredients))
		for i, ing := range p.ingredients {
			r, err := ing.MakeReader()
			if err != nil {
				return nil, err
			}
			readers[i] = r
		}
		return ioutil.Chain(readers...), nil
	default:
		return nil, diffserr.New(diffserr.KindSlicingInvalidState, "recipe result has no reader")
	}
}

// MakeSequentialReader works for every kind except KindRecipeResult,
// which fails with diffserr.KindSlicingInvalidState; errors from the
// underlying reader factories are passed through. A Reader-kind item
// gets its random-access reader wrapped as sequential, and a Slice/Chain over
// sequential parents composes their sequential readers directly
// without materializing the whole parent.
func (p *Item) MakeSequentialReader() (ioutil.SequentialReader, error) {
	switch p.kind {
	case KindReader:
		r, err := p.readerFn()
		if err != nil {
			return nil, err
		}
		return ioutil.NewSequentialReader(r), nil
	case KindSequentialReader:
		return p.seqFn()
	case KindSlice:
		parentSeq, err := p.parent.MakeSequentialReader()
		if err != nil {
			return nil, err
		}
		return &sliceSequentialReader{parent: parentSeq, remaining: p.offset, length: p.length}, nil
	case KindChain:
		return newChainSequentialReader(p.ingredients)
	default:
		return nil, diffserr.New(diffserr.KindSlicingInvalidState, "recipe result has no sequential reader")
	}
}

// WriteTo copies the whole item through a sequential reader into w.
func (p *Item) WriteTo(w ioutil.SequentialWriter) error {
	sr, err := p.MakeSequentialReader()
	if err != nil {
		return err
	}
	return ioutil.CopyAll(w, sr)
}

// sliceSequentialReader adapts a parent SequentialReader to a bounded
// view by skipping to offset once, then yielding length bytes.
type sliceSequentialReader struct {
	parent    ioutil.SequentialReader
	remaining uint64 // bytes of leading offset still to skip
	length    uint64 // bytes of the slice itself
	consumed  uint64 // bytes of the slice delivered so far
	skipped   bool
}

func (s *sliceSequentialReader) ensureSkipped() error {
	if s.skipped {
		return nil
	}
	if err := ioutil.DiscardSkip(s.parent, s.remaining); err != nil {
		return err
	}
	s.skipped = true
	return nil
}

func (s *sliceSequentialReader) Read(p []byte) (int, error) {
	if err := s.ensureSkipped(); err != nil {
		return 0, err
	}
	remain := s.length - s.consumed
	if remain == 0 {
		return 0, io.EOF
	}
	if uint64(len(p)) > remain {
		p = p[:remain]
	}
	n, err := s.parent.Read(p)
	s.consumed += uint64(n)
	return n, err
}

func (s *sliceSequentialReader) Skip(n uint64) error {
	if err := s.ensureSkipped(); err != nil {
		return err
	}
	remain := s.length - s.consumed
	if n > remain {
		n = remain
	}
	if err := ioutil.DiscardSkip(s.parent, n); err != nil {
		return err
	}
	s.consumed += n
	return nil
}

func (s *sliceSequentialReader) Size() uint64 { return s.length }
func (s *sliceSequentialReader) Tell() uint64 { return s.consumed }

// chainSequentialReader reads through each ingredient's sequential
// reader in order, advancing to the next once the current is exhausted.
type chainSequentialReader struct {
	readers []ioutil.SequentialReader
	sizes   []uint64
	total   uint64
	idx     int
	tell    uint64
}

func newChainSequentialReader(ingredients []*Item) (*chainSequentialReader, error) {
	readers := make([]ioutil.SequentialReader, len(ingredients))
	sizes := make([]uint64, len(ingredients))
	var total uint64
	for i, ing := range ingredients {
		r, err := ing.MakeSequentialReader()
		if err != nil {
			return nil, err
		}
		readers[i] = r
		sizes[i] = r.Size()
		total += r.Size()
	}
	return &chainSequentialReader{readers: readers, sizes: sizes, total: total}, nil
}

func (c *chainSequentialReader) Read(p []byte) (int, error) {
	for c.idx < len(c.readers) {
		n, err := c.readers[c.idx].Read(p)
		if n > 0 {
			c.tell += uint64(n)
			return n, nil
		}
		if err == io.EOF {
			c.idx++
			continue
		}
		if err != nil {
			return 0, err
		}
		c.idx++
	}
	return 0, io.EOF
}

func (c *chainSequentialReader) Skip(n uint64) error {
	for n > 0 && c.idx < len(c.readers) {
		remain := c.sizes[c.idx] - (c.tell - c.offsetBefore(c.idx))
		toSkip := n
		if toSkip > remain {
			toSkip = remain
		}
		if err := ioutil.DiscardSkip(c.readers[c.idx], toSkip); err != nil {
			return err
		}
		c.tell += toSkip
		n -= toSkip
		if toSkip == remain {
			c.idx++
		}
	}
	return nil
}

func (c *chainSequentialReader) offsetBefore(idx int) uint64 {
	var sum uint64
	for i := 0; i < idx; i++ {
		sum += c.sizes[i]
	}
	return sum
}

func (c *chainSequentialReader) Size() uint64 { return c.total }
func (c *chainSequentialReader) Tell() uint64 { return c.tell }
