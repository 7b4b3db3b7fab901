// Package archive ties together the legacy and standard container
// decoders behind one format-sniffing entry point, and resolves the
// nested-archive mounts either decoder can produce into a tree of
// *Archive values. It depends on both pkg/diffs/legacy and
// pkg/diffs/standard but neither of those packages depends back on it
// (each defines its own local Result/NestedRef shape), avoiding an
// import cycle — the same interface-inversion trick used for
// prepared.SliceResolver and kitchen.Recipe.
package archive

import (
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/kitchen"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/legacy"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/recipe"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/standard"
)

// Archive is a fully decoded diff: the item it reconstructs, the
// optional source item it was computed against, the pantry/cookbook
// needed to resolve it, and any nested archives it mounts.
type Archive struct {
	Target    diffitem.Item
	Source    *diffitem.Item
	Pantry    *kitchen.Pantry
	Cookbook  *kitchen.Cookbook
	Payloads  map[string]diffitem.Item
	Templates map[string]recipe.Factory
	// Children holds a decoded nested Archive for each "nested" recipe
	// the container declared, keyed by the canonical SortKey of the
	// item that nested archive reconstructs.
	Children map[string]*Archive
}

// nestedRef is the common shape legacy.NestedRef and standard.NestedRef
// are converted to at the point this package consumes them.
type nestedRef struct {
	result   diffitem.Item
	diffItem diffitem.Item
}

// Option configures an optional Load behavior.
type Option func(*loadOptions)

type loadOptions struct {
	encryptionKey string
}

// WithEncryptionKey passes a passphrase down to the legacy decoder for
// containers whose inline-assets blob was encrypted at rest (see
// legacy.WithEncryptionKey). It has no effect on a standard-format
// container, which never encrypts inline assets.
func WithEncryptionKey(key string) Option {
	return func(o *loadOptions) { o.encryptionKey = key }
}

// Load sniffs r's first 4 bytes and decodes it as either the legacy
// ".pamz" container or the standard "PAMS" container, per distilled
// §6.2: the legacy magic is checked first since it identifies its
// format unambiguously from 4 bytes; anything else is tried as the
// standard format, and if that also fails to recognize its own magic,
// a legacy decode is attempted as a last resort (the original source's
// own dispatch tries the newer format first and falls back to the
// older one).
func Load(r ioutil.Reader, opts ...Option) (*Archive, error) {
	var options loadOptions
	for _, opt := range opts {
		opt(&options)
	}
	var legacyOpts []legacy.Option
	if options.encryptionKey != "" {
		legacyOpts = append(legacyOpts, legacy.WithEncryptionKey(options.encryptionKey))
	}

	if legacy.IsThisFormat(r) {
		result, err := legacy.Decode(r, legacyOpts...)
		if err != nil {
			return nil, err
		}
		return assemble(result.Target, result.Source, result.Pantry, result.Cookbook, result.Payloads, convertLegacyNested(result.Nested), opts)
	}

	if result, err := standard.Decode(r); err == nil {
		return assemble(result.Target, result.Source, result.Pantry, result.Cookbook, result.Payloads, convertStandardNested(result.Nested), opts)
	}

	result, err := legacy.Decode(r, legacyOpts...)
	if err != nil {
		return nil, diffserr.Wrap(diffserr.KindMagicHeaderWrong, "input matches neither the standard nor the legacy container format", err)
	}
	return assemble(result.Target, result.Source, result.Pantry, result.Cookbook, result.Payloads, convertLegacyNested(result.Nested), opts)
}

func convertLegacyNested(in []legacy.NestedRef) []nestedRef {
	out := make([]nestedRef, len(in))
	for i, n := range in {
		out[i] = nestedRef{result: n.Result, diffItem: n.DiffItem}
	}
	return out
}

func convertStandardNested(in []standard.NestedRef) []nestedRef {
	out := make([]nestedRef, len(in))
	for i, n := range in {
		out[i] = nestedRef{result: n.Result, diffItem: n.DiffItem}
	}
	return out
}

// assemble builds an *Archive from a decoder's output and recursively
// resolves every nested-archive mount into Children, passing opts down
// to each nested Load so a shared encryption key applies throughout the
// tree.
func assemble(target diffitem.Item, source *diffitem.Item, pantry *kitchen.Pantry, cookbook *kitchen.Cookbook, payloads map[string]diffitem.Item, nested []nestedRef, opts []Option) (*Archive, error) {
	a := &Archive{
		Target:    target,
		Source:    source,
		Pantry:    pantry,
		Cookbook:  cookbook,
		Payloads:  payloads,
		Templates: map[string]recipe.Factory{},
		Children:  map[string]*Archive{},
	}

	if len(nested) == 0 {
		return a, nil
	}

	k := kitchen.NewWith(pantry, cookbook)
	for _, n := range nested {
		k.RequestItem(n.diffItem)
	}
	if _, err := k.ProcessRequestedItems(); err != nil {
		return nil, diffserr.Wrap(diffserr.KindItemNotAvailable, "resolving nested archive diff bytes", err)
	}

	for _, n := range nested {
		prep, err := k.FetchItem(n.diffItem)
		if err != nil {
			return nil, err
		}
		nestedReader, err := prep.MakeReader()
		if err != nil {
			return nil, err
		}
		child, err := Load(nestedReader, opts...)
		if err != nil {
			return nil, diffserr.Wrap(diffserr.KindItemNotAvailable, "decoding nested archive", err)
		}
		a.Children[n.result.SortKey()] = child
	}

	return a, nil
}
