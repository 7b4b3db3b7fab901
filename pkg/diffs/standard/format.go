// Package standard implements the "PAMS" self-describing container
// format of distilled §6.2 (not byte-specified there; this is this
// repository's own concrete layout, grounded on the original source's
// builtin_recipe_types.cpp confirming the standard format is a
// tagged/named variant of the same recipe model the legacy format
// uses). A magic+version header is followed by a length-prefixed JSON
// document describing the item/recipe graph, and a length-prefixed
// blob of raw bytes the graph's "slice" recipes cut pieces out of —
// the same role the legacy format's "diff" item plays.
package standard

import (
	"encoding/hex"

	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffitem"
)

// Magic and version of the standard container.
const (
	Magic   = "PAMS"
	Version = uint64(0)
)

// blobItemID names the synthetic item representing the container's raw
// blob section, the standard format's equivalent of the legacy "diff"
// item.
const blobItemID = "blob"

type itemJSON struct {
	ID     string            `json:"id"`
	Length uint64            `json:"length"`
	Name   string            `json:"name,omitempty"`
	Hashes map[string]string `json:"hashes,omitempty"`
}

type recipeJSON struct {
	Name         string   `json:"name"`
	Result       string   `json:"result"`
	NumberParams []uint64 `json:"number_params,omitempty"`
	ItemParams   []string `json:"item_params,omitempty"`
}

type nestedJSON struct {
	Result   string `json:"result"`
	DiffItem string `json:"diff_item"`
}

type archiveJSON struct {
	Target   itemJSON          `json:"target"`
	Source   *itemJSON         `json:"source,omitempty"`
	Items    []itemJSON        `json:"items"`
	Recipes  []recipeJSON      `json:"recipes"`
	Nested   []nestedJSON      `json:"nested,omitempty"`
	Payloads map[string]string `json:"payloads,omitempty"`
}

// algorithmNames maps diffitem.Algorithm to and from the JSON hash-map
// key it's encoded under.
var algorithmNames = map[diffitem.Algorithm]string{
	diffitem.AlgorithmMD5:    "md5",
	diffitem.AlgorithmSHA256: "sha256",
}

var namesToAlgorithm = func() map[string]diffitem.Algorithm {
	m := make(map[string]diffitem.Algorithm, len(algorithmNames))
	for alg, name := range algorithmNames {
		m[name] = alg
	}
	return m
}()

func itemToJSON(id string, it diffitem.Item) itemJSON {
	j := itemJSON{ID: id, Length: it.Length(), Name: it.Name()}
	for alg, name := range algorithmNames {
		if digest, ok := it.Hash(alg); ok {
			if j.Hashes == nil {
				j.Hashes = map[string]string{}
			}
			j.Hashes[name] = hex.EncodeToString(digest)
		}
	}
	return j
}

func itemFromJSON(j itemJSON) (diffitem.Item, error) {
	it := diffitem.New(j.Length)
	if j.Name != "" {
		it = it.WithName(j.Name)
	}
	for name, hexDigest := range j.Hashes {
		alg, ok := namesToAlgorithm[name]
		if !ok {
			return diffitem.Item{}, errUnknownHashAlgorithm(name)
		}
		digest, err := hex.DecodeString(hexDigest)
		if err != nil {
			return diffitem.Item{}, errBadHashEncoding(name, err)
		}
		it = it.WithHash(alg, digest)
	}
	return it, nil
}
