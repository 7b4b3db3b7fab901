package legacy

import "github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"

// recipeType enumerates the 14 legacy recipe type tags of distilled
// §6.1.
type recipeType uint32

const (
	recipeCopy              recipeType = 0
	recipeRegion            recipeType = 1
	recipeConcatenation     recipeType = 2
	recipeBsdiff            recipeType = 3
	recipeNested            recipeType = 4
	recipeRemainder         recipeType = 5
	recipeInlineAsset       recipeType = 6
	recipeCopySource        recipeType = 7
	recipeZstdDelta         recipeType = 8
	recipeInlineAssetCopy   recipeType = 9
	recipeZstdCompression   recipeType = 10
	recipeZstdDecompression recipeType = 11
	recipeAllZero           recipeType = 12
	recipeGzDecompression   recipeType = 13
)

// genericRecipeNames maps the legacy tags whose ingredients pass
// through unmodified into a named built-in recipe, mirroring the
// original deserializer's m_recipe_type_to_template table. Every other
// tag (region, copy, nested, remainder, inline_asset, inline_asset_copy,
// copy_source, gz_decompression) needs special handling and is resolved
// in addLegacyRecipe instead.
var genericRecipeNames = map[recipeType]string{
	recipeConcatenation:     "chain",
	recipeBsdiff:            "bspatch_decompression",
	recipeZstdCompression:   "zstd_compression",
	recipeZstdDelta:         "zstd_decompression",
	recipeZstdDecompression: "zstd_decompression",
	recipeAllZero:           "all_zeros",
}

// readRecipeType reads the 1-byte tag, or the 4-byte tag that follows
// when the 1-byte form is the sentinel 0xFF ("value 255 indicates a
// 4-byte tag follows", distilled §6.1).
func readRecipeType(sr ioutil.SequentialReader) (recipeType, error) {
	b, err := readUint8(sr)
	if err != nil {
		return 0, err
	}
	if b < 0xFF {
		return recipeType(b), nil
	}
	v, err := readUint32(sr)
	if err != nil {
		return 0, err
	}
	return recipeType(v), nil
}

// archiveItemType tags how a recipe parameter's item-kind payload was
// originally located; only the "chunk" variant carries an extra (now
// unused) offset field ahead of the length/hash/has-recipe fields every
// variant shares.
type archiveItemType uint8

const (
	archiveItemBlob    archiveItemType = 0
	archiveItemChunk   archiveItemType = 1
	archiveItemPayload archiveItemType = 2
)

// legacyGzInitType is the zlib init type value meaning "gzip" (matches
// pkg/diffs/recipe's unexported zlibInitGzip constant; duplicated here
// rather than exported, since it is a fixed wire constant, not shared
// behavior).
const legacyGzInitType uint64 = 1
