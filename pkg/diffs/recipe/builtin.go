package recipe

// init registers every built-in recipe type named in distilled §4.6.
// Additional recipe templates can be registered the same way from
// outside this package.
func init() {
	Register("all_zeros", NewAllZeros)
	Register("chain", NewChain)
	Register("slice", NewSlice)
	Register("zlib_decompression", NewZlibDecompression)
	Register("zlib_compression", NewZlibCompression)
	Register("zstd_decompression", NewZstdDecompression)
	Register("zstd_compression", NewZstdCompression)
	Register("bspatch_decompression", NewBspatchDecompression)
}
