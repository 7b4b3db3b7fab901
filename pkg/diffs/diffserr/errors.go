// Package diffserr defines the flat error taxonomy used across the
// differential archive engine: every public entry point returns either
// nil or an *Error carrying one of the Kind constants below, a
// human-readable message, an optional wrapped cause, and optional
// debugging context.
package diffserr

import "fmt"

// Kind classifies a failure. Kinds are grouped by the §7 categories:
// container decode, recipe construction, resolution, verification, I/O,
// and codec failures.
type Kind string

const (
	// Container
	KindMagicHeaderWrong           Kind = "diff_magic_header_wrong"
	KindVersionWrong                Kind = "diff_version_wrong"
	KindReadDiffSizeMismatch        Kind = "diff_read_diff_size_mismatch"
	KindBadHashType                 Kind = "diff_bad_hash_type"
	KindRecipeParameterReadInvalid  Kind = "diff_recipe_parameter_read_invalid_type"

	// Recipe construction
	KindRecipeInvalidParameterCount       Kind = "diff_recipe_invalid_parameter_count"
	KindRecipeSelfReferential             Kind = "recipe_self_referential"
	KindRecipeChainItemAndRecipeMismatch  Kind = "recipe_chain_item_and_recipe_mismatch"
	KindRecipeChainTotalLengthMismatch    Kind = "recipe_chain_total_item_length_mismatch"
	KindRecipeZlibCompressionLevelInvalid Kind = "recipe_zlib_compression_level_invalid"
	KindRecipeZstdCompressionNotSupported Kind = "recipe_zstd_compression_not_supported"

	// Resolution
	KindItemNotAvailable          Kind = "diff_item_not_available"
	KindSlicingInvalidState       Kind = "diff_slicing_invalid_state"
	KindSlicingRequestSliceOverlap Kind = "diff_slicing_request_slice_overlap"

	// Verification
	KindVerifyHashFailure Kind = "diff_verify_hash_failure"

	// I/O
	KindIOReaderReadFailure            Kind = "io_reader_read_failure"
	KindIOReaderSliceBoundError         Kind = "io_reader_slice_bound_error"
	KindIODeviceNewEndPastSize          Kind = "io_device_new_end_past_size"
	KindIOBinaryFileReaderFailedOpen    Kind = "io_binary_file_reader_failed_open"
	KindIOBinaryFileWriterFailedOpen    Kind = "io_binary_file_writer_failed_open"
	KindIOWritingWhenDone              Kind = "io_producer_consumer_reader_writer_writing_when_done"
	KindIOReadingTooMuchAvailable       Kind = "io_producer_consumer_reader_writer_reading_too_much_available"

	// Codec
	KindBspatchFailure              Kind = "diff_bspatch_failure"
	KindZstdDecompressStreamFailed  Kind = "io_zstd_decompress_stream_failed"
	KindZstdDecompressCannotFinish  Kind = "io_zstd_decompress_cannot_finish"
	KindZstdCompressStreamFailed    Kind = "io_zstd_compress_stream_failed"
	KindZstdCompressFinishedEarly   Kind = "io_zstd_compress_finished_early"
	KindZstdCompressCannotFinish    Kind = "io_zstd_compress_cannot_finish"
	KindZstdTooMuchDataProcessed    Kind = "io_zstd_too_much_data_processed"

	// cpio (supplements the distilled taxonomy; see SPEC_FULL.md §13)
	KindCpioBinaryFormatUnsupported Kind = "cpio_binary_format_unsupported"
	KindCpioHeaderInvalid           Kind = "cpio_header_invalid"
	KindCpioFormatMismatch          Kind = "cpio_format_mismatch"

	// encrypted inline assets (supplements the distilled taxonomy; see
	// SPEC_FULL.md §3's encrypted-inline-assets extension)
	KindInlineAssetsDecryptFailed Kind = "diff_inline_assets_decrypt_failed"
)

// Error is a structured, classified error. It implements error and
// Unwrap so callers can use errors.Is/errors.As against Cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
	Context map[string]any
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error { return e.Cause }

// New creates an *Error with the given kind and message.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates an *Error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an *Error with the given kind and message, wrapping
// cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// Wrapf creates an *Error with a formatted message, wrapping cause.
func Wrapf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// WithContext attaches debugging context to e and returns e for
// chaining at the construction site.
func (e *Error) WithContext(ctx map[string]any) *Error {
	e.Context = ctx
	return e
}

// Is reports whether err itself is a *Error of the given kind. It does
// not unwrap: neither a *Error's Cause nor an error that wraps a *Error
// is inspected, since Kind is a leaf classification, not a chain of
// classifications.
func Is(err error, kind Kind) bool {
	de, ok := err.(*Error)
	if !ok {
		return false
	}
	return de.Kind == kind
}
