// Package cpio reads and writes the "new ascii" (070701) and "newc
// ascii" (070702, checksummed) cpio archive formats used to carry a
// diff's inline payload set, grounded on
// original_source/src/native/archives/cpio_archives/cpio_file.cpp and
// cpio_archive.cpp. The original cpio binary format is not supported:
// distilled §9's Open Question notes the original's binary-format
// branch is unreachable dead code, and this package follows the same
// decision, surfacing it as an explicit error instead of silently
// mis-parsing.
package cpio

// Format identifies which cpio header variant an archive uses. Mixing
// formats within one archive is rejected, matching the original's
// try_read loop refusing to continue once a later entry's magic
// disagrees with the first.
type Format int

const (
	FormatNone Format = iota
	// FormatNewASCII is the 070701 magic, uncheck-summed.
	FormatNewASCII
	// FormatNewCASCII is the 070702 magic, with a payload checksum.
	FormatNewCASCII
)

func (f Format) String() string {
	switch f {
	case FormatNewASCII:
		return "new_ascii"
	case FormatNewCASCII:
		return "newc_ascii"
	default:
		return "none"
	}
}

const (
	headerSize  = 110
	trailerName = "TRAILER!!!"
)

var (
	newASCIIMagic  = [6]byte{'0', '7', '0', '7', '0', '1'}
	newCASCIIMagic = [6]byte{'0', '7', '0', '7', '0', '2'}
)

// header field byte offsets within the 110-byte fixed header, per
// cpio_file.cpp's NEW_ASCII_HEADER_*_OFFSET constants. Every field is 8
// ASCII hex characters except the 6-byte magic.
const (
	offMagic     = 0
	offIno       = 6
	offMode      = 14
	offUID       = 22
	offGID       = 30
	offNLink     = 38
	offMTime     = 46
	offFilesize  = 54
	offDevMajor  = 62
	offDevMinor  = 70
	offRDevMajor = 78
	offRDevMinor = 86
	offNamesize  = 94
	offCheck     = 102
)

func paddingNeeded(offset, alignment uint64) uint64 {
	if alignment == 0 {
		return 0
	}
	padding := alignment - (offset % alignment)
	if padding == alignment {
		return 0
	}
	return padding
}
