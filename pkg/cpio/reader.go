package cpio

import (
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/diffserr"
	"github.com/Azure/iot-hub-device-update-delta-sub001/pkg/diffs/ioutil"
)

// Reader is a parsed cpio archive (new_ascii or newc_ascii format
// only), mirroring cpio_archive's read-side responsibilities: entry
// lookup, payload access, and filename indexing.
type Reader struct {
	format  Format
	entries []Entry
	source  ioutil.Reader
}

// Format reports which header variant the archive used.
func (r *Reader) Format() Format { return r.format }

// Entries returns the archive's file entries, in on-disk order, not
// including the trailer record.
func (r *Reader) Entries() []Entry { return r.entries }

// HasFile reports whether name is present in the archive.
func (r *Reader) HasFile(name string) bool {
	_, ok := r.GetFileIndex(name)
	return ok
}

// GetFileIndex returns the index of the entry named name. The
// original's cpio_archive::get_file_index compared a stored entry's
// name against itself (name.compare(name), always zero) instead of
// against the requested name, so its "not found" branch was dead code;
// this implementation compares against the requested name and reports
// (0, false) when nothing matches.
func (r *Reader) GetFileIndex(name string) (int, bool) {
	for i, e := range r.entries {
		if e.Name == name {
			return i, true
		}
	}
	return 0, false
}

// PayloadReader returns a Reader over name's payload bytes.
func (r *Reader) PayloadReader(name string) (ioutil.Reader, bool) {
	idx, ok := r.GetFileIndex(name)
	if !ok {
		return nil, false
	}
	return r.entries[idx].payloadReader(r.source), true
}

// Load parses a cpio archive from r. Only the new_ascii/newc_ascii
// magic headers are recognized; anything else (the old binary cpio
// format, most notably) is rejected with
// diffserr.KindCpioBinaryFormatUnsupported rather than mis-parsed.
func Load(r ioutil.Reader) (*Reader, error) {
	var entries []Entry
	var format Format
	var offset uint64

	for {
		var header [headerSize]byte
		if err := ioutil.ReadExact(r, offset, header[:]); err != nil {
			return nil, diffserr.Wrap(diffserr.KindCpioHeaderInvalid, "reading cpio entry header", err)
		}

		entryFormat, err := magicFormat(header[offMagic : offMagic+6])
		if err != nil {
			if offset == 0 {
				return nil, err
			}
			return nil, diffserr.Wrap(diffserr.KindCpioFormatMismatch, "cpio entry magic changed mid-archive", err)
		}
		if format == FormatNone {
			format = entryFormat
		} else if format != entryFormat {
			return nil, diffserr.Newf(diffserr.KindCpioFormatMismatch,
				"cpio archive mixes %s and %s entries", format, entryFormat)
		}

		ino, err := hexToUint32(header[offIno : offIno+8])
		if err != nil {
			return nil, err
		}
		mode, err := hexToUint32(header[offMode : offMode+8])
		if err != nil {
			return nil, err
		}
		uid, err := hexToUint32(header[offUID : offUID+8])
		if err != nil {
			return nil, err
		}
		gid, err := hexToUint32(header[offGID : offGID+8])
		if err != nil {
			return nil, err
		}
		nlink, err := hexToUint32(header[offNLink : offNLink+8])
		if err != nil {
			return nil, err
		}
		mtime, err := hexToUint32(header[offMTime : offMTime+8])
		if err != nil {
			return nil, err
		}
		filesize, err := hexToUint32(header[offFilesize : offFilesize+8])
		if err != nil {
			return nil, err
		}
		devMajor, err := hexToUint32(header[offDevMajor : offDevMajor+8])
		if err != nil {
			return nil, err
		}
		devMinor, err := hexToUint32(header[offDevMinor : offDevMinor+8])
		if err != nil {
			return nil, err
		}
		rdevMajor, err := hexToUint32(header[offRDevMajor : offRDevMajor+8])
		if err != nil {
			return nil, err
		}
		rdevMinor, err := hexToUint32(header[offRDevMinor : offRDevMinor+8])
		if err != nil {
			return nil, err
		}
		namesize, err := hexToUint32(header[offNamesize : offNamesize+8])
		if err != nil {
			return nil, err
		}
		check, err := hexToUint32(header[offCheck : offCheck+8])
		if err != nil {
			return nil, err
		}

		nameBuf := make([]byte, namesize)
		if err := ioutil.ReadExact(r, offset+headerSize, nameBuf); err != nil {
			return nil, diffserr.Wrap(diffserr.KindCpioHeaderInvalid, "reading cpio entry name", err)
		}
		name := stringFromNulPadded(nameBuf)

		headerTotal := uint64(headerSize) + uint64(namesize)
		headerPadding := paddingNeeded(headerTotal, 4)
		payloadStart := offset + headerTotal + headerPadding

		entry := Entry{
			Name:          name,
			Inode:         ino,
			Mode:          mode,
			UID:           uid,
			GID:           gid,
			NLink:         nlink,
			MTime:         mtime,
			DevMajor:      devMajor,
			DevMinor:      devMinor,
			RDevMajor:     rdevMajor,
			RDevMinor:     rdevMinor,
			Check:         check,
			payloadOffset: payloadStart,
			payloadLength: uint64(filesize),
		}

		if entry.isTrailer() {
			break
		}

		payloadEnd := payloadStart + uint64(filesize)
		payloadPadding := paddingNeeded(payloadEnd, 4)
		entries = append(entries, entry)
		offset = payloadEnd + payloadPadding
	}

	return &Reader{format: format, entries: entries, source: r}, nil
}

func magicFormat(magic []byte) (Format, error) {
	switch {
	case bytesEqual(magic, newASCIIMagic[:]):
		return FormatNewASCII, nil
	case bytesEqual(magic, newCASCIIMagic[:]):
		return FormatNewCASCII, nil
	default:
		return FormatNone, diffserr.New(diffserr.KindCpioBinaryFormatUnsupported,
			"cpio archive does not begin with a new_ascii or newc_ascii magic; the binary cpio format is not supported")
	}
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// stringFromNulPadded trims a single trailing NUL terminator (and any
// padding bytes beyond it), matching string_data.cpp's
// string_from_nul_padded_string.
func stringFromNulPadded(b []byte) string {
	for i, c := range b {
		if c == 0 {
			return string(b[:i])
		}
	}
	return string(b)
}
